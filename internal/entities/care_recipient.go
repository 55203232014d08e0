package entities

import (
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/services"
)

// CareRecipientRow is the local storage form of a care recipient.
type CareRecipientRow struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	DateOfBirthMillis *int64   `json:"date_of_birth,omitempty"`
	BloodType         *string  `json:"blood_type,omitempty"`
	Allergies         []string `json:"allergies,omitempty"`
	CreatedAtMillis   int64    `json:"created_at"`
	UpdatedAtMillis   int64    `json:"updated_at"`
}

// CareRecipientSchema describes CareRecipientRow to the stores.
func CareRecipientSchema() driven.RowSchema[CareRecipientRow] {
	return rowSchema(
		func(r CareRecipientRow) int64 { return r.ID },
		func(r CareRecipientRow, id int64) CareRecipientRow { r.ID = id; return r },
		func(r CareRecipientRow) int64 { return r.UpdatedAtMillis },
	)
}

var careRecipientMapper = mapper[CareRecipientRow, domain.CareRecipient]{
	toDomain: func(r CareRecipientRow) domain.CareRecipient {
		return domain.CareRecipient{
			ID:          r.ID,
			Name:        r.Name,
			DateOfBirth: fromOptMillis(r.DateOfBirthMillis),
			BloodType:   r.BloodType,
			Allergies:   cloneStrings(r.Allergies),
			CreatedAt:   fromMillis(r.CreatedAtMillis),
			UpdatedAt:   fromMillis(r.UpdatedAtMillis),
		}
	},
	toRow: func(localID int64, m domain.CareRecipient) CareRecipientRow {
		return CareRecipientRow{
			ID:                localID,
			Name:              m.Name,
			DateOfBirthMillis: toOptMillis(m.DateOfBirth),
			BloodType:         m.BloodType,
			Allergies:         cloneStrings(m.Allergies),
			CreatedAtMillis:   toMillis(m.CreatedAt),
			UpdatedAtMillis:   toMillis(m.UpdatedAt),
		}
	},
	toRemote: func(m domain.CareRecipient) map[string]any {
		return map[string]any{
			"name":                m.Name,
			"dateOfBirth":         optTime(m.DateOfBirth),
			"bloodType":           optString(m.BloodType),
			"allergies":           stringList(m.Allergies),
			domain.FieldCreatedAt: domain.FormatTime(m.CreatedAt),
			domain.FieldUpdatedAt: domain.FormatTime(m.UpdatedAt),
		}
	},
	fromRemote: func(r *fieldReader) domain.CareRecipient {
		return domain.CareRecipient{
			Name:        r.str("name", true),
			DateOfBirth: r.timePtr("dateOfBirth"),
			BloodType:   r.strPtr("bloodType"),
			Allergies:   r.strings("allergies"),
			CreatedAt:   r.time(domain.FieldCreatedAt, true),
			UpdatedAt:   r.time(domain.FieldUpdatedAt, true),
		}
	},
}

// CareRecipientConfig returns the engine configuration for care recipients.
func CareRecipientConfig(store driven.IncrementalLocalStore[CareRecipientRow]) services.EngineConfig[CareRecipientRow, domain.CareRecipient] {
	return topLevelConfig(domain.EntityCareRecipient, store, CareRecipientSchema(), careRecipientMapper)
}
