package entities

import (
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/services"
)

// MedicationRow is the local storage form of a medication.
type MedicationRow struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Dosage          string `json:"dosage,omitempty"`
	Frequency       string `json:"frequency,omitempty"`
	Instructions    string `json:"instructions,omitempty"`
	StartDateMillis *int64 `json:"start_date,omitempty"`
	EndDateMillis   *int64 `json:"end_date,omitempty"`
	Active          bool   `json:"active"`
	CreatedAtMillis int64  `json:"created_at"`
	UpdatedAtMillis int64  `json:"updated_at"`
}

// MedicationSchema describes MedicationRow to the stores.
func MedicationSchema() driven.RowSchema[MedicationRow] {
	return rowSchema(
		func(r MedicationRow) int64 { return r.ID },
		func(r MedicationRow, id int64) MedicationRow { r.ID = id; return r },
		func(r MedicationRow) int64 { return r.UpdatedAtMillis },
	)
}

var medicationMapper = mapper[MedicationRow, domain.Medication]{
	toDomain: func(r MedicationRow) domain.Medication {
		return domain.Medication{
			ID:           r.ID,
			Name:         r.Name,
			Dosage:       r.Dosage,
			Frequency:    r.Frequency,
			Instructions: r.Instructions,
			StartDate:    fromOptMillis(r.StartDateMillis),
			EndDate:      fromOptMillis(r.EndDateMillis),
			Active:       r.Active,
			CreatedAt:    fromMillis(r.CreatedAtMillis),
			UpdatedAt:    fromMillis(r.UpdatedAtMillis),
		}
	},
	toRow: func(localID int64, m domain.Medication) MedicationRow {
		return MedicationRow{
			ID:              localID,
			Name:            m.Name,
			Dosage:          m.Dosage,
			Frequency:       m.Frequency,
			Instructions:    m.Instructions,
			StartDateMillis: toOptMillis(m.StartDate),
			EndDateMillis:   toOptMillis(m.EndDate),
			Active:          m.Active,
			CreatedAtMillis: toMillis(m.CreatedAt),
			UpdatedAtMillis: toMillis(m.UpdatedAt),
		}
	},
	toRemote: func(m domain.Medication) map[string]any {
		return map[string]any{
			"name":                m.Name,
			"dosage":              m.Dosage,
			"frequency":           m.Frequency,
			"instructions":        m.Instructions,
			"startDate":           optTime(m.StartDate),
			"endDate":             optTime(m.EndDate),
			"active":              m.Active,
			domain.FieldCreatedAt: domain.FormatTime(m.CreatedAt),
			domain.FieldUpdatedAt: domain.FormatTime(m.UpdatedAt),
		}
	},
	fromRemote: func(r *fieldReader) domain.Medication {
		return domain.Medication{
			Name:         r.str("name", true),
			Dosage:       r.str("dosage", false),
			Frequency:    r.str("frequency", false),
			Instructions: r.str("instructions", false),
			StartDate:    r.timePtr("startDate"),
			EndDate:      r.timePtr("endDate"),
			Active:       r.boolean("active"),
			CreatedAt:    r.time(domain.FieldCreatedAt, true),
			UpdatedAt:    r.time(domain.FieldUpdatedAt, true),
		}
	},
}

// MedicationConfig returns the engine configuration for medications.
func MedicationConfig(store driven.IncrementalLocalStore[MedicationRow]) services.EngineConfig[MedicationRow, domain.Medication] {
	return topLevelConfig(domain.EntityMedication, store, MedicationSchema(), medicationMapper)
}
