package entities

import (
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/services"
)

// ContactRow is the local storage form of a contact.
type ContactRow struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Role            string  `json:"role,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Email           *string `json:"email,omitempty"`
	Address         *string `json:"address,omitempty"`
	Emergency       bool    `json:"emergency"`
	CreatedAtMillis int64   `json:"created_at"`
	UpdatedAtMillis int64   `json:"updated_at"`
}

// ContactSchema describes ContactRow to the stores.
func ContactSchema() driven.RowSchema[ContactRow] {
	return rowSchema(
		func(r ContactRow) int64 { return r.ID },
		func(r ContactRow, id int64) ContactRow { r.ID = id; return r },
		func(r ContactRow) int64 { return r.UpdatedAtMillis },
	)
}

var contactMapper = mapper[ContactRow, domain.Contact]{
	toDomain: func(r ContactRow) domain.Contact {
		return domain.Contact{
			ID:        r.ID,
			Name:      r.Name,
			Role:      r.Role,
			Phone:     r.Phone,
			Email:     r.Email,
			Address:   r.Address,
			Emergency: r.Emergency,
			CreatedAt: fromMillis(r.CreatedAtMillis),
			UpdatedAt: fromMillis(r.UpdatedAtMillis),
		}
	},
	toRow: func(localID int64, m domain.Contact) ContactRow {
		return ContactRow{
			ID:              localID,
			Name:            m.Name,
			Role:            m.Role,
			Phone:           m.Phone,
			Email:           m.Email,
			Address:         m.Address,
			Emergency:       m.Emergency,
			CreatedAtMillis: toMillis(m.CreatedAt),
			UpdatedAtMillis: toMillis(m.UpdatedAt),
		}
	},
	toRemote: func(m domain.Contact) map[string]any {
		return map[string]any{
			"name":                m.Name,
			"role":                m.Role,
			"phone":               optString(m.Phone),
			"email":               optString(m.Email),
			"address":             optString(m.Address),
			"emergency":           m.Emergency,
			domain.FieldCreatedAt: domain.FormatTime(m.CreatedAt),
			domain.FieldUpdatedAt: domain.FormatTime(m.UpdatedAt),
		}
	},
	fromRemote: func(r *fieldReader) domain.Contact {
		return domain.Contact{
			Name:      r.str("name", true),
			Role:      r.str("role", false),
			Phone:     r.strPtr("phone"),
			Email:     r.strPtr("email"),
			Address:   r.strPtr("address"),
			Emergency: r.boolean("emergency"),
			CreatedAt: r.time(domain.FieldCreatedAt, true),
			UpdatedAt: r.time(domain.FieldUpdatedAt, true),
		}
	},
}

// ContactConfig returns the engine configuration for contacts.
func ContactConfig(store driven.IncrementalLocalStore[ContactRow]) services.EngineConfig[ContactRow, domain.Contact] {
	return topLevelConfig(domain.EntityContact, store, ContactSchema(), contactMapper)
}
