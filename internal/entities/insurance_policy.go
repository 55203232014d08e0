package entities

import (
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/services"
)

// InsurancePolicyRow is the local storage form of an insurance policy.
type InsurancePolicyRow struct {
	ID               int64   `json:"id"`
	Provider         string  `json:"provider"`
	PolicyNumber     string  `json:"policy_number"`
	GroupNumber      *string `json:"group_number,omitempty"`
	Holder           string  `json:"holder,omitempty"`
	ValidUntilMillis *int64  `json:"valid_until,omitempty"`
	CreatedAtMillis  int64   `json:"created_at"`
	UpdatedAtMillis  int64   `json:"updated_at"`
}

// InsurancePolicySchema describes InsurancePolicyRow to the stores.
func InsurancePolicySchema() driven.RowSchema[InsurancePolicyRow] {
	return rowSchema(
		func(r InsurancePolicyRow) int64 { return r.ID },
		func(r InsurancePolicyRow, id int64) InsurancePolicyRow { r.ID = id; return r },
		func(r InsurancePolicyRow) int64 { return r.UpdatedAtMillis },
	)
}

var insurancePolicyMapper = mapper[InsurancePolicyRow, domain.InsurancePolicy]{
	toDomain: func(r InsurancePolicyRow) domain.InsurancePolicy {
		return domain.InsurancePolicy{
			ID:           r.ID,
			Provider:     r.Provider,
			PolicyNumber: r.PolicyNumber,
			GroupNumber:  r.GroupNumber,
			Holder:       r.Holder,
			ValidUntil:   fromOptMillis(r.ValidUntilMillis),
			CreatedAt:    fromMillis(r.CreatedAtMillis),
			UpdatedAt:    fromMillis(r.UpdatedAtMillis),
		}
	},
	toRow: func(localID int64, m domain.InsurancePolicy) InsurancePolicyRow {
		return InsurancePolicyRow{
			ID:               localID,
			Provider:         m.Provider,
			PolicyNumber:     m.PolicyNumber,
			GroupNumber:      m.GroupNumber,
			Holder:           m.Holder,
			ValidUntilMillis: toOptMillis(m.ValidUntil),
			CreatedAtMillis:  toMillis(m.CreatedAt),
			UpdatedAtMillis:  toMillis(m.UpdatedAt),
		}
	},
	toRemote: func(m domain.InsurancePolicy) map[string]any {
		return map[string]any{
			"provider":            m.Provider,
			"policyNumber":        m.PolicyNumber,
			"groupNumber":         optString(m.GroupNumber),
			"holder":              m.Holder,
			"validUntil":          optTime(m.ValidUntil),
			domain.FieldCreatedAt: domain.FormatTime(m.CreatedAt),
			domain.FieldUpdatedAt: domain.FormatTime(m.UpdatedAt),
		}
	},
	fromRemote: func(r *fieldReader) domain.InsurancePolicy {
		return domain.InsurancePolicy{
			Provider:     r.str("provider", true),
			PolicyNumber: r.str("policyNumber", true),
			GroupNumber:  r.strPtr("groupNumber"),
			Holder:       r.str("holder", false),
			ValidUntil:   r.timePtr("validUntil"),
			CreatedAt:    r.time(domain.FieldCreatedAt, true),
			UpdatedAt:    r.time(domain.FieldUpdatedAt, true),
		}
	},
}

// InsurancePolicyConfig returns the engine configuration for insurance policies.
func InsurancePolicyConfig(store driven.IncrementalLocalStore[InsurancePolicyRow]) services.EngineConfig[InsurancePolicyRow, domain.InsurancePolicy] {
	return topLevelConfig(domain.EntityInsurancePolicy, store, InsurancePolicySchema(), insurancePolicyMapper)
}
