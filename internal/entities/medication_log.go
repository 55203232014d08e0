package entities

import (
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/services"
)

// MedicationLogRow is the local storage form of a medication log. The
// parent medication is a local id and is never sent to the remote store;
// the document path carries the relationship instead.
type MedicationLogRow struct {
	ID              int64    `json:"id"`
	MedicationID    int64    `json:"medication_id"`
	TakenAtMillis   int64    `json:"taken_at"`
	Skipped         bool     `json:"skipped"`
	DoseAmount      *float64 `json:"dose_amount,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	CreatedAtMillis int64    `json:"created_at"`
	UpdatedAtMillis int64    `json:"updated_at"`
}

// MedicationLogSchema describes MedicationLogRow to the stores.
func MedicationLogSchema() driven.RowSchema[MedicationLogRow] {
	s := rowSchema(
		func(r MedicationLogRow) int64 { return r.ID },
		func(r MedicationLogRow, id int64) MedicationLogRow { r.ID = id; return r },
		func(r MedicationLogRow) int64 { return r.UpdatedAtMillis },
	)
	s.ParentID = func(r MedicationLogRow) int64 { return r.MedicationID }
	return s
}

var medicationLogMapper = mapper[MedicationLogRow, domain.MedicationLog]{
	toDomain: func(r MedicationLogRow) domain.MedicationLog {
		return domain.MedicationLog{
			ID:           r.ID,
			MedicationID: r.MedicationID,
			TakenAt:      fromMillis(r.TakenAtMillis),
			Skipped:      r.Skipped,
			DoseAmount:   r.DoseAmount,
			Notes:        r.Notes,
			CreatedAt:    fromMillis(r.CreatedAtMillis),
			UpdatedAt:    fromMillis(r.UpdatedAtMillis),
		}
	},
	toRow: func(localID int64, m domain.MedicationLog) MedicationLogRow {
		return MedicationLogRow{
			ID:              localID,
			MedicationID:    m.MedicationID,
			TakenAtMillis:   toMillis(m.TakenAt),
			Skipped:         m.Skipped,
			DoseAmount:      m.DoseAmount,
			Notes:           m.Notes,
			CreatedAtMillis: toMillis(m.CreatedAt),
			UpdatedAtMillis: toMillis(m.UpdatedAt),
		}
	},
	toRemote: func(m domain.MedicationLog) map[string]any {
		return map[string]any{
			"takenAt":             domain.FormatTime(m.TakenAt),
			"skipped":             m.Skipped,
			"doseAmount":          optFloat(m.DoseAmount),
			"notes":               m.Notes,
			domain.FieldCreatedAt: domain.FormatTime(m.CreatedAt),
			domain.FieldUpdatedAt: domain.FormatTime(m.UpdatedAt),
		}
	},
	fromRemote: func(r *fieldReader) domain.MedicationLog {
		return domain.MedicationLog{
			TakenAt:    r.time("takenAt", true),
			Skipped:    r.boolean("skipped"),
			DoseAmount: r.floatPtr("doseAmount"),
			Notes:      r.str("notes", false),
			CreatedAt:  r.time(domain.FieldCreatedAt, true),
			UpdatedAt:  r.time(domain.FieldUpdatedAt, true),
		}
	},
}

// MedicationLogConfig returns the engine and scope configuration for
// medication logs, which sync once per medication.
func MedicationLogConfig(store driven.ChildStore[MedicationLogRow]) (
	services.EngineConfig[MedicationLogRow, domain.MedicationLog],
	services.ScopedConfig[MedicationLogRow],
) {
	cfg := engineConfig[MedicationLogRow, domain.MedicationLog](domain.EntityMedicationLog, store, MedicationLogSchema(), medicationLogMapper)
	scoped := services.ScopedConfig[MedicationLogRow]{
		RemotePath:      MedicationLogPath,
		GetAllForParent: store.GetAllForParent,
		BindParent: func(r MedicationLogRow, medicationID int64) MedicationLogRow {
			r.MedicationID = medicationID
			return r
		},
	}
	return cfg, scoped
}
