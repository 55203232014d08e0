package entities

import (
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/services"
)

// HealthRecordRow is the local storage form of a health record. Vital
// readings are flattened into nullable columns.
type HealthRecordRow struct {
	ID               int64    `json:"id"`
	Kind             string   `json:"kind"`
	Title            string   `json:"title"`
	Details          string   `json:"details,omitempty"`
	RecordedAtMillis int64    `json:"recorded_at"`
	SystolicBP       *int     `json:"systolic_bp,omitempty"`
	DiastolicBP      *int     `json:"diastolic_bp,omitempty"`
	HeartRate        *int     `json:"heart_rate,omitempty"`
	TemperatureC     *float64 `json:"temperature_c,omitempty"`
	OxygenSaturation *int     `json:"oxygen_saturation,omitempty"`
	WeightKg         *float64 `json:"weight_kg,omitempty"`
	BloodGlucose     *float64 `json:"blood_glucose,omitempty"`
	CreatedAtMillis  int64    `json:"created_at"`
	UpdatedAtMillis  int64    `json:"updated_at"`
}

// HealthRecordSchema describes HealthRecordRow to the stores.
func HealthRecordSchema() driven.RowSchema[HealthRecordRow] {
	return rowSchema(
		func(r HealthRecordRow) int64 { return r.ID },
		func(r HealthRecordRow, id int64) HealthRecordRow { r.ID = id; return r },
		func(r HealthRecordRow) int64 { return r.UpdatedAtMillis },
	)
}

var healthRecordMapper = mapper[HealthRecordRow, domain.HealthRecord]{
	toDomain: func(r HealthRecordRow) domain.HealthRecord {
		return domain.HealthRecord{
			ID:         r.ID,
			Kind:       domain.RecordKind(r.Kind),
			Title:      r.Title,
			Details:    r.Details,
			RecordedAt: fromMillis(r.RecordedAtMillis),
			Vitals: domain.Vitals{
				SystolicBP:       r.SystolicBP,
				DiastolicBP:      r.DiastolicBP,
				HeartRate:        r.HeartRate,
				TemperatureC:     r.TemperatureC,
				OxygenSaturation: r.OxygenSaturation,
				WeightKg:         r.WeightKg,
				BloodGlucose:     r.BloodGlucose,
			},
			CreatedAt: fromMillis(r.CreatedAtMillis),
			UpdatedAt: fromMillis(r.UpdatedAtMillis),
		}
	},
	toRow: func(localID int64, m domain.HealthRecord) HealthRecordRow {
		return HealthRecordRow{
			ID:               localID,
			Kind:             string(m.Kind),
			Title:            m.Title,
			Details:          m.Details,
			RecordedAtMillis: toMillis(m.RecordedAt),
			SystolicBP:       m.Vitals.SystolicBP,
			DiastolicBP:      m.Vitals.DiastolicBP,
			HeartRate:        m.Vitals.HeartRate,
			TemperatureC:     m.Vitals.TemperatureC,
			OxygenSaturation: m.Vitals.OxygenSaturation,
			WeightKg:         m.Vitals.WeightKg,
			BloodGlucose:     m.Vitals.BloodGlucose,
			CreatedAtMillis:  toMillis(m.CreatedAt),
			UpdatedAtMillis:  toMillis(m.UpdatedAt),
		}
	},
	toRemote: func(m domain.HealthRecord) map[string]any {
		return map[string]any{
			"kind":       string(m.Kind),
			"title":      m.Title,
			"details":    m.Details,
			"recordedAt": domain.FormatTime(m.RecordedAt),
			"vitals": map[string]any{
				"systolicBp":       optInt(m.Vitals.SystolicBP),
				"diastolicBp":      optInt(m.Vitals.DiastolicBP),
				"heartRate":        optInt(m.Vitals.HeartRate),
				"temperatureC":     optFloat(m.Vitals.TemperatureC),
				"oxygenSaturation": optInt(m.Vitals.OxygenSaturation),
				"weightKg":         optFloat(m.Vitals.WeightKg),
				"bloodGlucose":     optFloat(m.Vitals.BloodGlucose),
			},
			domain.FieldCreatedAt: domain.FormatTime(m.CreatedAt),
			domain.FieldUpdatedAt: domain.FormatTime(m.UpdatedAt),
		}
	},
	fromRemote: func(r *fieldReader) domain.HealthRecord {
		return domain.HealthRecord{
			Kind:       domain.RecordKind(r.str("kind", true)),
			Title:      r.str("title", true),
			Details:    r.str("details", false),
			RecordedAt: r.time("recordedAt", true),
			Vitals:     readVitals(r),
			CreatedAt:  r.time(domain.FieldCreatedAt, true),
			UpdatedAt:  r.time(domain.FieldUpdatedAt, true),
		}
	},
}

// readVitals reads the optional vitals sub-document. A missing block means
// no readings were taken.
func readVitals(r *fieldReader) domain.Vitals {
	v := r.lookup("vitals", false)
	if v == nil {
		return domain.Vitals{}
	}
	block, ok := v.(map[string]any)
	if !ok {
		r.fail("vitals", "want object, got %T", v)
		return domain.Vitals{}
	}

	vr := newFieldReader(block)
	vitals := domain.Vitals{
		SystolicBP:       vr.intPtr("systolicBp"),
		DiastolicBP:      vr.intPtr("diastolicBp"),
		HeartRate:        vr.intPtr("heartRate"),
		TemperatureC:     vr.floatPtr("temperatureC"),
		OxygenSaturation: vr.intPtr("oxygenSaturation"),
		WeightKg:         vr.floatPtr("weightKg"),
		BloodGlucose:     vr.floatPtr("bloodGlucose"),
	}
	if vr.err != nil && r.err == nil {
		r.err = vr.err
	}
	return vitals
}

// HealthRecordConfig returns the engine configuration for health records.
func HealthRecordConfig(store driven.IncrementalLocalStore[HealthRecordRow]) services.EngineConfig[HealthRecordRow, domain.HealthRecord] {
	return topLevelConfig(domain.EntityHealthRecord, store, HealthRecordSchema(), healthRecordMapper)
}
