package domain

import "time"

// Entity types. These double as identity map keys and remote collection names.
const (
	EntityCareRecipient   = "care_recipients"
	EntityHealthRecord    = "health_records"
	EntityMedication      = "medications"
	EntityMedicationLog   = "medication_logs"
	EntityTask            = "tasks"
	EntityCalendarEvent   = "calendar_events"
	EntityNote            = "notes"
	EntityContact         = "contacts"
	EntityInsurancePolicy = "insurance_policies"
)

// EntityTypes lists every synchronised entity type in dependency order:
// parents come before the entities scoped under them.
func EntityTypes() []string {
	return []string{
		EntityCareRecipient,
		EntityHealthRecord,
		EntityMedication,
		EntityMedicationLog,
		EntityTask,
		EntityCalendarEvent,
		EntityNote,
		EntityContact,
		EntityInsurancePolicy,
	}
}

// CareRecipient is the person being cared for.
type CareRecipient struct {
	ID          int64
	Name        string `validate:"required"`
	DateOfBirth *time.Time
	BloodType   *string
	Allergies   []string
	CreatedAt   time.Time `validate:"required"`
	UpdatedAt   time.Time `validate:"required"`
}

// RecordKind categorises a health record.
type RecordKind string

const (
	RecordKindVitals  RecordKind = "vitals"
	RecordKindSymptom RecordKind = "symptom"
	RecordKindLab     RecordKind = "lab"
	RecordKindVisit   RecordKind = "visit"
	RecordKindGeneral RecordKind = "general"
)

// Vitals are optional readings attached to a health record. Each reading
// is independently present or absent.
type Vitals struct {
	SystolicBP       *int     `validate:"omitempty,gt=0,lt=400"`
	DiastolicBP      *int     `validate:"omitempty,gt=0,lt=400"`
	HeartRate        *int     `validate:"omitempty,gt=0,lt=400"`
	TemperatureC     *float64 `validate:"omitempty,gt=20,lt=50"`
	OxygenSaturation *int     `validate:"omitempty,gte=0,lte=100"`
	WeightKg         *float64 `validate:"omitempty,gt=0"`
	BloodGlucose     *float64 `validate:"omitempty,gt=0"`
}

// HealthRecord is a dated observation about the care recipient.
type HealthRecord struct {
	ID         int64
	Kind       RecordKind `validate:"required,oneof=vitals symptom lab visit general"`
	Title      string     `validate:"required"`
	Details    string
	RecordedAt time.Time `validate:"required"`
	Vitals     Vitals
	CreatedAt  time.Time `validate:"required"`
	UpdatedAt  time.Time `validate:"required"`
}

// Medication is a prescribed or over-the-counter medicine.
type Medication struct {
	ID           int64
	Name         string `validate:"required"`
	Dosage       string
	Frequency    string
	Instructions string
	StartDate    *time.Time
	EndDate      *time.Time
	Active       bool
	CreatedAt    time.Time `validate:"required"`
	UpdatedAt    time.Time `validate:"required"`
}

// MedicationLog records one administration (or skip) of a medication.
// It lives under its medication in the remote store.
type MedicationLog struct {
	ID           int64
	MedicationID int64
	TakenAt      time.Time `validate:"required"`
	Skipped      bool
	DoseAmount   *float64
	Notes        string
	CreatedAt    time.Time `validate:"required"`
	UpdatedAt    time.Time `validate:"required"`
}

// TaskPriority orders tasks.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Task is a caregiving to-do item.
type Task struct {
	ID          int64
	Title       string `validate:"required"`
	Description string
	DueAt       *time.Time
	Priority    TaskPriority `validate:"required,oneof=low medium high"`
	Completed   bool
	CompletedAt *time.Time
	CreatedAt   time.Time `validate:"required"`
	UpdatedAt   time.Time `validate:"required"`
}

// CalendarEvent is an appointment or other dated event.
type CalendarEvent struct {
	ID           int64
	Title        string    `validate:"required"`
	StartsAt     time.Time `validate:"required"`
	EndsAt       *time.Time
	Location     string
	AllDay       bool
	ReminderMins *int
	CreatedAt    time.Time `validate:"required"`
	UpdatedAt    time.Time `validate:"required"`
}

// Note is free-form text.
type Note struct {
	ID        int64
	Title     string `validate:"required"`
	Body      string
	Pinned    bool
	Tags      []string
	CreatedAt time.Time `validate:"required"`
	UpdatedAt time.Time `validate:"required"`
}

// Contact is a doctor, pharmacy, relative or other contact.
type Contact struct {
	ID        int64
	Name      string `validate:"required"`
	Role      string
	Phone     *string
	Email     *string `validate:"omitempty,email"`
	Address   *string
	Emergency bool
	CreatedAt time.Time `validate:"required"`
	UpdatedAt time.Time `validate:"required"`
}

// InsurancePolicy describes a coverage plan.
type InsurancePolicy struct {
	ID           int64
	Provider     string `validate:"required"`
	PolicyNumber string `validate:"required"`
	GroupNumber  *string
	Holder       string
	ValidUntil   *time.Time
	CreatedAt    time.Time `validate:"required"`
	UpdatedAt    time.Time `validate:"required"`
}
