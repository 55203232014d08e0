package entities

import (
	"fmt"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/ports/driving"
	"github.com/custodia-labs/caresync/internal/core/services"
)

// Stores holds the local store of every entity type.
type Stores struct {
	CareRecipients    driven.IncrementalLocalStore[CareRecipientRow]
	HealthRecords     driven.IncrementalLocalStore[HealthRecordRow]
	Medications       driven.IncrementalLocalStore[MedicationRow]
	MedicationLogs    driven.ChildStore[MedicationLogRow]
	Tasks             driven.IncrementalLocalStore[TaskRow]
	CalendarEvents    driven.IncrementalLocalStore[CalendarEventRow]
	Notes             driven.IncrementalLocalStore[NoteRow]
	Contacts          driven.IncrementalLocalStore[ContactRow]
	InsurancePolicies driven.IncrementalLocalStore[InsurancePolicyRow]
}

// Registry holds one syncer per entity type in dependency order.
type Registry struct {
	order          []string
	syncers        map[string]driving.EntitySyncer
	medicationLogs *services.ScopedEngine[MedicationLogRow, domain.MedicationLog]
}

// NewRegistry builds an engine for every entity type. Medication logs are
// synced through a fan-out over every synced medication.
func NewRegistry(
	stores Stores,
	remote driven.RemoteStore,
	identity driven.IdentityMapStore,
	opts ...services.EngineOption,
) (*Registry, error) {
	r := &Registry{syncers: make(map[string]driving.EntitySyncer)}

	careRecipients, err := services.NewEngine(CareRecipientConfig(stores.CareRecipients), remote, identity, opts...)
	if err != nil {
		return nil, fmt.Errorf("build %s engine: %w", domain.EntityCareRecipient, err)
	}
	healthRecords, err := services.NewEngine(HealthRecordConfig(stores.HealthRecords), remote, identity, opts...)
	if err != nil {
		return nil, fmt.Errorf("build %s engine: %w", domain.EntityHealthRecord, err)
	}
	medications, err := services.NewEngine(MedicationConfig(stores.Medications), remote, identity, opts...)
	if err != nil {
		return nil, fmt.Errorf("build %s engine: %w", domain.EntityMedication, err)
	}
	logCfg, logScope := MedicationLogConfig(stores.MedicationLogs)
	medicationLogs, err := services.NewScopedEngine(logCfg, logScope, remote, identity, opts...)
	if err != nil {
		return nil, fmt.Errorf("build %s engine: %w", domain.EntityMedicationLog, err)
	}
	tasks, err := services.NewEngine(TaskConfig(stores.Tasks), remote, identity, opts...)
	if err != nil {
		return nil, fmt.Errorf("build %s engine: %w", domain.EntityTask, err)
	}
	calendarEvents, err := services.NewEngine(CalendarEventConfig(stores.CalendarEvents), remote, identity, opts...)
	if err != nil {
		return nil, fmt.Errorf("build %s engine: %w", domain.EntityCalendarEvent, err)
	}
	notes, err := services.NewEngine(NoteConfig(stores.Notes), remote, identity, opts...)
	if err != nil {
		return nil, fmt.Errorf("build %s engine: %w", domain.EntityNote, err)
	}
	contacts, err := services.NewEngine(ContactConfig(stores.Contacts), remote, identity, opts...)
	if err != nil {
		return nil, fmt.Errorf("build %s engine: %w", domain.EntityContact, err)
	}
	policies, err := services.NewEngine(InsurancePolicyConfig(stores.InsurancePolicies), remote, identity, opts...)
	if err != nil {
		return nil, fmt.Errorf("build %s engine: %w", domain.EntityInsurancePolicy, err)
	}

	r.medicationLogs = medicationLogs
	for _, syncer := range []driving.EntitySyncer{
		careRecipients,
		healthRecords,
		medications,
		services.NewParentFanout(medicationLogs, identity, domain.EntityMedication),
		tasks,
		calendarEvents,
		notes,
		contacts,
		policies,
	} {
		r.order = append(r.order, syncer.EntityType())
		r.syncers[syncer.EntityType()] = syncer
	}
	return r, nil
}

// Syncers returns every syncer in dependency order.
func (r *Registry) Syncers() []driving.EntitySyncer {
	out := make([]driving.EntitySyncer, 0, len(r.order))
	for _, entityType := range r.order {
		out = append(out, r.syncers[entityType])
	}
	return out
}

// Get returns the syncer for an entity type.
func (r *Registry) Get(entityType string) (driving.EntitySyncer, error) {
	syncer, ok := r.syncers[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, entityType)
	}
	return syncer, nil
}

// MedicationLogs returns the scoped engine for the logs of a single
// medication.
func (r *Registry) MedicationLogs() *services.ScopedEngine[MedicationLogRow, domain.MedicationLog] {
	return r.medicationLogs
}

// EntityTypes returns the registered entity types in dependency order.
func (r *Registry) EntityTypes() []string {
	return append([]string(nil), r.order...)
}
