// Package app wires the local store, the remote store and the sync engines
// into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/caresync/internal/adapters/driven/metrics"
	"github.com/custodia-labs/caresync/internal/adapters/driven/remote/couchdb"
	"github.com/custodia-labs/caresync/internal/adapters/driven/remote/ratelimit"
	"github.com/custodia-labs/caresync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/services"
	"github.com/custodia-labs/caresync/internal/entities"
)

// App holds every long-lived component of a running caresync instance.
type App struct {
	Config    domain.AppConfig
	Store     *sqlite.Store
	Rows      entities.Stores
	Identity  driven.IdentityMapStore
	Remote    driven.RemoteStore
	Registry  *entities.Registry
	Scheduler *services.Scheduler
	Metrics   *metrics.Collector

	closers []func() error
}

// Open opens the local database, connects to CouchDB and builds the app.
func Open(ctx context.Context, cfg domain.AppConfig) (*App, error) {
	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	remote, err := couchdb.NewStore(ctx, cfg.Remote)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	limited := ratelimit.New(remote, cfg.Remote.RequestsPerSecond, cfg.Remote.Burst)
	a, err := New(cfg, store, limited)
	if err != nil {
		_ = remote.Close()
		_ = store.Close()
		return nil, err
	}
	a.closers = append(a.closers, remote.Close)
	return a, nil
}

// New builds the app on an open local store and any remote store. On
// success the app owns store and closes it.
func New(cfg domain.AppConfig, store *sqlite.Store, remote driven.RemoteStore, opts ...services.EngineOption) (*App, error) {
	rows, err := OpenRows(store)
	if err != nil {
		return nil, err
	}

	collector := metrics.New()
	identity := store.IdentityMapStore()
	opts = append([]services.EngineOption{services.WithObserver(collector)}, opts...)

	registry, err := entities.NewRegistry(rows, remote, identity, opts...)
	if err != nil {
		return nil, err
	}

	scheduler := services.NewScheduler(
		cfg.Scheduler,
		cfg.ScopeID,
		store.SchedulerStore(),
		store.SyncStateStore(),
		registry.Syncers(),
	)

	return &App{
		Config:    cfg,
		Store:     store,
		Rows:      rows,
		Identity:  identity,
		Remote:    remote,
		Registry:  registry,
		Scheduler: scheduler,
		Metrics:   collector,
		closers:   []func() error{store.Close},
	}, nil
}

// OpenRows opens the table of every entity type.
func OpenRows(store *sqlite.Store) (entities.Stores, error) {
	var errs []error
	rows := entities.Stores{
		CareRecipients:    table(store, domain.EntityCareRecipient, entities.CareRecipientSchema(), &errs),
		HealthRecords:     table(store, domain.EntityHealthRecord, entities.HealthRecordSchema(), &errs),
		Medications:       table(store, domain.EntityMedication, entities.MedicationSchema(), &errs),
		MedicationLogs:    table(store, domain.EntityMedicationLog, entities.MedicationLogSchema(), &errs),
		Tasks:             table(store, domain.EntityTask, entities.TaskSchema(), &errs),
		CalendarEvents:    table(store, domain.EntityCalendarEvent, entities.CalendarEventSchema(), &errs),
		Notes:             table(store, domain.EntityNote, entities.NoteSchema(), &errs),
		Contacts:          table(store, domain.EntityContact, entities.ContactSchema(), &errs),
		InsurancePolicies: table(store, domain.EntityInsurancePolicy, entities.InsurancePolicySchema(), &errs),
	}
	if err := errors.Join(errs...); err != nil {
		return entities.Stores{}, fmt.Errorf("opening entity tables: %w", err)
	}
	return rows, nil
}

func table[R any](store *sqlite.Store, name string, schema driven.RowSchema[R], errs *[]error) *sqlite.RowTable[R] {
	t, err := sqlite.NewRowTable(store, name, schema)
	if err != nil {
		*errs = append(*errs, err)
	}
	return t
}

// Close releases the remote client and the local database.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
