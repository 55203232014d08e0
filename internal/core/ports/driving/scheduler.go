package driving

import "context"

// Scheduler runs entity syncs in the background.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler, waiting for running syncs.
	Stop() error

	// TriggerNow runs the sync for an entity type immediately, outside its
	// interval. An empty entityType triggers every entity type.
	TriggerNow(ctx context.Context, entityType string) error

	// CancelAll cancels every in-flight sync without stopping the scheduler.
	CancelAll()

	// Status reports every task with its latest result.
	Status(ctx context.Context) ([]TaskStatus, error)
}
