package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/caresync/internal/core/domain"
)

// EntitySyncer reconciles one entity type between the local and remote stores.
type EntitySyncer interface {
	// EntityType returns the entity type this syncer handles.
	EntityType() string

	// Sync runs a push pass then a pull pass and merges their results.
	// lastSync is nil on the first sync. The error is non-nil only when
	// ctx was cancelled; every other failure is reported in the result.
	Sync(ctx context.Context, scopeID string, lastSync *time.Time) (domain.SyncResult, error)
}

// TaskStatus is a snapshot of one scheduled sync task.
type TaskStatus struct {
	Task domain.ScheduledTask

	// Running indicates a sync for this task is in flight.
	Running bool

	// LastResult is the most recent run, nil if it never ran.
	LastResult *domain.TaskResult
}
