package driven

import (
	"context"

	"github.com/custodia-labs/caresync/internal/core/domain"
)

// SyncStateStore persists sync progress.
type SyncStateStore interface {
	// Save stores or updates sync state.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves sync state for an entity type within a scope.
	// Returns domain.ErrNotFound if the entity has never synced.
	Get(ctx context.Context, entityType, scopeID string) (*domain.SyncState, error)

	// Delete removes sync state, forcing the next sync to be a full one.
	Delete(ctx context.Context, entityType, scopeID string) error
}
