package driven

import (
	"context"

	"github.com/custodia-labs/caresync/internal/core/domain"
)

// IdentityMapStore persists the association between local rows and remote
// documents.
type IdentityMapStore interface {
	// GetAllByType lists entries for an entity type. Soft-deleted entries
	// are included only when includeDeleted is true.
	GetAllByType(ctx context.Context, entityType string, includeDeleted bool) ([]domain.IdentityEntry, error)

	// GetByLocalID returns the entry for a local row, or nil and no error.
	GetByLocalID(ctx context.Context, entityType string, localID int64) (*domain.IdentityEntry, error)

	// GetByRemoteID returns the entry for a remote document, or nil and no error.
	GetByRemoteID(ctx context.Context, entityType, remoteID string) (*domain.IdentityEntry, error)

	// Upsert creates the entry or updates the existing one with the same
	// (EntityType, LocalID). An entry carrying a non-zero ID updates that
	// row in place, which lets a mapping move to a new local row. It never
	// inserts a duplicate.
	Upsert(ctx context.Context, entry domain.IdentityEntry) error

	// MarkDeleted sets the soft-delete flag on an entry.
	MarkDeleted(ctx context.Context, entityType string, localID int64) error
}
