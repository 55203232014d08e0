package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/ports/driving"
	"github.com/custodia-labs/caresync/internal/logger"
)

// Ensure ParentFanout implements the interface.
var _ driving.EntitySyncer = (*ParentFanout)(nil)

// ScopedSyncer syncs the children of a single parent.
type ScopedSyncer interface {
	EntityType() string
	SyncForScope(ctx context.Context, scopeID string, parentLocalID int64, parentRemoteID string, lastSync *time.Time) (domain.SyncResult, error)
}

// ParentFanout runs a scoped engine once for every synced parent and folds
// the results together. It lets the scheduler treat a scoped entity like any
// other.
type ParentFanout struct {
	syncer     ScopedSyncer
	identity   driven.IdentityMapStore
	parentType string
}

// NewParentFanout creates a fan-out over the mapped rows of parentType.
func NewParentFanout(syncer ScopedSyncer, identity driven.IdentityMapStore, parentType string) *ParentFanout {
	return &ParentFanout{
		syncer:     syncer,
		identity:   identity,
		parentType: parentType,
	}
}

// EntityType returns the child entity type.
func (f *ParentFanout) EntityType() string {
	return f.syncer.EntityType()
}

// Sync runs SyncAllParents for the configured parent type.
func (f *ParentFanout) Sync(ctx context.Context, scopeID string, lastSync *time.Time) (domain.SyncResult, error) {
	return SyncAllParents(ctx, f.syncer, f.identity, f.parentType, scopeID, lastSync)
}

// SyncAllParents runs SyncForScope for every parent of parentType that has
// been synced at least once and folds the results with MergeResults.
// Parents are all attempted even after one fails; a Failure for any parent
// makes the folded result a Failure.
func SyncAllParents(
	ctx context.Context,
	syncer ScopedSyncer,
	identity driven.IdentityMapStore,
	parentType string,
	scopeID string,
	lastSync *time.Time,
) (domain.SyncResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parents, err := identity.GetAllByType(ctx, parentType, false)
	if err != nil {
		if cerr := cancellation(ctx, err); cerr != nil {
			return nil, cerr
		}
		op := fmt.Sprintf("sync %s", syncer.EntityType())
		return domain.Failure{Err: Classify(op, fmt.Errorf("list %s: %w", parentType, err))}, nil
	}

	var result domain.SyncResult = domain.Success{}
	for _, parent := range parents {
		r, err := syncer.SyncForScope(ctx, scopeID, parent.LocalID, parent.RemoteID, lastSync)
		if err != nil {
			return nil, err
		}
		if _, failed := r.(domain.Failure); failed {
			logger.Warn("Sync of %s under %s %s failed", syncer.EntityType(), parentType, parent.RemoteID)
		}
		result = foldParent(result, r)
	}
	return result, nil
}

// foldParent combines per-parent results. The first Failure is kept.
func foldParent(acc, next domain.SyncResult) domain.SyncResult {
	if _, failed := acc.(domain.Failure); failed {
		return acc
	}
	return domain.MergeResults(acc, next)
}
