package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/ports/driving"
)

// Ensure ScopedEngine implements the interface.
var _ driving.EntitySyncer = (*ScopedEngine[struct{}, struct{}])(nil)

// ScopedConfig holds the parent-aware collaborators of a ScopedEngine.
type ScopedConfig[R any] struct {
	// RemotePath builds the child collection path under one parent document.
	RemotePath func(scopeID, parentRemoteID string) string

	// GetAllForParent lists the local rows owned by one parent row.
	GetAllForParent func(ctx context.Context, parentLocalID int64) ([]R, error)

	// BindParent sets the parent reference on a row created or overwritten
	// by the pull pass.
	BindParent func(row R, parentLocalID int64) R
}

// ScopedEngine synchronises an entity whose remote collection lives under a
// parent document, such as the logs of one medication. It only syncs through
// SyncForScope.
type ScopedEngine[R, M any] struct {
	engine *Engine[R, M]
	scoped ScopedConfig[R]
}

// NewScopedEngine creates a parent-scoped engine. The RemotePath and GetAll
// fields of cfg are ignored.
func NewScopedEngine[R, M any](
	cfg EngineConfig[R, M],
	scoped ScopedConfig[R],
	remote driven.RemoteStore,
	identity driven.IdentityMapStore,
	opts ...EngineOption,
) (*ScopedEngine[R, M], error) {
	if err := cfg.validate(false); err != nil {
		return nil, err
	}
	switch {
	case scoped.RemotePath == nil:
		return nil, fmt.Errorf("%w: %s: scoped RemotePath is required", domain.ErrInvalidConfig, cfg.EntityType)
	case scoped.GetAllForParent == nil:
		return nil, fmt.Errorf("%w: %s: GetAllForParent is required", domain.ErrInvalidConfig, cfg.EntityType)
	case scoped.BindParent == nil:
		return nil, fmt.Errorf("%w: %s: BindParent is required", domain.ErrInvalidConfig, cfg.EntityType)
	}

	engine, err := newEngine(cfg, remote, identity, opts)
	if err != nil {
		return nil, err
	}
	return &ScopedEngine[R, M]{engine: engine, scoped: scoped}, nil
}

// EntityType returns the entity type this engine handles.
func (s *ScopedEngine[R, M]) EntityType() string {
	return s.engine.cfg.EntityType
}

// Sync always fails: a scoped engine has no single collection to sync.
// Use SyncForScope once per parent.
func (s *ScopedEngine[R, M]) Sync(ctx context.Context, _ string, _ *time.Time) (domain.SyncResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return domain.Failure{
		Err: domain.NewDomainError(domain.KindValidation, "sync "+s.EntityType(), domain.ErrScopeRequired),
	}, nil
}

// SyncForScope runs push and pull for the children of one parent. The push
// pass only considers rows owned by parentLocalID, and every row the pull
// pass writes is bound to it.
func (s *ScopedEngine[R, M]) SyncForScope(
	ctx context.Context,
	scopeID string,
	parentLocalID int64,
	parentRemoteID string,
	lastSync *time.Time,
) (domain.SyncResult, error) {
	return s.engine.run(ctx, pass[R]{
		path: func() string { return s.scoped.RemotePath(scopeID, parentRemoteID) },
		candidates: func(ctx context.Context, _ *time.Time) ([]R, error) {
			return s.scoped.GetAllForParent(ctx, parentLocalID)
		},
		bind: func(row R) R { return s.scoped.BindParent(row, parentLocalID) },
	}, lastSync)
}
