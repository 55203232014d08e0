package mcp

import (
	"context"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driving"
)

// MappingLister lists the identity map entries of an entity type.
type MappingLister interface {
	GetAllByType(ctx context.Context, entityType string, includeDeleted bool) ([]domain.IdentityEntry, error)
}

// Ports aggregates everything the MCP server reads from or drives.
type Ports struct {
	// ScopeID is reported alongside task status.
	ScopeID string

	// Scheduler runs and reports syncs.
	Scheduler driving.Scheduler

	// Mappings backs the mappings resource. Optional.
	Mappings MappingLister
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Scheduler == nil {
		return ErrMissingScheduler
	}
	return nil
}
