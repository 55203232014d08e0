package driven

import (
	"context"
	"time"
)

// LocalStore is CRUD over the embedded relational store for one entity type.
// R is the entity's local row type.
type LocalStore[R any] interface {
	// GetAll returns every row.
	GetAll(ctx context.Context) ([]R, error)

	// GetByID returns a row, or nil and no error if it does not exist.
	GetByID(ctx context.Context, id int64) (*R, error)

	// Save inserts the row when its id is 0 and overwrites it otherwise.
	// Returns the row id.
	Save(ctx context.Context, row R) (int64, error)

	// Delete removes a row.
	Delete(ctx context.Context, id int64) error
}

// IncrementalLocalStore is a LocalStore that can list rows changed since a
// point in time.
type IncrementalLocalStore[R any] interface {
	LocalStore[R]

	// GetModifiedSince returns rows whose update timestamp is after since.
	GetModifiedSince(ctx context.Context, since time.Time) ([]R, error)
}

// ChildStore is a LocalStore whose rows belong to a parent row.
type ChildStore[R any] interface {
	LocalStore[R]

	// GetAllForParent returns the rows owned by one parent.
	GetAllForParent(ctx context.Context, parentID int64) ([]R, error)
}

// RowSchema tells a generic store how to read and write the bookkeeping
// fields of a row type.
type RowSchema[R any] struct {
	// ID returns the row id. Zero means the row has not been stored yet.
	ID func(row R) int64

	// WithID returns a copy of row carrying id.
	WithID func(row R, id int64) R

	// UpdatedAt returns the row's last update time.
	UpdatedAt func(row R) time.Time

	// ParentID returns the owning parent row id. Nil for top-level entities.
	ParentID func(row R) int64
}
