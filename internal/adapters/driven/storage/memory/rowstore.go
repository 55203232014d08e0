package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/caresync/internal/core/ports/driven"
)

// Ensure RowStore implements the interfaces.
var (
	_ driven.IncrementalLocalStore[struct{}] = (*RowStore[struct{}])(nil)
	_ driven.ChildStore[struct{}]            = (*RowStore[struct{}])(nil)
)

// RowStore is an in-memory implementation of the local store ports for any
// row type.
type RowStore[R any] struct {
	mu     sync.RWMutex
	schema driven.RowSchema[R]
	nextID int64
	rows   map[int64]R
}

// NewRowStore creates a new in-memory row store.
func NewRowStore[R any](schema driven.RowSchema[R]) *RowStore[R] {
	return &RowStore[R]{
		schema: schema,
		rows:   make(map[int64]R),
	}
}

// GetAll returns every row ordered by id.
func (s *RowStore[R]) GetAll(_ context.Context) ([]R, error) {
	return s.filter(func(R) bool { return true }), nil
}

// GetByID returns a row, or nil if it does not exist.
func (s *RowStore[R]) GetByID(_ context.Context, id int64) (*R, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

// Save inserts a row with id 0 under a fresh id, or overwrites the row.
func (s *RowStore[R]) Save(_ context.Context, row R) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.schema.ID(row)
	if id == 0 {
		s.nextID++
		id = s.nextID
		row = s.schema.WithID(row, id)
	} else if id > s.nextID {
		s.nextID = id
	}
	s.rows[id] = row
	return id, nil
}

// Delete removes a row.
func (s *RowStore[R]) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

// GetModifiedSince returns rows updated after since.
func (s *RowStore[R]) GetModifiedSince(_ context.Context, since time.Time) ([]R, error) {
	return s.filter(func(row R) bool { return s.schema.UpdatedAt(row).After(since) }), nil
}

// GetAllForParent returns the rows owned by a parent. A store without a
// parent accessor owns no child rows.
func (s *RowStore[R]) GetAllForParent(_ context.Context, parentID int64) ([]R, error) {
	if s.schema.ParentID == nil {
		return []R{}, nil
	}
	return s.filter(func(row R) bool { return s.schema.ParentID(row) == parentID }), nil
}

// Len returns the number of stored rows.
func (s *RowStore[R]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *RowStore[R]) filter(keep func(R) bool) []R {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]R, 0, len(s.rows))
	for _, row := range s.rows {
		if keep(row) {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return s.schema.ID(result[i]) < s.schema.ID(result[j])
	})
	return result
}
