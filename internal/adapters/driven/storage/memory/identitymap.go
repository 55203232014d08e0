package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
)

// Ensure IdentityMapStore implements the interface.
var _ driven.IdentityMapStore = (*IdentityMapStore)(nil)

type localKey struct {
	entityType string
	localID    int64
}

type remoteKey struct {
	entityType string
	remoteID   string
}

// IdentityMapStore is an in-memory implementation of driven.IdentityMapStore.
// It enforces the same uniqueness constraints as the sqlite store.
type IdentityMapStore struct {
	mu       sync.RWMutex
	nextID   int64
	entries  map[int64]domain.IdentityEntry
	byLocal  map[localKey]int64
	byRemote map[remoteKey]int64
}

// NewIdentityMapStore creates a new in-memory identity map.
func NewIdentityMapStore() *IdentityMapStore {
	return &IdentityMapStore{
		entries:  make(map[int64]domain.IdentityEntry),
		byLocal:  make(map[localKey]int64),
		byRemote: make(map[remoteKey]int64),
	}
}

// GetAllByType lists entries for an entity type ordered by local id.
func (s *IdentityMapStore) GetAllByType(_ context.Context, entityType string, includeDeleted bool) ([]domain.IdentityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.IdentityEntry, 0)
	for _, e := range s.entries {
		if e.EntityType != entityType {
			continue
		}
		if e.IsDeleted && !includeDeleted {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].LocalID < result[j].LocalID })
	return result, nil
}

// GetByLocalID returns the entry for a local row, or nil.
func (s *IdentityMapStore) GetByLocalID(_ context.Context, entityType string, localID int64) (*domain.IdentityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byLocal[localKey{entityType, localID}]
	if !ok {
		return nil, nil
	}
	e := s.entries[id]
	return &e, nil
}

// GetByRemoteID returns the entry for a remote document, or nil.
func (s *IdentityMapStore) GetByRemoteID(_ context.Context, entityType, remoteID string) (*domain.IdentityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byRemote[remoteKey{entityType, remoteID}]
	if !ok {
		return nil, nil
	}
	e := s.entries[id]
	return &e, nil
}

// Upsert creates or updates an entry.
func (s *IdentityMapStore) Upsert(_ context.Context, entry domain.IdentityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := entry.ID
	if id == 0 {
		id = s.byLocal[localKey{entry.EntityType, entry.LocalID}]
	} else if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("update identity %d: %w", id, domain.ErrNotFound)
	}

	if other, ok := s.byLocal[localKey{entry.EntityType, entry.LocalID}]; ok && other != id {
		return fmt.Errorf("%w: %s local id %d is already mapped", domain.ErrAlreadyExists, entry.EntityType, entry.LocalID)
	}
	if other, ok := s.byRemote[remoteKey{entry.EntityType, entry.RemoteID}]; ok && other != id {
		return fmt.Errorf("%w: %s remote id %s is already mapped", domain.ErrAlreadyExists, entry.EntityType, entry.RemoteID)
	}

	if id == 0 {
		s.nextID++
		id = s.nextID
	} else {
		old := s.entries[id]
		delete(s.byLocal, localKey{old.EntityType, old.LocalID})
		delete(s.byRemote, remoteKey{old.EntityType, old.RemoteID})
	}

	entry.ID = id
	s.entries[id] = entry
	s.byLocal[localKey{entry.EntityType, entry.LocalID}] = id
	s.byRemote[remoteKey{entry.EntityType, entry.RemoteID}] = id
	return nil
}

// MarkDeleted sets the soft-delete flag on an entry.
func (s *IdentityMapStore) MarkDeleted(_ context.Context, entityType string, localID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byLocal[localKey{entityType, localID}]
	if !ok {
		return domain.ErrNotFound
	}
	e := s.entries[id]
	e.IsDeleted = true
	s.entries[id] = e
	return nil
}
