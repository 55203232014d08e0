// Package memory provides an in-memory hierarchical document store used by
// tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
)

// Ensure RemoteStore implements the interface.
var _ driven.RemoteStore = (*RemoteStore)(nil)

// RemoteStore is an in-memory implementation of driven.RemoteStore.
// Documents are deep-copied on the way in and out.
type RemoteStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any

	upsertErrs map[string]error
	queryErrs  map[string]error
	upserts    int
}

// NewRemoteStore creates an empty store.
func NewRemoteStore() *RemoteStore {
	return &RemoteStore{
		collections: make(map[string]map[string]map[string]any),
		upsertErrs:  make(map[string]error),
		queryErrs:   make(map[string]error),
	}
}

// UpsertMerge creates the document or deep-merges fields into it.
func (s *RemoteStore) UpsertMerge(ctx context.Context, path, docID string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.upsertErrs[docID]; ok {
		return err
	}

	coll, ok := s.collections[path]
	if !ok {
		coll = make(map[string]map[string]any)
		s.collections[path] = coll
	}
	doc, ok := coll[docID]
	if !ok {
		doc = make(map[string]any)
		coll[docID] = doc
	}
	domain.MergeFields(doc, fields)
	s.upserts++
	return nil
}

// QueryActiveSince returns untombstoned documents in path, ordered by id.
// With since set, only documents whose updatedAt is after it are returned;
// documents with an unreadable updatedAt are always returned.
func (s *RemoteStore) QueryActiveSince(ctx context.Context, path string, since *time.Time) ([]domain.RemoteDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err, ok := s.queryErrs[path]; ok {
		return nil, err
	}

	docs := make([]domain.RemoteDocument, 0)
	for id, fields := range s.collections[path] {
		if !domain.IsActive(fields) {
			continue
		}
		if since != nil {
			if updatedAt, err := domain.ParseTime(fields[domain.FieldUpdatedAt]); err == nil && !updatedAt.After(*since) {
				continue
			}
		}
		docs = append(docs, domain.RemoteDocument{ID: id, Fields: domain.CopyFields(fields)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Put replaces a document outright.
func (s *RemoteStore) Put(path, docID string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[path]
	if !ok {
		coll = make(map[string]map[string]any)
		s.collections[path] = coll
	}
	coll[docID] = domain.CopyFields(fields)
}

// Get returns a copy of a document, or nil.
func (s *RemoteStore) Get(path, docID string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[path][docID]
	if !ok {
		return nil
	}
	return domain.CopyFields(doc)
}

// Count returns the number of documents in path, tombstones included.
func (s *RemoteStore) Count(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[path])
}

// Upserts returns how many UpsertMerge calls succeeded.
func (s *RemoteStore) Upserts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upserts
}

// FailUpsert makes every UpsertMerge of docID return err. A nil err clears it.
func (s *RemoteStore) FailUpsert(docID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.upsertErrs, docID)
		return
	}
	s.upsertErrs[docID] = err
}

// FailQuery makes every QueryActiveSince of path return err. A nil err clears it.
func (s *RemoteStore) FailQuery(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.queryErrs, path)
		return
	}
	s.queryErrs[path] = err
}
