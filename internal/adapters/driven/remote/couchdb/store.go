package couchdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb" // CouchDB driver

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RemoteStore = (*Store)(nil)

const (
	// pathField records the collection path on every stored document so a
	// collection can be queried with a Mango selector.
	pathField = "syncPath"

	pageSize        = 200
	conflictRetries = 3
	indexDesign     = "caresync"
	indexName       = "by-sync-path"
)

// Store maps the hierarchical remote document model onto a single CouchDB
// database. A document at collection path p with id d is stored under the
// CouchDB id "p/d".
type Store struct {
	client  *kivik.Client
	db      *kivik.DB
	timeout time.Duration
}

// NewStore connects to CouchDB and opens cfg.Database, creating it and the
// path index when missing.
func NewStore(ctx context.Context, cfg domain.RemoteConfig) (*Store, error) {
	if cfg.URL == "" || cfg.Database == "" {
		return nil, fmt.Errorf("%w: remote url and database are required", domain.ErrInvalidInput)
	}

	client, err := kivik.New("couch", cfg.URL)
	if err != nil {
		return nil, remoteErr("connect", cfg.URL, err)
	}

	exists, err := client.DBExists(ctx, cfg.Database)
	if err != nil {
		_ = client.Close()
		return nil, remoteErr("check database", cfg.Database, err)
	}
	if !exists {
		if err := client.CreateDB(ctx, cfg.Database); err != nil && kivik.HTTPStatus(err) != http.StatusPreconditionFailed {
			_ = client.Close()
			return nil, remoteErr("create database", cfg.Database, err)
		}
	}

	db := client.DB(cfg.Database)
	if err := db.Err(); err != nil {
		_ = client.Close()
		return nil, remoteErr("open database", cfg.Database, err)
	}

	index := map[string]any{"fields": []string{pathField}}
	if err := db.CreateIndex(ctx, indexDesign, indexName, index); err != nil {
		_ = client.Close()
		return nil, remoteErr("create index", cfg.Database, err)
	}

	return &Store{client: client, db: db, timeout: cfg.Timeout}, nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// UpsertMerge reads the current revision, merges fields into it and writes
// it back. A concurrent writer causes a conflict, which is retried against
// the new revision.
func (s *Store) UpsertMerge(ctx context.Context, path, docID string, fields map[string]any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id := DocumentID(path, docID)
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = s.upsertOnce(ctx, path, id, fields)
		if kivik.HTTPStatus(err) != http.StatusConflict {
			break
		}
	}
	if err != nil {
		return remoteErr("upsert", id, err)
	}
	return nil
}

func (s *Store) upsertOnce(ctx context.Context, path, id string, fields map[string]any) error {
	doc := make(map[string]any)
	if err := s.db.Get(ctx, id).ScanDoc(&doc); err != nil && kivik.HTTPStatus(err) != http.StatusNotFound {
		return err
	}

	domain.MergeFields(doc, fields)
	doc[pathField] = path
	_, err := s.db.Put(ctx, id, doc)
	return err
}

// QueryActiveSince pages through the untombstoned documents in path and
// keeps those updated after since. Documents with an unreadable updatedAt
// are kept.
func (s *Store) QueryActiveSince(ctx context.Context, path string, since *time.Time) ([]domain.RemoteDocument, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	docs := make([]domain.RemoteDocument, 0)
	bookmark := ""
	for {
		page, next, err := s.findPage(ctx, path, bookmark)
		if err != nil {
			return nil, remoteErr("query", path, err)
		}
		for _, raw := range page {
			doc, ok := toRemoteDocument(path, raw)
			if !ok || !domain.IsActive(doc.Fields) || !updatedAfter(doc.Fields, since) {
				continue
			}
			docs = append(docs, doc)
		}
		if len(page) < pageSize || next == "" || next == bookmark {
			break
		}
		bookmark = next
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// findQuery builds the Mango query for one page of path. Tombstoned
// documents are filtered by the server; a missing deletedAt counts as live.
func findQuery(path, bookmark string) map[string]any {
	deletedAt := domain.FieldSyncMetadata + "." + domain.FieldDeletedAt
	query := map[string]any{
		"selector": map[string]any{
			pathField: path,
			"$or": []any{
				map[string]any{deletedAt: nil},
				map[string]any{deletedAt: map[string]any{"$exists": false}},
			},
		},
		"limit": pageSize,
	}
	if bookmark != "" {
		query["bookmark"] = bookmark
	}
	return query
}

func (s *Store) findPage(ctx context.Context, path, bookmark string) ([]map[string]any, string, error) {
	rows := s.db.Find(ctx, findQuery(path, bookmark))
	defer rows.Close()

	var page []map[string]any
	for rows.Next() {
		var doc map[string]any
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, "", err
		}
		page = append(page, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	meta, err := rows.Metadata()
	if err != nil {
		return nil, "", err
	}
	return page, meta.Bookmark, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// DocumentID is the CouchDB id of docID in collection path.
func DocumentID(path, docID string) string {
	return path + "/" + docID
}

// toRemoteDocument strips CouchDB bookkeeping from a stored document. It
// reports false for documents that do not belong to path.
func toRemoteDocument(path string, raw map[string]any) (domain.RemoteDocument, bool) {
	id, _ := raw["_id"].(string)
	docID, ok := strings.CutPrefix(id, path+"/")
	if !ok || docID == "" || strings.Contains(docID, "/") {
		return domain.RemoteDocument{}, false
	}

	fields := domain.CopyFields(raw)
	delete(fields, "_id")
	delete(fields, "_rev")
	delete(fields, pathField)
	return domain.RemoteDocument{ID: docID, Fields: fields}, true
}

func updatedAfter(fields map[string]any, since *time.Time) bool {
	if since == nil {
		return true
	}
	updatedAt, err := domain.ParseTime(fields[domain.FieldUpdatedAt])
	if err != nil {
		return true
	}
	return updatedAt.After(*since)
}

// remoteErr wraps a backend failure. Cancellation passes through unwrapped
// so callers can tell it apart from a remote failure.
func remoteErr(op, path string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &domain.RemoteError{Op: op, Path: path, Status: kivik.HTTPStatus(err), Err: err}
}
