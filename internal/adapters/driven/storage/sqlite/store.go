package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/caresync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
)

// dbFile is the database file name inside the data directory.
const dbFile = "caresync.db"

// Store is a unified SQLite-based storage that provides access to
// all local store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.caresync/data/caresync.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".caresync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// WAL lets the scheduler's workers read while one of them writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SyncStateStore returns a SyncStateStore interface backed by this store.
func (s *Store) SyncStateStore() driven.SyncStateStore {
	return &syncStateStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// IdentityMapStore returns an IdentityMapStore interface backed by this store.
func (s *Store) IdentityMapStore() driven.IdentityMapStore {
	return &identityMapStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// localStoreErr marks err as a local store failure.
func localStoreErr(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrLocalStore, action, err)
}

// ==================== Identity Map Store ====================

// identityMapStore implements driven.IdentityMapStore.
type identityMapStore struct {
	store *Store
}

var _ driven.IdentityMapStore = (*identityMapStore)(nil)

const identityColumns = "id, entity_type, local_id, remote_id, last_synced_at, is_deleted"

// GetAllByType lists entries for an entity type.
func (s *identityMapStore) GetAllByType(ctx context.Context, entityType string, includeDeleted bool) ([]domain.IdentityEntry, error) {
	query := "SELECT " + identityColumns + " FROM identity_map WHERE entity_type = ?"
	if !includeDeleted {
		query += " AND is_deleted = 0"
	}
	query += " ORDER BY id"

	rows, err := s.store.db.QueryContext(ctx, query, entityType)
	if err != nil {
		return nil, localStoreErr("querying identity map", err)
	}
	defer rows.Close()

	var entries []domain.IdentityEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		entry, err := scanIdentityEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, localStoreErr("iterating identity map", err)
	}
	return entries, nil
}

// GetByLocalID returns the entry for a local row, or nil and no error.
func (s *identityMapStore) GetByLocalID(ctx context.Context, entityType string, localID int64) (*domain.IdentityEntry, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+identityColumns+" FROM identity_map WHERE entity_type = ? AND local_id = ?",
		entityType, localID)
	return s.getOne(row)
}

// GetByRemoteID returns the entry for a remote document, or nil and no error.
func (s *identityMapStore) GetByRemoteID(ctx context.Context, entityType, remoteID string) (*domain.IdentityEntry, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+identityColumns+" FROM identity_map WHERE entity_type = ? AND remote_id = ?",
		entityType, remoteID)
	return s.getOne(row)
}

func (s *identityMapStore) getOne(row *sql.Row) (*domain.IdentityEntry, error) {
	entry, err := scanIdentityEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Upsert creates or updates an entry. The unique constraints on
// (entity_type, local_id) and (entity_type, remote_id) reject duplicates.
func (s *identityMapStore) Upsert(ctx context.Context, entry domain.IdentityEntry) error {
	if entry.ID != 0 {
		res, err := s.store.db.ExecContext(ctx, `
			UPDATE identity_map
			SET entity_type = ?, local_id = ?, remote_id = ?, last_synced_at = ?, is_deleted = ?
			WHERE id = ?
		`, entry.EntityType, entry.LocalID, entry.RemoteID,
			formatNullableTime(entry.LastSyncedAt), boolToInt(entry.IsDeleted), entry.ID)
		if err != nil {
			return identityWriteErr(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("update identity %d: %w", entry.ID, domain.ErrNotFound)
		}
		return nil
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO identity_map (entity_type, local_id, remote_id, last_synced_at, is_deleted)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, local_id) DO UPDATE SET
			remote_id = excluded.remote_id,
			last_synced_at = excluded.last_synced_at,
			is_deleted = excluded.is_deleted
	`, entry.EntityType, entry.LocalID, entry.RemoteID,
		formatNullableTime(entry.LastSyncedAt), boolToInt(entry.IsDeleted))
	if err != nil {
		return identityWriteErr(err)
	}
	return nil
}

// MarkDeleted sets the soft-delete flag on an entry.
func (s *identityMapStore) MarkDeleted(ctx context.Context, entityType string, localID int64) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE identity_map SET is_deleted = 1 WHERE entity_type = ? AND local_id = ?",
		entityType, localID)
	if err != nil {
		return localStoreErr("marking identity deleted", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// identityWriteErr reports unique constraint violations as ErrAlreadyExists.
func identityWriteErr(err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err)
	}
	return localStoreErr("saving identity", err)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentityEntry(row rowScanner) (*domain.IdentityEntry, error) {
	var entry domain.IdentityEntry
	var lastSynced sql.NullString
	var deleted int

	if err := row.Scan(&entry.ID, &entry.EntityType, &entry.LocalID, &entry.RemoteID,
		&lastSynced, &deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, localStoreErr("scanning identity entry", err)
	}

	entry.LastSyncedAt = parseNullableTime(lastSynced)
	entry.IsDeleted = deleted == 1
	return &entry, nil
}

// ==================== Sync State Store ====================

// syncStateStore implements driven.SyncStateStore.
type syncStateStore struct {
	store *Store
}

var _ driven.SyncStateStore = (*syncStateStore)(nil)

// Save stores or updates sync state.
func (s *syncStateStore) Save(ctx context.Context, state domain.SyncState) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_states (entity_type, scope_id, last_sync)
		VALUES (?, ?, ?)
		ON CONFLICT(entity_type, scope_id) DO UPDATE SET
			last_sync = excluded.last_sync
	`, state.EntityType, state.ScopeID, formatNullableTime(state.LastSync))

	if err != nil {
		return localStoreErr("saving sync state", err)
	}
	return nil
}

// Get retrieves sync state for an entity type within a scope.
func (s *syncStateStore) Get(ctx context.Context, entityType, scopeID string) (*domain.SyncState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT entity_type, scope_id, last_sync
		FROM sync_states WHERE entity_type = ? AND scope_id = ?
	`, entityType, scopeID)

	var state domain.SyncState
	var lastSync sql.NullString
	if err := row.Scan(&state.EntityType, &state.ScopeID, &lastSync); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, localStoreErr("scanning sync state", err)
	}
	state.LastSync = parseNullableTime(lastSync)

	return &state, nil
}

// Delete removes sync state, forcing the next sync to be a full one.
func (s *syncStateStore) Delete(ctx context.Context, entityType, scopeID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM sync_states WHERE entity_type = ? AND scope_id = ?", entityType, scopeID)
	if err != nil {
		return localStoreErr("deleting sync state", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// timeLayout is RFC3339 with fixed-width nanoseconds, so stored timestamps
// sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// formatNullableTime formats a time with timeLayout, or returns nil for the
// zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// parseNullableTime parses a nullable RFC3339 string to time.Time.
// Returns zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
