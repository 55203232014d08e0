package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	remotemem "github.com/custodia-labs/caresync/internal/adapters/driven/remote/memory"
	"github.com/custodia-labs/caresync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
)

// --- Test entity ---

const (
	testEntity = "notes"
	testScope  = "family-1"
)

type noteRow struct {
	ID        int64
	ParentID  int64
	Title     string
	UpdatedAt time.Time
}

type noteModel struct {
	ID        int64
	ParentID  int64
	Title     string
	UpdatedAt time.Time
}

func notePath(scopeID string) string {
	return "caregivers/" + scopeID + "/notes"
}

func noteSchema() driven.RowSchema[noteRow] {
	return driven.RowSchema[noteRow]{
		ID:        func(r noteRow) int64 { return r.ID },
		WithID:    func(r noteRow, id int64) noteRow { r.ID = id; return r },
		UpdatedAt: func(r noteRow) time.Time { return r.UpdatedAt },
		ParentID:  func(r noteRow) int64 { return r.ParentID },
	}
}

func noteConfig(rows *memory.RowStore[noteRow]) EngineConfig[noteRow, noteModel] {
	return EngineConfig[noteRow, noteModel]{
		EntityType: testEntity,
		RemotePath: notePath,
		GetAll:     rows.GetAll,
		GetByID:    rows.GetByID,
		Save:       rows.Save,
		Delete:     rows.Delete,
		RowToDomain: func(r noteRow) noteModel {
			return noteModel(r)
		},
		DomainToRow: func(localID int64, m noteModel) noteRow {
			r := noteRow(m)
			r.ID = localID
			return r
		},
		DomainToRemote: func(m noteModel, meta domain.SyncMetadata) map[string]any {
			return map[string]any{
				"title":                  m.Title,
				domain.FieldUpdatedAt:    domain.FormatTime(m.UpdatedAt),
				domain.FieldSyncMetadata: meta.Fields(),
			}
		},
		RemoteToDomain: func(fields map[string]any) (noteModel, error) {
			title, ok := fields["title"].(string)
			if !ok {
				return noteModel{}, fmt.Errorf("%w: missing title", domain.ErrMalformedDocument)
			}
			updatedAt, err := domain.ParseTime(fields[domain.FieldUpdatedAt])
			if err != nil {
				return noteModel{}, err
			}
			return noteModel{Title: title, UpdatedAt: updatedAt}, nil
		},
		LocalID:   func(r noteRow) int64 { return r.ID },
		UpdatedAt: func(r noteRow) time.Time { return r.UpdatedAt },
	}
}

// --- Harness ---

var (
	jan1 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jan2 = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	jan3 = time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
)

type harness struct {
	rows     *memory.RowStore[noteRow]
	identity *memory.IdentityMapStore
	remote   *remotemem.RemoteStore
	cfg      EngineConfig[noteRow, noteModel]
	now      time.Time
	nextID   int
}

func newHarness(t *testing.T, remote *remotemem.RemoteStore) *harness {
	t.Helper()
	if remote == nil {
		remote = remotemem.NewRemoteStore()
	}
	rows := memory.NewRowStore(noteSchema())
	return &harness{
		rows:     rows,
		identity: memory.NewIdentityMapStore(),
		remote:   remote,
		cfg:      noteConfig(rows),
		now:      jan3.Add(time.Hour),
	}
}

func (h *harness) engine(t *testing.T, opts ...EngineOption) *Engine[noteRow, noteModel] {
	t.Helper()
	opts = append([]EngineOption{
		WithClock(func() time.Time { return h.now }),
		WithIDGenerator(func() string {
			h.nextID++
			return fmt.Sprintf("r-%d", h.nextID)
		}),
	}, opts...)
	e, err := NewEngine(h.cfg, h.remote, h.identity, opts...)
	require.NoError(t, err)
	return e
}

func (h *harness) addLocal(t *testing.T, title string, updatedAt time.Time) int64 {
	t.Helper()
	id, err := h.rows.Save(context.Background(), noteRow{Title: title, UpdatedAt: updatedAt})
	require.NoError(t, err)
	return id
}

func (h *harness) addRemote(docID, title string, updatedAt time.Time) {
	h.remote.Put(notePath(testScope), docID, map[string]any{
		"title":               title,
		domain.FieldUpdatedAt: domain.FormatTime(updatedAt),
		domain.FieldSyncMetadata: map[string]any{
			domain.FieldLocalID:   int64(99),
			domain.FieldSyncedAt:  domain.FormatTime(updatedAt),
			domain.FieldDeletedAt: nil,
		},
	})
}

func (h *harness) mapEntry(t *testing.T, localID int64, remoteID string) {
	t.Helper()
	require.NoError(t, h.identity.Upsert(context.Background(), domain.IdentityEntry{
		EntityType:   testEntity,
		LocalID:      localID,
		RemoteID:     remoteID,
		LastSyncedAt: jan1,
	}))
}

func (h *harness) local(t *testing.T, id int64) noteRow {
	t.Helper()
	row, err := h.rows.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, row)
	return *row
}

func runSync(t *testing.T, e *Engine[noteRow, noteModel], lastSync *time.Time) domain.SyncResult {
	t.Helper()
	result, err := e.Sync(context.Background(), testScope, lastSync)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// --- Construction ---

func TestNewEngine_Valid(t *testing.T) {
	h := newHarness(t, nil)
	e := h.engine(t)
	assert.Equal(t, testEntity, e.EntityType())
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EngineConfig[noteRow, noteModel])
	}{
		{name: "no entity type", mutate: func(c *EngineConfig[noteRow, noteModel]) { c.EntityType = "" }},
		{name: "no remote path", mutate: func(c *EngineConfig[noteRow, noteModel]) { c.RemotePath = nil }},
		{name: "no get all", mutate: func(c *EngineConfig[noteRow, noteModel]) { c.GetAll = nil }},
		{name: "no save", mutate: func(c *EngineConfig[noteRow, noteModel]) { c.Save = nil }},
		{name: "no mapper", mutate: func(c *EngineConfig[noteRow, noteModel]) { c.RemoteToDomain = nil }},
		{name: "no updated at", mutate: func(c *EngineConfig[noteRow, noteModel]) { c.UpdatedAt = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			tt.mutate(&h.cfg)
			_, err := NewEngine(h.cfg, h.remote, h.identity)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestNewEngine_MissingCollaborators(t *testing.T) {
	h := newHarness(t, nil)

	_, err := NewEngine(h.cfg, nil, h.identity)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewEngine(h.cfg, h.remote, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

// --- Scenarios ---

func TestEngine_Sync_EmptyStores(t *testing.T) {
	h := newHarness(t, nil)

	result := runSync(t, h.engine(t), nil)
	assert.Equal(t, domain.Success{}, result)
}

func TestEngine_Sync_FirstSyncUploadsNewRows(t *testing.T) {
	h := newHarness(t, nil)
	for i := 0; i < 3; i++ {
		h.addLocal(t, fmt.Sprintf("note %d", i), jan2)
	}

	result := runSync(t, h.engine(t), nil)
	assert.Equal(t, domain.Success{Uploaded: 3}, result)

	entries, err := h.identity.GetAllByType(context.Background(), testEntity, false)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.LocalID)
		assert.Equal(t, fmt.Sprintf("r-%d", i+1), e.RemoteID)
		assert.True(t, e.LastSyncedAt.Equal(h.now))
	}

	doc := h.remote.Get(notePath(testScope), "r-1")
	require.NotNil(t, doc)
	assert.Equal(t, "note 0", doc["title"])
	meta, err := domain.ParseSyncMetadata(doc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.LocalID)
	assert.True(t, meta.SyncedAt.Equal(h.now))
	assert.Nil(t, meta.DeletedAt)
}

func TestEngine_Sync_PullsNewRemoteDocuments(t *testing.T) {
	h := newHarness(t, nil)
	h.addRemote("a", "from remote a", jan2)
	h.addRemote("b", "from remote b", jan2)

	result := runSync(t, h.engine(t), nil)
	assert.Equal(t, domain.Success{Downloaded: 2}, result)
	assert.Equal(t, 2, h.rows.Len())

	entry, err := h.identity.GetByRemoteID(context.Background(), testEntity, "b")
	require.NoError(t, err)
	require.NotNil(t, entry)
	row := h.local(t, entry.LocalID)
	assert.Equal(t, "from remote b", row.Title)
	assert.True(t, row.UpdatedAt.Equal(jan2))
}

func TestEngine_Sync_OlderRemoteLeavesLocalUntouched(t *testing.T) {
	h := newHarness(t, nil)
	id := h.addLocal(t, "local edit", jan2)
	h.mapEntry(t, id, "a")
	h.addRemote("a", "stale", jan1)

	result := runSync(t, h.engine(t), nil)
	assert.Equal(t, domain.Success{}, result)
	assert.Equal(t, "local edit", h.local(t, id).Title)
}

func TestEngine_Sync_MalformedDocumentIsolated(t *testing.T) {
	h := newHarness(t, nil)
	h.addRemote("a", "good a", jan2)
	h.remote.Put(notePath(testScope), "bad", map[string]any{
		domain.FieldUpdatedAt: domain.FormatTime(jan2),
		domain.FieldSyncMetadata: map[string]any{
			domain.FieldLocalID:   int64(1),
			domain.FieldSyncedAt:  domain.FormatTime(jan2),
			domain.FieldDeletedAt: nil,
		},
	})
	h.addRemote("c", "good c", jan2)

	result := runSync(t, h.engine(t), nil)
	partial, ok := result.(domain.PartialSuccess)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, 2, partial.SuccessCount)
	assert.Equal(t, []string{"bad"}, partial.FailedIDs)
	require.Len(t, partial.Errors, 1)
	assert.Equal(t, domain.KindValidation, partial.Errors[0].Kind)
	assert.Equal(t, 2, h.rows.Len())
}

// --- Properties ---

func TestEngine_Sync_Idempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.addLocal(t, "one", jan2)
	h.addRemote("x", "two", jan2)
	e := h.engine(t)

	first := runSync(t, e, nil)
	assert.Equal(t, domain.Success{Uploaded: 1, Downloaded: 1}, first)
	upserts := h.remote.Upserts()

	lastSync := h.now
	h.now = h.now.Add(time.Minute)
	second := runSync(t, e, &lastSync)
	assert.Equal(t, domain.Success{}, second)
	assert.Equal(t, upserts, h.remote.Upserts())

	third := runSync(t, e, nil)
	assert.Equal(t, domain.Success{}, third)
}

func TestEngine_Sync_RoundTrip(t *testing.T) {
	remote := remotemem.NewRemoteStore()
	deviceA := newHarness(t, remote)
	deviceA.addLocal(t, "shared note", jan2)
	runSync(t, deviceA.engine(t), nil)

	deviceB := newHarness(t, remote)
	result := runSync(t, deviceB.engine(t), nil)
	assert.Equal(t, domain.Success{Downloaded: 1}, result)

	original := deviceA.local(t, 1)
	copied := deviceB.local(t, 1)
	if diff := cmp.Diff(original, copied, cmpopts.IgnoreFields(noteRow{}, "ID")); diff != "" {
		t.Errorf("round trip mismatch (-original +copied):\n%s", diff)
	}
}

func TestEngine_Sync_ConflictDeterminism(t *testing.T) {
	tests := []struct {
		name          string
		remoteUpdated time.Time
		wantTitle     string
		wantResult    domain.SyncResult
	}{
		{name: "remote newer", remoteUpdated: jan3, wantTitle: "remote", wantResult: domain.Success{Downloaded: 1, Conflicts: 1}},
		{name: "tie keeps local", remoteUpdated: jan2, wantTitle: "local", wantResult: domain.Success{}},
		{name: "remote older", remoteUpdated: jan1, wantTitle: "local", wantResult: domain.Success{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			id := h.addLocal(t, "local", jan2)
			h.mapEntry(t, id, "a")
			h.addRemote("a", "remote", tt.remoteUpdated)

			result := runSync(t, h.engine(t), nil)
			assert.Equal(t, tt.wantResult, result)

			row := h.local(t, id)
			assert.Equal(t, tt.wantTitle, row.Title)
			assert.Equal(t, 1, h.rows.Len())
		})
	}
}

func TestEngine_Sync_OverwriteRefreshesLastSyncedAt(t *testing.T) {
	h := newHarness(t, nil)
	id := h.addLocal(t, "local", jan1)
	h.mapEntry(t, id, "a")
	h.addRemote("a", "remote", jan2)

	runSync(t, h.engine(t), nil)

	entry, err := h.identity.GetByLocalID(context.Background(), testEntity, id)
	require.NoError(t, err)
	assert.True(t, entry.LastSyncedAt.Equal(h.now))
}

func TestEngine_Sync_PartialFailureIsolation(t *testing.T) {
	h := newHarness(t, nil)
	for i := 0; i < 4; i++ {
		h.addLocal(t, fmt.Sprintf("note %d", i), jan2)
	}
	h.remote.FailUpsert("r-3", &domain.RemoteError{Op: "put", Status: http.StatusServiceUnavailable, Err: errors.New("down")})

	result := runSync(t, h.engine(t), nil)
	partial, ok := result.(domain.PartialSuccess)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, 3, partial.SuccessCount)
	assert.Equal(t, []string{"3"}, partial.FailedIDs)
	require.Len(t, partial.Errors, 1)
	assert.Equal(t, domain.KindNetwork, partial.Errors[0].Kind)
	assert.True(t, partial.Errors[0].Retryable())

	failed, err := h.identity.GetByLocalID(context.Background(), testEntity, 3)
	require.NoError(t, err)
	assert.Nil(t, failed)
	assert.Equal(t, 3, h.remote.Count(notePath(testScope)))
}

func TestEngine_Sync_MappingUniqueness(t *testing.T) {
	h := newHarness(t, nil)
	id := h.addLocal(t, "v1", jan1)
	e := h.engine(t)

	runSync(t, e, nil)

	lastSync := jan2
	for i := 2; i <= 4; i++ {
		edited := lastSync.Add(time.Hour)
		_, err := h.rows.Save(context.Background(), noteRow{ID: id, Title: fmt.Sprintf("v%d", i), UpdatedAt: edited})
		require.NoError(t, err)

		result := runSync(t, e, &lastSync)
		assert.Equal(t, domain.Success{Uploaded: 1}, result)
		lastSync = edited
	}

	entries, err := h.identity.GetAllByType(context.Background(), testEntity, true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "r-1", entries[0].RemoteID)
	assert.Equal(t, 1, h.remote.Count(notePath(testScope)))
	assert.Equal(t, "v4", h.remote.Get(notePath(testScope), "r-1")["title"])
}

// --- Push details ---

func TestEngine_Sync_UnchangedMappedRowNotUploaded(t *testing.T) {
	h := newHarness(t, nil)
	id := h.addLocal(t, "note", jan1)
	h.mapEntry(t, id, "a")

	lastSync := jan2
	result := runSync(t, h.engine(t), &lastSync)
	assert.Equal(t, domain.Success{}, result)
	assert.Equal(t, 0, h.remote.Upserts())
}

func TestEngine_Sync_ChangedMappedRowReusesRemoteID(t *testing.T) {
	h := newHarness(t, nil)
	id := h.addLocal(t, "edited", jan2)
	h.mapEntry(t, id, "a")

	lastSync := jan1
	result := runSync(t, h.engine(t), &lastSync)
	assert.Equal(t, domain.Success{Uploaded: 1}, result)
	assert.Equal(t, "edited", h.remote.Get(notePath(testScope), "a")["title"])
	assert.Equal(t, 1, h.remote.Count(notePath(testScope)))
	assert.Equal(t, 0, h.nextID)
}

func TestEngine_Sync_UsesModifiedSinceWhenAvailable(t *testing.T) {
	h := newHarness(t, nil)
	h.addLocal(t, "old", jan1)
	h.addLocal(t, "new", jan3)

	var calledWith time.Time
	h.cfg.GetModifiedSince = func(ctx context.Context, since time.Time) ([]noteRow, error) {
		calledWith = since
		return h.rows.GetModifiedSince(ctx, since)
	}

	lastSync := jan2
	result := runSync(t, h.engine(t), &lastSync)
	assert.Equal(t, domain.Success{Uploaded: 1}, result)
	assert.True(t, calledWith.Equal(jan2))

	entry, err := h.identity.GetByLocalID(context.Background(), testEntity, 1)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestEngine_Sync_LocalListFailureIsFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.cfg.GetAll = func(context.Context) ([]noteRow, error) {
		return nil, fmt.Errorf("query rows: %w", domain.ErrLocalStore)
	}
	h.addRemote("a", "remote", jan2)

	result := runSync(t, h.engine(t), nil)
	failure, ok := result.(domain.Failure)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, domain.KindDatabase, failure.Err.Kind)
	assert.Equal(t, "push notes", failure.Err.Op)
}

// --- Pull details ---

func TestEngine_Sync_SkipsTombstones(t *testing.T) {
	h := newHarness(t, nil)
	h.remote.Put(notePath(testScope), "gone", map[string]any{
		"title":               "deleted",
		domain.FieldUpdatedAt: domain.FormatTime(jan2),
		domain.FieldSyncMetadata: map[string]any{
			domain.FieldLocalID:   int64(1),
			domain.FieldSyncedAt:  domain.FormatTime(jan2),
			domain.FieldDeletedAt: domain.FormatTime(jan2),
		},
	})

	result := runSync(t, h.engine(t), nil)
	assert.Equal(t, domain.Success{}, result)
	assert.Equal(t, 0, h.rows.Len())
}

func TestEngine_Sync_QueryFailureIsFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.addLocal(t, "pushed anyway", jan2)
	h.remote.FailQuery(notePath(testScope), &domain.RemoteError{Op: "find", Status: http.StatusUnauthorized, Err: errors.New("bad token")})

	result := runSync(t, h.engine(t), nil)
	failure, ok := result.(domain.Failure)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, domain.KindNetwork, failure.Err.Kind)
	assert.True(t, failure.Err.Retryable())
	assert.Equal(t, 1, h.remote.Upserts())
}

func TestEngine_Sync_PullFailureRecordsMappedLocalID(t *testing.T) {
	h := newHarness(t, nil)
	id := h.addLocal(t, "local", jan1)
	h.mapEntry(t, id, "a")
	h.addRemote("a", "remote", jan2)

	h.cfg.Save = func(context.Context, noteRow) (int64, error) {
		return 0, fmt.Errorf("write row: %w", domain.ErrLocalStore)
	}

	result := runSync(t, h.engine(t), nil)
	partial, ok := result.(domain.PartialSuccess)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, []string{fmt.Sprint(id)}, partial.FailedIDs)
	assert.Equal(t, domain.KindDatabase, partial.Errors[0].Kind)
}

func TestEngine_Sync_RematerialisesMissingMappedRow(t *testing.T) {
	h := newHarness(t, nil)
	h.mapEntry(t, 5, "a")
	h.addRemote("a", "remote", jan2)

	result := runSync(t, h.engine(t), nil)
	assert.Equal(t, domain.Success{Downloaded: 1}, result)

	entry, err := h.identity.GetByRemoteID(context.Background(), testEntity, "a")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.NotEqual(t, int64(5), entry.LocalID)
	assert.Equal(t, "remote", h.local(t, entry.LocalID).Title)

	all, err := h.identity.GetAllByType(context.Background(), testEntity, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEngine_Sync_LocallyDeletedRowStaysDeleted(t *testing.T) {
	h := newHarness(t, nil)
	h.mapEntry(t, 5, "a")
	require.NoError(t, h.identity.MarkDeleted(context.Background(), testEntity, 5))
	h.addRemote("a", "remote", jan2)

	result := runSync(t, h.engine(t), nil)
	assert.Equal(t, domain.Success{}, result)
	assert.Equal(t, 0, h.rows.Len())
}

// --- Cancellation and panics ---

func TestEngine_Sync_CancelledBeforeStart(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.engine(t).Sync(ctx, testScope, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestEngine_Sync_CancelledDuringPush(t *testing.T) {
	h := newHarness(t, nil)
	h.addLocal(t, "a", jan2)
	h.addLocal(t, "b", jan2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.cfg.GetAll = func(ctx context.Context) ([]noteRow, error) {
		rows, err := h.rows.GetAll(ctx)
		cancel()
		return rows, err
	}

	result, err := h.engine(t).Sync(ctx, testScope, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.Equal(t, 0, h.remote.Upserts())
}

func TestEngine_Sync_CancelledRemoteCallUnwinds(t *testing.T) {
	h := newHarness(t, nil)
	h.addLocal(t, "a", jan2)
	h.remote.FailUpsert("r-1", fmt.Errorf("put document: %w", context.Canceled))

	result, err := h.engine(t).Sync(context.Background(), testScope, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestEngine_Sync_PanicBecomesFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.addLocal(t, "a", jan2)
	h.cfg.RowToDomain = func(noteRow) noteModel { panic("mapper bug") }

	result := runSync(t, h.engine(t), nil)
	failure, ok := result.(domain.Failure)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, domain.KindUnknown, failure.Err.Kind)
	assert.Contains(t, failure.Err.Error(), "mapper bug")
}

// --- Observer ---

type recordingObserver struct {
	entityTypes []string
	results     []domain.SyncResult
}

func (o *recordingObserver) ObserveSync(entityType string, result domain.SyncResult, _ time.Duration) {
	o.entityTypes = append(o.entityTypes, entityType)
	o.results = append(o.results, result)
}

func TestEngine_Sync_ReportsToObserver(t *testing.T) {
	h := newHarness(t, nil)
	h.addLocal(t, "a", jan2)
	obs := &recordingObserver{}

	runSync(t, h.engine(t, WithObserver(obs)), nil)
	require.Len(t, obs.results, 1)
	assert.Equal(t, []string{testEntity}, obs.entityTypes)
	assert.Equal(t, domain.Success{Uploaded: 1}, obs.results[0])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.engine(t, WithObserver(obs)).Sync(ctx, testScope, nil)
	require.Error(t, err)
	assert.Len(t, obs.results, 1)
}
