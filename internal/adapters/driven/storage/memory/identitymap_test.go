package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/caresync/internal/core/domain"
)

func TestIdentityMapStore_UpsertAndLookup(t *testing.T) {
	store := NewIdentityMapStore()
	ctx := context.Background()

	now := time.Now()
	err := store.Upsert(ctx, domain.IdentityEntry{
		EntityType:   domain.EntityTask,
		LocalID:      7,
		RemoteID:     "r-7",
		LastSyncedAt: now,
	})
	require.NoError(t, err)

	byLocal, err := store.GetByLocalID(ctx, domain.EntityTask, 7)
	require.NoError(t, err)
	require.NotNil(t, byLocal)
	assert.Equal(t, "r-7", byLocal.RemoteID)
	assert.NotZero(t, byLocal.ID)

	byRemote, err := store.GetByRemoteID(ctx, domain.EntityTask, "r-7")
	require.NoError(t, err)
	require.NotNil(t, byRemote)
	assert.Equal(t, int64(7), byRemote.LocalID)
}

func TestIdentityMapStore_LookupMissing(t *testing.T) {
	store := NewIdentityMapStore()
	ctx := context.Background()

	e, err := store.GetByLocalID(ctx, domain.EntityTask, 1)
	assert.NoError(t, err)
	assert.Nil(t, e)

	e, err = store.GetByRemoteID(ctx, domain.EntityTask, "nope")
	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestIdentityMapStore_UpsertSameLocalIDUpdates(t *testing.T) {
	store := NewIdentityMapStore()
	ctx := context.Background()

	first := time.Now()
	second := first.Add(time.Minute)
	require.NoError(t, store.Upsert(ctx, domain.IdentityEntry{EntityType: domain.EntityNote, LocalID: 1, RemoteID: "r-1", LastSyncedAt: first}))
	require.NoError(t, store.Upsert(ctx, domain.IdentityEntry{EntityType: domain.EntityNote, LocalID: 1, RemoteID: "r-1", LastSyncedAt: second}))

	all, err := store.GetAllByType(ctx, domain.EntityNote, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].LastSyncedAt.Equal(second))
}

func TestIdentityMapStore_RemoteIDUnique(t *testing.T) {
	store := NewIdentityMapStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, domain.IdentityEntry{EntityType: domain.EntityNote, LocalID: 1, RemoteID: "shared"}))
	err := store.Upsert(ctx, domain.IdentityEntry{EntityType: domain.EntityNote, LocalID: 2, RemoteID: "shared"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	// The same remote id under another entity type is fine.
	assert.NoError(t, store.Upsert(ctx, domain.IdentityEntry{EntityType: domain.EntityTask, LocalID: 2, RemoteID: "shared"}))
}

func TestIdentityMapStore_UpsertBySurrogateIDMovesLocalID(t *testing.T) {
	store := NewIdentityMapStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, domain.IdentityEntry{EntityType: domain.EntityNote, LocalID: 1, RemoteID: "r-1"}))
	entry, err := store.GetByRemoteID(ctx, domain.EntityNote, "r-1")
	require.NoError(t, err)

	entry.LocalID = 9
	require.NoError(t, store.Upsert(ctx, *entry))

	old, err := store.GetByLocalID(ctx, domain.EntityNote, 1)
	require.NoError(t, err)
	assert.Nil(t, old)

	moved, err := store.GetByLocalID(ctx, domain.EntityNote, 9)
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, entry.ID, moved.ID)
	assert.Equal(t, "r-1", moved.RemoteID)
}

func TestIdentityMapStore_UpsertUnknownSurrogateID(t *testing.T) {
	store := NewIdentityMapStore()
	err := store.Upsert(context.Background(), domain.IdentityEntry{ID: 42, EntityType: domain.EntityNote, LocalID: 1, RemoteID: "r"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIdentityMapStore_MarkDeleted(t *testing.T) {
	store := NewIdentityMapStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, domain.IdentityEntry{EntityType: domain.EntityTask, LocalID: 1, RemoteID: "a"}))
	require.NoError(t, store.Upsert(ctx, domain.IdentityEntry{EntityType: domain.EntityTask, LocalID: 2, RemoteID: "b"}))
	require.NoError(t, store.MarkDeleted(ctx, domain.EntityTask, 1))

	active, err := store.GetAllByType(ctx, domain.EntityTask, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].RemoteID)

	all, err := store.GetAllByType(ctx, domain.EntityTask, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].IsDeleted)

	assert.ErrorIs(t, store.MarkDeleted(ctx, domain.EntityTask, 99), domain.ErrNotFound)
}
