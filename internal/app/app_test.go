package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	remotemem "github.com/custodia-labs/caresync/internal/adapters/driven/remote/memory"
	"github.com/custodia-labs/caresync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/entities"
)

// slowRemote delays queries on one collection path.
type slowRemote struct {
	*remotemem.RemoteStore
	path  string
	delay time.Duration
}

func (r *slowRemote) QueryActiveSince(ctx context.Context, path string, since *time.Time) ([]domain.RemoteDocument, error) {
	if path == r.path {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay):
		}
	}
	return r.RemoteStore.QueryActiveSince(ctx, path, since)
}

func remoteDoc(updated time.Time, fields map[string]any) map[string]any {
	fields[domain.FieldCreatedAt] = domain.FormatTime(updated)
	fields[domain.FieldUpdatedAt] = domain.FormatTime(updated)
	fields[domain.FieldSyncMetadata] = map[string]any{
		domain.FieldLocalID:   int64(7),
		domain.FieldSyncedAt:  domain.FormatTime(updated),
		domain.FieldDeletedAt: nil,
	}
	return fields
}

func newTestApp(t *testing.T, remote driven.RemoteStore) *App {
	t.Helper()

	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)

	cfg := domain.DefaultAppConfig()
	cfg.ScopeID = "fam"

	a, err := New(cfg, store, remote)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_RegistersEveryEntityType(t *testing.T) {
	a := newTestApp(t, remotemem.NewRemoteStore())

	assert.Equal(t, domain.EntityTypes(), a.Registry.EntityTypes())

	statuses, err := a.Scheduler.Status(context.Background())
	require.NoError(t, err)
	assert.Len(t, statuses, len(domain.EntityTypes()))
}

func TestApp_SyncsBetweenDevices(t *testing.T) {
	ctx := context.Background()
	remote := remotemem.NewRemoteStore()
	phone := newTestApp(t, remote)
	tablet := newTestApp(t, remote)

	updated := time.Now().Add(-time.Minute).UnixMilli()
	_, err := phone.Rows.Tasks.Save(ctx, entities.TaskRow{
		Title:           "Refill prescription",
		Priority:        "high",
		CreatedAtMillis: updated,
		UpdatedAtMillis: updated,
	})
	require.NoError(t, err)

	res, err := phone.Scheduler.RunSync(ctx, domain.EntityTask)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.ItemsProcessed)
	assert.Equal(t, 1, remote.Count(entities.CollectionPath("fam", domain.EntityTask)))

	res, err = tablet.Scheduler.RunSync(ctx, domain.EntityTask)
	require.NoError(t, err)
	assert.True(t, res.Success)

	rows, err := tablet.Rows.Tasks.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Refill prescription", rows[0].Title)

	mappings, err := tablet.Identity.GetAllByType(ctx, domain.EntityTask, false)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, rows[0].ID, mappings[0].LocalID)

	state, err := tablet.Store.SyncStateStore().Get(ctx, domain.EntityTask, "fam")
	require.NoError(t, err)
	assert.False(t, state.LastSync.IsZero())
}

func TestApp_ScheduledRunPullsParentsBeforeChildren(t *testing.T) {
	updated := time.Now().Add(-time.Hour)
	remote := remotemem.NewRemoteStore()
	remote.Put(entities.CollectionPath("fam", domain.EntityMedication), "med-1",
		remoteDoc(updated, map[string]any{"name": "Metformin", "active": true}))
	remote.Put(entities.MedicationLogPath("fam", "med-1"), "log-1",
		remoteDoc(updated, map[string]any{"takenAt": domain.FormatTime(updated), "skipped": false}))

	a := newTestApp(t, &slowRemote{
		RemoteStore: remote,
		path:        entities.CollectionPath("fam", domain.EntityMedication),
		delay:       200 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Scheduler.Start(ctx) }()

	history := a.Store.SchedulerStore()
	require.Eventually(t, func() bool {
		results, err := history.GetTaskHistory(ctx, domain.SyncTaskID(domain.EntityMedicationLog), 1)
		return err == nil && len(results) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Scheduler.Stop())
	cancel()
	<-done

	logs, err := a.Rows.MedicationLogs.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 1)

	meds, err := a.Rows.Medications.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.Equal(t, meds[0].ID, logs[0].MedicationID)

	// An incremental rerun neither loses nor duplicates the log.
	require.NoError(t, a.Scheduler.TriggerNow(context.Background(), domain.EntityMedicationLog))
	logs, err = a.Rows.MedicationLogs.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestApp_ObservesSyncs(t *testing.T) {
	a := newTestApp(t, remotemem.NewRemoteStore())

	_, err := a.Scheduler.RunSync(context.Background(), domain.EntityNote)
	require.NoError(t, err)

	families, err := a.Metrics.Registry().Gather()
	require.NoError(t, err)

	var runs float64
	for _, f := range families {
		if f.GetName() != "caresync_sync_runs_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			runs += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, runs)
}

func TestClose_IsOrdered(t *testing.T) {
	var order []string
	a := &App{closers: []func() error{
		func() error { order = append(order, "store"); return nil },
		func() error { order = append(order, "remote"); return nil },
	}}

	require.NoError(t, a.Close())
	assert.Equal(t, []string{"remote", "store"}, order)
}

func TestOpen_RejectsMissingRemote(t *testing.T) {
	cfg := domain.DefaultAppConfig()
	cfg.DataDir = t.TempDir()
	cfg.ScopeID = "fam"
	cfg.Remote.URL = ""

	_, err := Open(context.Background(), cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
