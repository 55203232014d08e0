package cli

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	remotemem "github.com/custodia-labs/caresync/internal/adapters/driven/remote/memory"
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/entities"
)

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync [entity-type...]", syncCmd.Use)
}

func TestSyncCmd_AllEntityTypes(t *testing.T) {
	remote := remotemem.NewRemoteStore()
	_, open := setupCLI(t, remote)

	a := open()
	now := time.Now().UnixMilli()
	_, err := a.Rows.Notes.Save(context.Background(), entities.NoteRow{
		Title:           "Hospital visiting hours",
		CreatedAtMillis: now,
		UpdatedAtMillis: now,
	})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	out, err := execute(t, "sync")

	require.NoError(t, err)
	for _, entityType := range domain.EntityTypes() {
		assert.Contains(t, out, entityType)
	}
	assert.Contains(t, out, "ok: 1 synced")
	assert.Equal(t, 1, remote.Count(entities.CollectionPath("fam", domain.EntityNote)))
}

func TestSyncCmd_OneEntityType(t *testing.T) {
	setupCLI(t, remotemem.NewRemoteStore())

	out, err := execute(t, "sync", domain.EntityTask)

	require.NoError(t, err)
	assert.Contains(t, out, "tasks")
	assert.NotContains(t, out, domain.EntityContact)
}

func TestSyncCmd_ReportsFailure(t *testing.T) {
	remote := remotemem.NewRemoteStore()
	remote.FailQuery(entities.CollectionPath("fam", domain.EntityContact),
		&domain.RemoteError{Op: "query", Status: 401})
	setupCLI(t, remote)

	out, err := execute(t, "sync", domain.EntityContact)

	require.Error(t, err)
	assert.Contains(t, out, "failed (unauthorized)")
}

func TestSyncCmd_UnknownEntityType(t *testing.T) {
	setupCLI(t, remotemem.NewRemoteStore())

	out, err := execute(t, "sync", "pets")

	require.Error(t, err)
	assert.Contains(t, out, "unsupported type")
}

func TestSyncCmd_MedicationLogs(t *testing.T) {
	remote := remotemem.NewRemoteStore()
	_, open := setupCLI(t, remote)
	ctx := context.Background()

	a := open()
	now := time.Now().UnixMilli()
	medID, err := a.Rows.Medications.Save(ctx, entities.MedicationRow{
		Name:            "Metformin",
		CreatedAtMillis: now,
		UpdatedAtMillis: now,
	})
	require.NoError(t, err)
	_, err = a.Rows.MedicationLogs.Save(ctx, entities.MedicationLogRow{
		MedicationID:    medID,
		TakenAtMillis:   now,
		CreatedAtMillis: now,
		UpdatedAtMillis: now,
	})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = execute(t, "sync", "--medication", strconv.FormatInt(medID+100, 10))
	require.ErrorIs(t, err, domain.ErrNotFound)

	syncMedication = 0
	_, err = execute(t, "sync", domain.EntityMedication)
	require.NoError(t, err)

	out, err := execute(t, "sync", "--medication", strconv.FormatInt(medID, 10))
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 1 uploaded")
}

func TestDescribeResult(t *testing.T) {
	assert.Equal(t, "ok: 1 uploaded, 2 downloaded, 0 conflicts",
		describeResult(domain.Success{Uploaded: 1, Downloaded: 2}))
	assert.Equal(t, "partial: 3 synced, 1 failed",
		describeResult(domain.PartialSuccess{SuccessCount: 3, FailedIDs: []string{"7"}}))
	assert.Contains(t, describeResult(domain.Failure{
		Err: domain.NewDomainError(domain.KindNetwork, "push tasks", context.DeadlineExceeded),
	}), "failed (network)")
}
