package couchdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-kivik/kivik/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/caresync/internal/core/domain"
)

const logsPath = "caregivers/fam/medications/m1/logs"

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "caregivers/fam/tasks/abc", DocumentID("caregivers/fam/tasks", "abc"))
}

func TestToRemoteDocument_StripsBookkeeping(t *testing.T) {
	raw := map[string]any{
		"_id":     DocumentID(logsPath, "l1"),
		"_rev":    "3-abc",
		pathField: logsPath,
		"dose":    "5ml",
	}

	doc, ok := toRemoteDocument(logsPath, raw)
	require.True(t, ok)
	assert.Equal(t, "l1", doc.ID)
	assert.Equal(t, map[string]any{"dose": "5ml"}, doc.Fields)
	assert.Contains(t, raw, "_rev")
}

func TestFindQuery(t *testing.T) {
	t.Run("first page skips tombstones", func(t *testing.T) {
		query := findQuery(logsPath, "")

		assert.Equal(t, map[string]any{
			pathField: logsPath,
			"$or": []any{
				map[string]any{"syncMetadata.deletedAt": nil},
				map[string]any{"syncMetadata.deletedAt": map[string]any{"$exists": false}},
			},
		}, query["selector"])
		assert.Equal(t, pageSize, query["limit"])
		assert.NotContains(t, query, "bookmark")
	})

	t.Run("later pages carry the bookmark", func(t *testing.T) {
		query := findQuery(logsPath, "g1AAAA")
		assert.Equal(t, "g1AAAA", query["bookmark"])
	})
}

func TestToRemoteDocument_RejectsOtherPaths(t *testing.T) {
	tests := []struct {
		name string
		id   any
	}{
		{name: "missing id", id: nil},
		{name: "other collection", id: "caregivers/fam/tasks/t1"},
		{name: "nested collection", id: logsPath + "/l1/extra"},
		{name: "empty doc id", id: logsPath + "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := toRemoteDocument(logsPath, map[string]any{"_id": tt.id})
			assert.False(t, ok)
		})
	}
}

func TestUpdatedAfter(t *testing.T) {
	since := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	at := func(ts time.Time) map[string]any {
		return map[string]any{domain.FieldUpdatedAt: domain.FormatTime(ts)}
	}

	assert.True(t, updatedAfter(at(since), nil))
	assert.True(t, updatedAfter(at(since.Add(time.Millisecond)), &since))
	assert.False(t, updatedAfter(at(since), &since))
	assert.False(t, updatedAfter(at(since.Add(-time.Hour)), &since))
	assert.True(t, updatedAfter(map[string]any{}, &since))
}

func TestRemoteErr(t *testing.T) {
	t.Run("cancellation passes through", func(t *testing.T) {
		err := remoteErr("query", logsPath, context.Canceled)
		assert.Equal(t, context.Canceled, err)
	})

	t.Run("backend failure becomes RemoteError", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := remoteErr("query", logsPath, cause)

		var re *domain.RemoteError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "query", re.Op)
		assert.Equal(t, logsPath, re.Path)
		assert.Equal(t, kivik.HTTPStatus(cause), re.Status)
		assert.ErrorIs(t, err, cause)
	})
}

func TestNewStore_RequiresURLAndDatabase(t *testing.T) {
	_, err := NewStore(context.Background(), domain.RemoteConfig{URL: "http://localhost:5984"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewStore(context.Background(), domain.RemoteConfig{Database: "caresync"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

