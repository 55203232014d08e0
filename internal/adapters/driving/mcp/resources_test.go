package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/caresync/internal/core/domain"
)

func TestExtractEntityType(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "valid mappings URI", uri: "caresync://mappings/tasks", expected: "tasks"},
		{name: "invalid prefix", uri: "file://mappings/tasks", expected: ""},
		{name: "other resource", uri: "caresync://status", expected: ""},
		{name: "empty URI", uri: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractEntityType(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleStatusResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns status as JSON", func(t *testing.T) {
		server := newTestServer(t, &mockScheduler{statuses: sampleStatus()}, nil)

		result, err := server.handleStatusResource(ctx, makeReadResourceRequest("caresync://status"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"scope_id": "fam"`)
		assert.Contains(t, result.Contents[0].Text, `"entity_type": "medications"`)
	})

	t.Run("returns error on status failure", func(t *testing.T) {
		server := newTestServer(t, &mockScheduler{err: errors.New("store closed")}, nil)

		_, err := server.handleStatusResource(ctx, makeReadResourceRequest("caresync://status"))
		require.Error(t, err)
	})
}

func TestServer_handleMappingsResource(t *testing.T) {
	ctx := context.Background()
	synced := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("nil mappings port returns not found", func(t *testing.T) {
		server := newTestServer(t, &mockScheduler{}, nil)

		_, err := server.handleMappingsResource(ctx, makeReadResourceRequest("caresync://mappings/tasks"))
		require.Error(t, err)
	})

	t.Run("unknown entity type returns not found", func(t *testing.T) {
		mappings := &mockMappings{}
		server := newTestServer(t, &mockScheduler{}, mappings)

		_, err := server.handleMappingsResource(ctx, makeReadResourceRequest("caresync://mappings/invoices"))
		require.Error(t, err)
		assert.Empty(t, mappings.asked)
	})

	t.Run("returns mappings successfully", func(t *testing.T) {
		mappings := &mockMappings{entries: []domain.IdentityEntry{
			{EntityType: domain.EntityTask, LocalID: 7, RemoteID: "r-7", LastSyncedAt: synced},
		}}
		server := newTestServer(t, &mockScheduler{}, mappings)

		result, err := server.handleMappingsResource(ctx, makeReadResourceRequest("caresync://mappings/tasks"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, domain.EntityTask, mappings.asked)
		assert.Contains(t, result.Contents[0].Text, `"local_id": 7`)
		assert.Contains(t, result.Contents[0].Text, `"remote_id": "r-7"`)
		assert.Contains(t, result.Contents[0].Text, "2026-03-01T09:30:00Z")
	})

	t.Run("handles empty mapping list", func(t *testing.T) {
		server := newTestServer(t, &mockScheduler{}, &mockMappings{entries: []domain.IdentityEntry{}})

		result, err := server.handleMappingsResource(ctx, makeReadResourceRequest("caresync://mappings/notes"))
		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		server := newTestServer(t, &mockScheduler{}, &mockMappings{err: errors.New("database error")})

		_, err := server.handleMappingsResource(ctx, makeReadResourceRequest("caresync://mappings/notes"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing mappings")
	})
}
