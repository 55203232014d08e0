package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/caresync/internal/core/domain"
)

const uriScheme = "caresync://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "status",
		Description: "Sync schedule and latest result for every entity type",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "mappings/{entityType}",
		Name:        "mappings",
		Description: "Local row to remote document mappings of an entity type",
		MIMEType:    "application/json",
	}, s.handleMappingsResource)
}

func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	output, err := s.status(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(req.Params.URI, output)
}

type mappingInfo struct {
	LocalID      int64  `json:"local_id"`
	RemoteID     string `json:"remote_id"`
	LastSyncedAt string `json:"last_synced_at"`
}

func (s *Server) handleMappingsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Mappings == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	entityType := extractEntityType(req.Params.URI)
	if !slices.Contains(domain.EntityTypes(), entityType) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	entries, err := s.ports.Mappings.GetAllByType(ctx, entityType, false)
	if err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}

	infos := make([]mappingInfo, len(entries))
	for i, e := range entries {
		infos[i] = mappingInfo{
			LocalID:      e.LocalID,
			RemoteID:     e.RemoteID,
			LastSyncedAt: domain.FormatTime(e.LastSyncedAt),
		}
	}
	return jsonResult(req.Params.URI, infos)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractEntityType extracts the entity type from caresync://mappings/{entityType}.
func extractEntityType(uri string) string {
	entityType, ok := strings.CutPrefix(uri, uriScheme+"mappings/")
	if !ok {
		return ""
	}
	return entityType
}
