package mcp

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driving"
)

// StatusInput is the input schema for the sync_status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the sync_status tool.
type StatusOutput struct {
	ScopeID string       `json:"scope_id"`
	Tasks   []TaskOutput `json:"tasks"`
}

// TaskOutput describes one entity type's scheduled sync.
type TaskOutput struct {
	EntityType     string `json:"entity_type"`
	Enabled        bool   `json:"enabled"`
	Running        bool   `json:"running"`
	Interval       string `json:"interval"`
	LastRun        string `json:"last_run,omitempty"`
	LastSuccess    string `json:"last_success,omitempty"`
	LastError      string `json:"last_error,omitempty"`
	ErrorKind      string `json:"error_kind,omitempty"`
	ItemsProcessed int    `json:"items_processed"`
	ItemsFailed    int    `json:"items_failed"`
}

// TriggerInput is the input schema for the trigger_sync tool.
type TriggerInput struct {
	EntityType string `json:"entity_type,omitempty" jsonschema:"entity type to sync, empty syncs every type"`
}

// TriggerOutput is the output schema for the trigger_sync and cancel_syncs tools.
type TriggerOutput struct {
	EntityType string `json:"entity_type,omitempty"`
	Status     string `json:"status"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_status",
		Description: "Report each entity type's sync schedule and latest result",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "trigger_sync",
		Description: "Sync one entity type, or every type, right away",
	}, s.handleTrigger)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cancel_syncs",
		Description: "Cancel every sync that is currently running",
	}, s.handleCancel)
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	output, err := s.status(ctx)
	return nil, output, err
}

func (s *Server) handleTrigger(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TriggerInput,
) (*mcp.CallToolResult, TriggerOutput, error) {
	if input.EntityType != "" && !slices.Contains(domain.EntityTypes(), input.EntityType) {
		return nil, TriggerOutput{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, input.EntityType)
	}

	if err := s.ports.Scheduler.TriggerNow(ctx, input.EntityType); err != nil {
		return nil, TriggerOutput{}, err
	}
	return nil, TriggerOutput{EntityType: input.EntityType, Status: "synced"}, nil
}

func (s *Server) handleCancel(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, TriggerOutput, error) {
	s.ports.Scheduler.CancelAll()
	return nil, TriggerOutput{Status: "cancelled"}, nil
}

func (s *Server) status(ctx context.Context) (StatusOutput, error) {
	statuses, err := s.ports.Scheduler.Status(ctx)
	if err != nil {
		return StatusOutput{}, fmt.Errorf("reading status: %w", err)
	}

	output := StatusOutput{
		ScopeID: s.ports.ScopeID,
		Tasks:   make([]TaskOutput, 0, len(statuses)),
	}
	for _, st := range statuses {
		output.Tasks = append(output.Tasks, toTaskOutput(st))
	}
	return output, nil
}

func toTaskOutput(st driving.TaskStatus) TaskOutput {
	entityType, _ := domain.EntityTypeFromTaskID(st.Task.ID)
	out := TaskOutput{
		EntityType:  entityType,
		Enabled:     st.Task.Enabled,
		Running:     st.Running,
		Interval:    st.Task.Interval.String(),
		LastRun:     formatOptional(st.Task.LastRun),
		LastSuccess: formatOptional(st.Task.LastSuccess),
		LastError:   st.Task.LastError,
	}
	if res := st.LastResult; res != nil {
		out.ErrorKind = string(res.ErrorKind)
		out.ItemsProcessed = res.ItemsProcessed
		out.ItemsFailed = res.ItemsFailed
	}
	return out
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return domain.FormatTime(t)
}
