package entities

import (
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/services"
)

// TaskRow is the local storage form of a task.
type TaskRow struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	DueAtMillis       *int64 `json:"due_at,omitempty"`
	Priority          string `json:"priority"`
	Completed         bool   `json:"completed"`
	CompletedAtMillis *int64 `json:"completed_at,omitempty"`
	CreatedAtMillis   int64  `json:"created_at"`
	UpdatedAtMillis   int64  `json:"updated_at"`
}

// TaskSchema describes TaskRow to the stores.
func TaskSchema() driven.RowSchema[TaskRow] {
	return rowSchema(
		func(r TaskRow) int64 { return r.ID },
		func(r TaskRow, id int64) TaskRow { r.ID = id; return r },
		func(r TaskRow) int64 { return r.UpdatedAtMillis },
	)
}

var taskMapper = mapper[TaskRow, domain.Task]{
	toDomain: func(r TaskRow) domain.Task {
		return domain.Task{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			DueAt:       fromOptMillis(r.DueAtMillis),
			Priority:    domain.TaskPriority(r.Priority),
			Completed:   r.Completed,
			CompletedAt: fromOptMillis(r.CompletedAtMillis),
			CreatedAt:   fromMillis(r.CreatedAtMillis),
			UpdatedAt:   fromMillis(r.UpdatedAtMillis),
		}
	},
	toRow: func(localID int64, m domain.Task) TaskRow {
		return TaskRow{
			ID:                localID,
			Title:             m.Title,
			Description:       m.Description,
			DueAtMillis:       toOptMillis(m.DueAt),
			Priority:          string(m.Priority),
			Completed:         m.Completed,
			CompletedAtMillis: toOptMillis(m.CompletedAt),
			CreatedAtMillis:   toMillis(m.CreatedAt),
			UpdatedAtMillis:   toMillis(m.UpdatedAt),
		}
	},
	toRemote: func(m domain.Task) map[string]any {
		return map[string]any{
			"title":               m.Title,
			"description":         m.Description,
			"dueAt":               optTime(m.DueAt),
			"priority":            string(m.Priority),
			"completed":           m.Completed,
			"completedAt":         optTime(m.CompletedAt),
			domain.FieldCreatedAt: domain.FormatTime(m.CreatedAt),
			domain.FieldUpdatedAt: domain.FormatTime(m.UpdatedAt),
		}
	},
	fromRemote: func(r *fieldReader) domain.Task {
		return domain.Task{
			Title:       r.str("title", true),
			Description: r.str("description", false),
			DueAt:       r.timePtr("dueAt"),
			Priority:    domain.TaskPriority(r.str("priority", true)),
			Completed:   r.boolean("completed"),
			CompletedAt: r.timePtr("completedAt"),
			CreatedAt:   r.time(domain.FieldCreatedAt, true),
			UpdatedAt:   r.time(domain.FieldUpdatedAt, true),
		}
	},
}

// TaskConfig returns the engine configuration for tasks.
func TaskConfig(store driven.IncrementalLocalStore[TaskRow]) services.EngineConfig[TaskRow, domain.Task] {
	return topLevelConfig(domain.EntityTask, store, TaskSchema(), taskMapper)
}
