package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driving"
)

// mockScheduler is a mock implementation of driving.Scheduler.
type mockScheduler struct {
	statuses  []driving.TaskStatus
	err       error
	triggered []string
	cancelled bool
}

func (m *mockScheduler) Start(_ context.Context) error { return nil }

func (m *mockScheduler) Stop() error { return nil }

func (m *mockScheduler) TriggerNow(_ context.Context, entityType string) error {
	m.triggered = append(m.triggered, entityType)
	return m.err
}

func (m *mockScheduler) CancelAll() { m.cancelled = true }

func (m *mockScheduler) Status(_ context.Context) ([]driving.TaskStatus, error) {
	return m.statuses, m.err
}

// mockMappings is a mock implementation of MappingLister.
type mockMappings struct {
	entries []domain.IdentityEntry
	err     error
	asked   string
}

func (m *mockMappings) GetAllByType(_ context.Context, entityType string, _ bool) ([]domain.IdentityEntry, error) {
	m.asked = entityType
	return m.entries, m.err
}

func sampleStatus() []driving.TaskStatus {
	lastRun := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return []driving.TaskStatus{
		{
			Task: domain.ScheduledTask{
				ID:          domain.SyncTaskID(domain.EntityMedication),
				Interval:    15 * time.Minute,
				Enabled:     true,
				LastRun:     lastRun,
				LastSuccess: lastRun,
			},
			LastResult: &domain.TaskResult{Success: true, ItemsProcessed: 3},
		},
		{
			Task: domain.ScheduledTask{
				ID:        domain.SyncTaskID(domain.EntityNote),
				Interval:  time.Hour,
				LastError: "remote unavailable",
			},
			Running:    true,
			LastResult: &domain.TaskResult{ErrorKind: domain.KindNetwork, ItemsFailed: 2},
		},
	}
}
