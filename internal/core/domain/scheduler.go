package domain

import "time"

// ScheduledTask represents a recurring background sync of one entity type.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	// TaskID identifies which task was run.
	TaskID string

	// StartedAt is when the task started.
	StartedAt time.Time

	// EndedAt is when the task completed.
	EndedAt time.Time

	// Success indicates whether the run ended in Success or PartialSuccess.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// ErrorKind is the classification of Error, empty on success.
	ErrorKind ErrorKind

	// ItemsProcessed is the number of items uploaded or downloaded.
	ItemsProcessed int

	// ItemsFailed is the number of items recorded as failed.
	ItemsFailed int

	// Attempts is how many times the sync was invoked, including retries.
	Attempts int
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// MaxAttempts bounds retries of a retryable failure, including the first try.
	MaxAttempts int

	// BackoffBase is the delay before the first retry. It doubles per attempt.
	BackoffBase time.Duration

	// BackoffMax caps the retry delay.
	BackoffMax time.Duration

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	// Enabled indicates whether this task should run.
	Enabled bool

	// Interval defines how often the task should run.
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSyncInterval is how often each entity type syncs by default.
const DefaultSyncInterval = 15 * time.Minute

// DefaultSchedulerConfig returns sensible defaults for the scheduler:
// every entity type enabled at DefaultSyncInterval, three attempts.
func DefaultSchedulerConfig() SchedulerConfig {
	cfg := SchedulerConfig{
		Enabled:     true,
		MaxAttempts: 3,
		BackoffBase: 10 * time.Second,
		BackoffMax:  5 * time.Minute,
		TaskConfigs: make(map[string]TaskConfig),
	}
	for _, entityType := range EntityTypes() {
		cfg.TaskConfigs[SyncTaskID(entityType)] = TaskConfig{
			Enabled:  true,
			Interval: DefaultSyncInterval,
		}
	}
	return cfg
}

// SyncTaskPrefix prefixes the task ID of every entity sync task.
const SyncTaskPrefix = "sync:"

// SyncTaskID returns the scheduler task ID for an entity type.
func SyncTaskID(entityType string) string {
	return SyncTaskPrefix + entityType
}

// EntityTypeFromTaskID extracts the entity type from a sync task ID.
func EntityTypeFromTaskID(taskID string) (string, bool) {
	if len(taskID) <= len(SyncTaskPrefix) || taskID[:len(SyncTaskPrefix)] != SyncTaskPrefix {
		return "", false
	}
	return taskID[len(SyncTaskPrefix):], true
}
