package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/ports/driving"
	"github.com/custodia-labs/caresync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is how many results are kept per task.
const historyRetention = 100

// defaultTickInterval is how often the scheduler looks for due tasks.
const defaultTickInterval = time.Minute

// Scheduler runs one periodic sync task per entity type. It guarantees at
// most one in-flight run per entity type and scope, retries retryable
// failures with exponential backoff, and advances the last-sync time only
// after a run that counts as successful.
type Scheduler struct {
	config  domain.SchedulerConfig
	scopeID string
	store   driven.SchedulerStore
	states  driven.SyncStateStore
	syncers map[string]driving.EntitySyncer
	order   []string

	tick time.Duration
	now  func() time.Time

	mu       sync.Mutex
	running  bool
	cycling  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	inFlight map[string]context.CancelFunc
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due tasks.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithSchedulerClock overrides the clock used for task bookkeeping.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduler creates a scheduler for syncers within one scope. Syncers
// run in the order given when all of them are triggered at once.
func NewScheduler(
	config domain.SchedulerConfig,
	scopeID string,
	store driven.SchedulerStore,
	states driven.SyncStateStore,
	syncers []driving.EntitySyncer,
	opts ...SchedulerOption,
) *Scheduler {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	s := &Scheduler{
		config:   config,
		scopeID:  scopeID,
		store:    store,
		states:   states,
		syncers:  make(map[string]driving.EntitySyncer, len(syncers)),
		tick:     defaultTickInterval,
		now:      time.Now,
		inFlight: make(map[string]context.CancelFunc),
	}
	for _, syncer := range syncers {
		if _, dup := s.syncers[syncer.EntityType()]; dup {
			continue
		}
		s.syncers[syncer.EntityType()] = syncer
		s.order = append(s.order, syncer.EntityType())
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Error("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler, waiting for running syncs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// initialiseTasks ensures a task exists for every entity type.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, entityType := range s.order {
		id := domain.SyncTaskID(entityType)
		if err := s.ensureTask(ctx, id, "Sync "+entityType, s.config.GetTaskConfig(id)); err != nil {
			return fmt.Errorf("ensure task %s: %w", id, err)
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			// Zero NextRun makes a new task due on the first check.
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = s.now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds the tasks that are due and runs them in the
// background, one after another in syncer order. Parents therefore land
// locally before the fan-outs that depend on them. A tick that arrives
// while the previous batch is still running is skipped.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	if !s.config.Enabled {
		return
	}

	batch := s.dueEntityTypes(ctx)
	if len(batch) == 0 {
		return
	}

	s.mu.Lock()
	if s.cycling {
		s.mu.Unlock()
		logger.Debug("scheduler: previous batch still running, skipping tick")
		return
	}
	s.cycling = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.cycling = false
			s.mu.Unlock()
		}()

		for _, entityType := range batch {
			if ctx.Err() != nil {
				return
			}
			s.runTask(ctx, entityType)
		}
	}()
}

// dueEntityTypes returns the entity types whose tasks are due, in syncer
// order.
func (s *Scheduler) dueEntityTypes(ctx context.Context) []string {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Error("scheduler: failed to list tasks: %v", err)
		return nil
	}

	now := s.now()
	due := make(map[string]bool, len(tasks))
	for i := range tasks {
		task := tasks[i]
		if !task.Enabled {
			continue
		}
		if !task.NextRun.IsZero() && task.NextRun.After(now) {
			continue
		}
		entityType, ok := domain.EntityTypeFromTaskID(task.ID)
		if !ok {
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			continue
		}
		due[entityType] = true
	}

	var batch []string
	for _, entityType := range s.order {
		if due[entityType] {
			batch = append(batch, entityType)
		}
	}
	return batch
}

// runTask runs one sync and logs its failure.
func (s *Scheduler) runTask(ctx context.Context, entityType string) {
	if _, err := s.RunSync(ctx, entityType); err != nil {
		switch {
		case errors.Is(err, domain.ErrSyncInProgress):
			logger.Debug("scheduler: %s already running", entityType)
		case errors.Is(err, context.Canceled):
			logger.Info("scheduler: sync of %s cancelled", entityType)
		default:
			logger.Warn("scheduler: sync of %s: %v", entityType, err)
		}
	}
}

// TriggerNow runs the sync for an entity type immediately, or every entity
// type when entityType is empty. It waits for the runs to finish and
// returns an error for every run that did not succeed.
func (s *Scheduler) TriggerNow(ctx context.Context, entityType string) error {
	targets := s.order
	if entityType != "" {
		targets = []string{entityType}
	}

	var errs []error
	for _, target := range targets {
		result, err := s.RunSync(ctx, target)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			errs = append(errs, err)
			continue
		}
		if !result.Success {
			errs = append(errs, fmt.Errorf("sync %s: %s", target, result.Error))
		}
	}
	return errors.Join(errs...)
}

// CancelAll cancels every in-flight sync. The scheduler keeps running.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cancel := range s.inFlight {
		logger.Info("scheduler: cancelling %s", key)
		cancel()
	}
}

// Status reports every task with its latest result.
func (s *Scheduler) Status(ctx context.Context) ([]driving.TaskStatus, error) {
	statuses := make([]driving.TaskStatus, 0, len(s.order))
	for _, entityType := range s.order {
		id := domain.SyncTaskID(entityType)

		task, err := s.store.GetTask(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get task %s: %w", id, err)
		}
		if task == nil {
			cfg := s.config.GetTaskConfig(id)
			task = &domain.ScheduledTask{ID: id, Name: "Sync " + entityType, Interval: cfg.Interval, Enabled: cfg.Enabled}
		}

		status := driving.TaskStatus{
			Task:    *task,
			Running: s.isRunning(entityType),
		}

		history, err := s.store.GetTaskHistory(ctx, id, 1)
		if err != nil {
			return nil, fmt.Errorf("get history %s: %w", id, err)
		}
		if len(history) > 0 {
			last := history[0]
			status.LastResult = &last
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// RunSync runs one entity sync to completion, retrying retryable failures,
// and records its outcome. A cancelled run returns the cancellation error
// and leaves the last-sync time untouched.
func (s *Scheduler) RunSync(ctx context.Context, entityType string) (*domain.TaskResult, error) {
	syncer, ok := s.syncers[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, entityType)
	}

	runCtx, release, err := s.acquire(ctx, entityType)
	if err != nil {
		return nil, err
	}
	defer release()

	started := s.now()
	taskResult := &domain.TaskResult{
		TaskID:    domain.SyncTaskID(entityType),
		StartedAt: started,
	}

	lastSync := s.lastSync(runCtx, entityType)

	var result domain.SyncResult
	for attempt := 1; ; attempt++ {
		taskResult.Attempts = attempt

		result, err = syncer.Sync(runCtx, s.scopeID, lastSync)
		if err != nil {
			taskResult.EndedAt = s.now()
			taskResult.Error = err.Error()
			s.record(ctx, taskResult)
			return taskResult, err
		}

		failure, failed := result.(domain.Failure)
		if !failed || !failure.Err.Retryable() || attempt >= s.config.MaxAttempts {
			break
		}

		delay := s.backoff(attempt)
		logger.Warn("scheduler: sync of %s failed (attempt %d/%d), retrying in %s: %v",
			entityType, attempt, s.config.MaxAttempts, delay, failure.Err)
		if err := sleep(runCtx, delay); err != nil {
			taskResult.EndedAt = s.now()
			taskResult.Error = err.Error()
			s.record(ctx, taskResult)
			return taskResult, err
		}
	}

	taskResult.EndedAt = s.now()
	taskResult.ItemsProcessed = domain.SuccessCount(result)

	switch r := result.(type) {
	case domain.Success:
		taskResult.Success = true
	case domain.PartialSuccess:
		taskResult.Success = true
		taskResult.ItemsFailed = len(r.FailedIDs)
	case domain.Failure:
		taskResult.Error = r.Err.Error()
		taskResult.ErrorKind = r.Err.Kind
	}

	if taskResult.Success {
		// Rows carry millisecond timestamps; a finer watermark would skip
		// rows written in the same millisecond as started.
		state := domain.SyncState{
			EntityType: entityType,
			ScopeID:    s.scopeID,
			LastSync:   started.Truncate(time.Millisecond),
		}
		if err := s.states.Save(ctx, state); err != nil {
			logger.Error("scheduler: failed to save sync state for %s: %v", entityType, err)
		}
	} else {
		logger.Error("scheduler: sync of %s failed after %d attempt(s): %s",
			entityType, taskResult.Attempts, taskResult.Error)
	}

	s.record(ctx, taskResult)
	return taskResult, nil
}

// acquire registers an in-flight run and returns its cancellable context.
func (s *Scheduler) acquire(ctx context.Context, entityType string) (context.Context, func(), error) {
	key := s.inFlightKey(entityType)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[key]; busy {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrSyncInProgress, key)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.inFlight[key] = cancel

	release := func() {
		s.mu.Lock()
		delete(s.inFlight, key)
		s.mu.Unlock()
		cancel()
	}
	return runCtx, release, nil
}

func (s *Scheduler) isRunning(entityType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inFlight[s.inFlightKey(entityType)]
	return busy
}

func (s *Scheduler) inFlightKey(entityType string) string {
	return s.scopeID + "/" + entityType
}

// lastSync loads the last successful sync time. Any failure to read it
// falls back to a full sync.
func (s *Scheduler) lastSync(ctx context.Context, entityType string) *time.Time {
	state, err := s.states.Get(ctx, entityType, s.scopeID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("scheduler: failed to read sync state for %s, running full sync: %v", entityType, err)
		}
		return nil
	}
	return state.LastSyncPtr()
}

// backoff returns the delay before retry number attempt.
func (s *Scheduler) backoff(attempt int) time.Duration {
	delay := s.config.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if s.config.BackoffMax > 0 && delay >= s.config.BackoffMax {
			return s.config.BackoffMax
		}
	}
	if s.config.BackoffMax > 0 && delay > s.config.BackoffMax {
		return s.config.BackoffMax
	}
	return delay
}

// record updates the task and appends to its history.
func (s *Scheduler) record(ctx context.Context, result *domain.TaskResult) {
	// History must be written even when the run itself was cancelled.
	ctx = context.WithoutCancel(ctx)

	task, err := s.store.GetTask(ctx, result.TaskID)
	if err != nil {
		logger.Error("scheduler: failed to load task %s: %v", result.TaskID, err)
	}
	if task != nil {
		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)
		if result.Success {
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		} else {
			task.LastError = result.Error
		}
		if err := s.store.SaveTask(ctx, task); err != nil {
			logger.Error("scheduler: failed to save task %s: %v", task.ID, err)
		}
	}

	if err := s.store.RecordResult(ctx, result); err != nil {
		logger.Error("scheduler: failed to record result for %s: %v", result.TaskID, err)
	}
	if err := s.store.PruneHistory(ctx, historyRetention); err != nil {
		logger.Error("scheduler: failed to prune history: %v", err)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
