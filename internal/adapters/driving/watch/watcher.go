// Package watch triggers a sync when the app writes to the local database.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/caresync/internal/logger"
)

// DefaultDebounce is how long the database must stay quiet before a sync
// is triggered.
const DefaultDebounce = 2 * time.Second

// TriggerFunc starts a sync. It is called from the watcher goroutine and
// may block.
type TriggerFunc func(ctx context.Context) error

// Watcher watches a SQLite database file and its WAL for writes. Bursts of
// writes are debounced into a single trigger. Writes made while the
// trigger runs, and for one debounce period after, are ignored so the
// sync's own writes do not start another sync.
type Watcher struct {
	dir      string
	files    map[string]bool
	trigger  TriggerFunc
	debounce time.Duration
	now      func() time.Time
}

// New watches dbPath. A non-positive debounce uses DefaultDebounce.
func New(dbPath string, debounce time.Duration, trigger TriggerFunc) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	base := filepath.Base(dbPath)
	return &Watcher{
		dir:      filepath.Dir(dbPath),
		files:    map[string]bool{base: true, base + "-wal": true},
		trigger:  trigger,
		debounce: debounce,
		now:      time.Now,
	}
}

// Run watches until ctx is cancelled. Trigger errors are logged, not
// returned.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	logger.Info("watch: watching %s", w.dir)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var ignoreUntil time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) || w.now().Before(ignoreUntil) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)

		case <-timer.C:
			logger.Debug("watch: local change detected, syncing")
			if err := w.trigger(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				logger.Warn("watch: triggered sync: %v", err)
			}
			ignoreUntil = w.now().Add(w.debounce)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	return w.files[filepath.Base(event.Name)]
}
