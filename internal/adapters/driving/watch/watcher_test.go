package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRelevant(t *testing.T) {
	w := New("/data/caresync.db", 0, nil)

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "db write", event: fsnotify.Event{Name: "/data/caresync.db", Op: fsnotify.Write}, want: true},
		{name: "wal write", event: fsnotify.Event{Name: "/data/caresync.db-wal", Op: fsnotify.Write}, want: true},
		{name: "wal create", event: fsnotify.Event{Name: "/data/caresync.db-wal", Op: fsnotify.Create}, want: true},
		{name: "shm write", event: fsnotify.Event{Name: "/data/caresync.db-shm", Op: fsnotify.Write}, want: false},
		{name: "other file", event: fsnotify.Event{Name: "/data/config.toml", Op: fsnotify.Write}, want: false},
		{name: "chmod", event: fsnotify.Event{Name: "/data/caresync.db", Op: fsnotify.Chmod}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.event))
		})
	}
}

func TestNew_DefaultDebounce(t *testing.T) {
	w := New("/data/caresync.db", 0, nil)
	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.Equal(t, "/data", w.dir)
}

func TestRun_DebouncesWrites(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "caresync.db")
	require.NoError(t, os.WriteFile(dbPath, nil, 0o600))

	var calls atomic.Int32
	w := New(dbPath, 50*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(dbPath, []byte{byte(i)}, 0o600))
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRun_MissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing", "caresync.db"), 0, func(context.Context) error { return nil })

	err := w.Run(context.Background())
	assert.Error(t, err)
}
