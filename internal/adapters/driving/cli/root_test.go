package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	remotemem "github.com/custodia-labs/caresync/internal/adapters/driven/remote/memory"
	"github.com/custodia-labs/caresync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/caresync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/caresync/internal/app"
	"github.com/custodia-labs/caresync/internal/core/domain"
)

// setupCLI points the commands at a temporary database and an in-memory
// remote. The returned function opens the same app for assertions.
func setupCLI(t *testing.T, remote *remotemem.RemoteStore) (*memory.ConfigStore, func() *app.App) {
	t.Helper()

	dataDir := t.TempDir()
	store := memory.NewConfigStore(map[string]any{
		"scope_id": "fam",
		"data_dir": dataDir,
	})

	oldStore, oldOpen, oldEnv := configStore, openApp, envFile
	configStore = store
	envFile = ""
	openApp = func(_ context.Context, cfg domain.AppConfig) (*app.App, error) {
		local, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return app.New(cfg, local, remote)
	}
	t.Cleanup(func() {
		configStore, openApp, envFile = oldStore, oldOpen, oldEnv
		syncMedication = 0
		mappingsIncludeDeleted = false
	})

	open := func() *app.App {
		cfg := domain.DefaultAppConfig()
		cfg.ScopeID = "fam"
		cfg.DataDir = dataDir
		a, err := openApp(context.Background(), cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close() })
		return a
	}
	return store, open
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
