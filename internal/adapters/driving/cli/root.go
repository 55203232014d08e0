// Package cli implements the caresync command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/caresync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/caresync/internal/app"
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/logger"
)

var (
	version = "dev"
	verbose bool
	envFile string
)

// Dependencies set by Configure. openApp is replaced in tests.
var (
	configStore driven.ConfigStore
	openApp     = app.Open
)

var rootCmd = &cobra.Command{
	Use:   "caresync",
	Short: "Sync caregiver data between devices",
	Long: `caresync keeps a caregiver app's local database in step with a shared
CouchDB database so every device in a care circle sees the same medications,
logs, tasks, appointments, notes, contacts and insurance policies.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")
}

// Configure sets the config store and the build version.
func Configure(store driven.ConfigStore, buildVersion string) {
	configStore = store
	if buildVersion != "" {
		version = buildVersion
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig resolves the application configuration and applies the
// verbose setting from it.
func loadConfig() (domain.AppConfig, error) {
	if configStore == nil {
		return domain.AppConfig{}, errors.New("config store not configured")
	}
	cfg, err := file.Load(configStore, envFile)
	if err != nil {
		return domain.AppConfig{}, err
	}
	if cfg.Verbose {
		logger.SetVerbose(true)
	}
	return cfg, nil
}

// withApp opens the application for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing: %v", err)
		}
	}()

	return fn(ctx, a)
}
