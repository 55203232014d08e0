package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/caresync/internal/adapters/driving/httpstatus"
	"github.com/custodia-labs/caresync/internal/adapters/driving/watch"
	"github.com/custodia-labs/caresync/internal/app"
	"github.com/custodia-labs/caresync/internal/logger"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled syncs in the foreground",
	Long: `Runs every entity sync on its configured interval until interrupted.

The daemon also serves /health, /status and /metrics on status.addr, and
with watch.enabled it syncs shortly after the app writes to the local
database. Set log.file to write a rotated log file instead of stderr.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if a.Config.LogFile != "" {
			closer := logger.ToFile(a.Config.LogFile)
			defer closer.Close()
		}
		if !a.Config.Scheduler.Enabled {
			return errors.New("scheduler is disabled; set scheduler.enabled = true")
		}

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		cmd.Printf("caresync daemon started for scope %s\n", a.Config.ScopeID)
		return runServices(ctx, a)
	})
}

// runServices runs the scheduler and its companions until ctx is cancelled
// or one of them fails.
func runServices(ctx context.Context, a *app.App) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.Scheduler.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if addr := a.Config.StatusAddr; addr != "" {
		server := httpstatus.New(addr, a.Config.ScopeID, a.Scheduler, a.Metrics.Registry())
		g.Go(func() error { return server.Serve(ctx) })
	}

	if a.Config.WatchLocal {
		w := watch.New(a.Store.Path(), watch.DefaultDebounce, func(ctx context.Context) error {
			return a.Scheduler.TriggerNow(ctx, "")
		})
		g.Go(func() error { return w.Run(ctx) })
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("daemon: shutting down")
		return a.Scheduler.Stop()
	})

	return g.Wait()
}
