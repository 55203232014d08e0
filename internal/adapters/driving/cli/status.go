package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/caresync/internal/app"
	"github.com/custodia-labs/caresync/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sync state of every entity type",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		statuses, err := a.Scheduler.Status(ctx)
		if err != nil {
			return err
		}

		cmd.Printf("Scope: %s\n\n", a.Config.ScopeID)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ENTITY\tENABLED\tLAST SYNC\tLAST RESULT")
		for _, st := range statuses {
			entityType, _ := domain.EntityTypeFromTaskID(st.Task.ID)

			lastSync := "never"
			state, err := a.Store.SyncStateStore().Get(ctx, entityType, a.Config.ScopeID)
			if err == nil && !state.LastSync.IsZero() {
				lastSync = state.LastSync.Local().Format(time.DateTime)
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", entityType, yesNo(st.Task.Enabled), lastSync, lastResult(st.LastResult))
		}
		return w.Flush()
	})
}

func lastResult(res *domain.TaskResult) string {
	switch {
	case res == nil:
		return "-"
	case res.Success && res.ItemsFailed > 0:
		return fmt.Sprintf("partial (%d failed)", res.ItemsFailed)
	case res.Success:
		return fmt.Sprintf("ok (%d items)", res.ItemsProcessed)
	case res.ErrorKind != "":
		return fmt.Sprintf("failed: %s", res.ErrorKind)
	default:
		return "cancelled"
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
