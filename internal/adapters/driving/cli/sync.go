package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/caresync/internal/app"
	"github.com/custodia-labs/caresync/internal/core/domain"
)

var syncMedication int64

var syncCmd = &cobra.Command{
	Use:   "sync [entity-type...]",
	Short: "Synchronise local data with the shared database",
	Long: `Pushes local changes and pulls remote changes for the given entity types,
or for every entity type in dependency order when none are given.

With --medication, only the logs of that medication (by local id) are synced.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Int64Var(&syncMedication, "medication", 0, "sync only the logs of this medication")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if syncMedication != 0 {
			return syncMedicationLogs(ctx, cmd, a, syncMedication)
		}

		targets := args
		if len(targets) == 0 {
			targets = a.Registry.EntityTypes()
		}

		var failed []string
		for _, entityType := range targets {
			res, err := a.Scheduler.RunSync(ctx, entityType)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				cmd.Printf("%-18s error: %v\n", entityType, err)
				failed = append(failed, entityType)
				continue
			}
			printTaskResult(cmd, entityType, res)
			if !res.Success {
				failed = append(failed, entityType)
			}
		}

		if len(failed) > 0 {
			return fmt.Errorf("sync failed for %d of %d entity types", len(failed), len(targets))
		}
		return nil
	})
}

func syncMedicationLogs(ctx context.Context, cmd *cobra.Command, a *app.App, medicationID int64) error {
	entry, err := a.Identity.GetByLocalID(ctx, domain.EntityMedication, medicationID)
	if err != nil {
		return err
	}
	if entry == nil || entry.IsDeleted {
		return fmt.Errorf("%w: medication %d has not been synced", domain.ErrNotFound, medicationID)
	}

	result, err := a.Registry.MedicationLogs().SyncForScope(ctx, a.Config.ScopeID, entry.LocalID, entry.RemoteID, nil)
	if err != nil {
		return err
	}

	cmd.Printf("%-18s %s\n", domain.EntityMedicationLog, describeResult(result))
	if f, ok := result.(domain.Failure); ok {
		return f.Err
	}
	return nil
}

func printTaskResult(cmd *cobra.Command, entityType string, res *domain.TaskResult) {
	switch {
	case res.Success && res.ItemsFailed > 0:
		cmd.Printf("%-18s partial: %d synced, %d failed\n", entityType, res.ItemsProcessed, res.ItemsFailed)
	case res.Success:
		cmd.Printf("%-18s ok: %d synced\n", entityType, res.ItemsProcessed)
	default:
		cmd.Printf("%-18s failed (%s) after %d attempt(s): %s\n", entityType, res.ErrorKind, res.Attempts, res.Error)
	}
}

func describeResult(result domain.SyncResult) string {
	switch r := result.(type) {
	case domain.Success:
		return fmt.Sprintf("ok: %d uploaded, %d downloaded, %d conflicts", r.Uploaded, r.Downloaded, r.Conflicts)
	case domain.PartialSuccess:
		return fmt.Sprintf("partial: %d synced, %d failed", r.SuccessCount, len(r.FailedIDs))
	case domain.Failure:
		return fmt.Sprintf("failed (%s): %v", r.Err.Kind, r.Err.Err)
	default:
		return "unknown result"
	}
}
