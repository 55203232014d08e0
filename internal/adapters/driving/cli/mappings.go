package cli

import (
	"context"
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/caresync/internal/app"
	"github.com/custodia-labs/caresync/internal/core/domain"
)

var mappingsIncludeDeleted bool

var mappingsCmd = &cobra.Command{
	Use:   "mappings <entity-type>",
	Short: "List the local to remote id mappings of an entity type",
	Args:  cobra.ExactArgs(1),
	RunE:  runMappings,
}

func init() {
	mappingsCmd.Flags().BoolVar(&mappingsIncludeDeleted, "deleted", false, "include soft-deleted mappings")
	rootCmd.AddCommand(mappingsCmd)
}

func runMappings(cmd *cobra.Command, args []string) error {
	entityType := args[0]
	if !slices.Contains(domain.EntityTypes(), entityType) {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedType, entityType)
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		entries, err := a.Identity.GetAllByType(ctx, entityType, mappingsIncludeDeleted)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			cmd.Printf("No %s have been synced.\n", entityType)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LOCAL ID\tREMOTE ID\tLAST SYNCED\tDELETED")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.LocalID, e.RemoteID, e.LastSyncedAt.Local().Format(time.DateTime), yesNo(e.IsDeleted))
		}
		return w.Flush()
	})
}
