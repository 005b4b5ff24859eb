package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/requeue/internal/models"
	"github.com/example/requeue/internal/wire"
)

// InitCmd returns the init command.
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <source-dir>",
		Short: "Build the registry from authoritative file lists",
		Long: `Scan source-dir for authoritative file lists (CSV, one row per corpus
item) and register every item. Idempotent: re-running refreshes provenance
but never deletes rows or clears pipeline flags.

Examples:
  requeue init /corpus/oa_bulk/filelists
  requeue init ./testdata`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := wire.Load(configFile)
			if err != nil {
				return err
			}

			report, err := svcs.Registry.InitFromSourceLists(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, models.ErrNoWork) {
					fmt.Printf("Nothing to do: %v\n", err)
					return nil
				}
				return fmt.Errorf("init failed: %w", err)
			}

			fmt.Printf("✓ Registry initialized from %s\n", args[0])
			fmt.Printf("  lists=%d rows=%d inserted=%d updated=%d skipped=%d\n",
				report.ListsScanned, report.RowsRead, report.Inserted, report.Updated, report.Skipped)
			return nil
		},
	}
	return cmd
}
