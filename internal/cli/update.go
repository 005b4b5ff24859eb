package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/requeue/internal/models"
	"github.com/example/requeue/internal/wire"
)

// UpdateCmd returns the update command.
func UpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <pipeline> <output-dir|file>...",
		Short: "Ingest one pipeline's output artifacts into the registry",
		Long: `Scan the given locations for the pipeline's output artifacts (CSV/TSV
with an identifier column) and mark the found items complete. Safe to
re-run: flags only ever transition to done.

Examples:
  requeue update oddpub /scratch/oddpub/results
  requeue update xml extracted_batch1.csv extracted_batch2.csv`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := models.ParsePipeline(args[0])
			if err != nil {
				return err
			}
			svcs, err := wire.Load(configFile)
			if err != nil {
				return err
			}

			report, err := svcs.Updater.Update(cmd.Context(), pipeline, args[1:])
			if err != nil {
				if errors.Is(err, models.ErrNoWork) {
					fmt.Printf("Nothing to do: %v\n", err)
					return nil
				}
				return fmt.Errorf("update failed: %w", err)
			}

			fmt.Printf("✓ Updated %s\n", pipeline)
			fmt.Printf("  artifacts=%d skipped_artifacts=%d found=%d matched=%d flipped=%d enriched=%d invalid_ids=%d\n",
				report.ArtifactsScanned, report.ArtifactsSkipped, report.Found,
				report.Matched, report.Flipped, report.Enriched, report.InvalidIDs)
			if report.LowMatchRate {
				color.New(color.FgYellow).Printf("  ⚠ low match rate (%d/%d): artifact ids barely overlap the registry, check provenance\n",
					report.Matched, report.Found)
			}
			return nil
		},
	}
	return cmd
}
