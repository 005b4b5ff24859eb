package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/requeue/internal/models"
	"github.com/example/requeue/internal/ports/primary"
	"github.com/example/requeue/internal/wire"
)

// GenerateRetryCmd returns the generate-retry command.
func GenerateRetryCmd() *cobra.Command {
	var (
		batchSize   int
		parallelism int
		outputDir   string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "generate-retry <pipeline>",
		Short: "Plan retry batches for a pipeline's missing items",
		Long: `Compute the items still missing the pipeline, subtract work already
queued or running in the scheduler, and write bounded-size work manifests
plus a submission file packing up to --parallelism manifests per line.

Planning is side-effect free: --dry-run reports counts without writing.

Examples:
  requeue generate-retry oddpub --batch-size 500 --parallelism 4
  requeue generate-retry xml --batch-size 200 --parallelism 8 --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := models.ParsePipeline(args[0])
			if err != nil {
				return err
			}
			svcs, err := wire.Load(configFile)
			if err != nil {
				return err
			}
			if outputDir == "" {
				outputDir = svcs.Cfg.Planner.OutputDir
			}

			report, err := svcs.Planner.PlanRetry(cmd.Context(), primary.PlanRequest{
				Pipeline:    pipeline,
				BatchSize:   batchSize,
				Parallelism: parallelism,
				OutputDir:   outputDir,
				DryRun:      dryRun,
			})
			if err != nil {
				return fmt.Errorf("retry planning failed: %w", err)
			}

			switch {
			case report.Missing == 0:
				fmt.Printf("Nothing to do: all items complete for %s\n", pipeline)
			case report.Candidates == 0:
				fmt.Printf("All %d missing items already in flight for %s\n", report.Missing, pipeline)
			case dryRun:
				fmt.Printf("Dry run for %s: would write %d manifests in %d submission lines\n",
					pipeline, report.Batches, report.SubmissionLines)
			default:
				fmt.Printf("✓ Retry plan for %s written to %s\n", pipeline, report.RunDir)
				fmt.Printf("  submission file: %s\n", report.SubmissionPath)
			}

			if report.Degraded {
				color.New(color.FgYellow).Println("  ⚠ scheduler unavailable: planned without in-flight exclusion, already-queued work may be resubmitted")
			}
			fmt.Printf("missing=%d in_flight=%d candidates=%d batches=%d lines=%d\n",
				report.Missing, report.InFlight, report.Candidates, report.Batches, report.SubmissionLines)
			return nil
		},
	}

	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 500, "Maximum items per work manifest")
	cmd.Flags().IntVarP(&parallelism, "parallelism", "k", 4, "Maximum manifests per submission line")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Parent directory for the run (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report counts only, write nothing")
	return cmd
}
