package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/requeue/internal/models"
	"github.com/example/requeue/internal/wire"
)

// StatusCmd returns the status command.
func StatusCmd() *cobra.Command {
	var focusName string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show registry coverage per pipeline and per partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			focus, err := models.ParsePipeline(focusName)
			if err != nil {
				return err
			}
			svcs, err := wire.Load(configFile)
			if err != nil {
				return err
			}

			stats, err := svcs.Registry.Summary(cmd.Context(), focus)
			if err != nil {
				return fmt.Errorf("failed to summarize registry: %w", err)
			}

			fmt.Printf("Registry: %d items\n\n", stats.Total)
			for _, ps := range stats.Pipelines {
				marker := ""
				if ps.Pipeline == focus {
					marker = color.New(color.FgHiMagenta).Sprint(" ←")
				}
				fmt.Printf("  %-10s %8d done  (%5.1f%%)%s\n", ps.Pipeline, ps.Done, ps.Percent, marker)
			}

			if len(stats.Partitions) > 0 {
				fmt.Printf("\nPartitions (%s):\n", focus)
				w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
				fmt.Fprintln(w, "  PARTITION\tTOTAL\tDONE\tPCT")
				for _, p := range stats.Partitions {
					fmt.Fprintf(w, "  %s\t%d\t%d\t%.1f%%\n", p.PartitionKey, p.Total, p.Done, p.Percent)
				}
				w.Flush()
			}

			fmt.Printf("\ntotal=%d pipelines=%d partitions=%d\n", stats.Total, len(stats.Pipelines), len(stats.Partitions))
			return nil
		},
	}

	cmd.Flags().StringVarP(&focusName, "pipeline", "p", string(models.PipelineOddpub), "Pipeline for the partition breakdown")
	return cmd
}
