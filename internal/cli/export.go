package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/requeue/internal/models"
	"github.com/example/requeue/internal/wire"
)

// ExportMissingCmd returns the export-missing command.
func ExportMissingCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export-missing <pipeline>",
		Short: "Dump the items still missing a pipeline as CSV",
		Long: `Write the registry rows whose flag for the pipeline is still unset, in
deterministic (partition, id) order. Use -o - for stdout.

Examples:
  requeue export-missing oddpub -o missing_oddpub.csv
  requeue export-missing xml -o -`,
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

			records, err := svcs.Registry.ExportMissing(cmd.Context(), pipeline)
			if err != nil {
				return fmt.Errorf("failed to query missing items: %w", err)
			}

			var out io.Writer = os.Stdout
			if outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}

			w := csv.NewWriter(out)
			if err := w.Write([]string{"id", "partition_key", "source_path"}); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			for _, rec := range records {
				if err := w.Write([]string{rec.ID, rec.PartitionKey, rec.SourcePath}); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return fmt.Errorf("failed to flush export: %w", err)
			}

			if outPath != "-" {
				fmt.Printf("✓ Exported %d missing items for %s to %s\n", len(records), pipeline, outPath)
			}
			fmt.Fprintf(os.Stderr, "missing=%d\n", len(records))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file ('-' for stdout)")
	cmd.MarkFlagRequired("output")
	return cmd
}
