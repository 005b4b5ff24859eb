package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/requeue/internal/cli"
	"github.com/example/requeue/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "requeue",
		Short:   "requeue - corpus processing registry and retry batch planner",
		Version: version.String(),
		Long: `requeue tracks which downstream pipelines have finished each corpus item
and plans the minimal resubmission when a pipeline run is incomplete:
missing items, minus work already queued in the scheduler, chunked into
bounded batches with one manifest per batch and a submission file.`,
	}

	rootCmd.PersistentFlags().StringVar(cli.ConfigFlagVar(), "config", "", "Config file (default $HOME/.requeue/config.yaml)")

	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.UpdateCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.GenerateRetryCmd())
	rootCmd.AddCommand(cli.ExportMissingCmd())
	rootCmd.AddCommand(cli.DoctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
