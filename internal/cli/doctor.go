package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/example/requeue/internal/wire"
)

// CheckResult represents the outcome of a single environment check.
type CheckResult struct {
	Name    string
	Status  string // "✓", "⚠", "✗"
	Details string // Only shown if Status != "✓"
}

// DoctorCmd returns the doctor command for environment validation.
func DoctorCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate the requeue environment",
		Long: `Health check for the registry and its collaborators.

Validates:
- Config loads and is sane
- Registry database opens and its schema is current
- Scheduler CLI binaries are on PATH
- Planner output directory is writable

Examples:
  requeue doctor          # Full report
  requeue doctor --quiet  # Exit code only (0=healthy, 1=issues)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var results []CheckResult

			svcs, err := wire.Load(configFile)
			if err != nil {
				results = append(results, CheckResult{"config/registry", "✗", err.Error()})
			} else {
				results = append(results, CheckResult{"config", "✓", ""})
				results = append(results, checkRegistry(cmd.Context(), svcs))
				results = append(results, checkBinary("scheduler queue", svcs.Cfg.Scheduler.QueueBin))
				results = append(results, checkBinary("scheduler introspect", svcs.Cfg.Scheduler.IntrospectBin))
				results = append(results, checkOutputDir(svcs.Cfg.Planner.OutputDir))
			}

			hasErrors := false
			for _, r := range results {
				if r.Status == "✗" {
					hasErrors = true
				}
			}

			if !quiet {
				fmt.Println()
				fmt.Println("Check                  Status")
				fmt.Println("─────────────────────────────")
				for _, r := range results {
					fmt.Printf("%-22s %s\n", r.Name, r.Status)
				}
				fmt.Println()
				for _, r := range results {
					if r.Status != "✓" && r.Details != "" {
						fmt.Printf("%s:\n  %s\n", r.Name, r.Details)
					}
				}
			}

			if hasErrors {
				return fmt.Errorf("environment has issues")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Exit code only")
	return cmd
}

func checkRegistry(ctx context.Context, svcs *wire.Services) CheckResult {
	n, err := svcs.Registry.Count(ctx)
	if err != nil {
		return CheckResult{"registry", "✗", err.Error()}
	}
	if n == 0 {
		return CheckResult{"registry", "⚠", "registry is empty, run `requeue init <source-dir>`"}
	}
	return CheckResult{"registry", "✓", ""}
}

func checkBinary(name, bin string) CheckResult {
	if _, err := exec.LookPath(bin); err != nil {
		return CheckResult{name, "⚠", fmt.Sprintf("%s not on PATH: reconciliation will degrade to empty in-flight set", bin)}
	}
	return CheckResult{name, "✓", ""}
}

func checkOutputDir(dir string) CheckResult {
	info, err := os.Stat(dir)
	if err != nil {
		return CheckResult{"planner output dir", "✗", fmt.Sprintf("%s: %v", dir, err)}
	}
	if !info.IsDir() {
		return CheckResult{"planner output dir", "✗", dir + " is not a directory"}
	}
	return CheckResult{"planner output dir", "✓", ""}
}
