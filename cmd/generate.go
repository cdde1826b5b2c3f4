package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/constellation/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Classify every module and write manifests, context files and the dashboard",
	Long: `Runs the full pass: load the inventory, classify every module, write one
manifest per module per lane and context files for the selected modules,
validate the result, then write the dashboard, metrics, telemetry and run
history. Modules that fail are reported and do not stop the run.`,
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindFlags(cmd, map[string]string{
			"output_dir":         "output",
			"format":             "format",
			"workers":            "workers",
			"inventory_file":     "inventory",
			"rules_path":         "rules",
			"fail_on_violations": "fail-on-violations",
		})
	},
	RunE: runGenerate,
}

func init() {
	addRunFlags(generateCmd)
	generateCmd.Flags().Bool("dry-run", false, "classify and validate without writing anything")
	rootCmd.AddCommand(generateCmd)
}

// addRunFlags registers the flags shared by generate and watch.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "manifest output directory")
	cmd.Flags().String("format", "", "manifest format: json, yaml, toml")
	cmd.Flags().Int("workers", 0, "classification workers (default GOMAXPROCS)")
	cmd.Flags().String("inventory", "", "explicit inventory file instead of scanning lanes")
	cmd.Flags().String("rules", "", "star rules file")
	cmd.Flags().Bool("fail-on-violations", false, "exit non-zero when validation finds violations")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	ctx, cancel := setupSignalContext(s.printer)
	defer cancel()

	p := s.pipeline()
	p.DryRun, _ = cmd.Flags().GetBool("dry-run")

	out, err := p.Run(ctx)
	if out != nil {
		reportOutcome(s, out, p.DryRun)
	}
	if errors.Is(err, pipeline.ErrViolations) {
		return pipeline.ErrViolations
	}
	return err
}

// reportOutcome prints the operator summary of a run.
func reportOutcome(s *session, out *pipeline.Outcome, dryRun bool) {
	s.printer.RunStart(out.RunID, len(out.Modules), dryRun)
	s.printer.RunSummary(out.Dashboard)
	s.printer.FailureList(out.Dashboard.Failures)
	if !out.Validation.OK() {
		s.printer.ValidationResult(out.Validation)
	}
	if len(out.Removed) > 0 {
		s.printer.Info(fmt.Sprintf("removed %d stale output files", len(out.Removed)))
	}
	if out.DashboardFile != "" {
		s.printer.Info("dashboard: " + out.DashboardFile)
	}
}
