package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/constellation/internal/pipeline"
	"github.com/papapumpkin/constellation/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the manifests in the output directory",
	Long: `Checks every written manifest against the manifest schema, resolves contract
references, looks for unknown and circular dependencies and requires an
owner on every T1 module. Exits non-zero when any violation is found.`,
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindFlags(cmd, map[string]string{
			"output_dir":    "output",
			"contracts_dir": "contracts",
		})
	},
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringP("output", "o", "", "manifest directory")
	validateCmd.Flags().String("contracts", "", "contracts directory")
	validateCmd.Flags().String("schema", "", "write the manifest JSON schema to this file and exit")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	if out, _ := cmd.Flags().GetString("schema"); out != "" {
		return writeSchema(out)
	}

	s, err := loadSession()
	if err != nil {
		return err
	}
	res, err := s.pipeline().ValidateDir()
	if err != nil {
		return err
	}
	s.printer.ValidationResult(res)
	for _, c := range validate.Categories() {
		if n := res.Counts()[c]; n > 0 {
			s.log.Debug().Str("category", string(c)).Int("count", n).Msg("violations")
		}
	}
	if !res.OK() {
		return fmt.Errorf("%w: %d violation(s)", pipeline.ErrViolations, len(res.Violations))
	}
	return nil
}

func writeSchema(path string) error {
	if err := os.WriteFile(path, validate.ManifestSchema(), 0o644); err != nil {
		return fmt.Errorf("writing schema: %w", err)
	}
	return nil
}
