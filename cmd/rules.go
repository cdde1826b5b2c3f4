package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/constellation/internal/star"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and seed the star rules file",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Compile a rules file and report every problem",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRulesCheck,
}

var rulesInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the built-in rules to a new rules file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRulesInit,
}

func init() {
	rulesInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	rulesCmd.AddCommand(rulesCheckCmd, rulesInitCmd)
	rootCmd.AddCommand(rulesCmd)
}

// rulesPath returns the explicit argument or the configured rules file.
func rulesPath(s *session, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return s.pipeline().Path(s.cfg.RulesPath)
}

func runRulesCheck(_ *cobra.Command, args []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	path := rulesPath(s, args)
	rs, err := star.LoadRules(path)
	if err != nil {
		s.printer.RulesResult(path, 0, "", err)
		return fmt.Errorf("rules check failed")
	}
	s.printer.RulesResult(path, len(rs.Rules), rs.Fingerprint(), nil)
	return nil
}

func runRulesInit(cmd *cobra.Command, args []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	path := rulesPath(s, args)
	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	rs := star.DefaultRules()
	if err := rs.Save(path); err != nil {
		return err
	}
	s.printer.RulesResult(path, len(rs.Rules), rs.Fingerprint(), nil)
	return nil
}
