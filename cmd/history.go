package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs, newest first",
	RunE:  runHistory,
}

var driftCmd = &cobra.Command{
	Use:   "drift [from-run] [to-run]",
	Short: "Show modules whose star changed between two runs",
	Long: `Compares the star assignments of two recorded runs. Without arguments the
two most recent runs are compared; with one argument that run is compared
against the most recent one.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runDrift,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of runs to show (0 for all)")
	rootCmd.AddCommand(historyCmd, driftCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := s.pipeline().OpenHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return err
	}
	s.printer.Runs(runs)
	return nil
}

func runDrift(cmd *cobra.Command, args []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := s.pipeline().OpenHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	from, to := "", ""
	switch len(args) {
	case 2:
		from, to = args[0], args[1]
	default:
		runs, err := store.Runs(ctx, 2)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			if len(runs) == 0 {
				return errors.New("no recorded runs")
			}
			from, to = args[0], runs[0].ID
			break
		}
		if len(runs) < 2 {
			return fmt.Errorf("drift needs two recorded runs, found %d", len(runs))
		}
		from, to = runs[1].ID, runs[0].ID
	}

	rep, err := store.Drift(ctx, from, to)
	if err != nil {
		return err
	}
	s.printer.Drift(rep)
	return nil
}
