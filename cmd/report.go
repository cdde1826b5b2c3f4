package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/constellation/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rebuild the dashboard from the manifests on disk",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindFlags(cmd, map[string]string{
			"output_dir":    "output",
			"report_format": "format",
		})
	},
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringP("output", "o", "", "manifest directory")
	reportCmd.Flags().String("format", "", fmt.Sprintf("dashboard format (%s)", strings.Join(report.FormatNames(), ", ")))
	reportCmd.Flags().Bool("save", false, "also write the dashboard file")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	p := s.pipeline()
	d, err := p.Report()
	if err != nil {
		return err
	}

	f, err := report.FormatByName(s.cfg.ReportFormat)
	if err != nil {
		return err
	}
	data, err := f.Render(d)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		path, err := p.SaveDashboard(d)
		if err != nil {
			return err
		}
		s.printer.Info("dashboard: " + path)
	}
	s.printer.RunSummary(d)
	return nil
}
