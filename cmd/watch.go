package cmd

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/constellation/internal/metrics"
	"github.com/papapumpkin/constellation/internal/pipeline"
	"github.com/papapumpkin/constellation/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate manifests whenever sources or rules change",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindFlags(cmd, map[string]string{
			"output_dir":         "output",
			"format":             "format",
			"workers":            "workers",
			"inventory_file":     "inventory",
			"rules_path":         "rules",
			"fail_on_violations": "fail-on-violations",
			"watch.debounce":     "debounce",
		})
	},
	RunE: runWatch,
}

func init() {
	addRunFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", 0, "quiet period before a rerun (default 500ms)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	ctx, cancel := setupSignalContext(s.printer)
	defer cancel()

	p := s.pipeline()
	// One collector across reruns keeps the run counter cumulative.
	p.Metrics = metrics.New()

	w, err := watch.New(s.cfg.Watch.Debounce, watchMatcher(p))
	if err != nil {
		return err
	}
	for _, dir := range watchDirs(p) {
		if err := w.AddTree(dir); err != nil {
			return err
		}
	}
	for _, f := range []string{s.cfg.RulesPath, s.cfg.InventoryFile} {
		if f == "" {
			continue
		}
		if err := w.Add(filepath.Dir(p.Path(f))); err != nil {
			s.log.Warn().Err(err).Str("path", f).Msg("cannot watch file")
		}
	}
	w.Start()
	defer w.Stop()

	run := func() {
		out, err := p.Run(ctx)
		if out != nil {
			reportOutcome(s, out, false)
		}
		if err != nil && !errors.Is(err, pipeline.ErrViolations) && ctx.Err() == nil {
			s.printer.Error(err.Error())
		}
	}

	run()
	s.printer.Info("watching for changes (ctrl-c to stop)")
	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-w.Changes:
			if !ok {
				return nil
			}
			s.log.Info().Int("files", len(c.Paths)).Strs("paths", firstN(c.Paths, 5)).Msg("change detected")
			run()
		}
	}
}

// watchDirs lists the lane roots to watch recursively.
func watchDirs(p *pipeline.Pipeline) []string {
	var dirs []string
	for _, d := range p.Config.LaneMap() {
		dirs = append(dirs, p.Path(d))
	}
	return dirs
}

// watchMatcher matches source files, the rules file and the inventory file
// while ignoring everything a run writes.
func watchMatcher(p *pipeline.Pipeline) watch.Matcher {
	m := watch.Matcher{Extensions: p.Config.Extensions}
	for _, f := range []string{p.Config.RulesPath, p.Config.InventoryFile} {
		if f != "" {
			m.Files = append(m.Files, p.Path(f))
		}
	}
	for _, d := range []string{p.Config.OutputDir, p.Config.TelemetryDir, p.Config.HistoryDB, p.Config.MetricsFile, p.Config.DashboardFile} {
		if d != "" {
			m.Exclude = append(m.Exclude, p.Path(d))
		}
	}
	if len(m.Extensions) == 0 {
		m.Extensions = []string{".py", ".go"}
	}
	return m
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return append(s[:n:n], "...")
}
