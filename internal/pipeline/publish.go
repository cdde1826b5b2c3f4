package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/papapumpkin/constellation/internal/history"
	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/manifest"
	"github.com/papapumpkin/constellation/internal/metrics"
	"github.com/papapumpkin/constellation/internal/report"
	"github.com/papapumpkin/constellation/internal/telemetry"
	"github.com/papapumpkin/constellation/internal/validate"
)

// write persists manifests and context files.
func (p *Pipeline) write(out *Outcome, em *telemetry.Emitter) error {
	format, err := manifest.ParseFormat(p.Config.Format)
	if err != nil {
		return err
	}
	policy, err := p.contextPolicy()
	if err != nil {
		return err
	}
	w := &manifest.Writer{Dir: p.Path(p.Config.OutputDir), Format: format}
	g := validate.BuildGraph(out.Batch.Manifests)

	for _, m := range out.Batch.Manifests {
		path, err := w.Write(m)
		if err != nil {
			return err
		}
		out.Written = append(out.Written, path)
		em.Record(telemetry.KindManifestWritten, m.Key(), map[string]string{"path": path}) //nolint:errcheck

		if !policy.Selects(m) {
			continue
		}
		cpath, err := w.WriteContext(m, g.Dependents(m.Key()))
		if err != nil {
			return err
		}
		out.Contexts = append(out.Contexts, cpath)
		em.Record(telemetry.KindContextWritten, m.Key(), map[string]string{"path": cpath}) //nolint:errcheck
	}

	hold := make([]string, 0, len(out.Batch.Failures))
	for _, f := range out.Batch.Failures {
		if f.Path == "" || !filepath.IsLocal(filepath.FromSlash(f.Path)) {
			continue
		}
		hold = append(hold, w.ModuleDir(manifest.Manifest{Lane: f.Lane, Path: f.Path}))
	}
	removed, err := w.Prune(append(append([]string(nil), out.Written...), out.Contexts...), hold)
	out.Removed = removed
	for _, path := range removed {
		em.Record(telemetry.KindFileRemoved, "", map[string]string{"path": path}) //nolint:errcheck
	}
	if err != nil {
		return err
	}

	p.Logger.Info().
		Str("dir", w.Dir).
		Int("manifests", len(out.Written)).
		Int("contexts", len(out.Contexts)).
		Int("removed", len(removed)).
		Msg("manifests written")
	return nil
}

// selectContexts lists the modules that would receive a context file.
func (p *Pipeline) selectContexts(ms []manifest.Manifest) []string {
	policy, err := p.contextPolicy()
	if err != nil {
		return nil
	}
	var keys []string
	for _, m := range ms {
		if policy.Selects(m) {
			keys = append(keys, m.Key())
		}
	}
	return keys
}

// publish writes the dashboard and metrics and records the run in history.
func (p *Pipeline) publish(ctx context.Context, out *Outcome, start, finished time.Time, col *metrics.Collector) error {
	if p.Config.DashboardFile != "" {
		path, err := p.SaveDashboard(out.Dashboard)
		if err != nil {
			return err
		}
		out.DashboardFile = path
	}

	if p.Config.MetricsFile != "" {
		if err := col.WriteTextfile(p.Path(p.Config.MetricsFile)); err != nil {
			return err
		}
	}

	if p.Config.HistoryDB == "" {
		return nil
	}
	store, err := p.OpenHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	t := out.Dashboard.Totals
	if _, err := store.Record(ctx, history.Run{
		ID:               out.RunID,
		StartedAt:        start,
		FinishedAt:       finished,
		RulesFingerprint: out.Dashboard.RulesFingerprint,
		Modules:          t.Modules,
		Manifests:        t.Manifests,
		Failures:         t.Failures,
		SuccessRate:      t.SuccessRate,
		Violations:       t.Violations,
	}, out.Batch.Manifests); err != nil {
		return err
	}
	if p.Config.HistoryKeep > 0 {
		n, err := store.Prune(ctx, p.Config.HistoryKeep)
		if err != nil {
			return err
		}
		if n > 0 {
			p.Logger.Debug().Int("pruned", n).Msg("old runs pruned")
		}
	}
	return nil
}

// SaveDashboard renders d in the configured report format. The dashboard
// file extension follows the format.
func (p *Pipeline) SaveDashboard(d *report.Dashboard) (string, error) {
	f, err := report.FormatByName(p.Config.ReportFormat)
	if err != nil {
		return "", err
	}
	path := p.Path(p.Config.DashboardFile)
	path = strings.TrimSuffix(path, filepath.Ext(path)) + "." + f.Ext()
	if err := report.Save(d, f, path); err != nil {
		return "", err
	}
	return path, nil
}

// OpenHistory opens the run history database, creating its directory.
func (p *Pipeline) OpenHistory(ctx context.Context) (*history.Store, error) {
	path := p.Path(p.Config.HistoryDB)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: create dir for %s: %w", path, err)
	}
	return history.Open(ctx, path)
}

// LoadManifests reads every manifest under the output directory.
func (p *Pipeline) LoadManifests() ([]manifest.Manifest, error) {
	return manifest.LoadDir(p.Path(p.Config.OutputDir))
}

// ValidateDir validates the manifests already written to the output
// directory.
func (p *Pipeline) ValidateDir() (*validate.Result, error) {
	ms, err := p.LoadManifests()
	if err != nil {
		return nil, err
	}
	v, err := p.Validator()
	if err != nil {
		return nil, err
	}
	return v.Validate(ms), nil
}

// Report rebuilds the dashboard from the manifests on disk.
func (p *Pipeline) Report() (*report.Dashboard, error) {
	ms, err := p.LoadManifests()
	if err != nil {
		return nil, err
	}
	v, err := p.Validator()
	if err != nil {
		return nil, err
	}
	contexts, err := countContexts(p.Path(p.Config.OutputDir))
	if err != nil {
		return nil, err
	}
	res := &manifest.Result{Manifests: ms, Attempted: len(ms)}
	d := report.Build(res, v.Validate(ms), contexts)
	d.GeneratedAt = p.clock().UTC().Format(time.RFC3339)
	return d, nil
}

// countContexts counts context files below dir.
func countContexts(dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() && d.Name() == manifest.ContextFileName {
			n++
		}
		return nil
	})
	return n, err
}

func laneCounts(modules []inventory.Module) map[string]int {
	out := make(map[string]int)
	for _, m := range modules {
		out[string(m.Lane)]++
	}
	return out
}
