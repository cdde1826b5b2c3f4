// Package pipeline runs a full constellation pass: load the inventory,
// classify every module, write manifests and context files, validate, then
// publish the dashboard, metrics, telemetry and run history.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/papapumpkin/constellation/internal/config"
	"github.com/papapumpkin/constellation/internal/history"
	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/manifest"
	"github.com/papapumpkin/constellation/internal/metrics"
	"github.com/papapumpkin/constellation/internal/report"
	"github.com/papapumpkin/constellation/internal/star"
	"github.com/papapumpkin/constellation/internal/telemetry"
	"github.com/papapumpkin/constellation/internal/validate"
)

// ErrViolations is returned by Run when validation finds problems and the
// configuration asks for a failing exit.
var ErrViolations = errors.New("manifest validation failed")

// Pipeline holds everything needed for a run. Config paths are resolved
// against Config.Root unless absolute.
type Pipeline struct {
	Config  config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Collector // nil creates a fresh collector per run
	DryRun  bool               // classify and validate without writing anything

	now func() time.Time
}

// New returns a Pipeline for cfg.
func New(cfg config.Config, logger zerolog.Logger) *Pipeline {
	return &Pipeline{Config: cfg, Logger: logger, now: time.Now}
}

// Outcome is the result of one run.
type Outcome struct {
	RunID         string
	Rules         *star.RuleSet
	Modules       []inventory.Module
	Batch         *manifest.Result
	Validation    *validate.Result
	Dashboard     *report.Dashboard
	Written       []string // manifest files
	Contexts      []string // context files, or selected keys on a dry run
	Removed       []string // stale output files deleted by this run
	DashboardFile string   // empty on a dry run
	Took          time.Duration
}

// Path resolves a configured path against the root.
func (p *Pipeline) Path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Config.Root, rel)
}

func (p *Pipeline) clock() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}

// LoadRules reads the rule table. A missing file falls back to the built-in
// rules; a file that does not compile is an error.
func (p *Pipeline) LoadRules() (*star.RuleSet, error) {
	path := p.Path(p.Config.RulesPath)
	if path == "" {
		return star.DefaultRules(), nil
	}
	rs, err := star.LoadRules(path)
	if errors.Is(err, fs.ErrNotExist) {
		p.Logger.Warn().Str("path", path).Msg("rules file not found, using built-in rules")
		return star.DefaultRules(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	return rs, nil
}

// LoadModules builds the inventory from the configured inventory file, or by
// scanning the lane directories, and overlays fields maintained in
// previously written manifests.
func (p *Pipeline) LoadModules(ctx context.Context, rs *star.RuleSet) ([]inventory.Module, error) {
	var (
		modules []inventory.Module
		err     error
	)
	if p.Config.InventoryFile != "" {
		modules, err = inventory.LoadFile(p.Path(p.Config.InventoryFile))
	} else {
		sc := &inventory.Scanner{
			Root:              p.Config.Root,
			LaneDirs:          p.Config.LaneMap(),
			Extensions:        p.Config.Extensions,
			SignalKeywords:    mergeKeywords(p.Config.SignalKeywords, rs.Keywords()),
			IntegrationMarker: p.Config.IntegrationMarker,
		}
		modules, err = sc.Scan(ctx)
		for _, f := range sc.Skipped {
			p.Logger.Warn().Err(f.Err).Str("file", f.Path).Msg("source file left out of integration status")
		}
	}
	if err != nil {
		return nil, err
	}

	existing, err := manifest.LoadDir(p.Path(p.Config.OutputDir))
	if err != nil {
		p.Logger.Warn().Err(err).Msg("ignoring unreadable existing manifests")
		return modules, nil
	}
	return inventory.Overlay(modules, manifest.Modules(existing)), nil
}

// mergeKeywords returns the union of both keyword lists, lowercased.
func mergeKeywords(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, k := range list {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Classify runs the batch over modules without writing anything.
func (p *Pipeline) Classify(ctx context.Context, rs *star.RuleSet, modules []inventory.Module, obs manifest.Observer) (*manifest.Result, error) {
	cl := star.NewClassifier(rs)
	tier, err := inventory.ParseTier(p.Config.DefaultTier, inventory.DefaultTier)
	if err != nil {
		return nil, err
	}
	b := &manifest.Batch{
		Classifier: cl,
		Generator:  &manifest.Generator{Classifier: cl, DefaultTier: tier},
		Workers:    p.Config.Workers,
		Observer:   obs,
	}
	return b.Run(ctx, modules)
}

// Validator returns a validator resolving contracts under the configured
// contracts directory.
func (p *Pipeline) Validator() (*validate.Validator, error) {
	idx, err := validate.LoadContracts(p.Path(p.Config.ContractsDir))
	if err != nil {
		return nil, err
	}
	return validate.New(idx)
}

// contextPolicy builds the context selection policy from configuration.
func (p *Pipeline) contextPolicy() (manifest.ContextPolicy, error) {
	tiers, err := p.Config.ContextTierList()
	if err != nil {
		return manifest.ContextPolicy{}, err
	}
	return manifest.ContextPolicy{Tiers: tiers, MinConfidence: p.Config.ContextMinConfidence}, nil
}

// Run executes a complete pass.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	start := p.clock()
	out := &Outcome{RunID: history.NewRunID()}
	log := p.Logger.With().Str("run", out.RunID).Logger()

	rs, err := p.LoadRules()
	if err != nil {
		return nil, err
	}
	out.Rules = rs

	modules, err := p.LoadModules(ctx, rs)
	if err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}
	out.Modules = modules
	log.Info().Int("modules", len(modules)).Int("rules", len(rs.Rules)).Str("fingerprint", rs.Fingerprint()).Msg("inventory loaded")

	var em *telemetry.Emitter
	if !p.DryRun && p.Config.TelemetryDir != "" {
		em, err = telemetry.NewEmitter(telemetry.PathFor(p.Path(p.Config.TelemetryDir), out.RunID), out.RunID)
		if err != nil {
			return nil, err
		}
		defer em.Close()
	}
	em.Record(telemetry.KindRunStart, "", map[string]any{ //nolint:errcheck
		"modules": len(modules),
		"lanes":   laneCounts(modules),
		"rules":   rs.Fingerprint(),
		"format":  p.Config.Format,
	})

	col := p.Metrics
	if col == nil {
		col = metrics.New()
	}
	obs := &runObserver{log: log, emitter: em, metrics: col}

	res, err := p.Classify(ctx, rs, modules, obs)
	if err != nil {
		return nil, err
	}
	out.Batch = res
	for _, f := range res.Failures {
		log.Warn().Str("lane", string(f.Lane)).Str("path", f.Path).Err(f.Err).Msg("manifest not generated")
	}

	if !p.DryRun {
		if err := p.write(out, em); err != nil {
			return nil, err
		}
	} else {
		out.Contexts = p.selectContexts(res.Manifests)
	}

	v, err := p.Validator()
	if err != nil {
		return nil, err
	}
	out.Validation = v.Validate(res.Manifests)
	em.Record(telemetry.KindValidationDone, "", out.Validation.Counts()) //nolint:errcheck
	for _, viol := range out.Validation.Violations {
		log.Debug().Str("category", string(viol.Category)).Msg(viol.Error())
	}

	finished := p.clock()
	out.Took = finished.Sub(start)

	d := report.Build(res, out.Validation, len(out.Contexts))
	d.RunID = out.RunID
	d.RulesFingerprint = rs.Fingerprint()
	d.GeneratedAt = finished.UTC().Format(time.RFC3339)
	out.Dashboard = d
	col.ObserveDashboard(d, out.Took, finished)

	if !p.DryRun {
		if err := p.publish(ctx, out, start, finished, col); err != nil {
			return nil, err
		}
	}

	em.Record(telemetry.KindRunDone, "", d.Totals) //nolint:errcheck
	log.Info().
		Int("manifests", d.Totals.Manifests).
		Int("failures", d.Totals.Failures).
		Float64("success_rate", d.Totals.SuccessRate).
		Int("violations", d.Totals.Violations).
		Dur("took", out.Took).
		Msg("run complete")

	if p.Config.FailOnViolations && !out.Validation.OK() {
		return out, fmt.Errorf("%w: %w", ErrViolations, out.Validation.Err())
	}
	return out, nil
}
