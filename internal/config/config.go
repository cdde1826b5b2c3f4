// Package config loads runtime configuration for constellation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/manifest"
	"github.com/papapumpkin/constellation/internal/report"
)

// ErrInvalid is wrapped by every configuration validation error.
var ErrInvalid = errors.New("invalid configuration")

// LaneDirs maps each lane to its directory relative to Root.
type LaneDirs struct {
	Candidate string `mapstructure:"candidate"`
	Lukhas    string `mapstructure:"lukhas"`
	Core      string `mapstructure:"core"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Config holds all runtime configuration for a run.
// Values are populated from .constellation.yaml, CONSTELLATION_* env vars,
// and CLI flags.
type Config struct {
	Root              string   `mapstructure:"root"`
	Lanes             LaneDirs `mapstructure:"lanes"`
	InventoryFile     string   `mapstructure:"inventory_file"`
	Extensions        []string `mapstructure:"extensions"`
	SignalKeywords    []string `mapstructure:"signal_keywords"`
	IntegrationMarker string   `mapstructure:"integration_marker"`

	RulesPath   string `mapstructure:"rules_path"`
	DefaultTier string `mapstructure:"default_tier"`
	Workers     int    `mapstructure:"workers"`

	OutputDir            string   `mapstructure:"output_dir"`
	Format               string   `mapstructure:"format"`
	ContextTiers         []string `mapstructure:"context_tiers"`
	ContextMinConfidence float64  `mapstructure:"context_min_confidence"`

	ContractsDir     string `mapstructure:"contracts_dir"`
	FailOnViolations bool   `mapstructure:"fail_on_violations"`

	DashboardFile string `mapstructure:"dashboard_file"`
	ReportFormat  string `mapstructure:"report_format"`
	HistoryDB     string `mapstructure:"history_db"`
	HistoryKeep   int    `mapstructure:"history_keep"`
	TelemetryDir  string `mapstructure:"telemetry_dir"`
	MetricsFile   string `mapstructure:"metrics_file"`

	LogLevel string      `mapstructure:"log_level"`
	LogJSON  bool        `mapstructure:"log_json"`
	Verbose  bool        `mapstructure:"verbose"`
	Watch    WatchConfig `mapstructure:"watch"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags, and validates the
// result.
func Load() (Config, error) {
	viper.SetDefault("root", ".")
	viper.SetDefault("lanes.candidate", "candidate")
	viper.SetDefault("lanes.lukhas", "lukhas")
	viper.SetDefault("lanes.core", "core")
	viper.SetDefault("inventory_file", "")
	viper.SetDefault("extensions", []string{".py", ".go"})
	viper.SetDefault("signal_keywords", []string{})
	viper.SetDefault("integration_marker", "matriz")
	viper.SetDefault("rules_path", "configs/star_rules.json")
	viper.SetDefault("default_tier", string(inventory.DefaultTier))
	viper.SetDefault("workers", 0)
	viper.SetDefault("output_dir", "manifests")
	viper.SetDefault("format", string(manifest.FormatJSON))
	viper.SetDefault("context_tiers", []string{"T1", "T2"})
	viper.SetDefault("context_min_confidence", 0.8)
	viper.SetDefault("contracts_dir", "contracts")
	viper.SetDefault("fail_on_violations", false)
	viper.SetDefault("dashboard_file", ".constellation/dashboard.json")
	viper.SetDefault("report_format", "json")
	viper.SetDefault("history_db", ".constellation/history.db")
	viper.SetDefault("history_keep", 50)
	viper.SetDefault("telemetry_dir", ".constellation/telemetry")
	viper.SetDefault("metrics_file", ".constellation/metrics.prom")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
	viper.SetDefault("verbose", false)
	viper.SetDefault("watch.debounce", 500*time.Millisecond)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated and ranged values.
func (c Config) Validate() error {
	var errs []error
	if _, err := manifest.ParseFormat(c.Format); err != nil {
		errs = append(errs, fmt.Errorf("format: %w", err))
	}
	if _, err := report.FormatByName(c.ReportFormat); err != nil {
		errs = append(errs, fmt.Errorf("report_format: %w", err))
	}
	if _, err := inventory.ParseTier(c.DefaultTier, inventory.DefaultTier); err != nil {
		errs = append(errs, fmt.Errorf("default_tier: %w", err))
	}
	if _, err := c.ContextTierList(); err != nil {
		errs = append(errs, err)
	}
	if c.ContextMinConfidence < 0 || c.ContextMinConfidence > 1 {
		errs = append(errs, fmt.Errorf("context_min_confidence must be within [0,1], got %v", c.ContextMinConfidence))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.HistoryKeep < 0 {
		errs = append(errs, fmt.Errorf("history_keep must be >= 0, got %d", c.HistoryKeep))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must be >= 0, got %s", c.Watch.Debounce))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// LaneMap returns the lane directories keyed by lane, skipping blanks.
func (c Config) LaneMap() map[inventory.Lane]string {
	out := make(map[inventory.Lane]string, 3)
	for lane, dir := range map[inventory.Lane]string{
		inventory.LaneCandidate: c.Lanes.Candidate,
		inventory.LaneLukhas:    c.Lanes.Lukhas,
		inventory.LaneCore:      c.Lanes.Core,
	} {
		if d := strings.TrimSpace(dir); d != "" {
			out[lane] = d
		}
	}
	return out
}

// ContextTierList parses ContextTiers.
func (c Config) ContextTierList() ([]inventory.Tier, error) {
	out := make([]inventory.Tier, 0, len(c.ContextTiers))
	for _, s := range c.ContextTiers {
		t, err := inventory.ParseTier(s, "")
		if err != nil {
			return nil, fmt.Errorf("context_tiers: %w", err)
		}
		if t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}
