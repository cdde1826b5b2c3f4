// Package report aggregates a generation run into the constellation
// dashboard and renders it in machine-readable formats.
package report

import (
	"math"

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/manifest"
	"github.com/papapumpkin/constellation/internal/star"
	"github.com/papapumpkin/constellation/internal/validate"
)

// Version is the dashboard document version.
const Version = 1

// Dashboard is the aggregate view of one run.
type Dashboard struct {
	Version          int    `json:"version" yaml:"version" toml:"version"`
	RunID            string `json:"run_id,omitempty" yaml:"run_id,omitempty" toml:"run_id,omitempty"`
	RulesFingerprint string `json:"rules_fingerprint,omitempty" yaml:"rules_fingerprint,omitempty" toml:"rules_fingerprint,omitempty"`
	GeneratedAt      string `json:"generated_at,omitempty" yaml:"generated_at,omitempty" toml:"generated_at,omitempty"`

	Totals       Totals       `json:"totals" yaml:"totals" toml:"totals"`
	Lanes        []LaneStats  `json:"lanes" yaml:"lanes" toml:"lanes"`
	Stars        []StarStats  `json:"stars" yaml:"stars" toml:"stars"`
	Tiers        []Bucket     `json:"tiers" yaml:"tiers" toml:"tiers"`
	Integrations []Bucket     `json:"integrations" yaml:"integrations" toml:"integrations"`
	Violations   []Bucket     `json:"violations" yaml:"violations" toml:"violations"`
	Failures     []FailureRow `json:"failures" yaml:"failures" toml:"failures"`
}

// Totals summarizes the run.
type Totals struct {
	Modules        int     `json:"modules" yaml:"modules" toml:"modules"`
	Manifests      int     `json:"manifests" yaml:"manifests" toml:"manifests"`
	Failures       int     `json:"failures" yaml:"failures" toml:"failures"`
	SuccessRate    float64 `json:"success_rate" yaml:"success_rate" toml:"success_rate"`
	ContextFiles   int     `json:"context_files" yaml:"context_files" toml:"context_files"`
	Violations     int     `json:"violations" yaml:"violations" toml:"violations"`
	Clusters       int     `json:"clusters" yaml:"clusters" toml:"clusters"`
	LargestCluster int     `json:"largest_cluster" yaml:"largest_cluster" toml:"largest_cluster"`
}

// LaneStats counts modules and outcomes for one lane.
type LaneStats struct {
	Lane      inventory.Lane `json:"lane" yaml:"lane" toml:"lane"`
	Modules   int            `json:"modules" yaml:"modules" toml:"modules"`
	Manifests int            `json:"manifests" yaml:"manifests" toml:"manifests"`
	Failures  int            `json:"failures" yaml:"failures" toml:"failures"`
}

// StarStats describes one star's share of the generated manifests.
type StarStats struct {
	Star          star.Star `json:"star" yaml:"star" toml:"star"`
	Domain        string    `json:"domain" yaml:"domain" toml:"domain"`
	Count         int       `json:"count" yaml:"count" toml:"count"`
	Percent       float64   `json:"percent" yaml:"percent" toml:"percent"`
	AvgConfidence float64   `json:"avg_confidence" yaml:"avg_confidence" toml:"avg_confidence"`
}

// Bucket is one entry of a distribution.
type Bucket struct {
	Name    string  `json:"name" yaml:"name" toml:"name"`
	Count   int     `json:"count" yaml:"count" toml:"count"`
	Percent float64 `json:"percent" yaml:"percent" toml:"percent"`
}

// FailureRow is a module whose manifest could not be generated.
type FailureRow struct {
	Lane  string `json:"lane" yaml:"lane" toml:"lane"`
	Path  string `json:"path" yaml:"path" toml:"path"`
	Error string `json:"error" yaml:"error" toml:"error"`
}

// Build aggregates a batch result, its validation and the number of context
// files written. val may be nil when validation was skipped.
func Build(res *manifest.Result, val *validate.Result, contexts int) *Dashboard {
	d := &Dashboard{
		Version:  Version,
		Failures: []FailureRow{},
	}
	if res == nil {
		res = &manifest.Result{}
	}

	d.Totals = Totals{
		Modules:      res.Attempted,
		Manifests:    len(res.Manifests),
		Failures:     len(res.Failures),
		SuccessRate:  round(res.SuccessRate(), 4),
		ContextFiles: contexts,
	}

	laneIdx := make(map[inventory.Lane]int)
	for i, l := range inventory.Lanes() {
		d.Lanes = append(d.Lanes, LaneStats{Lane: l})
		laneIdx[l] = i
	}
	for _, m := range res.Manifests {
		if i, ok := laneIdx[m.Lane]; ok {
			d.Lanes[i].Manifests++
			d.Lanes[i].Modules++
		}
	}
	for _, f := range res.Failures {
		if i, ok := laneIdx[f.Lane]; ok {
			d.Lanes[i].Failures++
			d.Lanes[i].Modules++
		}
		d.Failures = append(d.Failures, FailureRow{Lane: string(f.Lane), Path: f.Path, Error: f.Err.Error()})
	}

	d.Stars = starStats(res.Manifests)

	tierCounts := make(map[string]int)
	intCounts := make(map[string]int)
	for _, m := range res.Manifests {
		tierCounts[string(m.Tier)]++
		intCounts[string(m.Integration)]++
	}
	var tiers, integrations []string
	for _, t := range inventory.Tiers() {
		tiers = append(tiers, string(t))
	}
	for _, i := range inventory.Integrations() {
		integrations = append(integrations, string(i))
	}
	d.Tiers = buckets(tiers, tierCounts)
	d.Integrations = buckets(integrations, intCounts)

	var cats []string
	catCounts := make(map[string]int)
	for _, c := range validate.Categories() {
		cats = append(cats, string(c))
	}
	if val != nil {
		for c, n := range val.Counts() {
			catCounts[string(c)] = n
		}
		d.Totals.Violations = len(val.Violations)
	}
	d.Violations = buckets(cats, catCounts)

	clusters := validate.BuildGraph(res.Manifests).Components()
	d.Totals.Clusters = len(clusters)
	for _, c := range clusters {
		d.Totals.LargestCluster = max(d.Totals.LargestCluster, len(c))
	}
	return d
}

// starStats counts manifests per star in canonical order, with percentages
// of all manifests and mean confidence.
func starStats(ms []manifest.Manifest) []StarStats {
	stars := star.All()
	counts := make([]int, len(stars))
	sums := make([]float64, len(stars))
	idx := make(map[star.Star]int, len(stars))
	for i, s := range stars {
		idx[s] = i
	}
	for _, m := range ms {
		if i, ok := idx[m.Star]; ok {
			counts[i]++
			sums[i] += m.Confidence
		}
	}
	pct := Percentages(counts)
	out := make([]StarStats, len(stars))
	for i, s := range stars {
		out[i] = StarStats{Star: s, Domain: s.Domain(), Count: counts[i], Percent: pct[i]}
		if counts[i] > 0 {
			out[i].AvgConfidence = round(sums[i]/float64(counts[i]), 3)
		}
	}
	return out
}

// buckets builds a distribution over names in the given order.
func buckets(names []string, counts map[string]int) []Bucket {
	ns := make([]int, len(names))
	for i, n := range names {
		ns[i] = counts[n]
	}
	pct := Percentages(ns)
	out := make([]Bucket, len(names))
	for i, n := range names {
		out[i] = Bucket{Name: n, Count: ns[i], Percent: pct[i]}
	}
	return out
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// StarPercentTotal sums the star percentages in tenths and returns the
// result as a percentage.
func (d *Dashboard) StarPercentTotal() float64 {
	tenths := 0
	for _, s := range d.Stars {
		tenths += int(math.Round(s.Percent * 10))
	}
	return float64(tenths) / 10
}
