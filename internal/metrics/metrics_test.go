package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/report"
	"github.com/papapumpkin/constellation/internal/star"
)

func sampleDashboard() *report.Dashboard {
	return &report.Dashboard{
		Totals: report.Totals{SuccessRate: 0.75, ContextFiles: 3, Clusters: 2},
		Lanes: []report.LaneStats{
			{Lane: inventory.LaneCore, Modules: 4, Manifests: 3, Failures: 1},
		},
		Stars: []report.StarStats{
			{Star: star.Trail, Domain: "memory", Count: 3, Percent: 100, AvgConfidence: 0.9},
		},
		Violations: []report.Bucket{{Name: "owner", Count: 2}},
	}
}

func TestObserveDashboard(t *testing.T) {
	t.Parallel()

	c := New()
	c.ObserveDashboard(sampleDashboard(), 1500*time.Millisecond, time.Unix(1700000000, 0))

	families, err := c.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				values[mf.GetName()] += m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				values[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}

	tests := []struct {
		name string
		want float64
	}{
		{"constellation_modules", 4},
		{"constellation_manifests", 3},
		{"constellation_manifest_failures", 1},
		{"constellation_star_modules", 3},
		{"constellation_success_ratio", 0.75},
		{"constellation_context_files", 3},
		{"constellation_violations", 2},
		{"constellation_dependency_clusters", 2},
		{"constellation_runs_total", 1},
		{"constellation_run_duration_seconds", 1.5},
		{"constellation_last_run_timestamp_seconds", 1700000000},
	}
	for _, tt := range tests {
		if got := values[tt.name]; got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	t.Parallel()

	a, b := New(), New()
	a.RunsTotal.Inc()
	families, err := b.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "constellation_runs_total" && mf.GetMetric()[0].GetCounter().GetValue() != 0 {
			t.Error("collectors share state")
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	c := New()
	c.ObserveDashboard(sampleDashboard(), time.Second, time.Now())
	c.ClassifyDuration.Observe(0.002)

	path := filepath.Join(t.TempDir(), "nested", "constellation.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`constellation_star_modules{domain="memory",star="Trail"} 3`,
		`constellation_module_duration_seconds_count 1`,
		"# HELP constellation_success_ratio",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}
}
