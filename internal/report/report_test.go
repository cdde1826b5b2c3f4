package report

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/manifest"
	"github.com/papapumpkin/constellation/internal/star"
	"github.com/papapumpkin/constellation/internal/validate"
)

func TestTenthsSumToWhole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		counts []int
		want   []int
	}{
		{"thirds", []int{1, 1, 1}, []int{334, 333, 333}},
		{"sevenths", []int{1, 2, 4}, []int{143, 286, 571}},
		{"zero entries", []int{0, 3, 0, 1}, []int{0, 750, 0, 250}},
		{"all zero", []int{0, 0}, []int{0, 0}},
		{"single", []int{9}, []int{1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, Tenths(tt.counts)); diff != "" {
				t.Errorf("Tenths(%v) mismatch (-want +got):\n%s", tt.counts, diff)
			}
		})
	}
}

func TestTenthsManyDistributions(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 40; n++ {
		counts := make([]int, 8)
		for i := 0; i < n; i++ {
			counts[(i*i+3*i)%8]++
		}
		sum := 0
		for _, u := range Tenths(counts) {
			sum += u
		}
		if sum != 1000 {
			t.Errorf("n=%d counts=%v: tenths sum = %d, want 1000", n, counts, sum)
		}
	}
}

func sampleResult(t *testing.T) *manifest.Result {
	t.Helper()
	g := &manifest.Generator{}
	add := func(res *manifest.Result, lane inventory.Lane, path string, s star.Star, conf float64, tier inventory.Tier, deps ...string) {
		m, err := g.Generate(inventory.Module{Path: path, Lane: lane, Tier: tier, DependsOn: deps},
			star.Assignment{Star: s, Confidence: conf, Reason: star.ReasonRule})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		res.Manifests = append(res.Manifests, m)
	}
	res := &manifest.Result{}
	add(res, inventory.LaneCandidate, "vision", star.Horizon, 0.8, "")
	add(res, inventory.LaneLukhas, "memory", star.Trail, 0.9, inventory.TierT2)
	add(res, inventory.LaneCore, "memory", star.Trail, 0.7, inventory.TierT1, "identity")
	add(res, inventory.LaneCore, "identity", star.Anchor, 1, inventory.TierT1)
	res.Failures = []manifest.Failure{{Path: "broken", Lane: inventory.LaneCore, Err: errors.New("bad tier")}}
	res.Attempted = 5
	return res
}

func TestBuild(t *testing.T) {
	t.Parallel()

	res := sampleResult(t)
	val := &validate.Result{Checked: 4, Violations: []validate.Violation{
		{Category: validate.CatOwner, Lane: inventory.LaneCore, Module: "memory", Err: validate.ErrMissingOwner},
	}}
	d := Build(res, val, 2)

	wantTotals := Totals{
		Modules:        5,
		Manifests:      4,
		Failures:       1,
		SuccessRate:    0.8,
		ContextFiles:   2,
		Violations:     1,
		Clusters:       3,
		LargestCluster: 2,
	}
	if diff := cmp.Diff(wantTotals, d.Totals); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}

	wantLanes := []LaneStats{
		{Lane: inventory.LaneCandidate, Modules: 1, Manifests: 1},
		{Lane: inventory.LaneLukhas, Modules: 1, Manifests: 1},
		{Lane: inventory.LaneCore, Modules: 3, Manifests: 2, Failures: 1},
	}
	if diff := cmp.Diff(wantLanes, d.Lanes); diff != "" {
		t.Errorf("lanes mismatch (-want +got):\n%s", diff)
	}

	if len(d.Stars) != len(star.All()) {
		t.Fatalf("stars = %d, want every star", len(d.Stars))
	}
	byStar := make(map[star.Star]StarStats)
	for _, s := range d.Stars {
		byStar[s.Star] = s
	}
	if s := byStar[star.Trail]; s.Count != 2 || s.Percent != 50 || s.AvgConfidence != 0.8 {
		t.Errorf("Trail = %+v, want count 2, 50%%, avg 0.8", s)
	}
	if s := byStar[star.Flow]; s.Count != 0 || s.Percent != 0 || s.AvgConfidence != 0 {
		t.Errorf("Flow = %+v, want zeros", s)
	}
	if got := d.StarPercentTotal(); got != 100 {
		t.Errorf("star percentages sum to %v, want 100", got)
	}

	if d.Tiers[0].Name != "T1" || d.Tiers[0].Count != 2 || d.Tiers[3].Count != 1 {
		t.Errorf("tiers = %+v", d.Tiers)
	}
	if d.Violations[1].Name != string(validate.CatOwner) || d.Violations[1].Count != 1 {
		t.Errorf("violations = %+v", d.Violations)
	}
	if len(d.Failures) != 1 || d.Failures[0].Path != "broken" {
		t.Errorf("failures = %+v", d.Failures)
	}
}

func TestBuildEmpty(t *testing.T) {
	t.Parallel()

	d := Build(nil, nil, 0)
	if d.Totals.SuccessRate != 1 {
		t.Errorf("success rate = %v, want 1", d.Totals.SuccessRate)
	}
	if d.StarPercentTotal() != 0 {
		t.Errorf("empty dashboard percentages = %v, want 0", d.StarPercentTotal())
	}
}

func TestStarPercentagesAlwaysSumTo100(t *testing.T) {
	t.Parallel()

	stars := star.All()
	g := &manifest.Generator{}
	for n := 1; n <= 25; n++ {
		res := &manifest.Result{Attempted: n}
		for i := 0; i < n; i++ {
			m, err := g.Generate(inventory.Module{Path: fmt.Sprintf("m%d", i), Lane: inventory.LaneCore},
				star.Assignment{Star: stars[(i*5)%len(stars)], Confidence: 0.5})
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			res.Manifests = append(res.Manifests, m)
		}
		if got := Build(res, nil, 0).StarPercentTotal(); got != 100 {
			t.Errorf("n=%d: star percentages sum to %v, want 100", n, got)
		}
	}
}

func TestFormats(t *testing.T) {
	t.Parallel()

	d := Build(sampleResult(t), nil, 1)
	d.RunID = "run-1"

	for _, name := range FormatNames() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f, err := FormatByName(name)
			if err != nil {
				t.Fatalf("FormatByName: %v", err)
			}
			data, err := f.Render(d)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if !bytes.Contains(data, []byte("run-1")) {
				t.Errorf("%s output missing run id:\n%s", name, data)
			}

			var back Dashboard
			switch name {
			case "toml":
				err = toml.Unmarshal(data, &back)
			case "yaml":
				err = yaml.Unmarshal(data, &back)
			default:
				path := filepath.Join(t.TempDir(), "dashboard."+f.Ext())
				if err := Save(d, f, path); err != nil {
					t.Fatalf("Save: %v", err)
				}
				loaded, lerr := Load(path)
				if lerr != nil {
					t.Fatalf("Load: %v", lerr)
				}
				back = *loaded
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if back.Totals != d.Totals {
				t.Errorf("totals = %+v, want %+v", back.Totals, d.Totals)
			}
		})
	}

	if _, err := FormatByName("markdown"); err == nil {
		t.Error("FormatByName(markdown) should fail")
	}
	if _, err := (JSONFormat{}).Render(nil); !errors.Is(err, ErrNilDashboard) {
		t.Errorf("Render(nil) = %v, want ErrNilDashboard", err)
	}
}
