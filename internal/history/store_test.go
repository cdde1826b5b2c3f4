package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/manifest"
	"github.com/papapumpkin/constellation/internal/star"
)

// testStore creates a temporary history database and registers cleanup.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open(%q): %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func manifests(pairs ...string) []manifest.Manifest {
	var out []manifest.Manifest
	for i := 0; i+2 < len(pairs); i += 3 {
		out = append(out, manifest.Manifest{
			Lane:       inventory.Lane(pairs[i]),
			Path:       pairs[i+1],
			Star:       star.Star(pairs[i+2]),
			Confidence: 0.5,
		})
	}
	return out
}

func TestOpenWAL(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestRecordAndQuery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := testStore(t)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ms := manifests(
		"core", "memory", "Trail",
		"core", "identity", "Anchor",
		"lukhas", "memory", "Trail",
	)
	id, err := s.Record(ctx, Run{
		StartedAt:        start,
		FinishedAt:       start.Add(time.Second),
		RulesFingerprint: "abc",
		Modules:          4,
		Manifests:        3,
		Failures:         1,
		SuccessRate:      0.75,
	}, ms)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id == "" {
		t.Fatal("Record returned empty run id")
	}

	run, err := s.Run(ctx, id)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !run.StartedAt.Equal(start) || run.SuccessRate != 0.75 || run.RulesFingerprint != "abc" {
		t.Errorf("run = %+v", run)
	}
	if run.Stars[star.Trail] != 2 || run.Stars[star.Anchor] != 1 || run.Stars[star.Flow] != 0 {
		t.Errorf("stars = %v", run.Stars)
	}
	if len(run.Stars) != len(star.All()) {
		t.Errorf("stars has %d entries, want every star", len(run.Stars))
	}

	got, err := s.Assignments(ctx, id)
	if err != nil {
		t.Fatalf("Assignments: %v", err)
	}
	want := []Assignment{
		{Lane: "core", Path: "identity", Star: star.Anchor, Confidence: 0.5},
		{Lane: "core", Path: "memory", Star: star.Trail, Confidence: 0.5},
		{Lane: "lukhas", Path: "memory", Star: star.Trail, Confidence: 0.5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assignments mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Run(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Run(missing) = %v, want ErrRunNotFound", err)
	}
}

func TestRunsNewestFirstAndPrune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := testStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		id, err := s.Record(ctx, Run{StartedAt: at, FinishedAt: at}, nil)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		ids = append(ids, id)
	}

	runs, err := s.Runs(ctx, 2)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("Runs(2) = %v, want newest two", runs)
	}

	n, err := s.Prune(ctx, 1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned = %d, want 2", n)
	}
	all, err := s.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(all) != 1 || all[0].ID != ids[2] {
		t.Errorf("remaining runs = %v, want only newest", all)
	}
}

func TestDrift(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := testStore(t)
	now := time.Now()

	first, err := s.Record(ctx, Run{StartedAt: now, FinishedAt: now}, manifests(
		"core", "memory", "Trail",
		"core", "vision", "Horizon",
		"core", "legacy", "Supporting",
	))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	same, err := s.Record(ctx, Run{StartedAt: now, FinishedAt: now}, manifests(
		"core", "memory", "Trail",
		"core", "vision", "Horizon",
		"core", "legacy", "Supporting",
	))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	changed, err := s.Record(ctx, Run{StartedAt: now, FinishedAt: now}, manifests(
		"core", "memory", "Trail",
		"core", "vision", "Oracle",
		"candidate", "api", "Flow",
	))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	rep, err := s.Drift(ctx, first, same)
	if err != nil {
		t.Fatalf("Drift: %v", err)
	}
	if len(rep.Changes) != 0 || rep.Unchanged != 3 {
		t.Errorf("identical runs drift = %+v, want none", rep)
	}

	rep, err = s.Drift(ctx, first, changed)
	if err != nil {
		t.Fatalf("Drift: %v", err)
	}
	want := []Change{
		{Lane: "candidate", Path: "api", To: star.Flow},
		{Lane: "core", Path: "legacy", From: star.Supporting},
		{Lane: "core", Path: "vision", From: star.Horizon, To: star.Oracle},
	}
	if diff := cmp.Diff(want, rep.Changes); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
	if re := rep.Reclassified(); len(re) != 1 || re[0].Path != "vision" {
		t.Errorf("reclassified = %v", re)
	}
	if !rep.Changes[0].Added() || !rep.Changes[1].Removed() {
		t.Error("added/removed flags wrong")
	}

	if _, err := s.Drift(ctx, first, "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Drift(unknown) = %v, want ErrRunNotFound", err)
	}
}
