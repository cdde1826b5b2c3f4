package inventory

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeFile creates a file with content under root, creating parents.
func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}

func TestScanDiscoversModulesPerLane(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "candidate/consciousness/dream/engine.py", "import matriz\nclass DreamEngine: pass\n")
	writeFile(t, root, "candidate/consciousness/dream/util.py", "def helper(): pass\n")
	writeFile(t, root, "candidate/memory/fold.py", "# memory fold\n")
	writeFile(t, root, "candidate/memory/README.md", "not a source file")
	writeFile(t, root, "candidate/memory/__pycache__/fold.cpython.py", "cached")
	writeFile(t, root, "lukhas/identity/auth.py", "from matriz import node\n")
	writeFile(t, root, "core/archive/old/thing.py", "pass\n")

	s := &Scanner{
		Root: root,
		LaneDirs: map[Lane]string{
			LaneCandidate: "candidate",
			LaneLukhas:    "lukhas",
			LaneCore:      "core",
		},
		SignalKeywords: []string{"Dream", "memory"},
	}

	modules, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []Module{
		{
			Path:        "consciousness/dream",
			Lane:        LaneCandidate,
			Files:       []string{"engine.py", "util.py"},
			Integration: IntegrationPartial,
			Signals:     []string{"dream"},
		},
		{
			Path:        "memory",
			Lane:        LaneCandidate,
			Files:       []string{"fold.py"},
			Integration: IntegrationNone,
			Signals:     []string{"memory"},
		},
		{
			Path:        "identity",
			Lane:        LaneLukhas,
			Files:       []string{"auth.py"},
			Integration: IntegrationFull,
		},
		{
			Path:        "archive/old",
			Lane:        LaneCore,
			Files:       []string{"thing.py"},
			Integration: IntegrationNone,
			Archived:    true,
		},
	}
	if diff := cmp.Diff(want, modules); diff != "" {
		t.Errorf("Scan mismatch (-want +got):\n%s", diff)
	}
}

func TestScanMissingLaneDir(t *testing.T) {
	t.Parallel()

	s := &Scanner{
		Root:     t.TempDir(),
		LaneDirs: map[Lane]string{LaneCore: "does-not-exist"},
	}
	modules, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(modules) != 0 {
		t.Errorf("modules = %d, want 0", len(modules))
	}
}

func TestScanFilesInLaneRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "core/__init__.py", "")

	s := &Scanner{Root: root, LaneDirs: map[Lane]string{LaneCore: "core"}}
	modules, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(modules) != 1 || modules[0].Path != "core" {
		t.Fatalf("modules = %+v, want single module named after the lane", modules)
	}
}

func TestScanCancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "core/a/a.py", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Scanner{Root: root, LaneDirs: map[Lane]string{LaneCore: "core"}}
	if _, err := s.Scan(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestScanSkipsOversizedFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "core/big/big.py", "memory memory memory memory memory\n")

	s := &Scanner{
		Root:           root,
		LaneDirs:       map[Lane]string{LaneCore: "core"},
		SignalKeywords: []string{"memory"},
		MaxSignalBytes: 8,
	}
	modules, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(modules) != 1 {
		t.Fatalf("modules = %d, want 1", len(modules))
	}
	if len(modules[0].Signals) != 0 {
		t.Errorf("signals = %v, want none for oversized file", modules[0].Signals)
	}
	if modules[0].Integration != IntegrationNone {
		t.Errorf("integration = %s, want none when no file was read", modules[0].Integration)
	}
	if len(s.Skipped) != 1 || !errors.Is(s.Skipped[0].Err, ErrFileTooLarge) {
		t.Errorf("skipped = %v, want the oversized file", s.Skipped)
	}
}

func TestScanLeavesUnreadFilesOutOfIntegration(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "core/fold/a.py", "import matriz\n")
	writeFile(t, root, "core/fold/b.py", "0123456789abcdef")                            // one line filling the buffer
	writeFile(t, root, "core/fold/c.py", "# matriz is mentioned past the read limit\n") // oversized

	s := &Scanner{
		Root:           root,
		LaneDirs:       map[Lane]string{LaneCore: "core"},
		MaxSignalBytes: 16,
	}
	modules, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(modules) != 1 {
		t.Fatalf("modules = %d, want 1", len(modules))
	}
	if got := modules[0].Integration; got != IntegrationFull {
		t.Errorf("integration = %s, want full", got)
	}

	var skipped []string
	for _, f := range s.Skipped {
		skipped = append(skipped, filepath.Base(f.Path))
	}
	if diff := cmp.Diff([]string{"b.py", "c.py"}, skipped); diff != "" {
		t.Fatalf("skipped (-want +got):\n%s", diff)
	}
	if !errors.Is(s.Skipped[0].Err, bufio.ErrTooLong) {
		t.Errorf("b.py err = %v, want bufio.ErrTooLong", s.Skipped[0].Err)
	}
	if !errors.Is(s.Skipped[1].Err, ErrFileTooLarge) {
		t.Errorf("c.py err = %v, want ErrFileTooLarge", s.Skipped[1].Err)
	}

	// A later scan starts from a clean list.
	writeFile(t, root, "core/fold/b.py", "matriz\n")
	if err := os.Remove(filepath.Join(root, "core", "fold", "c.py")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if len(s.Skipped) != 0 {
		t.Errorf("skipped after rescan = %v, want none", s.Skipped)
	}
}
