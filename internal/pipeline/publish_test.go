package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunRemovesStaleOutput(t *testing.T) {
	t.Parallel()

	root := testRepo(t)
	cfg := testConfig(root)
	ctx := context.Background()

	first, err := newTestPipeline(cfg).Run(ctx)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if len(first.Written) != 4 || len(first.Removed) != 0 {
		t.Fatalf("first run wrote %d, removed %v", len(first.Written), first.Removed)
	}

	if err := os.RemoveAll(filepath.Join(root, "core", "utils")); err != nil {
		t.Fatal(err)
	}
	cfg.Format = "yaml"
	p := newTestPipeline(cfg)
	second, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(second.Written) != 3 {
		t.Errorf("second run wrote %d manifests, want 3", len(second.Written))
	}
	if len(second.Removed) != 4 {
		t.Errorf("removed %d files, want the 4 json manifests: %v", len(second.Removed), second.Removed)
	}

	out := filepath.Join(root, "manifests")
	err = filepath.WalkDir(out, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, ".json") {
			t.Errorf("stale json output left behind: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(out, "core", "utils")); !os.IsNotExist(err) {
		t.Errorf("removed module dir still present: %v", err)
	}

	res, err := p.ValidateDir()
	if err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
	if res.Checked != 3 || !res.OK() {
		t.Errorf("ValidateDir = %d checked, err %v", res.Checked, res.Err())
	}
	d, err := p.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if d.Totals.Manifests != 3 || d.Totals.ContextFiles != len(second.Contexts) {
		t.Errorf("report totals = %+v, contexts written %d", d.Totals, len(second.Contexts))
	}
}

func TestRunDryRunKeepsExistingOutput(t *testing.T) {
	t.Parallel()

	root := testRepo(t)
	cfg := testConfig(root)
	ctx := context.Background()
	first, err := newTestPipeline(cfg).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if err := os.RemoveAll(filepath.Join(root, "core", "utils")); err != nil {
		t.Fatal(err)
	}
	p := newTestPipeline(cfg)
	p.DryRun = true
	out, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("dry Run: %v", err)
	}
	if len(out.Removed) != 0 {
		t.Errorf("dry run removed %v", out.Removed)
	}
	for _, f := range first.Written {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("dry run touched %s: %v", f, err)
		}
	}
}
