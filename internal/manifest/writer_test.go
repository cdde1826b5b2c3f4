package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/star"
)

func sampleManifest(t *testing.T, path string, lane inventory.Lane) Manifest {
	t.Helper()
	g := &Generator{}
	man, err := g.Generate(inventory.Module{
		Path:      path,
		Lane:      lane,
		Tier:      inventory.TierT2,
		Owner:     "@team",
		Files:     []string{"a.py"},
		Contracts: []string{"contracts/a.json"},
	}, star.Assignment{Star: star.Trail, Confidence: 0.9, Rule: "memory", Reason: star.ReasonRule})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return man
}

func TestWriterFormatsLoadBack(t *testing.T) {
	t.Parallel()

	for _, f := range []Format{FormatJSON, FormatYAML, FormatTOML} {
		t.Run(string(f), func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			w := &Writer{Dir: dir, Format: f}
			core := sampleManifest(t, "memory/fold", inventory.LaneCore)
			cand := sampleManifest(t, "memory/fold", inventory.LaneCandidate)

			for _, m := range []Manifest{core, cand} {
				p, err := w.Write(m)
				if err != nil {
					t.Fatalf("Write: %v", err)
				}
				want := filepath.Join(dir, string(m.Lane), "memory", "fold", "module.manifest."+string(f))
				if p != want {
					t.Errorf("path = %s, want %s", p, want)
				}
			}

			loaded, err := LoadDir(dir)
			if err != nil {
				t.Fatalf("LoadDir: %v", err)
			}
			if diff := cmp.Diff([]Manifest{cand, core}, loaded); diff != "" {
				t.Errorf("loaded mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := &Writer{Dir: dir}
	if _, err := w.Write(sampleManifest(t, "identity", inventory.LaneCore)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "core", "identity"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLoadDirMissing(t *testing.T) {
	t.Parallel()

	ms, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil || ms != nil {
		t.Errorf("LoadDir(missing) = %v, %v; want nil, nil", ms, err)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	if f, err := ParseFormat(""); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if f, err := ParseFormat("YML"); err != nil || f != FormatYAML {
		t.Errorf("ParseFormat(YML) = %q, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestContextPolicyAndWrite(t *testing.T) {
	t.Parallel()

	p := DefaultContextPolicy()
	base := sampleManifest(t, "memory", inventory.LaneCore)

	tests := []struct {
		name string
		mod  func(m *Manifest)
		want bool
	}{
		{"tier T2", func(m *Manifest) {}, true},
		{"tier T4 high confidence", func(m *Manifest) { m.Tier = inventory.TierT4 }, true},
		{"tier T4 low confidence", func(m *Manifest) { m.Tier = inventory.TierT4; m.Confidence = 0.5 }, false},
		{"archived", func(m *Manifest) { m.Archived = true }, false},
		{"unknown star", func(m *Manifest) { m.Star = star.Unknown }, false},
	}
	for _, tt := range tests {
		m := base
		tt.mod(&m)
		if got := p.Selects(m); got != tt.want {
			t.Errorf("%s: Selects = %v, want %v", tt.name, got, tt.want)
		}
	}

	w := &Writer{Dir: t.TempDir()}
	path, err := w.WriteContext(base, []string{"api"})
	if err != nil {
		t.Fatalf("WriteContext: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var doc ContextDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if doc.Domain != "memory" || doc.Manifest != "module.manifest.json" {
		t.Errorf("doc domain/manifest = %q/%q", doc.Domain, doc.Manifest)
	}
	if len(doc.Dependents) != 1 || doc.Dependents[0] != "api" {
		t.Errorf("dependents = %v", doc.Dependents)
	}
}
