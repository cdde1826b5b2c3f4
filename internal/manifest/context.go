package manifest

import (
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/star"
)

// ContextFileName is the auxiliary document written for selected modules.
const ContextFileName = "module.context.yaml"

// ContextPolicy selects which manifests get a context file.
type ContextPolicy struct {
	Tiers         []inventory.Tier
	MinConfidence float64 // 0 disables the confidence criterion
}

// DefaultContextPolicy selects T1 and T2 modules and anything classified
// with at least 0.8 confidence.
func DefaultContextPolicy() ContextPolicy {
	return ContextPolicy{
		Tiers:         []inventory.Tier{inventory.TierT1, inventory.TierT2},
		MinConfidence: 0.8,
	}
}

// Selects reports whether m should get a context file. Archived and Unknown
// modules never do.
func (p ContextPolicy) Selects(m Manifest) bool {
	if m.Archived || m.Star == star.Unknown {
		return false
	}
	for _, t := range p.Tiers {
		if m.Tier == t {
			return true
		}
	}
	return p.MinConfidence > 0 && m.Confidence >= p.MinConfidence
}

// ContextDoc is the content of a module context file.
type ContextDoc struct {
	Module      string                `yaml:"module"`
	Path        string                `yaml:"path"`
	Lane        inventory.Lane        `yaml:"lane"`
	Star        star.Star             `yaml:"star"`
	Domain      string                `yaml:"domain"`
	Confidence  float64               `yaml:"confidence"`
	Tier        inventory.Tier        `yaml:"tier"`
	Integration inventory.Integration `yaml:"integration"`
	Owner       string                `yaml:"owner,omitempty"`
	Description string                `yaml:"description,omitempty"`
	Files       []string              `yaml:"files"`
	DependsOn   []string              `yaml:"depends_on,omitempty"`
	Dependents  []string              `yaml:"dependents,omitempty"`
	Contracts   []string              `yaml:"contracts,omitempty"`
	Manifest    string                `yaml:"manifest"`
}

// NewContextDoc describes m. dependents lists modules in the same lane that
// depend on m.
func NewContextDoc(m Manifest, dependents []string, manifestFile string) ContextDoc {
	m.normalize()
	return ContextDoc{
		Module:      m.Module,
		Path:        m.Path,
		Lane:        m.Lane,
		Star:        m.Star,
		Domain:      m.Star.Domain(),
		Confidence:  m.Confidence,
		Tier:        m.Tier,
		Integration: m.Integration,
		Owner:       m.Owner,
		Description: m.Description,
		Files:       m.Files,
		DependsOn:   m.DependsOn,
		Dependents:  dependents,
		Contracts:   m.Contracts,
		Manifest:    manifestFile,
	}
}

// ContextPath returns where the context file for m is written.
func (w *Writer) ContextPath(m Manifest) string {
	return filepath.Join(w.ModuleDir(m), ContextFileName)
}

// WriteContext writes the context file for m atomically and returns its path.
func (w *Writer) WriteContext(m Manifest, dependents []string) (string, error) {
	doc := NewContextDoc(m, dependents, filepath.Base(w.Path(m)))
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding context for %s: %w", m.Key(), err)
	}
	p := w.ContextPath(m)
	if err := writeAtomic(p, data); err != nil {
		return "", err
	}
	return p, nil
}
