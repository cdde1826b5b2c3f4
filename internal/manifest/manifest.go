// Package manifest generates, persists and reloads module manifests: one
// structured record per module per lane carrying its star, confidence, tier,
// integration status and ownership.
package manifest

import (
	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/star"
)

// SchemaVersion is written into every manifest.
const SchemaVersion = "1.0.0"

// Manifest is the generated record for one module-lane pairing. It carries
// no timestamps: identical inputs serialize to identical bytes.
type Manifest struct {
	SchemaVersion string                `json:"schema_version" yaml:"schema_version" toml:"schema_version"`
	Module        string                `json:"module" yaml:"module" toml:"module"`
	Path          string                `json:"path" yaml:"path" toml:"path"`
	Lane          inventory.Lane        `json:"lane" yaml:"lane" toml:"lane"`
	Star          star.Star             `json:"star" yaml:"star" toml:"star"`
	Confidence    float64               `json:"confidence" yaml:"confidence" toml:"confidence"`
	Rule          string                `json:"rule,omitempty" yaml:"rule,omitempty" toml:"rule,omitempty"`
	Reason        star.Reason           `json:"reason" yaml:"reason" toml:"reason"`
	Tier          inventory.Tier        `json:"tier" yaml:"tier" toml:"tier"`
	Integration   inventory.Integration `json:"integration" yaml:"integration" toml:"integration"`
	Owner         string                `json:"owner" yaml:"owner" toml:"owner"`
	Contracts     []string              `json:"contracts" yaml:"contracts" toml:"contracts"`
	DependsOn     []string              `json:"depends_on" yaml:"depends_on" toml:"depends_on"`
	Description   string                `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Files         []string              `json:"files" yaml:"files" toml:"files"`
	Archived      bool                  `json:"archived,omitempty" yaml:"archived,omitempty" toml:"archived,omitempty"`
	Defaulted     map[string]string     `json:"defaulted,omitempty" yaml:"defaulted,omitempty" toml:"defaulted,omitempty"`
	ContentHash   string                `json:"content_hash" yaml:"content_hash" toml:"content_hash"`
}

// Key returns the module-lane key of the manifest.
func (m Manifest) Key() string {
	return inventory.Key(m.Lane, m.Path)
}

// Fields that Defaulted may record.
const (
	FieldOwner = "owner"
	FieldTier  = "tier"
)

// ToModule converts the manifest back into an inventory module so its
// operator-maintained fields can be overlaid on a fresh scan. A field that
// still holds the value recorded in Defaulted came from owner rules or the
// default tier and is left empty, so the next run derives it again. Edited
// values no longer match and are kept.
func (m Manifest) ToModule() inventory.Module {
	mod := inventory.Module{
		Path:        m.Path,
		Name:        m.Module,
		Lane:        m.Lane,
		Files:       m.Files,
		Tier:        m.Tier,
		Integration: m.Integration,
		Owner:       m.Owner,
		Contracts:   m.Contracts,
		DependsOn:   m.DependsOn,
		Description: m.Description,
		Archived:    m.Archived,
	}
	if v, ok := m.Defaulted[FieldOwner]; ok && v == m.Owner {
		mod.Owner = ""
	}
	if v, ok := m.Defaulted[FieldTier]; ok && v == string(m.Tier) {
		mod.Tier = ""
	}
	return mod
}

// normalize replaces nil slices with empty ones so every encoding renders
// arrays rather than nulls.
func (m *Manifest) normalize() {
	if m.Contracts == nil {
		m.Contracts = []string{}
	}
	if m.DependsOn == nil {
		m.DependsOn = []string{}
	}
	if m.Files == nil {
		m.Files = []string{}
	}
}

// Modules converts manifests to inventory modules.
func Modules(ms []Manifest) []inventory.Module {
	out := make([]inventory.Module, len(ms))
	for i, m := range ms {
		out[i] = m.ToModule()
	}
	return out
}
