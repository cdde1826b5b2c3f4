// Package inventory discovers the modules that make up a repository's lanes
// and carries the per-module metadata consumed by the star classifier and
// the manifest generator.
package inventory

import (
	"fmt"
	"strings"
)

// Lane is a development-stage partition of modules.
type Lane string

// Lane values.
const (
	LaneCandidate Lane = "candidate"
	LaneLukhas    Lane = "lukhas"
	LaneCore      Lane = "core"
)

// Lanes returns every lane in promotion order.
func Lanes() []Lane {
	return []Lane{LaneCandidate, LaneLukhas, LaneCore}
}

// ParseLane converts s to a Lane, rejecting unknown values.
func ParseLane(s string) (Lane, error) {
	l := Lane(strings.ToLower(strings.TrimSpace(s)))
	switch l {
	case LaneCandidate, LaneLukhas, LaneCore:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLane, s)
}

// Tier is a criticality classification; T1 is the most critical.
type Tier string

// Tier values.
const (
	TierT1 Tier = "T1"
	TierT2 Tier = "T2"
	TierT3 Tier = "T3"
	TierT4 Tier = "T4"
)

// DefaultTier is assigned to modules that do not declare a tier.
const DefaultTier = TierT4

// Tiers returns every tier from most to least critical.
func Tiers() []Tier {
	return []Tier{TierT1, TierT2, TierT3, TierT4}
}

// ParseTier converts s to a Tier. An empty string yields fallback.
func ParseTier(s string, fallback Tier) (Tier, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return fallback, nil
	}
	t := Tier(s)
	switch t {
	case TierT1, TierT2, TierT3, TierT4:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// Integration is a module's MATRIZ pipeline integration status.
type Integration string

// Integration values.
const (
	IntegrationNone    Integration = "none"
	IntegrationPartial Integration = "partial"
	IntegrationFull    Integration = "full"
)

// Integrations returns every integration status.
func Integrations() []Integration {
	return []Integration{IntegrationNone, IntegrationPartial, IntegrationFull}
}

// ParseIntegration converts s to an Integration. An empty string yields none.
func ParseIntegration(s string) (Integration, error) {
	i := Integration(strings.ToLower(strings.TrimSpace(s)))
	switch i {
	case "":
		return IntegrationNone, nil
	case IntegrationNone, IntegrationPartial, IntegrationFull:
		return i, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIntegration, s)
}

// Module is one source module within a lane.
type Module struct {
	// Path identifies the module relative to its lane root, slash-separated.
	// The same path in two lanes is the same logical module at two stages.
	Path string `json:"path" yaml:"path" toml:"path"`
	Name string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Lane Lane   `json:"lane" yaml:"lane" toml:"lane"`

	// Files lists source files relative to the module directory.
	Files []string `json:"files,omitempty" yaml:"files,omitempty" toml:"files,omitempty"`

	Tier        Tier        `json:"tier,omitempty" yaml:"tier,omitempty" toml:"tier,omitempty"`
	Integration Integration `json:"integration,omitempty" yaml:"integration,omitempty" toml:"integration,omitempty"`
	Owner       string      `json:"owner,omitempty" yaml:"owner,omitempty" toml:"owner,omitempty"`
	Contracts   []string    `json:"contracts,omitempty" yaml:"contracts,omitempty" toml:"contracts,omitempty"`
	DependsOn   []string    `json:"depends_on,omitempty" yaml:"depends_on,omitempty" toml:"depends_on,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`

	// Archived marks legacy modules; the classifier assigns them Unknown.
	Archived bool `json:"archived,omitempty" yaml:"archived,omitempty" toml:"archived,omitempty"`

	// Signals holds lower-case content keywords found in the module's files.
	Signals []string `json:"signals,omitempty" yaml:"signals,omitempty" toml:"signals,omitempty"`
}

// Key returns the unique identifier of the module-lane pairing.
func (m Module) Key() string {
	return Key(m.Lane, m.Path)
}

// Key joins a lane and module path into a module-lane key.
func Key(lane Lane, path string) string {
	return string(lane) + ":" + path
}

// DisplayName returns Name, falling back to the last path element.
func (m Module) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	if i := strings.LastIndex(m.Path, "/"); i >= 0 {
		return m.Path[i+1:]
	}
	return m.Path
}

// HasSignal reports whether keyword (case-insensitive) was found in the module.
func (m Module) HasSignal(keyword string) bool {
	keyword = strings.ToLower(keyword)
	for _, s := range m.Signals {
		if s == keyword {
			return true
		}
	}
	return false
}
