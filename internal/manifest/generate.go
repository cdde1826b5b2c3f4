package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/star"
)

// Generator turns a module and its star assignment into a manifest.
type Generator struct {
	// Classifier supplies owner rules for modules without an owner. May be nil.
	Classifier *star.Classifier

	// DefaultTier applies to modules that declare no tier.
	DefaultTier inventory.Tier
}

// Generate builds the manifest for m. The result depends only on m and a, so
// identical inputs produce identical manifests.
func (g *Generator) Generate(m inventory.Module, a star.Assignment) (Manifest, error) {
	p := strings.Trim(m.Path, "/")
	if p == "" {
		return Manifest{}, ErrEmptyPath
	}
	if strings.HasPrefix(m.Path, "/") || path.Clean(p) != p || strings.HasPrefix(p, "../") || p == ".." {
		return Manifest{}, fmt.Errorf("%w: %q", ErrInvalidPath, m.Path)
	}
	lane, err := inventory.ParseLane(string(m.Lane))
	if err != nil {
		return Manifest{}, err
	}
	fallback := g.DefaultTier
	if fallback == "" {
		fallback = inventory.DefaultTier
	}
	tier, err := inventory.ParseTier(string(m.Tier), fallback)
	if err != nil {
		return Manifest{}, err
	}
	integration, err := inventory.ParseIntegration(string(m.Integration))
	if err != nil {
		return Manifest{}, err
	}
	if !a.Star.Valid() {
		return Manifest{}, fmt.Errorf("%w: %q", star.ErrUnknownStar, a.Star)
	}
	if !(a.Confidence >= 0 && a.Confidence <= 1) {
		return Manifest{}, fmt.Errorf("%w: %v", ErrConfidence, a.Confidence)
	}

	var defaulted map[string]string
	record := func(field, value string) {
		if defaulted == nil {
			defaulted = make(map[string]string, 2)
		}
		defaulted[field] = value
	}
	owner := strings.TrimSpace(m.Owner)
	if owner == "" && g.Classifier != nil {
		if owner = g.Classifier.Owner(p); owner != "" {
			record(FieldOwner, owner)
		}
	}
	if strings.TrimSpace(string(m.Tier)) == "" {
		record(FieldTier, string(tier))
	}

	man := Manifest{
		SchemaVersion: SchemaVersion,
		Module:        m.DisplayName(),
		Path:          p,
		Lane:          lane,
		Star:          a.Star,
		Confidence:    a.Confidence,
		Rule:          a.Rule,
		Reason:        a.Reason,
		Tier:          tier,
		Integration:   integration,
		Owner:         owner,
		Contracts:     uniqueSorted(m.Contracts),
		DependsOn:     uniqueSorted(m.DependsOn),
		Description:   strings.TrimSpace(m.Description),
		Files:         uniqueSorted(m.Files),
		Archived:      m.Archived,
		Defaulted:     defaulted,
	}
	man.ContentHash = contentHash(man)
	return man, nil
}

// contentHash fingerprints every field except the hash itself.
func contentHash(m Manifest) string {
	m.ContentHash = ""
	data, _ := json.Marshal(m)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// uniqueSorted returns a sorted copy of ss without blanks or duplicates. The
// result is never nil.
func uniqueSorted(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
