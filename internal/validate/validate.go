// Package validate checks generated manifests for schema conformance,
// ownership, contract references and dependency integrity. Validation never
// modifies manifests; every problem is reported as a Violation.
package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/manifest"
)

// Validator runs every check over a set of manifests.
type Validator struct {
	// Schema validates manifest encodings. Nil skips schema checks.
	Schema *SchemaChecker
	// Contracts resolves contract references. Nil skips contract checks.
	Contracts *ContractIndex
}

// New returns a Validator with the manifest schema compiled.
func New(contracts *ContractIndex) (*Validator, error) {
	sc, err := NewSchemaChecker()
	if err != nil {
		return nil, err
	}
	return &Validator{Schema: sc, Contracts: contracts}, nil
}

// Result holds the outcome of a validation run.
type Result struct {
	Checked    int
	Violations []Violation
}

// OK reports whether no violations were found.
func (r *Result) OK() bool {
	return len(r.Violations) == 0
}

// Counts returns the number of violations per category. Every category is
// present, zero or not.
func (r *Result) Counts() map[Category]int {
	counts := make(map[Category]int, len(Categories()))
	for _, c := range Categories() {
		counts[c] = 0
	}
	for _, v := range r.Violations {
		counts[v.Category]++
	}
	return counts
}

// ByCategory returns the violations of category c.
func (r *Result) ByCategory(c Category) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Category == c {
			out = append(out, v)
		}
	}
	return out
}

// Err joins every violation into a single error, or returns nil.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Violations))
	for i := range r.Violations {
		errs[i] = &r.Violations[i]
	}
	return errors.Join(errs...)
}

// Validate checks ms and returns violations sorted by lane, module and
// category.
func (v *Validator) Validate(ms []manifest.Manifest) *Result {
	res := &Result{Checked: len(ms)}
	add := func(m manifest.Manifest, cat Category, field string, err error) {
		res.Violations = append(res.Violations, Violation{
			Category: cat,
			Lane:     m.Lane,
			Module:   m.Path,
			Field:    field,
			Err:      err,
		})
	}

	seen := make(map[string]bool, len(ms))
	for _, m := range ms {
		if seen[m.Key()] {
			add(m, CatDuplicate, "", fmt.Errorf("%w: %s", ErrDuplicateManifest, m.Key()))
			continue
		}
		seen[m.Key()] = true

		if v.Schema != nil {
			if err := v.Schema.Check(m); err != nil {
				add(m, CatSchema, "", err)
			}
		}
		if m.Tier == inventory.TierT1 && strings.TrimSpace(m.Owner) == "" {
			add(m, CatOwner, "owner", ErrMissingOwner)
		}
		if !(m.Confidence >= 0 && m.Confidence <= 1) {
			add(m, CatConfidence, "confidence", fmt.Errorf("%w: %v", ErrConfidenceRange, m.Confidence))
		}
		if v.Contracts != nil {
			for _, ref := range m.Contracts {
				if !v.Contracts.Resolves(ref) {
					add(m, CatContract, "contracts", fmt.Errorf("%w: %q", ErrUnresolvedContract, ref))
				}
			}
		}
	}

	g := BuildGraph(ms)
	checked := make(map[string]bool, len(ms))
	for _, m := range ms {
		if checked[m.Key()] {
			continue
		}
		checked[m.Key()] = true
		for _, dep := range m.DependsOn {
			if _, ok := resolveDependency(g, m.Lane, dep); !ok {
				add(m, CatDependency, "depends_on", fmt.Errorf("%w: %q", ErrUnknownDependency, dep))
			}
		}
	}

	for _, members := range g.Cycles() {
		lane, first := splitKey(members[0])
		walk := cyclePath(g, members)
		paths := make([]string, len(walk))
		for i, k := range walk {
			_, paths[i] = splitKey(k)
		}
		res.Violations = append(res.Violations, Violation{
			Category: CatCycle,
			Lane:     lane,
			Module:   first,
			Field:    "depends_on",
			Err:      fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(paths, " -> ")),
		})
	}

	sortViolations(res.Violations)
	return res
}

func sortViolations(vs []Violation) {
	rank := func(l inventory.Lane) int {
		for i, known := range inventory.Lanes() {
			if l == known {
				return i
			}
		}
		return len(inventory.Lanes())
	}
	catRank := make(map[Category]int, len(Categories()))
	for i, c := range Categories() {
		catRank[c] = i
	}
	sort.SliceStable(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if ra, rb := rank(a.Lane), rank(b.Lane); ra != rb {
			return ra < rb
		}
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		return catRank[a.Category] < catRank[b.Category]
	})
}
