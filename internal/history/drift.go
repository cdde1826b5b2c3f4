package history

import (
	"context"
	"sort"

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/star"
)

// Change is a module whose classification differs between two runs. From
// is empty for modules added in the later run and To is empty for modules
// that disappeared.
type Change struct {
	Lane inventory.Lane
	Path string
	From star.Star
	To   star.Star
	Rule string // rule that produced To
}

// Added reports whether the module first appeared in the later run.
func (c Change) Added() bool { return c.From == "" }

// Removed reports whether the module is absent from the later run.
func (c Change) Removed() bool { return c.To == "" }

// DriftReport compares two runs.
type DriftReport struct {
	From      string
	To        string
	Unchanged int
	Changes   []Change
}

// Reclassified returns the changes for modules present in both runs.
func (d *DriftReport) Reclassified() []Change {
	var out []Change
	for _, c := range d.Changes {
		if !c.Added() && !c.Removed() {
			out = append(out, c)
		}
	}
	return out
}

// Drift compares the assignments of two runs. With unchanged rules and
// inventory the report has no changes.
func (s *Store) Drift(ctx context.Context, fromID, toID string) (*DriftReport, error) {
	if _, err := s.Run(ctx, fromID); err != nil {
		return nil, err
	}
	if _, err := s.Run(ctx, toID); err != nil {
		return nil, err
	}
	before, err := s.Assignments(ctx, fromID)
	if err != nil {
		return nil, err
	}
	after, err := s.Assignments(ctx, toID)
	if err != nil {
		return nil, err
	}
	return Compare(fromID, toID, before, after), nil
}

// Compare diffs two assignment sets.
func Compare(fromID, toID string, before, after []Assignment) *DriftReport {
	rep := &DriftReport{From: fromID, To: toID}
	prev := make(map[string]Assignment, len(before))
	for _, a := range before {
		prev[a.Key()] = a
	}
	for _, a := range after {
		p, ok := prev[a.Key()]
		delete(prev, a.Key())
		switch {
		case !ok:
			rep.Changes = append(rep.Changes, Change{Lane: a.Lane, Path: a.Path, To: a.Star, Rule: a.Rule})
		case p.Star != a.Star:
			rep.Changes = append(rep.Changes, Change{Lane: a.Lane, Path: a.Path, From: p.Star, To: a.Star, Rule: a.Rule})
		default:
			rep.Unchanged++
		}
	}
	for _, p := range prev {
		rep.Changes = append(rep.Changes, Change{Lane: p.Lane, Path: p.Path, From: p.Star})
	}
	sort.Slice(rep.Changes, func(i, j int) bool {
		a, b := rep.Changes[i], rep.Changes[j]
		if a.Lane != b.Lane {
			return a.Lane < b.Lane
		}
		return a.Path < b.Path
	})
	return rep
}
