package manifest

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/star"
)

// Observer is notified once per attempted module with the time spent on
// it. It is called from worker goroutines and must be safe for concurrent
// use.
type Observer interface {
	ModuleDone(m inventory.Module, a star.Assignment, man *Manifest, took time.Duration, err error)
}

// Batch classifies and generates manifests for a whole inventory.
type Batch struct {
	Classifier *star.Classifier
	Generator  *Generator
	Workers    int      // concurrent workers; defaults to GOMAXPROCS
	Observer   Observer // optional
}

// Result is the outcome of a batch run.
type Result struct {
	Manifests   []Manifest
	Assignments map[string]star.Assignment // module-lane key → assignment, generated modules only
	Failures    []Failure
	Attempted   int
}

// SuccessRate is the fraction of attempted modules that produced a manifest.
// An empty batch has a success rate of 1.
func (r *Result) SuccessRate() float64 {
	if r.Attempted == 0 {
		return 1
	}
	return float64(len(r.Manifests)) / float64(r.Attempted)
}

// slot holds one module's outcome. Each worker writes only its own slot.
type slot struct {
	assignment star.Assignment
	manifest   Manifest
	err        error
}

// Run classifies and generates every module. A module that fails is recorded
// in Result.Failures and the batch continues. Only cancellation of ctx aborts
// the run. Manifests and failures are sorted by lane and path.
func (b *Batch) Run(ctx context.Context, modules []inventory.Module) (*Result, error) {
	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	slots := make([]slot, len(modules))
	seen := make(map[string]bool, len(modules))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range modules {
		m := modules[i]
		key := m.Key()
		if seen[key] {
			slots[i].err = fmt.Errorf("%w: %s", ErrDuplicateModule, key)
			b.notify(m, star.Assignment{}, nil, 0, slots[i].err)
			continue
		}
		seen[key] = true

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			a := b.Classifier.Classify(m)
			man, err := b.Generator.Generate(m, a)
			took := time.Since(start)
			slots[i] = slot{assignment: a, manifest: man, err: err}
			if err != nil {
				b.notify(m, a, nil, took, err)
			} else {
				b.notify(m, a, &slots[i].manifest, took, nil)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("manifest batch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("manifest batch: %w", err)
	}

	res := &Result{
		Assignments: make(map[string]star.Assignment, len(modules)),
		Attempted:   len(modules),
	}
	for i, s := range slots {
		if s.err != nil {
			res.Failures = append(res.Failures, Failure{
				Path: modules[i].Path,
				Lane: modules[i].Lane,
				Err:  s.err,
			})
			continue
		}
		res.Manifests = append(res.Manifests, s.manifest)
		res.Assignments[s.manifest.Key()] = s.assignment
	}

	Sort(res.Manifests)
	sort.SliceStable(res.Failures, func(i, j int) bool {
		return lessLanePath(res.Failures[i].Lane, res.Failures[i].Path, res.Failures[j].Lane, res.Failures[j].Path)
	})
	return res, nil
}

func (b *Batch) notify(m inventory.Module, a star.Assignment, man *Manifest, took time.Duration, err error) {
	if b.Observer != nil {
		b.Observer.ModuleDone(m, a, man, took, err)
	}
}

// Sort orders manifests by lane (promotion order) and then path.
func Sort(ms []Manifest) {
	sort.SliceStable(ms, func(i, j int) bool {
		return lessLanePath(ms[i].Lane, ms[i].Path, ms[j].Lane, ms[j].Path)
	})
}

func lessLanePath(li inventory.Lane, pi string, lj inventory.Lane, pj string) bool {
	if ri, rj := laneRank(li), laneRank(lj); ri != rj {
		return ri < rj
	}
	if li != lj {
		return li < lj
	}
	return pi < pj
}

// laneRank orders known lanes by promotion stage; unknown lanes sort last.
func laneRank(l inventory.Lane) int {
	for i, known := range inventory.Lanes() {
		if l == known {
			return i
		}
	}
	return len(inventory.Lanes())
}
