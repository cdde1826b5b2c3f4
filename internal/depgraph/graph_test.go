package depgraph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// build creates a graph from id → dependencies, adding every edge unchecked.
func build(t *testing.T, deps map[string][]string) *Graph {
	t.Helper()
	g := New()
	for id := range deps {
		if err := g.AddNode(id); err != nil {
			t.Fatalf("AddNode(%q): %v", id, err)
		}
	}
	for id, ds := range deps {
		for _, d := range ds {
			if err := g.AddEdge(id, d); err != nil {
				t.Fatalf("AddEdge(%q, %q): %v", id, d, err)
			}
		}
	}
	return g
}

func TestAddNodeDuplicate(t *testing.T) {
	t.Parallel()

	g := New()
	if err := g.AddNode("a"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddNode("a"); !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("err = %v, want ErrDuplicateNode", err)
	}
}

func TestAddEdgeMissingNode(t *testing.T) {
	t.Parallel()

	g := New()
	_ = g.AddNode("a")
	if err := g.AddEdge("a", "b"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("err = %v, want ErrNodeNotFound", err)
	}
}

func TestAddCheckedEdge(t *testing.T) {
	t.Parallel()

	g := build(t, map[string][]string{"a": {"b"}, "b": {"c"}, "c": nil})
	if err := g.AddCheckedEdge("c", "a"); !errors.Is(err, ErrCycle) {
		t.Errorf("closing edge err = %v, want ErrCycle", err)
	}
	if err := g.AddCheckedEdge("a", "a"); !errors.Is(err, ErrSelfEdge) {
		t.Errorf("self edge err = %v, want ErrSelfEdge", err)
	}
	if err := g.AddCheckedEdge("a", "c"); err != nil {
		t.Errorf("shortcut edge: %v", err)
	}
}

func TestTopologicalSort(t *testing.T) {
	t.Parallel()

	g := build(t, map[string][]string{
		"api":      {"identity", "memory"},
		"identity": {"core"},
		"memory":   {"core"},
		"core":     nil,
	})
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort: %v", err)
	}
	want := []string{"core", "identity", "memory", "api"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestTopologicalSortCycle(t *testing.T) {
	t.Parallel()

	g := build(t, map[string][]string{"a": {"b"}, "b": {"a"}})
	if _, err := g.TopologicalSort(); !errors.Is(err, ErrCycle) {
		t.Errorf("err = %v, want ErrCycle", err)
	}
}

func TestCycles(t *testing.T) {
	t.Parallel()

	g := build(t, map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {"d"},
		"e": {"a"},
		"f": nil,
	})
	want := [][]string{{"a", "b", "c"}, {"d"}}
	if diff := cmp.Diff(want, g.Cycles()); diff != "" {
		t.Errorf("Cycles mismatch (-want +got):\n%s", diff)
	}
}

func TestCyclesAcyclic(t *testing.T) {
	t.Parallel()

	g := build(t, map[string][]string{"a": {"b"}, "b": nil})
	if c := g.Cycles(); len(c) != 0 {
		t.Errorf("Cycles = %v, want none", c)
	}
}

func TestComponents(t *testing.T) {
	t.Parallel()

	g := build(t, map[string][]string{
		"a": {"b"},
		"c": {"b"},
		"d": nil,
		"b": nil,
	})
	want := [][]string{{"a", "b", "c"}, {"d"}}
	if diff := cmp.Diff(want, g.Components()); diff != "" {
		t.Errorf("Components mismatch (-want +got):\n%s", diff)
	}
	if got := g.Dependents("b"); !cmp.Equal(got, []string{"a", "c"}) {
		t.Errorf("Dependents(b) = %v", got)
	}
	if got := g.Dependencies("d"); got != nil {
		t.Errorf("Dependencies(d) = %v, want nil", got)
	}
}

func TestUnionFind(t *testing.T) {
	t.Parallel()

	uf := NewUnionFind()
	uf.Union("x", "y")
	uf.Union("y", "z")
	uf.Add("w")
	if !uf.Connected("x", "z") {
		t.Error("x and z should be connected")
	}
	if uf.Connected("x", "w") {
		t.Error("x and w should not be connected")
	}
	if got := len(uf.Groups()); got != 2 {
		t.Errorf("groups = %d, want 2", got)
	}
}
