// Package depgraph models module dependencies as a directed graph. It
// supports deterministic topological ordering, cycle discovery and
// clustering of related modules.
package depgraph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycle is returned when an ordering is requested over a cyclic graph, or
// when a checked edge would close a cycle.
var ErrCycle = errors.New("cycle detected")

// ErrNodeNotFound is returned when an edge references a node that was never added.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrSelfEdge is returned by AddCheckedEdge for a self-loop.
var ErrSelfEdge = errors.New("self-referencing edge")

// Graph is a directed graph over string keys. Edges point from a node to
// the nodes it depends on. Unlike a strict DAG it accepts cycles through
// AddEdge so that they can be reported rather than rejected.
type Graph struct {
	nodes map[string]bool
	// adjacency maps node → set of dependencies (forward edges).
	adjacency map[string]map[string]bool
	// reverse maps node → set of dependents (backward edges).
	reverse map[string]map[string]bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:     make(map[string]bool),
		adjacency: make(map[string]map[string]bool),
		reverse:   make(map[string]map[string]bool),
	}
}

// AddNode adds a node. Returns ErrDuplicateNode if it already exists.
func (g *Graph) AddNode(id string) error {
	if g.nodes[id] {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	g.nodes[id] = true
	g.adjacency[id] = make(map[string]bool)
	g.reverse[id] = make(map[string]bool)
	return nil
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	return g.nodes[id]
}

// AddEdge records that from depends on to. Both nodes must exist. Cycles,
// including self-loops, are accepted.
func (g *Graph) AddEdge(from, to string) error {
	if !g.nodes[from] {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if !g.nodes[to] {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	g.adjacency[from][to] = true
	g.reverse[to][from] = true
	return nil
}

// AddCheckedEdge is AddEdge for callers that must keep the graph acyclic: it
// rejects self-loops and any edge that would close a cycle.
func (g *Graph) AddCheckedEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if g.nodes[from] && g.nodes[to] && g.hasPath(to, from) {
		return fmt.Errorf("%w: edge %s → %s would create a cycle", ErrCycle, from, to)
	}
	return g.AddEdge(from, to)
}

// Nodes returns all node IDs sorted alphabetically.
func (g *Graph) Nodes() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Dependencies returns the direct dependencies of id, sorted.
func (g *Graph) Dependencies(id string) []string {
	return sortedKeys(g.adjacency[id])
}

// Dependents returns the nodes that directly depend on id, sorted.
func (g *Graph) Dependents(id string) []string {
	return sortedKeys(g.reverse[id])
}

// TopologicalSort returns node IDs with dependencies before dependents.
// Ties are broken alphabetically so the order is deterministic. Returns
// ErrCycle if the graph is cyclic.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	var queue []string
	for id := range g.nodes {
		inDegree[id] = len(g.adjacency[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	sorted := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		var freed []string
		for dependent := range g.reverse[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		sort.Strings(freed)
		queue = append(queue, freed...)
	}

	if len(sorted) != len(g.nodes) {
		return nil, fmt.Errorf("%w: not all nodes could be ordered (%d of %d)",
			ErrCycle, len(sorted), len(g.nodes))
	}
	return sorted, nil
}

// hasPath reports whether there is a directed path from src to dst.
func (g *Graph) hasPath(src, dst string) bool {
	visited := map[string]bool{src: true}
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range g.adjacency[cur] {
			if dep == dst {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
