package depgraph

import "sort"

// Cycles returns every dependency cycle in the graph as a sorted member
// list. A cycle is a strongly connected component with more than one node,
// or a single node that depends on itself. Cycles are ordered by their first
// member.
func (g *Graph) Cycles() [][]string {
	t := tarjan{
		g:       g,
		index:   make(map[string]int, len(g.nodes)),
		lowlink: make(map[string]int, len(g.nodes)),
		onStack: make(map[string]bool, len(g.nodes)),
	}
	for _, id := range g.Nodes() {
		if _, seen := t.index[id]; !seen {
			t.visit(id)
		}
	}

	var cycles [][]string
	for _, scc := range t.components {
		if len(scc) == 1 && !g.adjacency[scc[0]][scc[0]] {
			continue
		}
		sort.Strings(scc)
		cycles = append(cycles, scc)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// tarjan holds the working state of Tarjan's strongly connected components
// algorithm.
type tarjan struct {
	g          *Graph
	next       int
	index      map[string]int
	lowlink    map[string]int
	stack      []string
	onStack    map[string]bool
	components [][]string
}

func (t *tarjan) visit(v string) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range sortedKeys(t.g.adjacency[v]) {
		if _, seen := t.index[w]; !seen {
			t.visit(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] != t.index[v] {
		return
	}
	var scc []string
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		scc = append(scc, w)
		if w == v {
			break
		}
	}
	t.components = append(t.components, scc)
}
