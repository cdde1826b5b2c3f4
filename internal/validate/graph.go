package validate

import (
	"strings"

	"github.com/papapumpkin/constellation/internal/depgraph"
	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/manifest"
)

// BuildGraph returns the dependency graph over module-lane keys. A
// depends_on entry resolves to the module with that path in the same lane,
// falling back to core. Unresolved entries add no edge. Only the first
// manifest for a key contributes.
func BuildGraph(ms []manifest.Manifest) *depgraph.Graph {
	g := depgraph.New()
	for _, m := range ms {
		if !g.Has(m.Key()) {
			_ = g.AddNode(m.Key())
		}
	}
	seen := make(map[string]bool, len(ms))
	for _, m := range ms {
		if seen[m.Key()] {
			continue
		}
		seen[m.Key()] = true
		for _, dep := range m.DependsOn {
			if target, ok := resolveDependency(g, m.Lane, dep); ok {
				_ = g.AddEdge(m.Key(), target)
			}
		}
	}
	return g
}

// resolveDependency maps a depends_on entry to a node key.
func resolveDependency(g *depgraph.Graph, lane inventory.Lane, dep string) (string, bool) {
	dep = strings.Trim(strings.TrimSpace(dep), "/")
	if dep == "" {
		return "", false
	}
	if k := inventory.Key(lane, dep); g.Has(k) {
		return k, true
	}
	if k := inventory.Key(inventory.LaneCore, dep); g.Has(k) {
		return k, true
	}
	return "", false
}

// splitKey reverses inventory.Key.
func splitKey(key string) (inventory.Lane, string) {
	lane, p, _ := strings.Cut(key, ":")
	return inventory.Lane(lane), p
}

// cyclePath returns a closed walk through the members of a strongly
// connected component, starting and ending at its first member.
func cyclePath(g *depgraph.Graph, members []string) []string {
	start := members[0]
	in := make(map[string]bool, len(members))
	for _, m := range members {
		in[m] = true
	}

	parent := map[string]string{}
	queue := []string{start}
	visited := map[string]bool{start: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Dependencies(cur) {
			if !in[next] {
				continue
			}
			if next == start {
				var path []string
				for n := cur; n != start; n = parent[n] {
					path = append(path, n)
				}
				path = append(path, start)
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return append(path, start)
			}
			if !visited[next] {
				visited[next] = true
				parent[next] = cur
				queue = append(queue, next)
			}
		}
	}
	return append(append([]string(nil), members...), start)
}
