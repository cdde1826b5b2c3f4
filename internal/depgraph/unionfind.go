package depgraph

import "sort"

// UnionFind is a disjoint-set forest with path compression and union by rank.
type UnionFind struct {
	parent map[string]string
	rank   map[string]int
}

// NewUnionFind creates an empty UnionFind.
func NewUnionFind() *UnionFind {
	return &UnionFind{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

// Add inserts x as a singleton set. Adding an existing element is a no-op.
func (uf *UnionFind) Add(x string) {
	if _, ok := uf.parent[x]; ok {
		return
	}
	uf.parent[x] = x
}

// Find returns the representative of x's set, adding x if unseen.
func (uf *UnionFind) Find(x string) string {
	p, ok := uf.parent[x]
	if !ok {
		uf.Add(x)
		return x
	}
	if p != x {
		uf.parent[x] = uf.Find(p)
	}
	return uf.parent[x]
}

// Union merges the sets containing x and y.
func (uf *UnionFind) Union(x, y string) {
	rx, ry := uf.Find(x), uf.Find(y)
	if rx == ry {
		return
	}
	switch {
	case uf.rank[rx] < uf.rank[ry]:
		uf.parent[rx] = ry
	case uf.rank[rx] > uf.rank[ry]:
		uf.parent[ry] = rx
	default:
		uf.parent[ry] = rx
		uf.rank[rx]++
	}
}

// Connected reports whether x and y share a set.
func (uf *UnionFind) Connected(x, y string) bool {
	return uf.Find(x) == uf.Find(y)
}

// Groups returns every set as a sorted member list, ordered by first member.
func (uf *UnionFind) Groups() [][]string {
	byRoot := make(map[string][]string)
	for x := range uf.parent {
		root := uf.Find(x)
		byRoot[root] = append(byRoot[root], x)
	}
	groups := make([][]string, 0, len(byRoot))
	for _, members := range byRoot {
		sort.Strings(members)
		groups = append(groups, members)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}

// Components partitions the graph into weakly connected clusters: two
// modules share a cluster when a dependency path links them in either
// direction. Isolated nodes form singleton clusters.
func (g *Graph) Components() [][]string {
	uf := NewUnionFind()
	for id := range g.nodes {
		uf.Add(id)
		for dep := range g.adjacency[id] {
			uf.Union(id, dep)
		}
	}
	return uf.Groups()
}
