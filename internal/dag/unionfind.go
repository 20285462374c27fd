package dag

// UnionFind is a disjoint-set structure over string elements with path
// compression and union by rank. Components are reported in the order
// elements were first added, so results are deterministic.
type UnionFind struct {
	parent map[string]string
	rank   map[string]int
	order  []string
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
	uf.order = append(uf.order, x)
}

// Find returns the representative of the set containing x, adding x as
// a singleton first if it is unknown.
func (uf *UnionFind) Find(x string) string {
	uf.Add(x)
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for x != root {
		next := uf.parent[x]
		uf.parent[x] = root
		x = next
	}
	return root
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

// Connected reports whether x and y belong to the same set.
func (uf *UnionFind) Connected(x, y string) bool {
	return uf.Find(x) == uf.Find(y)
}

// Components returns the disjoint sets. Sets are ordered by their
// earliest-added member and members keep insertion order.
func (uf *UnionFind) Components() [][]string {
	index := make(map[string]int)
	var groups [][]string
	for _, x := range uf.order {
		root := uf.Find(x)
		i, ok := index[root]
		if !ok {
			i = len(groups)
			index[root] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], x)
	}
	return groups
}
