package dag

import "sort"

// Network is an independent sub-network of the graph: no edge connects
// its nodes to nodes of any other network.
type Network struct {
	// ID is assigned after sorting, starting at 0.
	ID int

	// NodeIDs lists the members in topological order when the graph is
	// acyclic, otherwise in insertion order.
	NodeIDs []string
}

// ComputeNetworks partitions the graph into weakly connected components
// using union-find, assigns Node.Network on every node and returns the
// networks sorted by size (largest first), then by earliest member.
func (d *DAG) ComputeNetworks() []Network {
	if len(d.nodes) == 0 {
		return nil
	}

	pos := make(map[string]int, len(d.order))
	order, err := d.TopologicalSort()
	if err != nil {
		order = d.order
	}
	for i, id := range order {
		pos[id] = i
	}

	uf := NewUnionFind()
	for _, id := range d.order {
		uf.Add(id)
	}
	for _, e := range d.edges {
		uf.Union(e.From, e.To)
	}

	components := uf.Components()
	networks := make([]Network, 0, len(components))
	for _, members := range components {
		sort.Slice(members, func(i, j int) bool {
			return pos[members[i]] < pos[members[j]]
		})
		networks = append(networks, Network{NodeIDs: members})
	}

	sort.SliceStable(networks, func(i, j int) bool {
		if len(networks[i].NodeIDs) != len(networks[j].NodeIDs) {
			return len(networks[i].NodeIDs) > len(networks[j].NodeIDs)
		}
		return d.minSeq(networks[i].NodeIDs) < d.minSeq(networks[j].NodeIDs)
	})

	for i := range networks {
		networks[i].ID = i
		for _, id := range networks[i].NodeIDs {
			d.nodes[id].Network = i
		}
	}
	return networks
}

func (d *DAG) minSeq(ids []string) int {
	lowest := len(d.order)
	for _, id := range ids {
		if s := d.nodes[id].Seq; s < lowest {
			lowest = s
		}
	}
	return lowest
}
