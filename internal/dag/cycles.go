package dag

// Cycle is a dependency loop found by FindCycle.
type Cycle struct {
	// Nodes runs from the node the back edge points to through the node
	// the back edge leaves, following successor edges. The first node is
	// not repeated at the end.
	Nodes []string

	// Closing is the back edge that completes the loop.
	Closing Edge
}

// Resolution records one cycle and the edge removed to break it.
type Resolution struct {
	Cycle   []string
	Removed Edge
}

// Node colours for the depth-first search.
const (
	white = iota // unvisited
	gray         // on the current path
	black        // fully explored
)

type frame struct {
	id   string
	next int // index of the next outgoing edge to explore
}

// FindCycle runs an iterative depth-first search from each node in
// insertion order, following successor edges in insertion order, and
// returns the first cycle found, or nil when the graph is acyclic.
func (d *DAG) FindCycle() *Cycle {
	color := make(map[string]int, len(d.nodes))
	for _, root := range d.order {
		if color[root] != white {
			continue
		}
		color[root] = gray
		stack := []frame{{id: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			out := d.out[top.id]
			if top.next >= len(out) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			e := out[top.next]
			top.next++

			switch color[e.To] {
			case white:
				color[e.To] = gray
				stack = append(stack, frame{id: e.To})
			case gray:
				return &Cycle{Nodes: stackFrom(stack, e.To), Closing: *e}
			}
		}
	}
	return nil
}

// stackFrom returns the IDs on the stack from the frame for id to the top.
func stackFrom(stack []frame, id string) []string {
	i := len(stack) - 1
	for i > 0 && stack[i].id != id {
		i--
	}
	nodes := make([]string, 0, len(stack)-i)
	for _, f := range stack[i:] {
		nodes = append(nodes, f.id)
	}
	return nodes
}

// ResolveCycles removes the closing edge of each cycle FindCycle reports
// until the graph is acyclic, and returns the removals in order. It does
// not search for a minimum set of edges to remove.
func (d *DAG) ResolveCycles() []Resolution {
	var resolved []Resolution
	for {
		c := d.FindCycle()
		if c == nil {
			return resolved
		}
		if err := d.RemoveEdge(c.Closing); err != nil {
			return resolved
		}
		resolved = append(resolved, Resolution{Cycle: c.Nodes, Removed: c.Closing})
	}
}

// DetectCycle reports the first cycle in a bare edge list, or nil. Nodes
// are taken from the edges in the order they first appear.
func DetectCycle(edges []Edge) []string {
	d := New()
	for _, e := range edges {
		for _, id := range []string{e.From, e.To} {
			if d.Node(id) == nil {
				_ = d.AddNode(id)
			}
		}
		_, _ = d.AddEdge(e)
	}
	if c := d.FindCycle(); c != nil {
		return c.Nodes
	}
	return nil
}
