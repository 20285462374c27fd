// Package dag provides the precedence graph used by the scheduler. Edges
// are typed (FS/SS/FF/SF) and lagged, point from predecessor to
// successor, and may form cycles until ResolveCycles breaks them. It
// supports topological sorting, cycle detection and resolution,
// transitive dependency queries and partitioning into independent
// networks.
package dag

import (
	"errors"
	"fmt"
	"sort"

	"github.com/papapumpkin/critpath/internal/project"
)

// ErrCycle is returned when the graph contains a dependency cycle.
var ErrCycle = errors.New("cycle detected")

// ErrNodeNotFound is returned when an operation references a non-existent node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrEdgeNotFound is returned when removing an edge that is not in the graph.
var ErrEdgeNotFound = errors.New("edge not found")

// Node is a task in the graph.
type Node struct {
	ID  string
	Seq int // insertion order, used for deterministic tie-breaking

	// Network is the independent sub-network this node belongs to.
	// Populated by ComputeNetworks.
	Network int
}

// Edge is a typed precedence link from a predecessor to a successor.
type Edge struct {
	From string
	To   string
	Kind project.Kind
	Lag  float64

	// Seq is assigned by AddEdge and identifies the edge within its graph.
	Seq int
}

// ID returns a stable identifier such as "A->B[FS+0h]".
func (e Edge) ID() string {
	return fmt.Sprintf("%s->%s[%s%+gh]", e.From, e.To, e.Kind, e.Lag)
}

func (e Edge) String() string { return e.ID() }

// DAG is a directed graph of tasks. Despite the name it tolerates cycles;
// TopologicalSort reports them and ResolveCycles removes them.
type DAG struct {
	nodes map[string]*Node
	order []string
	edges []*Edge
	// out maps nodeID → edges to its successors, in insertion order.
	out map[string][]*Edge
	// in maps nodeID → edges from its predecessors, in insertion order.
	in map[string][]*Edge

	nextEdge int
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes: make(map[string]*Node),
		out:   make(map[string][]*Edge),
		in:    make(map[string][]*Edge),
	}
}

// AddNode adds a node with the given ID. Returns ErrDuplicateNode if a
// node with that ID already exists.
func (d *DAG) AddNode(id string) error {
	if _, exists := d.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	d.nodes[id] = &Node{ID: id, Seq: len(d.order)}
	d.order = append(d.order, id)
	return nil
}

// AddEdge adds a precedence edge. Both endpoints must already exist.
// Self-edges and cycle-forming edges are accepted. Adding an edge
// identical in endpoints, kind and lag to an existing one is a no-op
// that returns the existing edge.
func (d *DAG) AddEdge(e Edge) (Edge, error) {
	if _, ok := d.nodes[e.From]; !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, e.From)
	}
	if _, ok := d.nodes[e.To]; !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, e.To)
	}
	if e.Kind == "" {
		e.Kind = project.FinishToStart
	}
	for _, existing := range d.out[e.From] {
		if existing.To == e.To && existing.Kind == e.Kind && existing.Lag == e.Lag {
			return *existing, nil
		}
	}
	e.Seq = d.nextEdge
	d.nextEdge++
	stored := &e
	d.edges = append(d.edges, stored)
	d.out[e.From] = append(d.out[e.From], stored)
	d.in[e.To] = append(d.in[e.To], stored)
	return e, nil
}

// RemoveEdge removes the edge with e's Seq. Returns ErrEdgeNotFound if no
// such edge exists.
func (d *DAG) RemoveEdge(e Edge) error {
	idx := -1
	for i, stored := range d.edges {
		if stored.Seq == e.Seq {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, e.ID())
	}
	stored := d.edges[idx]
	d.edges = append(d.edges[:idx], d.edges[idx+1:]...)
	d.out[stored.From] = without(d.out[stored.From], stored)
	d.in[stored.To] = without(d.in[stored.To], stored)
	return nil
}

// Node returns the node with the given ID, or nil if not found.
func (d *DAG) Node(id string) *Node {
	return d.nodes[id]
}

// Nodes returns all node IDs in insertion order.
func (d *DAG) Nodes() []string {
	ids := make([]string, len(d.order))
	copy(ids, d.order)
	return ids
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge {
	return copyEdges(d.edges)
}

// Outgoing returns the edges from id to its successors.
func (d *DAG) Outgoing(id string) []Edge {
	return copyEdges(d.out[id])
}

// Incoming returns the edges from id's predecessors to id.
func (d *DAG) Incoming(id string) []Edge {
	return copyEdges(d.in[id])
}

// Len returns the number of nodes in the DAG.
func (d *DAG) Len() int {
	return len(d.nodes)
}

// TopologicalSort returns node IDs in a valid topological order
// (predecessors before successors). Among nodes freed at the same step,
// earlier-inserted nodes come first. Returns ErrCycle if the graph
// contains a cycle.
func (d *DAG) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		inDegree[id] = len(d.in[id])
	}

	queue := d.seqSorted(d.zeroDegreeNodes(inDegree))

	sorted := make([]string, 0, len(d.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		var freed []string
		for _, e := range d.out[id] {
			inDegree[e.To]--
			if inDegree[e.To] == 0 {
				freed = append(freed, e.To)
			}
		}
		if len(freed) > 0 {
			queue = append(queue, d.seqSorted(freed)...)
		}
	}

	if len(sorted) != len(d.nodes) {
		return nil, fmt.Errorf("%w: not all nodes could be ordered (%d of %d)",
			ErrCycle, len(sorted), len(d.nodes))
	}
	return sorted, nil
}

// Ancestors returns all transitive predecessors of the given node in
// insertion order. Returns nil if the node has no predecessors or does
// not exist.
func (d *DAG) Ancestors(id string) []string {
	return d.reach(id, func(e *Edge) string { return e.From }, d.in)
}

// Descendants returns all transitive successors of the given node in
// insertion order. Returns nil if the node has no successors or does not
// exist.
func (d *DAG) Descendants(id string) []string {
	return d.reach(id, func(e *Edge) string { return e.To }, d.out)
}

// reach walks adj breadth-first from id. The start node is only included
// when a cycle leads back to it.
func (d *DAG) reach(id string, next func(*Edge) string, adj map[string][]*Edge) []string {
	if _, ok := d.nodes[id]; !ok {
		return nil
	}
	visited := make(map[string]bool)
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range adj[cur] {
			n := next(e)
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	if len(visited) == 0 {
		return nil
	}
	result := make([]string, 0, len(visited))
	for v := range visited {
		result = append(result, v)
	}
	return d.seqSorted(result)
}

// zeroDegreeNodes returns IDs from the in-degree map that have zero value.
func (d *DAG) zeroDegreeNodes(inDegree map[string]int) []string {
	var result []string
	for id, deg := range inDegree {
		if deg == 0 {
			result = append(result, id)
		}
	}
	return result
}

// seqSorted sorts ids in place by node insertion order and returns them.
func (d *DAG) seqSorted(ids []string) []string {
	sort.Slice(ids, func(i, j int) bool {
		return d.nodes[ids[i]].Seq < d.nodes[ids[j]].Seq
	})
	return ids
}

func without(edges []*Edge, target *Edge) []*Edge {
	out := edges[:0]
	for _, e := range edges {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}

func copyEdges(edges []*Edge) []Edge {
	if len(edges) == 0 {
		return nil
	}
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = *e
	}
	return out
}
