// Package graph implements the typed task DAG: generic directed-graph
// utilities, structural validation, JSON round-trip and the expand/map
// operations that prepare a graph for the fixed scheduler.
package graph

import (
	"fmt"
	"sync"

	"github.com/ufo-kit/ufo-go/internal/task"
)

// Edge is a triple (source, target, input-port). Two edges may share a
// source (fan-out) but not the pair (target, input) — each input port of
// a node has at most one producer.
type Edge struct {
	From  task.Task
	To    task.Task
	Input uint
}

// Graph is a DAG of tasks connected by Edges, mirroring the source's
// split between a generic directed-graph layer and the task-specific
// layer built on top of it — kept as one type here because nothing in
// this repository needs the generic layer on its own.
type Graph struct {
	mu sync.Mutex

	nodes  []task.Task
	byName map[string]task.Task
	edges  []Edge

	partitionIndex, partitionTotal uint
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		byName:         make(map[string]task.Task),
		partitionTotal: 1,
	}
}

// AddNode registers a task under its unique name. Returns an error if the
// name is already taken.
func (g *Graph) AddNode(t task.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNodeLocked(t)
}

func (g *Graph) addNodeLocked(t task.Task) error {
	name := t.UniqueName()
	if _, exists := g.byName[name]; exists {
		return fmt.Errorf("graph: duplicate node name %q", name)
	}
	g.byName[name] = t
	g.nodes = append(g.nodes, t)
	return nil
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []task.Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]task.Task, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns every edge in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// ByName looks up a node by its unique name.
func (g *Graph) ByName(name string) (task.Task, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.byName[name]
	return t, ok
}

// ConnectNodes connects a to b on b's default input port (0).
func (g *Graph) ConnectNodes(a, b task.Task) error {
	return g.ConnectNodesFull(a, b, 0)
}

// ConnectNodesFull connects a to b on b's given input port. It is
// idempotent for a repeated identical (a, b, input) triple, but rejects
// a second, different producer for the same (b, input) pair.
func (g *Graph) ConnectNodesFull(a, b task.Task, input uint) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.byName[a.UniqueName()]; !ok {
		if err := g.addNodeLocked(a); err != nil {
			return err
		}
	}
	if _, ok := g.byName[b.UniqueName()]; !ok {
		if err := g.addNodeLocked(b); err != nil {
			return err
		}
	}

	for _, e := range g.edges {
		if e.To == b && e.Input == input {
			if e.From == a {
				return nil
			}
			return fmt.Errorf("graph: input %d of %q already has a producer", input, b.UniqueName())
		}
	}

	g.edges = append(g.edges, Edge{From: a, To: b, Input: input})
	return nil
}

// Predecessors returns the distinct source tasks of every edge into n.
func (g *Graph) Predecessors(n task.Task) []task.Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []task.Task
	seen := make(map[task.Task]bool)
	for _, e := range g.edges {
		if e.To == n && !seen[e.From] {
			seen[e.From] = true
			out = append(out, e.From)
		}
	}
	return out
}

// Successors returns the distinct target tasks of every edge out of n.
func (g *Graph) Successors(n task.Task) []task.Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []task.Task
	seen := make(map[task.Task]bool)
	for _, e := range g.edges {
		if e.From == n && !seen[e.To] {
			seen[e.To] = true
			out = append(out, e.To)
		}
	}
	return out
}

// OutEdges returns every outgoing edge of n, in the list order used by
// the scheduler's per-mode loops.
func (g *Graph) OutEdges(n task.Task) []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Edge
	for _, e := range g.edges {
		if e.From == n {
			out = append(out, e)
		}
	}
	return out
}

// InEdges returns every incoming edge of n.
func (g *Graph) InEdges(n task.Task) []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Edge
	for _, e := range g.edges {
		if e.To == n {
			out = append(out, e)
		}
	}
	return out
}

// Roots returns every node with no predecessors.
func (g *Graph) Roots() []task.Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	hasPred := make(map[task.Task]bool)
	for _, e := range g.edges {
		hasPred[e.To] = true
	}
	var out []task.Task
	for _, n := range g.nodes {
		if !hasPred[n] {
			out = append(out, n)
		}
	}
	return out
}

// Leaves returns every node with no successors.
func (g *Graph) Leaves() []task.Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	hasSucc := make(map[task.Task]bool)
	for _, e := range g.edges {
		hasSucc[e.From] = true
	}
	var out []task.Task
	for _, n := range g.nodes {
		if !hasSucc[n] {
			out = append(out, n)
		}
	}
	return out
}

// SetPartition records the graph-level (index, total) cooperative
// partition, used when this graph is a fragment of a larger execution.
func (g *Graph) SetPartition(index, total uint) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.partitionIndex, g.partitionTotal = index, total
}

// Partition returns the graph-level (index, total).
func (g *Graph) Partition() (index, total uint) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.partitionIndex, g.partitionTotal
}

// Copy deep-copies nodes (via Task.Clone) and edges into a fresh Graph.
func (g *Graph) Copy() *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := New()
	clones := make(map[task.Task]task.Task, len(g.nodes))
	for _, n := range g.nodes {
		c := n.Clone()
		clones[n] = c
		out.addNodeLocked(c)
	}
	for _, e := range g.edges {
		out.edges = append(out.edges, Edge{From: clones[e.From], To: clones[e.To], Input: e.Input})
	}
	out.partitionIndex, out.partitionTotal = g.partitionIndex, g.partitionTotal
	return out
}
