package graph

import (
	"fmt"

	"github.com/ufo-kit/ufo-go/internal/logging"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// ValidationError reports a structural problem found by IsAlright.
type ValidationError struct {
	Node   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("graph: %q %s", e.Node, e.Reason)
}

// IsAlright checks that the graph is properly connected: every leaf must
// be a sink, and the graph must be acyclic. A node fed by both a
// processor and a reductor predecessor is only warned about, since it
// may deadlock but is not necessarily wrong.
func (g *Graph) IsAlright() error {
	if err := g.checkAcyclic(); err != nil {
		return err
	}

	for _, n := range g.Nodes() {
		preds := g.Predecessors(n)
		if len(preds) <= 1 {
			continue
		}
		var combined task.Mode
		for _, p := range preds {
			_, _, mode := p.GetStructure()
			combined |= mode
		}
		if combined&task.ModeProcessor != 0 && combined&task.ModeReductor != 0 {
			logging.Default().Warnf("%q receives both processor and reductor inputs which may deadlock", n.UniqueName())
		}
	}

	for _, n := range g.Leaves() {
		_, _, mode := n.GetStructure()
		if mode.Type() != task.ModeSink {
			return &ValidationError{Node: n.UniqueName(), Reason: "is a leaf node but not a sink task"}
		}
	}

	return nil
}

// checkAcyclic runs a depth-first topological sort and fails if it
// encounters a back edge.
func (g *Graph) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[task.Task]int)
	var visit func(n task.Task) error
	visit = func(n task.Task) error {
		switch state[n] {
		case done:
			return nil
		case visiting:
			return &ValidationError{Node: n.UniqueName(), Reason: "is part of a cycle"}
		}
		state[n] = visiting
		for _, succ := range g.Successors(n) {
			if err := visit(succ); err != nil {
				return err
			}
		}
		state[n] = done
		return nil
	}

	for _, n := range g.Nodes() {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}
