package graph

import (
	"github.com/ufo-kit/ufo-go/internal/logging"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// Map assigns every GPU-mode task (and any already-mapped node left
// untouched) a processing node from gpuNodes, walking the graph
// breadth-first from its roots and round-robining across gpuNodes, one
// step per task it assigns. Not calling Map before running a graph that
// contains GPU tasks leaves ProcessingNode unset, which the scheduler
// rejects at Setup time.
func (g *Graph) Map(gpuNodes []task.ProcessingNode) {
	next := 0
	pending := g.Roots()
	seen := make(map[task.Task]bool)
	for len(pending) > 0 {
		n := pending[0]
		pending = pending[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		if g.mapNode(n, next, gpuNodes) {
			next++
		}
		pending = append(pending, g.Successors(n)...)
	}
}

// mapNode assigns gpuNodes[procIndex % len(gpuNodes)] to n if n is an
// unmapped GPU task, and reports whether it made an assignment.
func (g *Graph) mapNode(n task.Task, procIndex int, gpuNodes []task.ProcessingNode) bool {
	nGPUs := len(gpuNodes)

	if n.ProcessingNode() == nil {
		_, _, mode := n.GetStructure()
		if mode.UsesGPU() {
			if nGPUs == 0 {
				logging.Warn("no processing nodes available to map a GPU task to", "task", n.UniqueName())
			} else {
				node := gpuNodes[procIndex%nGPUs]
				logging.Debug("mapping processing node to task", "node", node, "task", n.UniqueName())
				n.SetProcessingNode(node)
				return true
			}
		}
	}
	return false
}
