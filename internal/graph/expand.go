package graph

import "github.com/ufo-kit/ufo-go/internal/task"

// Expand duplicates the longest GPU-only run of tasks nWorkers-1 times so
// each duplicate forms its own parallel branch between the run's shared
// predecessor and successor, letting the fixed scheduler keep nWorkers
// GPUs busy on an otherwise strictly linear pipeline. It is a no-op if
// nWorkers <= 1, no GPU-only run exists, or any node on the run has more
// than one predecessor (duplicating it could deadlock a reductor that
// expects a fixed fan-in).
func (g *Graph) Expand(nWorkers int) error {
	if nWorkers <= 1 {
		return nil
	}

	path := g.longestPath(func(t task.Task) bool {
		_, _, mode := t.GetStructure()
		return mode.UsesGPU()
	})
	if len(path) == 0 {
		return nil
	}

	for _, n := range path {
		if len(g.Predecessors(n)) > 1 {
			return nil
		}
	}

	entry := path[0]
	exit := path[len(path)-1]
	preds := g.Predecessors(entry)
	succs := g.Successors(exit)

	for i := 1; i < nWorkers; i++ {
		clones := make([]task.Task, len(path))
		for j, n := range path {
			clones[j] = n.Clone()
			if err := g.AddNode(clones[j]); err != nil {
				return err
			}
		}
		for j := 0; j < len(clones)-1; j++ {
			if err := g.ConnectNodes(clones[j], clones[j+1]); err != nil {
				return err
			}
		}
		for _, p := range preds {
			if err := g.ConnectNodes(p, clones[0]); err != nil {
				return err
			}
		}
		for _, s := range succs {
			if err := g.ConnectNodes(clones[len(clones)-1], s); err != nil {
				return err
			}
		}
	}

	return nil
}
