package graph

import "github.com/ufo-kit/ufo-go/internal/task"

// longestPath returns the longest sequence of adjacent nodes that all
// satisfy pred, searching the whole graph rather than just from roots
// since the matching run may start in the middle of the pipeline.
func (g *Graph) longestPath(pred func(task.Task) bool) []task.Task {
	memo := make(map[task.Task][]task.Task)

	var best func(n task.Task) []task.Task
	best = func(n task.Task) []task.Task {
		if path, ok := memo[n]; ok {
			return path
		}
		memo[n] = nil // break cycles defensively; graph is expected acyclic
		if !pred(n) {
			return nil
		}

		var longest []task.Task
		for _, succ := range g.Successors(n) {
			if cand := best(succ); len(cand) > len(longest) {
				longest = cand
			}
		}

		path := append([]task.Task{n}, longest...)
		memo[n] = path
		return path
	}

	var overall []task.Task
	for _, n := range g.Nodes() {
		if cand := best(n); len(cand) > len(overall) {
			overall = cand
		}
	}
	return overall
}
