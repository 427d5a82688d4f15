package scheduler

import (
	"github.com/ufo-kit/ufo-go/internal/buffer"
	"github.com/ufo-kit/ufo-go/internal/graph"
	"github.com/ufo-kit/ufo-go/internal/queue"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// connectionTable is the set of TwoWayQueues wiring every edge of a
// graph, the Go equivalent of the per-edge GAsyncQueue pairs the fixed
// scheduler builds before spawning its per-task threads.
type connectionTable struct {
	// outputs[node] holds one TwoWayQueue per outgoing edge, in the
	// order returned by Graph.OutEdges.
	outputs map[task.Task][]*queue.TwoWayQueue
	// inputs[node] holds one TwoWayQueue per input port, indexed by
	// port number; a port with no producer (malformed graph) is nil.
	inputs map[task.Task][]*queue.TwoWayQueue
}

// buildConnections allocates one TwoWayQueue per edge and seeds each
// with recyclePerEdge empty buffers sized to a one-element requisition;
// the first real GetRequisition call resizes them in place.
func buildConnections(g *graph.Graph, recyclePerEdge int) *connectionTable {
	ct := &connectionTable{
		outputs: make(map[task.Task][]*queue.TwoWayQueue),
		inputs:  make(map[task.Task][]*queue.TwoWayQueue),
	}

	edgeQueues := make(map[graph.Edge]*queue.TwoWayQueue)
	for _, e := range g.Edges() {
		q := queue.New()
		for i := 0; i < recyclePerEdge; i++ {
			b, _ := buffer.New(buffer.NewRequisition(1), nil)
			q.Insert(b)
		}
		edgeQueues[e] = q
	}

	for _, n := range g.Nodes() {
		for _, e := range g.OutEdges(n) {
			ct.outputs[n] = append(ct.outputs[n], edgeQueues[e])
		}

		ins := ct.inputs[n]
		for _, e := range g.InEdges(n) {
			for len(ins) <= int(e.Input) {
				ins = append(ins, nil)
			}
			ins[e.Input] = edgeQueues[e]
		}
		ct.inputs[n] = ins
	}

	return ct
}
