package tasks

import (
	"sync"

	"github.com/ufo-kit/ufo-go/internal/buffer"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// Collect is a SINK that copies every round of its single input into an
// in-memory log, for tests and the demo binary to inspect after a run
// completes.
type Collect struct {
	*task.NodeState
	task.BaseTask

	mu     sync.Mutex
	rounds [][]float32
}

// NewCollect builds a Collect sink with the given unique name.
func NewCollect(uniqueName string) *Collect {
	return &Collect{NodeState: task.NewNodeState("collect.sink", uniqueName)}
}

func (c *Collect) GetStructure() (uint, []task.InputParam, task.Mode) {
	return 1, []task.InputParam{{NDims: 1}}, task.ModeSink | task.ModeCPU
}

func (c *Collect) GetRequisition(inputs []*buffer.Buffer) (buffer.Requisition, error) {
	return buffer.Requisition{}, nil
}

func (c *Collect) Process(inputs []*buffer.Buffer, output *buffer.Buffer, req buffer.Requisition) (bool, error) {
	host, err := inputs[0].GetHost(nil)
	if err != nil {
		return false, err
	}
	round := make([]float32, len(host))
	copy(round, host)

	c.mu.Lock()
	c.rounds = append(c.rounds, round)
	c.mu.Unlock()

	c.IncreaseProcessed()
	return false, nil
}

// Rounds returns every round received so far, in arrival order.
func (c *Collect) Rounds() [][]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]float32, len(c.rounds))
	copy(out, c.rounds)
	return out
}

func (c *Collect) Clone() task.Task {
	return &Collect{NodeState: task.NewNodeState(c.PluginName(), c.UniqueName())}
}
