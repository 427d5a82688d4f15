package tasks

import (
	"math"

	"github.com/ufo-kit/ufo-go/internal/buffer"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// MinReduce is a REDUCTOR that folds every element of every input round
// into a single running minimum, then emits that scalar once the
// upstream GENERATOR is exhausted.
type MinReduce struct {
	*task.NodeState
	task.BaseTask

	min     float32
	emitted bool
}

// NewMinReduce builds a MinReduce reductor with the given unique name.
func NewMinReduce(uniqueName string) *MinReduce {
	return &MinReduce{
		NodeState: task.NewNodeState("minreduce", uniqueName),
		min:       float32(math.Inf(1)),
	}
}

func (m *MinReduce) GetStructure() (uint, []task.InputParam, task.Mode) {
	return 1, []task.InputParam{{NDims: 1}}, task.ModeReductor | task.ModeCPU
}

func (m *MinReduce) GetRequisition(inputs []*buffer.Buffer) (buffer.Requisition, error) {
	return buffer.NewRequisition(1), nil
}

// Process folds one round of input into the running minimum. It never
// produces an output buffer itself; the scalar result only appears once
// Generate is called during the post-stream drain.
func (m *MinReduce) Process(inputs []*buffer.Buffer, output *buffer.Buffer, req buffer.Requisition) (bool, error) {
	host, err := inputs[0].GetHost(nil)
	if err != nil {
		return false, err
	}
	for _, v := range host {
		if v < m.min {
			m.min = v
		}
	}
	m.IncreaseProcessed()
	return false, nil
}

// Generate emits the accumulated minimum exactly once.
func (m *MinReduce) Generate(output *buffer.Buffer, req buffer.Requisition) (bool, error) {
	if m.emitted {
		return false, nil
	}
	host, err := output.GetHost(nil)
	if err != nil {
		return false, err
	}
	host[0] = m.min
	m.emitted = true
	return true, nil
}

func (m *MinReduce) Clone() task.Task {
	clone := *m
	clone.NodeState = task.NewNodeState(m.PluginName(), m.UniqueName())
	clone.min = float32(math.Inf(1))
	clone.emitted = false
	return &clone
}
