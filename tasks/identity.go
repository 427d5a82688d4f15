package tasks

import (
	"fmt"

	"github.com/ufo-kit/ufo-go/internal/buffer"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// Identity is a PROCESSOR that copies its single input straight to its
// output, the smallest possible stand-in for a plugin that does real
// per-pixel work, used as a pipeline filler when a graph needs a node
// in a given mode without caring what it computes.
type Identity struct {
	*task.NodeState
	task.BaseTask
}

// NewIdentity builds an Identity processor with the given unique name.
func NewIdentity(uniqueName string) *Identity {
	return &Identity{NodeState: task.NewNodeState("identity", uniqueName)}
}

func (id *Identity) GetStructure() (uint, []task.InputParam, task.Mode) {
	return 1, []task.InputParam{{NDims: 1}}, task.ModeProcessor | task.ModeCPU
}

func (id *Identity) GetRequisition(inputs []*buffer.Buffer) (buffer.Requisition, error) {
	if len(inputs) != 1 || inputs[0] == nil {
		return buffer.Requisition{}, fmt.Errorf("identity: expected exactly one input")
	}
	return inputs[0].Requisition(), nil
}

func (id *Identity) Process(inputs []*buffer.Buffer, output *buffer.Buffer, req buffer.Requisition) (bool, error) {
	if err := buffer.Copy(output, inputs[0]); err != nil {
		return false, err
	}
	id.IncreaseProcessed()
	return true, nil
}

func (id *Identity) Clone() task.Task {
	return &Identity{NodeState: task.NewNodeState(id.PluginName(), id.UniqueName())}
}
