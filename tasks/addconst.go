package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/ufo-kit/ufo-go/internal/buffer"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// AddConst is a PROCESSOR that adds a fixed value to every element of
// its single input, a minimal reference processor for exercising the
// scheduler's pass-through path.
type AddConst struct {
	*task.NodeState
	task.BaseTask

	Value float32
}

// NewAddConst builds an AddConst processor with the given unique name.
func NewAddConst(uniqueName string, value float32) *AddConst {
	return &AddConst{
		NodeState: task.NewNodeState("addconst", uniqueName),
		Value:     value,
	}
}

func (a *AddConst) GetStructure() (uint, []task.InputParam, task.Mode) {
	return 1, []task.InputParam{{NDims: 1}}, task.ModeProcessor | task.ModeCPU
}

func (a *AddConst) GetRequisition(inputs []*buffer.Buffer) (buffer.Requisition, error) {
	if len(inputs) != 1 || inputs[0] == nil {
		return buffer.Requisition{}, fmt.Errorf("add-const: expected exactly one input")
	}
	return inputs[0].Requisition(), nil
}

func (a *AddConst) Process(inputs []*buffer.Buffer, output *buffer.Buffer, req buffer.Requisition) (bool, error) {
	in, err := inputs[0].GetHost(nil)
	if err != nil {
		return false, err
	}
	out, err := output.GetHost(nil)
	if err != nil {
		return false, err
	}
	for i := range in {
		out[i] = in[i] + a.Value
	}
	a.IncreaseProcessed()
	return true, nil
}

// SetProperty accepts "value", the constant added to every element.
func (a *AddConst) SetProperty(name string, raw json.RawMessage) error {
	if name != "value" {
		return fmt.Errorf("add-const: unknown property %q", name)
	}
	return json.Unmarshal(raw, &a.Value)
}

// Properties returns "value", the constant added to every element.
func (a *AddConst) Properties() map[string]json.RawMessage {
	raw, err := json.Marshal(a.Value)
	if err != nil {
		return nil
	}
	return map[string]json.RawMessage{"value": raw}
}

func (a *AddConst) Clone() task.Task {
	clone := *a
	clone.NodeState = task.NewNodeState(a.PluginName(), a.UniqueName())
	return &clone
}
