// Package tasks is a minimal reference implementation of task.Task:
// enough to exercise the scheduler end to end and to back
// cmd/ufo-run's demo pipeline, not a production image-processing
// library.
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/ufo-kit/ufo-go/internal/buffer"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// Sequence is a GENERATOR that emits Count buffers of Width sequential
// float32 values, starting at 0.
type Sequence struct {
	*task.NodeState
	task.BaseTask

	Width int
	Count int

	emitted int
}

// NewSequence builds a Sequence generator with the given unique name.
func NewSequence(uniqueName string, width, count int) *Sequence {
	return &Sequence{
		NodeState: task.NewNodeState("const.generator", uniqueName),
		Width:     width,
		Count:     count,
	}
}

func (s *Sequence) GetStructure() (uint, []task.InputParam, task.Mode) {
	return 0, nil, task.ModeGenerator | task.ModeCPU
}

func (s *Sequence) GetRequisition(inputs []*buffer.Buffer) (buffer.Requisition, error) {
	return buffer.NewRequisition(s.Width), nil
}

func (s *Sequence) Generate(output *buffer.Buffer, req buffer.Requisition) (bool, error) {
	if s.emitted >= s.Count {
		return false, nil
	}

	host, err := output.GetHost(nil)
	if err != nil {
		return false, err
	}
	base := float32(s.emitted * s.Width)
	for i := range host {
		host[i] = base + float32(i)
	}

	s.emitted++
	s.IncreaseProcessed()
	return true, nil
}

// SetProperty accepts "width" and "count", letting a JSON graph
// description configure a Sequence node without a dedicated constructor
// call.
func (s *Sequence) SetProperty(name string, value json.RawMessage) error {
	switch name {
	case "width":
		return json.Unmarshal(value, &s.Width)
	case "count":
		return json.Unmarshal(value, &s.Count)
	default:
		return fmt.Errorf("sequence: unknown property %q", name)
	}
}

// Properties returns "width" and "count".
func (s *Sequence) Properties() map[string]json.RawMessage {
	width, err := json.Marshal(s.Width)
	if err != nil {
		return nil
	}
	count, err := json.Marshal(s.Count)
	if err != nil {
		return nil
	}
	return map[string]json.RawMessage{"width": width, "count": count}
}

func (s *Sequence) Clone() task.Task {
	clone := *s
	clone.NodeState = task.NewNodeState(s.PluginName(), s.UniqueName())
	clone.emitted = 0
	return &clone
}
