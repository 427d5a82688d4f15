package ufo

import (
	"sync"

	"github.com/ufo-kit/ufo-go/internal/buffer"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// MockTask is a configurable task.Task for scheduler/runner tests. It
// tracks method call counts for verification, the Task-graph analog of
// the retired MockBackend's instrumented block-device stand-in.
type MockTask struct {
	*task.NodeState
	task.BaseTask

	Mode     task.Mode
	NumIn    uint
	InParams []task.InputParam

	// Hooks, called by the corresponding Task method if set; nil hooks
	// fall back to BaseTask's no-op defaults (or, for GetRequisition, a
	// fixed 1-D requisition of width 1).
	OnGetRequisition func(inputs []*buffer.Buffer) (buffer.Requisition, error)
	OnProcess        func(inputs []*buffer.Buffer, output *buffer.Buffer, req buffer.Requisition) (bool, error)
	OnGenerate       func(output *buffer.Buffer, req buffer.Requisition) (bool, error)

	mu               sync.Mutex
	setupCalls       int
	requisitionCalls int
	processCalls     int
	generateCalls    int
	inputsStopped    int
}

// NewMockTask builds a MockTask with the given unique name and mode.
func NewMockTask(uniqueName string, mode task.Mode) *MockTask {
	return &MockTask{
		NodeState: task.NewNodeState("mock", uniqueName),
		Mode:      mode,
	}
}

func (m *MockTask) Setup(r task.Resources) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setupCalls++
	return nil
}

func (m *MockTask) GetStructure() (uint, []task.InputParam, task.Mode) {
	return m.NumIn, m.InParams, m.Mode
}

func (m *MockTask) GetRequisition(inputs []*buffer.Buffer) (buffer.Requisition, error) {
	m.mu.Lock()
	m.requisitionCalls++
	m.mu.Unlock()

	if m.OnGetRequisition != nil {
		return m.OnGetRequisition(inputs)
	}
	return buffer.NewRequisition(1), nil
}

func (m *MockTask) Process(inputs []*buffer.Buffer, output *buffer.Buffer, req buffer.Requisition) (bool, error) {
	m.mu.Lock()
	m.processCalls++
	m.mu.Unlock()

	if m.OnProcess != nil {
		return m.OnProcess(inputs, output, req)
	}
	return false, nil
}

func (m *MockTask) Generate(output *buffer.Buffer, req buffer.Requisition) (bool, error) {
	m.mu.Lock()
	m.generateCalls++
	m.mu.Unlock()

	if m.OnGenerate != nil {
		return m.OnGenerate(output, req)
	}
	return false, nil
}

func (m *MockTask) InputsStopped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputsStopped++
}

// CallCounts returns the number of times each Task method has been
// called, for assertion in tests.
func (m *MockTask) CallCounts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int{
		"setup":         m.setupCalls,
		"requisition":   m.requisitionCalls,
		"process":       m.processCalls,
		"generate":      m.generateCalls,
		"inputsStopped": m.inputsStopped,
	}
}

func (m *MockTask) Clone() task.Task {
	clone := *m
	clone.NodeState = task.NewNodeState(m.PluginName(), m.UniqueName())
	clone.setupCalls, clone.requisitionCalls, clone.processCalls, clone.generateCalls, clone.inputsStopped = 0, 0, 0, 0, 0
	return &clone
}

var _ task.Task = (*MockTask)(nil)
