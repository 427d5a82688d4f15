package task

import "sync"

// ProcessingNode is an abstract identity of a compute resource a GPU-mode
// task is assigned to, typically one GPU. It is opaque to this package;
// internal/resources defines the concrete type.
type ProcessingNode interface{}

// Profiler is the narrow observer interface a worker reports timing and
// trace events through: the task layer only needs to call it, never
// construct or enumerate it.
type Profiler interface {
	Start(timer string)
	Stop(timer string)
	TraceEvent(name, phase string)
}

// NoOpProfiler discards every call, used when tracing is disabled.
type NoOpProfiler struct{}

func (NoOpProfiler) Start(string)            {}
func (NoOpProfiler) Stop(string)             {}
func (NoOpProfiler) TraceEvent(string, string) {}

// Profiled is implemented by tasks that expose their attached Profiler,
// ordinarily satisfied automatically by embedding *NodeState. The
// scheduler type-asserts for it rather than requiring it of every Task,
// since a hand-written Task with no NodeState simply runs unprofiled.
type Profiled interface {
	Profiler() Profiler
	SetProfiler(p Profiler)
}

// NodeState holds the attributes every task carries regardless of its
// concrete type, replacing the source's TaskNode -> UfoNode inheritance
// with composition: concrete tasks embed NodeState instead of extending
// a base class.
type NodeState struct {
	mu sync.Mutex

	pluginName string
	uniqueName string

	node     ProcessingNode
	profiler Profiler

	partitionIndex uint
	partitionTotal uint

	processed uint64
}

// NewNodeState builds a NodeState with tracing disabled by default.
func NewNodeState(pluginName, uniqueName string) *NodeState {
	return &NodeState{
		pluginName:     pluginName,
		uniqueName:     uniqueName,
		profiler:       NoOpProfiler{},
		partitionTotal: 1,
	}
}

func (n *NodeState) PluginName() string { return n.pluginName }
func (n *NodeState) UniqueName() string { return n.uniqueName }

// SetUniqueName rebinds the node's identity, satisfying the optional
// Renamable interface. A freshly constructed task only knows the name
// its factory gave it; loading a graph from a JSON description needs to
// rebind that to the name the description's edge list actually refers
// to it by.
func (n *NodeState) SetUniqueName(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.uniqueName = name
}

func (n *NodeState) SetProcessingNode(node ProcessingNode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.node = node
}

func (n *NodeState) ProcessingNode() ProcessingNode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.node
}

func (n *NodeState) SetProfiler(p Profiler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.profiler = p
}

func (n *NodeState) Profiler() Profiler {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.profiler == nil {
		return NoOpProfiler{}
	}
	return n.profiler
}

func (n *NodeState) SetPartition(index, total uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.partitionIndex = index
	n.partitionTotal = total
}

func (n *NodeState) Partition() (index, total uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.partitionIndex, n.partitionTotal
}

func (n *NodeState) IncreaseProcessed() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.processed++
}

func (n *NodeState) Processed() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.processed
}
