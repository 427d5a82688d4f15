package graph

import (
	"testing"

	"github.com/ufo-kit/ufo-go/internal/buffer"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// fakeTask is a minimal task.Task used across the graph package's tests.
type fakeTask struct {
	*task.NodeState
	mode   task.Mode
	clones int
}

func newFakeTask(name string, mode task.Mode) *fakeTask {
	return &fakeTask{NodeState: task.NewNodeState(name, name), mode: mode}
}

func (t *fakeTask) Setup(task.Resources) error { return nil }
func (t *fakeTask) GetStructure() (uint, []task.InputParam, task.Mode) {
	return 1, []task.InputParam{{NDims: 2}}, t.mode
}
func (t *fakeTask) GetRequisition([]*buffer.Buffer) (buffer.Requisition, error) {
	return buffer.NewRequisition(1, 1), nil
}
func (t *fakeTask) Process([]*buffer.Buffer, *buffer.Buffer, buffer.Requisition) (bool, error) {
	return true, nil
}
func (t *fakeTask) Generate(*buffer.Buffer, buffer.Requisition) (bool, error) { return false, nil }
func (t *fakeTask) InputsStopped()                                           {}
func (t *fakeTask) Clone() task.Task {
	t.clones++
	return newFakeTask(t.UniqueName()+"-clone", t.mode)
}

func TestConnectNodesAddsMissingNodes(t *testing.T) {
	g := New()
	a := newFakeTask("a", task.ModeGenerator)
	b := newFakeTask("b", task.ModeSink)

	if err := g.ConnectNodes(a, b); err != nil {
		t.Fatalf("ConnectNodes: %v", err)
	}
	if g.NumNodes() != 2 {
		t.Fatalf("NumNodes() = %d, want 2", g.NumNodes())
	}
	if got := g.Successors(a); len(got) != 1 || got[0] != b {
		t.Fatalf("Successors(a) = %v, want [b]", got)
	}
}

func TestConnectNodesRejectsSecondProducer(t *testing.T) {
	g := New()
	a := newFakeTask("a", task.ModeGenerator)
	b := newFakeTask("b", task.ModeGenerator)
	c := newFakeTask("c", task.ModeSink)

	if err := g.ConnectNodesFull(a, c, 0); err != nil {
		t.Fatalf("ConnectNodesFull: %v", err)
	}
	if err := g.ConnectNodesFull(b, c, 0); err == nil {
		t.Fatalf("expected error connecting a second producer to the same input")
	}
}

func TestConnectNodesIdempotent(t *testing.T) {
	g := New()
	a := newFakeTask("a", task.ModeGenerator)
	b := newFakeTask("b", task.ModeSink)

	if err := g.ConnectNodes(a, b); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	if err := g.ConnectNodes(a, b); err != nil {
		t.Fatalf("repeated connect should be a no-op, got: %v", err)
	}
	if len(g.Edges()) != 1 {
		t.Fatalf("Edges() = %d, want 1", len(g.Edges()))
	}
}

func TestRootsAndLeaves(t *testing.T) {
	g := New()
	a := newFakeTask("a", task.ModeGenerator)
	b := newFakeTask("b", task.ModeProcessor)
	c := newFakeTask("c", task.ModeSink)

	g.ConnectNodes(a, b)
	g.ConnectNodes(b, c)

	roots := g.Roots()
	if len(roots) != 1 || roots[0] != a {
		t.Fatalf("Roots() = %v, want [a]", roots)
	}
	leaves := g.Leaves()
	if len(leaves) != 1 || leaves[0] != c {
		t.Fatalf("Leaves() = %v, want [c]", leaves)
	}
}

func TestCopyDeepClonesNodes(t *testing.T) {
	g := New()
	a := newFakeTask("a", task.ModeGenerator)
	b := newFakeTask("b", task.ModeSink)
	g.ConnectNodes(a, b)

	cp := g.Copy()
	if cp.NumNodes() != 2 {
		t.Fatalf("NumNodes() = %d, want 2", cp.NumNodes())
	}
	for _, n := range cp.Nodes() {
		if n == a || n == b {
			t.Fatalf("Copy() reused an original node instead of cloning")
		}
	}
}
