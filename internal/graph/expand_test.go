package graph

import (
	"testing"

	"github.com/ufo-kit/ufo-go/internal/task"
)

func TestExpandDuplicatesGPUChain(t *testing.T) {
	g := New()
	gen := newFakeTask("gen", task.ModeGenerator)
	gpu1 := newFakeTask("gpu1", task.ModeProcessor|task.ModeGPU)
	gpu2 := newFakeTask("gpu2", task.ModeProcessor|task.ModeGPU)
	sink := newFakeTask("sink", task.ModeSink)

	g.ConnectNodes(gen, gpu1)
	g.ConnectNodes(gpu1, gpu2)
	g.ConnectNodes(gpu2, sink)

	if err := g.Expand(3); err != nil {
		t.Fatalf("Expand: %v", err)
	}

	// Two extra branches of two GPU nodes each were added.
	if got := g.NumNodes(); got != 8 {
		t.Fatalf("NumNodes() = %d, want 8", got)
	}
	if got := len(g.Successors(gen)); got != 3 {
		t.Fatalf("gen has %d successors, want 3", got)
	}
	if got := len(g.Predecessors(sink)); got != 3 {
		t.Fatalf("sink has %d predecessors, want 3", got)
	}
}

func TestExpandNoOpBelowTwoWorkers(t *testing.T) {
	g := New()
	gen := newFakeTask("gen", task.ModeGenerator)
	sink := newFakeTask("sink", task.ModeSink)
	g.ConnectNodes(gen, sink)

	if err := g.Expand(1); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if g.NumNodes() != 2 {
		t.Fatalf("NumNodes() = %d, want unchanged 2", g.NumNodes())
	}
}

func TestExpandSkipsWhenNoGPUPath(t *testing.T) {
	g := New()
	gen := newFakeTask("gen", task.ModeGenerator)
	proc := newFakeTask("proc", task.ModeProcessor)
	sink := newFakeTask("sink", task.ModeSink)
	g.ConnectNodes(gen, proc)
	g.ConnectNodes(proc, sink)

	if err := g.Expand(4); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if g.NumNodes() != 3 {
		t.Fatalf("NumNodes() = %d, want unchanged 3 (no GPU task present)", g.NumNodes())
	}
}
