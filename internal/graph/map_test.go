package graph

import (
	"testing"

	"github.com/ufo-kit/ufo-go/internal/task"
)

func TestMapAssignsGPUTasksRoundRobin(t *testing.T) {
	g := New()
	gen := newFakeTask("gen", task.ModeGenerator)
	gpuA := newFakeTask("gpuA", task.ModeProcessor|task.ModeGPU)
	gpuB := newFakeTask("gpuB", task.ModeProcessor|task.ModeGPU)
	sink := newFakeTask("sink", task.ModeSink)

	g.ConnectNodes(gen, gpuA)
	g.ConnectNodes(gpuA, gpuB)
	g.ConnectNodes(gpuB, sink)

	nodes := []task.ProcessingNode{"gpu-0", "gpu-1"}
	g.Map(nodes)

	if gpuA.ProcessingNode() != "gpu-0" {
		t.Fatalf("gpuA.ProcessingNode() = %v, want gpu-0", gpuA.ProcessingNode())
	}
	if gpuB.ProcessingNode() != "gpu-1" {
		t.Fatalf("gpuB.ProcessingNode() = %v, want gpu-1", gpuB.ProcessingNode())
	}
	if gen.ProcessingNode() != nil {
		t.Fatalf("gen.ProcessingNode() = %v, want nil (CPU generator)", gen.ProcessingNode())
	}
}

func TestMapLeavesExistingAssignmentAlone(t *testing.T) {
	g := New()
	gpuA := newFakeTask("gpuA", task.ModeGenerator|task.ModeGPU)
	sink := newFakeTask("sink", task.ModeSink)
	g.ConnectNodes(gpuA, sink)
	gpuA.SetProcessingNode("pinned")

	g.Map([]task.ProcessingNode{"gpu-0"})

	if gpuA.ProcessingNode() != "pinned" {
		t.Fatalf("Map overwrote a pre-assigned processing node: got %v", gpuA.ProcessingNode())
	}
}
