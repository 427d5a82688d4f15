package graph

import (
	"encoding/json"
	"testing"

	"github.com/ufo-kit/ufo-go/internal/registry"
	"github.com/ufo-kit/ufo-go/internal/task"
)

type configurableTask struct {
	*fakeTask
	value int
}

func (t *configurableTask) SetProperty(name string, raw json.RawMessage) error {
	if name != "value" {
		return nil
	}
	return json.Unmarshal(raw, &t.value)
}

func (t *configurableTask) Properties() map[string]json.RawMessage {
	raw, _ := json.Marshal(t.value)
	return map[string]json.RawMessage{"value": raw}
}

func TestReadFromDataBuildsGraph(t *testing.T) {
	reg := registry.New()
	reg.Register("reader", func() task.Task { return newFakeTask("reader", task.ModeGenerator) })
	reg.Register("writer", func() task.Task { return newFakeTask("writer", task.ModeSink) })

	data := []byte(`{
		"version": "1.1",
		"nodes": [
			{"plugin": "reader", "name": "r0"},
			{"plugin": "writer", "name": "w0"}
		],
		"edges": [
			{"from": {"name": "r0"}, "to": {"name": "w0", "input": 0}}
		],
		"index": 0,
		"total": 1
	}`)

	g, err := ReadFromData(data, reg)
	if err != nil {
		t.Fatalf("ReadFromData: %v", err)
	}
	if g.NumNodes() != 2 {
		t.Fatalf("NumNodes() = %d, want 2", g.NumNodes())
	}
	if len(g.Edges()) != 1 {
		t.Fatalf("len(Edges()) = %d, want 1", len(g.Edges()))
	}
}

func TestReadFromDataAppliesProperties(t *testing.T) {
	reg := registry.New()
	reg.Register("configurable", func() task.Task {
		return &configurableTask{fakeTask: newFakeTask("configurable", task.ModeGenerator)}
	})

	data := []byte(`{
		"version": "1.1",
		"nodes": [
			{"plugin": "configurable", "name": "c0", "properties": {"value": 42}}
		],
		"edges": []
	}`)

	g, err := ReadFromData(data, reg)
	if err != nil {
		t.Fatalf("ReadFromData: %v", err)
	}
	n, ok := g.ByName("c0")
	if !ok {
		t.Fatalf("node c0 not found")
	}
	ct := n.(*configurableTask)
	if ct.value != 42 {
		t.Fatalf("value = %d, want 42", ct.value)
	}
}

func TestReadFromDataRejectsUnknownEdgeEndpoint(t *testing.T) {
	reg := registry.New()
	reg.Register("reader", func() task.Task { return newFakeTask("reader", task.ModeGenerator) })

	data := []byte(`{
		"version": "1.1",
		"nodes": [{"plugin": "reader", "name": "r0"}],
		"edges": [{"from": {"name": "r0"}, "to": {"name": "missing"}}]
	}`)

	if _, err := ReadFromData(data, reg); err == nil {
		t.Fatalf("expected an error for an edge referencing an unknown node")
	}
}

func TestJSONDataRoundTrip(t *testing.T) {
	reg := registry.New()
	reg.Register("reader", func() task.Task { return newFakeTask("reader", task.ModeGenerator) })
	reg.Register("writer", func() task.Task { return newFakeTask("writer", task.ModeSink) })

	g := New()
	r := newFakeTask("r0", task.ModeGenerator)
	r.NodeState = task.NewNodeState("reader", "r0")
	w := newFakeTask("w0", task.ModeSink)
	w.NodeState = task.NewNodeState("writer", "w0")
	g.ConnectNodes(r, w)

	data, err := g.JSONData()
	if err != nil {
		t.Fatalf("JSONData: %v", err)
	}

	g2, err := ReadFromData(data, reg)
	if err != nil {
		t.Fatalf("ReadFromData(round-trip): %v", err)
	}
	if g2.NumNodes() != 2 || len(g2.Edges()) != 1 {
		t.Fatalf("round-tripped graph mismatch: nodes=%d edges=%d", g2.NumNodes(), len(g2.Edges()))
	}
}

func TestJSONDataRoundTripPreservesProperties(t *testing.T) {
	reg := registry.New()
	reg.Register("configurable", func() task.Task {
		return &configurableTask{fakeTask: newFakeTask("configurable", task.ModeGenerator)}
	})

	g := New()
	c := &configurableTask{fakeTask: newFakeTask("c0", task.ModeGenerator), value: 42}
	c.NodeState = task.NewNodeState("configurable", "c0")
	if err := g.AddNode(c); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	data, err := g.JSONData()
	if err != nil {
		t.Fatalf("JSONData: %v", err)
	}

	g2, err := ReadFromData(data, reg)
	if err != nil {
		t.Fatalf("ReadFromData(round-trip): %v", err)
	}
	n, ok := g2.ByName("c0")
	if !ok {
		t.Fatalf("node c0 not found")
	}
	ct := n.(*configurableTask)
	if ct.value != 42 {
		t.Fatalf("value = %d, want 42 (property did not survive JSONData round-trip)", ct.value)
	}
}
