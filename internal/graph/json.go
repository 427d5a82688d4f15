package graph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ufo-kit/ufo-go/internal/registry"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// jsonAPIVersion is bumped whenever the root object's fields change.
// 1.1 added the "index"/"total" partition keys.
const jsonAPIVersion = "1.1"

type jsonRoot struct {
	Version string        `json:"version"`
	Nodes   []jsonNode    `json:"nodes"`
	Edges   []jsonEdge    `json:"edges"`
	Index   uint          `json:"index"`
	Total   uint          `json:"total"`
}

type jsonNode struct {
	Plugin     string                     `json:"plugin"`
	Package    string                     `json:"package,omitempty"`
	Name       string                     `json:"name"`
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
}

type jsonEndpoint struct {
	Name  string `json:"name"`
	Input uint   `json:"input,omitempty"`
}

type jsonEdge struct {
	From jsonEndpoint `json:"from"`
	To   jsonEndpoint `json:"to"`
}

// ReadFromData parses a JSON-encoded graph description, resolving each
// node's "plugin" name through reg.
func ReadFromData(data []byte, reg *registry.Registry) (*Graph, error) {
	var root jsonRoot
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("graph: parsing json: %w", err)
	}

	g := New()
	g.SetPartition(root.Index, root.Total)

	byName := make(map[string]task.Task, len(root.Nodes))
	for _, jn := range root.Nodes {
		t, err := reg.Create(jn.Plugin)
		if err != nil {
			return nil, err
		}
		if ren, ok := t.(task.Renamable); ok {
			ren.SetUniqueName(jn.Name)
		} else if t.UniqueName() != jn.Name {
			return nil, fmt.Errorf("graph: node %q built by plugin %q cannot be renamed to match its unique name", jn.Name, jn.Plugin)
		}
		if cfg, ok := t.(task.Configurable); ok {
			for name, raw := range jn.Properties {
				if err := cfg.SetProperty(name, raw); err != nil {
					return nil, fmt.Errorf("graph: setting property %q on %q: %w", name, jn.Name, err)
				}
			}
		}
		if _, exists := byName[jn.Name]; exists {
			return nil, fmt.Errorf("graph: duplicate node name %q", jn.Name)
		}
		byName[jn.Name] = t
		if err := g.AddNode(t); err != nil {
			return nil, err
		}
	}

	for _, je := range root.Edges {
		from, ok := byName[je.From.Name]
		if !ok {
			return nil, fmt.Errorf("graph: edge references unknown node %q", je.From.Name)
		}
		to, ok := byName[je.To.Name]
		if !ok {
			return nil, fmt.Errorf("graph: edge references unknown node %q", je.To.Name)
		}
		if err := g.ConnectNodesFull(from, to, je.To.Input); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// ReadFromFile reads and parses a graph description from disk.
func ReadFromFile(path string, reg *registry.Registry) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graph: reading %s: %w", path, err)
	}
	return ReadFromData(data, reg)
}

// pluginNamer is implemented by tasks that know which registry name
// constructed them, so the JSON writer can round-trip "plugin" without
// the registry having to support a reverse lookup.
type pluginNamer interface {
	PluginName() string
}

// JSONData serializes the graph's current structure back into the same
// schema ReadFromData accepts. A task that doesn't implement pluginNamer
// makes JSONData return an error, since there is no "plugin" value to emit.
func (g *Graph) JSONData() ([]byte, error) {
	root := jsonRoot{Version: jsonAPIVersion}
	root.Index, root.Total = g.Partition()

	for _, n := range g.Nodes() {
		namer, ok := n.(pluginNamer)
		if !ok {
			return nil, fmt.Errorf("graph: node %q has no plugin name to serialize", n.UniqueName())
		}
		jn := jsonNode{
			Plugin: namer.PluginName(),
			Name:   n.UniqueName(),
		}
		if cfg, ok := n.(task.Configurable); ok {
			jn.Properties = cfg.Properties()
		}
		root.Nodes = append(root.Nodes, jn)
	}

	for _, e := range g.Edges() {
		root.Edges = append(root.Edges, jsonEdge{
			From: jsonEndpoint{Name: e.From.UniqueName()},
			To:   jsonEndpoint{Name: e.To.UniqueName(), Input: e.Input},
		})
	}

	return json.MarshalIndent(root, "", "  ")
}

// SaveToJSON writes the graph's JSON representation to path.
func (g *Graph) SaveToJSON(path string) error {
	data, err := g.JSONData()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
