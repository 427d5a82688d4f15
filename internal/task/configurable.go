package task

import "encoding/json"

// Configurable is implemented by tasks that accept named JSON-encoded
// properties when deserialized from a graph description. Tasks with no
// configuration simply don't implement it, and the loader skips setting
// properties on them.
type Configurable interface {
	SetProperty(name string, value json.RawMessage) error

	// Properties returns the task's current configuration, encoded the
	// same way SetProperty accepts it, so a graph writer can round-trip
	// it back into a JSON description.
	Properties() map[string]json.RawMessage
}

// Renamable is implemented by tasks whose unique name can be rebound
// after construction. *NodeState satisfies it, which is how a task
// built by a registry.Factory (which knows nothing about a specific
// graph) ends up identified the way a JSON description's node list and
// edge list refer to it.
type Renamable interface {
	SetUniqueName(name string)
}
