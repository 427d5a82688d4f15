package tasks

import (
	"github.com/ufo-kit/ufo-go/internal/registry"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// Register adds every reference task's factory to reg under its plugin
// name, so a JSON-loaded graph can refer to "const.generator",
// "addconst", "identity", "minreduce" or "collect.sink" the same way a
// pipeline description names a shared-library plugin. Each factory
// builds a task with an empty unique name; internal/graph.ReadFromData
// rebinds it to the node's JSON "name" field via task.Renamable before
// wiring edges.
func Register(reg *registry.Registry) {
	reg.Register("const.generator", func() task.Task { return NewSequence("", 1, 0) })
	reg.Register("addconst", func() task.Task { return NewAddConst("", 0) })
	reg.Register("identity", func() task.Task { return NewIdentity("") })
	reg.Register("minreduce", func() task.Task { return NewMinReduce("") })
	reg.Register("collect.sink", func() task.Task { return NewCollect("") })
}
