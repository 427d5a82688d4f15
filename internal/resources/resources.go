// Package resources manages compute devices, command queues and kernel
// programs: the Go equivalent of the source's OpenCL environment and
// kernel loader, generalized behind a Backend interface so the default
// build runs without any GPU driver at all.
package resources

import (
	"fmt"

	"github.com/ufo-kit/ufo-go/internal/buffer"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// GPUNode is the concrete task.ProcessingNode every Backend hands out:
// an opaque handle to one compute device plus its default queue.
type GPUNode struct {
	Index int
	Name  string
}

func (n *GPUNode) String() string { return fmt.Sprintf("gpu[%d]:%s", n.Index, n.Name) }

// Kernel is the opaque handle returned by GetKernel/GetKernelFromSource.
// Tasks only ever pass it back to a Backend's Launch method; its fields
// are Backend-specific.
type Kernel interface{}

// Backend is the full device-management surface a running graph needs:
// Buffer's transfer matrix (via the embedded buffer.Context), kernel
// loading/caching, device enumeration for Map, and kernel launch for
// GPU-mode tasks.
type Backend interface {
	buffer.Context

	// GetKernel loads, builds (if necessary) and caches the named kernel
	// from filename, searched across AddKernelPaths entries the same way
	// the source resolves a relative .cl path.
	GetKernel(filename, name string) (Kernel, error)

	// GetKernelFromSource behaves like GetKernel but builds from an
	// in-memory source string, caching it under name.
	GetKernelFromSource(source, name string) (Kernel, error)

	// Launch executes kernel on the device behind node with the given
	// global work size, waiting for completion.
	Launch(node task.ProcessingNode, kernel Kernel, globalSize [3]int, args ...interface{}) error

	// Devices returns one ProcessingNode per compute device managed by
	// this backend, in a stable order suitable for Graph.Map.
	Devices() []task.ProcessingNode

	// AddKernelPaths appends directories searched for named kernel
	// files, mirroring the source's configurable include-path list.
	AddKernelPaths(paths ...string)

	Close() error
}

// Error wraps a backend-reported failure with the plugin-visible
// filename/kernel name that triggered it, mirroring the source's
// UFO_RESOURCES_ERROR domain without carrying GLib's GError machinery.
type Error struct {
	Op      string
	Name    string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("resources: %s %q: %v", e.Op, e.Name, e.Wrapped)
	}
	return fmt.Sprintf("resources: %s: %v", e.Op, e.Wrapped)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// AsTaskResources narrows a Backend down to the task.Resources interface
// a Task's Setup consumes, so the scheduler never hands a task more than
// the one capability it needs.
func AsTaskResources(b Backend) task.Resources { return taskResourcesView{b} }

type taskResourcesView struct{ backend Backend }

func (v taskResourcesView) GetKernel(filename, name string) (interface{}, error) {
	return v.backend.GetKernel(filename, name)
}
