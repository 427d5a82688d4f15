// Package registry maps plugin names to task constructors, the Go
// stand-in for the source's dynamically loaded plugin manager: instead
// of dlopen-ing a shared object per plugin name, a task registers its
// factory from an init function, the way database/sql drivers register
// themselves.
package registry

import (
	"fmt"
	"sync"

	"github.com/ufo-kit/ufo-go/internal/task"
)

// Factory constructs a fresh instance of one task type. Each call must
// return an independent task since the same name may be instantiated
// many times in one graph.
type Factory func() task.Task

// Registry is a name -> Factory table. The zero value is unusable; use
// New or the package-level default registry via Register/Create.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name, overwriting any previous
// registration — later registrations intentionally win so a binary can
// override a stock task under test.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Create instantiates the task registered under name.
func (r *Registry) Create(name string) (task.Task, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: no task plugin named %q", name)
	}
	return f(), nil
}

// Names returns every registered plugin name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

var defaultRegistry = New()

// Default returns the process-wide registry used by package-level
// Register and the graph JSON loader when no explicit *Registry is
// supplied.
func Default() *Registry { return defaultRegistry }

// Register adds a factory to the default registry.
func Register(name string, f Factory) { defaultRegistry.Register(name, f) }
