// Package scheduler runs a task graph to completion: one goroutine per
// node, wired together by TwoWayQueues, the Go analog of the source's
// fixed scheduler spawning one pthread per task and letting GAsyncQueues
// carry buffers between them.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/ufo-kit/ufo-go/internal/graph"
	"github.com/ufo-kit/ufo-go/internal/logging"
	"github.com/ufo-kit/ufo-go/internal/profiler"
	"github.com/ufo-kit/ufo-go/internal/resources"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// Options configures a Scheduler run.
type Options struct {
	// Backend provides device enumeration, kernel loading and buffer
	// transfer for every task in the graph.
	Backend resources.Backend

	// RecyclePerEdge is how many buffers are pre-allocated on each edge's
	// queue before the run starts, bounding how far a fast producer can
	// run ahead of a slow consumer.
	RecyclePerEdge int

	// CPUAffinity lists the CPU indices GPU-mode workers are pinned to,
	// round-robin by spawn order. A nil or empty list leaves workers
	// unpinned.
	CPUAffinity []int

	Logger *logging.Logger

	// Observer, if set, receives buffer/poison/error/latency events from
	// every worker. Defaults to a no-op observer.
	Observer Observer

	// Tracing enables per-task timers and BEGIN/END trace events.
	// Disabled by default, matching the zero value.
	Tracing bool

	// DisableExpand skips the automatic GPU-chain expansion New()
	// otherwise performs against the backend's device count. Disabled by
	// default (expansion runs), matching the zero value.
	DisableExpand bool
}

// DefaultOptions returns sane defaults for running a graph against a
// SimulatedBackend with two pre-allocated buffers per edge.
func DefaultOptions(backend resources.Backend) Options {
	return Options{
		Backend:        backend,
		RecyclePerEdge: 2,
		Logger:         logging.Default(),
		Observer:       noopObserver{},
	}
}

// Scheduler runs a single task graph to completion.
type Scheduler struct {
	g    *graph.Graph
	opts Options

	mu        sync.Mutex
	workers   []*worker
	cancel    context.CancelFunc
	done      chan struct{}
	profilers []*profiler.Profiler
}

// New validates g, expands the longest GPU-only chain across all
// available devices, maps GPU-mode tasks onto the backend's devices, and
// returns a Scheduler ready to Run.
func New(g *graph.Graph, opts Options) (*Scheduler, error) {
	if opts.Backend == nil {
		return nil, NewNodeError("New", "", ErrCodeInvalidGraph, fmt.Errorf("no backend configured"))
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.RecyclePerEdge <= 0 {
		opts.RecyclePerEdge = 2
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}

	if err := g.IsAlright(); err != nil {
		return nil, NewNodeError("IsAlright", "", ErrCodeInvalidGraph, err)
	}

	devices := opts.Backend.Devices()
	if !opts.DisableExpand {
		if err := g.Expand(len(devices)); err != nil {
			return nil, NewNodeError("Expand", "", ErrCodeInvalidGraph, err)
		}
	}
	// Map runs after Expand: a cloned GPU task starts with no
	// ProcessingNode (Clone rebuilds a fresh NodeState), so mapping first
	// would leave every duplicate branch but the original unassigned.
	g.Map(devices)

	return &Scheduler{g: g, opts: opts}, nil
}

// Run sets every task up against the backend, spawns one goroutine per
// node, and blocks until every GENERATOR/REDUCTOR has exhausted its
// input and every downstream task has drained the resulting POISON, or
// ctx is cancelled. The first node-level error observed is returned;
// every worker is still given the chance to unwind before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	nodes := s.g.Nodes()
	resourcesView := resources.AsTaskResources(s.opts.Backend)

	for _, n := range nodes {
		if err := n.Setup(resourcesView); err != nil {
			return NewNodeError("Setup", n.UniqueName(), ErrCodeSetupFailed, err)
		}
	}

	ct := buildConnections(s.g, s.opts.RecyclePerEdge)

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()
	defer close(s.done)
	defer cancel()

	workers := make([]*worker, 0, len(nodes))
	profilers := make([]*profiler.Profiler, 0, len(nodes))
	gpuIdx := 0
	for i, n := range nodes {
		_, _, mode := n.GetStructure()
		affinity := -1
		if mode.UsesGPU() && len(s.opts.CPUAffinity) > 0 {
			affinity = s.opts.CPUAffinity[gpuIdx%len(s.opts.CPUAffinity)]
			gpuIdx++
		}

		prof := task.Profiler(task.NoOpProfiler{})
		p := profiler.New(uint64(i), s.opts.Tracing)
		profilers = append(profilers, p)
		if pn, ok := n.(task.Profiled); ok {
			pn.SetProfiler(p)
			prof = pn.Profiler()
		}

		workers = append(workers, &worker{
			ctx:         runCtx,
			node:        n,
			mode:        mode,
			ins:         ct.inputs[n],
			outs:        ct.outputs[n],
			cpuAffinity: affinity,
			obs:         s.opts.Observer,
			prof:        prof,
		})
	}
	s.mu.Lock()
	s.workers = workers
	s.profilers = profilers
	s.mu.Unlock()

	errCh := make(chan error, len(workers))
	var wg sync.WaitGroup
	wg.Add(len(workers))
	for _, w := range workers {
		w := w
		go func() {
			defer wg.Done()
			if err := w.run(); err != nil {
				s.opts.Logger.Errorf("node %s stopped: %v", w.node.UniqueName(), err)
				errCh <- err
			}
		}()
	}

	watchdog := make(chan struct{})
	go func() {
		wg.Wait()
		close(watchdog)
	}()

	select {
	case <-watchdog:
	case <-runCtx.Done():
		<-watchdog
	}
	close(errCh)

	var first error
	for err := range errCh {
		if first == nil {
			first = err
		}
	}
	return first
}

// TraceEvents returns every BEGIN/END event recorded across all nodes
// since Run started, in no particular order. Empty unless Options.Tracing
// was set.
func (s *Scheduler) TraceEvents() []profiler.TraceEvent {
	s.mu.Lock()
	ps := s.profilers
	s.mu.Unlock()

	var all []profiler.TraceEvent
	for _, p := range ps {
		all = append(all, p.Events()...)
	}
	return all
}

// Stop cancels a running Scheduler and waits for every worker goroutine
// to unwind.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}
