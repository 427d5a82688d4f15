package ufo

import (
	"context"

	"github.com/ufo-kit/ufo-go/internal/graph"
	"github.com/ufo-kit/ufo-go/internal/logging"
	"github.com/ufo-kit/ufo-go/internal/profiler"
	"github.com/ufo-kit/ufo-go/internal/resources"
	"github.com/ufo-kit/ufo-go/internal/scheduler"
)

// Options configures a Scheduler run, re-exporting internal/scheduler's
// knobs at the public API boundary.
type Options struct {
	// RecyclePerEdge bounds how far a fast producer may run ahead of a
	// slow consumer on any one edge (default: DefaultRecyclePerEdge).
	RecyclePerEdge int

	// CPUAffinity lists the CPU indices GPU-mode workers are pinned to,
	// round-robin by spawn order.
	CPUAffinity []int

	// Logger receives run diagnostics (default: logging.Default()).
	Logger *logging.Logger

	// Observer, if set, receives buffer/poison/error/latency events. If
	// nil, a MetricsObserver backed by a fresh Metrics is installed and
	// exposed via Scheduler.Metrics.
	Observer Observer

	// Tracing enables per-task timers and BEGIN/END trace events,
	// retrievable afterwards with Scheduler.WriteTrace.
	Tracing bool

	// DisableExpand skips the automatic duplication of the longest
	// GPU-only chain across every available device.
	DisableExpand bool
}

// DefaultParams returns default run options against the given backend.
func DefaultParams() Options {
	return Options{
		RecyclePerEdge: DefaultRecyclePerEdge,
		Logger:         logging.Default(),
	}
}

// Scheduler runs a single task graph to completion against a Backend.
type Scheduler struct {
	inner   *scheduler.Scheduler
	metrics *Metrics
}

// New validates g against backend, preparing it to Run. Mirrors
// CreateAndServe's validate-then-construct shape, minus the actual
// device creation step UFO has no analog for.
func New(g *graph.Graph, backend resources.Backend, opts Options) (*Scheduler, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.RecyclePerEdge <= 0 {
		opts.RecyclePerEdge = DefaultRecyclePerEdge
	}

	var metrics *Metrics
	observer := opts.Observer
	if observer == nil {
		metrics = NewMetrics()
		observer = NewMetricsObserver(metrics)
	}

	inner, err := scheduler.New(g, scheduler.Options{
		Backend:        backend,
		RecyclePerEdge: opts.RecyclePerEdge,
		CPUAffinity:    opts.CPUAffinity,
		Logger:         opts.Logger,
		Observer:       observer,
		Tracing:        opts.Tracing,
		DisableExpand:  opts.DisableExpand,
	})
	if err != nil {
		return nil, translateSchedulerError(err)
	}

	return &Scheduler{inner: inner, metrics: metrics}, nil
}

// Run sets up every task, spawns one goroutine per node, and blocks
// until the graph drains or ctx is cancelled. See internal/scheduler's
// Run for the exact termination semantics.
func (s *Scheduler) Run(ctx context.Context) error {
	err := s.inner.Run(ctx)
	if s.metrics != nil {
		s.metrics.Stop()
	}
	if err != nil {
		return translateSchedulerError(err)
	}
	return nil
}

// WriteTrace writes every BEGIN/END trace event recorded since Run
// started to path as a Chrome-tracing-compatible JSON document. Empty
// unless Options.Tracing was set.
func (s *Scheduler) WriteTrace(path string) error {
	return profiler.WriteTraceEvents(path, s.inner.TraceEvents())
}

// Stop cancels a running Scheduler and waits for every worker to unwind.
func (s *Scheduler) Stop() {
	s.inner.Stop()
}

// Metrics returns the run's metrics, or nil if a custom Observer was
// supplied in Options (in which case metrics live wherever that Observer
// sends them).
func (s *Scheduler) Metrics() *Metrics {
	return s.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of the run's metrics,
// or the zero value if Metrics is nil.
func (s *Scheduler) MetricsSnapshot() MetricsSnapshot {
	if s.metrics == nil {
		return MetricsSnapshot{}
	}
	return s.metrics.Snapshot()
}

// translateSchedulerError reclassifies an internal/scheduler.Error into
// the root package's *Error, mapping its narrower ErrorCode set onto the
// root package's broader UfoErrorCode categories. internal/scheduler
// cannot import this package (the reverse import would cycle), so this
// boundary is the only place the two Error types meet.
func translateSchedulerError(err error) error {
	se, ok := err.(*scheduler.Error)
	if !ok {
		return WrapError("Run", ErrCodeExecution, err)
	}

	code := ErrCodeExecution
	switch se.Code {
	case scheduler.ErrCodeInvalidGraph:
		code = ErrCodeGraphStructure
	case scheduler.ErrCodeSetupFailed:
		code = ErrCodeTaskSetup
	case scheduler.ErrCodeTaskFailed:
		code = ErrCodeExecution
	case scheduler.ErrCodeAlreadyClosed:
		code = ErrCodeExecution
	}

	return &Error{
		Op:    se.Op,
		Node:  se.Node,
		Code:  code,
		Msg:   se.Msg,
		Inner: se.Inner,
	}
}
