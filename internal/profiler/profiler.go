// Package profiler implements the per-task instrumentation task.Profiler
// describes: a fixed set of named timers (io/cpu/gpu/fetch/release) and
// an optional list of BEGIN/END trace events, serializable to a
// Chrome-tracing-compatible JSON file. Grounded on
// original_source/ufo/ufo-profiler.h's UfoProfilerTimer enum and
// UfoTraceEvent struct, translated from a GObject into a plain Go type.
package profiler

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Timer names recognized by Profiler.Start/Stop, the Go analog of
// UFO_PROFILER_TIMER_IO/CPU/GPU/FETCH/RELEASE.
const (
	TimerIO      = "io"
	TimerCPU     = "cpu"
	TimerGPU     = "gpu"
	TimerFetch   = "fetch"
	TimerRelease = "release"
)

// TraceEvent is one Chrome-tracing-compatible entry. Ph is "B" (begin) or
// "E" (end); TimestampUs is microseconds since the owning Profiler was
// created, the Go analog of UfoTraceEvent's timestamp_absolute.
type TraceEvent struct {
	Name        string  `json:"name"`
	Phase       string  `json:"ph"`
	ThreadID    uint64  `json:"tid"`
	TimestampUs float64 `json:"ts"`
}

type timerState struct {
	running bool
	since   time.Time
	elapsed time.Duration
}

// Profiler accumulates timer durations and trace events for a single
// task node. The zero value is not usable; construct with New.
type Profiler struct {
	mu      sync.Mutex
	enabled bool
	tid     uint64
	epoch   time.Time
	timers  map[string]*timerState
	events  []TraceEvent
}

// New returns a Profiler for one task node. tid identifies the node in
// emitted trace events (the scheduler uses the node's spawn index, since
// Go goroutines have no stable OS thread id to report). Start/Stop still
// account elapsed time when enabled is false; only TraceEvent recording
// is gated on it, so Elapsed remains meaningful even with tracing off.
func New(tid uint64, enabled bool) *Profiler {
	return &Profiler{
		enabled: enabled,
		tid:     tid,
		epoch:   time.Now(),
		timers:  make(map[string]*timerState),
	}
}

// Start begins accounting time against the named timer. Calling Start
// again before a matching Stop is ignored, so the running interval keeps
// its original start time, mirroring ufo_profiler_start's behavior of
// ignoring nested starts rather than stacking them.
func (p *Profiler) Start(timer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.timers[timer]
	if st == nil {
		st = &timerState{}
		p.timers[timer] = st
	}
	if st.running {
		return
	}
	st.running = true
	st.since = time.Now()
}

// Stop ends accounting against the named timer, adding the elapsed
// interval to its running total. A Stop with no matching Start is a
// no-op.
func (p *Profiler) Stop(timer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.timers[timer]
	if st == nil || !st.running {
		return
	}
	st.elapsed += time.Since(st.since)
	st.running = false
}

// Elapsed returns the named timer's accumulated duration, regardless of
// whether tracing is enabled.
func (p *Profiler) Elapsed(timer string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.timers[timer]
	if st == nil {
		return 0
	}
	return st.elapsed
}

// TraceEvent appends a BEGIN/END entry timestamped against the
// Profiler's epoch. Discarded when tracing is disabled.
func (p *Profiler) TraceEvent(name, phase string) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, TraceEvent{
		Name:        name,
		Phase:       phase,
		ThreadID:    p.tid,
		TimestampUs: float64(time.Since(p.epoch).Microseconds()),
	})
}

// Events returns a copy of every trace event recorded so far.
func (p *Profiler) Events() []TraceEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TraceEvent, len(p.events))
	copy(out, p.events)
	return out
}

// traceFile is the root object of the Chrome Trace Event Format this
// package emits; see https://chromium.googlesource.com/catapult for the
// schema. Only the fields this package produces are represented.
type traceFile struct {
	TraceEvents []TraceEvent `json:"traceEvents"`
}

// WriteTraceFile merges every profiler's recorded events, in the order
// the profilers are passed, and writes them to path as a single Chrome-tracing-compatible
// JSON document, loadable directly in chrome://tracing or Perfetto.
//
// ufo_profiler_write_events_csv's companion OpenCL kernel-timestamp file
// has no analog here: it derives four cl_event profiling counters per
// kernel invocation, and this repository has no OpenCL event binding to
// source them from (see DESIGN.md).
func WriteTraceFile(path string, profilers ...*Profiler) error {
	var all []TraceEvent
	for _, p := range profilers {
		all = append(all, p.Events()...)
	}
	return WriteTraceEvents(path, all)
}

// WriteTraceEvents writes a pre-gathered event slice directly, for
// callers that have already merged multiple Profilers' Events().
func WriteTraceEvents(path string, events []TraceEvent) error {
	data, err := json.MarshalIndent(traceFile{TraceEvents: events}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
