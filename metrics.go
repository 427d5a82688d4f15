package ufo

import (
	"sync/atomic"
	"time"

	"github.com/ufo-kit/ufo-go/internal/task"
)

// LatencyBuckets defines the per-queue pop-to-push latency histogram
// buckets in nanoseconds. Buckets cover from 1us to 10s with logarithmic
// spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks process-wide performance and operational statistics for
// a task graph run: atomic per-mode counters plus a per-queue pop-to-push
// latency histogram.
type Metrics struct {
	// Buffers processed, per task mode.
	GeneratorBuffers atomic.Uint64
	ProcessorBuffers atomic.Uint64
	ReductorBuffers  atomic.Uint64
	SinkBuffers      atomic.Uint64

	// POISON_PILLs observed, per task mode.
	GeneratorPoisons atomic.Uint64
	ProcessorPoisons atomic.Uint64
	ReductorPoisons  atomic.Uint64
	SinkPoisons      atomic.Uint64

	// Errors, per task mode.
	GeneratorErrors atomic.Uint64
	ProcessorErrors atomic.Uint64
	ReductorErrors  atomic.Uint64
	SinkErrors      atomic.Uint64

	// Performance tracking (pop-to-push latency across all queues).
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// Latency histogram buckets (cumulative counts).
	// Each bucket[i] contains the count of observations with latency <= LatencyBuckets[i].
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	// Run lifecycle.
	StartTime atomic.Int64 // Run start timestamp (UnixNano)
	StopTime  atomic.Int64 // Run stop timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// counters returns the three per-mode atomic counters for mode.
func (m *Metrics) counters(mode task.Mode) (buffers, poisons, errs *atomic.Uint64) {
	switch {
	case mode.Type() == task.ModeGenerator:
		return &m.GeneratorBuffers, &m.GeneratorPoisons, &m.GeneratorErrors
	case mode.Type() == task.ModeReductor:
		return &m.ReductorBuffers, &m.ReductorPoisons, &m.ReductorErrors
	case mode.Type() == task.ModeSink:
		return &m.SinkBuffers, &m.SinkPoisons, &m.SinkErrors
	default:
		return &m.ProcessorBuffers, &m.ProcessorPoisons, &m.ProcessorErrors
	}
}

// RecordBuffer records one buffer produced or consumed by a task of the
// given mode.
func (m *Metrics) RecordBuffer(mode task.Mode) {
	buffers, _, _ := m.counters(mode)
	buffers.Add(1)
}

// RecordPoison records a POISON_PILL observed by a task of the given mode.
func (m *Metrics) RecordPoison(mode task.Mode) {
	_, poisons, _ := m.counters(mode)
	poisons.Add(1)
}

// RecordError records a get_requisition/process/generate failure raised by
// a task of the given mode.
func (m *Metrics) RecordError(mode task.Mode) {
	_, _, errs := m.counters(mode)
	errs.Add(1)
}

// RecordQueueLatency records one pop-to-push observation on a per-edge
// queue: the time a buffer spent filled before its consumer popped it.
func (m *Metrics) RecordQueueLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the run as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	GeneratorBuffers uint64
	ProcessorBuffers uint64
	ReductorBuffers  uint64
	SinkBuffers      uint64

	GeneratorPoisons uint64
	ProcessorPoisons uint64
	ReductorPoisons  uint64
	SinkPoisons      uint64

	GeneratorErrors uint64
	ProcessorErrors uint64
	ReductorErrors  uint64
	SinkErrors      uint64

	TotalBuffers uint64
	TotalErrors  uint64

	UptimeNs uint64

	AvgLatencyNs uint64

	// Latency percentiles (in nanoseconds).
	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	// Histogram bucket counts (cumulative).
	LatencyHistogram [numLatencyBuckets]uint64

	ErrorRate float64 // Percentage of buffers that raised an error
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		GeneratorBuffers: m.GeneratorBuffers.Load(),
		ProcessorBuffers: m.ProcessorBuffers.Load(),
		ReductorBuffers:  m.ReductorBuffers.Load(),
		SinkBuffers:      m.SinkBuffers.Load(),
		GeneratorPoisons: m.GeneratorPoisons.Load(),
		ProcessorPoisons: m.ProcessorPoisons.Load(),
		ReductorPoisons:  m.ReductorPoisons.Load(),
		SinkPoisons:      m.SinkPoisons.Load(),
		GeneratorErrors:  m.GeneratorErrors.Load(),
		ProcessorErrors:  m.ProcessorErrors.Load(),
		ReductorErrors:   m.ReductorErrors.Load(),
		SinkErrors:       m.SinkErrors.Load(),
	}

	snap.TotalBuffers = snap.GeneratorBuffers + snap.ProcessorBuffers + snap.ReductorBuffers + snap.SinkBuffers
	snap.TotalErrors = snap.GeneratorErrors + snap.ProcessorErrors + snap.ReductorErrors + snap.SinkErrors

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.TotalBuffers > 0 {
		snap.ErrorRate = float64(snap.TotalErrors) / float64(snap.TotalBuffers) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters (useful for testing).
func (m *Metrics) Reset() {
	m.GeneratorBuffers.Store(0)
	m.ProcessorBuffers.Store(0)
	m.ReductorBuffers.Store(0)
	m.SinkBuffers.Store(0)
	m.GeneratorPoisons.Store(0)
	m.ProcessorPoisons.Store(0)
	m.ReductorPoisons.Store(0)
	m.SinkPoisons.Store(0)
	m.GeneratorErrors.Store(0)
	m.ProcessorErrors.Store(0)
	m.ReductorErrors.Store(0)
	m.SinkErrors.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection, wired into the scheduler
// so a run can be observed without coupling it to the concrete Metrics
// type.
type Observer interface {
	// ObserveBuffer is called whenever a task of the given mode produces
	// or consumes a buffer.
	ObserveBuffer(mode task.Mode)

	// ObservePoison is called whenever a task of the given mode observes
	// a POISON_PILL.
	ObservePoison(mode task.Mode)

	// ObserveError is called whenever a task of the given mode raises an
	// error from get_requisition/process/generate.
	ObserveError(mode task.Mode)

	// ObserveQueueLatency is called with one pop-to-push latency
	// observation per buffer handed across a per-edge queue.
	ObserveQueueLatency(latencyNs uint64)
}

// NoOpObserver is a no-op implementation of Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveBuffer(task.Mode)    {}
func (NoOpObserver) ObservePoison(task.Mode)    {}
func (NoOpObserver) ObserveError(task.Mode)     {}
func (NoOpObserver) ObserveQueueLatency(uint64) {}

// MetricsObserver implements Observer using the built-in Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveBuffer(mode task.Mode) { o.metrics.RecordBuffer(mode) }
func (o *MetricsObserver) ObservePoison(mode task.Mode) { o.metrics.RecordPoison(mode) }
func (o *MetricsObserver) ObserveError(mode task.Mode)  { o.metrics.RecordError(mode) }
func (o *MetricsObserver) ObserveQueueLatency(latencyNs uint64) {
	o.metrics.RecordQueueLatency(latencyNs)
}

// Compile-time interface check.
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
