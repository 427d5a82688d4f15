package ufo

import (
	"testing"
	"time"

	"github.com/ufo-kit/ufo-go/internal/task"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.TotalBuffers != 0 {
		t.Errorf("expected 0 initial buffers, got %d", snap.TotalBuffers)
	}

	m.RecordBuffer(task.ModeGenerator)
	m.RecordBuffer(task.ModeProcessor)
	m.RecordError(task.ModeProcessor)

	snap = m.Snapshot()
	if snap.GeneratorBuffers != 1 {
		t.Errorf("expected 1 generator buffer, got %d", snap.GeneratorBuffers)
	}
	if snap.ProcessorBuffers != 1 {
		t.Errorf("expected 1 processor buffer, got %d", snap.ProcessorBuffers)
	}
	if snap.ProcessorErrors != 1 {
		t.Errorf("expected 1 processor error, got %d", snap.ProcessorErrors)
	}
	if snap.TotalBuffers != 2 {
		t.Errorf("expected 2 total buffers, got %d", snap.TotalBuffers)
	}
	if snap.TotalErrors != 1 {
		t.Errorf("expected 1 total error, got %d", snap.TotalErrors)
	}

	expectedErrorRate := float64(1) / float64(2) * 100.0
	if snap.ErrorRate < expectedErrorRate-0.1 || snap.ErrorRate > expectedErrorRate+0.1 {
		t.Errorf("expected error rate ~%.1f%%, got %.1f%%", expectedErrorRate, snap.ErrorRate)
	}
}

func TestMetricsPoison(t *testing.T) {
	m := NewMetrics()

	m.RecordPoison(task.ModeSink)
	m.RecordPoison(task.ModeReductor)

	snap := m.Snapshot()
	if snap.SinkPoisons != 1 {
		t.Errorf("expected 1 sink poison, got %d", snap.SinkPoisons)
	}
	if snap.ReductorPoisons != 1 {
		t.Errorf("expected 1 reductor poison, got %d", snap.ReductorPoisons)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	m.RecordQueueLatency(1_000_000) // 1ms
	m.RecordQueueLatency(2_000_000) // 2ms

	snap := m.Snapshot()
	expectedAvgNs := uint64(1_500_000)
	if snap.AvgLatencyNs != expectedAvgNs {
		t.Errorf("expected avg latency %d ns, got %d ns", expectedAvgNs, snap.AvgLatencyNs)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*1_000_000 {
		t.Errorf("expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+2*1_000_000 {
		t.Errorf("uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordBuffer(task.ModeGenerator)
	m.RecordError(task.ModeGenerator)
	m.RecordQueueLatency(1_000_000)

	snap := m.Snapshot()
	if snap.TotalBuffers == 0 {
		t.Error("expected some buffers before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.TotalBuffers != 0 {
		t.Errorf("expected 0 buffers after reset, got %d", snap.TotalBuffers)
	}
	if snap.TotalErrors != 0 {
		t.Errorf("expected 0 errors after reset, got %d", snap.TotalErrors)
	}
	if snap.AvgLatencyNs != 0 {
		t.Errorf("expected 0 avg latency after reset, got %d", snap.AvgLatencyNs)
	}
}

func TestObserver(t *testing.T) {
	observer := &NoOpObserver{}
	observer.ObserveBuffer(task.ModeProcessor)
	observer.ObservePoison(task.ModeSink)
	observer.ObserveError(task.ModeReductor)
	observer.ObserveQueueLatency(1000)

	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObserveBuffer(task.ModeGenerator)
	metricsObserver.ObserveBuffer(task.ModeSink)

	snap := m.Snapshot()
	if snap.GeneratorBuffers != 1 {
		t.Errorf("expected 1 generator buffer from observer, got %d", snap.GeneratorBuffers)
	}
	if snap.SinkBuffers != 1 {
		t.Errorf("expected 1 sink buffer from observer, got %d", snap.SinkBuffers)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	// 50 observations at 500us (50th percentile should land around there),
	// 49 at 5ms, and one outlier at 50ms (the 99th percentile).
	for i := 0; i < 50; i++ {
		m.RecordQueueLatency(500_000)
	}
	for i := 0; i < 49; i++ {
		m.RecordQueueLatency(5_000_000)
	}
	m.RecordQueueLatency(50_000_000)

	snap := m.Snapshot()

	if snap.LatencyP50Ns < 100_000 || snap.LatencyP50Ns > 1_000_000 {
		t.Errorf("expected P50 in 100us-1ms range, got %d ns", snap.LatencyP50Ns)
	}
	if snap.LatencyP99Ns < 5_000_000 || snap.LatencyP99Ns > 100_000_000 {
		t.Errorf("expected P99 in 5ms-100ms range, got %d ns", snap.LatencyP99Ns)
	}

	var totalInBuckets uint64
	for _, c := range snap.LatencyHistogram {
		totalInBuckets += c
	}
	if totalInBuckets == 0 {
		t.Error("expected histogram buckets to be populated")
	}
}
