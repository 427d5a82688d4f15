package profiler

import (
	"encoding/json"
	"os"
	"testing"
	"time"
)

func TestStartStopAccumulatesElapsed(t *testing.T) {
	p := New(0, false)

	p.Start(TimerCPU)
	time.Sleep(5 * time.Millisecond)
	p.Stop(TimerCPU)

	if p.Elapsed(TimerCPU) < 5*time.Millisecond {
		t.Errorf("expected elapsed >= 5ms, got %s", p.Elapsed(TimerCPU))
	}
}

func TestStartIgnoresNestedStart(t *testing.T) {
	p := New(0, false)

	p.Start(TimerIO)
	first := p.Elapsed(TimerIO)
	p.Start(TimerIO) // should not reset the running interval
	time.Sleep(2 * time.Millisecond)
	p.Stop(TimerIO)

	if p.Elapsed(TimerIO) <= first {
		t.Error("expected elapsed to grow past its pre-nested-start value")
	}
}

func TestStopWithoutStartIsNoOp(t *testing.T) {
	p := New(0, false)
	p.Stop(TimerGPU) // no matching Start
	if p.Elapsed(TimerGPU) != 0 {
		t.Errorf("expected 0 elapsed, got %s", p.Elapsed(TimerGPU))
	}
}

func TestElapsedUnknownTimer(t *testing.T) {
	p := New(0, true)
	if p.Elapsed("bogus") != 0 {
		t.Error("expected 0 elapsed for a timer never started")
	}
}

func TestTraceEventDisabledWhenNotEnabled(t *testing.T) {
	p := New(0, false)
	p.TraceEvent("node-a", "B")
	p.TraceEvent("node-a", "E")

	if len(p.Events()) != 0 {
		t.Errorf("expected no events recorded while disabled, got %d", len(p.Events()))
	}
}

func TestTraceEventRecordsWhenEnabled(t *testing.T) {
	p := New(7, true)
	p.TraceEvent("node-a", "B")
	p.TraceEvent("node-a", "E")

	events := p.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Phase != "B" || events[1].Phase != "E" {
		t.Errorf("expected phases B then E, got %s then %s", events[0].Phase, events[1].Phase)
	}
	if events[0].ThreadID != 7 || events[1].ThreadID != 7 {
		t.Errorf("expected both events tagged with tid 7, got %d and %d", events[0].ThreadID, events[1].ThreadID)
	}
}

func TestWriteTraceFileMergesProfilers(t *testing.T) {
	a := New(0, true)
	a.TraceEvent("gen", "B")
	a.TraceEvent("gen", "E")

	b := New(1, true)
	b.TraceEvent("sink", "B")
	b.TraceEvent("sink", "E")

	path := t.TempDir() + "/trace.json"
	if err := WriteTraceFile(path, a, b); err != nil {
		t.Fatalf("WriteTraceFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read trace file: %v", err)
	}

	var tf traceFile
	if err := json.Unmarshal(data, &tf); err != nil {
		t.Fatalf("failed to parse trace file: %v", err)
	}
	if len(tf.TraceEvents) != 4 {
		t.Errorf("expected 4 merged trace events, got %d", len(tf.TraceEvents))
	}
}

func TestWriteTraceEventsPreservesFields(t *testing.T) {
	events := []TraceEvent{
		{Name: "n", Phase: "B", ThreadID: 3, TimestampUs: 42},
	}

	path := t.TempDir() + "/trace.json"
	if err := WriteTraceEvents(path, events); err != nil {
		t.Fatalf("WriteTraceEvents failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read trace file: %v", err)
	}

	var tf traceFile
	if err := json.Unmarshal(data, &tf); err != nil {
		t.Fatalf("failed to parse trace file: %v", err)
	}
	if len(tf.TraceEvents) != 1 || tf.TraceEvents[0].ThreadID != 3 || tf.TraceEvents[0].TimestampUs != 42 {
		t.Errorf("expected the original tid/ts to survive the round trip, got %+v", tf.TraceEvents)
	}
}
