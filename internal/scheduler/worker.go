package scheduler

import (
	"context"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/ufo-kit/ufo-go/internal/buffer"
	"github.com/ufo-kit/ufo-go/internal/logging"
	"github.com/ufo-kit/ufo-go/internal/profiler"
	"github.com/ufo-kit/ufo-go/internal/queue"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// worker drives one task's thread: a dedicated goroutine running the
// GENERATOR/PROCESSOR/REDUCTOR/SINK loop appropriate to its mode, the Go
// analog of the fixed scheduler spawning one pthread per task.
//
// Only GENERATOR and the REDUCTOR's generate-phase consult ctx: those are
// the only points where a task is otherwise free-running rather than
// blocked on an upstream buffer, so that is where an early Stop() takes
// effect. Cancellation is surfaced the same way natural end-of-stream is:
// the generator stops producing and lets POISON drain downstream through
// the existing queue machinery, rather than interrupting an in-flight
// ConsumerPop/ProducerPop.
type worker struct {
	ctx         context.Context
	node        task.Task
	mode        task.Mode
	ins         []*queue.TwoWayQueue
	outs        []*queue.TwoWayQueue
	cpuAffinity int // -1 means unpinned
	obs         Observer
	prof        task.Profiler
}

// computeTimer picks the CPU/GPU timer bucket process/generate calls
// fall into, split the same way GPU-mode vs CPU-mode tasks are already
// distinguished elsewhere.
func (w *worker) computeTimer() string {
	if w.mode.UsesGPU() {
		return profiler.TimerGPU
	}
	return profiler.TimerCPU
}

// profiled brackets a Process/Generate call with a BEGIN/END trace event
// pair and the task's CPU or GPU timer, the two instrumentation points
// ufo-profiler.h ties to ufo_profiler_call.
func (w *worker) profiled(fn func() (bool, error)) (bool, error) {
	timer := w.computeTimer()
	name := w.node.UniqueName()

	w.prof.Start(timer)
	w.prof.TraceEvent(name, "B")
	more, err := fn()
	w.prof.TraceEvent(name, "E")
	w.prof.Stop(timer)

	return more, err
}

// nodeErr records an error against this worker's mode and wraps it into
// the scheduler's structured Error type.
func (w *worker) nodeErr(op string, err error) error {
	w.obs.ObserveError(w.mode)
	return NewNodeError(op, w.node.UniqueName(), ErrCodeTaskFailed, err)
}

func (w *worker) cancelled() bool {
	select {
	case <-w.ctx.Done():
		return true
	default:
		return false
	}
}

func (w *worker) run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if w.cpuAffinity >= 0 {
		var mask unix.CPUSet
		mask.Set(w.cpuAffinity)
		if err := unix.SchedSetaffinity(0, &mask); err != nil {
			logging.Default().Printf("node %s: failed to pin to CPU %d: %v", w.node.UniqueName(), w.cpuAffinity, err)
		}
	}

	switch w.mode.Type() {
	case task.ModeGenerator:
		return w.runGenerator()
	case task.ModeProcessor:
		return w.runProcessor()
	case task.ModeReductor:
		return w.runReductor()
	case task.ModeSink:
		return w.runSink()
	default:
		return NewNodeError("run", w.node.UniqueName(), ErrCodeTaskFailed, nil)
	}
}

// gatherInputs blocks on every input port, reports whether any of them
// delivered the end-of-stream sentinel, and records each real buffer's
// pop-to-push latency and the mode that observed a POISON_PILL.
func (w *worker) gatherInputs(ins []*queue.TwoWayQueue) (bufs []*buffer.Buffer, poisoned bool) {
	w.prof.Start(profiler.TimerFetch)
	defer w.prof.Stop(profiler.TimerFetch)

	bufs = make([]*buffer.Buffer, len(ins))
	for i, q := range ins {
		b, latency := q.ConsumerPopLatency()
		if queue.IsPoison(b) {
			poisoned = true
			w.obs.ObservePoison(w.mode)
		} else {
			w.obs.ObserveQueueLatency(uint64(latency))
		}
		bufs[i] = b
	}
	return bufs, poisoned
}

func (w *worker) recycleInputs(ins []*queue.TwoWayQueue, bufs []*buffer.Buffer) {
	w.prof.Start(profiler.TimerRelease)
	defer w.prof.Stop(profiler.TimerRelease)

	for i, q := range ins {
		q.ConsumerPush(bufs[i])
	}
}

// acquireOutput pops the next recyclable buffer from the worker's
// primary output line, reporting whether the consumer has already
// signaled shutdown.
func (w *worker) acquireOutput() (*buffer.Buffer, bool) {
	if len(w.outs) == 0 {
		return nil, false
	}
	b := w.outs[0].ProducerPop()
	return b, queue.IsPoison(b)
}

// publishOutput sends buf downstream to every successor edge: the
// ModeShareData modifier fans the same buffer out to every consumer
// without copying, otherwise each extra consumer gets an independent
// copy so it may safely mutate its input in place.
func (w *worker) publishOutput(buf *buffer.Buffer) error {
	if len(w.outs) == 0 {
		return nil
	}
	w.outs[0].ProducerPush(buf)

	shared := w.mode&task.ModeShareData != 0
	for _, q := range w.outs[1:] {
		if shared {
			q.ProducerPush(buf)
			continue
		}
		dst := q.ProducerPop()
		if queue.IsPoison(dst) {
			continue
		}
		if err := buffer.Copy(dst, buf); err != nil {
			return w.nodeErr("publishOutput", err)
		}
		q.ProducerPush(dst)
	}
	return nil
}

func (w *worker) poisonOutputs() {
	for _, q := range w.outs {
		q.ProducerPush(queue.Poison())
	}
}

func (w *worker) runGenerator() error {
	out, closed := w.acquireOutput()
	if closed {
		return nil
	}

	for {
		if w.cancelled() {
			w.poisonOutputs()
			return nil
		}

		req, err := w.node.GetRequisition(nil)
		if err != nil {
			w.poisonOutputs()
			return w.nodeErr("GetRequisition", err)
		}
		if err := out.Resize(req); err != nil {
			w.poisonOutputs()
			return w.nodeErr("Resize", err)
		}

		more, err := w.profiled(func() (bool, error) { return w.node.Generate(out, req) })
		if err != nil {
			w.poisonOutputs()
			return w.nodeErr("Generate", err)
		}
		if !more {
			w.poisonOutputs()
			return nil
		}
		w.obs.ObserveBuffer(w.mode)

		if err := w.publishOutput(out); err != nil {
			w.poisonOutputs()
			return err
		}
		out, closed = w.acquireOutput()
		if closed {
			return nil
		}
	}
}

func (w *worker) runProcessor() error {
	out, closed := w.acquireOutput()
	if closed && len(w.outs) > 0 {
		return nil
	}

	for {
		ins, poisoned := w.gatherInputs(w.ins)
		if poisoned {
			w.node.InputsStopped()
			w.poisonOutputs()
			return nil
		}

		req, err := w.node.GetRequisition(ins)
		if err != nil {
			w.recycleInputs(w.ins, ins)
			w.poisonOutputs()
			return w.nodeErr("GetRequisition", err)
		}
		if out != nil {
			if err := out.Resize(req); err != nil {
				w.recycleInputs(w.ins, ins)
				w.poisonOutputs()
				return w.nodeErr("Resize", err)
			}
			for _, in := range ins {
				buffer.CopyMetadata(in, out)
			}
		}

		produced, err := w.profiled(func() (bool, error) { return w.node.Process(ins, out, req) })
		w.recycleInputs(w.ins, ins)
		if err != nil {
			w.poisonOutputs()
			return w.nodeErr("Process", err)
		}
		if produced {
			w.obs.ObserveBuffer(w.mode)
		}

		if produced && out != nil {
			if err := w.publishOutput(out); err != nil {
				w.poisonOutputs()
				return err
			}
			out, closed = w.acquireOutput()
			if closed {
				return nil
			}
		}
	}
}

func (w *worker) runReductor() error {
	out, closed := w.acquireOutput()
	if closed {
		return nil
	}

	for {
		ins, poisoned := w.gatherInputs(w.ins)
		if poisoned {
			w.node.InputsStopped()
			break
		}

		req, err := w.node.GetRequisition(ins)
		if err != nil {
			w.recycleInputs(w.ins, ins)
			w.poisonOutputs()
			return w.nodeErr("GetRequisition", err)
		}
		if err := out.Resize(req); err != nil {
			w.recycleInputs(w.ins, ins)
			w.poisonOutputs()
			return w.nodeErr("Resize", err)
		}

		_, err = w.profiled(func() (bool, error) { return w.node.Process(ins, out, req) })
		w.recycleInputs(w.ins, ins)
		if err != nil {
			w.poisonOutputs()
			return w.nodeErr("Process", err)
		}
	}

	for {
		if w.cancelled() {
			w.poisonOutputs()
			return nil
		}

		req, err := w.node.GetRequisition(nil)
		if err != nil {
			w.poisonOutputs()
			return w.nodeErr("GetRequisition", err)
		}
		if err := out.Resize(req); err != nil {
			w.poisonOutputs()
			return w.nodeErr("Resize", err)
		}

		more, err := w.profiled(func() (bool, error) { return w.node.Generate(out, req) })
		if err != nil {
			w.poisonOutputs()
			return w.nodeErr("Generate", err)
		}
		if !more {
			w.poisonOutputs()
			return nil
		}
		w.obs.ObserveBuffer(w.mode)

		if err := w.publishOutput(out); err != nil {
			w.poisonOutputs()
			return err
		}
		out, closed = w.acquireOutput()
		if closed {
			return nil
		}
	}
}

func (w *worker) runSink() error {
	for {
		ins, poisoned := w.gatherInputs(w.ins)
		if poisoned {
			w.node.InputsStopped()
			return nil
		}

		req, err := w.node.GetRequisition(ins)
		if err != nil {
			w.recycleInputs(w.ins, ins)
			return w.nodeErr("GetRequisition", err)
		}

		_, err = w.profiled(func() (bool, error) { return w.node.Process(ins, nil, req) })
		w.recycleInputs(w.ins, ins)
		if err != nil {
			return w.nodeErr("Process", err)
		}
		w.obs.ObserveBuffer(w.mode)
	}
}
