package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ufo-kit/ufo-go/internal/buffer"
)

func TestSimulatedWriteReadRoundTrip(t *testing.T) {
	b := NewSimulated(1)
	mem, err := b.AllocDevice(16)
	if err != nil {
		t.Fatalf("AllocDevice: %v", err)
	}

	host := []float32{1, 2, 3, 4}
	if err := b.EnqueueWrite(b.DefaultQueue(), mem, host); err != nil {
		t.Fatalf("EnqueueWrite: %v", err)
	}

	back := make([]float32, 4)
	if err := b.EnqueueRead(b.DefaultQueue(), mem, back); err != nil {
		t.Fatalf("EnqueueRead: %v", err)
	}
	for i := range host {
		if back[i] != host[i] {
			t.Fatalf("back[%d] = %v, want %v", i, back[i], host[i])
		}
	}
}

func TestSimulatedSubBufferAliasesParent(t *testing.T) {
	b := NewSimulated(0)
	mem, _ := b.AllocDevice(32)
	b.EnqueueWrite(b.DefaultQueue(), mem, []float32{1, 2, 3, 4, 5, 6, 7, 8})

	sub, err := b.SubBuffer(mem, 16)
	if err != nil {
		t.Fatalf("SubBuffer: %v", err)
	}

	out := make([]float32, 4)
	if err := b.EnqueueRead(b.DefaultQueue(), sub, out); err != nil {
		t.Fatalf("EnqueueRead: %v", err)
	}
	want := []float32{5, 6, 7, 8}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestSimulatedImageRoundTrip(t *testing.T) {
	b := NewSimulated(0)
	req := buffer.NewRequisition(2, 2)
	img, err := b.AllocImage(req)
	if err != nil {
		t.Fatalf("AllocImage: %v", err)
	}

	host := []float32{1, 2, 3, 4}
	if err := b.EnqueueWriteImage(b.DefaultQueue(), img, host, req); err != nil {
		t.Fatalf("EnqueueWriteImage: %v", err)
	}
	back := make([]float32, 4)
	if err := b.EnqueueReadImage(b.DefaultQueue(), img, back, req); err != nil {
		t.Fatalf("EnqueueReadImage: %v", err)
	}
	for i := range host {
		if back[i] != host[i] {
			t.Fatalf("back[%d] = %v, want %v", i, back[i], host[i])
		}
	}
}

func TestSimulatedGetKernelCachesByFilenameAndName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "add.cl")
	if err := os.WriteFile(path, []byte("kernel void add() {}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	b := NewSimulated(0)
	b.AddKernelPaths(dir)

	k1, err := b.GetKernel("add.cl", "add")
	if err != nil {
		t.Fatalf("GetKernel: %v", err)
	}
	k2, err := b.GetKernel("add.cl", "add")
	if err != nil {
		t.Fatalf("GetKernel (second call): %v", err)
	}
	if k1 != k2 {
		t.Fatalf("GetKernel did not return the cached kernel on a repeated call")
	}
}

func TestSimulatedGetKernelMissingFile(t *testing.T) {
	b := NewSimulated(0)
	if _, err := b.GetKernel("does-not-exist.cl", "foo"); err == nil {
		t.Fatalf("expected an error for a missing kernel file")
	}
}

func TestSimulatedDevicesMatchesCount(t *testing.T) {
	b := NewSimulated(3)
	if got := len(b.Devices()); got != 3 {
		t.Fatalf("len(Devices()) = %d, want 3", got)
	}
}
