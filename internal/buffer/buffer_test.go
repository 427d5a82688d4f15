package buffer

import (
	"sync"
	"testing"
	"unsafe"
)

// fakeContext is an in-memory, test-only Context: device and image slots
// are just host-memory-backed []float32 copies, so transfers are plain
// slice copies rather than real OpenCL calls.
type fakeContext struct {
	mu      sync.Mutex
	writes  int
	reads   int
	copies  int
}

type fakeMem struct{ data []float32 }
type fakeImage struct{ data []float32 }

func (c *fakeContext) AllocDevice(size int64) (DeviceMem, error) {
	return &fakeMem{data: make([]float32, size/4)}, nil
}

func (c *fakeContext) AllocImage(req Requisition) (DeviceImage, error) {
	return &fakeImage{data: make([]float32, req.NumElements())}, nil
}

func (c *fakeContext) FreeDevice(DeviceMem) {}
func (c *fakeContext) FreeImage(DeviceImage) {}

func (c *fakeContext) SubBuffer(parent DeviceMem, byteOffset int64) (DeviceMem, error) {
	pm := parent.(*fakeMem)
	return &fakeMem{data: pm.data[byteOffset/4:]}, nil
}

func (c *fakeContext) DefaultQueue() Queue { return "default" }

func (c *fakeContext) EnqueueWrite(q Queue, mem DeviceMem, host []float32) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	copy(mem.(*fakeMem).data, host)
	return nil
}

func (c *fakeContext) EnqueueRead(q Queue, mem DeviceMem, host []float32) error {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	copy(host, mem.(*fakeMem).data)
	return nil
}

func (c *fakeContext) EnqueueCopy(q Queue, dst, src DeviceMem, size int64) error {
	c.mu.Lock()
	c.copies++
	c.mu.Unlock()
	copy(dst.(*fakeMem).data, src.(*fakeMem).data)
	return nil
}

func (c *fakeContext) EnqueueWriteImage(q Queue, img DeviceImage, host []float32, req Requisition) error {
	copy(img.(*fakeImage).data, host)
	return nil
}

func (c *fakeContext) EnqueueReadImage(q Queue, img DeviceImage, host []float32, req Requisition) error {
	copy(host, img.(*fakeImage).data)
	return nil
}

func (c *fakeContext) EnqueueCopyBufferToImage(q Queue, img DeviceImage, mem DeviceMem, req Requisition) error {
	copy(img.(*fakeImage).data, mem.(*fakeMem).data)
	return nil
}

func (c *fakeContext) EnqueueCopyImageToBuffer(q Queue, mem DeviceMem, img DeviceImage, req Requisition) error {
	copy(mem.(*fakeMem).data, img.(*fakeImage).data)
	return nil
}

func (c *fakeContext) EnqueueCopyImage(q Queue, dst, src DeviceImage, req Requisition) error {
	copy(dst.(*fakeImage).data, src.(*fakeImage).data)
	return nil
}

func TestNew_RejectsBadDims(t *testing.T) {
	tests := []struct {
		name   string
		ndims  int
		wantOK bool
	}{
		{"zero dims", 0, false},
		{"one dim", 1, true},
		{"three dims", 3, true},
		{"four dims", 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Requisition{NDims: tt.ndims}
			_, err := New(req, nil)
			if tt.wantOK && err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}
			if !tt.wantOK && err == nil {
				t.Fatalf("New() expected error for n_dims=%d", tt.ndims)
			}
		})
	}
}

func TestCmpDimensions(t *testing.T) {
	b, err := New(NewRequisition(4, 4), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := b.CmpDimensions(NewRequisition(4, 4)); got != 0 {
		t.Errorf("CmpDimensions(same) = %d, want 0", got)
	}
	if got := b.CmpDimensions(NewRequisition(8, 4)); got == 0 {
		t.Errorf("CmpDimensions(different) = 0, want nonzero")
	}
}

func TestResize_NoOpOnSameShape(t *testing.T) {
	b, _ := New(NewRequisition(8), nil)
	host, _ := b.GetHost(nil)
	copy(host, []float32{1, 2, 3, 4, 5, 6, 7, 8})
	ptr := &host[0]

	if err := b.Resize(NewRequisition(8)); err != nil {
		t.Fatal(err)
	}
	after, _ := b.GetHost(nil)
	if &after[0] != ptr {
		t.Errorf("Resize to identical shape reallocated host storage")
	}
}

func TestResize_DifferentShapeInvalidatesLocation(t *testing.T) {
	b, _ := New(NewRequisition(8), nil)
	b.GetHost(nil)
	if err := b.Resize(NewRequisition(16)); err != nil {
		t.Fatal(err)
	}
	if b.Location() != LocationInvalid {
		t.Errorf("Location() after resize = %v, want INVALID", b.Location())
	}
}

func TestHostDeviceRoundTrip(t *testing.T) {
	ctx := &fakeContext{}
	b, err := New(NewRequisition(8), ctx)
	if err != nil {
		t.Fatal(err)
	}

	host, err := b.GetHost(nil)
	if err != nil {
		t.Fatal(err)
	}
	copy(host, []float32{0, 1, 2, 3, 4, 5, 6, 7})

	dev, err := b.GetDevice(nil)
	if err != nil {
		t.Fatal(err)
	}
	mem := dev.(*fakeMem)
	for i := range mem.data {
		mem.data[i]++
	}

	out, err := b.GetHost(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	for i, v := range want {
		if out[i] != v {
			t.Errorf("out[%d] = %v, want %v", i, out[i], v)
		}
	}

	if ctx.writes != 1 {
		t.Errorf("writes = %d, want 1", ctx.writes)
	}
	if ctx.reads != 1 {
		t.Errorf("reads = %d, want 1", ctx.reads)
	}
}

func TestDiscardLocation(t *testing.T) {
	ctx := &fakeContext{}
	b, _ := New(NewRequisition(4), ctx)
	b.GetHost(nil)
	b.GetDevice(nil)
	writesBefore := ctx.writes

	b.DiscardLocation()
	if b.Location() != LocationHost {
		t.Errorf("Location() after discard = %v, want HOST", b.Location())
	}
	if ctx.writes != writesBefore {
		t.Errorf("DiscardLocation performed a transfer")
	}
}

func TestMetadataCopy(t *testing.T) {
	a, _ := New(NewRequisition(1), nil)
	b, _ := New(NewRequisition(1), nil)

	a.SetMetadata("foo", 1)
	CopyMetadata(a, b)

	v, ok := b.GetMetadata("foo")
	if !ok || v.(int) != 1 {
		t.Errorf("GetMetadata(foo) = %v, %v, want 1, true", v, ok)
	}
}

func TestConvert32FIsNoOp(t *testing.T) {
	ctx := &fakeContext{}
	b, _ := New(NewRequisition(4), ctx)
	host, _ := b.GetHost(nil)
	copy(host, []float32{1, 2, 3, 4})

	if err := b.Convert(Depth32F); err != nil {
		t.Fatalf("Convert(32F) no-op errored: %v", err)
	}
	after, _ := b.GetHost(nil)
	for i, v := range []float32{1, 2, 3, 4} {
		if after[i] != v {
			t.Errorf("after[%d] = %v, want %v", i, after[i], v)
		}
	}
}

func TestConvert8UPromotesBackToFront(t *testing.T) {
	ctx := &fakeContext{}
	// The backing array has room for 4 floats; before conversion only its
	// first 4 bytes hold meaningful 8U samples. Convert must read those
	// raw bytes back-to-front before overwriting them with wider float32
	// values, so byte i is read before float slot i is written.
	b, _ := New(NewRequisition(4), ctx)
	host, err := b.GetHost(nil)
	if err != nil {
		t.Fatal(err)
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(&host[0])), len(host)*4)
	samples := []byte{10, 20, 30, 40}
	copy(raw, samples)

	if err := b.Convert(Depth8U); err != nil {
		t.Fatal(err)
	}
	after, _ := b.GetHost(nil)
	for i, v := range samples {
		if after[i] != float32(v) {
			t.Errorf("after[%d] = %v, want %v", i, after[i], float32(v))
		}
	}
}

func TestGetDeviceViewRejectsOutOfBounds(t *testing.T) {
	ctx := &fakeContext{}
	b, _ := New(NewRequisition(4, 4), ctx)
	b.GetDevice(nil)

	if _, err := b.GetDeviceView(nil, NewRequisition(8, 8)); err == nil {
		t.Errorf("GetDeviceView with oversized region did not fail")
	}
}

func TestGetDeviceViewCopiesContents(t *testing.T) {
	ctx := &fakeContext{}
	b, _ := New(NewRequisition(4), ctx)
	host, _ := b.GetHost(nil)
	copy(host, []float32{1, 2, 3, 4})
	b.GetDevice(nil)

	view, err := b.GetDeviceView(nil, NewRequisition(4))
	if err != nil {
		t.Fatal(err)
	}
	viewHost, _ := view.GetHost(nil)
	for i, v := range []float32{1, 2, 3, 4} {
		if viewHost[i] != v {
			t.Errorf("view[%d] = %v, want %v", i, viewHost[i], v)
		}
	}
}
