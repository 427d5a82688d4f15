package buffer

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"
)

// Buffer is an n-dimensional float array with explicit host/device/
// device-image residence. A single mutex guards every field: transfers
// block the caller until complete, so there is no benefit to finer
// locking and every reader would need it anyway.
type Buffer struct {
	mu sync.Mutex

	req       Requisition
	sizeBytes int64

	location     Location
	lastLocation Location

	host      []float32
	hostOwned bool

	device DeviceMem
	image  DeviceImage

	ctx       Context
	lastQueue Queue

	metadata map[string]interface{}

	// subBuffers caches get_device_with_offset results, keyed by byte
	// offset. They are released when the parent is resized or destroyed.
	subBuffers map[int64]*Buffer
}

// New allocates a buffer with location INVALID and the given shape. ctx
// may be nil for a buffer that will only ever be touched on the host.
func New(req Requisition, ctx Context) (*Buffer, error) {
	if req.NDims == 0 || req.NDims > MaxDims {
		return nil, fmt.Errorf("buffer: invalid dimension count %d", req.NDims)
	}
	return &Buffer{
		req:          req,
		sizeBytes:    req.SizeBytes(),
		location:     LocationInvalid,
		lastLocation: LocationInvalid,
		ctx:          ctx,
	}, nil
}

// NewWithData wraps a caller-owned host array. The buffer never frees it.
func NewWithData(req Requisition, data []float32, ctx Context) (*Buffer, error) {
	b, err := New(req, ctx)
	if err != nil {
		return nil, err
	}
	b.host = data
	b.hostOwned = false
	b.location = LocationHost
	b.lastLocation = LocationHost
	return b, nil
}

// Requisition returns the buffer's current shape.
func (b *Buffer) Requisition() Requisition {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.req
}

// SizeBytes returns 4 * the product of the current shape's dimensions.
func (b *Buffer) SizeBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sizeBytes
}

// Location reports which slot is currently authoritative.
func (b *Buffer) Location() Location {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.location
}

// CmpDimensions returns the signed sum of (req.dim[i] - self.dim[i]). It is
// zero when the shapes agree, and also when the deltas cancel out (for
// example 2x3 against 3x2).
func (b *Buffer) CmpDimensions(req Requisition) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cmpDimensions(b.req, req)
}

// Resize frees all three storage slots if the new shape differs from the
// current one; it is a no-op (storage untouched) if the shapes agree.
// Metadata survives; sub-buffer views do not and must already have been
// released by their owners.
func (b *Buffer) Resize(req Requisition) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.req == req {
		return nil
	}

	if b.device != nil && b.ctx != nil {
		b.ctx.FreeDevice(b.device)
	}
	if b.image != nil && b.ctx != nil {
		b.ctx.FreeImage(b.image)
	}
	if b.hostOwned {
		putScratch(b.host)
	}
	b.device = nil
	b.image = nil
	b.host = nil
	b.hostOwned = false
	b.subBuffers = nil

	b.req = req
	b.sizeBytes = req.SizeBytes()
	b.location = LocationInvalid
	b.lastLocation = LocationInvalid
	return nil
}

func (b *Buffer) resolveQueue(q Queue) Queue {
	if q != nil {
		b.lastQueue = q
		return q
	}
	if b.lastQueue != nil {
		return b.lastQueue
	}
	if b.ctx != nil {
		b.lastQueue = b.ctx.DefaultQueue()
	}
	return b.lastQueue
}

// transitionLocked performs the three-step get_X sequence described by the
// location state machine: allocate the target slot if absent, move data
// from the current slot if the target is not already current, then flip
// last_location/location.
func (b *Buffer) transitionLocked(q Queue, target Location) error {
	if b.location == target {
		return nil
	}

	switch target {
	case LocationHost:
		if b.host == nil {
			b.host = getScratch(b.req.NumElements())
			b.hostOwned = true
		}
	case LocationDevice:
		if b.device == nil {
			mem, err := b.ctx.AllocDevice(b.sizeBytes)
			if err != nil {
				return err
			}
			b.device = mem
		}
	case LocationDeviceImage:
		if b.req.NDims == 1 {
			return fmt.Errorf("buffer: device image requires n_dims != 1")
		}
		if b.image == nil {
			img, err := b.ctx.AllocImage(b.req)
			if err != nil {
				return err
			}
			b.image = img
		}
	}

	if b.location != LocationInvalid {
		if err := b.moveLocked(q, b.location, target); err != nil {
			return err
		}
	}

	b.lastLocation = b.location
	b.location = target
	return nil
}

// moveLocked dispatches one cell of the 3x3 transfer matrix.
func (b *Buffer) moveLocked(q Queue, from, to Location) error {
	switch from {
	case LocationHost:
		switch to {
		case LocationDevice:
			return b.ctx.EnqueueWrite(q, b.device, b.host)
		case LocationDeviceImage:
			return b.ctx.EnqueueWriteImage(q, b.image, b.host, b.req)
		}
	case LocationDevice:
		switch to {
		case LocationHost:
			return b.ctx.EnqueueRead(q, b.device, b.host)
		case LocationDeviceImage:
			return b.ctx.EnqueueCopyBufferToImage(q, b.image, b.device, b.req)
		}
	case LocationDeviceImage:
		switch to {
		case LocationHost:
			return b.ctx.EnqueueReadImage(q, b.image, b.host, b.req)
		case LocationDevice:
			return b.ctx.EnqueueCopyImageToBuffer(q, b.device, b.image, b.req)
		}
	}
	return nil
}

// GetHost returns the host-resident float array, transferring from
// whichever slot is currently authoritative if necessary.
func (b *Buffer) GetHost(q Queue) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q = b.resolveQueue(q)
	if err := b.transitionLocked(q, LocationHost); err != nil {
		return nil, err
	}
	return b.host, nil
}

// GetDevice returns the device-buffer handle, transferring if necessary.
func (b *Buffer) GetDevice(q Queue) (DeviceMem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q = b.resolveQueue(q)
	if err := b.transitionLocked(q, LocationDevice); err != nil {
		return nil, err
	}
	return b.device, nil
}

// GetDeviceImage returns the device-image handle, transferring if necessary.
func (b *Buffer) GetDeviceImage(q Queue) (DeviceImage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q = b.resolveQueue(q)
	if err := b.transitionLocked(q, LocationDeviceImage); err != nil {
		return nil, err
	}
	return b.image, nil
}

// GetDeviceView copies a sub-rectangle of the buffer's device data into a
// brand-new, caller-owned Buffer. Unlike GetDeviceWithOffset, the result
// does not share lifetime with the parent.
func (b *Buffer) GetDeviceView(q Queue, region Requisition) (*Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !fitsWithin(region, b.req) {
		return nil, fmt.Errorf("buffer: view region exceeds bounds")
	}

	q = b.resolveQueue(q)
	if err := b.transitionLocked(q, LocationDevice); err != nil {
		return nil, err
	}

	view, err := New(region, b.ctx)
	if err != nil {
		return nil, err
	}
	mem, err := b.ctx.AllocDevice(region.SizeBytes())
	if err != nil {
		return nil, err
	}
	// region.Dims[0] == b.req.Dims[0] is the fast path where a single
	// contiguous copy suffices; a genuine sub-rectangle would need a
	// strided copy per row, left to the Context implementation via size.
	if err := b.ctx.EnqueueCopy(q, mem, b.device, region.SizeBytes()); err != nil {
		return nil, err
	}
	view.device = mem
	view.location = LocationDevice
	view.lastLocation = LocationDevice
	return view, nil
}

// GetDeviceWithOffset returns a sub-buffer view at a byte offset into the
// parent's device allocation. The result is cached and released together
// with the parent (on Resize or Close).
func (b *Buffer) GetDeviceWithOffset(q Queue, byteOffset int64) (DeviceMem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subBuffers[byteOffset]; ok {
		return sub.device, nil
	}

	q = b.resolveQueue(q)
	if err := b.transitionLocked(q, LocationDevice); err != nil {
		return nil, err
	}

	mem, err := b.ctx.SubBuffer(b.device, byteOffset)
	if err != nil {
		return nil, err
	}
	sub := &Buffer{req: b.req, location: LocationDevice, device: mem, ctx: b.ctx}
	if b.subBuffers == nil {
		b.subBuffers = make(map[int64]*Buffer)
	}
	b.subBuffers[byteOffset] = sub
	return mem, nil
}

// DiscardLocation reverts location to last_location without copying any
// data. The caller is asserting the other slot already holds the data
// it wants (typically right after Copy).
func (b *Buffer) DiscardLocation() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.location = b.lastLocation
}

// Copy makes dst hold src's data at dst's current location, resizing dst
// to match src's shape first. Metadata is copied along with the data.
func Copy(dst, src *Buffer) error {
	src.mu.Lock()
	srcReq := src.req
	srcLoc := src.location
	src.mu.Unlock()

	if err := dst.Resize(srcReq); err != nil {
		return err
	}
	copyMetadataLocked(src, dst)

	dst.mu.Lock()
	targetLoc := dst.location
	dst.mu.Unlock()
	if targetLoc == LocationInvalid {
		targetLoc = LocationHost
	}

	switch srcLoc {
	case LocationHost:
		data, err := src.GetHost(nil)
		if err != nil {
			return err
		}
		if targetLoc == LocationHost {
			h, err := dst.GetHost(nil)
			if err != nil {
				return err
			}
			copy(h, data)
			return nil
		}
	case LocationDevice:
		if targetLoc == LocationDevice {
			srcMem, err := src.GetDevice(nil)
			if err != nil {
				return err
			}
			dstMem, err := dst.GetDevice(nil)
			if err != nil {
				return err
			}
			return dst.ctx.EnqueueCopy(dst.resolveQueue(nil), dstMem, srcMem, srcReq.SizeBytes())
		}
	case LocationDeviceImage:
		if targetLoc == LocationDeviceImage {
			srcImg, err := src.GetDeviceImage(nil)
			if err != nil {
				return err
			}
			dstImg, err := dst.GetDeviceImage(nil)
			if err != nil {
				return err
			}
			return dst.ctx.EnqueueCopyImage(dst.resolveQueue(nil), dstImg, srcImg, srcReq)
		}
	}

	// Mismatched locations: fall back to host-mediated copy.
	data, err := src.GetHost(nil)
	if err != nil {
		return err
	}
	h, err := dst.GetHost(nil)
	if err != nil {
		return err
	}
	copy(h, data)

	switch targetLoc {
	case LocationDevice:
		_, err = dst.GetDevice(nil)
	case LocationDeviceImage:
		_, err = dst.GetDeviceImage(nil)
	}
	return err
}

// SourceDepth names the integer pixel depth Convert promotes from.
type SourceDepth int

const (
	Depth8U SourceDepth = iota
	Depth16U
	Depth16S
	Depth32S
	Depth32U
	Depth32F
)

// Convert re-interprets the host array in place, promoting narrower
// integer sample types to float32. It walks back-to-front so the wider
// float32 write at index i never clobbers an as-yet-unread narrower
// source sample at index i (which occupies fewer bytes than the float
// it becomes). 32F is a no-op.
func (b *Buffer) Convert(depth SourceDepth) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.location != LocationHost {
		return fmt.Errorf("buffer: convert requires location HOST, got %s", b.location)
	}
	if depth == Depth32F || len(b.host) == 0 {
		return nil
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(&b.host[0])), len(b.host)*4)
	n := len(b.host)

	for i := n - 1; i >= 0; i-- {
		var v float32
		switch depth {
		case Depth8U:
			v = float32(raw[i])
		case Depth16U:
			v = float32(binary.LittleEndian.Uint16(raw[i*2:]))
		case Depth16S:
			v = float32(int16(binary.LittleEndian.Uint16(raw[i*2:])))
		case Depth32S:
			v = float32(int32(binary.LittleEndian.Uint32(raw[i*4:])))
		case Depth32U:
			v = float32(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		b.host[i] = v
	}
	return nil
}

// SetMetadata upserts a key.
func (b *Buffer) SetMetadata(key string, value interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.metadata == nil {
		b.metadata = make(map[string]interface{})
	}
	b.metadata[key] = value
}

// GetMetadata looks up a key.
func (b *Buffer) GetMetadata(key string) (interface{}, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.metadata[key]
	return v, ok
}

// MetadataKeys returns the current metadata key set.
func (b *Buffer) MetadataKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.metadata))
	for k := range b.metadata {
		keys = append(keys, k)
	}
	return keys
}

// CopyMetadata deep-copies every entry from src onto dst, upserting by key.
func CopyMetadata(src, dst *Buffer) {
	copyMetadataLocked(src, dst)
}

func copyMetadataLocked(src, dst *Buffer) {
	src.mu.Lock()
	entries := make(map[string]interface{}, len(src.metadata))
	for k, v := range src.metadata {
		entries[k] = v
	}
	src.mu.Unlock()

	dst.mu.Lock()
	defer dst.mu.Unlock()
	if dst.metadata == nil {
		dst.metadata = make(map[string]interface{})
	}
	for k, v := range entries {
		dst.metadata[k] = v
	}
}

// Max returns the largest value of the host-resident float array.
func (b *Buffer) Max(q Queue) (float32, error) {
	return b.extremum(q, func(a, v float32) bool { return v > a })
}

// Min returns the smallest value of the host-resident float array.
func (b *Buffer) Min(q Queue) (float32, error) {
	return b.extremum(q, func(a, v float32) bool { return v < a })
}

func (b *Buffer) extremum(q Queue, better func(acc, v float32) bool) (float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.location != LocationHost {
		return 0, fmt.Errorf("buffer: extremum requires location HOST, got %s", b.location)
	}
	if len(b.host) == 0 {
		return 0, fmt.Errorf("buffer: extremum of empty buffer")
	}
	acc := b.host[0]
	for _, v := range b.host[1:] {
		if better(acc, v) {
			acc = v
		}
	}
	return acc, nil
}

// Close releases device and image storage. Safe to call more than once.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device != nil && b.ctx != nil {
		b.ctx.FreeDevice(b.device)
		b.device = nil
	}
	if b.image != nil && b.ctx != nil {
		b.ctx.FreeImage(b.image)
		b.image = nil
	}
	b.subBuffers = nil
}
