package resources

import (
	"fmt"
	"sync"

	"github.com/ufo-kit/ufo-go/internal/buffer"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// simMem is a host-memory stand-in for a cl_mem buffer allocation.
type simMem struct {
	mu   sync.RWMutex
	data []float32
}

// simImage is a host-memory stand-in for a cl_mem image allocation.
type simImage struct {
	mu  sync.RWMutex
	req buffer.Requisition
	data []float32
}

type simQueue struct{ name string }

type simKernel struct {
	filename string
	name     string
	source   string
}

// SimulatedBackend runs every Buffer transfer and kernel lookup in
// ordinary Go memory with no OpenCL driver involved. It is the default
// Backend: a configuration with no GPUs still exercises the full task
// graph, buffer transfer matrix and scheduler, the way the source can
// run its own test suite against the "cpu" device type without a real
// accelerator.
type SimulatedBackend struct {
	kernelPaths
	cache   *kernelCache
	devices []task.ProcessingNode
	queue   buffer.Queue
}

// NewSimulated returns a backend presenting numDevices virtual compute
// devices. numDevices must be >= 0; 0 means the graph runs entirely on
// ModeCPU tasks.
func NewSimulated(numDevices int) *SimulatedBackend {
	b := &SimulatedBackend{
		cache: newKernelCache(),
		queue: &simQueue{name: "default"},
	}
	for i := 0; i < numDevices; i++ {
		b.devices = append(b.devices, &GPUNode{Index: i, Name: fmt.Sprintf("simulated-%d", i)})
	}
	return b
}

func (b *SimulatedBackend) AllocDevice(size int64) (buffer.DeviceMem, error) {
	if size < 0 || size%4 != 0 {
		return nil, fmt.Errorf("resources: AllocDevice: size %d is not a multiple of 4", size)
	}
	return &simMem{data: make([]float32, size/4)}, nil
}

func (b *SimulatedBackend) AllocImage(req buffer.Requisition) (buffer.DeviceImage, error) {
	return &simImage{req: req, data: make([]float32, req.NumElements())}, nil
}

func (b *SimulatedBackend) FreeDevice(buffer.DeviceMem)   {}
func (b *SimulatedBackend) FreeImage(buffer.DeviceImage) {}

func (b *SimulatedBackend) SubBuffer(parent buffer.DeviceMem, byteOffset int64) (buffer.DeviceMem, error) {
	p, ok := parent.(*simMem)
	if !ok {
		return nil, fmt.Errorf("resources: SubBuffer: parent is not a simulated allocation")
	}
	if byteOffset%4 != 0 || byteOffset/4 > int64(len(p.data)) {
		return nil, fmt.Errorf("resources: SubBuffer: offset %d out of range", byteOffset)
	}
	return &simMem{data: p.data[byteOffset/4:]}, nil
}

func (b *SimulatedBackend) DefaultQueue() buffer.Queue { return b.queue }

func (b *SimulatedBackend) EnqueueWrite(q buffer.Queue, mem buffer.DeviceMem, host []float32) error {
	m := mem.(*simMem)
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.data, host)
	return nil
}

func (b *SimulatedBackend) EnqueueRead(q buffer.Queue, mem buffer.DeviceMem, host []float32) error {
	m := mem.(*simMem)
	m.mu.RLock()
	defer m.mu.RUnlock()
	copy(host, m.data)
	return nil
}

func (b *SimulatedBackend) EnqueueCopy(q buffer.Queue, dst, src buffer.DeviceMem, size int64) error {
	d, s := dst.(*simMem), src.(*simMem)
	s.mu.RLock()
	defer s.mu.RUnlock()
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.data[:size/4], s.data[:size/4])
	return nil
}

func (b *SimulatedBackend) EnqueueWriteImage(q buffer.Queue, img buffer.DeviceImage, host []float32, req buffer.Requisition) error {
	i := img.(*simImage)
	i.mu.Lock()
	defer i.mu.Unlock()
	copy(i.data, host)
	return nil
}

func (b *SimulatedBackend) EnqueueReadImage(q buffer.Queue, img buffer.DeviceImage, host []float32, req buffer.Requisition) error {
	i := img.(*simImage)
	i.mu.RLock()
	defer i.mu.RUnlock()
	copy(host, i.data)
	return nil
}

func (b *SimulatedBackend) EnqueueCopyBufferToImage(q buffer.Queue, img buffer.DeviceImage, mem buffer.DeviceMem, req buffer.Requisition) error {
	i, m := img.(*simImage), mem.(*simMem)
	m.mu.RLock()
	defer m.mu.RUnlock()
	i.mu.Lock()
	defer i.mu.Unlock()
	copy(i.data, m.data)
	return nil
}

func (b *SimulatedBackend) EnqueueCopyImageToBuffer(q buffer.Queue, mem buffer.DeviceMem, img buffer.DeviceImage, req buffer.Requisition) error {
	i, m := img.(*simImage), mem.(*simMem)
	i.mu.RLock()
	defer i.mu.RUnlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.data, i.data)
	return nil
}

func (b *SimulatedBackend) EnqueueCopyImage(q buffer.Queue, dst, src buffer.DeviceImage, req buffer.Requisition) error {
	d, s := dst.(*simImage), src.(*simImage)
	s.mu.RLock()
	defer s.mu.RUnlock()
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.data, s.data)
	return nil
}

func (b *SimulatedBackend) GetKernel(filename, name string) (Kernel, error) {
	return b.cache.getOrBuild(filename+"#"+name, func() (Kernel, error) {
		src, err := readKernelSource(b.snapshot(), filename)
		if err != nil {
			return nil, &Error{Op: "GetKernel", Name: filename, Wrapped: err}
		}
		return &simKernel{filename: filename, name: name, source: src}, nil
	})
}

func (b *SimulatedBackend) GetKernelFromSource(source, name string) (Kernel, error) {
	return b.cache.getOrBuild("source#"+name, func() (Kernel, error) {
		return &simKernel{name: name, source: source}, nil
	})
}

// Launch is a no-op: the simulated backend has no compiler or device to
// run a kernel on. GPU-mode tasks under this backend implement their
// transform directly in Process using the buffer contents, the way a
// plugin's CPU fallback path works when no accelerator is configured.
func (b *SimulatedBackend) Launch(task.ProcessingNode, Kernel, [3]int, ...interface{}) error {
	return nil
}

func (b *SimulatedBackend) Devices() []task.ProcessingNode { return b.devices }

func (b *SimulatedBackend) Close() error { return nil }
