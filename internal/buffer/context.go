package buffer

// DeviceMem is an opaque handle to a device-resident buffer allocation.
// Its concrete type is defined entirely by the Context implementation.
type DeviceMem interface{}

// DeviceImage is an opaque handle to a device-resident 2D/3D image
// allocation (single-channel float).
type DeviceImage interface{}

// Queue is an opaque handle to a command queue. A nil Queue asks the
// buffer to reuse whichever queue last touched it.
type Queue interface{}

// Context is the small set of device operations a Buffer needs in order
// to move data between host, device and device-image storage. It is
// defined here, from the consumer's side, deliberately: the concrete
// implementation (a real OpenCL-backed context or an in-process
// simulation) lives in internal/resources and is wired in by whichever
// component constructs buffers, never imported by this package.
type Context interface {
	AllocDevice(size int64) (DeviceMem, error)
	AllocImage(req Requisition) (DeviceImage, error)
	FreeDevice(DeviceMem)
	FreeImage(DeviceImage)
	SubBuffer(parent DeviceMem, byteOffset int64) (DeviceMem, error)

	DefaultQueue() Queue

	EnqueueWrite(q Queue, mem DeviceMem, host []float32) error
	EnqueueRead(q Queue, mem DeviceMem, host []float32) error
	EnqueueCopy(q Queue, dst, src DeviceMem, size int64) error

	EnqueueWriteImage(q Queue, img DeviceImage, host []float32, req Requisition) error
	EnqueueReadImage(q Queue, img DeviceImage, host []float32, req Requisition) error
	EnqueueCopyBufferToImage(q Queue, img DeviceImage, mem DeviceMem, req Requisition) error
	EnqueueCopyImageToBuffer(q Queue, mem DeviceMem, img DeviceImage, req Requisition) error
	EnqueueCopyImage(q Queue, dst, src DeviceImage, req Requisition) error
}
