//go:build opencl
// +build opencl

// Package resources' real backend: a thin cgo binding onto the system
// OpenCL ICD loader, built only with -tags opencl since most
// development and CI machines have no GPU driver installed.
package resources

/*
#cgo LDFLAGS: -lOpenCL
#ifdef __APPLE__
#include <OpenCL/cl.h>
#else
#include <CL/cl.h>
#endif
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ufo-kit/ufo-go/internal/buffer"
	"github.com/ufo-kit/ufo-go/internal/task"
)

// clErrorMessages mirrors the source's opencl_error_msgs table: the
// negative error codes below -14 restart at CL_INVALID_VALUE (-30).
var clErrorMessages = []string{
	"CL_SUCCESS", "CL_DEVICE_NOT_FOUND", "CL_DEVICE_NOT_AVAILABLE",
	"CL_COMPILER_NOT_AVAILABLE", "CL_MEM_OBJECT_ALLOCATION_FAILURE",
	"CL_OUT_OF_RESOURCES", "CL_OUT_OF_HOST_MEMORY",
	"CL_PROFILING_INFO_NOT_AVAILABLE", "CL_MEM_COPY_OVERLAP",
	"CL_IMAGE_FORMAT_MISMATCH", "CL_IMAGE_FORMAT_NOT_SUPPORTED",
	"CL_BUILD_PROGRAM_FAILURE", "CL_MAP_FAILURE",
	"CL_MISALIGNED_SUB_BUFFER_OFFSET",
	"CL_EXEC_STATUS_ERROR_FOR_EVENTS_IN_WAIT_LIST",
	"CL_INVALID_VALUE", "CL_INVALID_DEVICE_TYPE", "CL_INVALID_PLATFORM",
	"CL_INVALID_DEVICE", "CL_INVALID_CONTEXT", "CL_INVALID_QUEUE_PROPERTIES",
	"CL_INVALID_COMMAND_QUEUE", "CL_INVALID_HOST_PTR", "CL_INVALID_MEM_OBJECT",
	"CL_INVALID_IMAGE_FORMAT_DESCRIPTOR", "CL_INVALID_IMAGE_SIZE",
	"CL_INVALID_SAMPLER", "CL_INVALID_BINARY", "CL_INVALID_BUILD_OPTIONS",
	"CL_INVALID_PROGRAM", "CL_INVALID_PROGRAM_EXECUTABLE",
	"CL_INVALID_KERNEL_NAME", "CL_INVALID_KERNEL_DEFINITION",
	"CL_INVALID_KERNEL", "CL_INVALID_ARG_INDEX", "CL_INVALID_ARG_VALUE",
	"CL_INVALID_ARG_SIZE", "CL_INVALID_KERNEL_ARGS", "CL_INVALID_WORK_DIMENSION",
	"CL_INVALID_WORK_GROUP_SIZE", "CL_INVALID_WORK_ITEM_SIZE",
	"CL_INVALID_GLOBAL_OFFSET", "CL_INVALID_EVENT_WAIT_LIST", "CL_INVALID_EVENT",
	"CL_INVALID_OPERATION", "CL_INVALID_GL_OBJECT", "CL_INVALID_BUFFER_SIZE",
	"CL_INVALID_MIP_LEVEL", "CL_INVALID_GLOBAL_WORK_SIZE",
}

func clError(code C.cl_int) error {
	if code == C.CL_SUCCESS {
		return nil
	}
	i := int(code)
	var idx int
	if i >= -14 {
		idx = -i
	} else {
		idx = -i - 15
	}
	if idx < 0 || idx >= len(clErrorMessages) {
		return fmt.Errorf("opencl: invalid error code %d", i)
	}
	return fmt.Errorf("opencl: %s", clErrorMessages[idx])
}

type clMem struct {
	mem  C.cl_mem
	size int64
}

type clImage struct {
	mem C.cl_mem
	req buffer.Requisition
}

type clQueue struct{ q C.cl_command_queue }

type clKernel struct {
	program C.cl_program
	kernel  C.cl_kernel
	name    string
}

// OpenCLBackend owns one context spanning every device of a single
// platform, plus one in-order command queue per device, mirroring
// UfoResourcesPrivate.
type OpenCLBackend struct {
	kernelPaths
	cache *kernelCache

	mu       sync.Mutex
	platform C.cl_platform_id
	context  C.cl_context
	devices  []C.cl_device_id
	queues   []C.cl_command_queue
	nodes    []task.ProcessingNode
}

// NewOpenCL enumerates the first available platform's devices of the
// requested type ("GPU", "CPU" or "ALL") and creates a shared context
// and one queue per device.
func NewOpenCL(deviceType string) (Backend, error) {
	var nPlatforms C.cl_uint
	if err := clError(C.clGetPlatformIDs(0, nil, &nPlatforms)); err != nil {
		return nil, &Error{Op: "clGetPlatformIDs", Wrapped: err}
	}
	if nPlatforms == 0 {
		return nil, &Error{Op: "clGetPlatformIDs", Wrapped: fmt.Errorf("no OpenCL platforms found")}
	}

	platforms := make([]C.cl_platform_id, nPlatforms)
	if err := clError(C.clGetPlatformIDs(nPlatforms, &platforms[0], nil)); err != nil {
		return nil, &Error{Op: "clGetPlatformIDs", Wrapped: err}
	}
	platform := platforms[0]

	var clDeviceType C.cl_device_type
	switch deviceType {
	case "CPU":
		clDeviceType = C.CL_DEVICE_TYPE_CPU
	case "ALL":
		clDeviceType = C.CL_DEVICE_TYPE_ALL
	default:
		clDeviceType = C.CL_DEVICE_TYPE_GPU
	}

	var nDevices C.cl_uint
	if err := clError(C.clGetDeviceIDs(platform, clDeviceType, 0, nil, &nDevices)); err != nil {
		return nil, &Error{Op: "clGetDeviceIDs", Wrapped: err}
	}

	devices := make([]C.cl_device_id, nDevices)
	if err := clError(C.clGetDeviceIDs(platform, clDeviceType, nDevices, &devices[0], nil)); err != nil {
		return nil, &Error{Op: "clGetDeviceIDs", Wrapped: err}
	}

	var clErr C.cl_int
	context := C.clCreateContext(nil, nDevices, &devices[0], nil, nil, &clErr)
	if err := clError(clErr); err != nil {
		return nil, &Error{Op: "clCreateContext", Wrapped: err}
	}

	queues := make([]C.cl_command_queue, nDevices)
	nodes := make([]task.ProcessingNode, nDevices)
	for i, d := range devices {
		queues[i] = C.clCreateCommandQueue(context, d, 0, &clErr)
		if err := clError(clErr); err != nil {
			return nil, &Error{Op: "clCreateCommandQueue", Wrapped: err}
		}
		nodes[i] = &GPUNode{Index: i, Name: deviceName(d)}
	}

	return &OpenCLBackend{
		cache:    newKernelCache(),
		platform: platform,
		context:  context,
		devices:  devices,
		queues:   queues,
		nodes:    nodes,
	}, nil
}

func deviceName(d C.cl_device_id) string {
	var size C.size_t
	C.clGetDeviceInfo(d, C.CL_DEVICE_NAME, 0, nil, &size)
	buf := make([]byte, size)
	C.clGetDeviceInfo(d, C.CL_DEVICE_NAME, size, unsafe.Pointer(&buf[0]), nil)
	return string(buf)
}

func (b *OpenCLBackend) Devices() []task.ProcessingNode { return b.nodes }

func (b *OpenCLBackend) queueFor(q buffer.Queue) C.cl_command_queue {
	if cq, ok := q.(*clQueue); ok {
		return cq.q
	}
	return b.queues[0]
}

func (b *OpenCLBackend) DefaultQueue() buffer.Queue { return &clQueue{q: b.queues[0]} }

func (b *OpenCLBackend) AllocDevice(size int64) (buffer.DeviceMem, error) {
	var clErr C.cl_int
	mem := C.clCreateBuffer(b.context, C.CL_MEM_READ_WRITE, C.size_t(size), nil, &clErr)
	if err := clError(clErr); err != nil {
		return nil, &Error{Op: "clCreateBuffer", Wrapped: err}
	}
	return &clMem{mem: mem, size: size}, nil
}

func (b *OpenCLBackend) AllocImage(req buffer.Requisition) (buffer.DeviceImage, error) {
	format := C.cl_image_format{image_channel_order: C.CL_INTENSITY, image_channel_data_type: C.CL_FLOAT}
	desc := C.cl_image_desc{
		image_type:  C.CL_MEM_OBJECT_IMAGE2D,
		image_width: C.size_t(req.Dims[0]),
	}
	if req.NDims > 1 {
		desc.image_height = C.size_t(req.Dims[1])
	} else {
		desc.image_height = 1
	}

	var clErr C.cl_int
	mem := C.clCreateImage(b.context, C.CL_MEM_READ_WRITE, &format, &desc, nil, &clErr)
	if err := clError(clErr); err != nil {
		return nil, &Error{Op: "clCreateImage", Wrapped: err}
	}
	return &clImage{mem: mem, req: req}, nil
}

func (b *OpenCLBackend) FreeDevice(m buffer.DeviceMem) {
	if cm, ok := m.(*clMem); ok {
		C.clReleaseMemObject(cm.mem)
	}
}

func (b *OpenCLBackend) FreeImage(i buffer.DeviceImage) {
	if ci, ok := i.(*clImage); ok {
		C.clReleaseMemObject(ci.mem)
	}
}

func (b *OpenCLBackend) SubBuffer(parent buffer.DeviceMem, byteOffset int64) (buffer.DeviceMem, error) {
	p := parent.(*clMem)
	region := C.cl_buffer_region{origin: C.size_t(byteOffset), size: C.size_t(p.size - byteOffset)}
	var clErr C.cl_int
	mem := C.clCreateSubBuffer(p.mem, C.CL_MEM_READ_WRITE, C.CL_BUFFER_CREATE_TYPE_REGION,
		unsafe.Pointer(&region), &clErr)
	if err := clError(clErr); err != nil {
		return nil, &Error{Op: "clCreateSubBuffer", Wrapped: err}
	}
	return &clMem{mem: mem, size: int64(region.size)}, nil
}

func (b *OpenCLBackend) EnqueueWrite(q buffer.Queue, mem buffer.DeviceMem, host []float32) error {
	m := mem.(*clMem)
	size := C.size_t(len(host) * 4)
	return clError(C.clEnqueueWriteBuffer(b.queueFor(q), m.mem, C.CL_TRUE, 0, size,
		unsafe.Pointer(&host[0]), 0, nil, nil))
}

func (b *OpenCLBackend) EnqueueRead(q buffer.Queue, mem buffer.DeviceMem, host []float32) error {
	m := mem.(*clMem)
	size := C.size_t(len(host) * 4)
	return clError(C.clEnqueueReadBuffer(b.queueFor(q), m.mem, C.CL_TRUE, 0, size,
		unsafe.Pointer(&host[0]), 0, nil, nil))
}

func (b *OpenCLBackend) EnqueueCopy(q buffer.Queue, dst, src buffer.DeviceMem, size int64) error {
	d, s := dst.(*clMem), src.(*clMem)
	return clError(C.clEnqueueCopyBuffer(b.queueFor(q), s.mem, d.mem, 0, 0, C.size_t(size), 0, nil, nil))
}

func (b *OpenCLBackend) EnqueueWriteImage(q buffer.Queue, img buffer.DeviceImage, host []float32, req buffer.Requisition) error {
	i := img.(*clImage)
	origin := [3]C.size_t{0, 0, 0}
	region := [3]C.size_t{C.size_t(req.Dims[0]), 1, 1}
	if req.NDims > 1 {
		region[1] = C.size_t(req.Dims[1])
	}
	return clError(C.clEnqueueWriteImage(b.queueFor(q), i.mem, C.CL_TRUE, &origin[0], &region[0],
		0, 0, unsafe.Pointer(&host[0]), 0, nil, nil))
}

func (b *OpenCLBackend) EnqueueReadImage(q buffer.Queue, img buffer.DeviceImage, host []float32, req buffer.Requisition) error {
	i := img.(*clImage)
	origin := [3]C.size_t{0, 0, 0}
	region := [3]C.size_t{C.size_t(req.Dims[0]), 1, 1}
	if req.NDims > 1 {
		region[1] = C.size_t(req.Dims[1])
	}
	return clError(C.clEnqueueReadImage(b.queueFor(q), i.mem, C.CL_TRUE, &origin[0], &region[0],
		0, 0, unsafe.Pointer(&host[0]), 0, nil, nil))
}

func (b *OpenCLBackend) EnqueueCopyBufferToImage(q buffer.Queue, img buffer.DeviceImage, mem buffer.DeviceMem, req buffer.Requisition) error {
	i, m := img.(*clImage), mem.(*clMem)
	origin := [3]C.size_t{0, 0, 0}
	region := [3]C.size_t{C.size_t(req.Dims[0]), 1, 1}
	if req.NDims > 1 {
		region[1] = C.size_t(req.Dims[1])
	}
	return clError(C.clEnqueueCopyBufferToImage(b.queueFor(q), m.mem, i.mem, 0, &origin[0], &region[0], 0, nil, nil))
}

func (b *OpenCLBackend) EnqueueCopyImageToBuffer(q buffer.Queue, mem buffer.DeviceMem, img buffer.DeviceImage, req buffer.Requisition) error {
	i, m := img.(*clImage), mem.(*clMem)
	origin := [3]C.size_t{0, 0, 0}
	region := [3]C.size_t{C.size_t(req.Dims[0]), 1, 1}
	if req.NDims > 1 {
		region[1] = C.size_t(req.Dims[1])
	}
	return clError(C.clEnqueueCopyImageToBuffer(b.queueFor(q), i.mem, m.mem, &origin[0], &region[0], 0, 0, nil, nil))
}

func (b *OpenCLBackend) EnqueueCopyImage(q buffer.Queue, dst, src buffer.DeviceImage, req buffer.Requisition) error {
	d, s := dst.(*clImage), src.(*clImage)
	origin := [3]C.size_t{0, 0, 0}
	region := [3]C.size_t{C.size_t(req.Dims[0]), 1, 1}
	if req.NDims > 1 {
		region[1] = C.size_t(req.Dims[1])
	}
	return clError(C.clEnqueueCopyImage(b.queueFor(q), s.mem, d.mem, &origin[0], &origin[0], &region[0], 0, nil, nil))
}

func (b *OpenCLBackend) buildProgram(source string) (C.cl_program, error) {
	csource := C.CString(source)
	defer C.free(unsafe.Pointer(csource))

	var clErr C.cl_int
	program := C.clCreateProgramWithSource(b.context, 1, &csource, nil, &clErr)
	if err := clError(clErr); err != nil {
		return nil, &Error{Op: "clCreateProgramWithSource", Wrapped: err}
	}

	for _, d := range b.devices {
		if err := clError(C.clBuildProgram(program, 1, &d, nil, nil, nil)); err != nil {
			logSize := C.size_t(4096)
			log := make([]byte, logSize)
			C.clGetProgramBuildInfo(program, d, C.CL_PROGRAM_BUILD_LOG, logSize, unsafe.Pointer(&log[0]), nil)
			return nil, &Error{Op: "clBuildProgram", Wrapped: fmt.Errorf("%v: %s", err, string(log))}
		}
	}

	return program, nil
}

func (b *OpenCLBackend) GetKernel(filename, name string) (Kernel, error) {
	return b.cache.getOrBuild(filename+"#"+name, func() (Kernel, error) {
		src, err := readKernelSource(b.snapshot(), filename)
		if err != nil {
			return nil, &Error{Op: "GetKernel", Name: filename, Wrapped: err}
		}
		return b.buildKernel(src, name)
	})
}

func (b *OpenCLBackend) GetKernelFromSource(source, name string) (Kernel, error) {
	return b.cache.getOrBuild("source#"+name, func() (Kernel, error) {
		return b.buildKernel(source, name)
	})
}

func (b *OpenCLBackend) buildKernel(source, name string) (Kernel, error) {
	program, err := b.buildProgram(source)
	if err != nil {
		return nil, err
	}

	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var clErr C.cl_int
	kernel := C.clCreateKernel(program, cname, &clErr)
	if err := clError(clErr); err != nil {
		return nil, &Error{Op: "clCreateKernel", Name: name, Wrapped: err}
	}

	return &clKernel{program: program, kernel: kernel, name: name}, nil
}

// Launch sets up kernel's arguments and enqueues it for execution on
// node's queue, waiting for completion. args must be *clMem, *clImage,
// int32 or float32.
func (b *OpenCLBackend) Launch(node task.ProcessingNode, k Kernel, globalSize [3]int, args ...interface{}) error {
	ck := k.(*clKernel)
	gn, ok := node.(*GPUNode)
	if !ok || gn.Index >= len(b.queues) {
		return &Error{Op: "Launch", Wrapped: fmt.Errorf("invalid processing node %v", node)}
	}

	for i, arg := range args {
		var err C.cl_int
		switch v := arg.(type) {
		case *clMem:
			err = C.clSetKernelArg(ck.kernel, C.cl_uint(i), C.size_t(unsafe.Sizeof(v.mem)), unsafe.Pointer(&v.mem))
		case *clImage:
			err = C.clSetKernelArg(ck.kernel, C.cl_uint(i), C.size_t(unsafe.Sizeof(v.mem)), unsafe.Pointer(&v.mem))
		case int32:
			err = C.clSetKernelArg(ck.kernel, C.cl_uint(i), C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v))
		case float32:
			err = C.clSetKernelArg(ck.kernel, C.cl_uint(i), C.size_t(unsafe.Sizeof(v)), unsafe.Pointer(&v))
		default:
			return &Error{Op: "Launch", Wrapped: fmt.Errorf("unsupported kernel argument type %T", arg)}
		}
		if cerr := clError(err); cerr != nil {
			return &Error{Op: "clSetKernelArg", Name: ck.name, Wrapped: cerr}
		}
	}

	global := make([]C.size_t, 3)
	for i, v := range globalSize {
		global[i] = C.size_t(v)
	}

	return clError(C.clEnqueueNDRangeKernel(b.queues[gn.Index], ck.kernel, 3, nil, &global[0], nil, 0, nil, nil))
}

func (b *OpenCLBackend) Close() error {
	for _, q := range b.queues {
		C.clReleaseCommandQueue(q)
	}
	if b.context != nil {
		C.clReleaseContext(b.context)
	}
	return nil
}
