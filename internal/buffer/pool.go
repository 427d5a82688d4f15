package buffer

import "sync"

// scratchPool provides pooled float32 slices so a Buffer does not
// allocate a fresh host array every time transitionLocked brings a
// recyclable buffer back to the HOST slot. Bucketed by element count
// because task output shapes cluster around a handful of common sizes:
// whole images, single rows, single scalars.
const (
	bucket4k  = 4 * 1024
	bucket64k = 64 * 1024
	bucket1m  = 1024 * 1024
	bucket16m = 16 * 1024 * 1024
)

var globalScratchPool = struct {
	p4k, p64k, p1m, p16m sync.Pool
}{
	p4k:  sync.Pool{New: func() any { b := make([]float32, bucket4k); return &b }},
	p64k: sync.Pool{New: func() any { b := make([]float32, bucket64k); return &b }},
	p1m:  sync.Pool{New: func() any { b := make([]float32, bucket1m); return &b }},
	p16m: sync.Pool{New: func() any { b := make([]float32, bucket16m); return &b }},
}

// getScratch returns a pooled float32 slice of at least n elements.
// Callers past the largest bucket get a one-off allocation that is never
// pooled on return.
func getScratch(n int64) []float32 {
	switch {
	case n <= bucket4k:
		return (*globalScratchPool.p4k.Get().(*[]float32))[:n]
	case n <= bucket64k:
		return (*globalScratchPool.p64k.Get().(*[]float32))[:n]
	case n <= bucket1m:
		return (*globalScratchPool.p1m.Get().(*[]float32))[:n]
	case n <= bucket16m:
		return (*globalScratchPool.p16m.Get().(*[]float32))[:n]
	default:
		return make([]float32, n)
	}
}

// putScratch returns a slice obtained from getScratch to its bucket.
// Slices with a non-standard capacity (the default branch above) are
// simply dropped.
func putScratch(buf []float32) {
	c := int64(cap(buf))
	buf = buf[:c]
	switch c {
	case bucket4k:
		globalScratchPool.p4k.Put(&buf)
	case bucket64k:
		globalScratchPool.p64k.Put(&buf)
	case bucket1m:
		globalScratchPool.p1m.Put(&buf)
	case bucket16m:
		globalScratchPool.p16m.Put(&buf)
	}
}
