package resources

import "sync"

// kernelCache memoizes built kernels by the (filename, kernel-name) pair
// that produced them, the same role as the source's filename -> program
// hash table plus per-program kernel list, collapsed into one map since
// this package never needs to enumerate kernels of a shared program.
type kernelCache struct {
	mu      sync.Mutex
	kernels map[string]Kernel
}

func newKernelCache() *kernelCache {
	return &kernelCache{kernels: make(map[string]Kernel)}
}

// getOrBuild returns the cached kernel for key, calling build to
// construct it on a cache miss. build is called at most once per key
// even under concurrent callers, since Setup may run for many tasks
// that share the same kernel file.
func (c *kernelCache) getOrBuild(key string, build func() (Kernel, error)) (Kernel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if k, ok := c.kernels[key]; ok {
		return k, nil
	}
	k, err := build()
	if err != nil {
		return nil, err
	}
	c.kernels[key] = k
	return k, nil
}
