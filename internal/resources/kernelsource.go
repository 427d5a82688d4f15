package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// kernelPaths is the directory search list consulted by lookupKernelPath,
// shared by every Backend implementation rather than duplicated per type.
type kernelPaths struct {
	mu    sync.RWMutex
	paths []string
}

func (k *kernelPaths) add(paths ...string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.paths = append(k.paths, paths...)
}

// AddKernelPaths appends directories to the kernel search list.
func (k *kernelPaths) AddKernelPaths(paths ...string) {
	k.add(paths...)
}

func (k *kernelPaths) snapshot() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]string, len(k.paths))
	copy(out, k.paths)
	return out
}

// lookupKernelPath resolves filename to an absolute path: unchanged if
// it is already absolute and exists, otherwise the first match across
// the registered kernel paths.
func lookupKernelPath(paths []string, filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", fmt.Errorf("resources: %s does not exist", filename)
	}

	for _, dir := range paths {
		candidate := filepath.Join(dir, filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("resources: could not find %q; maybe you forgot to add a kernel path", filename)
}

// readKernelSource loads and resolves filename's contents in one step.
func readKernelSource(paths []string, filename string) (string, error) {
	path, err := lookupKernelPath(paths, filename)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("resources: reading %s: %w", path, err)
	}
	return string(data), nil
}
