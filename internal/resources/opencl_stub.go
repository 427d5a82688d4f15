//go:build !opencl
// +build !opencl

package resources

import "fmt"

// NewOpenCL is available when built with -tags opencl.
func NewOpenCL(deviceType string) (Backend, error) {
	return nil, fmt.Errorf("resources: opencl not enabled; build with -tags opencl")
}
