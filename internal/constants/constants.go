// Package constants holds default configuration values shared across
// the scheduler, resources and CLI layers.
package constants

const (
	// DefaultRecyclePerEdge is the number of buffers pre-allocated on
	// each TwoWayQueue before a run starts, bounding how far a producer
	// may run ahead of its consumer on any one edge.
	DefaultRecyclePerEdge = 2

	// DefaultSimulatedDevices is how many synthetic GPU-like devices the
	// default in-process backend enumerates when no count is given.
	DefaultSimulatedDevices = 1

	// PluginPathEnv is the environment variable listing extra kernel and
	// plugin search directories.
	PluginPathEnv = "UFO_PLUGIN_PATH"

	// LogLevelEnv is the environment variable controlling the ambient
	// logger's level.
	LogLevelEnv = "UFO_LOG_LEVEL"
)
