package ufo

import "github.com/ufo-kit/ufo-go/internal/constants"

// Re-export constants for public API.
const (
	DefaultRecyclePerEdge   = constants.DefaultRecyclePerEdge
	DefaultSimulatedDevices = constants.DefaultSimulatedDevices
	PluginPathEnv           = constants.PluginPathEnv
	LogLevelEnv             = constants.LogLevelEnv
)
