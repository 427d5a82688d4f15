package scheduler

import "github.com/ufo-kit/ufo-go/internal/task"

// Observer receives the same events the root Metrics/Observer pair
// records; defined locally rather than imported so this package never
// depends on the root package, which itself depends on this one.
// Any type satisfying this method set, including the root package's
// *MetricsObserver and NoOpObserver, can be passed in Options.Observer.
type Observer interface {
	ObserveBuffer(mode task.Mode)
	ObservePoison(mode task.Mode)
	ObserveError(mode task.Mode)
	ObserveQueueLatency(latencyNs uint64)
}

type noopObserver struct{}

func (noopObserver) ObserveBuffer(task.Mode)    {}
func (noopObserver) ObservePoison(task.Mode)    {}
func (noopObserver) ObserveError(task.Mode)     {}
func (noopObserver) ObserveQueueLatency(uint64) {}
