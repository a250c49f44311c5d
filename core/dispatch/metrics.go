package dispatch

import "github.com/codewandler/evcorr/core/metrics"

// Metrics defines the instrumentation points of a Dispatcher.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// Ingestion
	EventEnqueued()
	QueueDepth(depth int)

	// Delivery, called on the owner goroutine
	EventDuration(eventType string) metrics.Timer
	EventProcessed(eventType string, failed bool)
	WaitersResolved(n int)
	WaitersRejected(n int)
	WaitersPending(n int)
	ListenersActive(n int)
	ListenerPanic()

	// Callers
	AwaitDuration(name string) metrics.Timer
	AwaitCompleted(name string, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) EventEnqueued()                     {}
func (nopMetrics) QueueDepth(int)                     {}
func (nopMetrics) EventDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) EventProcessed(string, bool)        {}
func (nopMetrics) WaitersResolved(int)                {}
func (nopMetrics) WaitersRejected(int)                {}
func (nopMetrics) WaitersPending(int)                 {}
func (nopMetrics) ListenersActive(int)                {}
func (nopMetrics) ListenerPanic()                     {}
func (nopMetrics) AwaitDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) AwaitCompleted(string, string)      {}

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }
