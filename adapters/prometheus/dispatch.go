package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/evcorr/core/dispatch"
	"github.com/codewandler/evcorr/core/metrics"
)

// dispatchMetrics implements dispatch.Metrics using Prometheus.
type dispatchMetrics struct {
	eventsEnqueued  prometheus.Counter
	queueDepth      prometheus.Gauge
	eventDuration   *prometheus.HistogramVec
	eventsProcessed *prometheus.CounterVec
	waitersResolved prometheus.Counter
	waitersRejected prometheus.Counter
	waitersPending  prometheus.Gauge
	listenersActive prometheus.Gauge
	listenerPanics  prometheus.Counter
	awaitDuration   *prometheus.HistogramVec
	awaitsTotal     *prometheus.CounterVec
}

// NewDispatchMetrics creates a Prometheus implementation of dispatch.Metrics
// and registers its collectors with reg.
func NewDispatchMetrics(reg prometheus.Registerer) dispatch.Metrics {
	m := &dispatchMetrics{
		eventsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evcorr_events_enqueued_total",
			Help: "Total number of events handed to the dispatcher",
		}),

		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evcorr_queue_depth",
			Help: "Items waiting in the dispatcher mailbox",
		}),

		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evcorr_event_duration_seconds",
			Help:    "Time to deliver one event to listeners and waiters",
			Buckets: defaultBuckets,
		}, []string{"event_type"}),

		eventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evcorr_events_processed_total",
			Help: "Total number of events delivered",
		}, []string{"event_type", "error"}),

		waitersResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evcorr_waiters_resolved_total",
			Help: "Total number of waiters completed with an event",
		}),

		waitersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evcorr_waiters_rejected_total",
			Help: "Total number of waiters completed with an error",
		}),

		waitersPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evcorr_waiters_pending",
			Help: "Waiters registered and not yet completed",
		}),

		listenersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evcorr_listeners_active",
			Help: "Attached listeners, keyed and unfiltered",
		}),

		listenerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evcorr_listener_panics_total",
			Help: "Total number of recovered listener panics",
		}),

		awaitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evcorr_await_duration_seconds",
			Help:    "Time from await to its result, per event name",
			Buckets: defaultBuckets,
		}, []string{"name"}),

		awaitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evcorr_awaits_total",
			Help: "Total number of completed awaits",
		}, []string{"name", "outcome"}),
	}

	reg.MustRegister(
		m.eventsEnqueued,
		m.queueDepth,
		m.eventDuration,
		m.eventsProcessed,
		m.waitersResolved,
		m.waitersRejected,
		m.waitersPending,
		m.listenersActive,
		m.listenerPanics,
		m.awaitDuration,
		m.awaitsTotal,
	)

	return m
}

func (m *dispatchMetrics) EventEnqueued() {
	m.eventsEnqueued.Inc()
}

func (m *dispatchMetrics) QueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *dispatchMetrics) EventDuration(eventType string) metrics.Timer {
	return newTimer(m.eventDuration.WithLabelValues(eventType))
}

func (m *dispatchMetrics) EventProcessed(eventType string, failed bool) {
	m.eventsProcessed.WithLabelValues(eventType, boolToStr(failed)).Inc()
}

func (m *dispatchMetrics) WaitersResolved(n int) {
	m.waitersResolved.Add(float64(n))
}

func (m *dispatchMetrics) WaitersRejected(n int) {
	m.waitersRejected.Add(float64(n))
}

func (m *dispatchMetrics) WaitersPending(n int) {
	m.waitersPending.Set(float64(n))
}

func (m *dispatchMetrics) ListenersActive(n int) {
	m.listenersActive.Set(float64(n))
}

func (m *dispatchMetrics) ListenerPanic() {
	m.listenerPanics.Inc()
}

func (m *dispatchMetrics) AwaitDuration(name string) metrics.Timer {
	return newTimer(m.awaitDuration.WithLabelValues(name))
}

func (m *dispatchMetrics) AwaitCompleted(name string, outcome string) {
	m.awaitsTotal.WithLabelValues(name, outcome).Inc()
}
