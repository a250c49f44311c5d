// Package otelmetrics provides OpenTelemetry implementations of the metrics
// interfaces defined by the core packages.
package otelmetrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/codewandler/evcorr/core/dispatch"
	"github.com/codewandler/evcorr/core/metrics"
)

type timer struct {
	h     metric.Float64Histogram
	attrs metric.MeasurementOption
	start time.Time
}

func (t *timer) ObserveDuration() {
	t.h.Record(context.Background(), time.Since(t.start).Seconds(), t.attrs)
}

// dispatchMetrics implements dispatch.Metrics on an OpenTelemetry meter.
type dispatchMetrics struct {
	eventsEnqueued  metric.Int64Counter
	queueDepth      metric.Int64Gauge
	eventDuration   metric.Float64Histogram
	eventsProcessed metric.Int64Counter
	waitersResolved metric.Int64Counter
	waitersRejected metric.Int64Counter
	waitersPending  metric.Int64Gauge
	listenersActive metric.Int64Gauge
	listenerPanics  metric.Int64Counter
	awaitDuration   metric.Float64Histogram
	awaitsTotal     metric.Int64Counter
}

// NewDispatchMetrics creates the dispatcher instruments on meter, e.g.
// otel.Meter("evcorr").
func NewDispatchMetrics(meter metric.Meter) (dispatch.Metrics, error) {
	var (
		m   dispatchMetrics
		err error
	)
	counter := func(name, desc string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(name, metric.WithDescription(desc))
		return c
	}
	gauge := func(name, desc string) metric.Int64Gauge {
		if err != nil {
			return nil
		}
		var g metric.Int64Gauge
		g, err = meter.Int64Gauge(name, metric.WithDescription(desc))
		return g
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Float64Histogram
		h, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
		return h
	}

	m.eventsEnqueued = counter("evcorr.events.enqueued", "Events handed to the dispatcher")
	m.queueDepth = gauge("evcorr.queue.depth", "Items waiting in the dispatcher mailbox")
	m.eventDuration = histogram("evcorr.event.duration", "Time to deliver one event to listeners and waiters")
	m.eventsProcessed = counter("evcorr.events.processed", "Events delivered")
	m.waitersResolved = counter("evcorr.waiters.resolved", "Waiters completed with an event")
	m.waitersRejected = counter("evcorr.waiters.rejected", "Waiters completed with an error")
	m.waitersPending = gauge("evcorr.waiters.pending", "Waiters registered and not yet completed")
	m.listenersActive = gauge("evcorr.listeners.active", "Attached listeners, keyed and unfiltered")
	m.listenerPanics = counter("evcorr.listener.panics", "Recovered listener panics")
	m.awaitDuration = histogram("evcorr.await.duration", "Time from await to its result")
	m.awaitsTotal = counter("evcorr.awaits", "Completed awaits")
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *dispatchMetrics) EventEnqueued() {
	m.eventsEnqueued.Add(context.Background(), 1)
}

func (m *dispatchMetrics) QueueDepth(depth int) {
	m.queueDepth.Record(context.Background(), int64(depth))
}

func (m *dispatchMetrics) EventDuration(eventType string) metrics.Timer {
	return &timer{
		h:     m.eventDuration,
		attrs: metric.WithAttributes(attribute.String("event_type", eventType)),
		start: time.Now(),
	}
}

func (m *dispatchMetrics) EventProcessed(eventType string, failed bool) {
	m.eventsProcessed.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.Bool("error", failed),
	))
}

func (m *dispatchMetrics) WaitersResolved(n int) {
	m.waitersResolved.Add(context.Background(), int64(n))
}

func (m *dispatchMetrics) WaitersRejected(n int) {
	m.waitersRejected.Add(context.Background(), int64(n))
}

func (m *dispatchMetrics) WaitersPending(n int) {
	m.waitersPending.Record(context.Background(), int64(n))
}

func (m *dispatchMetrics) ListenersActive(n int) {
	m.listenersActive.Record(context.Background(), int64(n))
}

func (m *dispatchMetrics) ListenerPanic() {
	m.listenerPanics.Add(context.Background(), 1)
}

func (m *dispatchMetrics) AwaitDuration(name string) metrics.Timer {
	return &timer{
		h:     m.awaitDuration,
		attrs: metric.WithAttributes(attribute.String("name", name)),
		start: time.Now(),
	}
}

func (m *dispatchMetrics) AwaitCompleted(name string, outcome string) {
	m.awaitsTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("name", name),
		attribute.String("outcome", outcome),
	))
}
