package dispatch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/codewandler/evcorr/core/event"
	"github.com/codewandler/evcorr/core/registry"
	"github.com/codewandler/evcorr/internal/reflector"
)

// AwaitEvent registers a waiter for key, runs trigger in the same owner step
// and blocks until the waiter is completed or ctx ends.
//
// Because registration and trigger happen in one step, a result produced by
// trigger itself can never be missed. If trigger returns an error or panics
// the waiter is withdrawn and a *TriggerError is returned. An ErrorEvent for
// key yields an *ExternalError, and an event that is not a T yields a
// *TypeMismatchError.
//
// When ctx ends first the call returns an error matching ErrCancelled; the
// waiter stays registered until a later event or CancelEverything drains it.
func AwaitEvent[T event.Event](ctx context.Context, d *Dispatcher, key event.Key, trigger func() error) (res T, err error) {
	name := string(key.Name)
	ctx, span := d.tracer.Start(ctx, "evcorr.await",
		trace.WithAttributes(
			attribute.String("evcorr.key.name", name),
			attribute.String("evcorr.key.attrs", key.Attrs.String()),
			attribute.String("evcorr.expected", reflector.TypeInfoFor[T]().Short),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	timer := d.metrics.AwaitDuration(name)
	defer func() {
		timer.ObserveDuration()
		outcome := outcomeOf(err)
		d.metrics.AwaitCompleted(name, outcome)
		span.SetAttributes(attribute.String("evcorr.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	if ctx.Err() != nil {
		return res, cancelled(ctx)
	}

	w := registry.NewWaiter()
	ok := d.push(item{
		fn:    func() { d.register(key, w, trigger) },
		abort: func() { w.Reject(ErrDisposed) },
	})
	if !ok {
		return res, ErrDisposed
	}

	var o registry.Outcome
	select {
	case o = <-w.C():
	case <-ctx.Done():
		return res, cancelled(ctx)
	}

	// the result may have raced a cancellation; cancellation wins
	if ctx.Err() != nil {
		return res, cancelled(ctx)
	}
	if o.Err != nil {
		return res, o.Err
	}

	v, ok := o.Event.(T)
	if !ok {
		return res, &TypeMismatchError{
			Key:      key,
			Expected: reflector.TypeInfoFor[T]().Name,
			Actual:   reflector.TypeInfoOf(o.Event).Name,
		}
	}
	return v, nil
}

// AwaitEventUntil repeats AwaitEvent, re-running trigger each round, until
// accept reports true for a result, an error occurs or ctx ends. A nil accept
// takes the first result.
func AwaitEventUntil[T event.Event](ctx context.Context, d *Dispatcher, key event.Key, trigger func() error, accept func(T) bool) (T, error) {
	for {
		v, err := AwaitEvent[T](ctx, d, key, trigger)
		if err != nil {
			return v, err
		}
		if accept == nil || accept(v) {
			return v, nil
		}
	}
}
