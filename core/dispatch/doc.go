// Package dispatch correlates asynchronous results with the callers and
// listeners waiting for them.
//
// A [Dispatcher] owns a promise store and a listener store (see package
// registry) and touches them from exactly one goroutine. Producers hand
// events over with [Dispatcher.Enqueue], which never blocks; the owner
// processes them strictly in arrival order:
//
//  1. unfiltered listeners observe the event,
//  2. keyed listeners matching its lookup observe it (an ErrorEvent detaches
//     them after delivery),
//  3. pending waiters matching its lookup are resolved, or rejected for an
//     ErrorEvent.
//
// # Awaiting
//
// [AwaitEvent] registers a waiter and runs the trigger that starts the
// effect in the same owner step, so the result can never slip past:
//
//	conn, err := dispatch.AwaitEvent[radio.Connected](ctx, d, radio.ConnectKey(id), func() error {
//	    return central.Connect(id)
//	})
//
// [AwaitEventUntil] repeats the single-shot form until a predicate accepts
// the result. Timeouts are composed by the caller with context.WithTimeout.
//
// # Listeners
//
// [Dispatcher.AttachGenericListener] observes every event.
// [AttachEventListener] observes the events of one key until the first
// ErrorEvent for it.
//
// Listener callbacks and triggers run on the owner goroutine. They may
// enqueue events and attach or detach listeners, but must not call
// [AwaitEvent], [Dispatcher.Flush] or [Dispatcher.Close], which wait for
// the owner.
//
// # Teardown
//
// [Dispatcher.CancelEverything] rejects every waiter and detaches every
// listener while the dispatcher keeps running. [Dispatcher.Close] first
// processes everything already enqueued, then rejects what is left with
// [ErrDisposed].
package dispatch
