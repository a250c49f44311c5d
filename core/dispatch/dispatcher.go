package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/codewandler/evcorr/core/event"
	"github.com/codewandler/evcorr/core/registry"
	"github.com/codewandler/evcorr/internal/reflector"
)

type (
	ListenerID = registry.ListenerID

	// OnPanic is called on the owner goroutine when a listener, trigger or
	// Exec closure panics. ev is nil unless a listener panicked.
	OnPanic func(recovered any, stack []byte, ev event.Event)

	State int32
)

const (
	StateIdle State = iota
	StateRunning
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type Options struct {
	// Context bounds the dispatcher's lifetime; when it ends the dispatcher
	// disposes itself as if Close was called.
	Context context.Context
	Logger  *slog.Logger
	Metrics Metrics
	Tracer  trace.Tracer
	OnPanic OnPanic
}

// Dispatcher serializes event ingestion and owns the promise and listener
// registries. All registry access happens on one goroutine; other goroutines
// only push work into its mailbox.
type Dispatcher struct {
	ctx     context.Context
	log     *slog.Logger
	metrics Metrics
	tracer  trace.Tracer
	onPanic OnPanic

	inbox     *mailbox
	state     atomic.Int32
	closeOnce sync.Once
	done      chan struct{}

	// owned by the loop goroutine
	promises  *registry.PromiseStore
	listeners *registry.ListenerStore
}

func New(opt Options) *Dispatcher {
	if opt.Context == nil {
		opt.Context = context.Background()
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Metrics == nil {
		opt.Metrics = NopMetrics()
	}
	if opt.Tracer == nil {
		opt.Tracer = otel.Tracer("evcorr")
	}
	if opt.OnPanic == nil {
		log := opt.Logger
		opt.OnPanic = func(recovered any, stack []byte, ev event.Event) {
			log.Error("dispatcher callback panicked", slog.Any("recovered", recovered), slog.String("stack", string(stack)), slog.Any("event", ev))
		}
	}

	d := &Dispatcher{
		ctx:       opt.Context,
		log:       opt.Logger,
		metrics:   opt.Metrics,
		tracer:    opt.Tracer,
		onPanic:   opt.OnPanic,
		inbox:     newMailbox(),
		done:      make(chan struct{}),
		promises:  registry.NewPromiseStore(),
		listeners: registry.NewListenerStore(),
	}

	go d.loop()
	return d
}

// Enqueue hands ev to the owner without blocking. Events enqueued by one
// goroutine are delivered in that order. It returns false once the
// dispatcher is disposed.
func (d *Dispatcher) Enqueue(ev event.Event) bool {
	if ev == nil {
		return false
	}
	return d.push(item{ev: ev})
}

// Exec runs fn on the owner goroutine after everything enqueued before it.
// fn must not block on the dispatcher.
func (d *Dispatcher) Exec(fn func()) bool {
	return d.push(item{fn: fn})
}

// Flush returns once everything enqueued before the call has been processed.
// It must not be called from a listener or trigger.
func (d *Dispatcher) Flush(ctx context.Context) error {
	done := make(chan error, 1)
	ok := d.push(item{
		fn:    func() { done <- nil },
		abort: func() { done <- ErrDisposed },
	})
	if !ok {
		return ErrDisposed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AttachGenericListener registers an unfiltered listener that observes every
// event. Reusing an id replaces the previous listener.
func (d *Dispatcher) AttachGenericListener(id ListenerID, onEvent func(event.Event)) error {
	return d.attach(func() { d.listeners.AttachUnfiltered(id, onEvent) })
}

// DetachListener removes a listener by id. Events enqueued after the call are
// no longer delivered to it.
func (d *Dispatcher) DetachListener(id ListenerID) error {
	return d.attach(func() { d.listeners.Detach(id) })
}

func (d *Dispatcher) DetachAllListeners() error {
	return d.attach(func() { d.listeners.DetachAll() })
}

// CancelEverything rejects every pending waiter with err and detaches every
// listener. It is idempotent.
func (d *Dispatcher) CancelEverything(err error) {
	if err == nil {
		err = ErrCancelled
	}
	d.push(item{fn: func() { d.cancelEverything(err) }})
}

// State reports the lifecycle state.
func (d *Dispatcher) State() State { return State(d.state.Load()) }

// Done is closed once the dispatcher is disposed.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

// Close processes everything enqueued so far, rejects what is still pending
// with ErrDisposed and stops the owner. It must not be called from a
// listener or trigger.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.inbox.push(item{stop: true})
	})
	<-d.done
}

// ---- internals ----

func (d *Dispatcher) push(it item) bool {
	depth, ok := d.inbox.push(it)
	if !ok {
		return false
	}
	if it.ev != nil {
		d.metrics.EventEnqueued()
	}
	d.metrics.QueueDepth(depth)
	return true
}

func (d *Dispatcher) attach(fn func()) error {
	ok := d.push(item{fn: func() {
		fn()
		d.metrics.ListenersActive(d.listeners.Len())
	}})
	if !ok {
		return ErrDisposed
	}
	return nil
}

func (d *Dispatcher) loop() {
	defer close(d.done)

	for {
		select {
		case <-d.ctx.Done():
			d.dispose(nil)
			return
		case <-d.inbox.signal:
		}

		d.state.Store(int32(StateRunning))
		items := d.inbox.take()
		for i, it := range items {
			if it.stop {
				d.dispose(items[i+1:])
				return
			}
			d.process(it)
		}
		d.state.Store(int32(StateIdle))
		d.metrics.QueueDepth(0)
	}
}

func (d *Dispatcher) process(it item) {
	switch {
	case it.ev != nil:
		d.emit(it.ev)
	case it.fn != nil:
		d.safeRun(it.fn)
	}
}

// emit delivers ev to unfiltered listeners, then to matching keyed
// listeners, then to pending waiters.
func (d *Dispatcher) emit(ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.onPanic(r, debug.Stack(), ev)
		}
	}()

	eventType := reflector.TypeInfoOf(ev).Short
	defer d.metrics.EventDuration(eventType).ObserveDuration()

	lookup := ev.Lookup()
	_, failed := event.AsError(ev)

	for _, l := range d.listeners.Unfiltered() {
		d.notify(l, ev)
	}

	var keyed []*registry.Listener
	key, exact := lookup.Key()
	switch {
	case exact && failed:
		keyed = d.listeners.DetachAndGet(key)
	case exact:
		keyed = d.listeners.Get(key)
	case failed:
		keyed = d.listeners.DetachAndGetMatching(lookup.Predicate())
	default:
		keyed = d.listeners.GetMatching(lookup.Predicate())
	}
	for _, l := range keyed {
		d.notify(l, ev)
	}
	if failed && len(keyed) > 0 {
		d.metrics.ListenersActive(d.listeners.Len())
	}

	n := d.resolvePending(ev)
	if n == 0 && len(keyed) == 0 {
		d.log.Debug("untracked event", slog.String("lookup", lookup.String()), slog.String("type", eventType))
	}
	d.metrics.EventProcessed(eventType, failed)
}

// resolvePending completes the waiters matched by ev and returns how many.
func (d *Dispatcher) resolvePending(ev event.Event) int {
	lookup := ev.Lookup()
	key, exact := lookup.Key()

	if e, ok := event.AsError(ev); ok {
		err := &ExternalError{Key: e.Key, Cause: e.Cause}
		var n int
		if exact {
			n = d.promises.Reject(key, err)
		} else {
			n = d.promises.RejectMatching(lookup.Predicate(), err)
		}
		d.metrics.WaitersRejected(n)
		d.metrics.WaitersPending(d.promises.Len())
		return n
	}

	var n int
	if exact {
		n = d.promises.Resolve(key, ev)
	} else {
		n = d.promises.ResolveMatching(lookup.Predicate(), ev)
	}
	d.metrics.WaitersResolved(n)
	d.metrics.WaitersPending(d.promises.Len())
	return n
}

// register adds w under key and runs trigger in the same owner step. A failed
// trigger withdraws w and rejects it with a TriggerError.
func (d *Dispatcher) register(key event.Key, w *registry.Waiter, trigger func() error) {
	d.promises.Register(key, w)
	if err := d.runTrigger(key, trigger); err != nil {
		d.promises.Withdraw(key, w)
		w.Reject(err)
		d.log.Debug("trigger failed", slog.String("key", key.String()), slog.Any("error", err))
	}
	d.metrics.WaitersPending(d.promises.Len())
}

func (d *Dispatcher) runTrigger(key event.Key, trigger func() error) (err error) {
	if trigger == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			d.onPanic(r, debug.Stack(), nil)
			err = &TriggerError{Key: key, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	if cause := trigger(); cause != nil {
		return &TriggerError{Key: key, Cause: cause}
	}
	return nil
}

func (d *Dispatcher) notify(l *registry.Listener, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.ListenerPanic()
			d.onPanic(r, debug.Stack(), ev)
		}
	}()
	l.OnEvent(ev)
}

func (d *Dispatcher) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.onPanic(r, debug.Stack(), nil)
		}
	}()
	fn()
}

func (d *Dispatcher) cancelEverything(err error) {
	rejected := d.promises.RejectAll(err)
	detached := d.listeners.DetachAll()
	d.metrics.WaitersRejected(rejected)
	d.metrics.WaitersPending(0)
	d.metrics.ListenersActive(0)
	if rejected > 0 || detached > 0 {
		d.log.Debug("cancelled everything", slog.Int("waiters", rejected), slog.Int("listeners", detached), slog.Any("error", err))
	}
}

// dispose aborts the items taken after the stop marker and whatever is still
// queued, then rejects everything pending.
func (d *Dispatcher) dispose(taken []item) {
	d.state.Store(int32(StateDisposed))
	for _, it := range append(taken, d.inbox.close()...) {
		if it.abort != nil {
			d.safeRun(it.abort)
		}
	}
	d.cancelEverything(ErrDisposed)
	d.metrics.QueueDepth(0)
	d.log.Debug("dispatcher disposed")
}
