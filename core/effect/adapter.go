package effect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/evcorr/core/cache"
	"github.com/codewandler/evcorr/core/dispatch"
	"github.com/codewandler/evcorr/core/event"
	"github.com/codewandler/evcorr/core/sf"
	"github.com/codewandler/evcorr/ports/radio"
)

// errConverged aborts a convergence round whose condition already holds.
var errConverged = errors.New("state already converged")

// Adapter turns radio actions into calls that return their correlated
// result. Each call registers for its result key and issues the action in
// one dispatcher step.
type Adapter struct {
	d       *dispatch.Dispatcher
	central radio.Central
	log     *slog.Logger

	enableFlight sf.Group[radio.PowerState]
	state        atomic.Int32 // radio.PowerState mirror
	values       cache.Cache[event.Key, []byte]
	mirrorID     dispatch.ListenerID

	// owner goroutine only
	enableIssued bool
}

func New(d *dispatch.Dispatcher, central radio.Central, opts ...Option) *Adapter {
	o := options{log: slog.Default(), valueCacheSize: 256}
	for _, opt := range opts {
		opt(&o)
	}

	var values cache.Cache[event.Key, []byte] = cache.NewNop[event.Key, []byte]()
	if o.valueCacheSize > 0 {
		values = cache.NewLRU[event.Key, []byte](cache.LRUOpts{Size: o.valueCacheSize})
	}

	a := &Adapter{
		d:        d,
		central:  central,
		log:      o.log.With(slog.String("component", "effect")),
		values:   values,
		mirrorID: dispatch.ListenerID("effect.state." + gonanoid.Must(6)),
	}
	a.state.Store(int32(radio.PowerUnknown))

	// unfiltered, so an ErrorEvent for the state key cannot detach it
	err := d.AttachGenericListener(a.mirrorID, a.mirror)
	if err != nil {
		a.log.Warn("state mirror not attached", slog.Any("error", err))
	}
	return a
}

func (a *Adapter) mirror(ev event.Event) {
	switch e := ev.(type) {
	case radio.StateChanged:
		a.state.Store(int32(e.State))
		if e.State != radio.PowerOn {
			a.values.DeleteFunc(func(event.Key) bool { return true })
		}
	case radio.ValueUpdated:
		a.values.Put(radio.ValueKey(e.Peripheral, e.Characteristic), e.Value)
	case radio.Disconnected:
		a.forget(e.Peripheral)
	}
}

// forget drops the cached values of peripheral.
func (a *Adapter) forget(peripheral string) {
	q := radio.PeripheralQuery(peripheral)
	n := a.values.DeleteFunc(func(k event.Key) bool { return q.Matches(k.Attrs) })
	if n > 0 {
		a.log.Debug("values dropped", slog.String("peripheral", peripheral), slog.Int("count", n))
	}
}

// State returns the last power state observed, without waiting.
func (a *Adapter) State() radio.PowerState {
	return radio.PowerState(a.state.Load())
}

// Enable powers the radio and returns the first state it reports.
// Concurrent callers share one Enable action and its result. Each caller
// stops waiting when its own ctx ends; the shared action keeps its waiter
// until the state arrives or the dispatcher closes.
func (a *Adapter) Enable(ctx context.Context) (radio.PowerState, error) {
	if err := ctx.Err(); err != nil {
		return radio.PowerUnknown, fmt.Errorf("%w: %w", dispatch.ErrCancelled, context.Cause(ctx))
	}
	flight := context.WithoutCancel(ctx)
	ch := a.enableFlight.DoChan("enable", func() (radio.PowerState, error) {
		ev, err := dispatch.AwaitEvent[radio.StateChanged](flight, a.d, radio.StateKey(), func() error {
			a.enableIssued = true
			return a.central.Enable()
		})
		return ev.State, err
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return radio.PowerUnknown, r.Err
		}
		a.log.Debug("enabled", slog.String("state", r.Val.String()), slog.Bool("shared", r.Shared))
		return r.Val, nil
	case <-ctx.Done():
		return radio.PowerUnknown, fmt.Errorf("%w: %w", dispatch.ErrCancelled, context.Cause(ctx))
	}
}

// SystemState waits until the power state satisfies accept and returns it.
// A nil accept waits for PowerOn. The first call that has to wait issues
// Enable once for the lifetime of the adapter.
func (a *Adapter) SystemState(ctx context.Context, accept func(radio.PowerState) bool) (radio.PowerState, error) {
	if accept == nil {
		accept = func(s radio.PowerState) bool { return s == radio.PowerOn }
	}
	if st := a.State(); accept(st) {
		return st, nil
	}

	ev, err := dispatch.AwaitEventUntil(ctx, a.d, radio.StateKey(), func() error {
		// the mirror may have converged between two rounds
		if accept(a.State()) {
			return errConverged
		}
		if a.enableIssued {
			return nil
		}
		a.enableIssued = true
		return a.central.Enable()
	}, func(sc radio.StateChanged) bool {
		return accept(sc.State)
	})
	if errors.Is(err, errConverged) {
		return a.State(), nil
	}
	if err != nil {
		return radio.PowerUnknown, err
	}
	return ev.State, nil
}

func (a *Adapter) Connect(ctx context.Context, peripheral string) (radio.Connected, error) {
	return dispatch.AwaitEvent[radio.Connected](ctx, a.d, radio.ConnectKey(peripheral), func() error {
		return a.central.Connect(peripheral)
	})
}

func (a *Adapter) Disconnect(ctx context.Context, peripheral string) (radio.Disconnected, error) {
	return dispatch.AwaitEvent[radio.Disconnected](ctx, a.d, radio.DisconnectKey(peripheral), func() error {
		return a.central.Disconnect(peripheral)
	})
}

// DiscoverServices returns the services of peripheral, limited to filter
// when it is not empty.
func (a *Adapter) DiscoverServices(ctx context.Context, peripheral string, filter []string) ([]string, error) {
	ev, err := dispatch.AwaitEvent[radio.ServicesDiscovered](ctx, a.d, radio.ServicesKey(peripheral), func() error {
		return a.central.DiscoverServices(peripheral, filter)
	})
	return ev.Services, err
}

func (a *Adapter) DiscoverCharacteristics(ctx context.Context, peripheral, service string, filter []string) ([]radio.CharacteristicRef, error) {
	key := radio.CharacteristicsKey(peripheral, service)
	ev, err := dispatch.AwaitEvent[radio.CharacteristicsDiscovered](ctx, a.d, key, func() error {
		return a.central.DiscoverCharacteristics(peripheral, service, filter)
	})
	return ev.Characteristics, err
}

// SetNotify switches notifications of ch and returns the state confirmed by
// the peripheral.
func (a *Adapter) SetNotify(ctx context.Context, peripheral string, ch radio.CharacteristicRef, enabled bool) (bool, error) {
	ev, err := dispatch.AwaitEvent[radio.NotifyStateChanged](ctx, a.d, radio.NotifyKey(peripheral, ch), func() error {
		return a.central.SetNotify(peripheral, ch, enabled)
	})
	return ev.Enabled, err
}

func (a *Adapter) Read(ctx context.Context, peripheral string, ch radio.CharacteristicRef) ([]byte, error) {
	ev, err := dispatch.AwaitEvent[radio.ValueUpdated](ctx, a.d, radio.ValueKey(peripheral, ch), func() error {
		return a.central.Read(peripheral, ch)
	})
	return ev.Value, err
}

// LastValue returns the most recent value reported for ch, by a read or a
// notification, without touching the radio. Values are dropped when the
// peripheral disconnects or the radio leaves PowerOn.
func (a *Adapter) LastValue(peripheral string, ch radio.CharacteristicRef) ([]byte, bool) {
	return a.values.Get(radio.ValueKey(peripheral, ch))
}

// Subscribe calls fn with every value reported for ch, read results
// included. The subscription ends with the first error for ch, such as the
// peripheral being lost, or with Unsubscribe.
func (a *Adapter) Subscribe(peripheral string, ch radio.CharacteristicRef, fn func([]byte, error)) (dispatch.ListenerID, error) {
	return dispatch.AttachEventListener(a.d, radio.ValueKey(peripheral, ch), func(ev radio.ValueUpdated, err error) {
		fn(ev.Value, err)
	})
}

func (a *Adapter) Unsubscribe(id dispatch.ListenerID) error {
	return a.d.DetachListener(id)
}

// Close stops mirroring the power state. The dispatcher stays open.
func (a *Adapter) Close() error {
	return a.d.DetachListener(a.mirrorID)
}
