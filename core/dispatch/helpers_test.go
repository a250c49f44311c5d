package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/evcorr/core/event"
)

type (
	connected struct {
		Peripheral string
		Value      int
	}

	// lost resolves everything registered below a peripheral.
	lost struct{ Peripheral string }

	powerState struct{ State string }

	seq struct{ N int }

	// foreign carries an arbitrary key but is never what a caller awaits.
	foreign struct{ Key event.Key }
)

func connectKey(p string) event.Key {
	return event.Key{Name: "connect", Attrs: event.Attributes{Peripheral: event.IDOf(p)}}
}

func readKey(p, ch string) event.Key {
	return event.Key{Name: "read", Attrs: event.Attributes{Peripheral: event.IDOf(p), Characteristic: event.IDOf(ch)}}
}

var (
	stateKey = event.Key{Name: "systemState"}
	seqKey   = event.Key{Name: "seq"}
)

func (e connected) Lookup() event.Lookup  { return event.Exact(connectKey(e.Peripheral)) }
func (e powerState) Lookup() event.Lookup { return event.Exact(stateKey) }
func (e seq) Lookup() event.Lookup        { return event.Exact(seqKey) }
func (e foreign) Lookup() event.Lookup    { return event.Exact(e.Key) }
func (e lost) Lookup() event.Lookup {
	return event.Wildcard("", event.Attributes{Peripheral: event.IDOf(e.Peripheral)})
}

func newTestDispatcher(t *testing.T, opts ...func(*Options)) *Dispatcher {
	t.Helper()
	opt := Options{Context: t.Context()}
	for _, o := range opts {
		o(&opt)
	}
	d := New(opt)
	t.Cleanup(d.Close)
	return d
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timeout")
	}
	var zero T
	return zero
}

// onOwner runs fn on the owner goroutine and waits for it.
func onOwner(t *testing.T, d *Dispatcher, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, d.Exec(func() {
		fn()
		close(done)
	}))
	recv(t, done)
}

func pending(t *testing.T, d *Dispatcher, key event.Key) (n int) {
	t.Helper()
	onOwner(t, d, func() { n = d.promises.Pending(key) })
	return n
}

type result[T any] struct {
	v   T
	err error
}

// goAwait starts AwaitEvent in a goroutine. The returned triggered channel
// is closed once the waiter is registered.
func goAwait[T event.Event](ctx context.Context, d *Dispatcher, key event.Key) (<-chan result[T], <-chan struct{}) {
	triggered := make(chan struct{})
	out := make(chan result[T], 1)
	go func() {
		v, err := AwaitEvent[T](ctx, d, key, func() error {
			close(triggered)
			return nil
		})
		out <- result[T]{v: v, err: err}
	}()
	return out, triggered
}
