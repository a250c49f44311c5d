package registry

import "github.com/codewandler/evcorr/core/event"

// Outcome is what a Waiter is completed with: an event or an error.
type Outcome struct {
	Event event.Event
	Err   error
}

// Waiter is a single-resume handle. It is completed at most once; the
// buffered channel means completion never blocks, even when the caller has
// stopped listening.
type Waiter struct {
	ch   chan Outcome
	done bool
}

func NewWaiter() *Waiter {
	return &Waiter{ch: make(chan Outcome, 1)}
}

// C delivers the outcome exactly once.
func (w *Waiter) C() <-chan Outcome { return w.ch }

// Done reports whether the waiter was completed. Owner goroutine only.
func (w *Waiter) Done() bool { return w.done }

// Resolve completes the waiter with ev. Owner goroutine only.
func (w *Waiter) Resolve(ev event.Event) bool { return w.complete(Outcome{Event: ev}) }

// Reject completes the waiter with err. Owner goroutine only.
func (w *Waiter) Reject(err error) bool { return w.complete(Outcome{Err: err}) }

func (w *Waiter) complete(o Outcome) bool {
	if w.done {
		return false
	}
	w.done = true
	w.ch <- o
	return true
}
