package registry

import (
	"github.com/codewandler/evcorr/core/ds"
	"github.com/codewandler/evcorr/core/event"
)

// PromiseStore maps keys to FIFO lists of pending waiters.
type PromiseStore struct {
	waiters map[event.Key][]*Waiter
	keys    *ds.Set[event.Key] // registration order of keys with waiters
}

func NewPromiseStore() *PromiseStore {
	return &PromiseStore{
		waiters: make(map[event.Key][]*Waiter),
		keys:    ds.NewSet[event.Key](),
	}
}

// Register appends w to the waiters of key.
func (s *PromiseStore) Register(key event.Key, w *Waiter) {
	s.waiters[key] = append(s.waiters[key], w)
	s.keys.Add(key)
}

// Withdraw removes w from key without completing it.
func (s *PromiseStore) Withdraw(key event.Key, w *Waiter) bool {
	ws := s.waiters[key]
	for i, c := range ws {
		if c != w {
			continue
		}
		ws = append(ws[:i:i], ws[i+1:]...)
		if len(ws) == 0 {
			s.clear(key)
		} else {
			s.waiters[key] = ws
		}
		return true
	}
	return false
}

// Resolve completes every waiter of key with ev and clears the key.
// It returns the number of waiters completed; untracked keys yield 0.
func (s *PromiseStore) Resolve(key event.Key, ev event.Event) int {
	return s.complete(key, Outcome{Event: ev})
}

// Reject completes every waiter of key with err and clears the key.
func (s *PromiseStore) Reject(key event.Key, err error) int {
	return s.complete(key, Outcome{Err: err})
}

// ResolveMatching resolves the waiters of every key accepted by pred, in key
// registration order.
func (s *PromiseStore) ResolveMatching(pred event.Predicate, ev event.Event) int {
	n := 0
	for _, key := range s.keys.Filter(pred) {
		n += s.Resolve(key, ev)
	}
	return n
}

// RejectMatching rejects the waiters of every key accepted by pred.
func (s *PromiseStore) RejectMatching(pred event.Predicate, err error) int {
	n := 0
	for _, key := range s.keys.Filter(pred) {
		n += s.Reject(key, err)
	}
	return n
}

// RejectAll drains the store, rejecting every waiter with err.
func (s *PromiseStore) RejectAll(err error) int {
	n := 0
	for _, key := range s.keys.Values() {
		n += s.Reject(key, err)
	}
	return n
}

// Len returns the total number of pending waiters.
func (s *PromiseStore) Len() int {
	n := 0
	for _, ws := range s.waiters {
		n += len(ws)
	}
	return n
}

// Pending returns the number of waiters registered under key.
func (s *PromiseStore) Pending(key event.Key) int { return len(s.waiters[key]) }

// Keys returns the keys with pending waiters in registration order.
func (s *PromiseStore) Keys() []event.Key { return s.keys.Values() }

func (s *PromiseStore) complete(key event.Key, o Outcome) int {
	ws, ok := s.waiters[key]
	if !ok {
		return 0
	}
	// clear first: completing must never observe or re-enter the old list
	s.clear(key)
	n := 0
	for _, w := range ws {
		if w.complete(o) {
			n++
		}
	}
	return n
}

func (s *PromiseStore) clear(key event.Key) {
	delete(s.waiters, key)
	s.keys.Remove(key)
}
