package registry

import (
	"github.com/codewandler/evcorr/core/ds"
	"github.com/codewandler/evcorr/core/event"
)

type (
	ListenerID string

	Callback func(event.Event)

	// Listener is a persistent subscriber. Unfiltered listeners observe every
	// event; keyed listeners only events whose lookup matches Key.
	Listener struct {
		ID         ListenerID
		Key        event.Key
		Unfiltered bool
		OnEvent    Callback
	}
)

// ListenerStore holds unfiltered and keyed listeners in attach order.
type ListenerStore struct {
	byID       map[ListenerID]*Listener
	unfiltered *ds.Set[ListenerID]
	keyed      map[event.Key]*ds.Set[ListenerID]
	keys       *ds.Set[event.Key]
}

func NewListenerStore() *ListenerStore {
	return &ListenerStore{
		byID:       make(map[ListenerID]*Listener),
		unfiltered: ds.NewSet[ListenerID](),
		keyed:      make(map[event.Key]*ds.Set[ListenerID]),
		keys:       ds.NewSet[event.Key](),
	}
}

// AttachUnfiltered registers fn for every event. An existing listener with
// the same id is replaced.
func (s *ListenerStore) AttachUnfiltered(id ListenerID, fn Callback) {
	s.Detach(id)
	s.byID[id] = &Listener{ID: id, Unfiltered: true, OnEvent: fn}
	s.unfiltered.Add(id)
}

// Attach registers fn for events matching key. An existing listener with the
// same id is replaced.
func (s *ListenerStore) Attach(id ListenerID, key event.Key, fn Callback) {
	s.Detach(id)
	s.byID[id] = &Listener{ID: id, Key: key, OnEvent: fn}
	ids, ok := s.keyed[key]
	if !ok {
		ids = ds.NewSet[ListenerID]()
		s.keyed[key] = ids
		s.keys.Add(key)
	}
	ids.Add(id)
}

// Detach removes the listener with the given id.
func (s *ListenerStore) Detach(id ListenerID) bool {
	l, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	if l.Unfiltered {
		s.unfiltered.Remove(id)
		return true
	}
	if ids, ok := s.keyed[l.Key]; ok {
		ids.Remove(id)
		if ids.IsEmpty() {
			delete(s.keyed, l.Key)
			s.keys.Remove(l.Key)
		}
	}
	return true
}

// DetachKey removes every keyed listener of key.
func (s *ListenerStore) DetachKey(key event.Key) int {
	return len(s.DetachAndGet(key))
}

// DetachAll removes every listener, keyed and unfiltered.
func (s *ListenerStore) DetachAll() int {
	n := len(s.byID)
	s.byID = make(map[ListenerID]*Listener)
	s.unfiltered.Clear()
	s.keyed = make(map[event.Key]*ds.Set[ListenerID])
	s.keys.Clear()
	return n
}

// Unfiltered returns the unfiltered listeners. Read only.
func (s *ListenerStore) Unfiltered() []*Listener {
	return s.lookup(s.unfiltered.Values())
}

// Get returns the keyed listeners of key. Read only.
func (s *ListenerStore) Get(key event.Key) []*Listener {
	ids, ok := s.keyed[key]
	if !ok {
		return nil
	}
	return s.lookup(ids.Values())
}

// GetMatching returns the keyed listeners of every key accepted by pred.
// Read only.
func (s *ListenerStore) GetMatching(pred event.Predicate) []*Listener {
	var out []*Listener
	for _, key := range s.keys.Filter(pred) {
		out = append(out, s.Get(key)...)
	}
	return out
}

// DetachAndGet removes and returns the keyed listeners of key.
func (s *ListenerStore) DetachAndGet(key event.Key) []*Listener {
	ls := s.Get(key)
	for _, l := range ls {
		s.Detach(l.ID)
	}
	return ls
}

// DetachAndGetMatching removes and returns the keyed listeners of every key
// accepted by pred.
func (s *ListenerStore) DetachAndGetMatching(pred event.Predicate) []*Listener {
	var out []*Listener
	for _, key := range s.keys.Filter(pred) {
		out = append(out, s.DetachAndGet(key)...)
	}
	return out
}

// Len returns the number of attached listeners.
func (s *ListenerStore) Len() int { return len(s.byID) }

func (s *ListenerStore) lookup(ids []ListenerID) []*Listener {
	out := make([]*Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out
}
