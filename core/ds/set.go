// Package ds provides small generic data structures used by the registries.
package ds

import (
	"container/list"
	"fmt"
)

// Set is an insertion-ordered set with O(1) add, remove and membership.
// Iteration follows insertion order, which keeps registry sweeps
// deterministic.
//
// A Set is not safe for concurrent use.
type Set[T comparable] struct {
	items map[T]*list.Element
	order *list.List
}

// NewSet creates a set holding items in the given order.
func NewSet[T comparable](items ...T) *Set[T] {
	s := &Set[T]{items: make(map[T]*list.Element, len(items)), order: list.New()}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

func (s *Set[T]) String() string { return fmt.Sprintf("%v", s.Values()) }

// Add appends v. No-op if already present; the original position is kept.
func (s *Set[T]) Add(v T) bool {
	if _, ok := s.items[v]; ok {
		return false
	}
	s.items[v] = s.order.PushBack(v)
	return true
}

// Remove deletes v and reports whether it was present.
func (s *Set[T]) Remove(v T) bool {
	e, ok := s.items[v]
	if !ok {
		return false
	}
	s.order.Remove(e)
	delete(s.items, v)
	return true
}

func (s *Set[T]) Contains(v T) bool {
	_, ok := s.items[v]
	return ok
}

func (s *Set[T]) Len() int { return len(s.items) }

func (s *Set[T]) IsEmpty() bool { return len(s.items) == 0 }

// Values returns a copy of the elements in insertion order. The copy may be
// iterated while the set is mutated.
func (s *Set[T]) Values() []T {
	out := make([]T, 0, len(s.items))
	for e := s.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(T))
	}
	return out
}

// Filter returns the elements accepted by fn, in insertion order.
func (s *Set[T]) Filter(fn func(T) bool) []T {
	var out []T
	for e := s.order.Front(); e != nil; e = e.Next() {
		if v := e.Value.(T); fn(v) {
			out = append(out, v)
		}
	}
	return out
}

// Clear removes all elements.
func (s *Set[T]) Clear() {
	s.items = make(map[T]*list.Element)
	s.order.Init()
}
