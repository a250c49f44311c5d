// Package perkey provides a scheduler that serializes work per key
// while allowing work for different keys to execute concurrently.
//
// Typical use-case: a device stack that must complete operations for one
// peripheral in the order they were issued, while different peripherals make
// progress in parallel.
package perkey

import (
	"context"
	"errors"
	"sync"
)

// ErrSchedulerClosed is returned when work is submitted to a closed scheduler.
var ErrSchedulerClosed = errors.New("scheduler is closed")

// Scheduler runs tasks such that for any given key K, tasks are executed
// sequentially, in submission order. Tasks for different keys proceed in
// parallel. A key has a goroutine only while it has queued work.
type Scheduler[K comparable] struct {
	mu     sync.Mutex
	queues map[K]*queue
	closed bool
	wg     sync.WaitGroup // running drains
}

type queue struct {
	tasks []func()
}

// New creates a new Scheduler.
func New[K comparable]() *Scheduler[K] {
	return &Scheduler[K]{
		queues: make(map[K]*queue),
	}
}

// Go queues fn behind the pending work of key and returns immediately.
// The queue is unbounded, so Go never blocks on running tasks.
func (s *Scheduler[K]) Go(key K, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}

	if q, ok := s.queues[key]; ok {
		q.tasks = append(q.tasks, fn)
		return nil
	}

	q := &queue{tasks: []func(){fn}}
	s.queues[key] = q
	s.wg.Add(1)
	go s.drain(key, q)
	return nil
}

// Do schedules fn to run for the given key.
// It blocks until fn finishes and returns its error.
func (s *Scheduler[K]) Do(key K, fn func() error) error {
	return s.DoContext(context.Background(), key, fn)
}

// DoContext is like Do but stops waiting when ctx ends. A task that was
// already queued still runs.
func (s *Scheduler[K]) DoContext(ctx context.Context, key K, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	if err := s.Go(key, func() { done <- fn() }); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued tasks of key, including the one that
// is currently running.
func (s *Scheduler[K]) Pending(key K) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[key]; ok {
		return len(q.tasks)
	}
	return 0
}

// Close stops accepting new tasks and waits until every queued task ran.
func (s *Scheduler[K]) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler[K]) drain(key K, q *queue) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(q.tasks) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		fn := q.tasks[0]
		s.mu.Unlock()

		fn()

		s.mu.Lock()
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		s.mu.Unlock()
	}
}
