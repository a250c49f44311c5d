package dispatch

import (
	"sync"

	"github.com/codewandler/evcorr/core/event"
)

// item is one unit of owner work: an event to emit, a closure to run, or the
// stop marker. abort runs instead when the item is discarded at shutdown.
type item struct {
	ev    event.Event
	fn    func()
	abort func()
	stop  bool
}

// mailbox is an unbounded FIFO. push never blocks; the owner drains it in
// batches after a signal.
type mailbox struct {
	mu     sync.Mutex
	items  []item
	closed bool
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

// push appends it and returns the new depth; ok is false once closed.
func (m *mailbox) push(it item) (depth int, ok bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, false
	}
	m.items = append(m.items, it)
	depth = len(m.items)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
	return depth, true
}

func (m *mailbox) take() []item {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}

// close rejects further pushes and returns whatever was still queued.
func (m *mailbox) close() []item {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	items := m.items
	m.items = nil
	return items
}
