package docstore

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription delivers collection snapshots to a single subscriber. The
// channel is closed by Cancel or when the owning store closes. Snapshots are
// shared between subscribers and must not be mutated.
type Subscription[T any] struct {
	id string
	ch chan []T
	b  *broadcaster[T]
}

// Events returns the snapshot channel.
func (s *Subscription[T]) Events() <-chan []T {
	return s.ch
}

// Cancel removes the subscription and closes its channel. Idempotent.
func (s *Subscription[T]) Cancel() {
	s.b.remove(s.id)
}

// broadcaster is the read-event stream: a registry of subscriber channels the
// write path pushes snapshots into. Channel close only ever happens under the
// registry lock, so publishes never race a close.
type broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[string]chan []T
	buffer int
	closed bool
}

func newBroadcaster[T any](buffer int) *broadcaster[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &broadcaster[T]{
		subs:   make(map[string]chan []T),
		buffer: buffer,
	}
}

// subscribe registers a new subscriber. When hasInitial is set the initial
// snapshot is queued before the subscription is returned, so the subscriber
// sees it ahead of any later publish. Subscribing to a closed broadcaster
// yields a subscription whose channel is already closed.
func (b *broadcaster[T]) subscribe(initial []T, hasInitial bool) *Subscription[T] {
	sub := &Subscription[T]{
		id: uuid.Must(uuid.NewV7()).String(),
		b:  b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan []T)
		close(ch)
		sub.ch = ch
		return sub
	}

	ch := make(chan []T, b.buffer)
	if hasInitial {
		ch <- initial
	}
	b.subs[sub.id] = ch
	sub.ch = ch
	return sub
}

// publish pushes a snapshot to every subscriber without blocking. It returns
// the number of subscribers whose buffer was full and were skipped.
func (b *broadcaster[T]) publish(items []T) (dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- items:
		default:
			dropped++
		}
	}
	return dropped
}

// deliver pushes a snapshot to one subscriber, if still registered.
func (b *broadcaster[T]) deliver(id string, items []T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[id]
	if !ok {
		return false
	}
	select {
	case ch <- items:
		return true
	default:
		return false
	}
}

func (b *broadcaster[T]) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *broadcaster[T]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
