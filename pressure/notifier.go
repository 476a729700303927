// Package pressure provides an injectable low-memory notification capability.
// Components that cache state subscribe a handler at construction and
// unsubscribe during their own teardown; the application signals pressure by
// calling Notify. There is no process-global notifier.
package pressure

import (
	"context"
	"sort"
	"sync"
)

// Handler reacts to a low-memory signal. It must complete (or reliably
// schedule) any work that has to happen before memory is reclaimed, since
// Notify returns once all handlers have run.
type Handler func(ctx context.Context)

// Notifier fans a low-memory signal out to subscribed handlers. Safe for
// concurrent use.
type Notifier struct {
	mu       sync.RWMutex
	handlers map[uint64]Handler
	next     uint64
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{handlers: make(map[uint64]Handler)}
}

// Subscribe registers a handler and returns a token for Unsubscribe.
func (n *Notifier) Subscribe(h Handler) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	n.handlers[n.next] = h
	return n.next
}

// Unsubscribe removes a previously subscribed handler. Unknown tokens are
// ignored.
func (n *Notifier) Unsubscribe(token uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.handlers, token)
}

// Notify invokes all subscribed handlers synchronously, in subscription
// order. It returns after the last handler returns.
func (n *Notifier) Notify(ctx context.Context) {
	n.mu.RLock()
	tokens := make([]uint64, 0, len(n.handlers))
	for token := range n.handlers {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

	handlers := make([]Handler, 0, len(tokens))
	for _, token := range tokens {
		handlers = append(handlers, n.handlers[token])
	}
	n.mu.RUnlock()

	for _, h := range handlers {
		h(ctx)
	}
}

// Len returns the number of subscribed handlers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.handlers)
}
