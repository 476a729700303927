package docstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/docstore/codec"
	"github.com/tailored-agentic-units/docstore/docstore"
	"github.com/tailored-agentic-units/docstore/observability"
	"github.com/tailored-agentic-units/docstore/pressure"
	"github.com/tailored-agentic-units/docstore/storage"
)

// identityResolver maps every document name to itself, so tests can address
// memBackend blobs by name.
type identityResolver struct{}

func (identityResolver) Resolve(_ storage.Class, name string) (storage.Location, error) {
	if name == "" {
		return "", storage.ErrWrongLocation
	}
	return storage.Location(name), nil
}

// memBackend is an in-memory Backend that counts writes, for asserting
// debounce coalescing.
type memBackend struct {
	mu     sync.Mutex
	blobs  map[storage.Location][]byte
	writes int
}

func newMemBackend() *memBackend {
	return &memBackend{blobs: make(map[storage.Location][]byte)}
}

func (b *memBackend) ReadAll(_ context.Context, loc storage.Location) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.blobs[loc]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, loc)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (b *memBackend) WriteAll(_ context.Context, loc storage.Location, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	b.blobs[loc] = stored
	b.writes++
	return nil
}

func (b *memBackend) put(name string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[storage.Location(name)] = data
}

func (b *memBackend) writeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

// holds reports whether the blob at name decodes to exactly want.
func (b *memBackend) holds(t *testing.T, name string, want []string) bool {
	t.Helper()

	b.mu.Lock()
	data, ok := b.blobs[storage.Location(name)]
	b.mu.Unlock()
	if !ok {
		return false
	}

	got, err := codec.JSON[string]().Decode(data)
	if err != nil || len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// failBackend rejects every read and write.
type failBackend struct{}

func (failBackend) ReadAll(_ context.Context, loc storage.Location) ([]byte, error) {
	return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, loc)
}

func (failBackend) WriteAll(_ context.Context, loc storage.Location, _ []byte) error {
	return fmt.Errorf("%w: %s: disk full", storage.ErrIO, loc)
}

// captureObserver records events for assertions. Safe for concurrent use.
type captureObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func newCaptureObserver() *captureObserver {
	return &captureObserver{}
}

func (c *captureObserver) OnEvent(_ context.Context, event observability.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureObserver) count(eventType observability.EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// warmGateObserver holds the warm-load completion event open until released,
// so tests can interleave writes while a warm-load is still in flight.
type warmGateObserver struct {
	entered     chan struct{}
	release     chan struct{}
	enterOnce   sync.Once
	releaseOnce sync.Once
}

func newWarmGateObserver() *warmGateObserver {
	return &warmGateObserver{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (o *warmGateObserver) OnEvent(_ context.Context, event observability.Event) {
	if event.Type == docstore.EventWarmLoad {
		o.enterOnce.Do(func() { close(o.entered) })
		<-o.release
	}
}

func (o *warmGateObserver) releaseGate() {
	o.releaseOnce.Do(func() { close(o.release) })
}

func newStore(t *testing.T, cfg docstore.Config, backend storage.Backend, obs observability.Observer, notifier *pressure.Notifier) *docstore.Store[string] {
	t.Helper()

	s, err := docstore.New(cfg, docstore.Options[string]{
		Codec:    codec.JSON[string](),
		Resolver: identityResolver{},
		Backend:  backend,
		Observer: obs,
		Pressure: notifier,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func newMirroredStore(t *testing.T, cfg docstore.Config, backend storage.Backend) *docstore.Store[string] {
	t.Helper()
	return newStore(t, cfg, backend, nil, nil)
}

func seedBlob(t *testing.T, backend *memBackend, name string, items []string) {
	t.Helper()

	data, err := codec.JSON[string]().Encode(items)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	backend.put(name, data)
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func recv(t *testing.T, sub *docstore.Subscription[string]) []string {
	t.Helper()

	select {
	case items, ok := <-sub.Events():
		if !ok {
			t.Fatal("event channel closed")
		}
		return items
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func assertItems(t *testing.T, got, want []string) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got %d items %v, want %d items %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %q, want %q", i, got[i], want[i])
		}
	}
}
