// Package docstore implements a per-document local persistence cache. A Store
// holds one ordered collection of a single element type, persists it as a
// whole blob under a resolved location, and optionally mirrors it in memory
// so reads never touch the backing store. Mirrored writes are coalesced into
// debounced background flushes; a memory-pressure signal forces an immediate
// flush and evicts the mirror.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/docstore/codec"
	"github.com/tailored-agentic-units/docstore/observability"
	"github.com/tailored-agentic-units/docstore/pressure"
	"github.com/tailored-agentic-units/docstore/storage"
)

// Options holds the collaborators a Store is constructed with. Codec and
// Resolver are required; the rest default to the file backend, slog.Default,
// a no-op observer, and no pressure subscription.
type Options[T any] struct {
	Codec    codec.Codec[T]
	Resolver storage.Resolver
	Backend  storage.Backend
	Logger   *slog.Logger
	Observer observability.Observer
	Pressure *pressure.Notifier
}

// Store is a per-document persistence cache for an ordered collection of T.
// All methods are safe for concurrent use, though a single owning goroutine
// issuing reads and writes is the expected pattern.
type Store[T any] struct {
	id     string
	class  storage.Class
	name   string
	mirror bool
	window time.Duration

	codec    codec.Codec[T]
	backend  storage.Backend
	resolver storage.Resolver
	logger   *slog.Logger
	observer observability.Observer

	notifier *pressure.Notifier
	token    uint64

	mu      sync.Mutex
	items   []T
	pending bool
	gen     uint64

	// flushMu serializes all flush paths; at most one flush is in flight.
	flushMu sync.Mutex

	stream *broadcaster[T]
	tasks  *taskRunner

	signal chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

// New creates a Store for the document identified by cfg.Class and cfg.Name.
// When mirroring is enabled a one-time asynchronous warm-load populates the
// mirror from the backing store; a failed or unreadable warm-load leaves the
// mirror empty. The owner must call Close when done with the store.
func New[T any](cfg Config, opts Options[T]) (*Store[T], error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("document name is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("codec is required")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if opts.Backend == nil {
		opts.Backend = storage.NewFileBackend()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = observability.NoOpObserver{}
	}
	if cfg.Class == "" {
		cfg.Class = storage.ClassDocuments
	}
	if cfg.StreamBuffer <= 0 {
		cfg.StreamBuffer = defaultStreamBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store[T]{
		id:       uuid.Must(uuid.NewV7()).String(),
		class:    cfg.Class,
		name:     cfg.Name,
		mirror:   cfg.Mirror,
		window:   cfg.DebounceWindow,
		codec:    opts.Codec,
		backend:  opts.Backend,
		resolver: opts.Resolver,
		logger:   opts.Logger,
		observer: opts.Observer,
		notifier: opts.Pressure,
		stream:   newBroadcaster[T](cfg.StreamBuffer),
		tasks:    &taskRunner{},
		signal:   make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	if s.mirror {
		s.tasks.submit(s.warmLoad)
		go s.flushLoop()
		if s.notifier != nil {
			s.token = s.notifier.Subscribe(s.onPressure)
		}
	} else {
		close(s.done)
	}

	return s, nil
}

// ID returns the unique store instance identifier.
func (s *Store[T]) ID() string { return s.id }

// Name returns the document name.
func (s *Store[T]) Name() string { return s.name }

// Class returns the storage class the document lives in.
func (s *Store[T]) Class() storage.Class { return s.class }

// Mirrored reports whether the store keeps an in-memory mirror.
func (s *Store[T]) Mirrored() bool { return s.mirror }

// Read returns the current collection. Mirrored stores answer synchronously
// from memory and never fail. Non-mirrored stores resolve and read the blob;
// an unreadable location is an error, but a blob that fails to decode is
// treated as an empty collection so bad persisted data never crashes the
// caller.
func (s *Store[T]) Read(ctx context.Context) ([]T, error) {
	if s.mirror {
		s.mu.Lock()
		defer s.mu.Unlock()
		return slices.Clone(s.items), nil
	}
	return s.load(ctx)
}

// Write replaces the collection with items. Mirrored stores mutate the mirror
// synchronously, publish the new snapshot to subscribers, and arm the
// debounce timer; persistence is an eventually consistent side effect.
// Non-mirrored writes are dispatched to the background and complete from the
// caller's perspective immediately; a failed background write is surfaced
// only through the observer and logger.
func (s *Store[T]) Write(ctx context.Context, items []T) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}

	snapshot := slices.Clone(items)

	if s.mirror {
		s.mu.Lock()
		s.items = snapshot
		s.pending = true
		s.gen++
		// Published under the mutex: event order matches mirror-commit order.
		dropped := s.stream.publish(slices.Clone(snapshot))
		s.mu.Unlock()
		s.reportDrops(dropped)

		select {
		case s.signal <- struct{}{}:
		default:
		}
		return nil
	}

	if !s.tasks.submit(func() { s.backgroundWrite(snapshot) }) {
		return ErrClosed
	}
	return nil
}

// Subscribe returns a stream of collection snapshots: one immediate snapshot
// of the current state, then one per completed write. For non-mirrored stores
// the initial snapshot requires a backing-store read and arrives
// asynchronously; a failed read skips it.
func (s *Store[T]) Subscribe() *Subscription[T] {
	if s.mirror {
		// Registered under the mutex: the initial snapshot and the first
		// followed write cannot straddle an intervening write.
		s.mu.Lock()
		sub := s.stream.subscribe(slices.Clone(s.items), true)
		s.mu.Unlock()
		return sub
	}

	sub := s.stream.subscribe(nil, false)
	s.tasks.submit(func() {
		items, err := s.load(context.Background())
		if err != nil {
			s.logger.Warn(
				"initial snapshot read failed",
				slog.String("store_id", s.id),
				slog.String("document", s.name),
				slog.String("error", err.Error()),
			)
			return
		}
		s.stream.deliver(sub.id, items)
	})
	return sub
}

// Snapshot returns a copy of the current mirror contents for diagnostics.
// Fails with ErrNotMirrored when mirroring is disabled.
func (s *Store[T]) Snapshot() ([]T, error) {
	if !s.mirror {
		return nil, ErrNotMirrored
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items), nil
}

// Pending reports whether a mirrored write is awaiting flush.
func (s *Store[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Flush synchronously persists the mirror if a write is pending, bypassing
// the debounce wait. No-op for non-mirrored stores, which never buffer.
func (s *Store[T]) Flush(ctx context.Context) error {
	if !s.mirror {
		return nil
	}
	return s.flush(ctx)
}

// Close stops the flush worker, drains background tasks, persists any pending
// mirror state, closes the event stream, and deregisters from the pressure
// notifier. Idempotent.
func (s *Store[T]) Close() error {
	s.closeOnce.Do(func() {
		if s.notifier != nil {
			s.notifier.Unsubscribe(s.token)
		}
		s.cancel()
		<-s.done
		s.tasks.closeAndWait()
		if s.mirror {
			s.flush(context.Background())
		}
		s.stream.close()
	})
	return nil
}

// load reads and decodes the persisted blob. Decode failures downgrade to an
// empty collection.
func (s *Store[T]) load(ctx context.Context) ([]T, error) {
	loc, err := s.resolver.Resolve(s.class, s.name)
	if err != nil {
		return nil, fmt.Errorf("resolve %s/%s: %w", s.class, s.name, err)
	}

	data, err := s.backend.ReadAll(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", s.class, s.name, err)
	}

	items, err := s.codec.Decode(data)
	if err != nil {
		s.emit(EventDecodeFallback, observability.LevelWarning, map[string]any{
			"error": err.Error(),
		})
		return []T{}, nil
	}
	return items, nil
}

// persist encodes items and writes them to the resolved location. An encode
// failure aborts before any bytes reach the backing store.
func (s *Store[T]) persist(ctx context.Context, items []T) error {
	data, err := s.codec.Encode(items)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", s.class, s.name, err)
	}

	loc, err := s.resolver.Resolve(s.class, s.name)
	if err != nil {
		return fmt.Errorf("resolve %s/%s: %w", s.class, s.name, err)
	}

	if err := s.backend.WriteAll(ctx, loc, data); err != nil {
		return fmt.Errorf("write %s/%s: %w", s.class, s.name, err)
	}
	return nil
}

// backgroundWrite is the non-mirrored write path. The snapshot is published
// only after the backing store accepted it.
func (s *Store[T]) backgroundWrite(items []T) {
	if err := s.persist(context.Background(), items); err != nil {
		s.emit(EventWriteError, observability.LevelError, map[string]any{
			"error": err.Error(),
		})
		s.logger.Error(
			"background write failed",
			slog.String("store_id", s.id),
			slog.String("document", s.name),
			slog.String("error", err.Error()),
		)
		return
	}

	s.emit(EventWrite, observability.LevelVerbose, map[string]any{
		"count": len(items),
	})
	s.publish(items)
}

// warmLoad is the one-time mirror population at construction. Any failure
// leaves the mirror empty; a write that lands before the load completes wins.
func (s *Store[T]) warmLoad() {
	loc, err := s.resolver.Resolve(s.class, s.name)
	if err != nil {
		s.emit(EventWarmLoadError, observability.LevelWarning, map[string]any{
			"error": err.Error(),
		})
		return
	}

	data, err := s.backend.ReadAll(s.ctx, loc)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug(
				"no persisted blob to warm-load",
				slog.String("store_id", s.id),
				slog.String("document", s.name),
			)
			return
		}
		s.emit(EventWarmLoadError, observability.LevelWarning, map[string]any{
			"error": err.Error(),
		})
		return
	}

	items, err := s.codec.Decode(data)
	if err != nil {
		s.emit(EventDecodeFallback, observability.LevelWarning, map[string]any{
			"error": err.Error(),
		})
		return
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return
	}
	s.items = items
	// Published under the mutex: a write landing after the install cannot
	// publish ahead of the warm-loaded snapshot.
	dropped := s.stream.publish(slices.Clone(items))
	s.mu.Unlock()
	s.reportDrops(dropped)

	s.emit(EventWarmLoad, observability.LevelInfo, map[string]any{
		"count": len(items),
	})
}

// flushLoop is the debounce worker: a trailing-edge timer rearmed by every
// write signal, with a single flush per elapsed window.
func (s *Store[T]) flushLoop() {
	defer close(s.done)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-s.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-s.signal:
			if timer == nil {
				timer = time.NewTimer(s.window)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.window)
			}
		case <-fire:
			timer = nil
			fire = nil
			s.flush(context.Background())
		}
	}
}

// flush persists the mirror as it stands at flush time. The pending flag is
// cleared only when no write superseded the flushed snapshot.
func (s *Store[T]) flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return nil
	}
	snapshot := slices.Clone(s.items)
	gen := s.gen
	s.mu.Unlock()

	if err := s.persist(ctx, snapshot); err != nil {
		s.emit(EventFlushError, observability.LevelError, map[string]any{
			"error": err.Error(),
		})
		s.logger.Error(
			"flush failed",
			slog.String("store_id", s.id),
			slog.String("document", s.name),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.mu.Lock()
	if s.gen == gen {
		s.pending = false
	}
	s.mu.Unlock()

	s.emit(EventFlush, observability.LevelVerbose, map[string]any{
		"count": len(snapshot),
	})
	return nil
}

// onPressure handles a low-memory signal: flush the mirror if a write is
// pending, then evict. The flush must complete before control returns to the
// signal source. The mirror stays empty until the next write; eviction does
// not re-warm from the backing store.
func (s *Store[T]) onPressure(ctx context.Context) {
	s.flushMu.Lock()

	s.mu.Lock()
	snapshot := s.items
	wasPending := s.pending
	s.items = nil
	s.pending = false
	s.gen++
	s.mu.Unlock()

	if wasPending {
		if err := s.persist(ctx, snapshot); err != nil {
			s.emit(EventFlushError, observability.LevelError, map[string]any{
				"error":   err.Error(),
				"trigger": "pressure",
			})
			s.logger.Error(
				"pressure flush failed",
				slog.String("store_id", s.id),
				slog.String("document", s.name),
				slog.String("error", err.Error()),
			)
		}
	}
	s.flushMu.Unlock()

	s.emit(EventEvict, observability.LevelInfo, map[string]any{
		"flushed": wasPending,
		"count":   len(snapshot),
	})
}

// publish pushes a snapshot to all subscribers and surfaces drops. Mirrored
// paths publish under s.mu instead, so their event order tracks the mirror.
func (s *Store[T]) publish(items []T) {
	s.reportDrops(s.stream.publish(items))
}

// reportDrops surfaces skipped deliveries. Called outside the mirror mutex so
// a blocking observer never stalls writes.
func (s *Store[T]) reportDrops(dropped int) {
	if dropped > 0 {
		s.emit(EventSubscriberDrop, observability.LevelWarning, map[string]any{
			"dropped": dropped,
		})
	}
}

func (s *Store[T]) emit(eventType observability.EventType, level observability.Level, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["store_id"] = s.id
	data["document"] = s.name
	data["class"] = string(s.class)

	s.observer.OnEvent(context.Background(), observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "docstore",
		Data:      data,
	})
}
