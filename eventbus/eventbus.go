// Package eventbus delivers property-change and state-change
// notifications from a mutating control-thread call to an observer
// goroutine without making the mutator block on a slow observer.
//
// This is the Go-native answer to the "event-driven property change
// notifications" design note: the source used a per-property observer
// callback invoked synchronously inline with the mutation. Here, a
// mutator calls Publish (non-blocking, best-effort) and the single
// observer callback passed to Start runs on the bus's own dispatch
// goroutine.
package eventbus

import (
	"context"
	"sync"
)

// Kind identifies what changed.
type Kind string

const (
	KindStateChange    Kind = "state"
	KindPositionChange Kind = "position"
	KindPropertyChange Kind = "property"
	KindClipAdded      Kind = "clip_added"
	KindClipRemoved    Kind = "clip_removed"
	KindTrackAdded     Kind = "track_added"
	KindTrackRemoved   Kind = "track_removed"
)

// Event is one notification. EntityID is the uuid.String() (or other
// opaque id) of the entity that changed; Field names the property for
// KindPropertyChange ("volume", "pan", "is_muted", ...); Value carries
// whatever payload is appropriate for Kind (a PositionEvent, a bool, a
// float64, ...).
type Event struct {
	Kind     Kind
	EntityID string
	Field    string
	Value    any
}

// PositionEvent is the Value carried by a KindPositionChange event,
// derived via Clock.
type PositionEvent struct {
	Sample  int64
	Seconds float64
	Bar     int
	Beat    int
	Tick    int
}

// Bus is a bounded, lock-free-to-publish notification queue. Publish
// is safe to call from the audio thread: on a full buffer it drops
// the event rather than blocking, since no caller in this engine may
// stall on notification delivery.
type Bus struct {
	ch      chan Event
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
}

// New creates a Bus with the given buffer capacity. A non-positive
// capacity defaults to 64.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{ch: make(chan Event, capacity), ctx: ctx, cancel: cancel}
}

// Start launches the dispatch goroutine that delivers each event to
// observe. Safe to call multiple times; only the first call's observe
// is used.
func (b *Bus) Start(observe func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-b.ctx.Done():
				return
			case ev := <-b.ch:
				if observe != nil {
					observe(ev)
				}
			}
		}
	}()
}

// Publish enqueues an event. It never blocks: if the buffer is full
// the event is dropped. Safe to call from the audio thread.
func (b *Bus) Publish(ev Event) {
	select {
	case b.ch <- ev:
	default:
	}
}

// Close stops the dispatch goroutine and waits for it to exit. Events
// still buffered at that point are not delivered.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.cancel()
	b.wg.Wait()
}
