// Package transport implements the playback state machine: Stopped,
// Playing, Paused, Recording, with seek, loop wrap-around, and
// sample-accurate position advance.
package transport

import (
	"sync"
	"sync/atomic"

	"github.com/shaban/daw/clock"
	"github.com/shaban/daw/eventbus"
	"github.com/shaban/daw/internal/dawerr"
)

// State is one of the four transport states.
type State int

const (
	Stopped State = iota
	Playing
	Paused
	Recording
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Recording:
		return "recording"
	default:
		return "unknown"
	}
}

// Transport holds playback position and state. It keeps a
// non-owning reference to a Clock (the Clock must outlive the
// Transport) used only to derive musical-time for position-change
// notifications.
type Transport struct {
	clk  *clock.Clock
	bus  *eventbus.Bus
	name string

	// position is the hot-path field: the audio thread is the sole
	// writer during Playing/Recording (via Advance), control threads
	// write it under mu (Seek, Stop). Aligned int64 loads/stores are
	// atomic either way.
	position int64

	mu           sync.Mutex
	state        State
	stopPosition int64
	isLooping    bool
	loopStart    int64
	loopEnd      int64
}

// Option configures a Transport at construction.
type Option func(*Transport)

// WithEventBus attaches a bus that receives state-change and
// position-change notifications. Without one, Transport still works;
// it just publishes to nothing.
func WithEventBus(bus *eventbus.Bus) Option { return func(t *Transport) { t.bus = bus } }

// WithName sets the EntityID used in published events. Defaults to
// "transport".
func WithName(name string) Option { return func(t *Transport) { t.name = name } }

// New creates a Transport in the Stopped state at position 0,
// referencing clk for musical-time derivation.
func New(clk *clock.Clock, opts ...Option) *Transport {
	t := &Transport{clk: clk, name: "transport", state: Stopped}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current playback state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Position returns the current sample position.
func (t *Transport) Position() int64 {
	return atomic.LoadInt64(&t.position)
}

// IsLooping reports whether loop wrap-around is enabled.
func (t *Transport) IsLooping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isLooping
}

// SetLooping enables or disables loop wrap-around.
func (t *Transport) SetLooping(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isLooping = on
}

// LoopStart returns the loop window start in samples.
func (t *Transport) LoopStart() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loopStart
}

// LoopEnd returns the loop window end in samples.
func (t *Transport) LoopEnd() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loopEnd
}

// SetLoopStart sets the loop start. If it would violate
// loop_start < loop_end, loop_end is auto-adjusted by one bar.
// Rejects negative values.
func (t *Transport) SetLoopStart(start int64) error {
	if start < 0 {
		return dawerr.InvalidArgument("loop start must be >= 0, got %d", start)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loopStart = start
	if t.loopEnd <= t.loopStart {
		t.loopEnd = t.loopStart + t.barLengthLocked()
	}
	return nil
}

// SetLoopEnd sets the loop end. If it would violate
// loop_start < loop_end, loop_start is auto-adjusted by one bar.
// Rejects negative values.
func (t *Transport) SetLoopEnd(end int64) error {
	if end < 0 {
		return dawerr.InvalidArgument("loop end must be >= 0, got %d", end)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loopEnd = end
	if t.loopStart >= t.loopEnd {
		t.loopStart = t.loopEnd - t.barLengthLocked()
		if t.loopStart < 0 {
			t.loopStart = 0
		}
	}
	return nil
}

func (t *Transport) barLengthLocked() int64 {
	if t.clk == nil {
		return 0
	}
	return t.clk.BarLengthSamples()
}

// Play transitions to Playing from any state, preserving the current
// position.
func (t *Transport) Play() {
	t.setState(Playing)
}

// Pause transitions Playing or Recording to Paused, without changing
// position. A no-op from Stopped or already-Paused.
func (t *Transport) Pause() {
	t.mu.Lock()
	prev := t.state
	if prev == Playing || prev == Recording {
		t.state = Paused
	}
	next := t.state
	t.mu.Unlock()
	if next != prev {
		t.publishState(next)
	}
}

// Stop transitions to Stopped from any state and restores position to
// stop_position, the position a seek issued while Stopped last set.
func (t *Transport) Stop() {
	t.mu.Lock()
	t.state = Stopped
	pos := t.stopPosition
	atomic.StoreInt64(&t.position, pos)
	t.mu.Unlock()
	t.publishState(Stopped)
	t.publishPosition(pos)
}

// Record transitions to Recording from any state, without changing
// position.
func (t *Transport) Record() {
	t.setState(Recording)
}

func (t *Transport) setState(s State) {
	t.mu.Lock()
	prev := t.state
	t.state = s
	t.mu.Unlock()
	if s != prev {
		t.publishState(s)
	}
}

// Seek sets the position. While Stopped, it also updates
// stop_position so a subsequent Stop returns here. Rejects negative
// positions.
func (t *Transport) Seek(p int64) error {
	if p < 0 {
		return dawerr.InvalidArgument("seek position must be >= 0, got %d", p)
	}
	t.mu.Lock()
	if t.state == Stopped {
		t.stopPosition = p
	}
	atomic.StoreInt64(&t.position, p)
	t.mu.Unlock()
	t.publishPosition(p)
	return nil
}

// Rewind is equivalent to Seek(0).
func (t *Transport) Rewind() error {
	return t.Seek(0)
}

// Advance moves the position forward by n samples during Playing or
// Recording, wrapping inside the loop window if looping is enabled.
// A no-op in any other state, or when n == 0. Safe to call from the
// audio thread.
func (t *Transport) Advance(n int64) {
	if n < 0 {
		return
	}
	t.mu.Lock()
	if t.state != Playing && t.state != Recording {
		t.mu.Unlock()
		return
	}
	looping := t.isLooping
	loopStart, loopEnd := t.loopStart, t.loopEnd
	t.mu.Unlock()

	if n == 0 {
		return
	}

	newPos := atomic.LoadInt64(&t.position) + n
	if looping && loopEnd > loopStart {
		if newPos >= loopEnd {
			overflow := newPos - loopEnd
			loopLen := loopEnd - loopStart
			newPos = loopStart + overflow%loopLen
		}
	}
	atomic.StoreInt64(&t.position, newPos)
	t.publishPosition(newPos)
}

func (t *Transport) publishState(s State) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(eventbus.Event{Kind: eventbus.KindStateChange, EntityID: t.name, Value: s})
}

func (t *Transport) publishPosition(p int64) {
	if t.bus == nil {
		return
	}
	ev := eventbus.PositionEvent{Sample: p}
	if t.clk != nil {
		ev.Seconds = t.clk.SamplesToSeconds(p)
		mt := t.clk.SamplesToMusicalTime(p)
		ev.Bar, ev.Beat, ev.Tick = mt.Bar, mt.Beat, mt.Tick
	}
	t.bus.Publish(eventbus.Event{Kind: eventbus.KindPositionChange, EntityID: t.name, Value: ev})
}
