// Package mixer implements the per-buffer real-time mixer: for each
// hardware callback it reads the transport position, renders and sums
// every contributing clip on every track, applies per-track volume
// and constant-power pan, applies master volume and mute, and writes
// an interleaved output buffer. The transport is advanced by the
// caller, not by ProcessBuffer.
package mixer

import (
	"math"
	"sync/atomic"

	"github.com/shaban/daw/eventbus"
	"github.com/shaban/daw/internal/dawerr"
	"github.com/shaban/daw/track"
	"github.com/shaban/daw/transport"
)

// Mixer owns the transport reference and the published track
// snapshot. Track-list mutation (AddTrack/RemoveTrack/ClearTracks)
// happens on the control thread and publishes a fresh copy-on-write
// snapshot. ProcessBuffer (the audio thread) reads the snapshot with a
// single atomic load, exactly once per call, so it observes one
// logically consistent instant for the whole buffer.
type Mixer struct {
	sampleRate   int
	channelCount int

	transport *transport.Transport
	bus       *eventbus.Bus

	snapshot atomic.Pointer[[]*track.Track]

	masterVolume  atomic.Uint64 // math.Float64bits
	isMasterMuted atomic.Bool

	mixScratch     []float32
	trackScratch   []float32
	audibleScratch []*track.Track
}

// New creates a Mixer for the given transport, sample rate, and
// output channel count (1..8; the constant-power pan law is only
// defined for channelCount == 2).
func New(t *transport.Transport, sampleRate, channelCount int) (*Mixer, error) {
	if sampleRate <= 0 {
		return nil, dawerr.InvalidArgument("sample rate must be positive, got %d", sampleRate)
	}
	if channelCount <= 0 || channelCount > 8 {
		return nil, dawerr.InvalidArgument("channel count must be in [1, 8], got %d", channelCount)
	}
	m := &Mixer{
		sampleRate:   sampleRate,
		channelCount: channelCount,
		transport:    t,
	}
	m.masterVolume.Store(math.Float64bits(1.0))
	empty := []*track.Track{}
	m.snapshot.Store(&empty)
	return m, nil
}

// WithEventBus attaches a bus for track-added/track-removed
// notifications.
func (m *Mixer) WithEventBus(bus *eventbus.Bus) *Mixer {
	m.bus = bus
	return m
}

// SampleRate returns the mixer's configured sample rate.
func (m *Mixer) SampleRate() int { return m.sampleRate }

// ChannelCount returns the mixer's configured output channel count.
func (m *Mixer) ChannelCount() int { return m.channelCount }

// MasterVolume returns the current master volume, in [0, 10].
func (m *Mixer) MasterVolume() float64 {
	return math.Float64frombits(m.masterVolume.Load())
}

// SetMasterVolume sets the master volume, clamped to [0.0, 10.0].
func (m *Mixer) SetMasterVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 10 {
		v = 10
	}
	m.masterVolume.Store(math.Float64bits(v))
}

// IsMasterMuted returns the master mute flag.
func (m *Mixer) IsMasterMuted() bool { return m.isMasterMuted.Load() }

// SetMasterMuted sets the master mute flag.
func (m *Mixer) SetMasterMuted(muted bool) { m.isMasterMuted.Store(muted) }

// AddTrack appends a track to the mix, publishing a new snapshot.
func (m *Mixer) AddTrack(t *track.Track) {
	prev := *m.snapshot.Load()
	next := make([]*track.Track, len(prev)+1)
	copy(next, prev)
	next[len(prev)] = t
	m.snapshot.Store(&next)
	m.publishTrackEvent(eventbus.KindTrackAdded, t)
}

// RemoveTrack removes a track from the mix by identity, publishing a
// new snapshot. Returns false if the track wasn't present.
func (m *Mixer) RemoveTrack(t *track.Track) bool {
	prev := *m.snapshot.Load()
	idx := -1
	for i, candidate := range prev {
		if candidate.ID == t.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	next := make([]*track.Track, 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	next = append(next, prev[idx+1:]...)
	m.snapshot.Store(&next)
	m.publishTrackEvent(eventbus.KindTrackRemoved, t)
	return true
}

// ClearTracks removes every track from the mix.
func (m *Mixer) ClearTracks() {
	empty := []*track.Track{}
	m.snapshot.Store(&empty)
}

// GetTracks returns the currently published track snapshot, in
// insertion order.
func (m *Mixer) GetTracks() []*track.Track {
	snap := *m.snapshot.Load()
	out := make([]*track.Track, len(snap))
	copy(out, snap)
	return out
}

// Reset clears internal mixer state (scratch buffers). It does not
// touch the transport or any track's position or clips.
func (m *Mixer) Reset() {
	m.mixScratch = nil
	m.trackScratch = nil
	m.audibleScratch = nil
}

func (m *Mixer) publishTrackEvent(kind eventbus.Kind, t *track.Track) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(eventbus.Event{Kind: kind, EntityID: t.ID.String()})
}
