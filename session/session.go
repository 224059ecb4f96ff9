// Package session wires a Clock, a Transport, and a Mixer into a
// single per-instance object graph with a well-defined root. It also
// implements the hardware callback contract: render the buffer, then
// advance the transport if playing.
package session

import (
	"time"

	"github.com/shaban/daw/clock"
	"github.com/shaban/daw/eventbus"
	"github.com/shaban/daw/mixer"
	"github.com/shaban/daw/track"
	"github.com/shaban/daw/transport"
)

// Session is the root object graph for one playback session.
type Session struct {
	Clock     *clock.Clock
	Transport *transport.Transport
	Mixer     *mixer.Mixer

	bus     *eventbus.Bus
	metrics *metrics
}

// Config configures a new Session.
type Config struct {
	SampleRate      int
	ChannelCount    int // output channels, 1..8; stereo is the defined mix path
	Tempo           float64
	TimeSignature   clock.TimeSignature
	EventBufferSize int // 0 uses eventbus's default
}

// New builds a Session: a Clock at the given sample rate/tempo/time
// signature, a Transport referencing that Clock, and a Mixer
// referencing that Transport, all wired to a shared event bus.
func New(cfg Config) (*Session, error) {
	var opts []clock.Option
	if cfg.Tempo > 0 {
		opts = append(opts, clock.WithTempo(cfg.Tempo))
	}
	if cfg.TimeSignature.Numerator > 0 {
		opts = append(opts, clock.WithTimeSignature(cfg.TimeSignature))
	}
	clk, err := clock.New(cfg.SampleRate, opts...)
	if err != nil {
		return nil, err
	}

	channelCount := cfg.ChannelCount
	if channelCount == 0 {
		channelCount = 2
	}

	bus := eventbus.New(cfg.EventBufferSize)

	t := transport.New(clk, transport.WithEventBus(bus))

	mx, err := mixer.New(t, cfg.SampleRate, channelCount)
	if err != nil {
		return nil, err
	}
	mx = mx.WithEventBus(bus)

	return &Session{
		Clock:     clk,
		Transport: t,
		Mixer:     mx,
		bus:       bus,
		metrics:   newMetrics(),
	}, nil
}

// Subscribe starts delivering every published event to observe, on
// its own goroutine, until the Session is closed.
func (s *Session) Subscribe(observe func(eventbus.Event)) {
	s.bus.Start(observe)
}

// Close stops the session's event-dispatch goroutine.
func (s *Session) Close() {
	s.bus.Close()
}

// NewTrack creates a track, adds it to the mixer, and returns it.
func (s *Session) NewTrack(name string) *track.Track {
	t := track.New(name).WithEventBus(s.bus)
	s.Mixer.AddTrack(t)
	return t
}

// HardwareCallback implements the hardware callback contract: it
// renders frameCount frames into out via Mixer.ProcessBuffer, then
// advances the transport by frameCount iff the transport was in the
// Playing state at the start of the call. On a ProcessBuffer error,
// out is zeroed, the buffer is counted as silenced in metrics, and the
// transport is not advanced; no error propagates out of the audio path.
func (s *Session) HardwareCallback(out []float32, frameCount int) {
	start := time.Now()
	wasPlaying := s.Transport.State() == transport.Playing

	err := s.Mixer.ProcessBuffer(out, frameCount)
	if err != nil {
		clear(out)
	}
	s.metrics.recordBuffer(time.Since(start), err != nil)

	if err == nil && wasPlaying {
		s.Transport.Advance(int64(frameCount))
	}
}

// Metrics returns a snapshot of the session's buffer-callback timing
// counters.
func (s *Session) Metrics() MetricsSnapshot {
	return s.metrics.snapshot()
}
