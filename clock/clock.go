// Package clock converts between sample positions, seconds, and
// musical positions (bar/beat/tick) under a changeable tempo and time
// signature. A Clock is a stateless function of
// (sample_rate, tempo, time_signature): the sample position itself
// lives on transport.Transport, not here.
package clock

import (
	"math"
	"sync"

	"github.com/shaban/daw/internal/dawerr"
)

// TimeSignature is (numerator, denominator) where denominator must be
// a positive power of two.
type TimeSignature struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// MusicalTime is a 1-based bar, 1-based beat, 0-based tick.
type MusicalTime struct {
	Bar  int `json:"bar"`
	Beat int `json:"beat"`
	Tick int `json:"tick"`
}

// Clock holds sample rate (immutable), tempo, and time signature
// (both mutable). ticks_per_quarter_note is immutable, default 480.
type Clock struct {
	mu sync.RWMutex

	sampleRate          int
	tempo               float64
	signature           TimeSignature
	ticksPerQuarterNote int
}

// Option configures a Clock at construction.
type Option func(*Clock)

// WithTempo overrides the default tempo of 120 BPM.
func WithTempo(bpm float64) Option { return func(c *Clock) { c.tempo = bpm } }

// WithTimeSignature overrides the default 4/4 signature.
func WithTimeSignature(sig TimeSignature) Option {
	return func(c *Clock) { c.signature = sig }
}

// WithTicksPerQuarterNote overrides the default of 480.
func WithTicksPerQuarterNote(n int) Option {
	return func(c *Clock) { c.ticksPerQuarterNote = n }
}

// New creates a Clock for the given sample rate (Hz), applying any
// options, then validates the result. Returns dawerr.ErrInvalidArgument
// if sampleRate, tempo, ticksPerQuarterNote, or the signature are
// invalid.
func New(sampleRate int, opts ...Option) (*Clock, error) {
	c := &Clock{
		sampleRate:          sampleRate,
		tempo:               120.0,
		signature:           TimeSignature{Numerator: 4, Denominator: 4},
		ticksPerQuarterNote: 480,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Clock) validate() error {
	if c.sampleRate <= 0 {
		return dawerr.InvalidArgument("sample rate must be positive, got %d", c.sampleRate)
	}
	if c.tempo <= 0 {
		return dawerr.InvalidArgument("tempo must be positive, got %v", c.tempo)
	}
	if c.signature.Numerator <= 0 {
		return dawerr.InvalidArgument("time signature numerator must be positive, got %d", c.signature.Numerator)
	}
	if !isPowerOfTwo(c.signature.Denominator) {
		return dawerr.InvalidArgument("time signature denominator must be a positive power of two, got %d", c.signature.Denominator)
	}
	if c.ticksPerQuarterNote <= 0 {
		return dawerr.InvalidArgument("ticks per quarter note must be positive, got %d", c.ticksPerQuarterNote)
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// SampleRate returns the immutable sample rate in Hz.
func (c *Clock) SampleRate() int { return c.sampleRate }

// Tempo returns the current tempo in BPM.
func (c *Clock) Tempo() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tempo
}

// SetTempo changes the tempo. Rejects non-positive values.
func (c *Clock) SetTempo(bpm float64) error {
	if bpm <= 0 {
		return dawerr.InvalidArgument("tempo must be positive, got %v", bpm)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tempo = bpm
	return nil
}

// TimeSignature returns the current time signature.
func (c *Clock) TimeSignature() TimeSignature {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.signature
}

// SetTimeSignature changes the time signature. Rejects a non-positive
// numerator or a denominator that isn't a positive power of two.
func (c *Clock) SetTimeSignature(sig TimeSignature) error {
	if sig.Numerator <= 0 {
		return dawerr.InvalidArgument("time signature numerator must be positive, got %d", sig.Numerator)
	}
	if !isPowerOfTwo(sig.Denominator) {
		return dawerr.InvalidArgument("time signature denominator must be a positive power of two, got %d", sig.Denominator)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signature = sig
	return nil
}

// TicksPerQuarterNote returns the immutable tick resolution.
func (c *Clock) TicksPerQuarterNote() int { return c.ticksPerQuarterNote }

// SamplesToSeconds converts a sample count to seconds.
func (c *Clock) SamplesToSeconds(s int64) float64 {
	return float64(s) / float64(c.sampleRate)
}

// SecondsToSamples converts seconds to a sample count, flooring.
func (c *Clock) SecondsToSamples(t float64) int64 {
	return int64(math.Floor(t * float64(c.sampleRate)))
}

// BeatLengthSamples returns the length of one time-signature beat in
// samples: round((60/tempo) * (4/denominator) * sample_rate).
func (c *Clock) BeatLengthSamples() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.beatLengthSamplesLocked()
}

func (c *Clock) beatLengthSamplesLocked() int64 {
	seconds := (60.0 / c.tempo) * (4.0 / float64(c.signature.Denominator))
	return int64(math.Round(seconds * float64(c.sampleRate)))
}

// BarLengthSamples returns BeatLengthSamples * numerator.
func (c *Clock) BarLengthSamples() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.beatLengthSamplesLocked() * int64(c.signature.Numerator)
}

// ticksPerBeatLocked is the number of ticks in one time-signature
// beat: ticksPerQuarterNote scaled by 4/denominator.
func (c *Clock) ticksPerBeatLocked() int64 {
	return int64(math.Round(float64(c.ticksPerQuarterNote) * (4.0 / float64(c.signature.Denominator))))
}

// SamplesToMusicalTime converts an absolute sample position to
// (bar, beat, tick), 1-based bar/beat, 0-based tick.
func (c *Clock) SamplesToMusicalTime(s int64) MusicalTime {
	c.mu.RLock()
	defer c.mu.RUnlock()

	totalBeats := (float64(s) / float64(c.sampleRate)) * (c.tempo / 60.0)
	totalBeats *= 4.0 / float64(c.signature.Denominator)

	ticksPerBeat := c.ticksPerBeatLocked()
	totalTicks := int64(math.Round(totalBeats * float64(c.ticksPerQuarterNote)))

	ticksPerBar := ticksPerBeat * int64(c.signature.Numerator)
	bar := totalTicks/ticksPerBar + 1
	remainder := totalTicks % ticksPerBar
	beat := remainder/ticksPerBeat + 1
	tick := remainder % ticksPerBeat

	return MusicalTime{Bar: int(bar), Beat: int(beat), Tick: int(tick)}
}

// MusicalTimeToSamples is the inverse of SamplesToMusicalTime. Returns
// dawerr.ErrInvalidArgument if bar < 1, beat < 1, or tick < 0.
func (c *Clock) MusicalTimeToSamples(mt MusicalTime) (int64, error) {
	if mt.Bar < 1 {
		return 0, dawerr.InvalidArgument("bar must be >= 1, got %d", mt.Bar)
	}
	if mt.Beat < 1 {
		return 0, dawerr.InvalidArgument("beat must be >= 1, got %d", mt.Beat)
	}
	if mt.Tick < 0 {
		return 0, dawerr.InvalidArgument("tick must be >= 0, got %d", mt.Tick)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	ticksPerBeat := c.ticksPerBeatLocked()
	ticksPerBar := ticksPerBeat * int64(c.signature.Numerator)

	totalTicks := int64(mt.Bar-1)*ticksPerBar + int64(mt.Beat-1)*ticksPerBeat + int64(mt.Tick)
	totalBeats := float64(totalTicks) / float64(c.ticksPerQuarterNote)
	totalBeats /= 4.0 / float64(c.signature.Denominator)

	seconds := totalBeats / (c.tempo / 60.0)
	return int64(math.Floor(seconds * float64(c.sampleRate))), nil
}
