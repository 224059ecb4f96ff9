package clip

import (
	"math"
	"sync"

	"github.com/shaban/daw/internal/dawerr"
)

// MaxChannels is the maximum channel count an AudioClip's backing
// storage may carry.
const MaxChannels = 8

// AudioClip is a Clip variant whose backing storage is interleaved
// 32-bit float samples. Storage is owned by the clip and is meant to
// be written only at construction or via WriteSamples from a control
// thread; concurrent reads from the audio thread while a write is in
// progress are undefined. The mutex here only protects Header field
// setters and WriteSamples against each other, not against a
// concurrent ReadSamples.
type AudioClip struct {
	Header

	channels   int
	sampleRate int
	samples    []float32 // interleaved by channel

	mu sync.RWMutex
}

// NewAudioClip creates an AudioClip over a pre-allocated, zeroed
// buffer of frameCount frames. length defaults to frameCount if
// negative is not passed; callers set Length/SourceOffset afterward
// via the setters below.
func NewAudioClip(name string, channels, sampleRate int, frameCount int64) (*AudioClip, error) {
	if channels <= 0 || channels > MaxChannels {
		return nil, dawerr.InvalidArgument("channels must be in [1, %d], got %d", MaxChannels, channels)
	}
	if sampleRate <= 0 {
		return nil, dawerr.InvalidArgument("sample rate must be positive, got %d", sampleRate)
	}
	if frameCount < 0 {
		return nil, dawerr.InvalidArgument("frame count must be >= 0, got %d", frameCount)
	}
	header, err := newHeader(name, 0, frameCount, 0, 1.0, 0, 0, "")
	if err != nil {
		return nil, err
	}
	return &AudioClip{
		Header:     header,
		channels:   channels,
		sampleRate: sampleRate,
		samples:    make([]float32, frameCount*int64(channels)),
	}, nil
}

// NewAudioClipFromSamples creates an AudioClip that owns the given
// interleaved sample buffer directly (no copy). Length defaults to
// the full frame count of the buffer.
func NewAudioClipFromSamples(name string, channels, sampleRate int, samples []float32) (*AudioClip, error) {
	if channels <= 0 || channels > MaxChannels {
		return nil, dawerr.InvalidArgument("channels must be in [1, %d], got %d", MaxChannels, channels)
	}
	if sampleRate <= 0 {
		return nil, dawerr.InvalidArgument("sample rate must be positive, got %d", sampleRate)
	}
	if len(samples)%channels != 0 {
		return nil, dawerr.InvalidArgument("len(samples) %% channels must be 0, got %d samples over %d channels", len(samples), channels)
	}
	frames := int64(len(samples) / channels)
	header, err := newHeader(name, 0, frames, 0, 1.0, 0, 0, "")
	if err != nil {
		return nil, err
	}
	return &AudioClip{
		Header:     header,
		channels:   channels,
		sampleRate: sampleRate,
		samples:    samples,
	}, nil
}

// Kind returns KindAudio.
func (c *AudioClip) Kind() Kind { return KindAudio }

// Channels returns the channel count of the backing storage.
func (c *AudioClip) Channels() int { return c.channels }

// SampleRate returns the sample rate of the backing storage.
func (c *AudioClip) SampleRate() int { return c.sampleRate }

// Samples returns the clip's backing interleaved sample buffer
// directly (no copy). Used to share storage across a split; callers
// must not mutate the result concurrently with a
// ReadSamples/WriteSamples call on any clip sharing it.
func (c *AudioClip) Samples() []float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.samples
}

// FramesInStorage returns the number of frames the backing buffer
// holds, independent of Length/SourceOffset.
func (c *AudioClip) FramesInStorage() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.samples) / c.channels)
}

// SetStartPosition moves the clip on the timeline.
func (c *AudioClip) SetStartPosition(p int64) error {
	if p < 0 {
		return dawerr.InvalidArgument("start position must be >= 0, got %d", p)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StartPosition = p
	return nil
}

// SetLength changes how many timeline frames the clip covers.
// Rejects a length that would make source_offset + length exceed the
// backing storage.
func (c *AudioClip) SetLength(length int64) error {
	if length < 0 {
		return dawerr.InvalidArgument("length must be >= 0, got %d", length)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SourceOffset+length > int64(len(c.samples)/c.channels) {
		return dawerr.InvalidArgument("source_offset (%d) + length (%d) exceeds frames in storage (%d)", c.SourceOffset, length, len(c.samples)/c.channels)
	}
	c.Length = length
	return nil
}

// SetSourceOffset changes where in the backing storage the clip's
// timeline playback begins.
func (c *AudioClip) SetSourceOffset(offset int64) error {
	if offset < 0 {
		return dawerr.InvalidArgument("source offset must be >= 0, got %d", offset)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if offset+c.Length > int64(len(c.samples)/c.channels) {
		return dawerr.InvalidArgument("source_offset (%d) + length (%d) exceeds frames in storage (%d)", offset, c.Length, len(c.samples)/c.channels)
	}
	c.SourceOffset = offset
	return nil
}

// SetGain changes the clip's linear gain multiplier.
func (c *AudioClip) SetGain(gain float64) error {
	if gain < 0 {
		return dawerr.InvalidArgument("gain must be >= 0, got %v", gain)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gain = gain
	return nil
}

// SetMuted sets the mute flag.
func (c *AudioClip) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.IsMuted = muted
}

// SetFades changes the fade-in/fade-out lengths.
func (c *AudioClip) SetFades(fadeIn, fadeOut int64) error {
	if fadeIn < 0 {
		return dawerr.InvalidArgument("fade in length must be >= 0, got %d", fadeIn)
	}
	if fadeOut < 0 {
		return dawerr.InvalidArgument("fade out length must be >= 0, got %d", fadeOut)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FadeInLength = fadeIn
	c.FadeOutLength = fadeOut
	return nil
}

// snapshot captures the fields ReadSamples needs under one lock
// acquisition, so the algorithm below runs against one consistent
// view of the clip.
type snapshot struct {
	muted           bool
	startPosition   int64
	length          int64
	sourceOffset    int64
	gain            float64
	fadeInLength    int64
	fadeOutLength   int64
	channels        int
	framesInStorage int64
}

func (c *AudioClip) snapshotLocked() snapshot {
	return snapshot{
		muted:           c.IsMuted,
		startPosition:   c.StartPosition,
		length:          c.Length,
		sourceOffset:    c.SourceOffset,
		gain:            c.Gain,
		fadeInLength:    c.FadeInLength,
		fadeOutLength:   c.FadeOutLength,
		channels:        c.channels,
		framesInStorage: int64(len(c.samples) / c.channels),
	}
}

// ReadSamples attempts to write count individual float samples (not
// frames) into dst[dstOffset:dstOffset+count], reading from the
// clip's backing storage as seen from timelinePosition. Returns the
// number of samples actually written with nonzero data; the remainder
// of the destination window is zeroed. count must be a multiple of
// the clip's channel count.
func (c *AudioClip) ReadSamples(dst []float32, dstOffset int, count int, timelinePosition int64) (int, error) {
	if dstOffset < 0 || count < 0 {
		return 0, dawerr.InvalidArgument("dstOffset and count must be >= 0, got %d, %d", dstOffset, count)
	}
	if dstOffset+count > len(dst) {
		return 0, dawerr.InvalidArgument("destination buffer too small: need %d, have %d", dstOffset+count, len(dst))
	}

	c.mu.RLock()
	s := c.snapshotLocked()
	samples := c.samples
	c.mu.RUnlock()

	if count%s.channels != 0 {
		return 0, dawerr.InvalidArgument("count %% channels must be 0, got count=%d channels=%d", count, s.channels)
	}

	zeroWindow := func() { clear(dst[dstOffset : dstOffset+count]) }

	if s.muted || count == 0 {
		zeroWindow()
		return 0, nil
	}

	relative := timelinePosition - s.startPosition
	if relative < 0 || relative >= s.length {
		zeroWindow()
		return 0, nil
	}

	sourceFrame := relative + s.sourceOffset
	if sourceFrame >= s.framesInStorage {
		zeroWindow()
		return 0, nil
	}

	requestedFrames := int64(count / s.channels)
	available := min64(s.length-relative, min64(s.framesInStorage-sourceFrame, requestedFrames))

	for i := int64(0); i < available; i++ {
		env := fadeEnvelope(relative+i, s.length, s.fadeInLength, s.fadeOutLength)
		scale := float32(s.gain * env)
		srcBase := (sourceFrame + i) * int64(s.channels)
		dstBase := dstOffset + int(i)*s.channels
		for ch := 0; ch < s.channels; ch++ {
			dst[dstBase+ch] = samples[srcBase+int64(ch)] * scale
		}
	}

	writtenSamples := int(available) * s.channels
	if writtenSamples < count {
		clear(dst[dstOffset+writtenSamples : dstOffset+count])
	}
	return writtenSamples, nil
}

// WriteSamples copies frameCount frames from src (interleaved by
// channel) into the clip's backing storage, starting at the frame
// that corresponds to timelinePosition. Bounded by the backing
// storage and the clip's length; returns the number of frames
// actually written.
func (c *AudioClip) WriteSamples(src []float32, srcOffset int, frameCount int, timelinePosition int64) (int, error) {
	if srcOffset < 0 || frameCount < 0 {
		return 0, dawerr.InvalidArgument("srcOffset and frameCount must be >= 0, got %d, %d", srcOffset, frameCount)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	relative := timelinePosition - c.StartPosition
	if relative < 0 || relative >= c.Length {
		return 0, nil
	}
	sourceFrame := relative + c.SourceOffset
	framesInStorage := int64(len(c.samples) / c.channels)
	if sourceFrame >= framesInStorage {
		return 0, nil
	}

	available := min64(c.Length-relative, min64(framesInStorage-sourceFrame, int64(frameCount)))
	if int64(srcOffset)*int64(c.channels)+available*int64(c.channels) > int64(len(src)) {
		available = min64(available, (int64(len(src))-int64(srcOffset)*int64(c.channels))/int64(c.channels))
	}
	if available <= 0 {
		return 0, nil
	}

	for i := int64(0); i < available; i++ {
		dstBase := (sourceFrame + i) * int64(c.channels)
		srcBase := (int64(srcOffset) + i) * int64(c.channels)
		for ch := 0; ch < c.channels; ch++ {
			c.samples[dstBase+int64(ch)] = src[srcBase+int64(ch)]
		}
	}
	return int(available), nil
}

// PeakAmplitude returns the maximum absolute sample value within the
// window [timelinePosition, timelinePosition+windowFrames), scaled by
// the clip's gain and the fade envelope at the window's start. Returns
// 0 if muted or the window is entirely out of bounds.
func (c *AudioClip) PeakAmplitude(timelinePosition int64, windowFrames int64) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.IsMuted || windowFrames <= 0 {
		return 0
	}

	relative := timelinePosition - c.StartPosition
	if relative < 0 || relative >= c.Length {
		return 0
	}
	sourceFrame := relative + c.SourceOffset
	framesInStorage := int64(len(c.samples) / c.channels)
	if sourceFrame >= framesInStorage {
		return 0
	}

	available := min64(c.Length-relative, min64(framesInStorage-sourceFrame, windowFrames))
	var peak float64
	for i := int64(0); i < available; i++ {
		base := (sourceFrame + i) * int64(c.channels)
		for ch := 0; ch < c.channels; ch++ {
			v := math.Abs(float64(c.samples[base+int64(ch)]))
			if v > peak {
				peak = v
			}
		}
	}
	env := fadeEnvelope(relative, c.Length, c.FadeInLength, c.FadeOutLength)
	return peak * c.Gain * env
}

// RMSAmplitude returns the root-mean-square amplitude over the window
// [timelinePosition, timelinePosition+windowFrames), scaled the same
// way as PeakAmplitude.
func (c *AudioClip) RMSAmplitude(timelinePosition int64, windowFrames int64) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.IsMuted || windowFrames <= 0 {
		return 0
	}

	relative := timelinePosition - c.StartPosition
	if relative < 0 || relative >= c.Length {
		return 0
	}
	sourceFrame := relative + c.SourceOffset
	framesInStorage := int64(len(c.samples) / c.channels)
	if sourceFrame >= framesInStorage {
		return 0
	}

	available := min64(c.Length-relative, min64(framesInStorage-sourceFrame, windowFrames))
	if available <= 0 {
		return 0
	}
	var sumSquares float64
	n := int64(0)
	for i := int64(0); i < available; i++ {
		base := (sourceFrame + i) * int64(c.channels)
		for ch := 0; ch < c.channels; ch++ {
			v := float64(c.samples[base+int64(ch)])
			sumSquares += v * v
			n++
		}
	}
	rms := math.Sqrt(sumSquares / float64(n))
	env := fadeEnvelope(relative, c.Length, c.FadeInLength, c.FadeOutLength)
	return rms * c.Gain * env
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
