package mixer

import (
	"math"

	"github.com/shaban/daw/internal/dawerr"
	"github.com/shaban/daw/track"
	"github.com/shaban/daw/transport"
)

// ProcessBuffer is the hot path: it renders frameCount frames of
// interleaved audio into out and returns. It never allocates per
// call beyond growing its reusable scratch buffers (mix, per-track,
// and the audible-track set) to the high-water mark seen so far,
// never blocks, and never panics out. A track whose rendering fails is
// left out of the mix for that buffer. A negative frameCount or an out
// shorter than frameCount*channelCount returns an error and leaves out
// untouched.
//
// The caller (the hardware callback collaborator) is responsible for
// advancing the transport by frameCount after this returns, iff the
// transport's state is Playing.
func (m *Mixer) ProcessBuffer(out []float32, frameCount int) error {
	if frameCount == 0 {
		return nil
	}
	if frameCount < 0 {
		return dawerr.InvalidArgument("frame count must be >= 0, got %d", frameCount)
	}

	needed := frameCount * m.channelCount
	if len(out) < needed {
		// Fatal on the control path, silence on the audio path: we
		// have no output buffer to write silence into either, so
		// there is nothing further to do but report it.
		return dawerr.ResourceExhausted("output buffer too small: need %d samples, have %d", needed, len(out))
	}
	window := out[:needed]

	snapshot := *m.snapshot.Load()

	state := m.transport.State()
	position := m.transport.Position()

	if m.IsMasterMuted() || state != transport.Playing {
		clear(window)
		return nil
	}
	if len(snapshot) == 0 {
		clear(window)
		return nil
	}

	audible := m.audibleTracks(snapshot)

	m.mixScratch = ensureCapacity(m.mixScratch, needed)
	mix := m.mixScratch[:needed]
	clear(mix)

	m.trackScratch = ensureCapacity(m.trackScratch, needed)
	scratch := m.trackScratch[:needed]

	for _, t := range audible {
		clear(scratch)
		if err := t.ProcessAudio(scratch, 0, needed, position); err != nil {
			// An internal rendering fault silences this track's
			// contribution for this buffer only; the rest of the mix
			// still renders.
			continue
		}
		applyVolumeAndPan(mix, scratch, t.Volume(), t.Pan(), m.channelCount, frameCount)
	}

	masterVolume := float32(m.MasterVolume())
	for i := 0; i < needed; i++ {
		out[i] = mix[i] * masterVolume
	}
	return nil
}

// audibleTracks implements the solo-precedence rule: if any track in
// the snapshot is soloed, the audible set is exactly the soloed,
// non-muted tracks; otherwise it's every non-muted track. The result
// is built into m.audibleScratch, grown to the high-water mark and
// reused across calls, rather than a fresh slice per buffer, so the
// hot path never allocates.
func (m *Mixer) audibleTracks(tracks []*track.Track) []*track.Track {
	anySolo := false
	for _, t := range tracks {
		if t.IsSolo() {
			anySolo = true
			break
		}
	}
	if cap(m.audibleScratch) < len(tracks) {
		m.audibleScratch = make([]*track.Track, 0, len(tracks))
	}
	out := m.audibleScratch[:0]
	for _, t := range tracks {
		if t.IsMuted() {
			continue
		}
		if anySolo && !t.IsSolo() {
			continue
		}
		out = append(out, t)
	}
	m.audibleScratch = out
	return out
}

// applyVolumeAndPan mixes src (a track's rendered, unpanned buffer)
// into mix, applying the track's volume and, for a stereo output bus,
// the constant-power pan law. Mono buses apply volume only; buses
// with more than two channels apply a scalar volume per sample and
// ignore pan (the stereo pan law has no defined meaning there).
func applyVolumeAndPan(mix, src []float32, volume, pan float64, channelCount, frameCount int) {
	switch channelCount {
	case 1:
		v := float32(volume)
		for i := 0; i < frameCount; i++ {
			mix[i] += src[i] * v
		}
	case 2:
		theta := (pan + 1.0) * math.Pi / 4.0
		leftGain := float32(math.Cos(theta) * volume)
		rightGain := float32(math.Sin(theta) * volume)
		for i := 0; i < frameCount; i++ {
			mix[2*i] += src[2*i] * leftGain
			mix[2*i+1] += src[2*i+1] * rightGain
		}
	default:
		v := float32(volume)
		n := frameCount * channelCount
		for i := 0; i < n; i++ {
			mix[i] += src[i] * v
		}
	}
}

func ensureCapacity(buf []float32, n int) []float32 {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float32, n)
}
