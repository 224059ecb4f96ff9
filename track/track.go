// Package track implements an ordered container of clips plus volume,
// pan, mute, solo, and arm state, and renders its clips into a
// caller-supplied buffer at a given transport position. Pan is not
// applied here: the mixer applies pan after per-track rendering.
package track

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shaban/daw/clip"
	"github.com/shaban/daw/eventbus"
	"github.com/shaban/daw/internal/dawerr"
)

// Track is an ordered container of clips. Clips are owned exclusively
// by their track: a clip belongs to at most one track at a time.
type Track struct {
	ID uuid.UUID

	mu sync.RWMutex

	name    string
	color   string
	volume  float64
	pan     float64
	muted   bool
	solo    bool
	armed   bool
	clips   []*clip.AudioClip
	byID    map[uuid.UUID]*clip.AudioClip

	// scratch is ProcessAudio's per-clip read buffer and clipsScratch
	// its copy of the clip list, both grown to the high-water mark and
	// reused across calls so the audio-thread hot path never allocates.
	// ProcessAudio is only ever called from the single audio thread
	// driving a given buffer callback, so no lock guards them.
	scratch      []float32
	clipsScratch []*clip.AudioClip

	bus *eventbus.Bus
}

// New creates an empty Track with default volume 1.0, pan 0.0.
func New(name string) *Track {
	return &Track{
		ID:     uuid.New(),
		name:   name,
		volume: 1.0,
		byID:   make(map[uuid.UUID]*clip.AudioClip),
	}
}

// WithEventBus attaches a bus for clip-added/clip-removed/property
// notifications.
func (t *Track) WithEventBus(bus *eventbus.Bus) *Track {
	t.bus = bus
	return t
}

// Name returns the track's display name.
func (t *Track) Name() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name
}

// SetName changes the track's display name.
func (t *Track) SetName(name string) {
	t.mu.Lock()
	t.name = name
	t.mu.Unlock()
	t.publishProperty("name", name)
}

// Color returns the track's opaque color tag.
func (t *Track) Color() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.color
}

// SetColor changes the track's opaque color tag.
func (t *Track) SetColor(color string) {
	t.mu.Lock()
	t.color = color
	t.mu.Unlock()
	t.publishProperty("color", color)
}

// Volume returns the linear volume multiplier.
func (t *Track) Volume() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.volume
}

// SetVolume changes the linear volume multiplier. Rejects negative
// values.
func (t *Track) SetVolume(v float64) error {
	if v < 0 {
		return dawerr.InvalidArgument("volume must be >= 0, got %v", v)
	}
	t.mu.Lock()
	t.volume = v
	t.mu.Unlock()
	t.publishProperty("volume", v)
	return nil
}

// Pan returns the pan position in [-1, 1].
func (t *Track) Pan() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pan
}

// SetPan changes the pan position. Rejects values outside [-1, 1].
func (t *Track) SetPan(p float64) error {
	if p < -1.0 || p > 1.0 {
		return dawerr.InvalidArgument("pan must be in [-1, 1], got %v", p)
	}
	t.mu.Lock()
	t.pan = p
	t.mu.Unlock()
	t.publishProperty("pan", p)
	return nil
}

// IsMuted returns the mute flag.
func (t *Track) IsMuted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.muted
}

// SetMuted sets the mute flag.
func (t *Track) SetMuted(m bool) {
	t.mu.Lock()
	t.muted = m
	t.mu.Unlock()
	t.publishProperty("is_muted", m)
}

// IsSolo returns the solo flag.
func (t *Track) IsSolo() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.solo
}

// SetSolo sets the solo flag.
func (t *Track) SetSolo(s bool) {
	t.mu.Lock()
	t.solo = s
	t.mu.Unlock()
	t.publishProperty("is_solo", s)
}

// IsArmed returns the record-arm flag.
func (t *Track) IsArmed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.armed
}

// SetArmed sets the record-arm flag.
func (t *Track) SetArmed(a bool) {
	t.mu.Lock()
	t.armed = a
	t.mu.Unlock()
	t.publishProperty("is_armed", a)
}

// AddClip adds a clip to the track, in insertion order.
func (t *Track) AddClip(c *clip.AudioClip) {
	t.mu.Lock()
	t.clips = append(t.clips, c)
	t.byID[c.ID] = c
	t.mu.Unlock()
	t.publishClip(eventbus.KindClipAdded, c.ID)
}

// RemoveClip removes a clip by identity. Returns false if the clip
// wasn't on this track.
func (t *Track) RemoveClip(c *clip.AudioClip) bool {
	return t.RemoveClipByID(c.ID)
}

// RemoveClipByID removes a clip by id. Returns false if no clip with
// that id is on this track.
func (t *Track) RemoveClipByID(id uuid.UUID) bool {
	t.mu.Lock()
	if _, ok := t.byID[id]; !ok {
		t.mu.Unlock()
		return false
	}
	delete(t.byID, id)
	for i, c := range t.clips {
		if c.ID == id {
			t.clips = append(t.clips[:i], t.clips[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
	t.publishClip(eventbus.KindClipRemoved, id)
	return true
}

// ClearClips removes every clip from the track.
func (t *Track) ClearClips() {
	t.mu.Lock()
	ids := make([]uuid.UUID, 0, len(t.clips))
	for _, c := range t.clips {
		ids = append(ids, c.ID)
	}
	t.clips = nil
	t.byID = make(map[uuid.UUID]*clip.AudioClip)
	t.mu.Unlock()
	for _, id := range ids {
		t.publishClip(eventbus.KindClipRemoved, id)
	}
}

// Clips returns a read-only snapshot of the track's clips in
// insertion order.
func (t *Track) Clips() []*clip.AudioClip {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*clip.AudioClip, len(t.clips))
	copy(out, t.clips)
	return out
}

// HasClip reports whether a clip with the given id is on this track.
func (t *Track) HasClip(id uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byID[id]
	return ok
}

// GetClipsInRange returns every clip whose
// [start_position, end_position) intersects [start, end), sorted by
// start_position ascending. Rejects end < start.
func (t *Track) GetClipsInRange(start, end int64) ([]*clip.AudioClip, error) {
	if end < start {
		return nil, dawerr.InvalidArgument("end (%d) must be >= start (%d)", end, start)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*clip.AudioClip
	for _, c := range t.clips {
		if c.EndPosition() > start && c.StartPosition < end {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartPosition < out[j].StartPosition })
	return out, nil
}

// ProcessAudio renders every clip intersecting
// [timelinePosition, timelinePosition+count/channels) into
// dst[offset:offset+count], additively, then applies the track
// volume. count is a sample count, not a frame count. Pan is not
// applied; the mixer applies pan separately.
func (t *Track) ProcessAudio(dst []float32, offset int, count int, timelinePosition int64) error {
	if offset < 0 || count < 0 {
		return dawerr.InvalidArgument("offset and count must be >= 0, got %d, %d", offset, count)
	}
	if offset+count > len(dst) {
		return dawerr.InvalidArgument("destination buffer too small: need %d, have %d", offset+count, len(dst))
	}

	t.mu.RLock()
	muted := t.muted
	volume := t.volume
	t.clipsScratch = append(t.clipsScratch[:0], t.clips...)
	clips := t.clipsScratch
	t.mu.RUnlock()

	window := dst[offset : offset+count]
	if muted {
		clear(window)
		return nil
	}

	var channels int
	if len(clips) > 0 {
		channels = clips[0].Channels()
	}
	if channels <= 0 {
		channels = 2
	}
	frameCount := int64(count / channels)
	endPosition := timelinePosition + frameCount

	if cap(t.scratch) < count {
		t.scratch = make([]float32, count)
	}
	scratch := t.scratch[:count]
	contributed := false
	for _, c := range clips {
		if c.EndPosition() <= timelinePosition || c.StartPosition >= endPosition {
			continue
		}
		clear(scratch)
		n, err := c.ReadSamples(scratch, 0, count, timelinePosition)
		if err != nil {
			continue
		}
		if n > 0 {
			contributed = true
		}
		for i := range window {
			window[i] += scratch[i]
		}
	}

	if contributed {
		scale := float32(volume)
		for i := range window {
			window[i] *= scale
		}
	}
	return nil
}

// PeakAmplitude returns the maximum peak across every non-muted clip
// intersecting [position, position+window), scaled by the track's
// volume.
func (t *Track) PeakAmplitude(position int64, window int64) float64 {
	t.mu.RLock()
	volume := t.volume
	clips := make([]*clip.AudioClip, len(t.clips))
	copy(clips, t.clips)
	t.mu.RUnlock()

	var peak float64
	for _, c := range clips {
		if c.IsMuted {
			continue
		}
		p := c.PeakAmplitude(position, window)
		if p > peak {
			peak = p
		}
	}
	return peak * volume
}

func (t *Track) publishProperty(field string, value any) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(eventbus.Event{Kind: eventbus.KindPropertyChange, EntityID: t.ID.String(), Field: field, Value: value})
}

func (t *Track) publishClip(kind eventbus.Kind, id uuid.UUID) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(eventbus.Event{Kind: kind, EntityID: t.ID.String(), Field: "clip_id", Value: id.String()})
}
