// Package clip implements the timeline-placement half of the
// Track/Clip model: a Clip owns a position and length on the session
// timeline, plus gain, mute, and fade envelopes shared by every clip
// variant. AudioClip (audioclip.go) is the one variant this engine
// implements; future variants (MIDI) model as siblings sharing this
// header, dispatched on Kind rather than through a class hierarchy.
package clip

import (
	"github.com/google/uuid"

	"github.com/shaban/daw/internal/dawerr"
)

// Kind tags which clip variant a Clip is.
type Kind string

// KindAudio is the only clip variant this engine implements.
const KindAudio Kind = "audio"

// Header holds the fields common to every clip variant.
type Header struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	StartPosition int64     `json:"start_position"`
	Length        int64     `json:"length"`
	SourceOffset  int64     `json:"source_offset"`
	Gain          float64   `json:"gain"`
	IsMuted       bool      `json:"is_muted"`
	FadeInLength  int64     `json:"fade_in_length"`
	FadeOutLength int64     `json:"fade_out_length"`
	Color         string    `json:"color"`
}

// EndPosition returns StartPosition + Length.
func (h Header) EndPosition() int64 { return h.StartPosition + h.Length }

// newHeader validates and constructs a Header with a fresh ID.
func newHeader(name string, startPosition, length, sourceOffset int64, gain float64, fadeIn, fadeOut int64, color string) (Header, error) {
	h := Header{
		ID:            uuid.New(),
		Name:          name,
		StartPosition: startPosition,
		Length:        length,
		SourceOffset:  sourceOffset,
		Gain:          gain,
		FadeInLength:  fadeIn,
		FadeOutLength: fadeOut,
		Color:         color,
	}
	if err := h.validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

func (h Header) validate() error {
	if h.StartPosition < 0 {
		return dawerr.InvalidArgument("start position must be >= 0, got %d", h.StartPosition)
	}
	if h.Length < 0 {
		return dawerr.InvalidArgument("length must be >= 0, got %d", h.Length)
	}
	if h.SourceOffset < 0 {
		return dawerr.InvalidArgument("source offset must be >= 0, got %d", h.SourceOffset)
	}
	if h.Gain < 0 {
		return dawerr.InvalidArgument("gain must be >= 0, got %v", h.Gain)
	}
	if h.FadeInLength < 0 {
		return dawerr.InvalidArgument("fade in length must be >= 0, got %d", h.FadeInLength)
	}
	if h.FadeOutLength < 0 {
		return dawerr.InvalidArgument("fade out length must be >= 0, got %d", h.FadeOutLength)
	}
	return nil
}

// fadeEnvelope computes the multiplicative fade gain at offset r
// within [0, length). Fade-in and fade-out compose multiplicatively
// when their windows overlap; the combined length is intentionally
// not clamped to the clip length.
func fadeEnvelope(r, length, fadeIn, fadeOut int64) float64 {
	e := 1.0
	if fadeIn > 0 && r < fadeIn {
		e *= float64(r) / float64(fadeIn)
	}
	fadeOutStart := length - fadeOut
	if fadeOut > 0 && r >= fadeOutStart {
		e *= 1.0 - float64(r-fadeOutStart)/float64(fadeOut)
	}
	return e
}
