package track

import (
	"github.com/shaban/daw/clip"
	"github.com/shaban/daw/internal/dawerr"
)

// requireOwned returns dawerr.ErrPreconditionFailed if c is not on
// this track.
func (t *Track) requireOwned(c *clip.AudioClip) error {
	if !t.HasClip(c.ID) {
		return dawerr.PreconditionFailed("clip %s is not owned by this track", c.ID)
	}
	return nil
}

// MoveClip relocates a clip to a new start position on the timeline.
// Fails with PreconditionFailed if the clip isn't on this track.
func (t *Track) MoveClip(c *clip.AudioClip, newStart int64) error {
	if err := t.requireOwned(c); err != nil {
		return err
	}
	return c.SetStartPosition(newStart)
}

// TrimClip changes a clip's start position and/or length in place.
// Either argument may be nil to leave that field unchanged. Fails with
// PreconditionFailed if the clip isn't on this track.
func (t *Track) TrimClip(c *clip.AudioClip, newStart, newLength *int64) error {
	if err := t.requireOwned(c); err != nil {
		return err
	}
	if newStart != nil {
		if err := c.SetStartPosition(*newStart); err != nil {
			return err
		}
	}
	if newLength != nil {
		if err := c.SetLength(*newLength); err != nil {
			return err
		}
	}
	return nil
}

// SplitClip splits a clip at splitPosition (an absolute timeline
// sample position strictly inside the clip's span) into two clips:
// the receiver clip is trimmed to end at splitPosition, and a new
// clip covering [splitPosition, original end) is added to the track
// and returned. The new clip shares backing sample storage with the
// original rather than copying it: a WriteSamples on either clip
// writes into that shared buffer and is seen by the other.
// Fails with PreconditionFailed if the clip isn't on this track, or
// InvalidArgument if splitPosition doesn't fall strictly inside the
// clip's span.
func (t *Track) SplitClip(c *clip.AudioClip, splitPosition int64) (*clip.AudioClip, error) {
	if err := t.requireOwned(c); err != nil {
		return nil, err
	}
	if splitPosition <= c.StartPosition || splitPosition >= c.EndPosition() {
		return nil, dawerr.InvalidArgument("split position %d must be strictly inside clip span [%d, %d)", splitPosition, c.StartPosition, c.EndPosition())
	}

	originalEnd := c.EndPosition()
	leftLength := splitPosition - c.StartPosition
	rightLength := originalEnd - splitPosition
	rightSourceOffset := c.SourceOffset + leftLength

	right, err := NewAudioClipSharingStorage(c, rightSourceOffset, rightLength)
	if err != nil {
		return nil, err
	}
	if err := right.SetStartPosition(splitPosition); err != nil {
		return nil, err
	}

	if err := c.SetLength(leftLength); err != nil {
		return nil, err
	}

	t.AddClip(right)
	return right, nil
}

// NewAudioClipSharingStorage creates a new AudioClip over the same
// backing sample buffer as src, with its own Header (fresh id, given
// source offset and length). Storage is shared, not copied, and no
// copy is made on a later write. Exposed so SplitClip's storage
// sharing is testable independent of track ownership.
func NewAudioClipSharingStorage(src *clip.AudioClip, sourceOffset, length int64) (*clip.AudioClip, error) {
	shared := src.Samples()
	c, err := clip.NewAudioClipFromSamples(src.Name, src.Channels(), src.SampleRate(), shared)
	if err != nil {
		return nil, err
	}
	// Order matters: SetLength/SetSourceOffset each validate
	// sourceOffset+length against the storage bound, so shrink length
	// to the target window before growing the offset into it.
	if err := c.SetLength(length); err != nil {
		return nil, err
	}
	if err := c.SetSourceOffset(sourceOffset); err != nil {
		return nil, err
	}
	c.Gain = src.Gain
	c.Color = src.Color
	return c, nil
}
