// Package dawerr defines the error taxonomy shared by every subsystem
// of the engine: Clock, Transport, Clip, Track, Mixer, and the WAV
// codec boundary. Callers branch on kind with errors.Is against the
// sentinels below; the constructors attach context via fmt.Errorf's
// %w verb so the sentinel survives wrapping.
package dawerr

import (
	"errors"
	"fmt"
)

// Sentinels. Exactly one per error kind the engine distinguishes.
var (
	// ErrInvalidArgument marks a rejected call whose inputs violate a
	// precondition (negative position/length/count, pan out of
	// [-1,1], non-positive tempo, non-power-of-two time-signature
	// denominator, count%channels != 0, end < start, ...).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPreconditionFailed marks an edit targeting state that isn't
	// in the expected relationship (a clip not owned by the track it
	// was asked to be edited on, starting playback against an
	// uninitialised dependency).
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidData marks malformed codec input (bad RIFF/WAVE
	// magic, unsupported format tag, missing chunk).
	ErrInvalidData = errors.New("invalid data")

	// ErrNotFound marks a missing resource (an import path that does
	// not exist).
	ErrNotFound = errors.New("not found")

	// ErrResourceExhausted marks an output buffer too small to hold
	// the requested frames.
	ErrResourceExhausted = errors.New("resource exhausted")
)

// InvalidArgument builds an ErrInvalidArgument with context.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrInvalidArgument, args)...)
}

// PreconditionFailed builds an ErrPreconditionFailed with context.
func PreconditionFailed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrPreconditionFailed, args)...)
}

// InvalidData builds an ErrInvalidData with context.
func InvalidData(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrInvalidData, args)...)
}

// NotFound builds an ErrNotFound with context.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrNotFound, args)...)
}

// ResourceExhausted builds an ErrResourceExhausted with context.
func ResourceExhausted(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrResourceExhausted, args)...)
}

func prepend(sentinel error, args []any) []any {
	out := make([]any, 0, len(args)+1)
	out = append(out, sentinel)
	out = append(out, args...)
	return out
}
