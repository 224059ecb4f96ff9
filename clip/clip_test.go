package clip

import (
	"errors"
	"testing"

	"github.com/shaban/daw/internal/dawerr"
)

func TestNewHeaderAssignsFreshID(t *testing.T) {
	a, err := newHeader("a", 0, 10, 0, 1.0, 0, 0, "")
	if err != nil {
		t.Fatalf("newHeader: %v", err)
	}
	b, err := newHeader("b", 0, 10, 0, 1.0, 0, 0, "")
	if err != nil {
		t.Fatalf("newHeader: %v", err)
	}
	if a.ID == b.ID {
		t.Error("two headers got the same ID")
	}
}

func TestHeaderEndPosition(t *testing.T) {
	h := Header{StartPosition: 100, Length: 50}
	if got := h.EndPosition(); got != 150 {
		t.Errorf("EndPosition() = %d, want 150", got)
	}
}

func TestNewHeaderValidates(t *testing.T) {
	cases := []struct {
		name                                     string
		start, length, offset                    int64
		gain                                     float64
		fadeIn, fadeOut                          int64
	}{
		{"negative start", -1, 10, 0, 1.0, 0, 0},
		{"negative length", 0, -1, 0, 1.0, 0, 0},
		{"negative offset", 0, 10, -1, 1.0, 0, 0},
		{"negative gain", 0, 10, 0, -1.0, 0, 0},
		{"negative fade in", 0, 10, 0, 1.0, -1, 0},
		{"negative fade out", 0, 10, 0, 1.0, 0, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newHeader("x", tc.start, tc.length, tc.offset, tc.gain, tc.fadeIn, tc.fadeOut, "")
			if !errors.Is(err, dawerr.ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestFadeEnvelopeNoFades(t *testing.T) {
	if got := fadeEnvelope(50, 100, 0, 0); got != 1.0 {
		t.Errorf("fadeEnvelope with no fades = %v, want 1.0", got)
	}
}

func TestFadeEnvelopeFadeIn(t *testing.T) {
	if got := fadeEnvelope(0, 100, 10, 0); got != 0.0 {
		t.Errorf("fadeEnvelope(0) with fadeIn=10 = %v, want 0.0", got)
	}
	if got := fadeEnvelope(5, 100, 10, 0); got != 0.5 {
		t.Errorf("fadeEnvelope(5) with fadeIn=10 = %v, want 0.5", got)
	}
	if got := fadeEnvelope(10, 100, 10, 0); got != 1.0 {
		t.Errorf("fadeEnvelope(10) with fadeIn=10 = %v, want 1.0 (fade window is half-open)", got)
	}
}

func TestFadeEnvelopeFadeOut(t *testing.T) {
	// length 100, fadeOut 10: fade-out window starts at r=90.
	if got := fadeEnvelope(90, 100, 0, 10); got != 1.0 {
		t.Errorf("fadeEnvelope(90) at fade-out start = %v, want 1.0", got)
	}
	if got := fadeEnvelope(99, 100, 0, 10); got <= 0 || got >= 1 {
		t.Errorf("fadeEnvelope(99) = %v, want strictly between 0 and 1", got)
	}
}

func TestFadeEnvelopeOverlapMultiplies(t *testing.T) {
	// length 10, fadeIn 10, fadeOut 10: every sample is inside both
	// windows, so the two envelopes compose multiplicatively rather
	// than one simply overriding the other.
	got := fadeEnvelope(5, 10, 10, 10)
	fadeInOnly := 5.0 / 10.0
	fadeOutOnly := 1.0 - float64(5-(10-10))/10.0
	want := fadeInOnly * fadeOutOnly
	if got != want {
		t.Errorf("fadeEnvelope overlap = %v, want %v (multiplicative composition)", got, want)
	}
}
