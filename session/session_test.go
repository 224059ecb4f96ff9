package session

import (
	"testing"
	"time"

	"github.com/shaban/daw/eventbus"
	"github.com/shaban/daw/transport"
)

func TestNewWiresClockTransportMixer(t *testing.T) {
	s, err := New(Config{SampleRate: 48000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Clock.SampleRate() != 48000 {
		t.Errorf("Clock.SampleRate() = %d, want 48000", s.Clock.SampleRate())
	}
	if s.Mixer.ChannelCount() != 2 {
		t.Errorf("Mixer.ChannelCount() = %d, want default 2", s.Mixer.ChannelCount())
	}
	if s.Transport.State() != transport.Stopped {
		t.Errorf("Transport.State() = %v, want Stopped", s.Transport.State())
	}
}

func TestNewPropagatesClockValidationError(t *testing.T) {
	if _, err := New(Config{SampleRate: 0}); err == nil {
		t.Fatal("New with sampleRate=0 should fail")
	}
}

func TestNewTrackIsAddedToMixer(t *testing.T) {
	s, err := New(Config{SampleRate: 48000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr := s.NewTrack("drums")
	found := false
	for _, candidate := range s.Mixer.GetTracks() {
		if candidate.ID == tr.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("NewTrack's track was not added to the mixer")
	}
}

func TestHardwareCallbackAdvancesOnlyWhenPlaying(t *testing.T) {
	s, err := New(Config{SampleRate: 48000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	out := make([]float32, 8)
	s.HardwareCallback(out, 4)
	if s.Transport.Position() != 0 {
		t.Fatalf("Position() after callback while Stopped = %d, want 0", s.Transport.Position())
	}

	s.Transport.Play()
	s.HardwareCallback(out, 4)
	if s.Transport.Position() != 4 {
		t.Fatalf("Position() after callback while Playing = %d, want 4", s.Transport.Position())
	}
}

func TestHardwareCallbackRecordsMetrics(t *testing.T) {
	s, err := New(Config{SampleRate: 48000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	out := make([]float32, 8)
	s.HardwareCallback(out, 4)
	snap := s.Metrics()
	if snap.BuffersRendered != 1 {
		t.Fatalf("BuffersRendered = %d, want 1", snap.BuffersRendered)
	}
}

func TestSubscribeReceivesTrackEvents(t *testing.T) {
	s, err := New(Config{SampleRate: 48000, EventBufferSize: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	received := make(chan eventbus.Event, 4)
	s.Subscribe(func(ev eventbus.Event) { received <- ev })

	s.NewTrack("bass")

	select {
	case ev := <-received:
		if ev.Kind != eventbus.KindTrackAdded {
			t.Fatalf("got event kind %v, want KindTrackAdded", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received for NewTrack")
	}
}
