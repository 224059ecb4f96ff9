// Command dawdemo is an architecture demonstration: it builds a small
// session graph in memory, loads a tone into a track, renders a few
// buffers through the mixer, and writes the result to a WAV file.
// There is no native engine or hardware device bound here; every
// buffer is rendered in Go.
package main

import (
	"fmt"
	"log"
	"math"
	"os"

	"github.com/shaban/daw/clip"
	"github.com/shaban/daw/eventbus"
	"github.com/shaban/daw/session"
	"github.com/shaban/daw/wav"
)

const (
	sampleRate  = 48000
	bufferSize  = 512
	bufferCount = 20
)

func main() {
	fmt.Println("DAW Engine v1.0 - Architecture Demonstration")
	fmt.Println("=============================================")

	s, err := session.New(session.Config{SampleRate: sampleRate})
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	defer s.Close()

	s.Subscribe(func(ev eventbus.Event) {
		fmt.Printf("event: kind=%s entity=%s field=%s\n", ev.Kind, ev.EntityID, ev.Field)
	})

	fmt.Println("\nCreating tracks...")
	lead := s.NewTrack("demo_lead")
	if err := lead.SetPan(-0.3); err != nil {
		log.Printf("Failed to pan lead track: %v", err)
	}
	fmt.Printf("Created track: %s (%s)\n", lead.Name(), lead.ID)

	tone, err := toneClip("A440", 440.0, 2.0)
	if err != nil {
		log.Fatalf("Failed to build demo tone: %v", err)
	}
	lead.AddClip(tone)
	fmt.Printf("Loaded clip %q: %d frames at %d Hz\n", tone.Name, tone.FramesInStorage(), tone.SampleRate())

	fmt.Println("\nRendering buffers...")
	s.Transport.Play()
	out := make([]float32, bufferSize*s.Mixer.ChannelCount())
	var rendered []float32
	for i := 0; i < bufferCount; i++ {
		s.HardwareCallback(out, bufferSize)
		rendered = append(rendered, out...)
	}

	metrics := s.Metrics()
	fmt.Printf("- Buffers rendered: %d\n", metrics.BuffersRendered)
	fmt.Printf("- Max callback duration: %v\n", metrics.MaxDuration)
	fmt.Printf("- Transport position: %d samples\n", s.Transport.Position())

	outPath := "dawdemo_output.wav"
	f, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	if err := wav.Export(f, rendered, s.Mixer.ChannelCount(), sampleRate, 16, false); err != nil {
		log.Fatalf("Failed to export WAV: %v", err)
	}
	fmt.Printf("\nWrote %s (%d frames)\n", outPath, len(rendered)/s.Mixer.ChannelCount())
}

// toneClip builds a mono-source, stereo-storage sine tone clip for the
// demo: a pure software stand-in for loading a recorded sample off
// disk via wav.Import.
func toneClip(name string, freq, seconds float64) (*clip.AudioClip, error) {
	frames := int(seconds * sampleRate)
	samples := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		v := float32(0.2 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
		samples[2*i] = v
		samples[2*i+1] = v
	}
	return clip.NewAudioClipFromSamples(name, 2, sampleRate, samples)
}
