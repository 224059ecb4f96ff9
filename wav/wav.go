// Package wav implements the WAV codec boundary: decoding RIFF/WAVE
// PCM (16/24/32-bit) or IEEE float 32-bit, 1-8 channel input into
// interleaved float32 samples, and encoding the same shape back out
// to a canonical RIFF/WAVE byte stream.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"

	goWav "github.com/youpy/go-wav"

	"github.com/shaban/daw/internal/dawerr"
)

// FormatTag mirrors the canonical fmt-chunk audio_format values.
type FormatTag int

const (
	FormatPCM   FormatTag = 1
	FormatFloat FormatTag = 3
)

// Decoded is the shape the importer produces: interleaved float
// samples plus {sample_rate, channel_count, bit_depth, format_tag}.
type Decoded struct {
	Samples    []float32
	Channels   int
	SampleRate int
	BitDepth   int
	FormatTag  FormatTag
}

// Import decodes a RIFF/WAVE byte stream via github.com/youpy/go-wav,
// converting every sample to a float32 in [-1, 1] regardless of the
// source bit depth. Returns dawerr.ErrInvalidData if the RIFF/WAVE
// magic is missing, the format tag is neither PCM nor IEEE float, or a
// required chunk is absent.
func Import(r io.Reader) (Decoded, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Decoded{}, dawerr.InvalidData("reading WAV input: %v", err)
	}
	if len(data) < 12 || string(data[8:12]) != "WAVE" {
		return Decoded{}, dawerr.InvalidData("missing WAVE magic")
	}
	reader := goWav.NewReader(bytes.NewReader(data))

	format, err := reader.Format()
	if err != nil {
		return Decoded{}, dawerr.InvalidData("reading WAV format chunk: %v", err)
	}

	channels := int(format.NumChannels)
	if channels < 1 || channels > 8 {
		return Decoded{}, dawerr.InvalidData("unsupported channel count: %d", channels)
	}
	formatTag := FormatTag(format.AudioFormat)
	if formatTag != FormatPCM && formatTag != FormatFloat {
		return Decoded{}, dawerr.InvalidData("unsupported WAV format tag: %d", format.AudioFormat)
	}

	var samples []float32
	for {
		batch, err := reader.ReadSamples()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Decoded{}, dawerr.InvalidData("reading WAV samples: %v", err)
		}
		for _, s := range batch {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, float32(reader.FloatValue(s, uint(ch))))
			}
		}
	}

	return Decoded{
		Samples:    samples,
		Channels:   channels,
		SampleRate: int(format.SampleRate),
		BitDepth:   int(format.BitsPerSample),
		FormatTag:  formatTag,
	}, nil
}

// ImportFile opens path and decodes it via Import. Import itself only
// ever sees a byte stream and has no path to report missing; a
// missing or unreadable file surfaces dawerr.ErrNotFound instead.
func ImportFile(path string) (Decoded, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Decoded{}, dawerr.NotFound("WAV file %q does not exist", path)
		}
		return Decoded{}, dawerr.NotFound("opening %q: %v", path, err)
	}
	defer f.Close()
	return Import(f)
}

// Export writes samples (interleaved by channel) as a canonical RIFF
// WAV: a 12-byte RIFF header, a 16-byte fmt chunk
// (audio_format = 1 for PCM or 3 for IEEE float), and a data chunk
// sized to the sample payload. Every sample is clamped to [-1, 1]
// before scaling to bitDepth: 16-bit -> x32767, 24-bit -> x8388607
// (little-endian 3-byte), 32-bit PCM -> x2147483647, 32-bit float ->
// written directly.
func Export(w io.Writer, samples []float32, channels, sampleRate, bitDepth int, float bool) error {
	if channels < 1 || channels > 8 {
		return dawerr.InvalidArgument("channels must be in [1, 8], got %d", channels)
	}
	if sampleRate <= 0 {
		return dawerr.InvalidArgument("sample rate must be positive, got %d", sampleRate)
	}
	bytesPerSample, err := bytesForBitDepth(bitDepth, float)
	if err != nil {
		return err
	}

	dataSize := len(samples) * bytesPerSample
	blockAlign := channels * bytesPerSample
	byteRate := sampleRate * blockAlign
	formatTag := FormatPCM
	if float {
		formatTag = FormatFloat
	}

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, "RIFF"...)
	buf = appendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = appendUint32(buf, 16)
	buf = appendUint16(buf, uint16(formatTag))
	buf = appendUint16(buf, uint16(channels))
	buf = appendUint32(buf, uint32(sampleRate))
	buf = appendUint32(buf, uint32(byteRate))
	buf = appendUint16(buf, uint16(blockAlign))
	buf = appendUint16(buf, uint16(bitDepth))

	buf = append(buf, "data"...)
	buf = appendUint32(buf, uint32(dataSize))

	for _, s := range samples {
		clamped := s
		if clamped > 1 {
			clamped = 1
		}
		if clamped < -1 {
			clamped = -1
		}
		buf = appendSample(buf, clamped, bitDepth, float)
	}

	_, err = w.Write(buf)
	return err
}

func bytesForBitDepth(bitDepth int, float bool) (int, error) {
	switch {
	case float && bitDepth == 32:
		return 4, nil
	case !float && bitDepth == 16:
		return 2, nil
	case !float && bitDepth == 24:
		return 3, nil
	case !float && bitDepth == 32:
		return 4, nil
	default:
		return 0, dawerr.InvalidArgument("unsupported bit depth/format combination: %d bits, float=%v", bitDepth, float)
	}
}

func appendSample(buf []byte, s float32, bitDepth int, float bool) []byte {
	switch {
	case float && bitDepth == 32:
		return appendUint32(buf, math.Float32bits(s))
	case !float && bitDepth == 16:
		v := int16(math.Round(float64(s) * 32767))
		return appendUint16(buf, uint16(v))
	case !float && bitDepth == 24:
		v := int32(math.Round(float64(s) * 8388607))
		b := []byte{byte(v), byte(v >> 8), byte(v >> 16)}
		return append(buf, b...)
	case !float && bitDepth == 32:
		v := int32(math.Round(float64(s) * 2147483647))
		return appendUint32(buf, uint32(v))
	default:
		return buf
	}
}

func appendUint16(buf []byte, v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return append(buf, b...)
}

func appendUint32(buf []byte, v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return append(buf, b...)
}

// NormalizeChannels implements the channel-count normalization from
// an importer's output to an AudioClip's stereo storage: mono is
// duplicated to L=R stereo, stereo passes through, and 3+ channels
// are downmixed to stereo by averaging even-indexed channels to L and
// odd-indexed to R (R falls back to L if there are no odd channels).
func NormalizeChannels(samples []float32, channels int) []float32 {
	switch {
	case channels == 1:
		out := make([]float32, len(samples)*2)
		for i, v := range samples {
			out[2*i] = v
			out[2*i+1] = v
		}
		return out
	case channels == 2:
		return samples
	default:
		frames := len(samples) / channels
		out := make([]float32, frames*2)
		for f := 0; f < frames; f++ {
			base := f * channels
			var left, right float32
			var leftN, rightN int
			for ch := 0; ch < channels; ch++ {
				if ch%2 == 0 {
					left += samples[base+ch]
					leftN++
				} else {
					right += samples[base+ch]
					rightN++
				}
			}
			if leftN > 0 {
				left /= float32(leftN)
			}
			if rightN > 0 {
				right /= float32(rightN)
			} else {
				right = left
			}
			out[2*f] = left
			out[2*f+1] = right
		}
		return out
	}
}
