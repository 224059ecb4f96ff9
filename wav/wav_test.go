package wav

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/shaban/daw/internal/dawerr"
)

func TestExportWritesCanonicalHeader(t *testing.T) {
	var buf bytes.Buffer
	samples := []float32{0.5, -0.5, 0.25, -0.25}
	if err := Export(&buf, samples, 2, 48000, 16, false); err != nil {
		t.Fatalf("Export: %v", err)
	}

	data := buf.Bytes()
	if string(data[0:4]) != "RIFF" {
		t.Fatalf("missing RIFF magic, got %q", data[0:4])
	}
	if string(data[8:12]) != "WAVE" {
		t.Fatalf("missing WAVE magic, got %q", data[8:12])
	}
	if string(data[12:16]) != "fmt " {
		t.Fatalf("missing fmt chunk id, got %q", data[12:16])
	}
	dataChunkID := string(data[36:40])
	if dataChunkID != "data" {
		t.Fatalf("missing data chunk id, got %q", dataChunkID)
	}

	wantDataSize := len(samples) * 2 // 16-bit = 2 bytes/sample
	if len(data) != 44+wantDataSize {
		t.Fatalf("total size = %d, want %d", len(data), 44+wantDataSize)
	}
}

func TestExportRejectsInvalidChannelCount(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, nil, 0, 48000, 16, false); err == nil {
		t.Fatal("Export with channels=0 should fail")
	}
	if err := Export(&buf, nil, 9, 48000, 16, false); err == nil {
		t.Fatal("Export with channels=9 should fail")
	}
}

func TestExportRejectsNonPositiveSampleRate(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, nil, 2, 0, 16, false); err == nil {
		t.Fatal("Export with sampleRate=0 should fail")
	}
}

func TestExportRejectsUnsupportedBitDepth(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, []float32{0}, 1, 48000, 12, false); err == nil {
		t.Fatal("Export with an unsupported bit depth should fail")
	}
}

func TestExport16BitClampsAndScales(t *testing.T) {
	var buf bytes.Buffer
	samples := []float32{1.0, -1.0, 2.0, -2.0} // last two clamp to [-1, 1]
	if err := Export(&buf, samples, 1, 48000, 16, false); err != nil {
		t.Fatalf("Export: %v", err)
	}
	data := buf.Bytes()[44:]
	if len(data) != 8 {
		t.Fatalf("data length = %d, want 8", len(data))
	}
	readI16 := func(off int) int16 {
		return int16(uint16(data[off]) | uint16(data[off+1])<<8)
	}
	if got := readI16(0); got != 32767 {
		t.Errorf("sample 0 = %d, want 32767", got)
	}
	if got := readI16(2); got != -32767 {
		t.Errorf("sample 1 = %d, want -32767", got)
	}
	if got := readI16(4); got != 32767 {
		t.Errorf("clamped sample 2 = %d, want 32767", got)
	}
	if got := readI16(6); got != -32767 {
		t.Errorf("clamped sample 3 = %d, want -32767", got)
	}
}

func TestExportFloat32WritesRawBits(t *testing.T) {
	var buf bytes.Buffer
	samples := []float32{0.5, -0.5}
	if err := Export(&buf, samples, 1, 48000, 32, true); err != nil {
		t.Fatalf("Export: %v", err)
	}
	data := buf.Bytes()[44:]
	got := math.Float32frombits(uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24)
	if got != 0.5 {
		t.Errorf("sample 0 = %v, want 0.5", got)
	}
}

func TestNormalizeChannelsMonoDuplicates(t *testing.T) {
	got := NormalizeChannels([]float32{0.5, -0.5}, 1)
	want := []float32{0.5, 0.5, -0.5, -0.5}
	if !equalFloat32(got, want) {
		t.Errorf("NormalizeChannels(mono) = %v, want %v", got, want)
	}
}

func TestNormalizeChannelsStereoPassesThrough(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3, 0.4}
	got := NormalizeChannels(in, 2)
	if !equalFloat32(got, in) {
		t.Errorf("NormalizeChannels(stereo) = %v, want unchanged %v", got, in)
	}
}

func TestNormalizeChannelsDownmixesMultichannel(t *testing.T) {
	// 4 channels, 1 frame: ch0, ch1, ch2, ch3 -> L = avg(ch0, ch2), R = avg(ch1, ch3)
	in := []float32{1.0, 2.0, 3.0, 4.0}
	got := NormalizeChannels(in, 4)
	want := []float32{2.0, 3.0} // (1+3)/2, (2+4)/2
	if !equalFloat32(got, want) {
		t.Errorf("NormalizeChannels(4ch) = %v, want %v", got, want)
	}
}

func equalFloat32(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestImportExportRoundTrip16Bit checks the quantization-bound round
// trip: export then import must agree within 2^-15 for 16-bit PCM.
func TestImportExportRoundTrip16Bit(t *testing.T) {
	samples := []float32{0.5, -0.5, 0.25, -0.75, 1.0, -1.0}
	var buf bytes.Buffer
	if err := Export(&buf, samples, 2, 48000, 16, false); err != nil {
		t.Fatalf("Export: %v", err)
	}

	got, err := Import(&buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got.Channels != 2 {
		t.Errorf("Channels = %d, want 2", got.Channels)
	}
	if got.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", got.SampleRate)
	}
	if got.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16", got.BitDepth)
	}
	if len(got.Samples) != len(samples) {
		t.Fatalf("len(Samples) = %d, want %d", len(got.Samples), len(samples))
	}

	const bound = 1.0 / 32768.0 // 2^-15
	for i, want := range samples {
		if want > 1 {
			want = 1
		}
		if want < -1 {
			want = -1
		}
		if diff := math.Abs(float64(got.Samples[i] - want)); diff > bound {
			t.Errorf("sample %d = %v, want %v within %v (diff %v)", i, got.Samples[i], want, bound, diff)
		}
	}
}

// TestImportExportRoundTripFloat32 checks the round trip for the
// lossless 32-bit float path: the values come back exact.
func TestImportExportRoundTripFloat32(t *testing.T) {
	samples := []float32{0.123456, -0.654321, 0.0, -1.0, 1.0}
	var buf bytes.Buffer
	if err := Export(&buf, samples, 1, 44100, 32, true); err != nil {
		t.Fatalf("Export: %v", err)
	}

	got, err := Import(&buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !equalFloat32(got.Samples, samples) {
		t.Errorf("Samples = %v, want exact %v", got.Samples, samples)
	}
	if got.FormatTag != FormatFloat {
		t.Errorf("FormatTag = %v, want FormatFloat", got.FormatTag)
	}
}

// TestImportRejectsBadRIFFMagic corrupts the leading RIFF magic of an
// otherwise-valid export and expects dawerr.ErrInvalidData.
func TestImportRejectsBadRIFFMagic(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, []float32{0.1, 0.2}, 2, 48000, 16, false); err != nil {
		t.Fatalf("Export: %v", err)
	}
	data := buf.Bytes()
	copy(data[0:4], "XXXX")

	if _, err := Import(bytes.NewReader(data)); !errors.Is(err, dawerr.ErrInvalidData) {
		t.Fatalf("Import with bad RIFF magic err = %v, want ErrInvalidData", err)
	}
}

// TestImportRejectsBadWaveMagic corrupts the WAVE magic of an
// otherwise-valid export and expects dawerr.ErrInvalidData.
func TestImportRejectsBadWaveMagic(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, []float32{0.1, 0.2}, 2, 48000, 16, false); err != nil {
		t.Fatalf("Export: %v", err)
	}
	data := buf.Bytes()
	copy(data[8:12], "XXXX")

	if _, err := Import(bytes.NewReader(data)); !errors.Is(err, dawerr.ErrInvalidData) {
		t.Fatalf("Import with bad WAVE magic err = %v, want ErrInvalidData", err)
	}
}

// TestImportRejectsUnsupportedFormatTag sets the fmt chunk's
// audio_format field to a value that is neither PCM (1) nor IEEE
// float (3).
func TestImportRejectsUnsupportedFormatTag(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, []float32{0.1, 0.2}, 2, 48000, 16, false); err != nil {
		t.Fatalf("Export: %v", err)
	}
	data := buf.Bytes()
	// audio_format is the first field of the fmt chunk body, at byte
	// offset 20 (12-byte RIFF header + 8-byte fmt chunk header).
	data[20], data[21] = 99, 0

	if _, err := Import(bytes.NewReader(data)); !errors.Is(err, dawerr.ErrInvalidData) {
		t.Fatalf("Import with unsupported format tag err = %v, want ErrInvalidData", err)
	}
}

// TestImportRejectsMissingFormatChunk corrupts the "fmt " chunk ID of
// an otherwise-valid export, leaving no required format chunk for the
// reader to find.
func TestImportRejectsMissingFormatChunk(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, []float32{0.1, 0.2, 0.3, 0.4}, 2, 48000, 16, false); err != nil {
		t.Fatalf("Export: %v", err)
	}
	data := buf.Bytes()
	copy(data[12:16], "xxx ")

	if _, err := Import(bytes.NewReader(data)); !errors.Is(err, dawerr.ErrInvalidData) {
		t.Fatalf("Import with missing fmt chunk err = %v, want ErrInvalidData", err)
	}
}

// TestImportFileNotFound exercises the file-path edge of the codec
// boundary that Import itself (a byte-stream decoder) has no way to
// raise.
func TestImportFileNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.wav")
	if _, err := ImportFile(path); !errors.Is(err, dawerr.ErrNotFound) {
		t.Fatalf("ImportFile on missing path err = %v, want ErrNotFound", err)
	}
}

// TestImportFileRoundTrip exercises ImportFile's success path against
// a real file on disk.
func TestImportFileRoundTrip(t *testing.T) {
	samples := []float32{0.5, -0.5, 0.25, -0.25}
	var buf bytes.Buffer
	if err := Export(&buf, samples, 2, 48000, 16, false); err != nil {
		t.Fatalf("Export: %v", err)
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ImportFile(path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if len(got.Samples) != len(samples) {
		t.Fatalf("len(Samples) = %d, want %d", len(got.Samples), len(samples))
	}
}
