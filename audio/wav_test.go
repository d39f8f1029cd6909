package audio

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"touchtone/dtmf"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func tempFile(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func openWAV(t *testing.T, f *os.File) *WAVSource {
	t.Helper()
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}
	src, err := OpenWAV(f)
	if err != nil {
		t.Fatalf("OpenWAV: %v", err)
	}
	return src
}

func readAll(t *testing.T, src dtmf.Source, block int) []float64 {
	t.Helper()
	var out []float64
	for {
		b, err := src.Read(block)
		out = append(out, b...)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
}

func TestWAV_RoundTrip(t *testing.T) {
	samples := []float64{0, 0.5, -0.5, 1, -1, 0.25, 2, -3}

	f := tempFile(t, "rt.wav")
	if err := WriteWAV(f, samples, 8000); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	src := openWAV(t, f)
	if src.SampleRate != 8000 || src.Channels != 1 || src.BitDepth != 16 {
		t.Fatalf("format %d Hz, %d ch, %d bit", src.SampleRate, src.Channels, src.BitDepth)
	}

	got := readAll(t, src, 3)
	if len(got) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(got), len(samples))
	}

	for i, want := range samples {
		want = math.Max(-1, math.Min(1, want)) // clipped on write
		if math.Abs(got[i]-want) > 1.0/32767 {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want)
		}
	}
}

func TestWAVSource_Blocks(t *testing.T) {
	f := tempFile(t, "blocks.wav")
	if err := WriteWAV(f, make([]float64, 250), 8000); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	src := openWAV(t, f)

	for i := 0; i < 2; i++ {
		b, err := src.Read(120)
		if err != nil || len(b) != 120 {
			t.Fatalf("block %d: %d samples, %v", i, len(b), err)
		}
	}

	b, err := src.Read(120)
	if len(b) != 10 || !errors.Is(err, io.EOF) {
		t.Fatalf("tail: %d samples, %v; want 10, EOF", len(b), err)
	}

	if b, err := src.Read(120); len(b) != 0 || !errors.Is(err, io.EOF) {
		t.Fatalf("after end: %d samples, %v", len(b), err)
	}

	if err := src.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	if got := readAll(t, src, 120); len(got) != 250 {
		t.Errorf("after rewind: %d samples, want 250", len(got))
	}
}

func TestWAVSource_StereoDownmix(t *testing.T) {
	const frames = 100

	f := tempFile(t, "stereo.wav")

	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 2, SampleRate: 8000},
		Data:           make([]int, 2*frames),
		SourceBitDepth: 16,
	}
	for i := 0; i < frames; i++ {
		buf.Data[2*i] = 16000
		buf.Data[2*i+1] = -8000
	}

	enc := wav.NewEncoder(f, 8000, 16, 2, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	src := openWAV(t, f)
	if src.Channels != 2 {
		t.Fatalf("got %d channels", src.Channels)
	}

	got := readAll(t, src, 30)
	if len(got) != frames {
		t.Fatalf("got %d mono samples, want %d", len(got), frames)
	}

	want := 4000.0 / 32767
	for i, v := range got {
		if math.Abs(v-want) > 1e-9 {
			t.Fatalf("sample %d: got %v, want %v", i, v, want)
		}
	}
}

func TestOpenWAV_Invalid(t *testing.T) {
	r := strings.NewReader("definitely not a riff file")
	if _, err := OpenWAV(r); !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("got %v, want ErrInvalidWAV", err)
	}
}

// A generated file decodes back to the dialed keys.
func TestWAV_DecodeSynthesized(t *testing.T) {
	const keys = "0123456789*#"

	cfg := dtmf.DefaultConfig()

	samples, err := Synthesize(keys, cfg.SampleRate, 100*time.Millisecond, 100*time.Millisecond, 0.4)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	f := tempFile(t, "keys.wav")
	if err := WriteWAV(f, samples, cfg.SampleRate); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	src := openWAV(t, f)

	det, err := dtmf.NewDetector(cfg)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}

	var got strings.Builder
	err = dtmf.Run(context.Background(), src, det, dtmf.StreamClock(t0, cfg.Window), func(k dtmf.Keypress) {
		got.WriteRune(k.Key)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got.String() != keys {
		t.Errorf("decoded %q, want %q", got.String(), keys)
	}
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource([]float64{1, 2, 3, 4, 5})

	b, err := src.Read(2)
	if err != nil || len(b) != 2 || b[0] != 1 {
		t.Fatalf("first read: %v, %v", b, err)
	}
	if src.Remaining() != 3 {
		t.Errorf("remaining %d, want 3", src.Remaining())
	}

	b, err = src.Read(4)
	if len(b) != 3 || !errors.Is(err, io.EOF) {
		t.Fatalf("tail: %v, %v", b, err)
	}

	if _, err := src.Read(1); !errors.Is(err, io.EOF) {
		t.Errorf("empty source: %v", err)
	}
}
