package audio

import (
	"errors"
	"fmt"
	"io"
	"math"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/transforms"
	"github.com/go-audio/wav"
)

var ErrInvalidWAV = errors.New("invalid WAV file")

const wavBitDepth = 16

// WriteWAV encodes samples in [-1, 1] as 16 bit mono PCM. Values outside
// the range are clipped. The writer is not closed.
func WriteWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	max := float64(gaudio.IntMaxSignedValue(wavBitDepth))

	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: wavBitDepth,
	}
	for i, v := range samples {
		v = math.Max(-1, math.Min(1, v))
		buf.Data[i] = int(math.Round(v * max))
	}

	enc := wav.NewEncoder(w, sampleRate, wavBitDepth, 1, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}

// WAVSource reads a PCM WAV file as a stream of mono samples in [-1, 1].
// Multi-channel files are downmixed.
type WAVSource struct {
	decoder *wav.Decoder
	buf     gaudio.IntBuffer

	SampleRate int
	Channels   int
	BitDepth   int

	scale   float64
	offset  float64
	pending []float64
	eof     bool
}

// OpenWAV checks the headers of r and prepares it for reading.
func OpenWAV(r io.ReadSeeker) (*WAVSource, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	format := decoder.Format()
	depth := int(decoder.SampleBitDepth())

	max := gaudio.IntMaxSignedValue(depth)
	if max == 0 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, depth)
	}

	s := &WAVSource{
		decoder:    decoder,
		buf:        gaudio.IntBuffer{Format: format, SourceBitDepth: depth},
		SampleRate: format.SampleRate,
		Channels:   format.NumChannels,
		BitDepth:   depth,
		scale:      1 / float64(max),
	}

	// 8 bit PCM is unsigned
	if depth == 8 {
		s.offset = 128
	}

	return s, nil
}

// Read returns the next n samples. The last block may be short and comes
// with io.EOF.
func (s *WAVSource) Read(n int) ([]float64, error) {
	for len(s.pending) < n && !s.eof {
		if err := s.fill(n - len(s.pending)); err != nil {
			return nil, err
		}
	}

	if len(s.pending) == 0 {
		return nil, io.EOF
	}

	m := min(n, len(s.pending))
	out := make([]float64, m)
	copy(out, s.pending)
	s.pending = s.pending[m:]

	if m < n {
		return out, io.EOF
	}
	return out, nil
}

func (s *WAVSource) fill(frames int) error {
	want := frames * s.Channels
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.decoder.PCMBuffer(&s.buf)
	if err != nil {
		return fmt.Errorf("decode wav: %w", err)
	}

	// drop a trailing partial frame
	n -= n % s.Channels
	if n == 0 {
		s.eof = true
		return nil
	}
	s.buf.Data = s.buf.Data[:n]

	fb := s.buf.AsFloatBuffer()
	if err := transforms.MonoDownmix(fb); err != nil {
		return fmt.Errorf("downmix: %w", err)
	}

	for _, v := range fb.Data {
		s.pending = append(s.pending, (v-s.offset)*s.scale)
	}
	return nil
}

// Rewind restarts the stream from the first sample.
func (s *WAVSource) Rewind() error {
	s.pending, s.eof = nil, false
	return s.decoder.Rewind()
}

// SliceSource serves samples from memory.
type SliceSource struct {
	data []float64
}

func NewSliceSource(samples []float64) *SliceSource {
	return &SliceSource{data: samples}
}

func (s *SliceSource) Read(n int) ([]float64, error) {
	if len(s.data) == 0 {
		return nil, io.EOF
	}

	m := min(n, len(s.data))
	out := s.data[:m:m]
	s.data = s.data[m:]

	if m < n {
		return out, io.EOF
	}
	return out, nil
}

// Remaining returns the number of samples not yet read.
func (s *SliceSource) Remaining() int { return len(s.data) }
