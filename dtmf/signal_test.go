package dtmf

import (
	"io"
	"math"
	"testing"
)

const (
	testSampleRate = 8000
	testWindow     = 120 // 15ms at 8kHz
	testAmplitude  = 0.5
)

// sine returns n samples of a sine at freq, starting at sample offset
// so that consecutive blocks join without phase jumps.
func sine(freq, amplitude float64, offset, n int) []float64 {
	out := make([]float64, n)
	step := 2 * math.Pi * freq / testSampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(offset+i))
	}
	return out
}

// keyTone returns n samples of the dual tone for key.
func keyTone(t *testing.T, key rune, offset, n int) []float64 {
	t.Helper()
	low, high, ok := Tones(key)
	if !ok {
		t.Fatalf("no tones for key %q", key)
	}
	lo := sine(low, testAmplitude, offset, n)
	hi := sine(high, testAmplitude, offset, n)
	for i := range lo {
		lo[i] += hi[i]
	}
	return lo
}

// dialed renders keys as tone/gap sequences of the given sample counts.
func dialed(t *testing.T, keys string, toneLen, gapLen int) []float64 {
	t.Helper()
	var out []float64
	for _, k := range keys {
		out = append(out, keyTone(t, k, len(out), toneLen)...)
		out = append(out, make([]float64, gapLen)...)
	}
	return out
}

type sliceSource struct {
	data []float64
	err  error // returned once data is exhausted, io.EOF if nil
}

func (s *sliceSource) Read(n int) ([]float64, error) {
	if len(s.data) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	if n > len(s.data) {
		n = len(s.data)
	}
	out := s.data[:n]
	s.data = s.data[n:]
	return out, nil
}
