package dtmf

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrFrequencyRange = errors.New("goertzel: frequency out of range")
	ErrWindowSize     = errors.New("goertzel: unexpected window size")
)

// Range is a closed frequency range of interest, in Hz.
type Range struct {
	Start, End float64
}

// Bin is the result of the Goertzel filter for one DFT bin.
//
// Power is |X[k]|^2 in the ideal case. Near silence it can come out
// as a tiny negative number because of rounding, so callers must not
// assume it is strictly positive.
type Bin struct {
	Frequency float64 // Hz
	Real      float64
	Imag      float64
	Power     float64
}

type binFilter struct {
	frequency float64
	wReal     float64
	wImag     float64
}

// Analyzer evaluates a fixed set of DFT bins over windows of a fixed size.
//
// The bins are computed once, from the requested ranges, so that an
// invalid range is reported when the analyzer is built and never while
// audio is flowing.
type Analyzer struct {
	sampleRate int
	windowSize int
	filters    []binFilter
}

// NewAnalyzer returns an analyzer for windows of windowSize samples taken
// at sampleRate. Every bin k with floor(start/step) <= k <= ceil(end/step)
// for any of the ranges is included, where step = sampleRate/windowSize.
func NewAnalyzer(sampleRate, windowSize int, ranges ...Range) (*Analyzer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("goertzel: sample rate must be > 0: %d", sampleRate)
	}
	if windowSize <= 0 {
		return nil, fmt.Errorf("goertzel: window size must be > 0: %d", windowSize)
	}

	step := float64(sampleRate) / float64(windowSize)

	seen := make(map[int]bool)
	var bins []int

	for _, r := range ranges {
		kStart := int(math.Floor(r.Start / step))
		kEnd := int(math.Ceil(r.End / step))

		if kStart < 0 || kEnd > windowSize-1 {
			return nil, fmt.Errorf("%w: [%v, %v] maps to bins %d..%d of %d", ErrFrequencyRange, r.Start, r.End, kStart, kEnd, windowSize)
		}

		for k := kStart; k <= kEnd; k++ {
			if !seen[k] {
				seen[k] = true
				bins = append(bins, k)
			}
		}
	}

	sort.Ints(bins)

	filters := make([]binFilter, len(bins))
	for i, k := range bins {
		f := float64(k) / float64(windowSize)
		filters[i] = binFilter{
			frequency: float64(k) * float64(sampleRate) / float64(windowSize),
			wReal:     2 * math.Cos(2*math.Pi*f),
			wImag:     math.Sin(2 * math.Pi * f),
		}
	}

	return &Analyzer{
		sampleRate: sampleRate,
		windowSize: windowSize,
		filters:    filters,
	}, nil
}

// WindowSize returns the number of samples expected by Analyze.
func (a *Analyzer) WindowSize() int { return a.windowSize }

// SampleRate returns the sample rate the bins were computed for.
func (a *Analyzer) SampleRate() int { return a.sampleRate }

// Frequencies returns the center frequency of every analyzed bin, ascending.
func (a *Analyzer) Frequencies() []float64 {
	freqs := make([]float64, len(a.filters))
	for i, f := range a.filters {
		freqs[i] = f.frequency
	}
	return freqs
}

// Analyze runs the Goertzel recurrence for every bin over one window.
// The result is ordered by ascending frequency.
func (a *Analyzer) Analyze(samples []float64) ([]Bin, error) {
	if len(samples) != a.windowSize {
		return nil, fmt.Errorf("%w: got %d samples, want %d", ErrWindowSize, len(samples), a.windowSize)
	}

	results := make([]Bin, len(a.filters))

	for i, f := range a.filters {
		var d1, d2 float64
		for _, x := range samples {
			d2, d1 = d1, x+f.wReal*d1-d2
		}

		results[i] = Bin{
			Frequency: f.frequency,
			Real:      0.5*f.wReal*d1 - d2,
			Imag:      f.wImag * d1,
			Power:     d2*d2 + d1*d1 - f.wReal*d1*d2,
		}
	}

	return results, nil
}

// Goertzel analyzes a single window in one shot, using the window length
// as the DFT size.
func Goertzel(samples []float64, sampleRate int, ranges ...Range) ([]Bin, error) {
	a, err := NewAnalyzer(sampleRate, len(samples), ranges...)
	if err != nil {
		return nil, err
	}
	return a.Analyze(samples)
}
