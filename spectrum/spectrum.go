// Package spectrum renders short audio blocks as a coarse bar spectrum for
// the terminal.
package spectrum

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

const Bands = 8 // number of frequency bands in a spectrogram line

// dynamic range shown by the levels, in dB below full scale
const floorDB = -48.0

var levels = [8]rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Spectrum is the single-sided magnitude spectrum of one block.
type Spectrum struct {
	Magnitudes []float64
	Resolution float64 // Hz per bin
}

// Compute Hamming-windows data and returns its magnitude spectrum, scaled
// so that a full-scale sine on a bin center reads 1.
func Compute(data []float64, sampleRate int) Spectrum {
	if len(data) <= 2 {
		return Spectrum{}
	}

	w := make([]float64, len(data))
	floats.AddConst(1, w)
	window.Hamming(w)
	sum := floats.Sum(w)

	windowed := make([]float64, len(data))
	floats.MulTo(windowed, data, w)

	fft := fourier.NewFFT(len(windowed))
	coeffs := fft.Coefficients(nil, windowed)

	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mags[i] = 2 / sum * math.Hypot(real(c), imag(c))
	}

	return Spectrum{
		Magnitudes: mags,
		Resolution: float64(sampleRate) / float64(len(data)),
	}
}

// Peak returns the strongest frequency between minFreq and maxFreq.
func (s Spectrum) Peak(minFreq, maxFreq float64) (freq, magnitude float64) {
	lo, hi, ok := s.span(minFreq, maxFreq)
	if !ok {
		return 0, 0
	}

	peak := lo
	for i := lo; i <= hi; i++ {
		if s.Magnitudes[i] > s.Magnitudes[peak] {
			peak = i
		}
	}
	return float64(peak) * s.Resolution, s.Magnitudes[peak]
}

func (s Spectrum) span(minFreq, maxFreq float64) (lo, hi int, ok bool) {
	if len(s.Magnitudes) == 0 || s.Resolution <= 0 {
		return 0, 0, false
	}

	lo = max(int(minFreq/s.Resolution), 0)
	hi = min(int(math.Ceil(maxFreq/s.Resolution)), len(s.Magnitudes)-1)
	return lo, hi, hi > lo
}

// Spectrogram averages the bins between minFreq and maxFreq into Bands
// levels. With graphic set the levels are block characters, otherwise
// the digits 0 to 7.
func (s Spectrum) Spectrogram(minFreq, maxFreq float64, graphic bool) (result [Bands]rune) {
	for i := range result {
		result[i] = Level(0, graphic)
	}

	lo, hi, ok := s.span(minFreq, maxFreq)
	if !ok {
		return result
	}

	perBand := float64(hi-lo+1) / Bands

	for i := 0; i < Bands; i++ {
		start := lo + int(float64(i)*perBand)
		end := min(lo+int(float64(i+1)*perBand), hi+1)
		if start >= end {
			start = end - 1
		}

		var sum float64
		for j := start; j < end; j++ {
			sum += s.Magnitudes[j]
		}
		result[i] = Level(sum/float64(end-start), graphic)
	}

	return result
}

// Level maps a linear magnitude (1 is full scale) to one of eight levels.
func Level(magnitude float64, graphic bool) rune {
	level := 0
	if magnitude > 0 {
		db := 20 * math.Log10(magnitude)
		level = int((db - floorDB) / (-floorDB / 8))
	}
	level = max(0, min(level, 7))

	if graphic {
		return levels[level]
	}
	return rune('0' + level)
}
