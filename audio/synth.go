// Package audio reads and writes the sample streams the detector works on:
// WAV files, in-memory buffers and synthesized touch-tone sequences.
package audio

import (
	"errors"
	"fmt"
	"math"
	"time"

	"touchtone/dtmf"
)

var ErrAmplitude = errors.New("amplitude out of range")

// Synthesize renders keys as dual tones of the given length, each followed
// by gap of silence. Amplitude applies to each of the two sines, so it must
// be in (0, 0.5] for the sum to stay within [-1, 1].
func Synthesize(keys string, sampleRate int, tone, gap time.Duration, amplitude float64) ([]float64, error) {
	if amplitude <= 0 || amplitude > 0.5 {
		return nil, fmt.Errorf("%w: %v", ErrAmplitude, amplitude)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	toneLen := samplesFor(sampleRate, tone)
	gapLen := samplesFor(sampleRate, gap)

	out := make([]float64, 0, len(keys)*(toneLen+gapLen))

	for _, k := range keys {
		low, high, ok := dtmf.Tones(k)
		if !ok {
			return nil, fmt.Errorf("no tones for key %q", k)
		}

		// phase follows the absolute sample position
		start := len(out)
		wl := 2 * math.Pi * low / float64(sampleRate)
		wh := 2 * math.Pi * high / float64(sampleRate)
		for i := 0; i < toneLen; i++ {
			n := float64(start + i)
			out = append(out, amplitude*(math.Sin(wl*n)+math.Sin(wh*n)))
		}

		out = append(out, make([]float64, gapLen)...)
	}

	return out, nil
}

func samplesFor(sampleRate int, d time.Duration) int {
	return int(int64(sampleRate) * d.Nanoseconds() / int64(time.Second))
}
