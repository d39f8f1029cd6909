package dtmf

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var ErrTooFewBins = errors.New("dtmf: need at least two bins to select a tone pair")

// Classify returns the canonical frequency nearest to f, provided it lies
// within tolerance Hz (inclusive). When two canonical frequencies are
// equally near, the one listed first wins.
func Classify(f float64, canonical []float64, tolerance float64) (float64, bool) {
	if len(canonical) == 0 {
		return 0, false
	}

	best := canonical[0]
	bestDiff := math.Abs(f - best)

	for _, c := range canonical[1:] {
		if d := math.Abs(f - c); d < bestDiff {
			best, bestDiff = c, d
		}
	}

	if bestDiff > tolerance {
		return 0, false
	}
	return best, true
}

// Pair holds the two strongest bins of a window, Low.Frequency < High.Frequency.
type Pair struct {
	Low, High Bin
}

// SelectPair picks the two bins with the highest power and orders them by
// frequency. Among bins of exactly equal power the one with the higher
// frequency is preferred, so the input is expected in ascending frequency
// order (as produced by Analyzer).
func SelectPair(bins []Bin) (Pair, error) {
	if len(bins) < 2 {
		return Pair{}, ErrTooFewBins
	}

	powers := make([]float64, len(bins))
	for i, b := range bins {
		powers[i] = b.Power
	}

	inds := make([]int, len(bins))
	floats.ArgsortStable(powers, inds)

	first := bins[inds[len(inds)-1]]
	second := bins[inds[len(inds)-2]]

	if second.Frequency < first.Frequency {
		return Pair{Low: second, High: first}, nil
	}
	return Pair{Low: first, High: second}, nil
}
