package dtmf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Source delivers mono audio in blocks. Read blocks until n samples are
// available and returns io.EOF once the stream is over.
type Source interface {
	Read(n int) ([]float64, error)
}

// StreamClock returns a clock that advances by step on every call,
// starting at start+step. It timestamps windows by their position in the
// stream, for sources that are not consumed in real time.
func StreamClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

// Run pulls windows from src, feeds them to det and hands every emitted
// key to sink, until the source is exhausted or ctx is done. The clock is
// read once per window, right after it has been captured.
//
// A short final window is zero padded. io.EOF ends the loop without error;
// any other read error is returned.
func Run(ctx context.Context, src Source, det *Detector, clock func() time.Time, sink func(Keypress)) error {
	n := det.WindowSize()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		samples, err := src.Read(n)

		last := false
		switch {
		case errors.Is(err, io.EOF):
			if len(samples) == 0 {
				return nil
			}
			last = true
		case err != nil:
			return fmt.Errorf("capture: %w", err)
		case len(samples) == 0:
			return nil
		}

		if len(samples) < n {
			padded := make([]float64, n)
			copy(padded, samples)
			samples = padded
		} else if len(samples) > n {
			samples = samples[:n]
		}

		key, perr := det.Process(samples, clock())
		if perr != nil {
			return perr
		}

		if key != nil && sink != nil {
			sink(*key)
		}

		if last {
			return nil
		}
	}
}
