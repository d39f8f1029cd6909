package dtmf

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestStreamClock(t *testing.T) {
	clock := StreamClock(t0, 15*time.Millisecond)

	for i := 1; i <= 3; i++ {
		if got, want := clock(), t0.Add(time.Duration(i)*15*time.Millisecond); !got.Equal(want) {
			t.Fatalf("tick %d: got %v, want %v", i, got, want)
		}
	}
}

func TestRun_CaptureError(t *testing.T) {
	errBoom := errors.New("device unplugged")

	d := newTestDetector(t)
	src := &sliceSource{data: make([]float64, 3*testWindow), err: errBoom}

	err := Run(context.Background(), src, d, StreamClock(t0, d.Config().Window), nil)
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want %v", err, errBoom)
	}
	if !strings.HasPrefix(err.Error(), "capture:") {
		t.Errorf("error %q not marked as a capture error", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	d := newTestDetector(t)
	src := &sliceSource{data: make([]float64, 100*testWindow)}

	ctx, cancel := context.WithCancel(context.Background())

	var windows int
	clock := func() time.Time {
		windows++
		if windows == 5 {
			cancel()
		}
		return t0.Add(time.Duration(windows) * d.Config().Window)
	}

	if err := Run(ctx, src, d, clock, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if windows != 5 {
		t.Errorf("processed %d windows after cancel, want 5", windows)
	}
}

type countingSource struct {
	reads  []int
	chunks [][]float64
	final  error
}

func (s *countingSource) Read(n int) ([]float64, error) {
	s.reads = append(s.reads, n)
	if len(s.chunks) == 0 {
		return nil, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	if len(s.chunks) == 0 && s.final != nil {
		return c, s.final
	}
	return c, nil
}

func TestRun_PartialFinalWindow(t *testing.T) {
	d := newTestDetector(t)

	// four full windows of tone, then a short tail returned together with io.EOF
	var chunks [][]float64
	for i := 0; i < 4; i++ {
		chunks = append(chunks, keyTone(t, '#', i*testWindow, testWindow))
	}
	chunks = append(chunks, keyTone(t, '#', 4*testWindow, 30))

	src := &countingSource{chunks: chunks, final: io.EOF}

	var keys []rune
	var windows int
	clock := func() time.Time {
		windows++
		return t0.Add(time.Duration(windows) * d.Config().Window)
	}

	if err := Run(context.Background(), src, d, clock, func(k Keypress) { keys = append(keys, k.Key) }); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(keys) != 1 || keys[0] != '#' {
		t.Errorf("got keys %q, want \"#\"", string(keys))
	}
	if windows != 5 {
		t.Errorf("processed %d windows, want 5", windows)
	}
	for _, n := range src.reads {
		if n != testWindow {
			t.Fatalf("requested %d samples, want %d", n, testWindow)
		}
	}
}

func TestRun_EmptySource(t *testing.T) {
	d := newTestDetector(t)

	if err := Run(context.Background(), &sliceSource{}, d, time.Now, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
