package audio

import (
	"errors"
	"math"
	"testing"
	"time"

	"touchtone/dtmf"
)

func TestSynthesize_Layout(t *testing.T) {
	out, err := Synthesize("12", 8000, 50*time.Millisecond, 25*time.Millisecond, 0.5)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if len(out) != 2*(400+200) {
		t.Fatalf("got %d samples, want 1200", len(out))
	}

	for _, gap := range [][2]int{{400, 600}, {1000, 1200}} {
		for i := gap[0]; i < gap[1]; i++ {
			if out[i] != 0 {
				t.Fatalf("sample %d in gap is %v", i, out[i])
			}
		}
	}

	for i, v := range out {
		if math.Abs(v) > 1 {
			t.Fatalf("sample %d out of range: %v", i, v)
		}
	}
}

func TestSynthesize_Tones(t *testing.T) {
	const rate = 8000

	out, err := Synthesize("9", rate, time.Second, 0, 0.25)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	// one second at 1 Hz resolution puts every keypad tone on a bin
	bins, err := dtmf.Goertzel(out, rate, dtmf.Range{Start: 600, End: 1700})
	if err != nil {
		t.Fatalf("Goertzel: %v", err)
	}

	pair, err := dtmf.SelectPair(bins)
	if err != nil {
		t.Fatalf("SelectPair: %v", err)
	}

	if math.Abs(pair.Low.Frequency-852) > 0.5 || math.Abs(pair.High.Frequency-1477) > 0.5 {
		t.Errorf("got (%v, %v), want (852, 1477)", pair.Low.Frequency, pair.High.Frequency)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	tests := []struct {
		name string
		keys string
		amp  float64
		rate int
	}{
		{"unknown key", "12E", 0.3, 8000},
		{"zero amplitude", "1", 0, 8000},
		{"clipping amplitude", "1", 0.6, 8000},
		{"zero rate", "1", 0.3, 0},
	}

	for _, tt := range tests {
		if _, err := Synthesize(tt.keys, tt.rate, 10*time.Millisecond, 0, tt.amp); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}

	if _, err := Synthesize("1", 8000, time.Millisecond, 0, 0.6); !errors.Is(err, ErrAmplitude) {
		t.Errorf("got %v, want ErrAmplitude", err)
	}
}
