// Package dtmf detects touch-tone keypresses in windows of mono audio.
//
// Each window is run through a Goertzel filter bank covering the low and
// high tone groups, the two strongest bins are snapped to the keypad
// frequencies, and a debouncer decides when a key is actually pressed.
package dtmf

import (
	"fmt"
	"time"
)

// Config holds the detection parameters. They are fixed for the lifetime
// of a Detector.
type Config struct {
	SampleRate    int           // Hz
	Window        time.Duration // analysis window
	MinLowEnergy  float64       // low tone power must exceed this
	MinHighEnergy float64       // high tone power must exceed this
	MaxDeviation  float64       // Hz between a measured and a keypad frequency
	MinSignal     time.Duration // minimum tone duration for a key
	Spacing       time.Duration // minimum time between keys
}

// DefaultConfig returns the parameters for telephone audio (G.711, 8 kHz).
//
// With MinSignal at 50ms and Spacing lowered to 10ms the detector keeps up
// with the digits dialed during a dial-up modem handshake.
func DefaultConfig() Config {
	return Config{
		SampleRate:    8000,
		Window:        15 * time.Millisecond,
		MinLowEnergy:  5,
		MinHighEnergy: 5,
		MaxDeviation:  50,
		MinSignal:     50 * time.Millisecond,
		Spacing:       100 * time.Millisecond,
	}
}

// WindowSize returns the number of samples in one window, rounded up.
func (c Config) WindowSize() int {
	ns := int64(c.SampleRate) * c.Window.Nanoseconds()
	return int((ns + int64(time.Second) - 1) / int64(time.Second))
}

// Ranges returns the frequency ranges spanning both tone groups.
func Ranges() []Range {
	return []Range{
		{Start: LowFrequencies[0], End: LowFrequencies[len(LowFrequencies)-1]},
		{Start: HighFrequencies[0], End: HighFrequencies[len(HighFrequencies)-1]},
	}
}

func (c Config) validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("config: sample rate must be > 0: %d", c.SampleRate)
	case c.Window <= 0:
		return fmt.Errorf("config: window must be > 0: %v", c.Window)
	case c.MaxDeviation < 0:
		return fmt.Errorf("config: max deviation must be >= 0: %v", c.MaxDeviation)
	case c.MinSignal < 0 || c.Spacing < 0:
		return fmt.Errorf("config: durations must be >= 0: min signal %v, spacing %v", c.MinSignal, c.Spacing)
	}
	return nil
}

// Observation is the classification outcome of one window.
type Observation struct {
	Pair    Pair    // measured (not snapped) strongest bins
	Low     float64 // keypad low frequency, valid when Matched
	High    float64 // keypad high frequency, valid when Matched
	Key     rune    // valid when Matched
	Matched bool
}

// Keypress is emitted once per detected key.
type Keypress struct {
	Key  rune
	Time time.Time
	Pair Pair

	// Window data, kept for visualization.
	Samples []float64
	Bins    []Bin
}

func (k Keypress) String() string {
	return fmt.Sprintf("<%c f_low=%.1fHz e_low=%.1f f_high=%.1fHz e_high=%.1f>",
		k.Key, k.Pair.Low.Frequency, k.Pair.Low.Power, k.Pair.High.Frequency, k.Pair.High.Power)
}

// Observer is called by Process with every analyzed window, after the
// debounce state has been updated. samples is only valid during the call.
type Observer func(samples []float64, obs Observation, bins []Bin)

// Detector runs the whole per-window pipeline and owns the debounce state.
// It is not safe for concurrent use.
type Detector struct {
	cfg       Config
	analyzer  *Analyzer
	debouncer Debouncer
	state     State

	last     Observation
	lastBins []Bin
	observer Observer
}

// NewDetector validates cfg and the keymap and builds the filter bank.
// Any error here is a configuration error.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := validateKeymap(); err != nil {
		return nil, err
	}

	analyzer, err := NewAnalyzer(cfg.SampleRate, cfg.WindowSize(), Ranges()...)
	if err != nil {
		return nil, err
	}

	return &Detector{
		cfg:      cfg,
		analyzer: analyzer,
		debouncer: Debouncer{
			Window:    cfg.Window,
			MinSignal: cfg.MinSignal,
			Spacing:   cfg.Spacing,
		},
	}, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() Config { return d.cfg }

// WindowSize returns the number of samples Process expects.
func (d *Detector) WindowSize() int { return d.analyzer.WindowSize() }

// State returns the current debounce state.
func (d *Detector) State() State { return d.state }

// Last returns the observation and bins of the most recent window.
func (d *Detector) Last() (Observation, []Bin) { return d.last, d.lastBins }

// SetObserver installs f to be called with every window. nil removes it.
func (d *Detector) SetObserver(f Observer) { d.observer = f }

// Observe snaps a measured pair to the keypad and applies the energy gate.
func (c Config) Observe(p Pair) Observation {
	obs := Observation{Pair: p}

	low, okLow := Classify(p.Low.Frequency, LowFrequencies[:], c.MaxDeviation)
	high, okHigh := Classify(p.High.Frequency, HighFrequencies[:], c.MaxDeviation)
	if !okLow || !okHigh {
		return obs
	}

	if p.Low.Power <= c.MinLowEnergy || p.High.Power <= c.MinHighEnergy {
		return obs
	}

	key, ok := Resolve(low, high)
	if !ok {
		return obs
	}

	obs.Low, obs.High, obs.Key, obs.Matched = low, high, key, true
	return obs
}

// Process analyzes one window captured at now and returns the emitted key,
// if any. The only possible error is a window of the wrong size.
func (d *Detector) Process(samples []float64, now time.Time) (*Keypress, error) {
	bins, err := d.analyzer.Analyze(samples)
	if err != nil {
		return nil, err
	}

	pair, err := SelectPair(bins)
	if err != nil {
		return nil, err
	}

	obs := d.cfg.Observe(pair)
	d.last, d.lastBins = obs, bins

	var emit bool
	d.state, emit = d.debouncer.Step(d.state, obs.Matched, now)

	if d.observer != nil {
		d.observer(samples, obs, bins)
	}

	if !emit {
		return nil, nil
	}

	window := make([]float64, len(samples))
	copy(window, samples)

	return &Keypress{
		Key:     obs.Key,
		Time:    now,
		Pair:    pair,
		Samples: window,
		Bins:    bins,
	}, nil
}

// Reset clears the debounce state.
func (d *Detector) Reset() {
	d.state = State{}
	d.last, d.lastBins = Observation{}, nil
}
