package dtmf

import "time"

// Phase is the externally visible state of the debouncer.
type Phase int

const (
	Idle         Phase = iota // no tone present
	Accumulating              // a valid pair is present but no key was emitted for it yet
	Cooldown                  // a key was emitted less than Spacing ago
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	case Cooldown:
		return "cooldown"
	}
	return "unknown"
}

// State is the debounce state carried from one window to the next.
type State struct {
	Phase Phase

	// Sustained is how long valid pairs have been seen without a break.
	Sustained time.Duration

	// LastEmit is the time of the last emitted key, zero if none yet.
	LastEmit time.Time
}

// Debouncer turns per-window classification outcomes into key emissions.
// It holds no state of its own: every Step takes the previous State and
// returns the next one.
type Debouncer struct {
	Window    time.Duration // time covered by one window
	MinSignal time.Duration // minimum sustained tone before a key is emitted
	Spacing   time.Duration // minimum time between two emitted keys
}

func (d Debouncer) spaced(st State, now time.Time) bool {
	return st.LastEmit.IsZero() || now.Sub(st.LastEmit) >= d.Spacing
}

// Step advances the state by one window. matched reports whether the
// window produced a valid, energetic tone pair; now is the time the window
// was captured. The returned bool is true when a key must be emitted.
//
// A held tone keeps Sustained above MinSignal, so it fires again each time
// Spacing has elapsed since the previous emission.
func (d Debouncer) Step(st State, matched bool, now time.Time) (State, bool) {
	if !matched {
		st.Sustained = 0
		if d.spaced(st, now) {
			st.Phase = Idle
		} else {
			st.Phase = Cooldown
		}
		return st, false
	}

	st.Sustained += d.Window

	if st.Sustained >= d.MinSignal && d.spaced(st, now) {
		st.LastEmit = now
		st.Phase = Cooldown
		return st, true
	}

	if d.spaced(st, now) {
		st.Phase = Accumulating
	} else {
		st.Phase = Cooldown
	}
	return st, false
}
