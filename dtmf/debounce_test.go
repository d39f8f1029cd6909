package dtmf

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func ms(n int) time.Time { return t0.Add(time.Duration(n) * time.Millisecond) }

func testDebouncer() Debouncer {
	cfg := DefaultConfig()
	return Debouncer{Window: cfg.Window, MinSignal: cfg.MinSignal, Spacing: cfg.Spacing}
}

type window struct {
	at      int // ms after t0
	matched bool
}

// feed runs the windows through d and returns the times (ms) of the emissions.
func feed(d Debouncer, st State, windows []window) (State, []int) {
	var emitted []int
	for _, w := range windows {
		var emit bool
		st, emit = d.Step(st, w.matched, ms(w.at))
		if emit {
			emitted = append(emitted, w.at)
		}
	}
	return st, emitted
}

func TestDebouncer_FourWindowsEmitOnce(t *testing.T) {
	d := testDebouncer()

	var windows []window
	for i := 1; i <= 4; i++ {
		windows = append(windows, window{15 * i, true})
	}
	for i := 5; i <= 12; i++ {
		windows = append(windows, window{15 * i, false})
	}

	_, emitted := feed(d, State{}, windows)
	if len(emitted) != 1 || emitted[0] != 60 {
		t.Fatalf("emitted at %v, want [60]", emitted)
	}
}

func TestDebouncer_ThreeWindowsTooShort(t *testing.T) {
	d := testDebouncer()

	st, emitted := feed(d, State{}, []window{
		{15, true}, {30, true}, {45, true}, {60, false},
		{75, true}, {90, true}, {105, true}, {120, false},
	})
	if len(emitted) != 0 {
		t.Fatalf("emitted at %v, want none", emitted)
	}
	if st.Sustained != 0 || st.Phase != Idle {
		t.Errorf("got %+v, want idle with no sustained time", st)
	}
}

// Two 60ms holds 20ms apart: when the second hold reaches the minimum
// duration only 80ms have passed since the first key, so it stays silent.
func TestDebouncer_HoldsCloserThanSpacing(t *testing.T) {
	d := testDebouncer()

	st, emitted := feed(d, State{}, []window{
		{15, true}, {30, true}, {45, true}, {60, true}, // first hold, key at 60ms
		{80, false}, // 20ms of silence
		{95, true}, {110, true}, {125, true}, {140, true}, // second hold
	})

	if len(emitted) != 1 || emitted[0] != 60 {
		t.Fatalf("emitted at %v, want [60]", emitted)
	}
	if st.Sustained != 60*time.Millisecond {
		t.Errorf("sustained %v, want 60ms", st.Sustained)
	}
	if st.Phase != Cooldown {
		t.Errorf("phase %v, want cooldown", st.Phase)
	}
	if !st.LastEmit.Equal(ms(60)) {
		t.Errorf("last emit %v, want %v", st.LastEmit, ms(60))
	}

	_, emitted = feed(d, st, []window{{160, false}, {175, false}})
	if len(emitted) != 0 {
		t.Errorf("emitted at %v after the second hold ended", emitted)
	}
}

// The same two holds, spaced far enough apart, give two keys.
func TestDebouncer_HoldsFartherThanSpacing(t *testing.T) {
	d := testDebouncer()

	_, emitted := feed(d, State{}, []window{
		{15, true}, {30, true}, {45, true}, {60, true},
		{80, false}, {100, false},
		{115, true}, {130, true}, {145, true}, {160, true},
	})

	if len(emitted) != 2 || emitted[0] != 60 || emitted[1] != 160 {
		t.Fatalf("emitted at %v, want [60 160]", emitted)
	}
}

func TestDebouncer_HeldToneRefiresPerSpacing(t *testing.T) {
	d := testDebouncer()

	var windows []window
	for i := 1; i <= 27; i++ { // 405ms of continuous tone
		windows = append(windows, window{15 * i, true})
	}

	_, emitted := feed(d, State{}, windows)

	want := []int{60, 165, 270, 375}
	if len(emitted) != len(want) {
		t.Fatalf("emitted at %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted at %v, want %v", emitted, want)
		}
	}
}

func TestDebouncer_SustainedMonotonicThenReset(t *testing.T) {
	d := testDebouncer()
	st := State{}

	var prev time.Duration
	for i := 1; i <= 10; i++ {
		st, _ = d.Step(st, true, ms(15*i))
		if st.Sustained < prev {
			t.Fatalf("window %d: sustained dropped from %v to %v", i, prev, st.Sustained)
		}
		if st.Sustained != time.Duration(i)*d.Window {
			t.Fatalf("window %d: sustained %v, want %v", i, st.Sustained, time.Duration(i)*d.Window)
		}
		prev = st.Sustained
	}

	st, _ = d.Step(st, false, ms(165))
	if st.Sustained != 0 {
		t.Errorf("sustained %v after a miss, want 0", st.Sustained)
	}
}

func TestDebouncer_Phases(t *testing.T) {
	d := testDebouncer()
	st := State{}

	if st.Phase != Idle {
		t.Fatalf("initial phase %v", st.Phase)
	}

	steps := []struct {
		w    window
		want Phase
	}{
		{window{15, true}, Accumulating},
		{window{30, true}, Accumulating},
		{window{45, true}, Accumulating},
		{window{60, true}, Cooldown}, // emitted
		{window{75, true}, Cooldown},
		{window{90, false}, Cooldown}, // tone gone, spacing not over
		{window{150, false}, Cooldown},
		{window{160, false}, Idle}, // 100ms after the key
		{window{175, true}, Accumulating},
	}

	for _, s := range steps {
		st, _ = d.Step(st, s.w.matched, ms(s.w.at))
		if st.Phase != s.want {
			t.Fatalf("at %dms: phase %v, want %v", s.w.at, st.Phase, s.want)
		}
	}
}

func TestDebouncer_FirstKeyNotDelayed(t *testing.T) {
	d := testDebouncer()

	// a fresh state has no previous key to space from
	st, emitted := feed(d, State{}, []window{{0, true}, {1, true}, {2, true}, {3, true}})
	if len(emitted) != 1 || emitted[0] != 3 {
		t.Fatalf("emitted at %v, want [3]", emitted)
	}
	if st.Phase != Cooldown {
		t.Errorf("phase %v, want cooldown", st.Phase)
	}
}

func TestPhase_String(t *testing.T) {
	for p, want := range map[Phase]string{Idle: "idle", Accumulating: "accumulating", Cooldown: "cooldown", Phase(9): "unknown"} {
		if got := p.String(); got != want {
			t.Errorf("%d: got %q, want %q", p, got, want)
		}
	}
}
