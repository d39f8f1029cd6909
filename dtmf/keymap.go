package dtmf

import "fmt"

// Row (low group) and column (high group) frequencies of the keypad, in Hz.
var (
	LowFrequencies  = [4]float64{697, 770, 852, 941}
	HighFrequencies = [4]float64{1209, 1336, 1477, 1633}
)

// keypad maps [row][col] to the key symbol.
var keypad = [4][4]rune{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// Keys lists every symbol of the keypad, row by row.
const Keys = "123A456B789C*0#D"

func indexOf(set [4]float64, f float64) int {
	for i, v := range set {
		if v == f {
			return i
		}
	}
	return -1
}

// Resolve returns the key for a canonical (low, high) pair. It only fails
// when one of the frequencies is not canonical.
func Resolve(low, high float64) (rune, bool) {
	row := indexOf(LowFrequencies, low)
	col := indexOf(HighFrequencies, high)
	if row < 0 || col < 0 {
		return 0, false
	}
	return keypad[row][col], true
}

// Tones returns the canonical frequency pair that encodes key.
func Tones(key rune) (low, high float64, ok bool) {
	for row := range keypad {
		for col, k := range keypad[row] {
			if k == key {
				return LowFrequencies[row], HighFrequencies[col], true
			}
		}
	}
	return 0, 0, false
}

// validateKeymap checks that the frequency groups are disjoint and that
// the keypad assigns a distinct, non-zero symbol to every pair.
func validateKeymap() error {
	for _, lo := range LowFrequencies {
		if indexOf(HighFrequencies, lo) >= 0 {
			return fmt.Errorf("keymap: %v Hz is in both frequency groups", lo)
		}
	}

	seen := make(map[rune]bool, 16)
	for _, lo := range LowFrequencies {
		for _, hi := range HighFrequencies {
			k, ok := Resolve(lo, hi)
			if !ok || k == 0 {
				return fmt.Errorf("keymap: no key for (%v, %v)", lo, hi)
			}
			if seen[k] {
				return fmt.Errorf("keymap: key %q assigned twice", k)
			}
			seen[k] = true
		}
	}

	return nil
}
