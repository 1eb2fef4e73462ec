package instrument

import "fmt"

// Key constants, in NBS key encoding (0 = A0, 87 = C8).
const (
	KeyMin = 0
	KeyMax = 87

	// The two octaves a note block can play natively (F#3..F#5).
	PlayableLow  = 33
	PlayableHigh = 57

	// GameKeyOffset converts note block clicks (0..24) to NBS keys.
	GameKeyOffset = PlayableLow
	// MIDIKeyOffset is the MIDI key of NBS key 0.
	MIDIKeyOffset = 21

	OctaveKeys = 12
)

// KeyRange is an inclusive key span.
type KeyRange struct {
	Low  int
	High int
}

var (
	Full     = KeyRange{KeyMin, KeyMax}
	Playable = KeyRange{PlayableLow, PlayableHigh}
	// Game is the playable range in click encoding.
	Game = KeyRange{0, PlayableHigh - PlayableLow}
)

func (r KeyRange) String() string {
	return fmt.Sprintf("%d..%d", r.Low, r.High)
}

// Contains reports whether key lies in the range.
func (r KeyRange) Contains(key int) bool {
	return key >= r.Low && key <= r.High
}

// Clamp returns the nearest key inside the range.
func (r KeyRange) Clamp(key int) int {
	if key < r.Low {
		return r.Low
	}
	if key > r.High {
		return r.High
	}
	return key
}

// Width is the number of semitones between the bounds.
func (r KeyRange) Width() int {
	return r.High - r.Low
}

// Shift returns the range moved by offset keys.
func (r KeyRange) Shift(offset int) KeyRange {
	return KeyRange{r.Low + offset, r.High + offset}
}
