// Package pitch moves notes that fall outside an instrument's playable range
// back into it.
package pitch

import (
	"fmt"
	"strings"

	"github.com/james-see/nbsconvert/pkg/instrument"
	"github.com/james-see/nbsconvert/pkg/song"
)

// Policy selects how out-of-range notes are corrected. Every policy leaves
// in-range notes untouched, so applying one twice changes nothing the second
// time.
type Policy int

const (
	// None leaves notes as they are.
	None Policy = iota
	// Clamp moves the key to the nearest range bound.
	Clamp
	// Transpose moves the key by whole octaves into range, clamping when no
	// octave fits.
	Transpose
	// InstrumentShift hands the note to a melodic instrument an octave or two
	// higher or lower so its sounding pitch is kept, clamping what remains.
	InstrumentShift
)

var policyNames = []string{
	None:            "none",
	Clamp:           "clamp",
	Transpose:       "transpose",
	InstrumentShift: "shift",
}

func (p Policy) String() string {
	if p >= 0 && int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// Policies lists every policy in declaration order.
func Policies() []Policy {
	return []Policy{None, Clamp, Transpose, InstrumentShift}
}

// ParsePolicy parses a policy name as printed by String. "instrument-shift"
// is accepted as well.
func ParsePolicy(s string) (Policy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "instrument-shift" {
		return InstrumentShift, nil
	}
	for i, name := range policyNames {
		if s == name {
			return Policy(i), nil
		}
	}
	return None, fmt.Errorf("unknown pitch policy %q (want one of %s)", s, strings.Join(policyNames, ", "))
}

// shiftChain holds the melodic instruments ordered by register.
var shiftChain = []instrument.Instrument{
	instrument.DoubleBass,
	instrument.Guitar,
	instrument.Harp,
	instrument.Flute,
	instrument.Bell,
}

// Apply corrects every note of s into the playable range of its format and
// returns the number of notes changed.
func Apply(s *song.Song, p Policy) int {
	return ApplyRange(s, p, s.Format.PlayableRange())
}

// ApplyRange is Apply with an explicit key range, given in the song's key
// encoding.
func ApplyRange(s *song.Song, p Policy, r instrument.KeyRange) int {
	if p == None {
		return 0
	}
	palette := s.Format.Palette()
	changed := 0
	for _, n := range s.Notes() {
		if Correct(n, p, r, palette) {
			changed++
		}
	}
	return changed
}

// Correct fixes a single note and reports whether it changed. Instruments are
// read and written through palette.
func Correct(n *song.Note, p Policy, r instrument.KeyRange, palette instrument.Palette) bool {
	if r.Contains(n.Key) {
		return false
	}
	before := *n
	switch p {
	case None:
		return false
	case Clamp:
		n.Key = r.Clamp(n.Key)
	case Transpose:
		n.Key = transpose(n.Key, r)
	case InstrumentShift:
		shift(n, r, palette)
	}
	return *n != before
}

func transpose(key int, r instrument.KeyRange) int {
	var k int
	switch {
	case key < r.Low:
		octaves := (r.Low - key + instrument.OctaveKeys - 1) / instrument.OctaveKeys
		k = key + octaves*instrument.OctaveKeys
	case key > r.High:
		octaves := (key - r.High + instrument.OctaveKeys - 1) / instrument.OctaveKeys
		k = key - octaves*instrument.OctaveKeys
	default:
		return key
	}
	if r.Contains(k) {
		return k
	}
	return r.Clamp(key)
}

// shift keeps the sounding pitch by moving the note to the closest chain
// instrument whose register covers it. If none does, it takes the farthest
// instrument in the needed direction and clamps.
func shift(n *song.Note, r instrument.KeyRange, palette instrument.Palette) {
	inst, ok := palette.Lookup(n.Instrument)
	if !ok || inst.Percussive() {
		n.Key = r.Clamp(n.Key)
		return
	}

	pitch := n.Key + instrument.OctaveKeys*inst.Octave()
	low := n.Key < r.Low

	var best instrument.Instrument
	bestDist := -1
	var extreme instrument.Instrument
	haveExtreme := false
	for _, cand := range shiftChain {
		d := cand.Octave() - inst.Octave()
		// Lower notes need a lower register and vice versa.
		if (low && d >= 0) || (!low && d <= 0) {
			continue
		}
		if !haveExtreme || (low && cand.Octave() < extreme.Octave()) || (!low && cand.Octave() > extreme.Octave()) {
			extreme, haveExtreme = cand, true
		}
		if !r.Contains(pitch - instrument.OctaveKeys*cand.Octave()) {
			continue
		}
		if bestDist < 0 || abs(d) < bestDist {
			best, bestDist = cand, abs(d)
		}
	}

	switch {
	case bestDist >= 0:
		inst = best
	case haveExtreme:
		inst = extreme
	}
	n.Instrument = palette.ID(inst)
	n.Key = r.Clamp(pitch - instrument.OctaveKeys*inst.Octave())
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
