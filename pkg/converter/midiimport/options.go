// Package midiimport converts Standard MIDI Files to flat songs in the game
// palette and exports songs back to MIDI.
package midiimport

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/james-see/nbsconvert/pkg/instrument"
)

// DefaultTicksPerSecond is the output tick rate when Options leaves it unset.
const DefaultTicksPerSecond = 20.0

// ErrUnmapped is returned under UnmappedFail for a note no instrument can play.
var ErrUnmapped = errors.New("unmapped midi note")

// Unmapped decides what happens to notes whose program or drum key has no
// note block counterpart.
type Unmapped int

const (
	// UnmappedSkip drops such notes silently. They are still counted.
	UnmappedSkip Unmapped = iota
	// UnmappedReport drops such notes and logs each one.
	UnmappedReport
	// UnmappedFail aborts the import with ErrUnmapped.
	UnmappedFail
)

var unmappedNames = map[Unmapped]string{
	UnmappedSkip:   "skip",
	UnmappedReport: "report",
	UnmappedFail:   "fail",
}

func (u Unmapped) String() string {
	if name, ok := unmappedNames[u]; ok {
		return name
	}
	return fmt.Sprintf("Unmapped(%d)", int(u))
}

// ParseUnmapped parses "skip", "report" or "fail".
func ParseUnmapped(s string) (Unmapped, error) {
	for u, name := range unmappedNames {
		if strings.EqualFold(s, name) {
			return u, nil
		}
	}
	return UnmappedSkip, fmt.Errorf("unknown unmapped-note policy %q (want skip, report or fail)", s)
}

// Options controls an import. The zero value imports at 20 ticks per second
// into the playable range and skips unmapped notes.
type Options struct {
	TicksPerSecond float64
	// KeyRange bounds imported keys. The zero range means instrument.Playable.
	KeyRange instrument.KeyRange
	Unmapped Unmapped
	Logger   logrus.FieldLogger
}

func (o Options) ticksPerSecond() float64 {
	if o.TicksPerSecond <= 0 {
		return DefaultTicksPerSecond
	}
	return o.TicksPerSecond
}

func (o Options) keyRange() instrument.KeyRange {
	if o.KeyRange == (instrument.KeyRange{}) {
		return instrument.Playable
	}
	return o.KeyRange
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Report summarizes an import.
type Report struct {
	Tracks          int
	Notes           int // notes written to the song
	DroppedPrograms int // notes on programs with no instrument
	DroppedDrums    int // percussion keys with no instrument
	Clamped         int // notes whose key was forced into range
}

// Dropped is the total number of notes left out of the song.
func (r Report) Dropped() int {
	return r.DroppedPrograms + r.DroppedDrums
}
