// Package macro reads and writes the tick-delta note stream of the game macro
// tool. Notes are stored as (instrument, key) byte pairs in the game palette;
// a sentinel byte introduces a 16-bit little-endian tick delta.
package macro

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/james-see/nbsconvert/pkg/instrument"
	"github.com/james-see/nbsconvert/pkg/song"
)

const (
	// SentinelNew marks a tick delta in files written by current tool versions.
	SentinelNew byte = 64
	// SentinelLegacy marks a tick delta in files written by older versions.
	SentinelLegacy byte = 5

	// TicksPerSecond is the fixed playback rate of the format.
	TicksPerSecond = 20.0

	formatName = "macro"
)

// DetectSentinel picks the delta sentinel: any byte equal to SentinelNew means
// the file was written by a current version.
func DetectSentinel(data []byte) byte {
	if bytes.IndexByte(data, SentinelNew) >= 0 {
		return SentinelNew
	}
	return SentinelLegacy
}

// Decode parses a macro stream. Instruments and keys are kept raw; use
// Normalize to map them into the NBS palette.
func Decode(data []byte) (*song.Song, error) {
	sentinel := DetectSentinel(data)
	s := song.New(song.FormatMacro)
	s.Header.Speed = TicksPerSecond

	tick := 0
	for i := 0; i < len(data); {
		b := data[i]
		if b == sentinel {
			if len(data)-i < 3 {
				return nil, &song.TruncatedError{Format: formatName, Record: "tick delta", Offset: int64(i)}
			}
			tick += int(binary.LittleEndian.Uint16(data[i+1:]))
			i += 3
			continue
		}
		if len(data)-i < 2 {
			return nil, &song.TruncatedError{Format: formatName, Record: "note", Offset: int64(i)}
		}
		s.AddNote(tick, song.NewNote(int(b), int(data[i+1])))
		i += 2
	}
	return s, nil
}

// Normalize maps a decoded macro note into the NBS palette and key range.
func Normalize(n *song.Note) (instrument.Instrument, int) {
	return instrument.FromGame(n.Instrument, n.Key, song.FormatMacro.KeyOffset())
}

// Encode writes s as a macro stream using the current sentinel. The first
// record is always a delta so readers detect the sentinel.
func Encode(s *song.Song) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil song")
	}
	if s.Format.Layered() {
		return nil, fmt.Errorf("%s: song must be flattened first", formatName)
	}

	var buf []byte
	prev := 0
	first := true
	for _, tick := range s.Ticks() {
		delta := tick - prev
		for first || delta > 0 {
			step := min(delta, 0xFFFF)
			buf = append(buf, SentinelNew)
			buf = binary.LittleEndian.AppendUint16(buf, uint16(step))
			delta -= step
			first = false
		}
		prev = tick

		for _, n := range s.NotesAt(tick) {
			if n.Instrument < 0 || n.Instrument > 0xFF || n.Instrument == int(SentinelNew) {
				return nil, fmt.Errorf("%s: instrument %d at tick %d cannot be encoded", formatName, n.Instrument, tick)
			}
			if n.Key < 0 || n.Key > 0xFF {
				return nil, fmt.Errorf("%s: key %d at tick %d cannot be encoded", formatName, n.Key, tick)
			}
			buf = append(buf, byte(n.Instrument), byte(n.Key))
		}
	}
	return buf, nil
}
