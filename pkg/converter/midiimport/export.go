package midiimport

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/nbsconvert/pkg/instrument"
	"github.com/james-see/nbsconvert/pkg/song"
)

const (
	exportResolution = 480
	// One song tick is written as a 16th note.
	ticksPerStep = exportResolution / 4
	noteLength   = ticksPerStep * 3 / 4
)

// maxTempo is the largest value a tempo meta event's 24-bit payload holds.
const maxTempo = 0xFFFFFF

// tempoMicros returns the microseconds per quarter note that make one song
// tick at speed ticks per second last a 16th note.
func tempoMicros(speed float64) uint32 {
	bpm := speed * 60 / 4
	us := math.Round(60000000.0 / bpm)
	if !(us < maxTempo) {
		return maxTempo
	}
	return uint32(max(us, 1))
}

type timedMessage struct {
	tick  uint32
	order int // note offs sort before note ons at the same tick
	msg   []byte
}

// Export writes s as a type 0 MIDI file. The tempo is chosen so that one song
// tick lasts one 16th note; percussive instruments go to the drum channel and
// note velocity is scaled by layer volume. Notes on custom instruments are
// skipped.
func Export(s *song.Song) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil song")
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(exportResolution)

	var track smf.Track

	microsecondsPerBeat := tempoMicros(s.Speed())
	track.Add(0, smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(microsecondsPerBeat >> 16),
		byte(microsecondsPerBeat >> 8),
		byte(microsecondsPerBeat),
	}))
	track.Add(0, smf.Message([]byte{0xFF, 0x58, 0x04, 0x04, 0x02, 0x18, 0x08}))
	if title := s.Title(); title != "" {
		track.Add(0, metaText(0x03, title))
	}

	palette := s.Format.Palette()
	offset := s.Format.KeyOffset()
	channels := map[instrument.Instrument]uint8{}
	var events []timedMessage

	channelFor := func(inst instrument.Instrument) uint8 {
		if ch, ok := channels[inst]; ok {
			return ch
		}
		ch := uint8(len(channels))
		if ch >= instrument.PercussionChannel {
			ch++
		}
		if ch > 15 {
			ch = 15
		}
		channels[inst] = ch
		events = append(events, timedMessage{0, 0, midi.ProgramChange(ch, instrument.GMProgram(inst))})
		return ch
	}

	for tick, n := range s.Notes() {
		inst, ok := palette.Lookup(n.Instrument)
		if !ok {
			continue
		}

		volume := 100
		if l, ok := s.LayerOf(n); ok {
			volume = l.Volume
		}
		vel := clampMIDI(n.Velocity*volume/100*127/100, 1)

		var ch, key uint8
		if inst.Percussive() {
			ch = instrument.PercussionChannel
			key = instrument.GMDrumKey(inst)
		} else {
			ch = channelFor(inst)
			key = uint8(clampMIDI(n.Key+offset+instrument.MIDIKeyOffset+instrument.OctaveKeys*inst.Octave(), 0))
		}

		at := uint32(tick) * ticksPerStep
		events = append(events,
			timedMessage{at, 2, midi.NoteOn(ch, key, uint8(vel))},
			timedMessage{at + noteLength, 1, midi.NoteOff(ch, key)},
		)
	}

	slices.SortStableFunc(events, func(a, b timedMessage) int {
		if a.tick != b.tick {
			if a.tick < b.tick {
				return -1
			}
			return 1
		}
		return a.order - b.order
	})

	var current uint32
	for _, ev := range events {
		track.Add(ev.tick-current, ev.msg)
		current = ev.tick
	}
	track.Close(0)

	if err := sm.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := sm.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

func clampMIDI(v, lo int) int {
	return max(lo, min(v, 127))
}

// metaText builds a text meta event of the given type.
func metaText(typ byte, text string) smf.Message {
	msg := []byte{0xFF, typ}
	msg = appendVLQ(msg, uint32(len(text)))
	return smf.Message(append(msg, text...))
}

func appendVLQ(b []byte, v uint32) []byte {
	var tmp [5]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		tmp[i] = byte(v&0x7F) | 0x80
	}
	return append(b, tmp[i:]...)
}
