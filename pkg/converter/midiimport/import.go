package midiimport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/nbsconvert/pkg/instrument"
	"github.com/james-see/nbsconvert/pkg/song"
)

const formatName = "midi"

// Import decodes a type 0 or type 1 MIDI file into a flat song. Note starts
// become notes; note lengths, pitch bends and controllers are ignored.
// Instruments are numbered in the game palette and keys in the NBS encoding.
func Import(data []byte, opts Options) (*song.Song, Report, error) {
	var report Report
	log := opts.logger()

	if err := checkHeader(data); err != nil {
		return nil, report, err
	}
	s, err := readSMF(data)
	if err != nil {
		return nil, report, err
	}
	if f := s.Format(); f != 0 && f != 1 {
		return nil, report, &song.UnsupportedError{What: "midi file type", Value: int(f)}
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, report, &song.UnsupportedError{What: "midi time division (SMPTE)", Value: 0}
	}
	resolution := mt.Resolution()
	if resolution == 0 {
		return nil, report, &song.UnsupportedError{What: "midi resolution", Value: 0}
	}

	tm, err := BuildTempoMap(s.Tracks, resolution)
	if err != nil {
		return nil, report, err
	}

	tps := opts.ticksPerSecond()
	keys := opts.keyRange()
	out := song.New(song.FormatMIDI)
	out.SetSpeed(tps)
	report.Tracks = len(s.Tracks)

	log.WithFields(logrus.Fields{
		"tracks":     len(s.Tracks),
		"resolution": resolution,
		"tempos":     len(tm),
	}).Debug("importing midi")

	// Program slots belong to the channel, whichever track changes them.
	var programs [16]uint8
	clk := tm.clock()

	for _, ev := range mergeTracks(s.Tracks) {
		us := clk.advance(ev.tick)

		var name string
		if out.Header.Title == "" && ev.msg.GetMetaTrackName(&name) {
			out.Header.Title = name
		}

		msg := midi.Message(ev.msg)
		var ch, key, vel, prog uint8
		switch {
		case msg.GetProgramChange(&ch, &prog):
			programs[ch] = prog
		case msg.GetNoteStart(&ch, &key, &vel):
			inst, nbsKey, clamped, ok := resolve(ch, key, programs[ch], keys)
			if !ok {
				if ch == instrument.PercussionChannel {
					report.DroppedDrums++
				} else {
					report.DroppedPrograms++
				}
				fields := logrus.Fields{"track": ev.track, "tick": ev.tick, "channel": ch, "key": key, "program": programs[ch]}
				switch opts.Unmapped {
				case UnmappedFail:
					return nil, report, fmt.Errorf("%w: track %d tick %d channel %d key %d program %d",
						ErrUnmapped, ev.track, ev.tick, ch, key, programs[ch])
				case UnmappedReport:
					log.WithFields(fields).Warn("dropping unmapped note")
				}
				continue
			}
			if clamped {
				report.Clamped++
			}

			n := song.NewNote(instrument.PaletteGame.ID(inst), nbsKey)
			n.Velocity = int(vel) * 100 / 127
			n.Fields |= song.FieldVelocity
			out.AddNote(int(math.Round(us/1e6*tps)), n)
			report.Notes++
		}
	}

	log.WithFields(logrus.Fields{
		"notes":   report.Notes,
		"dropped": report.Dropped(),
		"clamped": report.Clamped,
	}).Info("midi imported")
	return out, report, nil
}

// checkHeader rejects file types and time divisions the smf reader cannot
// handle before it sees them.
func checkHeader(data []byte) error {
	if len(data) < 14 || string(data[:4]) != "MThd" {
		return nil
	}
	if f := binary.BigEndian.Uint16(data[8:10]); f > 1 {
		return &song.UnsupportedError{What: "midi file type", Value: int(f)}
	}
	if div := binary.BigEndian.Uint16(data[12:14]); div&0x8000 != 0 {
		return &song.UnsupportedError{What: "midi time division (SMPTE)", Value: int(div)}
	}
	return nil
}

func readSMF(data []byte) (s *smf.SMF, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, &song.FormatError{Format: formatName, Msg: fmt.Sprint(r)}
		}
	}()
	s, err = smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, &song.FormatError{Format: formatName, Msg: err.Error()}
	}
	return s, nil
}

type timedEvent struct {
	tick  int64
	track int
	msg   smf.Message
}

// mergeTracks flattens all tracks into one stream ordered by absolute tick.
// Events at the same tick keep track order, then file order.
func mergeTracks(tracks []smf.Track) []timedEvent {
	var events []timedEvent
	for ti, track := range tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			events = append(events, timedEvent{tick: tick, track: ti, msg: ev.Message})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].tick < events[j].tick })
	return events
}

// resolve maps a note start to an instrument and NBS key.
func resolve(ch, key, program uint8, keys instrument.KeyRange) (inst instrument.Instrument, nbsKey int, clamped, ok bool) {
	if ch == instrument.PercussionChannel {
		d, ok := instrument.Percussion(key)
		if !ok {
			return 0, 0, false, false
		}
		k := keys.Clamp(d.Key)
		return d.Instrument, k, k != d.Key, true
	}

	m, ok := instrument.Program(program)
	if !ok {
		return 0, 0, false, false
	}
	raw := int(key) - instrument.MIDIKeyOffset + instrument.OctaveKeys*m.Shift
	k := keys.Clamp(raw)
	return m.Instrument, k, k != raw, true
}
