package midiimport

import (
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/nbsconvert/pkg/song"
)

// DefaultMicrosPerQuarter is the tempo in effect before any tempo event
// (120 BPM).
const DefaultMicrosPerQuarter = 500000

const metaTempo = 0x51

// TempoPoint is a tempo change: from Tick on, each pulse lasts MicrosPerPulse.
type TempoPoint struct {
	Tick           int64
	MicrosPerPulse float64
}

// TempoMap is the file-wide tempo list sorted by tick. The first entry is
// always at tick 0.
type TempoMap []TempoPoint

// BuildTempoMap collects the tempo events of every track. Tempo events are
// global in a MIDI file regardless of the track carrying them.
func BuildTempoMap(tracks []smf.Track, resolution uint16) (TempoMap, error) {
	var tm TempoMap
	for ti, track := range tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			payload, ok := metaPayload(ev.Message, metaTempo)
			if !ok {
				continue
			}
			if len(payload) != 3 {
				return nil, &song.InvalidTempoError{Track: ti, Tick: tick, PayloadLen: len(payload)}
			}
			uspq := int(payload[0])<<16 | int(payload[1])<<8 | int(payload[2])
			if uspq == 0 {
				return nil, &song.InvalidTempoError{Track: ti, Tick: tick, PayloadLen: 3}
			}
			tm = append(tm, TempoPoint{Tick: tick, MicrosPerPulse: float64(uspq) / float64(resolution)})
		}
	}

	sort.SliceStable(tm, func(i, j int) bool { return tm[i].Tick < tm[j].Tick })
	if len(tm) == 0 || tm[0].Tick != 0 {
		tm = append(TempoMap{{Tick: 0, MicrosPerPulse: DefaultMicrosPerQuarter / float64(resolution)}}, tm...)
	}
	return tm, nil
}

// Micros returns the absolute time of tick in microseconds.
func (tm TempoMap) Micros(tick int64) float64 {
	c := tm.clock()
	return c.advance(tick)
}

func (tm TempoMap) clock() *clock {
	return &clock{tm: tm}
}

// clock integrates the tempo map over an event stream. Ticks passed to advance must
// not decrease.
type clock struct {
	tm   TempoMap
	idx  int
	last int64
	acc  float64
}

func (c *clock) advance(tick int64) float64 {
	if len(c.tm) == 0 {
		return 0
	}
	for c.idx+1 < len(c.tm) && c.tm[c.idx+1].Tick <= tick {
		next := c.tm[c.idx+1].Tick
		c.acc += float64(next-c.last) * c.tm[c.idx].MicrosPerPulse
		c.last = next
		c.idx++
	}
	c.acc += float64(tick-c.last) * c.tm[c.idx].MicrosPerPulse
	c.last = tick
	return c.acc
}

// metaPayload returns the data of a meta event of the given type. The length
// is read as a variable-length quantity; a declared length running past the
// message is reported as the bytes actually present.
func metaPayload(msg []byte, typ byte) ([]byte, bool) {
	if len(msg) < 3 || msg[0] != 0xFF || msg[1] != typ {
		return nil, false
	}
	var length int
	i := 2
	for ; i < len(msg) && i < 6; i++ {
		length = length<<7 | int(msg[i]&0x7F)
		if msg[i]&0x80 == 0 {
			i++
			break
		}
	}
	data := msg[i:]
	if length < len(data) {
		data = data[:length]
	}
	return data, true
}
