package midiimport

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/james-see/nbsconvert/pkg/instrument"
	"github.com/james-see/nbsconvert/pkg/song"
)

type rawEvent struct {
	delta uint32
	data  []byte
}

func noteOn(delta uint32, ch, key, vel byte) rawEvent {
	return rawEvent{delta, []byte{0x90 | ch, key, vel}}
}

func noteOff(delta uint32, ch, key byte) rawEvent {
	return rawEvent{delta, []byte{0x80 | ch, key, 0}}
}

func program(delta uint32, ch, prog byte) rawEvent {
	return rawEvent{delta, []byte{0xC0 | ch, prog}}
}

func tempo(delta uint32, uspq uint32) rawEvent {
	return rawEvent{delta, []byte{0xFF, 0x51, 0x03, byte(uspq >> 16), byte(uspq >> 8), byte(uspq)}}
}

func trackChunk(events ...rawEvent) []byte {
	var body []byte
	for _, ev := range events {
		body = appendVLQ(body, ev.delta)
		body = append(body, ev.data...)
	}
	body = append(body, 0x00, 0xFF, 0x2F, 0x00)

	chunk := []byte("MTrk")
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(body)))
	return append(chunk, body...)
}

func smfFile(format, division uint16, tracks ...[]byte) []byte {
	out := []byte("MThd")
	out = binary.BigEndian.AppendUint32(out, 6)
	out = binary.BigEndian.AppendUint16(out, format)
	out = binary.BigEndian.AppendUint16(out, uint16(len(tracks)))
	out = binary.BigEndian.AppendUint16(out, division)
	for _, tr := range tracks {
		out = append(out, tr...)
	}
	return out
}

func TestImportTiming(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantTick int
	}{
		{
			name: "explicit tempo",
			data: smfFile(0, 480, trackChunk(
				tempo(0, 500000),
				noteOn(480, 0, 66, 100),
				noteOff(240, 0, 66),
			)),
			wantTick: 10,
		},
		{
			name: "implicit 120 bpm",
			data: smfFile(0, 480, trackChunk(
				noteOn(480, 0, 66, 100),
			)),
			wantTick: 10,
		},
		{
			name: "tempo change on another track",
			data: smfFile(1, 480,
				trackChunk(tempo(0, 500000), tempo(480, 250000)),
				trackChunk(noteOn(960, 0, 66, 100)),
			),
			wantTick: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, report, err := Import(tt.data, Options{})
			if err != nil {
				t.Fatalf("Import() error = %v", err)
			}
			if report.Notes != 1 {
				t.Fatalf("report.Notes = %d, want 1", report.Notes)
			}
			notes := s.NotesAt(tt.wantTick)
			if len(notes) != 1 {
				t.Fatalf("NotesAt(%d) = %d notes, want 1 (ticks %v)", tt.wantTick, len(notes), s.Ticks())
			}
			if notes[0].Key != 45 {
				t.Errorf("key = %d, want 45", notes[0].Key)
			}
			if notes[0].Instrument != instrument.PaletteGame.ID(instrument.Harp) {
				t.Errorf("instrument = %d, want harp", notes[0].Instrument)
			}
			if !notes[0].Has(song.FieldVelocity) || notes[0].Velocity != 78 {
				t.Errorf("velocity = %d (flags %v), want 78", notes[0].Velocity, notes[0].Fields)
			}
		})
	}
}

func TestImportTicksPerSecond(t *testing.T) {
	data := smfFile(0, 96, trackChunk(noteOn(192, 0, 66, 100)))
	s, _, err := Import(data, Options{TicksPerSecond: 10})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(s.NotesAt(10)) != 1 {
		t.Errorf("expected a note at tick 10, got ticks %v", s.Ticks())
	}
	if s.Speed() != 10 {
		t.Errorf("Speed() = %v, want 10", s.Speed())
	}
}

func TestImportInstruments(t *testing.T) {
	data := smfFile(0, 480, trackChunk(
		program(0, 1, 32),     // acoustic bass
		noteOn(0, 1, 45, 64),  // A2 on bass
		noteOn(0, 9, 36, 64),  // bass drum
		noteOn(0, 0, 108, 64), // C8 on piano, clamped
		program(0, 2, 120),    // guitar fret noise, unmapped
		noteOn(0, 2, 60, 64),  // dropped
		noteOn(0, 9, 30, 64),  // no drum sound, dropped
		noteOn(0, 0, 60, 0),   // velocity 0 is a note off
	))

	s, report, err := Import(data, Options{Unmapped: UnmappedReport})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Notes != 3 || report.DroppedPrograms != 1 || report.DroppedDrums != 1 || report.Clamped != 1 {
		t.Errorf("report = %+v", report)
	}

	got := map[int]int{}
	for _, n := range s.NotesAt(0) {
		got[n.Instrument] = n.Key
	}
	want := map[instrument.Instrument]int{
		instrument.DoubleBass: 48,
		instrument.BassDrum:   41,
		instrument.Harp:       instrument.PlayableHigh,
	}
	for inst, key := range want {
		id := instrument.PaletteGame.ID(inst)
		if k, ok := got[id]; !ok || k != key {
			t.Errorf("%v: key = %d (present %v), want %d", inst, k, ok, key)
		}
	}
}

func TestImportFullRange(t *testing.T) {
	data := smfFile(0, 480, trackChunk(noteOn(0, 0, 108, 64)))
	s, report, err := Import(data, Options{KeyRange: instrument.Full})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Clamped != 0 {
		t.Errorf("report.Clamped = %d, want 0", report.Clamped)
	}
	if notes := s.NotesAt(0); len(notes) != 1 || notes[0].Key != 87 {
		t.Errorf("notes = %v, want key 87", notes)
	}
}

func TestImportUnmappedFail(t *testing.T) {
	data := smfFile(0, 480, trackChunk(program(0, 0, 125), noteOn(0, 0, 60, 64)))
	s, _, err := Import(data, Options{Unmapped: UnmappedFail})
	if !errors.Is(err, ErrUnmapped) {
		t.Fatalf("Import() error = %v, want ErrUnmapped", err)
	}
	if s != nil {
		t.Error("Import() returned a song on failure")
	}
}

func TestImportErrors(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		unsupported bool
	}{
		{
			name: "short tempo payload",
			data: smfFile(0, 480, trackChunk(
				rawEvent{0, []byte{0xFF, 0x51, 0x02, 0x07, 0xA1}},
				noteOn(480, 0, 66, 100),
			)),
		},
		{
			name: "zero tempo",
			data: smfFile(0, 480, trackChunk(tempo(0, 0), noteOn(480, 0, 66, 100))),
		},
		{
			name:        "type 2",
			data:        smfFile(2, 480, trackChunk(noteOn(0, 0, 60, 100))),
			unsupported: true,
		},
		{
			name:        "smpte division",
			data:        smfFile(0, 0xE728, trackChunk(noteOn(0, 0, 60, 100))),
			unsupported: true,
		},
		{
			name:        "smpte division type 1",
			data:        smfFile(1, 0xE250, trackChunk(tempo(0, 500000)), trackChunk(noteOn(0, 0, 60, 100))),
			unsupported: true,
		},
		{
			name: "not midi",
			data: []byte("###20\n0:1:2\n"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, err := Import(tt.data, Options{})
			if err == nil {
				t.Fatal("Import() expected error")
			}
			if s != nil {
				t.Error("Import() returned a song on failure")
			}
			var ue *song.UnsupportedError
			if tt.unsupported && !errors.As(err, &ue) {
				t.Errorf("error = %v, want *song.UnsupportedError", err)
			}
		})
	}
}

func TestImportProgramFromOtherTrack(t *testing.T) {
	data := smfFile(1, 480,
		trackChunk(tempo(0, 500000), program(0, 0, 24)),
		trackChunk(noteOn(480, 0, 66, 100)),
	)
	s, _, err := Import(data, Options{})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	notes := s.NotesAt(10)
	if len(notes) != 1 {
		t.Fatalf("NotesAt(10) = %d notes, want 1 (ticks %v)", len(notes), s.Ticks())
	}
	if want := instrument.PaletteGame.ID(instrument.Guitar); notes[0].Instrument != want {
		t.Errorf("instrument = %d, want guitar (%d)", notes[0].Instrument, want)
	}

	// A later program change applies only from its own tick on.
	data = smfFile(1, 480,
		trackChunk(program(480, 0, 24)),
		trackChunk(noteOn(0, 0, 66, 100), noteOn(960, 0, 66, 100)),
	)
	s, _, err = Import(data, Options{})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	first, second := s.NotesAt(0), s.NotesAt(20)
	if len(first) != 1 || first[0].Instrument != instrument.PaletteGame.ID(instrument.Harp) {
		t.Errorf("note before the change = %v, want harp", first)
	}
	if len(second) != 1 || second[0].Instrument != instrument.PaletteGame.ID(instrument.Guitar) {
		t.Errorf("note after the change = %v, want guitar", second)
	}
}

func TestTempoMapMicros(t *testing.T) {
	tm := TempoMap{
		{Tick: 0, MicrosPerPulse: 1000},
		{Tick: 100, MicrosPerPulse: 500},
		{Tick: 300, MicrosPerPulse: 2000},
	}
	tests := []struct {
		tick int64
		want float64
	}{
		{0, 0},
		{50, 50000},
		{100, 100000},
		{200, 150000},
		{300, 200000},
		{310, 220000},
	}

	for _, tt := range tests {
		if got := tm.Micros(tt.tick); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("Micros(%d) = %v, want %v", tt.tick, got, tt.want)
		}
	}

	// A clock walked incrementally agrees with fresh lookups.
	c := tm.clock()
	for _, tt := range tests {
		if got := c.advance(tt.tick); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("advance(%d) = %v, want %v", tt.tick, got, tt.want)
		}
	}
}

func TestExportRoundTrip(t *testing.T) {
	s := song.New(song.FormatNBS)
	s.SetSpeed(10)
	s.Header.Title = "demo"

	harp := song.NewNote(int(instrument.Harp), 45)
	bass := song.NewNote(int(instrument.DoubleBass), 48)
	bass.Layer = 1
	drum := song.NewNote(int(instrument.BassDrum), 40)
	drum.Layer = 2
	s.AddNote(0, harp)
	s.AddNote(4, bass)
	s.AddNote(4, drum)

	data, err := Export(s)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	back, report, err := Import(data, Options{})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if report.Notes != 3 {
		t.Fatalf("report.Notes = %d, want 3", report.Notes)
	}
	if back.Header.Title != "demo" {
		t.Errorf("Title = %q, want demo", back.Header.Title)
	}

	// 10 ticks per second at 20 output ticks per second doubles every tick.
	checks := []struct {
		tick int
		inst instrument.Instrument
		key  int
	}{
		{0, instrument.Harp, 45},
		{8, instrument.DoubleBass, 48},
		{8, instrument.BassDrum, 41},
	}
	for _, c := range checks {
		found := false
		for _, n := range back.NotesAt(c.tick) {
			if n.Instrument == instrument.PaletteGame.ID(c.inst) && n.Key == c.key {
				found = true
			}
		}
		if !found {
			t.Errorf("no %v note with key %d at tick %d", c.inst, c.key, c.tick)
		}
	}
}

func TestTempoMicros(t *testing.T) {
	tests := []struct {
		speed float64
		want  uint32
	}{
		{20, 200000},
		{10, 400000},
		{0.1, maxTempo},
		{0.001, maxTempo},
		{1e12, 1},
	}

	for _, tt := range tests {
		if got := tempoMicros(tt.speed); got != tt.want {
			t.Errorf("tempoMicros(%v) = %d, want %d", tt.speed, got, tt.want)
		}
	}
}

func TestParseUnmapped(t *testing.T) {
	for _, u := range []Unmapped{UnmappedSkip, UnmappedReport, UnmappedFail} {
		got, err := ParseUnmapped(u.String())
		if err != nil || got != u {
			t.Errorf("ParseUnmapped(%q) = %v, %v", u.String(), got, err)
		}
	}
	if _, err := ParseUnmapped("ignore"); err == nil {
		t.Error("ParseUnmapped(ignore) expected error")
	}
}
