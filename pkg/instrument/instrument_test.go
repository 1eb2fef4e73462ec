package instrument

import "testing"

func TestDefinitions(t *testing.T) {
	if VanillaCount() != 16 {
		t.Fatalf("VanillaCount() = %d, want 16", VanillaCount())
	}
	for i, d := range Definitions() {
		if int(d.Instrument) != i {
			t.Errorf("definition %d is for instrument %d", i, d.Instrument)
		}
	}
	if Instrument(16).Valid() || Instrument(-1).Valid() {
		t.Error("ids outside the vanilla set reported valid")
	}
	if !Snare.Percussive() || Harp.Percussive() {
		t.Error("unexpected percussive flags")
	}
	if DoubleBass.Octave() != -2 || Bell.Octave() != 2 {
		t.Error("unexpected octaves")
	}
}

func TestPalettes(t *testing.T) {
	tests := []struct {
		palette Palette
		id      int
		want    Instrument
		ok      bool
	}{
		{PaletteNBS, 1, DoubleBass, true},
		{PaletteNBS, 16, 0, false},
		{PaletteGame, 1, BassDrum, true},
		{PaletteGame, 4, DoubleBass, true},
		{PaletteGame, 15, Pling, true},
		{PaletteGame, 16, 0, false},
		{PaletteGame, -1, 0, false},
	}

	for _, tt := range tests {
		got, ok := tt.palette.Lookup(tt.id)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("%v.Lookup(%d) = %v, %v; want %v, %v", tt.palette, tt.id, got, ok, tt.want, tt.ok)
		}
	}

	for _, p := range []Palette{PaletteNBS, PaletteGame} {
		for _, d := range Definitions() {
			got, ok := p.Lookup(p.ID(d.Instrument))
			if !ok || got != d.Instrument {
				t.Errorf("%v: ID/Lookup round trip failed for %v", p, d.Instrument)
			}
		}
	}
}

func TestFromGame(t *testing.T) {
	tests := []struct {
		name            string
		id, key, offset int
		wantInst        Instrument
		wantKey         int
	}{
		{"macro key", 3, 45, 0, Click, 45},
		{"text click", 0, 12, GameKeyOffset, Harp, 45},
		{"unknown id", 200, 45, 0, Harp, 45},
		{"key clamped", 5, 250, 0, Flute, KeyMax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, key := FromGame(tt.id, tt.key, tt.offset)
			if inst != tt.wantInst || key != tt.wantKey {
				t.Errorf("FromGame() = %v, %d; want %v, %d", inst, key, tt.wantInst, tt.wantKey)
			}
		})
	}
}

func TestKeyRange(t *testing.T) {
	if !Playable.Contains(33) || !Playable.Contains(57) || Playable.Contains(58) {
		t.Error("Playable bounds are wrong")
	}
	if Playable.Clamp(10) != 33 || Playable.Clamp(90) != 57 || Playable.Clamp(40) != 40 {
		t.Error("Clamp() is wrong")
	}
	if Playable.Width() != 24 {
		t.Errorf("Width() = %d, want 24", Playable.Width())
	}
	if Playable.Shift(-GameKeyOffset) != Game {
		t.Errorf("Shift() = %v, want %v", Playable.Shift(-GameKeyOffset), Game)
	}
}

func TestGeneralMIDI(t *testing.T) {
	tests := []struct {
		program uint8
		want    Instrument
		shift   int
		ok      bool
	}{
		{0, Harp, 0, true},
		{33, DoubleBass, 2, true},
		{25, Guitar, 1, true},
		{73, Flute, -1, true},
		{9, Bell, -2, true},
		{100, 0, 0, false},
		{127, 0, 0, false},
	}

	for _, tt := range tests {
		m, ok := Program(tt.program)
		if ok != tt.ok || (ok && (m.Instrument != tt.want || m.Shift != tt.shift)) {
			t.Errorf("Program(%d) = %+v, %v", tt.program, m, ok)
		}
	}

	if d, ok := Percussion(38); !ok || d.Instrument != Snare {
		t.Errorf("Percussion(38) = %+v, %v", d, ok)
	}
	if _, ok := Percussion(20); ok {
		t.Error("Percussion(20) should be unmapped")
	}

	for _, d := range Definitions() {
		if d.Percussive {
			continue
		}
		m, ok := Program(GMProgram(d.Instrument))
		if !ok || m.Instrument != d.Instrument {
			t.Errorf("GMProgram(%v) does not map back", d.Instrument)
		}
	}
}
