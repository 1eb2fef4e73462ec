// Package instrument defines the note block instrument palettes and key ranges
// shared by every song format.
package instrument

import "fmt"

// Instrument is a vanilla note block instrument. Its value is the instrument's
// id in the NBS palette.
type Instrument int

const (
	Harp Instrument = iota
	DoubleBass
	BassDrum
	Snare
	Click
	Guitar
	Flute
	Bell
	Chime
	Xylophone
	IronXylophone
	CowBell
	Didgeridoo
	Bit
	Banjo
	Pling
)

// Definition describes one vanilla instrument
type Definition struct {
	Instrument Instrument
	Name       string
	SoundFile  string
	GameName   string // block sound id used in-game
	Octave     int    // register relative to the harp, in octaves
	Percussive bool
}

// definitions is ordered by NBS id. Appending here grows VanillaCount, which is
// what the NBS decoder uses to remap custom instrument ids of older files.
var definitions = []Definition{
	{Harp, "Harp", "harp.ogg", "harp", 0, false},
	{DoubleBass, "Double Bass", "dbass.ogg", "bass", -2, false},
	{BassDrum, "Bass Drum", "bdrum.ogg", "basedrum", 0, true},
	{Snare, "Snare Drum", "sdrum.ogg", "snare", 0, true},
	{Click, "Click", "click.ogg", "hat", 0, true},
	{Guitar, "Guitar", "guitar.ogg", "guitar", -1, false},
	{Flute, "Flute", "flute.ogg", "flute", 1, false},
	{Bell, "Bell", "bell.ogg", "bell", 2, false},
	{Chime, "Chime", "icechime.ogg", "chime", 2, false},
	{Xylophone, "Xylophone", "xylobone.ogg", "xylophone", 2, false},
	{IronXylophone, "Iron Xylophone", "iron_xylophone.ogg", "iron_xylophone", 0, false},
	{CowBell, "Cow Bell", "cow_bell.ogg", "cow_bell", 1, false},
	{Didgeridoo, "Didgeridoo", "didgeridoo.ogg", "didgeridoo", -2, false},
	{Bit, "Bit", "bit.ogg", "bit", 0, false},
	{Banjo, "Banjo", "banjo.ogg", "banjo", 0, false},
	{Pling, "Pling", "pling.ogg", "pling", 0, false},
}

// VanillaCount is the number of built-in instruments known to this build.
func VanillaCount() int {
	return len(definitions)
}

// Definitions returns a copy of the vanilla instrument table in NBS order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Valid reports whether i is a vanilla instrument.
func (i Instrument) Valid() bool {
	return i >= 0 && int(i) < len(definitions)
}

// Definition returns the table entry for i.
func (i Instrument) Definition() (Definition, bool) {
	if !i.Valid() {
		return Definition{}, false
	}
	return definitions[i], true
}

func (i Instrument) String() string {
	if !i.Valid() {
		return fmt.Sprintf("Instrument(%d)", int(i))
	}
	return definitions[i].Name
}

// Octave returns the instrument's register relative to the harp.
func (i Instrument) Octave() int {
	if !i.Valid() {
		return 0
	}
	return definitions[i].Octave
}

// Percussive reports whether the instrument is unpitched.
func (i Instrument) Percussive() bool {
	if !i.Valid() {
		return false
	}
	return definitions[i].Percussive
}

// Palette is a format-local numbering of the vanilla instruments.
type Palette int

const (
	// PaletteNBS numbers instruments the way note block studio files do.
	PaletteNBS Palette = iota
	// PaletteGame numbers instruments in the in-game enum order, used by the
	// macro tool formats and by the MIDI importer.
	PaletteGame
)

var gameOrder = []Instrument{
	Harp, BassDrum, Snare, Click, DoubleBass, Flute, Bell, Guitar,
	Chime, Xylophone, IronXylophone, CowBell, Didgeridoo, Bit, Banjo, Pling,
}

var gameIndex = func() map[Instrument]int {
	m := make(map[Instrument]int, len(gameOrder))
	for id, inst := range gameOrder {
		m[inst] = id
	}
	return m
}()

func (p Palette) String() string {
	switch p {
	case PaletteNBS:
		return "nbs"
	case PaletteGame:
		return "game"
	default:
		return fmt.Sprintf("Palette(%d)", int(p))
	}
}

// Lookup resolves a palette-local id. Ids past the vanilla range (custom
// instruments) are not resolved.
func (p Palette) Lookup(id int) (Instrument, bool) {
	switch p {
	case PaletteGame:
		if id < 0 || id >= len(gameOrder) {
			return 0, false
		}
		return gameOrder[id], true
	default:
		inst := Instrument(id)
		return inst, inst.Valid()
	}
}

// ID returns the palette-local id of inst.
func (p Palette) ID(inst Instrument) int {
	if p == PaletteGame {
		if id, ok := gameIndex[inst]; ok {
			return id
		}
		return 0
	}
	return int(inst)
}

// FromGame maps a raw macro-tool (instrument, key) pair into the NBS palette
// and full NBS key range. keyOffset is added to the raw key first; unknown
// instrument ids fall back to the harp.
func FromGame(id, key, keyOffset int) (Instrument, int) {
	inst, ok := PaletteGame.Lookup(id)
	if !ok {
		inst = Harp
	}
	return inst, Full.Clamp(key + keyOffset)
}
