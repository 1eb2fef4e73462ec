package song

import (
	"maps"
	"slices"
)

// Field flags the optional parts of a Note.
type Field uint8

const (
	FieldVelocity Field = 1 << iota
	FieldPanning
	FieldPitch
)

// Defaults for notes whose format does not store the optional fields.
const (
	DefaultVelocity = 100
	CenterPanning   = 100
)

// NoLayer marks a note that does not belong to a layer.
const NoLayer = -1

// Note is a single note. Instrument and Key are in the encoding of the song's
// format; see Format.Palette and Format.KeyOffset.
type Note struct {
	Instrument int
	Key        int
	Velocity   int // 0-100
	Panning    int // 0-200, 100 is center
	Pitch      int // fine pitch in cents
	Fields     Field

	// Layer is the index of the owning layer in Song.Layers, or NoLayer.
	Layer int
}

// NewNote returns a note with default optional fields.
func NewNote(instrument, key int) *Note {
	return &Note{
		Instrument: instrument,
		Key:        key,
		Velocity:   DefaultVelocity,
		Panning:    CenterPanning,
		Layer:      NoLayer,
	}
}

// Has reports whether f was present in the source data.
func (n *Note) Has(f Field) bool {
	return n.Fields&f != 0
}

// Clone returns a copy of n.
func (n *Note) Clone() *Note {
	c := *n
	return &c
}

// Layer is one track of a layered song.
type Layer struct {
	Name    string
	Volume  int // 0-100
	Panning int // 0-200, 100 is center
	Locked  bool

	notes map[int]*Note
}

// NewLayer returns an empty layer with default metadata.
func NewLayer() *Layer {
	return &Layer{Volume: 100, Panning: CenterPanning, notes: map[int]*Note{}}
}

// NoteAt returns the note at tick, if any.
func (l *Layer) NoteAt(tick int) (*Note, bool) {
	n, ok := l.notes[tick]
	return n, ok
}

// SetNote places n at tick, replacing any previous note there.
func (l *Layer) SetNote(tick int, n *Note) {
	if l.notes == nil {
		l.notes = map[int]*Note{}
	}
	l.notes[tick] = n
}

// RemoveNote deletes the note at tick.
func (l *Layer) RemoveNote(tick int) {
	delete(l.notes, tick)
}

// Ticks returns the ticks holding notes, ascending.
func (l *Layer) Ticks() []int {
	return slices.Sorted(maps.Keys(l.notes))
}

// Len is the number of notes in the layer.
func (l *Layer) Len() int {
	return len(l.notes)
}

// CustomInstrument is an instrument defined by the song file itself.
type CustomInstrument struct {
	Name      string
	SoundFile string
	Key       int // base pitch, 0-87
	PressKey  bool
}
