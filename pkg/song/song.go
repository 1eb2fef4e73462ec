// Package song provides the format independent song model shared by all codecs.
package song

import (
	"iter"
	"maps"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/james-see/nbsconvert/pkg/instrument"
)

// Format identifies the file format a song was decoded from. It decides how
// note instruments and keys are encoded.
type Format string

const (
	FormatNBS     Format = "nbs"
	FormatMacro   Format = "macro"
	FormatText    Format = "text"
	FormatMIDI    Format = "midi"
	FormatUnknown Format = "unknown"
)

// Palette returns the instrument numbering used by notes of this format.
func (f Format) Palette() instrument.Palette {
	if f == FormatNBS {
		return instrument.PaletteNBS
	}
	return instrument.PaletteGame
}

// KeyOffset is added to a note's key to obtain an NBS key.
func (f Format) KeyOffset() int {
	if f == FormatText {
		return instrument.GameKeyOffset
	}
	return 0
}

// PlayableRange is the playable key range in this format's key encoding.
func (f Format) PlayableRange() instrument.KeyRange {
	return instrument.Playable.Shift(-f.KeyOffset())
}

// Layered reports whether songs of this format keep notes in layers.
func (f Format) Layered() bool {
	return f == FormatNBS
}

// DefaultSpeed is the tick rate of formats that do not store one, in ticks
// per second.
const DefaultSpeed = 20.0

// DefaultTempo is the NBS tempo used for new songs (ticks per second x100).
const DefaultTempo = 1000

// Header holds song metadata. Fields a format does not store are zero.
type Header struct {
	Version            int
	VanillaInstruments int
	Length             int // declared length in ticks
	LayerCount         int // declared layer count

	Title          string
	Author         string
	OriginalAuthor string
	Description    string
	ImportedFile   string

	Tempo         int     // NBS: ticks per second x100
	Speed         float64 // flat formats: ticks per second
	TimeSignature int

	AutoSave        bool
	AutoSaveMinutes int
	MinutesSpent    int
	LeftClicks      int
	RightClicks     int
	BlocksAdded     int
	BlocksRemoved   int

	Loop         bool
	MaxLoopCount int
	LoopStart    int
}

// Song is a decoded song. Layered formats keep their notes in Layers; flat
// formats keep a tick indexed note list.
type Song struct {
	Format Format
	Header Header

	Layers            []*Layer
	CustomInstruments []CustomInstrument

	notes  map[int][]*Note
	events map[int][]Event
}

// New returns an empty song of format f.
func New(f Format) *Song {
	s := &Song{
		Format: f,
		notes:  map[int][]*Note{},
		events: map[int][]Event{},
	}
	if f.Layered() {
		s.Header.Version = 4
		s.Header.VanillaInstruments = instrument.VanillaCount()
		s.Header.Tempo = DefaultTempo
		s.Header.TimeSignature = 4
	} else {
		s.Header.Speed = DefaultSpeed
	}
	return s
}

// Title returns the song name, falling back to the imported file name.
func (s *Song) Title() string {
	if t := strings.TrimSpace(s.Header.Title); t != "" {
		return t
	}
	if s.Header.ImportedFile != "" {
		base := filepath.Base(strings.ReplaceAll(s.Header.ImportedFile, "\\", "/"))
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return ""
}

// Speed returns the tick rate in ticks per second. It is always positive.
func (s *Song) Speed() float64 {
	var v float64
	if s.Format.Layered() {
		v = float64(s.Header.Tempo) / 100
	} else {
		v = s.Header.Speed
	}
	if !ValidSpeed(v) {
		if s.Format.Layered() {
			return float64(DefaultTempo) / 100
		}
		return DefaultSpeed
	}
	return v
}

// ValidSpeed reports whether v is usable as a tick rate: positive and finite.
func ValidSpeed(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// SetSpeed sets the tick rate. Values rejected by ValidSpeed are ignored.
func (s *Song) SetSpeed(ticksPerSecond float64) {
	if !ValidSpeed(ticksPerSecond) {
		return
	}
	if s.Format.Layered() {
		s.Header.Tempo = int(math.Round(ticksPerSecond * 100))
	} else {
		s.Header.Speed = ticksPerSecond
	}
}

// Length returns the highest tick holding a note, or 0 for an empty song.
func (s *Song) Length() int {
	length := 0
	for tick := range s.Notes() {
		length = max(length, tick)
	}
	return length
}

// Duration is the playing time up to the last note.
func (s *Song) Duration() time.Duration {
	return time.Duration(float64(s.Length()) / s.Speed() * float64(time.Second))
}

// EnsureLayers grows Layers to at least count entries.
func (s *Song) EnsureLayers(count int) {
	for len(s.Layers) < count {
		s.Layers = append(s.Layers, NewLayer())
	}
}

// AddNote places n at tick. On layered songs n goes to layer n.Layer, which is
// created if needed; a note without a layer goes to layer 0.
func (s *Song) AddNote(tick int, n *Note) {
	if !s.Format.Layered() {
		n.Layer = NoLayer
		if s.notes == nil {
			s.notes = map[int][]*Note{}
		}
		s.notes[tick] = append(s.notes[tick], n)
		return
	}
	if n.Layer < 0 {
		n.Layer = 0
	}
	s.EnsureLayers(n.Layer + 1)
	s.Layers[n.Layer].SetNote(tick, n)
}

// NotesAt returns the notes sounding at tick, in layer order.
func (s *Song) NotesAt(tick int) []*Note {
	if !s.Format.Layered() {
		return slices.Clone(s.notes[tick])
	}
	var out []*Note
	for _, l := range s.Layers {
		if n, ok := l.NoteAt(tick); ok {
			out = append(out, n)
		}
	}
	return out
}

// Ticks returns every tick holding at least one note, ascending.
func (s *Song) Ticks() []int {
	if !s.Format.Layered() {
		ticks := make([]int, 0, len(s.notes))
		for tick, ns := range s.notes {
			if len(ns) > 0 {
				ticks = append(ticks, tick)
			}
		}
		slices.Sort(ticks)
		return ticks
	}
	seen := map[int]struct{}{}
	for _, l := range s.Layers {
		for tick := range l.notes {
			seen[tick] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Notes yields every note with its tick, ordered by tick and then by layer.
func (s *Song) Notes() iter.Seq2[int, *Note] {
	return func(yield func(int, *Note) bool) {
		for _, tick := range s.Ticks() {
			for _, n := range s.NotesAt(tick) {
				if !yield(tick, n) {
					return
				}
			}
		}
	}
}

// NoteCount returns the number of notes in the song.
func (s *Song) NoteCount() int {
	if !s.Format.Layered() {
		count := 0
		for _, ns := range s.notes {
			count += len(ns)
		}
		return count
	}
	count := 0
	for _, l := range s.Layers {
		count += l.Len()
	}
	return count
}

// LayerOf returns the layer owning n.
func (s *Song) LayerOf(n *Note) (*Layer, bool) {
	if n.Layer < 0 || n.Layer >= len(s.Layers) {
		return nil, false
	}
	return s.Layers[n.Layer], true
}

// ReindexLayers recomputes each note's layer index from its position in
// Layers. Call it after reordering or removing layers.
func (s *Song) ReindexLayers() {
	for i, l := range s.Layers {
		for _, n := range l.notes {
			n.Layer = i
		}
	}
}

// AddEvent appends e to the events at tick.
func (s *Song) AddEvent(tick int, e Event) {
	if s.events == nil {
		s.events = map[int][]Event{}
	}
	s.events[tick] = append(s.events[tick], e)
}

// EventsAt returns the events at tick in insertion order.
func (s *Song) EventsAt(tick int) []Event {
	return slices.Clone(s.events[tick])
}

// Events yields every event with its tick, ordered by tick.
func (s *Song) Events() iter.Seq2[int, Event] {
	return func(yield func(int, Event) bool) {
		for _, tick := range slices.Sorted(maps.Keys(s.events)) {
			for _, e := range s.events[tick] {
				if !yield(tick, e) {
					return
				}
			}
		}
	}
}

// ClearEvents removes all events.
func (s *Song) ClearEvents() {
	s.events = map[int][]Event{}
}
