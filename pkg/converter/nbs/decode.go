// Package nbs reads and writes Note Block Studio songs, versions 0 through 5.
// Legacy .mcsp files share the version 0 layout.
package nbs

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/james-see/nbsconvert/pkg/instrument"
	"github.com/james-see/nbsconvert/pkg/song"
)

const (
	// MaxVersion is the newest format version understood. Version 5 shares the
	// version 4 layout.
	MaxVersion = 5

	// LegacyVanillaCount is the instrument count assumed for version 0 files,
	// which do not store one.
	LegacyVanillaCount = 10

	// TempoChanger is the custom instrument name whose notes carry tempo
	// changes in their fine pitch.
	TempoChanger = "Tempo Changer"

	// MaxLayers is the largest layer count the header can store.
	MaxLayers = 0xFFFF
)

// DetectVersion reads the format version and the vanilla instrument count the
// file was saved with.
func DetectVersion(data []byte) (version, vanilla int, err error) {
	r := &reader{data: data}
	h, err := readHeader(r)
	if err != nil {
		return 0, 0, err
	}
	return h.Version, h.VanillaInstruments, nil
}

// Decode parses an NBS file. Missing layer metadata or custom instrument
// sections are not errors; any other short read is.
func Decode(data []byte) (*song.Song, error) {
	r := &reader{data: data}
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	s := song.New(song.FormatNBS)
	s.Header = h
	s.EnsureLayers(h.LayerCount)

	if err := readNotes(r, s); err != nil {
		return nil, err
	}
	if err := readLayers(r, s); err != nil {
		return nil, err
	}
	if err := readCustomInstruments(r, s); err != nil {
		return nil, err
	}
	s.Header.LayerCount = len(s.Layers)

	remapInstruments(s)
	deriveEvents(s)
	return s, nil
}

func readHeader(r *reader) (song.Header, error) {
	var h song.Header
	first, err := r.u16("header")
	if err != nil {
		return h, err
	}
	if first == 0 {
		if h.Version, err = r.u8("version"); err != nil {
			return h, err
		}
		if h.Version > MaxVersion {
			return h, &song.UnsupportedError{What: "nbs version", Value: h.Version}
		}
		if h.VanillaInstruments, err = r.u8("vanilla instrument count"); err != nil {
			return h, err
		}
		if h.Version >= 3 {
			if h.Length, err = r.u16("song length"); err != nil {
				return h, err
			}
		}
	} else {
		h.Version = 0
		h.VanillaInstruments = LegacyVanillaCount
		h.Length = first
	}

	if h.LayerCount, err = r.u16("layer count"); err != nil {
		return h, err
	}
	for _, f := range []struct {
		dst    *string
		record string
	}{
		{&h.Title, "song name"},
		{&h.Author, "song author"},
		{&h.OriginalAuthor, "original author"},
		{&h.Description, "description"},
	} {
		if *f.dst, err = r.str(f.record); err != nil {
			return h, err
		}
	}
	if h.Tempo, err = r.u16("tempo"); err != nil {
		return h, err
	}
	if h.AutoSave, err = r.bool("auto-save"); err != nil {
		return h, err
	}
	for _, f := range []struct {
		dst    *int
		read   func(string) (int, error)
		record string
	}{
		{&h.AutoSaveMinutes, r.u8, "auto-save duration"},
		{&h.TimeSignature, r.u8, "time signature"},
		{&h.MinutesSpent, r.i32, "minutes spent"},
		{&h.LeftClicks, r.i32, "left clicks"},
		{&h.RightClicks, r.i32, "right clicks"},
		{&h.BlocksAdded, r.i32, "blocks added"},
		{&h.BlocksRemoved, r.i32, "blocks removed"},
	} {
		if *f.dst, err = f.read(f.record); err != nil {
			return h, err
		}
	}
	if h.ImportedFile, err = r.str("imported file name"); err != nil {
		return h, err
	}
	if h.Version >= 4 {
		if h.Loop, err = r.bool("loop"); err != nil {
			return h, err
		}
		if h.MaxLoopCount, err = r.u8("max loop count"); err != nil {
			return h, err
		}
		if h.LoopStart, err = r.u16("loop start"); err != nil {
			return h, err
		}
	}
	return h, nil
}

// readNotes decodes the two nested jump streams. A zero jump ends a stream.
func readNotes(r *reader, s *song.Song) error {
	fields := fieldsFor(s.Header.Version)
	tick := -1
	for {
		jump, err := r.i16("tick jump")
		if err != nil {
			return err
		}
		if jump == 0 {
			return nil
		}
		tick += jump
		if tick < 0 {
			return &song.FormatError{Format: formatName, Offset: int64(r.off - 2), Msg: fmt.Sprintf("tick jump leads to tick %d", tick)}
		}

		layer := -1
		for {
			jump, err := r.i16("layer jump")
			if err != nil {
				return err
			}
			if jump == 0 {
				break
			}
			layer += jump
			if layer < 0 || layer >= MaxLayers {
				return &song.FormatError{Format: formatName, Offset: int64(r.off - 2), Msg: fmt.Sprintf("layer jump leads to layer %d", layer)}
			}

			n := song.NewNote(0, 0)
			n.Layer = layer
			for _, f := range fields {
				if err := f.read(r, n); err != nil {
					return err
				}
				n.Fields |= f.flag
			}
			s.AddNote(tick, n)
		}
	}
}

// benign reports whether err is the stream ending inside an optional section.
func benign(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF)
}

func readLayers(r *reader, s *song.Song) error {
	version := s.Header.Version
	for i := 0; i < s.Header.LayerCount; i++ {
		if r.eof() {
			return nil
		}
		l := s.Layers[i]
		name, err := r.str("layer name")
		if err != nil {
			if benign(err) {
				return nil
			}
			return err
		}
		l.Name = name
		if version >= 4 {
			if l.Locked, err = r.bool("layer lock"); err != nil {
				return nil
			}
		}
		if l.Volume, err = r.u8("layer volume"); err != nil {
			return nil
		}
		if version >= 2 {
			if l.Panning, err = r.u8("layer panning"); err != nil {
				return nil
			}
		}
	}
	return nil
}

func readCustomInstruments(r *reader, s *song.Song) error {
	count, err := r.u8("custom instrument count")
	if err != nil {
		return nil
	}
	for i := 0; i < count; i++ {
		var ci song.CustomInstrument
		if ci.Name, err = r.str("custom instrument name"); err != nil {
			break
		}
		if ci.SoundFile, err = r.str("custom instrument file"); err != nil {
			break
		}
		if ci.Key, err = r.u8("custom instrument key"); err != nil {
			break
		}
		if ci.PressKey, err = r.bool("custom instrument press"); err != nil {
			break
		}
		s.CustomInstruments = append(s.CustomInstruments, ci)
	}
	if err != nil && !benign(err) {
		return err
	}
	return nil
}

// remapInstruments moves custom instrument ids past the vanilla instruments
// added since the file was saved.
func remapInstruments(s *song.Song) {
	current := instrument.VanillaCount()
	saved := s.Header.VanillaInstruments
	if saved < current {
		diff := current - saved
		for _, n := range s.Notes() {
			if n.Instrument >= saved {
				n.Instrument += diff
			}
		}
	}
	s.Header.VanillaInstruments = max(saved, current)
}

// deriveEvents rebuilds the events implied by the header and by tempo
// changer notes. They are never written back.
func deriveEvents(s *song.Song) {
	s.ClearEvents()
	if s.Header.Loop {
		s.AddEvent(s.Header.LoopStart, &song.LoopStart{MaxLoops: s.Header.MaxLoopCount})
	}
	changers := map[int]bool{}
	for i, ci := range s.CustomInstruments {
		if strings.EqualFold(strings.TrimSpace(ci.Name), TempoChanger) {
			changers[s.Header.VanillaInstruments+i] = true
		}
	}
	if len(changers) == 0 {
		return
	}
	for tick, n := range s.Notes() {
		if changers[n.Instrument] {
			s.AddEvent(tick, &song.TempoChange{TicksPerSecond: math.Abs(float64(n.Pitch)) / 15})
		}
	}
}
