package nbs

import (
	"errors"
	"fmt"

	"github.com/james-see/nbsconvert/pkg/instrument"
	"github.com/james-see/nbsconvert/pkg/song"
)

// ErrNotLayered is returned when encoding a song of a flat format.
var ErrNotLayered = errors.New("nbs: song has no layers")

// Encode serializes s in the layout of s.Header.Version. A version 0 song
// that cannot be expressed in the legacy layout is written as version 1.
func Encode(s *song.Song) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil song")
	}
	if !s.Format.Layered() {
		return nil, ErrNotLayered
	}

	version := targetVersion(s)
	vanilla := s.Header.VanillaInstruments
	if vanilla <= 0 {
		vanilla = instrument.VanillaCount()
	}

	w := &writer{}
	if err := writeHeader(w, s, version, vanilla); err != nil {
		return nil, err
	}
	if err := writeNotes(w, s, version, vanilla); err != nil {
		return nil, err
	}
	writeLayers(w, s, version)
	if err := writeCustomInstruments(w, s); err != nil {
		return nil, err
	}
	return w.buf, nil
}

func targetVersion(s *song.Song) int {
	version := min(max(s.Header.Version, 0), MaxVersion)
	if version == 0 && !legacyCompatible(s) {
		return 1
	}
	return version
}

// legacyCompatible reports whether s fits the version 0 layout: its length
// field doubles as the format marker, so it must be nonzero, and there is no
// room for vanilla instruments added after the legacy set.
func legacyCompatible(s *song.Song) bool {
	if max(s.Header.Length, s.Length()) == 0 {
		return false
	}
	vanilla := s.Header.VanillaInstruments
	if vanilla <= 0 {
		vanilla = instrument.VanillaCount()
	}
	for _, n := range s.Notes() {
		if n.Instrument >= LegacyVanillaCount && n.Instrument < vanilla {
			return false
		}
	}
	return true
}

func writeHeader(w *writer, s *song.Song, version, vanilla int) error {
	h := s.Header
	length := max(h.Length, s.Length())
	if length > 0xFFFF {
		return fmt.Errorf("song length %d does not fit in 16 bits", length)
	}
	if len(s.Layers) > MaxLayers {
		return fmt.Errorf("%d layers do not fit in 16 bits", len(s.Layers))
	}
	for _, f := range []struct {
		name  string
		value int
		max   int
	}{
		{"tempo", h.Tempo, 0xFFFF},
		{"auto-save minutes", h.AutoSaveMinutes, 0xFF},
		{"time signature", h.TimeSignature, 0xFF},
		{"max loop count", h.MaxLoopCount, 0xFF},
		{"loop start", h.LoopStart, 0xFFFF},
	} {
		if f.value < 0 || f.value > f.max {
			return fmt.Errorf("%s %d does not fit the header field (0..%d)", f.name, f.value, f.max)
		}
	}

	if version == 0 {
		w.u16(length)
	} else {
		w.u16(0)
		w.u8(version)
		w.u8(vanilla)
		if version >= 3 {
			w.u16(length)
		}
	}
	w.u16(len(s.Layers))
	w.str(h.Title)
	w.str(h.Author)
	w.str(h.OriginalAuthor)
	w.str(h.Description)
	w.u16(h.Tempo)
	w.bool(h.AutoSave)
	w.u8(h.AutoSaveMinutes)
	w.u8(h.TimeSignature)
	w.i32(h.MinutesSpent)
	w.i32(h.LeftClicks)
	w.i32(h.RightClicks)
	w.i32(h.BlocksAdded)
	w.i32(h.BlocksRemoved)
	w.str(h.ImportedFile)
	if version >= 4 {
		w.bool(h.Loop)
		w.u8(h.MaxLoopCount)
		w.u16(h.LoopStart)
	}
	return nil
}

func writeNotes(w *writer, s *song.Song, version, vanilla int) error {
	fields := fieldsFor(version)
	prevTick := -1
	for _, tick := range s.Ticks() {
		jump := tick - prevTick
		if !fitsInt16(jump) {
			return fmt.Errorf("gap of %d ticks before tick %d does not fit in 16 bits", jump, tick)
		}
		w.i16(jump)
		prevTick = tick

		prevLayer := -1
		for i, l := range s.Layers {
			n, ok := l.NoteAt(tick)
			if !ok {
				continue
			}
			if !fitsInt16(i - prevLayer) {
				return fmt.Errorf("layer %d is too far from layer %d", i, prevLayer)
			}
			w.i16(i - prevLayer)
			prevLayer = i

			out := n
			if version == 0 && n.Instrument >= vanilla {
				out = n.Clone()
				out.Instrument -= vanilla - LegacyVanillaCount
			}
			for _, f := range fields {
				if err := f.write(w, out); err != nil {
					return fmt.Errorf("note at tick %d, layer %d: %w", tick, i, err)
				}
			}
		}
		w.i16(0)
	}
	w.i16(0)
	return nil
}

func writeLayers(w *writer, s *song.Song, version int) {
	for _, l := range s.Layers {
		w.str(l.Name)
		if version >= 4 {
			w.bool(l.Locked)
		}
		w.u8(clampByte(l.Volume, 0xFF))
		if version >= 2 {
			w.u8(clampByte(l.Panning, 0xFF))
		}
	}
}

func writeCustomInstruments(w *writer, s *song.Song) error {
	if len(s.CustomInstruments) > 0xFF {
		return fmt.Errorf("%d custom instruments do not fit in a byte", len(s.CustomInstruments))
	}
	w.u8(len(s.CustomInstruments))
	for _, ci := range s.CustomInstruments {
		w.str(ci.Name)
		w.str(ci.SoundFile)
		w.u8(clampByte(ci.Key, 0xFF))
		w.bool(ci.PressKey)
	}
	return nil
}
