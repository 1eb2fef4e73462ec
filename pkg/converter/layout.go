package converter

import (
	"github.com/james-see/nbsconvert/pkg/converter/macro"
	"github.com/james-see/nbsconvert/pkg/converter/text"
	"github.com/james-see/nbsconvert/pkg/instrument"
	"github.com/james-see/nbsconvert/pkg/song"
)

// normalize maps a note of a flat song into the NBS palette and key encoding
// with the rules of the codec it was read by.
func normalize(f song.Format, n *song.Note) (instrument.Instrument, int) {
	switch f {
	case song.FormatMacro:
		return macro.Normalize(n)
	case song.FormatText:
		return text.Normalize(n)
	default:
		return instrument.FromGame(n.Instrument, n.Key, f.KeyOffset())
	}
}

// ToLayered returns s as an NBS song. Flat songs are mapped into the NBS
// palette and key encoding, the i-th note of a tick going to layer i. A song
// that is already layered is returned as is.
func ToLayered(s *song.Song, version int) *song.Song {
	if s.Format.Layered() {
		return s
	}
	if version <= 0 {
		version = DefaultNBSVersion
	}

	out := song.New(song.FormatNBS)
	out.Header.Version = version
	copyMetadata(out, s)
	out.SetSpeed(s.Speed())

	for _, tick := range s.Ticks() {
		for i, n := range s.NotesAt(tick) {
			inst, key := normalize(s.Format, n)
			nn := n.Clone()
			nn.Instrument = instrument.PaletteNBS.ID(inst)
			nn.Key = key
			nn.Layer = i
			out.AddNote(tick, nn)
		}
	}
	copyEvents(out, s)
	out.Header.LayerCount = len(out.Layers)
	return out
}

// ToFlat returns s as a song of the flat format f and the number of notes
// left out because they use custom instruments.
func ToFlat(s *song.Song, f song.Format) (*song.Song, int) {
	if s.Format == f {
		return s, 0
	}

	out := song.New(f)
	copyMetadata(out, s)
	out.SetSpeed(s.Speed())

	dropped := 0
	srcPalette := s.Format.Palette()
	for tick, n := range s.Notes() {
		var inst instrument.Instrument
		var key int
		if srcPalette == instrument.PaletteGame {
			inst, key = normalize(s.Format, n)
		} else {
			var ok bool
			if inst, ok = srcPalette.Lookup(n.Instrument); !ok {
				dropped++
				continue
			}
			key = n.Key + s.Format.KeyOffset()
		}
		nn := n.Clone()
		nn.Instrument = instrument.PaletteGame.ID(inst)
		nn.Key = key - f.KeyOffset()
		out.AddNote(tick, nn)
	}
	copyEvents(out, s)
	return out, dropped
}

func copyMetadata(dst, src *song.Song) {
	dst.Header.Title = src.Header.Title
	dst.Header.Author = src.Header.Author
	dst.Header.OriginalAuthor = src.Header.OriginalAuthor
	dst.Header.Description = src.Header.Description
	dst.Header.ImportedFile = src.Header.ImportedFile
}

func copyEvents(dst, src *song.Song) {
	for tick, e := range src.Events() {
		dst.AddEvent(tick, e.Clone())
	}
}
