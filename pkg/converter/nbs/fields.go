package nbs

import (
	"fmt"

	"github.com/james-see/nbsconvert/pkg/song"
)

// noteField is one entry of a note record. Fields are read and written in
// table order; since is the first format version that stores the field.
type noteField struct {
	name  string
	since int
	flag  song.Field
	read  func(r *reader, n *song.Note) error
	write func(w *writer, n *song.Note) error
}

var noteFields = []noteField{
	{
		name: "instrument",
		read: func(r *reader, n *song.Note) (err error) {
			n.Instrument, err = r.u8("note instrument")
			return err
		},
		write: func(w *writer, n *song.Note) error {
			if n.Instrument < 0 || n.Instrument > 0xFF {
				return fmt.Errorf("instrument %d does not fit in a byte", n.Instrument)
			}
			w.u8(n.Instrument)
			return nil
		},
	},
	{
		name: "key",
		read: func(r *reader, n *song.Note) (err error) {
			n.Key, err = r.u8("note key")
			return err
		},
		write: func(w *writer, n *song.Note) error {
			if n.Key < 0 || n.Key > 0xFF {
				return fmt.Errorf("key %d does not fit in a byte", n.Key)
			}
			w.u8(n.Key)
			return nil
		},
	},
	{
		name:  "velocity",
		since: 4,
		flag:  song.FieldVelocity,
		read: func(r *reader, n *song.Note) (err error) {
			n.Velocity, err = r.u8("note velocity")
			return err
		},
		write: func(w *writer, n *song.Note) error {
			w.u8(clampByte(n.Velocity, 0xFF))
			return nil
		},
	},
	{
		name:  "panning",
		since: 4,
		flag:  song.FieldPanning,
		read: func(r *reader, n *song.Note) (err error) {
			n.Panning, err = r.u8("note panning")
			return err
		},
		write: func(w *writer, n *song.Note) error {
			w.u8(clampByte(n.Panning, 0xFF))
			return nil
		},
	},
	{
		name:  "pitch",
		since: 4,
		flag:  song.FieldPitch,
		read: func(r *reader, n *song.Note) (err error) {
			n.Pitch, err = r.i16("note pitch")
			return err
		},
		write: func(w *writer, n *song.Note) error {
			if !fitsInt16(n.Pitch) {
				return fmt.Errorf("pitch %d does not fit in 16 bits", n.Pitch)
			}
			w.i16(n.Pitch)
			return nil
		},
	},
}

// fieldsFor returns the note record layout of version.
func fieldsFor(version int) []noteField {
	var out []noteField
	for _, f := range noteFields {
		if f.since <= version {
			out = append(out, f)
		}
	}
	return out
}

func clampByte(v, hi int) int {
	return max(0, min(v, hi))
}
