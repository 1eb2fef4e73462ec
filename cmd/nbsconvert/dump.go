package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"gopkg.in/yaml.v3"

	"github.com/james-see/nbsconvert/pkg/song"
)

type dumpLayer struct {
	Name    string `yaml:"name,omitempty" json:"name,omitempty"`
	Volume  int    `yaml:"volume" json:"volume"`
	Panning int    `yaml:"panning" json:"panning"`
	Locked  bool   `yaml:"locked,omitempty" json:"locked,omitempty"`
	Notes   int    `yaml:"notes" json:"notes"`
}

type dumpNote struct {
	Tick       int    `yaml:"tick" json:"tick"`
	Layer      *int   `yaml:"layer,omitempty" json:"layer,omitempty"`
	Instrument string `yaml:"instrument" json:"instrument"`
	ID         int    `yaml:"id" json:"id"`
	Key        int    `yaml:"key" json:"key"`
	Velocity   int    `yaml:"velocity" json:"velocity"`
	Panning    int    `yaml:"panning" json:"panning"`
	Pitch      int    `yaml:"pitch,omitempty" json:"pitch,omitempty"`
}

type dumpEvent struct {
	Tick  int    `yaml:"tick" json:"tick"`
	Kind  string `yaml:"kind" json:"kind"`
	Value any    `yaml:"value,omitempty" json:"value,omitempty"`
}

type dumpSong struct {
	Format            song.Format             `yaml:"format" json:"format"`
	Header            song.Header             `yaml:"header" json:"header"`
	Layers            []dumpLayer             `yaml:"layers,omitempty" json:"layers,omitempty"`
	CustomInstruments []song.CustomInstrument `yaml:"custom_instruments,omitempty" json:"custom_instruments,omitempty"`
	Notes             []dumpNote              `yaml:"notes" json:"notes"`
	Events            []dumpEvent             `yaml:"events,omitempty" json:"events,omitempty"`
}

// eventDumper flattens events into dumpEvents.
type eventDumper struct {
	tick int
	out  []dumpEvent
}

func (d *eventDumper) VisitToggle(e *song.Toggle) {
	d.out = append(d.out, dumpEvent{Tick: d.tick, Kind: "toggle", Value: map[string]any{"name": e.Name, "on": e.On}})
}

func (d *eventDumper) VisitTempoChange(e *song.TempoChange) {
	d.out = append(d.out, dumpEvent{Tick: d.tick, Kind: "tempo", Value: e.TicksPerSecond})
}

func (d *eventDumper) VisitLoopStart(e *song.LoopStart) {
	d.out = append(d.out, dumpEvent{Tick: d.tick, Kind: "loop", Value: e.MaxLoops})
}

func newDump(s *song.Song) dumpSong {
	d := dumpSong{
		Format:            s.Format,
		Header:            s.Header,
		CustomInstruments: s.CustomInstruments,
		Notes:             []dumpNote{},
	}
	for _, l := range s.Layers {
		d.Layers = append(d.Layers, dumpLayer{Name: l.Name, Volume: l.Volume, Panning: l.Panning, Locked: l.Locked, Notes: l.Len()})
	}

	for tick, n := range s.Notes() {
		dn := dumpNote{
			Tick:     tick,
			ID:       n.Instrument,
			Key:      n.Key,
			Velocity: n.Velocity,
			Panning:  n.Panning,
			Pitch:    n.Pitch,
		}
		if n.Layer >= 0 {
			layer := n.Layer
			dn.Layer = &layer
		}
		dn.Instrument = instrumentName(s, n.Instrument)
		d.Notes = append(d.Notes, dn)
	}

	ed := &eventDumper{}
	for tick, e := range s.Events() {
		ed.tick = tick
		e.Accept(ed)
	}
	d.Events = ed.out
	return d
}

func writeDump(w io.Writer, s *song.Song, format string) error {
	d := newDump(s)
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case "spew":
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
		cfg.Fdump(w, d)
		return nil
	default:
		return fmt.Errorf("unknown dump format %q (want yaml, json or spew)", format)
	}
}
