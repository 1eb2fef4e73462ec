package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/james-see/nbsconvert/pkg/converter/midiimport"
	"github.com/james-see/nbsconvert/pkg/instrument"
	"github.com/james-see/nbsconvert/pkg/pitch"
	"github.com/james-see/nbsconvert/pkg/song"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nbsconvert.yaml")
	content := `policy: transpose
midi:
  ticks_per_second: 10
  unmapped: fail
  full_range: true
nbs:
  version: 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default info", cfg.LogLevel)
	}

	opts, err := cfg.options(logrus.New())
	if err != nil {
		t.Fatalf("options() error = %v", err)
	}
	if opts.Policy != pitch.Transpose {
		t.Errorf("Policy = %v, want transpose", opts.Policy)
	}
	if opts.MIDI.TicksPerSecond != 10 || opts.MIDI.Unmapped != midiimport.UnmappedFail {
		t.Errorf("MIDI options = %+v", opts.MIDI)
	}
	if opts.MIDI.KeyRange != instrument.Full {
		t.Errorf("KeyRange = %v, want full", opts.MIDI.KeyRange)
	}
	if opts.NBSVersion != 3 {
		t.Errorf("NBSVersion = %d, want 3", opts.NBSVersion)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("loadConfig() expected error for a missing file")
	}
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig(\"\") error = %v", err)
	}
	if cfg != defaultConfig() {
		t.Errorf("loadConfig(\"\") = %+v, want defaults", cfg)
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Policy = "clamp"
	cfg.MIDI.TicksPerSecond = 10

	policy := policyValue(pitch.None)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(&policy, "policy", "")
	fs.Float64("tps", 20, "")
	fs.Bool("full-range", false, "")
	fs.Int("nbs-version", 4, "")
	if err := fs.Parse([]string{"--policy", "shift", "--full-range", "--nbs-version", "2"}); err != nil {
		t.Fatal(err)
	}
	cfg.applyFlags(fs)

	if cfg.Policy != "shift" {
		t.Errorf("Policy = %q, want shift", cfg.Policy)
	}
	if cfg.MIDI.TicksPerSecond != 10 {
		t.Errorf("TicksPerSecond = %v, want the config value 10", cfg.MIDI.TicksPerSecond)
	}
	if !cfg.MIDI.FullRange || cfg.NBS.Version != 2 {
		t.Errorf("FullRange %v Version %d", cfg.MIDI.FullRange, cfg.NBS.Version)
	}
}

func TestConfigOptionsErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"policy", func(c *Config) { c.Policy = "octave" }},
		{"unmapped", func(c *Config) { c.MIDI.Unmapped = "ignore" }},
		{"tps", func(c *Config) { c.MIDI.TicksPerSecond = 0 }},
		{"version", func(c *Config) { c.NBS.Version = 9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			if _, err := cfg.options(logrus.New()); err == nil {
				t.Error("options() expected error")
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    song.Format
		wantErr bool
	}{
		{"nbs", song.FormatNBS, false},
		{"TEXT", song.FormatText, false},
		{"txt", song.FormatText, false},
		{".mid", song.FormatMIDI, false},
		{"macro", song.FormatMacro, false},
		{"wav", song.FormatUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func testSong() *song.Song {
	s := song.New(song.FormatNBS)
	s.Header.Title = "dump"
	s.CustomInstruments = append(s.CustomInstruments, song.CustomInstrument{Name: "Tempo Changer"})
	s.AddNote(0, song.NewNote(int(instrument.Harp), 45))
	tc := song.NewNote(instrument.VanillaCount(), 45)
	tc.Layer = 1
	tc.Pitch = 300
	s.AddNote(0, tc)
	s.AddEvent(0, &song.TempoChange{TicksPerSecond: 20})
	return s
}

func TestWriteDump(t *testing.T) {
	s := testSong()

	var buf bytes.Buffer
	if err := writeDump(&buf, s, "json"); err != nil {
		t.Fatalf("writeDump(json) error = %v", err)
	}
	var d struct {
		Notes  []dumpNote  `json:"notes"`
		Events []dumpEvent `json:"events"`
	}
	if err := json.Unmarshal(buf.Bytes(), &d); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(d.Notes) != 2 || d.Notes[1].Instrument != "Tempo Changer" {
		t.Errorf("notes = %+v", d.Notes)
	}
	if len(d.Events) != 1 || d.Events[0].Kind != "tempo" {
		t.Errorf("events = %+v", d.Events)
	}

	buf.Reset()
	if err := writeDump(&buf, s, "yaml"); err != nil {
		t.Fatalf("writeDump(yaml) error = %v", err)
	}
	var y map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &y); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	if y["format"] != "nbs" {
		t.Errorf("format = %v, want nbs", y["format"])
	}

	buf.Reset()
	if err := writeDump(&buf, s, "spew"); err != nil {
		t.Fatalf("writeDump(spew) error = %v", err)
	}
	if !strings.Contains(buf.String(), "Tempo Changer") {
		t.Error("spew dump is missing the custom instrument")
	}

	if err := writeDump(&buf, s, "xml"); err == nil {
		t.Error("writeDump(xml) expected error")
	}
}

func TestInstrumentName(t *testing.T) {
	s := testSong()
	tests := []struct {
		id   int
		want string
	}{
		{int(instrument.Harp), instrument.Harp.String()},
		{instrument.VanillaCount(), "Tempo Changer"},
		{instrument.VanillaCount() + 5, "#21"},
	}
	for _, tt := range tests {
		if got := instrumentName(s, tt.id); got != tt.want {
			t.Errorf("instrumentName(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestInstrumentTable(t *testing.T) {
	out := instrumentTable().String()
	for _, want := range []string{"Double Bass", "basedrum", "iron_xylophone", "-2"} {
		if !strings.Contains(out, want) {
			t.Errorf("instrument table is missing %q", want)
		}
	}
}
