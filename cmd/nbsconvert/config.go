package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/james-see/nbsconvert/pkg/converter"
	"github.com/james-see/nbsconvert/pkg/converter/midiimport"
	"github.com/james-see/nbsconvert/pkg/converter/nbs"
	"github.com/james-see/nbsconvert/pkg/instrument"
	"github.com/james-see/nbsconvert/pkg/pitch"
)

// Config is the optional YAML configuration file. Flags given on the command
// line override it.
type Config struct {
	Policy   string     `yaml:"policy"`
	LogLevel string     `yaml:"log_level"`
	MIDI     MIDIConfig `yaml:"midi"`
	NBS      NBSConfig  `yaml:"nbs"`
}

type MIDIConfig struct {
	TicksPerSecond float64 `yaml:"ticks_per_second"`
	Unmapped       string  `yaml:"unmapped"`
	FullRange      bool    `yaml:"full_range"`
}

type NBSConfig struct {
	Version int `yaml:"version"`
}

func defaultConfig() Config {
	return Config{
		Policy:   pitch.None.String(),
		LogLevel: logrus.InfoLevel.String(),
		MIDI: MIDIConfig{
			TicksPerSecond: midiimport.DefaultTicksPerSecond,
			Unmapped:       midiimport.UnmappedReport.String(),
		},
		NBS: NBSConfig{Version: converter.DefaultNBSVersion},
	}
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyFlags copies every flag the user set onto cfg.
func (cfg *Config) applyFlags(fs *pflag.FlagSet) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "policy":
			cfg.Policy = f.Value.String()
		case "log-level":
			cfg.LogLevel = f.Value.String()
		case "tps":
			cfg.MIDI.TicksPerSecond, _ = fs.GetFloat64(f.Name)
		case "unmapped":
			cfg.MIDI.Unmapped = f.Value.String()
		case "full-range":
			cfg.MIDI.FullRange, _ = fs.GetBool(f.Name)
		case "nbs-version":
			cfg.NBS.Version, _ = fs.GetInt(f.Name)
		}
	})
}

// options validates cfg and turns it into converter options.
func (cfg Config) options(log logrus.FieldLogger) (converter.Options, error) {
	var opts converter.Options

	p, err := pitch.ParsePolicy(cfg.Policy)
	if err != nil {
		return opts, err
	}
	u, err := midiimport.ParseUnmapped(cfg.MIDI.Unmapped)
	if err != nil {
		return opts, err
	}
	if cfg.MIDI.TicksPerSecond <= 0 {
		return opts, fmt.Errorf("midi ticks per second must be positive, got %v", cfg.MIDI.TicksPerSecond)
	}
	if cfg.NBS.Version < 0 || cfg.NBS.Version > nbs.MaxVersion {
		return opts, fmt.Errorf("nbs version must be between 0 and %d, got %d", nbs.MaxVersion, cfg.NBS.Version)
	}

	keys := instrument.Playable
	if cfg.MIDI.FullRange {
		keys = instrument.Full
	}

	opts = converter.Options{
		Policy: p,
		MIDI: midiimport.Options{
			TicksPerSecond: cfg.MIDI.TicksPerSecond,
			KeyRange:       keys,
			Unmapped:       u,
			Logger:         log,
		},
		NBSVersion: cfg.NBS.Version,
		Logger:     log,
	}
	return opts, nil
}
