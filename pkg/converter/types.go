// Package converter provides conversion between note block song formats:
// NBS, the macro tick-delta stream, the text note list and MIDI.
package converter

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/james-see/nbsconvert/pkg/converter/midiimport"
	"github.com/james-see/nbsconvert/pkg/pitch"
	"github.com/james-see/nbsconvert/pkg/song"
)

// DefaultNBSVersion is written when a song converted to NBS has no version.
const DefaultNBSVersion = 4

// Options configures a Converter
type Options struct {
	// Policy corrects out-of-range notes after decoding.
	Policy pitch.Policy
	// MIDI controls MIDI imports.
	MIDI midiimport.Options
	// NBSVersion is the version written for songs converted to NBS from
	// another format. Zero means DefaultNBSVersion.
	NBSVersion int
	Logger     logrus.FieldLogger
}

// ConversionResult holds the result of a conversion
type ConversionResult struct {
	Data     []byte
	Filename string
	Format   song.Format

	// Source is the decoded input after pitch correction; Song is what was
	// encoded.
	Source *song.Song
	Song   *song.Song

	Corrected int // notes moved by the pitch policy
	Dropped   int // notes the target format cannot hold
	MIDI      *midiimport.Report
}

// Converter handles format conversions
type Converter struct {
	opts Options
}

// New creates a new Converter with the given options
func New(opts Options) *Converter {
	return &Converter{opts: opts}
}

// GetOptions returns the current options
func (c *Converter) GetOptions() Options {
	return c.opts
}

// SetOptions replaces the conversion options
func (c *Converter) SetOptions(opts Options) {
	c.opts = opts
}

func (c *Converter) logger() logrus.FieldLogger {
	if c.opts.Logger != nil {
		return c.opts.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (c *Converter) midiOptions() midiimport.Options {
	opts := c.opts.MIDI
	if opts.Logger == nil {
		opts.Logger = c.opts.Logger
	}
	return opts
}

func (c *Converter) nbsVersion() int {
	if c.opts.NBSVersion > 0 {
		return c.opts.NBSVersion
	}
	return DefaultNBSVersion
}
