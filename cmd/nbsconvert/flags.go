package main

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/james-see/nbsconvert/pkg/converter"
	"github.com/james-see/nbsconvert/pkg/converter/midiimport"
	"github.com/james-see/nbsconvert/pkg/pitch"
	"github.com/james-see/nbsconvert/pkg/song"
)

// policyValue is a pflag.Value for pitch policies.
type policyValue pitch.Policy

var _ pflag.Value = (*policyValue)(nil)

func (v *policyValue) String() string { return pitch.Policy(*v).String() }
func (v *policyValue) Type() string   { return "policy" }

func (v *policyValue) Set(s string) error {
	p, err := pitch.ParsePolicy(s)
	if err != nil {
		return err
	}
	*v = policyValue(p)
	return nil
}

// unmappedValue is a pflag.Value for the unmapped MIDI note policy.
type unmappedValue midiimport.Unmapped

var _ pflag.Value = (*unmappedValue)(nil)

func (v *unmappedValue) String() string { return midiimport.Unmapped(*v).String() }
func (v *unmappedValue) Type() string   { return "unmapped" }

func (v *unmappedValue) Set(s string) error {
	u, err := midiimport.ParseUnmapped(s)
	if err != nil {
		return err
	}
	*v = unmappedValue(u)
	return nil
}

// formatValue is a pflag.Value naming an output format. It accepts format
// names and file extensions.
type formatValue song.Format

var _ pflag.Value = (*formatValue)(nil)

func (v *formatValue) String() string { return string(*v) }
func (v *formatValue) Type() string   { return "format" }

func (v *formatValue) Set(s string) error {
	f, err := parseFormat(s)
	if err != nil {
		return err
	}
	*v = formatValue(f)
	return nil
}

func parseFormat(s string) (song.Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, f := range converter.SupportedFormats() {
		if s == string(f) {
			return f, nil
		}
	}
	if !strings.HasPrefix(s, ".") {
		s = "." + s
	}
	if f := converter.DetectFormat("x" + s); f != song.FormatUnknown {
		return f, nil
	}
	return song.FormatUnknown, &unknownFormatError{name: s}
}

type unknownFormatError struct{ name string }

func (e *unknownFormatError) Error() string {
	return "unknown format " + strings.TrimPrefix(e.name, ".") + " (want nbs, text, macro or midi)"
}
