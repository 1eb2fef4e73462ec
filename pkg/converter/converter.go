package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/james-see/nbsconvert/pkg/converter/macro"
	"github.com/james-see/nbsconvert/pkg/converter/midiimport"
	"github.com/james-see/nbsconvert/pkg/converter/nbs"
	"github.com/james-see/nbsconvert/pkg/converter/text"
	"github.com/james-see/nbsconvert/pkg/pitch"
	"github.com/james-see/nbsconvert/pkg/song"
)

var extensions = map[string]song.Format{
	".nbs":   song.FormatNBS,
	".mcsp":  song.FormatNBS,
	".mcsp2": song.FormatNBS,
	".txt":   song.FormatText,
	".macro": song.FormatMacro,
	".mid":   song.FormatMIDI,
	".midi":  song.FormatMIDI,
}

// DetectFormat detects the format of a file based on its extension
func DetectFormat(filename string) song.Format {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extensions[ext]; ok {
		return f
	}
	return song.FormatUnknown
}

// Extension returns the file extension written for format f.
func Extension(f song.Format) string {
	switch f {
	case song.FormatNBS:
		return ".nbs"
	case song.FormatText:
		return ".txt"
	case song.FormatMacro:
		return ".macro"
	case song.FormatMIDI:
		return ".mid"
	default:
		return ""
	}
}

// DetectFormatFromContent detects format from file content. Macro streams and
// legacy NBS files have no signature and are reported as unknown.
func DetectFormatFromContent(data []byte) song.Format {
	if len(data) < 3 {
		return song.FormatUnknown
	}

	// Check for MIDI file signature "MThd"
	if len(data) >= 4 && string(data[:4]) == "MThd" {
		return song.FormatMIDI
	}

	if looksLikeText(data) {
		return song.FormatText
	}

	// New-style NBS header: zero length, then the version
	if data[0] == 0 && data[1] == 0 && int(data[2]) <= nbs.MaxVersion {
		return song.FormatNBS
	}

	return song.FormatUnknown
}

func looksLikeText(data []byte) bool {
	for _, b := range data {
		switch {
		case b >= '0' && b <= '9':
		case b == ':' || b == '#' || b == '.' || b == '\r' || b == '\n' || b == ' ' || b == '\t':
		default:
			return false
		}
	}
	return true
}

// Decode decodes data in format f.
func (c *Converter) Decode(f song.Format, data []byte) (*song.Song, error) {
	s, _, err := c.decode(f, data)
	return s, err
}

func (c *Converter) decode(f song.Format, data []byte) (*song.Song, *midiimport.Report, error) {
	switch f {
	case song.FormatNBS:
		s, err := nbs.Decode(data)
		return s, nil, err
	case song.FormatMacro:
		s, err := macro.Decode(data)
		return s, nil, err
	case song.FormatText:
		s, err := text.Decode(data)
		return s, nil, err
	case song.FormatMIDI:
		s, report, err := midiimport.Import(data, c.midiOptions())
		if err != nil {
			return nil, nil, err
		}
		return s, &report, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", song.ErrUnsupportedFormat, f)
	}
}

// DecodeFile reads and decodes a file, detecting its format from the
// extension. Only names without an extension are sniffed by content.
func (c *Converter) DecodeFile(path string) (*song.Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	f, err := detect(path, data)
	if err != nil {
		return nil, err
	}
	s, err := c.Decode(f, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	setImportedFile(s, path)
	return s, nil
}

func detect(name string, data []byte) (song.Format, error) {
	f := DetectFormat(name)
	if f == song.FormatUnknown && filepath.Ext(name) == "" {
		f = DetectFormatFromContent(data)
	}
	if f == song.FormatUnknown {
		return f, fmt.Errorf("%s: %w", name, song.ErrUnsupportedFormat)
	}
	return f, nil
}

func setImportedFile(s *song.Song, name string) {
	if s.Header.ImportedFile == "" && !s.Format.Layered() {
		s.Header.ImportedFile = filepath.Base(name)
	}
}

// Encode converts s to format f and serializes it.
func (c *Converter) Encode(s *song.Song, f song.Format) ([]byte, error) {
	data, _, _, err := c.encode(s, f)
	return data, err
}

func (c *Converter) encode(s *song.Song, f song.Format) ([]byte, *song.Song, int, error) {
	switch f {
	case song.FormatNBS:
		out := ToLayered(s, c.nbsVersion())
		data, err := nbs.Encode(out)
		return data, out, 0, err
	case song.FormatMacro:
		out, dropped := ToFlat(s, f)
		data, err := macro.Encode(out)
		return data, out, dropped, err
	case song.FormatText:
		out, dropped := ToFlat(s, f)
		data, err := text.Encode(out)
		return data, out, dropped, err
	case song.FormatMIDI:
		data, err := midiimport.Export(s)
		return data, s, 0, err
	default:
		return nil, nil, 0, fmt.Errorf("%w: %s", song.ErrUnsupportedFormat, f)
	}
}

// Convert decodes data read from inputName, applies the pitch policy and
// encodes the result as target.
func (c *Converter) Convert(inputName string, data []byte, target song.Format) (*ConversionResult, error) {
	log := c.logger()

	inputFormat, err := detect(inputName, data)
	if err != nil {
		return nil, err
	}
	src, report, err := c.decode(inputFormat, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inputName, err)
	}
	setImportedFile(src, inputName)

	corrected := pitch.Apply(src, c.opts.Policy)
	if corrected > 0 {
		log.WithFields(logrus.Fields{"policy": c.opts.Policy, "notes": corrected}).Info("corrected out-of-range notes")
	}

	out, encoded, dropped, err := c.encode(src, target)
	if err != nil {
		if c.opts.Policy == pitch.None {
			return nil, fmt.Errorf("encode %s: %w (a pitch policy may bring notes into range)", target, err)
		}
		return nil, fmt.Errorf("encode %s: %w", target, err)
	}
	if dropped > 0 {
		log.WithField("notes", dropped).Warn("dropped notes on custom instruments")
	}

	log.WithFields(logrus.Fields{
		"input":  inputFormat,
		"output": target,
		"notes":  encoded.NoteCount(),
		"bytes":  len(out),
	}).Debug("converted")

	return &ConversionResult{
		Data:      out,
		Filename:  inputName,
		Format:    target,
		Source:    src,
		Song:      encoded,
		Corrected: corrected,
		Dropped:   dropped,
		MIDI:      report,
	}, nil
}

// ConvertFile converts a file from one format to another
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	outputFormat := DetectFormat(outputPath)
	if outputFormat == song.FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	res, err := c.Convert(inputPath, data, outputFormat)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, res.Data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// OutputPath derives the output file name for converting input to target,
// avoiding overwriting the input when the extension does not change.
func OutputPath(input string, target song.Format) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	out := base + Extension(target)
	if out == input {
		out = base + ".converted" + Extension(target)
	}
	return out
}

// SupportedFormats lists the formats that can be read and written.
func SupportedFormats() []song.Format {
	return []song.Format{song.FormatNBS, song.FormatMacro, song.FormatText, song.FormatMIDI}
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	var out []string
	for _, from := range SupportedFormats() {
		for _, to := range SupportedFormats() {
			if from != to {
				out = append(out, fmt.Sprintf("%s -> %s", from, to))
			}
		}
	}
	return out
}
