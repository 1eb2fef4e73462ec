// Package text reads and writes the line-oriented note list used by the
// in-game player. Each record is "tick:key:instrument" with keys counted in
// note-block clicks; an optional "###<speed>" first line sets the tick rate.
package text

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/james-see/nbsconvert/pkg/instrument"
	"github.com/james-see/nbsconvert/pkg/song"
)

const (
	// SpeedPrefix starts the optional speed line.
	SpeedPrefix = "###"

	formatName = "text"
)

// Decode parses a text note list. Keys and instruments are kept raw; use
// Normalize to map them into the NBS palette.
func Decode(data []byte) (*song.Song, error) {
	s := song.New(song.FormatText)
	body := string(data)

	if rest, ok := strings.CutPrefix(body, SpeedPrefix); ok {
		line, tail, _ := strings.Cut(rest, "\n")
		speed, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err != nil {
			return nil, &song.FormatError{Format: formatName, Msg: fmt.Sprintf("bad speed %q", strings.TrimSpace(line))}
		}
		if !song.ValidSpeed(speed) {
			return nil, &song.FormatError{Format: formatName, Msg: fmt.Sprintf("speed must be positive and finite, got %v", speed)}
		}
		s.SetSpeed(speed)
		body = tail
	}

	tokens := strings.FieldsFunc(body, isDelimiter)
	if len(tokens)%3 != 0 {
		return nil, &song.TruncatedError{
			Format: formatName,
			Record: fmt.Sprintf("note %d", len(tokens)/3),
			Offset: int64(len(tokens) / 3 * 3),
		}
	}

	for i := 0; i < len(tokens); i += 3 {
		tick, err := parseField(tokens[i], i, "tick", 0x7FFFFFFF)
		if err != nil {
			return nil, err
		}
		key, err := parseField(tokens[i+1], i+1, "key", 0xFF)
		if err != nil {
			return nil, err
		}
		inst, err := parseField(tokens[i+2], i+2, "instrument", 0xFF)
		if err != nil {
			return nil, err
		}
		s.AddNote(tick, song.NewNote(inst, key))
	}
	return s, nil
}

func isDelimiter(r rune) bool {
	switch r {
	case ':', '\r', '\n', ' ', '\t':
		return true
	}
	return false
}

// parseField parses a non-negative integer token. Offsets count tokens.
func parseField(tok string, idx int, what string, limit int) (int, error) {
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, &song.FormatError{Format: formatName, Offset: int64(idx), Msg: fmt.Sprintf("bad %s %q", what, tok)}
	}
	if v < 0 || v > limit {
		return 0, &song.FormatError{Format: formatName, Offset: int64(idx), Msg: fmt.Sprintf("%s %d out of range", what, v)}
	}
	return v, nil
}

// Normalize maps a decoded text note into the NBS palette and key range.
func Normalize(n *song.Note) (instrument.Instrument, int) {
	return instrument.FromGame(n.Instrument, n.Key, song.FormatText.KeyOffset())
}

// Encode writes s as a text note list, speed line first.
func Encode(s *song.Song) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil song")
	}
	if s.Format.Layered() {
		return nil, fmt.Errorf("%s: song must be flattened first", formatName)
	}

	var b strings.Builder
	b.WriteString(SpeedPrefix)
	b.WriteString(strconv.FormatFloat(s.Speed(), 'f', -1, 64))
	b.WriteByte('\n')
	for tick, n := range s.Notes() {
		if n.Key < 0 || n.Key > 0xFF {
			return nil, fmt.Errorf("%s: key %d at tick %d cannot be encoded", formatName, n.Key, tick)
		}
		if n.Instrument < 0 || n.Instrument > 0xFF {
			return nil, fmt.Errorf("%s: instrument %d at tick %d cannot be encoded", formatName, n.Instrument, tick)
		}
		fmt.Fprintf(&b, "%d:%d:%d\n", tick, n.Key, n.Instrument)
	}
	return []byte(b.String()), nil
}
