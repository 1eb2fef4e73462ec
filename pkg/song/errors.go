package song

import (
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedFormat is returned for files no codec recognizes.
var ErrUnsupportedFormat = errors.New("unsupported format")

// FormatError reports input that is not valid for the codec reading it.
type FormatError struct {
	Format string
	Offset int64 // byte offset, or record index for token formats
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: invalid data at %d: %s", e.Format, e.Offset, e.Msg)
}

// TruncatedError reports input that ended inside a mandatory record.
type TruncatedError struct {
	Format string
	Record string
	Offset int64
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("%s: truncated %s at byte %d", e.Format, e.Record, e.Offset)
}

func (e *TruncatedError) Unwrap() error {
	return io.ErrUnexpectedEOF
}

// UnsupportedError reports a well-formed file using a variant that cannot be
// decoded, such as a MIDI division type or a future NBS version.
type UnsupportedError struct {
	What  string
	Value int
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported %s: %d", e.What, e.Value)
}

// InvalidTempoError reports a tempo meta event whose payload is not 3 bytes
// or whose value is zero.
type InvalidTempoError struct {
	Track      int
	Tick       int64
	PayloadLen int
}

func (e *InvalidTempoError) Error() string {
	if e.PayloadLen != 3 {
		return fmt.Sprintf("invalid tempo event on track %d at tick %d: payload is %d bytes, want 3", e.Track, e.Tick, e.PayloadLen)
	}
	return fmt.Sprintf("invalid tempo event on track %d at tick %d: zero microseconds per quarter note", e.Track, e.Tick)
}
