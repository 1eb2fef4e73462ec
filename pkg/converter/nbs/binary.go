package nbs

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/james-see/nbsconvert/pkg/song"
)

const formatName = "nbs"

// reader walks a little-endian NBS buffer and reports the offset of any short
// read.
type reader struct {
	data []byte
	off  int
}

func (r *reader) need(n int, record string) error {
	if n < 0 || len(r.data)-r.off < n {
		return &song.TruncatedError{Format: formatName, Record: record, Offset: int64(r.off)}
	}
	return nil
}

func (r *reader) eof() bool {
	return r.off >= len(r.data)
}

func (r *reader) u8(record string) (int, error) {
	if err := r.need(1, record); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return int(v), nil
}

func (r *reader) bool(record string) (bool, error) {
	v, err := r.u8(record)
	return v != 0, err
}

func (r *reader) u16(record string) (int, error) {
	if err := r.need(2, record); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return int(v), nil
}

func (r *reader) i16(record string) (int, error) {
	v, err := r.u16(record)
	return int(int16(v)), err
}

func (r *reader) i32(record string) (int, error) {
	if err := r.need(4, record); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return int(v), nil
}

// str reads a length-prefixed string. Carriage returns become spaces.
func (r *reader) str(record string) (string, error) {
	start := r.off
	n, err := r.i32(record)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", &song.FormatError{Format: formatName, Offset: int64(start), Msg: fmt.Sprintf("negative %s length %d", record, n)}
	}
	if err := r.need(n, record); err != nil {
		return "", err
	}
	s := string(r.data[r.off : r.off+n])
	r.off += n
	return strings.ReplaceAll(s, "\r", " "), nil
}

// writer accumulates a little-endian NBS buffer.
type writer struct {
	buf []byte
}

func (w *writer) u8(v int) {
	w.buf = append(w.buf, byte(v))
}

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) u16(v int) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(v))
}

func (w *writer) i16(v int) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(int16(v)))
}

func (w *writer) i32(v int) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(int32(v)))
}

func (w *writer) str(s string) {
	w.i32(len(s))
	w.buf = append(w.buf, s...)
}

func fitsInt16(v int) bool {
	return v >= math.MinInt16 && v <= math.MaxInt16
}
