package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShortBuffer is returned when a read would run past the end of the buffer
	ErrShortBuffer = errors.New("codec: buffer too short")
	// ErrNegativeLength is returned when a length or count prefix is negative
	ErrNegativeLength = errors.New("codec: negative length prefix")
)

// Reader decodes primitives sequentially from a buffer, tracking a cursor.
// The underlying buffer is never modified.
type Reader struct {
	buf []byte
	pos int
}

// NewReader creates a reader positioned at pos
func NewReader(buf []byte, pos int) *Reader {
	return &Reader{buf: buf, pos: pos}
}

// Pos returns the current cursor position
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	if r.pos >= len(r.buf) {
		return 0
	}
	return len(r.buf) - r.pos
}

// Skip advances the cursor by n bytes
func (r *Reader) Skip(n int) error {
	if _, err := r.take(n); err != nil {
		return err
	}
	return nil
}

// Bool reads a 1-byte boolean. Any nonzero byte is true.
func (r *Reader) Bool() (bool, error) {
	b, err := r.take(SizeOfBool)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// Int16 reads a 2-byte big-endian integer
func (r *Reader) Int16() (int16, error) {
	b, err := r.take(SizeOfInt16)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

// Int32 reads a 4-byte big-endian integer
func (r *Reader) Int32() (int32, error) {
	b, err := r.take(SizeOfInt32)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// Int64 reads an 8-byte big-endian integer
func (r *Reader) Int64() (int64, error) {
	b, err := r.take(SizeOfInt64)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// Float64 reads an 8-byte IEEE-754 value
func (r *Reader) Float64() (float64, error) {
	b, err := r.take(SizeOfFloat64)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// String reads a length-prefixed UTF-8 string
func (r *Reader) String() (string, error) {
	b, err := r.prefixed(1)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Bytes reads a length-prefixed byte slice. The result is a copy.
func (r *Reader) Bytes() ([]byte, error) {
	b, err := r.prefixed(1)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// StringArray reads a counted array of length-prefixed strings
func (r *Reader) StringArray() ([]string, error) {
	n, err := r.count(SizeOfInt32)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = r.String(); err != nil {
			return nil, fmt.Errorf("string array element %d: %w", i, err)
		}
	}
	return out, nil
}

// BoolArray reads a counted array of 1-byte booleans
func (r *Reader) BoolArray() ([]bool, error) {
	n, err := r.count(SizeOfBool)
	if err != nil {
		return nil, err
	}
	b, err := r.take(n * SizeOfBool)
	if err != nil {
		return nil, err
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = b[i] != 0
	}
	return out, nil
}

// Float64Array reads a counted array of 8-byte IEEE-754 values
func (r *Reader) Float64Array() ([]float64, error) {
	n, err := r.count(SizeOfFloat64)
	if err != nil {
		return nil, err
	}
	b, err := r.take(n * SizeOfFloat64)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(b[i*SizeOfFloat64:]))
	}
	return out, nil
}

// take returns the next n bytes and advances the cursor
func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d at offset %d", ErrNegativeLength, n, r.pos)
	}
	if r.pos < 0 || r.pos > len(r.buf) || n > r.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.pos, r.Remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// prefixed reads a 4-byte length followed by that many elements of elemSize bytes
func (r *Reader) prefixed(elemSize int) ([]byte, error) {
	n, err := r.count(elemSize)
	if err != nil {
		return nil, err
	}
	return r.take(n * elemSize)
}

// count reads a 4-byte count and checks that at least count*minElemSize
// bytes remain, so corrupt prefixes fail before any allocation
func (r *Reader) count(minElemSize int) (int, error) {
	start := r.pos
	n, err := r.Int32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		r.pos = start
		return 0, fmt.Errorf("%w: %d at offset %d", ErrNegativeLength, n, start)
	}
	if int64(n)*int64(minElemSize) > int64(r.Remaining()) {
		r.pos = start
		return 0, fmt.Errorf("%w: length %d at offset %d exceeds remaining %d bytes",
			ErrShortBuffer, n, start, r.Remaining())
	}
	return int(n), nil
}

// ReadBool reads a boolean at pos
func ReadBool(buf []byte, pos int) (bool, error) {
	return NewReader(buf, pos).Bool()
}

// ReadInt16 reads a 16-bit integer at pos
func ReadInt16(buf []byte, pos int) (int16, error) {
	return NewReader(buf, pos).Int16()
}

// ReadInt32 reads a 32-bit integer at pos
func ReadInt32(buf []byte, pos int) (int32, error) {
	return NewReader(buf, pos).Int32()
}

// ReadInt64 reads a 64-bit integer at pos
func ReadInt64(buf []byte, pos int) (int64, error) {
	return NewReader(buf, pos).Int64()
}

// ReadFloat64 reads a float64 at pos
func ReadFloat64(buf []byte, pos int) (float64, error) {
	return NewReader(buf, pos).Float64()
}

// ReadString reads a length-prefixed string at pos
func ReadString(buf []byte, pos int) (string, error) {
	return NewReader(buf, pos).String()
}

// ReadBytes reads a length-prefixed byte slice at pos
func ReadBytes(buf []byte, pos int) ([]byte, error) {
	return NewReader(buf, pos).Bytes()
}

// ReadStringArray reads a string array at pos
func ReadStringArray(buf []byte, pos int) ([]string, error) {
	return NewReader(buf, pos).StringArray()
}

// ReadBoolArray reads a boolean array at pos
func ReadBoolArray(buf []byte, pos int) ([]bool, error) {
	return NewReader(buf, pos).BoolArray()
}

// ReadFloat64Array reads a float64 array at pos
func ReadFloat64Array(buf []byte, pos int) ([]float64, error) {
	return NewReader(buf, pos).Float64Array()
}
