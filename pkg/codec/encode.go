package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrTooLarge is returned for strings, byte slices and arrays too long for
// a 32-bit length prefix
var ErrTooLarge = errors.New("codec: length exceeds 32-bit prefix")

// Fixed widths of the primitive encodings
const (
	SizeOfBool    = 1
	SizeOfInt16   = 2
	SizeOfInt32   = 4
	SizeOfInt64   = 8
	SizeOfFloat64 = 8
)

// AppendBool appends a 1-byte boolean
func AppendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

// AppendInt16 appends a 2-byte big-endian integer
func AppendInt16(dst []byte, v int16) []byte {
	return binary.BigEndian.AppendUint16(dst, uint16(v))
}

// AppendInt32 appends a 4-byte big-endian integer
func AppendInt32(dst []byte, v int32) []byte {
	return binary.BigEndian.AppendUint32(dst, uint32(v))
}

// AppendInt64 appends an 8-byte big-endian integer
func AppendInt64(dst []byte, v int64) []byte {
	return binary.BigEndian.AppendUint64(dst, uint64(v))
}

// AppendFloat64 appends the raw IEEE-754 bits of v, so NaN payloads and
// infinities survive a round trip unchanged
func AppendFloat64(dst []byte, v float64) []byte {
	return binary.BigEndian.AppendUint64(dst, math.Float64bits(v))
}

// AppendString appends a length-prefixed UTF-8 string
func AppendString(dst []byte, s string) []byte {
	dst = AppendInt32(dst, prefix(len(s)))
	return append(dst, s...)
}

// AppendBytes appends a length-prefixed raw byte slice
func AppendBytes(dst []byte, b []byte) []byte {
	dst = AppendInt32(dst, prefix(len(b)))
	return append(dst, b...)
}

// AppendStringArray appends a count followed by each string, individually
// length-prefixed
func AppendStringArray(dst []byte, a []string) []byte {
	dst = AppendInt32(dst, prefix(len(a)))
	for _, s := range a {
		dst = AppendString(dst, s)
	}
	return dst
}

// AppendBoolArray appends a count followed by one byte per element
func AppendBoolArray(dst []byte, a []bool) []byte {
	dst = AppendInt32(dst, prefix(len(a)))
	for _, v := range a {
		dst = AppendBool(dst, v)
	}
	return dst
}

// AppendFloat64Array appends a count followed by 8 bytes per element
func AppendFloat64Array(dst []byte, a []float64) []byte {
	dst = AppendInt32(dst, prefix(len(a)))
	for _, v := range a {
		dst = AppendFloat64(dst, v)
	}
	return dst
}

// SizeOfString returns the encoded size of s
func SizeOfString(s string) int {
	return SizeOfInt32 + len(s)
}

// SizeOfBytes returns the encoded size of b
func SizeOfBytes(b []byte) int {
	return SizeOfInt32 + len(b)
}

// SizeOfStringArray returns the encoded size of a
func SizeOfStringArray(a []string) int {
	size := SizeOfInt32
	for _, s := range a {
		size += SizeOfString(s)
	}
	return size
}

// SizeOfBoolArray returns the encoded size of a
func SizeOfBoolArray(a []bool) int {
	return SizeOfInt32 + len(a)*SizeOfBool
}

// SizeOfFloat64Array returns the encoded size of a
func SizeOfFloat64Array(a []float64) int {
	return SizeOfInt32 + len(a)*SizeOfFloat64
}

// CheckLength returns an error wrapping ErrTooLarge when n does not fit a
// length prefix. An encoded value whose total size passes CheckLength has
// no prefix that fails it.
func CheckLength(n int) error {
	if int64(n) > math.MaxInt32 {
		return fmt.Errorf("%w: %d", ErrTooLarge, n)
	}
	return nil
}

// prefix panics on lengths CheckLength rejects; callers check first
func prefix(n int) int32 {
	if int64(n) > math.MaxInt32 {
		panic(fmt.Errorf("%w: %d", ErrTooLarge, n))
	}
	return int32(n)
}
