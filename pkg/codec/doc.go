// Package codec provides the byte-level primitives used by framerec's
// recording format and type adapters.
//
// Every multi-byte value is encoded big-endian with a fixed width:
//
//	bool     1 byte  (1 = true, 0 = false)
//	int16    2 bytes
//	int32    4 bytes
//	int64    8 bytes
//	float64  8 bytes (raw IEEE-754 bit pattern)
//
// Variable-length values carry a 4-byte signed length or count prefix:
//
//	string         [len(4)][UTF-8 bytes]
//	raw bytes      [len(4)][bytes]
//	string array   [count(4)][string_0][string_1]...
//	bool array     [count(4)][1 byte per element]
//	float64 array  [count(4)][8 bytes per element]
//
// Empty strings and arrays still emit the 4-byte zero prefix and no payload.
// String lengths count UTF-8 bytes, not characters.
//
// # Usage
//
// Encoders append to a destination slice and return the extended slice, in
// the style of the standard library's strconv.Append* functions:
//
//	buf := codec.AppendString(nil, "abcd")
//	// buf == 00 00 00 04 'a' 'b' 'c' 'd'
//
// Decoders read at an explicit position and never mutate their input:
//
//	s, err := codec.ReadString(buf, 0)
//
// A Reader wraps a buffer and a cursor for composite values that sequence
// several primitives:
//
//	r := codec.NewReader(buf, pos)
//	options, err := r.StringArray()
//	...
//	consumed := r.Pos() - pos
//
// # Error Handling
//
// Every read is bounds-checked. A read past the end of the buffer, or a
// length prefix larger than the remaining bytes, returns an error wrapping
// ErrShortBuffer. A negative length prefix returns an error wrapping
// ErrNegativeLength. Decoding never panics on malformed input.
//
// Append functions assume lengths fit the 32-bit prefix. Callers encoding
// untrusted sizes check them with CheckLength, which returns an error
// wrapping ErrTooLarge, before appending.
package codec
