// Package frc reads and writes recording files.
//
// # File Format
//
// A file is an 8-byte header followed by frames until end of file:
//
//	header: [magic(4)=0xFEEDBAC4][version(4)=1]
//	frame:  [tag(1)][payload][crc32(4)]
//
//	tag 1, data:   [timestamp(8)][string sourceID][string type name][value]
//	tag 2, marker: [timestamp(8)][string name][string description][importance(4)]
//
// Integers are big-endian and strings are length-prefixed UTF-8, as written
// by package codec. The value bytes carry no length of their own; the
// adapter registered for the named type decodes them and reports how many
// bytes it consumed. The CRC32 (IEEE) covers the tag and payload.
//
// There is no frame count in the header, so a recorder can append frames to
// a file it saved earlier.
package frc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/ssargent/framerec/pkg/adapter"
	"github.com/ssargent/framerec/pkg/codec"
	"github.com/ssargent/framerec/pkg/types"
)

const (
	// Magic identifies a recording file
	Magic uint32 = 0xFEEDBAC4
	// Version is the format version this package writes
	Version int32 = 1
	// HeaderSize is the size of the file header
	HeaderSize = codec.SizeOfInt32 * 2
	// Ext is the conventional file extension
	Ext = ".frc"

	crcSize = codec.SizeOfInt32
)

// Tag identifies a frame kind
type Tag byte

const (
	TagData   Tag = 1
	TagMarker Tag = 2
)

func (t Tag) String() string {
	switch t {
	case TagData:
		return "data"
	case TagMarker:
		return "marker"
	}
	return "unknown"
}

var (
	ErrBadMagic           = errors.New("frc: not a recording file")
	ErrUnsupportedVersion = errors.New("frc: unsupported format version")
	ErrTruncated          = errors.New("frc: truncated frame")
	ErrChecksum           = errors.New("frc: frame checksum mismatch")
	ErrUnknownTag         = errors.New("frc: unknown frame tag")
)

// Options selects the registries used to resolve types and adapters. Nil
// fields fall back to the process-wide registries.
type Options struct {
	Types    *types.Registry
	Adapters *adapter.Registry
	Metrics  *Metrics
}

func (o Options) typeRegistry() *types.Registry {
	if o.Types != nil {
		return o.Types
	}
	return types.Default()
}

func (o Options) adapterRegistry() *adapter.Registry {
	if o.Adapters != nil {
		return o.Adapters
	}
	return adapter.Default()
}

func appendHeader(dst []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, Magic)
	return codec.AppendInt32(dst, Version)
}

// checkHeader validates the file header at the start of buf
func checkHeader(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrBadMagic
	}
	if binary.BigEndian.Uint32(buf) != Magic {
		return ErrBadMagic
	}
	version, _ := codec.ReadInt32(buf, codec.SizeOfInt32)
	if version != Version {
		return &VersionError{Version: version}
	}
	return nil
}

// VersionError reports a header with a version this package cannot read
type VersionError struct {
	Version int32
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnsupportedVersion, e.Version)
}

func (e *VersionError) Unwrap() error {
	return ErrUnsupportedVersion
}

func appendChecksum(frame []byte, start int) []byte {
	return codec.AppendInt32(frame, int32(crc32.ChecksumIEEE(frame[start:])))
}
