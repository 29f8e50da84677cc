package frc

import (
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/ssargent/framerec/pkg/adapter"
	"github.com/ssargent/framerec/pkg/codec"
	"github.com/ssargent/framerec/pkg/recording"
	"github.com/ssargent/framerec/pkg/types"
)

// Decoder walks the frames of an encoded recording in a single forward
// pass. Any malformed frame, including a partial one at the end, stops the
// walk with an error.
//
//	dec, err := frc.NewDecoder(buf, opts)
//	for dec.Next() {
//		switch e := dec.Entry().(type) {
//		case recording.TimestampedData:
//		case recording.Marker:
//		}
//	}
//	if err := dec.Err(); err != nil { ... }
type Decoder struct {
	buf      []byte
	pos      int
	types    *types.Registry
	adapters *adapter.Registry
	metrics  *Metrics

	entry  recording.Entry
	tag    Tag
	frames int
	err    error
}

// NewDecoder validates the header of buf and returns a decoder positioned
// at the first frame
func NewDecoder(buf []byte, opts Options) (*Decoder, error) {
	if err := checkHeader(buf); err != nil {
		return nil, err
	}
	return &Decoder{
		buf:      buf,
		pos:      HeaderSize,
		types:    opts.typeRegistry(),
		adapters: opts.adapterRegistry(),
		metrics:  opts.Metrics,
	}, nil
}

// Next decodes the next frame. It returns false at the end of the buffer or
// on error; check Err to tell them apart.
func (d *Decoder) Next() bool {
	if d.err != nil || d.pos >= len(d.buf) {
		return false
	}

	start := d.pos
	entry, tag, end, err := d.decodeFrame(start)
	if err != nil {
		d.err = &FrameError{Index: d.frames, Offset: start, Err: err}
		d.entry = nil
		d.metrics.failure(opRead)
		return false
	}

	d.entry = entry
	d.tag = tag
	d.pos = end
	d.frames++
	d.metrics.frame(opRead, tag, end-start)
	return true
}

// Entry returns the frame decoded by the last call to Next
func (d *Decoder) Entry() recording.Entry {
	return d.entry
}

// Tag returns the kind of the last decoded frame
func (d *Decoder) Tag() Tag {
	return d.tag
}

// Err returns the error that stopped decoding, if any
func (d *Decoder) Err() error {
	return d.err
}

// Offset returns the byte offset of the next frame
func (d *Decoder) Offset() int {
	return d.pos
}

// Frames returns the number of frames decoded so far
func (d *Decoder) Frames() int {
	return d.frames
}

func (d *Decoder) decodeFrame(start int) (recording.Entry, Tag, int, error) {
	// Next guarantees at least the tag byte is present
	tag := Tag(d.buf[start])
	r := codec.NewReader(d.buf, start+1)

	var (
		entry recording.Entry
		err   error
	)
	switch tag {
	case TagData:
		entry, err = d.decodeData(r)
	case TagMarker:
		entry, err = decodeMarker(r)
	default:
		return nil, tag, 0, fmt.Errorf("%w: %d", ErrUnknownTag, byte(tag))
	}
	if err != nil {
		return nil, tag, 0, err
	}

	body := r.Pos()
	want, err := r.Int32()
	if err != nil {
		return nil, tag, 0, truncated(err)
	}
	if got := crc32.ChecksumIEEE(d.buf[start:body]); got != uint32(want) {
		return nil, tag, 0, fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksum, uint32(want), got)
	}
	return entry, tag, r.Pos(), nil
}

func (d *Decoder) decodeData(r *codec.Reader) (recording.Entry, error) {
	ts, err := r.Int64()
	if err != nil {
		return nil, truncated(err)
	}
	sourceID, err := r.String()
	if err != nil {
		return nil, truncated(err)
	}
	typeName, err := r.String()
	if err != nil {
		return nil, truncated(err)
	}

	dt, err := d.types.Lookup(typeName)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", sourceID, err)
	}
	a, err := d.adapters.Lookup(dt)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", sourceID, err)
	}

	value, err := a.Deserialize(d.buf, r.Pos())
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", sourceID, truncated(err))
	}
	size, err := a.SerializedSize(value)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", sourceID, err)
	}
	if err := r.Skip(size); err != nil {
		return nil, truncated(err)
	}

	return recording.TimestampedData{SourceID: sourceID, Type: dt, Value: value, Timestamp: ts}, nil
}

func decodeMarker(r *codec.Reader) (recording.Entry, error) {
	ts, err := r.Int64()
	if err != nil {
		return nil, truncated(err)
	}
	name, err := r.String()
	if err != nil {
		return nil, truncated(err)
	}
	desc, err := r.String()
	if err != nil {
		return nil, truncated(err)
	}
	id, err := r.Int32()
	if err != nil {
		return nil, truncated(err)
	}
	importance, err := recording.ImportanceForID(id)
	if err != nil {
		return nil, fmt.Errorf("marker %q: %w", name, err)
	}
	return recording.NewMarker(name, desc, importance, ts), nil
}

// truncated tags short reads with ErrTruncated and leaves other errors alone
func truncated(err error) error {
	if errors.Is(err, codec.ErrShortBuffer) && !errors.Is(err, ErrTruncated) {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return err
}

// FrameError locates a decoding failure in the stream
type FrameError struct {
	Index  int
	Offset int
	Err    error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d at offset %d: %v", e.Index, e.Offset, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
