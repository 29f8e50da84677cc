package frc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ssargent/framerec/pkg/adapter"
	"github.com/ssargent/framerec/pkg/codec"
	"github.com/ssargent/framerec/pkg/recording"
)

const defaultBufferSize = 64 * 1024

// Writer appends frames to a recording stream. Each frame is encoded in
// full before anything is written, so an adapter error leaves the stream
// at the previous frame boundary.
type Writer struct {
	file     *os.File
	writer   *bufio.Writer
	path     string
	adapters *adapter.Registry
	metrics  *Metrics
	mutex    sync.Mutex
	offset   int64 // bytes written, header included
	frames   int
	scratch  []byte
}

// NewWriter writes a header to w and returns a Writer over it
func NewWriter(w io.Writer, opts Options) (*Writer, error) {
	fw := newWriter(w, opts)
	if err := fw.writeHeader(); err != nil {
		return nil, err
	}
	return fw, nil
}

func newWriter(w io.Writer, opts Options) *Writer {
	return &Writer{
		writer:   bufio.NewWriterSize(w, defaultBufferSize),
		adapters: opts.adapterRegistry(),
		metrics:  opts.Metrics,
	}
}

// Create truncates or creates the file at path and writes a header
func Create(path string, opts Options) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}

	w := newWriter(file, opts)
	w.file = file
	w.path = path
	if err := w.writeHeader(); err != nil {
		return nil, errors.Join(err, file.Close())
	}
	return w, nil
}

// Append opens the file at path for appending frames. A missing or empty
// file gets a fresh header; an existing one must have a valid header.
func Append(path string, opts Options) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}

	stat, err := file.Stat()
	if err != nil {
		return nil, errors.Join(err, file.Close())
	}

	w := newWriter(file, opts)
	w.file = file
	w.path = path

	if stat.Size() == 0 {
		if err := w.writeHeader(); err != nil {
			return nil, errors.Join(err, file.Close())
		}
		return w, nil
	}

	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(file, header); err != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", path, ErrBadMagic), file.Close())
	}
	if err := checkHeader(header); err != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", path, err), file.Close())
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return nil, errors.Join(err, file.Close())
	}
	w.offset = stat.Size()
	return w, nil
}

func (w *Writer) writeHeader() error {
	n, err := w.writer.Write(appendHeader(nil))
	w.offset += int64(n)
	return err
}

// WriteData appends one data frame
func (w *Writer) WriteData(d recording.TimestampedData) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	frame, err := appendDataFrame(w.scratch[:0], d, w.adapters)
	if err != nil {
		w.metrics.failure(opWrite)
		return fmt.Errorf("frame %d: %w", w.frames, err)
	}
	return w.write(frame, TagData)
}

// WriteMarker appends one marker frame
func (w *Writer) WriteMarker(m recording.Marker) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	frame, err := appendMarkerFrame(w.scratch[:0], m)
	if err != nil {
		w.metrics.failure(opWrite)
		return fmt.Errorf("frame %d: %w", w.frames, err)
	}
	return w.write(frame, TagMarker)
}

// WriteEntries writes data and markers merged by timestamp. Each sequence
// keeps its own order, so ties and out of order samples survive a reload.
// The whole batch is encoded before anything is written: an adapter error
// leaves the stream as it was.
func (w *Writer) WriteEntries(data []recording.TimestampedData, markers []recording.Marker) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	type pending struct {
		tag  Tag
		size int
	}
	frames := make([]pending, 0, len(data)+len(markers))
	batch := w.scratch[:0]

	i, j := 0, 0
	for i < len(data) || j < len(markers) {
		start := len(batch)
		var err error
		if j >= len(markers) || (i < len(data) && data[i].Timestamp <= markers[j].Timestamp) {
			batch, err = appendDataFrame(batch, data[i], w.adapters)
			if err != nil {
				w.metrics.failure(opWrite)
				return fmt.Errorf("frame %d: %w", w.frames+len(frames), err)
			}
			frames = append(frames, pending{TagData, len(batch) - start})
			i++
			continue
		}
		batch, err = appendMarkerFrame(batch, markers[j])
		if err != nil {
			w.metrics.failure(opWrite)
			return fmt.Errorf("frame %d: %w", w.frames+len(frames), err)
		}
		frames = append(frames, pending{TagMarker, len(batch) - start})
		j++
	}

	n, err := w.writer.Write(batch)
	w.offset += int64(n)
	if cap(batch) <= defaultBufferSize {
		w.scratch = batch[:0]
	}
	if err != nil {
		w.metrics.failure(opWrite)
		return err
	}
	for _, f := range frames {
		w.frames++
		w.metrics.frame(opWrite, f.tag, f.size)
	}
	return nil
}

// WriteRecording writes every sample and marker in rec
func (w *Writer) WriteRecording(rec *recording.Recording) error {
	data, markers := rec.Copy()
	return w.WriteEntries(data, markers)
}

func (w *Writer) write(frame []byte, tag Tag) error {
	n, err := w.writer.Write(frame)
	w.offset += int64(n)
	w.scratch = frame
	if err != nil {
		w.metrics.failure(opWrite)
		return err
	}
	w.frames++
	w.metrics.frame(opWrite, tag, n)
	return nil
}

// Flush writes buffered frames to the underlying writer
func (w *Writer) Flush() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.writer.Flush()
}

// Sync flushes and fsyncs the file. It is a plain flush for writers not
// backed by a file.
func (w *Writer) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.sync()
}

func (w *Writer) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close syncs and closes the file. The file is closed even if the final
// sync fails.
func (w *Writer) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	err := w.sync()
	if w.file == nil {
		return err
	}
	closeErr := w.file.Close()
	w.file = nil
	return errors.Join(err, closeErr)
}

// Size returns the number of bytes written so far, header included
func (w *Writer) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Frames returns the number of frames written by this writer
func (w *Writer) Frames() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.frames
}

// Path returns the file path, or "" for stream writers
func (w *Writer) Path() string {
	return w.path
}

func appendDataFrame(dst []byte, d recording.TimestampedData, ar *adapter.Registry) ([]byte, error) {
	if err := checkLengths(d.SourceID); err != nil {
		return dst, fmt.Errorf("source id: %w", err)
	}
	if d.Type == nil {
		return dst, fmt.Errorf("source %q: %w: missing data type", d.SourceID, adapter.ErrTypeMismatch)
	}
	a, err := ar.Lookup(d.Type)
	if err != nil {
		return dst, fmt.Errorf("source %q: %w", d.SourceID, err)
	}
	value, err := a.Serialize(d.Value)
	if err != nil {
		return dst, fmt.Errorf("source %q: %w", d.SourceID, err)
	}
	if err := checkLengths(d.Type.Name); err != nil {
		return dst, fmt.Errorf("source %q type name: %w", d.SourceID, err)
	}

	start := len(dst)
	dst = append(dst, byte(TagData))
	dst = codec.AppendInt64(dst, d.Timestamp)
	dst = codec.AppendString(dst, d.SourceID)
	dst = codec.AppendString(dst, d.Type.Name)
	dst = append(dst, value...)
	return appendChecksum(dst, start), nil
}

func appendMarkerFrame(dst []byte, m recording.Marker) ([]byte, error) {
	if err := checkLengths(m.Name, m.Description); err != nil {
		return dst, fmt.Errorf("marker: %w", err)
	}

	start := len(dst)
	dst = append(dst, byte(TagMarker))
	dst = codec.AppendInt64(dst, m.Timestamp)
	dst = codec.AppendString(dst, m.Name)
	dst = codec.AppendString(dst, m.Description)
	dst = codec.AppendInt32(dst, m.Importance.ID())
	return appendChecksum(dst, start), nil
}

func checkLengths(fields ...string) error {
	for _, f := range fields {
		if err := codec.CheckLength(len(f)); err != nil {
			return err
		}
	}
	return nil
}
