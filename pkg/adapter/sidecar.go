package adapter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ssargent/framerec/pkg/codec"
	"github.com/ssargent/framerec/pkg/types"
)

// SidecarExt is appended to the recording path to name the sidecar file
const SidecarExt = ".blobs"

// sidecarRefSize is the in-stream size of a sidecar reference: offset + length
const sidecarRefSize = codec.SizeOfInt64 + codec.SizeOfInt32

// ErrNoSidecar is returned when a sidecar adapter is used before a
// recording file has been set
var ErrNoSidecar = errors.New("adapter: no current recording file for sidecar data")

// Sidecar stores []byte payloads in a file next to the recording and writes
// only a fixed-size reference into the frame stream:
//
//	[offset(8)][length(4)]
//
// The sidecar file is opened lazily on first use. CleanUp closes it and
// clears the current file.
type Sidecar struct {
	dataType *types.DataType

	mu     sync.Mutex
	path   string
	mode   FileMode
	handle *sidecarFile
}

type sidecarFile struct {
	file   *os.File
	writer *bufio.Writer
	size   int64
}

// NewSidecar returns a sidecar adapter for dt, whose values must be []byte
func NewSidecar(dt *types.DataType) *Sidecar {
	return &Sidecar{dataType: dt}
}

func (s *Sidecar) DataType() *types.DataType {
	return s.dataType
}

// SetCurrentFile points the adapter at the sidecar for recordingPath. Any
// previously open sidecar is closed.
func (s *Sidecar) SetCurrentFile(recordingPath string, mode FileMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil && (s.path != recordingPath+SidecarExt || s.mode != mode) {
		_ = s.release()
	}
	s.path = recordingPath + SidecarExt
	s.mode = mode
}

// Path returns the current sidecar path, or "" when unset
func (s *Sidecar) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func (s *Sidecar) Serialize(value any) ([]byte, error) {
	payload, err := s.cast(value)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return nil, ErrNoSidecar
	}
	if s.mode == FileRead {
		return nil, fmt.Errorf("sidecar %s: opened for reading", s.path)
	}
	h, err := s.open()
	if err != nil {
		return nil, err
	}

	offset := h.size
	n, err := h.writer.Write(payload)
	if err != nil {
		return nil, fmt.Errorf("sidecar %s: %w", s.path, err)
	}
	h.size += int64(n)

	buf := make([]byte, 0, sidecarRefSize)
	buf = codec.AppendInt64(buf, offset)
	buf = codec.AppendInt32(buf, int32(len(payload)))
	return buf, nil
}

func (s *Sidecar) Deserialize(buf []byte, pos int) (any, error) {
	r := codec.NewReader(buf, pos)
	offset, err := r.Int64()
	if err != nil {
		return nil, fmt.Errorf("sidecar offset: %w", err)
	}
	length, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("sidecar length: %w", err)
	}
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("sidecar reference %d+%d: %w", offset, length, codec.ErrNegativeLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.open()
	if err != nil {
		return nil, err
	}
	if h.writer != nil {
		if err := h.writer.Flush(); err != nil {
			return nil, fmt.Errorf("sidecar %s: %w", s.path, err)
		}
	}
	if offset+int64(length) > h.size {
		return nil, fmt.Errorf("sidecar %s: reference %d+%d past end %d: %w",
			s.path, offset, length, h.size, codec.ErrShortBuffer)
	}

	out := make([]byte, length)
	if _, err := h.file.ReadAt(out, offset); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("sidecar %s: %w", s.path, err)
	}
	return out, nil
}

func (s *Sidecar) SerializedSize(value any) (int, error) {
	if _, err := s.cast(value); err != nil {
		return 0, err
	}
	return sidecarRefSize, nil
}

// Flush writes buffered payloads to disk
func (s *Sidecar) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil || s.handle.writer == nil {
		return nil
	}
	if err := s.handle.writer.Flush(); err != nil {
		return err
	}
	return s.handle.file.Sync()
}

// CleanUp flushes and closes the sidecar file and forgets the current
// recording. Later use fails with ErrNoSidecar until SetCurrentFile is
// called again.
func (s *Sidecar) CleanUp() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.release()
	s.path = ""
	s.mode = FileRead
	return err
}

// open returns the sidecar handle, opening the file on first use. A file
// being created is truncated once; later opens append.
func (s *Sidecar) open() (*sidecarFile, error) {
	if s.handle != nil {
		return s.handle, nil
	}
	if s.path == "" {
		return nil, ErrNoSidecar
	}

	var (
		file *os.File
		err  error
	)
	switch s.mode {
	case FileRead:
		file, err = os.Open(s.path)
	case FileCreate:
		file, err = os.OpenFile(s.path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0600)
		// subsequent opens in this session must not truncate again
		s.mode = FileAppend
	default:
		file, err = os.OpenFile(s.path, os.O_CREATE|os.O_RDWR, 0600)
	}
	if err != nil {
		return nil, fmt.Errorf("sidecar %s: %w", s.path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("sidecar %s: %w", s.path, err)
	}

	h := &sidecarFile{file: file, size: stat.Size()}
	if s.mode != FileRead {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			file.Close()
			return nil, fmt.Errorf("sidecar %s: %w", s.path, err)
		}
		h.writer = bufio.NewWriter(file)
	}
	s.handle = h
	return h, nil
}

func (s *Sidecar) release() error {
	if s.handle == nil {
		return nil
	}
	h := s.handle
	s.handle = nil

	var flushErr error
	if h.writer != nil {
		flushErr = h.writer.Flush()
	}
	return errors.Join(flushErr, h.file.Close())
}

func (s *Sidecar) cast(value any) ([]byte, error) {
	b, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: %s adapter expects []byte, got %T", ErrTypeMismatch, s.dataType, value)
	}
	if err := codec.CheckLength(len(b)); err != nil {
		return nil, fmt.Errorf("sidecar payload: %w", err)
	}
	return b, nil
}
