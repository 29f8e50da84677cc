// Package adapter binds data types to their binary serialization strategy.
//
// An Adapter serializes values of exactly one DataType. The recording file
// codec relies on SerializedSize matching the length Serialize produces so
// it can advance its cursor without re-scanning the output.
package adapter

import (
	"errors"
	"fmt"

	"github.com/ssargent/framerec/pkg/codec"
	"github.com/ssargent/framerec/pkg/types"
)

var (
	// ErrNoAdapter is returned when no adapter is registered for a type
	ErrNoAdapter = errors.New("adapter: no adapter registered")
	// ErrTypeMismatch is returned when a value's Go type does not match the adapter
	ErrTypeMismatch = errors.New("adapter: value type mismatch")
)

// Adapter serializes and deserializes values of one data type
type Adapter interface {
	DataType() *types.DataType
	Serialize(value any) ([]byte, error)
	Deserialize(buf []byte, pos int) (any, error)
	SerializedSize(value any) (int, error)
	// CleanUp releases any state held between recording sessions
	CleanUp() error
}

// FileMode says how the current recording file is being used
type FileMode int

const (
	// FileRead means the recording is being loaded
	FileRead FileMode = iota
	// FileCreate means the recording is being written from scratch
	FileCreate
	// FileAppend means new frames are being appended to an existing recording
	FileAppend
)

func (m FileMode) String() string {
	switch m {
	case FileRead:
		return "read"
	case FileCreate:
		return "create"
	case FileAppend:
		return "append"
	}
	return fmt.Sprintf("FileMode(%d)", int(m))
}

// FileAware adapters are told which recording file is being saved or
// loaded. Adapters that keep data alongside the recording (media files,
// large payloads) use it to locate their sidecar files.
type FileAware interface {
	SetCurrentFile(path string, mode FileMode)
}

// Flusher adapters buffer external writes that must be flushed after each save
type Flusher interface {
	Flush() error
}

// Func adapts typed functions to the Adapter interface
type Func[T any] struct {
	Type  *types.DataType
	Enc   func(dst []byte, v T) []byte
	Dec   func(r *codec.Reader) (T, error)
	Size  func(v T) int
	Clean func() error
	// Coerce optionally converts values of other Go types, e.g. ints for Number
	Coerce func(value any) (T, bool)
}

// Adapt builds a Func adapter from typed append, read and size functions
func Adapt[T any](dt *types.DataType, enc func([]byte, T) []byte, dec func(*codec.Reader) (T, error), size func(T) int) *Func[T] {
	return &Func[T]{Type: dt, Enc: enc, Dec: dec, Size: size}
}

func (f *Func[T]) DataType() *types.DataType {
	return f.Type
}

func (f *Func[T]) Serialize(value any) ([]byte, error) {
	v, err := f.cast(value)
	if err != nil {
		return nil, err
	}
	size, err := f.size(v)
	if err != nil {
		return nil, err
	}
	return f.Enc(make([]byte, 0, size), v), nil
}

func (f *Func[T]) Deserialize(buf []byte, pos int) (any, error) {
	v, err := f.Dec(codec.NewReader(buf, pos))
	if err != nil {
		return nil, fmt.Errorf("deserialize %s: %w", f.Type, err)
	}
	return v, nil
}

func (f *Func[T]) SerializedSize(value any) (int, error) {
	v, err := f.cast(value)
	if err != nil {
		return 0, err
	}
	return f.size(v)
}

func (f *Func[T]) size(v T) (int, error) {
	size := f.Size(v)
	if err := codec.CheckLength(size); err != nil {
		return 0, fmt.Errorf("serialize %s: %w", f.Type, err)
	}
	return size, nil
}

func (f *Func[T]) CleanUp() error {
	if f.Clean != nil {
		return f.Clean()
	}
	return nil
}

func (f *Func[T]) cast(value any) (T, error) {
	v, ok := value.(T)
	if !ok && f.Coerce != nil {
		v, ok = f.Coerce(value)
	}
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s adapter expects %T, got %T", ErrTypeMismatch, f.Type, zero, value)
	}
	return v, nil
}
