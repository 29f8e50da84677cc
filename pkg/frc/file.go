package frc

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/zeebo/blake3"

	"github.com/ssargent/framerec/pkg/adapter"
	"github.com/ssargent/framerec/pkg/codec"
	"github.com/ssargent/framerec/pkg/recording"
)

// Save writes rec to path, replacing any existing file. Adapters are cleaned
// up when the save ends, whether it succeeded or not. A failed save may
// leave a partial file behind.
func Save(path string, rec *recording.Recording, opts Options) error {
	data, markers := rec.Copy()
	return SaveEntries(path, data, markers, opts)
}

// SaveEntries writes data and markers to a new file at path
func SaveEntries(path string, data []recording.TimestampedData, markers []recording.Marker, opts Options) error {
	return save(path, data, markers, opts, adapter.FileCreate)
}

// AppendEntries appends data and markers to the recording at path, creating
// it if needed
func AppendEntries(path string, data []recording.TimestampedData, markers []recording.Marker, opts Options) error {
	return save(path, data, markers, opts, adapter.FileAppend)
}

func save(path string, data []recording.TimestampedData, markers []recording.Marker, opts Options, mode adapter.FileMode) (err error) {
	start := time.Now()
	ar := opts.adapterRegistry()

	defer func() {
		err = errors.Join(err, ar.CleanUpAll())
		if err != nil {
			err = fmt.Errorf("save %s: %w", path, err)
		}
		opts.Metrics.observe(opSave, start, err)
	}()

	ar.SetCurrentFile(path, mode)

	var w *Writer
	if mode == adapter.FileAppend {
		w, err = Append(path, opts)
	} else {
		w, err = Create(path, opts)
	}
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, w.Close())
	}()

	return w.WriteEntries(data, markers)
}

// Load reads the recording at path. Adapters are cleaned up when the load
// ends, whether it succeeded or not.
func Load(path string, opts Options) (rec *recording.Recording, err error) {
	start := time.Now()
	ar := opts.adapterRegistry()

	defer func() {
		err = errors.Join(err, ar.CleanUpAll())
		if err != nil {
			rec = nil
			err = fmt.Errorf("load %s: %w", path, err)
		}
		opts.Metrics.observe(opLoad, start, err)
	}()

	ar.SetCurrentFile(path, adapter.FileRead)

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(buf, opts)
}

// Encode serializes rec in memory. Adapters that need a backing file, such
// as the sidecar adapter, fail unless one was set on the registry.
func Encode(rec *recording.Recording, opts Options) (out []byte, err error) {
	ar := opts.adapterRegistry()
	defer func() {
		err = errors.Join(err, ar.CleanUpAll())
		if err != nil {
			out = nil
		}
	}()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, opts)
	if err != nil {
		return nil, err
	}
	if err := w.WriteRecording(rec); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses an encoded recording held in memory
func Decode(buf []byte, opts Options) (rec *recording.Recording, err error) {
	ar := opts.adapterRegistry()
	defer func() {
		err = errors.Join(err, ar.CleanUpAll())
		if err != nil {
			rec = nil
		}
	}()
	return decode(buf, opts)
}

func decode(buf []byte, opts Options) (*recording.Recording, error) {
	dec, err := NewDecoder(buf, opts)
	if err != nil {
		return nil, err
	}

	rec := recording.New()
	for dec.Next() {
		switch e := dec.Entry().(type) {
		case recording.TimestampedData:
			rec.Append(e)
		case recording.Marker:
			rec.AddMarker(e)
		}
	}
	if err := dec.Err(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Summary describes a recording file without keeping its values
type Summary struct {
	Path         string
	Size         int64
	Version      int32
	DataFrames   int
	MarkerFrames int
	SourceIDs    []string
	// First and Last span every frame, markers included
	First  int64
	Last   int64
	Digest string // blake3-256, hex
}

// Length returns Last - First
func (s *Summary) Length() int64 {
	return s.Last - s.First
}

// Info decodes the file at path and summarizes it
func Info(path string, opts Options) (*Summary, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	opts.adapterRegistry().SetCurrentFile(path, adapter.FileRead)
	summary, err := Summarize(buf, opts)
	if err != nil {
		return nil, fmt.Errorf("info %s: %w", path, err)
	}
	summary.Path = path
	return summary, nil
}

// Summarize decodes buf and summarizes it
func Summarize(buf []byte, opts Options) (s *Summary, err error) {
	ar := opts.adapterRegistry()
	defer func() {
		err = errors.Join(err, ar.CleanUpAll())
		if err != nil {
			s = nil
		}
	}()

	dec, err := NewDecoder(buf, opts)
	if err != nil {
		return nil, err
	}

	digest := blake3.Sum256(buf)
	version, _ := codec.ReadInt32(buf, codec.SizeOfInt32)
	s = &Summary{
		Size:    int64(len(buf)),
		Version: version,
		Digest:  hex.EncodeToString(digest[:]),
	}

	seen := make(map[string]struct{})
	for dec.Next() {
		entry := dec.Entry()
		if dec.Frames() == 1 || entry.At() < s.First {
			s.First = entry.At()
		}
		if dec.Frames() == 1 || entry.At() > s.Last {
			s.Last = entry.At()
		}

		switch e := entry.(type) {
		case recording.TimestampedData:
			s.DataFrames++
			if _, ok := seen[e.SourceID]; !ok {
				seen[e.SourceID] = struct{}{}
				s.SourceIDs = append(s.SourceIDs, e.SourceID)
			}
		case recording.Marker:
			s.MarkerFrames++
		}
	}
	if err := dec.Err(); err != nil {
		return nil, err
	}
	return s, nil
}
