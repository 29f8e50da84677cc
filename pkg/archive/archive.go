// Package archive stores encoded recordings in a Pebble database.
//
// Each recording is kept under two keys: rec/<id> holds the zstd compressed
// .frc bytes and meta/<id> holds its Entry as YAML. IDs are KSUIDs, so key
// order is creation order.
package archive

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/framerec/pkg/frc"
	"github.com/ssargent/framerec/pkg/recording"
)

const (
	recPrefix  = "rec/"
	metaPrefix = "meta/"
)

var (
	// ErrNotFound is returned when no recording has the requested ID
	ErrNotFound = errors.New("archive: recording not found")
	// ErrInvalidID is returned for strings that are not KSUIDs
	ErrInvalidID = errors.New("archive: invalid recording id")
	// ErrInvalidRecording is returned by Put when the bytes do not decode
	ErrInvalidRecording = errors.New("archive: invalid recording")
	// ErrDigestMismatch is returned when stored bytes no longer match their digest
	ErrDigestMismatch = errors.New("archive: digest mismatch")
)

// Entry describes one archived recording
type Entry struct {
	ID             ksuid.KSUID `yaml:"-" json:"id"`
	Name           string      `yaml:"name" json:"name"`
	Stored         time.Time   `yaml:"stored" json:"stored"`
	Size           int64       `yaml:"size" json:"size"`
	CompressedSize int64       `yaml:"compressed_size" json:"compressed_size"`
	Digest         string      `yaml:"digest" json:"digest"`
	DataFrames     int         `yaml:"data_frames" json:"data_frames"`
	MarkerFrames   int         `yaml:"marker_frames" json:"marker_frames"`
	SourceIDs      []string    `yaml:"source_ids,omitempty" json:"source_ids,omitempty"`
}

// Archive is a Pebble backed recording store. It is safe for concurrent use.
type Archive struct {
	db   *pebble.DB
	opts frc.Options
	now  func() time.Time
}

// Open opens or creates an archive in dir. opts supplies the registries used
// to validate and load recordings.
func Open(dir string, opts frc.Options) (*Archive, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", dir, err)
	}
	return &Archive{db: db, opts: opts, now: time.Now}, nil
}

// Close releases the database
func (a *Archive) Close() error {
	return a.db.Close()
}

// ParseID parses the string form of a recording ID
func ParseID(s string) (ksuid.KSUID, error) {
	id, err := ksuid.Parse(s)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("%w %q: %w", ErrInvalidID, s, err)
	}
	return id, nil
}

// Put validates raw as an encoded recording and stores it under name
func (a *Archive) Put(name string, raw []byte) (*Entry, error) {
	summary, err := frc.Summarize(raw, a.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecording, err)
	}

	stored := a.now().UTC()
	id, err := ksuid.NewRandomWithTime(stored)
	if err != nil {
		return nil, fmt.Errorf("archive: generate id: %w", err)
	}

	compressed := compress(raw)
	entry := &Entry{
		ID:             id,
		Name:           name,
		Stored:         stored,
		Size:           int64(len(raw)),
		CompressedSize: int64(len(compressed)),
		Digest:         summary.Digest,
		DataFrames:     summary.DataFrames,
		MarkerFrames:   summary.MarkerFrames,
		SourceIDs:      summary.SourceIDs,
	}
	meta, err := yaml.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("archive: encode metadata: %w", err)
	}

	batch := a.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(recKey(id), compressed, nil); err != nil {
		return nil, err
	}
	if err := batch.Set(metaKey(id), meta, nil); err != nil {
		return nil, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("archive: store %s: %w", id, err)
	}
	return entry, nil
}

// PutRecording encodes rec and stores it under name
func (a *Archive) PutRecording(name string, rec *recording.Recording) (*Entry, error) {
	raw, err := frc.Encode(rec, a.opts)
	if err != nil {
		return nil, err
	}
	return a.Put(name, raw)
}

// Stat returns the metadata of a stored recording
func (a *Archive) Stat(id ksuid.KSUID) (*Entry, error) {
	meta, err := a.get(metaKey(id))
	if err != nil {
		return nil, a.notFound(id, err)
	}
	return decodeEntry(id, meta)
}

// Get returns the .frc bytes of a stored recording
func (a *Archive) Get(id ksuid.KSUID) ([]byte, error) {
	entry, err := a.Stat(id)
	if err != nil {
		return nil, err
	}
	compressed, err := a.get(recKey(id))
	if err != nil {
		return nil, a.notFound(id, err)
	}

	raw, err := decompress(compressed, int(entry.Size))
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", id, err)
	}
	digest := blake3.Sum256(raw)
	if got := hex.EncodeToString(digest[:]); got != entry.Digest {
		return nil, fmt.Errorf("%w: %s has %s, want %s", ErrDigestMismatch, id, got, entry.Digest)
	}
	return raw, nil
}

// Load decodes a stored recording
func (a *Archive) Load(id ksuid.KSUID) (*recording.Recording, error) {
	raw, err := a.Get(id)
	if err != nil {
		return nil, err
	}
	rec, err := frc.Decode(raw, a.opts)
	if err != nil {
		return nil, fmt.Errorf("archive: decode %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes a stored recording
func (a *Archive) Delete(id ksuid.KSUID) error {
	if _, err := a.Stat(id); err != nil {
		return err
	}

	batch := a.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete(recKey(id), nil); err != nil {
		return err
	}
	if err := batch.Delete(metaKey(id), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// List returns every entry, newest first
func (a *Archive) List() ([]*Entry, error) {
	iter, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(metaPrefix),
		UpperBound: prefixEnd(metaPrefix),
	})
	if err != nil {
		return nil, err
	}

	var entries []*Entry
	for valid := iter.Last(); valid; valid = iter.Prev() {
		id, err := ksuid.Parse(string(iter.Key()[len(metaPrefix):]))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("archive: bad key %q: %w", iter.Key(), err), iter.Close())
		}
		entry, err := decodeEntry(id, iter.Value())
		if err != nil {
			return nil, errors.Join(err, iter.Close())
		}
		entries = append(entries, entry)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Join(err, iter.Close())
	}
	return entries, iter.Close()
}

// get copies the value for key out of Pebble
func (a *Archive) get(key []byte) ([]byte, error) {
	value, closer, err := a.db.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

func (a *Archive) notFound(id ksuid.KSUID, err error) error {
	if errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("%w: %s: %w", ErrNotFound, id, err)
	}
	return fmt.Errorf("archive: read %s: %w", id, err)
}

func decodeEntry(id ksuid.KSUID, meta []byte) (*Entry, error) {
	var entry Entry
	if err := yaml.Unmarshal(meta, &entry); err != nil {
		return nil, fmt.Errorf("archive: decode metadata %s: %w", id, err)
	}
	entry.ID = id
	return &entry, nil
}

func recKey(id ksuid.KSUID) []byte  { return []byte(recPrefix + id.String()) }
func metaKey(id ksuid.KSUID) []byte { return []byte(metaPrefix + id.String()) }

func prefixEnd(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}
