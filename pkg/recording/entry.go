package recording

import (
	"fmt"

	"github.com/ssargent/framerec/pkg/types"
)

// Entry is anything stored in a recording with a timestamp
type Entry interface {
	At() int64
}

// TimestampedData is one captured sample. Timestamps are opaque integers on
// a single scale per session; the Recorder uses milliseconds since start.
type TimestampedData struct {
	SourceID  string
	Type      *types.DataType
	Value     any
	Timestamp int64
}

// At returns the sample timestamp
func (d TimestampedData) At() int64 {
	return d.Timestamp
}

func (d TimestampedData) String() string {
	return fmt.Sprintf("TimestampedData(source=%q, type=%s, value=%v, timestamp=%d)",
		d.SourceID, d.Type, d.Value, d.Timestamp)
}

// Marker is an annotated event on the same time scale as the data
type Marker struct {
	Name        string
	Description string
	Importance  Importance
	Timestamp   int64
}

// NewMarker creates a marker
func NewMarker(name, description string, importance Importance, timestamp int64) Marker {
	return Marker{Name: name, Description: description, Importance: importance, Timestamp: timestamp}
}

// At returns the marker timestamp
func (m Marker) At() int64 {
	return m.Timestamp
}

func (m Marker) String() string {
	return fmt.Sprintf("Marker(name=%q, description=%q, importance=%s, timestamp=%d)",
		m.Name, m.Description, m.Importance, m.Timestamp)
}
