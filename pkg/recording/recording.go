// Package recording holds the in-memory capture of a telemetry session: an
// append-only sequence of timestamped samples and a separate sequence of
// markers. Neither sequence is sorted; consumers that need time order sort
// a copy.
package recording

import (
	"fmt"
	"sync"
)

// Recording is safe for one writer appending while readers take copies
type Recording struct {
	mu        sync.RWMutex
	data      []TimestampedData
	markers   []Marker
	sourceIDs []string
	seen      map[string]struct{}
	first     *TimestampedData
	last      *TimestampedData
}

// New creates an empty recording
func New() *Recording {
	return &Recording{seen: make(map[string]struct{})}
}

// Append adds d to the end of the data sequence. Timestamps are not checked
// for order.
func (r *Recording) Append(d TimestampedData) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seen == nil {
		r.seen = make(map[string]struct{})
	}
	r.data = append(r.data, d)
	if _, ok := r.seen[d.SourceID]; !ok {
		r.seen[d.SourceID] = struct{}{}
		r.sourceIDs = append(r.sourceIDs, d.SourceID)
	}

	if r.first == nil || d.Timestamp < r.first.Timestamp {
		r.first = &d
	}
	if r.last == nil || d.Timestamp > r.last.Timestamp {
		r.last = &d
	}
}

// AddMarker adds m to the end of the marker sequence
func (r *Recording) AddMarker(m Marker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers = append(r.markers, m)
}

// Data returns a copy of the data sequence in insertion order
func (r *Recording) Data() []TimestampedData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TimestampedData, len(r.data))
	copy(out, r.data)
	return out
}

// Markers returns a copy of the marker sequence in insertion order
func (r *Recording) Markers() []Marker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Marker, len(r.markers))
	copy(out, r.markers)
	return out
}

// Copy returns both sequences from a single consistent view
func (r *Recording) Copy() ([]TimestampedData, []Marker) {
	return r.Snapshot(0, 0)
}

// Snapshot returns the data and markers appended after the first fromData
// and fromMarkers entries. Out of range offsets yield empty slices.
func (r *Recording) Snapshot(fromData, fromMarkers int) ([]TimestampedData, []Marker) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := make([]TimestampedData, 0, max(len(r.data)-fromData, 0))
	if fromData >= 0 && fromData < len(r.data) {
		data = append(data, r.data[fromData:]...)
	}
	markers := make([]Marker, 0, max(len(r.markers)-fromMarkers, 0))
	if fromMarkers >= 0 && fromMarkers < len(r.markers) {
		markers = append(markers, r.markers[fromMarkers:]...)
	}
	return data, markers
}

// SourceIDs returns the distinct source IDs in discovery order
func (r *Recording) SourceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.sourceIDs))
	copy(out, r.sourceIDs)
	return out
}

// First returns the sample with the smallest timestamp
func (r *Recording) First() (TimestampedData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.first == nil {
		return TimestampedData{}, false
	}
	return *r.first, true
}

// Last returns the sample with the largest timestamp
func (r *Recording) Last() (TimestampedData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return TimestampedData{}, false
	}
	return *r.last, true
}

// Length is the span between the first and last samples. Recordings with
// fewer than two samples have length 0.
func (r *Recording) Length() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.first == nil || r.last == nil {
		return 0
	}
	return r.last.Timestamp - r.first.Timestamp
}

// Len returns the number of samples and markers
func (r *Recording) Len() (data, markers int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data), len(r.markers)
}

func (r *Recording) String() string {
	data, markers := r.Len()
	return fmt.Sprintf("Recording(data=%d, markers=%d, sources=%d, length=%d)",
		data, markers, len(r.SourceIDs()), r.Length())
}
