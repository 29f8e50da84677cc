// Package export converts recordings into flat tables for analysis tools.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ssargent/framerec/pkg/recording"
)

// Ext is the file extension for CSV exports
const Ext = ".csv"

// ErrNegativeWindow is returned for a window below zero
var ErrNegativeWindow = errors.New("export: time window must be non-negative")

// Header is the fixed leading header of every export
var Header = []string{"Timestamp", "Event", "Event Description", "Event Severity"}

var eventColumns = len(Header)

// Settings control a CSV export. The zero value is a plain export with
// fill-forward.
type Settings struct {
	// Window groups entries within Window ticks of the first entry of a row.
	// Zero gives one row per distinct timestamp.
	Window int64
	// ConvertMetadata keeps metadata sources as columns
	ConvertMetadata bool
	// NoFillForward leaves a column empty in rows without a value for it,
	// instead of carrying its last value forward
	NoFillForward bool
	// Quote writes RFC 4180 quoted fields. Off by default, fields are joined
	// with commas as-is.
	Quote bool
	// SortColumns orders source columns naturally instead of by discovery
	SortColumns bool
	Logger      *slog.Logger
}

// DefaultSettings returns the zero Settings
func DefaultSettings() Settings {
	return Settings{}
}

// CSV renders rec as CSV text
func CSV(rec *recording.Recording, settings Settings) (string, error) {
	var b strings.Builder
	if err := WriteCSV(&b, rec, settings); err != nil {
		return "", err
	}
	return b.String(), nil
}

// WriteFile exports rec to path
func WriteFile(path string, rec *recording.Recording, settings Settings) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return WriteCSV(f, rec, settings)
}

// WriteCSV writes the header and one row per time window to w
func WriteCSV(w io.Writer, rec *recording.Recording, settings Settings) error {
	table, err := Flatten(rec, settings)
	if err != nil {
		return err
	}

	if settings.Quote {
		cw := csv.NewWriter(w)
		if err := cw.Write(table.Header); err != nil {
			return err
		}
		for _, row := range table.Rows {
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}

	if _, err := io.WriteString(w, strings.Join(table.Header, ",")+"\n"); err != nil {
		return err
	}
	for _, row := range table.Rows {
		if _, err := io.WriteString(w, strings.Join(row, ",")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Table is a rendered export: a header and rows of the same width
type Table struct {
	Header []string
	Rows   [][]string
}

type entry struct {
	ts     int64
	data   *recording.TimestampedData
	marker *recording.Marker
}

// Flatten buckets rec into time windows and renders each as a row. Data and
// markers are ordered by timestamp; ties keep append order with data ahead
// of markers. Inside a window the first marker supplies the event columns
// and later markers are dropped. The last value of each source in a window
// wins.
func Flatten(rec *recording.Recording, settings Settings) (*Table, error) {
	if settings.Window < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeWindow, settings.Window)
	}
	logger := settings.Logger
	if logger == nil {
		logger = slog.Default()
	}

	data, markers := rec.Copy()
	columns := sourceColumns(rec.SourceIDs(), settings)
	index := make(map[string]int, len(columns))
	for i, id := range columns {
		index[id] = eventColumns + i
	}

	entries := make([]entry, 0, len(data)+len(markers))
	for i := range data {
		if _, ok := index[data[i].SourceID]; !ok {
			continue
		}
		entries = append(entries, entry{ts: data[i].Timestamp, data: &data[i]})
	}
	for i := range markers {
		entries = append(entries, entry{ts: markers[i].Timestamp, marker: &markers[i]})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ts < entries[j].ts })

	table := &Table{Header: append(append([]string{}, Header...), columns...)}
	width := len(table.Header)
	last := make([]string, width)
	seen := make([]bool, width)

	for i := 0; i < len(entries); {
		anchor := entries[i].ts
		j := i + 1
		// entries are sorted, so the difference is non-negative and fits
		// in a uint64 even when the int64 subtraction wraps
		for j < len(entries) && uint64(entries[j].ts-anchor) <= uint64(settings.Window) {
			j++
		}
		window := entries[i:j]
		i = j

		row := make([]string, width)
		set := make([]bool, width)
		row[0] = fmt.Sprint(anchor)

		var event *recording.Marker
		for _, e := range window {
			if e.marker == nil {
				continue
			}
			if event != nil {
				logger.Warn("multiple markers in one export window, keeping the first",
					"timestamp", anchor,
					"kept", event.Name,
					"dropped", e.marker.Name)
				continue
			}
			event = e.marker
		}
		if event != nil {
			row[1] = event.Name
			row[2] = event.Description
			row[3] = event.Importance.String()
		}

		for _, e := range window {
			if e.data == nil {
				continue
			}
			col := index[e.data.SourceID]
			row[col] = FormatValue(e.data.Value)
			set[col] = true
		}

		for col := eventColumns; col < width; col++ {
			if set[col] {
				last[col] = row[col]
				seen[col] = true
			} else if !settings.NoFillForward && seen[col] {
				row[col] = last[col]
			}
		}

		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func sourceColumns(ids []string, settings Settings) []string {
	columns := make([]string, 0, len(ids))
	for _, id := range ids {
		if !settings.ConvertMetadata && recording.IsMetadata(id) {
			continue
		}
		columns = append(columns, id)
	}
	if settings.SortColumns {
		sort.SliceStable(columns, func(i, j int) bool { return naturalLess(columns[i], columns[j]) })
	}
	return columns
}
