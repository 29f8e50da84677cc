// Package recorder captures a live session into a recording and saves it to
// disk as it grows.
//
// Timestamps are milliseconds since the session started. The first save
// creates the file; later saves append only what was captured since.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/framerec/pkg/adapter"
	"github.com/ssargent/framerec/pkg/frc"
	"github.com/ssargent/framerec/pkg/recording"
	"github.com/ssargent/framerec/pkg/types"
)

const (
	// DefaultFileNameFormat names recordings by their start time
	DefaultFileNameFormat = "recording-${time}"
	// DefaultSaveInterval is how often Run saves new entries
	DefaultSaveInterval = 2 * time.Second

	// TimeLayout is the expansion of ${time} in file name formats
	TimeLayout = "2006-01-02_15.04.05"
)

// Config controls where and how often a recorder saves
type Config struct {
	Dir               string
	FileNameFormat    string
	SaveInterval      time.Duration
	DisableDiskWrites bool
}

func (c Config) withDefaults() Config {
	if c.FileNameFormat == "" {
		c.FileNameFormat = DefaultFileNameFormat
	}
	if c.SaveInterval <= 0 {
		c.SaveInterval = DefaultSaveInterval
	}
	return c
}

// Recorder is a capture session. Record and AddMarker may be called from
// any goroutine; they do nothing while the recorder is stopped.
type Recorder struct {
	config Config
	opts   frc.Options
	clock  Clock
	logger *slog.Logger

	mu           sync.RWMutex
	running      atomic.Bool
	rec          *recording.Recording
	id           ksuid.KSUID
	start        time.Time
	file         string
	firstSave    bool
	savedData    int
	savedMarkers int

	saves      atomic.Int64
	saveErrors atomic.Int64
	dropped    atomic.Int64
}

// New creates a stopped recorder. A nil clock uses the system clock and a
// nil logger uses slog.Default.
func New(config Config, opts frc.Options, clock Clock, logger *slog.Logger) *Recorder {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		config: config.withDefaults(),
		opts:   opts,
		clock:  clock,
		logger: logger.With("component", "recorder"),
	}
}

// Start begins a fresh session and saves its (empty) file. A running
// session is replaced without being saved; use Reset to save first.
func (r *Recorder) Start() {
	r.mu.Lock()
	r.start = r.clock.Now()
	r.id = ksuid.New()
	r.rec = recording.New()
	r.file = filepath.Join(r.config.Dir, ExpandFileName(r.config.FileNameFormat, r.start, r.id)+frc.Ext)
	r.firstSave = true
	r.savedData = 0
	r.savedMarkers = 0
	r.running.Store(true)
	session, file := r.id.String(), r.file
	r.mu.Unlock()

	r.logger.Info("recording started", "session", session, "file", file)
	r.saveAndLog()
}

// Stop ends the session, saves what is left and releases adapter resources
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running.Swap(false) {
		return
	}
	r.saveLocked()

	if err := r.adapters().CleanUpAll(); err != nil {
		r.logger.Warn("adapter clean up failed", "error", err)
	}
	data, markers := r.rec.Len()
	r.logger.Info("recording stopped",
		"session", r.id.String(),
		"file", r.file,
		"data", data,
		"markers", markers)
}

// Reset stops the current session and starts a new one
func (r *Recorder) Reset() {
	r.Stop()
	r.Start()
}

// Running reports whether a session is active
func (r *Recorder) Running() bool {
	return r.running.Load()
}

// Record captures value for source id with an explicit type. Values no
// registered adapter can encode are dropped and counted, so they never
// reach a save.
func (r *Recorder) Record(id string, dt *types.DataType, value any) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.running.Load() {
		return
	}
	if err := r.encodable(dt, value); err != nil {
		r.dropped.Add(1)
		r.logger.Warn("dropped sample", "source", id, "error", err)
		return
	}
	r.rec.Append(recording.TimestampedData{
		SourceID:  id,
		Type:      dt,
		Value:     value,
		Timestamp: r.timestamp(),
	})
}

// RecordValue captures value for source id, inferring its type from the
// value's shape
func (r *Recorder) RecordValue(id string, value any) {
	tr := r.opts.Types
	if tr == nil {
		tr = types.Default()
	}
	r.Record(id, tr.ForValue(value), value)
}

// AddMarker records an event marker at the current time
func (r *Recorder) AddMarker(name, description string, importance recording.Importance) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.running.Load() {
		return
	}
	r.rec.AddMarker(recording.NewMarker(name, description, importance, r.timestamp()))
}

func (r *Recorder) encodable(dt *types.DataType, value any) error {
	if dt == nil {
		return fmt.Errorf("%w: missing data type", adapter.ErrTypeMismatch)
	}
	a, err := r.adapters().Lookup(dt)
	if err != nil {
		return err
	}
	_, err = a.SerializedSize(value)
	return err
}

func (r *Recorder) timestamp() int64 {
	return r.clock.Now().Sub(r.start).Milliseconds()
}

// Run saves new entries every SaveInterval until ctx is done. Ticks while
// the recorder is stopped do nothing.
func (r *Recorder) Run(ctx context.Context) error {
	if r.config.DisableDiskWrites {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(r.config.SaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.running.Load() {
				r.saveAndLog()
			}
		}
	}
}

// Save writes everything captured since the last save
func (r *Recorder) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save()
}

func (r *Recorder) saveAndLog() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveLocked()
}

func (r *Recorder) saveLocked() {
	if err := r.save(); err != nil {
		r.saveErrors.Add(1)
		r.logger.Warn("could not save recording", "error", err)
	}
}

func (r *Recorder) save() error {
	if r.rec == nil || r.config.DisableDiskWrites {
		return nil
	}

	data, markers := r.rec.Snapshot(r.savedData, r.savedMarkers)
	var err error
	if r.firstSave {
		err = frc.SaveEntries(r.file, data, markers, r.opts)
	} else {
		if len(data) == 0 && len(markers) == 0 {
			return nil
		}
		err = frc.AppendEntries(r.file, data, markers, r.opts)
	}
	if err != nil {
		return err
	}

	r.firstSave = false
	r.savedData += len(data)
	r.savedMarkers += len(markers)
	r.saves.Add(1)

	if err := r.adapters().FlushAll(); err != nil {
		return fmt.Errorf("flush adapters: %w", err)
	}
	r.logger.Debug("saved recording",
		"file", r.file,
		"data", len(data),
		"markers", len(markers))
	return nil
}

func (r *Recorder) adapters() *adapter.Registry {
	if r.opts.Adapters != nil {
		return r.opts.Adapters
	}
	return adapter.Default()
}

// Recording returns the current session's recording, or nil before Start
func (r *Recorder) Recording() *recording.Recording {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rec
}

// File returns the path of the current or last session's file
func (r *Recorder) File() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.file
}

// Session returns the current session ID
func (r *Recorder) Session() ksuid.KSUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.id
}

// Stats reports successful and failed saves
func (r *Recorder) Stats() (saves, failures int64) {
	return r.saves.Load(), r.saveErrors.Load()
}

// Dropped returns the number of samples Record refused
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// ExpandFileName substitutes ${time} and ${id} in format
func ExpandFileName(format string, start time.Time, id ksuid.KSUID) string {
	if format == "" {
		format = DefaultFileNameFormat
	}
	return strings.NewReplacer(
		"${time}", start.Format(TimeLayout),
		"${id}", id.String(),
	).Replace(format)
}
