package recorder

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/framerec/pkg/adapter"
	"github.com/ssargent/framerec/pkg/frc"
	"github.com/ssargent/framerec/pkg/recording"
	"github.com/ssargent/framerec/pkg/types"
)

func newTestRecorder(t *testing.T, config Config) (*Recorder, *MockClock, frc.Options) {
	t.Helper()
	tr := types.NewDefaultRegistry()
	opts := frc.Options{Types: tr, Adapters: adapter.NewDefaultRegistry(tr)}
	clock := NewMockClock(time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC))
	if config.Dir == "" {
		config.Dir = t.TempDir()
	}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return New(config, opts, clock, logger), clock, opts
}

func TestRecorder_StoppedIgnoresInput(t *testing.T) {
	r, _, _ := newTestRecorder(t, Config{})
	assert.False(t, r.Running())

	r.RecordValue("/a", 1.0)
	r.AddMarker("m", "", recording.Normal)
	assert.Nil(t, r.Recording())
}

func TestRecorder_TimestampsAreMillisSinceStart(t *testing.T) {
	r, clock, _ := newTestRecorder(t, Config{})
	r.Start()
	defer r.Stop()

	r.RecordValue("/speed", 1.5)
	clock.Advance(250 * time.Millisecond)
	r.Record("/name", types.String, "arm")
	clock.Advance(time.Second)
	r.AddMarker("Brownout", "voltage dip", recording.Critical)

	data := r.Recording().Data()
	require.Len(t, data, 2)
	assert.Equal(t, int64(0), data[0].Timestamp)
	assert.Same(t, types.Number, data[0].Type)
	assert.Equal(t, int64(250), data[1].Timestamp)

	markers := r.Recording().Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, int64(1250), markers[0].Timestamp)
	assert.Equal(t, recording.Critical, markers[0].Importance)
}

func TestRecorder_FileName(t *testing.T) {
	dir := t.TempDir()
	r, _, _ := newTestRecorder(t, Config{Dir: dir})
	r.Start()
	defer r.Stop()

	assert.Equal(t, filepath.Join(dir, "recording-2024-03-09_14.30.05.frc"), r.File())
	_, err := os.Stat(r.File())
	assert.NoError(t, err, "start should create the file")

	id, err := ksuid.Parse("0ujtsYcgvSTl8PAuAdqWYSMnLOv")
	require.NoError(t, err)
	name := ExpandFileName("match-${id}-${time}", time.Date(2023, 12, 1, 8, 0, 0, 0, time.UTC), id)
	assert.Equal(t, "match-0ujtsYcgvSTl8PAuAdqWYSMnLOv-2023-12-01_08.00.00", name)
}

func TestRecorder_IncrementalSaves(t *testing.T) {
	r, clock, opts := newTestRecorder(t, Config{})
	r.Start()

	r.RecordValue("/a", 1.0)
	r.AddMarker("first", "", recording.Low)
	require.NoError(t, r.Save())

	clock.Advance(10 * time.Millisecond)
	r.RecordValue("/a", 2.0)
	r.RecordValue("/b", []string{"x"})
	require.NoError(t, r.Save())

	// nothing new, nothing written
	stat, err := os.Stat(r.File())
	require.NoError(t, err)
	require.NoError(t, r.Save())
	again, err := os.Stat(r.File())
	require.NoError(t, err)
	assert.Equal(t, stat.Size(), again.Size())

	clock.Advance(10 * time.Millisecond)
	r.AddMarker("last", "", recording.High)
	r.Stop()
	assert.False(t, r.Running())

	loaded, err := frc.Load(r.File(), opts)
	require.NoError(t, err)
	assert.True(t, r.Recording().Equal(loaded))

	saves, failures := r.Stats()
	assert.Equal(t, int64(4), saves)
	assert.Zero(t, failures)
}

func TestRecorder_Reset(t *testing.T) {
	r, clock, opts := newTestRecorder(t, Config{FileNameFormat: "session-${id}"})
	r.Start()
	r.RecordValue("/a", 1.0)
	first := r.File()
	firstSession := r.Session()

	clock.Advance(time.Second)
	r.Reset()
	assert.True(t, r.Running())
	assert.NotEqual(t, firstSession, r.Session())
	assert.NotEqual(t, first, r.File())

	n, _ := r.Recording().Len()
	assert.Zero(t, n)

	saved, err := frc.Load(first, opts)
	require.NoError(t, err)
	n, _ = saved.Len()
	assert.Equal(t, 1, n)
	r.Stop()
}

func TestRecorder_SaveErrorsAreCounted(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	r, _, _ := newTestRecorder(t, Config{Dir: filepath.Join(blocker, "recordings")})
	r.Start()
	r.RecordValue("/a", 1.0)
	r.Stop()

	saves, failures := r.Stats()
	assert.Zero(t, saves)
	assert.Equal(t, int64(2), failures)
}

func TestRecorder_DropsUnencodableSamples(t *testing.T) {
	r, clock, opts := newTestRecorder(t, Config{})
	r.Start()

	r.RecordValue("/good", 1.0)
	r.RecordValue("/odd", struct{ X int }{1})
	r.Record("/bad", types.Number, "not a number")
	r.Record("/untyped", nil, 1.0)
	assert.Equal(t, int64(3), r.Dropped())

	for range 3 {
		clock.Advance(time.Millisecond)
		require.NoError(t, r.Save())
	}
	r.Stop()

	_, failures := r.Stats()
	assert.Zero(t, failures)

	loaded, err := frc.Load(r.File(), opts)
	require.NoError(t, err)
	n, _ := loaded.Len()
	assert.Equal(t, 1, n)
	assert.True(t, r.Recording().Equal(loaded))
}

func TestRecorder_FailedSaveWritesNothing(t *testing.T) {
	r, _, opts := newTestRecorder(t, Config{})
	r.Start()
	r.RecordValue("/a", 1.0)
	require.NoError(t, r.Save())

	// bypasses Record, so only the save can notice it
	r.RecordValue("/a", 2.0)
	r.Recording().Append(recording.TimestampedData{SourceID: "/bad", Type: types.Number, Value: "nan?", Timestamp: 1})
	for range 3 {
		assert.ErrorIs(t, r.Save(), adapter.ErrTypeMismatch)
	}
	r.Stop()

	loaded, err := frc.Load(r.File(), opts)
	require.NoError(t, err)
	n, _ := loaded.Len()
	assert.Equal(t, 1, n, "the failed batch must not leave duplicate frames behind")

	_, failures := r.Stats()
	assert.Equal(t, int64(1), failures)
}

func TestRecorder_StopSavesEverythingRecorded(t *testing.T) {
	r, _, opts := newTestRecorder(t, Config{})
	r.Start()

	const writers, perWriter = 4, 50
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				r.RecordValue(fmt.Sprintf("/w%d", w), float64(i))
			}
		}()
	}
	wg.Wait()
	r.Stop()

	// a stopped session ignores new samples
	r.RecordValue("/late", 1.0)
	n, _ := r.Recording().Len()
	assert.Equal(t, writers*perWriter, n)

	loaded, err := frc.Load(r.File(), opts)
	require.NoError(t, err)
	assert.True(t, r.Recording().Equal(loaded))
}

func TestRecorder_DisableDiskWrites(t *testing.T) {
	dir := t.TempDir()
	r, _, _ := newTestRecorder(t, Config{Dir: dir, DisableDiskWrites: true})
	r.Start()
	r.RecordValue("/a", true)
	require.NoError(t, r.Save())
	r.Stop()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
}

func TestRecorder_RunSavesPeriodically(t *testing.T) {
	r, _, opts := newTestRecorder(t, Config{SaveInterval: 5 * time.Millisecond})
	r.Start()
	r.RecordValue("/a", 1.0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		saves, _ := r.Stats()
		return saves >= 2
	}, time.Second, 5*time.Millisecond)

	r.RecordValue("/a", 2.0)
	require.Eventually(t, func() bool {
		rec, err := frc.Load(r.File(), opts)
		if err != nil {
			return false
		}
		n, _ := rec.Len()
		return n == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	r.Stop()
}
