package recording

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/framerec/pkg/types"
)

func sample(id string, value any, ts int64) TimestampedData {
	return TimestampedData{SourceID: id, Type: types.Default().ForValue(value), Value: value, Timestamp: ts}
}

func TestRecording_AppendPreservesOrder(t *testing.T) {
	r := New()
	r.Append(sample("b", 1.0, 30))
	r.Append(sample("a", 2.0, 10))
	r.Append(sample("b", 3.0, 20))
	r.AddMarker(NewMarker("late", "", Normal, 50))
	r.AddMarker(NewMarker("early", "", Low, 5))

	data := r.Data()
	require.Len(t, data, 3)
	assert.Equal(t, []int64{30, 10, 20}, []int64{data[0].Timestamp, data[1].Timestamp, data[2].Timestamp})

	markers := r.Markers()
	require.Len(t, markers, 2)
	assert.Equal(t, "late", markers[0].Name)
	assert.Equal(t, "early", markers[1].Name)

	assert.Equal(t, []string{"b", "a"}, r.SourceIDs())

	n, m := r.Len()
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, m)
}

func TestRecording_FirstLastLength(t *testing.T) {
	r := New()
	_, ok := r.First()
	assert.False(t, ok)
	assert.Equal(t, int64(0), r.Length())

	r.Append(sample("a", 1.0, 100))
	assert.Equal(t, int64(0), r.Length())

	r.Append(sample("a", 2.0, 40))
	r.Append(sample("a", 3.0, 250))

	first, ok := r.First()
	require.True(t, ok)
	assert.Equal(t, int64(40), first.Timestamp)

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, int64(250), last.Timestamp)
	assert.Equal(t, int64(210), r.Length())
}

func TestRecording_ReadViewsAreCopies(t *testing.T) {
	r := New()
	r.Append(sample("a", 1.0, 0))
	r.AddMarker(NewMarker("m", "", Normal, 0))

	data := r.Data()
	data[0].SourceID = "changed"
	markers := r.Markers()
	markers[0].Name = "changed"

	assert.Equal(t, "a", r.Data()[0].SourceID)
	assert.Equal(t, "m", r.Markers()[0].Name)
}

func TestRecording_Snapshot(t *testing.T) {
	r := New()
	for i := 0; i < 5; i++ {
		r.Append(sample("a", float64(i), int64(i)))
	}
	r.AddMarker(NewMarker("one", "", Low, 1))
	r.AddMarker(NewMarker("two", "", Low, 2))

	data, markers := r.Snapshot(3, 1)
	require.Len(t, data, 2)
	assert.Equal(t, 3.0, data[0].Value)
	require.Len(t, markers, 1)
	assert.Equal(t, "two", markers[0].Name)

	data, markers = r.Snapshot(5, 2)
	assert.Empty(t, data)
	assert.Empty(t, markers)

	data, markers = r.Snapshot(10, -1)
	assert.Empty(t, data)
	assert.Empty(t, markers)
}

func TestRecording_Equal(t *testing.T) {
	build := func() *Recording {
		r := New()
		r.Append(sample("num", math.NaN(), 1))
		r.Append(sample("arr", []float64{math.Inf(1), 0}, 2))
		r.Append(sample("str", "hello", 3))
		r.Append(sample("raw", []byte{}, 4))
		r.Append(TimestampedData{SourceID: "map", Type: types.Map, Timestamp: 5, Value: types.MapData{
			"x": {Type: types.Number, Value: math.NaN()},
		}})
		r.AddMarker(NewMarker("m", "desc", Critical, 3))
		return r
	}

	t.Run("identical content", func(t *testing.T) {
		assert.True(t, build().Equal(build()))
	})

	t.Run("nil and empty slices match", func(t *testing.T) {
		a, b := New(), New()
		a.Append(TimestampedData{SourceID: "s", Type: types.StringArray, Value: []string(nil)})
		b.Append(TimestampedData{SourceID: "s", Type: types.StringArray, Value: []string{}})
		assert.True(t, a.Equal(b))
	})

	t.Run("different marker", func(t *testing.T) {
		a, b := build(), build()
		b.AddMarker(NewMarker("extra", "", Low, 9))
		assert.False(t, a.Equal(b))
	})

	t.Run("different value", func(t *testing.T) {
		a, b := New(), New()
		a.Append(sample("s", 1.0, 0))
		b.Append(sample("s", 2.0, 0))
		assert.False(t, a.Equal(b))
	})

	t.Run("different order", func(t *testing.T) {
		a, b := New(), New()
		a.Append(sample("s", 1.0, 0))
		a.Append(sample("s", 2.0, 1))
		b.Append(sample("s", 2.0, 1))
		b.Append(sample("s", 1.0, 0))
		assert.False(t, a.Equal(b))
	})

	t.Run("nil recordings", func(t *testing.T) {
		var a *Recording
		assert.True(t, a.Equal(nil))
		assert.False(t, a.Equal(New()))
		assert.False(t, New().Equal(nil))
	})
}

func TestRecording_ConcurrentReaders(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			r.Append(sample("a", float64(i), int64(i)))
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.Data()
				_ = r.Length()
				_, _ = r.Snapshot(j, 0)
			}
		}()
	}
	wg.Wait()

	n, _ := r.Len()
	assert.Equal(t, 1000, n)
}

func TestImportance(t *testing.T) {
	assert.Equal(t, "LOW", Low.String())
	assert.Equal(t, "CRITICAL", Critical.String())
	assert.True(t, Trivial < Low && Low < Normal && Normal < High && High < Critical)

	for _, i := range Importances() {
		got, err := ImportanceForID(i.ID())
		require.NoError(t, err)
		assert.Equal(t, i, got)

		parsed, err := ParseImportance(i.String())
		require.NoError(t, err)
		assert.Equal(t, i, parsed)
	}

	_, err := ImportanceForID(5)
	assert.ErrorIs(t, err, ErrUnknownImportance)

	got, err := ParseImportance("high")
	require.NoError(t, err)
	assert.Equal(t, High, got)

	_, err = ParseImportance("urgent")
	assert.ErrorIs(t, err, ErrUnknownImportance)

	var i Importance
	require.NoError(t, i.UnmarshalText([]byte("normal")))
	assert.Equal(t, Normal, i)
}

func TestIsMetadata(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"/~metadata~", true},
		{"/table/~metadata~", true},
		{"/root/~metadata~/subkey", true},
		{"/.metadata", true},
		{"/table/.metadata", true},
		{"/root/.metadata/key", true},
		{"network_table:///SmartDashboard/.type", true},
		{"network_table:///SmartDashboard/speed", false},
		{"/a/b.c", false},
		{"/~/x", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMetadata(tt.id))
		})
	}
}
