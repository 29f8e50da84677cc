package recording

import (
	"bytes"
	"math"
	"reflect"
	"slices"

	"github.com/ssargent/framerec/pkg/types"
)

// Equal reports whether both recordings hold the same samples and markers
// in the same order. Floats compare by bit pattern so NaN survives a
// save and load, and nil slices equal empty ones.
func (r *Recording) Equal(other *Recording) bool {
	if r == other {
		return true
	}
	if r == nil || other == nil {
		return false
	}

	data, markers := r.Copy()
	otherData, otherMarkers := other.Copy()

	if len(data) != len(otherData) || !slices.Equal(markers, otherMarkers) {
		return false
	}
	for i := range data {
		if !data[i].Equal(otherData[i]) {
			return false
		}
	}
	return true
}

// Equal compares two samples. Types match by name.
func (d TimestampedData) Equal(other TimestampedData) bool {
	return d.SourceID == other.SourceID &&
		d.Timestamp == other.Timestamp &&
		sameType(d.Type, other.Type) &&
		ValuesEqual(d.Value, other.Value)
}

// ValuesEqual compares two captured values structurally
func ValuesEqual(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && math.Float64bits(av) == math.Float64bits(bv)
	case []float64:
		bv, ok := b.([]float64)
		return ok && slices.EqualFunc(av, bv, func(x, y float64) bool {
			return math.Float64bits(x) == math.Float64bits(y)
		})
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case []string:
		bv, ok := b.([]string)
		return ok && slices.Equal(av, bv)
	case []bool:
		bv, ok := b.([]bool)
		return ok && slices.Equal(av, bv)
	case types.ChooserData:
		bv, ok := b.(types.ChooserData)
		return ok && av.Default == bv.Default && av.Selected == bv.Selected &&
			slices.Equal(av.Options, bv.Options)
	case types.MapData:
		bv, ok := b.(types.MapData)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ae := range av {
			be, ok := bv[k]
			if !ok || !sameType(ae.Type, be.Type) || !ValuesEqual(ae.Value, be.Value) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func sameType(a, b *types.DataType) bool {
	if a == b {
		return true
	}
	return a != nil && b != nil && a.Name == b.Name
}
