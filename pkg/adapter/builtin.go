package adapter

import (
	"github.com/ssargent/framerec/pkg/codec"
	"github.com/ssargent/framerec/pkg/types"
)

// NewNumber returns the Number adapter. Values are stored as 8-byte doubles;
// any Go integer or float32 is widened to float64.
func NewNumber() *Func[float64] {
	a := Adapt(types.Number, codec.AppendFloat64, (*codec.Reader).Float64,
		func(float64) int { return codec.SizeOfFloat64 })
	a.Coerce = toFloat64
	return a
}

// NewBoolean returns the 1-byte Boolean adapter
func NewBoolean() *Func[bool] {
	return Adapt(types.Boolean, codec.AppendBool, (*codec.Reader).Bool,
		func(bool) int { return codec.SizeOfBool })
}

// NewString returns the length-prefixed String adapter
func NewString() *Func[string] {
	return Adapt(types.String, codec.AppendString, (*codec.Reader).String, codec.SizeOfString)
}

// NewStringArray returns the StringArray adapter
func NewStringArray() *Func[[]string] {
	return Adapt(types.StringArray, codec.AppendStringArray, (*codec.Reader).StringArray, codec.SizeOfStringArray)
}

// NewNumberArray returns the NumberArray adapter
func NewNumberArray() *Func[[]float64] {
	return Adapt(types.NumberArray, codec.AppendFloat64Array, (*codec.Reader).Float64Array, codec.SizeOfFloat64Array)
}

// NewBooleanArray returns the BooleanArray adapter
func NewBooleanArray() *Func[[]bool] {
	return Adapt(types.BooleanArray, codec.AppendBoolArray, (*codec.Reader).BoolArray, codec.SizeOfBoolArray)
}

// NewRaw returns the raw byte array adapter
func NewRaw() *Func[[]byte] {
	return Adapt(types.Raw, codec.AppendBytes, (*codec.Reader).Bytes, codec.SizeOfBytes)
}

// RegisterBuiltins installs the built-in data types into tr and their
// adapters into ar. Either registry may already hold some of them.
func RegisterBuiltins(tr *types.Registry, ar *Registry) {
	for _, t := range types.Builtins() {
		tr.RegisterIfAbsent(t)
	}
	ar.Add(NewNumber())
	ar.Add(NewBoolean())
	ar.Add(NewString())
	ar.Add(NewStringArray())
	ar.Add(NewNumberArray())
	ar.Add(NewBooleanArray())
	ar.Add(NewRaw())
	ar.Add(NewChooser())
	ar.Add(NewMap(tr, ar))
	ar.Add(NewSidecar(types.Blob))
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}
