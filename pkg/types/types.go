// Package types defines the logical data types that framerec records and the
// registry that maps type names to them.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Kind describes the Go value shape a DataType holds
type Kind int

const (
	KindNone Kind = iota
	KindAny
	KindString
	KindNumber
	KindBoolean
	KindStringArray
	KindNumberArray
	KindBooleanArray
	KindRaw
	KindMap
	KindComplex
)

// DataType identifies a logical kind of value. Types are compared by
// identity: two DataType values with the same name are distinct types.
type DataType struct {
	Name    string
	Default any
	Complex bool
	Kind    Kind
}

// New creates a simple (atomic) data type
func New(name string, kind Kind, def any) *DataType {
	return &DataType{Name: name, Default: def, Kind: kind}
}

// NewComplex creates a complex data type whose values decompose into named
// sub-values
func NewComplex(name string, def any) *DataType {
	return &DataType{Name: name, Default: def, Complex: true, Kind: KindComplex}
}

func (t *DataType) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

// Catch-all and built-in types. These are shared instances; registries hold
// pointers to them.
var (
	All     = New("All", KindAny, nil)
	None    = New("None", KindNone, nil)
	Unknown = New("Unknown", KindAny, nil)

	String       = New("String", KindString, "")
	Number       = New("Number", KindNumber, float64(0))
	Boolean      = New("Boolean", KindBoolean, false)
	StringArray  = New("StringArray", KindStringArray, []string{})
	NumberArray  = New("NumberArray", KindNumberArray, []float64{})
	BooleanArray = New("BooleanArray", KindBooleanArray, []bool{})
	Raw          = New("Raw", KindRaw, []byte{})
	Blob         = New("Blob", KindRaw, []byte{})

	Map     = &DataType{Name: "Map", Default: MapData{}, Complex: true, Kind: KindMap}
	Chooser = NewComplex("String Chooser", ChooserData{Options: []string{}})
)

// Builtins returns the built-in types in registration order
func Builtins() []*DataType {
	return []*DataType{
		All, None, Unknown, Map,
		String, Number, Boolean,
		StringArray, NumberArray, BooleanArray, Raw,
		Chooser, Blob,
	}
}

// MapEntry is one named value inside a MapData
type MapEntry struct {
	Type  *DataType
	Value any
}

// MapData is the value of the Map type. Each entry carries its own type so
// nested values can be encoded with their adapters.
type MapData map[string]MapEntry

// Keys returns the keys in sorted order
func (m MapData) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ChooserData is the value of a chooser widget: the available options, the
// default, and the currently selected option
type ChooserData struct {
	Options  []string
	Default  string
	Selected string
}

// HumanReadable renders the chooser as sorted key=value pairs
func (c ChooserData) HumanReadable() string {
	return fmt.Sprintf("default=%s, options=[%s], selected=%s",
		c.Default, strings.Join(c.Options, ", "), c.Selected)
}
