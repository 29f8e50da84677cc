package adapter

import (
	"fmt"

	"github.com/ssargent/framerec/pkg/codec"
	"github.com/ssargent/framerec/pkg/types"
)

// Map serializes MapData. Entries are written in sorted key order, each
// carrying its type name so the nested value can be decoded by its own
// adapter:
//
//	[count(4)] { [string key][string type name][value bytes] }...
type Map struct {
	types    *types.Registry
	adapters *Registry
}

// NewMap returns a map adapter that resolves nested entry types through tr
// and their adapters through ar
func NewMap(tr *types.Registry, ar *Registry) *Map {
	return &Map{types: tr, adapters: ar}
}

func (m *Map) DataType() *types.DataType {
	return types.Map
}

func (m *Map) Serialize(value any) ([]byte, error) {
	data, err := m.cast(value)
	if err != nil {
		return nil, err
	}
	size, err := m.size(data)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, size)
	buf = codec.AppendInt32(buf, int32(len(data)))
	for _, key := range data.Keys() {
		entry := data[key]
		a, err := m.adapters.Lookup(entry.Type)
		if err != nil {
			return nil, fmt.Errorf("map entry %q: %w", key, err)
		}
		b, err := a.Serialize(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("map entry %q: %w", key, err)
		}
		buf = codec.AppendString(buf, key)
		buf = codec.AppendString(buf, entry.Type.Name)
		buf = append(buf, b...)
	}
	return buf, nil
}

func (m *Map) Deserialize(buf []byte, pos int) (any, error) {
	r := codec.NewReader(buf, pos)
	n, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("map entry count: %w", err)
	}
	if n < 0 {
		return nil, fmt.Errorf("map entry count %d: %w", n, codec.ErrNegativeLength)
	}

	data := make(types.MapData)
	for i := int32(0); i < n; i++ {
		key, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("map entry %d key: %w", i, err)
		}
		typeName, err := r.String()
		if err != nil {
			return nil, fmt.Errorf("map entry %q type: %w", key, err)
		}
		dt, err := m.types.Lookup(typeName)
		if err != nil {
			return nil, fmt.Errorf("map entry %q: %w", key, err)
		}
		a, err := m.adapters.Lookup(dt)
		if err != nil {
			return nil, fmt.Errorf("map entry %q: %w", key, err)
		}
		v, err := a.Deserialize(buf, r.Pos())
		if err != nil {
			return nil, fmt.Errorf("map entry %q: %w", key, err)
		}
		consumed, err := a.SerializedSize(v)
		if err != nil {
			return nil, fmt.Errorf("map entry %q: %w", key, err)
		}
		if err := r.Skip(consumed); err != nil {
			return nil, fmt.Errorf("map entry %q: %w", key, err)
		}
		data[key] = types.MapEntry{Type: dt, Value: v}
	}
	return data, nil
}

func (m *Map) SerializedSize(value any) (int, error) {
	data, err := m.cast(value)
	if err != nil {
		return 0, err
	}
	return m.size(data)
}

func (m *Map) CleanUp() error {
	return nil
}

func (m *Map) size(data types.MapData) (int, error) {
	size := codec.SizeOfInt32
	for key, entry := range data {
		if entry.Type == nil {
			return 0, fmt.Errorf("map entry %q: %w: missing type", key, ErrTypeMismatch)
		}
		a, err := m.adapters.Lookup(entry.Type)
		if err != nil {
			return 0, fmt.Errorf("map entry %q: %w", key, err)
		}
		n, err := a.SerializedSize(entry.Value)
		if err != nil {
			return 0, fmt.Errorf("map entry %q: %w", key, err)
		}
		size += codec.SizeOfString(key) + codec.SizeOfString(entry.Type.Name) + n
	}
	if err := codec.CheckLength(size); err != nil {
		return 0, fmt.Errorf("map: %w", err)
	}
	return size, nil
}

func (m *Map) cast(value any) (types.MapData, error) {
	data, ok := value.(types.MapData)
	if !ok {
		return nil, fmt.Errorf("%w: map adapter expects types.MapData, got %T", ErrTypeMismatch, value)
	}
	return data, nil
}
