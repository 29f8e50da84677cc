package types

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrConflict is returned when a different type already holds a name
	ErrConflict = errors.New("types: name already registered by a different type")
	// ErrUnknownType is returned when no type is registered under a name
	ErrUnknownType = errors.New("types: unknown data type")
)

// Registry maps type names to data types
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*DataType
	order  []*DataType
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*DataType)}
}

// NewDefaultRegistry creates a registry holding the built-in types
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range Builtins() {
		r.RegisterIfAbsent(t)
	}
	return r
}

// Register adds t under its name. Registering the same instance twice is a
// no-op; registering a different instance under a taken name fails.
func (r *Registry) Register(t *DataType) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("types: cannot register unnamed type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[t.Name]; ok {
		if existing == t {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrConflict, t.Name)
	}
	r.byName[t.Name] = t
	r.order = append(r.order, t)
	return nil
}

// RegisterIfAbsent adds t if its name is free and reports whether it was
// added. It never fails.
func (r *Registry) RegisterIfAbsent(t *DataType) bool {
	if t == nil || t.Name == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[t.Name]; ok {
		return false
	}
	r.byName[t.Name] = t
	r.order = append(r.order, t)
	return true
}

// Unregister removes t. Removing a type that is not registered, or a
// different instance with the same name, does nothing.
func (r *Registry) Unregister(t *DataType) {
	if t == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byName[t.Name] != t {
		return
	}
	delete(r.byName, t.Name)
	for i, o := range r.order {
		if o == t {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// ForName returns the type registered under name, or Unknown and false
func (r *Registry) ForName(name string) (*DataType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byName[name]
	if !ok {
		return Unknown, false
	}
	return t, true
}

// Lookup returns the type registered under name or an error wrapping
// ErrUnknownType
func (r *Registry) Lookup(name string) (*DataType, error) {
	t, ok := r.ForName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

// Has reports whether t itself is registered
func (r *Registry) Has(t *DataType) bool {
	if t == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[t.Name] == t
}

// ForValue returns the registered type closest to the shape of v. A type
// whose default value has the same Go type wins; otherwise the first
// registered type of the matching kind is used. Unknown is returned when
// nothing matches.
func (r *Registry) ForValue(v any) *DataType {
	if v == nil {
		return Unknown
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rt := reflect.TypeOf(v)
	for _, t := range r.order {
		if t.Default != nil && reflect.TypeOf(t.Default) == rt {
			return t
		}
	}

	kind := KindOf(v)
	if kind == KindNone || kind == KindAny {
		return Unknown
	}
	for _, t := range r.order {
		if t.Kind == kind {
			return t
		}
	}
	return Unknown
}

// Types returns the registered types sorted by name
func (r *Registry) Types() []*DataType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*DataType, len(r.order))
	copy(out, r.order)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered types
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// KindOf classifies a Go value by shape
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNone
	case string:
		return KindString
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindNumber
	case bool:
		return KindBoolean
	case []string:
		return KindStringArray
	case []float64:
		return KindNumberArray
	case []bool:
		return KindBooleanArray
	case []byte:
		return KindRaw
	case MapData:
		return KindMap
	case ChooserData:
		return KindComplex
	default:
		return KindAny
	}
}

var defaultRegistry atomic.Pointer[Registry]

func init() {
	defaultRegistry.Store(NewDefaultRegistry())
}

// Default returns the process-wide registry
func Default() *Registry {
	return defaultRegistry.Load()
}

// Swap installs r as the process-wide registry and returns a func that
// restores the previous one. Tests use it to isolate registrations.
func Swap(r *Registry) (restore func()) {
	prev := defaultRegistry.Swap(r)
	return func() { defaultRegistry.Store(prev) }
}
