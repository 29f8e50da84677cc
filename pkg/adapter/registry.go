package adapter

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ssargent/framerec/pkg/types"
)

// Registry maps data types to the adapter that serializes them. Lookups
// are by type identity, so two types that share a name never share an
// adapter.
type Registry struct {
	mu       sync.RWMutex
	adapters map[*types.DataType]Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[*types.DataType]Adapter)}
}

// NewDefaultRegistry creates a registry holding the built-in adapters. The
// built-in types are installed into tr, or the process-wide type registry
// when tr is nil.
func NewDefaultRegistry(tr *types.Registry) *Registry {
	if tr == nil {
		tr = types.Default()
	}
	r := NewRegistry()
	RegisterBuiltins(tr, r)
	return r
}

// Add registers a for its data type, replacing any previous adapter. The
// replaced adapter is cleaned up.
func (r *Registry) Add(a Adapter) {
	if a == nil || a.DataType() == nil {
		return
	}

	r.mu.Lock()
	prev := r.adapters[a.DataType()]
	r.adapters[a.DataType()] = a
	r.mu.Unlock()

	if prev != nil && prev != a {
		_ = prev.CleanUp()
	}
}

// Get returns the adapter for t
func (r *Registry) Get(t *types.DataType) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[t]
	return a, ok
}

// Lookup returns the adapter for t or an error wrapping ErrNoAdapter
func (r *Registry) Lookup(t *types.DataType) (Adapter, error) {
	a, ok := r.Get(t)
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoAdapter, t)
	}
	return a, nil
}

// Has reports whether an adapter is registered for t
func (r *Registry) Has(t *types.DataType) bool {
	_, ok := r.Get(t)
	return ok
}

// Remove unregisters a if it is the adapter currently bound to its type
// and cleans it up
func (r *Registry) Remove(a Adapter) error {
	if a == nil {
		return nil
	}

	r.mu.Lock()
	if r.adapters[a.DataType()] != a {
		r.mu.Unlock()
		return nil
	}
	delete(r.adapters, a.DataType())
	r.mu.Unlock()

	return a.CleanUp()
}

// RemoveType unregisters and cleans up whatever adapter serves t
func (r *Registry) RemoveType(t *types.DataType) error {
	r.mu.Lock()
	a, ok := r.adapters[t]
	delete(r.adapters, t)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return a.CleanUp()
}

// Adapters returns the registered adapters ordered by type name
func (r *Registry) Adapters() []Adapter {
	r.mu.RLock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].DataType().Name < out[j].DataType().Name
	})
	return out
}

// SetCurrentFile tells every FileAware adapter which recording is in use
func (r *Registry) SetCurrentFile(path string, mode FileMode) {
	for _, a := range r.Adapters() {
		if fa, ok := a.(FileAware); ok {
			fa.SetCurrentFile(path, mode)
		}
	}
}

// FlushAll flushes every Flusher adapter and joins their errors
func (r *Registry) FlushAll() error {
	var errs []error
	for _, a := range r.Adapters() {
		if f, ok := a.(Flusher); ok {
			if err := f.Flush(); err != nil {
				errs = append(errs, fmt.Errorf("flush %s: %w", a.DataType(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// CleanUpAll cleans up every adapter. All adapters are visited even when
// some fail.
func (r *Registry) CleanUpAll() error {
	var errs []error
	for _, a := range r.Adapters() {
		if err := a.CleanUp(); err != nil {
			errs = append(errs, fmt.Errorf("clean up %s: %w", a.DataType(), err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of registered adapters
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

var defaultRegistry atomic.Pointer[Registry]

func init() {
	defaultRegistry.Store(NewDefaultRegistry(types.Default()))
}

// Default returns the process-wide adapter registry
func Default() *Registry {
	return defaultRegistry.Load()
}

// Swap installs r as the process-wide adapter registry and returns a func
// that restores the previous one
func Swap(r *Registry) (restore func()) {
	prev := defaultRegistry.Swap(r)
	return func() { defaultRegistry.Store(prev) }
}
