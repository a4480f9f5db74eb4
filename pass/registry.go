package pass

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/teranos/stagegen/errors"
)

// Registry maps handles to live pass contexts.
// Thread-safe: structural changes are serialized, and passes on distinct
// handles never observe each other's entries.
type Registry struct {
	mu       sync.RWMutex
	contexts map[Handle]*Context
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{contexts: make(map[Handle]*Context)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by engines that are
// not given one explicitly.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Add stores pc under h, replacing any previous entry.
// Returns true if a stale entry was replaced.
func (r *Registry) Add(h Handle, pc *Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced := r.contexts[h]
	r.contexts[h] = pc
	return replaced
}

// Get returns the context registered under h.
func (r *Registry) Get(h Handle) (*Context, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pc, ok := r.contexts[h]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNoContext, "handle %s", h)
	}
	return pc, nil
}

// Has reports whether a context is registered under h.
func (r *Registry) Has(h Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.contexts[h]
	return ok
}

// Remove deletes the entry for h. No-op when absent.
func (r *Registry) Remove(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contexts, h)
}

// RemoveGenerator deletes every entry belonging to the given engine and
// returns how many were removed.
func (r *Registry) RemoveGenerator(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for h := range r.contexts {
		if h.Generator == id {
			delete(r.contexts, h)
			removed++
		}
	}
	return removed
}

// Handles returns the handles registered for an engine, sorted by lane.
func (r *Registry) Handles(id uuid.UUID) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Handle
	for h := range r.contexts {
		if h.Generator == id {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Lane < out[j].Lane })
	return out
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.contexts)
}

// ContextData returns the generator-defined data of the context registered
// under h, asserted to T.
func ContextData[T any](r *Registry, h Handle) (T, error) {
	var zero T
	pc, err := r.Get(h)
	if err != nil {
		return zero, err
	}
	data, ok := pc.Data().(T)
	if !ok {
		return zero, errors.Wrapf(errors.ErrContextType, "handle %s holds %T, want %T", h, pc.Data(), zero)
	}
	return data, nil
}
