// Package registry holds the incident source tables and resolves UIDs to
// the source that owns them.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"aviation_incidents/internal/incident"
)

// Source is implemented by each incident source table. It maps the
// table's physical columns onto the canonical incident columns.
type Source interface {
	// Tag returns the UID prefix owned by this source.
	Tag() incident.Tag

	// Table returns the physical table name.
	Table() string

	// Column returns the physical column holding the canonical column,
	// or "" when the source has no such column (it reads as NULL).
	Column(col incident.Column) string

	// Priority determines the order of the source in the union.
	// Lower number = earlier.
	Priority() int
}

// Registry holds all registered sources keyed by tag.
type Registry struct {
	mu sync.RWMutex

	byTag map[incident.Tag]Source

	// ordered holds sources sorted by Priority, rebuilt lazily
	ordered []Source
	sorted  bool
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{
		byTag: make(map[incident.Tag]Source),
	}
}

// Global default registry.
var defaultRegistry = New()

// Default returns the global registry instance.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a source to the default registry.
// Called during init() in each source package.
func Register(s Source) {
	defaultRegistry.Register(s)
}

// Register adds a source to the registry. Registering a second source for
// the same tag replaces the first.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byTag[s.Tag()]; !exists {
		r.ordered = append(r.ordered, s)
	} else {
		for i, existing := range r.ordered {
			if existing.Tag() == s.Tag() {
				r.ordered[i] = s
			}
		}
	}
	r.byTag[s.Tag()] = s
	r.sorted = false
}

// Lookup returns the source registered for tag.
func (r *Registry) Lookup(tag incident.Tag) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byTag[tag]
	return s, ok
}

// Resolve returns the source that owns uid. Unknown prefixes and prefixes
// with no registered source both fail with incident.ErrInvalidUID.
func (r *Registry) Resolve(uid string) (Source, error) {
	tag, err := incident.ParseUID(uid)
	if err != nil {
		return nil, err
	}
	s, ok := r.Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("%w %q: no source registered", incident.ErrInvalidUID, tag)
	}
	return s, nil
}

// All returns every registered source sorted by priority.
func (r *Registry) All() []Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.sorted {
		sort.SliceStable(r.ordered, func(i, j int) bool {
			return r.ordered[i].Priority() < r.ordered[j].Priority()
		})
		r.sorted = true
	}

	out := make([]Source, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTag)
}
