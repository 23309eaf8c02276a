package tts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sahilm/fuzzy"
)

// Registry maps engine names to backends. It is populated once at
// startup and is read-only afterwards, so lookups need no locking.
type Registry struct {
	backends map[string]Backend
	names    []string
}

// NewRegistry registers the given backends. Names must be unique.
func NewRegistry(backends ...Backend) (*Registry, error) {
	r := &Registry{
		backends: make(map[string]Backend, len(backends)),
		names:    make([]string, 0, len(backends)),
	}
	for _, b := range backends {
		if b == nil {
			continue
		}
		name := b.Name()
		if name == "" {
			return nil, fmt.Errorf("engine with empty name")
		}
		if _, dup := r.backends[name]; dup {
			return nil, fmt.Errorf("engine %q registered twice", name)
		}
		r.backends[name] = b
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// List returns all registered engine names in lexicographic order.
func (r *Registry) List() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Descriptors returns the descriptors of all engines, ordered by name.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, DescriptorOf(r.backends[name]))
	}
	return out
}

// Resolve returns the backend registered under name. Unknown names
// produce an error matching ErrNotFound.
func (r *Registry) Resolve(name string) (Backend, error) {
	if b, ok := r.backends[name]; ok {
		return b, nil
	}
	msg := fmt.Sprintf("unknown engine %q", name)
	if s := r.suggest(name); s != "" {
		msg = fmt.Sprintf("%s, did you mean %q?", msg, s)
	}
	return nil, NewError(ErrorCodeNotFound, msg, nil)
}

// CheckAvailability returns the missing prerequisites of the named
// engine. Probe failures, including panics, are folded into the list.
func (r *Registry) CheckAvailability(ctx context.Context, name string) (missing []string) {
	b, ok := r.backends[name]
	if !ok {
		return []string{fmt.Sprintf("engine %q is not registered", name)}
	}

	defer func() {
		if p := recover(); p != nil {
			log.Warn("Availability probe panicked", "engine", name, "panic", p)
			missing = []string{fmt.Sprintf("%s availability check failed: %v", name, p)}
		}
	}()

	missing = b.CheckAvailability(ctx)
	if len(missing) > 0 {
		log.Debug("Engine missing prerequisites", "engine", name, "missing", missing)
	}
	return missing
}

// suggest returns the closest registered name to a mistyped one.
func (r *Registry) suggest(name string) string {
	if name == "" || len(r.names) == 0 {
		return ""
	}
	lowered := make([]string, len(r.names))
	for i, n := range r.names {
		lowered[i] = strings.ToLower(n)
	}
	matches := fuzzy.Find(strings.ToLower(name), lowered)
	if len(matches) == 0 {
		return ""
	}
	return r.names[matches[0].Index]
}
