package task

import (
	"fmt"
	"sort"
)

// Registry holds the static task table for one invocation.
//
// It is populated once at startup and read-only afterwards; the runner never
// mutates it. Lookup of an unknown name is an error, not a no-op.
type Registry struct {
	byName map[string]Task
	names  []string // registration order
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Task)}
}

// Register adds a task. The name must be non-empty and unused.
func (r *Registry) Register(t Task) error {
	if t.Name == "" {
		return fmt.Errorf("task name is required")
	}
	if _, exists := r.byName[t.Name]; exists {
		return &DuplicateTaskError{Name: t.Name}
	}
	r.byName[t.Name] = t
	r.names = append(r.names, t.Name)
	return nil
}

// MustRegister registers a task and panics on error. The builtin table is
// assembled from literals at startup, where a registration error is a
// programming mistake rather than a runtime condition.
func (r *Registry) MustRegister(t Task) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the task registered under name.
func (r *Registry) Lookup(name string) (Task, error) {
	t, ok := r.byName[name]
	if !ok {
		return Task{}, &UnknownTaskError{Name: name}
	}
	return t, nil
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// SortedNames returns all registered names in lexical order, for stable help
// listings.
func (r *Registry) SortedNames() []string {
	out := r.Names()
	sort.Strings(out)
	return out
}
