package commands

import (
	"fmt"
	"sort"
	"sync"
)

// Factory returns a fresh command. Commands keep parsed flag values in
// their fields, so every dispatch starts from a new one.
type Factory func() Command

// Registry holds registered commands.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory // name and aliases map to the factory
	primary   map[string]Factory // name only
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		primary:   make(map[string]Factory),
	}
}

// Register adds a command to the registry.
// Returns an error if the name or any alias is already registered.
func (r *Registry) Register(f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := f()
	names := append([]string{c.Name()}, c.Aliases()...)
	for _, n := range names {
		if _, exists := r.factories[n]; exists {
			return fmt.Errorf("command already registered: %s", n)
		}
	}

	for _, n := range names {
		r.factories[n] = f
	}
	r.primary[c.Name()] = f
	return nil
}

// Find returns a new instance of the command registered under name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// All returns one new instance of every command, sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.primary))
	for name := range r.primary {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Command, len(names))
	for i, name := range names {
		result[i] = r.primary[name]()
	}
	return result
}

// DefaultRegistry is the global command registry.
var DefaultRegistry = NewRegistry()

// Register adds a command to the default registry.
func Register(f Factory) {
	if err := DefaultRegistry.Register(f); err != nil {
		panic(err)
	}
}
