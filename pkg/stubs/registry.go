// Package stubs turns contracts into stub definitions for other tools.
//
// Generators are registered explicitly in a Registry that callers build at
// startup and pass around; there is no global registry.
package stubs

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/getmockd/contractd/pkg/contract"
)

// ErrNoGenerator is returned when no generator is registered under a name.
var ErrNoGenerator = errors.New("no stub generator registered")

// Generator converts a single contract into a stub file.
type Generator interface {
	// Name identifies the generator, e.g. "wiremock".
	Name() string
	// Extension is the file extension of generated stubs, with the dot.
	Extension() string
	// CanHandle reports whether the contract can be converted.
	CanHandle(c *contract.Contract) bool
	// Generate returns the stub file content.
	Generate(c *contract.Contract) ([]byte, error)
}

// Registry manages generators by name.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
}

// NewRegistry creates a registry holding the given generators.
func NewRegistry(gens ...Generator) *Registry {
	r := &Registry{generators: make(map[string]Generator, len(gens))}
	for _, g := range gens {
		r.Register(g)
	}
	return r
}

// DefaultRegistry returns a new registry with the built-in generators.
func DefaultRegistry() *Registry {
	return NewRegistry(WireMock{})
}

// Register adds a generator, replacing one with the same name.
func (r *Registry) Register(g Generator) {
	if g == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[g.Name()] = g
}

// Get returns the generator registered under name.
func (r *Registry) Get(name string) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoGenerator, name)
	}
	return g, nil
}

// Names returns the registered generator names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
