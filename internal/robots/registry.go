package robots

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/arena/internal/engine"
)

// Factory builds a fresh agent for one round.
type Factory func() engine.Agent

// Registry maps robot names to factories. Lookups ignore case.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default returns a registry holding the built-in robots.
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister("sitting-duck", func() engine.Agent { return &SittingDuck{} })
	r.MustRegister("spinner", func() engine.Agent { return &Spinner{} })
	r.MustRegister("tracker", func() engine.Agent { return &Tracker{} })
	r.MustRegister("walls", func() engine.Agent { return &Walls{} })
	r.MustRegister("scout", func() engine.Agent { return &Scout{} })
	return r
}

// Register adds f under name. Registering a name twice is an error.
func (r *Registry) Register(name string, f Factory) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return fmt.Errorf("robot name must not be empty")
	}
	if f == nil {
		return fmt.Errorf("robot %q has no factory", name)
	}
	if _, dup := r.factories[key]; dup {
		return fmt.Errorf("robot %q already registered", name)
	}
	r.factories[key] = f
	return nil
}

func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Lookup returns the factory for name.
func (r *Registry) Lookup(name string) (func() engine.Agent, bool) {
	f, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return f, true
}

// Names returns the registered robot names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
