// Package registry maps component type names to constructors configured from raw JSON.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"
)

type Creator[C any, P any] func(config json.RawMessage, provider P) (C, error)

// Registry is populated at startup and read-only afterwards.
type Registry[C any, P any] struct {
	creators map[string]Creator[C, P]
	provider P
}

func NewRegistry[C any, P any](provider P) *Registry[C, P] {
	return &Registry[C, P]{
		provider: provider,
		creators: make(map[string]Creator[C, P]),
	}
}

// Register panics when the name is already taken.
func (r *Registry[C, P]) Register(name string, creator Creator[C, P]) {
	if _, ok := r.creators[name]; ok {
		panic(fmt.Sprintf("component already registered: %s", name))
	}
	r.creators[name] = creator
}

func (r *Registry[C, P]) New(name string, config json.RawMessage) (C, error) {
	creator, ok := r.creators[name]
	if !ok {
		var component C
		return component, fmt.Errorf("component not found: %s (available: %v)", name, r.Names())
	}
	component, err := creator(config, r.provider)
	if err != nil {
		return component, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return component, nil
}

func (r *Registry[C, P]) Names() []string {
	names := make([]string, 0, len(r.creators))
	for name := range r.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
