// Package registry maps names to component constructors.
package registry

import (
	"errors"
	"fmt"
	"sort"
)

var ErrNotFound = errors.New("component not found")

// Creator builds a component from its configuration.
type Creator[C any, T any] func(config T) (C, error)

type Registry[C any, T any] struct {
	creators map[string]Creator[C, T]
}

func New[C any, T any]() *Registry[C, T] {
	return &Registry[C, T]{
		creators: make(map[string]Creator[C, T]),
	}
}

// Register panics if name is already taken.
func (r *Registry[C, T]) Register(name string, creator Creator[C, T]) {
	if _, ok := r.creators[name]; ok {
		panic(fmt.Sprintf("component %q already registered", name))
	}
	r.creators[name] = creator
}

func (r *Registry[C, T]) Names() []string {
	names := make([]string, 0, len(r.creators))
	for name := range r.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry[C, T]) New(name string, config T) (C, error) {
	creator, ok := r.creators[name]
	if !ok {
		var component C
		return component, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return creator(config)
}
