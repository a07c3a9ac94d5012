// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package backendregistry

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/ucl-sgnl/myriad-utils/internal/backends"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
)

var (
	// ErrUnknownBackend is returned when a backend name is not registered.
	ErrUnknownBackend = errors.New("unknown backend type")
	// ErrBackendCreation is returned when a registered factory fails.
	ErrBackendCreation = errors.New("failed to create backend")
)

// FactoryContextKey is the context key under which the CLI stores the active Registry.
type FactoryContextKey struct{}

// Registry holds the mapping between backend names and their factories.
type Registry map[string]backends.Factory

// DefaultRegistry is filled by backend packages at init time.
var DefaultRegistry = make(Registry)

// Register adds a backend to the default registry.
func Register(name string, factory backends.Factory) {
	DefaultRegistry[name] = factory
}

// New returns a copy of the default registry with extra registrations applied.
func New(registrations ...func(Registry)) Registry {
	r := maps.Clone(DefaultRegistry)
	for _, reg := range registrations {
		reg(r)
	}

	return r
}

// Names returns the registered backend names, sorted.
func (r Registry) Names() []string {
	return slices.Sorted(maps.Keys(r))
}

// Create builds the named backend. Unknown names and factory failures are configuration errors.
func (r Registry) Create(name string, s backends.Settings) (backends.Dispatcher, error) {
	factory, ok := r[name]
	if !ok {
		return nil, errors.Join(batcherr.ErrConfiguration,
			fmt.Errorf("%w: %q (known: %v)", ErrUnknownBackend, name, r.Names()))
	}

	d, err := factory(s)
	if err != nil {
		return nil, errors.Join(batcherr.ErrConfiguration, fmt.Errorf("%w: %s", ErrBackendCreation, name), err)
	}

	return d, nil
}
