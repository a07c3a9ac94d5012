// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package backendregistry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucl-sgnl/myriad-utils/internal/backends"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/layout"
)

type stubDispatcher struct{ name string }

func (s stubDispatcher) Name() string { return s.name }

func (s stubDispatcher) Dispatch(context.Context, []layout.WorkUnit) (*backends.Receipt, error) {
	return &backends.Receipt{Backend: s.name}, nil
}

func TestRegistryCreate(t *testing.T) {
	errBad := errors.New("bad settings")

	r := New(func(r Registry) {
		r["stub"] = func(backends.Settings) (backends.Dispatcher, error) {
			return stubDispatcher{name: "stub"}, nil
		}
		r["broken"] = func(backends.Settings) (backends.Dispatcher, error) {
			return nil, errBad
		}
	})

	d, err := r.Create("stub", backends.Settings{})
	require.NoError(t, err)
	assert.Equal(t, "stub", d.Name())

	_, err = r.Create("broken", backends.Settings{})
	require.ErrorIs(t, err, ErrBackendCreation)
	require.ErrorIs(t, err, errBad)
	require.ErrorIs(t, err, batcherr.ErrConfiguration)

	_, err = r.Create("nope", backends.Settings{})
	require.ErrorIs(t, err, ErrUnknownBackend)
	require.ErrorIs(t, err, batcherr.ErrConfiguration)
	assert.Contains(t, err.Error(), "broken")
}

func TestNewDoesNotMutateDefault(t *testing.T) {
	before := len(DefaultRegistry)

	r := New(func(r Registry) {
		r["only-here"] = nil
	})

	assert.Contains(t, r.Names(), "only-here")
	assert.Len(t, DefaultRegistry, before)
	assert.NotContains(t, DefaultRegistry, "only-here")
}

func TestNamesSorted(t *testing.T) {
	r := Registry{"local": nil, "array": nil, "perunit": nil}
	assert.Equal(t, []string{"array", "local", "perunit"}, r.Names())
}
