// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package paramgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
	"github.com/ucl-sgnl/myriad-utils/internal/layout"
)

const (
	// keyColumn is the width the directive key is left-aligned to, e.g. "model_type   = 1".
	keyColumn   = 13
	sixFourFour = 0o644
)

var (
	// ErrInvalidCount is returned when fewer than one parameter set is requested.
	ErrInvalidCount = errors.New("job count must be at least 1")
	// ErrNilTemplate is returned when a generator is built without a template.
	ErrNilTemplate = errors.New("template must not be nil")
	// ErrWriteParamFile is returned when a parameter file cannot be written.
	ErrWriteParamFile = errors.New("failed to write parameter file")
)

// Generator renders parameter sets from a template.
type Generator struct {
	fs       afero.Fs
	template *Template
	fields   Fields
	nPoints  int
}

// Option configures a Generator.
type Option func(*Generator)

// WithFixedNPoints renders n_points as n instead of the job count.
func WithFixedNPoints(n int) Option {
	return func(g *Generator) {
		g.nPoints = n
	}
}

// New returns a generator writing through fs. Missing fields fail here, before anything is written.
func New(fs afero.Fs, template *Template, fields Fields, opts ...Option) (*Generator, error) {
	if template == nil {
		return nil, errors.Join(batcherr.ErrConfiguration, ErrNilTemplate)
	}

	if err := fields.Validate(); err != nil {
		return nil, err
	}

	g := &Generator{
		fs:       fs,
		template: template,
		fields:   fields,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Render returns the parameter file content for job index of count jobs.
func (g *Generator) Render(index, count int) []byte {
	var sb strings.Builder

	for _, line := range g.template.Lines {
		d, ok := matchDirective(line)
		if !ok {
			sb.WriteString(line)
			continue
		}

		fmt.Fprintf(&sb, "%-*s= %s\n", keyColumn, string(d), g.fields.valueFor(d, index, count, g.nPoints))
	}

	return []byte(sb.String())
}

// Generate writes count parameter files named prefix + zero-padded index + ".txt",
// overwriting any existing files. It returns the paths written, in index order.
// A write failure aborts the pass; files already written are left in place.
func (g *Generator) Generate(ctx context.Context, prefix string, count int) ([]string, error) {
	if count < 1 {
		return nil, errors.Join(batcherr.ErrConfiguration, fmt.Errorf("%w: got %d", ErrInvalidCount, count))
	}

	logger := ctxlog.Logger(ctx).With("stage", "generate")
	logger.Debug("generating parameter sets", "prefix", prefix, "count", count)

	paths := make([]string, 0, count)

	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		path := prefix + layout.FormatIndex(i) + ".txt"
		if err := afero.WriteFile(g.fs, path, g.Render(i, count), sixFourFour); err != nil {
			return paths, errors.Join(batcherr.ErrIO, ErrWriteParamFile, fmt.Errorf("%s: %w", path, err))
		}

		paths = append(paths, path)
	}

	logger.Info("parameter sets written", "count", count)

	return paths, nil
}

// matchDirective reports which directive, if any, line starts with after trimming whitespace.
func matchDirective(line string) (Directive, bool) {
	trimmed := strings.TrimSpace(line)

	for _, d := range Directives {
		if strings.HasPrefix(trimmed, string(d)) {
			return d, true
		}
	}

	return "", false
}
