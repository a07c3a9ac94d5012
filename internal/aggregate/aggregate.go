// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package aggregate merges the per-job output artifacts of a mission into one
// dataset with a canonical header, ordered by the leading numeric field.
package aggregate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
	"github.com/ucl-sgnl/myriad-utils/internal/layout"
)

// Header is the first line of every combined dataset.
const Header = "Sun_lat,Sun_lon,acc_X,acc_Y,acc_Z,EPS_angle"

const sixFourFour = 0o644

var (
	// ErrUnknownOrder is returned by ParseOrder for anything but ascending or descending.
	ErrUnknownOrder = errors.New("unknown sort order")
	// ErrReadArtifact is logged when a present artifact cannot be read.
	ErrReadArtifact = errors.New("failed to read output artifact")
	// ErrWriteDataset is returned when the combined dataset cannot be written.
	ErrWriteDataset = errors.New("failed to write combined dataset")
)

// Order is the sort direction of the combined dataset.
type Order int

const (
	// Ascending sorts smallest leading field first. It is the zero value.
	Ascending Order = iota
	// Descending sorts largest leading field first.
	Descending
)

// String implements fmt.Stringer.
func (o Order) String() string {
	if o == Descending {
		return "descending"
	}

	return "ascending"
}

// ParseOrder parses "ascending"/"asc" or "descending"/"desc". Empty means Ascending.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ascending", "asc":
		return Ascending, nil
	case "descending", "desc":
		return Descending, nil
	}

	return Ascending, fmt.Errorf("%w: %q", ErrUnknownOrder, s)
}

// Options controls one aggregation.
type Options struct {
	Order Order
	// Destination defaults to combined_output.txt in the output directory.
	Destination string
}

// Result summarises an aggregation.
type Result struct {
	Path       string
	Files      int
	Skipped    []int
	Unreadable []int
	Lines      int
	Sorted     bool
}

// Collection is what Collect gathered from an output directory.
type Collection struct {
	// Lines are the data lines in index order, each terminated with "\n".
	Lines []string
	// Skipped are the indices of absent artifacts.
	Skipped []int
	// Unreadable are the indices of artifacts that exist but could not be read.
	Unreadable []int
}

// Collect reads artifacts 1..expected from outputDir in index order and returns
// their data lines with the header dropped. CRLF and lone CR line endings are
// read as LF. Absent and unreadable artifacts are recorded and skipped; only
// cancellation stops the pass.
func Collect(ctx context.Context, fs afero.Fs, outputDir string, expected int) (*Collection, error) {
	c := new(Collection)

	for i := 1; i <= expected; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err //nolint:wrapcheck
		}

		path := filepath.Join(outputDir, layout.OutputFileName(i))

		b, err := afero.ReadFile(fs, path)
		if err != nil {
			if exists, _ := afero.Exists(fs, path); !exists {
				ctxlog.Debug(ctx, "skipping missing artifact", "index", i, "path", path)
				c.Skipped = append(c.Skipped, i)

				continue
			}

			ctxlog.Warn(ctx, "skipping unreadable artifact", "index", i, "path", path,
				"error", errors.Join(ErrReadArtifact, err))
			c.Unreadable = append(c.Unreadable, i)

			continue
		}

		first := true

		for line := range strings.Lines(normaliseNewlines(string(b))) {
			if first {
				first = false
				continue
			}

			if !strings.HasSuffix(line, "\n") {
				line += "\n"
			}

			c.Lines = append(c.Lines, line)
		}
	}

	return c, nil
}

func normaliseNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// SortLines stable-sorts lines by their leading numeric field.
// If any leading field does not parse as a number, lines are left untouched
// and false is returned.
func SortLines(lines []string, order Order) bool {
	keys := make(map[string]float64, len(lines))

	for _, l := range lines {
		k, err := leadingField(l)
		if err != nil {
			return false
		}

		keys[l] = k
	}

	slices.SortStableFunc(lines, func(a, b string) int {
		c := cmpFloat(keys[a], keys[b])
		if order == Descending {
			return -c
		}

		return c
	})

	return true
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}

	return 0
}

func leadingField(line string) (float64, error) {
	f := strings.FieldsFunc(strings.TrimSpace(line), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(f) == 0 {
		return 0, strconv.ErrSyntax
	}

	return strconv.ParseFloat(f[0], 64) //nolint:wrapcheck
}

// Aggregate writes the combined dataset for artifacts 1..expected in outputDir.
func Aggregate(ctx context.Context, fs afero.Fs, outputDir string, expected int, opts Options) (*Result, error) {
	c, err := Collect(ctx, fs, outputDir, expected)
	if err != nil {
		return nil, err
	}

	lines := c.Lines

	sorted := SortLines(lines, opts.Order)
	if !sorted && len(lines) > 0 {
		ctxlog.Warn(ctx, "leading field is not numeric, keeping collection order")
	}

	dest := opts.Destination
	if dest == "" {
		dest = filepath.Join(outputDir, "combined_output.txt")
	}

	var buf bytes.Buffer

	buf.WriteString(Header + "\n")

	for _, l := range lines {
		buf.WriteString(l)
	}

	if err := afero.WriteFile(fs, dest, buf.Bytes(), sixFourFour); err != nil {
		return nil, errors.Join(batcherr.ErrIO, ErrWriteDataset, err)
	}

	res := &Result{
		Path:       dest,
		Files:      expected - len(c.Skipped) - len(c.Unreadable),
		Skipped:    c.Skipped,
		Unreadable: c.Unreadable,
		Lines:      len(lines),
		Sorted:     sorted,
	}

	ctxlog.Info(ctx, "combined dataset written",
		"path", dest, "files", res.Files, "skipped", len(c.Skipped), "unreadable", len(c.Unreadable),
		"lines", res.Lines, "order", opts.Order.String())

	return res, nil
}
