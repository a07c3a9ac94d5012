// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package validate checks the output directory of a mission run for missing
// and malformed artifacts. It only reads; problems are reported, never returned
// as errors, so aggregation can still salvage whatever is present.
package validate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
	"github.com/ucl-sgnl/myriad-utils/internal/layout"
)

// ExpectedLines is the line count of a well-formed artifact: header and one data line.
const ExpectedLines = 2

const (
	// SuccessMessage is the summary line when nothing is missing or malformed.
	SuccessMessage = "All checks passed successfully. No missing files, no repeated spiral points, and no error entries found."
	// FailureMessage is the summary line otherwise.
	FailureMessage = "There is a problem with one or more output files."

	sixFourFour = 0o644
)

// ErrWriteLog is returned when the report cannot be written to its log file.
var ErrWriteLog = errors.New("failed to write validation log")

// Anomaly is a present artifact with the wrong number of lines.
// Lines is -1 when the file exists but could not be read.
type Anomaly struct {
	Index int
	File  string
	Lines int
}

// Report is the outcome of one validation pass.
type Report struct {
	Expected     int
	Present      int
	Missing      []int
	MissingFiles []string
	Anomalies    []Anomaly
}

// OK reports whether nothing is missing or malformed.
func (r *Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Anomalies) == 0
}

// Summary returns the success or failure line.
func (r *Report) Summary() string {
	if r.OK() {
		return SuccessMessage
	}

	return FailureMessage
}

// Validate scans outputDir for the artifacts of indices 1..expected.
func Validate(ctx context.Context, fs afero.Fs, outputDir string, expected int) *Report {
	r := &Report{Expected: max(expected, 0)}

	for i := 1; i <= expected; i++ {
		name := layout.OutputFileName(i)
		path := filepath.Join(outputDir, name)

		exists, err := afero.Exists(fs, path)
		if err != nil {
			ctxlog.Warn(ctx, "cannot stat artifact", "path", path, "error", err)
		}

		if !exists {
			r.Missing = append(r.Missing, i)
			r.MissingFiles = append(r.MissingFiles, name)

			continue
		}

		r.Present++

		b, err := afero.ReadFile(fs, path)
		if err != nil {
			ctxlog.Warn(ctx, "cannot read artifact", "path", path, "error", err)
			r.Anomalies = append(r.Anomalies, Anomaly{Index: i, File: name, Lines: -1})

			continue
		}

		if n := CountLines(b); n != ExpectedLines {
			r.Anomalies = append(r.Anomalies, Anomaly{Index: i, File: name, Lines: n})
		}
	}

	ctxlog.Debug(ctx, "validation complete",
		"expected", r.Expected,
		"present", r.Present,
		"missing", len(r.Missing),
		"anomalies", len(r.Anomalies),
	)

	return r
}

// CountLines counts lines the way a text-mode line reader does: "\n", "\r\n"
// and "\r" each end a line, and trailing text without a terminator is a line too.
func CountLines(b []byte) int {
	n := 0

	for i := 0; i < len(b); i++ {
		switch b[i] {
		case '\n':
			n++
		case '\r':
			n++

			if i+1 < len(b) && b[i+1] == '\n' {
				i++
			}
		}
	}

	if len(b) > 0 && b[len(b)-1] != '\n' && b[len(b)-1] != '\r' {
		n++
	}

	return n
}

// Lines returns the report body: returned count, missing files, anomalies and the summary.
func (r *Report) Lines() []string {
	return []string{
		fmt.Sprintf("Number of output files returned: %d", r.Expected-len(r.Missing)),
		"Missing files: " + listRepr(r.MissingFiles),
		"Files with incorrect line count: " + anomalyRepr(r.Anomalies),
		r.Summary(),
	}
}

// WriteText writes the report, one line each, to w.
func (r *Report) WriteText(w io.Writer) error {
	_, err := io.WriteString(w, strings.Join(r.Lines(), "\n")+"\n")
	return err //nolint:wrapcheck
}

// Emit writes the report to logFile when set, otherwise to stdout.
// The content is the same either way.
func (r *Report) Emit(fs afero.Fs, logFile string, stdout io.Writer) error {
	if logFile == "" {
		return r.WriteText(stdout)
	}

	var sb strings.Builder
	_ = r.WriteText(&sb)

	if dir := filepath.Dir(logFile); dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Join(batcherr.ErrIO, ErrWriteLog, err)
		}
	}

	if err := afero.WriteFile(fs, logFile, []byte(sb.String()), sixFourFour); err != nil {
		return errors.Join(batcherr.ErrIO, ErrWriteLog, err)
	}

	return nil
}

func listRepr(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}

	return "[" + strings.Join(quoted, ", ") + "]"
}

func anomalyRepr(as []Anomaly) string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = fmt.Sprintf("('%s', %d)", a.File, a.Lines)
	}

	return "[" + strings.Join(parts, ", ") + "]"
}
