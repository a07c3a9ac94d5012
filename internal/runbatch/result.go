// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"io"
	"slices"
	"time"
)

// ErrResultChildrenHasError is set on a batch result when any child failed.
var ErrResultChildrenHasError = errors.New("result has children with errors")

// ResultStatus is the outcome class of a Result.
type ResultStatus int

const (
	// ResultStatusUnknown means the command has not produced an outcome.
	ResultStatusUnknown ResultStatus = iota
	// ResultStatusSuccess means the command exited with a success code.
	ResultStatusSuccess
	// ResultStatusError means the command failed, could not start, or was killed.
	ResultStatusError
	// ResultStatusSkipped means the command never started because the batch was cancelled.
	ResultStatusSkipped
)

// String implements fmt.Stringer.
func (s ResultStatus) String() string {
	switch s {
	case ResultStatusSuccess:
		return "success"
	case ResultStatusError:
		return "error"
	case ResultStatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result represents the outcome of running a command or batch.
type Result struct {
	Label    string        // Label of the command or batch
	Index    int           // Work unit index, 0 for batches
	ExitCode int           // Exit code of the command, -1 if it did not exit normally
	Error    error         // Error, if any
	Status   ResultStatus  // Outcome class
	StdOut   []byte        // Output from the command
	StdErr   []byte        // Error output from the command
	Duration time.Duration // Wall time from start to exit
	Children Results       // Nested results of a batch
}

// Failed reports whether the result is not a success.
func (r *Result) Failed() bool {
	return r.Status != ResultStatusSuccess || r.Error != nil || r.ExitCode != 0
}

// Results is a slice of Result pointers, used to represent multiple results.
type Results []*Result

// HasError reports whether any result, or any nested child, failed.
func (r Results) HasError() bool {
	for v := range slices.Values(r) {
		if len(v.Children) > 0 {
			if v.Children.HasError() {
				return true
			}

			continue
		}

		if v.Failed() {
			return true
		}
	}

	return false
}

// Leaves flattens nested results, returning only those without children, in order.
func (r Results) Leaves() Results {
	var out Results

	for _, v := range r {
		if len(v.Children) > 0 {
			out = append(out, v.Children.Leaves()...)
			continue
		}

		out = append(out, v)
	}

	return out
}

// FailedIndices returns the sorted work unit indices of failed leaf results.
func (r Results) FailedIndices() []int {
	var idx []int

	for _, v := range r.Leaves() {
		if v.Failed() {
			idx = append(idx, v.Index)
		}
	}

	slices.Sort(idx)

	return idx
}

// Write outputs the results to the specified writer with default options.
func (r Results) Write(w io.Writer) error {
	return WriteResults(w, r, nil)
}

// WriteWithOptions outputs the results to the specified writer with the specified options.
func (r Results) WriteWithOptions(w io.Writer, options *OutputOptions) error {
	return WriteResults(w, r, options)
}
