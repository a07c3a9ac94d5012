// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResultsSuccessDetails(t *testing.T) {
	results := Results{{
		Label:  "unit 1",
		Status: ResultStatusSuccess,
		StdOut: []byte("success output"),
	}}

	var buf bytes.Buffer

	require.NoError(t, WriteResults(&buf, results, &OutputOptions{
		IncludeStdOut:      true,
		ShowSuccessDetails: true,
	}))

	out := buf.String()
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "unit 1")
	assert.Contains(t, out, "     success output\n")
}

func TestWriteResultsFailure(t *testing.T) {
	results := Results{{
		Label:    "unit 2",
		ExitCode: 1,
		Status:   ResultStatusError,
		Error:    errors.New("command failed"),
		StdErr:   []byte("segfault\n"),
	}}

	var buf bytes.Buffer

	require.NoError(t, results.Write(&buf))

	out := buf.String()
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "unit 2 (exit code: 1)")
	assert.Contains(t, out, "command failed")
	assert.Contains(t, out, "     segfault\n")
}

func TestWriteResultsHidesSuccessfulChildren(t *testing.T) {
	results := Results{{
		Label:  "pool",
		Status: ResultStatusError,
		Error:  ErrResultChildrenHasError,
		Children: Results{
			{Label: "unit 1", Index: 1, Status: ResultStatusSuccess},
			{Label: "unit 2", Index: 2, Status: ResultStatusError, ExitCode: 9},
		},
	}}

	var buf bytes.Buffer

	require.NoError(t, results.WriteWithOptions(&buf, DefaultOutputOptions()))

	out := buf.String()
	assert.Contains(t, out, "pool")
	assert.NotContains(t, out, "unit 1")
	assert.Contains(t, out, "  ")
	assert.Contains(t, out, "unit 2 (exit code: 9)")
	assert.NotContains(t, out, ErrResultChildrenHasError.Error())
}

func TestFormatOutput(t *testing.T) {
	assert.Equal(t, "  a\n\n  b\n", formatOutput([]byte("a\n\nb\n"), "  "))
}

func TestResultStatusString(t *testing.T) {
	tests := map[ResultStatus]string{
		ResultStatusUnknown: "unknown",
		ResultStatusSuccess: "success",
		ResultStatusError:   "error",
		ResultStatusSkipped: "skipped",
	}

	for status, want := range tests {
		assert.Equal(t, want, status.String())
	}
}

func TestResultsLeaves(t *testing.T) {
	results := Results{
		{Label: "a", Index: 3, Status: ResultStatusError},
		{Label: "batch", Children: Results{
			{Label: "b", Index: 1, Status: ResultStatusSuccess},
			{Label: "c", Index: 2, Status: ResultStatusSkipped},
		}},
	}

	assert.Len(t, results.Leaves(), 3)
	assert.Equal(t, []int{2, 3}, results.FailedIndices())
	assert.True(t, results.HasError())
}
