// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSCommandRunSuccess(t *testing.T) {
	cmd := NewOSCommand("echo test", 4, "/bin/sh", "-c", `echo "hello $FOO"`)
	cmd.Env["FOO"] = "BAR"

	results := cmd.Run(context.Background())
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, 0, res.ExitCode)
	require.NoError(t, res.Error)
	assert.Equal(t, ResultStatusSuccess, res.Status)
	assert.Equal(t, 4, res.Index)
	assert.Equal(t, "hello BAR\n", string(res.StdOut))
	assert.False(t, res.Failed())
}

func TestOSCommandRunFailure(t *testing.T) {
	cmd := NewOSCommand("fail test", 1, "/bin/sh", "-c", "echo oops >&2; exit 3")

	res := cmd.Run(context.Background())[0]
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, ResultStatusError, res.Status)
	assert.Equal(t, "oops\n", string(res.StdErr))
	assert.True(t, res.Failed())
}

func TestOSCommandSuccessExitCodes(t *testing.T) {
	cmd := NewOSCommand("custom codes", 1, "/bin/sh", "-c", "exit 2")
	cmd.SuccessExitCodes = []int{0, 2}

	res := cmd.Run(context.Background())[0]
	assert.Equal(t, ResultStatusSuccess, res.Status)
	assert.Equal(t, 2, res.ExitCode)
}

func TestOSCommandNotFound(t *testing.T) {
	cmd := NewOSCommand("notfound", 1, "/not/a/real/command")

	res := cmd.Run(context.Background())[0]

	var pathErr *os.PathError

	require.ErrorAs(t, res.Error, &pathErr)
	require.ErrorIs(t, res.Error, ErrCouldNotStartProcess)
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, ResultStatusError, res.Status)
}

func TestOSCommandCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewOSCommand("never", 1, "/bin/sh", "-c", "exit 0").Run(ctx)[0]
	assert.Equal(t, ResultStatusSkipped, res.Status)
	require.ErrorIs(t, res.Error, context.Canceled)
}

func TestOSCommandKilledOnTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := NewOSCommand("sleeper", 1, "/bin/sleep", "10").Run(ctx)[0]

	assert.Less(t, time.Since(start), 5*time.Second)
	require.ErrorIs(t, res.Error, ErrProcessKilled)
	require.ErrorIs(t, res.Error, context.DeadlineExceeded)
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, ResultStatusError, res.Status)
}

func TestOSCommandLargeOutputDoesNotBlock(t *testing.T) {
	// Well over a pipe buffer on both streams.
	cmd := NewOSCommand("chatty", 1, "/bin/sh", "-c",
		"i=0; while [ $i -lt 20000 ]; do echo line-$i; echo err-$i >&2; i=$((i+1)); done")

	res := cmd.Run(context.Background())[0]
	require.NoError(t, res.Error)
	assert.Equal(t, 20000, strings.Count(string(res.StdOut), "\n"))
	assert.Equal(t, 20000, strings.Count(string(res.StdErr), "\n"))
}

func TestReadAllUpToMax(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		max     int64
		want    string
		wantErr error
	}{
		{name: "under limit", input: "abc", max: 10, want: "abc"},
		{name: "at limit", input: "abcd", max: 4, want: "abcd"},
		{name: "over limit", input: "abcdef", max: 4, want: "abcd", wantErr: ErrBufferOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readAllUpToMax(context.Background(), strings.NewReader(tt.input), tt.max)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.want, string(got))
		})
	}
}
