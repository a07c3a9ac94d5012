// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package validate

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/layout"
)

const outDir = "/scratch/m1/spiralPoints/outputFiles"

func writeArtifacts(t *testing.T, fs afero.Fs, files map[int]string) {
	t.Helper()

	for i, content := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(outDir, layout.OutputFileName(i)), []byte(content), 0o644))
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{name: "empty", in: "", want: 0},
		{name: "two terminated", in: "h\nd\n", want: 2},
		{name: "last unterminated", in: "h\nd", want: 2},
		{name: "crlf", in: "h\r\nd\r\n", want: 2},
		{name: "lone cr", in: "h\rd\r", want: 2},
		{name: "blank lines count", in: "\n\n\n", want: 3},
		{name: "one line", in: "header only", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountLines([]byte(tt.in)))
		})
	}
}

func TestValidateMissingIndex(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeArtifacts(t, fs, map[int]string{
		1: "h\n1,2\n",
		2: "h\n3,4\n",
		4: "h\n5,6",
	})

	r := Validate(context.Background(), fs, outDir, 4)

	assert.Equal(t, 4, r.Expected)
	assert.Equal(t, 3, r.Present)
	assert.Equal(t, []int{3}, r.Missing)
	assert.Equal(t, []string{"output00003.txt"}, r.MissingFiles)
	assert.Empty(t, r.Anomalies)
	assert.False(t, r.OK())
	assert.Equal(t, FailureMessage, r.Summary())
}

func TestValidateLineCountAnomalies(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeArtifacts(t, fs, map[int]string{
		1: "h\n",
		2: "h\n1\n2\n",
		3: "h\n1\n",
	})

	r := Validate(context.Background(), fs, outDir, 3)

	assert.Empty(t, r.Missing, "malformed files are not missing")
	assert.Equal(t, []Anomaly{
		{Index: 1, File: "output00001.txt", Lines: 1},
		{Index: 2, File: "output00002.txt", Lines: 3},
	}, r.Anomalies)
}

func TestValidateAllGood(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeArtifacts(t, fs, map[int]string{1: "h\n1\n", 2: "h\n2\n"})

	r := Validate(context.Background(), fs, outDir, 2)
	assert.True(t, r.OK())
	assert.Equal(t, SuccessMessage, r.Summary())
}

func TestValidateZeroExpected(t *testing.T) {
	r := Validate(context.Background(), afero.NewMemMapFs(), outDir, 0)
	assert.True(t, r.OK())
	assert.Zero(t, r.Expected)
}

func TestValidateDoesNotWrite(t *testing.T) {
	base := afero.NewMemMapFs()
	writeArtifacts(t, base, map[int]string{1: "h\n1\n"})

	r := Validate(context.Background(), afero.NewReadOnlyFs(base), outDir, 2)
	assert.Equal(t, []int{2}, r.Missing)
}

func TestReportText(t *testing.T) {
	r := &Report{
		Expected:     4,
		Present:      3,
		Missing:      []int{3},
		MissingFiles: []string{"output00003.txt"},
		Anomalies:    []Anomaly{{Index: 2, File: "output00002.txt", Lines: 3}},
	}

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))

	want := "Number of output files returned: 3\n" +
		"Missing files: ['output00003.txt']\n" +
		"Files with incorrect line count: [('output00002.txt', 3)]\n" +
		FailureMessage + "\n"
	assert.Equal(t, want, buf.String())

	ok := &Report{Expected: 2, Present: 2}
	buf.Reset()
	require.NoError(t, ok.WriteText(&buf))
	assert.Contains(t, buf.String(), "Missing files: []\n")
	assert.Contains(t, buf.String(), "Files with incorrect line count: []\n")
	assert.Contains(t, buf.String(), SuccessMessage)
}

func TestEmitDestinations(t *testing.T) {
	r := &Report{Expected: 1, Present: 1}

	var stdout bytes.Buffer

	fs := afero.NewMemMapFs()

	require.NoError(t, r.Emit(fs, "", &stdout))
	require.NoError(t, r.Emit(fs, "/home/m1/legion_check_log.txt", &bytes.Buffer{}))

	logged, err := afero.ReadFile(fs, "/home/m1/legion_check_log.txt")
	require.NoError(t, err)
	assert.Equal(t, stdout.String(), string(logged), "same content either way")
}

func TestEmitUnwritableLog(t *testing.T) {
	r := &Report{}
	err := r.Emit(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/x/log.txt", &bytes.Buffer{})
	require.ErrorIs(t, err, ErrWriteLog)
	require.ErrorIs(t, err, batcherr.ErrIO)
}
