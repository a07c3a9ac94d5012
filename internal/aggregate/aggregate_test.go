// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package aggregate

import (
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

func seed(t *testing.T, fs afero.Fs, files map[int]string) {
	t.Helper()

	for i, content := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(outDir, layout.OutputFileName(i)), []byte(content), 0o644))
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    Order
		wantErr bool
	}{
		{in: "", want: Ascending},
		{in: "ascending", want: Ascending},
		{in: "ASC", want: Ascending},
		{in: "descending", want: Descending},
		{in: " desc ", want: Descending},
		{in: "sideways", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrder(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownOrder)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortLines(t *testing.T) {
	t.Run("ascending", func(t *testing.T) {
		lines := []string{"10.5,a\n", "-3,b\n", "2 c\n"}
		assert.True(t, SortLines(lines, Ascending))
		assert.Equal(t, []string{"-3,b\n", "2 c\n", "10.5,a\n"}, lines)
	})

	t.Run("descending", func(t *testing.T) {
		lines := []string{"1,a\n", "3,b\n", "2,c\n"}
		assert.True(t, SortLines(lines, Descending))
		assert.Equal(t, []string{"3,b\n", "2,c\n", "1,a\n"}, lines)
	})

	t.Run("stable on ties", func(t *testing.T) {
		lines := []string{"1,first\n", "0,x\n", "1,second\n"}
		assert.True(t, SortLines(lines, Ascending))
		assert.Equal(t, []string{"0,x\n", "1,first\n", "1,second\n"}, lines)
	})

	t.Run("non numeric keeps order", func(t *testing.T) {
		lines := []string{"3,a\n", "oops,b\n", "1,c\n"}
		assert.False(t, SortLines(lines, Ascending))
		assert.Equal(t, []string{"3,a\n", "oops,b\n", "1,c\n"}, lines)
	})
}

func TestAggregate(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs, map[int]string{
		1: "hdr\n30.0,1,2,3,4,5\n",
		2: "hdr\n-10.0,1,2,3,4,5",
		4: "hdr\n0.0,1,2,3,4,5\n",
	})

	res, err := Aggregate(context.Background(), fs, outDir, 4, Options{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "combined_output.txt"), res.Path)
	assert.Equal(t, 3, res.Files)
	assert.Equal(t, []int{3}, res.Skipped)
	assert.Equal(t, 3, res.Lines)
	assert.True(t, res.Sorted)

	got, err := afero.ReadFile(fs, res.Path)
	require.NoError(t, err)
	assert.Equal(t, Header+"\n"+
		"-10.0,1,2,3,4,5\n"+
		"0.0,1,2,3,4,5\n"+
		"30.0,1,2,3,4,5\n", string(got))
}

func TestAggregateOverwritesAndDescends(t *testing.T) {
	fs := afero.NewMemMapFs()
	dest := "/out/combined.txt"
	seed(t, fs, map[int]string{1: "h\n1,a\n", 2: "h\n2,b\n"})
	require.NoError(t, afero.WriteFile(fs, dest, []byte("stale content\n"), 0o644))

	_, err := Aggregate(context.Background(), fs, outDir, 2, Options{Order: Descending, Destination: dest})
	require.NoError(t, err)

	got, err := afero.ReadFile(fs, dest)
	require.NoError(t, err)
	assert.Equal(t, Header+"\n2,b\n1,a\n", string(got))
}

func TestAggregateEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(outDir, 0o755))

	res, err := Aggregate(context.Background(), fs, outDir, 2, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, res.Skipped)
	assert.Zero(t, res.Lines)

	got, err := afero.ReadFile(fs, res.Path)
	require.NoError(t, err)
	assert.Equal(t, Header+"\n", string(got))
}

func TestAggregateWriteFailure(t *testing.T) {
	base := afero.NewMemMapFs()
	seed(t, base, map[int]string{1: "h\n1\n"})

	_, err := Aggregate(context.Background(), afero.NewReadOnlyFs(base), outDir, 1, Options{})
	require.ErrorIs(t, err, ErrWriteDataset)
	assert.True(t, batcherr.IsFatal(err))
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, afero.NewMemMapFs(), outDir, 3)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAggregateSkipsUnreadableArtifact(t *testing.T) {
	dir := t.TempDir()
	fs := afero.NewOsFs()

	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, layout.OutputFileName(1)), []byte("h\n3,a\n"), 0o644))
	require.NoError(t, fs.Mkdir(filepath.Join(dir, layout.OutputFileName(2)), 0o755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, layout.OutputFileName(3)), []byte("h\n1,c\n"), 0o644))

	res, err := Aggregate(context.Background(), fs, dir, 3, Options{})
	require.NoError(t, err)

	assert.Equal(t, []int{2}, res.Unreadable)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, 2, res.Files)

	got, err := afero.ReadFile(fs, res.Path)
	require.NoError(t, err)
	assert.Equal(t, Header+"\n1,c\n3,a\n", string(got))
}

func TestAggregateLineEndings(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "lone CR", content: "h\r2,0,0\r"},
		{name: "CRLF", content: "h\r\n2,0,0\r\n"},
		{name: "mixed", content: "h\r\n2,0,0\r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			seed(t, fs, map[int]string{1: tt.content, 2: "h\n1,0,0\n"})

			res, err := Aggregate(context.Background(), fs, outDir, 2, Options{})
			require.NoError(t, err)
			assert.Equal(t, 2, res.Lines)

			got, err := afero.ReadFile(fs, res.Path)
			require.NoError(t, err)
			assert.Equal(t, Header+"\n1,0,0\n2,0,0\n", string(got))
		})
	}
}
