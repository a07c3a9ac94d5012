// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package cmdutil

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucl-sgnl/myriad-utils/internal/backendregistry"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/config"
	"github.com/urfave/cli/v3"
)

func TestGetURL(t *testing.T) {
	testCases := []struct {
		name      string
		url       string
		wantErr   error
		wantBytes []byte
		wantName  string
	}{
		{
			name:    "empty url returns error",
			url:     "",
			wantErr: ErrGetConfigFile,
		},
		{
			name:    "unreachable remote fails",
			url:     "git::http://notexist//file.yaml",
			wantErr: ErrGetConfigFile,
		},
		{
			name:      "local file",
			url:       "./testdata/test.txt",
			wantBytes: []byte("this is a test file\n"),
			wantName:  "test.txt",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, name, err := GetURL(context.Background(), tc.url)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, b)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantBytes, b)
			assert.Equal(t, tc.wantName, name)
		})
	}
}

func TestSplitFileNameFromGetterURL(t *testing.T) {
	tests := []struct {
		url      string
		wantURL  string
		wantFile string
	}{
		{
			url:      "git::https://github.com/org/repo//configs/myriad.yaml?ref=v1",
			wantURL:  "git::https://github.com/org/repo//configs?ref=v1",
			wantFile: "myriad.yaml",
		},
		{
			url:      "git::https://github.com/org/repo//myriad.hcl",
			wantURL:  "git::https://github.com/org/repo",
			wantFile: "myriad.hcl",
		},
		{url: "https://example.com/myriad.yaml"},
		{url: "git::https://github.com/org/repo//"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			u, f := splitFileNameFromGetterURL(tt.url)
			assert.Equal(t, tt.wantURL, u)
			assert.Equal(t, tt.wantFile, f)
		})
	}
}

// runWith runs a throwaway command carrying the config flags and returns what action saw.
func runWith(t *testing.T, args []string, action func(ctx context.Context, cmd *cli.Command) error) error {
	t.Helper()

	cmd := &cli.Command{
		Name:      "test",
		Flags:     append(ConfigFlags(), LogFlags()...),
		Writer:    new(bytes.Buffer),
		ErrWriter: new(bytes.Buffer),
		Action:    action,
	}

	return cmd.Run(context.Background(), append([]string{"test"}, args...))
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	t.Setenv("MYRIAD_COUNT", "7")

	var cfg *config.Config

	err := runWith(t, []string{"-f", "./testdata/myriad.yaml", "--env-file", "", "--mission", "m9", "--backend", "array"},
		func(ctx context.Context, cmd *cli.Command) error {
			var err error
			cfg, err = LoadConfig(ctx, cmd)

			return err
		})
	require.NoError(t, err)

	assert.Equal(t, "m9", cfg.Mission, "flag beats file")
	assert.Equal(t, 7, cfg.Count, "environment beats file")
	assert.Equal(t, config.BackendArray, cfg.Backend.Type)
	assert.Equal(t, "m9", cfg.Backend.JobName, "defaults follow overrides")
}

func TestLoadConfigRequiresFile(t *testing.T) {
	t.Setenv("MYRIAD_CONFIG", "")

	err := runWith(t, nil, func(ctx context.Context, cmd *cli.Command) error {
		_, err := LoadConfig(ctx, cmd)
		return err
	})
	require.ErrorIs(t, err, ErrNoConfigFile)
}

func TestLoadConfigInvalid(t *testing.T) {
	err := runWith(t, []string{"-f", "./testdata/myriad.yaml", "--env-file", "", "--count", "0"},
		func(ctx context.Context, cmd *cli.Command) error {
			_, err := LoadConfig(ctx, cmd)
			return err
		})
	require.ErrorIs(t, err, batcherr.ErrConfiguration)
}

func TestConfigureLogging(t *testing.T) {
	err := runWith(t, []string{"--log-format", "xml"}, func(ctx context.Context, cmd *cli.Command) error {
		_, err := ConfigureLogging(ctx, cmd)
		return err
	})
	require.Error(t, err)

	err = runWith(t, []string{"--log-level", "loud"}, func(ctx context.Context, cmd *cli.Command) error {
		_, err := ConfigureLogging(ctx, cmd)
		return err
	})
	require.ErrorIs(t, err, ErrInvalidLogLevel)
}

func TestRegistry(t *testing.T) {
	_, err := Registry(context.Background())
	require.ErrorIs(t, err, ErrNoRegistry)

	ctx := context.WithValue(context.Background(), backendregistry.FactoryContextKey{}, backendregistry.New())
	r, err := Registry(ctx)
	require.NoError(t, err)
	assert.NotNil(t, r)
}
