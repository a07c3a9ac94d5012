// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucl-sgnl/myriad-utils/internal/aggregate"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/paramgen"
)

const validYAML = `mission: m1
count: 10
template: /res/parameters_template.txt
simulator: /bin/srp_trr_classic
fields:
  model_type: "1"
  scheme: "1"
  spacing: "0.01"
  sr_option: "N"
  emissivity: "0.8"
backend:
  type: local
  parallelism: 4
aggregate:
  order: descending
`

const validHCL = `mission   = "m1"
count     = 10
template  = "/res/parameters_template.txt"
simulator = "${env.SIM_DIR}/srp_trr_classic"

fields {
  model_type = "1"
  scheme     = "1"
  spacing    = "0.01"
  sr_option  = "N"
  emissivity = "0.8"
}

backend {
  type       = "array"
  scheduler  = "slurm"
  directives = ["--time=01:00:00", "--mem=1G"]
}

monitor {
  poll_interval = "5s"
}
`

var testEnv = map[string]string{"HOME": "/home/u", "SIM_DIR": "/opt/sim"}

func TestLoadYAML(t *testing.T) {
	c, err := Load("myriad.yaml", []byte(validYAML), testEnv)
	require.NoError(t, err)

	assert.Equal(t, "m1", c.Mission)
	assert.Equal(t, 10, c.Count)
	assert.Equal(t, BackendLocal, c.Backend.Type)
	assert.Equal(t, 4, c.Backend.Parallelism)
	assert.Equal(t, aggregate.Descending, c.Order())
	assert.Equal(t, paramgen.Fields{ModelType: "1", Scheme: "1", Spacing: "0.01", SROption: "N", Emissivity: "0.8"}, c.Fields)

	// defaults
	assert.Equal(t, "Scratch", c.ScratchRoot)
	assert.Equal(t, "/home/u/m1/m1.txt", c.SpacecraftModel)
	assert.Equal(t, "m1", c.Backend.JobName)
	assert.Equal(t, 30*time.Second, c.PollInterval())
	assert.Equal(t, 72*time.Hour, c.MaxWait())
	assert.Equal(t, "pretty", c.Log.Format)
}

func TestLoadHCL(t *testing.T) {
	c, err := Load("myriad.hcl", []byte(validHCL), testEnv)
	require.NoError(t, err)

	assert.Equal(t, "/opt/sim/srp_trr_classic", c.Simulator)
	assert.Equal(t, BackendArray, c.Backend.Type)
	assert.Equal(t, "slurm", c.Backend.Scheduler)
	assert.Equal(t, []string{"--time=01:00:00", "--mem=1G"}, c.Backend.Directives)
	assert.Equal(t, 5*time.Second, c.PollInterval())
	assert.Equal(t, "0.8", c.Fields.Emissivity)
	assert.Equal(t, aggregate.Ascending, c.Order())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want error
	}{
		{name: "bad yaml", file: "c.yaml", data: "mission: [", want: ErrParseYAML},
		{name: "unknown yaml key", file: "c.yml", data: "misssion: m1\n", want: ErrParseYAML},
		{name: "bad hcl", file: "c.hcl", data: "mission = ", want: ErrParseHCL},
		{name: "unknown hcl attribute", file: "c.hcl", data: "colour = \"red\"\n", want: ErrParseHCL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.file, []byte(tt.data), testEnv)
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, batcherr.ErrConfiguration)
		})
	}
}

func TestValidateReportsEverything(t *testing.T) {
	c := &Config{
		Backend:   Backend{Type: BackendArray, Scheduler: "lsf"},
		Monitor:   Monitor{PollInterval: "soon", MaxWait: "-1h"},
		Aggregate: Aggregate{Order: "sideways"},
		Log:       Log{Format: "xml", Level: "loud"},
		Publish:   Publish{Endpoint: "minio:9000"},
	}

	err := c.Validate()
	require.ErrorIs(t, err, batcherr.ErrConfiguration)
	require.ErrorIs(t, err, ErrInvalid)
	require.ErrorIs(t, err, ErrMissingValue)
	require.ErrorIs(t, err, ErrBadValue)
	require.ErrorIs(t, err, paramgen.ErrMissingField)

	msg := err.Error()
	for _, want := range []string{
		"mission", "template", "simulator", "count must be at least 1",
		"backend.scheduler", "monitor.poll_interval", "monitor.max_wait",
		"aggregate.order", "log.format", "log.level", "publish.bucket",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Load("c.yaml", []byte(validYAML), map[string]string{
		"HOME":                 "/home/u",
		"MYRIAD_MISSION":       "m2",
		"MYRIAD_COUNT":         "3",
		"MYRIAD_BACKEND":       "perunit",
		"MYRIAD_SCHEDULER":     "pbs",
		"MYRIAD_ORDER":         "",
		"MYRIAD_POLL_INTERVAL": "1m",
	})
	require.NoError(t, err)

	assert.Equal(t, "m2", c.Mission)
	assert.Equal(t, 3, c.Count)
	assert.Equal(t, BackendPerUnit, c.Backend.Type)
	assert.Equal(t, "pbs", c.Backend.Scheduler)
	assert.Equal(t, aggregate.Descending, c.Order(), "empty variables are ignored")
	assert.Equal(t, time.Minute, c.PollInterval())
	assert.Equal(t, "/home/u/m2/m2.txt", c.SpacecraftModel)
}

func TestApplyEnvBadInteger(t *testing.T) {
	c := new(Config)
	err := c.ApplyEnv(map[string]string{"MYRIAD_COUNT": "many"})
	require.ErrorIs(t, err, ErrBadValue)
	require.ErrorIs(t, err, batcherr.ErrConfiguration)
	assert.Contains(t, err.Error(), "MYRIAD_COUNT")
}

func TestOverrideNames(t *testing.T) {
	names := OverrideNames()
	assert.Contains(t, names, "MYRIAD_MISSION")
	assert.Contains(t, names, "MYRIAD_PUBLISH_SECRET_KEY")
}

func TestLoadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/myriad.yaml", []byte(validYAML), 0o644))

	stubs := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	c, err := LoadFile("/cfg/myriad.yaml", testEnv)
	require.NoError(t, err)
	assert.Equal(t, "m1", c.Mission)

	_, err = LoadFile("/cfg/absent.yaml", testEnv)
	require.ErrorIs(t, err, ErrReadConfig)
	assert.True(t, batcherr.IsFatal(err))
}

func TestEnviron(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/.env", []byte("MYRIAD_TEST_DOTENV=fromfile\nMYRIAD_TEST_SHADOWED=fromfile\n"), 0o644))

	stubs := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	t.Setenv("MYRIAD_TEST_SHADOWED", "fromprocess")

	env, err := Environ("/work/.env")
	require.NoError(t, err)
	assert.Equal(t, "fromfile", env["MYRIAD_TEST_DOTENV"])
	assert.Equal(t, "fromprocess", env["MYRIAD_TEST_SHADOWED"])

	env, err = Environ("/work/missing.env")
	require.NoError(t, err)
	assert.NotContains(t, env, "MYRIAD_TEST_DOTENV")
}

func TestExampleIsValid(t *testing.T) {
	c := Example()
	c.ApplyDefaults(testEnv)
	require.NoError(t, c.Validate())

	var buf bytes.Buffer
	require.NoError(t, WriteExample(&buf))

	parsed, err := Load("example.yaml", buf.Bytes(), testEnv)
	require.NoError(t, err)
	assert.Equal(t, Example().Mission, parsed.Mission)
	assert.Equal(t, Example().Backend.Directives, parsed.Backend.Directives)
}

func TestSchema(t *testing.T) {
	s, err := Schema()
	require.NoError(t, err)

	var md bytes.Buffer
	require.NoError(t, s.WriteMarkdown(&md))
	assert.Contains(t, md.String(), "backend.scheduler")
	assert.Contains(t, md.String(), "fields.model_type")
}
