// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/paramgen"
	"github.com/zclconf/go-cty/cty"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MYRIAD_"

var (
	// ErrReadConfig is returned when the configuration file cannot be read.
	ErrReadConfig = errors.New("failed to read configuration file")
	// ErrParseYAML is returned for malformed YAML.
	ErrParseYAML = errors.New("failed to parse YAML configuration")
	// ErrParseHCL is returned for malformed HCL.
	ErrParseHCL = errors.New("failed to parse HCL configuration")
	// ErrDotEnv is returned when a .env file exists but cannot be parsed.
	ErrDotEnv = errors.New("failed to parse .env file")
)

// hclDocument mirrors Config for gohcl, which needs optional blocks to be pointers.
type hclDocument struct {
	Mission         string           `hcl:"mission,optional"`
	ScratchRoot     string           `hcl:"scratch_root,optional"`
	Home            string           `hcl:"home,optional"`
	Count           int              `hcl:"count,optional"`
	Template        string           `hcl:"template,optional"`
	SpacecraftModel string           `hcl:"spacecraft_model,optional"`
	Simulator       string           `hcl:"simulator,optional"`
	NPoints         int              `hcl:"n_points,optional"`
	Fields          *paramgen.Fields `hcl:"fields,block"`
	Backend         *Backend         `hcl:"backend,block"`
	Monitor         *Monitor         `hcl:"monitor,block"`
	Validate        *Validate        `hcl:"validate,block"`
	Aggregate       *Aggregate       `hcl:"aggregate,block"`
	Journal         *Journal         `hcl:"journal,block"`
	Metrics         *Metrics         `hcl:"metrics,block"`
	Publish         *Publish         `hcl:"publish,block"`
	Log             *Log             `hcl:"log,block"`
}

// Environ returns the process environment overlaid on the variables of the
// .env file at dotenvPath. A missing .env file is not an error.
func Environ(dotenvPath string) (map[string]string, error) {
	env := make(map[string]string)

	if dotenvPath != "" {
		b, err := afero.ReadFile(FsFactory(), dotenvPath)

		switch {
		case err == nil:
			parsed, perr := godotenv.Parse(bytes.NewReader(b))
			if perr != nil {
				return nil, errors.Join(batcherr.ErrConfiguration, ErrDotEnv, perr)
			}

			for k, v := range parsed {
				env[k] = v
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, errors.Join(batcherr.ErrConfiguration, ErrDotEnv, err)
		}
	}

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	return env, nil
}

// LoadFile reads the configuration at path from FsFactory and calls Load.
func LoadFile(path string, env map[string]string) (*Config, error) {
	b, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		return nil, errors.Join(batcherr.ErrConfiguration, ErrReadConfig, err)
	}

	return Load(path, b, env)
}

// Load parses data, applies environment overrides and defaults, then validates.
// The format follows the extension of name: ".hcl" is HCL, anything else YAML.
func Load(name string, data []byte, env map[string]string) (*Config, error) {
	c, err := Parse(name, data, env)
	if err != nil {
		return nil, err
	}

	if err := c.ApplyEnv(env); err != nil {
		return nil, err
	}

	c.ApplyDefaults(env)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Parse decodes data without overrides, defaults or validation.
func Parse(name string, data []byte, env map[string]string) (*Config, error) {
	if strings.EqualFold(filepath.Ext(name), ".hcl") {
		return parseHCL(name, data, env)
	}

	c := new(Config)
	if err := yaml.UnmarshalWithOptions(data, c, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.Join(batcherr.ErrConfiguration, ErrParseYAML, err)
	}

	return c, nil
}

func parseHCL(name string, data []byte, env map[string]string) (*Config, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, name)
	if diags.HasErrors() {
		return nil, errors.Join(batcherr.ErrConfiguration, ErrParseHCL, diags)
	}

	vars := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vars[k] = cty.StringVal(v)
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}

	var doc hclDocument
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &doc); diags.HasErrors() {
		return nil, errors.Join(batcherr.ErrConfiguration, ErrParseHCL, diags)
	}

	return doc.config(), nil
}

func (d *hclDocument) config() *Config {
	c := &Config{
		Mission:         d.Mission,
		ScratchRoot:     d.ScratchRoot,
		Home:            d.Home,
		Count:           d.Count,
		Template:        d.Template,
		SpacecraftModel: d.SpacecraftModel,
		Simulator:       d.Simulator,
		NPoints:         d.NPoints,
	}

	assign(&c.Fields, d.Fields)
	assign(&c.Backend, d.Backend)
	assign(&c.Monitor, d.Monitor)
	assign(&c.Validate, d.Validate)
	assign(&c.Aggregate, d.Aggregate)
	assign(&c.Journal, d.Journal)
	assign(&c.Metrics, d.Metrics)
	assign(&c.Publish, d.Publish)
	assign(&c.Log, d.Log)

	return c
}

func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// override binds one MYRIAD_* variable to a setting.
type override struct {
	name  string
	apply func(c *Config, v string) error
}

func str(field func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func integer(field func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err //nolint:wrapcheck
		}

		*field(c) = n

		return nil
	}
}

var overrides = []override{
	{"MISSION", str(func(c *Config) *string { return &c.Mission })},
	{"SCRATCH_ROOT", str(func(c *Config) *string { return &c.ScratchRoot })},
	{"HOME", str(func(c *Config) *string { return &c.Home })},
	{"COUNT", integer(func(c *Config) *int { return &c.Count })},
	{"TEMPLATE", str(func(c *Config) *string { return &c.Template })},
	{"SPACECRAFT_MODEL", str(func(c *Config) *string { return &c.SpacecraftModel })},
	{"SIMULATOR", str(func(c *Config) *string { return &c.Simulator })},
	{"N_POINTS", integer(func(c *Config) *int { return &c.NPoints })},
	{"BACKEND", str(func(c *Config) *string { return &c.Backend.Type })},
	{"SCHEDULER", str(func(c *Config) *string { return &c.Backend.Scheduler })},
	{"USER", str(func(c *Config) *string { return &c.Backend.User })},
	{"PARALLELISM", integer(func(c *Config) *int { return &c.Backend.Parallelism })},
	{"POLL_INTERVAL", str(func(c *Config) *string { return &c.Monitor.PollInterval })},
	{"MAX_WAIT", str(func(c *Config) *string { return &c.Monitor.MaxWait })},
	{"ORDER", str(func(c *Config) *string { return &c.Aggregate.Order })},
	{"JOURNAL", str(func(c *Config) *string { return &c.Journal.Path })},
	{"METRICS_TEXTFILE", str(func(c *Config) *string { return &c.Metrics.TextfilePath })},
	{"PUBLISH_ENDPOINT", str(func(c *Config) *string { return &c.Publish.Endpoint })},
	{"PUBLISH_BUCKET", str(func(c *Config) *string { return &c.Publish.Bucket })},
	{"PUBLISH_ACCESS_KEY", str(func(c *Config) *string { return &c.Publish.AccessKey })},
	{"PUBLISH_SECRET_KEY", str(func(c *Config) *string { return &c.Publish.SecretKey })},
}

// ApplyEnv overlays every set MYRIAD_* variable onto c.
func (c *Config) ApplyEnv(env map[string]string) error {
	var result error

	for _, o := range overrides {
		v, ok := env[EnvPrefix+o.name]
		if !ok || v == "" {
			continue
		}

		if err := o.apply(c, v); err != nil {
			result = errors.Join(result, fmt.Errorf("%w: %s%s=%q: %w", ErrBadValue, EnvPrefix, o.name, v, err))
		}
	}

	if result != nil {
		return errors.Join(batcherr.ErrConfiguration, result)
	}

	return nil
}

// OverrideNames lists the environment variables ApplyEnv reads.
func OverrideNames() []string {
	names := make([]string, len(overrides))
	for i, o := range overrides {
		names[i] = EnvPrefix + o.name
	}

	return names
}
