// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config holds the run configuration of a mission: one record,
// loaded from YAML or HCL, overlaid with MYRIAD_* environment variables,
// defaulted and validated before any stage runs.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/ucl-sgnl/myriad-utils/internal/aggregate"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
	"github.com/ucl-sgnl/myriad-utils/internal/layout"
	"github.com/ucl-sgnl/myriad-utils/internal/monitor"
	"github.com/ucl-sgnl/myriad-utils/internal/paramgen"
	"github.com/ucl-sgnl/myriad-utils/internal/scheduler"
)

// Backend names understood by the default registry.
const (
	BackendArray   = "array"
	BackendPerUnit = "perunit"
	BackendLocal   = "local"
)

const defaultScratchRoot = "Scratch"

// FsFactory returns the filesystem configuration files are read from.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

var (
	// ErrInvalid is returned when a loaded configuration fails validation.
	ErrInvalid = errors.New("invalid configuration")
	// ErrMissingValue is joined with the name of each required but empty setting.
	ErrMissingValue = errors.New("missing required value")
	// ErrBadValue is joined with the name of each setting that does not parse.
	ErrBadValue = errors.New("bad value")
)

// Config is the complete configuration of one mission run.
type Config struct {
	Mission         string          `yaml:"mission" hcl:"mission,optional" docdesc:"Mission identifier; names the scratch and home sub-directories"`
	ScratchRoot     string          `yaml:"scratch_root,omitempty" hcl:"scratch_root,optional" docdesc:"Root directory holding per-mission work directories" docdefault:"Scratch"`
	Home            string          `yaml:"home,omitempty" hcl:"home,optional" docdesc:"Directory holding <mission>/<mission>.txt" docdefault:"$HOME"`
	Count           int             `yaml:"count" hcl:"count,optional" docdesc:"Number of jobs (spiral points) to run"`
	Template        string          `yaml:"template" hcl:"template,optional" docdesc:"Path to the parameter template"`
	SpacecraftModel string          `yaml:"spacecraft_model,omitempty" hcl:"spacecraft_model,optional" docdesc:"Path to the spacecraft model file" docdefault:"<home>/<mission>/<mission>.txt"`
	Simulator       string          `yaml:"simulator" hcl:"simulator,optional" docdesc:"Path to the simulator executable"`
	NPoints         int             `yaml:"n_points,omitempty" hcl:"n_points,optional" docdesc:"Fixed n_points value for every job; 0 uses count"`
	Fields          paramgen.Fields `yaml:"fields" docdesc:"Run-wide simulator parameters"`
	Backend         Backend         `yaml:"backend,omitempty" docdesc:"Execution backend"`
	Monitor         Monitor         `yaml:"monitor,omitempty" docdesc:"Completion polling"`
	Validate        Validate        `yaml:"validate,omitempty" docdesc:"Output validation"`
	Aggregate       Aggregate       `yaml:"aggregate,omitempty" docdesc:"Result aggregation"`
	Journal         Journal         `yaml:"journal,omitempty" docdesc:"Run journal"`
	Metrics         Metrics         `yaml:"metrics,omitempty" docdesc:"Prometheus textfile metrics"`
	Publish         Publish         `yaml:"publish,omitempty" docdesc:"Upload of the combined dataset"`
	Log             Log             `yaml:"log,omitempty" docdesc:"Logging"`
}

// Backend selects and tunes the dispatcher.
type Backend struct {
	Type        string   `yaml:"type,omitempty" hcl:"type,optional" docdesc:"Backend name: array, perunit or local" docdefault:"array"`
	Scheduler   string   `yaml:"scheduler,omitempty" hcl:"scheduler,optional" docdesc:"Scheduler dialect: sge, pbs or slurm" docdefault:"sge"`
	User        string   `yaml:"user,omitempty" hcl:"user,optional" docdesc:"User whose jobs are polled" docdefault:"current user"`
	JobName     string   `yaml:"job_name,omitempty" hcl:"job_name,optional" docdesc:"Scheduler job name" docdefault:"<mission>"`
	Directives  []string `yaml:"directives,omitempty" hcl:"directives,optional" docdesc:"Extra scheduler directives written to the job script header"`
	Parallelism int      `yaml:"parallelism,omitempty" hcl:"parallelism,optional" docdesc:"Concurrent simulator processes for the local backend" docdefault:"number of CPUs"`
}

// Monitor tunes the completion monitor.
type Monitor struct {
	PollInterval string `yaml:"poll_interval,omitempty" hcl:"poll_interval,optional" docdesc:"Delay between scheduler queries" docdefault:"30s"`
	MaxWait      string `yaml:"max_wait,omitempty" hcl:"max_wait,optional" docdesc:"Give up waiting after this long" docdefault:"72h"`
}

// Validate configures where the validation report goes.
type Validate struct {
	LogFile string `yaml:"log_file,omitempty" hcl:"log_file,optional" docdesc:"Write the report here instead of stdout"`
}

// Aggregate configures the combined dataset.
type Aggregate struct {
	Order  string `yaml:"order,omitempty" hcl:"order,optional" docdesc:"Sort direction: ascending or descending" docdefault:"ascending"`
	Output string `yaml:"output,omitempty" hcl:"output,optional" docdesc:"Combined dataset path" docdefault:"<output dir>/combined_output.txt"`
}

// Journal configures the SQLite run journal. An empty path disables it.
type Journal struct {
	Path string `yaml:"path,omitempty" hcl:"path,optional" docdesc:"SQLite database file"`
}

// Metrics configures the Prometheus textfile. An empty path disables it.
type Metrics struct {
	TextfilePath string `yaml:"textfile_path,omitempty" hcl:"textfile_path,optional" docdesc:"Prometheus text-format output file"`
}

// Publish configures the object store upload. An empty endpoint disables it.
type Publish struct {
	Endpoint  string `yaml:"endpoint,omitempty" hcl:"endpoint,optional" docdesc:"S3-compatible endpoint, host:port"`
	Bucket    string `yaml:"bucket,omitempty" hcl:"bucket,optional" docdesc:"Destination bucket"`
	Prefix    string `yaml:"prefix,omitempty" hcl:"prefix,optional" docdesc:"Object key prefix"`
	AccessKey string `yaml:"access_key,omitempty" hcl:"access_key,optional" docdesc:"Access key; prefer MYRIAD_PUBLISH_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key,omitempty" hcl:"secret_key,optional" docdesc:"Secret key; prefer MYRIAD_PUBLISH_SECRET_KEY"`
	UseSSL    bool   `yaml:"use_ssl,omitempty" hcl:"use_ssl,optional" docdesc:"Connect over TLS"`
}

// Log configures logging.
type Log struct {
	Format string `yaml:"format,omitempty" hcl:"format,optional" docdesc:"pretty or json" docdefault:"pretty"`
	Level  string `yaml:"level,omitempty" hcl:"level,optional" docdesc:"debug, info, warn or error"`
}

// Enabled reports whether publishing is configured.
func (p Publish) Enabled() bool {
	return p.Endpoint != ""
}

// ApplyDefaults fills every unset optional value.
func (c *Config) ApplyDefaults(env map[string]string) {
	if c.ScratchRoot == "" {
		c.ScratchRoot = defaultScratchRoot
	}

	if c.Home == "" {
		c.Home = env["HOME"]
	}

	if c.SpacecraftModel == "" && c.Mission != "" {
		c.SpacecraftModel = filepath.Join(c.Home, c.Mission, c.Mission+".txt")
	}

	if c.Backend.Type == "" {
		c.Backend.Type = BackendArray
	}

	if c.Backend.Scheduler == "" {
		c.Backend.Scheduler = string(scheduler.SGE)
	}

	if c.Backend.JobName == "" {
		c.Backend.JobName = c.Mission
	}

	if c.Monitor.PollInterval == "" {
		c.Monitor.PollInterval = monitor.DefaultInterval.String()
	}

	if c.Monitor.MaxWait == "" {
		c.Monitor.MaxWait = monitor.DefaultMaxWait.String()
	}

	if c.Aggregate.Order == "" {
		c.Aggregate.Order = aggregate.Ascending.String()
	}

	if c.Log.Format == "" {
		c.Log.Format = ctxlog.FormatPretty
	}
}

// Validate reports every problem at once, joined with batcherr.ErrConfiguration.
func (c *Config) Validate() error {
	var result error

	missing := func(name, v string) {
		if v == "" {
			result = multierror.Append(result, fmt.Errorf("%w: %s", ErrMissingValue, name))
		}
	}

	missing("mission", c.Mission)
	missing("template", c.Template)
	missing("simulator", c.Simulator)

	if c.Count < 1 {
		result = multierror.Append(result, fmt.Errorf("%w: count must be at least 1, got %d", ErrBadValue, c.Count))
	}

	if c.NPoints < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: n_points must not be negative", ErrBadValue))
	}

	if err := c.Fields.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	switch c.Backend.Type {
	case BackendArray, BackendPerUnit:
		if _, err := scheduler.ParseDialect(c.Backend.Scheduler); err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: backend.scheduler: %w", ErrBadValue, err))
		}
	case BackendLocal:
		if c.Backend.Parallelism < 0 {
			result = multierror.Append(result, fmt.Errorf("%w: backend.parallelism must not be negative", ErrBadValue))
		}
	}

	for name, v := range map[string]string{
		"monitor.poll_interval": c.Monitor.PollInterval,
		"monitor.max_wait":      c.Monitor.MaxWait,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			result = multierror.Append(result, fmt.Errorf("%w: %s: %q is not a positive duration", ErrBadValue, name, v))
		}
	}

	if _, err := aggregate.ParseOrder(c.Aggregate.Order); err != nil {
		result = multierror.Append(result, fmt.Errorf("%w: aggregate.order: %w", ErrBadValue, err))
	}

	if f := strings.ToLower(c.Log.Format); f != ctxlog.FormatPretty && f != ctxlog.FormatJSON {
		result = multierror.Append(result, fmt.Errorf("%w: log.format: %q", ErrBadValue, c.Log.Format))
	}

	if c.Log.Level != "" {
		if _, ok := ctxlog.ParseLevel(c.Log.Level); !ok {
			result = multierror.Append(result, fmt.Errorf("%w: log.level: %q", ErrBadValue, c.Log.Level))
		}
	}

	if c.Publish.Enabled() {
		missing("publish.bucket", c.Publish.Bucket)
	}

	if result != nil {
		return errors.Join(batcherr.ErrConfiguration, ErrInvalid, result)
	}

	return nil
}

// Layout returns the mission's directory layout.
func (c *Config) Layout() (layout.Layout, error) {
	return layout.New(c.ScratchRoot, c.Mission) //nolint:wrapcheck
}

// PollInterval returns the parsed poll interval, or the monitor default.
func (c *Config) PollInterval() time.Duration {
	return parseDuration(c.Monitor.PollInterval, monitor.DefaultInterval)
}

// MaxWait returns the parsed maximum wait, or the monitor default.
func (c *Config) MaxWait() time.Duration {
	return parseDuration(c.Monitor.MaxWait, monitor.DefaultMaxWait)
}

// Order returns the parsed aggregation order.
func (c *Config) Order() aggregate.Order {
	o, _ := aggregate.ParseOrder(c.Aggregate.Order)
	return o
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}

	return d
}
