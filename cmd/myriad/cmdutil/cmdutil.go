// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmdutil holds what every myriad subcommand shares: the common
// flags, configuration loading and the wiring of a pipeline with its sinks.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ucl-sgnl/myriad-utils/internal/backendregistry"
	"github.com/ucl-sgnl/myriad-utils/internal/config"
	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
	"github.com/ucl-sgnl/myriad-utils/internal/journal"
	"github.com/ucl-sgnl/myriad-utils/internal/metrics"
	"github.com/ucl-sgnl/myriad-utils/internal/pipeline"
	"github.com/ucl-sgnl/myriad-utils/internal/progress"
	"github.com/ucl-sgnl/myriad-utils/internal/publish"
	"github.com/urfave/cli/v3"
)

// Flag names shared by the subcommands.
const (
	FileFlag      = "file"
	EnvFileFlag   = "env-file"
	LogFormatFlag = "log-format"
	LogLevelFlag  = "log-level"
	MissionFlag   = "mission"
	CountFlag     = "count"
	BackendFlag   = "backend"
	CleanFlag     = "clean"

	defaultEnvFile    = ".env"
	reporterBufferLen = 256
)

var (
	// ErrNoRegistry is returned when the context carries no backend registry.
	ErrNoRegistry = errors.New("backend registry missing from context")
	// ErrNoConfigFile is returned when --file is not given.
	ErrNoConfigFile = errors.New("no configuration file given, use --file")
	// ErrInvalidLogLevel is returned for an unknown --log-level.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// ConfigFlags are accepted by every subcommand that loads a configuration.
func ConfigFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FileFlag,
			Aliases: []string{"f"},
			Usage: "URL of the YAML or HCL configuration file. " +
				"Supports Hashicorp's go-getter syntax for fetching files from various sources.",
			Sources:  cli.EnvVars("MYRIAD_CONFIG"),
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:      EnvFileFlag,
			Usage:     "Load environment variables from this file before reading MYRIAD_* overrides",
			Value:     defaultEnvFile,
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.StringFlag{
			Name:    MissionFlag,
			Aliases: []string{"m"},
			Usage:   "Override the mission identifier",
		},
		&cli.IntFlag{
			Name:    CountFlag,
			Aliases: []string{"n"},
			Usage:   "Override the number of jobs",
		},
		&cli.StringFlag{
			Name:    BackendFlag,
			Aliases: []string{"b"},
			Usage:   "Override the execution backend: array, perunit or local",
		},
	}
}

// LogFlags configure logging. They are set on the root command.
func LogFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  LogFormatFlag,
			Usage: "Log format: pretty or json",
			Value: ctxlog.FormatPretty,
		},
		&cli.StringFlag{
			Name:  LogLevelFlag,
			Usage: "Log level: debug, info, warn or error. Defaults to MYRIAD_LOG_LEVEL, then warn",
		},
	}
}

// CleanFlagDef empties the output directory before generating.
func CleanFlagDef() cli.Flag {
	return &cli.BoolFlag{
		Name:  CleanFlag,
		Usage: "Remove existing output files before generating parameter files",
	}
}

// ConfigureLogging installs the logger selected by the log flags into ctx.
func ConfigureLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if lvl := cmd.String(LogLevelFlag); lvl != "" {
		l, ok := ctxlog.ParseLevel(lvl)
		if !ok {
			return ctx, fmt.Errorf("%w: %q", ErrInvalidLogLevel, lvl)
		}

		ctxlog.LevelVar.Set(l)
	}

	logger, err := ctxlog.NewLogger(cmd.String(LogFormatFlag), ErrWriter(cmd))
	if err != nil {
		return ctx, err //nolint:wrapcheck
	}

	return ctxlog.New(ctx, logger), nil
}

// LoadConfig fetches, parses, overrides, defaults and validates the configuration.
// Precedence, lowest first: file, .env, process environment, flags.
func LoadConfig(ctx context.Context, cmd *cli.Command) (*config.Config, error) {
	url := cmd.String(FileFlag)
	if url == "" {
		return nil, ErrNoConfigFile
	}

	env, err := config.Environ(cmd.String(EnvFileFlag))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	data, name, err := GetURL(ctx, url)
	if err != nil {
		return nil, err
	}

	c, err := config.Parse(name, data, env)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if err := c.ApplyEnv(env); err != nil {
		return nil, err //nolint:wrapcheck
	}

	applyFlags(cmd, c)
	c.ApplyDefaults(env)

	if err := c.Validate(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	if c.Log.Level != "" && !cmd.IsSet(LogLevelFlag) {
		if l, ok := ctxlog.ParseLevel(c.Log.Level); ok {
			ctxlog.LevelVar.Set(l)
		}
	}

	ctxlog.Debug(ctx, "configuration loaded", "source", url, "mission", c.Mission, "backend", c.Backend.Type, "count", c.Count)

	return c, nil
}

func applyFlags(cmd *cli.Command, c *config.Config) {
	if cmd.IsSet(MissionFlag) {
		c.Mission = cmd.String(MissionFlag)
	}

	if cmd.IsSet(CountFlag) {
		c.Count = cmd.Int(CountFlag)
	}

	if cmd.IsSet(BackendFlag) {
		c.Backend.Type = cmd.String(BackendFlag)
	}
}

// Registry returns the backend registry main put into ctx.
func Registry(ctx context.Context) (backendregistry.Registry, error) {
	r, ok := ctx.Value(backendregistry.FactoryContextKey{}).(backendregistry.Registry)
	if !ok {
		return nil, ErrNoRegistry
	}

	return r, nil
}

// Session is a pipeline with its sinks. Close flushes and releases them.
type Session struct {
	Pipeline *pipeline.Pipeline
	Config   *config.Config
	Journal  *journal.Journal
	reporter *progress.ChannelReporter
}

// NewSession loads the configuration and builds a pipeline wired to the
// progress log, metrics, the journal and the publisher as configured.
// The returned context carries the logger selected by the configuration.
func NewSession(ctx context.Context, cmd *cli.Command, opts ...pipeline.Option) (context.Context, *Session, error) {
	cfg, err := LoadConfig(ctx, cmd)
	if err != nil {
		return ctx, nil, err
	}

	reg, err := Registry(ctx)
	if err != nil {
		return ctx, nil, err
	}

	if !cmd.IsSet(LogFormatFlag) && cfg.Log.Format != cmd.String(LogFormatFlag) {
		logger, err := ctxlog.NewLogger(cfg.Log.Format, ErrWriter(cmd))
		if err != nil {
			return ctx, nil, err //nolint:wrapcheck
		}

		ctx = ctxlog.New(ctx, logger)
	}

	m := metrics.New(cfg.Mission)
	rep := progress.NewChannelReporter(ctx, reporterBufferLen)
	rep.Listen(progress.Multi{progress.LogListener(ctx), m})

	s := &Session{Config: cfg, reporter: rep}

	all := []pipeline.Option{
		pipeline.WithRegistry(reg),
		pipeline.WithReporter(rep),
		pipeline.WithMetrics(m),
		pipeline.WithStdout(Writer(cmd)),
	}

	if cfg.Journal.Path != "" {
		if s.Journal, err = journal.Open(ctx, cfg.Journal.Path); err != nil {
			rep.Close()
			return ctx, nil, err //nolint:wrapcheck
		}

		all = append(all, pipeline.WithJournal(s.Journal))
	}

	if cfg.Publish.Enabled() {
		pub, err := publish.New(publish.Settings{
			Endpoint:  cfg.Publish.Endpoint,
			Bucket:    cfg.Publish.Bucket,
			Prefix:    cfg.Publish.Prefix,
			AccessKey: cfg.Publish.AccessKey,
			SecretKey: cfg.Publish.SecretKey,
			UseSSL:    cfg.Publish.UseSSL,
		})
		if err != nil {
			s.Close(ctx)
			return ctx, nil, err //nolint:wrapcheck
		}

		all = append(all, pipeline.WithPublisher(pub))
	}

	if s.Pipeline, err = pipeline.New(cfg, append(all, opts...)...); err != nil {
		s.Close(ctx)
		return ctx, nil, err //nolint:wrapcheck
	}

	return ctx, s, nil
}

// Close drains progress events, writes the metrics file and closes the journal.
func (s *Session) Close(ctx context.Context) {
	s.reporter.Close()

	if s.Pipeline != nil {
		if err := s.Pipeline.FlushMetrics(); err != nil {
			ctxlog.Warn(ctx, "cannot write metrics", "error", err)
		}
	}

	if s.Journal != nil {
		if err := s.Journal.Close(); err != nil {
			ctxlog.Warn(ctx, "cannot close journal", "error", err)
		}
	}
}

// Fail logs err and returns the exit error for the cli framework.
func Fail(ctx context.Context, msg string, err error) error {
	ctxlog.Error(ctx, msg, "error", err)
	return cli.Exit("", 1)
}

// ErrWriter returns the command's error writer, falling back to the root's and then stderr.
func ErrWriter(cmd *cli.Command) io.Writer {
	if cmd.ErrWriter != nil {
		return cmd.ErrWriter
	}

	if root := cmd.Root(); root != nil && root.ErrWriter != nil {
		return root.ErrWriter
	}

	return os.Stderr
}

// Writer returns the command's writer, falling back to the root's and then stdout.
func Writer(cmd *cli.Command) io.Writer {
	if cmd.Writer != nil {
		return cmd.Writer
	}

	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}

	return os.Stdout
}
