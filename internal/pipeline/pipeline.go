// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package pipeline runs the stages of a mission in order: generate parameter
// files, dispatch them, wait for completion, validate the outputs and combine
// them. Every stage can also be run on its own; stages communicate only
// through the mission's directory layout.
package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/ucl-sgnl/myriad-utils/internal/aggregate"
	"github.com/ucl-sgnl/myriad-utils/internal/backendregistry"
	"github.com/ucl-sgnl/myriad-utils/internal/backends"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/config"
	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
	"github.com/ucl-sgnl/myriad-utils/internal/journal"
	"github.com/ucl-sgnl/myriad-utils/internal/layout"
	"github.com/ucl-sgnl/myriad-utils/internal/metrics"
	"github.com/ucl-sgnl/myriad-utils/internal/monitor"
	"github.com/ucl-sgnl/myriad-utils/internal/paramgen"
	"github.com/ucl-sgnl/myriad-utils/internal/progress"
	"github.com/ucl-sgnl/myriad-utils/internal/scheduler"
	"github.com/ucl-sgnl/myriad-utils/internal/validate"
)

var (
	// ErrNilConfig is returned by New without a configuration.
	ErrNilConfig = errors.New("configuration is required")
	// ErrNotPublishing is returned by Publish when no publisher is configured.
	ErrNotPublishing = errors.New("publishing is not configured")
)

// Publisher uploads a combined dataset. *publish.Publisher satisfies it.
type Publisher interface {
	Upload(ctx context.Context, fs afero.Fs, mission, localPath string) (string, error)
}

// Pipeline runs the stages of one mission.
type Pipeline struct {
	cfg       *config.Config
	layout    layout.Layout
	fs        afero.Fs
	registry  backendregistry.Registry
	reporter  progress.Reporter
	journal   *journal.Journal
	metrics   *metrics.Metrics
	publisher Publisher
	scheduler *scheduler.Client
	monOpts   []monitor.Option
	stdout    io.Writer
	clean     bool
}

// Summary collects what each stage of Run produced.
type Summary struct {
	ParamFiles []string
	Receipt    *backends.Receipt
	Outcome    monitor.Outcome
	Report     *validate.Report
	Combined   *aggregate.Result
	Published  string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFs sets the filesystem every stage reads and writes. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(p *Pipeline) { p.fs = fs }
}

// WithRegistry sets the backend registry. Defaults to backendregistry.DefaultRegistry.
func WithRegistry(r backendregistry.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// WithReporter sets where progress events go.
func WithReporter(r progress.Reporter) Option {
	return func(p *Pipeline) { p.reporter = r }
}

// WithJournal records submissions, outcomes and reports.
func WithJournal(j *journal.Journal) Option {
	return func(p *Pipeline) { p.journal = j }
}

// WithMetrics records validation and aggregation results.
// Progress events reach metrics through the reporter's listeners.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithPublisher uploads the combined dataset at the end of Run.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithScheduler sets the scheduler client instead of building one from the configuration.
func WithScheduler(c *scheduler.Client) Option {
	return func(p *Pipeline) { p.scheduler = c }
}

// WithMonitorOptions appends options applied after the configured interval and maximum wait.
func WithMonitorOptions(opts ...monitor.Option) Option {
	return func(p *Pipeline) { p.monOpts = append(p.monOpts, opts...) }
}

// WithStdout sets where the validation report goes when no log file is configured.
func WithStdout(w io.Writer) Option {
	return func(p *Pipeline) { p.stdout = w }
}

// WithClean empties the output directory before parameter files are generated.
func WithClean(clean bool) Option {
	return func(p *Pipeline) { p.clean = clean }
}

// New builds a pipeline for a validated configuration.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.Join(batcherr.ErrConfiguration, ErrNilConfig)
	}

	l, err := cfg.Layout()
	if err != nil {
		return nil, errors.Join(batcherr.ErrConfiguration, err)
	}

	p := &Pipeline{
		cfg:      cfg,
		layout:   l,
		fs:       afero.NewOsFs(),
		registry: backendregistry.DefaultRegistry,
		reporter: progress.NewNullReporter(),
		stdout:   os.Stdout,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Layout returns the mission's directory layout.
func (p *Pipeline) Layout() layout.Layout {
	return p.layout
}

// stage wraps fn with started and completed or failed events.
func stage[T any](ctx context.Context, p *Pipeline, s progress.Stage, fn func(ctx context.Context) (T, int, error)) (T, error) {
	ctx = ctxlog.With(ctx, "stage", string(s))
	start := time.Now()

	progress.Emit(p.reporter, progress.Event{Stage: s, Type: progress.EventStageStarted, Message: string(s) + " started"})

	v, count, err := fn(ctx)
	if err != nil {
		progress.Emit(p.reporter, progress.Event{
			Stage:   s,
			Type:    progress.EventStageFailed,
			Message: string(s) + " failed",
			Data:    progress.EventData{Error: err, Duration: time.Since(start)},
		})

		return v, err
	}

	progress.Emit(p.reporter, progress.Event{
		Stage:   s,
		Type:    progress.EventStageCompleted,
		Message: string(s) + " completed",
		Data:    progress.EventData{Duration: time.Since(start), Count: count},
	})

	return v, nil
}

// Generate prepares the mission directories and writes one parameter file per job.
func (p *Pipeline) Generate(ctx context.Context) ([]string, error) {
	return stage(ctx, p, progress.StageGenerate, func(ctx context.Context) ([]string, int, error) {
		if err := p.layout.Ensure(p.fs); err != nil {
			return nil, 0, errors.Join(batcherr.ErrIO, err)
		}

		if p.clean {
			if err := p.layout.Clean(p.fs); err != nil {
				return nil, 0, errors.Join(batcherr.ErrIO, err)
			}

			ctxlog.Info(ctx, "cleaned output directory", "dir", p.layout.OutputDir())
		}

		tmpl, err := paramgen.LoadTemplate(p.fs, p.cfg.Template)
		if err != nil {
			return nil, 0, err //nolint:wrapcheck
		}

		var opts []paramgen.Option
		if p.cfg.NPoints > 0 {
			opts = append(opts, paramgen.WithFixedNPoints(p.cfg.NPoints))
		}

		gen, err := paramgen.New(p.fs, tmpl, p.cfg.Fields, opts...)
		if err != nil {
			return nil, 0, err //nolint:wrapcheck
		}

		files, err := gen.Generate(ctx, p.layout.ParamPrefix(), p.cfg.Count)
		if err != nil {
			return nil, 0, err //nolint:wrapcheck
		}

		ctxlog.Info(ctx, "parameter files written", "count", len(files), "dir", p.layout.ParamDir())

		return files, len(files), nil
	})
}

// Submit generates parameter files and dispatches them.
func (p *Pipeline) Submit(ctx context.Context) (*backends.Receipt, error) {
	if _, err := p.Generate(ctx); err != nil {
		return nil, err
	}

	return p.Dispatch(ctx)
}

// Dispatch hands every work unit to the configured backend and journals the receipt.
func (p *Pipeline) Dispatch(ctx context.Context) (*backends.Receipt, error) {
	return stage(ctx, p, progress.StageDispatch, func(ctx context.Context) (*backends.Receipt, int, error) {
		d, err := p.dispatcher()
		if err != nil {
			return nil, 0, err
		}

		units := p.layout.WorkUnits(p.cfg.Count, p.cfg.SpacecraftModel)

		receipt, err := d.Dispatch(ctx, units)
		if err != nil {
			return receipt, 0, err //nolint:wrapcheck
		}

		if p.journal != nil {
			if _, err := p.journal.RecordSubmission(ctx, p.cfg.Mission, receipt); err != nil {
				ctxlog.Warn(ctx, "cannot journal submission", "error", err)
			}
		}

		return receipt, receipt.Units, nil
	})
}

func (p *Pipeline) dispatcher() (backends.Dispatcher, error) {
	s := backends.Settings{
		Fs:          p.fs,
		Layout:      p.layout,
		Simulator:   p.cfg.Simulator,
		JobName:     p.cfg.Backend.JobName,
		Directives:  p.cfg.Backend.Directives,
		Parallelism: p.cfg.Backend.Parallelism,
		Reporter:    p.reporter,
	}

	if p.cfg.Backend.Type != config.BackendLocal {
		c, err := p.schedulerClient()
		if err != nil {
			return nil, err
		}

		s.Scheduler = c
	}

	return p.registry.Create(p.cfg.Backend.Type, s) //nolint:wrapcheck
}

func (p *Pipeline) schedulerClient() (*scheduler.Client, error) {
	if p.scheduler != nil {
		return p.scheduler, nil
	}

	var opts []scheduler.Option
	if p.cfg.Backend.User != "" {
		opts = append(opts, scheduler.WithUser(p.cfg.Backend.User))
	}

	c, err := scheduler.New(p.cfg.Backend.Scheduler, opts...)
	if err != nil {
		return nil, errors.Join(batcherr.ErrConfiguration, err)
	}

	p.scheduler = c

	return c, nil
}

// Receipt rebuilds a receipt for a wait started by a separate invocation.
// Explicit job ids win, then the journal's latest run, then a receipt that
// waits on every job of the configured user.
func (p *Pipeline) Receipt(ctx context.Context, jobIDs []string) *backends.Receipt {
	if len(jobIDs) > 0 {
		return &backends.Receipt{Backend: p.cfg.Backend.Type, JobIDs: jobIDs, Units: p.cfg.Count}
	}

	if p.journal != nil {
		run, err := p.journal.Latest(ctx, p.cfg.Mission)

		switch {
		case err == nil:
			return &backends.Receipt{
				Backend:     run.Backend,
				JobIDs:      run.JobIDs,
				Units:       run.Units,
				Failed:      run.Failed,
				SubmittedAt: run.SubmittedAt,
				Synchronous: run.Synchronous,
			}
		case !errors.Is(err, journal.ErrNoRun):
			ctxlog.Warn(ctx, "cannot read journal, waiting on all jobs", "error", err)
		}
	}

	return &backends.Receipt{
		Backend:     p.cfg.Backend.Type,
		Units:       p.cfg.Count,
		Synchronous: p.cfg.Backend.Type == config.BackendLocal,
	}
}

// Wait blocks until the receipt's jobs are done or the maximum wait elapses.
// A TIMEOUT outcome is not an error.
func (p *Pipeline) Wait(ctx context.Context, receipt *backends.Receipt) (monitor.Outcome, error) {
	return stage(ctx, p, progress.StageMonitor, func(ctx context.Context) (monitor.Outcome, int, error) {
		var status monitor.StatusQuerier

		if receipt != nil && !receipt.Synchronous {
			c, err := p.schedulerClient()
			if err != nil {
				return monitor.Outcome{State: monitor.StateRunning}, 0, err
			}

			status = c
		}

		opts := append([]monitor.Option{
			monitor.WithInterval(p.cfg.PollInterval()),
			monitor.WithMaxWait(p.cfg.MaxWait()),
			monitor.WithReporter(p.reporter),
		}, p.monOpts...)

		out, err := monitor.New(status, opts...).Wait(ctx, receipt)
		if err != nil {
			return out, out.Polls, err //nolint:wrapcheck
		}

		if out.State == monitor.StateTimeout {
			ctxlog.Warn(ctx, "gave up waiting, validating what is present", "maxWait", p.cfg.MaxWait().String())
		}

		if p.journal != nil && !receipt.Synchronous {
			if err := p.journal.RecordOutcome(ctx, p.cfg.Mission, out); err != nil {
				ctxlog.Warn(ctx, "cannot journal outcome", "error", err)
			}
		}

		return out, out.Polls, nil
	})
}

// Check validates the output directory and emits the report.
// A failed validation is reported, not returned as an error.
func (p *Pipeline) Check(ctx context.Context) (*validate.Report, error) {
	return stage(ctx, p, progress.StageValidate, func(ctx context.Context) (*validate.Report, int, error) {
		r := validate.Validate(ctx, p.fs, p.layout.OutputDir(), p.cfg.Count)

		if !r.OK() {
			ctxlog.Warn(ctx, "output validation found problems",
				"missing", len(r.Missing), "malformed", len(r.Anomalies))
		}

		if err := r.Emit(p.fs, p.cfg.Validate.LogFile, p.stdout); err != nil {
			return r, r.Present, err //nolint:wrapcheck
		}

		if p.metrics != nil {
			p.metrics.ObserveReport(r)
		}

		if p.journal != nil {
			if err := p.journal.RecordReport(ctx, p.cfg.Mission, r); err != nil {
				ctxlog.Warn(ctx, "cannot journal report", "error", err)
			}
		}

		return r, r.Present, nil
	})
}

// Combine writes the combined dataset.
func (p *Pipeline) Combine(ctx context.Context) (*aggregate.Result, error) {
	return stage(ctx, p, progress.StageAggregate, func(ctx context.Context) (*aggregate.Result, int, error) {
		dest := p.cfg.Aggregate.Output
		if dest == "" {
			dest = p.layout.CombinedPath()
		}

		res, err := aggregate.Aggregate(ctx, p.fs, p.layout.OutputDir(), p.cfg.Count, aggregate.Options{
			Order:       p.cfg.Order(),
			Destination: dest,
		})
		if err != nil {
			return nil, 0, err //nolint:wrapcheck
		}

		if p.metrics != nil {
			p.metrics.ObserveAggregate(res)
		}

		return res, res.Lines, nil
	})
}

// Publish uploads the dataset at path.
func (p *Pipeline) Publish(ctx context.Context, path string) (string, error) {
	if p.publisher == nil {
		return "", ErrNotPublishing
	}

	return stage(ctx, p, progress.StagePublish, func(ctx context.Context) (string, int, error) {
		key, err := p.publisher.Upload(ctx, p.fs, p.cfg.Mission, path)
		if err != nil {
			return "", 0, err //nolint:wrapcheck
		}

		return key, 1, nil
	})
}

// Run executes every stage in order. Fatal errors abort; a timed-out wait or
// a failed validation does not. A publish failure is logged and returned
// after the dataset has been written.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	sum := new(Summary)

	var err error

	if sum.ParamFiles, err = p.Generate(ctx); err != nil {
		return sum, err
	}

	if sum.Receipt, err = p.Dispatch(ctx); err != nil {
		return sum, err
	}

	if sum.Outcome, err = p.Wait(ctx, sum.Receipt); err != nil {
		return sum, err
	}

	if sum.Report, err = p.Check(ctx); err != nil {
		return sum, err
	}

	if sum.Combined, err = p.Combine(ctx); err != nil {
		return sum, err
	}

	if p.publisher != nil {
		if sum.Published, err = p.Publish(ctx, sum.Combined.Path); err != nil {
			ctxlog.Error(ctx, "publishing failed", "error", err)
			return sum, err
		}
	}

	return sum, nil
}

// FlushMetrics writes the metrics textfile when one is configured.
func (p *Pipeline) FlushMetrics() error {
	if p.metrics == nil || p.cfg.Metrics.TextfilePath == "" {
		return nil
	}

	return p.metrics.WriteTextfile(p.cfg.Metrics.TextfilePath) //nolint:wrapcheck
}
