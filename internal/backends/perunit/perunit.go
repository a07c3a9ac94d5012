// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package perunit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/ucl-sgnl/myriad-utils/internal/backends"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
	"github.com/ucl-sgnl/myriad-utils/internal/layout"
	"github.com/ucl-sgnl/myriad-utils/internal/progress"
)

// Name is the registered backend name.
const Name = "perunit"

const sevenFiveFive = 0o755

// Dispatcher submits units one at a time.
type Dispatcher struct {
	settings backends.Settings
}

var _ backends.Dispatcher = (*Dispatcher)(nil)

// New creates a per-unit dispatcher.
func New(s backends.Settings) (backends.Dispatcher, error) {
	if s.Scheduler == nil {
		return nil, backends.ErrMissingScheduler
	}

	if s.Simulator == "" {
		return nil, backends.ErrMissingSimulator
	}

	if s.Fs == nil {
		s.Fs = afero.NewOsFs()
	}

	return &Dispatcher{settings: s}, nil
}

// Name implements backends.Dispatcher.
func (d *Dispatcher) Name() string {
	return Name
}

// Script renders the job script for one unit with absolute paths.
func (d *Dispatcher) Script(u layout.WorkUnit) []byte {
	args := make([]string, 0, 4)
	args = append(args, backends.ShellQuote(backends.Executable(d.settings.Simulator)))

	for _, a := range u.Args() {
		args = append(args, backends.ShellQuote(backends.AbsPath(a)))
	}

	s := d.settings
	if s.JobName != "" {
		s.JobName = fmt.Sprintf("%s_%s", s.JobName, layout.FormatIndex(u.Index))
	}

	return []byte(backends.Header(s) + "exec " + strings.Join(args, " ") + "\n")
}

// Dispatch implements backends.Dispatcher. The first rejected submission
// stops the loop; jobs already accepted stay queued and are listed in the error.
func (d *Dispatcher) Dispatch(ctx context.Context, units []layout.WorkUnit) (*backends.Receipt, error) {
	if len(units) == 0 {
		return nil, errors.Join(batcherr.ErrConfiguration, backends.ErrNoUnits)
	}

	receipt := &backends.Receipt{
		Backend:     Name,
		Units:       len(units),
		SubmittedAt: time.Now(),
	}

	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return receipt, err
		}

		id, err := d.submitOne(ctx, u)
		if err != nil {
			return receipt, errors.Join(batcherr.ErrSubmission,
				fmt.Errorf("unit %d (accepted so far: %d)", u.Index, len(receipt.JobIDs)), err)
		}

		receipt.JobIDs = append(receipt.JobIDs, id)

		progress.Emit(d.settings.Reporter, progress.Event{
			Stage:   progress.StageDispatch,
			Type:    progress.EventUnitStarted,
			Index:   u.Index,
			Message: "unit submitted",
		})
	}

	ctxlog.Info(ctx, "submitted per-unit jobs", "jobs", len(receipt.JobIDs))

	return receipt, nil
}

func (d *Dispatcher) submitOne(ctx context.Context, u layout.WorkUnit) (string, error) {
	path := d.settings.Layout.UnitJobScriptPath(u.Index)

	if err := afero.WriteFile(d.settings.Fs, path, d.Script(u), sevenFiveFive); err != nil {
		return "", errors.Join(batcherr.ErrIO, backends.ErrWriteScript, err)
	}

	defer func() {
		if err := d.settings.Fs.Remove(path); err != nil {
			ctxlog.Warn(ctx, "failed to remove job script", "path", path, "error", err)
		}
	}()

	id, err := d.settings.Scheduler.Submit(ctx, path)
	if err != nil {
		return "", err //nolint:wrapcheck
	}

	ctxlog.Debug(ctx, "unit submitted", "index", u.Index, "jobID", id)

	return id, nil
}
