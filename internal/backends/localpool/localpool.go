// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package localpool

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/ucl-sgnl/myriad-utils/internal/backends"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
	"github.com/ucl-sgnl/myriad-utils/internal/layout"
	"github.com/ucl-sgnl/myriad-utils/internal/progress"
	"github.com/ucl-sgnl/myriad-utils/internal/runbatch"
)

// Name is the registered backend name.
const Name = "local"

// ErrSimulatorNotFound is returned when the simulator cannot be resolved to an executable.
var ErrSimulatorNotFound = errors.New("simulator executable not found")

// Dispatcher runs units on the local machine.
type Dispatcher struct {
	simulator   string
	parallelism int
	reporter    progress.Reporter
}

var _ backends.Dispatcher = (*Dispatcher)(nil)

// New creates a local pool dispatcher. The simulator is resolved on PATH now,
// so a typo fails before any unit starts.
func New(s backends.Settings) (backends.Dispatcher, error) {
	if s.Simulator == "" {
		return nil, backends.ErrMissingSimulator
	}

	path, err := exec.LookPath(s.Simulator)
	if err != nil {
		return nil, errors.Join(ErrSimulatorNotFound, err)
	}

	p := s.Parallelism
	if p <= 0 {
		p = runtime.NumCPU()
	}

	return &Dispatcher{
		simulator:   path,
		parallelism: p,
		reporter:    s.Reporter,
	}, nil
}

// Name implements backends.Dispatcher.
func (d *Dispatcher) Name() string {
	return Name
}

// Parallelism returns the pool size.
func (d *Dispatcher) Parallelism() int {
	return d.parallelism
}

// Dispatch implements backends.Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, units []layout.WorkUnit) (*backends.Receipt, error) {
	if len(units) == 0 {
		return nil, errors.Join(batcherr.ErrConfiguration, backends.ErrNoUnits)
	}

	cmds := make([]runbatch.Runnable, 0, len(units))
	for _, u := range units {
		label := fmt.Sprintf("unit %s", layout.FormatIndex(u.Index))
		cmds = append(cmds, runbatch.NewOSCommand(label, u.Index, d.simulator, u.Args()...))
	}

	batch := &runbatch.ParallelBatch{
		BaseCommand: runbatch.NewBaseCommand("local pool", 0, "", nil),
		Commands:    cmds,
		Limit:       d.parallelism,
		Reporter:    d.reporter,
		Stage:       progress.StageDispatch,

		DiscardSuccessOutput: true,
	}

	submittedAt := time.Now()

	ctxlog.Info(ctx, "running units on local pool", "units", len(units), "parallelism", d.parallelism)

	results := batch.Run(ctx)

	receipt := &backends.Receipt{
		Backend:     Name,
		Units:       len(units),
		Failed:      results.FailedIndices(),
		SubmittedAt: submittedAt,
		Synchronous: true,
	}

	if len(receipt.Failed) > 0 {
		var sb strings.Builder
		_ = results.Write(&sb)

		ctxlog.Warn(ctx, "some units failed", "failed", len(receipt.Failed), "indices", receipt.Failed)
		ctxlog.Debug(ctx, "unit failure details\n"+sb.String())
	}

	if err := ctx.Err(); err != nil {
		return receipt, err
	}

	return receipt, nil
}
