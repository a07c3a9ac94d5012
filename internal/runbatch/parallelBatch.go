// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
	"github.com/ucl-sgnl/myriad-utils/internal/progress"
	"golang.org/x/sync/errgroup"
)

var _ Runnable = (*ParallelBatch)(nil)

// ParallelBatch runs its commands concurrently, at most Limit at a time.
// Child failures are recorded, never propagated to siblings.
type ParallelBatch struct {
	*BaseCommand
	Commands []Runnable        // The commands or nested batches to run
	Limit    int               // Maximum concurrent commands, <= 0 means runtime.NumCPU()
	Reporter progress.Reporter // Optional sink for unit events
	Stage    progress.Stage    // Stage name attached to unit events
	// DiscardSuccessOutput drops captured stdout and stderr of children that
	// succeed, so only failures hold on to their output until the batch ends.
	DiscardSuccessOutput bool
}

// Run implements the Runnable interface for ParallelBatch.
// Children are returned in the order of Commands, not completion order.
func (b *ParallelBatch) Run(ctx context.Context) Results {
	if b.BaseCommand == nil {
		b.BaseCommand = NewBaseCommand("", 0, "", nil)
	}

	limit := b.Limit
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	logger := ctxlog.Logger(ctx).With("label", b.GetLabel(), "runnableType", "ParallelBatch")
	logger.Debug("starting parallel batch", "commands", len(b.Commands), "limit", limit)

	children := make(Results, len(b.Commands))

	var g errgroup.Group

	g.SetLimit(limit)

	for i, cmd := range b.Commands {
		if inheritor, ok := cmd.(interface{ InheritEnv(map[string]string) }); ok && len(b.Env) > 0 {
			inheritor.InheritEnv(b.Env)
		}

		g.Go(func() error {
			children[i] = b.runOne(ctx, cmd)
			return nil
		})
	}

	_ = g.Wait()

	res := &Result{
		Label:    b.GetLabel(),
		Children: children,
		Status:   ResultStatusSuccess,
	}

	if children.HasError() {
		res.ExitCode = -1
		res.Error = ErrResultChildrenHasError
		res.Status = ResultStatusError
	}

	logger.Debug("parallel batch finished", "failed", len(children.FailedIndices()))

	return Results{res}
}

func (b *ParallelBatch) runOne(ctx context.Context, cmd Runnable) *Result {
	if err := ctx.Err(); err != nil {
		return &Result{
			Label:    cmd.GetLabel(),
			Index:    cmd.GetIndex(),
			ExitCode: -1,
			Error:    err,
			Status:   ResultStatusSkipped,
		}
	}

	progress.Emit(b.Reporter, progress.Event{
		Stage:   b.Stage,
		Type:    progress.EventUnitStarted,
		Index:   cmd.GetIndex(),
		Message: "unit started",
	})

	results := cmd.Run(ctx)

	var r *Result

	switch len(results) {
	case 0:
		r = &Result{Label: cmd.GetLabel(), Index: cmd.GetIndex(), Status: ResultStatusUnknown}
	case 1:
		r = results[0]
	default:
		r = &Result{Label: cmd.GetLabel(), Index: cmd.GetIndex(), Children: results, Status: ResultStatusSuccess}
		if results.HasError() {
			r.Status = ResultStatusError
			r.Error = ErrResultChildrenHasError
			r.ExitCode = -1
		}
	}

	event := progress.Event{
		Stage:   b.Stage,
		Type:    progress.EventUnitFinished,
		Index:   cmd.GetIndex(),
		Message: "unit finished",
		Data:    progress.EventData{ExitCode: r.ExitCode, Duration: r.Duration},
	}

	if r.Failed() {
		event.Type = progress.EventUnitFailed
		event.Message = fmt.Sprintf("unit %d failed", cmd.GetIndex())
		event.Data.Error = r.Error
	}

	progress.Emit(b.Reporter, event)

	if b.DiscardSuccessOutput && !r.Failed() {
		r.StdOut, r.StdErr = nil, nil
	}

	return r
}
