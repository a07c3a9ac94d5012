// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package wait implements the wait command.
package wait

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/cmdutil"
	"github.com/ucl-sgnl/myriad-utils/internal/monitor"
	"github.com/urfave/cli/v3"
)

const jobIDFlag = "job-id"

// WaitCmd polls the scheduler until a mission's jobs have left the queue.
var WaitCmd = &cli.Command{
	Name:  "wait",
	Usage: "Wait for submitted jobs to finish",
	Description: `Polls the scheduler every poll_interval until no job is outstanding or max_wait
has elapsed. Jobs are taken from --job-id, else from the journal's latest run of the
mission, else every job of the configured user counts.`,
	Flags: slices.Concat(cmdutil.ConfigFlags(), []cli.Flag{
		&cli.StringSliceFlag{
			Name:    jobIDFlag,
			Aliases: []string{"j"},
			Usage:   "Scheduler job id to wait for. Specify multiple times for several jobs",
		},
	}),
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	ctx, s, err := cmdutil.NewSession(ctx, cmd)
	if err != nil {
		return cmdutil.Fail(ctx, "cannot set up mission", err)
	}

	defer s.Close(ctx)

	receipt := s.Pipeline.Receipt(ctx, cmd.StringSlice(jobIDFlag))

	out, err := s.Pipeline.Wait(ctx, receipt)
	if err != nil {
		return cmdutil.Fail(ctx, "wait failed", err)
	}

	fmt.Fprintf(cmdutil.Writer(cmd), "%s after %d polls (%s)\n", out.State, out.Polls, out.Elapsed.Round(time.Second)) //nolint:errcheck

	if out.State == monitor.StateTimeout {
		return cli.Exit("", 2)
	}

	return nil
}
