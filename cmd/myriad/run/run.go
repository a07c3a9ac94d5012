// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run implements the run command, which executes every stage in order.
package run

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/cmdutil"
	"github.com/ucl-sgnl/myriad-utils/internal/color"
	"github.com/ucl-sgnl/myriad-utils/internal/monitor"
	"github.com/ucl-sgnl/myriad-utils/internal/pipeline"
	"github.com/urfave/cli/v3"
)

// RunCmd runs a whole mission: generate, dispatch, wait, check, combine and publish.
var RunCmd = &cli.Command{
	Name:  "run",
	Usage: "Run every stage of a mission",
	Description: `Generates parameter files, dispatches the jobs, waits for them, validates the
outputs and writes the combined dataset, then uploads it when publishing is configured.

Configuration, submission and write errors abort the run. A timed-out wait or a
failed validation does not: whatever is present is still combined.

Config file URLs use Hashicorp's go-getter syntax, which allows for fetching files from various sources.
See https://github.com/hashicorp/go-getter.`,
	Flags:  slices.Concat(cmdutil.ConfigFlags(), []cli.Flag{cmdutil.CleanFlagDef()}),
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	ctx, s, err := cmdutil.NewSession(ctx, cmd, pipeline.WithClean(cmd.Bool(cmdutil.CleanFlag)))
	if err != nil {
		return cmdutil.Fail(ctx, "cannot set up mission", err)
	}

	defer s.Close(ctx)

	sum, err := s.Pipeline.Run(ctx)
	if err != nil {
		return cmdutil.Fail(ctx, "mission run aborted", err)
	}

	writeSummary(cmdutil.Writer(cmd), sum)

	return nil
}

func writeSummary(w io.Writer, sum *pipeline.Summary) {
	fmt.Fprintf(w, "\nMission summary\n")                                           //nolint:errcheck
	fmt.Fprintf(w, "  %-10s %d parameter files\n", "generate", len(sum.ParamFiles)) //nolint:errcheck

	if r := sum.Receipt; r != nil {
		fmt.Fprintf(w, "  %-10s %d jobs via %s, %d failed locally\n", "dispatch", r.Units, r.Backend, len(r.Failed)) //nolint:errcheck
	}

	fmt.Fprintf(w, "  %-10s %s %s\n", "wait", color.Status(sum.Outcome.State == monitor.StateDone), sum.Outcome.State) //nolint:errcheck

	if r := sum.Report; r != nil {
		fmt.Fprintf(w, "  %-10s %s %d present, %d missing, %d malformed\n", //nolint:errcheck
			"check", color.Status(r.OK()), r.Present, len(r.Missing), len(r.Anomalies))
	}

	if c := sum.Combined; c != nil {
		fmt.Fprintf(w, "  %-10s %d lines in %s\n", "combine", c.Lines, c.Path) //nolint:errcheck
	}

	if sum.Published != "" {
		fmt.Fprintf(w, "  %-10s %s\n", "publish", sum.Published) //nolint:errcheck
	}
}
