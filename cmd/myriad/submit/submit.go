// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package submit implements the submit command.
package submit

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/cmdutil"
	"github.com/ucl-sgnl/myriad-utils/internal/pipeline"
	"github.com/urfave/cli/v3"
)

// SubmitCmd generates parameter files and dispatches them to the configured backend.
var SubmitCmd = &cli.Command{
	Name:  "submit",
	Usage: "Generate parameter files and dispatch every job",
	Description: `Generates the parameter files, then hands every job to the configured backend.
The array and perunit backends return once the scheduler has accepted the jobs;
use 'myriad wait' to follow them. The local backend returns when every job has exited.`,
	Flags:  slices.Concat(cmdutil.ConfigFlags(), []cli.Flag{cmdutil.CleanFlagDef()}),
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	ctx, s, err := cmdutil.NewSession(ctx, cmd, pipeline.WithClean(cmd.Bool(cmdutil.CleanFlag)))
	if err != nil {
		return cmdutil.Fail(ctx, "cannot set up mission", err)
	}

	defer s.Close(ctx)

	r, err := s.Pipeline.Submit(ctx)
	if err != nil {
		return cmdutil.Fail(ctx, "submission failed", err)
	}

	w := cmdutil.Writer(cmd)

	switch {
	case r.Synchronous:
		fmt.Fprintf(w, "Ran %d jobs locally, %d failed\n", r.Units, len(r.Failed)) //nolint:errcheck
	default:
		fmt.Fprintf(w, "Submitted %d jobs to %s as %s\n", r.Units, r.Backend, strings.Join(r.JobIDs, ", ")) //nolint:errcheck
	}

	return nil
}
