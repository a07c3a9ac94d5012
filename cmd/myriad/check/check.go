// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package check implements the check command.
package check

import (
	"context"
	"slices"

	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/cmdutil"
	"github.com/urfave/cli/v3"
)

const logFileFlag = "log-file"

// CheckCmd validates the output directory of a mission.
var CheckCmd = &cli.Command{
	Name:  "check",
	Usage: "Report missing and malformed output files",
	Description: `Checks that output00001.txt..output<count>.txt exist and have exactly two lines.
The report goes to --log-file, or validate.log_file, or stdout. The exit code is 3 when
a problem is found.`,
	Flags: slices.Concat(cmdutil.ConfigFlags(), []cli.Flag{
		&cli.StringFlag{
			Name:      logFileFlag,
			Aliases:   []string{"l"},
			Usage:     "Write the report to this file instead of stdout",
			TakesFile: true,
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

	if cmd.IsSet(logFileFlag) {
		s.Config.Validate.LogFile = cmd.String(logFileFlag)
	}

	r, err := s.Pipeline.Check(ctx)
	if err != nil {
		return cmdutil.Fail(ctx, "validation report could not be written", err)
	}

	if !r.OK() {
		return cli.Exit("", 3)
	}

	return nil
}
