// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package generate implements the generate command.
package generate

import (
	"context"
	"fmt"
	"slices"

	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/cmdutil"
	"github.com/ucl-sgnl/myriad-utils/internal/pipeline"
	"github.com/urfave/cli/v3"
)

// GenerateCmd writes the parameter files of a mission without dispatching them.
var GenerateCmd = &cli.Command{
	Name:  "generate",
	Usage: "Write one parameter file per job from the template",
	Description: `Instantiates the parameter template once per job index 1..count and writes
the files to <scratch-root>/<mission>/spiralPoints/paramFiles. Existing files are overwritten.`,
	Flags:  slices.Concat(cmdutil.ConfigFlags(), []cli.Flag{cmdutil.CleanFlagDef()}),
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	ctx, s, err := cmdutil.NewSession(ctx, cmd, pipeline.WithClean(cmd.Bool(cmdutil.CleanFlag)))
	if err != nil {
		return cmdutil.Fail(ctx, "cannot set up mission", err)
	}

	defer s.Close(ctx)

	files, err := s.Pipeline.Generate(ctx)
	if err != nil {
		return cmdutil.Fail(ctx, "parameter generation failed", err)
	}

	fmt.Fprintf(cmdutil.Writer(cmd), "Wrote %d parameter files to %s\n", len(files), s.Pipeline.Layout().ParamDir()) //nolint:errcheck

	return nil
}
