// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package combine implements the combine command.
package combine

import (
	"context"
	"fmt"
	"slices"

	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/cmdutil"
	"github.com/ucl-sgnl/myriad-utils/internal/aggregate"
	"github.com/urfave/cli/v3"
)

const (
	orderFlag   = "order"
	outputFlag  = "output"
	publishFlag = "publish"
)

// CombineCmd merges the output files of a mission into one dataset.
var CombineCmd = &cli.Command{
	Name:  "combine",
	Usage: "Merge the output files into one sorted dataset",
	Description: `Concatenates the data lines of every present output file under the canonical
header, sorted by the leading field. Missing files are skipped.`,
	Flags: slices.Concat(cmdutil.ConfigFlags(), []cli.Flag{
		&cli.StringFlag{
			Name:  orderFlag,
			Usage: "Sort direction: ascending or descending",
		},
		&cli.StringFlag{
			Name:      outputFlag,
			Aliases:   []string{"o"},
			Usage:     "Write the dataset here instead of outputFiles/combined_output.txt",
			TakesFile: true,
		},
		&cli.BoolFlag{
			Name:  publishFlag,
			Usage: "Upload the dataset when publishing is configured",
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

	if cmd.IsSet(orderFlag) {
		if _, err := aggregate.ParseOrder(cmd.String(orderFlag)); err != nil {
			return cmdutil.Fail(ctx, "invalid --order", err)
		}

		s.Config.Aggregate.Order = cmd.String(orderFlag)
	}

	if cmd.IsSet(outputFlag) {
		s.Config.Aggregate.Output = cmd.String(outputFlag)
	}

	res, err := s.Pipeline.Combine(ctx)
	if err != nil {
		return cmdutil.Fail(ctx, "combining outputs failed", err)
	}

	w := cmdutil.Writer(cmd)
	fmt.Fprintf(w, "Combined %d lines from %d files into %s\n", res.Lines, res.Files, res.Path) //nolint:errcheck

	if cmd.Bool(publishFlag) && s.Config.Publish.Enabled() {
		key, err := s.Pipeline.Publish(ctx, res.Path)
		if err != nil {
			return cmdutil.Fail(ctx, "publishing failed", err)
		}

		fmt.Fprintf(w, "Published to %s/%s\n", s.Config.Publish.Bucket, key) //nolint:errcheck
	}

	return nil
}
