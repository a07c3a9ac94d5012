// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the myriad command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	myriad "github.com/ucl-sgnl/myriad-utils"
	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/check"
	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/cmdutil"
	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/combine"
	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/config"
	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/generate"
	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/history"
	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/run"
	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/submit"
	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/wait"
	_ "github.com/ucl-sgnl/myriad-utils/internal/allbackends"
	"github.com/ucl-sgnl/myriad-utils/internal/backendregistry"
	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
	"github.com/ucl-sgnl/myriad-utils/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
		generate.GenerateCmd,
		submit.SubmitCmd,
		wait.WaitCmd,
		check.CheckCmd,
		combine.CombineCmd,
		history.HistoryCmd,
		config.ConfigCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "myriad",
	Description: `Myriad runs a batch of simulator jobs on a cluster scheduler or the local host.
It writes one parameter file per job from a template, dispatches the jobs as an array
job, as individual jobs or through a local worker pool, waits for them to leave the
queue, checks every expected output file and merges them into one sorted dataset.`,
	Usage:     "myriad run -f mission.yaml",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	Flags: cmdutil.LogFlags(),
	Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		return cmdutil.ConfigureLogging(ctx, cmd)
	},
	EnableShellCompletion: true,
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh := signalbroker.New(ctx)

	go signalbroker.Watch(ctx, sigCh, cancel)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", myriad.Version, myriad.Commit)

	ctx = context.WithValue(ctx, backendregistry.FactoryContextKey{}, backendregistry.New())

	err := rootCmd.Run(ctx, os.Args) // Err is handled by cli framework

	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Error("command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1)
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
