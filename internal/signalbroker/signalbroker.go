// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalbroker listens for termination signals (SIGINT, SIGTERM, SIGQUIT)
// on behalf of the command line. The first signal is logged; a second one
// cancels the run context, which kills any local simulator processes.
// Jobs already accepted by a cluster scheduler are left alone.
package signalbroker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
)

var termSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

// New registers a channel for the given signals, or the termination signals if none are given.
// Release it with Stop.
func New(ctx context.Context, sigs ...os.Signal) chan os.Signal {
	ch := make(chan os.Signal, 1)

	if len(sigs) == 0 {
		sigs = termSignals
	}

	ctxlog.Debug(ctx, "creating signal broker", "signals", sigs)
	signal.Notify(ch, sigs...)

	return ch
}

// Stop stops signal delivery to ch.
func Stop(ch chan os.Signal) {
	signal.Stop(ch)
}
