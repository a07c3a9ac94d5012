// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
)

// Watch consumes signals until ctx is done or the channel is closed.
// The first signal is logged; the second calls cancel and returns.
func Watch(ctx context.Context, sigCh <-chan os.Signal, cancel context.CancelFunc) {
	received := 0

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			received++

			if received > 1 {
				ctxlog.Warn(ctx, "received second signal, cancelling run", "signal", sig.String())
				cancel()

				return
			}

			ctxlog.Warn(ctx, "received signal, send again to cancel the run", "signal", sig.String())
		}
	}
}
