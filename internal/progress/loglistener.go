// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"

	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
)

// LogListener writes events to the logger carried in ctx.
// Stage boundaries log at info, unit and poll events at debug and failures at warn.
func LogListener(ctx context.Context) Listener {
	logger := ctxlog.Logger(ctx)

	return ListenerFunc(func(e Event) {
		args := []any{"stage", string(e.Stage), "event", e.Type.String()}
		if e.Index > 0 {
			args = append(args, "index", e.Index)
		}

		switch e.Type {
		case EventStageStarted:
			logger.Info(e.Message, args...)
		case EventStageCompleted:
			logger.Info(e.Message, append(args, "duration", e.Data.Duration.String(), "count", e.Data.Count)...)
		case EventStageFailed:
			logger.Warn(e.Message, append(args, "error", e.Data.Error)...)
		case EventUnitFailed:
			logger.Warn(e.Message, append(args, "exitCode", e.Data.ExitCode, "error", e.Data.Error)...)
		case EventPoll:
			logger.Debug(e.Message, append(args, "outstanding", e.Data.Outstanding)...)
		default:
			logger.Debug(e.Message, args...)
		}
	})
}
