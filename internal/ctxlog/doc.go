// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a structured logger in a context.Context.
//
// Every pipeline stage logs through Logger(ctx), so the CLI decides once
// whether output is the pretty console format or JSON lines for batch logs,
// and at which level.
//
// The default level comes from an environment variable derived from the
// executable name: for "myriad" it is MYRIAD_LOG_LEVEL. Accepted values are
// DEBUG, INFO, WARN and ERROR; anything else means WARN.
package ctxlog
