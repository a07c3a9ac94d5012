// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package paramgen expands one simulator parameter template into one parameter file per job.
//
// Template lines whose trimmed text starts with a recognised directive keyword are
// replaced with "key = value"; every other line is copied verbatim. The directive
// keys are padded to a fixed column so the rendered files line up the way the
// simulator's own example files do.
package paramgen
