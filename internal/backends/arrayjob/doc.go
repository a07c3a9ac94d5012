// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package arrayjob submits a whole mission as one scheduler array job.
// The job script rebuilds each unit's paths from the task index the
// scheduler injects, using the same zero-padding as the layout package.
package arrayjob
