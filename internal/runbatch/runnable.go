// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
)

// Runnable is something that can be run as part of a batch: a single process or a nested batch.
type Runnable interface {
	// Run executes the command or batch and returns the results.
	// It must stop any spawned process when the context is cancelled.
	Run(context.Context) Results
	// GetLabel returns the label or description of the command or batch.
	GetLabel() string
	// GetIndex returns the work unit index the runnable belongs to, 0 if none.
	GetIndex() int
}
