// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package backends

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/afero"
	"github.com/ucl-sgnl/myriad-utils/internal/layout"
	"github.com/ucl-sgnl/myriad-utils/internal/progress"
	"github.com/ucl-sgnl/myriad-utils/internal/scheduler"
)

var (
	// ErrMissingScheduler is returned when a scheduler backend is built without a scheduler client.
	ErrMissingScheduler = errors.New("backend requires a scheduler client")
	// ErrMissingSimulator is returned when no simulator executable is configured.
	ErrMissingSimulator = errors.New("simulator executable not set")
	// ErrNoUnits is returned when Dispatch is called with no work units.
	ErrNoUnits = errors.New("no work units to dispatch")
	// ErrWriteScript is returned when a job script cannot be written.
	ErrWriteScript = errors.New("failed to write job script")
)

// Dispatcher turns work units into simulator executions.
type Dispatcher interface {
	// Name returns the registered backend name.
	Name() string
	// Dispatch starts every unit. Asynchronous backends return once the
	// scheduler has accepted the work; synchronous ones return when all
	// units have exited. Rejection is an error; unit failures are not.
	Dispatch(ctx context.Context, units []layout.WorkUnit) (*Receipt, error)
}

// Receipt records what a dispatch did.
type Receipt struct {
	Backend     string    `json:"backend"`
	JobIDs      []string  `json:"job_ids,omitempty"`
	Units       int       `json:"units"`
	Failed      []int     `json:"failed,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	Synchronous bool      `json:"synchronous"`
}

// Settings carries everything a backend may need. Each backend reads only the fields it uses.
type Settings struct {
	Fs          afero.Fs
	Layout      layout.Layout
	Simulator   string
	Scheduler   *scheduler.Client
	JobName     string
	Directives  []string
	Parallelism int
	Reporter    progress.Reporter
}

// Factory builds a Dispatcher from settings.
type Factory func(s Settings) (Dispatcher, error)
