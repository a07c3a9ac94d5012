// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package monitor waits for submitted scheduler jobs to leave the queue.
//
// The wait is a sleep-then-poll loop bounded by a maximum duration. A failed
// status query is logged and retried on the next tick. Expiry yields TIMEOUT,
// which callers treat as a signal to validate whatever has been produced.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/ucl-sgnl/myriad-utils/internal/backends"
	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
	"github.com/ucl-sgnl/myriad-utils/internal/progress"
)

// State is the monitor state.
type State string

const (
	// StateRunning means jobs may still be outstanding.
	StateRunning State = "RUNNING"
	// StateDone means the status query reported nothing outstanding.
	StateDone State = "DONE"
	// StateTimeout means the maximum wait elapsed first.
	StateTimeout State = "TIMEOUT"
)

const (
	// DefaultInterval is the time between status queries.
	DefaultInterval = 30 * time.Second
	// DefaultMaxWait bounds the whole wait.
	DefaultMaxWait = 72 * time.Hour
)

// ErrNilReceipt is returned when Wait is called without a dispatch receipt.
var ErrNilReceipt = errors.New("no dispatch receipt to wait for")

// StatusQuerier counts outstanding jobs. scheduler.Client satisfies it.
type StatusQuerier interface {
	Outstanding(ctx context.Context, ids []string) (int, error)
}

// Outcome is the terminal result of a wait.
type Outcome struct {
	State       State
	Polls       int
	Elapsed     time.Duration
	Outstanding int // Jobs outstanding at the last successful poll
}

// Monitor polls a StatusQuerier.
type Monitor struct {
	Interval time.Duration
	MaxWait  time.Duration
	Status   StatusQuerier
	Reporter progress.Reporter
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		m.Interval = d
	}
}

// WithMaxWait sets the maximum wait.
func WithMaxWait(d time.Duration) Option {
	return func(m *Monitor) {
		m.MaxWait = d
	}
}

// WithReporter sets the progress reporter for poll events.
func WithReporter(r progress.Reporter) Option {
	return func(m *Monitor) {
		m.Reporter = r
	}
}

// New creates a Monitor with the default interval and maximum wait.
func New(status StatusQuerier, opts ...Option) *Monitor {
	m := &Monitor{
		Interval: DefaultInterval,
		MaxWait:  DefaultMaxWait,
		Status:   status,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Wait blocks until the receipt's jobs are done, the maximum wait elapses,
// or ctx is cancelled. Synchronous receipts are done on arrival.
// When the receipt carries job ids only those jobs count as outstanding.
func (m *Monitor) Wait(ctx context.Context, receipt *backends.Receipt) (Outcome, error) {
	if receipt == nil {
		return Outcome{State: StateRunning}, ErrNilReceipt
	}

	if receipt.Synchronous {
		return Outcome{State: StateDone}, nil
	}

	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	maxWait := m.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	logger := ctxlog.Logger(ctx).With("jobIDs", receipt.JobIDs)
	logger.Info("waiting for jobs to complete", "interval", interval.String(), "maxWait", maxWait.String())

	start := time.Now()
	out := Outcome{State: StateRunning, Outstanding: -1}

	for {
		remaining := maxWait - time.Since(start)
		if remaining <= 0 {
			out.State = StateTimeout
			out.Elapsed = time.Since(start)
			logger.Warn("maximum wait elapsed with jobs outstanding", "polls", out.Polls, "outstanding", out.Outstanding)

			return out, nil
		}

		timer := time.NewTimer(min(interval, remaining))

		select {
		case <-ctx.Done():
			timer.Stop()

			out.Elapsed = time.Since(start)

			return out, ctx.Err()
		case <-timer.C:
		}

		n, err := m.Status.Outstanding(ctx, receipt.JobIDs)
		out.Polls++

		event := progress.Event{
			Stage:   progress.StageMonitor,
			Type:    progress.EventPoll,
			Message: "polled scheduler",
			Data:    progress.EventData{Outstanding: n},
		}

		if err != nil {
			event.Data.Outstanding = -1
			event.Data.Error = err
			progress.Emit(m.Reporter, event)

			if ctx.Err() != nil {
				out.Elapsed = time.Since(start)
				return out, ctx.Err()
			}

			logger.Warn("status query failed, retrying", "error", err)

			continue
		}

		progress.Emit(m.Reporter, event)

		out.Outstanding = n

		if n == 0 {
			out.State = StateDone
			out.Elapsed = time.Since(start)
			logger.Info("all jobs finished", "polls", out.Polls, "elapsed", out.Elapsed.Round(time.Second).String())

			return out, nil
		}

		logger.Debug("jobs outstanding", "outstanding", n)
	}
}
