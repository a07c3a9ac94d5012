// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package batcherr holds the error classes shared by every pipeline stage.
//
// Stages join one of these sentinels with the underlying cause so callers can
// decide with errors.Is whether a failure is fatal for the mission run.
// Per-unit failures are never represented here: they surface as missing or
// malformed artifacts in the validation report.
package batcherr

import "errors"

var (
	// ErrConfiguration is returned for bad or missing configuration, including an unreadable template.
	// It always aborts the run before anything is submitted.
	ErrConfiguration = errors.New("configuration error")
	// ErrIO is returned when a stage cannot write the files it owns.
	ErrIO = errors.New("i/o error")
	// ErrSubmission is returned when the execution backend rejects a submission.
	ErrSubmission = errors.New("submission error")
)

// IsFatal reports whether err belongs to a class that must abort the mission run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrIO) ||
		errors.Is(err, ErrSubmission)
}
