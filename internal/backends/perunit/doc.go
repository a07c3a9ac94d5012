// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package perunit submits one scheduler job per work unit, for schedulers
// without array job support. Each job script is temporary and removed once
// the scheduler has accepted it.
package perunit
