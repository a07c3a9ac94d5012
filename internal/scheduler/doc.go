// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package scheduler wraps the command line of a cluster batch scheduler.
// Three dialects are supported: Grid Engine (sge), PBS Pro (pbs) and Slurm (slurm).
package scheduler
