// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runbatch runs external processes, singly or on a bounded pool, and
// reports each outcome as a Result. A failing process is recorded in its
// Result and never stops the rest of the batch.
package runbatch
