// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package localpool runs every work unit as a local subprocess on a bounded pool.
// Dispatch blocks until all units have exited. A failing unit is logged and
// recorded in the receipt; it never stops its siblings.
package localpool
