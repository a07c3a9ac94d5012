// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress carries pipeline progress events from the stages that
// produce them (generation, dispatch, monitoring, validation, aggregation) to
// listeners such as the log and the metrics collector.
package progress
