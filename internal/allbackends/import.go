// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package allbackends imports every backend package so each registers itself.
package allbackends

import (
	// Import all backend packages to trigger their init() functions.
	_ "github.com/ucl-sgnl/myriad-utils/internal/backends/arrayjob"
	_ "github.com/ucl-sgnl/myriad-utils/internal/backends/localpool"
	_ "github.com/ucl-sgnl/myriad-utils/internal/backends/perunit"
)
