// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package perunit

import "github.com/ucl-sgnl/myriad-utils/internal/backendregistry"

func init() {
	backendregistry.Register(Name, New)
}
