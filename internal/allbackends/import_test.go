// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package allbackends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ucl-sgnl/myriad-utils/internal/backendregistry"
)

func TestAllBackendsRegistered(t *testing.T) {
	assert.Equal(t, []string{"array", "local", "perunit"}, backendregistry.New().Names())
}
