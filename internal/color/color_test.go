// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsColorCapable(t *testing.T) {
	t.Setenv(NoColor, "1")
	assert.False(t, isColorCapable(), "NO_COLOR disables colour")

	t.Setenv(ForceColor, "1")
	assert.False(t, isColorCapable(), "NO_COLOR wins over FORCE_COLOR")

	t.Setenv(NoColor, "")
	assert.True(t, isColorCapable(), "FORCE_COLOR enables colour without a terminal")
}

func TestWrap(t *testing.T) {
	assert.Equal(t, "\033[1;31mfail\033[0m", Wrap("fail", Bold, FgRed))
	assert.Equal(t, "plain", Wrap("plain"))
}

func TestColorize(t *testing.T) {
	old := enabled
	t.Cleanup(func() { enabled = old })

	enabled = false
	assert.Equal(t, "ok", Colorize("ok", FgGreen))
	assert.Equal(t, "✓", Status(true))
	assert.Equal(t, "✗", Status(false))

	enabled = true
	assert.Equal(t, "\033[32mok\033[0m", Colorize("ok", FgGreen))
}
