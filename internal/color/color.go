// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Code is an ANSI select-graphic-rendition code.
type Code int

const (
	// NoColor is the environment variable that disables color output.
	NoColor = "NO_COLOR"
	// ForceColor is the environment variable that forces color output.
	ForceColor = "FORCE_COLOR"

	reset  = "\033[0m"
	prefix = "\033["
	suffix = "m"
)

// Text attributes.
const (
	Reset Code = 0
	Bold  Code = 1
	Faint Code = 2
)

// Foreground colours.
const (
	FgRed Code = iota + 31
	FgGreen
	FgYellow
	FgBlue
	FgMagenta
	FgCyan
	FgWhite
)

// Hi-intensity foreground colours.
const (
	FgHiRed Code = iota + 91
	FgHiGreen
	FgHiYellow
	FgHiBlue
	FgHiMagenta
	FgHiCyan
	FgHiWhite
)

var enabled = isColorCapable()

// Enabled reports whether Colorize emits escape codes in this process.
func Enabled() bool {
	return enabled
}

// Colorize wraps str in the given codes when colour is enabled, and returns it unchanged otherwise.
func Colorize(str string, codes ...Code) string {
	if !enabled {
		return str
	}

	return Wrap(str, codes...)
}

// Wrap wraps str in the given codes and a trailing reset, regardless of Enabled.
func Wrap(str string, codes ...Code) string {
	if len(codes) == 0 {
		return str
	}

	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(int(c))
	}

	var sb strings.Builder

	sb.Grow(len(str) + len(prefix) + len(suffix) + len(reset) + 3*len(codes))
	sb.WriteString(prefix)
	sb.WriteString(strings.Join(parts, ";"))
	sb.WriteString(suffix)
	sb.WriteString(str)
	sb.WriteString(reset)

	return sb.String()
}

// Status renders a pass/fail marker for report summaries.
func Status(ok bool) string {
	if ok {
		return Colorize("✓", FgGreen)
	}

	return Colorize("✗", Bold, FgRed)
}

func isColorCapable() bool {
	if os.Getenv(NoColor) != "" {
		return false
	}

	if os.Getenv(ForceColor) != "" {
		return true
	}

	return term.IsTerminal(int(os.Stdout.Fd()))
}
