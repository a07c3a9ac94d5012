// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ucl-sgnl/myriad-utils/internal/color"
)

// OutputOptions controls what is included in the output.
type OutputOptions struct {
	IncludeStdOut      bool // Whether to include stdout in the output
	IncludeStdErr      bool // Whether to include stderr in the output
	ShowSuccessDetails bool // Whether to list successful commands too
}

// DefaultOutputOptions returns a default set of output options.
func DefaultOutputOptions() *OutputOptions {
	return &OutputOptions{
		IncludeStdOut:      false,
		IncludeStdErr:      true,
		ShowSuccessDetails: false,
	}
}

// WriteResults writes a status tree of results to w.
func WriteResults(w io.Writer, results Results, options *OutputOptions) error {
	if options == nil {
		options = DefaultOutputOptions()
	}

	for _, r := range results {
		if err := writeResultWithIndent(w, r, "", options); err != nil {
			return err
		}
	}

	return nil
}

func writeResultWithIndent(w io.Writer, r *Result, indent string, options *OutputOptions) error {
	failed := r.Failed()
	if len(r.Children) > 0 {
		failed = r.Children.HasError()
	}

	if !failed && !options.ShowSuccessDetails && indent != "" {
		return nil
	}

	var statusStr string

	switch {
	case r.Status == ResultStatusSkipped:
		statusStr = color.Colorize("~", color.FgYellow)
	case failed:
		statusStr = color.Status(false)
	case r.Status == ResultStatusSuccess:
		statusStr = color.Status(true)
	default:
		statusStr = color.Colorize("?", color.FgWhite)
	}

	label := r.Label
	if label == "" {
		label = "[unnamed]"
	}

	line := fmt.Sprintf("%s%s %s", indent, statusStr, label)
	if r.ExitCode != 0 && len(r.Children) == 0 {
		line += fmt.Sprintf(" (exit code: %d)", r.ExitCode)
	}

	if _, err := fmt.Fprintln(w, line); err != nil {
		return err //nolint:wrapcheck
	}

	if r.Error != nil && !errors.Is(r.Error, ErrResultChildrenHasError) {
		if _, err := fmt.Fprintf(w, "%s  %s %s\n", indent, color.Colorize("➜ Error:", color.FgRed), r.Error.Error()); err != nil {
			return err //nolint:wrapcheck
		}
	}

	showDetails := (failed || options.ShowSuccessDetails) && len(r.Children) == 0

	if showDetails && options.IncludeStdOut && len(r.StdOut) > 0 {
		fmt.Fprintf(w, "%s  ➜ Output:\n%s", indent, formatOutput(r.StdOut, indent+"     ")) // nolint:errcheck
	}

	if showDetails && options.IncludeStdErr && len(r.StdErr) > 0 {
		fmt.Fprintf(w, "%s  %s\n%s", indent, // nolint:errcheck
			color.Colorize("➜ Error Output:", color.FgHiRed),
			formatOutput(r.StdErr, indent+"     "))
	}

	for _, child := range r.Children {
		if err := writeResultWithIndent(w, child, indent+"  ", options); err != nil {
			return err
		}
	}

	return nil
}

// formatOutput indents every non-empty line of output.
func formatOutput(output []byte, indent string) string {
	sb := strings.Builder{}
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	sb.Grow(len(output) + len(lines)*len(indent))

	for _, line := range lines {
		if line == "" {
			sb.WriteString("\n")
			continue
		}

		sb.WriteString(indent)
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}
