// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package backends

import (
	"path/filepath"
	"strings"
)

// ShellQuote quotes s for a POSIX shell.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}

	if strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./=:,+@%", r):
		return false
	}

	return true
}

// AbsPath resolves p against the working directory of the submitting process.
// Schedulers may start a job elsewhere (SGE and PBS default to $HOME), so every
// path written into a job script must be absolute. p is returned unchanged if
// the working directory cannot be determined.
func AbsPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}

	return abs
}

// Executable is AbsPath for a command: a bare name is left for PATH lookup.
func Executable(p string) string {
	if !strings.ContainsRune(p, filepath.Separator) {
		return p
	}

	return AbsPath(p)
}

// Header renders the interpreter line, the job name and each directive for a scheduler script.
func Header(s Settings) string {
	var sb strings.Builder

	sb.WriteString("#!/bin/bash\n")

	if s.Scheduler == nil {
		return sb.String()
	}

	if s.JobName != "" {
		sb.WriteString(s.Scheduler.Dialect.JobNameDirective(s.JobName))
		sb.WriteString("\n")
	}

	for _, d := range s.Directives {
		if strings.TrimSpace(d) == "" {
			continue
		}

		sb.WriteString(s.Scheduler.Dialect.Directive(d))
		sb.WriteString("\n")
	}

	return sb.String()
}
