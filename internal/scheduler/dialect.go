// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dialect names a scheduler command line family.
type Dialect string

const (
	// SGE is Sun/Univa/Son of Grid Engine: qsub, qstat.
	SGE Dialect = "sge"
	// PBS is PBS Pro / Torque: qsub, qstat.
	PBS Dialect = "pbs"
	// Slurm is sbatch, squeue.
	Slurm Dialect = "slurm"
)

// Dialects lists the supported dialects.
var Dialects = []Dialect{SGE, PBS, Slurm}

type dialectSpec struct {
	submitCmd       string
	arrayArgs       func(n int) []string
	taskVar         string
	directivePrefix string
	jobNameArgs     func(name string) string
	statusCmd       string
	statusArgs      func(user string) []string
	jobID           *regexp.Regexp
}

var specs = map[Dialect]dialectSpec{
	SGE: {
		submitCmd:       "qsub",
		arrayArgs:       func(n int) []string { return []string{"-t", "1-" + strconv.Itoa(n)} },
		taskVar:         "SGE_TASK_ID",
		directivePrefix: "#$",
		jobNameArgs:     func(name string) string { return "-N " + name },
		statusCmd:       "qstat",
		statusArgs:      func(user string) []string { return []string{"-u", user} },
		jobID:           regexp.MustCompile(`Your job(?:-array)? (\d+)`),
	},
	PBS: {
		submitCmd:       "qsub",
		arrayArgs:       func(n int) []string { return []string{"-J", "1-" + strconv.Itoa(n)} },
		taskVar:         "PBS_ARRAY_INDEX",
		directivePrefix: "#PBS",
		jobNameArgs:     func(name string) string { return "-N " + name },
		statusCmd:       "qstat",
		statusArgs:      func(user string) []string { return []string{"-u", user} },
		jobID:           regexp.MustCompile(`^\s*(\d+)`),
	},
	Slurm: {
		submitCmd:       "sbatch",
		arrayArgs:       func(n int) []string { return []string{"--array=1-" + strconv.Itoa(n)} },
		taskVar:         "SLURM_ARRAY_TASK_ID",
		directivePrefix: "#SBATCH",
		jobNameArgs:     func(name string) string { return "--job-name=" + name },
		statusCmd:       "squeue",
		statusArgs:      func(user string) []string { return []string{"-h", "-u", user, "-o", "%i"} },
		jobID:           regexp.MustCompile(`Submitted batch job (\d+)`),
	},
}

// ParseDialect converts a configuration value to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := specs[d]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, s)
	}

	return d, nil
}

// TaskIndexVar is the environment variable the scheduler sets to the array task index.
func (d Dialect) TaskIndexVar() string {
	return specs[d].taskVar
}

// DirectivePrefix is the script comment prefix the scheduler reads options from.
func (d Dialect) DirectivePrefix() string {
	return specs[d].directivePrefix
}

// Directive renders one script header line, e.g. "#$ -l h_rt=1:00:00".
func (d Dialect) Directive(option string) string {
	return specs[d].directivePrefix + " " + strings.TrimSpace(option)
}

// JobNameDirective renders the header line naming the job.
func (d Dialect) JobNameDirective(name string) string {
	return d.Directive(specs[d].jobNameArgs(name))
}

// ParseJobID extracts the job identifier from submission output.
func (d Dialect) ParseJobID(out string) (string, error) {
	m := specs[d].jobID.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrNoJobID, strings.TrimSpace(out))
	}

	return m[1], nil
}

// ParseStatus returns the job id of every job line in a status listing,
// one entry per line, so array tasks of one job repeat its id.
// Header and separator lines carry no leading digits and are skipped.
func ParseStatus(out string) []string {
	var ids []string

	for line := range strings.Lines(out) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if id := leadingDigits(fields[0]); id != "" {
			ids = append(ids, id)
		}
	}

	return ids
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	return s[:end]
}
