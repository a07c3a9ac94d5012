// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package history implements the history command, which lists journalled runs.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/TylerBrock/colorjson"
	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/cmdutil"
	"github.com/ucl-sgnl/myriad-utils/internal/color"
	"github.com/ucl-sgnl/myriad-utils/internal/journal"
	"github.com/ucl-sgnl/myriad-utils/internal/monitor"
	"github.com/urfave/cli/v3"
)

const (
	journalFlag = "journal"
	limitFlag   = "limit"
	jsonFlag    = "json"

	defaultLimit = 20
)

var (
	// ErrNoJournal is returned when no journal path is given.
	ErrNoJournal = errors.New("no journal path: set --journal or MYRIAD_JOURNAL")
	// ErrInvalidLimit is returned for a limit below one.
	ErrInvalidLimit = errors.New("limit must be at least 1")
	// ErrWriteHistory is returned when the listing cannot be written.
	ErrWriteHistory = errors.New("cannot write history")
)

// HistoryCmd prints the most recent runs recorded in the journal.
var HistoryCmd = &cli.Command{
	Name:  "history",
	Usage: "List recent runs recorded in the journal",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      journalFlag,
			Usage:     "Path of the journal database",
			Sources:   cli.EnvVars("MYRIAD_JOURNAL"),
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:    cmdutil.MissionFlag,
			Aliases: []string{"m"},
			Usage:   "Only list runs of this mission",
		},
		&cli.IntFlag{
			Name:  limitFlag,
			Usage: "Maximum number of runs to list",
			Value: defaultLimit,
		},
		&cli.BoolFlag{
			Name:  jsonFlag,
			Usage: "Print the runs as JSON",
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String(journalFlag)
	if path == "" {
		return cmdutil.Fail(ctx, "cannot list history", ErrNoJournal)
	}

	limit := cmd.Int(limitFlag)
	if limit < 1 {
		return cmdutil.Fail(ctx, "cannot list history", ErrInvalidLimit)
	}

	j, err := journal.Open(ctx, path)
	if err != nil {
		return cmdutil.Fail(ctx, "cannot open journal", err)
	}

	defer j.Close() //nolint:errcheck

	runs, err := j.Recent(ctx, cmd.String(cmdutil.MissionFlag), limit)
	if err != nil {
		return cmdutil.Fail(ctx, "cannot read journal", err)
	}

	w := cmdutil.Writer(cmd)

	if cmd.Bool(jsonFlag) {
		err = WriteJSON(w, runs, color.Enabled())
	} else {
		err = WriteTable(w, runs)
	}

	if err != nil {
		return cmdutil.Fail(ctx, "cannot list history", err)
	}

	return nil
}

// WriteTable writes one line per run, newest first.
func WriteTable(w io.Writer, runs []*journal.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return joinWrite(err)
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "%-5s %-16s %-8s %-20s %-8s %-9s %s\n",
		"ID", "MISSION", "BACKEND", "SUBMITTED", "UNITS", "STATE", "CHECK")

	for _, r := range runs {
		fmt.Fprintf(&sb, "%-5d %-16s %-8s %-20s %-8d %-9s %s\n",
			r.ID, r.Mission, r.Backend, r.SubmittedAt.Local().Format(time.DateTime), r.Units,
			stateText(r.State), checkText(r.Report))
	}

	_, err := io.WriteString(w, sb.String())

	return joinWrite(err)
}

// WriteJSON writes the runs as an indented JSON array, coloured when colour is true.
func WriteJSON(w io.Writer, runs []*journal.Run, colour bool) error {
	b, err := json.Marshal(runs)
	if err != nil {
		return joinWrite(err)
	}

	var generic []any
	if err := json.Unmarshal(b, &generic); err != nil {
		return joinWrite(err)
	}

	f := colorjson.NewFormatter()
	f.Indent = 2
	f.DisabledColor = !colour

	out, err := f.Marshal(generic)
	if err != nil {
		return joinWrite(err)
	}

	_, err = fmt.Fprintf(w, "%s\n", out)

	return joinWrite(err)
}

func stateText(s monitor.State) string {
	switch s {
	case monitor.StateDone:
		return color.Colorize(fmt.Sprintf("%-9s", s), color.FgGreen)
	case monitor.StateTimeout:
		return color.Colorize(fmt.Sprintf("%-9s", s), color.FgRed)
	default:
		return fmt.Sprintf("%-9s", s)
	}
}

func checkText(r *journal.Report) string {
	if r == nil {
		return "-"
	}

	return fmt.Sprintf("%s %d/%d present, %d malformed", color.Status(r.OK), r.Present, r.Expected, r.Anomalies)
}

func joinWrite(err error) error {
	if err == nil {
		return nil
	}

	return errors.Join(ErrWriteHistory, err)
}
