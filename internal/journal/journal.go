// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package journal records mission runs in a SQLite database so separate
// invocations (submit, wait, check) can be correlated and reviewed later.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ucl-sgnl/myriad-utils/internal/backends"
	"github.com/ucl-sgnl/myriad-utils/internal/monitor"
	"github.com/ucl-sgnl/myriad-utils/internal/validate"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const driverName = "sqlite"

var (
	// ErrOpen is returned when the database cannot be opened or migrated.
	ErrOpen = errors.New("failed to open run journal")
	// ErrWrite is returned when a record cannot be stored.
	ErrWrite = errors.New("failed to write run journal")
	// ErrRead is returned when records cannot be loaded.
	ErrRead = errors.New("failed to read run journal")
	// ErrNoRun is returned when a mission has no recorded submission.
	ErrNoRun = errors.New("no recorded run for mission")
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    mission      TEXT    NOT NULL,
    backend      TEXT    NOT NULL,
    job_ids      TEXT    NOT NULL DEFAULT '[]',
    units        INTEGER NOT NULL,
    failed       TEXT    NOT NULL DEFAULT '[]',
    synchronous  INTEGER NOT NULL DEFAULT 0,
    submitted_at TEXT    NOT NULL,
    state        TEXT    NOT NULL DEFAULT 'RUNNING',
    polls        INTEGER NOT NULL DEFAULT 0,
    elapsed_ms   INTEGER NOT NULL DEFAULT 0,
    finished_at  TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_mission ON runs (mission, id);

CREATE TABLE IF NOT EXISTS reports (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id     INTEGER REFERENCES runs (id),
    mission    TEXT    NOT NULL,
    expected   INTEGER NOT NULL,
    present    INTEGER NOT NULL,
    missing    TEXT    NOT NULL DEFAULT '[]',
    anomalies  INTEGER NOT NULL,
    ok         INTEGER NOT NULL,
    checked_at TEXT    NOT NULL
);
`

// Journal is an open run journal.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Run is one recorded submission and what became of it.
type Run struct {
	ID          int64         `json:"id"`
	Mission     string        `json:"mission"`
	Backend     string        `json:"backend"`
	JobIDs      []string      `json:"job_ids"`
	Units       int           `json:"units"`
	Failed      []int         `json:"failed"`
	Synchronous bool          `json:"synchronous"`
	SubmittedAt time.Time     `json:"submitted_at"`
	State       monitor.State `json:"state"`
	Polls       int           `json:"polls"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Report      *Report       `json:"report,omitempty"`
}

// Report is the latest validation summary stored against a run.
type Report struct {
	Expected  int       `json:"expected"`
	Present   int       `json:"present"`
	Missing   []int     `json:"missing"`
	Anomalies int       `json:"anomalies"`
	OK        bool      `json:"ok"`
	CheckedAt time.Time `json:"checked_at"`
}

// Open opens (creating if needed) the journal at dsn, e.g. a file path or ":memory:".
func Open(ctx context.Context, dsn string) (*Journal, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrOpen, err)
	}

	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close() //nolint:errcheck
			return nil, errors.Join(ErrOpen, fmt.Errorf("%s: %w", p, err))
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck
		return nil, errors.Join(ErrOpen, err)
	}

	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close() //nolint:wrapcheck
}

// RecordSubmission stores a new run for mission and returns its id.
func (j *Journal) RecordSubmission(ctx context.Context, mission string, r *backends.Receipt) (int64, error) {
	jobIDs, _ := json.Marshal(nonNil(r.JobIDs))
	failed, _ := json.Marshal(nonNil(r.Failed))

	state := monitor.StateRunning
	if r.Synchronous {
		state = monitor.StateDone
	}

	res, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (mission, backend, job_ids, units, failed, synchronous, submitted_at, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		mission, r.Backend, string(jobIDs), r.Units, string(failed), r.Synchronous,
		r.SubmittedAt.UTC().Format(time.RFC3339Nano), string(state),
	)
	if err != nil {
		return 0, errors.Join(ErrWrite, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Join(ErrWrite, err)
	}

	return id, nil
}

// RecordOutcome stores the monitor outcome against the latest run of mission.
func (j *Journal) RecordOutcome(ctx context.Context, mission string, o monitor.Outcome) error {
	id, err := j.latestID(ctx, mission)
	if err != nil {
		return err
	}

	if _, err := j.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, polls = ?, elapsed_ms = ?, finished_at = ? WHERE id = ?`,
		string(o.State), o.Polls, o.Elapsed.Milliseconds(), j.now().UTC().Format(time.RFC3339Nano), id,
	); err != nil {
		return errors.Join(ErrWrite, err)
	}

	return nil
}

// RecordReport stores a validation summary, attached to the latest run of
// mission when there is one.
func (j *Journal) RecordReport(ctx context.Context, mission string, r *validate.Report) error {
	var runID sql.NullInt64

	id, err := j.latestID(ctx, mission)

	switch {
	case err == nil:
		runID = sql.NullInt64{Int64: id, Valid: true}
	case !errors.Is(err, ErrNoRun):
		return err
	}

	missing, _ := json.Marshal(nonNil(r.Missing))

	if _, err := j.db.ExecContext(ctx,
		`INSERT INTO reports (run_id, mission, expected, present, missing, anomalies, ok, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, mission, r.Expected, r.Present, string(missing), len(r.Anomalies), r.OK(),
		j.now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return errors.Join(ErrWrite, err)
	}

	return nil
}

// Latest returns the most recent run of mission, or ErrNoRun.
func (j *Journal) Latest(ctx context.Context, mission string) (*Run, error) {
	runs, err := j.Recent(ctx, mission, 1)
	if err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRun, mission)
	}

	return runs[0], nil
}

// Recent returns up to limit runs, newest first. An empty mission matches every mission.
func (j *Journal) Recent(ctx context.Context, mission string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, mission, backend, job_ids, units, failed, synchronous, submitted_at, state, polls, elapsed_ms
		   FROM runs
		  WHERE ? = '' OR mission = ?
		  ORDER BY id DESC
		  LIMIT ?`,
		mission, mission, limit,
	)
	if err != nil {
		return nil, errors.Join(ErrRead, err)
	}

	defer rows.Close() //nolint:errcheck

	var runs []*Run

	for rows.Next() {
		var (
			run                  Run
			jobIDs, failed, subm string
			state                string
			elapsed              int64
		)

		if err := rows.Scan(&run.ID, &run.Mission, &run.Backend, &jobIDs, &run.Units, &failed,
			&run.Synchronous, &subm, &state, &run.Polls, &elapsed); err != nil {
			return nil, errors.Join(ErrRead, err)
		}

		if err := json.Unmarshal([]byte(jobIDs), &run.JobIDs); err != nil {
			return nil, errors.Join(ErrRead, err)
		}

		if err := json.Unmarshal([]byte(failed), &run.Failed); err != nil {
			return nil, errors.Join(ErrRead, err)
		}

		run.SubmittedAt, _ = time.Parse(time.RFC3339Nano, subm)
		run.State = monitor.State(state)
		run.Elapsed = time.Duration(elapsed) * time.Millisecond
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrRead, err)
	}

	for _, run := range runs {
		if run.Report, err = j.latestReport(ctx, run.ID); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

func (j *Journal) latestReport(ctx context.Context, runID int64) (*Report, error) {
	var (
		r         Report
		missing   string
		checkedAt string
	)

	err := j.db.QueryRowContext(ctx,
		`SELECT expected, present, missing, anomalies, ok, checked_at
		   FROM reports WHERE run_id = ? ORDER BY id DESC LIMIT 1`, runID,
	).Scan(&r.Expected, &r.Present, &missing, &r.Anomalies, &r.OK, &checkedAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil //nolint:nilnil
	case err != nil:
		return nil, errors.Join(ErrRead, err)
	}

	if err := json.Unmarshal([]byte(missing), &r.Missing); err != nil {
		return nil, errors.Join(ErrRead, err)
	}

	r.CheckedAt, _ = time.Parse(time.RFC3339Nano, checkedAt)

	return &r, nil
}

func (j *Journal) latestID(ctx context.Context, mission string) (int64, error) {
	var id int64

	err := j.db.QueryRowContext(ctx,
		`SELECT id FROM runs WHERE mission = ? ORDER BY id DESC LIMIT 1`, mission,
	).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("%w: %s", ErrNoRun, mission)
	case err != nil:
		return 0, errors.Join(ErrRead, err)
	}

	return id, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
