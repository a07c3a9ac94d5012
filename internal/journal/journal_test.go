// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucl-sgnl/myriad-utils/internal/backends"
	"github.com/ucl-sgnl/myriad-utils/internal/monitor"
	"github.com/ucl-sgnl/myriad-utils/internal/validate"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j
}

func TestSubmissionOutcomeReportRoundTrip(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)

	submitted := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := j.RecordSubmission(ctx, "m1", &backends.Receipt{
		Backend:     "array",
		JobIDs:      []string{"4242"},
		Units:       4,
		SubmittedAt: submitted,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	require.NoError(t, j.RecordOutcome(ctx, "m1", monitor.Outcome{
		State:   monitor.StateDone,
		Polls:   3,
		Elapsed: 90 * time.Second,
	}))

	require.NoError(t, j.RecordReport(ctx, "m1", &validate.Report{
		Expected:     4,
		Present:      3,
		Missing:      []int{3},
		MissingFiles: []string{"output00003.txt"},
	}))

	run, err := j.Latest(ctx, "m1")
	require.NoError(t, err)

	assert.Equal(t, id, run.ID)
	assert.Equal(t, "array", run.Backend)
	assert.Equal(t, []string{"4242"}, run.JobIDs)
	assert.Empty(t, run.Failed)
	assert.Equal(t, 4, run.Units)
	assert.False(t, run.Synchronous)
	assert.True(t, submitted.Equal(run.SubmittedAt))
	assert.Equal(t, monitor.StateDone, run.State)
	assert.Equal(t, 3, run.Polls)
	assert.Equal(t, 90*time.Second, run.Elapsed)

	require.NotNil(t, run.Report)
	assert.Equal(t, 4, run.Report.Expected)
	assert.Equal(t, 3, run.Report.Present)
	assert.Equal(t, []int{3}, run.Report.Missing)
	assert.False(t, run.Report.OK)
}

func TestSynchronousReceiptIsDone(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)

	_, err := j.RecordSubmission(ctx, "m1", &backends.Receipt{
		Backend:     "local",
		Units:       2,
		Failed:      []int{2},
		Synchronous: true,
		SubmittedAt: time.Now(),
	})
	require.NoError(t, err)

	run, err := j.Latest(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, monitor.StateDone, run.State)
	assert.Equal(t, []int{2}, run.Failed)
	assert.True(t, run.Synchronous)
	assert.Nil(t, run.Report)
}

func TestRecentOrderingAndFilter(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)

	for _, m := range []string{"a", "b", "a"} {
		_, err := j.RecordSubmission(ctx, m, &backends.Receipt{Backend: "array", Units: 1, SubmittedAt: time.Now()})
		require.NoError(t, err)
	}

	all, err := j.Recent(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Greater(t, all[0].ID, all[1].ID, "newest first")

	onlyA, err := j.Recent(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)

	for _, r := range onlyA {
		assert.Equal(t, "a", r.Mission)
	}

	one, err := j.Recent(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestNoRun(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)

	_, err := j.Latest(ctx, "ghost")
	require.ErrorIs(t, err, ErrNoRun)

	require.ErrorIs(t, j.RecordOutcome(ctx, "ghost", monitor.Outcome{State: monitor.StateDone}), ErrNoRun)

	// a report without a run is still stored
	require.NoError(t, j.RecordReport(ctx, "ghost", &validate.Report{Expected: 1, Present: 1}))
}

func TestReopenKeepsHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = j.RecordSubmission(ctx, "m1", &backends.Receipt{Backend: "array", Units: 1, SubmittedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(ctx, path)
	require.NoError(t, err)

	defer j.Close() //nolint:errcheck

	runs, err := j.Recent(ctx, "m1", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpenBadPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	require.ErrorIs(t, err, ErrOpen)
}
