// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package arrayjob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucl-sgnl/myriad-utils/internal/backendregistry"
	"github.com/ucl-sgnl/myriad-utils/internal/backends"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/layout"
	"github.com/ucl-sgnl/myriad-utils/internal/scheduler"
)

type submitted struct {
	name string
	args []string
}

func newSettings(t *testing.T, dialect, out string, execErr error, calls *[]submitted) backends.Settings {
	t.Helper()

	client, err := scheduler.New(dialect, scheduler.WithUser("tester"),
		scheduler.WithExec(func(_ context.Context, name string, args ...string) ([]byte, error) {
			*calls = append(*calls, submitted{name: name, args: args})
			return []byte(out), execErr
		}))
	require.NoError(t, err)

	return backends.Settings{
		Fs:         afero.NewMemMapFs(),
		Layout:     layout.Layout{ScratchRoot: "/scratch", Mission: "m1"},
		Simulator:  "/opt/srp/bin/srp_trr_classic",
		Scheduler:  client,
		JobName:    "srp_m1",
		Directives: []string{"-l h_rt=12:00:00"},
	}
}

func TestScriptSGE(t *testing.T) {
	var calls []submitted

	d, err := New(newSettings(t, "sge", "", nil, &calls))
	require.NoError(t, err)

	script, err := d.(*Dispatcher).Script("/home/m1/m1.txt")
	require.NoError(t, err)

	want := `#!/bin/bash
#$ -N srp_m1
#$ -l h_rt=12:00:00
IDX=$(printf "%05d" "${SGE_TASK_ID}")
exec /opt/srp/bin/srp_trr_classic /scratch/m1/spiralPoints/paramFiles/params"${IDX}.txt" /home/m1/m1.txt /scratch/m1/spiralPoints/outputFiles/output"${IDX}.txt"
`
	assert.Equal(t, want, string(script))
}

func TestScriptRelativeLayoutIsAbsolute(t *testing.T) {
	var calls []submitted

	wd, err := os.Getwd()
	require.NoError(t, err)

	s := newSettings(t, "sge", "", nil, &calls)
	s.Layout, err = layout.New("", "m1")
	require.NoError(t, err)
	s.Simulator = "bin/srp_trr_classic"

	d, err := New(s)
	require.NoError(t, err)

	script, err := d.(*Dispatcher).Script("m1/m1.txt")
	require.NoError(t, err)

	want := "exec " + filepath.Join(wd, "bin/srp_trr_classic") + " " +
		filepath.Join(wd, "Scratch/m1/spiralPoints/paramFiles/params") + `"${IDX}.txt" ` +
		filepath.Join(wd, "m1/m1.txt") + " " +
		filepath.Join(wd, "Scratch/m1/spiralPoints/outputFiles/output") + `"${IDX}.txt"` + "\n"
	assert.Contains(t, string(script), want)
}

func TestScriptSlurmQuotesPaths(t *testing.T) {
	var calls []submitted

	s := newSettings(t, "slurm", "", nil, &calls)
	s.Simulator = "/opt/my sim/srp"
	s.Directives = nil
	s.JobName = ""

	d, err := New(s)
	require.NoError(t, err)

	script, err := d.(*Dispatcher).Script("model.txt")
	require.NoError(t, err)
	assert.Contains(t, string(script), `"${SLURM_ARRAY_TASK_ID}"`)
	assert.Contains(t, string(script), `exec '/opt/my sim/srp' `)
	assert.NotContains(t, string(script), "#SBATCH")
}

func TestDispatch(t *testing.T) {
	var calls []submitted

	s := newSettings(t, "sge", `Your job-array 4242.1-3:1 ("srp_m1") has been submitted`, nil, &calls)

	d, err := New(s)
	require.NoError(t, err)

	units := s.Layout.WorkUnits(3, "/home/m1/m1.txt")

	receipt, err := d.Dispatch(context.Background(), units)
	require.NoError(t, err)

	assert.Equal(t, Name, receipt.Backend)
	assert.Equal(t, []string{"4242"}, receipt.JobIDs)
	assert.Equal(t, 3, receipt.Units)
	assert.False(t, receipt.Synchronous)
	assert.False(t, receipt.SubmittedAt.IsZero())

	require.Len(t, calls, 1, "one submission for the whole batch")
	assert.Equal(t, "qsub", calls[0].name)
	assert.Equal(t, []string{"-t", "1-3", s.Layout.ArrayJobScriptPath()}, calls[0].args)

	exists, err := afero.Exists(s.Fs, s.Layout.ArrayJobScriptPath())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDispatchRejected(t *testing.T) {
	var calls []submitted

	s := newSettings(t, "pbs", "", errors.New("qsub: Unauthorized Request"), &calls)

	d, err := New(s)
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), s.Layout.WorkUnits(2, "m"))
	require.ErrorIs(t, err, batcherr.ErrSubmission)
	assert.True(t, batcherr.IsFatal(err))
}

func TestDispatchUnwritableScript(t *testing.T) {
	var calls []submitted

	s := newSettings(t, "sge", "", nil, &calls)
	s.Fs = afero.NewReadOnlyFs(afero.NewMemMapFs())

	d, err := New(s)
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), s.Layout.WorkUnits(2, "m"))
	require.ErrorIs(t, err, batcherr.ErrIO)
	require.ErrorIs(t, err, backends.ErrWriteScript)
	assert.Empty(t, calls)
}

func TestDispatchNoUnits(t *testing.T) {
	var calls []submitted

	d, err := New(newSettings(t, "sge", "", nil, &calls))
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), nil)
	require.ErrorIs(t, err, backends.ErrNoUnits)
}

func TestNewValidation(t *testing.T) {
	_, err := New(backends.Settings{Simulator: "x"})
	require.ErrorIs(t, err, backends.ErrMissingScheduler)

	var calls []submitted

	s := newSettings(t, "sge", "", nil, &calls)
	s.Simulator = ""
	_, err = New(s)
	require.ErrorIs(t, err, backends.ErrMissingSimulator)
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, backendregistry.DefaultRegistry.Names(), Name)
}
