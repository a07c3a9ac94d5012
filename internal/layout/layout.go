// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package layout defines where every stage of a mission run reads and writes.
//
// All stages recompute file names from the mission directory and a job index;
// nothing is handed between stages except these paths. PadWidth is the one
// place the zero-padding of those names is defined.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	// PadWidth is the zero-padded width of the job index in every per-job file name.
	PadWidth = 5

	spiralPointsDir   = "spiralPoints"
	outputFilesDir    = "outputFiles"
	paramFilesDir     = "paramFiles"
	paramFilePrefix   = "params"
	outputFilePrefix  = "output"
	fileSuffix        = ".txt"
	combinedFileName  = "combined_output.txt"
	arrayJobFileName  = "array_job.sh"
	unitScriptPrefix  = "job_script_"
	scriptSuffix      = ".sh"
	sevenFiveFive     = 0o755
	defaultScratchDir = "Scratch"
)

var (
	// ErrEmptyMission is returned when a layout is built without a mission id.
	ErrEmptyMission = errors.New("mission id must not be empty")
	// ErrCreateDir is returned when a mission directory cannot be created.
	ErrCreateDir = errors.New("failed to create mission directory")
	// ErrCleanDir is returned when the output directory cannot be emptied.
	ErrCleanDir = errors.New("failed to clean output directory")
)

// Layout is the directory layout of one mission under a scratch root:
//
//	<scratch-root>/<mission-id>/spiralPoints/{outputFiles,paramFiles}/
type Layout struct {
	ScratchRoot string
	Mission     string
}

// New returns the layout for mission under scratchRoot.
// An empty scratchRoot defaults to "Scratch", relative to the working directory.
func New(scratchRoot, mission string) (Layout, error) {
	if mission == "" {
		return Layout{}, ErrEmptyMission
	}

	if scratchRoot == "" {
		scratchRoot = defaultScratchDir
	}

	return Layout{ScratchRoot: scratchRoot, Mission: mission}, nil
}

// FormatIndex renders a job index with the shared zero padding.
func FormatIndex(i int) string {
	return fmt.Sprintf("%0*d", PadWidth, i)
}

// ParamFileName returns the parameter file name for job index i, e.g. params00001.txt.
func ParamFileName(i int) string {
	return paramFilePrefix + FormatIndex(i) + fileSuffix
}

// OutputFileName returns the artifact file name for job index i, e.g. output00001.txt.
func OutputFileName(i int) string {
	return outputFilePrefix + FormatIndex(i) + fileSuffix
}

// MissionDir is <scratch-root>/<mission-id>.
func (l Layout) MissionDir() string {
	return filepath.Join(l.ScratchRoot, l.Mission)
}

// BaseDir is <scratch-root>/<mission-id>/spiralPoints.
func (l Layout) BaseDir() string {
	return filepath.Join(l.MissionDir(), spiralPointsDir)
}

// OutputDir is the directory the simulator writes artifacts to.
func (l Layout) OutputDir() string {
	return filepath.Join(l.BaseDir(), outputFilesDir)
}

// ParamDir is the directory the generator writes parameter sets to.
func (l Layout) ParamDir() string {
	return filepath.Join(l.BaseDir(), paramFilesDir)
}

// ParamPrefix is the output prefix handed to the generator.
// Appending FormatIndex(i) and ".txt" yields ParamPath(i).
func (l Layout) ParamPrefix() string {
	return filepath.Join(l.ParamDir(), paramFilePrefix)
}

// OutputPrefix is the artifact equivalent of ParamPrefix.
func (l Layout) OutputPrefix() string {
	return filepath.Join(l.OutputDir(), outputFilePrefix)
}

// ParamPath returns the parameter file path for job index i.
func (l Layout) ParamPath(i int) string {
	return filepath.Join(l.ParamDir(), ParamFileName(i))
}

// OutputPath returns the artifact path for job index i.
func (l Layout) OutputPath(i int) string {
	return filepath.Join(l.OutputDir(), OutputFileName(i))
}

// CombinedPath is where the aggregator writes the combined dataset.
func (l Layout) CombinedPath() string {
	return filepath.Join(l.OutputDir(), combinedFileName)
}

// ArrayJobScriptPath is where the array backend writes its single job script.
func (l Layout) ArrayJobScriptPath() string {
	return filepath.Join(l.BaseDir(), arrayJobFileName)
}

// UnitJobScriptPath is the temporary script used to submit job i on its own.
func (l Layout) UnitJobScriptPath(i int) string {
	return filepath.Join(l.BaseDir(), unitScriptPrefix+FormatIndex(i)+scriptSuffix)
}

// Ensure creates the parameter and output directories if they do not exist.
func (l Layout) Ensure(fs afero.Fs) error {
	for _, dir := range []string{l.OutputDir(), l.ParamDir()} {
		if err := fs.MkdirAll(dir, sevenFiveFive); err != nil {
			return errors.Join(ErrCreateDir, fmt.Errorf("%s: %w", dir, err))
		}
	}

	return nil
}

// Clean removes everything inside the output directory, leaving the directory itself.
// Stale artifacts from an earlier run would otherwise be counted as present.
func (l Layout) Clean(fs afero.Fs) error {
	entries, err := afero.ReadDir(fs, l.OutputDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return errors.Join(ErrCleanDir, err)
	}

	for _, e := range entries {
		if err := fs.RemoveAll(filepath.Join(l.OutputDir(), e.Name())); err != nil {
			return errors.Join(ErrCleanDir, err)
		}
	}

	return nil
}
