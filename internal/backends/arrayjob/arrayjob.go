// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package arrayjob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/spf13/afero"
	"github.com/ucl-sgnl/myriad-utils/internal/backends"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
	"github.com/ucl-sgnl/myriad-utils/internal/layout"
)

// Name is the registered backend name.
const Name = "array"

const sevenFiveFive = 0o755

var scriptTemplate = template.Must(template.New("array").Funcs(template.FuncMap{
	"quote": backends.ShellQuote,
}).Parse(`{{ .Header -}}
IDX=$(printf "%0{{ .Pad }}d" "${{ "{" }}{{ .TaskVar }}{{ "}" }}")
exec {{ quote .Simulator }} {{ quote .ParamPrefix }}"${IDX}.txt" {{ quote .ModelFile }} {{ quote .OutputPrefix }}"${IDX}.txt"
`))

type scriptData struct {
	Header       string
	Pad          int
	TaskVar      string
	Simulator    string
	ParamPrefix  string
	ModelFile    string
	OutputPrefix string
}

// Dispatcher writes one job script and submits it once for tasks 1..N.
type Dispatcher struct {
	settings backends.Settings
}

var _ backends.Dispatcher = (*Dispatcher)(nil)

// New creates an array job dispatcher.
func New(s backends.Settings) (backends.Dispatcher, error) {
	if s.Scheduler == nil {
		return nil, backends.ErrMissingScheduler
	}

	if s.Simulator == "" {
		return nil, backends.ErrMissingSimulator
	}

	if s.Fs == nil {
		s.Fs = afero.NewOsFs()
	}

	return &Dispatcher{settings: s}, nil
}

// Name implements backends.Dispatcher.
func (d *Dispatcher) Name() string {
	return Name
}

// Script renders the array job script with absolute paths. Every unit must share one model file.
func (d *Dispatcher) Script(modelFile string) ([]byte, error) {
	var buf bytes.Buffer

	err := scriptTemplate.Execute(&buf, scriptData{
		Header:       backends.Header(d.settings),
		Pad:          layout.PadWidth,
		TaskVar:      d.settings.Scheduler.Dialect.TaskIndexVar(),
		Simulator:    backends.Executable(d.settings.Simulator),
		ParamPrefix:  backends.AbsPath(d.settings.Layout.ParamPrefix()),
		ModelFile:    backends.AbsPath(modelFile),
		OutputPrefix: backends.AbsPath(d.settings.Layout.OutputPrefix()),
	})
	if err != nil {
		return nil, fmt.Errorf("render array job script: %w", err)
	}

	return buf.Bytes(), nil
}

// Dispatch implements backends.Dispatcher. Units must be 1..N in order:
// the script derives paths from the task index, not from the unit list.
func (d *Dispatcher) Dispatch(ctx context.Context, units []layout.WorkUnit) (*backends.Receipt, error) {
	if len(units) == 0 {
		return nil, errors.Join(batcherr.ErrConfiguration, backends.ErrNoUnits)
	}

	script, err := d.Script(units[0].ModelFile)
	if err != nil {
		return nil, errors.Join(batcherr.ErrConfiguration, err)
	}

	path := d.settings.Layout.ArrayJobScriptPath()
	if err := afero.WriteFile(d.settings.Fs, path, script, sevenFiveFive); err != nil {
		return nil, errors.Join(batcherr.ErrIO, backends.ErrWriteScript, err)
	}

	ctxlog.Debug(ctx, "wrote array job script", "path", path, "tasks", len(units))

	jobID, err := d.settings.Scheduler.SubmitArray(ctx, path, len(units))
	if err != nil {
		return nil, errors.Join(batcherr.ErrSubmission, err)
	}

	ctxlog.Info(ctx, "array job submitted", "jobID", jobID, "tasks", len(units))

	return &backends.Receipt{
		Backend:     Name,
		JobIDs:      []string{jobID},
		Units:       len(units),
		SubmittedAt: time.Now(),
	}, nil
}
