// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
)

const (
	maxBufferSize = 8 * 1024 * 1024 // 8MB
)

var _ Runnable = (*OSCommand)(nil)

var (
	// ErrBufferOverflow is returned when the output exceeds the max size.
	ErrBufferOverflow = fmt.Errorf("output exceeds max size of %d bytes", maxBufferSize)
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToReadBuffer is returned when the buffer from the operating system pipe could not be read.
	ErrFailedToReadBuffer = errors.New("failed to read buffer")
	// ErrProcessKilled is returned when the process was killed because its context ended.
	ErrProcessKilled = errors.New("process killed: context done")
	// ErrFailedToCreatePipe is returned when the operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
)

// OSCommand runs one executable.
type OSCommand struct {
	*BaseCommand
	Args             []string // Arguments to the command, do not include the executable name itself.
	Path             string   // The command to run (e.g. executable full path).
	SuccessExitCodes []int    // Exit codes that indicate success, defaults to 0.
	Stdin            *os.File // Standard input for the process, nil for none.
}

// NewOSCommand creates an OSCommand for path with args.
func NewOSCommand(label string, index int, path string, args ...string) *OSCommand {
	return &OSCommand{
		BaseCommand: NewBaseCommand(label, index, "", nil),
		Path:        path,
		Args:        args,
	}
}

// Run implements the Runnable interface for OSCommand.
func (c *OSCommand) Run(ctx context.Context) Results {
	if c.BaseCommand == nil {
		c.BaseCommand = NewBaseCommand("", 0, "", nil)
	}

	logger := ctxlog.Logger(ctx).With("runnableType", "OSCommand", "label", c.Label)

	logger.Debug("command info", "path", c.Path, "cwd", c.Cwd, "args", c.Args)

	successCodes := c.SuccessExitCodes
	if successCodes == nil {
		successCodes = []int{0}
	}

	res := &Result{
		Label: c.Label,
		Index: c.Index,
	}

	fail := func(err error) Results {
		res.Error = err
		res.ExitCode = -1
		res.Status = ResultStatusError

		return Results{res}
	}

	if err := ctx.Err(); err != nil {
		res.Error = err
		res.ExitCode = -1
		res.Status = ResultStatusSkipped

		return Results{res}
	}

	env := os.Environ()
	for k, v := range c.Env {
		env = append(env, k+"="+v)
	}

	rOut, wOut, err := os.Pipe()
	if err != nil {
		return fail(errors.Join(ErrFailedToCreatePipe, err))
	}

	rErr, wErr, err := os.Pipe()
	if err != nil {
		_ = rOut.Close()
		_ = wOut.Close()

		return fail(errors.Join(ErrFailedToCreatePipe, err))
	}

	args := slices.Concat([]string{filepath.Base(c.Path)}, c.Args)
	startTime := time.Now()

	ps, err := os.StartProcess(c.Path, args, &os.ProcAttr{
		Dir:   c.Cwd,
		Env:   env,
		Files: []*os.File{c.Stdin, wOut, wErr},
	})

	// The child holds its own copies of the write ends.
	_ = wOut.Close()
	_ = wErr.Close()

	if err != nil {
		_ = rOut.Close()
		_ = rErr.Close()

		return fail(errors.Join(ErrCouldNotStartProcess, err))
	}

	logger.Debug("process started", "pid", ps.Pid)

	type readResult struct {
		b   []byte
		err error
	}

	outCh := make(chan readResult, 1)
	errCh := make(chan readResult, 1)

	// Drain both pipes while the process runs so a chatty child cannot block on a full pipe.
	go func() {
		b, err := readAllUpToMax(ctx, rOut, maxBufferSize)
		_ = rOut.Close()
		outCh <- readResult{b, err}
	}()

	go func() {
		b, err := readAllUpToMax(ctx, rErr, maxBufferSize)
		_ = rErr.Close()
		errCh <- readResult{b, err}
	}()

	done := make(chan struct{})
	watchdogDone := make(chan struct{})
	wasKilled := false

	go func() {
		defer close(watchdogDone)

		select {
		case <-ctx.Done():
			logger.Info("context done, killing process", "pid", ps.Pid)
			wasKilled = killPs(ctx, ps)
		case <-done:
		}
	}()

	state, psErr := ps.Wait()
	close(done)
	<-watchdogDone

	res.Duration = time.Since(startTime)
	res.ExitCode = state.ExitCode()
	res.Error = psErr

	out := <-outCh
	stderr := <-errCh
	res.StdOut = out.b
	res.StdErr = stderr.b

	switch {
	case wasKilled:
		res.Error = errors.Join(res.Error, ErrProcessKilled, ctx.Err())
		res.ExitCode = -1
		res.Status = ResultStatusError
	case res.Error == nil && slices.Contains(successCodes, res.ExitCode):
		res.Status = ResultStatusSuccess
	default:
		if res.ExitCode == 0 {
			res.ExitCode = -1
		}

		res.Status = ResultStatusError
	}

	if out.err != nil || stderr.err != nil {
		res.Error = errors.Join(res.Error, out.err, stderr.err)
	}

	logger.Debug("process finished",
		"exitCode", res.ExitCode,
		"status", res.Status.String(),
		"duration", res.Duration.String(),
	)

	return Results{res}
}

func readAllUpToMax(ctx context.Context, r io.Reader, maxBufferSize int64) ([]byte, error) {
	var buf bytes.Buffer

	n, err := io.CopyN(&buf, r, maxBufferSize+1)
	if err != nil && err != io.EOF {
		return buf.Bytes(), errors.Join(ErrFailedToReadBuffer, err)
	}

	if n > maxBufferSize {
		ctxlog.Logger(ctx).Debug(
			"buffer overflow in readAllUpToMax",
			"bytesRead", n,
			"maxBytes", maxBufferSize,
		)

		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)

		return buf.Bytes()[:maxBufferSize], ErrBufferOverflow
	}

	return buf.Bytes(), nil
}

// killPs kills the process and reports whether it was still running.
func killPs(ctx context.Context, ps *os.Process) bool {
	if err := ps.Kill(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			ctxlog.Logger(ctx).Debug("process already done", "pid", ps.Pid)
			return false
		}

		ctxlog.Logger(ctx).Error("process kill error", "pid", ps.Pid, "error", err)

		return false
	}

	ctxlog.Logger(ctx).Info("process killed", "pid", ps.Pid)

	return true
}
