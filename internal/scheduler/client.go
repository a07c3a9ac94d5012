// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"slices"
	"strings"

	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
	"github.com/ucl-sgnl/myriad-utils/internal/runbatch"
)

var (
	// ErrUnknownDialect is returned for an unsupported scheduler name.
	ErrUnknownDialect = errors.New("unknown scheduler dialect")
	// ErrNoJobID is returned when submission output carries no job identifier.
	ErrNoJobID = errors.New("no job id in scheduler output")
	// ErrCommandFailed is returned when a scheduler command exits non-zero or cannot start.
	ErrCommandFailed = errors.New("scheduler command failed")
	// ErrInvalidArraySize is returned for an array submission of fewer than one task.
	ErrInvalidArraySize = errors.New("array size must be at least 1")
)

// ExecFunc runs a scheduler command and returns its standard output.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Client issues scheduler commands in one dialect on behalf of one user.
type Client struct {
	Dialect Dialect
	User    string
	Exec    ExecFunc
}

// Option configures a Client.
type Option func(*Client)

// WithExec replaces the command runner.
func WithExec(fn ExecFunc) Option {
	return func(c *Client) {
		c.Exec = fn
	}
}

// WithUser sets the user whose jobs are queried. The default is the current user.
func WithUser(name string) Option {
	return func(c *Client) {
		c.User = name
	}
}

// New creates a client for the named dialect.
func New(dialect string, opts ...Option) (*Client, error) {
	d, err := ParseDialect(dialect)
	if err != nil {
		return nil, err
	}

	c := &Client{
		Dialect: d,
		Exec:    RunCommand,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.User == "" {
		c.User = currentUser()
	}

	return c, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}

	return os.Getenv("USER")
}

// SubmitArray submits script as one array job of tasks 1..n and returns the job id.
func (c *Client) SubmitArray(ctx context.Context, script string, n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidArraySize, n)
	}

	spec := specs[c.Dialect]
	args := slices.Concat(spec.arrayArgs(n), []string{script})

	return c.submit(ctx, spec.submitCmd, args)
}

// Submit submits script as a single job and returns the job id.
func (c *Client) Submit(ctx context.Context, script string) (string, error) {
	return c.submit(ctx, specs[c.Dialect].submitCmd, []string{script})
}

func (c *Client) submit(ctx context.Context, name string, args []string) (string, error) {
	ctxlog.Debug(ctx, "submitting", "dialect", string(c.Dialect), "command", name, "args", args)

	out, err := c.Exec(ctx, name, args...)
	if err != nil {
		return "", err
	}

	id, err := c.Dialect.ParseJobID(string(out))
	if err != nil {
		return "", err
	}

	ctxlog.Debug(ctx, "submitted", "jobID", id)

	return id, nil
}

// Outstanding returns the number of queued or running job lines for the user.
// When ids is not empty only lines belonging to those jobs count.
func (c *Client) Outstanding(ctx context.Context, ids []string) (int, error) {
	spec := specs[c.Dialect]

	out, err := c.Exec(ctx, spec.statusCmd, spec.statusArgs(c.User)...)
	if err != nil {
		return 0, err
	}

	listed := ParseStatus(string(out))
	if len(ids) == 0 {
		return len(listed), nil
	}

	n := 0

	for _, id := range listed {
		if slices.Contains(ids, id) {
			n++
		}
	}

	return n, nil
}

// RunCommand is the default ExecFunc. It resolves name on PATH and runs it
// with runbatch, returning stdout or an ErrCommandFailed carrying stderr.
func RunCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, errors.Join(ErrCommandFailed, err)
	}

	res := runbatch.NewOSCommand(name, 0, path, args...).Run(ctx)[0]
	if res.Failed() {
		return res.StdOut, errors.Join(
			fmt.Errorf("%w: %s exited %d: %s", ErrCommandFailed, name, res.ExitCode, strings.TrimSpace(string(res.StdErr))),
			res.Error,
		)
	}

	return res.StdOut, nil
}
