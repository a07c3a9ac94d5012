// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"maps"
)

// BaseCommand holds the fields shared by every Runnable.
// It should be embedded in other command types to provide common functionality.
type BaseCommand struct {
	Label string            // Optional label for the command
	Index int               // Work unit index, 0 when the command is not a unit
	Cwd   string            // The working directory for the command
	Env   map[string]string // Environment variables added to the inherited environment
}

// NewBaseCommand creates a new BaseCommand.
func NewBaseCommand(label string, index int, cwd string, env map[string]string) *BaseCommand {
	if env == nil {
		env = make(map[string]string)
	}

	return &BaseCommand{
		Label: label,
		Index: index,
		Cwd:   cwd,
		Env:   env,
	}
}

// GetLabel returns the label of the command.
func (c *BaseCommand) GetLabel() string {
	if c.Label == "" {
		return "Command"
	}

	return c.Label
}

// GetIndex returns the work unit index of the command.
func (c *BaseCommand) GetIndex() int {
	return c.Index
}

// InheritEnv adds env to the command's environment without overwriting existing keys.
func (c *BaseCommand) InheritEnv(env map[string]string) {
	if len(c.Env) == 0 {
		c.Env = maps.Clone(env)
		return
	}

	for k, v := range env {
		if _, ok := c.Env[k]; !ok {
			c.Env[k] = v
		}
	}
}
