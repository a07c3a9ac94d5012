// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config implements the config command, which documents the configuration file.
package config

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ucl-sgnl/myriad-utils/cmd/myriad/cmdutil"
	myriadcfg "github.com/ucl-sgnl/myriad-utils/internal/config"
	"github.com/urfave/cli/v3"
)

const (
	formatFlag = "format"

	formatYAML     = "yaml"
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

// ConfigCmd prints an example configuration, its schema, the environment overrides and the backends.
var ConfigCmd = &cli.Command{
	Name:  "config",
	Usage: "Get info on the configuration file format",
	Description: `Prints a complete example configuration (yaml), a field reference (markdown)
or a JSON Schema (json), followed for yaml by the environment variables that override
file values and the registered backends.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    formatFlag,
			Aliases: []string{"F"},
			Usage:   "Output format: yaml, markdown, or json",
			Value:   formatYAML,
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	reg, err := cmdutil.Registry(ctx)
	if err != nil {
		return cmdutil.Fail(ctx, "cannot list backends", err)
	}

	if err := Write(cmdutil.Writer(cmd), cmd.String(formatFlag), reg.Names()); err != nil {
		return cmdutil.Fail(ctx, "cannot describe configuration", err)
	}

	return nil
}

// Write prints the configuration documentation in the given format.
func Write(w io.Writer, format string, backends []string) error {
	switch strings.ToLower(format) {
	case formatYAML, "":
		return writeYAML(w, backends)
	case formatMarkdown, "md":
		s, err := myriadcfg.Schema()
		if err != nil {
			return err //nolint:wrapcheck
		}

		return s.WriteMarkdown(w) //nolint:wrapcheck
	case formatJSON:
		s, err := myriadcfg.Schema()
		if err != nil {
			return err //nolint:wrapcheck
		}

		return s.WriteJSONSchema(w) //nolint:wrapcheck
	default:
		return cli.Exit(fmt.Sprintf("Invalid format: %s. Valid formats: yaml, markdown, json", format), 1)
	}
}

func writeYAML(w io.Writer, backends []string) error {
	if _, err := fmt.Fprintln(w, "# Example myriad configuration"); err != nil {
		return err //nolint:wrapcheck
	}

	if err := myriadcfg.WriteExample(w); err != nil {
		return err //nolint:wrapcheck
	}

	var sb strings.Builder

	sb.WriteString("\n# Environment overrides (also read from .env):\n")

	for _, name := range myriadcfg.OverrideNames() {
		fmt.Fprintf(&sb, "#   %s\n", name)
	}

	sb.WriteString("#\n# Backends:\n")

	for _, name := range backends {
		fmt.Fprintf(&sb, "#   %s\n", name)
	}

	_, err := io.WriteString(w, sb.String())

	return err //nolint:wrapcheck
}
