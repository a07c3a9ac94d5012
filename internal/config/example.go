// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"io"

	"github.com/ucl-sgnl/myriad-utils/internal/paramgen"
	"github.com/ucl-sgnl/myriad-utils/internal/schema"
)

const (
	schemaTitle       = "myriad configuration"
	schemaDescription = "Configuration of one mission run. Every value may also be set with a MYRIAD_* environment variable."
)

// Example returns a filled-in configuration for documentation.
func Example() *Config {
	return &Config{
		Mission:   "GRACE-FO",
		Count:     5000,
		Template:  "/home/user/myriad/res/parameters_template.txt",
		Simulator: "/home/user/srp_trr_classic/bin/srp_trr_classic",
		Fields: paramgen.Fields{
			ModelType:  "1",
			Scheme:     "1",
			Spacing:    "0.01",
			SROption:   "N",
			Emissivity: "0.8",
		},
		Backend: Backend{
			Type:       BackendArray,
			Scheduler:  "sge",
			Directives: []string{"-l h_rt=1:00:00", "-l mem=1G"},
		},
		Monitor: Monitor{
			PollInterval: "30s",
			MaxWait:      "72h",
		},
		Validate: Validate{
			LogFile: "/home/user/GRACE-FO/legion_check_log.txt",
		},
		Aggregate: Aggregate{
			Order: "ascending",
		},
		Journal: Journal{
			Path: "/home/user/.myriad/journal.db",
		},
	}
}

// Schema describes Config for the reference documentation.
func Schema() (*schema.Schema, error) {
	return schema.Generate(schemaTitle, schemaDescription, Config{}) //nolint:wrapcheck
}

// WriteExample writes Example as YAML.
func WriteExample(w io.Writer) error {
	return schema.WriteYAMLExample(w, Example()) //nolint:wrapcheck
}
