// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package paramgen

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
)

// Directive is a template keyword whose line is rewritten per job.
type Directive string

// Recognised directives, in match order.
const (
	ModelType  Directive = "model_type"
	Scheme     Directive = "scheme"
	Spacing    Directive = "spacing"
	SROption   Directive = "sr_option"
	Emissivity Directive = "emissivity"
	KStart     Directive = "k_start"
	KFinish    Directive = "k_finish"
	NPoints    Directive = "n_points"
)

// Directives lists every recognised directive in the order lines are matched against them.
var Directives = []Directive{ModelType, Scheme, Spacing, SROption, Emissivity, KStart, KFinish, NPoints}

// ErrMissingField is returned for each configured field that is absent.
var ErrMissingField = errors.New("missing parameter field")

// Fields are the run-wide directive values. They are copied into every parameter file as given.
type Fields struct {
	ModelType  string `yaml:"model_type" hcl:"model_type,optional" docdesc:"Modelling required: 0 for SRP, 1 for SRP+TRR, 2 for TRR"`
	Scheme     string `yaml:"scheme" hcl:"scheme,optional" docdesc:"Pixel array orientation scheme: 0 for EPS angles, 1 for spiral points, 2 for AzEl"`
	Spacing    string `yaml:"spacing" hcl:"spacing,optional" docdesc:"Pixel spacing of the array in metres"`
	SROption   string `yaml:"sr_option" hcl:"sr_option,optional" docdesc:"Include secondary reflections: Y or N"`
	Emissivity string `yaml:"emissivity" hcl:"emissivity,optional" docdesc:"MLI emissivity for TRR models"`
}

// Validate reports every missing field at once, wrapped as a configuration error.
func (f Fields) Validate() error {
	var result error

	for _, d := range []Directive{ModelType, Scheme, Spacing, SROption, Emissivity} {
		if f.value(d) == "" {
			result = multierror.Append(result, fmt.Errorf("%w: %s", ErrMissingField, d))
		}
	}

	if result != nil {
		return errors.Join(batcherr.ErrConfiguration, result)
	}

	return nil
}

// value returns the configured value for a run-wide directive.
func (f Fields) value(d Directive) string {
	switch d {
	case ModelType:
		return f.ModelType
	case Scheme:
		return f.Scheme
	case Spacing:
		return f.Spacing
	case SROption:
		return f.SROption
	case Emissivity:
		return f.Emissivity
	}

	return ""
}

// valueFor returns the rendered value of d for job index of count jobs.
// nPoints overrides the job count for the n_points directive when positive.
func (f Fields) valueFor(d Directive, index, count, nPoints int) string {
	switch d {
	case KStart, KFinish:
		return strconv.Itoa(index)
	case NPoints:
		if nPoints > 0 {
			return strconv.Itoa(nPoints)
		}

		return strconv.Itoa(count)
	}

	return f.value(d)
}
