// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package layout

// WorkUnit is one simulator invocation: the three positional arguments plus its job index.
type WorkUnit struct {
	Index      int
	ParamFile  string
	ModelFile  string
	OutputFile string
}

// Args returns the positional arguments passed to the simulator, in order.
func (w WorkUnit) Args() []string {
	return []string{w.ParamFile, w.ModelFile, w.OutputFile}
}

// WorkUnit returns the unit for job index i. It is a pure function of the layout,
// the spacecraft model path and i, so any stage can recompute it.
func (l Layout) WorkUnit(i int, modelFile string) WorkUnit {
	return WorkUnit{
		Index:      i,
		ParamFile:  l.ParamPath(i),
		ModelFile:  modelFile,
		OutputFile: l.OutputPath(i),
	}
}

// WorkUnits enumerates the units for indices 1..n.
func (l Layout) WorkUnits(n int, modelFile string) []WorkUnit {
	if n < 1 {
		return nil
	}

	units := make([]WorkUnit, 0, n)
	for i := 1; i <= n; i++ {
		units = append(units, l.WorkUnit(i, modelFile))
	}

	return units
}
