// Package report presents solver output: text tables on a writer,
// interactive I-V/P-V charts, and a small HTTP viewer.
package report

import (
	"fmt"
	"io"

	"pv-curve/pkg/analysis"
	"pv-curve/pkg/pv"
	"pv-curve/pkg/util"
)

// CurveSet is a group of labeled curves sharing one module spec, e.g. one
// curve per swept irradiance level.
type CurveSet struct {
	Title  string
	Labels []string
	Curves []pv.Curve
}

// WriteSummary prints the scalar indicators and diagnostics of one analyzed
// curve.
func WriteSummary(w io.Writer, cond pv.Condition, rep analysis.Report) {
	fmt.Fprintln(w, "\nCurve Summary:")
	fmt.Fprintln(w, "==============")
	fmt.Fprintf(w, "Condition:   G=%s  Tc=%.1f degC\n",
		util.FormatValueFactor(cond.Irradiance, "W/m2"), cond.Temperature)
	fmt.Fprintf(w, "Isc'         = %s\n", util.FormatValueFactor(rep.Isc, "A"))
	fmt.Fprintf(w, "Voc'         = %s\n", util.FormatValueFactor(rep.Voc, "V"))
	fmt.Fprintf(w, "MPP          = %s @ %s / %s\n",
		util.FormatValueFactor(rep.MPP.P, "W"),
		util.FormatValueFactor(rep.MPP.V, "V"),
		util.FormatValueFactor(rep.MPP.I, "A"))
	fmt.Fprintf(w, "Fill factor  = %s\n", util.FormatPercent(rep.FillFactor))
	fmt.Fprintf(w, "Efficiency   = %s\n", util.FormatPercent(rep.Efficiency))

	fmt.Fprintln(w, "\nDiagnostics:")
	for _, diag := range rep.Diagnostics {
		status := "PASS"
		if !diag.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(w, "  [%s] %-26s %s\n", status, diag.Name, diag.Message)
	}
}

// WriteCurveTable prints the sampled curve points.
func WriteCurveTable(w io.Writer, c pv.Curve) {
	fmt.Fprintf(w, "\nI-V Curve (%d points):\n", len(c.Points))
	fmt.Fprintln(w, "Voltage        Current        Power")
	fmt.Fprintln(w, "------------------------------------------")
	for _, p := range c.Points {
		fmt.Fprintf(w, "%-14s %-14s %s\n",
			util.FormatValueFactor(p.V, "V"),
			util.FormatValueFactor(p.I, "A"),
			util.FormatValueFactor(p.P, "W"))
	}
}
