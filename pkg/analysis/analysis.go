// Package analysis reduces a sampled I-V/P-V curve to its scalar
// indicators (maximum power point, fill factor, efficiency) and runs
// advisory sanity diagnostics against the module nameplate.
package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"pv-curve/pkg/pv"
)

const (
	ffDenomFloor = 1e-9

	iscAbsTol  = 0.5  // A, short-circuit endpoint check
	iscRelTol  = 0.05 // fraction of Isc'
	tailAbsTol = 0.3  // A, open-circuit tail check
	tailRelTol = 0.03 // fraction of Isc'

	monotonicSlack = 1e-3 // A, tolerated forward increase between samples

	nameplateRelTol = 0.05 // near-STC MPP vs nameplate
)

// Diagnostic is one named advisory check over a curve. Failures are
// signals for display, never errors.
type Diagnostic struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// Report holds the derived indicators of a curve.
type Report struct {
	MPP         pv.CurvePoint `json:"mpp"`
	Isc         float64       `json:"isc"` // condition-adjusted short-circuit current
	Voc         float64       `json:"voc"` // condition-adjusted open-circuit voltage
	FillFactor  float64       `json:"fillFactor"`
	Efficiency  float64       `json:"efficiency"`
	Diagnostics []Diagnostic  `json:"diagnostics"`
}

// MPP returns the curve point of maximal power. The first occurrence wins
// on ties. A curve without points yields a zero point.
func MPP(c pv.Curve) pv.CurvePoint {
	if len(c.Points) == 0 {
		return pv.CurvePoint{}
	}
	powers := make([]float64, len(c.Points))
	for i, p := range c.Points {
		powers[i] = p.P
	}
	return c.Points[floats.MaxIdx(powers)]
}

// Analyze derives MPP, fill factor and efficiency from a curve and runs
// the sanity diagnostics. It never mutates its inputs.
func Analyze(c pv.Curve, spec pv.ModuleSpec, cond pv.Condition) Report {
	mpp := MPP(c)

	rep := Report{
		MPP:        mpp,
		Isc:        c.IL,
		Voc:        c.VocG,
		FillFactor: mpp.P / math.Max(c.VocG*c.IL, ffDenomFloor),
	}
	if ga := cond.Irradiance * spec.Area; ga > 0 {
		rep.Efficiency = mpp.P / ga
	}
	rep.Diagnostics = diagnostics(c, spec, cond, mpp)
	return rep
}

func diagnostics(c pv.Curve, spec pv.ModuleSpec, cond pv.Condition, mpp pv.CurvePoint) []Diagnostic {
	var out []Diagnostic
	if len(c.Points) == 0 {
		return append(out, Diagnostic{
			Name:    "curve-nonempty",
			Message: "curve has no points",
		})
	}

	first := c.Points[0]
	tol := math.Max(iscAbsTol, iscRelTol*c.IL)
	out = append(out, check("short-circuit-endpoint",
		math.Abs(first.I-c.IL) <= tol,
		"I(V=%.2f) = %.3f A vs Isc' = %.3f A (tol %.3f A)", first.V, first.I, c.IL, tol))

	last := c.Points[len(c.Points)-1]
	tol = math.Max(tailAbsTol, tailRelTol*c.IL)
	out = append(out, check("open-circuit-tail",
		math.Abs(last.I) <= tol,
		"I(V=%.2f) = %.3f A vs 0 A (tol %.3f A)", last.V, last.I, tol))

	mono := true
	for i := 0; i+1 < len(c.Points); i++ {
		if c.Points[i+1].I > c.Points[i].I+monotonicSlack {
			mono = false
			break
		}
	}
	out = append(out, check("monotonic-current", mono,
		"current is non-increasing within %.0e A slack", monotonicSlack))

	out = append(out, check("mpp-interior",
		mpp.V > 0 && mpp.V < c.VocG && mpp.I > 0 && mpp.I < c.IL,
		"MPP (%.2f V, %.3f A) inside (0, %.2f V) x (0, %.3f A)", mpp.V, mpp.I, c.VocG, c.IL))

	if cond.NearSTC() {
		out = append(out, check("mpp-voltage-vs-nameplate",
			math.Abs(mpp.V-spec.VmppRef) <= nameplateRelTol*spec.VmppRef,
			"Vmpp = %.2f V vs nameplate %.2f V (5%% tol)", mpp.V, spec.VmppRef))
		out = append(out, check("mpp-current-vs-nameplate",
			math.Abs(mpp.I-spec.ImppRef) <= nameplateRelTol*spec.ImppRef,
			"Impp = %.3f A vs nameplate %.3f A (5%% tol)", mpp.I, spec.ImppRef))
	}

	out = append(out, check("newton-convergence", c.Unconverged == 0,
		"%d of %d samples hit the iteration cap", c.Unconverged, len(c.Points)))

	return out
}

func check(name string, passed bool, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Name:    name,
		Passed:  passed,
		Message: fmt.Sprintf(format, args...),
	}
}
