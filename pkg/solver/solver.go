// Package solver computes I-V/P-V curves for a photovoltaic module using
// the single-diode equivalent circuit (light-generated current source,
// one diode, series resistance Rs, shunt resistance Rsh).
package solver

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"pv-curve/internal/consts"
	"pv-curve/pkg/pv"
)

const (
	maxIterations = 80
	stepTolerance = 1e-8

	expArgMax  = 50.0  // exponent clamp before math.Exp
	derivFloor = 1e-12 // lower bound on F' before division
	nvtFloor   = 1e-9  // lower bound on n*Vt*Ns
	rshFloor   = 1e-6  // lower bound on shunt resistance
	ioFloor    = 1e-12 // lower bound on saturation current
	vocFloor   = 0.1   // lower bound on adjusted Voc (V)

	negativeSlack = -0.1 // iterates below this are reset to zero
	overshootCap  = 1.2  // iterates are capped at overshootCap*IL
	vmaxMargin    = 1.02 // sweep extends slightly past Voc
)

// Solver produces curves for one module/parameter set at a fixed resolution.
// It carries no mutable state: ComputeCurve is pure and may be called
// concurrently.
type Solver struct {
	spec   pv.ModuleSpec
	params pv.DiodeParams
	points int
}

func New(spec pv.ModuleSpec, params pv.DiodeParams, points int) *Solver {
	return &Solver{
		spec:   spec,
		params: params,
		points: pv.ClampResolution(points),
	}
}

// Points returns the effective curve resolution after clamping.
func (s *Solver) Points() int { return s.points }

func thermalVoltage(tc float64) float64 {
	return consts.BOLTZMANN * (tc + consts.KELVIN) / consts.CHARGE
}

// moduleNvt is the per-cell thermal voltage scaled by ideality factor and
// series cell count.
func (s *Solver) moduleNvt(tc float64) float64 {
	return math.Max(s.params.N*thermalVoltage(tc)*float64(s.spec.CellsSeries), nvtFloor)
}

// AdjustedIsc returns the short-circuit current corrected for irradiance
// and cell temperature.
func (s *Solver) AdjustedIsc(g, tc float64) float64 {
	return s.spec.IscRef * (g / consts.GREF) * (1 + s.spec.AlphaIsc*(tc-consts.TREF))
}

// AdjustedVoc returns the open-circuit voltage corrected for irradiance and
// cell temperature. Irradiance is floored at 1 W/m2 before the logarithm and
// the result is floored at 0.1 V.
func (s *Solver) AdjustedVoc(g, tc float64) float64 {
	thermal := s.spec.VocRef * (1 + s.spec.BetaVoc*(tc-consts.TREF))
	logTerm := s.moduleNvt(tc) * math.Log(math.Max(g, 1)/consts.GREF)
	return math.Max(thermal+logTerm, vocFloor)
}

// ComputeCurve solves the implicit diode equation at points+1 voltages
// stepped linearly from 0 to max(VocG, VocRef)*1.02. Degenerate inputs
// produce a degenerate curve, never an error.
func (s *Solver) ComputeCurve(g, tc float64) pv.Curve {
	nvt := s.moduleNvt(tc)
	il := s.AdjustedIsc(g, tc)
	vocg := s.AdjustedVoc(g, tc)
	rsh := math.Max(s.params.Rsh, rshFloor)

	io := 0.0
	if denom := math.Exp(vocg/nvt) - 1; denom > 0 {
		io = (il - vocg/rsh) / denom
	}
	io = math.Max(io, ioFloor)

	grid := make([]float64, s.points+1)
	floats.Span(grid, 0, math.Max(vocg, s.spec.VocRef)*vmaxMargin)

	curve := pv.Curve{
		Points: make([]pv.CurvePoint, 0, len(grid)),
		IL:     il,
		VocG:   vocg,
	}

	// Warm start each solve from the previous sample; the curve is
	// continuous in V, so the previous current is a near guess.
	current := il
	for _, v := range grid {
		var converged bool
		current, converged = s.solveCurrent(v, current, il, io, nvt, rsh)
		// Past Voc the negative-current clamp pins iterates at zero and the
		// step tolerance is never met; only samples inside the curve signal
		// real divergence.
		if !converged && v < vocg {
			curve.Unconverged++
		}
		curve.Points = append(curve.Points, pv.CurvePoint{V: v, I: current, P: v * current})
	}
	return curve
}

// solveCurrent runs Newton-Raphson on
//
//	F(I) = I - IL + Io*(exp((V+I*Rs)/nvt) - 1) + (V+I*Rs)/Rsh
//
// starting from guess. It reports false when the iteration cap was reached
// before the step tolerance, or when an iterate went non-finite and was reset
// to zero; the last iterate is still returned.
func (s *Solver) solveCurrent(v, guess, il, io, nvt, rsh float64) (float64, bool) {
	rs := s.params.Rs
	i := guess
	for iter := 0; iter < maxIterations; iter++ {
		arg := (v + i*rs) / nvt
		if arg > expArgMax {
			arg = expArgMax
		} else if arg < -expArgMax {
			arg = -expArgMax
		}
		e := math.Exp(arg)

		f := i - il + io*(e-1) + (v+i*rs)/rsh
		d := 1 + io*e*rs/nvt + rs/rsh
		if d < derivFloor {
			d = derivFloor
		}

		step := f / d
		i -= step

		if math.IsNaN(i) || math.IsInf(i, 0) {
			return 0, false
		}
		if i < negativeSlack {
			i = 0
		}
		if i > overshootCap*il {
			i = overshootCap * il
		}
		if math.Abs(step) < stepTolerance {
			return i, true
		}
	}
	return i, false
}
