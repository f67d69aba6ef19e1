package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pv-curve/pkg/pv"
)

func newReference(t *testing.T) *Solver {
	t.Helper()
	return New(pv.DefaultModuleSpec(), pv.DefaultDiodeParams(), 140)
}

func maxPowerPoint(c pv.Curve) pv.CurvePoint {
	best := c.Points[0]
	for _, p := range c.Points {
		if p.P > best.P {
			best = p
		}
	}
	return best
}

func TestComputeCurveSTC(t *testing.T) {
	s := newReference(t)
	c := s.ComputeCurve(1000, 25)

	require.Len(t, c.Points, 141)
	assert.InDelta(t, 14.31, c.IL, 1e-12)
	assert.InDelta(t, 52.0, c.VocG, 1e-12)
	assert.Zero(t, c.Unconverged)

	// Endpoint behavior: I(0) tracks Isc', I(Vmax) tracks zero.
	first := c.Points[0]
	assert.Zero(t, first.V)
	assert.InDelta(t, c.IL, first.I, 0.5)

	last := c.Points[len(c.Points)-1]
	assert.InDelta(t, 53.04, last.V, 1e-9)
	assert.InDelta(t, 0, last.I, 0.3)

	mpp := maxPowerPoint(c)
	assert.InDelta(t, 39.02, mpp.V, 0.05)
	assert.InDelta(t, 12.645, mpp.I, 0.05)
	assert.InDelta(t, 493.4, mpp.P, 0.5)
}

func TestCurveMonotonicity(t *testing.T) {
	s := newReference(t)
	for _, cond := range []pv.Condition{
		{Irradiance: 1000, Temperature: 25},
		{Irradiance: 500, Temperature: 25},
		{Irradiance: 1000, Temperature: 75},
		{Irradiance: 300, Temperature: 10},
	} {
		c := s.ComputeCurve(cond.Irradiance, cond.Temperature)
		for i := 0; i+1 < len(c.Points); i++ {
			require.LessOrEqual(t, c.Points[i+1].I, c.Points[i].I+1e-3,
				"G=%g Tc=%g: current increased at sample %d", cond.Irradiance, cond.Temperature, i)
		}
	}
}

func TestMPPBounds(t *testing.T) {
	s := newReference(t)
	for _, cond := range []pv.Condition{
		{Irradiance: 1000, Temperature: 25},
		{Irradiance: 800, Temperature: 45},
		{Irradiance: 300, Temperature: 10},
	} {
		c := s.ComputeCurve(cond.Irradiance, cond.Temperature)
		mpp := maxPowerPoint(c)
		assert.Greater(t, mpp.V, 0.0)
		assert.Less(t, mpp.V, c.VocG)
		assert.Greater(t, mpp.I, 0.0)
		assert.Less(t, mpp.I, c.IL)
	}
}

func TestHalfIrradiance(t *testing.T) {
	s := newReference(t)

	assert.InDelta(t, 7.155, s.AdjustedIsc(500, 25), 1e-9)

	stc := s.ComputeCurve(1000, 25)
	half := s.ComputeCurve(500, 25)

	// Voc drops by the log term only.
	assert.InDelta(t, 48.666, half.VocG, 0.01)
	assert.Less(t, half.VocG, stc.VocG)

	// MPP power roughly halves; the log-term correction makes it slightly
	// sublinear.
	ratio := maxPowerPoint(half).P / maxPowerPoint(stc).P
	assert.Greater(t, ratio, 0.40)
	assert.Less(t, ratio, 0.55)
}

func TestThermalDerating(t *testing.T) {
	s := newReference(t)

	hot := s.ComputeCurve(1000, 75)
	stc := s.ComputeCurve(1000, 25)

	// Positive alpha raises Isc, negative beta drops Voc.
	assert.Greater(t, hot.IL, stc.IL)
	assert.InDelta(t, 14.66775, hot.IL, 1e-9)
	assert.Less(t, hot.VocG, stc.VocG)
	assert.InDelta(t, 44.98, hot.VocG, 0.01)

	assert.Less(t, maxPowerPoint(hot).P, maxPowerPoint(stc).P)
}

func TestAdjustedVocFloors(t *testing.T) {
	s := newReference(t)

	// Irradiance is floored at 1 W/m2 before the logarithm; Voc' is floored
	// at 0.1 V. Neither produces a non-finite or non-positive value.
	tiny := s.AdjustedVoc(1e-9, 25)
	assert.GreaterOrEqual(t, tiny, 0.1)
	assert.Equal(t, s.AdjustedVoc(0.5, 25), tiny)

	c := s.ComputeCurve(1e-9, 25)
	for _, p := range c.Points {
		assert.False(t, p.I != p.I, "NaN current at V=%g", p.V)
	}
}

func TestDeterminism(t *testing.T) {
	s := newReference(t)
	a := s.ComputeCurve(850, 40)
	b := s.ComputeCurve(850, 40)
	require.Equal(t, a, b)
}

func TestResolutionClamp(t *testing.T) {
	spec, params := pv.DefaultModuleSpec(), pv.DefaultDiodeParams()
	assert.Equal(t, 50, New(spec, params, 5).Points())
	assert.Equal(t, 400, New(spec, params, 5000).Points())
	assert.Equal(t, 140, New(spec, params, 140).Points())

	c := New(spec, params, 5).ComputeCurve(1000, 25)
	assert.Len(t, c.Points, 51)
}

func TestNonFiniteIterateResetsUnconverged(t *testing.T) {
	// An iterate that overflows is reset to zero and the sample is reported
	// unconverged, so it counts toward the convergence diagnostic.
	s := newReference(t)
	nvt := s.moduleNvt(25)

	i, converged := s.solveCurrent(10, 0, math.Inf(1), 1e-12, nvt, 1000)
	assert.Zero(t, i)
	assert.False(t, converged)
}

func TestDegenerateParamsStillNumeric(t *testing.T) {
	// Pathological parameters degrade gracefully; the curve is numeric,
	// possibly flagged unconverged, never an error.
	spec := pv.DefaultModuleSpec()
	s := New(spec, pv.DiodeParams{N: 1.001, Rs: 5, Rsh: 1e-9}, 60)
	c := s.ComputeCurve(1000, 25)
	require.Len(t, c.Points, 61)
	assert.Greater(t, c.Unconverged, 0)
	for _, p := range c.Points {
		assert.False(t, p.I != p.I || p.P != p.P, "non-finite sample at V=%g", p.V)
	}
}
