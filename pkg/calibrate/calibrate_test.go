package calibrate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pv-curve/pkg/analysis"
	"pv-curve/pkg/pv"
	"pv-curve/pkg/solver"
)

func TestCalibrateImprovesFit(t *testing.T) {
	spec := pv.DefaultModuleSpec()
	params := pv.DefaultDiodeParams()

	result := Calibrate(spec, params)

	require.True(t, result.Adopted)
	assert.InDelta(t, 4.617, result.PreScore, 0.01)
	assert.InDelta(t, 1.549, result.Score, 0.01)
	assert.Equal(t, 1+294+125, result.Evaluations)

	// Two-stage winner: stage 1 lands on (1.1, 0.02, 20000), stage 2
	// refines to (1.1-0.05, 0.02*0.7, 20000*1.6).
	assert.InDelta(t, 1.05, result.Params.N, 1e-9)
	assert.InDelta(t, 0.014, result.Params.Rs, 1e-9)
	assert.InDelta(t, 32000, result.Params.Rsh, 1e-6)
}

func TestCalibratedCurveMatchesNameplate(t *testing.T) {
	spec := pv.DefaultModuleSpec()
	result := Calibrate(spec, pv.DefaultDiodeParams())
	require.True(t, result.Adopted)

	s := solver.New(spec, result.Params, 140)
	curve := s.ComputeCurve(1000, 25)
	rep := analysis.Analyze(curve, spec, pv.DefaultCondition())

	assert.InDelta(t, spec.VmppRef, rep.MPP.V, 0.05*spec.VmppRef)
	assert.InDelta(t, spec.ImppRef, rep.MPP.I, 0.05*spec.ImppRef)
	assert.Greater(t, rep.FillFactor, 0.70)
	assert.Less(t, rep.FillFactor, 0.82)
	assert.Greater(t, rep.Efficiency, 0.18)
	assert.Less(t, rep.Efficiency, 0.23)
}

func TestCalibrateIdempotent(t *testing.T) {
	spec := pv.DefaultModuleSpec()

	first := Calibrate(spec, pv.DefaultDiodeParams())
	require.True(t, first.Adopted)

	second := Calibrate(spec, first.Params)
	assert.False(t, second.Adopted)
	assert.Equal(t, first.Params, second.Params)
}

func TestCalibrateNeverWorsens(t *testing.T) {
	spec := pv.DefaultModuleSpec()
	for _, params := range []pv.DiodeParams{
		{N: 1.3, Rs: 0.2, Rsh: 1000},
		{N: 1.9, Rs: 0.9, Rsh: 80},
		{N: 1.05, Rs: 0.014, Rsh: 32000},
	} {
		result := Calibrate(spec, params)
		assert.LessOrEqual(t, result.Score, result.PreScore)
		if !result.Adopted {
			assert.Equal(t, params, result.Params)
		}
	}
}

func TestScoreIsMPPDistance(t *testing.T) {
	spec := pv.DefaultModuleSpec()
	params := pv.DefaultDiodeParams()

	curve := solver.New(spec, params, 140).ComputeCurve(1000, 25)
	mpp := analysis.MPP(curve)
	want := math.Hypot(mpp.V-spec.VmppRef, mpp.I-spec.ImppRef)

	result := Calibrate(spec, params)
	assert.InDelta(t, want, result.PreScore, 1e-12)
}
