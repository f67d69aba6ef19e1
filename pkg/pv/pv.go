// Package pv holds the data model shared by the solver, analyzer and
// calibrator: module nameplate parameters, diode model parameters,
// operating conditions and sampled curves.
package pv

import (
	"fmt"
	"math"

	"pv-curve/internal/consts"
)

// Physically valid ranges used to clamp diode parameters.
const (
	NMin   = 1.01
	NMax   = 1.99
	RsMin  = 0.005
	RsMax  = 1.0
	RshMin = 50.0
	RshMax = 100000.0
)

// Recognized curve resolution range.
const (
	ResolutionMin = 50
	ResolutionMax = 400
)

// Near-STC window: within 2% of reference irradiance and 1 degC of
// reference temperature.
const (
	nearSTCIrradianceTol  = 0.02 * consts.GREF
	nearSTCTemperatureTol = 1.0
)

// ModuleSpec holds nameplate parameters measured at STC (1000 W/m2, 25 degC).
type ModuleSpec struct {
	VocRef      float64 // Open-circuit voltage (V)
	IscRef      float64 // Short-circuit current (A)
	VmppRef     float64 // Voltage at maximum power point (V)
	ImppRef     float64 // Current at maximum power point (A)
	Area        float64 // Module area (m2)
	CellsSeries int     // Cells in series
	AlphaIsc    float64 // Isc temperature coefficient (fraction/degC, positive)
	BetaVoc     float64 // Voc temperature coefficient (fraction/degC, negative)
}

// DiodeParams holds the tunable single-diode model parameters.
type DiodeParams struct {
	N   float64 // Ideality factor
	Rs  float64 // Series resistance (ohm)
	Rsh float64 // Shunt resistance (ohm)
}

// Condition is an irradiance/temperature operating point.
type Condition struct {
	Irradiance  float64 // G (W/m2)
	Temperature float64 // Tc (degC)
}

// CurvePoint is one sample of the I-V/P-V curve.
type CurvePoint struct {
	V float64 `json:"v"`
	I float64 `json:"i"`
	P float64 `json:"p"`
}

// Curve is a sampled I-V/P-V curve plus its derived scalars.
type Curve struct {
	Points []CurvePoint `json:"points"`
	IL     float64      `json:"il"`   // Light-generated current (A)
	VocG   float64      `json:"vocg"` // Condition-adjusted open-circuit voltage (V)

	// Unconverged counts voltage samples below VocG whose Newton iteration
	// hit the iteration cap before meeting the step tolerance. Advisory only.
	Unconverged int `json:"unconverged,omitempty"`
}

// DefaultModuleSpec returns the 144-cell reference module.
func DefaultModuleSpec() ModuleSpec {
	return ModuleSpec{
		VocRef:      52.0,
		IscRef:      14.31,
		VmppRef:     43.55,
		ImppRef:     13.55,
		Area:        2.648,
		CellsSeries: 144,
		AlphaIsc:    0.0005,
		BetaVoc:     -0.0027,
	}
}

// DefaultDiodeParams returns the reference diode parameters before any
// calibration.
func DefaultDiodeParams() DiodeParams {
	return DiodeParams{N: 1.3, Rs: 0.2, Rsh: 1000}
}

// DefaultCondition returns STC.
func DefaultCondition() Condition {
	return Condition{Irradiance: consts.GREF, Temperature: consts.TREF}
}

func (m ModuleSpec) Validate() error {
	switch {
	case m.VocRef <= 0:
		return fmt.Errorf("module: vocref must be > 0, got %g", m.VocRef)
	case m.IscRef <= 0:
		return fmt.Errorf("module: iscref must be > 0, got %g", m.IscRef)
	case m.VmppRef <= 0:
		return fmt.Errorf("module: vmppref must be > 0, got %g", m.VmppRef)
	case m.ImppRef <= 0:
		return fmt.Errorf("module: imppref must be > 0, got %g", m.ImppRef)
	case m.Area <= 0:
		return fmt.Errorf("module: area must be > 0, got %g", m.Area)
	case m.CellsSeries < 1:
		return fmt.Errorf("module: ns must be >= 1, got %d", m.CellsSeries)
	case m.AlphaIsc < 0:
		return fmt.Errorf("module: alpha must be >= 0, got %g", m.AlphaIsc)
	case m.BetaVoc > 0:
		return fmt.Errorf("module: beta must be <= 0, got %g", m.BetaVoc)
	}
	return nil
}

func (p DiodeParams) Validate() error {
	switch {
	case p.N <= 1 || p.N >= 2:
		return fmt.Errorf("params: n must be in (1,2), got %g", p.N)
	case p.Rs < 0:
		return fmt.Errorf("params: rs must be >= 0, got %g", p.Rs)
	case p.Rsh <= 0:
		return fmt.Errorf("params: rsh must be > 0, got %g", p.Rsh)
	}
	return nil
}

func (c Condition) Validate() error {
	if c.Irradiance <= 0 {
		return fmt.Errorf("condition: g must be > 0, got %g", c.Irradiance)
	}
	return nil
}

// Clamp returns p with each parameter forced into its physically valid range.
func (p DiodeParams) Clamp() DiodeParams {
	return DiodeParams{
		N:   math.Min(math.Max(p.N, NMin), NMax),
		Rs:  math.Min(math.Max(p.Rs, RsMin), RsMax),
		Rsh: math.Min(math.Max(p.Rsh, RshMin), RshMax),
	}
}

// NearSTC reports whether the condition is close enough to STC for
// nameplate comparison and calibration.
func (c Condition) NearSTC() bool {
	return math.Abs(c.Irradiance-consts.GREF) <= nearSTCIrradianceTol &&
		math.Abs(c.Temperature-consts.TREF) <= nearSTCTemperatureTol
}

// ClampResolution forces a requested curve resolution into the recognized
// range. Degenerate values are clamped rather than rejected.
func ClampResolution(points int) int {
	if points < ResolutionMin {
		return ResolutionMin
	}
	if points > ResolutionMax {
		return ResolutionMax
	}
	return points
}
