package dynamo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Function is the bundle a solver consumes. Optional callables are nil
// unless they were requested at compile time.
type Function struct {
	Drift            DriftFunc
	DriftInPlace     DriftInPlaceFunc
	Diffusion        DiffusionFunc
	DiffusionInPlace DiffusionInPlaceFunc

	Jacobian               JacobianFunc
	JacobianInPlace        JacobianInPlaceFunc
	TimeGradient           DriftFunc
	TimeGradientInPlace    DriftInPlaceFunc
	ControlJacobian        JacobianFunc
	ControlJacobianInPlace JacobianInPlaceFunc
	Wfact                  WfactFunc
	WfactInPlace           WfactInPlaceFunc
	WfactT                 WfactFunc
	WfactTInPlace          WfactInPlaceFunc

	Mass  mat.Matrix
	Noise Noise

	Observed map[string]ObservedFunc

	StateNames []string
	ParamNames []string
}

// Problem binds a Function to initial conditions.
type Problem struct {
	F     *Function
	U0    State
	TSpan [2]float64
	P     Params
}

// Validate checks lengths and finiteness of the initial data.
func (p *Problem) Validate() error {
	if p.F == nil {
		return fmt.Errorf("dynamo: problem has no function")
	}
	if len(p.U0) != len(p.F.StateNames) {
		return fmt.Errorf("%w: u0 has %d entries for %d states", ErrDimensionMismatch, len(p.U0), len(p.F.StateNames))
	}
	if n := len(Flatten(p.P)); n != len(p.F.ParamNames) {
		return fmt.Errorf("%w: %d parameter values for %d parameters", ErrDimensionMismatch, n, len(p.F.ParamNames))
	}
	if !p.U0.IsValid() {
		return ErrInvalidState
	}
	if !State(p.TSpan[:]).IsValid() {
		return fmt.Errorf("%w: time span [%g, %g]", ErrInvalidState, p.TSpan[0], p.TSpan[1])
	}
	return nil
}

// ScalarNoise reports whether all states share one Wiener process.
func (p *Problem) ScalarNoise() bool {
	return p.F != nil && p.F.Noise.Kind == ScalarNoise
}
