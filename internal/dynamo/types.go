package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Params supplies parameter values in the positional order the compiled
// code expects. The returned slice must not be modified.
type Params interface {
	Flat() []float64
}

// ParamVector is an already flat, ordered parameter list.
type ParamVector []float64

func (p ParamVector) Flat() []float64 { return p }

// Flatten returns the positional values of p; a nil p has none.
func Flatten(p Params) []float64 {
	if p == nil {
		return nil
	}
	return p.Flat()
}

type (
	DriftFunc        func(u State, p Params, t float64) State
	DriftInPlaceFunc func(du, u State, p Params, t float64)

	// DiffusionFunc returns a *mat.VecDense for diagonal or scalar noise and a
	// *mat.Dense for general noise.
	DiffusionFunc func(u State, p Params, t float64) mat.Matrix
	// DiffusionInPlaceFunc writes the diffusion row-major into out.
	DiffusionInPlaceFunc func(out []float64, u State, p Params, t float64)

	JacobianFunc        func(u State, p Params, t float64) *mat.Dense
	JacobianInPlaceFunc func(J *mat.Dense, u State, p Params, t float64)

	// WfactFunc factorizes M - γJ (or M/γ - J) at (u, p, t).
	WfactFunc        func(u State, p Params, gamma, t float64) *mat.LU
	WfactInPlaceFunc func(lu *mat.LU, u State, p Params, gamma, t float64)

	ObservedFunc func(u State, p Params, t float64) float64
)

// CheckLen panics when a buffer does not have the expected length.
func CheckLen(what string, got, want int) {
	if got != want {
		panic(fmt.Sprintf("dynamo: %s has length %d, want %d", what, got, want))
	}
}
