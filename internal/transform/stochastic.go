package transform

import (
	"github.com/san-kum/sdekit/internal/sde"
	"github.com/san-kum/sdekit/internal/symbolic"
)

// StochasticIntegral returns sys with factor·Σ_k J(g_k)·g_k added to the
// drift, where g_k runs over the columns of a matrix diffusion term or is
// the diffusion vector itself. J is taken against the state of each drift
// row, so equations may come in any order. The diffusion term is unchanged.
func StochasticIntegral(sys *sde.System, factor symbolic.Expr) (*sde.System, error) {
	states := sys.States()
	noise := sys.Noise()
	n := len(sys.Drift())

	correction := make([]symbolic.Expr, n)
	for i := range correction {
		correction[i] = symbolic.N(0)
	}
	rowStates := sys.RowStates()
	for _, ch := range channels(noise) {
		jac := symbolic.Jacobian(ch, rowStates)
		for i, c := range jac.MulVec(ch) {
			correction[i] = symbolic.Sum(correction[i], c)
		}
	}

	drift := sys.Drift()
	for i, eq := range drift {
		drift[i] = sde.Eq(eq.LHS, symbolic.Sum(eq.RHS, symbolic.Product(factor, symbolic.Simplify(correction[i]))))
	}

	opts := sys.Options()
	opts.Tag = 0
	opts.SkipValidation = true
	return sde.New(drift, noise, sys.IndependentVariable(), states, sys.Parameters(), opts)
}

// ItoToStratonovich applies the -1/2 correction.
func ItoToStratonovich(sys *sde.System) (*sde.System, error) {
	return StochasticIntegral(sys, symbolic.F(-1, 2))
}

// StratonovichToIto applies the +1/2 correction.
func StratonovichToIto(sys *sde.System) (*sde.System, error) {
	return StochasticIntegral(sys, symbolic.F(1, 2))
}

func channels(noise sde.Diffusion) [][]symbolic.Expr {
	m := noise.Matrix()
	if m == nil {
		return [][]symbolic.Expr{noise.Vector()}
	}
	out := make([][]symbolic.Expr, m.Cols())
	for k := range out {
		out[k] = m.Col(k)
	}
	return out
}
