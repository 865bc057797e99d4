package transform

import (
	"fmt"

	"github.com/san-kum/sdekit/internal/sde"
	"github.com/san-kum/sdekit/internal/symbolic"
)

type GirsanovOptions struct {
	// InitialWeight is θ(t0). Defaults to 1.
	InitialWeight symbolic.Expr
	// Theta names the correction state. Defaults to "θ".
	Theta string
	// Weight names the observed likelihood ratio. Defaults to "weight".
	Weight string
}

func (o GirsanovOptions) withDefaults() GirsanovOptions {
	if o.InitialWeight == nil {
		o.InitialWeight = symbolic.N(1)
	}
	if o.Theta == "" {
		o.Theta = "θ"
	}
	if o.Weight == "" {
		o.Weight = "weight"
	}
	return o
}

// Girsanov changes measure so that E[F(X)] under sys equals E[F(X)·weight]
// under the result. u is the scalar function whose gradient shapes the
// adjustment d = -(g ⊙ ∇u)/u; the drift loses g·d and a new state θ with zero
// drift and diffusion θ·d is appended.
//
// For diagonal noise with more than one channel the diffusion becomes
// diag(g) with θ's row appended. A single channel, either scalar noise or a
// one-state system, keeps vector form and is marked scalar noise so θ
// shares the process. A matrix gains θ's row.
//
// Only a symbolically zero u is rejected; a u that vanishes for particular
// parameter values divides by zero at evaluation time.
func Girsanov(sys *sde.System, u symbolic.Expr, opts GirsanovOptions) (*sde.System, error) {
	opts = opts.withDefaults()
	if symbolic.IsZero(symbolic.Expand(u)) {
		return nil, &sde.DivisionByZeroError{Expr: u.String()}
	}
	for _, name := range []string{opts.Theta, opts.Weight} {
		if _, taken := sys.Lookup(name); taken {
			return nil, &sde.StructuralError{System: sys.Name(), Msg: fmt.Sprintf("girsanov: name %q already in use", name)}
		}
	}

	theta := symbolic.S(opts.Theta)
	states := sys.States()
	// g row i pairs with the state of drift row i
	grad := symbolic.Gradient(u, sys.RowStates())
	invU := symbolic.Power(u, symbolic.N(-1))
	noise := sys.Noise()
	n := len(states)

	var (
		correction []symbolic.Expr
		newNoise   sde.Diffusion
		scalar     = sys.IsScalarNoise()
	)

	switch {
	case noise.IsMatrix():
		g := noise.Matrix()
		gradCol := g.Transpose().MulVec(grad)
		d := make([]symbolic.Expr, len(gradCol))
		for k, e := range gradCol {
			d[k] = symbolic.Simplify(symbolic.Product(symbolic.N(-1), e, invU))
		}
		correction = g.MulVec(d)
		m, err := g.AppendRow(scaled(theta, d))
		if err != nil {
			return nil, err
		}
		newNoise = sde.MatrixNoise(m)

	case scalar || n == 1:
		g := noise.Vector()
		terms := make([]symbolic.Expr, n)
		for i := range g {
			terms[i] = symbolic.Product(g[i], grad[i])
		}
		d := symbolic.Simplify(symbolic.Product(symbolic.N(-1), symbolic.Sum(terms...), invU))
		correction = scaled(d, g)
		newNoise = sde.DiagonalNoise(append(g, symbolic.Product(theta, d))...)
		scalar = true

	default:
		g := noise.Vector()
		d := make([]symbolic.Expr, n)
		for i := range g {
			d[i] = symbolic.Simplify(symbolic.Product(symbolic.N(-1), g[i], grad[i], invU))
		}
		correction = make([]symbolic.Expr, n)
		for i := range g {
			correction[i] = symbolic.Product(g[i], d[i])
		}
		m, err := symbolic.Diagonal(g).AppendRow(scaled(theta, d))
		if err != nil {
			return nil, err
		}
		newNoise = sde.MatrixNoise(m)
		scalar = false
	}

	drift := sys.Drift()
	for i, eq := range drift {
		drift[i] = sde.Eq(eq.LHS, symbolic.Minus(eq.RHS, correction[i]))
	}
	drift = append(drift, sde.Eq(symbolic.D(theta), symbolic.N(0)))

	o := sys.Options()
	o.Tag = 0
	o.SkipValidation = true
	o.ScalarNoise = scalar
	o.Observed = append(o.Observed, sde.Eq(symbolic.S(opts.Weight), symbolic.Quo(theta, opts.InitialWeight)))
	if o.Defaults == nil {
		o.Defaults = map[string]symbolic.Expr{}
	}
	o.Defaults[opts.Theta] = opts.InitialWeight
	if o.Units != nil {
		o.Units[opts.Theta] = ""
	}

	return sde.New(drift, newNoise, sys.IndependentVariable(), append(states, theta), sys.Parameters(), o)
}

func scaled(s symbolic.Expr, v []symbolic.Expr) []symbolic.Expr {
	out := make([]symbolic.Expr, len(v))
	for i, e := range v {
		out[i] = symbolic.Product(s, e)
	}
	return out
}
