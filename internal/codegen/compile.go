package codegen

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/sdekit/internal/dynamo"
	"github.com/san-kum/sdekit/internal/sde"
	"github.com/san-kum/sdekit/internal/symbolic"
)

// CompileDrift compiles f. Outputs follow the drift equation order; u and p
// are read in the given state and parameter orders (nil means the system's).
func CompileDrift(sys *sde.System, states, params []*symbolic.Sym) (dynamo.DriftFunc, dynamo.DriftInPlaceFunc, error) {
	l, err := newLayout(sys, states, params)
	if err != nil {
		return nil, nil, err
	}
	ks, err := l.compiler().compileAll(sys.DriftRHS())
	if err != nil {
		return nil, nil, fmt.Errorf("compile drift: %w", err)
	}
	f, fip := vectorFuncs(l, ks)
	return f, fip, nil
}

// CompileTimeGradient compiles ∂f/∂t.
func CompileTimeGradient(sys *sde.System, states, params []*symbolic.Sym) (dynamo.DriftFunc, dynamo.DriftInPlaceFunc, error) {
	l, err := newLayout(sys, states, params)
	if err != nil {
		return nil, nil, err
	}
	ks, err := l.compiler().compileAll(sys.TimeGradient())
	if err != nil {
		return nil, nil, fmt.Errorf("compile time gradient: %w", err)
	}
	f, fip := vectorFuncs(l, ks)
	return f, fip, nil
}

func vectorFuncs(l *layout, ks []kernel) (dynamo.DriftFunc, dynamo.DriftInPlaceFunc) {
	inPlace := func(du, u dynamo.State, p dynamo.Params, t float64) {
		f := l.frame(u, p, t)
		dynamo.CheckLen("output", len(du), len(ks))
		for i, k := range ks {
			du[i] = k(&f)
		}
	}
	alloc := func(u dynamo.State, p dynamo.Params, t float64) dynamo.State {
		du := make(dynamo.State, len(ks))
		inPlace(du, u, p, t)
		return du
	}
	return alloc, inPlace
}

// DiffusionShape reports how CompileDiffusion lays out g: a vector of rows
// entries, or a rows×cols matrix. A matrix whose off-diagonal entries are
// all the exact constant 0 is laid out as its diagonal.
func DiffusionShape(sys *sde.System) (rows, cols int, vector bool) {
	noise := sys.Noise()
	m := noise.Matrix()
	switch {
	case m == nil:
		return noise.Rows(), 1, true
	case m.IsDiagonal():
		return m.Rows(), 1, true
	}
	r, c := m.Dims()
	return r, c, false
}

func diffusionEntries(sys *sde.System) []symbolic.Expr {
	noise := sys.Noise()
	m := noise.Matrix()
	switch {
	case m == nil:
		return noise.Vector()
	case m.IsDiagonal():
		d := make([]symbolic.Expr, m.Rows())
		for i := range d {
			d[i] = m.At(i, i)
		}
		return d
	}
	return noise.Entries()
}

// CompileDiffusion compiles g. The allocating variant returns a
// *mat.VecDense for vector-shaped noise and a *mat.Dense otherwise; the
// in-place variant writes row-major into a buffer of rows·cols entries.
func CompileDiffusion(sys *sde.System, states, params []*symbolic.Sym) (dynamo.DiffusionFunc, dynamo.DiffusionInPlaceFunc, error) {
	l, err := newLayout(sys, states, params)
	if err != nil {
		return nil, nil, err
	}
	ks, err := l.compiler().compileAll(diffusionEntries(sys))
	if err != nil {
		return nil, nil, fmt.Errorf("compile diffusion: %w", err)
	}
	rows, cols, vector := DiffusionShape(sys)

	inPlace := func(out []float64, u dynamo.State, p dynamo.Params, t float64) {
		f := l.frame(u, p, t)
		dynamo.CheckLen("diffusion output", len(out), len(ks))
		for i, k := range ks {
			out[i] = k(&f)
		}
	}
	alloc := func(u dynamo.State, p dynamo.Params, t float64) mat.Matrix {
		if len(ks) == 0 {
			return &mat.VecDense{}
		}
		out := make([]float64, len(ks))
		inPlace(out, u, p, t)
		if vector {
			return mat.NewVecDense(rows, out)
		}
		return mat.NewDense(rows, cols, out)
	}
	return alloc, inPlace, nil
}

// CompileJacobian compiles ∂f/∂u with columns in the given state order.
func CompileJacobian(sys *sde.System, states, params []*symbolic.Sym) (dynamo.JacobianFunc, dynamo.JacobianInPlaceFunc, error) {
	l, err := newLayout(sys, states, params)
	if err != nil {
		return nil, nil, err
	}
	j, jip, err := matrixFuncs(l, l.compiler(), l.permuteCols(sys.Jacobian()))
	if err != nil {
		return nil, nil, fmt.Errorf("compile jacobian: %w", err)
	}
	return j, jip, nil
}

// CompileControlJacobian compiles ∂f/∂c with columns in control order.
func CompileControlJacobian(sys *sde.System, states, params []*symbolic.Sym) (dynamo.JacobianFunc, dynamo.JacobianInPlaceFunc, error) {
	l, err := newLayout(sys, states, params)
	if err != nil {
		return nil, nil, err
	}
	if len(sys.Controls()) == 0 {
		return nil, nil, fmt.Errorf("codegen: system %q has no control parameters", sys.Name())
	}
	j, jip, err := matrixFuncs(l, l.compiler(), sys.ControlJacobian())
	if err != nil {
		return nil, nil, fmt.Errorf("compile control jacobian: %w", err)
	}
	return j, jip, nil
}

// matrixKernel evaluates a compiled matrix of expressions.
type matrixKernel struct {
	rows, cols int
	ks         []kernel
}

func compileMatrix(c *compiler, m *symbolic.Matrix) (*matrixKernel, error) {
	rows, cols := m.Dims()
	mk := &matrixKernel{rows: rows, cols: cols, ks: make([]kernel, 0, rows*cols)}
	for i := 0; i < rows; i++ {
		row, err := c.compileAll(m.Row(i))
		if err != nil {
			return nil, err
		}
		mk.ks = append(mk.ks, row...)
	}
	return mk, nil
}

func (mk *matrixKernel) fill(dst *mat.Dense, f *frame) {
	if r, c := dst.Dims(); r != mk.rows || c != mk.cols {
		panic(mat.ErrShape)
	}
	for i := 0; i < mk.rows; i++ {
		for j := 0; j < mk.cols; j++ {
			dst.Set(i, j, mk.ks[i*mk.cols+j](f))
		}
	}
}

func matrixFuncs(l *layout, c *compiler, m *symbolic.Matrix) (dynamo.JacobianFunc, dynamo.JacobianInPlaceFunc, error) {
	mk, err := compileMatrix(c, m)
	if err != nil {
		return nil, nil, err
	}
	inPlace := func(J *mat.Dense, u dynamo.State, p dynamo.Params, t float64) {
		f := l.frame(u, p, t)
		mk.fill(J, &f)
	}
	alloc := func(u dynamo.State, p dynamo.Params, t float64) *mat.Dense {
		if mk.rows == 0 || mk.cols == 0 {
			return &mat.Dense{}
		}
		J := mat.NewDense(mk.rows, mk.cols, nil)
		inPlace(J, u, p, t)
		return J
	}
	return alloc, inPlace, nil
}

// CompileWfact compiles the LU factorization of W = M - γJ, or of
// W_t = M/γ - J when transformed is set.
func CompileWfact(sys *sde.System, states, params []*symbolic.Sym, transformed bool) (dynamo.WfactFunc, dynamo.WfactInPlaceFunc, error) {
	l, err := newLayout(sys, states, params)
	if err != nil {
		return nil, nil, err
	}
	w := sys.W()
	if transformed {
		w = sys.Wt()
	}
	if w.Rows() != w.Cols() {
		return nil, nil, fmt.Errorf("codegen: W is %dx%d, not square", w.Rows(), w.Cols())
	}
	mk, err := compileMatrix(l.compiler().withGamma(sde.Gamma), l.permuteCols(w))
	if err != nil {
		return nil, nil, fmt.Errorf("compile W: %w", err)
	}

	inPlace := func(lu *mat.LU, u dynamo.State, p dynamo.Params, gamma, t float64) {
		f := l.frame(u, p, t)
		f.gamma = gamma
		W := mat.NewDense(mk.rows, mk.cols, nil)
		mk.fill(W, &f)
		lu.Factorize(W)
	}
	alloc := func(u dynamo.State, p dynamo.Params, gamma, t float64) *mat.LU {
		lu := &mat.LU{}
		inPlace(lu, u, p, gamma, t)
		return lu
	}
	return alloc, inPlace, nil
}

// CompileObserved compiles the observed quantity name, with earlier
// observed symbols substituted into its right side.
func CompileObserved(sys *sde.System, name string, states, params []*symbolic.Sym) (dynamo.ObservedFunc, error) {
	l, err := newLayout(sys, states, params)
	if err != nil {
		return nil, err
	}
	resolved := map[string]symbolic.Expr{}
	for _, eq := range sys.Observed() {
		target, ok := eq.Target()
		if !ok {
			continue
		}
		rhs := symbolic.Substitute(eq.RHS, resolved)
		if target.Name() != name {
			resolved[target.Name()] = rhs
			continue
		}
		k, err := l.compiler().compile(rhs)
		if err != nil {
			return nil, fmt.Errorf("compile observed %q: %w", name, err)
		}
		return func(u dynamo.State, p dynamo.Params, t float64) float64 {
			f := l.frame(u, p, t)
			return k(&f)
		}, nil
	}
	return nil, fmt.Errorf("%w: observed %q in system %q", sde.ErrUnknownVariable, name, sys.Name())
}
