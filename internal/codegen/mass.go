package codegen

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/sdekit/internal/dynamo"
	"github.com/san-kum/sdekit/internal/sde"
	"github.com/san-kum/sdekit/internal/symbolic"
)

// MassMatrix returns M as a *mat.DiagDense identity for explicit systems
// and a *mat.Dense otherwise, with columns in the system's state order.
// When u0 is given and M is not the identity, M is checked against the
// length of u0.
func MassMatrix(sys *sde.System, u0 dynamo.State) (mat.Matrix, error) {
	return MassMatrixFor(sys, nil, u0)
}

// MassMatrixFor is MassMatrix with columns in the given state order, the
// order CompileJacobian and CompileWfact use for the same states.
func MassMatrixFor(sys *sde.System, states []*symbolic.Sym, u0 dynamo.State) (mat.Matrix, error) {
	l, err := newLayout(sys, states, nil)
	if err != nil {
		return nil, err
	}
	return l.massMatrix(u0)
}

func (l *layout) massMatrix(u0 dynamo.State) (mat.Matrix, error) {
	m := l.permuteCols(l.sys.MassMatrix())
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return &mat.Dense{}, nil
	}
	if isIdentity(m) {
		ones := make([]float64, rows)
		for i := range ones {
			ones[i] = 1
		}
		return mat.NewDiagDense(rows, ones), nil
	}
	if u0 != nil && len(u0) != cols {
		return nil, fmt.Errorf("%w: mass matrix is %dx%d, u0 has %d entries", dynamo.ErrDimensionMismatch, rows, cols, len(u0))
	}
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v, err := symbolic.Eval(m.At(i, j), nil)
			if err != nil {
				return nil, fmt.Errorf("mass matrix entry (%d,%d): %w", i, j, err)
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}

func isIdentity(m *symbolic.Matrix) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			e := m.At(i, j)
			if (i == j && !symbolic.IsOne(e)) || (i != j && !symbolic.IsZero(e)) {
				return false
			}
		}
	}
	return true
}

// NoiseRatePrototype describes the noise shape to a solver. Vector noise
// needs no prototype. General matrix noise gets a zero *mat.Dense, or a
// *dynamo.SparsePattern of its structural non-zeros when sparse is set.
func NoiseRatePrototype(sys *sde.System, sparse bool) dynamo.Noise {
	rows, cols, vector := DiffusionShape(sys)
	switch {
	case vector && sys.IsScalarNoise():
		return dynamo.Noise{Kind: dynamo.ScalarNoise, Channels: 1}
	case vector:
		return dynamo.Noise{Kind: dynamo.DiagonalNoise, Channels: rows}
	}

	n := dynamo.Noise{Kind: dynamo.GeneralNoise, Channels: cols}
	if !sparse {
		n.RatePrototype = mat.NewDense(rows, cols, nil)
		return n
	}
	g := sys.Noise().Matrix()
	var nz [][2]int
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if !symbolic.IsZero(g.At(i, j)) {
				nz = append(nz, [2]int{i, j})
			}
		}
	}
	n.RatePrototype = dynamo.NewSparsePattern(rows, cols, nz)
	return n
}
