package sde

import (
	"strings"

	"github.com/san-kum/sdekit/internal/symbolic"
)

// Diffusion is the noise term g. A vector holds one coefficient per state
// (diagonal noise, or a single shared process when the system is scalar
// noise); a matrix has one row per state and one column per channel.
type Diffusion struct {
	vec []symbolic.Expr
	mat *symbolic.Matrix
}

func DiagonalNoise(entries ...symbolic.Expr) Diffusion {
	return Diffusion{vec: append([]symbolic.Expr(nil), entries...)}
}

func MatrixNoise(m *symbolic.Matrix) Diffusion {
	if m == nil {
		return Diffusion{}
	}
	return Diffusion{mat: m.Clone()}
}

func (d Diffusion) IsMatrix() bool { return d.mat != nil }

// Vector returns the diagonal entries, or nil for matrix noise.
func (d Diffusion) Vector() []symbolic.Expr {
	if d.mat != nil {
		return nil
	}
	return append([]symbolic.Expr(nil), d.vec...)
}

// Matrix returns a copy of the noise matrix, or nil for vector noise.
func (d Diffusion) Matrix() *symbolic.Matrix {
	if d.mat == nil {
		return nil
	}
	return d.mat.Clone()
}

func (d Diffusion) Rows() int {
	if d.mat != nil {
		return d.mat.Rows()
	}
	return len(d.vec)
}

// Channels is the number of independent Wiener processes.
func (d Diffusion) Channels(scalar bool) int {
	switch {
	case d.mat != nil:
		return d.mat.Cols()
	case scalar:
		return 1
	}
	return len(d.vec)
}

// Entries returns every coefficient, row-major for matrices.
func (d Diffusion) Entries() []symbolic.Expr {
	if d.mat == nil {
		return append([]symbolic.Expr(nil), d.vec...)
	}
	out := make([]symbolic.Expr, 0, d.mat.Rows()*d.mat.Cols())
	for i := 0; i < d.mat.Rows(); i++ {
		out = append(out, d.mat.Row(i)...)
	}
	return out
}

// Row returns the coefficients of row i.
func (d Diffusion) Row(i int) []symbolic.Expr {
	if d.mat != nil {
		return d.mat.Row(i)
	}
	return []symbolic.Expr{d.vec[i]}
}

// AsMatrix returns the diffusion as a matrix: vector noise becomes diag(g)
// or, when scalar, a single column.
func (d Diffusion) AsMatrix(scalar bool) *symbolic.Matrix {
	switch {
	case d.mat != nil:
		return d.mat.Clone()
	case scalar:
		m := symbolic.NewMatrix(len(d.vec), 1)
		for i, e := range d.vec {
			m.Set(i, 0, e)
		}
		return m
	}
	return symbolic.Diagonal(d.vec)
}

func (d Diffusion) Map(fn func(symbolic.Expr) symbolic.Expr) Diffusion {
	if d.mat != nil {
		return Diffusion{mat: d.mat.Map(fn)}
	}
	out := make([]symbolic.Expr, len(d.vec))
	for i, e := range d.vec {
		out[i] = fn(e)
	}
	return Diffusion{vec: out}
}

func (d Diffusion) Equal(o Diffusion) bool {
	if d.IsMatrix() != o.IsMatrix() {
		return false
	}
	if d.mat != nil {
		return d.mat.Equal(o.mat)
	}
	if len(d.vec) != len(o.vec) {
		return false
	}
	for i := range d.vec {
		if !symbolic.Equal(d.vec[i], o.vec[i]) {
			return false
		}
	}
	return true
}

func (d Diffusion) String() string {
	if d.mat != nil {
		return d.mat.String()
	}
	parts := make([]string, len(d.vec))
	for i, e := range d.vec {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (d Diffusion) clone() Diffusion {
	if d.mat != nil {
		return Diffusion{mat: d.mat.Clone()}
	}
	return Diffusion{vec: append([]symbolic.Expr(nil), d.vec...)}
}
