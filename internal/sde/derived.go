package sde

import "github.com/san-kum/sdekit/internal/symbolic"

// Gamma is the step-size symbol in the factorized system matrices.
var Gamma = symbolic.S("γ_W")

// TimeGradient returns ∂f/∂t.
func (s *System) TimeGradient() []symbolic.Expr {
	g := s.cache.tgrad.get(func() []symbolic.Expr {
		rhs := s.DriftRHS()
		out := make([]symbolic.Expr, len(rhs))
		for i, e := range rhs {
			out[i] = symbolic.Diff(e, s.iv)
		}
		return out
	})
	return append([]symbolic.Expr(nil), g...)
}

// Jacobian returns ∂f/∂x with rows in drift order and columns in state order.
func (s *System) Jacobian() *symbolic.Matrix {
	return s.cache.jac.get(func() *symbolic.Matrix {
		return symbolic.Jacobian(s.DriftRHS(), s.states)
	}).Clone()
}

// ControlJacobian returns ∂f/∂c over the control parameters.
func (s *System) ControlJacobian() *symbolic.Matrix {
	return s.cache.ctrlJac.get(func() *symbolic.Matrix {
		return symbolic.Jacobian(s.DriftRHS(), s.controls)
	}).Clone()
}

// MassMatrix returns M in M·dx/dt = f. Row i has a 1 in the column of the
// state differentiated by equation i; algebraic equations give zero rows.
func (s *System) MassMatrix() *symbolic.Matrix {
	return s.cache.mass.get(func() *symbolic.Matrix {
		n := len(s.states)
		m := symbolic.NewMatrix(len(s.drift), n)
		pos := make(map[string]int, n)
		for j, v := range s.states {
			pos[v.Name()] = j
		}
		for i, eq := range s.drift {
			if _, ok := eq.LHS.(*symbolic.Differential); !ok {
				continue
			}
			if t, ok := eq.Target(); ok {
				if j, ok := pos[t.Name()]; ok {
					m.Set(i, j, symbolic.N(1))
				}
			}
		}
		return m
	}).Clone()
}

// RowStates returns the state each drift row belongs to: the target of a
// differential equation, or for an algebraic equation the next state no
// differential equation claims, in state order. Diffusion row i pairs with
// RowStates()[i].
func (s *System) RowStates() []*symbolic.Sym {
	claimed := make(map[string]bool, len(s.states))
	out := make([]*symbolic.Sym, len(s.drift))
	for i, eq := range s.drift {
		if eq.IsAlgebraic() {
			continue
		}
		if t, ok := eq.Target(); ok {
			out[i] = t
			claimed[t.Name()] = true
		}
	}
	free := make([]*symbolic.Sym, 0, len(s.states))
	for _, v := range s.states {
		if !claimed[v.Name()] {
			free = append(free, v)
		}
	}
	for i := range out {
		if out[i] == nil && len(free) > 0 {
			out[i], free = free[0], free[1:]
		}
	}
	return out
}

// IsIdentityMass reports whether the mass matrix is the identity.
func (s *System) IsIdentityMass() bool {
	m := s.MassMatrix()
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

// W returns M - γJ.
func (s *System) W() *symbolic.Matrix {
	return s.cache.w.get(func() *symbolic.Matrix {
		return s.MassMatrix().Sub(s.Jacobian().Scale(Gamma))
	}).Clone()
}

// Wt returns M/γ - J, the variant used by time-derivative stages.
func (s *System) Wt() *symbolic.Matrix {
	return s.cache.wt.get(func() *symbolic.Matrix {
		return s.MassMatrix().Scale(symbolic.Power(Gamma, symbolic.N(-1))).Sub(s.Jacobian())
	}).Clone()
}

// Cached reports which derived quantities have been computed on s.
func (s *System) Cached() map[string]bool {
	return map[string]bool{
		"tgrad":   s.cache.tgrad.loaded(),
		"jac":     s.cache.jac.loaded(),
		"ctrljac": s.cache.ctrlJac.loaded(),
		"mass":    s.cache.mass.loaded(),
		"W":       s.cache.w.loaded(),
		"Wt":      s.cache.wt.loaded(),
	}
}
