package sde

import "github.com/san-kum/sdekit/internal/symbolic"

// ContinuousEvent fires when any condition lhs - rhs crosses zero. Each
// affect assigns a new value to a state or parameter.
type ContinuousEvent struct {
	Conditions []Equation
	Affects    []Equation
}

// DiscreteEvent is checked after every step; it fires while Condition is
// non-zero.
type DiscreteEvent struct {
	Condition symbolic.Expr
	Affects   []Equation
}

func (e ContinuousEvent) exprs() []symbolic.Expr {
	var out []symbolic.Expr
	for _, c := range e.Conditions {
		out = append(out, c.LHS, c.RHS)
	}
	for _, a := range e.Affects {
		out = append(out, a.LHS, a.RHS)
	}
	return out
}

func (e DiscreteEvent) exprs() []symbolic.Expr {
	var out []symbolic.Expr
	if e.Condition != nil {
		out = append(out, e.Condition)
	}
	for _, a := range e.Affects {
		out = append(out, a.LHS, a.RHS)
	}
	return out
}

func (e ContinuousEvent) mapExprs(fn func(symbolic.Expr) symbolic.Expr) ContinuousEvent {
	return ContinuousEvent{Conditions: mapEquations(e.Conditions, fn), Affects: mapEquations(e.Affects, fn)}
}

func (e DiscreteEvent) mapExprs(fn func(symbolic.Expr) symbolic.Expr) DiscreteEvent {
	out := DiscreteEvent{Affects: mapEquations(e.Affects, fn)}
	if e.Condition != nil {
		out.Condition = fn(e.Condition)
	}
	return out
}

func mapEquations(eqs []Equation, fn func(symbolic.Expr) symbolic.Expr) []Equation {
	if eqs == nil {
		return nil
	}
	out := make([]Equation, len(eqs))
	for i, eq := range eqs {
		out[i] = Equation{LHS: fn(eq.LHS), RHS: fn(eq.RHS)}
	}
	return out
}
