package symbolic

// Diff returns the partial derivative of e with respect to v.
// Differential markers are treated as independent symbols.
func Diff(e Expr, v *Sym) Expr {
	switch x := e.(type) {
	case *Num:
		return N(0)
	case *Sym:
		if x.name == v.name {
			return N(1)
		}
		return N(0)
	case *Add:
		terms := make([]Expr, len(x.terms))
		for i, t := range x.terms {
			terms[i] = Diff(t, v)
		}
		return addOf(terms)
	case *Mul:
		terms := make([]Expr, 0, len(x.factors))
		for i, fi := range x.factors {
			dfi := Diff(fi, v)
			if IsZero(dfi) {
				continue
			}
			factors := make([]Expr, 0, len(x.factors))
			factors = append(factors, dfi)
			for j, fj := range x.factors {
				if j != i {
					factors = append(factors, fj)
				}
			}
			terms = append(terms, mulOf(factors))
		}
		return addOf(terms)
	case *Pow:
		return diffPow(x, v)
	case *Call:
		du := Diff(x.arg, v)
		if IsZero(du) {
			return N(0)
		}
		return mulOf([]Expr{outerDerivative(x.fn, x.arg), du})
	case *Differential:
		return N(0)
	}
	return N(0)
}

func diffPow(p *Pow, v *Sym) Expr {
	du := Diff(p.base, v)
	dv := Diff(p.exp, v)
	switch {
	case IsZero(du) && IsZero(dv):
		return N(0)
	case IsZero(dv):
		// d(u^c) = c*u^(c-1)*du
		return mulOf([]Expr{p.exp, powOf(p.base, addOf([]Expr{p.exp, N(-1)})), du})
	case IsZero(du):
		// d(c^w) = c^w*log(c)*dw
		return mulOf([]Expr{p, callOf(Log, p.base), dv})
	}
	logTerm := mulOf([]Expr{dv, callOf(Log, p.base)})
	quoTerm := mulOf([]Expr{p.exp, du, powOf(p.base, N(-1))})
	return mulOf([]Expr{p, addOf([]Expr{logTerm, quoTerm})})
}

func outerDerivative(fn Func, u Expr) Expr {
	switch fn {
	case Sin:
		return callOf(Cos, u)
	case Cos:
		return Neg(callOf(Sin, u))
	case Tan:
		return addOf([]Expr{N(1), powOf(callOf(Tan, u), N(2))})
	case Exp:
		return callOf(Exp, u)
	case Log:
		return powOf(u, N(-1))
	case Sinh:
		return callOf(Cosh, u)
	case Cosh:
		return callOf(Sinh, u)
	case Tanh:
		return addOf([]Expr{N(1), Neg(powOf(callOf(Tanh, u), N(2)))})
	case Asin:
		return powOf(addOf([]Expr{N(1), Neg(powOf(u, N(2)))}), F(-1, 2))
	case Acos:
		return Neg(powOf(addOf([]Expr{N(1), Neg(powOf(u, N(2)))}), F(-1, 2)))
	case Atan:
		return powOf(addOf([]Expr{N(1), powOf(u, N(2))}), N(-1))
	case Abs:
		return callOf(Sign, u)
	case Sign:
		return N(0)
	}
	return N(0)
}

// Gradient returns the partial derivatives of e with respect to each var.
func Gradient(e Expr, vars []*Sym) []Expr {
	out := make([]Expr, len(vars))
	for i, v := range vars {
		out[i] = Diff(e, v)
	}
	return out
}

// Jacobian returns the len(exprs)×len(vars) matrix of partial derivatives.
func Jacobian(exprs []Expr, vars []*Sym) *Matrix {
	m := NewMatrix(len(exprs), len(vars))
	for i, e := range exprs {
		for j, v := range vars {
			m.Set(i, j, Diff(e, v))
		}
	}
	return m
}

// Substitute replaces every symbol named in subs and re-canonicalizes.
func Substitute(e Expr, subs map[string]Expr) Expr {
	if len(subs) == 0 {
		return e
	}
	switch x := e.(type) {
	case *Num:
		return x
	case *Sym:
		if r, ok := subs[x.name]; ok {
			return r
		}
		return x
	case *Add:
		terms := make([]Expr, len(x.terms))
		for i, t := range x.terms {
			terms[i] = Substitute(t, subs)
		}
		return addOf(terms)
	case *Mul:
		factors := make([]Expr, len(x.factors))
		for i, f := range x.factors {
			factors[i] = Substitute(f, subs)
		}
		return mulOf(factors)
	case *Pow:
		return powOf(Substitute(x.base, subs), Substitute(x.exp, subs))
	case *Call:
		return callOf(x.fn, Substitute(x.arg, subs))
	case *Differential:
		return D(Substitute(x.arg, subs))
	}
	return e
}

// maxExpandPower bounds the integer powers of sums that Expand multiplies out.
const maxExpandPower = 10

// Expand distributes products over sums and multiplies out small integer
// powers of sums.
func Expand(e Expr) Expr {
	switch x := e.(type) {
	case *Add:
		terms := make([]Expr, len(x.terms))
		for i, t := range x.terms {
			terms[i] = Expand(t)
		}
		return addOf(terms)
	case *Mul:
		acc := []Expr{N(1)}
		for _, f := range x.factors {
			ef := Expand(f)
			parts := []Expr{ef}
			if a, ok := ef.(*Add); ok {
				parts = a.terms
			}
			next := make([]Expr, 0, len(acc)*len(parts))
			for _, a := range acc {
				for _, p := range parts {
					next = append(next, mulOf([]Expr{a, p}))
				}
			}
			acc = next
		}
		return addOf(acc)
	case *Pow:
		base := Expand(x.base)
		if n, ok := x.exp.(*Num); ok && n.IsInteger() {
			k := n.val.Num().Int64()
			if _, isSum := base.(*Add); isSum && n.val.Num().IsInt64() && k > 1 && k <= maxExpandPower {
				factors := make([]Expr, k)
				for i := range factors {
					factors[i] = base
				}
				return Expand(&Mul{factors: factors})
			}
		}
		return powOf(base, Expand(x.exp))
	case *Call:
		return callOf(x.fn, Expand(x.arg))
	case *Differential:
		return D(Expand(x.arg))
	}
	return e
}

// Equivalent reports whether a-b expands to the exact constant 0.
func Equivalent(a, b Expr) bool {
	if Equal(a, b) {
		return true
	}
	return IsZero(Expand(Minus(a, b)))
}
