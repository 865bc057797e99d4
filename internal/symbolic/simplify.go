package symbolic

import (
	"math"
	"math/big"
	"sort"
)

// maxFoldExponent bounds exact integer powers of rational constants.
const maxFoldExponent = 64

// Simplify rebuilds e bottom-up through the canonicalizing constructors.
// Expressions built by this package are already canonical, so Simplify is
// idempotent on them.
func Simplify(e Expr) Expr {
	switch v := e.(type) {
	case *Num, *Sym:
		return v
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			terms[i] = Simplify(t)
		}
		return addOf(terms)
	case *Mul:
		factors := make([]Expr, len(v.factors))
		for i, f := range v.factors {
			factors[i] = Simplify(f)
		}
		return mulOf(factors)
	case *Pow:
		return powOf(Simplify(v.base), Simplify(v.exp))
	case *Call:
		return callOf(v.fn, Simplify(v.arg))
	case *Differential:
		return D(Simplify(v.arg))
	}
	return e
}

type keyedTerm struct {
	key   string
	coeff *big.Rat
	rest  Expr
}

func addOf(in []Expr) Expr {
	constant := new(big.Rat)
	index := map[string]*keyedTerm{}
	var order []*keyedTerm

	var visit func(e Expr)
	visit = func(e Expr) {
		switch v := e.(type) {
		case *Num:
			constant.Add(constant, v.val)
		case *Add:
			for _, t := range v.terms {
				visit(t)
			}
		default:
			coeff, rest := splitCoeff(e)
			key := rest.String()
			if kt, ok := index[key]; ok {
				kt.coeff.Add(kt.coeff, coeff)
				return
			}
			kt := &keyedTerm{key: key, coeff: new(big.Rat).Set(coeff), rest: rest}
			index[key] = kt
			order = append(order, kt)
		}
	}
	for _, t := range in {
		visit(t)
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].key < order[j].key })
	out := make([]Expr, 0, len(order)+1)
	for _, kt := range order {
		if kt.coeff.Sign() == 0 {
			continue
		}
		out = append(out, withCoeff(kt.coeff, kt.rest))
	}
	if constant.Sign() != 0 {
		out = append(out, &Num{val: constant})
	}
	switch len(out) {
	case 0:
		return N(0)
	case 1:
		return out[0]
	}
	return &Add{terms: out}
}

// splitCoeff separates the leading rational coefficient of a canonical term.
func splitCoeff(e Expr) (*big.Rat, Expr) {
	m, ok := e.(*Mul)
	if !ok {
		return ratOne, e
	}
	n, ok := m.factors[0].(*Num)
	if !ok {
		return ratOne, e
	}
	rest := m.factors[1:]
	if len(rest) == 1 {
		return n.val, rest[0]
	}
	return n.val, &Mul{factors: append([]Expr(nil), rest...)}
}

func withCoeff(c *big.Rat, rest Expr) Expr {
	if c.Cmp(ratOne) == 0 {
		return rest
	}
	coeff := &Num{val: new(big.Rat).Set(c)}
	if m, ok := rest.(*Mul); ok {
		return &Mul{factors: append([]Expr{coeff}, m.factors...)}
	}
	return &Mul{factors: []Expr{coeff, rest}}
}

type powerGroup struct {
	key  string
	base Expr
	exps []Expr
}

func mulOf(in []Expr) Expr {
	coeff := new(big.Rat).SetInt64(1)
	index := map[string]*powerGroup{}
	var order []*powerGroup

	var visit func(e Expr)
	visit = func(e Expr) {
		switch v := e.(type) {
		case *Num:
			coeff.Mul(coeff, v.val)
		case *Mul:
			for _, f := range v.factors {
				visit(f)
			}
		default:
			base, exp := e, Expr(N(1))
			if p, ok := e.(*Pow); ok {
				base, exp = p.base, p.exp
			}
			key := base.String()
			if g, ok := index[key]; ok {
				g.exps = append(g.exps, exp)
				return
			}
			g := &powerGroup{key: key, base: base, exps: []Expr{exp}}
			index[key] = g
			order = append(order, g)
		}
	}
	for _, f := range in {
		visit(f)
	}
	if coeff.Sign() == 0 {
		return N(0)
	}

	var factors []Expr
	regroup := false
	for _, g := range order {
		exp := g.exps[0]
		if len(g.exps) > 1 {
			exp = addOf(g.exps)
		}
		p := powOf(g.base, exp)
		switch v := p.(type) {
		case *Num:
			coeff.Mul(coeff, v.val)
		case *Mul:
			factors = append(factors, v.factors...)
			regroup = true
		default:
			factors = append(factors, p)
		}
	}
	if coeff.Sign() == 0 {
		return N(0)
	}
	if regroup {
		return mulOf(append([]Expr{&Num{val: coeff}}, factors...))
	}

	sort.SliceStable(factors, func(i, j int) bool { return factors[i].String() < factors[j].String() })
	if len(factors) == 0 {
		return &Num{val: coeff}
	}
	if coeff.Cmp(ratOne) == 0 {
		if len(factors) == 1 {
			return factors[0]
		}
		return &Mul{factors: factors}
	}
	return &Mul{factors: append([]Expr{&Num{val: coeff}}, factors...)}
}

func powOf(base, exp Expr) Expr {
	en, expNum := exp.(*Num)
	if expNum && en.IsZero() {
		return N(1)
	}
	if expNum && en.IsOne() {
		return base
	}

	if bn, ok := base.(*Num); ok {
		switch {
		case bn.IsZero():
			if expNum && !en.IsNegative() {
				return N(0)
			}
			return &Pow{base: base, exp: exp}
		case bn.IsOne():
			return N(1)
		}
		if expNum && en.IsInteger() {
			if r, ok := ratPow(bn.val, en.val.Num()); ok {
				return &Num{val: r}
			}
		}
		return &Pow{base: base, exp: exp}
	}

	if expNum && en.IsInteger() {
		switch b := base.(type) {
		case *Pow:
			return powOf(b.base, mulOf([]Expr{b.exp, exp}))
		case *Mul:
			factors := make([]Expr, len(b.factors))
			for i, f := range b.factors {
				factors[i] = powOf(f, exp)
			}
			return mulOf(factors)
		}
	}
	return &Pow{base: base, exp: exp}
}

func ratPow(b *big.Rat, e *big.Int) (*big.Rat, bool) {
	if !e.IsInt64() {
		return nil, false
	}
	k := e.Int64()
	if k > maxFoldExponent || k < -maxFoldExponent {
		return nil, false
	}
	neg := k < 0
	if neg {
		k = -k
	}
	kb := big.NewInt(k)
	num := new(big.Int).Exp(b.Num(), kb, nil)
	den := new(big.Int).Exp(b.Denom(), kb, nil)
	if neg {
		num, den = den, num
	}
	if den.Sign() == 0 {
		return nil, false
	}
	return new(big.Rat).SetFrac(num, den), true
}

func callOf(fn Func, arg Expr) Expr {
	if n, ok := arg.(*Num); ok {
		if fn == Abs {
			return &Num{val: new(big.Rat).Abs(n.val)}
		}
		if fn == Sign {
			return N(int64(n.val.Sign()))
		}
		if n.IsZero() {
			switch fn {
			case Sin, Tan, Sinh, Tanh, Asin, Atan:
				return N(0)
			case Cos, Cosh, Exp:
				return N(1)
			}
		}
		if fn == Log && n.IsOne() {
			return N(0)
		}
		if v := applyFloat(fn, n.Float64()); !math.IsNaN(v) && !math.IsInf(v, 0) {
			return Float(v)
		}
	}
	if inner, ok := arg.(*Call); ok {
		switch {
		case fn == Log && inner.fn == Exp:
			return inner.arg
		case fn == Exp && inner.fn == Log:
			return inner.arg
		case fn == Abs && inner.fn == Abs:
			return inner
		}
	}
	return &Call{fn: fn, arg: arg}
}

func applyFloat(fn Func, v float64) float64 {
	switch fn {
	case Sin:
		return math.Sin(v)
	case Cos:
		return math.Cos(v)
	case Tan:
		return math.Tan(v)
	case Exp:
		return math.Exp(v)
	case Log:
		return math.Log(v)
	case Sinh:
		return math.Sinh(v)
	case Cosh:
		return math.Cosh(v)
	case Tanh:
		return math.Tanh(v)
	case Asin:
		return math.Asin(v)
	case Acos:
		return math.Acos(v)
	case Atan:
		return math.Atan(v)
	case Abs:
		return math.Abs(v)
	case Sign:
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		}
		return 0
	}
	return math.NaN()
}
