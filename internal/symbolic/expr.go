package symbolic

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Expr is a node of the expression tree. The set of implementations is closed.
type Expr interface {
	String() string
	node()
}

type Num struct{ val *big.Rat }

type Sym struct{ name string }

type Add struct{ terms []Expr }

type Mul struct{ factors []Expr }

type Pow struct{ base, exp Expr }

type Call struct {
	fn  Func
	arg Expr
}

// Differential is D(arg), the time derivative marker on equation left sides.
type Differential struct{ arg Expr }

func (*Num) node()          {}
func (*Sym) node()          {}
func (*Add) node()          {}
func (*Mul) node()          {}
func (*Pow) node()          {}
func (*Call) node()         {}
func (*Differential) node() {}

// Func enumerates the built-in functions a Call may apply.
type Func uint8

const (
	Sin Func = iota
	Cos
	Tan
	Exp
	Log
	Sinh
	Cosh
	Tanh
	Asin
	Acos
	Atan
	Abs
	Sign
)

var funcNames = [...]string{
	Sin:  "sin",
	Cos:  "cos",
	Tan:  "tan",
	Exp:  "exp",
	Log:  "log",
	Sinh: "sinh",
	Cosh: "cosh",
	Tanh: "tanh",
	Asin: "asin",
	Acos: "acos",
	Atan: "atan",
	Abs:  "abs",
	Sign: "sign",
}

func (f Func) String() string {
	if int(f) < len(funcNames) {
		return funcNames[f]
	}
	return fmt.Sprintf("func(%d)", uint8(f))
}

// LookupFunc resolves a function name as written in source text.
func LookupFunc(name string) (Func, bool) {
	if name == "ln" {
		return Log, true
	}
	for i, n := range funcNames {
		if n == name {
			return Func(i), true
		}
	}
	return 0, false
}

// ------------------------------------------------------------
// Constructors
// ------------------------------------------------------------

func N(n int64) *Num { return &Num{val: new(big.Rat).SetInt64(n)} }

func F(p, q int64) *Num {
	if q == 0 {
		panic("symbolic: zero denominator")
	}
	return &Num{val: new(big.Rat).SetFrac64(p, q)}
}

func Rat(r *big.Rat) *Num { return &Num{val: new(big.Rat).Set(r)} }

// Float converts f exactly. It panics on NaN and infinities.
func Float(f float64) *Num {
	r := new(big.Rat)
	if r.SetFloat64(f) == nil {
		panic(fmt.Sprintf("symbolic: non-finite constant %v", f))
	}
	return &Num{val: r}
}

func S(name string) *Sym { return &Sym{name: name} }

// D returns the derivative marker D(arg).
func D(arg Expr) *Differential { return &Differential{arg: arg} }

func Sum(terms ...Expr) Expr { return addOf(terms) }

func Product(factors ...Expr) Expr { return mulOf(factors) }

func Power(base, exp Expr) Expr { return powOf(base, exp) }

func Apply(fn Func, arg Expr) Expr { return callOf(fn, arg) }

func Neg(e Expr) Expr { return mulOf([]Expr{N(-1), e}) }

func Minus(a, b Expr) Expr { return addOf([]Expr{a, Neg(b)}) }

func Quo(a, b Expr) Expr { return mulOf([]Expr{a, powOf(b, N(-1))}) }

func Sqrt(e Expr) Expr { return powOf(e, F(1, 2)) }

// ------------------------------------------------------------
// Accessors
// ------------------------------------------------------------

func (n *Num) Rat() *big.Rat { return new(big.Rat).Set(n.val) }

func (n *Num) Float64() float64 {
	f, _ := n.val.Float64()
	return f
}

func (n *Num) IsZero() bool     { return n.val.Sign() == 0 }
func (n *Num) IsOne() bool      { return n.val.Cmp(ratOne) == 0 }
func (n *Num) IsInteger() bool  { return n.val.IsInt() }
func (n *Num) IsNegative() bool { return n.val.Sign() < 0 }

func (s *Sym) Name() string { return s.name }

func (a *Add) Terms() []Expr { return append([]Expr(nil), a.terms...) }

func (m *Mul) Factors() []Expr { return append([]Expr(nil), m.factors...) }

func (p *Pow) Base() Expr     { return p.base }
func (p *Pow) Exponent() Expr { return p.exp }

func (c *Call) Func() Func { return c.fn }
func (c *Call) Arg() Expr  { return c.arg }

func (d *Differential) Arg() Expr { return d.arg }

var ratOne = big.NewRat(1, 1)

// IsZero reports whether e is the exact constant 0.
func IsZero(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.IsZero()
}

// IsOne reports whether e is the exact constant 1.
func IsOne(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.IsOne()
}

// ------------------------------------------------------------
// Printing
// ------------------------------------------------------------

func (n *Num) String() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	if n.val.Denom().BitLen() <= 20 {
		return n.val.RatString()
	}
	f, _ := n.val.Float64()
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (s *Sym) String() string { return s.name }

func (a *Add) String() string {
	var b strings.Builder
	for i, t := range a.terms {
		s := t.String()
		switch {
		case i == 0:
			b.WriteString(s)
		case strings.HasPrefix(s, "-"):
			b.WriteString(" - ")
			b.WriteString(s[1:])
		default:
			b.WriteString(" + ")
			b.WriteString(s)
		}
	}
	return b.String()
}

func (m *Mul) String() string {
	parts := make([]string, 0, len(m.factors))
	neg := false
	for i, f := range m.factors {
		if n, ok := f.(*Num); ok && i == 0 {
			switch {
			case n.val.Cmp(big.NewRat(-1, 1)) == 0:
				neg = true
				continue
			case n.IsNegative():
				neg = true
				parts = append(parts, Rat(new(big.Rat).Neg(n.val)).String())
				continue
			}
		}
		parts = append(parts, factorString(f))
	}
	s := strings.Join(parts, "*")
	if neg {
		return "-" + s
	}
	return s
}

func factorString(f Expr) string {
	if _, ok := f.(*Add); ok {
		return "(" + f.String() + ")"
	}
	return f.String()
}

func (p *Pow) String() string {
	base := p.base.String()
	switch b := p.base.(type) {
	case *Add, *Mul, *Pow:
		base = "(" + base + ")"
	case *Num:
		if !b.IsInteger() || b.IsNegative() {
			base = "(" + base + ")"
		}
	}
	exp := p.exp.String()
	switch e := p.exp.(type) {
	case *Sym, *Call:
	case *Num:
		if !e.IsInteger() || e.IsNegative() {
			exp = "(" + exp + ")"
		}
	default:
		exp = "(" + exp + ")"
	}
	return base + "^" + exp
}

func (c *Call) String() string { return c.fn.String() + "(" + c.arg.String() + ")" }

func (d *Differential) String() string { return "D(" + d.arg.String() + ")" }

// ------------------------------------------------------------
// Structural equality
// ------------------------------------------------------------

// Equal reports structural equality of two canonical expressions.
func Equal(a, b Expr) bool {
	switch x := a.(type) {
	case *Num:
		y, ok := b.(*Num)
		return ok && x.val.Cmp(y.val) == 0
	case *Sym:
		y, ok := b.(*Sym)
		return ok && x.name == y.name
	case *Add:
		y, ok := b.(*Add)
		return ok && equalSlices(x.terms, y.terms)
	case *Mul:
		y, ok := b.(*Mul)
		return ok && equalSlices(x.factors, y.factors)
	case *Pow:
		y, ok := b.(*Pow)
		return ok && Equal(x.base, y.base) && Equal(x.exp, y.exp)
	case *Call:
		y, ok := b.(*Call)
		return ok && x.fn == y.fn && Equal(x.arg, y.arg)
	case *Differential:
		y, ok := b.(*Differential)
		return ok && Equal(x.arg, y.arg)
	}
	return false
}

func equalSlices(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// ------------------------------------------------------------
// Free symbols
// ------------------------------------------------------------

// FreeSymbols returns the sorted names of every symbol in e.
func FreeSymbols(e Expr) []string {
	set := map[string]struct{}{}
	collectSymbols(e, set)
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Contains reports whether the symbol name occurs in e.
func Contains(e Expr, name string) bool {
	switch v := e.(type) {
	case *Num:
		return false
	case *Sym:
		return v.name == name
	case *Add:
		for _, t := range v.terms {
			if Contains(t, name) {
				return true
			}
		}
		return false
	case *Mul:
		for _, f := range v.factors {
			if Contains(f, name) {
				return true
			}
		}
		return false
	case *Pow:
		return Contains(v.base, name) || Contains(v.exp, name)
	case *Call:
		return Contains(v.arg, name)
	case *Differential:
		return Contains(v.arg, name)
	}
	return false
}

func collectSymbols(e Expr, out map[string]struct{}) {
	switch v := e.(type) {
	case *Num:
	case *Sym:
		out[v.name] = struct{}{}
	case *Add:
		for _, t := range v.terms {
			collectSymbols(t, out)
		}
	case *Mul:
		for _, f := range v.factors {
			collectSymbols(f, out)
		}
	case *Pow:
		collectSymbols(v.base, out)
		collectSymbols(v.exp, out)
	case *Call:
		collectSymbols(v.arg, out)
	case *Differential:
		collectSymbols(v.arg, out)
	}
}
