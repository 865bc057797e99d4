package codegen

import (
	"fmt"
	"math"

	"github.com/san-kum/sdekit/internal/symbolic"
)

// frame is the evaluation context a kernel reads from.
type frame struct {
	u, p  []float64
	t     float64
	gamma float64
}

type kernel func(*frame) float64

type slotKind uint8

const (
	slotState slotKind = iota
	slotParam
	slotTime
	slotGamma
)

type slot struct {
	kind slotKind
	idx  int
}

// compiler turns expressions into closures over a fixed symbol layout.
type compiler struct {
	slots map[string]slot
}

func newCompiler(iv *symbolic.Sym, states, params []*symbolic.Sym) *compiler {
	c := &compiler{slots: make(map[string]slot, len(states)+len(params)+2)}
	for i, v := range states {
		c.slots[v.Name()] = slot{kind: slotState, idx: i}
	}
	for i, p := range params {
		c.slots[p.Name()] = slot{kind: slotParam, idx: i}
	}
	c.slots[iv.Name()] = slot{kind: slotTime}
	return c
}

func (c *compiler) withGamma(g *symbolic.Sym) *compiler {
	c.slots[g.Name()] = slot{kind: slotGamma}
	return c
}

func (c *compiler) compileAll(exprs []symbolic.Expr) ([]kernel, error) {
	out := make([]kernel, len(exprs))
	for i, e := range exprs {
		k, err := c.compile(e)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}

func (c *compiler) compile(e symbolic.Expr) (kernel, error) {
	switch x := e.(type) {
	case *symbolic.Num:
		v := x.Float64()
		return func(*frame) float64 { return v }, nil

	case *symbolic.Sym:
		s, ok := c.slots[x.Name()]
		if !ok {
			return nil, fmt.Errorf("codegen: symbol %q has no slot", x.Name())
		}
		i := s.idx
		switch s.kind {
		case slotState:
			return func(f *frame) float64 { return f.u[i] }, nil
		case slotParam:
			return func(f *frame) float64 { return f.p[i] }, nil
		case slotTime:
			return func(f *frame) float64 { return f.t }, nil
		default:
			return func(f *frame) float64 { return f.gamma }, nil
		}

	case *symbolic.Add:
		ks, err := c.compileAll(x.Terms())
		if err != nil {
			return nil, err
		}
		if len(ks) == 2 {
			a, b := ks[0], ks[1]
			return func(f *frame) float64 { return a(f) + b(f) }, nil
		}
		return func(f *frame) float64 {
			acc := 0.0
			for _, k := range ks {
				acc += k(f)
			}
			return acc
		}, nil

	case *symbolic.Mul:
		ks, err := c.compileAll(x.Factors())
		if err != nil {
			return nil, err
		}
		if len(ks) == 2 {
			a, b := ks[0], ks[1]
			return func(f *frame) float64 { return a(f) * b(f) }, nil
		}
		return func(f *frame) float64 {
			acc := 1.0
			for _, k := range ks {
				acc *= k(f)
			}
			return acc
		}, nil

	case *symbolic.Pow:
		return c.compilePow(x)

	case *symbolic.Call:
		arg, err := c.compile(x.Arg())
		if err != nil {
			return nil, err
		}
		fn := x.Func()
		return func(f *frame) float64 { return symbolic.ApplyFloat(fn, arg(f)) }, nil

	case *symbolic.Differential:
		return nil, fmt.Errorf("codegen: cannot compile derivative %s", x)
	}
	return nil, fmt.Errorf("codegen: unknown expression %T", e)
}

func (c *compiler) compilePow(x *symbolic.Pow) (kernel, error) {
	base, err := c.compile(x.Base())
	if err != nil {
		return nil, err
	}
	if n, ok := x.Exponent().(*symbolic.Num); ok {
		r := n.Rat()
		switch {
		case r.IsInt() && r.Num().IsInt64():
			switch k := r.Num().Int64(); k {
			case 2:
				return func(f *frame) float64 {
					b := base(f)
					return b * b
				}, nil
			case -1:
				return func(f *frame) float64 { return 1 / base(f) }, nil
			default:
				if k >= -64 && k <= 64 {
					return func(f *frame) float64 { return intPow(base(f), k) }, nil
				}
			}
		case r.Cmp(half) == 0:
			return func(f *frame) float64 { return math.Sqrt(base(f)) }, nil
		case r.Cmp(negHalf) == 0:
			return func(f *frame) float64 { return 1 / math.Sqrt(base(f)) }, nil
		}
		v := n.Float64()
		return func(f *frame) float64 { return math.Pow(base(f), v) }, nil
	}
	exp, err := c.compile(x.Exponent())
	if err != nil {
		return nil, err
	}
	return func(f *frame) float64 { return math.Pow(base(f), exp(f)) }, nil
}

var (
	half    = symbolic.F(1, 2).Rat()
	negHalf = symbolic.F(-1, 2).Rat()
)

func intPow(b float64, k int64) float64 {
	if k < 0 {
		return 1 / intPow(b, -k)
	}
	acc := 1.0
	for k > 0 {
		if k&1 == 1 {
			acc *= b
		}
		b *= b
		k >>= 1
	}
	return acc
}
