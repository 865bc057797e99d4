package symbolic

import (
	"fmt"
	"math"
)

// UnboundError reports a symbol with no value during evaluation.
type UnboundError struct {
	Name string
}

func (e *UnboundError) Error() string {
	return fmt.Sprintf("symbolic: unbound symbol %q", e.Name)
}

// Eval evaluates e numerically with the symbol values in env.
func Eval(e Expr, env map[string]float64) (float64, error) {
	switch x := e.(type) {
	case *Num:
		return x.Float64(), nil
	case *Sym:
		v, ok := env[x.name]
		if !ok {
			return 0, &UnboundError{Name: x.name}
		}
		return v, nil
	case *Add:
		acc := 0.0
		for _, t := range x.terms {
			v, err := Eval(t, env)
			if err != nil {
				return 0, err
			}
			acc += v
		}
		return acc, nil
	case *Mul:
		acc := 1.0
		for _, f := range x.factors {
			v, err := Eval(f, env)
			if err != nil {
				return 0, err
			}
			acc *= v
		}
		return acc, nil
	case *Pow:
		b, err := Eval(x.base, env)
		if err != nil {
			return 0, err
		}
		p, err := Eval(x.exp, env)
		if err != nil {
			return 0, err
		}
		return math.Pow(b, p), nil
	case *Call:
		v, err := Eval(x.arg, env)
		if err != nil {
			return 0, err
		}
		return applyFloat(x.fn, v), nil
	case *Differential:
		return 0, fmt.Errorf("symbolic: cannot evaluate %s", x)
	}
	return 0, fmt.Errorf("symbolic: unknown node %T", e)
}

// ApplyFloat evaluates the built-in function fn at v.
func ApplyFloat(fn Func, v float64) float64 { return applyFloat(fn, v) }
