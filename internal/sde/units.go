package sde

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/sdekit/internal/symbolic"
)

// Dimension maps base unit names to exponents. The empty Dimension is
// dimensionless.
type Dimension map[string]float64

// ParseUnit reads unit strings such as "m", "m/s" or "kg*m^2/s^2".
func ParseUnit(u string) (Dimension, error) {
	u = strings.TrimSpace(u)
	if u == "" || u == "1" {
		return Dimension{}, nil
	}
	e, err := symbolic.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("parse unit %q: %w", u, err)
	}
	return unitExpr(e)
}

func unitExpr(e symbolic.Expr) (Dimension, error) {
	switch x := e.(type) {
	case *symbolic.Num:
		return Dimension{}, nil
	case *symbolic.Sym:
		return Dimension{x.Name(): 1}, nil
	case *symbolic.Mul:
		d := Dimension{}
		for _, f := range x.Factors() {
			fd, err := unitExpr(f)
			if err != nil {
				return nil, err
			}
			d = d.mul(fd)
		}
		return d, nil
	case *symbolic.Pow:
		k, ok := x.Exponent().(*symbolic.Num)
		if !ok {
			return nil, fmt.Errorf("unit exponent %s is not a number", x.Exponent())
		}
		bd, err := unitExpr(x.Base())
		if err != nil {
			return nil, err
		}
		return bd.pow(k.Float64()), nil
	}
	return nil, fmt.Errorf("unsupported unit expression %s", e)
}

func (d Dimension) mul(o Dimension) Dimension {
	out := Dimension{}
	for k, v := range d {
		out[k] += v
	}
	for k, v := range o {
		out[k] += v
	}
	return out.trim()
}

func (d Dimension) pow(k float64) Dimension {
	out := Dimension{}
	for b, v := range d {
		out[b] = v * k
	}
	return out.trim()
}

func (d Dimension) trim() Dimension {
	for k, v := range d {
		if math.Abs(v) < 1e-12 {
			delete(d, k)
		}
	}
	return d
}

func (d Dimension) Equal(o Dimension) bool {
	if len(d) != len(o) {
		return false
	}
	for k, v := range d {
		if math.Abs(v-o[k]) > 1e-9 {
			return false
		}
	}
	return true
}

func (d Dimension) IsDimensionless() bool { return len(d) == 0 }

func (d Dimension) String() string {
	if len(d) == 0 {
		return "1"
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		switch v := d[k]; v {
		case 1:
			parts[i] = k
		default:
			parts[i] = k + "^" + strconv.FormatFloat(v, 'g', -1, 64)
		}
	}
	return strings.Join(parts, "*")
}

type unitEnv struct {
	units map[string]Dimension
	iv    string
}

func (env *unitEnv) of(e symbolic.Expr) (Dimension, error) {
	switch x := e.(type) {
	case *symbolic.Num:
		return Dimension{}, nil
	case *symbolic.Sym:
		if d, ok := env.units[x.Name()]; ok {
			return d, nil
		}
		return Dimension{}, nil
	case *symbolic.Add:
		var first Dimension
		for i, t := range x.Terms() {
			td, err := env.of(t)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				first = td
				continue
			}
			if !td.Equal(first) {
				return nil, fmt.Errorf("%s has units %s but %s has units %s", x.Terms()[0], first, t, td)
			}
		}
		return first, nil
	case *symbolic.Mul:
		d := Dimension{}
		for _, f := range x.Factors() {
			fd, err := env.of(f)
			if err != nil {
				return nil, err
			}
			d = d.mul(fd)
		}
		return d, nil
	case *symbolic.Pow:
		bd, err := env.of(x.Base())
		if err != nil {
			return nil, err
		}
		ed, err := env.of(x.Exponent())
		if err != nil {
			return nil, err
		}
		if !ed.IsDimensionless() {
			return nil, fmt.Errorf("exponent %s has units %s", x.Exponent(), ed)
		}
		if bd.IsDimensionless() {
			return bd, nil
		}
		k, ok := x.Exponent().(*symbolic.Num)
		if !ok {
			return nil, fmt.Errorf("%s raises a dimensional quantity to a symbolic power", x)
		}
		return bd.pow(k.Float64()), nil
	case *symbolic.Call:
		ad, err := env.of(x.Arg())
		if err != nil {
			return nil, err
		}
		switch x.Func() {
		case symbolic.Abs:
			return ad, nil
		case symbolic.Sign:
			return Dimension{}, nil
		}
		if !ad.IsDimensionless() {
			return nil, fmt.Errorf("argument of %s has units %s", x.Func(), ad)
		}
		return Dimension{}, nil
	case *symbolic.Differential:
		ad, err := env.of(x.Arg())
		if err != nil {
			return nil, err
		}
		return ad.mul(env.units[env.iv].pow(-1)), nil
	}
	return nil, fmt.Errorf("unknown expression %T", e)
}

// checkUnits verifies that each drift right side has units of x/t and each
// diffusion coefficient has units of x/t^(1/2).
func checkUnits(s *System) error {
	env := &unitEnv{units: map[string]Dimension{}, iv: s.iv.Name()}
	for name, u := range s.units {
		d, err := ParseUnit(u)
		if err != nil {
			return &UnitError{System: s.name, Equation: name, Got: err.Error()}
		}
		env.units[name] = d
	}
	tUnit := env.units[s.iv.Name()]

	for i, eq := range s.drift {
		label := eq.String()
		got, err := env.of(eq.RHS)
		if err != nil {
			return &UnitError{System: s.name, Equation: label, Got: err.Error()}
		}
		target, ok := eq.Target()
		if !ok || symbolic.IsZero(eq.RHS) {
			continue
		}
		x := env.units[target.Name()]
		want := x.mul(tUnit.pow(-1))
		if !got.Equal(want) {
			return &UnitError{System: s.name, Equation: label, Want: want.String(), Got: got.String()}
		}

		wantNoise := x.mul(tUnit.pow(-0.5))
		for j, g := range s.noise.Row(i) {
			if symbolic.IsZero(g) {
				continue
			}
			gd, err := env.of(g)
			if err != nil {
				return &UnitError{System: s.name, Equation: fmt.Sprintf("diffusion[%d,%d]", i, j), Got: err.Error()}
			}
			if !gd.Equal(wantNoise) {
				return &UnitError{System: s.name, Equation: fmt.Sprintf("diffusion[%d,%d] = %s", i, j, g),
					Want: wantNoise.String(), Got: gd.String()}
			}
		}
	}

	for _, eq := range s.observed {
		if _, err := env.of(eq.RHS); err != nil {
			return &UnitError{System: s.name, Equation: eq.String(), Got: err.Error()}
		}
	}
	affects := func(eqs []Equation) error {
		for _, a := range eqs {
			ld, _ := env.of(a.LHS)
			rd, err := env.of(a.RHS)
			if err != nil {
				return &UnitError{System: s.name, Equation: a.String(), Got: err.Error()}
			}
			if !ld.Equal(rd) && !symbolic.IsZero(a.RHS) {
				return &UnitError{System: s.name, Equation: a.String(), Want: ld.String(), Got: rd.String()}
			}
		}
		return nil
	}
	for _, ev := range s.continuous {
		if err := affects(ev.Affects); err != nil {
			return err
		}
	}
	for _, ev := range s.discrete {
		if err := affects(ev.Affects); err != nil {
			return err
		}
	}
	return nil
}
