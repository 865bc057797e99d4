package sde

import (
	"fmt"

	"github.com/san-kum/sdekit/internal/symbolic"
)

func validate(s *System) error {
	name := s.name

	if s.noise.Rows() != len(s.drift) {
		return structuralf(name, "diffusion has %d rows, drift has %d equations", s.noise.Rows(), len(s.drift))
	}
	if len(s.states) != len(s.drift) {
		return structuralf(name, "%d drift equations for %d states", len(s.drift), len(s.states))
	}
	if s.scalarNoise && s.noise.IsMatrix() {
		return structuralf(name, "scalar noise requires a vector diffusion term, got a %dx%d matrix",
			s.noise.mat.Rows(), s.noise.mat.Cols())
	}

	ivName := s.iv.Name()
	if ivName == Gamma.Name() {
		return structuralf(name, "%q is reserved", ivName)
	}

	role := map[string]string{}
	declare := func(kind string, syms []*symbolic.Sym) error {
		for _, v := range syms {
			if v == nil {
				return structuralf(name, "nil %s", kind)
			}
			n := v.Name()
			switch {
			case n == ivName:
				return structuralf(name, "independent variable %q appears among %ss", n, kind)
			case n == Gamma.Name():
				return structuralf(name, "%q is reserved", n)
			}
			if prev, dup := role[n]; dup {
				return structuralf(name, "%q declared as both %s and %s", n, prev, kind)
			}
			role[n] = kind
		}
		return nil
	}
	if err := declare("state", s.states); err != nil {
		return err
	}
	if err := declare("parameter", s.params); err != nil {
		return err
	}
	for _, c := range s.controls {
		if c == nil || role[c.Name()] != "parameter" {
			return structuralf(name, "control %v is not a parameter", c)
		}
	}

	targeted := map[string]bool{}
	for i, eq := range s.drift {
		if eq.LHS == nil || eq.RHS == nil {
			return structuralf(name, "drift equation %d is incomplete", i)
		}
		if eq.IsAlgebraic() {
			continue
		}
		d, ok := eq.LHS.(*symbolic.Differential)
		if !ok {
			return structuralf(name, "drift equation %d: left side %s is neither D(state) nor 0", i, eq.LHS)
		}
		v, ok := d.Arg().(*symbolic.Sym)
		if !ok || role[v.Name()] != "state" {
			return structuralf(name, "drift equation %d differentiates %s, which is not a state", i, d.Arg())
		}
		if targeted[v.Name()] {
			return structuralf(name, "state %q has more than one differential equation", v.Name())
		}
		targeted[v.Name()] = true
	}

	subNames := map[string]bool{}
	for _, sub := range s.subsystems {
		if sub == nil {
			return structuralf(name, "nil subsystem")
		}
		if sub.name == "" {
			return structuralf(name, "subsystems must be named")
		}
		if subNames[sub.name] {
			return structuralf(name, "duplicate subsystem name %q", sub.name)
		}
		subNames[sub.name] = true
	}

	allowed := map[string]bool{ivName: true}
	for n := range role {
		allowed[n] = true
	}
	for _, sub := range s.subsystems {
		qualifiedNames(sub, sub.name+".", allowed)
	}

	for i, eq := range s.drift {
		if err := closed(name, fmt.Sprintf("drift equation %d", i), eq.RHS, allowed); err != nil {
			return err
		}
	}
	for i, e := range s.noise.Entries() {
		if e == nil {
			return structuralf(name, "diffusion entry %d is nil", i)
		}
		if err := closed(name, "diffusion", e, allowed); err != nil {
			return err
		}
	}
	for i, ev := range s.continuous {
		if err := checkEvent(s, fmt.Sprintf("continuous event %d", i), ev.exprs(), ev.Affects, allowed, role); err != nil {
			return err
		}
	}
	for i, ev := range s.discrete {
		if err := checkEvent(s, fmt.Sprintf("discrete event %d", i), ev.exprs(), ev.Affects, allowed, role); err != nil {
			return err
		}
	}

	visible := make(map[string]bool, len(allowed)+len(s.observed))
	for n := range allowed {
		visible[n] = true
	}
	for i, eq := range s.observed {
		t, ok := eq.Target()
		if !ok || eq.RHS == nil {
			return structuralf(name, "observed equation %d must have a symbol on the left", i)
		}
		if _, ok := eq.LHS.(*symbolic.Sym); !ok {
			return structuralf(name, "observed equation %d must have a symbol on the left", i)
		}
		if visible[t.Name()] {
			return structuralf(name, "observed symbol %q shadows an existing name", t.Name())
		}
		if err := closed(name, fmt.Sprintf("observed equation %q", t.Name()), eq.RHS, visible); err != nil {
			return err
		}
		visible[t.Name()] = true
	}

	paramSet := map[string]bool{}
	for _, p := range s.params {
		paramSet[p.Name()] = true
	}
	for _, eq := range s.deps {
		t, ok := eq.LHS.(*symbolic.Sym)
		if !ok || !paramSet[t.Name()] || eq.RHS == nil {
			return structuralf(name, "parameter dependency %s must define a parameter", eq.LHS)
		}
		if symbolic.Contains(eq.RHS, t.Name()) {
			return structuralf(name, "parameter %q depends on itself", t.Name())
		}
		if err := closed(name, fmt.Sprintf("parameter dependency %q", t.Name()), eq.RHS, paramSet); err != nil {
			return err
		}
	}

	for key := range s.defaults {
		if !visible[key] {
			return structuralf(name, "default given for unknown symbol %q", key)
		}
	}
	return nil
}

func checkEvent(s *System, what string, exprs []symbolic.Expr, affects []Equation, allowed map[string]bool, role map[string]string) error {
	for _, e := range exprs {
		if e == nil {
			return structuralf(s.name, "%s has a nil expression", what)
		}
		if err := closed(s.name, what, e, allowed); err != nil {
			return err
		}
	}
	for _, a := range affects {
		t, ok := a.LHS.(*symbolic.Sym)
		if !ok || role[t.Name()] == "" {
			return structuralf(s.name, "%s assigns to %s, which is not a state or parameter", what, a.LHS)
		}
	}
	return nil
}

func closed(system, what string, e symbolic.Expr, allowed map[string]bool) error {
	for _, n := range symbolic.FreeSymbols(e) {
		if !allowed[n] {
			return structuralf(system, "%s references unknown symbol %q", what, n)
		}
	}
	return nil
}

// qualifiedNames adds the namespaced states, parameters and observed symbols
// of sub and its descendants.
func qualifiedNames(sub *System, prefix string, out map[string]bool) {
	for _, v := range sub.states {
		out[prefix+v.Name()] = true
	}
	for _, p := range sub.params {
		out[prefix+p.Name()] = true
	}
	for _, eq := range sub.observed {
		if t, ok := eq.Target(); ok {
			out[prefix+t.Name()] = true
		}
	}
	for _, child := range sub.subsystems {
		qualifiedNames(child, prefix+child.name+".", out)
	}
}
