package sde

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/sdekit/internal/symbolic"
)

// ErrUnknownVariable is returned by Var for names the system does not own.
var ErrUnknownVariable = errors.New("sde: unknown variable")

// Sep joins system names and member names.
const Sep = "."

// Var returns the symbol for path, which may reach into subsystems
// ("sub.x"). Unless s is complete, the result is prefixed with the system
// name. The independent variable is never prefixed.
func (s *System) Var(path string) (*symbolic.Sym, error) {
	if path == s.iv.Name() {
		return s.iv, nil
	}
	local, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if s.complete || s.name == "" {
		return symbolic.S(local), nil
	}
	return symbolic.S(s.name + Sep + local), nil
}

func (s *System) resolve(path string) (string, error) {
	if _, ok := s.index[path]; ok && path != s.iv.Name() {
		return path, nil
	}
	head, rest, found := strings.Cut(path, Sep)
	if found {
		for _, sub := range s.subsystems {
			if sub.name != head {
				continue
			}
			local, err := sub.resolve(rest)
			if err != nil {
				return "", err
			}
			return head + Sep + local, nil
		}
	}
	return "", fmt.Errorf("%w: %q in system %q", ErrUnknownVariable, path, s.name)
}

// Flatten merges subsystems into one system whose members are namespaced
// by subsystem name. Noise components stay a vector when every component is
// diagonal and non-scalar; otherwise they become a block matrix with one
// column per independent channel.
func Flatten(s *System) (*System, error) {
	if len(s.subsystems) == 0 {
		return s, nil
	}

	opts := s.Options()
	opts.Subsystems = nil
	opts.Tag = 0
	// components were unit checked when they were built
	opts.SkipUnitCheck = true

	drift := s.Drift()
	states := s.States()
	params := s.Parameters()
	parts := []noisePart{{noise: s.noise, scalar: s.scalarNoise}}

	for _, child := range s.subsystems {
		sub, err := Flatten(child)
		if err != nil {
			return nil, err
		}
		prefix := sub.name + Sep
		rename := map[string]symbolic.Expr{sub.iv.Name(): s.iv}
		qualify := func(v *symbolic.Sym) *symbolic.Sym {
			q := symbolic.S(prefix + v.Name())
			rename[v.Name()] = q
			return q
		}
		for _, v := range sub.states {
			states = append(states, qualify(v))
		}
		for _, p := range sub.params {
			params = append(params, qualify(p))
		}
		for _, eq := range sub.observed {
			if t, ok := eq.Target(); ok {
				qualify(t)
			}
		}
		sub2 := func(e symbolic.Expr) symbolic.Expr { return symbolic.Substitute(e, rename) }

		drift = append(drift, mapEquations(sub.drift, sub2)...)
		opts.Observed = append(opts.Observed, mapEquations(sub.observed, sub2)...)
		opts.ParameterDependencies = append(opts.ParameterDependencies, mapEquations(sub.deps, sub2)...)
		for _, c := range sub.controls {
			opts.ControlParameters = append(opts.ControlParameters, rename[c.Name()].(*symbolic.Sym))
		}
		for _, ev := range sub.continuous {
			opts.ContinuousEvents = append(opts.ContinuousEvents, ev.mapExprs(sub2))
		}
		for _, ev := range sub.discrete {
			opts.DiscreteEvents = append(opts.DiscreteEvents, ev.mapExprs(sub2))
		}
		if opts.Defaults == nil {
			opts.Defaults = map[string]symbolic.Expr{}
		}
		for k, v := range sub.defaults {
			opts.Defaults[prefix+k] = sub2(v)
		}
		for k, u := range sub.units {
			if k == sub.iv.Name() {
				if _, ok := opts.Units[s.iv.Name()]; !ok {
					if opts.Units == nil {
						opts.Units = map[string]string{}
					}
					opts.Units[s.iv.Name()] = u
				}
				continue
			}
			if opts.Units == nil {
				opts.Units = map[string]string{}
			}
			opts.Units[prefix+k] = u
		}
		parts = append(parts, noisePart{noise: sub.noise.Map(sub2), scalar: sub.scalarNoise})
	}

	noise, scalar := combineNoise(parts)
	opts.ScalarNoise = scalar
	return New(drift, noise, s.iv, states, params, opts)
}

type noisePart struct {
	noise  Diffusion
	scalar bool
}

func combineNoise(parts []noisePart) (Diffusion, bool) {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p.noise.Rows() > 0 {
			nonEmpty = append(nonEmpty, p)
		}
	}
	switch len(nonEmpty) {
	case 0:
		return Diffusion{}, false
	case 1:
		return nonEmpty[0].noise, nonEmpty[0].scalar
	}

	diagonal := true
	for _, p := range nonEmpty {
		if p.noise.IsMatrix() || p.scalar {
			diagonal = false
			break
		}
	}
	if diagonal {
		var vec []symbolic.Expr
		for _, p := range nonEmpty {
			vec = append(vec, p.noise.vec...)
		}
		return Diffusion{vec: vec}, false
	}

	rows, cols := 0, 0
	for _, p := range nonEmpty {
		rows += p.noise.Rows()
		cols += p.noise.Channels(p.scalar)
	}
	m := symbolic.NewMatrix(rows, cols)
	r0, c0 := 0, 0
	for _, p := range nonEmpty {
		block := p.noise.AsMatrix(p.scalar)
		br, bc := block.Dims()
		for i := 0; i < br; i++ {
			for j := 0; j < bc; j++ {
				m.Set(r0+i, c0+j, block.At(i, j))
			}
		}
		r0 += br
		c0 += bc
	}
	return Diffusion{mat: m}, false
}
