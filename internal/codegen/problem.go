package codegen

import (
	"fmt"
	"sort"

	"github.com/san-kum/sdekit/internal/dynamo"
	"github.com/san-kum/sdekit/internal/sde"
	"github.com/san-kum/sdekit/internal/symbolic"
)

// Options selects the optional callables. Symbolic differentiation is the
// expensive part of compilation, so every derivative is off by default.
type Options struct {
	Jacobian        bool
	TimeGradient    bool
	ControlJacobian bool
	Wfact           bool
	// SparseNoise builds a sparse noise rate prototype for matrix noise.
	SparseNoise bool
}

func DefaultOptions() Options {
	return Options{}
}

// NewFunction compiles the solver bundle for sys in the given orders (nil
// for the system's).
func NewFunction(sys *sde.System, states, params []*symbolic.Sym, opts Options) (*dynamo.Function, error) {
	l, err := newLayout(sys, states, params)
	if err != nil {
		return nil, err
	}
	states, params = l.states, l.params

	fn := &dynamo.Function{
		StateNames: l.stateNames(),
		ParamNames: l.paramNames(),
		Noise:      NoiseRatePrototype(sys, opts.SparseNoise),
		Observed:   map[string]dynamo.ObservedFunc{},
	}
	if fn.Drift, fn.DriftInPlace, err = CompileDrift(sys, states, params); err != nil {
		return nil, err
	}
	if fn.Diffusion, fn.DiffusionInPlace, err = CompileDiffusion(sys, states, params); err != nil {
		return nil, err
	}
	if opts.Jacobian {
		if fn.Jacobian, fn.JacobianInPlace, err = CompileJacobian(sys, states, params); err != nil {
			return nil, err
		}
	}
	if opts.TimeGradient {
		if fn.TimeGradient, fn.TimeGradientInPlace, err = CompileTimeGradient(sys, states, params); err != nil {
			return nil, err
		}
	}
	if opts.ControlJacobian {
		if fn.ControlJacobian, fn.ControlJacobianInPlace, err = CompileControlJacobian(sys, states, params); err != nil {
			return nil, err
		}
	}
	if opts.Wfact {
		if fn.Wfact, fn.WfactInPlace, err = CompileWfact(sys, states, params, false); err != nil {
			return nil, err
		}
		if fn.WfactT, fn.WfactTInPlace, err = CompileWfact(sys, states, params, true); err != nil {
			return nil, err
		}
	}
	if fn.Mass, err = l.massMatrix(nil); err != nil {
		return nil, err
	}
	for _, eq := range sys.Observed() {
		target, ok := eq.Target()
		if !ok {
			continue
		}
		obs, err := CompileObserved(sys, target.Name(), states, params)
		if err != nil {
			return nil, err
		}
		fn.Observed[target.Name()] = obs
	}
	return fn, nil
}

// NewProblem resolves initial values and parameters from u0 and p merged over
// the system defaults (explicit values win) and compiles the bundle in the
// system's own orders. A nil tspan selects the system's time span. Systems
// with parameter dependencies get a *ParameterObject; others a ParamVector.
func NewProblem(sys *sde.System, u0, p map[string]float64, tspan *sde.TimeSpan, opts Options) (*dynamo.Problem, error) {
	if !sys.IsComplete() {
		return nil, &sde.NotCompleteError{System: sys.Name()}
	}

	states, params := sys.States(), sys.Parameters()
	known := map[string]bool{}
	for _, v := range states {
		known[v.Name()] = true
	}
	for _, v := range params {
		known[v.Name()] = true
	}
	for _, m := range []map[string]float64{u0, p} {
		for name := range m {
			if !known[name] {
				return nil, fmt.Errorf("%w: %q in system %q", sde.ErrUnknownVariable, name, sys.Name())
			}
		}
	}

	dependent := map[string]bool{}
	for _, eq := range sys.ParameterDependencies() {
		if t, ok := eq.Target(); ok {
			dependent[t.Name()] = true
		}
	}

	env := map[string]float64{}
	for k, v := range p {
		env[k] = v
	}
	for k, v := range u0 {
		env[k] = v
	}
	if err := resolveDefaults(sys.Defaults(), env, dependent); err != nil {
		return nil, err
	}

	x0 := make(dynamo.State, len(states))
	for i, v := range states {
		val, ok := env[v.Name()]
		if !ok {
			return nil, fmt.Errorf("codegen: no initial value for %q", v.Name())
		}
		x0[i] = val
	}

	var pv dynamo.Params
	if len(dependent) > 0 {
		free := map[string]float64{}
		for _, v := range params {
			if dependent[v.Name()] {
				continue
			}
			val, ok := env[v.Name()]
			if !ok {
				return nil, fmt.Errorf("codegen: no value for parameter %q", v.Name())
			}
			free[v.Name()] = val
		}
		po, err := NewParameterObject(sys, params, free)
		if err != nil {
			return nil, err
		}
		pv = po
	} else {
		vec := make(dynamo.ParamVector, len(params))
		for i, v := range params {
			val, ok := env[v.Name()]
			if !ok {
				return nil, fmt.Errorf("codegen: no value for parameter %q", v.Name())
			}
			vec[i] = val
		}
		pv = vec
	}

	var span [2]float64
	switch ts, ok := sys.TimeSpan(); {
	case tspan != nil:
		span = [2]float64{tspan.Start, tspan.End}
	case ok:
		span = [2]float64{ts.Start, ts.End}
	default:
		return nil, fmt.Errorf("codegen: system %q has no time span and none was given", sys.Name())
	}

	fn, err := NewFunction(sys, states, params, opts)
	if err != nil {
		return nil, err
	}
	prob := &dynamo.Problem{F: fn, U0: x0, TSpan: span, P: pv}
	if err := prob.Validate(); err != nil {
		return nil, err
	}
	return prob, nil
}

// resolveDefaults evaluates defaults that env does not already fix. A
// default may refer to other values, so evaluation repeats until nothing
// new resolves. Dependent parameters are computed elsewhere and skipped.
func resolveDefaults(defaults map[string]symbolic.Expr, env map[string]float64, skip map[string]bool) error {
	pending := make([]string, 0, len(defaults))
	for name := range defaults {
		if _, set := env[name]; !set && !skip[name] {
			pending = append(pending, name)
		}
	}
	sort.Strings(pending)

	for len(pending) > 0 {
		var next []string
		for _, name := range pending {
			v, err := symbolic.Eval(defaults[name], env)
			if err != nil {
				next = append(next, name)
				continue
			}
			env[name] = v
		}
		if len(next) == len(pending) {
			_, err := symbolic.Eval(defaults[next[0]], env)
			return fmt.Errorf("default for %q: %w", next[0], err)
		}
		pending = next
	}
	return nil
}
