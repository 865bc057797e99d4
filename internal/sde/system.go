package sde

import (
	"maps"
	"strings"

	"github.com/san-kum/sdekit/internal/symbolic"
)

// Equation is lhs ~ rhs. Drift equations have D(x) on the left, or the
// constant 0 for an algebraic constraint; observed and dependency equations
// have a plain symbol.
type Equation struct {
	LHS symbolic.Expr
	RHS symbolic.Expr
}

func Eq(lhs, rhs symbolic.Expr) Equation {
	return Equation{LHS: lhs, RHS: rhs}
}

func (e Equation) String() string {
	return e.LHS.String() + " ~ " + e.RHS.String()
}

// IsAlgebraic reports whether the left side is the constant 0.
func (e Equation) IsAlgebraic() bool {
	return symbolic.IsZero(e.LHS)
}

// Target returns the symbol an equation defines: x for D(x) ~ ... and for
// x ~ ..., nothing for algebraic equations.
func (e Equation) Target() (*symbolic.Sym, bool) {
	switch l := e.LHS.(type) {
	case *symbolic.Sym:
		return l, true
	case *symbolic.Differential:
		s, ok := l.Arg().(*symbolic.Sym)
		return s, ok
	}
	return nil, false
}

func (e Equation) equal(o Equation) bool {
	return symbolic.Equal(e.LHS, o.LHS) && symbolic.Equal(e.RHS, o.RHS)
}

type TimeSpan struct {
	Start float64 `yaml:"start" json:"start"`
	End   float64 `yaml:"end" json:"end"`
}

// Options carries everything besides drift, noise and the variable lists.
type Options struct {
	Name        string
	Description string
	TimeSpan    *TimeSpan

	Observed              []Equation
	ParameterDependencies []Equation
	Defaults              map[string]symbolic.Expr
	ControlParameters     []*symbolic.Sym

	ContinuousEvents []ContinuousEvent
	DiscreteEvents   []DiscreteEvent
	Subsystems       []*System

	// ScalarNoise means every row of a vector diffusion term is driven by
	// one shared Wiener process.
	ScalarNoise bool

	// Units maps symbol names to unit strings such as "m/s".
	Units    map[string]string
	Metadata map[string]any

	SkipValidation bool
	SkipUnitCheck  bool

	// Tag reuses an identity token. Zero assigns a fresh one.
	Tag uint64
}

// System is a validated, immutable SDE description.
type System struct {
	tag         uint64
	name        string
	description string

	drift  []Equation
	noise  Diffusion
	iv     *symbolic.Sym
	states []*symbolic.Sym
	params []*symbolic.Sym

	controls []*symbolic.Sym
	tspan    *TimeSpan
	observed []Equation
	deps     []Equation
	defaults map[string]symbolic.Expr

	continuous []ContinuousEvent
	discrete   []DiscreteEvent
	subsystems []*System

	scalarNoise bool
	complete    bool
	units       map[string]string
	metadata    map[string]any

	index map[string]*symbolic.Sym
	cache *derived
}

// New validates and builds a System. Validation can be turned off with
// Options.SkipValidation when the caller already guarantees consistency.
func New(drift []Equation, noise Diffusion, iv *symbolic.Sym, states, params []*symbolic.Sym, opts Options) (*System, error) {
	s := &System{
		name:        opts.Name,
		description: opts.Description,
		drift:       append([]Equation(nil), drift...),
		noise:       noise.clone(),
		iv:          iv,
		states:      append([]*symbolic.Sym(nil), states...),
		params:      append([]*symbolic.Sym(nil), params...),
		controls:    append([]*symbolic.Sym(nil), opts.ControlParameters...),
		observed:    append([]Equation(nil), opts.Observed...),
		deps:        append([]Equation(nil), opts.ParameterDependencies...),
		defaults:    maps.Clone(opts.Defaults),
		continuous:  append([]ContinuousEvent(nil), opts.ContinuousEvents...),
		discrete:    append([]DiscreteEvent(nil), opts.DiscreteEvents...),
		subsystems:  append([]*System(nil), opts.Subsystems...),
		scalarNoise: opts.ScalarNoise,
		units:       maps.Clone(opts.Units),
		metadata:    maps.Clone(opts.Metadata),
		cache:       &derived{},
	}
	if opts.TimeSpan != nil {
		ts := *opts.TimeSpan
		s.tspan = &ts
	}
	if s.defaults == nil {
		s.defaults = map[string]symbolic.Expr{}
	}

	if iv == nil {
		return nil, structuralf(s.name, "independent variable is required")
	}
	if !opts.SkipValidation {
		if err := validate(s); err != nil {
			return nil, err
		}
		if !opts.SkipUnitCheck && len(s.units) > 0 {
			if err := checkUnits(s); err != nil {
				return nil, err
			}
		}
	}

	s.index = buildIndex(s)
	s.tag = opts.Tag
	if s.tag == 0 {
		s.tag = nextTag()
	}
	return s, nil
}

func buildIndex(s *System) map[string]*symbolic.Sym {
	idx := make(map[string]*symbolic.Sym, 1+len(s.states)+len(s.params)+len(s.observed))
	idx[s.iv.Name()] = s.iv
	for _, v := range s.states {
		idx[v.Name()] = v
	}
	for _, p := range s.params {
		idx[p.Name()] = p
	}
	for _, eq := range s.observed {
		if t, ok := eq.Target(); ok {
			idx[t.Name()] = t
		}
	}
	for name := range s.defaults {
		if _, ok := idx[name]; !ok {
			idx[name] = symbolic.S(name)
		}
	}
	return idx
}

// Complete returns a copy of s marked complete. The copy keeps the identity
// tag and shares the derived-quantity cache.
func Complete(s *System) *System {
	c := *s
	c.complete = true
	return &c
}

func (s *System) Tag() uint64                       { return s.tag }
func (s *System) Name() string                      { return s.name }
func (s *System) Description() string               { return s.description }
func (s *System) IndependentVariable() *symbolic.Sym { return s.iv }
func (s *System) Noise() Diffusion                  { return s.noise.clone() }
func (s *System) IsScalarNoise() bool               { return s.scalarNoise }
func (s *System) IsComplete() bool                  { return s.complete }

func (s *System) Drift() []Equation { return append([]Equation(nil), s.drift...) }

// DriftRHS returns the right-hand sides of the drift equations in order.
func (s *System) DriftRHS() []symbolic.Expr {
	out := make([]symbolic.Expr, len(s.drift))
	for i, eq := range s.drift {
		out[i] = eq.RHS
	}
	return out
}

func (s *System) States() []*symbolic.Sym     { return append([]*symbolic.Sym(nil), s.states...) }
func (s *System) Parameters() []*symbolic.Sym { return append([]*symbolic.Sym(nil), s.params...) }
func (s *System) Controls() []*symbolic.Sym   { return append([]*symbolic.Sym(nil), s.controls...) }

func (s *System) TimeSpan() (TimeSpan, bool) {
	if s.tspan == nil {
		return TimeSpan{}, false
	}
	return *s.tspan, true
}

func (s *System) Observed() []Equation { return append([]Equation(nil), s.observed...) }

func (s *System) ParameterDependencies() []Equation {
	return append([]Equation(nil), s.deps...)
}

func (s *System) Defaults() map[string]symbolic.Expr { return maps.Clone(s.defaults) }

func (s *System) ContinuousEvents() []ContinuousEvent {
	return append([]ContinuousEvent(nil), s.continuous...)
}

func (s *System) DiscreteEvents() []DiscreteEvent {
	return append([]DiscreteEvent(nil), s.discrete...)
}

func (s *System) Subsystems() []*System { return append([]*System(nil), s.subsystems...) }

func (s *System) Units() map[string]string { return maps.Clone(s.units) }
func (s *System) Metadata() map[string]any { return maps.Clone(s.metadata) }

// Lookup resolves an unqualified name among the independent variable,
// states, parameters, observed symbols and defaulted names.
func (s *System) Lookup(name string) (*symbolic.Sym, bool) {
	v, ok := s.index[name]
	return v, ok
}

// Options returns the options that rebuild s, including its tag.
func (s *System) Options() Options {
	o := Options{
		Name:                  s.name,
		Description:           s.description,
		Observed:              s.Observed(),
		ParameterDependencies: s.ParameterDependencies(),
		Defaults:              s.Defaults(),
		ControlParameters:     s.Controls(),
		ContinuousEvents:      s.ContinuousEvents(),
		DiscreteEvents:        s.DiscreteEvents(),
		Subsystems:            s.Subsystems(),
		ScalarNoise:           s.scalarNoise,
		Units:                 s.Units(),
		Metadata:              s.Metadata(),
		Tag:                   s.tag,
	}
	if s.tspan != nil {
		ts := *s.tspan
		o.TimeSpan = &ts
	}
	return o
}

func (s *System) String() string {
	var b strings.Builder
	name := s.name
	if name == "" {
		name = "<unnamed>"
	}
	b.WriteString("SDE system " + name + "\n")
	b.WriteString("states: " + strings.Join(symNames(s.states), ", ") + "\n")
	if len(s.params) > 0 {
		b.WriteString("parameters: " + strings.Join(symNames(s.params), ", ") + "\n")
	}
	b.WriteString("drift:\n")
	for _, eq := range s.drift {
		b.WriteString("  " + eq.String() + "\n")
	}
	b.WriteString("noise: " + s.noise.String())
	if s.scalarNoise {
		b.WriteString(" (scalar)")
	}
	b.WriteByte('\n')
	return b.String()
}

func symNames(syms []*symbolic.Sym) []string {
	out := make([]string, len(syms))
	for i, v := range syms {
		out[i] = v.Name()
	}
	return out
}
