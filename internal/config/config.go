package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/sdekit/internal/sde"
	"github.com/san-kum/sdekit/internal/symbolic"
)

const (
	DefaultIndependentVariable = "t"
	DefaultStart               = 0.0
	DefaultEnd                 = 1.0
)

// Model is the file form of an SDE system. Expressions are strings in the
// syntax accepted by symbolic.Parse; equations are written "lhs ~ rhs".
type Model struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	IndependentVariable string `yaml:"iv"`
	TimeUnit            string `yaml:"iv_unit,omitempty"`

	States     []Variable `yaml:"states"`
	Parameters []Variable `yaml:"parameters,omitempty"`

	Drift []string `yaml:"drift"`
	// Diffusion is a vector of noise terms, one per state. NoiseMatrix
	// replaces it for general noise.
	Diffusion   []string   `yaml:"diffusion,omitempty"`
	NoiseMatrix [][]string `yaml:"noise_matrix,omitempty"`
	ScalarNoise bool       `yaml:"scalar_noise,omitempty"`

	TimeSpan     *sde.TimeSpan `yaml:"tspan,omitempty"`
	Observed     []string      `yaml:"observed,omitempty"`
	Dependencies []string      `yaml:"dependencies,omitempty"`
	Controls     []string      `yaml:"controls,omitempty"`
}

type Variable struct {
	Name    string `yaml:"name"`
	Default string `yaml:"default,omitempty"`
	Unit    string `yaml:"unit,omitempty"`
}

func DefaultModel() *Model {
	return &Model{
		IndependentVariable: DefaultIndependentVariable,
		TimeSpan:            &sde.TimeSpan{Start: DefaultStart, End: DefaultEnd},
	}
}

func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := DefaultModel()
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

func Save(path string, m *Model) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Build parses the model and constructs a validated system.
func (m *Model) Build() (*sde.System, error) {
	ivName := m.IndependentVariable
	if ivName == "" {
		ivName = DefaultIndependentVariable
	}
	iv := symbolic.S(ivName)

	opts := sde.Options{
		Name:        m.Name,
		Description: m.Description,
		ScalarNoise: m.ScalarNoise,
		Defaults:    map[string]symbolic.Expr{},
		Units:       map[string]string{},
	}
	if m.TimeSpan != nil {
		ts := *m.TimeSpan
		opts.TimeSpan = &ts
	}
	if m.TimeUnit != "" {
		opts.Units[ivName] = m.TimeUnit
	}

	states, err := m.variables(m.States, &opts)
	if err != nil {
		return nil, err
	}
	params, err := m.variables(m.Parameters, &opts)
	if err != nil {
		return nil, err
	}
	if len(opts.Units) == 0 {
		opts.Units = nil
	}

	drift, err := equations("drift", m.Drift)
	if err != nil {
		return nil, err
	}
	if opts.Observed, err = equations("observed", m.Observed); err != nil {
		return nil, err
	}
	if opts.ParameterDependencies, err = equations("dependency", m.Dependencies); err != nil {
		return nil, err
	}
	for _, c := range m.Controls {
		opts.ControlParameters = append(opts.ControlParameters, symbolic.S(c))
	}

	noise, err := m.noise()
	if err != nil {
		return nil, err
	}
	return sde.New(drift, noise, iv, states, params, opts)
}

func (m *Model) variables(vars []Variable, opts *sde.Options) ([]*symbolic.Sym, error) {
	out := make([]*symbolic.Sym, 0, len(vars))
	for _, v := range vars {
		if v.Name == "" {
			return nil, fmt.Errorf("model %q: variable without a name", m.Name)
		}
		out = append(out, symbolic.S(v.Name))
		if v.Default != "" {
			e, err := symbolic.Parse(v.Default)
			if err != nil {
				return nil, fmt.Errorf("default for %q: %w", v.Name, err)
			}
			opts.Defaults[v.Name] = e
		}
		if v.Unit != "" {
			opts.Units[v.Name] = v.Unit
		}
	}
	return out, nil
}

func (m *Model) noise() (sde.Diffusion, error) {
	if len(m.NoiseMatrix) > 0 {
		if len(m.Diffusion) > 0 {
			return sde.Diffusion{}, fmt.Errorf("model %q: both diffusion and noise_matrix given", m.Name)
		}
		rows := make([][]symbolic.Expr, len(m.NoiseMatrix))
		for i, r := range m.NoiseMatrix {
			exprs, err := parseAll(r)
			if err != nil {
				return sde.Diffusion{}, fmt.Errorf("noise_matrix row %d: %w", i, err)
			}
			rows[i] = exprs
		}
		mat, err := symbolic.MatrixFromRows(rows)
		if err != nil {
			return sde.Diffusion{}, fmt.Errorf("noise_matrix: %w", err)
		}
		return sde.MatrixNoise(mat), nil
	}
	exprs, err := parseAll(m.Diffusion)
	if err != nil {
		return sde.Diffusion{}, fmt.Errorf("diffusion: %w", err)
	}
	return sde.DiagonalNoise(exprs...), nil
}

func parseAll(src []string) ([]symbolic.Expr, error) {
	out := make([]symbolic.Expr, len(src))
	for i, s := range src {
		e, err := symbolic.Parse(s)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func equations(what string, src []string) ([]sde.Equation, error) {
	var out []sde.Equation
	for _, s := range src {
		lhs, rhs, err := symbolic.ParseEquation(s)
		if err != nil {
			return nil, fmt.Errorf("%s equation: %w", what, err)
		}
		out = append(out, sde.Eq(lhs, rhs))
	}
	return out, nil
}

// FromSystem writes sys back into file form. Subsystems and events have no
// file form; flatten first.
func FromSystem(sys *sde.System) (*Model, error) {
	if len(sys.Subsystems()) > 0 {
		return nil, fmt.Errorf("system %q has subsystems; flatten it first", sys.Name())
	}
	if len(sys.ContinuousEvents()) > 0 || len(sys.DiscreteEvents()) > 0 {
		return nil, fmt.Errorf("system %q has events, which model files cannot hold", sys.Name())
	}

	units := sys.Units()
	defaults := sys.Defaults()
	iv := sys.IndependentVariable().Name()
	m := &Model{
		Name:                sys.Name(),
		Description:         sys.Description(),
		IndependentVariable: iv,
		TimeUnit:            units[iv],
		ScalarNoise:         sys.IsScalarNoise(),
	}
	if ts, ok := sys.TimeSpan(); ok {
		m.TimeSpan = &ts
	}

	toVars := func(syms []*symbolic.Sym) []Variable {
		out := make([]Variable, len(syms))
		for i, s := range syms {
			out[i] = Variable{Name: s.Name(), Unit: units[s.Name()]}
			if d, ok := defaults[s.Name()]; ok {
				out[i].Default = d.String()
			}
		}
		return out
	}
	m.States = toVars(sys.States())
	m.Parameters = toVars(sys.Parameters())

	for _, eq := range sys.Drift() {
		m.Drift = append(m.Drift, eq.String())
	}
	for _, eq := range sys.Observed() {
		m.Observed = append(m.Observed, eq.String())
	}
	for _, eq := range sys.ParameterDependencies() {
		m.Dependencies = append(m.Dependencies, eq.String())
	}
	for _, c := range sys.Controls() {
		m.Controls = append(m.Controls, c.Name())
	}

	noise := sys.Noise()
	if g := noise.Matrix(); g != nil {
		for i := 0; i < g.Rows(); i++ {
			row := make([]string, g.Cols())
			for j, e := range g.Row(i) {
				row[j] = e.String()
			}
			m.NoiseMatrix = append(m.NoiseMatrix, row)
		}
	} else {
		for _, e := range noise.Vector() {
			m.Diffusion = append(m.Diffusion, e.String())
		}
	}
	return m, nil
}
