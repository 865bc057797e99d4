package experiment

import (
	"context"
	"fmt"
	"sort"

	"github.com/san-kum/sdekit/internal/codegen"
	"github.com/san-kum/sdekit/internal/dynamo"
	"github.com/san-kum/sdekit/internal/sde"
)

const (
	DefaultPoints   = 50
	DefaultMinChunk = 8
)

// Config describes a one-dimensional sweep: Variable, a state or a tunable
// parameter, runs over Points values from From to To while everything else
// stays at U0, Params and the system defaults.
type Config struct {
	Model      string
	Transforms []string
	Args       map[string]string

	Variable string
	From, To float64
	Points   int
	Time     float64

	U0     map[string]float64
	Params map[string]float64
}

// Result holds one row per grid point. Columns name the drift outputs
// ("f0", ...), the diffusion entries in row-major order ("g0", ...) and the
// observed quantities.
type Result struct {
	Variable string
	Grid     []float64
	Columns  []string
	Values   [][]float64
	// Invalid lists the points that produced NaN or Inf.
	Invalid []*dynamo.EvalError
}

type Experiment struct {
	cfg Config
	sys *sde.System
}

func New(cfg Config, sys *sde.System) *Experiment {
	if cfg.Points <= 0 {
		cfg.Points = DefaultPoints
	}
	return &Experiment{cfg: cfg, sys: sde.Complete(sys)}
}

// Run compiles the system and evaluates it over the grid in parallel.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	cfg := e.cfg
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	span := &sde.TimeSpan{Start: cfg.Time, End: cfg.Time}
	prob, err := codegen.NewProblem(e.sys, cfg.U0, cfg.Params, span, codegen.Options{})
	if err != nil {
		return nil, err
	}
	set, err := setter(prob, cfg.Variable)
	if err != nil {
		return nil, err
	}

	fn := prob.F
	nf := len(fn.StateNames)
	rows, cols, _ := codegen.DiffusionShape(e.sys)
	ng := rows * cols
	obsNames := make([]string, 0, len(fn.Observed))
	for name := range fn.Observed {
		obsNames = append(obsNames, name)
	}
	sort.Strings(obsNames)

	res := &Result{
		Variable: cfg.Variable,
		Grid:     grid(cfg.From, cfg.To, cfg.Points),
		Values:   make([][]float64, cfg.Points),
	}
	for i := 0; i < nf; i++ {
		res.Columns = append(res.Columns, fmt.Sprintf("f%d", i))
	}
	for i := 0; i < ng; i++ {
		res.Columns = append(res.Columns, fmt.Sprintf("g%d", i))
	}
	res.Columns = append(res.Columns, obsNames...)

	dynamo.ParallelFor(cfg.Points, DefaultMinChunk, func(start, end int) {
		for i := start; i < end; i++ {
			if ctx.Err() != nil {
				return
			}
			u, p := set(res.Grid[i])
			row := make([]float64, nf+ng+len(obsNames))
			fn.DriftInPlace(row[:nf], u, p, cfg.Time)
			fn.DiffusionInPlace(row[nf:nf+ng], u, p, cfg.Time)
			for k, name := range obsNames {
				row[nf+ng+k] = fn.Observed[name](u, p, cfg.Time)
			}
			res.Values[i] = row
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, row := range res.Values {
		if !dynamo.State(row).IsValid() {
			u, _ := set(res.Grid[i])
			res.Invalid = append(res.Invalid, &dynamo.EvalError{
				Point: i, Time: cfg.Time, State: u, Wrapped: dynamo.ErrInvalidState,
			})
		}
	}
	return res, nil
}

// setter returns a function producing the state and parameters for one grid
// value. Each call returns fresh values so points can run concurrently.
func setter(prob *dynamo.Problem, name string) (func(v float64) (dynamo.State, dynamo.Params), error) {
	for i, s := range prob.F.StateNames {
		if s == name {
			return func(v float64) (dynamo.State, dynamo.Params) {
				u := prob.U0.Clone()
				u[i] = v
				return u, prob.P
			}, nil
		}
	}

	if po, ok := prob.P.(*codegen.ParameterObject); ok {
		if _, ok := po.Get(name); !ok {
			return nil, fmt.Errorf("%w: %q", dynamo.ErrUnknownParameter, name)
		}
		if err := po.Clone().Set(name, 0); err != nil {
			return nil, err
		}
		return func(v float64) (dynamo.State, dynamo.Params) {
			c := po.Clone()
			_ = c.Set(name, v)
			return prob.U0, c
		}, nil
	}

	for i, s := range prob.F.ParamNames {
		if s == name {
			return func(v float64) (dynamo.State, dynamo.Params) {
				p := append(dynamo.ParamVector(nil), prob.P.Flat()...)
				p[i] = v
				return prob.U0, p
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", dynamo.ErrUnknownParameter, name)
}

func grid(from, to float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = from
		return out
	}
	step := (to - from) / float64(n-1)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	out[n-1] = to
	return out
}
