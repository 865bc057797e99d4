package codegen

import (
	"fmt"
	"sort"

	"github.com/san-kum/sdekit/internal/dynamo"
	"github.com/san-kum/sdekit/internal/sde"
	"github.com/san-kum/sdekit/internal/symbolic"
)

// ParameterObject holds the tunable parameters of a system and derives the
// dependent ones. Flat expands it to the positional order it was built for.
type ParameterObject struct {
	names   []string
	index   map[string]int
	values  []float64
	tunable []int
	deps    []dependent
}

type dependent struct {
	idx int
	k   kernel
}

// NewParameterObject builds a parameter object in the given order (nil for
// the system's). values must cover every parameter not defined by a
// parameter dependency; entries for dependent parameters are rejected.
func NewParameterObject(sys *sde.System, params []*symbolic.Sym, values map[string]float64) (*ParameterObject, error) {
	own := sys.Parameters()
	if params == nil {
		params = own
	}
	if err := checkOrder("parameter", own, params); err != nil {
		return nil, err
	}

	po := &ParameterObject{
		names:  names(params),
		index:  make(map[string]int, len(params)),
		values: make([]float64, len(params)),
	}
	for i, n := range po.names {
		po.index[n] = i
	}

	defs := map[string]symbolic.Expr{}
	for _, eq := range sys.ParameterDependencies() {
		if t, ok := eq.Target(); ok {
			defs[t.Name()] = eq.RHS
		}
	}
	order, err := dependencyOrder(defs)
	if err != nil {
		return nil, err
	}
	// dependencies only read parameters
	c := &compiler{slots: make(map[string]slot, len(params))}
	for i, p := range params {
		c.slots[p.Name()] = slot{kind: slotParam, idx: i}
	}
	for _, name := range order {
		k, err := c.compile(defs[name])
		if err != nil {
			return nil, fmt.Errorf("parameter dependency %q: %w", name, err)
		}
		po.deps = append(po.deps, dependent{idx: po.index[name], k: k})
	}

	for name := range values {
		i, ok := po.index[name]
		switch {
		case !ok:
			return nil, fmt.Errorf("%w: %q", dynamo.ErrUnknownParameter, name)
		case defs[name] != nil:
			return nil, fmt.Errorf("%w: %q", dynamo.ErrDependentParameter, name)
		}
		po.values[i] = values[name]
	}
	for i, n := range po.names {
		if defs[n] != nil {
			continue
		}
		if _, ok := values[n]; !ok {
			return nil, fmt.Errorf("codegen: no value for parameter %q", n)
		}
		po.tunable = append(po.tunable, i)
	}
	po.update()
	return po, nil
}

func (po *ParameterObject) update() {
	f := frame{p: po.values}
	for _, d := range po.deps {
		po.values[d.idx] = d.k(&f)
	}
}

// Flat returns the positional values, dependent ones included.
func (po *ParameterObject) Flat() []float64 { return po.values }

func (po *ParameterObject) Get(name string) (float64, bool) {
	i, ok := po.index[name]
	if !ok {
		return 0, false
	}
	return po.values[i], true
}

// Set changes a tunable parameter and recomputes the dependent ones.
func (po *ParameterObject) Set(name string, v float64) error {
	i, ok := po.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", dynamo.ErrUnknownParameter, name)
	}
	for _, d := range po.deps {
		if d.idx == i {
			return fmt.Errorf("%w: %q", dynamo.ErrDependentParameter, name)
		}
	}
	po.values[i] = v
	po.update()
	return nil
}

// Clone returns an independent copy. A ParameterObject is not safe for
// concurrent Set; give each goroutine its own clone.
func (po *ParameterObject) Clone() *ParameterObject {
	c := *po
	c.values = append([]float64(nil), po.values...)
	return &c
}

// Tunable returns the names of the free parameters.
func (po *ParameterObject) Tunable() []string {
	out := make([]string, len(po.tunable))
	for k, i := range po.tunable {
		out[k] = po.names[i]
	}
	return out
}

func (po *ParameterObject) Names() []string {
	return append([]string(nil), po.names...)
}

// dependencyOrder sorts dependent parameters so each is computed after the
// dependent parameters it reads.
func dependencyOrder(defs map[string]symbolic.Expr) ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(defs))
	var order []string
	var visit func(string) error
	visit = func(n string) error {
		switch state[n] {
		case visiting:
			return fmt.Errorf("codegen: parameter dependencies form a cycle through %q", n)
		case done:
			return nil
		}
		state[n] = visiting
		for _, dep := range symbolic.FreeSymbols(defs[n]) {
			if _, ok := defs[dep]; ok {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		state[n] = done
		order = append(order, n)
		return nil
	}

	keys := make([]string, 0, len(defs))
	for k := range defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := visit(k); err != nil {
			return nil, err
		}
	}
	return order, nil
}
