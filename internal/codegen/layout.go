package codegen

import (
	"sync/atomic"

	"github.com/san-kum/sdekit/internal/dynamo"
	"github.com/san-kum/sdekit/internal/sde"
	"github.com/san-kum/sdekit/internal/symbolic"
)

// layout is a checked state and parameter ordering for one system.
type layout struct {
	sys    *sde.System
	states []*symbolic.Sym
	params []*symbolic.Sym
	// statePos[k] is the system position of states[k].
	statePos []int
	// last parameter-object order seen by paramValues
	poPerm atomic.Pointer[paramPerm]
}

// paramPerm maps compiled parameter positions to positions in a
// ParameterObject. perm is nil when the two orders agree.
type paramPerm struct {
	key  *string
	perm []int
}

// newLayout fails with NotCompleteError on an incomplete system and with
// DimensionError when an ordering is not a permutation of the system's own.
// A nil ordering selects the system's.
func newLayout(sys *sde.System, states, params []*symbolic.Sym) (*layout, error) {
	if !sys.IsComplete() {
		return nil, &sde.NotCompleteError{System: sys.Name()}
	}
	own := sys.States()
	if states == nil {
		states = own
	}
	if params == nil {
		params = sys.Parameters()
	}
	if err := checkOrder("state", own, states); err != nil {
		return nil, err
	}
	if err := checkOrder("parameter", sys.Parameters(), params); err != nil {
		return nil, err
	}

	pos := make(map[string]int, len(own))
	for i, v := range own {
		pos[v.Name()] = i
	}
	l := &layout{
		sys:      sys,
		states:   append([]*symbolic.Sym(nil), states...),
		params:   append([]*symbolic.Sym(nil), params...),
		statePos: make([]int, len(states)),
	}
	for k, v := range states {
		l.statePos[k] = pos[v.Name()]
	}
	return l, nil
}

func checkOrder(what string, want, got []*symbolic.Sym) error {
	wantSet := make(map[string]bool, len(want))
	for _, v := range want {
		wantSet[v.Name()] = true
	}
	seen := make(map[string]bool, len(got))
	var missing, extra []string
	for _, v := range got {
		n := v.Name()
		if !wantSet[n] || seen[n] {
			extra = append(extra, n)
		}
		seen[n] = true
	}
	for _, v := range want {
		if !seen[v.Name()] {
			missing = append(missing, v.Name())
		}
	}
	if len(missing) > 0 || len(extra) > 0 || len(got) != len(want) {
		return &sde.DimensionError{What: what, Missing: missing, Extra: extra}
	}
	return nil
}

func (l *layout) compiler() *compiler {
	return newCompiler(l.sys.IndependentVariable(), l.states, l.params)
}

func (l *layout) frame(u dynamo.State, p dynamo.Params, t float64) frame {
	dynamo.CheckLen("state", len(u), len(l.states))
	return frame{u: u, p: l.paramValues(p), t: t}
}

// paramValues returns p in the compiled parameter order. A ParameterObject
// built for another order is gathered through a permutation cached per
// name list; clones share their name list and so share the cache entry.
func (l *layout) paramValues(p dynamo.Params) []float64 {
	po, ok := p.(*ParameterObject)
	if !ok {
		flat := dynamo.Flatten(p)
		dynamo.CheckLen("parameters", len(flat), len(l.params))
		return flat
	}
	dynamo.CheckLen("parameters", len(po.values), len(l.params))
	if len(po.names) == 0 {
		return po.values
	}
	perm := l.permFor(po)
	if perm == nil {
		return po.values
	}
	out := make([]float64, len(perm))
	for k, i := range perm {
		out[k] = po.values[i]
	}
	return out
}

func (l *layout) permFor(po *ParameterObject) []int {
	key := &po.names[0]
	if c := l.poPerm.Load(); c != nil && c.key == key {
		return c.perm
	}
	perm := make([]int, len(l.params))
	identity := true
	for k, v := range l.params {
		i, ok := po.index[v.Name()]
		if !ok {
			got := make([]*symbolic.Sym, len(po.names))
			for j, n := range po.names {
				got[j] = symbolic.S(n)
			}
			panic(checkOrder("parameter", l.params, got))
		}
		perm[k] = i
		identity = identity && i == k
	}
	if identity {
		perm = nil
	}
	l.poPerm.Store(&paramPerm{key: key, perm: perm})
	return perm
}

// permuteCols reorders the state columns of m to the layout's order.
func (l *layout) permuteCols(m *symbolic.Matrix) *symbolic.Matrix {
	out := symbolic.NewMatrix(m.Rows(), len(l.statePos))
	for i := 0; i < m.Rows(); i++ {
		for k, j := range l.statePos {
			out.Set(i, k, m.At(i, j))
		}
	}
	return out
}

func (l *layout) stateNames() []string { return names(l.states) }
func (l *layout) paramNames() []string { return names(l.params) }

func names(syms []*symbolic.Sym) []string {
	out := make([]string, len(syms))
	for i, v := range syms {
		out[i] = v.Name()
	}
	return out
}
