package sde

import "github.com/san-kum/sdekit/internal/symbolic"

// Equal reports whether two systems describe the same model: same
// independent variable, name, drift, diffusion and scalar-noise flag, the
// same state and parameter sets in any order, and equal subsystems in order.
// Systems sharing an identity tag are equal without further comparison.
func Equal(a, b *System) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.tag == b.tag {
		return true
	}
	if a.iv.Name() != b.iv.Name() || a.name != b.name || a.scalarNoise != b.scalarNoise {
		return false
	}
	if len(a.drift) != len(b.drift) {
		return false
	}
	for i := range a.drift {
		if !a.drift[i].equal(b.drift[i]) {
			return false
		}
	}
	if !a.noise.Equal(b.noise) {
		return false
	}
	if !sameSet(a.states, b.states) || !sameSet(a.params, b.params) {
		return false
	}
	if len(a.subsystems) != len(b.subsystems) {
		return false
	}
	for i := range a.subsystems {
		if !Equal(a.subsystems[i], b.subsystems[i]) {
			return false
		}
	}
	return true
}

func sameSet(a, b []*symbolic.Sym) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, v := range a {
		set[v.Name()]++
	}
	for _, v := range b {
		if set[v.Name()] == 0 {
			return false
		}
		set[v.Name()]--
	}
	return true
}
