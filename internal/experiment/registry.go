package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/sdekit/internal/config"
	"github.com/san-kum/sdekit/internal/sde"
	"github.com/san-kum/sdekit/internal/symbolic"
	"github.com/san-kum/sdekit/internal/transform"
)

// Transform rewrites a system. args carries transform-specific settings.
type Transform func(sys *sde.System, args map[string]string) (*sde.System, error)

type Registry struct {
	models     map[string]func() (*sde.System, error)
	transforms map[string]Transform
}

func NewRegistry() *Registry {
	r := &Registry{
		models:     make(map[string]func() (*sde.System, error)),
		transforms: make(map[string]Transform),
	}

	for name, m := range config.Presets {
		r.models[name] = m.Build
	}

	r.transforms["ito_to_stratonovich"] = func(sys *sde.System, _ map[string]string) (*sde.System, error) {
		return transform.ItoToStratonovich(sys)
	}
	r.transforms["stratonovich_to_ito"] = func(sys *sde.System, _ map[string]string) (*sde.System, error) {
		return transform.StratonovichToIto(sys)
	}
	r.transforms["flatten"] = func(sys *sde.System, _ map[string]string) (*sde.System, error) {
		return sde.Flatten(sys)
	}
	r.transforms["girsanov"] = girsanov

	return r
}

// girsanov reads u, and optionally theta, weight and initial, from args.
func girsanov(sys *sde.System, args map[string]string) (*sde.System, error) {
	src, ok := args["u"]
	if !ok {
		return nil, fmt.Errorf("girsanov: missing argument u")
	}
	u, err := symbolic.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("girsanov: %w", err)
	}
	opts := transform.GirsanovOptions{Theta: args["theta"], Weight: args["weight"]}
	if s, ok := args["initial"]; ok {
		if opts.InitialWeight, err = symbolic.Parse(s); err != nil {
			return nil, fmt.Errorf("girsanov: initial weight: %w", err)
		}
	}
	return transform.Girsanov(sys, u, opts)
}

func (r *Registry) Register(name string, build func() (*sde.System, error)) {
	r.models[name] = build
}

func (r *Registry) GetModel(name string) (*sde.System, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn()
}

func (r *Registry) GetTransform(name string) (Transform, error) {
	fn, ok := r.transforms[name]
	if !ok {
		return nil, fmt.Errorf("unknown transform: %s", name)
	}
	return fn, nil
}

// Apply runs the named transforms in order.
func (r *Registry) Apply(sys *sde.System, names []string, args map[string]string) (*sde.System, error) {
	for _, name := range names {
		fn, err := r.GetTransform(name)
		if err != nil {
			return nil, err
		}
		if sys, err = fn(sys, args); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return sys, nil
}

func (r *Registry) ListModels() []string {
	return sortedKeys(r.models)
}

func (r *Registry) ListTransforms() []string {
	return sortedKeys(r.transforms)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
