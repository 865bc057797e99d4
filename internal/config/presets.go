package config

import (
	"sort"

	"github.com/san-kum/sdekit/internal/sde"
)

var Presets = map[string]*Model{
	"lorenz": {
		Name:                "lorenz",
		Description:         "Lorenz system with multiplicative diagonal noise",
		IndependentVariable: "t",
		States: []Variable{
			{Name: "x", Default: "1"},
			{Name: "y", Default: "0"},
			{Name: "z", Default: "0"},
		},
		Parameters: []Variable{
			{Name: "sigma", Default: "10"},
			{Name: "rho", Default: "28"},
			{Name: "beta", Default: "8/3"},
		},
		Drift: []string{
			"D(x) ~ sigma*(y - x)",
			"D(y) ~ x*(rho - z) - y",
			"D(z) ~ x*y - beta*z",
		},
		Diffusion: []string{"0.1*x", "0.1*y", "0.1*z"},
		TimeSpan:  &sde.TimeSpan{Start: 0, End: 10},
	},
	"gbm": {
		Name:                "gbm",
		Description:         "geometric Brownian motion",
		IndependentVariable: "t",
		States:              []Variable{{Name: "x", Default: "1"}},
		Parameters: []Variable{
			{Name: "mu", Default: "0.05"},
			{Name: "sigma", Default: "0.2"},
		},
		Drift:     []string{"D(x) ~ mu*x"},
		Diffusion: []string{"sigma*x"},
		TimeSpan:  &sde.TimeSpan{Start: 0, End: 1},
	},
	"ou": {
		Name:                "ou",
		Description:         "Ornstein-Uhlenbeck process with units",
		IndependentVariable: "t",
		TimeUnit:            "s",
		States:              []Variable{{Name: "x", Default: "1", Unit: "m"}},
		Parameters: []Variable{
			{Name: "theta", Default: "0.7", Unit: "1/s"},
			{Name: "mu", Default: "0", Unit: "m"},
			{Name: "s", Default: "0.3", Unit: "m/s^(1/2)"},
		},
		Drift:     []string{"D(x) ~ theta*(mu - x)"},
		Diffusion: []string{"s"},
		Observed:  []string{"deviation ~ x - mu"},
		TimeSpan:  &sde.TimeSpan{Start: 0, End: 5},
	},
	"two_asset": {
		Name:                "two_asset",
		Description:         "two correlated assets driven by two Wiener processes",
		IndependentVariable: "t",
		States: []Variable{
			{Name: "a", Default: "100"},
			{Name: "b", Default: "50"},
		},
		Parameters: []Variable{
			{Name: "mu", Default: "0.03"},
			{Name: "sa", Default: "0.2"},
			{Name: "sb", Default: "0.3"},
			{Name: "c", Default: "0.5"},
			{Name: "cbar"},
		},
		Drift: []string{
			"D(a) ~ mu*a",
			"D(b) ~ mu*b",
		},
		NoiseMatrix: [][]string{
			{"sa*a", "0"},
			{"c*sb*b", "cbar*sb*b"},
		},
		Dependencies: []string{"cbar ~ sqrt(1 - c^2)"},
		Observed:     []string{"spread ~ a - b"},
		TimeSpan:     &sde.TimeSpan{Start: 0, End: 1},
	},
	"double_well": {
		Name:                "double_well",
		Description:         "damped particle in a quartic double well with thermal noise and an external force",
		IndependentVariable: "t",
		States: []Variable{
			{Name: "x", Default: "1.1"},
			{Name: "v", Default: "0"},
		},
		Parameters: []Variable{
			{Name: "A", Default: "1"},
			{Name: "B", Default: "1"},
			{Name: "mass", Default: "1"},
			{Name: "damping", Default: "0.1"},
			{Name: "temp", Default: "0.05"},
			{Name: "force", Default: "0"},
		},
		Drift: []string{
			"D(x) ~ v",
			"D(v) ~ (-4*A*x*(x^2 - B) - damping*v + force)/mass",
		},
		Diffusion: []string{"0", "sqrt(2*damping*temp)/mass"},
		Controls:  []string{"force"},
		Observed:  []string{"energy ~ mass*v^2/2 + A*(x^2 - B)^2"},
		TimeSpan:  &sde.TimeSpan{Start: 0, End: 50},
	},
	"van_der_pol": {
		Name:                "van_der_pol",
		Description:         "Van der Pol oscillator with additive noise on the velocity",
		IndependentVariable: "t",
		States: []Variable{
			{Name: "x", Default: "2"},
			{Name: "y", Default: "0"},
		},
		Parameters: []Variable{
			{Name: "mu", Default: "1"},
			{Name: "s", Default: "0.1"},
		},
		Drift: []string{
			"D(x) ~ y",
			"D(y) ~ mu*(1 - x^2)*y - x",
		},
		Diffusion: []string{"0", "s"},
		TimeSpan:  &sde.TimeSpan{Start: 0, End: 20},
	},
}

func GetPreset(name string) *Model {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
