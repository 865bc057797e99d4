package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/sdekit/internal/sde"
	"github.com/san-kum/sdekit/internal/symbolic"
)

type Styles struct {
	Panel    lipgloss.Style
	Title    lipgloss.Style
	Label    lipgloss.Style
	Equation lipgloss.Style
	Muted    lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
}

func NewStyles(th Theme) Styles {
	return Styles{
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(th.Muted).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(th.Primary),
		Label: lipgloss.NewStyle().
			Foreground(th.Accent).
			Bold(true),
		Equation: lipgloss.NewStyle().Foreground(th.Text),
		Muted:    lipgloss.NewStyle().Foreground(th.Muted).Italic(true),
		Warning:  lipgloss.NewStyle().Foreground(th.Warning),
		Error:    lipgloss.NewStyle().Foreground(th.Error).Bold(true),
	}
}

// RenderSystem lists a system's variables and equations in a panel.
func (st Styles) RenderSystem(sys *sde.System) string {
	var b strings.Builder

	title := sys.Name()
	if title == "" {
		title = "(unnamed)"
	}
	b.WriteString(st.Title.Render(title))
	if d := sys.Description(); d != "" {
		b.WriteString("  " + st.Muted.Render(d))
	}
	b.WriteString("\n\n")

	st.field(&b, "iv", sys.IndependentVariable().Name())
	st.field(&b, "states", joinSyms(sys.States()))
	st.field(&b, "parameters", joinSyms(sys.Parameters()))
	if c := sys.Controls(); len(c) > 0 {
		st.field(&b, "controls", joinSyms(c))
	}
	if ts, ok := sys.TimeSpan(); ok {
		st.field(&b, "tspan", fmt.Sprintf("[%g, %g]", ts.Start, ts.End))
	}

	b.WriteString("\n" + st.Label.Render("drift") + "\n")
	for _, eq := range sys.Drift() {
		b.WriteString("  " + st.Equation.Render(eq.String()) + "\n")
	}

	noise := sys.Noise()
	kind := "diagonal"
	switch {
	case noise.IsMatrix():
		r, c := noise.Matrix().Dims()
		kind = fmt.Sprintf("matrix %dx%d", r, c)
	case sys.IsScalarNoise():
		kind = "scalar"
	}
	b.WriteString("\n" + st.Label.Render("diffusion") + " " + st.Muted.Render(kind) + "\n")
	if noise.IsMatrix() {
		m := noise.Matrix()
		for i := 0; i < m.Rows(); i++ {
			cells := make([]string, m.Cols())
			for j, e := range m.Row(i) {
				cells[j] = e.String()
			}
			b.WriteString("  " + st.Equation.Render("["+strings.Join(cells, ", ")+"]") + "\n")
		}
	} else {
		for _, e := range noise.Vector() {
			b.WriteString("  " + st.Equation.Render(e.String()) + "\n")
		}
	}

	if obs := sys.Observed(); len(obs) > 0 {
		b.WriteString("\n" + st.Label.Render("observed") + "\n")
		for _, eq := range obs {
			b.WriteString("  " + st.Equation.Render(eq.String()) + "\n")
		}
	}
	if deps := sys.ParameterDependencies(); len(deps) > 0 {
		b.WriteString("\n" + st.Label.Render("dependencies") + "\n")
		for _, eq := range deps {
			b.WriteString("  " + st.Equation.Render(eq.String()) + "\n")
		}
	}
	if subs := sys.Subsystems(); len(subs) > 0 {
		names := make([]string, len(subs))
		for i, s := range subs {
			names[i] = s.Name()
		}
		b.WriteString("\n")
		st.field(&b, "subsystems", strings.Join(names, ", "))
	}

	return st.Panel.Render(strings.TrimRight(b.String(), "\n"))
}

func (st Styles) field(b *strings.Builder, label, value string) {
	if value == "" {
		value = st.Muted.Render("none")
	}
	fmt.Fprintf(b, "%s %s\n", st.Label.Render(fmt.Sprintf("%-11s", label)), value)
}

func joinSyms(syms []*symbolic.Sym) string {
	names := make([]string, len(syms))
	for i, s := range syms {
		names[i] = s.Name()
	}
	return strings.Join(names, ", ")
}
