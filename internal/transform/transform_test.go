package transform_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/sdekit/internal/sde"
	"github.com/san-kum/sdekit/internal/symbolic"
	"github.com/san-kum/sdekit/internal/transform"
)

var (
	t          = symbolic.S("t")
	x, y, z    = symbolic.S("x"), symbolic.S("y"), symbolic.S("z")
	p          = symbolic.MustParse
	eq         = sde.Eq
	equivalent = symbolic.Equivalent
)

func syms(names ...string) []*symbolic.Sym {
	out := make([]*symbolic.Sym, len(names))
	for i, n := range names {
		out[i] = symbolic.S(n)
	}
	return out
}

func mustSystem(drift []sde.Equation, noise sde.Diffusion, states, params []*symbolic.Sym, opts sde.Options) *sde.System {
	sys, err := sde.New(drift, noise, t, states, params, opts)
	Expect(err).NotTo(HaveOccurred())
	return sys
}

func gbm() *sde.System {
	return mustSystem(
		[]sde.Equation{eq(symbolic.D(x), p("mu*x"))},
		sde.DiagonalNoise(p("s*x")),
		[]*symbolic.Sym{x}, syms("mu", "s"), sde.Options{Name: "gbm"})
}

func lorenz() *sde.System {
	return mustSystem(
		[]sde.Equation{
			eq(symbolic.D(x), p("sigma*(y - x)")),
			eq(symbolic.D(y), p("x*(rho - z) - y")),
			eq(symbolic.D(z), p("x*y - beta*z")),
		},
		sde.DiagonalNoise(p("0.1*x"), p("0.1*y"), p("0.1*z")),
		[]*symbolic.Sym{x, y, z}, syms("sigma", "rho", "beta"), sde.Options{Name: "lorenz"})
}

func correlated() *sde.System {
	m, err := symbolic.MatrixFromRows([][]symbolic.Expr{
		{p("s1*x"), symbolic.N(0)},
		{p("c*s2*y"), p("s2*y")},
	})
	Expect(err).NotTo(HaveOccurred())
	return mustSystem(
		[]sde.Equation{eq(symbolic.D(x), p("mu1*x")), eq(symbolic.D(y), p("mu2*y"))},
		sde.MatrixNoise(m),
		[]*symbolic.Sym{x, y}, syms("mu1", "mu2", "s1", "s2", "c"), sde.Options{Name: "assets"})
}

// rhsOf returns the right side of the differential equation for name.
func rhsOf(sys *sde.System, name string) symbolic.Expr {
	for _, e := range sys.Drift() {
		if v, ok := e.Target(); ok && v.Name() == name {
			return e.RHS
		}
	}
	Fail("no equation for " + name)
	return nil
}

var _ = Describe("StochasticIntegral", func() {
	It("subtracts half of g·∂g/∂x for geometric Brownian motion", func() {
		sys := gbm()
		strat, err := transform.ItoToStratonovich(sys)
		Expect(err).NotTo(HaveOccurred())

		Expect(equivalent(strat.Drift()[0].RHS, p("mu*x - 1/2*s^2*x"))).To(BeTrue())
		Expect(strat.Noise().Equal(sys.Noise())).To(BeTrue())
		Expect(strat.Tag()).NotTo(Equal(sys.Tag()))
	})

	It("leaves the input untouched", func() {
		sys := gbm()
		before := sys.Drift()[0].RHS
		_, err := transform.ItoToStratonovich(sys)
		Expect(err).NotTo(HaveOccurred())
		Expect(symbolic.Equal(sys.Drift()[0].RHS, before)).To(BeTrue())
	})

	It("sums the correction over every column of matrix noise", func() {
		strat, err := transform.ItoToStratonovich(correlated())
		Expect(err).NotTo(HaveOccurred())

		drift := strat.Drift()
		Expect(equivalent(drift[0].RHS, p("mu1*x - 1/2*s1^2*x"))).To(BeTrue())
		Expect(equivalent(drift[1].RHS, p("mu2*y - 1/2*(c^2 + 1)*s2^2*y"))).To(BeTrue())
		Expect(strat.Noise().IsMatrix()).To(BeTrue())
	})

	It("pairs each noise row with its equation's state when equations are reordered", func() {
		sys := mustSystem(
			[]sde.Equation{eq(symbolic.D(y), symbolic.N(0)), eq(symbolic.D(x), symbolic.N(0))},
			sde.DiagonalNoise(symbolic.N(1), x),
			[]*symbolic.Sym{x, y}, nil, sde.Options{})
		strat, err := transform.ItoToStratonovich(sys)
		Expect(err).NotTo(HaveOccurred())

		Expect(equivalent(rhsOf(strat, "x"), p("-1/2*x"))).To(BeTrue())
		Expect(symbolic.IsZero(rhsOf(strat, "y"))).To(BeTrue())
	})

	DescribeTable("round-trips Ito → Stratonovich → Ito",
		func(build func() *sde.System) {
			sys := build()
			strat, err := transform.ItoToStratonovich(sys)
			Expect(err).NotTo(HaveOccurred())
			ito, err := transform.StratonovichToIto(strat)
			Expect(err).NotTo(HaveOccurred())

			want := sys.Drift()
			got := ito.Drift()
			Expect(got).To(HaveLen(len(want)))
			for i := range want {
				Expect(equivalent(got[i].RHS, want[i].RHS)).To(BeTrue(), "equation %d: %s vs %s", i, got[i].RHS, want[i].RHS)
			}
		},
		Entry("geometric Brownian motion", gbm),
		Entry("stochastic Lorenz", lorenz),
		Entry("correlated assets", correlated),
	)
})

var _ = Describe("Girsanov", func() {
	It("adds a correction state for diagonal noise", func() {
		sys := lorenz()
		out, err := transform.Girsanov(sys, x, transform.GirsanovOptions{})
		Expect(err).NotTo(HaveOccurred())

		Expect(out.States()).To(HaveLen(len(sys.States()) + 1))
		Expect(out.States()[3].Name()).To(Equal("θ"))
		Expect(out.Observed()).To(HaveLen(len(sys.Observed()) + 1))

		noise := out.Noise()
		Expect(noise.IsMatrix()).To(BeTrue())
		rows, cols := noise.Matrix().Dims()
		Expect(rows).To(Equal(4))
		Expect(cols).To(Equal(3))
		Expect(equivalent(noise.Matrix().At(3, 0), p("-1/10*θ"))).To(BeTrue())
		Expect(symbolic.IsZero(noise.Matrix().At(3, 1))).To(BeTrue())

		drift := out.Drift()
		Expect(equivalent(drift[0].RHS, p("sigma*(y - x) + x/100"))).To(BeTrue())
		Expect(symbolic.IsZero(drift[3].RHS)).To(BeTrue())
		Expect(out.Defaults()).To(HaveKey("θ"))
		Expect(out.IsScalarNoise()).To(BeFalse())
	})

	It("keeps a single channel as a shared scalar process", func() {
		out, err := transform.Girsanov(gbm(), x, transform.GirsanovOptions{})
		Expect(err).NotTo(HaveOccurred())

		noise := out.Noise()
		Expect(noise.IsMatrix()).To(BeFalse())
		Expect(noise.Rows()).To(Equal(2))
		Expect(out.IsScalarNoise()).To(BeTrue())
		Expect(equivalent(noise.Vector()[1], p("-s*θ"))).To(BeTrue())
		Expect(equivalent(out.Drift()[0].RHS, p("mu*x + s^2*x"))).To(BeTrue())
	})

	It("appends θ's row to matrix noise", func() {
		out, err := transform.Girsanov(correlated(), p("x + y"), transform.GirsanovOptions{})
		Expect(err).NotTo(HaveOccurred())

		rows, cols := out.Noise().Matrix().Dims()
		Expect(rows).To(Equal(3))
		Expect(cols).To(Equal(2))
		Expect(equivalent(out.Noise().Matrix().At(2, 1), p("-θ*s2*y/(x + y)"))).To(BeTrue())
	})

	It("gives the same adjustment whatever order the equations come in", func() {
		inOrder := mustSystem(
			[]sde.Equation{eq(symbolic.D(x), p("-x")), eq(symbolic.D(y), p("-y"))},
			sde.DiagonalNoise(x, symbolic.N(2)),
			[]*symbolic.Sym{x, y}, nil, sde.Options{})
		swapped := mustSystem(
			[]sde.Equation{eq(symbolic.D(y), p("-y")), eq(symbolic.D(x), p("-x"))},
			sde.DiagonalNoise(symbolic.N(2), x),
			[]*symbolic.Sym{x, y}, nil, sde.Options{})

		a, err := transform.Girsanov(inOrder, p("x + y"), transform.GirsanovOptions{})
		Expect(err).NotTo(HaveOccurred())
		b, err := transform.Girsanov(swapped, p("x + y"), transform.GirsanovOptions{})
		Expect(err).NotTo(HaveOccurred())

		for _, name := range []string{"x", "y"} {
			Expect(equivalent(rhsOf(a, name), rhsOf(b, name))).To(BeTrue(), "equation for %s", name)
		}
		Expect(equivalent(rhsOf(a, "x"), p("-x + x^2/(x + y)"))).To(BeTrue())
		Expect(equivalent(rhsOf(a, "y"), p("-y + 4/(x + y)"))).To(BeTrue())
		Expect(equivalent(b.Noise().Matrix().At(2, 1), p("-θ*x/(x + y)"))).To(BeTrue())
		Expect(equivalent(b.Noise().Matrix().At(2, 0), p("-2*θ/(x + y)"))).To(BeTrue())
	})

	It("records the weight relative to the initial value", func() {
		out, err := transform.Girsanov(gbm(), x, transform.GirsanovOptions{InitialWeight: symbolic.N(2)})
		Expect(err).NotTo(HaveOccurred())

		obs := out.Observed()
		last := obs[len(obs)-1]
		Expect(last.LHS.String()).To(Equal("weight"))
		Expect(equivalent(last.RHS, p("θ/2"))).To(BeTrue())
		Expect(out.Defaults()["θ"].String()).To(Equal("2"))
	})

	DescribeTable("rejects a symbolically zero likelihood",
		func(u string) {
			_, err := transform.Girsanov(gbm(), p(u), transform.GirsanovOptions{})
			Expect(err).To(MatchError(sde.ErrDivisionByZero))
		},
		Entry("cancelling terms", "x - x"),
		Entry("zero after expansion", "(x + 1)^2 - x^2 - 2*x - 1"),
	)

	It("refuses to shadow an existing name", func() {
		sys := mustSystem(
			[]sde.Equation{eq(symbolic.D(symbolic.S("θ")), p("-θ"))},
			sde.DiagonalNoise(symbolic.N(1)),
			syms("θ"), nil, sde.Options{})
		_, err := transform.Girsanov(sys, p("θ"), transform.GirsanovOptions{})
		Expect(err).To(MatchError(sde.ErrStructural))
	})
})
