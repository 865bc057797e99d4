package codegen_test

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/sdekit/internal/codegen"
	"github.com/san-kum/sdekit/internal/dynamo"
	"github.com/san-kum/sdekit/internal/sde"
	"github.com/san-kum/sdekit/internal/symbolic"
	"github.com/san-kum/sdekit/internal/transform"
)

var (
	tSym             = symbolic.S("t")
	xSym, ySym, zSym = symbolic.S("x"), symbolic.S("y"), symbolic.S("z")
	sigma, rho, beta = symbolic.S("sigma"), symbolic.S("rho"), symbolic.S("beta")
)

func lorenz(t *testing.T) *sde.System {
	t.Helper()
	sys, err := sde.New(
		[]sde.Equation{
			sde.Eq(symbolic.D(xSym), symbolic.MustParse("sigma*(y - x)")),
			sde.Eq(symbolic.D(ySym), symbolic.MustParse("x*(rho - z) - y")),
			sde.Eq(symbolic.D(zSym), symbolic.MustParse("x*y - beta*z")),
		},
		sde.DiagonalNoise(
			symbolic.MustParse("0.1*x"),
			symbolic.MustParse("0.1*y"),
			symbolic.MustParse("0.1*z"),
		),
		tSym, []*symbolic.Sym{xSym, ySym, zSym}, []*symbolic.Sym{sigma, rho, beta},
		sde.Options{Name: "lorenz"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sde.Complete(sys)
}

func correlated(t *testing.T) *sde.System {
	t.Helper()
	s1, s2, c := symbolic.S("s1"), symbolic.S("s2"), symbolic.S("c")
	m, err := symbolic.MatrixFromRows([][]symbolic.Expr{
		{symbolic.Product(s1, xSym), symbolic.N(0)},
		{symbolic.Product(c, s2, ySym), symbolic.Product(s2, ySym)},
	})
	if err != nil {
		t.Fatalf("MatrixFromRows: %v", err)
	}
	sys, err := sde.New(
		[]sde.Equation{
			sde.Eq(symbolic.D(xSym), symbolic.N(0)),
			sde.Eq(symbolic.D(ySym), symbolic.N(0)),
		},
		sde.MatrixNoise(m), tSym, []*symbolic.Sym{xSym, ySym}, []*symbolic.Sym{s1, s2, c},
		sde.Options{Name: "pair"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sde.Complete(sys)
}

func ou(t *testing.T, opts sde.Options) *sde.System {
	t.Helper()
	theta, s := symbolic.S("theta"), symbolic.S("s")
	sys, err := sde.New(
		[]sde.Equation{sde.Eq(symbolic.D(xSym), symbolic.MustParse("-theta*x"))},
		sde.DiagonalNoise(s), tSym, []*symbolic.Sym{xSym}, []*symbolic.Sym{theta, s}, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sde.Complete(sys)
}

var lorenzP = dynamo.ParamVector{10, 28, 8.0 / 3}

func TestCompileDrift_Lorenz(t *testing.T) {
	g := NewWithT(t)
	f, fip, err := codegen.CompileDrift(lorenz(t), nil, nil)
	g.Expect(err).NotTo(HaveOccurred())

	du := f(dynamo.State{1, 2, 3}, lorenzP, 0)
	g.Expect(du).To(HaveLen(3))
	g.Expect(du[0]).To(BeNumerically("~", 10, 1e-12))
	g.Expect(du[1]).To(BeNumerically("~", 23, 1e-12))
	g.Expect(du[2]).To(BeNumerically("~", -6, 1e-12))

	buf := make(dynamo.State, 3)
	fip(buf, dynamo.State{1, 2, 3}, lorenzP, 0)
	g.Expect(buf).To(Equal(du))

	g.Expect(func() { fip(make(dynamo.State, 2), dynamo.State{1, 2, 3}, lorenzP, 0) }).To(Panic())
	g.Expect(func() { f(dynamo.State{1, 2}, lorenzP, 0) }).To(Panic())
}

func TestCompileDrift_PermutedOrder(t *testing.T) {
	g := NewWithT(t)
	sys := lorenz(t)
	states := []*symbolic.Sym{zSym, xSym, ySym}
	params := []*symbolic.Sym{beta, sigma, rho}

	f, _, err := codegen.CompileDrift(sys, states, params)
	g.Expect(err).NotTo(HaveOccurred())
	du := f(dynamo.State{3, 1, 2}, dynamo.ParamVector{8.0 / 3, 10, 28}, 0)
	g.Expect(du[0]).To(BeNumerically("~", 10, 1e-12))
	g.Expect(du[1]).To(BeNumerically("~", 23, 1e-12))
	g.Expect(du[2]).To(BeNumerically("~", -6, 1e-12))

	jac, _, err := codegen.CompileJacobian(sys, states, params)
	g.Expect(err).NotTo(HaveOccurred())
	J := jac(dynamo.State{3, 1, 2}, dynamo.ParamVector{8.0 / 3, 10, 28}, 0)
	// row dx/dt, columns z, x, y
	g.Expect(J.At(0, 0)).To(BeNumerically("==", 0))
	g.Expect(J.At(0, 1)).To(BeNumerically("~", -10, 1e-12))
	g.Expect(J.At(0, 2)).To(BeNumerically("~", 10, 1e-12))
	// row dz/dt: x*y - beta*z
	g.Expect(J.At(2, 0)).To(BeNumerically("~", -8.0/3, 1e-12))
	g.Expect(J.At(2, 1)).To(BeNumerically("~", 2, 1e-12))
	g.Expect(J.At(2, 2)).To(BeNumerically("~", 1, 1e-12))
}

func TestCompile_Errors(t *testing.T) {
	g := NewWithT(t)

	raw, err := sde.New(
		[]sde.Equation{sde.Eq(symbolic.D(xSym), symbolic.Neg(xSym))},
		sde.DiagonalNoise(symbolic.N(1)), tSym, []*symbolic.Sym{xSym}, nil, sde.Options{Name: "raw"})
	g.Expect(err).NotTo(HaveOccurred())
	_, _, err = codegen.CompileDrift(raw, nil, nil)
	g.Expect(errors.Is(err, sde.ErrNotComplete)).To(BeTrue())
	_, err = codegen.MassMatrix(raw, nil)
	g.Expect(errors.Is(err, sde.ErrNotComplete)).To(BeTrue())
	_, err = codegen.NewProblem(raw, nil, nil, &sde.TimeSpan{End: 1}, codegen.Options{})
	g.Expect(errors.Is(err, sde.ErrNotComplete)).To(BeTrue())

	sys := lorenz(t)
	_, _, err = codegen.CompileDiffusion(sys, []*symbolic.Sym{xSym, ySym}, nil)
	g.Expect(errors.Is(err, sde.ErrDimension)).To(BeTrue())
	var dimErr *sde.DimensionError
	g.Expect(errors.As(err, &dimErr)).To(BeTrue())
	g.Expect(dimErr.Missing).To(Equal([]string{"z"}))

	_, _, err = codegen.CompileJacobian(sys, nil, []*symbolic.Sym{sigma, rho, rho})
	g.Expect(errors.As(err, &dimErr)).To(BeTrue())
	g.Expect(dimErr.Missing).To(Equal([]string{"beta"}))
	g.Expect(dimErr.Extra).To(Equal([]string{"rho"}))

	_, _, err = codegen.CompileControlJacobian(sys, nil, nil)
	g.Expect(err).To(HaveOccurred())
}

func TestCompileDiffusion_Shapes(t *testing.T) {
	tests := []struct {
		name   string
		sys    func(*testing.T) *sde.System
		u      dynamo.State
		p      dynamo.ParamVector
		vector bool
		want   []float64
	}{
		{
			name:   "diagonal vector",
			sys:    lorenz,
			u:      dynamo.State{1, 2, 3},
			p:      lorenzP,
			vector: true,
			want:   []float64{0.1, 0.2, 0.3},
		},
		{
			name: "diagonal matrix",
			sys: func(t *testing.T) *sde.System {
				sys, err := sde.New(
					[]sde.Equation{
						sde.Eq(symbolic.D(xSym), symbolic.N(0)),
						sde.Eq(symbolic.D(ySym), symbolic.N(0)),
					},
					sde.MatrixNoise(symbolic.Diagonal([]symbolic.Expr{xSym, symbolic.Product(symbolic.N(2), ySym)})),
					tSym, []*symbolic.Sym{xSym, ySym}, nil, sde.Options{})
				if err != nil {
					t.Fatalf("New: %v", err)
				}
				return sde.Complete(sys)
			},
			u:      dynamo.State{3, 4},
			vector: true,
			want:   []float64{3, 8},
		},
		{
			name: "general matrix",
			sys:  correlated,
			u:    dynamo.State{2, 3},
			p:    dynamo.ParamVector{0.5, 0.25, 2},
			// row-major: s1*x, 0, c*s2*y, s2*y
			want: []float64{1, 0, 1.5, 0.75},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			sys := tt.sys(t)
			gf, gip, err := codegen.CompileDiffusion(sys, nil, nil)
			g.Expect(err).NotTo(HaveOccurred())

			out := gf(tt.u, tt.p, 0)
			if tt.vector {
				g.Expect(out).To(BeAssignableToTypeOf(&mat.VecDense{}))
			} else {
				g.Expect(out).To(BeAssignableToTypeOf(&mat.Dense{}))
			}

			buf := make([]float64, len(tt.want))
			gip(buf, tt.u, tt.p, 0)
			for i, w := range tt.want {
				g.Expect(buf[i]).To(BeNumerically("~", w, 1e-12))
			}
		})
	}
}

func TestCompileTimeGradient(t *testing.T) {
	g := NewWithT(t)
	sys, err := sde.New(
		[]sde.Equation{sde.Eq(symbolic.D(xSym), symbolic.MustParse("sin(t)*x"))},
		sde.DiagonalNoise(symbolic.N(0)), tSym, []*symbolic.Sym{xSym}, nil, sde.Options{})
	g.Expect(err).NotTo(HaveOccurred())

	tg, _, err := codegen.CompileTimeGradient(sde.Complete(sys), nil, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(tg(dynamo.State{2}, nil, 0)[0]).To(BeNumerically("~", 2, 1e-12))
}

func TestCompileWfact(t *testing.T) {
	g := NewWithT(t)
	sys := ou(t, sde.Options{})
	p := dynamo.ParamVector{2, 0.3}

	w, wip, err := codegen.CompileWfact(sys, nil, nil, false)
	g.Expect(err).NotTo(HaveOccurred())
	// W = 1 + theta*gamma
	g.Expect(w(dynamo.State{1}, p, 0.5, 0).Det()).To(BeNumerically("~", 2, 1e-12))

	var lu mat.LU
	wip(&lu, dynamo.State{1}, p, 0.25, 0)
	var x mat.VecDense
	g.Expect(lu.SolveVecTo(&x, false, mat.NewVecDense(1, []float64{3}))).To(Succeed())
	g.Expect(x.AtVec(0)).To(BeNumerically("~", 2, 1e-12))

	wt, _, err := codegen.CompileWfact(sys, nil, nil, true)
	g.Expect(err).NotTo(HaveOccurred())
	// W_t = 1/gamma + theta
	g.Expect(wt(dynamo.State{1}, p, 0.5, 0).Det()).To(BeNumerically("~", 4, 1e-12))
}

func TestMassMatrix(t *testing.T) {
	g := NewWithT(t)

	m, err := codegen.MassMatrix(lorenz(t), nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(m).To(BeAssignableToTypeOf(&mat.DiagDense{}))
	g.Expect(mat.Equal(m, mat.NewDiagDense(3, []float64{1, 1, 1}))).To(BeTrue())

	raw, err := sde.New(
		[]sde.Equation{
			sde.Eq(symbolic.D(xSym), symbolic.MustParse("-x + y")),
			sde.Eq(symbolic.N(0), symbolic.MustParse("x - y")),
		},
		sde.DiagonalNoise(symbolic.N(1), symbolic.N(0)), tSym, []*symbolic.Sym{xSym, ySym}, nil, sde.Options{})
	g.Expect(err).NotTo(HaveOccurred())
	dae := sde.Complete(raw)

	m, err = codegen.MassMatrix(dae, dynamo.State{1, 1})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(mat.Equal(m, mat.NewDense(2, 2, []float64{1, 0, 0, 0}))).To(BeTrue())

	_, err = codegen.MassMatrix(dae, dynamo.State{1})
	g.Expect(errors.Is(err, dynamo.ErrDimensionMismatch)).To(BeTrue())
}

func TestMassMatrix_StateOrder(t *testing.T) {
	g := NewWithT(t)

	raw, err := sde.New(
		[]sde.Equation{
			sde.Eq(symbolic.D(xSym), symbolic.MustParse("-x")),
			sde.Eq(symbolic.N(0), symbolic.MustParse("y - x")),
		},
		sde.DiagonalNoise(symbolic.N(1), symbolic.N(0)), tSym, []*symbolic.Sym{xSym, ySym}, nil, sde.Options{})
	g.Expect(err).NotTo(HaveOccurred())
	dae := sde.Complete(raw)

	fn, err := codegen.NewFunction(dae, []*symbolic.Sym{ySym, xSym}, nil, codegen.Options{Jacobian: true})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(mat.Equal(fn.Mass, mat.NewDense(2, 2, []float64{0, 1, 0, 0}))).To(BeTrue())

	// M and J share the column order
	J := fn.Jacobian(dynamo.State{0, 0}, nil, 0)
	g.Expect(mat.Equal(J, mat.NewDense(2, 2, []float64{0, -1, 1, -1}))).To(BeTrue())

	m, err := codegen.MassMatrixFor(lorenz(t), []*symbolic.Sym{zSym, xSym, ySym}, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(mat.Equal(m, mat.NewDense(3, 3, []float64{
		0, 1, 0,
		0, 0, 1,
		1, 0, 0,
	}))).To(BeTrue())

	m, err = codegen.MassMatrixFor(lorenz(t), nil, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(m).To(BeAssignableToTypeOf(&mat.DiagDense{}))
}

func TestNoiseRatePrototype(t *testing.T) {
	g := NewWithT(t)

	n := codegen.NoiseRatePrototype(lorenz(t), false)
	g.Expect(n.Kind).To(Equal(dynamo.DiagonalNoise))
	g.Expect(n.Channels).To(Equal(3))
	g.Expect(n.RatePrototype).To(BeNil())

	n = codegen.NoiseRatePrototype(ou(t, sde.Options{ScalarNoise: true}), false)
	g.Expect(n.Kind).To(Equal(dynamo.ScalarNoise))
	g.Expect(n.Channels).To(Equal(1))

	sys := correlated(t)
	n = codegen.NoiseRatePrototype(sys, false)
	g.Expect(n.Kind).To(Equal(dynamo.GeneralNoise))
	g.Expect(n.Channels).To(Equal(2))
	g.Expect(mat.Equal(n.RatePrototype, mat.NewDense(2, 2, nil))).To(BeTrue())

	n = codegen.NoiseRatePrototype(sys, true)
	sp, ok := n.RatePrototype.(*dynamo.SparsePattern)
	g.Expect(ok).To(BeTrue())
	g.Expect(sp.NNZ()).To(Equal(3))
	g.Expect(sp.At(0, 1)).To(BeNumerically("==", 0))
	g.Expect(sp.NonZero()).To(Equal([][2]int{{0, 0}, {1, 0}, {1, 1}}))
}

func dependentSystem(t *testing.T, opts sde.Options) *sde.System {
	t.Helper()
	a, b := symbolic.S("a"), symbolic.S("b")
	opts.ParameterDependencies = []sde.Equation{sde.Eq(b, symbolic.Product(symbolic.N(2), a))}
	sys, err := sde.New(
		[]sde.Equation{sde.Eq(symbolic.D(xSym), symbolic.MustParse("-b*x"))},
		sde.DiagonalNoise(a), tSym, []*symbolic.Sym{xSym}, []*symbolic.Sym{a, b}, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sde.Complete(sys)
}

func TestParameterObject(t *testing.T) {
	g := NewWithT(t)
	sys := dependentSystem(t, sde.Options{})

	po, err := codegen.NewParameterObject(sys, nil, map[string]float64{"a": 3})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(po.Flat()).To(Equal([]float64{3, 6}))
	g.Expect(po.Tunable()).To(Equal([]string{"a"}))
	g.Expect(po.Names()).To(Equal([]string{"a", "b"}))

	g.Expect(po.Set("a", 5)).To(Succeed())
	b, ok := po.Get("b")
	g.Expect(ok).To(BeTrue())
	g.Expect(b).To(Equal(10.0))

	g.Expect(errors.Is(po.Set("b", 1), dynamo.ErrDependentParameter)).To(BeTrue())
	g.Expect(errors.Is(po.Set("nope", 1), dynamo.ErrUnknownParameter)).To(BeTrue())

	_, err = codegen.NewParameterObject(sys, nil, map[string]float64{"a": 1, "b": 1})
	g.Expect(errors.Is(err, dynamo.ErrDependentParameter)).To(BeTrue())
	_, err = codegen.NewParameterObject(sys, nil, map[string]float64{})
	g.Expect(err).To(HaveOccurred())

	f, _, err := codegen.CompileDrift(sys, nil, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(f(dynamo.State{1}, po, 0)[0]).To(Equal(-10.0))
}

func TestParameterObject_PermutedOrder(t *testing.T) {
	g := NewWithT(t)
	a, b, c := symbolic.S("a"), symbolic.S("b"), symbolic.S("c")
	raw, err := sde.New(
		[]sde.Equation{sde.Eq(symbolic.D(xSym), symbolic.MustParse("a - 10*c"))},
		sde.DiagonalNoise(symbolic.N(1)), tSym, []*symbolic.Sym{xSym}, []*symbolic.Sym{a, b, c},
		sde.Options{ParameterDependencies: []sde.Equation{sde.Eq(c, symbolic.MustParse("2*a"))}})
	g.Expect(err).NotTo(HaveOccurred())
	sys := sde.Complete(raw)

	f, fip, err := codegen.CompileDrift(sys, nil, []*symbolic.Sym{b, c, a})
	g.Expect(err).NotTo(HaveOccurred())

	values := map[string]float64{"a": 1, "b": 100}
	own, err := codegen.NewParameterObject(sys, nil, values)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(own.Flat()).To(Equal([]float64{1, 100, 2}))
	other, err := codegen.NewParameterObject(sys, []*symbolic.Sym{c, a, b}, values)
	g.Expect(err).NotTo(HaveOccurred())

	for _, p := range []dynamo.Params{own, other, own.Clone(), dynamo.ParamVector{100, 2, 1}} {
		g.Expect(f(dynamo.State{0}, p, 0)[0]).To(Equal(-19.0))
		du := make(dynamo.State, 1)
		fip(du, dynamo.State{0}, p, 0)
		g.Expect(du[0]).To(Equal(-19.0))
	}

	// the cached permutation follows the object actually passed
	g.Expect(own.Set("a", 2)).To(Succeed())
	g.Expect(f(dynamo.State{0}, own, 0)[0]).To(Equal(-38.0))
	g.Expect(f(dynamo.State{0}, other, 0)[0]).To(Equal(-19.0))

	short, err := codegen.NewParameterObject(dependentSystem(t, sde.Options{}), nil, map[string]float64{"a": 1})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(func() { f(dynamo.State{0}, short, 0) }).To(Panic())
}

func TestCompileObserved(t *testing.T) {
	g := NewWithT(t)
	energy, double := symbolic.S("energy"), symbolic.S("double")
	raw, err := sde.New(
		[]sde.Equation{sde.Eq(symbolic.D(xSym), symbolic.Neg(xSym))},
		sde.DiagonalNoise(symbolic.N(1)), tSym, []*symbolic.Sym{xSym}, nil,
		sde.Options{Observed: []sde.Equation{
			sde.Eq(energy, symbolic.MustParse("x^2/2")),
			sde.Eq(double, symbolic.Product(symbolic.N(2), energy)),
		}})
	g.Expect(err).NotTo(HaveOccurred())
	sys := sde.Complete(raw)

	obs, err := codegen.CompileObserved(sys, "double", nil, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(obs(dynamo.State{3}, nil, 0)).To(BeNumerically("~", 9, 1e-12))

	_, err = codegen.CompileObserved(sys, "missing", nil, nil)
	g.Expect(errors.Is(err, sde.ErrUnknownVariable)).To(BeTrue())
}

func TestNewFunction_GirsanovWeight(t *testing.T) {
	g := NewWithT(t)
	base := ou(t, sde.Options{Name: "ou"})
	u := symbolic.Sum(symbolic.N(1), xSym)

	weighted, err := transform.Girsanov(base, u, transform.GirsanovOptions{InitialWeight: symbolic.N(2)})
	g.Expect(err).NotTo(HaveOccurred())
	sys := sde.Complete(weighted)

	fn, err := codegen.NewFunction(sys, nil, nil, codegen.Options{Jacobian: true, Wfact: true})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(fn.StateNames).To(Equal([]string{"x", "θ"}))
	g.Expect(fn.Jacobian).NotTo(BeNil())
	g.Expect(fn.WfactT).NotTo(BeNil())
	g.Expect(fn.TimeGradient).To(BeNil())
	g.Expect(fn.Noise.Kind).To(Equal(dynamo.ScalarNoise))
	g.Expect(fn.Observed).To(HaveKey("weight"))

	// weight = θ/2
	g.Expect(fn.Observed["weight"](dynamo.State{0, 3}, dynamo.ParamVector{1, 1}, 0)).To(BeNumerically("~", 1.5, 1e-12))
}

func TestNewFunction_ControlJacobian(t *testing.T) {
	g := NewWithT(t)
	k := symbolic.S("k")
	raw, err := sde.New(
		[]sde.Equation{sde.Eq(symbolic.D(xSym), symbolic.MustParse("-x + k*x"))},
		sde.DiagonalNoise(symbolic.N(1)), tSym, []*symbolic.Sym{xSym}, []*symbolic.Sym{k},
		sde.Options{ControlParameters: []*symbolic.Sym{k}})
	g.Expect(err).NotTo(HaveOccurred())

	fn, err := codegen.NewFunction(sde.Complete(raw), nil, nil, codegen.Options{ControlJacobian: true})
	g.Expect(err).NotTo(HaveOccurred())
	J := fn.ControlJacobian(dynamo.State{4}, dynamo.ParamVector{0.5}, 0)
	g.Expect(J.At(0, 0)).To(BeNumerically("~", 4, 1e-12))

	_, err = codegen.NewFunction(lorenz(t), nil, nil, codegen.Options{ControlJacobian: true})
	g.Expect(err).To(HaveOccurred())
}

func TestNewProblem(t *testing.T) {
	mu, s := symbolic.S("mu"), symbolic.S("s")
	gbm := func(t *testing.T, span *sde.TimeSpan) *sde.System {
		t.Helper()
		sys, err := sde.New(
			[]sde.Equation{sde.Eq(symbolic.D(xSym), symbolic.Product(mu, xSym))},
			sde.DiagonalNoise(symbolic.Product(s, xSym)), tSym,
			[]*symbolic.Sym{xSym}, []*symbolic.Sym{mu, s},
			sde.Options{
				Name:     "gbm",
				TimeSpan: span,
				Defaults: map[string]symbolic.Expr{
					"x":  symbolic.N(1),
					"mu": symbolic.F(1, 20),
					"s":  symbolic.Product(symbolic.N(2), mu),
				},
			})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return sde.Complete(sys)
	}

	t.Run("defaults", func(t *testing.T) {
		g := NewWithT(t)
		prob, err := codegen.NewProblem(gbm(t, &sde.TimeSpan{End: 2}), nil, nil, nil, codegen.Options{})
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(prob.U0).To(Equal(dynamo.State{1}))
		g.Expect(prob.TSpan).To(Equal([2]float64{0, 2}))
		flat := prob.P.Flat()
		g.Expect(flat[0]).To(BeNumerically("~", 0.05, 1e-15))
		g.Expect(flat[1]).To(BeNumerically("~", 0.1, 1e-15))
	})

	t.Run("user values win", func(t *testing.T) {
		g := NewWithT(t)
		prob, err := codegen.NewProblem(gbm(t, nil),
			map[string]float64{"x": 5}, map[string]float64{"mu": 0.5},
			&sde.TimeSpan{Start: 1, End: 3}, codegen.Options{})
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(prob.U0).To(Equal(dynamo.State{5}))
		g.Expect(prob.P.Flat()).To(Equal([]float64{0.5, 1}))
		g.Expect(prob.TSpan).To(Equal([2]float64{1, 3}))
		g.Expect(prob.F.Drift(prob.U0, prob.P, 0)[0]).To(BeNumerically("~", 2.5, 1e-12))
	})

	t.Run("errors", func(t *testing.T) {
		g := NewWithT(t)
		_, err := codegen.NewProblem(gbm(t, nil), nil, nil, nil, codegen.Options{})
		g.Expect(err).To(HaveOccurred())

		_, err = codegen.NewProblem(gbm(t, &sde.TimeSpan{End: 1}), nil, map[string]float64{"nope": 1}, nil, codegen.Options{})
		g.Expect(errors.Is(err, sde.ErrUnknownVariable)).To(BeTrue())
	})

	t.Run("dependent parameters", func(t *testing.T) {
		g := NewWithT(t)
		sys := dependentSystem(t, sde.Options{TimeSpan: &sde.TimeSpan{End: 1}})
		prob, err := codegen.NewProblem(sys, map[string]float64{"x": 1}, map[string]float64{"a": 4}, nil, codegen.Options{})
		g.Expect(err).NotTo(HaveOccurred())
		po, ok := prob.P.(*codegen.ParameterObject)
		g.Expect(ok).To(BeTrue())
		g.Expect(po.Flat()).To(Equal([]float64{4, 8}))
	})
}
