package symbolic

import (
	"errors"
	"math"
	"testing"
)

func TestSimplify_Canonical(t *testing.T) {
	x, y := S("x"), S("y")

	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"cancel", Sum(x, Neg(x)), "0"},
		{"collect", Sum(x, x, N(2)), "2*x + 2"},
		{"powers", Product(x, x), "x^2"},
		{"quotient", Quo(x, x), "1"},
		{"rational", Sum(F(1, 2), F(1, 2)), "1"},
		{"negative coeff", Product(F(-1, 2), x), "-1/2*x"},
		{"zero factor", Product(N(0), x, y), "0"},
		{"pow of pow", Power(Power(x, N(2)), N(3)), "x^6"},
		{"pow of product", Power(Product(N(2), x), N(2)), "4*x^2"},
		{"reciprocal", Quo(N(1), x), "x^(-1)"},
		{"exact fold", Power(F(2, 3), N(2)), "4/9"},
		{"log exp", Apply(Log, Apply(Exp, x)), "x"},
		{"sin zero", Apply(Sin, N(0)), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.expr.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSimplify_Idempotent(t *testing.T) {
	e := MustParse("sigma*(y - x) + 1/2*x^2*sin(t) - x*y")
	if !Equal(Simplify(e), e) {
		t.Errorf("Simplify changed canonical expression: %s -> %s", e, Simplify(e))
	}
}

func TestDiff(t *testing.T) {
	x, y := S("x"), S("y")

	tests := []struct {
		name string
		expr Expr
		wrt  *Sym
		want string
	}{
		{"constant", N(5), x, "0"},
		{"self", x, x, "1"},
		{"other", y, x, "0"},
		{"power", Power(x, N(3)), x, "3*x^2"},
		{"product rule", Product(Apply(Sin, x), x), x, "cos(x)*x + sin(x)"},
		{"bilinear", Product(x, y), y, "x"},
		{"exp chain", Apply(Exp, Product(N(2), x)), x, "2*exp(2*x)"},
		{"log", Apply(Log, x), x, "x^(-1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Diff(tt.expr, tt.wrt).String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJacobian(t *testing.T) {
	x, y := S("x"), S("y")
	j := Jacobian([]Expr{Product(x, y), Power(x, N(2))}, []*Sym{x, y})

	want := [][]string{{"y", "x"}, {"2*x", "0"}}
	for i := range want {
		for k := range want[i] {
			if got := j.At(i, k).String(); got != want[i][k] {
				t.Errorf("J[%d,%d] = %q, want %q", i, k, got, want[i][k])
			}
		}
	}
}

func TestExpand(t *testing.T) {
	e := Expand(MustParse("(x + 1)^2"))
	if got := e.String(); got != "2*x + x^2 + 1" {
		t.Errorf("Expand = %q", got)
	}
}

func TestEquivalent(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"(x + y)*(x - y)", "x^2 - y^2", true},
		{"sigma*(y - x)", "sigma*y - sigma*x", true},
		{"x*(1/2)", "x/2", true},
		{"x + 1", "x", false},
	}

	for _, tt := range tests {
		if got := Equivalent(MustParse(tt.a), MustParse(tt.b)); got != tt.want {
			t.Errorf("Equivalent(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSubstitute(t *testing.T) {
	e := Substitute(MustParse("x^2 + y"), map[string]Expr{"x": N(3)})
	if got := e.String(); got != "y + 9" {
		t.Errorf("Substitute = %q", got)
	}
}

func TestEval(t *testing.T) {
	e := MustParse("sigma*(y - x) + sqrt(z)")
	v, err := Eval(e, map[string]float64{"sigma": 10, "x": 1, "y": 2, "z": 4})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if math.Abs(v-12) > 1e-12 {
		t.Errorf("Eval = %v, want 12", v)
	}

	_, err = Eval(e, map[string]float64{"sigma": 10})
	var unbound *UnboundError
	if !errors.As(err, &unbound) {
		t.Errorf("expected UnboundError, got %v", err)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		"sigma*(y - x)",
		"x*(rho - z) - y",
		"-1/2*x + y^(-1)*beta",
		"(1/2)^x + exp(-x^2)",
		"D(x)",
		"a.b*c",
	}

	for _, in := range inputs {
		e := MustParse(in)
		back, err := Parse(e.String())
		if err != nil {
			t.Errorf("reparse %q (%q): %v", in, e.String(), err)
			continue
		}
		if !Equal(e, back) {
			t.Errorf("round trip %q: %s != %s", in, e, back)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	inputs := []string{"x +", "foo(x)", "(x", "x / 0", "3 $ 4"}
	for _, in := range inputs {
		_, err := Parse(in)
		var syn *SyntaxError
		if !errors.As(err, &syn) {
			t.Errorf("Parse(%q): expected SyntaxError, got %v", in, err)
		}
	}
}

func TestParseEquation(t *testing.T) {
	lhs, rhs, err := ParseEquation("D(x) ~ -theta*x")
	if err != nil {
		t.Fatalf("ParseEquation: %v", err)
	}
	if _, ok := lhs.(*Differential); !ok {
		t.Errorf("lhs = %T, want *Differential", lhs)
	}
	if rhs.String() != "-theta*x" {
		t.Errorf("rhs = %q", rhs.String())
	}
}

func TestMatrix(t *testing.T) {
	x, y := S("x"), S("y")

	d := Diagonal([]Expr{x, y})
	if !d.IsDiagonal() {
		t.Error("Diagonal matrix not recognised as diagonal")
	}
	d.Set(0, 1, Minus(x, x))
	if !d.IsDiagonal() {
		t.Error("exact zero off-diagonal should keep matrix diagonal")
	}
	d.Set(1, 0, F(1, 1000))
	if d.IsDiagonal() {
		t.Error("non-zero off-diagonal reported as diagonal")
	}

	m, err := MatrixFromRows([][]Expr{{x, N(1)}, {N(0), y}})
	if err != nil {
		t.Fatalf("MatrixFromRows: %v", err)
	}
	v := m.MulVec([]Expr{N(2), N(3)})
	if v[0].String() != "2*x + 3" || v[1].String() != "3*y" {
		t.Errorf("MulVec = %v", v)
	}

	if _, err := MatrixFromRows([][]Expr{{x}, {x, y}}); err == nil {
		t.Error("expected ragged rows error")
	}
}

func TestFreeSymbols(t *testing.T) {
	got := FreeSymbols(MustParse("sigma*(y - x) + exp(t)"))
	want := []string{"sigma", "t", "x", "y"}
	if len(got) != len(want) {
		t.Fatalf("FreeSymbols = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FreeSymbols[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
