// Package symbolic is the expression substrate used by the SDE model.
//
// Expressions form a closed set of node kinds:
//
//   - [Num]: exact rational constant
//   - [Sym]: named variable or parameter
//   - [Add], [Mul], [Pow]: arithmetic
//   - [Call]: application of a built-in [Func]
//   - [Differential]: the derivative marker D(x) used on equation left sides
//
// Nodes are immutable and can only be built through the constructors in this
// package, which keep every expression in canonical form: sums collect like
// terms, products collect like bases, and numeric subexpressions fold exactly.
// Two canonical expressions that print the same are structurally equal.
//
// # Example
//
//	x, sigma := symbolic.S("x"), symbolic.S("sigma")
//	f := symbolic.Product(sigma, symbolic.Power(x, symbolic.N(2)))
//	df := symbolic.Diff(f, x) // 2*sigma*x
package symbolic
