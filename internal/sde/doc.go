// Package sde holds the symbolic description of a stochastic differential
// equation system:
//
//	dx = f(x, p, t) dt + g(x, p, t) dW
//
// The package defines:
//
//   - [System]: drift equations, diffusion term, variables, parameters and metadata
//   - [Diffusion]: diagonal (vector) or general (matrix) noise
//   - [Equation]: lhs ~ rhs pairs used for drift, observed and dependency equations
//   - [ContinuousEvent], [DiscreteEvent]: symbolic callbacks carried with the system
//
// # Construction
//
// [New] validates the structure (dimensions, closed set of symbols, unique
// subsystem names) and, unless disabled, dimensional units:
//
//	x, y, z := symbolic.S("x"), symbolic.S("y"), symbolic.S("z")
//	sys, err := sde.New(drift, sde.DiagonalNoise(gx, gy, gz), t,
//		[]*symbolic.Sym{x, y, z}, params, sde.Options{Name: "lorenz"})
//
// A System is immutable. Transforms return new systems. [Complete] is a
// one-way promotion that turns off namespacing and is required before code
// generation.
//
// # Derived quantities
//
// The jacobian, time gradient, control jacobian, mass matrix and factorized
// system matrices are computed on first use and memoized on the instance.
// Memoization is idempotent, so a System may be shared between goroutines.
package sde
