// Package dynamo defines the numeric contract between compiled SDE systems
// and the solvers that integrate them.
//
// The package defines:
//
//   - [State]: vector representing system state
//   - [Params]: positional parameter source, either a [ParamVector] or a
//     structured object that flattens itself
//   - [Function]: drift, diffusion and optional derivative callables with the
//     mass matrix and the [Noise] descriptor
//   - [Problem]: a Function bound to an initial state, time span and parameters
//
// Callables panic on length mismatches, the way gonum panics on shape
// mismatches; everything that can fail at build time returns an error instead.
//
// # Example
//
//	fn, _ := codegen.NewFunction(sys, nil, nil, codegen.Options{Jacobian: true})
//	du := fn.Drift(dynamo.State{1, 1, 1}, dynamo.ParamVector{10, 28, 8.0 / 3}, 0)
//
// # Thread Safety
//
// Compiled callables keep no state between calls and may be shared between
// goroutines. In-place variants write only to the caller's buffer.
package dynamo
