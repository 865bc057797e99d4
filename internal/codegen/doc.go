// Package codegen compiles complete SDE systems into numeric callables.
//
// Expressions are compiled once into closures over a fixed layout of states,
// parameters and time; the resulting functions allocate nothing beyond their
// outputs. Every compiler takes explicit state and parameter orders (nil
// selects the system's own) and fails with [sde.NotCompleteError] on systems
// not passed through [sde.Complete] and with [sde.DimensionError] when an
// order is not a permutation of the declared symbols.
//
// Parameters reach the callables through [dynamo.Params]: a flat
// [dynamo.ParamVector] or a [ParameterObject], which keeps dependent
// parameters in sync with the tunable ones.
//
// # Example
//
//	sys = sde.Complete(sys)
//	f, _, err := codegen.CompileDrift(sys, nil, nil)
//	du := f(dynamo.State{1, 2, 3}, dynamo.ParamVector{10, 28, 8.0 / 3}, 0)
//
// [NewFunction] gathers drift, diffusion, the optional derivatives, the mass
// matrix and the noise descriptor into a [dynamo.Function]; [NewProblem] also
// resolves initial values and parameters from defaults.
package codegen
