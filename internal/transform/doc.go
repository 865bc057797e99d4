// Package transform rewrites SDE systems into equivalent systems.
//
// Every transform is pure: the input system is untouched and the result is
// a new [sde.System] with a fresh identity tag. Results skip construction
// checks because a valid input already guarantees consistency.
//
//   - [StochasticIntegral] adds a drift correction built from the diffusion
//     sensitivity; [ItoToStratonovich] and [StratonovichToIto] fix the factor.
//   - [Girsanov] adds a likelihood-ratio state θ so that expectations under the
//     original measure equal weighted expectations under the new one.
//
// # Example
//
//	strat, err := transform.ItoToStratonovich(sys)
//	weighted, err := transform.Girsanov(sys, symbolic.S("x"), transform.GirsanovOptions{})
package transform
