package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for evaluation.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates a state or parameter vector of the wrong length.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and function")

	// ErrUnknownParameter indicates a parameter name the function does not take.
	ErrUnknownParameter = errors.New("dynamo: unknown parameter")

	// ErrDependentParameter indicates an attempt to set a computed parameter.
	ErrDependentParameter = errors.New("dynamo: parameter is computed from others")
)

// EvalError wraps an error with the point at which evaluation failed.
type EvalError struct {
	Point   int
	Time    float64
	State   State
	Wrapped error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("point %d (t=%.4f): %v", e.Point, e.Time, e.Wrapped)
}

func (e *EvalError) Unwrap() error {
	return e.Wrapped
}
