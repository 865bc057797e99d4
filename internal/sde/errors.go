package sde

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every typed error below unwraps to one of these.
var (
	// ErrStructural indicates inconsistent equation, variable or parameter shapes.
	ErrStructural = errors.New("sde: structural error")

	// ErrUnit indicates dimensionally inconsistent equations.
	ErrUnit = errors.New("sde: unit error")

	// ErrNotComplete indicates compilation of a system not marked complete.
	ErrNotComplete = errors.New("sde: system not complete")

	// ErrDimension indicates a variable or parameter ordering that does not
	// match the system.
	ErrDimension = errors.New("sde: dimension mismatch")

	// ErrDivisionByZero indicates a symbolically zero denominator.
	ErrDivisionByZero = errors.New("sde: division by zero")
)

// StructuralError describes a failed structural check.
type StructuralError struct {
	System string
	Msg    string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("sde: system %q: %s", e.System, e.Msg)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

func structuralf(system, format string, args ...any) error {
	return &StructuralError{System: system, Msg: fmt.Sprintf(format, args...)}
}

// UnitError describes an equation whose dimensions do not match its target.
type UnitError struct {
	System   string
	Equation string
	Want     string
	Got      string
}

func (e *UnitError) Error() string {
	if e.Want == "" {
		return fmt.Sprintf("sde: system %q: inconsistent units in %s: %s", e.System, e.Equation, e.Got)
	}
	return fmt.Sprintf("sde: system %q: units of %s are %s, want %s", e.System, e.Equation, e.Got, e.Want)
}

func (e *UnitError) Unwrap() error { return ErrUnit }

// NotCompleteError is returned by code generation on a system that has not
// been passed through Complete.
type NotCompleteError struct {
	System string
}

func (e *NotCompleteError) Error() string {
	return fmt.Sprintf("sde: system %q is not complete; call sde.Complete first", e.System)
}

func (e *NotCompleteError) Unwrap() error { return ErrNotComplete }

// DimensionError describes an ordering that is not a permutation of the
// system's declared symbols.
type DimensionError struct {
	What    string
	Missing []string
	Extra   []string
}

func (e *DimensionError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Extra, ", "))
	}
	if len(parts) == 0 {
		parts = append(parts, "duplicate entries")
	}
	return fmt.Sprintf("sde: %s ordering: %s", e.What, strings.Join(parts, "; "))
}

func (e *DimensionError) Unwrap() error { return ErrDimension }

// DivisionByZeroError reports a denominator that simplifies to exactly 0.
type DivisionByZeroError struct {
	Expr string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("sde: division by zero: %s simplifies to 0", e.Expr)
}

func (e *DivisionByZeroError) Unwrap() error { return ErrDivisionByZero }
