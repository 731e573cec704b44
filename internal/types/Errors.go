package types

import "errors"

// Engine-wide error taxonomy. Packages wrap these with errors.Join to add
// detail while keeping errors.Is checks stable for callers.
var (
	// ErrInvalidInput marks malformed or out-of-range snapshot/config values.
	// These are rejected at the boundary, never silently clamped.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidStateTransition marks an operation attempted on a position
	// that is terminal or in the wrong state for that operation.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrArithmeticDegenerate marks divide-by-zero-shaped situations that do
	// not have a documented sentinel result.
	ErrArithmeticDegenerate = errors.New("arithmetic degenerate case")
)
