package packing

import "errors"

// Surface error kinds. Callers match them with errors.Is; everything else
// wraps one of these. Infeasible candidate solutions and timer expiry are
// data, not errors.
var (
	// ErrInvalidInput covers missing CSV columns, illegal flag
	// combinations and out-of-range builder inputs.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIllegalStateTransition covers misuse of a Solution, such as
	// adding an item outside the last bin or with a rotation the item
	// type does not allow.
	ErrIllegalStateTransition = errors.New("illegal state transition")

	// ErrUnsupportedObjective is returned when a variant's solution
	// ordering does not cover the requested objective.
	ErrUnsupportedObjective = errors.New("unsupported objective")

	// ErrUnavailableSolver is returned at algorithm selection when column
	// generation is requested but no LP backend is available.
	ErrUnavailableSolver = errors.New("unavailable solver")
)
