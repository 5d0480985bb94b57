// Package lp abstracts the linear-programming collaborator used by column
// generation. The solver is a capability with a single operation: solve a
// bounded linear program and return primal values, duals and the objective.
package lp

import (
	"fmt"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// Sense is the optimization direction.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

// ConstraintKind is the relation of a row to its right-hand side.
type ConstraintKind int

const (
	LessOrEqual ConstraintKind = iota
	GreaterOrEqual
	Equal
)

// Term is one non-zero coefficient of a row.
type Term struct {
	Column      int
	Coefficient float64
}

// Constraint is one row of the program.
type Constraint struct {
	Terms []Term
	Kind  ConstraintKind
	RHS   float64
}

// Problem is a linear program over non-negative variables.
type Problem struct {
	Sense     Sense
	Objective []float64 // one coefficient per variable
	Rows      []Constraint
}

// Result is the solver answer.
type Result struct {
	Objective float64
	Primal    []float64
	// Duals holds one multiplier per row, with the usual sign convention
	// for the problem's sense.
	Duals []float64
}

// Solver is the LP capability: add columns by rebuilding the problem, solve,
// read primal and duals.
type Solver interface {
	Solve(problem *Problem) (*Result, error)
}

// NewSolver returns the backend registered under the given name. The empty
// name selects the default backend.
func NewSolver(backend string) (Solver, error) {
	switch backend {
	case "", "gonum", "simplex":
		return &simplexSolver{}, nil
	}
	return nil, fmt.Errorf("%w: no LP backend named %q", packing.ErrUnavailableSolver, backend)
}
