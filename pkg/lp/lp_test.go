package lp

import (
	"errors"
	"testing"

	"github.com/DrSkyle/packbeam/pkg/packing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSolverUnknownBackend(t *testing.T) {
	_, err := NewSolver("cplex")
	assert.True(t, errors.Is(err, packing.ErrUnavailableSolver))
}

func TestSimplexCoveringProblem(t *testing.T) {
	// Cutting-stock toy: two patterns covering one item row of demand 10.
	// Pattern 0 packs 2 copies at cost 3, pattern 1 packs 5 copies at
	// cost 6. Optimum: 2 of pattern 1, objective 12.
	solver, err := NewSolver("")
	require.NoError(t, err)

	result, err := solver.Solve(&Problem{
		Sense:     Minimize,
		Objective: []float64{3, 6},
		Rows: []Constraint{
			{
				Kind: GreaterOrEqual,
				RHS:  10,
				Terms: []Term{
					{Column: 0, Coefficient: 2},
					{Column: 1, Coefficient: 5},
				},
			},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 12.0, result.Objective, 1e-6)
	assert.InDelta(t, 0.0, result.Primal[0], 1e-6)
	assert.InDelta(t, 2.0, result.Primal[1], 1e-6)

	// The demand row's dual is the marginal cost of one more unit: the
	// best cost per covered copy, 6/5.
	require.Len(t, result.Duals, 1)
	assert.InDelta(t, 1.2, result.Duals[0], 1e-6)
}

func TestSimplexWithUpperBoundRows(t *testing.T) {
	// min 2x + 3y, x + y >= 4, x <= 1  →  x = 1, y = 3, objective 11.
	solver, err := NewSolver("gonum")
	require.NoError(t, err)

	result, err := solver.Solve(&Problem{
		Sense:     Minimize,
		Objective: []float64{2, 3},
		Rows: []Constraint{
			{Kind: GreaterOrEqual, RHS: 4, Terms: []Term{{0, 1}, {1, 1}}},
			{Kind: LessOrEqual, RHS: 1, Terms: []Term{{0, 1}}},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 11.0, result.Objective, 1e-6)
	assert.InDelta(t, 1.0, result.Primal[0], 1e-6)
	assert.InDelta(t, 3.0, result.Primal[1], 1e-6)

	// Covering dual at 3, capacity row dual at −1 (relaxing x ≤ 1 by one
	// unit saves one unit of cost).
	assert.InDelta(t, 3.0, result.Duals[0], 1e-6)
	assert.InDelta(t, -1.0, result.Duals[1], 1e-6)
}

func TestSimplexMaximize(t *testing.T) {
	// max x + 2y, x + y <= 3, y <= 2  →  x = 1, y = 2, objective 5.
	solver, err := NewSolver("simplex")
	require.NoError(t, err)

	result, err := solver.Solve(&Problem{
		Sense:     Maximize,
		Objective: []float64{1, 2},
		Rows: []Constraint{
			{Kind: LessOrEqual, RHS: 3, Terms: []Term{{0, 1}, {1, 1}}},
			{Kind: LessOrEqual, RHS: 2, Terms: []Term{{1, 1}}},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, result.Objective, 1e-6)
	assert.InDelta(t, 1.0, result.Primal[0], 1e-6)
	assert.InDelta(t, 2.0, result.Primal[1], 1e-6)
}
