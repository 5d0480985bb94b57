package lp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// simplexSolver solves the program with gonum's dense simplex.
//
// The simplex returns no basis information, so the duals are obtained by
// building and solving the explicit dual program with the same backend.
type simplexSolver struct{}

const simplexTol = 1e-9

func (s *simplexSolver) Solve(problem *Problem) (*Result, error) {
	if len(problem.Objective) == 0 {
		return &Result{Duals: make([]float64, len(problem.Rows))}, nil
	}

	// Canonicalize to a minimization.
	objective := make([]float64, len(problem.Objective))
	copy(objective, problem.Objective)
	sign := 1.0
	if problem.Sense == Maximize {
		sign = -1.0
		for i := range objective {
			objective[i] = -objective[i]
		}
	}

	value, primal, err := solveStandardForm(objective, problem.Rows)
	if err != nil {
		return nil, fmt.Errorf("lp: primal solve: %w", err)
	}

	duals, err := solveDual(objective, problem.Rows)
	if err != nil {
		return nil, fmt.Errorf("lp: dual solve: %w", err)
	}
	if sign < 0 {
		for i := range duals {
			duals[i] = -duals[i]
		}
	}

	return &Result{
		Objective: sign * value,
		Primal:    primal,
		Duals:     duals,
	}, nil
}

// solveStandardForm converts rows to Ax = b with slack and surplus variables
// and runs the simplex. Returns the objective value and the primal values of
// the original variables.
func solveStandardForm(objective []float64, rows []Constraint) (float64, []float64, error) {
	n := len(objective)
	extra := 0
	for _, row := range rows {
		if row.Kind != Equal {
			extra++
		}
	}
	columns := n + extra
	a := mat.NewDense(max(len(rows), 1), columns, nil)
	b := make([]float64, len(rows))
	c := make([]float64, columns)
	copy(c, objective)

	slack := n
	for r, row := range rows {
		for _, term := range row.Terms {
			a.Set(r, term.Column, term.Coefficient)
		}
		b[r] = row.RHS
		switch row.Kind {
		case LessOrEqual:
			a.Set(r, slack, 1)
			slack++
		case GreaterOrEqual:
			a.Set(r, slack, -1)
			slack++
		}
	}
	if len(rows) == 0 {
		return 0, make([]float64, n), nil
	}

	value, x, err := lp.Simplex(c, a, b, simplexTol, nil)
	if err != nil {
		return 0, nil, err
	}
	return value, x[:n], nil
}

// solveDual builds the explicit dual of min cᵀx, rows, x ≥ 0 and solves it.
// Row multipliers come back with the standard sign convention: ≥ rows have
// non-negative duals, ≤ rows non-positive, = rows free.
func solveDual(objective []float64, rows []Constraint) ([]float64, error) {
	m := len(rows)
	n := len(objective)
	if m == 0 {
		return nil, nil
	}

	// One non-negative variable per ≥ and ≤ row, a split pair per = row.
	type dualVar struct {
		row  int
		sign float64
	}
	var vars []dualVar
	for r, row := range rows {
		switch row.Kind {
		case GreaterOrEqual:
			vars = append(vars, dualVar{r, 1})
		case LessOrEqual:
			vars = append(vars, dualVar{r, -1})
		case Equal:
			vars = append(vars, dualVar{r, 1}, dualVar{r, -1})
		}
	}

	// max Σ b_r y_r  ⇒  min −Σ b_r y_r, with AᵀY + t = c, t ≥ 0.
	columns := len(vars) + n
	c := make([]float64, columns)
	for i, v := range vars {
		c[i] = -rows[v.row].RHS * v.sign
	}
	a := mat.NewDense(n, columns, nil)
	b := make([]float64, n)
	for j := 0; j < n; j++ {
		b[j] = objective[j]
	}
	for i, v := range vars {
		for _, term := range rows[v.row].Terms {
			a.Set(term.Column, i, a.At(term.Column, i)+term.Coefficient*v.sign)
		}
	}
	for j := 0; j < n; j++ {
		a.Set(j, len(vars)+j, 1)
	}

	_, y, err := lp.Simplex(c, a, b, simplexTol, nil)
	if err != nil {
		return nil, err
	}
	duals := make([]float64, m)
	for i, v := range vars {
		duals[v.row] += v.sign * y[i]
	}
	return duals, nil
}
