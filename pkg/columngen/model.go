// Package columngen implements the Dantzig–Wolfe column-generation
// meta-algorithm with limited discrepancy search for integrality recovery.
//
// The master linear relaxation has one covering row per item type (demand)
// and one bound row per bin type (copies-min ≤ used ≤ copies-max). Variables
// are patterns: one per feasible single-bin placement. The master is solved
// by the LP collaborator; the pricing subproblem — does a single-bin pattern
// with negative reduced cost exist? — is a knapsack problem dispatched to
// the variant's own optimizer with a bounded tree-search queue.
package columngen

import (
	"fmt"

	"github.com/DrSkyle/packbeam/pkg/lp"
	"github.com/DrSkyle/packbeam/pkg/packing"
)

// Column is one pattern: a feasible single-bin placement of the parent
// instance, together with its master-row coefficients.
type Column[S any] struct {
	// ObjectiveCoefficient is the bin cost (min senses) or the pattern
	// profit (knapsack).
	ObjectiveCoefficient float64

	// BinTypeID is the bin row the pattern occupies.
	BinTypeID int

	// ItemCopies maps item type id to copies packed by the pattern.
	ItemCopies map[int]int

	// Extra is the pattern as a parent-space single-bin solution; the glue
	// used to translate master solutions back.
	Extra S
}

// model holds the master program shape for one instance.
type model[I packing.Instance, S packing.Solution[S]] struct {
	instance I
	minimize bool
	solver   lp.Solver

	// columns is the global pattern pool, shared by every search node.
	columns []*Column[S]

	dummyCost float64
}

func newModel[I packing.Instance, S packing.Solution[S]](
	instance I,
	solver lp.Solver,
	dummyCost float64,
) (*model[I, S], error) {
	switch instance.Objective() {
	case packing.ObjectiveVariableSizedBinPacking, packing.ObjectiveBinPacking:
		return &model[I, S]{instance: instance, minimize: true, solver: solver, dummyCost: dummyCost}, nil
	case packing.ObjectiveKnapsack:
		return &model[I, S]{instance: instance, minimize: false, solver: solver, dummyCost: dummyCost}, nil
	}
	return nil, fmt.Errorf("%w: column generation does not cover %s",
		packing.ErrUnsupportedObjective, instance.Objective())
}

// masterResult is the restricted master solution for one search node.
type masterResult struct {
	objective float64
	// values[i] is the primal value of model.columns[i].
	values []float64
	// binDuals[i] is the combined dual of bin type i's bound rows.
	binDuals []float64
	// itemDuals[j] is the dual of item type j's covering row.
	itemDuals []float64
}

// solveMaster solves the restricted master over the current column pool,
// with the right-hand sides reduced by the columns fixed at this node.
func (m *model[I, S]) solveMaster(fixedBinTypes []int, filledDemands []int) (*masterResult, error) {
	instance := m.instance
	nBinTypes := instance.NumberOfBinTypes()
	nItemTypes := instance.NumberOfItemTypes()

	// Row layout: [0, nBinTypes) bin upper bounds, [nBinTypes,
	// nBinTypes+nItemTypes) item demand rows, then bin lower bounds for
	// types with copies-min left.
	type geRow struct {
		binTypeID int
		rhs       float64
	}
	var geRows []geRow
	for binTypeID := 0; binTypeID < nBinTypes; binTypeID++ {
		if rhs := instance.BinTypeCopiesMin(binTypeID) - fixedBinTypes[binTypeID]; rhs > 0 {
			geRows = append(geRows, geRow{binTypeID, float64(rhs)})
		}
	}

	nRows := nBinTypes + nItemTypes + len(geRows)
	rows := make([]lp.Constraint, nRows)
	for binTypeID := 0; binTypeID < nBinTypes; binTypeID++ {
		rhs := float64(instance.BinTypeCopies(binTypeID) - fixedBinTypes[binTypeID])
		if rhs < 0 {
			rhs = 0
		}
		rows[binTypeID] = lp.Constraint{Kind: lp.LessOrEqual, RHS: rhs}
	}
	for itemTypeID := 0; itemTypeID < nItemTypes; itemTypeID++ {
		remaining := float64(instance.ItemTypeCopies(itemTypeID) - filledDemands[itemTypeID])
		if remaining < 0 {
			remaining = 0
		}
		kind := lp.GreaterOrEqual
		if !m.minimize {
			// Knapsack: patterns may not exceed the demand.
			kind = lp.LessOrEqual
		}
		rows[nBinTypes+itemTypeID] = lp.Constraint{Kind: kind, RHS: remaining}
	}
	for i, row := range geRows {
		rows[nBinTypes+nItemTypes+i] = lp.Constraint{Kind: lp.GreaterOrEqual, RHS: row.rhs}
	}

	// Variables: one per pooled column, then one dummy per ≥ row so the
	// restricted master always has a feasible point.
	var objective []float64
	addTerm := func(rowIndex, column int, coefficient float64) {
		rows[rowIndex].Terms = append(rows[rowIndex].Terms, lp.Term{Column: column, Coefficient: coefficient})
	}
	for i, column := range m.columns {
		objective = append(objective, column.ObjectiveCoefficient)
		addTerm(column.BinTypeID, i, 1)
		// Deterministic term order keeps identical runs on identical
		// simplex paths.
		for itemTypeID := 0; itemTypeID < nItemTypes; itemTypeID++ {
			if copies, ok := column.ItemCopies[itemTypeID]; ok {
				addTerm(nBinTypes+itemTypeID, i, float64(copies))
			}
		}
		for g, row := range geRows {
			if row.binTypeID == column.BinTypeID {
				addTerm(nBinTypes+nItemTypes+g, i, 1)
			}
		}
	}
	nColumns := len(objective)
	for r, row := range rows {
		if row.Kind != lp.GreaterOrEqual || row.RHS <= 0 {
			continue
		}
		cost := m.dummyCost
		if !m.minimize {
			cost = -m.dummyCost
		}
		objective = append(objective, cost)
		addTerm(r, len(objective)-1, 1)
	}

	sense := lp.Minimize
	if !m.minimize {
		sense = lp.Maximize
	}
	result, err := m.solver.Solve(&lp.Problem{Sense: sense, Objective: objective, Rows: rows})
	if err != nil {
		return nil, err
	}

	master := &masterResult{
		objective: result.Objective,
		values:    make([]float64, len(m.columns)),
		binDuals:  make([]float64, nBinTypes),
		itemDuals: make([]float64, nItemTypes),
	}
	copy(master.values, result.Primal[:min(nColumns, len(result.Primal))])
	for binTypeID := 0; binTypeID < nBinTypes; binTypeID++ {
		master.binDuals[binTypeID] = result.Duals[binTypeID]
	}
	for itemTypeID := 0; itemTypeID < nItemTypes; itemTypeID++ {
		master.itemDuals[itemTypeID] = result.Duals[nBinTypes+itemTypeID]
	}
	for g, row := range geRows {
		master.binDuals[row.binTypeID] += result.Duals[nBinTypes+nItemTypes+g]
	}
	return master, nil
}

// reducedCost of a column under the current duals.
func (m *model[I, S]) reducedCost(column *Column[S], master *masterResult) float64 {
	rc := column.ObjectiveCoefficient - master.binDuals[column.BinTypeID]
	for itemTypeID, copies := range column.ItemCopies {
		rc -= float64(copies) * master.itemDuals[itemTypeID]
	}
	if m.minimize {
		return rc
	}
	return -rc
}

// relaxationBound converts a master objective into a bound usable by the
// formatter: a cost lower bound for min senses, a profit upper bound for
// knapsack. Only meaningful when pricing found no improving column.
func (m *model[I, S]) relaxationBound(objective float64, fixedCost float64) float64 {
	if m.minimize {
		return objective + fixedCost
	}
	return objective + fixedCost
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
