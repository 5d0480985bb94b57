package columngen

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/DrSkyle/packbeam/pkg/lp"
	"github.com/DrSkyle/packbeam/pkg/packing"
)

// Parameters controls a column generation + limited discrepancy search run.
type Parameters struct {
	Timer *packing.Timer

	// SolverBackend names the LP collaborator; empty selects the default.
	SolverBackend string

	// MaximumDiscrepancy bounds the branching deviations from the
	// LP-preferred column. Default 3.
	MaximumDiscrepancy int

	// DummyColumnObjectiveCoefficient prices the artificial columns that
	// keep the restricted master feasible. Must exceed any real pattern
	// cost.
	DummyColumnObjectiveCoefficient float64

	// AutomaticStop ends the run once the incumbent matches the root
	// relaxation bound.
	AutomaticStop bool
}

// Output is the result of a run.
type Output[S any] struct {
	Pool *packing.SolutionPool[S]

	// Bound is the root relaxation bound: a cost lower bound for the min
	// senses, a profit upper bound for knapsack. NaN until the root
	// pricing converges.
	Bound float64

	NumberOfNodes    int
	NumberOfColumns  int
	NumberOfPricings int
}

// node is one limited-discrepancy-search state: a multiset of fixed
// patterns plus the number of deviations taken from the LP preference.
type node[S any] struct {
	fixed       []fixedColumn[S]
	discrepancy int
	depth       int
}

type fixedColumn[S any] struct {
	column *Column[S]
	value  int
}

type nodeHeap[S any] []*node[S]

func (h nodeHeap[S]) Len() int { return len(h) }
func (h nodeHeap[S]) Less(i, j int) bool {
	if h[i].discrepancy != h[j].discrepancy {
		return h[i].discrepancy < h[j].discrepancy
	}
	return h[i].depth > h[j].depth
}
func (h nodeHeap[S]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap[S]) Push(x any)        { *h = append(*h, x.(*node[S])) }
func (h *nodeHeap[S]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// LimitedDiscrepancySearch runs the LP→pricing loop at every search node
// until reduced costs are non-negative, then recovers integrality by
// branching on the master's preferred patterns, accepting up to
// MaximumDiscrepancy deviations. Incumbent integer solutions and the root
// bound are reported through the callbacks.
func LimitedDiscrepancySearch[I packing.Instance, B packing.InstanceBuilder[I], S packing.Solution[S]](
	instance I,
	newBuilder func() B,
	newSolution func(I) S,
	better func(a, b S) bool,
	pricing PricingFunc[I, S],
	onSolution func(solution S, tag string),
	onBound func(bound float64),
	params Parameters,
) (*Output[S], error) {
	output := &Output[S]{
		Pool:  packing.NewSolutionPool[S](1, better),
		Bound: math.NaN(),
	}
	if instance.NumberOfItemTypes() == 0 {
		return output, nil
	}

	solver, err := lp.NewSolver(params.SolverBackend)
	if err != nil {
		return output, err
	}
	dummyCost := params.DummyColumnObjectiveCoefficient
	if dummyCost <= 0 {
		dummyCost = 1
		for binTypeID := 0; binTypeID < instance.NumberOfBinTypes(); binTypeID++ {
			if c := 2 * instance.BinTypeCost(binTypeID) * float64(maxItemCopies(instance)); c > dummyCost {
				dummyCost = c
			}
		}
	}
	m, err := newModel[I, S](instance, solver, dummyCost)
	if err != nil {
		return output, err
	}
	maximumDiscrepancy := params.MaximumDiscrepancy
	if maximumDiscrepancy <= 0 {
		maximumDiscrepancy = 3
	}

	const tol = 1e-6
	queue := &nodeHeap[S]{}
	heap.Push(queue, &node[S]{})

	for queue.Len() > 0 {
		if params.Timer != nil && params.Timer.NeedsToEnd() {
			break
		}
		current := heap.Pop(queue).(*node[S])
		output.NumberOfNodes++

		fixedBinTypes := make([]int, instance.NumberOfBinTypes())
		filledDemands := make([]int, instance.NumberOfItemTypes())
		fixedCost := 0.0
		for _, fixed := range current.fixed {
			fixedBinTypes[fixed.column.BinTypeID] += fixed.value
			for itemTypeID, copies := range fixed.column.ItemCopies {
				filledDemands[itemTypeID] += fixed.value * copies
			}
			fixedCost += float64(fixed.value) * fixed.column.ObjectiveCoefficient
		}

		// With the knapsack sense every fixed multiset is already a
		// feasible (partial) packing worth reporting.
		if !m.minimize && len(current.fixed) > 0 {
			solution, err := assemble(instance, newSolution, current.fixed)
			if err != nil {
				return output, err
			}
			if output.Pool.Add(solution) && onSolution != nil {
				onSolution(solution, fmt.Sprintf("CG n %d", output.NumberOfNodes))
			}
		}

		// An all-demands-filled node is an integer solution.
		if demandsFilled(instance, filledDemands) {
			solution, err := assemble(instance, newSolution, current.fixed)
			if err != nil {
				return output, err
			}
			if output.Pool.Add(solution) && onSolution != nil {
				onSolution(solution, fmt.Sprintf("CG n %d", output.NumberOfNodes))
			}
			if params.AutomaticStop && !math.IsNaN(output.Bound) && m.minimize &&
				solution.Cost() <= output.Bound+tol {
				break
			}
			continue
		}

		// Column generation at this node: solve the restricted master,
		// price, repeat until no improving column.
		var master *masterResult
		for {
			master, err = m.solveMaster(fixedBinTypes, filledDemands)
			if err != nil {
				return output, fmt.Errorf("column generation: master: %w", err)
			}
			if params.Timer != nil && params.Timer.NeedsToEnd() {
				break
			}
			candidates, err := solvePricing(m, newBuilder, newSolution, pricing, master, fixedBinTypes, filledDemands)
			if err != nil {
				return output, err
			}
			output.NumberOfPricings++
			improving := 0
			for _, column := range candidates {
				if m.reducedCost(column, master) < -tol {
					m.columns = append(m.columns, column)
					improving++
				}
			}
			output.NumberOfColumns = len(m.columns)
			if improving == 0 {
				break
			}
		}
		if master == nil {
			continue
		}

		if current.depth == 0 && math.IsNaN(output.Bound) {
			output.Bound = m.relaxationBound(master.objective, fixedCost)
			if onBound != nil && !math.IsNaN(output.Bound) {
				onBound(output.Bound)
			}
		}

		// Prune against the incumbent.
		if best, ok := output.Pool.Best(); ok && best.Full() && m.minimize {
			if master.objective+fixedCost >= best.Cost()-tol {
				continue
			}
		}

		// Branch: fix the master's preferred patterns; skipping the k-th
		// preference costs k discrepancies.
		type candidate struct {
			column *Column[S]
			value  float64
		}
		var candidates []candidate
		for i, value := range master.values {
			if value > tol {
				candidates = append(candidates, candidate{m.columns[i], value})
			}
		}
		for i := 1; i < len(candidates); i++ {
			for j := i; j > 0 && candidates[j].value > candidates[j-1].value; j-- {
				candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
			}
		}
		for k, cand := range candidates {
			discrepancy := current.discrepancy + k
			if discrepancy > maximumDiscrepancy {
				break
			}
			value := fixValue(instance, cand.column, cand.value, fixedBinTypes, filledDemands)
			if value == 0 {
				continue
			}
			child := &node[S]{
				fixed:       append(append([]fixedColumn[S]{}, current.fixed...), fixedColumn[S]{cand.column, value}),
				discrepancy: discrepancy,
				depth:       current.depth + 1,
			}
			heap.Push(queue, child)
		}
	}
	return output, nil
}

// fixValue caps the rounded master value by the remaining demand and the
// bin copies left.
func fixValue[I packing.Instance, S packing.Solution[S]](
	instance I,
	column *Column[S],
	value float64,
	fixedBinTypes []int,
	filledDemands []int,
) int {
	fixed := int(math.Floor(value + 0.5))
	if fixed < 1 {
		fixed = 1
	}
	if left := instance.BinTypeCopies(column.BinTypeID) - fixedBinTypes[column.BinTypeID]; fixed > left {
		fixed = left
	}
	for itemTypeID, copies := range column.ItemCopies {
		remaining := instance.ItemTypeCopies(itemTypeID) - filledDemands[itemTypeID]
		if copies > 0 {
			if c := remaining / copies; c < fixed {
				fixed = c
			}
		}
	}
	if fixed < 0 {
		fixed = 0
	}
	return fixed
}

func demandsFilled(instance packing.Instance, filledDemands []int) bool {
	if instance.Objective() == packing.ObjectiveKnapsack {
		return false
	}
	for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
		if filledDemands[itemTypeID] < instance.ItemTypeCopies(itemTypeID) {
			return false
		}
	}
	return true
}

func assemble[I packing.Instance, S packing.Solution[S]](
	instance I,
	newSolution func(I) S,
	fixed []fixedColumn[S],
) (S, error) {
	solution := newSolution(instance)
	for _, f := range fixed {
		if err := solution.Append(f.column.Extra, 0, f.value, nil, nil); err != nil {
			return solution, err
		}
	}
	return solution, nil
}

func maxItemCopies(instance packing.Instance) int {
	maximum := 1
	for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
		if c := instance.ItemTypeCopies(itemTypeID); c > maximum {
			maximum = c
		}
	}
	return maximum
}
