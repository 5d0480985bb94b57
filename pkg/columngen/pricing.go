package columngen

import (
	"fmt"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// PricingFunc solves a single-bin knapsack subproblem and returns its
// solution pool.
type PricingFunc[I packing.Instance, S packing.Solution[S]] func(instance I) (*packing.SolutionPool[S], error)

// solvePricing asks, for each bin type with copies left, whether a pattern
// with improving reduced cost exists. Each question is a knapsack problem
// over the remaining demand with the duals as profits.
func solvePricing[I packing.Instance, B packing.InstanceBuilder[I], S packing.Solution[S]](
	m *model[I, S],
	newBuilder func() B,
	newSolution func(I) S,
	pricing PricingFunc[I, S],
	master *masterResult,
	fixedBinTypes []int,
	filledDemands []int,
) ([]*Column[S], error) {
	instance := m.instance
	var columns []*Column[S]

	for binTypeID := 0; binTypeID < instance.NumberOfBinTypes(); binTypeID++ {
		if fixedBinTypes[binTypeID] >= instance.BinTypeCopies(binTypeID) {
			continue
		}

		builder := newBuilder()
		builder.SetObjective(packing.ObjectiveKnapsack)
		builder.CopyParametersFrom(instance)
		builder.AddBinTypeFrom(instance, binTypeID, 1)
		var kpToOrig []int
		for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
			copies := instance.ItemTypeCopies(itemTypeID) - filledDemands[itemTypeID]
			if copies <= 0 {
				continue
			}
			var profit packing.Profit
			if m.minimize {
				profit = master.itemDuals[itemTypeID]
			} else {
				profit = instance.ItemTypeProfit(itemTypeID) - master.itemDuals[itemTypeID]
			}
			if profit <= 0 {
				continue
			}
			builder.AddItemTypeFrom(instance, itemTypeID, profit, copies)
			kpToOrig = append(kpToOrig, itemTypeID)
		}
		if len(kpToOrig) == 0 {
			continue
		}
		kpInstance, err := builder.Build()
		if err != nil {
			return nil, fmt.Errorf("column generation: pricing: %w", err)
		}

		kpPool, err := pricing(kpInstance)
		if err != nil {
			return nil, err
		}

		for _, kpSolution := range kpPool.Solutions() {
			if kpSolution.NumberOfDifferentBins() == 0 || kpSolution.NumberOfItems() == 0 {
				continue
			}
			extra := newSolution(instance)
			if err := extra.Append(kpSolution, 0, 1, []int{binTypeID}, kpToOrig); err != nil {
				return nil, err
			}
			column := &Column[S]{
				BinTypeID:  binTypeID,
				ItemCopies: map[int]int{},
				Extra:      extra,
			}
			if m.minimize {
				column.ObjectiveCoefficient = extra.Cost()
			} else {
				column.ObjectiveCoefficient = extra.Profit()
			}
			for _, itemTypeID := range kpToOrig {
				if copies := extra.ItemCopies(itemTypeID); copies > 0 {
					column.ItemCopies[itemTypeID] = copies
				}
			}
			columns = append(columns, column)
		}
	}
	return columns, nil
}
