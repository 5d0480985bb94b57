package algorithms

import (
	"fmt"
	"math"
	"sort"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// DichotomicSearchParameters controls a dichotomic search run.
type DichotomicSearchParameters struct {
	Timer *packing.Timer

	// InitialWastePercentage seeds the first estimate. Default 0.1.
	InitialWastePercentage float64

	// InitialWastePercentageUpperBound restarts from the bound a previous
	// pass established. Default +Inf.
	InitialWastePercentageUpperBound float64
}

// DichotomicSearchOutput is the result of a dichotomic search run.
type DichotomicSearchOutput[S any] struct {
	Pool *packing.SolutionPool[S]

	WastePercentageLowerBound float64
	WastePercentage           float64
	WastePercentageUpperBound float64

	// NumberOfSubproblems counts actual bin-packing solves, after the
	// memoisation on the bin multiset.
	NumberOfSubproblems int
}

// DichotomicSearch estimates a waste percentage w, selects a multiset of
// bins whose aggregate space covers item-space·(1+w) plus the mandatory
// bins — the selection is a 0/1 knapsack over bin copies — and feeds the
// multiset to a bin-packing subproblem. If all items fit, the upper bound
// drops to w; otherwise the lower bound rises. Bisect until the bounds
// close. Outcomes are memoised by the exact bin multiset so the same
// subproblem is never solved twice.
//
// Variable-sized bin packing only: it works well with many bin types or
// bins holding many items, where column generation struggles.
func DichotomicSearch[I packing.Instance, B packing.InstanceBuilder[I], S packing.Solution[S]](
	instance I,
	newBuilder func() B,
	newSolution func(I) S,
	better func(a, b S) bool,
	solve SubproblemSolver[I, S],
	onImprove func(solution S, tag string),
	params DichotomicSearchParameters,
) (*DichotomicSearchOutput[S], error) {
	output := &DichotomicSearchOutput[S]{
		Pool:                      packing.NewSolutionPool[S](1, better),
		WastePercentageUpperBound: math.Inf(1),
	}
	if instance.NumberOfItemTypes() == 0 {
		return output, nil
	}
	initialWaste := params.InitialWastePercentage
	if initialWaste <= 0 {
		initialWaste = 0.1
	}
	if params.InitialWastePercentageUpperBound > 0 {
		output.WastePercentageUpperBound = params.InitialWastePercentageUpperBound
	}

	itemSpace := 0.0
	for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
		itemSpace += float64(instance.ItemTypeCopies(itemTypeID)) * instance.ItemTypeSpace(itemTypeID)
	}
	binMinSpace, binSpace := 0.0, 0.0
	for binTypeID := 0; binTypeID < instance.NumberOfBinTypes(); binTypeID++ {
		binMinSpace += float64(instance.BinTypeCopiesMin(binTypeID)) * instance.BinTypeSpace(binTypeID)
		binSpace += float64(instance.BinTypeCopies(binTypeID)) * instance.BinTypeSpace(binTypeID)
	}
	sortedBinTypes := make([]int, instance.NumberOfBinTypes())
	for i := range sortedBinTypes {
		sortedBinTypes[i] = i
	}
	sort.Slice(sortedBinTypes, func(i, j int) bool {
		return instance.BinTypeSpace(sortedBinTypes[i]) < instance.BinTypeSpace(sortedBinTypes[j])
	})

	memory := map[string]bool{}
	for output.WastePercentageUpperBound-output.WastePercentageLowerBound > 1e-5 {
		if math.IsInf(output.WastePercentageUpperBound, 1) {
			if output.WastePercentageLowerBound == 0 {
				output.WastePercentage = initialWaste
			} else {
				output.WastePercentage = output.WastePercentageLowerBound * 2
			}
		} else {
			output.WastePercentage = (output.WastePercentageLowerBound + output.WastePercentageUpperBound) / 2
		}

		if params.Timer != nil && params.Timer.NeedsToEnd() {
			break
		}

		// Deselect the excess bins: a 0/1 knapsack over bin copies keeps
		// out the costliest bins that the waste estimate says we do not
		// need. The capacity is the space we can afford to leave unused.
		capacity := binSpace - binMinSpace - itemSpace*(1+output.WastePercentage)
		if capacity < 0 {
			capacity = 0
		}
		var kpItems []knapsackItem
		var kpToBinType []int
		for binTypeID := 0; binTypeID < instance.NumberOfBinTypes(); binTypeID++ {
			space := instance.BinTypeSpace(binTypeID)
			if space > capacity {
				continue
			}
			for pos := 0; pos < instance.BinTypeCopies(binTypeID); pos++ {
				kpItems = append(kpItems, knapsackItem{
					weight: int64(space),
					profit: instance.BinTypeCost(binTypeID),
				})
				kpToBinType = append(kpToBinType, binTypeID)
			}
		}
		excluded := solveKnapsack(kpItems, int64(capacity))

		binCopies := make([]int, instance.NumberOfBinTypes())
		for binTypeID := range binCopies {
			binCopies[binTypeID] = instance.BinTypeCopiesMin(binTypeID)
		}
		isExcluded := make([]bool, len(kpItems))
		for _, kpItemID := range excluded {
			isExcluded[kpItemID] = true
		}
		for kpItemID := range kpItems {
			if !isExcluded[kpItemID] {
				binCopies[kpToBinType[kpItemID]]++
			}
		}

		key := fmt.Sprint(binCopies)
		if _, seen := memory[key]; !seen {
			// Build the bin-packing subproblem: all items, selected bins
			// first (smallest first), the leftover bins after so the
			// subproblem is never infeasible by construction.
			builder := newBuilder()
			builder.SetObjective(packing.ObjectiveBinPacking)
			builder.CopyParametersFrom(instance)
			for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
				builder.AddItemTypeFrom(instance, itemTypeID,
					instance.ItemTypeProfit(itemTypeID),
					instance.ItemTypeCopies(itemTypeID))
			}
			var binTypesToOrig []int
			numberOfBins := 0
			for _, binTypeID := range sortedBinTypes {
				if binCopies[binTypeID] > 0 {
					builder.AddBinTypeFrom(instance, binTypeID, binCopies[binTypeID])
					binTypesToOrig = append(binTypesToOrig, binTypeID)
					numberOfBins += binCopies[binTypeID]
				}
			}
			for _, binTypeID := range sortedBinTypes {
				if extra := instance.BinTypeCopies(binTypeID) - binCopies[binTypeID]; extra > 0 {
					builder.AddBinTypeFrom(instance, binTypeID, extra)
					binTypesToOrig = append(binTypesToOrig, binTypeID)
				}
			}
			bppInstance, err := builder.Build()
			if err != nil {
				return output, fmt.Errorf("dichotomic search: subproblem: %w", err)
			}

			bppPool, err := solve(bppInstance)
			if err != nil {
				return output, err
			}
			output.NumberOfSubproblems++

			solved := false
			if bppBest, ok := bppPool.Best(); ok {
				solution := newSolution(instance)
				if err := packing.AppendAll(solution, bppBest, binTypesToOrig, nil); err != nil {
					return output, err
				}
				if output.Pool.Add(solution) && onImprove != nil {
					onImprove(solution, fmt.Sprintf("waste percentage %.4f", output.WastePercentage))
				}
				solved = bppBest.NumberOfItems() == instance.NumberOfItems() &&
					bppBest.NumberOfBins() <= numberOfBins
			}
			memory[key] = solved
		}

		if memory[key] {
			output.WastePercentageUpperBound = output.WastePercentage
		} else {
			output.WastePercentageLowerBound = output.WastePercentage
			if len(excluded) == 0 {
				// Every bin is already selected; raising the estimate
				// cannot change the multiset.
				break
			}
		}
	}
	return output, nil
}
