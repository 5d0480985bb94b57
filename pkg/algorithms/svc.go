package algorithms

import (
	"fmt"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// SubproblemSolver solves one subproblem instance and returns its solution
// pool. The meta-heuristics are wired to the variant's Optimize with a
// bounded tree-search queue.
type SubproblemSolver[I packing.Instance, S packing.Solution[S]] func(instance I) (*packing.SolutionPool[S], error)

// SVCParameters controls a sequential value correction run.
type SVCParameters struct {
	Timer *packing.Timer

	// MaximumNumberOfIterations stops the loop; 0 means no cap.
	MaximumNumberOfIterations int

	// BinPackingGoal: with a bin-packing objective, stop as soon as a
	// solution using at most this many bins is found; values below 2 are
	// raised to 2. If all items fit in
	// the first bin but the first solution uses more, later iterations
	// are very unlikely to do better.
	BinPackingGoal int
}

// SVCOutput is the result of a sequential value correction run.
type SVCOutput[S any] struct {
	Pool                *packing.SolutionPool[S]
	NumberOfIterations  int
	AllPatterns         []S
}

// SequentialValueCorrection maintains an adjusted profit per item type,
// initialised to the original profit (knapsack) or the space footprint
// (packing objectives). Each iteration greedily covers the demand with
// single-bin knapsack subproblems, then raises the adjusted profit of items
// that landed in lossy patterns so they pack earlier next time.
//
// For variable-sized bin packing, per-bin-type patterns from the previous
// round are reused while still feasible to avoid redundant subproblem calls.
func SequentialValueCorrection[I packing.Instance, B packing.InstanceBuilder[I], S packing.Solution[S]](
	instance I,
	newBuilder func() B,
	newSolution func(I) S,
	better func(a, b S) bool,
	solve SubproblemSolver[I, S],
	onImprove func(solution S, tag string),
	params SVCParameters,
) (*SVCOutput[S], error) {
	output := &SVCOutput[S]{Pool: packing.NewSolutionPool[S](1, better)}
	if instance.NumberOfItemTypes() == 0 {
		return output, nil
	}
	binPackingGoal := params.BinPackingGoal
	if binPackingGoal < 2 {
		binPackingGoal = 2
	}

	// Initialize adjusted profits.
	profits := make([]float64, instance.NumberOfItemTypes())
	for itemTypeID := range profits {
		if instance.Objective() == packing.ObjectiveKnapsack {
			profits[itemTypeID] = instance.ItemTypeProfit(itemTypeID)
		} else {
			profits[itemTypeID] = instance.ItemTypeSpace(itemTypeID)
		}
	}
	largestBinSpace := packing.LargestBinSpace(instance)

	for ; ; output.NumberOfIterations++ {
		if params.MaximumNumberOfIterations > 0 &&
			output.NumberOfIterations == params.MaximumNumberOfIterations {
			return output, nil
		}

		solution := newSolution(instance)
		adjustedSpace := make([]float64, instance.NumberOfItemTypes())

		// Patterns found for each bin type during this iteration; reused
		// while their demand is still available.
		type pattern struct {
			solution S
			profit   packing.Profit
			valid    bool
		}
		patterns := make([]pattern, instance.NumberOfBinTypes())

		for {
			if params.Timer != nil && params.Timer.NeedsToEnd() {
				return output, nil
			}
			if solution.NumberOfItems() == instance.NumberOfItems() {
				break
			}
			if solution.NumberOfBins() == instance.NumberOfBins() {
				break
			}

			var kpToOrig []int
			for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
				if instance.ItemTypeCopies(itemTypeID)-solution.ItemCopies(itemTypeID) > 0 {
					kpToOrig = append(kpToOrig, itemTypeID)
				}
			}

			// Bin types to try: with a VBPP objective, mandatory bins
			// first, then every type with copies left; otherwise the
			// next bin of the flattened sequence.
			var binTypeIDs []int
			if instance.Objective() == packing.ObjectiveVariableSizedBinPacking {
				smallestMandatory := -1
				for binTypeID := 0; binTypeID < instance.NumberOfBinTypes(); binTypeID++ {
					if solution.BinCopies(binTypeID) >= instance.BinTypeCopiesMin(binTypeID) {
						continue
					}
					if smallestMandatory == -1 ||
						instance.BinTypeSpace(binTypeID) < instance.BinTypeSpace(smallestMandatory) {
						smallestMandatory = binTypeID
					}
				}
				if smallestMandatory != -1 {
					binTypeIDs = append(binTypeIDs, smallestMandatory)
				} else {
					for binTypeID := 0; binTypeID < instance.NumberOfBinTypes(); binTypeID++ {
						if solution.BinCopies(binTypeID) < instance.BinTypeCopies(binTypeID) {
							binTypeIDs = append(binTypeIDs, binTypeID)
						}
					}
				}
			} else {
				binTypeIDs = append(binTypeIDs, instance.BinTypeIDAt(solution.NumberOfBins()))
			}

			for _, binTypeID := range binTypeIDs {
				if instance.Objective() == packing.ObjectiveVariableSizedBinPacking &&
					patterns[binTypeID].valid && patterns[binTypeID].solution.NumberOfItems() > 0 {
					// Reuse the previous pattern when the remaining
					// demand still covers it.
					stillValid := true
					for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
						remaining := instance.ItemTypeCopies(itemTypeID) - solution.ItemCopies(itemTypeID)
						if remaining < patterns[binTypeID].solution.ItemCopies(itemTypeID) {
							stillValid = false
							break
						}
					}
					if stillValid {
						continue
					}
				}

				// Build and solve the single-bin knapsack subproblem
				// with the current adjusted profits.
				builder := newBuilder()
				builder.SetObjective(packing.ObjectiveKnapsack)
				builder.CopyParametersFrom(instance)
				builder.AddBinTypeFrom(instance, binTypeID, 1)
				for _, itemTypeID := range kpToOrig {
					remaining := instance.ItemTypeCopies(itemTypeID) - solution.ItemCopies(itemTypeID)
					builder.AddItemTypeFrom(instance, itemTypeID, profits[itemTypeID], remaining)
				}
				kpInstance, err := builder.Build()
				if err != nil {
					return output, fmt.Errorf("sequential value correction: subproblem: %w", err)
				}

				kpPool, err := solve(kpInstance)
				if err != nil {
					return output, err
				}
				if params.Timer != nil && params.Timer.NeedsToEnd() {
					return output, nil
				}

				single := newSolution(instance)
				kpProfit := packing.Profit(0)
				if kpBest, ok := kpPool.Best(); ok && kpBest.NumberOfDifferentBins() > 0 {
					if err := single.Append(kpBest, 0, 1, []int{binTypeID}, kpToOrig); err != nil {
						return output, err
					}
					kpProfit = kpBest.Profit()
				}
				patterns[binTypeID] = pattern{solution: single, profit: kpProfit, valid: true}
				output.AllPatterns = append(output.AllPatterns, single)
			}

			// Pick the bin type with the best profit/cost ratio.
			ratioBest := 0.0
			binTypeIDBest := -1
			for _, binTypeID := range binTypeIDs {
				if !patterns[binTypeID].valid {
					continue
				}
				ratio := patterns[binTypeID].profit / instance.BinTypeCost(binTypeID)
				if ratio > ratioBest {
					ratioBest = ratio
					binTypeIDBest = binTypeID
				}
			}
			if binTypeIDBest == -1 {
				// No item packed anywhere; the cover cannot progress.
				break
			}
			best := patterns[binTypeIDBest].solution

			// Number of copies of the selected pattern to add at once.
			numberOfCopies := instance.BinTypeCopies(binTypeIDBest) - solution.BinCopies(binTypeIDBest)
			for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
				packed := best.ItemCopies(itemTypeID)
				if packed > 0 {
					remaining := instance.ItemTypeCopies(itemTypeID) - solution.ItemCopies(itemTypeID)
					if c := remaining / packed; c < numberOfCopies {
						numberOfCopies = c
					}
				}
			}

			// Charge each packed item its share of the pattern waste.
			itemSpace := 0.0
			for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
				itemSpace += float64(best.ItemCopies(itemTypeID)) * instance.ItemTypeSpace(itemTypeID)
			}
			waste := instance.BinTypeSpace(binTypeIDBest) - itemSpace
			for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
				copies := float64(best.ItemCopies(itemTypeID))
				if copies == 0 || itemSpace == 0 {
					continue
				}
				share := copies * instance.ItemTypeSpace(itemTypeID) / itemSpace
				adjustedSpace[itemTypeID] += float64(numberOfCopies) *
					(copies*instance.ItemTypeSpace(itemTypeID) + share*waste)
			}

			if err := solution.Append(best, 0, numberOfCopies, nil, nil); err != nil {
				return output, err
			}
		}

		if output.Pool.Add(solution) && onImprove != nil {
			onImprove(solution, fmt.Sprintf("iteration %d", output.NumberOfIterations))
		}

		if best, ok := output.Pool.Best(); ok {
			if instance.Objective() == packing.ObjectiveBinPacking &&
				best.NumberOfItems() == instance.NumberOfItems() &&
				best.NumberOfBins() <= binPackingGoal {
				return output, nil
			}
			if instance.Objective() == packing.ObjectiveKnapsack &&
				best.NumberOfItems() == instance.NumberOfItems() {
				return output, nil
			}
		}

		// Correct the adjusted profits.
		for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
			var profitNew float64
			if instance.Objective() == packing.ObjectiveKnapsack {
				if solution.ItemCopies(itemTypeID) == 0 {
					continue
				}
				profitNew = instance.ItemTypeProfit(itemTypeID) /
					instance.ItemTypeSpace(itemTypeID) *
					adjustedSpace[itemTypeID] /
					float64(solution.ItemCopies(itemTypeID))
			} else {
				unpacked := instance.ItemTypeCopies(itemTypeID) - solution.ItemCopies(itemTypeID)
				adjustedSpace[itemTypeID] += 100 * largestBinSpace * float64(unpacked)
				profitNew = adjustedSpace[itemTypeID] / float64(instance.ItemTypeCopies(itemTypeID))
			}
			profits[itemTypeID] = 0.5*profits[itemTypeID] + 0.5*profitNew
		}
	}
}
