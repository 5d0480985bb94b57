package algorithms

import (
	"fmt"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// VbppToBppOutput is the result of the warm-start helper.
type VbppToBppOutput[S any] struct {
	Pool *packing.SolutionPool[S]
}

// VbppToBpp fixes an order for the bins — every bin type at its full
// copies — and solves one bin-packing subproblem with a small queue. When
// the subproblem packs everything, the translated solution is a fast,
// possibly non-optimal, initial VBPP solution used to warm-start column
// generation.
func VbppToBpp[I packing.Instance, B packing.InstanceBuilder[I], S packing.Solution[S]](
	instance I,
	newBuilder func() B,
	newSolution func(I) S,
	better func(a, b S) bool,
	solve SubproblemSolver[I, S],
) (*VbppToBppOutput[S], error) {
	output := &VbppToBppOutput[S]{Pool: packing.NewSolutionPool[S](1, better)}

	builder := newBuilder()
	builder.SetObjective(packing.ObjectiveBinPacking)
	builder.CopyParametersFrom(instance)
	for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
		builder.AddItemTypeFrom(instance, itemTypeID,
			instance.ItemTypeProfit(itemTypeID),
			instance.ItemTypeCopies(itemTypeID))
	}
	for binTypeID := 0; binTypeID < instance.NumberOfBinTypes(); binTypeID++ {
		builder.AddBinTypeFrom(instance, binTypeID, instance.BinTypeCopies(binTypeID))
	}
	bppInstance, err := builder.Build()
	if err != nil {
		return output, fmt.Errorf("vbpp to bpp: subproblem: %w", err)
	}

	bppPool, err := solve(bppInstance)
	if err != nil {
		return output, err
	}
	bppBest, ok := bppPool.Best()
	if !ok || bppBest.NumberOfItems() != instance.NumberOfItems() {
		return output, nil
	}

	solution := newSolution(instance)
	if err := packing.AppendAll(solution, bppBest, nil, nil); err != nil {
		return output, err
	}
	output.Pool.Add(solution)
	return output, nil
}
