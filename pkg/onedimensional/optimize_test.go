package onedimensional

import (
	"testing"
	"time"

	"github.com/DrSkyle/packbeam/pkg/algorithms"
	"github.com/DrSkyle/packbeam/pkg/packing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optimizeDeterministic(t *testing.T, instance *Instance) *Solution {
	t.Helper()
	output, err := Optimize(instance, OptimizeParameters{
		Mode:      packing.NotAnytimeSequential,
		TimeLimit: 30 * time.Second,
		Logger:    packing.DiscardLogger(),
	})
	require.NoError(t, err)
	best, ok := output.Pool.Best()
	require.True(t, ok, "expected a solution")
	return best
}

func TestOptimizeBinCopies(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveVariableSizedBinPacking,
		[]ItemType{{Length: 1, Profit: -1, Copies: 10}},
		[]BinType{{Length: 10, Cost: -1, Copies: 10}},
	)
	best := optimizeDeterministic(t, instance)
	assert.True(t, best.Full())
	assert.Equal(t, 1, best.NumberOfBins())
}

func TestOptimizeSingleBinKnapsack(t *testing.T) {
	// One bin of length 10, items {3, profit 3, ×4} and {4, profit 5,
	// ×3}: the optimum is one 4 and two 3s for profit 11.
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{
			{Length: 3, Profit: 3, Copies: 4},
			{Length: 4, Profit: 5, Copies: 3},
		},
		[]BinType{{Length: 10, Cost: -1, Copies: 1}},
	)
	best := optimizeDeterministic(t, instance)
	assert.Equal(t, packing.Profit(11), best.Profit())
	assert.Equal(t, 1, best.ItemCopies(1))
	assert.Equal(t, 2, best.ItemCopies(0))
}

func TestOptimizeTwoBinTypesVBPP(t *testing.T) {
	// Bin types {10, cost 12, ∞} and {7, cost 9, ∞}, items {3 ×5} and
	// {4 ×3}: 27 length in total. The cheapest exact cover is two big
	// bins {3,3,4} plus one small bin {3,4}, cost 33.
	instance := buildInstance(t, packing.ObjectiveVariableSizedBinPacking,
		[]ItemType{
			{Length: 3, Profit: -1, Copies: 5},
			{Length: 4, Profit: -1, Copies: 3},
		},
		[]BinType{
			{Length: 10, Cost: 12, Copies: -1},
			{Length: 7, Cost: 9, Copies: -1},
		},
	)
	best := optimizeDeterministic(t, instance)
	assert.True(t, best.Full())
	assert.LessOrEqual(t, best.Cost(), packing.Profit(33))
}

func TestOptimizeZeroItems(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		nil,
		[]BinType{{Length: 10, Cost: -1, Copies: 1}},
	)
	output, err := Optimize(instance, OptimizeParameters{
		Mode:   packing.NotAnytimeSequential,
		Logger: packing.DiscardLogger(),
	})
	require.NoError(t, err)
	best, ok := output.Pool.Best()
	require.True(t, ok)
	assert.Equal(t, 0, best.NumberOfItems())
	assert.Equal(t, 0, best.NumberOfBins())
	assert.Equal(t, packing.Profit(0), best.Profit())
	assert.True(t, best.Full())
}

func TestOptimizeItemLargerThanEveryBin(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{Length: 20, Profit: 5, Copies: 1}},
		[]BinType{{Length: 10, Cost: -1, Copies: 1}},
	)
	output, err := Optimize(instance, OptimizeParameters{
		Mode:   packing.NotAnytimeSequential,
		Logger: packing.DiscardLogger(),
	})
	require.NoError(t, err)
	best, ok := output.Pool.Best()
	require.True(t, ok)
	assert.Equal(t, 0, best.NumberOfItems())
	assert.Equal(t, packing.Profit(0), best.Profit())
}

func TestOptimizeDeterministicRepeat(t *testing.T) {
	// Two identical not-anytime-sequential runs return the same best.
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		[]ItemType{
			{Length: 4, Profit: -1, Copies: 3},
			{Length: 6, Profit: -1, Copies: 3},
		},
		[]BinType{{Length: 10, Cost: -1, Copies: 6}},
	)
	first := optimizeDeterministic(t, instance)
	second := optimizeDeterministic(t, instance)
	assert.Equal(t, first.NumberOfBins(), second.NumberOfBins())
	assert.Equal(t, first.Waste(), second.Waste())
	assert.Equal(t, 3, first.NumberOfBins())
}

func TestSequentialValueCorrectionConverges(t *testing.T) {
	// Optimal pack uses 2 bins; SVC must reach 2 within a few rounds.
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		[]ItemType{
			{Length: 6, Profit: -1, Copies: 2},
			{Length: 4, Profit: -1, Copies: 2},
		},
		[]BinType{{Length: 10, Cost: -1, Copies: 4}},
	)
	solver := func(sub *Instance) (*packing.SolutionPool[*Solution], error) {
		output, err := Optimize(sub, OptimizeParameters{
			Mode:                          packing.NotAnytimeSequential,
			Logger:                        packing.DiscardLogger(),
			UseTreeSearch:                 true,
			NotAnytimeTreeSearchQueueSize: 2,
		})
		if err != nil {
			return nil, err
		}
		return output.Pool, nil
	}
	output, err := algorithms.SequentialValueCorrection(
		instance, NewInstanceBuilder, NewSolution,
		func(a, b *Solution) bool { return a.Better(b) },
		solver, nil,
		algorithms.SVCParameters{MaximumNumberOfIterations: 4},
	)
	require.NoError(t, err)
	best, ok := output.Pool.Best()
	require.True(t, ok)
	assert.True(t, best.Full())
	assert.Equal(t, 2, best.NumberOfBins())
}

func TestDichotomicSearchMemoisation(t *testing.T) {
	// With one bin type, the bisection keeps producing the same bin
	// multiset: the memo must keep the actual solve count at one.
	instance := buildInstance(t, packing.ObjectiveVariableSizedBinPacking,
		[]ItemType{{Length: 3, Profit: -1, Copies: 6}},
		[]BinType{{Length: 9, Cost: 9, Copies: 4}},
	)
	solves := 0
	solver := func(sub *Instance) (*packing.SolutionPool[*Solution], error) {
		solves++
		output, err := Optimize(sub, OptimizeParameters{
			Mode:          packing.NotAnytimeSequential,
			Logger:        packing.DiscardLogger(),
			UseTreeSearch: true,
		})
		if err != nil {
			return nil, err
		}
		return output.Pool, nil
	}
	output, err := algorithms.DichotomicSearch(
		instance, NewInstanceBuilder, NewSolution,
		func(a, b *Solution) bool { return a.Better(b) },
		solver, nil,
		algorithms.DichotomicSearchParameters{},
	)
	require.NoError(t, err)
	assert.Equal(t, output.NumberOfSubproblems, solves)
	assert.Equal(t, 1, solves)
	best, ok := output.Pool.Best()
	require.True(t, ok)
	assert.True(t, best.Full())
}

func TestOptimizeKnapsackBoundProvesOptimality(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{Length: 5, Profit: 5, Copies: 2}},
		[]BinType{{Length: 10, Cost: -1, Copies: 1}},
	)
	output, err := Optimize(instance, OptimizeParameters{
		Mode:   packing.NotAnytimeSequential,
		Logger: packing.DiscardLogger(),
	})
	require.NoError(t, err)
	best, ok := output.Pool.Best()
	require.True(t, ok)
	assert.Equal(t, packing.Profit(10), best.Profit())
	assert.Equal(t, packing.Profit(10), output.KnapsackBound)
}
