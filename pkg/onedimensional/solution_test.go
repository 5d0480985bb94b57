package onedimensional

import (
	"errors"
	"testing"

	"github.com/DrSkyle/packbeam/pkg/packing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildInstance(t *testing.T, objective packing.Objective, items []ItemType, bins []BinType) *Instance {
	t.Helper()
	builder := NewInstanceBuilder()
	builder.SetObjective(objective)
	for _, item := range items {
		builder.AddItemType(item)
	}
	for _, bin := range bins {
		builder.AddBinType(bin)
	}
	instance, err := builder.Build()
	require.NoError(t, err)
	return instance
}

func TestSolutionBinCopies(t *testing.T) {
	// One item type {length 1, copies 10}, one bin type {length 10,
	// copies 10}: adding a bin with multiplicity 2 counts both copies.
	instance := buildInstance(t, packing.ObjectiveVariableSizedBinPacking,
		[]ItemType{{Length: 1, Profit: -1, Copies: 10}},
		[]BinType{{Length: 10, Cost: -1, Copies: 10}},
	)
	solution := NewSolution(instance)
	_, err := solution.AddBin(0, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, solution.NumberOfBins())
	assert.Equal(t, 2, solution.BinCopies(0))
}

func TestSolutionAggregates(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{
			{Length: 3, Profit: 3, Copies: 4},
			{Length: 4, Profit: 5, Copies: 3},
		},
		[]BinType{{Length: 10, Cost: -1, Copies: 1}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 1))
	require.NoError(t, solution.AddItem(binPos, 0))
	require.NoError(t, solution.AddItem(binPos, 0))

	assert.Equal(t, 3, solution.NumberOfItems())
	assert.Equal(t, packing.Profit(11), solution.Profit())
	assert.Equal(t, packing.Length(10), solution.ItemLength())
	assert.Equal(t, 2, solution.ItemCopies(0))
	assert.Equal(t, 1, solution.ItemCopies(1))
	assert.True(t, solution.Feasible())
}

func TestSolutionAddItemOutsideLastBin(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		[]ItemType{{Length: 1, Profit: -1, Copies: 4}},
		[]BinType{{Length: 10, Cost: -1, Copies: 4}},
	)
	solution := NewSolution(instance)
	first, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	_, err = solution.AddBin(0, 1)
	require.NoError(t, err)

	err = solution.AddItem(first, 0)
	assert.True(t, errors.Is(err, packing.ErrIllegalStateTransition))
}

func TestSolutionOverfullBinRejected(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		[]ItemType{{Length: 7, Profit: -1, Copies: 2}},
		[]BinType{{Length: 10, Cost: -1, Copies: 2}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 0))
	err = solution.AddItem(binPos, 0)
	assert.True(t, errors.Is(err, packing.ErrIllegalStateTransition))
}

func TestSolutionNesting(t *testing.T) {
	// Items of length 4 nesting 1: positions 0-4, 3-7, 6-10.
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		[]ItemType{{Length: 4, Profit: -1, Copies: 3, NestingLength: 1}},
		[]BinType{{Length: 10, Cost: -1, Copies: 1}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, solution.AddItem(binPos, 0))
	}
	bin := solution.Bin(binPos)
	assert.Equal(t, packing.Length(10), bin.End)
	assert.Equal(t, packing.Length(6), bin.Items[2].Start)
	assert.True(t, solution.Full())
}

func TestSolutionWeightViolationIsDataNotError(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		[]ItemType{{Length: 1, Profit: -1, Copies: 2, Weight: 8}},
		[]BinType{{Length: 10, Cost: -1, Copies: 1, MaximumWeight: 10}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 0))
	assert.True(t, solution.Feasible())
	require.NoError(t, solution.AddItem(binPos, 0))
	assert.False(t, solution.Feasible())
}

func TestSolutionAppendRenumbers(t *testing.T) {
	parent := buildInstance(t, packing.ObjectiveVariableSizedBinPacking,
		[]ItemType{
			{Length: 2, Profit: -1, Copies: 4},
			{Length: 3, Profit: -1, Copies: 4},
		},
		[]BinType{
			{Length: 5, Cost: 5, Copies: 4},
			{Length: 8, Cost: 7, Copies: 4},
		},
	)
	// Subproblem over bin type 1 and item type 1 only.
	builder := NewInstanceBuilder()
	builder.SetObjective(packing.ObjectiveKnapsack)
	builder.AddBinTypeFrom(parent, 1, 1)
	builder.AddItemTypeFrom(parent, 1, 1, 2)
	sub, err := builder.Build()
	require.NoError(t, err)

	subSolution := NewSolution(sub)
	binPos, err := subSolution.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, subSolution.AddItem(binPos, 0))
	require.NoError(t, subSolution.AddItem(binPos, 0))

	solution := NewSolution(parent)
	require.NoError(t, solution.Append(subSolution, 0, 2, []int{1}, []int{1}))
	assert.Equal(t, 2, solution.BinCopies(1))
	assert.Equal(t, 4, solution.ItemCopies(1))
	assert.Equal(t, packing.Profit(14), solution.Cost())
	assert.Equal(t, 4, solution.NumberOfItems())
}

func TestBetterPrefersCompleteSolutions(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		[]ItemType{{Length: 5, Profit: -1, Copies: 2}},
		[]BinType{{Length: 10, Cost: -1, Copies: 2}},
	)
	partial := NewSolution(instance)
	binPos, _ := partial.AddBin(0, 1)
	require.NoError(t, partial.AddItem(binPos, 0))

	full := NewSolution(instance)
	binPos, _ = full.AddBin(0, 1)
	require.NoError(t, full.AddItem(binPos, 0))
	require.NoError(t, full.AddItem(binPos, 0))

	assert.True(t, full.Better(partial))
	assert.False(t, partial.Better(full))
	assert.True(t, full.Better(nil))
	assert.False(t, partial.Better(nil))
}

func TestBuilderRejectsBadInput(t *testing.T) {
	builder := NewInstanceBuilder()
	builder.SetObjective(packing.ObjectiveBinPacking)
	builder.AddItemType(ItemType{Length: 0, Copies: 1})
	builder.AddBinType(BinType{Length: 10, Copies: 1})
	_, err := builder.Build()
	assert.True(t, errors.Is(err, packing.ErrInvalidInput))

	builder = NewInstanceBuilder()
	builder.SetObjective(packing.ObjectiveBinPacking)
	builder.AddItemType(ItemType{Length: 5, Copies: -3})
	builder.AddBinType(BinType{Length: 10, Copies: 1})
	_, err = builder.Build()
	assert.True(t, errors.Is(err, packing.ErrInvalidInput))

	builder = NewInstanceBuilder()
	builder.SetObjective(packing.ObjectiveBinPacking)
	builder.AddItemType(ItemType{Length: 5, Copies: 1})
	builder.AddBinType(BinType{Length: 10, Copies: 2, CopiesMin: 3})
	_, err = builder.Build()
	assert.True(t, errors.Is(err, packing.ErrInvalidInput))
}

func TestBuilderUnsupportedObjective(t *testing.T) {
	builder := NewInstanceBuilder()
	builder.SetObjective(packing.ObjectiveOpenDimensionXY)
	builder.AddItemType(ItemType{Length: 5, Copies: 1})
	builder.AddBinType(BinType{Length: 10, Copies: 1})
	_, err := builder.Build()
	assert.True(t, errors.Is(err, packing.ErrUnsupportedObjective))
}

func TestBuilderInfiniteCopiesExpansion(t *testing.T) {
	// Every item type infinite: demand expands to what could ever fit in
	// the largest bin, and the unbounded-knapsack flag is set.
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{Length: 3, Profit: 2, Copies: -1}},
		[]BinType{{Length: 10, Cost: -1, Copies: 1}},
	)
	assert.Equal(t, 3, instance.ItemType(0).Copies)
	assert.True(t, instance.UnboundedKnapsack())
}
