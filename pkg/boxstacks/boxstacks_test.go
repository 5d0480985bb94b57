package boxstacks

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

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

func TestSolutionStacks(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{X: 2, Y: 2, Z: 3, Profit: 4, Copies: 3, StackabilityID: 1}},
		[]BinType{{X: 10, Y: 10, Z: 10, Cost: -1, Copies: 1}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	stackID, err := solution.AddStack(binPos, 0, 2, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, stackID)
	require.NoError(t, solution.AddItem(binPos, 0, false))
	require.NoError(t, solution.AddItem(binPos, 0, false))
	require.NoError(t, solution.AddItem(binPos, 0, false))

	assert.Equal(t, 3, solution.NumberOfItems())
	assert.Equal(t, 1, solution.NumberOfStacks())
	assert.Equal(t, packing.Length(9), solution.Bin(binPos).Stacks[0].ZEnd)
	assert.Equal(t, packing.Profit(12), solution.Profit())
	assert.Equal(t, packing.Volume(36), solution.ItemVolume())
}

func TestSolutionStackFootprintMismatch(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{X: 2, Y: 3, Z: 3, Profit: 4, Copies: 1}},
		[]BinType{{X: 10, Y: 10, Z: 10, Cost: -1, Copies: 1}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	_, err = solution.AddStack(binPos, 0, 2, 0, 2)
	require.NoError(t, err)
	err = solution.AddItem(binPos, 0, false)
	assert.True(t, errors.Is(err, packing.ErrIllegalStateTransition))
}

func TestSolutionNestingHeight(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{X: 2, Y: 2, Z: 4, Profit: 1, Copies: 2, NestingHeight: 1}},
		[]BinType{{X: 10, Y: 10, Z: 7, Cost: -1, Copies: 1}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	_, err = solution.AddStack(binPos, 0, 2, 0, 2)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 0, false))
	require.NoError(t, solution.AddItem(binPos, 0, false))
	assert.Equal(t, packing.Length(7), solution.Bin(binPos).Stacks[0].ZEnd)
}

func TestAxleWeights(t *testing.T) {
	truck := SemiTrailerTruckData{
		Is:                                    true,
		TractorWeight:                         7000,
		FrontAxleMiddleAxleDistance:           3700,
		FrontAxleTractorGravityCenterDistance: 2000,
		FrontAxleHarnessDistance:              3200,
		EmptyTrailerWeight:                    7500,
		HarnessRearAxleDistance:               7200,
		TrailerGravityCenterRearAxleDistance:  3000,
		TrailerStartHarnessDistance:           1600,
	}
	middle, rear := truck.ComputeAxleWeights(10000*4000, 10000)
	assert.Greater(t, middle, packing.Weight(0))
	assert.Greater(t, rear, packing.Weight(0))
	// The load splits between harness and rear axle.
	harness := middle*float64(truck.FrontAxleMiddleAxleDistance)/float64(truck.FrontAxleHarnessDistance) -
		truck.TractorWeight*float64(truck.FrontAxleTractorGravityCenterDistance)/float64(truck.FrontAxleHarnessDistance)
	assert.InDelta(t, 10000+7500, harness+rear, 1e-6)
}

func TestOptimizeBinCopiesVBPP(t *testing.T) {
	// Ten 1x1x1 items in one 10x10x10 bin: cost of one bin.
	instance := buildInstance(t, packing.ObjectiveVariableSizedBinPacking,
		[]ItemType{{X: 1, Y: 1, Z: 1, Profit: -1, Copies: 10}},
		[]BinType{{X: 10, Y: 10, Z: 10, Cost: 1, Copies: 10}},
	)
	best := optimizeDeterministic(t, instance)
	assert.True(t, best.Full())
	assert.Equal(t, 1, best.NumberOfBins())
	assert.Equal(t, packing.Profit(1), best.Cost())
}

func TestOptimizeKnapsackStacksUp(t *testing.T) {
	// Four 5x5x5 cubes fit one 5x5x20 column bin exactly.
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{X: 5, Y: 5, Z: 5, Profit: 3, Copies: 4, StackabilityID: 1}},
		[]BinType{{X: 5, Y: 5, Z: 20, Cost: -1, Copies: 1}},
	)
	best := optimizeDeterministic(t, instance)
	assert.Equal(t, packing.Profit(12), best.Profit())
	assert.Equal(t, 1, best.NumberOfStacks())
}

func TestOptimizeMaximumWeightAbove(t *testing.T) {
	// The fragile base supports at most 1 above it; the third cube needs
	// its own stack, which does not fit the 5x5 floor: only 2 pack.
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{X: 5, Y: 5, Z: 5, Profit: 3, Copies: 3, StackabilityID: 1,
			Weight: 1, MaximumWeightAbove: 1}},
		[]BinType{{X: 5, Y: 5, Z: 20, Cost: -1, Copies: 1}},
	)
	best := optimizeDeterministic(t, instance)
	assert.Equal(t, packing.Profit(6), best.Profit())
}

func TestOptimizeMaximumStackability(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{X: 5, Y: 5, Z: 2, Profit: 3, Copies: 5, StackabilityID: 1,
			MaximumStackability: 2}},
		[]BinType{{X: 5, Y: 5, Z: 20, Cost: -1, Copies: 1}},
	)
	best := optimizeDeterministic(t, instance)
	assert.Equal(t, packing.Profit(6), best.Profit())
}

func TestOptimizeTotalWeight(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{X: 2, Y: 2, Z: 2, Profit: 5, Copies: 5, Weight: 4, StackabilityID: 1}},
		[]BinType{{X: 10, Y: 10, Z: 10, Cost: -1, Copies: 1, MaximumWeight: 10}},
	)
	best := optimizeDeterministic(t, instance)
	assert.Equal(t, packing.Profit(10), best.Profit())
	assert.True(t, best.FeasibleTotalWeight())
}

func TestViolationQuantities(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{X: 2, Y: 2, Z: 2, Profit: 5, Copies: 3, Weight: 4, StackabilityID: 1}},
		[]BinType{{X: 10, Y: 10, Z: 10, Cost: -1, Copies: 1, MaximumWeight: 10}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = solution.AddStack(binPos, packing.Length(2*i), packing.Length(2*i+2), 0, 2)
		require.NoError(t, err)
		require.NoError(t, solution.AddItem(binPos, 0, false))
	}
	assert.False(t, solution.FeasibleTotalWeight())
	assert.InDelta(t, 2.0, solution.ComputeWeightConstraintsViolation(), 1e-9)
	assert.False(t, solution.Feasible())
}

func TestInstanceCSVRoundTrip(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveVariableSizedBinPacking,
		[]ItemType{{
			X: 3, Y: 2, Z: 4, Profit: 6, Copies: 2, Rotations: 3, Weight: 1.5,
			GroupID: 1, StackabilityID: 7, NestingHeight: 1,
			MaximumStackability: 3, MaximumWeightAbove: 9,
		}},
		[]BinType{{X: 12, Y: 10, Z: 8, Cost: 4, Copies: 2, MaximumWeight: 100}},
	)
	dir := t.TempDir()
	require.NoError(t, instance.WriteItemTypes(filepath.Join(dir, "items.csv")))
	require.NoError(t, instance.WriteBinTypes(filepath.Join(dir, "bins.csv")))
	require.NoError(t, instance.WriteParameters(filepath.Join(dir, "parameters.csv")))

	builder := NewInstanceBuilder()
	require.NoError(t, builder.ReadItemTypes(filepath.Join(dir, "items.csv")))
	require.NoError(t, builder.ReadBinTypes(filepath.Join(dir, "bins.csv")))
	require.NoError(t, builder.ReadParameters(filepath.Join(dir, "parameters.csv")))
	reread, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, instance.Objective(), reread.Objective())
	assert.Equal(t, instance.ItemType(0), reread.ItemType(0))
	assert.Equal(t, instance.BinType(0), reread.BinType(0))
}

func TestCertificateRoundTrip(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{
			{X: 2, Y: 2, Z: 3, Profit: 4, Copies: 2, StackabilityID: 1},
			{X: 3, Y: 2, Z: 2, Profit: 2, Copies: 1, Rotations: 3},
		},
		[]BinType{{X: 10, Y: 10, Z: 10, Cost: -1, Copies: 1}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	_, err = solution.AddStack(binPos, 0, 2, 0, 2)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 0, false))
	require.NoError(t, solution.AddItem(binPos, 0, false))
	_, err = solution.AddStack(binPos, 2, 4, 0, 3)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 1, true))

	dir := t.TempDir()
	path := filepath.Join(dir, "certificate.csv")
	require.NoError(t, solution.WriteCertificate(path))
	reread, err := ReadCertificate(instance, path)
	require.NoError(t, err)
	assert.Equal(t, solution.NumberOfItems(), reread.NumberOfItems())
	assert.Equal(t, solution.NumberOfStacks(), reread.NumberOfStacks())
	assert.Equal(t, solution.Profit(), reread.Profit())
	assert.Equal(t, solution.ItemVolume(), reread.ItemVolume())
}

func TestBuilderInfiniteMaximumWeight(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{X: 1, Y: 1, Z: 1, Profit: 1, Copies: 1}},
		[]BinType{{X: 5, Y: 5, Z: 5, Cost: -1, Copies: 1}},
	)
	assert.True(t, math.IsInf(instance.BinType(0).MaximumWeight, 1))
}
