package rectangle

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/DrSkyle/packbeam/pkg/packing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildInstance(t *testing.T, objective packing.Objective, parameters Parameters, items []ItemType, bins []BinType) *Instance {
	t.Helper()
	builder := NewInstanceBuilder()
	builder.SetObjective(objective)
	builder.SetParameters(parameters)
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

func TestSolutionInvariants(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack, Parameters{},
		[]ItemType{
			{Width: 4, Height: 3, Profit: 5, Copies: 2},
			{Width: 2, Height: 2, Profit: 2, Copies: 3},
		},
		[]BinType{{Width: 10, Height: 10, Cost: -1, Copies: 1}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 0, 0, 0, false))
	require.NoError(t, solution.AddItem(binPos, 1, 4, 0, false))

	assert.Equal(t, 2, solution.NumberOfItems())
	assert.Equal(t, packing.Profit(7), solution.Profit())
	assert.Equal(t, packing.Area(16), solution.ItemArea())
	assert.Equal(t, packing.Length(6), solution.XMax())
	assert.Equal(t, packing.Length(3), solution.YMax())
}

func TestSolutionRejectsForbiddenRotation(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack, Parameters{},
		[]ItemType{{Width: 4, Height: 3, Profit: 5, Copies: 1, Oriented: true}},
		[]BinType{{Width: 10, Height: 10, Cost: -1, Copies: 1}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	err = solution.AddItem(binPos, 0, 0, 0, true)
	assert.ErrorIs(t, err, packing.ErrIllegalStateTransition)
}

func TestOptimizeKnapsackPerfectFill(t *testing.T) {
	// Four 5x5 squares fill the 10x10 bin exactly.
	instance := buildInstance(t, packing.ObjectiveKnapsack, Parameters{},
		[]ItemType{{Width: 5, Height: 5, Profit: 7, Copies: 4}},
		[]BinType{{Width: 10, Height: 10, Cost: -1, Copies: 1}},
	)
	best := optimizeDeterministic(t, instance)
	assert.Equal(t, packing.Profit(28), best.Profit())
	assert.True(t, best.Full())
}

func TestOptimizeRotationRequired(t *testing.T) {
	// A 2x8 bin takes the 8x2 item only rotated.
	instance := buildInstance(t, packing.ObjectiveKnapsack, Parameters{},
		[]ItemType{{Width: 8, Height: 2, Profit: 3, Copies: 1}},
		[]BinType{{Width: 2, Height: 8, Cost: -1, Copies: 1}},
	)
	best := optimizeDeterministic(t, instance)
	assert.Equal(t, packing.Profit(3), best.Profit())
	require.Equal(t, 1, best.NumberOfDifferentBins())
	assert.True(t, best.Bin(0).Items[0].Rotated)
}

func TestOptimizeOrientedItemCannotFit(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack, Parameters{},
		[]ItemType{{Width: 8, Height: 2, Profit: 3, Copies: 1, Oriented: true}},
		[]BinType{{Width: 2, Height: 8, Cost: -1, Copies: 1}},
	)
	best := optimizeDeterministic(t, instance)
	assert.Equal(t, packing.Profit(0), best.Profit())
}

func TestOptimizeDefectAvoidance(t *testing.T) {
	// The defect blocks the bottom-left corner; the item lands right of
	// it.
	instance := buildInstance(t, packing.ObjectiveKnapsack, Parameters{},
		[]ItemType{{Width: 4, Height: 4, Profit: 9, Copies: 1, Oriented: true}},
		[]BinType{{
			Width: 10, Height: 4, Cost: -1, Copies: 1,
			Defects: []Defect{{X: 0, Y: 0, Width: 2, Height: 2}},
		}},
	)
	best := optimizeDeterministic(t, instance)
	require.Equal(t, packing.Profit(9), best.Profit())
	item := best.Bin(0).Items[0]
	assert.GreaterOrEqual(t, item.X, packing.Length(2))
}

func TestOptimizeBinPacking(t *testing.T) {
	// Eight 5x5 squares need two 10x10 bins.
	instance := buildInstance(t, packing.ObjectiveBinPacking, Parameters{},
		[]ItemType{{Width: 5, Height: 5, Profit: -1, Copies: 8}},
		[]BinType{{Width: 10, Height: 10, Cost: -1, Copies: 4}},
	)
	best := optimizeDeterministic(t, instance)
	assert.True(t, best.Full())
	assert.Equal(t, 2, best.NumberOfBins())
}

func TestOptimizeOpenDimensionX(t *testing.T) {
	// Strip of height 10: each 5x10 item fills the full strip height, so
	// the two sit side by side for xMax 5+5 = 10.
	instance := buildInstance(t, packing.ObjectiveOpenDimensionX, Parameters{},
		[]ItemType{{Width: 5, Height: 10, Profit: -1, Copies: 2, Oriented: true}},
		[]BinType{{Width: 1000, Height: 10, Cost: -1, Copies: 1}},
	)
	best := optimizeDeterministic(t, instance)
	assert.True(t, best.Full())
	assert.Equal(t, packing.Length(10), best.XMax())
}

func TestOptimizeOpenDimensionY(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveOpenDimensionY, Parameters{},
		[]ItemType{{Width: 10, Height: 5, Profit: -1, Copies: 2, Oriented: true}},
		[]BinType{{Width: 10, Height: 1000, Cost: -1, Copies: 1}},
	)
	best := optimizeDeterministic(t, instance)
	assert.True(t, best.Full())
	assert.Equal(t, packing.Length(10), best.YMax())
}

func TestOptimizeIncreasingXGroups(t *testing.T) {
	// Two groups; group 0 is unloaded first through the door at the
	// large-x side, so it must sit at larger x than group 1.
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		Parameters{UnloadingConstraint: UnloadingIncreasingX},
		[]ItemType{
			{Width: 3, Height: 10, Profit: -1, Copies: 1, GroupID: 0, Oriented: true},
			{Width: 3, Height: 10, Profit: -1, Copies: 1, GroupID: 1, Oriented: true},
		},
		[]BinType{{Width: 10, Height: 10, Cost: -1, Copies: 2}},
	)
	best := optimizeDeterministic(t, instance)
	require.True(t, best.Full())
	require.Equal(t, 1, best.NumberOfBins())
	var group0Start, group1End packing.Length
	for _, item := range best.Bin(0).Items {
		itemType := instance.ItemType(item.ItemTypeID)
		if itemType.GroupID == 0 {
			group0Start = item.X
		} else {
			group1End = item.X + itemType.Width
		}
	}
	assert.GreaterOrEqual(t, group0Start, group1End)
}

func TestInstanceCSVRoundTrip(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		Parameters{UnloadingConstraint: UnloadingIncreasingX},
		[]ItemType{
			{Width: 4, Height: 3, Profit: 5, Copies: 2, Oriented: true, GroupID: 1, Weight: 2},
			{Width: 2, Height: 2, Profit: 2, Copies: 3},
		},
		[]BinType{{
			Width: 10, Height: 10, Cost: 4, Copies: 3, CopiesMin: 1,
			Defects: []Defect{{X: 1, Y: 1, Width: 2, Height: 2}},
		}},
	)
	dir := t.TempDir()
	require.NoError(t, instance.WriteItemTypes(filepath.Join(dir, "items.csv")))
	require.NoError(t, instance.WriteBinTypes(filepath.Join(dir, "bins.csv")))
	require.NoError(t, instance.WriteDefects(filepath.Join(dir, "defects.csv")))
	require.NoError(t, instance.WriteParameters(filepath.Join(dir, "parameters.csv")))

	builder := NewInstanceBuilder()
	require.NoError(t, builder.ReadItemTypes(filepath.Join(dir, "items.csv")))
	require.NoError(t, builder.ReadBinTypes(filepath.Join(dir, "bins.csv")))
	require.NoError(t, builder.ReadDefects(filepath.Join(dir, "defects.csv")))
	require.NoError(t, builder.ReadParameters(filepath.Join(dir, "parameters.csv")))
	reread, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, instance.Objective(), reread.Objective())
	assert.Equal(t, instance.Parameters(), reread.Parameters())
	require.Equal(t, instance.NumberOfItemTypes(), reread.NumberOfItemTypes())
	for id := 0; id < instance.NumberOfItemTypes(); id++ {
		assert.Equal(t, instance.ItemType(id), reread.ItemType(id))
	}
	require.Equal(t, instance.NumberOfBinTypes(), reread.NumberOfBinTypes())
	for id := 0; id < instance.NumberOfBinTypes(); id++ {
		assert.Equal(t, instance.BinType(id), reread.BinType(id))
	}
}

func TestCertificateRoundTrip(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack, Parameters{},
		[]ItemType{
			{Width: 4, Height: 3, Profit: 5, Copies: 2},
			{Width: 2, Height: 2, Profit: 2, Copies: 2},
		},
		[]BinType{{Width: 10, Height: 10, Cost: -1, Copies: 1}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 0, 0, 0, false))
	require.NoError(t, solution.AddItem(binPos, 0, 0, 3, true))
	require.NoError(t, solution.AddItem(binPos, 1, 4, 0, false))

	dir := t.TempDir()
	path := filepath.Join(dir, "certificate.csv")
	require.NoError(t, solution.WriteCertificate(path))
	reread, err := ReadCertificate(instance, path)
	require.NoError(t, err)
	assert.Equal(t, solution.NumberOfItems(), reread.NumberOfItems())
	assert.Equal(t, solution.Profit(), reread.Profit())
	assert.Equal(t, solution.ItemArea(), reread.ItemArea())
	assert.Equal(t, solution.XMax(), reread.XMax())
	assert.Equal(t, solution.YMax(), reread.YMax())
}
