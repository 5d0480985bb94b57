package rectangleguillotine

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

func TestOptimizeKnapsackPerfectGrid(t *testing.T) {
	// Four 5x5 squares tile the 10x10 plate with two strips of two rows.
	instance := buildInstance(t, packing.ObjectiveKnapsack, Parameters{},
		[]ItemType{{Width: 5, Height: 5, Profit: 7, Copies: 4}},
		[]BinType{{Width: 10, Height: 10, Cost: -1, Copies: 1}},
	)
	best := optimizeDeterministic(t, instance)
	assert.Equal(t, packing.Profit(28), best.Profit())
	assert.True(t, best.Full())
}

func TestOptimizeExactCutRowsRejectMixedHeights(t *testing.T) {
	// With exact 2-cuts a 3-high item cannot share a row with a 5-high
	// one: the two items need two rows (or strips).
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		Parameters{CutType: CutTypeExact},
		[]ItemType{
			{Width: 5, Height: 5, Profit: 5, Copies: 1, Oriented: true},
			{Width: 5, Height: 3, Profit: 3, Copies: 1, Oriented: true},
		},
		[]BinType{{Width: 10, Height: 10, Cost: -1, Copies: 1}},
	)
	best := optimizeDeterministic(t, instance)
	assert.Equal(t, packing.Profit(8), best.Profit())
	require.Equal(t, 1, best.NumberOfDifferentBins())
	require.Len(t, best.Bin(0).Items, 2)
}

func TestOptimizeCutThicknessConsumesLength(t *testing.T) {
	// Two 5x10 items and a 1-thick kerf do not fit a 10-wide plate side
	// by side; one plate holds only one.
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		Parameters{CutThickness: 1},
		[]ItemType{{Width: 5, Height: 10, Profit: -1, Copies: 2, Oriented: true}},
		[]BinType{{Width: 10, Height: 10, Cost: -1, Copies: 2}},
	)
	best := optimizeDeterministic(t, instance)
	assert.True(t, best.Full())
	assert.Equal(t, 2, best.NumberOfBins())
}

func TestOptimizeMaximumDistance1Cuts(t *testing.T) {
	// Strips may be at most 4 wide: the 5-wide item cannot be placed.
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		Parameters{MaximumDistance1Cuts: 4},
		[]ItemType{
			{Width: 5, Height: 5, Profit: 9, Copies: 1, Oriented: true},
			{Width: 4, Height: 5, Profit: 4, Copies: 1, Oriented: true},
		},
		[]BinType{{Width: 10, Height: 10, Cost: -1, Copies: 1}},
	)
	best := optimizeDeterministic(t, instance)
	assert.Equal(t, packing.Profit(4), best.Profit())
}

func TestOptimizeHorizontalFirstStage(t *testing.T) {
	// With FirstStageAny both first-stage orientations are searched, the
	// horizontal one in transposed coordinates; either packs the two
	// oriented 8x2 items into the 8x4 plate.
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		Parameters{FirstStageOrientation: FirstStageAny},
		[]ItemType{{Width: 8, Height: 2, Profit: 3, Copies: 2, Oriented: true}},
		[]BinType{{Width: 8, Height: 4, Cost: -1, Copies: 1}},
	)
	best := optimizeDeterministic(t, instance)
	assert.Equal(t, packing.Profit(6), best.Profit())
}

func TestParametersCSVRoundTrip(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		Parameters{
			CutType:               CutTypeExact,
			FirstStageOrientation: FirstStageAny,
			MinimumDistance1Cuts:  2,
			MaximumDistance1Cuts:  50,
			MinimumDistance2Cuts:  1,
			MinimumWasteLength:    3,
			MaximumNumber2Cuts:    4,
			CutThroughDefects:     true,
			CutThickness:          1,
		},
		[]ItemType{{Width: 5, Height: 5, Profit: 7, Copies: 4}},
		[]BinType{{Width: 100, Height: 100, Cost: -1, Copies: 1}},
	)
	dir := t.TempDir()
	path := filepath.Join(dir, "parameters.csv")
	require.NoError(t, instance.WriteParameters(path))

	builder := NewInstanceBuilder()
	builder.AddItemType(ItemType{Width: 5, Height: 5, Profit: 7, Copies: 4})
	builder.AddBinType(BinType{Width: 100, Height: 100, Cost: -1, Copies: 1})
	require.NoError(t, builder.ReadParameters(path))
	reread, err := builder.Build()
	require.NoError(t, err)
	assert.Equal(t, instance.Parameters(), reread.Parameters())
	assert.Equal(t, instance.Objective(), reread.Objective())
}
