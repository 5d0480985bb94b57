package columngen_test

import (
	"testing"
	"time"

	"github.com/DrSkyle/packbeam/pkg/columngen"
	"github.com/DrSkyle/packbeam/pkg/onedimensional"
	"github.com/DrSkyle/packbeam/pkg/packing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pricingFunc(t *testing.T) columngen.PricingFunc[*onedimensional.Instance, *onedimensional.Solution] {
	t.Helper()
	return func(sub *onedimensional.Instance) (*packing.SolutionPool[*onedimensional.Solution], error) {
		output, err := onedimensional.Optimize(sub, onedimensional.OptimizeParameters{
			Mode:      packing.NotAnytimeSequential,
			TimeLimit: 10 * time.Second,
			Logger:    packing.DiscardLogger(),
		})
		if err != nil {
			return nil, err
		}
		return output.Pool, nil
	}
}

func TestLimitedDiscrepancySearchBinPacking(t *testing.T) {
	// Six items of length 5 in bins of length 10: the relaxation bound is
	// exactly three bins and the recovered integer solution covers every
	// demand row.
	builder := onedimensional.NewInstanceBuilder()
	builder.SetObjective(packing.ObjectiveBinPacking)
	builder.AddItemType(onedimensional.ItemType{Length: 5, Profit: -1, Copies: 6})
	builder.AddBinType(onedimensional.BinType{Length: 10, Cost: -1, Copies: 6})
	instance, err := builder.Build()
	require.NoError(t, err)

	var bound float64
	output, err := columngen.LimitedDiscrepancySearch(
		instance,
		onedimensional.NewInstanceBuilder,
		onedimensional.NewSolution,
		func(a, b *onedimensional.Solution) bool { return a.Better(b) },
		pricingFunc(t),
		nil,
		func(b float64) { bound = b },
		columngen.Parameters{AutomaticStop: true},
	)
	require.NoError(t, err)

	best, ok := output.Pool.Best()
	require.True(t, ok, "expected an integer solution")
	assert.True(t, best.Full())
	assert.Equal(t, 3, best.NumberOfBins())
	// Covering rows: every demand is met, bin bounds respected.
	assert.GreaterOrEqual(t, best.ItemCopies(0), 6)
	assert.LessOrEqual(t, best.BinCopies(0), 6)
	assert.InDelta(t, 30.0, bound, 1e-3)
}

func TestLimitedDiscrepancySearchVBPP(t *testing.T) {
	builder := onedimensional.NewInstanceBuilder()
	builder.SetObjective(packing.ObjectiveVariableSizedBinPacking)
	builder.AddItemType(onedimensional.ItemType{Length: 4, Profit: -1, Copies: 4})
	builder.AddBinType(onedimensional.BinType{Length: 8, Cost: 5, Copies: 4})
	builder.AddBinType(onedimensional.BinType{Length: 4, Cost: 4, Copies: 4})
	instance, err := builder.Build()
	require.NoError(t, err)

	output, err := columngen.LimitedDiscrepancySearch(
		instance,
		onedimensional.NewInstanceBuilder,
		onedimensional.NewSolution,
		func(a, b *onedimensional.Solution) bool { return a.Better(b) },
		pricingFunc(t),
		nil, nil,
		columngen.Parameters{AutomaticStop: true},
	)
	require.NoError(t, err)

	best, ok := output.Pool.Best()
	require.True(t, ok)
	assert.True(t, best.Full())
	// Two 8-bins at cost 5 beat four 4-bins at cost 4.
	assert.InDelta(t, 10.0, best.Cost(), 1e-9)
}

func TestUnknownLPBackend(t *testing.T) {
	builder := onedimensional.NewInstanceBuilder()
	builder.SetObjective(packing.ObjectiveBinPacking)
	builder.AddItemType(onedimensional.ItemType{Length: 5, Profit: -1, Copies: 1})
	builder.AddBinType(onedimensional.BinType{Length: 10, Cost: -1, Copies: 1})
	instance, err := builder.Build()
	require.NoError(t, err)

	_, err = columngen.LimitedDiscrepancySearch(
		instance,
		onedimensional.NewInstanceBuilder,
		onedimensional.NewSolution,
		func(a, b *onedimensional.Solution) bool { return a.Better(b) },
		pricingFunc(t),
		nil, nil,
		columngen.Parameters{SolverBackend: "gurobi"},
	)
	assert.ErrorIs(t, err, packing.ErrUnavailableSolver)
}
