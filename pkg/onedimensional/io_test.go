package onedimensional

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DrSkyle/packbeam/pkg/packing"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceCSVRoundTrip(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveVariableSizedBinPacking,
		[]ItemType{
			{Length: 3, Profit: 3, Copies: 4, Weight: 1.5},
			{Length: 4, Profit: 5, Copies: 3, NestingLength: 1, EligibilityID: 2},
		},
		[]BinType{
			{Length: 10, Cost: 12, Copies: 5, CopiesMin: 1},
			{Length: 7, Cost: 9, Copies: 5},
		},
	)

	dir := t.TempDir()
	itemsPath := filepath.Join(dir, "items.csv")
	binsPath := filepath.Join(dir, "bins.csv")
	parametersPath := filepath.Join(dir, "parameters.csv")
	require.NoError(t, instance.WriteItemTypes(itemsPath))
	require.NoError(t, instance.WriteBinTypes(binsPath))
	require.NoError(t, instance.WriteParameters(parametersPath))

	builder := NewInstanceBuilder()
	require.NoError(t, builder.ReadItemTypes(itemsPath))
	require.NoError(t, builder.ReadBinTypes(binsPath))
	require.NoError(t, builder.ReadParameters(parametersPath))
	reread, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, instance.Objective(), reread.Objective())
	require.Equal(t, instance.NumberOfItemTypes(), reread.NumberOfItemTypes())
	for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
		assert.Equal(t, instance.ItemType(itemTypeID), reread.ItemType(itemTypeID))
	}
	require.Equal(t, instance.NumberOfBinTypes(), reread.NumberOfBinTypes())
	for binTypeID := 0; binTypeID < instance.NumberOfBinTypes(); binTypeID++ {
		assert.Equal(t, instance.BinType(binTypeID), reread.BinType(binTypeID))
	}
	assert.Equal(t, instance.NumberOfBins(), reread.NumberOfBins())
	assert.Equal(t, instance.ItemLength(), reread.ItemLength())
}

func TestMissingRequiredColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.csv")
	require.NoError(t, os.WriteFile(path, []byte("WIDTH,COPIES\n3,1\n"), 0o644))

	builder := NewInstanceBuilder()
	err := builder.ReadItemTypes(path)
	assert.True(t, errors.Is(err, packing.ErrInvalidInput))
}

func TestCertificateRoundTrip(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		[]ItemType{
			{Length: 3, Profit: -1, Copies: 4},
			{Length: 4, Profit: -1, Copies: 2},
		},
		[]BinType{{Length: 10, Cost: -1, Copies: 3}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 0))
	require.NoError(t, solution.AddItem(binPos, 0))
	require.NoError(t, solution.AddItem(binPos, 1))
	binPos, err = solution.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 0))
	require.NoError(t, solution.AddItem(binPos, 0))
	require.NoError(t, solution.AddItem(binPos, 1))

	dir := t.TempDir()
	path := filepath.Join(dir, "certificate.csv")
	require.NoError(t, solution.WriteCertificate(path))

	reread, err := ReadCertificate(instance, path)
	require.NoError(t, err)
	assert.Equal(t, solution.NumberOfItems(), reread.NumberOfItems())
	assert.Equal(t, solution.NumberOfBins(), reread.NumberOfBins())
	assert.Equal(t, solution.Profit(), reread.Profit())
	assert.Equal(t, solution.Waste(), reread.Waste())
	assert.Equal(t, solution.ItemLength(), reread.ItemLength())
}

func TestCertificateGolden(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		[]ItemType{
			{Length: 3, Profit: -1, Copies: 2},
			{Length: 7, Profit: -1, Copies: 1},
		},
		[]BinType{{Length: 10, Cost: -1, Copies: 2}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 1))
	require.NoError(t, solution.AddItem(binPos, 0))
	binPos, err = solution.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 0))

	dir := t.TempDir()
	path := filepath.Join(dir, "certificate.csv")
	require.NoError(t, solution.WriteCertificate(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "certificate_onedimensional", data)
}

func TestJSONSummary(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		[]ItemType{{Length: 5, Profit: -1, Copies: 2}},
		[]BinType{{Length: 10, Cost: -1, Copies: 1}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 0))
	require.NoError(t, solution.AddItem(binPos, 0))

	var out packing.JSONOutput
	solution.FillJSON(&out)
	assert.Equal(t, 2, out.NumberOfItems)
	assert.Equal(t, 1, out.NumberOfBins)
	assert.Equal(t, 0.0, out.Waste)
	assert.Equal(t, 1.0, out.VolumeLoad)
	assert.Equal(t, packing.Length(10), out.XMax)
}
