package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func resetFlags() {
	itemsPath, binsPath, defectsPath, parametersPath = "", "", "", ""
	outputPath, certificatePath, logPath = "", "", ""
	timeLimitSeconds, verbosityLevel = 0, 0
	objectiveToken = ""
	optimizationMode = "not-anytime-sequential"
	binInfiniteCopies, binInfiniteX, binInfiniteY = false, false, false
	itemInfiniteCopies, noItemRotation, unweighted = false, false, false
}

func TestOnedimensionalCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "items.csv"),
		"LENGTH,PROFIT,COPIES\n3,3,4\n4,5,3\n")
	writeFile(t, filepath.Join(dir, "bins.csv"),
		"LENGTH,COST,COPIES\n10,-1,1\n")
	writeFile(t, filepath.Join(dir, "parameters.csv"),
		"NAME,VALUE\nobjective,knapsack\n")

	resetFlags()
	itemsPath = filepath.Join(dir, "items.csv")
	binsPath = filepath.Join(dir, "bins.csv")
	parametersPath = filepath.Join(dir, "parameters.csv")
	outputPath = filepath.Join(dir, "output.json")
	certificatePath = filepath.Join(dir, "certificate.csv")

	require.NoError(t, onedimensionalCmd.RunE(onedimensionalCmd, nil))

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 11.0, summary["ItemProfit"])
	assert.Equal(t, 3.0, summary["NumberOfItems"])

	certificate, err := os.ReadFile(certificatePath)
	require.NoError(t, err)
	assert.Contains(t, string(certificate), "BIN")
	assert.Contains(t, string(certificate), "ITEM")
}

func TestOnedimensionalCommandMissingItems(t *testing.T) {
	resetFlags()
	err := onedimensionalCmd.RunE(onedimensionalCmd, nil)
	assert.Error(t, err)
}

func TestRectangleCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "items.csv"),
		"WIDTH,HEIGHT,PROFIT,COPIES,ORIENTED,GROUP_ID\n5,5,-1,4,0,0\n")
	writeFile(t, filepath.Join(dir, "bins.csv"),
		"WIDTH,HEIGHT,COST,COPIES\n10,10,-1,4\n")

	resetFlags()
	itemsPath = filepath.Join(dir, "items.csv")
	binsPath = filepath.Join(dir, "bins.csv")
	objectiveToken = "bin-packing"
	outputPath = filepath.Join(dir, "output.json")

	require.NoError(t, rectangleCmd.RunE(rectangleCmd, nil))

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 4.0, summary["NumberOfItems"])
	assert.Equal(t, 1.0, summary["NumberOfBins"])
}

func TestUnknownObjectiveFlag(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "items.csv"), "LENGTH\n3\n")

	resetFlags()
	itemsPath = filepath.Join(dir, "items.csv")
	objectiveToken = "minimize-vibes"
	err := onedimensionalCmd.RunE(onedimensionalCmd, nil)
	assert.Error(t, err)
}
