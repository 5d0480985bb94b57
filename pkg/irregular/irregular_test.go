package irregular

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/DrSkyle/packbeam/pkg/packing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangle(base, height float64) Shape {
	points := []Point{{0, 0}, {base, 0}, {0, height}}
	shape := Shape{}
	for i := range points {
		shape.Elements = append(shape.Elements, ShapeElement{
			Type:  ShapeElementLine,
			Start: points[i],
			End:   points[(i+1)%len(points)],
		})
	}
	return shape
}

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

func TestShapeAreaAndBBox(t *testing.T) {
	square := RectangleShape(4, 3)
	assert.InDelta(t, 12.0, square.Area(), 1e-9)
	xMin, yMin, xMax, yMax := square.BBox()
	assert.Equal(t, 0.0, xMin)
	assert.Equal(t, 0.0, yMin)
	assert.Equal(t, 4.0, xMax)
	assert.Equal(t, 3.0, yMax)

	tri := triangle(4, 3)
	assert.InDelta(t, 6.0, tri.Area(), 1e-9)
}

func TestShapeRotate(t *testing.T) {
	square := RectangleShape(4, 2)
	rotated := square.Rotate(90)
	xMin, yMin, xMax, yMax := rotated.BBox()
	assert.InDelta(t, -2.0, xMin, 1e-9)
	assert.InDelta(t, 0.0, yMin, 1e-9)
	assert.InDelta(t, 0.0, xMax, 1e-9)
	assert.InDelta(t, 4.0, yMax, 1e-9)
	assert.InDelta(t, 8.0, rotated.Area(), 1e-9)
}

func TestOptimizeKnapsackTriangles(t *testing.T) {
	// Two 4x3 triangles fit the 10x10 bin on their bounding boxes.
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{
			Shapes: []ItemShape{{Shape: triangle(4, 3)}},
			Profit: 5,
			Copies: 2,
		}},
		[]BinType{{Shape: RectangleShape(10, 10), Cost: -1, Copies: 1}},
	)
	output, err := Optimize(instance, OptimizeParameters{
		Mode:      packing.NotAnytimeSequential,
		TimeLimit: 30 * time.Second,
		Logger:    packing.DiscardLogger(),
	})
	require.NoError(t, err)
	best, ok := output.Pool.Best()
	require.True(t, ok)
	assert.Equal(t, packing.Profit(10), best.Profit())
	assert.True(t, best.Full())
}

func TestOptimizeRotationRequired(t *testing.T) {
	// A 6x2 plank in a 3x8 bin fits only rotated by 90 degrees.
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{
			Shapes:           []ItemShape{{Shape: RectangleShape(6, 2)}},
			Profit:           3,
			Copies:           1,
			AllowedRotations: []float64{0, 90},
		}},
		[]BinType{{Shape: RectangleShape(3, 8), Cost: -1, Copies: 1}},
	)
	output, err := Optimize(instance, OptimizeParameters{
		Mode:   packing.NotAnytimeSequential,
		Logger: packing.DiscardLogger(),
	})
	require.NoError(t, err)
	best, ok := output.Pool.Best()
	require.True(t, ok)
	require.Equal(t, packing.Profit(3), best.Profit())
	assert.Equal(t, 90.0, best.Bin(0).Items[0].Angle)
}

func TestInstanceJSONRoundTrip(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{
			Shapes:           []ItemShape{{Shape: triangle(4, 3)}},
			Profit:           5,
			Copies:           2,
			AllowedRotations: []float64{0, 180},
		}},
		[]BinType{{Shape: RectangleShape(10, 10), Cost: 7, Copies: 3}},
	)
	dir := t.TempDir()
	path := filepath.Join(dir, "instance.json")
	require.NoError(t, instance.WriteJSON(path))

	builder := NewInstanceBuilder()
	require.NoError(t, builder.ReadJSON(path))
	reread, err := builder.Build()
	require.NoError(t, err)
	assert.Equal(t, instance.Objective(), reread.Objective())
	assert.Equal(t, instance.NumberOfItems(), reread.NumberOfItems())
	assert.InDelta(t, instance.ItemArea(), reread.ItemArea(), 1e-9)
	assert.Equal(t, instance.BinType(0).Cost, reread.BinType(0).Cost)
}

func TestCertificateRoundTrip(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveKnapsack,
		[]ItemType{{
			Shapes: []ItemShape{{Shape: RectangleShape(2, 2)}},
			Profit: 1,
			Copies: 2,
		}},
		[]BinType{{Shape: RectangleShape(10, 10), Cost: -1, Copies: 1}},
	)
	solution := NewSolution(instance)
	binPos, err := solution.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, solution.AddItem(binPos, 0, 0, 0, 0))
	require.NoError(t, solution.AddItem(binPos, 0, 2.5, 0, 0))

	dir := t.TempDir()
	path := filepath.Join(dir, "certificate.csv")
	require.NoError(t, solution.WriteCertificate(path))
	reread, err := ReadCertificate(instance, path)
	require.NoError(t, err)
	assert.Equal(t, solution.NumberOfItems(), reread.NumberOfItems())
	assert.Equal(t, solution.Profit(), reread.Profit())
	assert.InDelta(t, solution.XMax(), reread.XMax(), 1e-9)
}
