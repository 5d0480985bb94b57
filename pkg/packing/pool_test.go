package packing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolutionPoolKeepsBestFirst(t *testing.T) {
	better := func(a, b int) bool { return a > b }
	pool := NewSolutionPool[int](3, better)

	assert.True(t, pool.Add(5))
	assert.False(t, pool.Add(3))
	assert.True(t, pool.Add(8))
	assert.False(t, pool.Add(1)) // dropped: over capacity and worst
	assert.Equal(t, 3, pool.Len())

	best, ok := pool.Best()
	require.True(t, ok)
	assert.Equal(t, 8, best)
	worst, ok := pool.Worst()
	require.True(t, ok)
	assert.Equal(t, 3, worst)
}

func TestSolutionPoolBestIsMonotone(t *testing.T) {
	better := func(a, b int) bool { return a > b }
	pool := NewSolutionPool[int](2, better)

	previous := -1
	for _, v := range []int{4, 2, 9, 1, 9, 12, 3} {
		pool.Add(v)
		best, ok := pool.Best()
		require.True(t, ok)
		assert.GreaterOrEqual(t, best, previous)
		previous = best
	}
}

func TestSolutionPoolEmpty(t *testing.T) {
	pool := NewSolutionPool[int](1, func(a, b int) bool { return a > b })
	_, ok := pool.Best()
	assert.False(t, ok)
	_, ok = pool.Worst()
	assert.False(t, ok)
}
