package treesearch

import (
	"testing"

	"github.com/DrSkyle/packbeam/pkg/packing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// subsetScheme is a toy branching scheme: pick numbers left to right to
// maximize their sum without exceeding the capacity.
type subsetScheme struct {
	numbers  []int64
	capacity int64
	counter  packing.NodeID
}

type subsetNode struct {
	id   packing.NodeID
	next int
	sum  int64
}

func (s *subsetScheme) Root() *subsetNode {
	s.counter++
	return &subsetNode{id: s.counter}
}

func (s *subsetScheme) Children(parent *subsetNode) []*subsetNode {
	var children []*subsetNode
	for i := parent.next; i < len(s.numbers); i++ {
		if parent.sum+s.numbers[i] > s.capacity {
			continue
		}
		s.counter++
		children = append(children, &subsetNode{
			id:   s.counter,
			next: i + 1,
			sum:  parent.sum + s.numbers[i],
		})
	}
	return children
}

func (s *subsetScheme) Leaf(n *subsetNode) bool { return n.next == len(s.numbers) }

func (s *subsetScheme) Better(a, b *subsetNode) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return a.sum > 0
	}
	return a.sum > b.sum
}

func (s *subsetScheme) Bound(n, best *subsetNode) bool {
	remaining := int64(0)
	for i := n.next; i < len(s.numbers); i++ {
		remaining += s.numbers[i]
	}
	return n.sum+remaining <= best.sum
}

func (s *subsetScheme) Less(a, b *subsetNode) bool {
	if a.sum != b.sum {
		return a.sum > b.sum
	}
	return a.id < b.id
}

func (s *subsetScheme) DominanceKey(n *subsetNode) uint64 { return uint64(n.next) }

func (s *subsetScheme) Dominates(a, b *subsetNode) bool {
	return a.next == b.next && a.sum >= b.sum
}

func TestIterativeBeamSearchFindsOptimum(t *testing.T) {
	scheme := &subsetScheme{numbers: []int64{7, 5, 4, 3, 1}, capacity: 10}
	output := IterativeBeamSearch[*subsetNode](scheme, Parameters[*subsetNode]{
		MaximumSizeOfTheQueue: 64,
	})
	require.True(t, output.HasSolution)
	assert.Equal(t, int64(10), output.BestNode.sum)
}

func TestIterativeBeamSearchCallbacksImprove(t *testing.T) {
	scheme := &subsetScheme{numbers: []int64{2, 3, 8, 5, 1}, capacity: 12}
	var sums []int64
	IterativeBeamSearch[*subsetNode](scheme, Parameters[*subsetNode]{
		MaximumSizeOfTheQueue: 64,
		NewSolutionCallback: func(o *Output[*subsetNode]) {
			sums = append(sums, o.BestNode.sum)
		},
	})
	require.NotEmpty(t, sums)
	for i := 1; i < len(sums); i++ {
		assert.Greater(t, sums[i], sums[i-1], "every report strictly improves")
	}
	assert.Equal(t, int64(12), sums[len(sums)-1])
}

func TestIterativeBeamSearchHonorsTimer(t *testing.T) {
	timer := packing.NewTimer(0)
	timer.SetEnd()
	scheme := &subsetScheme{numbers: []int64{1, 2, 3}, capacity: 6}
	output := IterativeBeamSearch[*subsetNode](scheme, Parameters[*subsetNode]{Timer: timer})
	assert.False(t, output.HasSolution)
}

func TestIterativeBeamSearchNarrowBeamStillTerminates(t *testing.T) {
	scheme := &subsetScheme{numbers: []int64{9, 8, 7, 6, 5}, capacity: 17}
	output := IterativeBeamSearch[*subsetNode](scheme, Parameters[*subsetNode]{
		MinimumSizeOfTheQueue: 1,
		MaximumSizeOfTheQueue: 1,
	})
	require.True(t, output.HasSolution)
	assert.LessOrEqual(t, output.BestNode.sum, int64(17))
}
