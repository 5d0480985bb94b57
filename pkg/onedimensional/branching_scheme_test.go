package onedimensional

import (
	"testing"

	"github.com/DrSkyle/packbeam/pkg/packing"
	"github.com/DrSkyle/packbeam/pkg/treesearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchingSchemeNodeInvariants(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		[]ItemType{
			{Length: 3, Profit: -1, Copies: 2},
			{Length: 4, Profit: -1, Copies: 2},
		},
		[]BinType{{Length: 10, Cost: -1, Copies: 2}},
	)
	scheme := NewBranchingScheme(instance, BranchingSchemeParameters{GuideID: 0})

	// Walk two levels and check: the item count equals the chain length,
	// and waste + item length equals the current length.
	root := scheme.Root()
	assert.Equal(t, 0, root.numberOfItems)
	for _, child := range scheme.Children(root) {
		assert.Equal(t, 1, child.numberOfItems)
		assert.Equal(t, child.currentLength, scheme.waste(child)+child.itemLength)
		for _, grandchild := range scheme.Children(child) {
			assert.Equal(t, 2, grandchild.numberOfItems)
			assert.Equal(t, grandchild.currentLength,
				scheme.waste(grandchild)+grandchild.itemLength)
			// Child guides never improve on the parent along the
			// monotone occupancy dimension.
			assert.GreaterOrEqual(t,
				grandchild.currentLength-grandchild.itemLength,
				child.currentLength-child.itemLength)
		}
	}
}

func TestBranchingSchemeNodeIDsAreDeterministic(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		[]ItemType{{Length: 3, Profit: -1, Copies: 3}},
		[]BinType{{Length: 10, Cost: -1, Copies: 1}},
	)
	collect := func() []packing.NodeID {
		scheme := NewBranchingScheme(instance, BranchingSchemeParameters{GuideID: 0})
		var ids []packing.NodeID
		queue := []*Node{scheme.Root()}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			ids = append(ids, node.id)
			queue = append(queue, scheme.Children(node)...)
		}
		return ids
	}
	assert.Equal(t, collect(), collect())
}

func TestBranchingSchemeDominance(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveBinPacking,
		[]ItemType{
			{Length: 3, Profit: -1, Copies: 1, NestingLength: 1},
			{Length: 3, Profit: -1, Copies: 1},
		},
		[]BinType{{Length: 10, Cost: -1, Copies: 1}},
	)
	scheme := NewBranchingScheme(instance, BranchingSchemeParameters{GuideID: 0})
	root := scheme.Root()
	children := scheme.Children(root)
	require.Len(t, children, 2)

	// Packing the nesting item second ends at 5, packing it first at 6:
	// after both orders place both items, the shorter frontier dominates.
	var first, second *Node
	for _, child := range children {
		for _, grandchild := range scheme.Children(child) {
			if grandchild.itemCopies[0] == 1 && grandchild.itemCopies[1] == 1 {
				if child.itemTypeID == 1 {
					first = grandchild // type 1 then nesting type 0: ends at 5
				} else {
					second = grandchild // type 0 then type 1: ends at 6
				}
			}
		}
	}
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, scheme.DominanceKey(first), scheme.DominanceKey(second))
	assert.True(t, scheme.Dominates(first, second))
	assert.False(t, scheme.Dominates(second, first))
}

func TestSchemeSolvesThroughEngine(t *testing.T) {
	instance := buildInstance(t, packing.ObjectiveBinPackingWithLeftovers,
		[]ItemType{
			{Length: 6, Profit: -1, Copies: 1},
			{Length: 3, Profit: -1, Copies: 1},
		},
		[]BinType{{Length: 10, Cost: -1, Copies: 1}},
	)
	scheme := NewBranchingScheme(instance, BranchingSchemeParameters{GuideID: 0})
	output := treesearch.IterativeBeamSearch[*Node](scheme, treesearch.Parameters[*Node]{
		MaximumSizeOfTheQueue: 16,
	})
	require.True(t, output.HasSolution)
	solution, err := scheme.ToSolution(output.BestNode)
	require.NoError(t, err)
	assert.True(t, solution.Full())
	assert.Equal(t, 0.0, solution.Waste())
}