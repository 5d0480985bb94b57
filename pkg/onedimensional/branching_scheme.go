package onedimensional

import (
	"hash/fnv"
	"math"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// BranchingSchemeParameters selects the guide family and search policies.
type BranchingSchemeParameters struct {
	// GuideID selects the guide family (0..8).
	GuideID int
}

// BranchingScheme defines the search tree of the one-dimensional variant.
// Items are appended to the frontier of the last bin; the frontier is the
// single coordinate of the last packed item, which makes the skyline of
// this variant one uncovered segment.
//
// A scheme instance is used by a single worker: node ids are assigned
// sequentially without synchronisation, which keeps the beam order
// deterministic.
type BranchingScheme struct {
	instance   *Instance
	parameters BranchingSchemeParameters

	nodeCounter packing.NodeID

	// minCostEfficiency is the cheapest cost per length over bin types.
	minCostEfficiency float64
	// totalNesting bounds how much waste nesting can still recover.
	totalNesting packing.Length
}

// Node is one partial placement. Nodes are shared across the beam through
// parent pointers; the garbage collector reclaims chains once no beam entry
// references them.
type Node struct {
	id     packing.NodeID
	parent *Node

	// itemTypeID is the last inserted item type; -1 on the root.
	itemTypeID int
	// newBin is set when the insertion opened a new bin.
	newBin bool

	numberOfBins  int
	numberOfItems int

	// Frontier of the last bin.
	binEnd                  packing.Length
	binWeight               packing.Weight
	binRemainingWeightAfter packing.Weight
	binMaximumStackability  int
	binNumberOfItems        int

	// Aggregates along the chain from the root.
	itemLength      packing.Length
	currentLength   packing.Length
	profit          packing.Profit
	remainingProfit packing.Profit
	cost            packing.Profit

	itemCopies []int
}

// NewBranchingScheme builds a scheme over an instance.
func NewBranchingScheme(instance *Instance, parameters BranchingSchemeParameters) *BranchingScheme {
	scheme := &BranchingScheme{
		instance:          instance,
		parameters:        parameters,
		minCostEfficiency: math.Inf(1),
	}
	for binTypeID := 0; binTypeID < instance.NumberOfBinTypes(); binTypeID++ {
		binType := instance.BinType(binTypeID)
		if eff := binType.Cost / float64(binType.Length); eff < scheme.minCostEfficiency {
			scheme.minCostEfficiency = eff
		}
	}
	for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
		itemType := instance.ItemType(itemTypeID)
		if itemType.NestingLength > 0 {
			scheme.totalNesting += packing.Length(itemType.Copies) * itemType.NestingLength
		}
	}
	return scheme
}

// Instance returns the instance the scheme searches.
func (b *BranchingScheme) Instance() *Instance { return b.instance }

// Parameters returns the scheme parameters.
func (b *BranchingScheme) Parameters() BranchingSchemeParameters { return b.parameters }

// Root returns the empty partial placement.
func (b *BranchingScheme) Root() *Node {
	b.nodeCounter++
	return &Node{
		id:              b.nodeCounter,
		itemTypeID:      -1,
		remainingProfit: b.instance.ItemProfit(),
		itemCopies:      make([]int, b.instance.NumberOfItemTypes()),
	}
}

// Children generates the legal insertions from parent: every item type with
// copies left is tried against the frontier of the last bin; a new bin is
// opened only for item types the current bin cannot take.
func (b *BranchingScheme) Children(parent *Node) []*Node {
	instance := b.instance
	var children []*Node

	for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
		itemType := instance.ItemType(itemTypeID)
		if parent.itemCopies[itemTypeID] >= itemType.Copies {
			continue
		}

		inserted := false
		if parent.numberOfBins > 0 {
			binTypeID := instance.BinTypeIDAt(parent.numberOfBins - 1)
			if child := b.insertSameBin(parent, itemTypeID, binTypeID); child != nil {
				children = append(children, child)
				inserted = true
			}
		}
		if !inserted && parent.numberOfBins < instance.NumberOfBins() {
			binTypeID := instance.BinTypeIDAt(parent.numberOfBins)
			if child := b.insertNewBin(parent, itemTypeID, binTypeID); child != nil {
				children = append(children, child)
			}
		}
	}
	return children
}

func (b *BranchingScheme) insertSameBin(parent *Node, itemTypeID, binTypeID int) *Node {
	instance := b.instance
	itemType := instance.ItemType(itemTypeID)
	binType := instance.BinType(binTypeID)
	if !instance.eligible(itemTypeID, binTypeID) {
		return nil
	}

	start := parent.binEnd - itemType.NestingLength
	if start < 0 {
		start = 0
	}
	end := start + itemType.Length
	if end > binType.Length {
		return nil
	}
	if parent.binWeight+itemType.Weight > binType.MaximumWeight {
		return nil
	}
	if itemType.Weight > parent.binRemainingWeightAfter {
		return nil
	}
	stackability := parent.binMaximumStackability
	if itemType.MaximumStackability < stackability {
		stackability = itemType.MaximumStackability
	}
	if parent.binNumberOfItems+1 > stackability {
		return nil
	}

	child := b.child(parent, itemTypeID, false)
	child.binEnd = end
	child.binWeight = parent.binWeight + itemType.Weight
	child.binRemainingWeightAfter = math.Min(
		parent.binRemainingWeightAfter-itemType.Weight,
		itemType.MaximumWeightAfter)
	child.binMaximumStackability = stackability
	child.binNumberOfItems = parent.binNumberOfItems + 1
	child.currentLength = parent.currentLength + (end - parent.binEnd)
	return child
}

func (b *BranchingScheme) insertNewBin(parent *Node, itemTypeID, binTypeID int) *Node {
	instance := b.instance
	itemType := instance.ItemType(itemTypeID)
	binType := instance.BinType(binTypeID)
	if !instance.eligible(itemTypeID, binTypeID) {
		return nil
	}
	if itemType.Length > binType.Length {
		return nil
	}
	if itemType.Weight > binType.MaximumWeight {
		return nil
	}

	child := b.child(parent, itemTypeID, true)
	child.numberOfBins = parent.numberOfBins + 1
	child.binEnd = itemType.Length
	child.binWeight = itemType.Weight
	child.binRemainingWeightAfter = itemType.MaximumWeightAfter
	child.binMaximumStackability = itemType.MaximumStackability
	child.binNumberOfItems = 1
	child.currentLength = instance.PreviousBinsLength(parent.numberOfBins) + itemType.Length
	child.cost = parent.cost + binType.Cost
	return child
}

// child clones the shared part of a new node.
func (b *BranchingScheme) child(parent *Node, itemTypeID int, newBin bool) *Node {
	itemType := b.instance.ItemType(itemTypeID)
	b.nodeCounter++
	child := &Node{
		id:              b.nodeCounter,
		parent:          parent,
		itemTypeID:      itemTypeID,
		newBin:          newBin,
		numberOfBins:    parent.numberOfBins,
		numberOfItems:   parent.numberOfItems + 1,
		itemLength:      parent.itemLength + itemType.Length,
		profit:          parent.profit + itemType.Profit,
		remainingProfit: parent.remainingProfit - itemType.Profit,
		cost:            parent.cost,
		itemCopies:      append([]int(nil), parent.itemCopies...),
	}
	child.itemCopies[itemTypeID]++
	return child
}

// Leaf reports whether no more items can be added.
func (b *BranchingScheme) Leaf(node *Node) bool {
	return node.numberOfItems == b.instance.NumberOfItems()
}

// Better reports whether a beats b under the objective; b may be nil.
func (b *BranchingScheme) Better(a, other *Node) bool {
	if a == nil {
		return false
	}
	full := a.numberOfItems == b.instance.NumberOfItems()
	switch b.instance.Objective() {
	case packing.ObjectiveKnapsack:
		if other == nil {
			return a.profit > 0
		}
		return a.profit > other.profit
	case packing.ObjectiveBinPackingWithLeftovers:
		if !full {
			return false
		}
		if other == nil {
			return true
		}
		return b.waste(a) < b.waste(other)
	case packing.ObjectiveVariableSizedBinPacking:
		if !full {
			return false
		}
		if other == nil {
			return true
		}
		return a.cost < other.cost
	default:
		if !full {
			return false
		}
		if other == nil {
			return true
		}
		return a.numberOfBins < other.numberOfBins
	}
}

// waste is the used length not covered by items, the last bin counted up to
// its frontier.
func (b *BranchingScheme) waste(node *Node) packing.Length {
	return node.currentLength - node.itemLength
}

// Bound reports whether node cannot improve on the current best leaf.
func (b *BranchingScheme) Bound(node, best *Node) bool {
	if best == nil {
		return false
	}
	instance := b.instance
	switch instance.Objective() {
	case packing.ObjectiveKnapsack:
		remainingSpace := float64(instance.BinLength() - node.currentLength)
		ub := node.profit + math.Min(node.remainingProfit, instance.MaxEfficiency()*remainingSpace)
		return ub <= best.profit
	case packing.ObjectiveBinPackingWithLeftovers:
		return b.waste(node)-b.totalNesting >= b.waste(best)
	case packing.ObjectiveVariableSizedBinPacking:
		remainingLength := float64(instance.ItemLength() - node.itemLength - b.totalNesting)
		if remainingLength < 0 {
			remainingLength = 0
		}
		return node.cost+remainingLength*b.minCostEfficiency >= best.cost
	default:
		remainingLength := instance.ItemLength() - node.itemLength - b.totalNesting
		capacityLeft := packing.Length(0)
		if node.numberOfBins > 0 {
			binType := instance.BinType(instance.BinTypeIDAt(node.numberOfBins - 1))
			capacityLeft = binType.Length - node.binEnd
		}
		extra := 0
		if remainingLength > capacityLeft {
			largest := packing.Length(packing.LargestBinSpace(instance))
			if largest > 0 {
				extra = int((remainingLength - capacityLeft + largest - 1) / largest)
			}
		}
		return node.numberOfBins+extra >= best.numberOfBins
	}
}

// Less is the guide order, low first, with the node id as tie-break.
func (b *BranchingScheme) Less(a, other *Node) bool {
	ga, gb := b.guide(a), b.guide(other)
	if ga != gb {
		return ga < gb
	}
	return a.id < other.id
}

// guide evaluates the configured guide family. The families differ only in
// the scalar combining function, so they are evaluated inline from the
// node aggregates.
func (b *BranchingScheme) guide(node *Node) float64 {
	if node.numberOfItems == 0 {
		return math.Inf(1)
	}
	occupancy := float64(node.currentLength) / float64(node.itemLength)
	meanPacked := float64(node.itemLength) / float64(node.numberOfItems)
	switch b.parameters.GuideID {
	case 0:
		return occupancy
	case 1:
		return occupancy / meanPacked
	case 2:
		return occupancy * (1 + b.weightLoad(node))
	case 3:
		return occupancy * (1 + b.weightLoad(node)) / meanPacked
	case 4:
		return -node.profit
	case 5:
		if node.profit <= 0 {
			return math.Inf(1)
		}
		return float64(node.currentLength) / node.profit
	case 6:
		if node.profit <= 0 {
			return math.Inf(1)
		}
		return float64(node.currentLength) / node.profit / meanPacked
	case 7:
		return -node.profit + b.weightLoad(node)
	case 8:
		return float64(node.binEnd)
	default:
		return occupancy
	}
}

// weightLoad is the current bin's weight utilisation, zero when the bin has
// no weight bound.
func (b *BranchingScheme) weightLoad(node *Node) float64 {
	if node.numberOfBins == 0 {
		return 0
	}
	binType := b.instance.BinType(b.instance.BinTypeIDAt(node.numberOfBins - 1))
	if math.IsInf(binType.MaximumWeight, 1) || binType.MaximumWeight == 0 {
		return 0
	}
	return node.binWeight / binType.MaximumWeight
}

// DominanceKey buckets nodes packing the same item multiset in the same
// number of bins.
func (b *BranchingScheme) DominanceKey(node *Node) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v int) {
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf[:])
	}
	put(node.numberOfBins)
	for _, c := range node.itemCopies {
		put(c)
	}
	return h.Sum64()
}

// Dominates reports whether every completion of other is reachable, no
// worse, from node: same packed items and bins, a frontier at most as far,
// and no tighter weight or stackability slack.
func (b *BranchingScheme) Dominates(node, other *Node) bool {
	if node.numberOfBins != other.numberOfBins {
		return false
	}
	for i, c := range node.itemCopies {
		if c != other.itemCopies[i] {
			return false
		}
	}
	return node.binEnd <= other.binEnd &&
		node.binWeight <= other.binWeight &&
		node.binRemainingWeightAfter >= other.binRemainingWeightAfter &&
		node.binMaximumStackability-node.binNumberOfItems >= other.binMaximumStackability-other.binNumberOfItems
}

// ToSolution replays the insertion chain into a Solution.
func (b *BranchingScheme) ToSolution(node *Node) (*Solution, error) {
	var chain []*Node
	for n := node; n != nil && n.itemTypeID >= 0; n = n.parent {
		chain = append(chain, n)
	}
	solution := NewSolution(b.instance)
	binPos := -1
	bins := 0
	for i := len(chain) - 1; i >= 0; i-- {
		step := chain[i]
		if step.newBin {
			var err error
			binPos, err = solution.AddBin(b.instance.BinTypeIDAt(bins), 1)
			if err != nil {
				return nil, err
			}
			bins++
		}
		if err := solution.AddItem(binPos, step.itemTypeID); err != nil {
			return nil, err
		}
	}
	return solution, nil
}
