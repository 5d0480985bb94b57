package irregular

import (
	"hash/fnv"
	"math"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// BranchingSchemeParameters selects the guide family.
type BranchingSchemeParameters struct {
	// GuideID selects the guide family (0..8).
	GuideID int
}

// UncoveredItem is one segment of the conservative skyline: the frontier
// of placed bounding boxes along x over a y range.
type UncoveredItem struct {
	ItemTypeID int // -1 for bare bin border

	XE float64
	YS float64
	YE float64
}

// Node is one partial irregular placement over bounding boxes.
type Node struct {
	id     packing.NodeID
	parent *Node

	itemTypeID int
	angle      float64
	newBin     bool
	x, y       float64

	numberOfBins  int
	numberOfItems int

	uncovered []UncoveredItem

	itemArea    float64
	currentArea float64
	profit      packing.Profit
	remaining   packing.Profit
	cost        packing.Profit
	xMax        float64
	yMax        float64

	itemCopies []int
}

// BranchingScheme defines the search tree of the irregular variant. The
// exact no-fit computation is a collaborator concern; this scheme packs the
// rotated bounding boxes with the configured minimum spacings, which is
// conservative: produced placements never overlap.
type BranchingScheme struct {
	instance   *Instance
	parameters BranchingSchemeParameters

	nodeCounter       packing.NodeID
	minCostEfficiency float64
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
		if eff := binType.Cost / binType.Area(); eff < scheme.minCostEfficiency {
			scheme.minCostEfficiency = eff
		}
	}
	return scheme
}

// Instance returns the instance the scheme searches.
func (b *BranchingScheme) Instance() *Instance { return b.instance }

// Root returns the empty partial placement.
func (b *BranchingScheme) Root() *Node {
	b.nodeCounter++
	return &Node{
		id:         b.nodeCounter,
		itemTypeID: -1,
		remaining:  b.instance.ItemProfit(),
		itemCopies: make([]int, b.instance.NumberOfItemTypes()),
	}
}

// Children generates the legal insertions from parent: each remaining item
// type and allowed rotation against each skyline segment of the last bin,
// and new-bin insertions when the current bin cannot take the item.
func (b *BranchingScheme) Children(parent *Node) []*Node {
	instance := b.instance
	var children []*Node

	for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
		if parent.itemCopies[itemTypeID] >= instance.ItemType(itemTypeID).Copies {
			continue
		}
		inserted := false
		for _, angle := range instance.rotations(itemTypeID) {
			if parent.numberOfBins > 0 {
				binTypeID := instance.BinTypeIDAt(parent.numberOfBins - 1)
				for pos := range parent.uncovered {
					if child := b.insert(parent, itemTypeID, angle, binTypeID, pos, false); child != nil {
						children = append(children, child)
						inserted = true
					}
				}
			}
		}
		if !inserted && parent.numberOfBins < instance.NumberOfBins() {
			binTypeID := instance.BinTypeIDAt(parent.numberOfBins)
			for _, angle := range instance.rotations(itemTypeID) {
				if child := b.insert(parent, itemTypeID, angle, binTypeID, 0, true); child != nil {
					children = append(children, child)
				}
			}
		}
	}
	return children
}

func (b *BranchingScheme) insert(parent *Node, itemTypeID int, angle float64, binTypeID, pos int, newBin bool) *Node {
	instance := b.instance
	itemType := instance.ItemType(itemTypeID)
	binType := instance.BinType(binTypeID)
	params := instance.Parameters()

	bxMin, byMin, bxMax, byMax := binType.Shape.BBox()
	margin := params.ItemBinMinimumSpacing
	spacing := params.ItemItemMinimumSpacing

	xMin, yMin, xMax, yMax := rotatedBBox(itemType, angle)
	width := xMax - xMin + spacing
	height := yMax - yMin + spacing

	var uncovered []UncoveredItem
	if newBin {
		uncovered = []UncoveredItem{{ItemTypeID: -1, XE: bxMin + margin, YS: byMin + margin, YE: byMax - margin}}
	} else {
		uncovered = parent.uncovered
	}

	ys := uncovered[pos].YS
	ye := ys + height
	if ye > byMax-margin+1e-9 {
		return nil
	}

	x := bxMin + margin
	for _, segment := range uncovered {
		if segment.YE <= ys+1e-9 || segment.YS >= ye-1e-9 {
			continue
		}
		if segment.XE > x {
			x = segment.XE
		}
	}

	// Defects are boxed conservatively too.
	for guard := 0; guard < 16; guard++ {
		moved := false
		for _, defect := range binType.Defects {
			dxMin, dyMin, dxMax, dyMax := defect.Shape.BBox()
			if x < dxMax && dxMin < x+width && ys < dyMax && dyMin < ye {
				x = dxMax
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	if x+width > bxMax-margin+1e-9 {
		return nil
	}

	b.nodeCounter++
	child := &Node{
		id:            b.nodeCounter,
		parent:        parent,
		itemTypeID:    itemTypeID,
		angle:         angle,
		newBin:        newBin,
		x:             x - xMin,
		y:             ys - yMin,
		numberOfBins:  parent.numberOfBins,
		numberOfItems: parent.numberOfItems + 1,
		itemArea:      parent.itemArea + itemType.Area(),
		profit:        parent.profit + itemType.Profit,
		remaining:     parent.remaining - itemType.Profit,
		cost:          parent.cost,
		itemCopies:    append([]int(nil), parent.itemCopies...),
		xMax:          parent.xMax,
		yMax:          parent.yMax,
	}
	child.itemCopies[itemTypeID]++
	if newBin {
		child.numberOfBins++
		child.cost += binType.Cost
	}
	if x+width > child.xMax {
		child.xMax = x + width
	}
	if ye > child.yMax {
		child.yMax = ye
	}

	inserted := UncoveredItem{ItemTypeID: itemTypeID, XE: x + width, YS: ys, YE: ye}
	var result []UncoveredItem
	added := false
	for _, segment := range uncovered {
		if segment.YE <= inserted.YS || segment.YS >= inserted.YE {
			result = append(result, segment)
			continue
		}
		if segment.YS < inserted.YS {
			before := segment
			before.YE = inserted.YS
			result = append(result, before)
		}
		if !added {
			result = append(result, inserted)
			added = true
		}
		if segment.YE > inserted.YE {
			after := segment
			after.YS = inserted.YE
			result = append(result, after)
		}
	}
	if !added {
		result = append(result, inserted)
	}
	child.uncovered = result

	child.currentArea = 0
	if child.numberOfBins > 0 {
		child.currentArea = instance.PreviousBinsArea(child.numberOfBins - 1)
	}
	for _, segment := range child.uncovered {
		child.currentArea += segment.XE * (segment.YE - segment.YS)
	}
	return child
}

// Leaf reports whether no more items can be added.
func (b *BranchingScheme) Leaf(node *Node) bool {
	return node.numberOfItems == b.instance.NumberOfItems()
}

// Better reports whether a beats other under the objective; other may be
// nil.
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
		return other == nil || a.currentArea-a.itemArea < other.currentArea-other.itemArea
	case packing.ObjectiveVariableSizedBinPacking:
		if !full {
			return false
		}
		return other == nil || a.cost < other.cost
	case packing.ObjectiveOpenDimensionX:
		if !full {
			return false
		}
		return other == nil || a.xMax < other.xMax
	case packing.ObjectiveOpenDimensionY:
		if !full {
			return false
		}
		return other == nil || a.yMax < other.yMax
	default:
		if !full {
			return false
		}
		return other == nil || a.numberOfBins < other.numberOfBins
	}
}

// Bound reports whether node cannot improve on the current best leaf.
func (b *BranchingScheme) Bound(node, best *Node) bool {
	if best == nil {
		return false
	}
	instance := b.instance
	switch instance.Objective() {
	case packing.ObjectiveKnapsack:
		remainingSpace := instance.BinArea() - node.currentArea
		ub := node.profit + math.Min(node.remaining, instance.MaxEfficiency()*remainingSpace)
		return ub <= best.profit
	case packing.ObjectiveVariableSizedBinPacking:
		remainingArea := instance.ItemArea() - node.itemArea
		return node.cost+remainingArea*b.minCostEfficiency >= best.cost
	case packing.ObjectiveOpenDimensionX:
		return node.numberOfBins > 0 && node.xMax >= best.xMax
	case packing.ObjectiveOpenDimensionY:
		return node.numberOfBins > 0 && node.yMax >= best.yMax
	case packing.ObjectiveBinPackingWithLeftovers:
		return node.currentArea-node.itemArea >= best.currentArea-best.itemArea
	default:
		return node.numberOfBins > best.numberOfBins
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

func (b *BranchingScheme) guide(node *Node) float64 {
	if node.numberOfItems == 0 || node.itemArea == 0 {
		return math.Inf(1)
	}
	occupancy := node.currentArea / node.itemArea
	meanPacked := node.itemArea / float64(node.numberOfItems)
	switch b.parameters.GuideID {
	case 0, 2:
		return occupancy
	case 1, 3:
		return occupancy / meanPacked
	case 4:
		return -node.profit
	case 5:
		if node.profit <= 0 {
			return math.Inf(1)
		}
		return node.currentArea / node.profit
	case 6:
		if node.profit <= 0 {
			return math.Inf(1)
		}
		return node.currentArea / node.profit / meanPacked
	case 7:
		return -node.profit
	case 8:
		return node.xMax
	default:
		return occupancy
	}
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

// Dominates compares skylines pointwise over y.
func (b *BranchingScheme) Dominates(node, other *Node) bool {
	if node.numberOfBins != other.numberOfBins {
		return false
	}
	for i, c := range node.itemCopies {
		if c != other.itemCopies[i] {
			return false
		}
	}
	i, j := 0, 0
	for i < len(node.uncovered) && j < len(other.uncovered) {
		a, c := node.uncovered[i], other.uncovered[j]
		if a.YE <= c.YS {
			i++
			continue
		}
		if c.YE <= a.YS {
			j++
			continue
		}
		if a.XE > c.XE+1e-9 {
			return false
		}
		if a.YE <= c.YE {
			i++
		} else {
			j++
		}
	}
	return true
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
		if err := solution.AddItem(binPos, step.itemTypeID, step.x, step.y, step.angle); err != nil {
			return nil, err
		}
	}
	return solution, nil
}
