package rectangle

import (
	"hash/fnv"
	"math"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// BranchingSchemeParameters selects the guide family and the packing
// direction.
type BranchingSchemeParameters struct {
	// GuideID selects the guide family (0..8).
	GuideID int

	// DirectionY packs along the y axis instead of x; used for the
	// open-dimension-y objective. Coordinates are transposed internally
	// and restored in ToSolution.
	DirectionY bool
}

// UncoveredItem is one segment of the skyline: the frontier along the
// packing direction over a y range. The item type id is the segment's
// back-reference; only derived data is stored, never an ownership edge.
type UncoveredItem struct {
	ItemTypeID int // -1 for bare bin border
	GroupID    int

	XE packing.Length // frontier
	YS packing.Length
	YE packing.Length
}

// NodeGroup tracks per-group extents in the last bin for the unloading
// constraints.
type NodeGroup struct {
	NumberOfItems int
	XMin          packing.Length
	XMax          packing.Length
}

// Node is one partial rectangle placement.
type Node struct {
	id     packing.NodeID
	parent *Node

	itemTypeID int
	rotated    bool
	newBin     bool
	x, y       packing.Length

	numberOfBins  int
	numberOfItems int

	uncovered []UncoveredItem
	groups    []NodeGroup

	binWeight packing.Weight
	xMax      packing.Length
	yMax      packing.Length

	itemArea    packing.Area
	currentArea packing.Area
	profit      packing.Profit
	remaining   packing.Profit
	cost        packing.Profit

	itemCopies []int
}

// BranchingScheme defines the search tree of the rectangle variant. All
// placements follow the skyline model: the next item is placed tangent to
// one uncovered segment, updating the skyline.
//
// A scheme instance serves one worker; node ids are assigned sequentially
// without synchronisation.
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
		if eff := binType.Cost / float64(binType.Area()); eff < scheme.minCostEfficiency {
			scheme.minCostEfficiency = eff
		}
	}
	return scheme
}

// Instance returns the instance the scheme searches.
func (b *BranchingScheme) Instance() *Instance { return b.instance }

// Parameters returns the scheme parameters.
func (b *BranchingScheme) Parameters() BranchingSchemeParameters { return b.parameters }

// binDims returns the bin dimensions in scheme space (transposed when
// packing along y).
func (b *BranchingScheme) binDims(binTypeID int) (packing.Length, packing.Length) {
	binType := b.instance.BinType(binTypeID)
	if b.parameters.DirectionY {
		return binType.Height, binType.Width
	}
	return binType.Width, binType.Height
}

// itemDims returns the item dimensions in scheme space for a rotation.
func (b *BranchingScheme) itemDims(itemTypeID int, rotated bool) (packing.Length, packing.Length) {
	itemType := b.instance.ItemType(itemTypeID)
	width, height := itemType.Width, itemType.Height
	if rotated {
		width, height = height, width
	}
	if b.parameters.DirectionY {
		return height, width
	}
	return width, height
}

// defects returns the bin defects in scheme space.
func (b *BranchingScheme) defects(binTypeID int) []Defect {
	binType := b.instance.BinType(binTypeID)
	if !b.parameters.DirectionY {
		return binType.Defects
	}
	transposed := make([]Defect, len(binType.Defects))
	for i, d := range binType.Defects {
		transposed[i] = Defect{X: d.Y, Y: d.X, Width: d.Height, Height: d.Width}
	}
	return transposed
}

// Root returns the empty partial placement.
func (b *BranchingScheme) Root() *Node {
	b.nodeCounter++
	return &Node{
		id:         b.nodeCounter,
		itemTypeID: -1,
		remaining:  b.instance.ItemProfit(),
		itemCopies: make([]int, b.instance.NumberOfItemTypes()),
		groups:     make([]NodeGroup, b.instance.NumberOfGroups()),
	}
}

// Children generates the legal insertions from parent: each item type and
// rotation against each uncovered segment of the last bin, and new-bin
// insertions for item types the current bin cannot take.
func (b *BranchingScheme) Children(parent *Node) []*Node {
	instance := b.instance
	var children []*Node

	for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
		if parent.itemCopies[itemTypeID] >= instance.ItemType(itemTypeID).Copies {
			continue
		}
		inserted := false
		for _, rotated := range instance.rotations(itemTypeID) {
			if parent.numberOfBins > 0 {
				binTypeID := instance.BinTypeIDAt(parent.numberOfBins - 1)
				for pos := range parent.uncovered {
					if child := b.insert(parent, itemTypeID, rotated, binTypeID, pos, false); child != nil {
						children = append(children, child)
						inserted = true
					}
				}
			}
		}
		if !inserted && parent.numberOfBins < instance.NumberOfBins() {
			binTypeID := instance.BinTypeIDAt(parent.numberOfBins)
			for _, rotated := range instance.rotations(itemTypeID) {
				if child := b.insert(parent, itemTypeID, rotated, binTypeID, 0, true); child != nil {
					children = append(children, child)
				}
			}
		}
	}
	return children
}

// insert attempts one placement: item itemTypeID with the given rotation,
// anchored at uncovered segment pos (or the floor of a fresh bin).
func (b *BranchingScheme) insert(parent *Node, itemTypeID int, rotated bool, binTypeID, pos int, newBin bool) *Node {
	instance := b.instance
	itemType := instance.ItemType(itemTypeID)
	binWidth, binHeight := b.binDims(binTypeID)
	width, height := b.itemDims(itemTypeID, rotated)

	var uncovered []UncoveredItem
	if newBin {
		uncovered = []UncoveredItem{{ItemTypeID: -1, GroupID: -1, XE: 0, YS: 0, YE: binHeight}}
	} else {
		uncovered = parent.uncovered
	}

	ys := uncovered[pos].YS
	ye := ys + height
	if ye > binHeight {
		return nil
	}

	// The anchor x is the deepest frontier over the covered y range.
	x := packing.Length(0)
	for _, segment := range uncovered {
		if segment.YE <= ys || segment.YS >= ye {
			continue
		}
		if segment.XE > x {
			x = segment.XE
		}
	}
	// Defects push the item right; whoever still overlaps cancels the
	// insertion.
	for guard := 0; guard < 16; guard++ {
		moved := false
		for _, defect := range b.defects(binTypeID) {
			if x < defect.X+defect.Width && defect.X < x+width &&
				ys < defect.Y+defect.Height && defect.Y < ye {
				x = defect.X + defect.Width
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	if x+width > binWidth {
		return nil
	}

	// Weight.
	binType := instance.BinType(binTypeID)
	binWeight := itemType.Weight
	if !newBin {
		binWeight += parent.binWeight
	}
	if binWeight > binType.MaximumWeight {
		return nil
	}

	// Unloading constraints.
	if !b.unloadingLegal(parent, itemType.GroupID, x, x+width, ys, ye, uncovered, newBin) {
		return nil
	}

	b.nodeCounter++
	child := &Node{
		id:            b.nodeCounter,
		parent:        parent,
		itemTypeID:    itemTypeID,
		rotated:       rotated,
		newBin:        newBin,
		x:             x,
		y:             ys,
		numberOfBins:  parent.numberOfBins,
		numberOfItems: parent.numberOfItems + 1,
		binWeight:     binWeight,
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
		child.groups = make([]NodeGroup, instance.NumberOfGroups())
	} else {
		child.groups = append([]NodeGroup(nil), parent.groups...)
	}
	group := &child.groups[itemType.GroupID]
	group.NumberOfItems++
	if group.NumberOfItems == 1 || x < group.XMin {
		group.XMin = x
	}
	if x+width > group.XMax {
		group.XMax = x + width
	}

	if x+width > child.xMax {
		child.xMax = x + width
	}
	if ye > child.yMax {
		child.yMax = ye
	}

	child.uncovered = updateSkyline(uncovered, UncoveredItem{
		ItemTypeID: itemTypeID,
		GroupID:    itemType.GroupID,
		XE:         x + width,
		YS:         ys,
		YE:         ye,
	})

	// Hull area of the new skyline plus the closed bins.
	child.currentArea = instance.PreviousBinsArea(child.numberOfBins - 1)
	for _, segment := range child.uncovered {
		child.currentArea += packing.Area(segment.XE) * packing.Area(segment.YE-segment.YS)
	}
	return child
}

// unloadingLegal checks the instance's unloading constraint for an
// insertion of group g covering [x1,x2)×[y1,y2).
//
// The unloading direction is +x (the door at the large-x side); groups are
// unloaded in increasing id order. Only-x allows a group to sit in front of
// another only when it leaves no later-unloaded item behind it in its own
// lanes; increasing-x additionally forces the group x intervals to be
// ordered bin-wide. The y variants run the same checks along the scheme's
// x axis; the axes are transposed only when the scheme packs along y
// (open-dimension-y), so with other objectives only-y and increasing-y
// behave like only-x and increasing-x.
func (b *BranchingScheme) unloadingLegal(
	parent *Node,
	groupID int,
	x1, x2, y1, y2 packing.Length,
	uncovered []UncoveredItem,
	newBin bool,
) bool {
	constraint := b.instance.Parameters().UnloadingConstraint
	if constraint == UnloadingNone {
		return true
	}

	// An item may only be placed in front of segments whose items are
	// unloaded no earlier than itself.
	for _, segment := range uncovered {
		if segment.YE <= y1 || segment.YS >= y2 {
			continue
		}
		if segment.ItemTypeID >= 0 && segment.GroupID < groupID {
			return false
		}
	}

	if constraint == UnloadingIncreasingX || constraint == UnloadingIncreasingY {
		if newBin {
			return true
		}
		// Group intervals must stay ordered: nothing of a smaller group
		// may start before our end, nothing of a larger group may end
		// beyond our start.
		for g := range parent.groups {
			if parent.groups[g].NumberOfItems == 0 {
				continue
			}
			if g < groupID && parent.groups[g].XMin < x2 {
				return false
			}
			if g > groupID && parent.groups[g].XMax > x1 {
				return false
			}
		}
	}
	return true
}

// updateSkyline replaces the covered y range with the new segment, trimming
// and splitting its neighbours.
func updateSkyline(uncovered []UncoveredItem, inserted UncoveredItem) []UncoveredItem {
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
	return result
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
		return other == nil || b.nodeWaste(a) < b.nodeWaste(other)
	case packing.ObjectiveVariableSizedBinPacking:
		if !full {
			return false
		}
		return other == nil || a.cost < other.cost
	case packing.ObjectiveOpenDimensionX, packing.ObjectiveOpenDimensionY:
		if !full {
			return false
		}
		// In scheme space the open dimension is always x.
		return other == nil || a.xMax < other.xMax
	default:
		if !full {
			return false
		}
		return other == nil || a.numberOfBins < other.numberOfBins
	}
}

func (b *BranchingScheme) nodeWaste(node *Node) packing.Area {
	return node.currentArea - node.itemArea
}

// Bound reports whether node cannot improve on the current best leaf.
func (b *BranchingScheme) Bound(node, best *Node) bool {
	if best == nil {
		return false
	}
	instance := b.instance
	switch instance.Objective() {
	case packing.ObjectiveKnapsack:
		remainingSpace := float64(instance.BinArea() - node.currentArea)
		ub := node.profit + math.Min(node.remaining, instance.MaxEfficiency()*remainingSpace)
		return ub <= best.profit
	case packing.ObjectiveBinPackingWithLeftovers:
		return b.nodeWaste(node) >= b.nodeWaste(best)
	case packing.ObjectiveVariableSizedBinPacking:
		remainingArea := float64(instance.ItemArea() - node.itemArea)
		return node.cost+remainingArea*b.minCostEfficiency >= best.cost
	case packing.ObjectiveOpenDimensionX, packing.ObjectiveOpenDimensionY:
		if node.numberOfBins == 0 {
			return false
		}
		_, binHeight := b.binDims(instance.BinTypeIDAt(node.numberOfBins - 1))
		lb := node.xMax
		if binHeight > 0 {
			if areaLB := packing.Length(instance.ItemArea() / packing.Area(binHeight)); areaLB > lb {
				lb = areaLB
			}
		}
		return lb >= best.xMax
	default:
		remainingArea := instance.ItemArea() - node.itemArea
		free := packing.Area(0)
		if node.numberOfBins > 0 {
			binWidth, binHeight := b.binDims(instance.BinTypeIDAt(node.numberOfBins - 1))
			free = packing.Area(binWidth)*packing.Area(binHeight) -
				(node.currentArea - instance.PreviousBinsArea(node.numberOfBins-1))
		}
		extra := 0
		if remainingArea > free {
			largest := packing.Area(packing.LargestBinSpace(instance))
			if largest > 0 {
				extra = int((remainingArea - free + largest - 1) / largest)
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

func (b *BranchingScheme) guide(node *Node) float64 {
	if node.numberOfItems == 0 || node.itemArea == 0 {
		return math.Inf(1)
	}
	occupancy := float64(node.currentArea) / float64(node.itemArea)
	meanPacked := float64(node.itemArea) / float64(node.numberOfItems)
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
		return float64(node.currentArea) / node.profit
	case 6:
		if node.profit <= 0 {
			return math.Inf(1)
		}
		return float64(node.currentArea) / node.profit / meanPacked
	case 7:
		return -node.profit + b.weightLoad(node)
	case 8:
		return float64(node.xMax)
	default:
		return occupancy
	}
}

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

// Dominates reports whether node's skyline is everywhere at most other's,
// with the same packed items and no tighter weight slack.
func (b *BranchingScheme) Dominates(node, other *Node) bool {
	if node.numberOfBins != other.numberOfBins || node.binWeight > other.binWeight {
		return false
	}
	for i, c := range node.itemCopies {
		if c != other.itemCopies[i] {
			return false
		}
	}
	// Compare frontiers pointwise over y.
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
		if a.XE > c.XE {
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

// ToSolution replays the insertion chain into a Solution, restoring the
// original axes when the scheme packs along y.
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
		x, y, rotated := step.x, step.y, step.rotated
		if b.parameters.DirectionY {
			x, y = y, x
		}
		if err := solution.AddItem(binPos, step.itemTypeID, x, y, rotated); err != nil {
			return nil, err
		}
	}
	return solution, nil
}
