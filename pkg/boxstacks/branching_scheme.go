package boxstacks

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// BranchingSchemeParameters selects the guide family.
type BranchingSchemeParameters struct {
	// GuideID selects the guide family (0..8).
	GuideID int
}

// UncoveredStack is one segment of the floor skyline: either bare bin
// border or the side of a stack, with enough derived data (weight budget,
// stackability slack, top coordinate) that stacking on it never needs to
// walk back to the placed items.
type UncoveredStack struct {
	StackIndex int // -1 for bare bin border
	GroupID    int

	// Stackable is cleared when the segment is a trimmed piece of a
	// stack's side: its footprint no longer matches the column, so no
	// item may be stacked through it.
	Stackable bool

	StackabilityID       int
	TopItemTypeID        int
	NumberOfItems        int
	MaximumStackability  int
	RemainingWeightAbove packing.Weight
	Weight               packing.Weight

	XS packing.Length
	XE packing.Length
	YS packing.Length
	YE packing.Length
	ZE packing.Length
}

// Node is one partial boxstacks placement.
type Node struct {
	id     packing.NodeID
	parent *Node

	itemTypeID int
	rotated    bool
	newBin     bool
	newStack   bool
	stackIndex int
	x, y       packing.Length

	numberOfBins   int
	numberOfItems  int
	numberOfStacks int

	uncovered []UncoveredStack

	binWeight            packing.Weight
	binWeightWeightedSum float64

	itemVolume    packing.Volume
	currentVolume packing.Volume
	profit        packing.Profit
	remaining     packing.Profit
	cost          packing.Profit
	xMax          packing.Length

	itemCopies []int
	groupXMax  []packing.Length
	groupXMin  []packing.Length
}

// BranchingScheme defines the search tree of the boxstacks variant: a
// two-dimensional skyline of stack footprints along x, plus stacking
// insertions on the uncovered stacks.
//
// A scheme instance serves one worker; node ids are assigned sequentially
// without synchronisation. Axle weights are checked on the full load of the
// last bin; the per-group prefix check runs on finished solutions.
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
		if eff := binType.Cost / float64(binType.Volume()); eff < scheme.minCostEfficiency {
			scheme.minCostEfficiency = eff
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
		id:         b.nodeCounter,
		itemTypeID: -1,
		stackIndex: -1,
		remaining:  b.instance.ItemProfit(),
		itemCopies: make([]int, b.instance.NumberOfItemTypes()),
		groupXMax:  make([]packing.Length, b.instance.NumberOfGroups()),
		groupXMin:  make([]packing.Length, b.instance.NumberOfGroups()),
	}
}

// Children generates the legal insertions from parent: each remaining item
// type and rotation as a new stack at each skyline segment, on top of each
// compatible uncovered stack, and into a new bin when the current bin
// cannot take the item.
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
					if child := b.insertNewStack(parent, itemTypeID, rotated, binTypeID, pos, false); child != nil {
						children = append(children, child)
						inserted = true
					}
					if child := b.insertOnStack(parent, itemTypeID, rotated, binTypeID, pos); child != nil {
						children = append(children, child)
						inserted = true
					}
				}
			}
		}
		if !inserted && parent.numberOfBins < instance.NumberOfBins() {
			binTypeID := instance.BinTypeIDAt(parent.numberOfBins)
			for _, rotated := range instance.rotations(itemTypeID) {
				if child := b.insertNewStack(parent, itemTypeID, rotated, binTypeID, 0, true); child != nil {
					children = append(children, child)
				}
			}
		}
	}
	return children
}

func (b *BranchingScheme) itemFootprint(itemTypeID int, rotated bool) (packing.Length, packing.Length) {
	itemType := b.instance.ItemType(itemTypeID)
	if rotated {
		return itemType.Y, itemType.X
	}
	return itemType.X, itemType.Y
}

func (b *BranchingScheme) insertNewStack(parent *Node, itemTypeID int, rotated bool, binTypeID, pos int, newBin bool) *Node {
	instance := b.instance
	itemType := instance.ItemType(itemTypeID)
	binType := instance.BinType(binTypeID)
	width, depth := b.itemFootprint(itemTypeID, rotated)

	var uncovered []UncoveredStack
	if newBin {
		uncovered = []UncoveredStack{{
			StackIndex: -1, GroupID: -1, StackabilityID: -1, TopItemTypeID: -1,
			XE: 0, YS: 0, YE: binType.Y,
		}}
	} else {
		uncovered = parent.uncovered
	}

	ys := uncovered[pos].YS
	ye := ys + depth
	if ye > binType.Y {
		return nil
	}
	if itemType.Z > binType.Z {
		return nil
	}

	x := packing.Length(0)
	for _, segment := range uncovered {
		if segment.YE <= ys || segment.YS >= ye {
			continue
		}
		if segment.XE > x {
			x = segment.XE
		}
	}
	if x+width > binType.X {
		return nil
	}

	if !b.weightsLegal(parent, itemType, binType, x, x+width, newBin) {
		return nil
	}
	if !b.unloadingLegal(parent, itemType.GroupID, x, x+width, ys, ye, uncovered, newBin) {
		return nil
	}

	child := b.child(parent, itemTypeID, rotated, newBin, true)
	child.x, child.y = x, ys
	if newBin {
		child.numberOfBins++
		child.cost += binType.Cost
		child.binWeight = 0
		child.binWeightWeightedSum = 0
		child.groupXMax = make([]packing.Length, instance.NumberOfGroups())
		child.groupXMin = make([]packing.Length, instance.NumberOfGroups())
	}
	child.numberOfStacks = parent.numberOfStacks + 1
	child.stackIndex = child.numberOfStacks - 1
	child.binWeight += itemType.Weight
	child.binWeightWeightedSum += float64(x+x+width) / 2 * itemType.Weight

	stack := UncoveredStack{
		StackIndex:           child.stackIndex,
		GroupID:              itemType.GroupID,
		Stackable:            true,
		StackabilityID:       itemType.StackabilityID,
		TopItemTypeID:        itemTypeID,
		NumberOfItems:        1,
		MaximumStackability:  itemType.MaximumStackability,
		RemainingWeightAbove: itemType.MaximumWeightAbove,
		Weight:               itemType.Weight,
		XS:                   x,
		XE:                   x + width,
		YS:                   ys,
		YE:                   ye,
		ZE:                   itemType.Z,
	}
	child.uncovered = updateFloorSkyline(uncovered, stack)
	b.updateGroupExtents(child, itemType.GroupID, x, x+width)
	b.finishChild(child, binTypeID)
	return child
}

func (b *BranchingScheme) insertOnStack(parent *Node, itemTypeID int, rotated bool, binTypeID, pos int) *Node {
	instance := b.instance
	itemType := instance.ItemType(itemTypeID)
	binType := instance.BinType(binTypeID)
	target := parent.uncovered[pos]
	if target.StackIndex < 0 || !target.Stackable {
		return nil
	}
	width, depth := b.itemFootprint(itemTypeID, rotated)

	if target.StackabilityID != itemType.StackabilityID {
		return nil
	}
	// Stacks are uniform columns: the footprint must match exactly.
	if target.YE-target.YS != depth || target.XE-target.XS != width {
		return nil
	}
	xs := target.XS
	if target.NumberOfItems+1 > minInt(target.MaximumStackability, itemType.MaximumStackability) {
		return nil
	}
	if itemType.Weight > target.RemainingWeightAbove {
		return nil
	}
	zStart := target.ZE - itemType.NestingHeight
	if zStart < 0 {
		zStart = 0
	}
	if zStart+itemType.Z > binType.Z {
		return nil
	}
	if !b.weightsLegal(parent, itemType, binType, xs, target.XE, false) {
		return nil
	}
	if !b.unloadingLegal(parent, itemType.GroupID, xs, target.XE, target.YS, target.YE, parent.uncovered, false) {
		return nil
	}

	child := b.child(parent, itemTypeID, rotated, false, false)
	child.x, child.y = xs, target.YS
	child.stackIndex = target.StackIndex
	child.numberOfStacks = parent.numberOfStacks
	child.binWeight += itemType.Weight
	child.binWeightWeightedSum += float64(xs+target.XE) / 2 * itemType.Weight

	child.uncovered = append([]UncoveredStack(nil), parent.uncovered...)
	stack := &child.uncovered[pos]
	stack.NumberOfItems++
	if itemType.MaximumStackability < stack.MaximumStackability {
		stack.MaximumStackability = itemType.MaximumStackability
	}
	stack.RemainingWeightAbove = math.Min(
		stack.RemainingWeightAbove-itemType.Weight,
		itemType.MaximumWeightAbove)
	stack.Weight += itemType.Weight
	stack.TopItemTypeID = itemTypeID
	stack.ZE = zStart + itemType.Z
	if itemType.GroupID > stack.GroupID {
		stack.GroupID = itemType.GroupID
	}
	b.updateGroupExtents(child, itemType.GroupID, xs, target.XE)
	b.finishChild(child, binTypeID)
	return child
}

// child clones the shared part of a new node.
func (b *BranchingScheme) child(parent *Node, itemTypeID int, rotated, newBin, newStack bool) *Node {
	itemType := b.instance.ItemType(itemTypeID)
	b.nodeCounter++
	child := &Node{
		id:                   b.nodeCounter,
		parent:               parent,
		itemTypeID:           itemTypeID,
		rotated:              rotated,
		newBin:               newBin,
		newStack:             newStack,
		numberOfBins:         parent.numberOfBins,
		numberOfItems:        parent.numberOfItems + 1,
		numberOfStacks:       parent.numberOfStacks,
		binWeight:            parent.binWeight,
		binWeightWeightedSum: parent.binWeightWeightedSum,
		itemVolume:           parent.itemVolume + itemType.Volume(),
		profit:               parent.profit + itemType.Profit,
		remaining:            parent.remaining - itemType.Profit,
		cost:                 parent.cost,
		itemCopies:           append([]int(nil), parent.itemCopies...),
		groupXMax:            append([]packing.Length(nil), parent.groupXMax...),
		groupXMin:            append([]packing.Length(nil), parent.groupXMin...),
		xMax:                 parent.xMax,
	}
	child.itemCopies[itemTypeID]++
	return child
}

func (b *BranchingScheme) finishChild(child *Node, binTypeID int) {
	binType := b.instance.BinType(binTypeID)
	if child.numberOfBins > 0 {
		child.currentVolume = b.instance.PreviousBinsVolume(child.numberOfBins - 1)
	}
	for _, segment := range child.uncovered {
		child.currentVolume += packing.Volume(segment.XE) *
			packing.Volume(segment.YE-segment.YS) * packing.Volume(binType.Z)
		if segment.XE > child.xMax {
			child.xMax = segment.XE
		}
	}
}

// weightsLegal checks the bin's maximum weight and, for semi-trailer
// trucks, the axle maxima of the full load after the insertion.
func (b *BranchingScheme) weightsLegal(parent *Node, itemType ItemType, binType BinType, x1, x2 packing.Length, newBin bool) bool {
	weight := itemType.Weight
	weightedSum := float64(x1+x2) / 2 * itemType.Weight
	if !newBin {
		weight += parent.binWeight
		weightedSum += parent.binWeightWeightedSum
	}
	if weight > binType.MaximumWeight {
		return false
	}
	truck := binType.SemiTrailerTruck
	if truck.Is {
		middle, rear := truck.ComputeAxleWeights(weightedSum, weight)
		if middle > truck.MiddleAxleMaximumWeight || rear > truck.RearAxleMaximumWeight {
			return false
		}
	}
	return true
}

func (b *BranchingScheme) updateGroupExtents(child *Node, groupID int, x1, x2 packing.Length) {
	if child.groupXMax[groupID] == 0 && child.groupXMin[groupID] == 0 {
		child.groupXMin[groupID] = x1
	} else if x1 < child.groupXMin[groupID] {
		child.groupXMin[groupID] = x1
	}
	if x2 > child.groupXMax[groupID] {
		child.groupXMax[groupID] = x2
	}
}

// unloadingLegal mirrors the rectangle variant: a stack may only stand in
// front of stacks unloaded no earlier, and with increasing-x the group x
// intervals must stay ordered.
func (b *BranchingScheme) unloadingLegal(
	parent *Node,
	groupID int,
	x1, x2, y1, y2 packing.Length,
	uncovered []UncoveredStack,
	newBin bool,
) bool {
	constraint := b.instance.Parameters().UnloadingConstraint
	if constraint == UnloadingNone {
		return true
	}
	for _, segment := range uncovered {
		if segment.YE <= y1 || segment.YS >= y2 {
			continue
		}
		if segment.StackIndex >= 0 && segment.GroupID < groupID {
			return false
		}
	}
	if constraint == UnloadingIncreasingX && !newBin {
		for g := range parent.groupXMax {
			if parent.groupXMax[g] == 0 && parent.groupXMin[g] == 0 {
				continue
			}
			if g < groupID && parent.groupXMin[g] < x2 {
				return false
			}
			if g > groupID && parent.groupXMax[g] > x1 {
				return false
			}
		}
	}
	return true
}

// updateFloorSkyline replaces the covered y range with the new stack
// segment, trimming and splitting its neighbours.
func updateFloorSkyline(uncovered []UncoveredStack, inserted UncoveredStack) []UncoveredStack {
	var result []UncoveredStack
	added := false
	for _, segment := range uncovered {
		if segment.YE <= inserted.YS || segment.YS >= inserted.YE {
			result = append(result, segment)
			continue
		}
		if segment.YS < inserted.YS {
			before := segment
			before.YE = inserted.YS
			before.Stackable = false
			result = append(result, before)
		}
		if !added {
			result = append(result, inserted)
			added = true
		}
		if segment.YE > inserted.YE {
			after := segment
			after.YS = inserted.YE
			after.Stackable = false
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
		return other == nil || a.currentVolume-a.itemVolume < other.currentVolume-other.itemVolume
	case packing.ObjectiveVariableSizedBinPacking:
		if !full {
			return false
		}
		return other == nil || a.cost < other.cost
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
		remainingSpace := float64(instance.BinVolume() - node.currentVolume)
		ub := node.profit + math.Min(node.remaining, instance.MaxEfficiency()*remainingSpace)
		return ub <= best.profit
	case packing.ObjectiveBinPackingWithLeftovers:
		return node.currentVolume-node.itemVolume >= best.currentVolume-best.itemVolume
	case packing.ObjectiveVariableSizedBinPacking:
		remainingVolume := float64(instance.ItemVolume() - node.itemVolume)
		return node.cost+remainingVolume*b.minCostEfficiency >= best.cost
	default:
		remainingVolume := instance.ItemVolume() - node.itemVolume
		free := packing.Volume(0)
		if node.numberOfBins > 0 {
			binType := instance.BinType(instance.BinTypeIDAt(node.numberOfBins - 1))
			free = binType.Volume() - (node.currentVolume - instance.PreviousBinsVolume(node.numberOfBins-1))
		}
		extra := 0
		if remainingVolume > free {
			largest := packing.Volume(packing.LargestBinSpace(instance))
			if largest > 0 {
				extra = int((remainingVolume - free + largest - 1) / largest)
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
	if node.numberOfItems == 0 || node.itemVolume == 0 {
		return math.Inf(1)
	}
	occupancy := float64(node.currentVolume) / float64(node.itemVolume)
	meanPacked := float64(node.itemVolume) / float64(node.numberOfItems)
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
		return float64(node.currentVolume) / node.profit
	case 6:
		if node.profit <= 0 {
			return math.Inf(1)
		}
		return float64(node.currentVolume) / node.profit / meanPacked
	case 7:
		return -node.profit + b.axleSurplus(node)
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

// axleSurplus penalises loads whose center of gravity drifts toward the
// axle maxima.
func (b *BranchingScheme) axleSurplus(node *Node) float64 {
	if node.numberOfBins == 0 {
		return 0
	}
	truck := b.instance.BinType(b.instance.BinTypeIDAt(node.numberOfBins - 1)).SemiTrailerTruck
	if !truck.Is || node.binWeight == 0 {
		return 0
	}
	middle, rear := truck.ComputeAxleWeights(node.binWeightWeightedSum, node.binWeight)
	surplus := 0.0
	if truck.MiddleAxleMaximumWeight > 0 {
		surplus += math.Max(0, middle/truck.MiddleAxleMaximumWeight-0.9)
	}
	if truck.RearAxleMaximumWeight > 0 {
		surplus += math.Max(0, rear/truck.RearAxleMaximumWeight-0.9)
	}
	return surplus
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

// Dominates compares nodes with identical skyline segmentation: node wins
// when every segment is no deeper, no heavier and no tighter than other's.
func (b *BranchingScheme) Dominates(node, other *Node) bool {
	if node.numberOfBins != other.numberOfBins ||
		node.binWeight > other.binWeight ||
		len(node.uncovered) != len(other.uncovered) {
		return false
	}
	for i, c := range node.itemCopies {
		if c != other.itemCopies[i] {
			return false
		}
	}
	for i := range node.uncovered {
		a, c := node.uncovered[i], other.uncovered[i]
		if a.YS != c.YS || a.YE != c.YE {
			return false
		}
		if a.XE > c.XE || a.ZE > c.ZE ||
			a.RemainingWeightAbove < c.RemainingWeightAbove ||
			a.MaximumStackability-a.NumberOfItems < c.MaximumStackability-c.NumberOfItems {
			return false
		}
	}
	return true
}

// ToSolution replays the insertion chain into a Solution. Items are
// regrouped stack by stack, because a Solution only appends to its last
// stack.
func (b *BranchingScheme) ToSolution(node *Node) (*Solution, error) {
	var chain []*Node
	for n := node; n != nil && n.itemTypeID >= 0; n = n.parent {
		chain = append(chain, n)
	}

	type stackRecord struct {
		bin   int
		x, y  packing.Length
		w, d  packing.Length
		items []*Node
	}
	var stacks []*stackRecord
	byIndex := map[int]*stackRecord{}
	bins := 0
	for i := len(chain) - 1; i >= 0; i-- {
		step := chain[i]
		if step.newBin {
			bins++
		}
		if step.newStack {
			width, depth := b.itemFootprint(step.itemTypeID, step.rotated)
			record := &stackRecord{bin: bins - 1, x: step.x, y: step.y, w: width, d: depth}
			stacks = append(stacks, record)
			byIndex[step.stackIndex] = record
		}
		record := byIndex[step.stackIndex]
		if record == nil {
			return nil, fmt.Errorf("%w: to solution: unknown stack %d",
				packing.ErrIllegalStateTransition, step.stackIndex)
		}
		record.items = append(record.items, step)
	}

	solution := NewSolution(b.instance)
	currentBin := -1
	binPos := -1
	for _, record := range stacks {
		for currentBin < record.bin {
			currentBin++
			var err error
			binPos, err = solution.AddBin(b.instance.BinTypeIDAt(currentBin), 1)
			if err != nil {
				return nil, err
			}
		}
		if _, err := solution.AddStack(binPos, record.x, record.x+record.w, record.y, record.y+record.d); err != nil {
			return nil, err
		}
		for _, step := range record.items {
			if err := solution.AddItem(binPos, step.itemTypeID, step.rotated); err != nil {
				return nil, err
			}
		}
	}
	return solution, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
