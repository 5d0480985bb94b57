package rectangleguillotine

import (
	"hash/fnv"
	"math"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// BranchingSchemeParameters selects the guide family and the first-stage
// orientation of this scheme instance.
type BranchingSchemeParameters struct {
	// GuideID selects the guide family (0..8).
	GuideID int

	// Horizontal runs the first-stage cuts horizontally; the scheme works
	// in transposed coordinates and ToSolution restores them.
	Horizontal bool
}

// Node is one partial cutting pattern. The pattern is built strictly in
// stages: first-stage strips left to right, second-stage rows bottom to
// top inside the current strip, items left to right inside the current row.
// Every pattern reachable this way is guillotine-cuttable by construction.
type Node struct {
	id     packing.NodeID
	parent *Node

	itemTypeID int
	rotated    bool
	kind       insertionKind
	x, y       packing.Length

	numberOfBins int
	numberOfItems int

	// Current strip ([x1, x1+stripWidth) over the full bin height) and
	// current row ([y2, y2+rowHeight) inside the strip).
	x1         packing.Length
	stripWidth packing.Length
	y2         packing.Length
	rowHeight  packing.Length
	rowX       packing.Length
	rowItem    int // first item type of the row, for homogenous patterns
	rowsInStrip int

	itemArea    packing.Area
	currentArea packing.Area
	profit      packing.Profit
	remaining   packing.Profit
	cost        packing.Profit
	xMax        packing.Length

	itemCopies []int
}

type insertionKind int8

const (
	insertSameRow insertionKind = iota
	insertNewRow
	insertNewStrip
	insertNewBin
)

// BranchingScheme defines the staged guillotine search tree.
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

func (b *BranchingScheme) binDims(binTypeID int) (packing.Length, packing.Length) {
	binType := b.instance.BinType(binTypeID)
	if b.parameters.Horizontal {
		return binType.Height, binType.Width
	}
	return binType.Width, binType.Height
}

func (b *BranchingScheme) itemDims(itemTypeID int, rotated bool) (packing.Length, packing.Length) {
	itemType := b.instance.ItemType(itemTypeID)
	width, height := itemType.Width, itemType.Height
	if rotated {
		width, height = height, width
	}
	if b.parameters.Horizontal {
		return height, width
	}
	return width, height
}

func (b *BranchingScheme) defects(binTypeID int) []Defect {
	binType := b.instance.BinType(binTypeID)
	if !b.parameters.Horizontal {
		return binType.Defects
	}
	transposed := make([]Defect, len(binType.Defects))
	for i, d := range binType.Defects {
		transposed[i] = Defect{X: d.Y, Y: d.X, Width: d.Height, Height: d.Width}
	}
	return transposed
}

// Root returns the empty partial pattern.
func (b *BranchingScheme) Root() *Node {
	b.nodeCounter++
	return &Node{
		id:         b.nodeCounter,
		itemTypeID: -1,
		rowItem:    -1,
		remaining:  b.instance.ItemProfit(),
		itemCopies: make([]int, b.instance.NumberOfItemTypes()),
	}
}

// Children generates the legal insertions from parent: each remaining item
// type and rotation in the current row, a new row, a new strip, or a new
// bin. Same row, new row and new strip are all tried; a new bin is only
// opened when none of them can take the item, which keeps the branching
// factor small without losing completeness of the staged patterns.
func (b *BranchingScheme) Children(parent *Node) []*Node {
	instance := b.instance
	var children []*Node

	for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
		if parent.itemCopies[itemTypeID] >= instance.ItemType(itemTypeID).Copies {
			continue
		}
		for _, rotated := range instance.rotations(itemTypeID) {
			placed := false
			if parent.numberOfBins > 0 {
				if child := b.insert(parent, itemTypeID, rotated, insertSameRow); child != nil {
					children = append(children, child)
					placed = true
				}
				if child := b.insert(parent, itemTypeID, rotated, insertNewRow); child != nil {
					children = append(children, child)
					placed = true
				}
				if child := b.insert(parent, itemTypeID, rotated, insertNewStrip); child != nil {
					children = append(children, child)
					placed = true
				}
			}
			if !placed && parent.numberOfBins < instance.NumberOfBins() {
				if child := b.insert(parent, itemTypeID, rotated, insertNewBin); child != nil {
					children = append(children, child)
				}
			}
		}
	}
	return children
}

func (b *BranchingScheme) insert(parent *Node, itemTypeID int, rotated bool, kind insertionKind) *Node {
	instance := b.instance
	params := instance.Parameters()
	width, height := b.itemDims(itemTypeID, rotated)

	binPos := parent.numberOfBins - 1
	if kind == insertNewBin {
		binPos = parent.numberOfBins
	}
	binTypeID := instance.BinTypeIDAt(binPos)
	binWidth, binHeight := b.binDims(binTypeID)
	thickness := params.CutThickness

	var x1, stripWidth, y2, rowHeight, rowX packing.Length
	rowItem := -1
	rowsInStrip := 0

	switch kind {
	case insertSameRow:
		if parent.rowHeight == 0 {
			return nil
		}
		switch params.CutType {
		case CutTypeExact, CutTypeRoadef2018:
			if height != parent.rowHeight {
				return nil
			}
		case CutTypeHomogenous:
			if itemTypeID != parent.rowItem || height != parent.rowHeight {
				return nil
			}
		default:
			if height > parent.rowHeight {
				return nil
			}
		}
		x1 = parent.x1
		y2 = parent.y2
		rowHeight = parent.rowHeight
		rowItem = parent.rowItem
		rowsInStrip = parent.rowsInStrip
		rowX = parent.rowX
		if rowX > 0 {
			rowX += thickness
		}
		stripWidth = parent.stripWidth
		if rowX+width > stripWidth {
			stripWidth = rowX + width
		}

	case insertNewRow:
		if parent.rowHeight == 0 {
			return nil
		}
		if params.MaximumNumber2Cuts > 0 && parent.rowsInStrip+1 > params.MaximumNumber2Cuts {
			return nil
		}
		x1 = parent.x1
		y2 = parent.y2 + parent.rowHeight + thickness
		rowHeight = height
		if params.MinimumDistance2Cuts > 0 && rowHeight < params.MinimumDistance2Cuts {
			rowHeight = params.MinimumDistance2Cuts
		}
		rowItem = itemTypeID
		rowsInStrip = parent.rowsInStrip + 1
		rowX = 0
		stripWidth = parent.stripWidth
		if width > stripWidth {
			stripWidth = width
		}

	case insertNewStrip:
		if parent.stripWidth == 0 {
			return nil
		}
		x1 = parent.x1 + parent.stripWidth + thickness
		y2 = 0
		rowHeight = height
		if params.MinimumDistance2Cuts > 0 && rowHeight < params.MinimumDistance2Cuts {
			rowHeight = params.MinimumDistance2Cuts
		}
		rowItem = itemTypeID
		rowsInStrip = 1
		rowX = 0
		stripWidth = width

	case insertNewBin:
		x1 = 0
		y2 = 0
		rowHeight = height
		if params.MinimumDistance2Cuts > 0 && rowHeight < params.MinimumDistance2Cuts {
			rowHeight = params.MinimumDistance2Cuts
		}
		rowItem = itemTypeID
		rowsInStrip = 1
		rowX = 0
		stripWidth = width
	}

	if params.MinimumDistance1Cuts > 0 && stripWidth < params.MinimumDistance1Cuts {
		stripWidth = params.MinimumDistance1Cuts
	}
	if params.MaximumDistance1Cuts > 0 && stripWidth > params.MaximumDistance1Cuts {
		return nil
	}
	if x1+stripWidth > binWidth || y2+rowHeight > binHeight {
		return nil
	}

	// Defects push the item right inside its row; a 3-cut lands at the
	// shifted position and the skipped cell becomes waste.
	x := x1 + rowX
	for guard := 0; guard < 16; guard++ {
		moved := false
		for _, defect := range b.defects(binTypeID) {
			if x < defect.X+defect.Width && defect.X < x+width &&
				y2 < defect.Y+defect.Height && defect.Y < y2+height {
				x = defect.X + defect.Width
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	rowX = x - x1
	if rowX+width > stripWidth {
		stripWidth = rowX + width
		if params.MaximumDistance1Cuts > 0 && stripWidth > params.MaximumDistance1Cuts {
			return nil
		}
		if x1+stripWidth > binWidth {
			return nil
		}
	}

	// A leftover narrower than the minimum waste length is not cuttable.
	if params.MinimumWasteLength > 0 {
		if leftover := binWidth - (x1 + stripWidth); leftover > 0 && leftover < params.MinimumWasteLength {
			if x1+stripWidth+params.MinimumWasteLength > binWidth {
				return nil
			}
		}
	}

	itemType := instance.ItemType(itemTypeID)
	b.nodeCounter++
	child := &Node{
		id:            b.nodeCounter,
		parent:        parent,
		itemTypeID:    itemTypeID,
		rotated:       rotated,
		kind:          kind,
		x:             x,
		y:             y2,
		numberOfBins:  parent.numberOfBins,
		numberOfItems: parent.numberOfItems + 1,
		x1:            x1,
		stripWidth:    stripWidth,
		y2:            y2,
		rowHeight:     rowHeight,
		rowX:          rowX + width,
		rowItem:       rowItem,
		rowsInStrip:   rowsInStrip,
		itemArea:      parent.itemArea + itemType.Area(),
		profit:        parent.profit + itemType.Profit,
		remaining:     parent.remaining - itemType.Profit,
		cost:          parent.cost,
		itemCopies:    append([]int(nil), parent.itemCopies...),
		xMax:          parent.xMax,
	}
	child.itemCopies[itemTypeID]++
	if kind == insertNewBin {
		child.numberOfBins++
		child.cost += instance.BinType(binTypeID).Cost
	}
	if x1+stripWidth > child.xMax {
		child.xMax = x1 + stripWidth
	}

	// Closed strips count full height; the open strip counts up to its
	// last 2-cut.
	_, currentBinHeight := b.binDims(binTypeID)
	child.currentArea = instance.PreviousBinsArea(child.numberOfBins-1) +
		packing.Area(x1)*packing.Area(currentBinHeight) +
		packing.Area(stripWidth)*packing.Area(y2+rowHeight)
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
	case packing.ObjectiveOpenDimensionX, packing.ObjectiveOpenDimensionY:
		if !full {
			return false
		}
		return other == nil || a.xMax < other.xMax
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
		remainingSpace := float64(instance.BinArea() - node.currentArea)
		ub := node.profit + math.Min(node.remaining, instance.MaxEfficiency()*remainingSpace)
		return ub <= best.profit
	case packing.ObjectiveBinPackingWithLeftovers:
		return node.currentArea-node.itemArea >= best.currentArea-best.itemArea
	case packing.ObjectiveVariableSizedBinPacking:
		remainingArea := float64(instance.ItemArea() - node.itemArea)
		return node.cost+remainingArea*b.minCostEfficiency >= best.cost
	case packing.ObjectiveOpenDimensionX, packing.ObjectiveOpenDimensionY:
		return node.numberOfBins > 0 && node.xMax >= best.xMax
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
	case 2, 3:
		return occupancy
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
		return -node.profit
	case 8:
		return float64(node.xMax)
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

// Dominates reports whether node's open strip, row and item positions are
// all no deeper than other's, with the same packed items.
func (b *BranchingScheme) Dominates(node, other *Node) bool {
	if node.numberOfBins != other.numberOfBins {
		return false
	}
	for i, c := range node.itemCopies {
		if c != other.itemCopies[i] {
			return false
		}
	}
	return node.x1+node.stripWidth <= other.x1+other.stripWidth &&
		node.y2+node.rowHeight <= other.y2+other.rowHeight &&
		node.x1+node.rowX <= other.x1+other.rowX
}

// ToSolution replays the insertion chain into a Solution, restoring the
// original axes when the first stage is horizontal.
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
		if step.kind == insertNewBin {
			var err error
			binPos, err = solution.AddBin(b.instance.BinTypeIDAt(bins), 1)
			if err != nil {
				return nil, err
			}
			bins++
		}
		x, y := step.x, step.y
		if b.parameters.Horizontal {
			x, y = y, x
		}
		if err := solution.AddItem(binPos, step.itemTypeID, x, y, step.rotated); err != nil {
			return nil, err
		}
	}
	return solution, nil
}
