package irregular

import (
	"fmt"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// SolutionItem is one placed piece: the item shape rotated by Angle and
// translated by (ShiftX, ShiftY).
type SolutionItem struct {
	ItemTypeID int
	ShiftX     float64
	ShiftY     float64
	Angle      float64
}

// SolutionBin is one used bin with a multiplicity.
type SolutionBin struct {
	BinTypeID int
	Copies    int
	Items     []SolutionItem

	XMax float64
	YMax float64
}

// Solution is a mutable irregular assignment built incrementally.
type Solution struct {
	instance *Instance

	bins       []SolutionBin
	binCopies  []int
	itemCopies []int

	numberOfBins  int
	numberOfItems int
	profit        packing.Profit
	cost          packing.Profit
	itemArea      float64
	binArea       float64

	xMax float64
	yMax float64
}

// NewSolution returns an empty solution over the instance.
func NewSolution(instance *Instance) *Solution {
	return &Solution{
		instance:   instance,
		binCopies:  make([]int, instance.NumberOfBinTypes()),
		itemCopies: make([]int, instance.NumberOfItemTypes()),
	}
}

// Instance returns the instance the solution belongs to.
func (s *Solution) Instance() *Instance { return s.instance }

// AddBin appends a bin with the given multiplicity and returns its
// position.
func (s *Solution) AddBin(binTypeID, copies int) (int, error) {
	if binTypeID < 0 || binTypeID >= s.instance.NumberOfBinTypes() {
		return 0, fmt.Errorf("%w: add bin: unknown bin type %d",
			packing.ErrIllegalStateTransition, binTypeID)
	}
	if copies < 1 {
		return 0, fmt.Errorf("%w: add bin: copies %d < 1",
			packing.ErrIllegalStateTransition, copies)
	}
	binType := s.instance.BinType(binTypeID)
	if s.binCopies[binTypeID]+copies > binType.Copies {
		return 0, fmt.Errorf("%w: add bin: bin type %d over its %d copies",
			packing.ErrIllegalStateTransition, binTypeID, binType.Copies)
	}
	s.bins = append(s.bins, SolutionBin{BinTypeID: binTypeID, Copies: copies})
	s.binCopies[binTypeID] += copies
	s.numberOfBins += copies
	s.cost += packing.Profit(copies) * binType.Cost
	s.binArea += float64(copies) * binType.Area()
	return len(s.bins) - 1, nil
}

// AddItem places one copy of an item type, rotated by angle and shifted by
// (x, y), in the last added bin. The rotation must be allowed; containment
// in the bin is checked on the rotated bounding box.
func (s *Solution) AddItem(binPos, itemTypeID int, x, y, angle float64) error {
	if binPos != len(s.bins)-1 {
		return fmt.Errorf("%w: add item: bin %d is not the last bin",
			packing.ErrIllegalStateTransition, binPos)
	}
	if itemTypeID < 0 || itemTypeID >= s.instance.NumberOfItemTypes() {
		return fmt.Errorf("%w: add item: unknown item type %d",
			packing.ErrIllegalStateTransition, itemTypeID)
	}
	allowed := false
	for _, a := range s.instance.rotations(itemTypeID) {
		if a == angle {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: add item: item type %d does not allow rotation %v",
			packing.ErrIllegalStateTransition, itemTypeID, angle)
	}
	bin := &s.bins[binPos]
	binType := s.instance.BinType(bin.BinTypeID)
	itemType := s.instance.ItemType(itemTypeID)

	xMin, yMin, xMax, yMax := rotatedBBox(itemType, angle)
	bxMin, byMin, bxMax, byMax := binType.Shape.BBox()
	if x+xMin < bxMin-1e-9 || y+yMin < byMin-1e-9 ||
		x+xMax > bxMax+1e-9 || y+yMax > byMax+1e-9 {
		return fmt.Errorf("%w: add item: item type %d at (%v,%v) leaves the bin",
			packing.ErrIllegalStateTransition, itemTypeID, x, y)
	}

	bin.Items = append(bin.Items, SolutionItem{ItemTypeID: itemTypeID, ShiftX: x, ShiftY: y, Angle: angle})
	if x+xMax > bin.XMax {
		bin.XMax = x + xMax
	}
	if y+yMax > bin.YMax {
		bin.YMax = y + yMax
	}
	if bin.XMax > s.xMax {
		s.xMax = bin.XMax
	}
	if bin.YMax > s.yMax {
		s.yMax = bin.YMax
	}

	s.itemCopies[itemTypeID] += bin.Copies
	s.numberOfItems += bin.Copies
	s.profit += packing.Profit(bin.Copies) * itemType.Profit
	s.itemArea += float64(bin.Copies) * itemType.Area()
	return nil
}

// Append copies bin binPos of other into this solution copies times,
// renumbering through the maps. Nil maps mean identity.
func (s *Solution) Append(other *Solution, binPos, copies int, binTypeIDs, itemTypeIDs []int) error {
	if binPos < 0 || binPos >= len(other.bins) {
		return fmt.Errorf("%w: append: bin position %d out of range",
			packing.ErrIllegalStateTransition, binPos)
	}
	src := other.bins[binPos]
	binTypeID := src.BinTypeID
	if binTypeIDs != nil {
		binTypeID = binTypeIDs[src.BinTypeID]
	}
	newBinPos, err := s.AddBin(binTypeID, copies)
	if err != nil {
		return err
	}
	for _, item := range src.Items {
		itemTypeID := item.ItemTypeID
		if itemTypeIDs != nil {
			itemTypeID = itemTypeIDs[item.ItemTypeID]
		}
		if err := s.AddItem(newBinPos, itemTypeID, item.ShiftX, item.ShiftY, item.Angle); err != nil {
			return err
		}
	}
	return nil
}

// rotatedBBox returns the bounding box of an item type under a rotation.
func rotatedBBox(itemType ItemType, angle float64) (xMin, yMin, xMax, yMax float64) {
	first := true
	for _, shape := range itemType.Shapes {
		sxMin, syMin, sxMax, syMax := shape.Shape.Rotate(angle).BBox()
		if first {
			xMin, yMin, xMax, yMax = sxMin, syMin, sxMax, syMax
			first = false
			continue
		}
		if sxMin < xMin {
			xMin = sxMin
		}
		if syMin < yMin {
			yMin = syMin
		}
		if sxMax > xMax {
			xMax = sxMax
		}
		if syMax > yMax {
			yMax = syMax
		}
	}
	return xMin, yMin, xMax, yMax
}

// NumberOfItems returns the number of placed item copies.
func (s *Solution) NumberOfItems() int { return s.numberOfItems }

// NumberOfBins returns the number of used bins, multiplicities included.
func (s *Solution) NumberOfBins() int { return s.numberOfBins }

// NumberOfDifferentBins returns the number of solution bins.
func (s *Solution) NumberOfDifferentBins() int { return len(s.bins) }

// Bin returns the solution bin at a position.
func (s *Solution) Bin(binPos int) SolutionBin { return s.bins[binPos] }

// BinCopiesAt returns the multiplicity of the bin at a position.
func (s *Solution) BinCopiesAt(binPos int) int { return s.bins[binPos].Copies }

// ItemCopies returns the placed copies of an item type.
func (s *Solution) ItemCopies(itemTypeID int) int { return s.itemCopies[itemTypeID] }

// BinCopies returns the used copies of a bin type.
func (s *Solution) BinCopies(binTypeID int) int { return s.binCopies[binTypeID] }

// Profit returns the packed profit.
func (s *Solution) Profit() packing.Profit { return s.profit }

// Cost returns the cost of the used bins.
func (s *Solution) Cost() packing.Profit { return s.cost }

// ItemArea returns the packed item area.
func (s *Solution) ItemArea() float64 { return s.itemArea }

// XMax returns the largest x-extent over the bins.
func (s *Solution) XMax() float64 { return s.xMax }

// YMax returns the largest y-extent over the bins.
func (s *Solution) YMax() float64 { return s.yMax }

// Waste returns the used area not covered by items.
func (s *Solution) Waste() float64 { return s.binArea - s.itemArea }

// FullWaste returns used bin area minus packed item area.
func (s *Solution) FullWaste() float64 { return s.Waste() }

// Full reports whether every demanded item copy is placed.
func (s *Solution) Full() bool { return s.numberOfItems == s.instance.NumberOfItems() }

// Feasible reports whether mandatory bin copies are used.
func (s *Solution) Feasible() bool {
	for binTypeID := 0; binTypeID < s.instance.NumberOfBinTypes(); binTypeID++ {
		if s.binCopies[binTypeID] < s.instance.BinType(binTypeID).CopiesMin {
			return false
		}
	}
	return true
}

// Better reports whether s strictly beats other under the objective. Other
// may be nil.
func (s *Solution) Better(other *Solution) bool {
	if other == nil {
		return s.validForObjective()
	}
	if !s.validForObjective() {
		return false
	}
	switch s.instance.Objective() {
	case packing.ObjectiveBinPacking, packing.ObjectiveDefault:
		if !other.Full() {
			return true
		}
		return s.NumberOfBins() < other.NumberOfBins()
	case packing.ObjectiveBinPackingWithLeftovers:
		if !other.Full() {
			return true
		}
		return s.Waste() < other.Waste()
	case packing.ObjectiveKnapsack:
		return s.Profit() > other.Profit()
	case packing.ObjectiveVariableSizedBinPacking:
		if !other.Full() {
			return true
		}
		return s.Cost() < other.Cost()
	case packing.ObjectiveOpenDimensionX:
		if !other.Full() {
			return true
		}
		return s.XMax() < other.XMax()
	case packing.ObjectiveOpenDimensionY:
		if !other.Full() {
			return true
		}
		return s.YMax() < other.YMax()
	}
	return false
}

func (s *Solution) validForObjective() bool {
	switch s.instance.Objective() {
	case packing.ObjectiveKnapsack:
		return true
	default:
		return s.Full()
	}
}
