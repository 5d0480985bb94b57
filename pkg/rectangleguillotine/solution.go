package rectangleguillotine

import (
	"fmt"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// SolutionItem is one placed rectangle. The guillotine cut structure is
// implied by the construction order.
type SolutionItem struct {
	ItemTypeID int
	X          packing.Length
	Y          packing.Length
	Rotated    bool
}

// SolutionBin is one used plate with a multiplicity.
type SolutionBin struct {
	BinTypeID int
	Copies    int
	Items     []SolutionItem

	XMax packing.Length
	YMax packing.Length
}

// Solution is a mutable guillotine assignment built incrementally.
type Solution struct {
	instance *Instance

	bins       []SolutionBin
	binCopies  []int
	itemCopies []int

	numberOfBins  int
	numberOfItems int
	profit        packing.Profit
	cost          packing.Profit
	itemArea      packing.Area
	binArea       packing.Area

	xMax packing.Length
	yMax packing.Length
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
	s.binArea += packing.Area(copies) * binType.Area()
	return len(s.bins) - 1, nil
}

// AddItem places one copy of an item type at (x, y) in the last added bin.
func (s *Solution) AddItem(binPos, itemTypeID int, x, y packing.Length, rotated bool) error {
	if binPos != len(s.bins)-1 {
		return fmt.Errorf("%w: add item: bin %d is not the last bin",
			packing.ErrIllegalStateTransition, binPos)
	}
	if itemTypeID < 0 || itemTypeID >= s.instance.NumberOfItemTypes() {
		return fmt.Errorf("%w: add item: unknown item type %d",
			packing.ErrIllegalStateTransition, itemTypeID)
	}
	bin := &s.bins[binPos]
	binType := s.instance.BinType(bin.BinTypeID)
	itemType := s.instance.ItemType(itemTypeID)
	if rotated && itemType.Oriented {
		return fmt.Errorf("%w: add item: item type %d is oriented",
			packing.ErrIllegalStateTransition, itemTypeID)
	}
	width, height := itemType.Width, itemType.Height
	if rotated {
		width, height = height, width
	}
	if x < 0 || y < 0 || x+width > binType.Width || y+height > binType.Height {
		return fmt.Errorf("%w: add item: item type %d at (%d,%d) leaves the bin",
			packing.ErrIllegalStateTransition, itemTypeID, x, y)
	}

	bin.Items = append(bin.Items, SolutionItem{ItemTypeID: itemTypeID, X: x, Y: y, Rotated: rotated})
	if x+width > bin.XMax {
		bin.XMax = x + width
	}
	if y+height > bin.YMax {
		bin.YMax = y + height
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
	s.itemArea += packing.Area(bin.Copies) * itemType.Area()
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
		if err := s.AddItem(newBinPos, itemTypeID, item.X, item.Y, item.Rotated); err != nil {
			return err
		}
	}
	return nil
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
func (s *Solution) ItemArea() packing.Area { return s.itemArea }

// XMax returns the largest x-extent over the bins.
func (s *Solution) XMax() packing.Length { return s.xMax }

// YMax returns the largest y-extent over the bins.
func (s *Solution) YMax() packing.Length { return s.yMax }

// Waste returns the used area not covered by items, the last bin counted up
// to its x-extent.
func (s *Solution) Waste() float64 {
	if len(s.bins) == 0 {
		return 0
	}
	last := s.bins[len(s.bins)-1]
	binType := s.instance.BinType(last.BinTypeID)
	leftover := packing.Area(last.Copies) * packing.Area(binType.Width-last.XMax) * packing.Area(binType.Height)
	return float64(s.binArea - leftover - s.itemArea)
}

// FullWaste returns used bin area minus packed item area.
func (s *Solution) FullWaste() float64 { return float64(s.binArea - s.itemArea) }

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
