package onedimensional

import (
	"fmt"
	"math"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// SolutionItem is one placed item copy.
type SolutionItem struct {
	ItemTypeID int

	// Start and End are the item coordinates inside the bin, nesting
	// already applied.
	Start packing.Length
	End   packing.Length
}

// SolutionBin is one used bin with a multiplicity. Bins are appended only
// and never edited once a later bin exists.
type SolutionBin struct {
	BinTypeID int
	Copies    int
	Items     []SolutionItem

	// End is the coordinate of the last packed item.
	End packing.Length

	// Weight packed in one copy of the bin.
	Weight packing.Weight

	// remainingWeightAfter tracks the tightest maximum-weight-after slack
	// over the packed items.
	remainingWeightAfter packing.Weight

	// maximumStackability is the tightest stackability bound over the
	// packed items.
	maximumStackability int
}

// Solution is a mutable assignment of items to bins, built incrementally by
// the solvers. Aggregates update in O(1) per operation.
type Solution struct {
	instance *Instance

	bins       []SolutionBin
	binCopies  []int
	itemCopies []int

	numberOfBins  int
	numberOfItems int
	profit        packing.Profit
	cost          packing.Profit
	itemLength    packing.Length
	binLength     packing.Length

	feasible bool
}

// NewSolution returns an empty solution over the instance.
func NewSolution(instance *Instance) *Solution {
	return &Solution{
		instance:   instance,
		binCopies:  make([]int, instance.NumberOfBinTypes()),
		itemCopies: make([]int, instance.NumberOfItemTypes()),
		feasible:   true,
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
		return 0, fmt.Errorf("%w: add bin: bin type %d used %d + %d copies over %d",
			packing.ErrIllegalStateTransition, binTypeID, s.binCopies[binTypeID], copies, binType.Copies)
	}
	s.bins = append(s.bins, SolutionBin{
		BinTypeID:            binTypeID,
		Copies:               copies,
		remainingWeightAfter: math.Inf(1),
		maximumStackability:  math.MaxInt32,
	})
	s.binCopies[binTypeID] += copies
	s.numberOfBins += copies
	s.cost += packing.Profit(copies) * binType.Cost
	s.binLength += packing.Length(copies) * binType.Length
	return len(s.bins) - 1, nil
}

// AddItem places one copy of an item type in the bin at binPos, which must
// be the last added bin. Weight and stacking violations do not fail; they
// flip the feasibility flag, which the repair step consumes.
func (s *Solution) AddItem(binPos, itemTypeID int) error {
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

	start := bin.End
	if len(bin.Items) > 0 {
		start -= itemType.NestingLength
		if start < 0 {
			start = 0
		}
	}
	end := start + itemType.Length
	if end > binType.Length {
		return fmt.Errorf("%w: add item: item type %d ends at %d in a bin of length %d",
			packing.ErrIllegalStateTransition, itemTypeID, end, binType.Length)
	}
	if !s.instance.eligible(itemTypeID, bin.BinTypeID) {
		return fmt.Errorf("%w: add item: item type %d not eligible for bin type %d",
			packing.ErrIllegalStateTransition, itemTypeID, bin.BinTypeID)
	}

	// Weight and stackability are data, not errors.
	if bin.Weight+itemType.Weight > binType.MaximumWeight {
		s.feasible = false
	}
	if itemType.Weight > bin.remainingWeightAfter {
		s.feasible = false
	}
	if len(bin.Items)+1 > bin.maximumStackability {
		s.feasible = false
	}

	bin.Items = append(bin.Items, SolutionItem{ItemTypeID: itemTypeID, Start: start, End: end})
	bin.End = end
	bin.Weight += itemType.Weight
	bin.remainingWeightAfter = math.Min(
		bin.remainingWeightAfter-itemType.Weight,
		itemType.MaximumWeightAfter)
	if itemType.MaximumStackability < bin.maximumStackability {
		bin.maximumStackability = itemType.MaximumStackability
	}

	s.itemCopies[itemTypeID] += bin.Copies
	s.numberOfItems += bin.Copies
	s.profit += packing.Profit(bin.Copies) * itemType.Profit
	s.itemLength += packing.Length(bin.Copies) * itemType.Length
	return nil
}

// Append copies bin binPos of other into this solution copies times,
// renumbering bin and item types through the maps. Nil maps mean identity.
// This is the glue between meta-heuristic subproblems and the parent
// solution.
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
		if err := s.AddItem(newBinPos, itemTypeID); err != nil {
			return err
		}
	}
	return nil
}

// Accessors.

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

// ItemLength returns the packed item length.
func (s *Solution) ItemLength() packing.Length { return s.itemLength }

// BinLength returns the length of the used bins.
func (s *Solution) BinLength() packing.Length { return s.binLength }

// Waste returns the unusable length: used bins minus packed items, the last
// bin counted only up to its last item.
func (s *Solution) Waste() float64 {
	if len(s.bins) == 0 {
		return 0
	}
	last := s.bins[len(s.bins)-1]
	lastBinType := s.instance.BinType(last.BinTypeID)
	leftover := packing.Length(last.Copies) * (lastBinType.Length - last.End)
	return float64(s.binLength - leftover - s.itemLength)
}

// FullWaste returns used bin length minus packed item length.
func (s *Solution) FullWaste() float64 { return float64(s.binLength - s.itemLength) }

// Full reports whether every demanded item copy is placed.
func (s *Solution) Full() bool { return s.numberOfItems == s.instance.NumberOfItems() }

// Feasible reports whether no weight or stacking rule is violated and all
// mandatory bin copies are used.
func (s *Solution) Feasible() bool {
	if !s.feasible {
		return false
	}
	for binTypeID := 0; binTypeID < s.instance.NumberOfBinTypes(); binTypeID++ {
		if s.binCopies[binTypeID] < s.instance.BinType(binTypeID).CopiesMin {
			return false
		}
	}
	return true
}

// Better reports whether s strictly beats other under the instance
// objective. Incomplete solutions never beat complete ones when the
// objective demands completeness. Other may be nil.
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
	}
	return false
}

// validForObjective reports whether the solution counts as a candidate at
// all under the objective.
func (s *Solution) validForObjective() bool {
	switch s.instance.Objective() {
	case packing.ObjectiveKnapsack:
		return true
	default:
		return s.Full()
	}
}
