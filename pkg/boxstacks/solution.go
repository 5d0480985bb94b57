package boxstacks

import (
	"fmt"
	"math"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// SolutionItem is one placed box inside a stack.
type SolutionItem struct {
	ItemTypeID int
	Rotated    bool

	// ZStart is the bottom coordinate of the box, nesting applied.
	ZStart packing.Length
}

// SolutionStack is one vertical column of boxes on the bin floor.
type SolutionStack struct {
	XStart packing.Length
	XEnd   packing.Length
	YStart packing.Length
	YEnd   packing.Length

	Items []SolutionItem

	// ZEnd is the top of the stack.
	ZEnd packing.Length

	Weight packing.Weight

	remainingWeightAbove packing.Weight
	maximumStackability  int
	stackabilityID       int
}

// SolutionBin is one used bin with a multiplicity and its weight state.
type SolutionBin struct {
	BinTypeID int
	Copies    int
	Stacks    []SolutionStack

	Weight packing.Weight

	// GroupWeight and GroupWeightWeightedSum hold, per group, the weight
	// and the x-weighted weight of the items of this group and above, for
	// the axle-weight computation of partially unloaded trucks.
	GroupWeight            []packing.Weight
	GroupWeightWeightedSum []float64

	Profit packing.Profit
}

// Solution is a mutable boxstacks assignment built incrementally.
type Solution struct {
	instance *Instance

	bins       []SolutionBin
	binCopies  []int
	itemCopies []int

	numberOfBins   int
	numberOfItems  int
	numberOfStacks int
	profit         packing.Profit
	cost           packing.Profit
	itemVolume     packing.Volume
	binVolume      packing.Volume

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
	s.bins = append(s.bins, SolutionBin{
		BinTypeID:              binTypeID,
		Copies:                 copies,
		GroupWeight:            make([]packing.Weight, s.instance.NumberOfGroups()),
		GroupWeightWeightedSum: make([]float64, s.instance.NumberOfGroups()),
	})
	s.binCopies[binTypeID] += copies
	s.numberOfBins += copies
	s.cost += packing.Profit(copies) * binType.Cost
	s.binVolume += packing.Volume(copies) * binType.Volume()
	return len(s.bins) - 1, nil
}

// AddStack carves a stack footprint inside the bin at binPos, which must be
// the last added bin, and returns the stack id.
func (s *Solution) AddStack(binPos int, x0, x1, y0, y1 packing.Length) (int, error) {
	if binPos != len(s.bins)-1 {
		return 0, fmt.Errorf("%w: add stack: bin %d is not the last bin",
			packing.ErrIllegalStateTransition, binPos)
	}
	bin := &s.bins[binPos]
	binType := s.instance.BinType(bin.BinTypeID)
	if x0 < 0 || y0 < 0 || x1 <= x0 || y1 <= y0 || x1 > binType.X || y1 > binType.Y {
		return 0, fmt.Errorf("%w: add stack: footprint (%d,%d)x(%d,%d) outside bin",
			packing.ErrIllegalStateTransition, x0, x1, y0, y1)
	}
	bin.Stacks = append(bin.Stacks, SolutionStack{
		XStart:               x0,
		XEnd:                 x1,
		YStart:               y0,
		YEnd:                 y1,
		remainingWeightAbove: math.Inf(1),
		maximumStackability:  math.MaxInt32,
		stackabilityID:       -1,
	})
	s.numberOfStacks += bin.Copies
	if x1 > s.xMax {
		s.xMax = x1
	}
	if y1 > s.yMax {
		s.yMax = y1
	}
	return len(bin.Stacks) - 1, nil
}

// AddItem places one copy of an item type on top of the last added stack of
// the bin at binPos. The footprint must match the stack; rotations outside
// the item's orientation mask are state errors. Weight and stacking
// violations are data: they surface through the feasibility predicates.
func (s *Solution) AddItem(binPos, itemTypeID int, rotated bool) error {
	if binPos != len(s.bins)-1 {
		return fmt.Errorf("%w: add item: bin %d is not the last bin",
			packing.ErrIllegalStateTransition, binPos)
	}
	bin := &s.bins[binPos]
	if len(bin.Stacks) == 0 {
		return fmt.Errorf("%w: add item: no stack in bin %d",
			packing.ErrIllegalStateTransition, binPos)
	}
	if itemTypeID < 0 || itemTypeID >= s.instance.NumberOfItemTypes() {
		return fmt.Errorf("%w: add item: unknown item type %d",
			packing.ErrIllegalStateTransition, itemTypeID)
	}
	itemType := s.instance.ItemType(itemTypeID)
	if rotated && itemType.Rotations&2 == 0 {
		return fmt.Errorf("%w: add item: item type %d cannot rotate",
			packing.ErrIllegalStateTransition, itemTypeID)
	}
	stack := &bin.Stacks[len(bin.Stacks)-1]
	x, y := itemType.X, itemType.Y
	if rotated {
		x, y = y, x
	}
	if x != stack.XEnd-stack.XStart || y != stack.YEnd-stack.YStart {
		return fmt.Errorf("%w: add item: item type %d footprint %dx%d does not match stack %dx%d",
			packing.ErrIllegalStateTransition, itemTypeID, x, y,
			stack.XEnd-stack.XStart, stack.YEnd-stack.YStart)
	}
	if len(stack.Items) > 0 && stack.stackabilityID != itemType.StackabilityID {
		return fmt.Errorf("%w: add item: stackability id %d does not match stack's %d",
			packing.ErrIllegalStateTransition, itemType.StackabilityID, stack.stackabilityID)
	}
	binType := s.instance.BinType(bin.BinTypeID)

	zStart := stack.ZEnd
	if len(stack.Items) > 0 {
		zStart -= itemType.NestingHeight
		if zStart < 0 {
			zStart = 0
		}
	}
	zEnd := zStart + itemType.Z
	if zEnd > binType.Z {
		return fmt.Errorf("%w: add item: stack reaches %d in a bin of height %d",
			packing.ErrIllegalStateTransition, zEnd, binType.Z)
	}

	stack.Items = append(stack.Items, SolutionItem{ItemTypeID: itemTypeID, Rotated: rotated, ZStart: zStart})
	stack.ZEnd = zEnd
	stack.Weight += itemType.Weight
	stack.remainingWeightAbove = math.Min(
		stack.remainingWeightAbove-itemType.Weight,
		itemType.MaximumWeightAbove)
	if itemType.MaximumStackability < stack.maximumStackability {
		stack.maximumStackability = itemType.MaximumStackability
	}
	stack.stackabilityID = itemType.StackabilityID

	bin.Weight += itemType.Weight
	bin.Profit += itemType.Profit
	center := float64(stack.XStart+stack.XEnd) / 2
	for group := 0; group <= itemType.GroupID; group++ {
		bin.GroupWeight[group] += itemType.Weight
		bin.GroupWeightWeightedSum[group] += center * itemType.Weight
	}

	s.itemCopies[itemTypeID] += bin.Copies
	s.numberOfItems += bin.Copies
	s.profit += packing.Profit(bin.Copies) * itemType.Profit
	s.itemVolume += packing.Volume(bin.Copies) * itemType.Volume()
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
	for _, stack := range src.Stacks {
		if _, err := s.AddStack(newBinPos, stack.XStart, stack.XEnd, stack.YStart, stack.YEnd); err != nil {
			return err
		}
		for _, item := range stack.Items {
			itemTypeID := item.ItemTypeID
			if itemTypeIDs != nil {
				itemTypeID = itemTypeIDs[item.ItemTypeID]
			}
			if err := s.AddItem(newBinPos, itemTypeID, item.Rotated); err != nil {
				return err
			}
		}
	}
	return nil
}

// NumberOfItems returns the number of placed item copies.
func (s *Solution) NumberOfItems() int { return s.numberOfItems }

// NumberOfBins returns the number of used bins, multiplicities included.
func (s *Solution) NumberOfBins() int { return s.numberOfBins }

// NumberOfStacks returns the number of stacks, bin multiplicities included.
func (s *Solution) NumberOfStacks() int { return s.numberOfStacks }

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

// ItemVolume returns the packed item volume.
func (s *Solution) ItemVolume() packing.Volume { return s.itemVolume }

// XMax returns the largest stack x-extent.
func (s *Solution) XMax() packing.Length { return s.xMax }

// YMax returns the largest stack y-extent.
func (s *Solution) YMax() packing.Length { return s.yMax }

// Waste returns the used volume not covered by items.
func (s *Solution) Waste() float64 { return float64(s.binVolume - s.itemVolume) }

// FullWaste returns used bin volume minus packed item volume.
func (s *Solution) FullWaste() float64 { return s.Waste() }

// Full reports whether every demanded item copy is placed.
func (s *Solution) Full() bool { return s.numberOfItems == s.instance.NumberOfItems() }

// FeasibleTotalWeight reports whether every bin respects its maximum
// weight.
func (s *Solution) FeasibleTotalWeight() bool {
	return s.ComputeWeightConstraintsViolation() == 0
}

// ComputeWeightConstraintsViolation returns the total excess weight over
// the bin maxima; zero when feasible.
func (s *Solution) ComputeWeightConstraintsViolation() packing.Weight {
	violation := packing.Weight(0)
	for _, bin := range s.bins {
		binType := s.instance.BinType(bin.BinTypeID)
		if bin.Weight > binType.MaximumWeight {
			violation += (bin.Weight - binType.MaximumWeight) * packing.Weight(bin.Copies)
		}
	}
	return violation
}

// FeasibleAxleWeights reports whether every semi-trailer bin respects its
// middle and rear axle maxima at every unloading step.
func (s *Solution) FeasibleAxleWeights() bool {
	return s.ComputeAxleWeightConstraintsViolation() == 0
}

// ComputeAxleWeightConstraintsViolation returns the total excess axle
// weight over the truck maxima, checked for every group prefix (the load
// after unloading groups 0..g-1 must still be legal); zero when feasible.
func (s *Solution) ComputeAxleWeightConstraintsViolation() packing.Weight {
	violation := packing.Weight(0)
	for _, bin := range s.bins {
		truck := s.instance.BinType(bin.BinTypeID).SemiTrailerTruck
		if !truck.Is {
			continue
		}
		for group := 0; group < s.instance.NumberOfGroups(); group++ {
			if bin.GroupWeight[group] == 0 {
				continue
			}
			middle, rear := truck.ComputeAxleWeights(
				bin.GroupWeightWeightedSum[group], bin.GroupWeight[group])
			if middle > truck.MiddleAxleMaximumWeight {
				violation += (middle - truck.MiddleAxleMaximumWeight) * packing.Weight(bin.Copies)
			}
			if rear > truck.RearAxleMaximumWeight {
				violation += (rear - truck.RearAxleMaximumWeight) * packing.Weight(bin.Copies)
			}
		}
	}
	return violation
}

// Feasible reports whether all weight, axle and mandatory-copy rules hold.
func (s *Solution) Feasible() bool {
	if !s.FeasibleTotalWeight() || !s.FeasibleAxleWeights() {
		return false
	}
	for binTypeID := 0; binTypeID < s.instance.NumberOfBinTypes(); binTypeID++ {
		if s.binCopies[binTypeID] < s.instance.BinType(binTypeID).CopiesMin {
			return false
		}
	}
	return true
}

// Better reports whether s strictly beats other under the objective. Other
// may be nil. Infeasible solutions never beat feasible ones.
func (s *Solution) Better(other *Solution) bool {
	if other == nil {
		return s.validForObjective()
	}
	if !s.validForObjective() {
		return false
	}
	if s.Feasible() != other.Feasible() {
		return s.Feasible()
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

func (s *Solution) validForObjective() bool {
	switch s.instance.Objective() {
	case packing.ObjectiveKnapsack:
		return true
	default:
		return s.Full()
	}
}
