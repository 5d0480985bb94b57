// Package rectangle solves axis-aligned rectangle packing problems:
// knapsack, bin packing, variable-sized bin packing and open-dimension strip
// packing, with optional item rotation, bin defects, weights and unloading
// constraints over item groups.
package rectangle

import (
	"math"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// UnloadingConstraint restricts how item groups may block each other inside
// a bin so they can be unloaded in group order.
type UnloadingConstraint int

const (
	UnloadingNone UnloadingConstraint = iota
	UnloadingOnlyXMovements
	UnloadingOnlyYMovements
	UnloadingIncreasingX
	UnloadingIncreasingY
)

// ParseUnloadingConstraint reads an unloading-constraint token.
func ParseUnloadingConstraint(token string) (UnloadingConstraint, bool) {
	switch token {
	case "none":
		return UnloadingNone, true
	case "only-x", "only-x-movements":
		return UnloadingOnlyXMovements, true
	case "only-y", "only-y-movements":
		return UnloadingOnlyYMovements, true
	case "increasing-x":
		return UnloadingIncreasingX, true
	case "increasing-y":
		return UnloadingIncreasingY, true
	}
	return UnloadingNone, false
}

func (u UnloadingConstraint) String() string {
	switch u {
	case UnloadingOnlyXMovements:
		return "only-x"
	case UnloadingOnlyYMovements:
		return "only-y"
	case UnloadingIncreasingX:
		return "increasing-x"
	case UnloadingIncreasingY:
		return "increasing-y"
	}
	return "none"
}

// ItemType describes one demanded rectangle.
type ItemType struct {
	Width  packing.Length
	Height packing.Length
	Profit packing.Profit
	Copies int

	// Oriented forbids the 90° rotation.
	Oriented bool

	// GroupID is the unloading group; items of one group are unloaded
	// together.
	GroupID int

	Weight packing.Weight
}

// Area returns the item area.
func (t ItemType) Area() packing.Area { return packing.Area(t.Width) * packing.Area(t.Height) }

// Space returns the measure used by guides and meta-heuristics.
func (t ItemType) Space() packing.Area { return t.Area() }

// Defect is a forbidden rectangle of a bin where no item may overlap.
type Defect struct {
	X      packing.Length
	Y      packing.Length
	Width  packing.Length
	Height packing.Length
}

// BinType describes one available bin.
type BinType struct {
	Width  packing.Length
	Height packing.Length
	Cost   packing.Profit

	Copies    int
	CopiesMin int

	MaximumWeight packing.Weight

	Defects []Defect
}

// Area returns the bin area.
func (t BinType) Area() packing.Area { return packing.Area(t.Width) * packing.Area(t.Height) }

// Space returns the bin measure.
func (t BinType) Space() packing.Area { return t.Area() }

// Parameters holds the variant parameters.
type Parameters struct {
	UnloadingConstraint UnloadingConstraint
}

// Instance is an immutable rectangle problem.
type Instance struct {
	objective  packing.Objective
	parameters Parameters
	itemTypes  []ItemType
	binTypes   []BinType

	binTypeIDs       []int
	previousBinsArea []packing.Area

	binArea                 packing.Area
	maximumBinCost          packing.Profit
	numberOfItems           int
	numberOfGroups          int
	itemArea                packing.Area
	itemProfit              packing.Profit
	maxEfficiencyItemTypeID int
	maximumItemCopies       int
	allInfiniteCopies       bool
}

// Objective returns the declared objective.
func (in *Instance) Objective() packing.Objective { return in.objective }

// Parameters returns the variant parameters.
func (in *Instance) Parameters() Parameters { return in.parameters }

// NumberOfItemTypes returns the number of item types.
func (in *Instance) NumberOfItemTypes() int { return len(in.itemTypes) }

// ItemType returns an item type by id.
func (in *Instance) ItemType(itemTypeID int) ItemType { return in.itemTypes[itemTypeID] }

// NumberOfItems returns the total demanded copies.
func (in *Instance) NumberOfItems() int { return in.numberOfItems }

// NumberOfGroups returns the number of unloading groups.
func (in *Instance) NumberOfGroups() int { return in.numberOfGroups }

// ItemArea returns the total demanded item area.
func (in *Instance) ItemArea() packing.Area { return in.itemArea }

// ItemProfit returns the total demanded profit.
func (in *Instance) ItemProfit() packing.Profit { return in.itemProfit }

// MaximumItemCopies returns the largest demand over item types.
func (in *Instance) MaximumItemCopies() int { return in.maximumItemCopies }

// UnboundedKnapsack reports whether every item type has effectively
// infinite copies.
func (in *Instance) UnboundedKnapsack() bool { return in.allInfiniteCopies }

// NumberOfBinTypes returns the number of bin types.
func (in *Instance) NumberOfBinTypes() int { return len(in.binTypes) }

// BinType returns a bin type by id.
func (in *Instance) BinType(binTypeID int) BinType { return in.binTypes[binTypeID] }

// NumberOfBins returns the length of the flattened bin sequence.
func (in *Instance) NumberOfBins() int { return len(in.binTypeIDs) }

// BinTypeIDAt returns the bin type of the bin at a position.
func (in *Instance) BinTypeIDAt(binPos int) int { return in.binTypeIDs[binPos] }

// PreviousBinsArea returns the total area of the bins before binPos.
func (in *Instance) PreviousBinsArea(binPos int) packing.Area { return in.previousBinsArea[binPos] }

// BinArea returns the total packable area.
func (in *Instance) BinArea() packing.Area { return in.binArea }

// MaximumBinCost returns the largest bin cost.
func (in *Instance) MaximumBinCost() packing.Profit { return in.maximumBinCost }

// MaxEfficiency returns the best profit per area over the item types.
func (in *Instance) MaxEfficiency() float64 {
	if in.maxEfficiencyItemTypeID < 0 {
		return 0
	}
	t := in.itemTypes[in.maxEfficiencyItemTypeID]
	if t.Area() == 0 {
		return 0
	}
	return t.Profit / float64(t.Area())
}

// ItemTypeCopies implements packing.Instance.
func (in *Instance) ItemTypeCopies(itemTypeID int) int { return in.itemTypes[itemTypeID].Copies }

// ItemTypeProfit implements packing.Instance.
func (in *Instance) ItemTypeProfit(itemTypeID int) packing.Profit {
	return in.itemTypes[itemTypeID].Profit
}

// ItemTypeSpace implements packing.Instance.
func (in *Instance) ItemTypeSpace(itemTypeID int) float64 {
	return float64(in.itemTypes[itemTypeID].Area())
}

// BinTypeCopies implements packing.Instance.
func (in *Instance) BinTypeCopies(binTypeID int) int { return in.binTypes[binTypeID].Copies }

// BinTypeCopiesMin implements packing.Instance.
func (in *Instance) BinTypeCopiesMin(binTypeID int) int { return in.binTypes[binTypeID].CopiesMin }

// BinTypeCost implements packing.Instance.
func (in *Instance) BinTypeCost(binTypeID int) packing.Profit { return in.binTypes[binTypeID].Cost }

// BinTypeSpace implements packing.Instance.
func (in *Instance) BinTypeSpace(binTypeID int) float64 {
	return float64(in.binTypes[binTypeID].Area())
}

// rotations lists the legal orientations of an item type: false is the
// as-given orientation, true the 90° rotation.
func (in *Instance) rotations(itemTypeID int) []bool {
	itemType := in.itemTypes[itemTypeID]
	if itemType.Oriented || itemType.Width == itemType.Height {
		return []bool{false}
	}
	return []bool{false, true}
}

// noWeightConstraints reports whether every bin weight bound is infinite.
func (in *Instance) noWeightConstraints() bool {
	for _, binType := range in.binTypes {
		if !math.IsInf(binType.MaximumWeight, 1) {
			return false
		}
	}
	return true
}
