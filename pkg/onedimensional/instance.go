// Package onedimensional solves cutting and packing problems where items
// and bins are lengths: cutting stock, one-dimensional bin packing and
// knapsack, with weights, nesting, stackability and eligibility side
// constraints.
package onedimensional

import (
	"math"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// ItemType describes one demanded item shape.
type ItemType struct {
	// Length of the item.
	Length packing.Length

	// Profit gained by packing one copy.
	Profit packing.Profit

	// Copies demanded.
	Copies int

	// Weight of one copy.
	Weight packing.Weight

	// NestingLength is removed when the item is packed after another item
	// in the same bin.
	NestingLength packing.Length

	// MaximumStackability bounds the number of items in a bin containing
	// this item type.
	MaximumStackability int

	// MaximumWeightAfter bounds the weight of the items packed after
	// items of this type.
	MaximumWeightAfter packing.Weight

	// EligibilityID restricts the item to bin types supporting it;
	// -1 means any bin.
	EligibilityID int
}

// Space returns the item measure used by guides and meta-heuristics.
func (t ItemType) Space() packing.Length { return t.Length }

// BinType describes one available bin shape.
type BinType struct {
	Length packing.Length

	// Cost of using one copy.
	Cost packing.Profit

	// Copies available; CopiesMin must be used.
	Copies    int
	CopiesMin int

	// MaximumWeight allowed in the bin.
	MaximumWeight packing.Weight

	// EligibilityIDs supported by the bin.
	EligibilityIDs []int
}

// Space returns the bin measure.
func (t BinType) Space() packing.Length { return t.Length }

// Parameters holds the variant parameters. The one-dimensional variant has
// none, but the type keeps subproblem builders uniform across variants.
type Parameters struct{}

// Instance is an immutable one-dimensional problem: item types, bin types,
// the objective, and aggregates precomputed by the builder.
type Instance struct {
	objective  packing.Objective
	parameters Parameters
	itemTypes  []ItemType
	binTypes   []BinType

	// Flattened bin sequence and cumulative previous-bins length.
	binTypeIDs         []int
	previousBinsLength []packing.Length

	binLength       packing.Length
	maximumBinCost  packing.Profit
	numberOfItems   int
	itemLength      packing.Length
	itemProfit      packing.Profit
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

// ItemLength returns the total length of the demanded items.
func (in *Instance) ItemLength() packing.Length { return in.itemLength }

// ItemProfit returns the total profit of the demanded items.
func (in *Instance) ItemProfit() packing.Profit { return in.itemProfit }

// MaxEfficiencyItemTypeID returns the item type with the largest
// profit/length ratio.
func (in *Instance) MaxEfficiencyItemTypeID() int { return in.maxEfficiencyItemTypeID }

// MaximumItemCopies returns the largest demand over the item types.
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

// PreviousBinsLength returns the total length of the bins before binPos.
func (in *Instance) PreviousBinsLength(binPos int) packing.Length {
	return in.previousBinsLength[binPos]
}

// BinLength returns the total packable length.
func (in *Instance) BinLength() packing.Length { return in.binLength }

// MaximumBinCost returns the largest bin cost.
func (in *Instance) MaximumBinCost() packing.Profit { return in.maximumBinCost }

// MeanItemLength returns the mean length over demanded copies.
func (in *Instance) MeanItemLength() float64 {
	if in.numberOfItems == 0 {
		return 0
	}
	return float64(in.itemLength) / float64(in.numberOfItems)
}

// Variant-independent accessors used by the generic meta-heuristics.

// ItemTypeCopies implements packing.Instance.
func (in *Instance) ItemTypeCopies(itemTypeID int) int { return in.itemTypes[itemTypeID].Copies }

// ItemTypeProfit implements packing.Instance.
func (in *Instance) ItemTypeProfit(itemTypeID int) packing.Profit {
	return in.itemTypes[itemTypeID].Profit
}

// ItemTypeSpace implements packing.Instance.
func (in *Instance) ItemTypeSpace(itemTypeID int) float64 {
	return float64(in.itemTypes[itemTypeID].Length)
}

// BinTypeCopies implements packing.Instance.
func (in *Instance) BinTypeCopies(binTypeID int) int { return in.binTypes[binTypeID].Copies }

// BinTypeCopiesMin implements packing.Instance.
func (in *Instance) BinTypeCopiesMin(binTypeID int) int { return in.binTypes[binTypeID].CopiesMin }

// BinTypeCost implements packing.Instance.
func (in *Instance) BinTypeCost(binTypeID int) packing.Profit { return in.binTypes[binTypeID].Cost }

// BinTypeSpace implements packing.Instance.
func (in *Instance) BinTypeSpace(binTypeID int) float64 {
	return float64(in.binTypes[binTypeID].Length)
}

// MaxEfficiency returns the best profit per length over the item types.
func (in *Instance) MaxEfficiency() float64 {
	if in.maxEfficiencyItemTypeID < 0 {
		return 0
	}
	t := in.itemTypes[in.maxEfficiencyItemTypeID]
	if t.Length == 0 {
		return 0
	}
	return t.Profit / float64(t.Length)
}

// eligible reports whether the item type may enter the bin type.
func (in *Instance) eligible(itemTypeID, binTypeID int) bool {
	item := in.itemTypes[itemTypeID]
	if item.EligibilityID < 0 {
		return true
	}
	for _, id := range in.binTypes[binTypeID].EligibilityIDs {
		if id == item.EligibilityID {
			return true
		}
	}
	return false
}

// noWeightConstraints reports whether every weight bound is infinite.
func (in *Instance) noWeightConstraints() bool {
	for _, binType := range in.binTypes {
		if !math.IsInf(binType.MaximumWeight, 1) {
			return false
		}
	}
	for _, itemType := range in.itemTypes {
		if !math.IsInf(itemType.MaximumWeightAfter, 1) {
			return false
		}
	}
	return true
}
