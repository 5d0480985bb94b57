package irregular

import (
	"github.com/DrSkyle/packbeam/pkg/packing"
)

// ItemShape is one connected component of an item type, with the holes cut
// out of it.
type ItemShape struct {
	Shape Shape   `json:"shape"`
	Holes []Shape `json:"holes,omitempty"`
}

// ItemType describes one demanded irregular piece.
type ItemType struct {
	Shapes []ItemShape `json:"shapes"`
	Profit packing.Profit `json:"profit"`
	Copies int         `json:"copies"`

	// AllowedRotations lists the rotation angles in degrees; empty means
	// only 0.
	AllowedRotations []float64 `json:"allowed_rotations,omitempty"`
}

// Area returns the item area, holes subtracted.
func (t ItemType) Area() float64 {
	area := 0.0
	for _, shape := range t.Shapes {
		area += shape.Shape.Area()
		for _, hole := range shape.Holes {
			area -= hole.Area()
		}
	}
	return area
}

// Defect is a forbidden region of a bin.
type Defect struct {
	Shape Shape `json:"shape"`
}

// BinType describes one available irregular bin.
type BinType struct {
	Shape   Shape    `json:"shape"`
	Defects []Defect `json:"defects,omitempty"`
	Cost    packing.Profit `json:"cost"`

	Copies    int `json:"copies"`
	CopiesMin int `json:"copies_min"`
}

// Area returns the bin area.
func (t BinType) Area() float64 { return t.Shape.Area() }

// Parameters holds the variant parameters.
type Parameters struct {
	// ItemBinMinimumSpacing and ItemItemMinimumSpacing inflate the
	// conservative boxes.
	ItemBinMinimumSpacing  float64 `json:"item_bin_minimum_spacing,omitempty"`
	ItemItemMinimumSpacing float64 `json:"item_item_minimum_spacing,omitempty"`
}

// Instance is an immutable irregular problem.
type Instance struct {
	objective  packing.Objective
	parameters Parameters
	itemTypes  []ItemType
	binTypes   []BinType

	binTypeIDs       []int
	previousBinsArea []float64

	binArea                 float64
	maximumBinCost          packing.Profit
	numberOfItems           int
	itemArea                float64
	itemProfit              packing.Profit
	maxEfficiencyItemTypeID int
	maximumItemCopies       int
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

// ItemArea returns the total demanded item area.
func (in *Instance) ItemArea() float64 { return in.itemArea }

// ItemProfit returns the total demanded profit.
func (in *Instance) ItemProfit() packing.Profit { return in.itemProfit }

// MaximumItemCopies returns the largest demand over item types.
func (in *Instance) MaximumItemCopies() int { return in.maximumItemCopies }

// NumberOfBinTypes returns the number of bin types.
func (in *Instance) NumberOfBinTypes() int { return len(in.binTypes) }

// BinType returns a bin type by id.
func (in *Instance) BinType(binTypeID int) BinType { return in.binTypes[binTypeID] }

// NumberOfBins returns the length of the flattened bin sequence.
func (in *Instance) NumberOfBins() int { return len(in.binTypeIDs) }

// BinTypeIDAt returns the bin type of the bin at a position.
func (in *Instance) BinTypeIDAt(binPos int) int { return in.binTypeIDs[binPos] }

// PreviousBinsArea returns the total area of the bins before binPos.
func (in *Instance) PreviousBinsArea(binPos int) float64 { return in.previousBinsArea[binPos] }

// BinArea returns the total packable area.
func (in *Instance) BinArea() float64 { return in.binArea }

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
	return t.Profit / t.Area()
}

// ItemTypeCopies implements packing.Instance.
func (in *Instance) ItemTypeCopies(itemTypeID int) int { return in.itemTypes[itemTypeID].Copies }

// ItemTypeProfit implements packing.Instance.
func (in *Instance) ItemTypeProfit(itemTypeID int) packing.Profit {
	return in.itemTypes[itemTypeID].Profit
}

// ItemTypeSpace implements packing.Instance.
func (in *Instance) ItemTypeSpace(itemTypeID int) float64 { return in.itemTypes[itemTypeID].Area() }

// BinTypeCopies implements packing.Instance.
func (in *Instance) BinTypeCopies(binTypeID int) int { return in.binTypes[binTypeID].Copies }

// BinTypeCopiesMin implements packing.Instance.
func (in *Instance) BinTypeCopiesMin(binTypeID int) int { return in.binTypes[binTypeID].CopiesMin }

// BinTypeCost implements packing.Instance.
func (in *Instance) BinTypeCost(binTypeID int) packing.Profit { return in.binTypes[binTypeID].Cost }

// BinTypeSpace implements packing.Instance.
func (in *Instance) BinTypeSpace(binTypeID int) float64 { return in.binTypes[binTypeID].Area() }

// rotations lists the allowed rotation angles of an item type.
func (in *Instance) rotations(itemTypeID int) []float64 {
	itemType := in.itemTypes[itemTypeID]
	if len(itemType.AllowedRotations) == 0 {
		return []float64{0}
	}
	return itemType.AllowedRotations
}
