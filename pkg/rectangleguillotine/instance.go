// Package rectangleguillotine solves rectangle packing problems where every
// cut is a straight edge-to-edge guillotine cut, organised in up to three
// stages. Cut patterns are generated by construction: first-stage strips,
// second-stage rows inside a strip, items side by side inside a row.
package rectangleguillotine

import (
	"fmt"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// CutType restricts the shape of the second-stage rows.
type CutType int

const (
	// CutTypeNonExact lets items sit below the row's 2-cut, leaving waste
	// above short items.
	CutTypeNonExact CutType = iota

	// CutTypeExact forces every item of a row to reach the row's 2-cut.
	CutTypeExact

	// CutTypeHomogenous forces every item of a row to be of the same
	// type.
	CutTypeHomogenous

	// CutTypeRoadef2018 is the ROADEF/EURO 2018 challenge token. Rows are
	// built as with CutTypeExact; no trim cut is modelled.
	CutTypeRoadef2018
)

// ParseCutType reads a cut-type token.
func ParseCutType(token string) (CutType, error) {
	switch token {
	case "non-exact":
		return CutTypeNonExact, nil
	case "exact":
		return CutTypeExact, nil
	case "homogenous":
		return CutTypeHomogenous, nil
	case "roadef2018":
		return CutTypeRoadef2018, nil
	}
	return CutTypeNonExact, fmt.Errorf("%w: unknown cut type %q", packing.ErrInvalidInput, token)
}

func (c CutType) String() string {
	switch c {
	case CutTypeExact:
		return "exact"
	case CutTypeHomogenous:
		return "homogenous"
	case CutTypeRoadef2018:
		return "roadef2018"
	}
	return "non-exact"
}

// FirstStageOrientation fixes the direction of the first-stage cuts.
type FirstStageOrientation int

const (
	// FirstStageVertical cuts the bin into vertical strips.
	FirstStageVertical FirstStageOrientation = iota

	// FirstStageHorizontal cuts the bin into horizontal strips.
	FirstStageHorizontal

	// FirstStageAny lets the solver try both.
	FirstStageAny
)

// ParseFirstStageOrientation reads an orientation token.
func ParseFirstStageOrientation(token string) (FirstStageOrientation, error) {
	switch token {
	case "vertical":
		return FirstStageVertical, nil
	case "horizontal":
		return FirstStageHorizontal, nil
	case "any":
		return FirstStageAny, nil
	}
	return FirstStageVertical, fmt.Errorf("%w: unknown first stage orientation %q",
		packing.ErrInvalidInput, token)
}

func (o FirstStageOrientation) String() string {
	switch o {
	case FirstStageHorizontal:
		return "horizontal"
	case FirstStageAny:
		return "any"
	}
	return "vertical"
}

// ItemType describes one demanded rectangle.
type ItemType struct {
	Width  packing.Length
	Height packing.Length
	Profit packing.Profit
	Copies int

	// Oriented forbids the 90° rotation.
	Oriented bool
}

// Area returns the item area.
func (t ItemType) Area() packing.Area { return packing.Area(t.Width) * packing.Area(t.Height) }

// Defect is a forbidden rectangle of a bin.
type Defect struct {
	X      packing.Length
	Y      packing.Length
	Width  packing.Length
	Height packing.Length
}

// BinType describes one available plate.
type BinType struct {
	Width  packing.Length
	Height packing.Length
	Cost   packing.Profit

	Copies    int
	CopiesMin int

	Defects []Defect
}

// Area returns the bin area.
func (t BinType) Area() packing.Area { return packing.Area(t.Width) * packing.Area(t.Height) }

// Parameters holds the guillotine cutting rules.
type Parameters struct {
	CutType               CutType
	FirstStageOrientation FirstStageOrientation

	// MinimumDistance1Cuts and MaximumDistance1Cuts bound the width of a
	// first-stage strip; 0 means unbounded.
	MinimumDistance1Cuts packing.Length
	MaximumDistance1Cuts packing.Length

	// MinimumDistance2Cuts bounds the height of a second-stage row.
	MinimumDistance2Cuts packing.Length

	// MinimumWasteLength is the smallest usable leftover a cut may
	// produce.
	MinimumWasteLength packing.Length

	// MaximumNumber2Cuts bounds the rows per strip; 0 means unbounded.
	MaximumNumber2Cuts int

	// CutThroughDefects is read and written with the parameters but not
	// used by the branching scheme: items are always pushed clear of
	// defects, and cuts crossing a defect are not tracked.
	CutThroughDefects bool

	// CutThickness is the kerf removed by every cut.
	CutThickness packing.Length
}

// Instance is an immutable rectangle-guillotine problem.
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
	itemArea                packing.Area
	itemProfit              packing.Profit
	maxEfficiencyItemTypeID int
	maximumItemCopies       int
	allInfiniteCopies       bool
}

// Objective returns the declared objective.
func (in *Instance) Objective() packing.Objective { return in.objective }

// Parameters returns the cutting rules.
func (in *Instance) Parameters() Parameters { return in.parameters }

// NumberOfItemTypes returns the number of item types.
func (in *Instance) NumberOfItemTypes() int { return len(in.itemTypes) }

// ItemType returns an item type by id.
func (in *Instance) ItemType(itemTypeID int) ItemType { return in.itemTypes[itemTypeID] }

// NumberOfItems returns the total demanded copies.
func (in *Instance) NumberOfItems() int { return in.numberOfItems }

// ItemArea returns the total demanded item area.
func (in *Instance) ItemArea() packing.Area { return in.itemArea }

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

// rotations lists the legal orientations of an item type.
func (in *Instance) rotations(itemTypeID int) []bool {
	itemType := in.itemTypes[itemTypeID]
	if itemType.Oriented || itemType.Width == itemType.Height {
		return []bool{false}
	}
	return []bool{false, true}
}
