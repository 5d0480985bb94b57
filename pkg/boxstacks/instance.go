// Package boxstacks solves three-dimensional packing problems where items
// form vertical stacks on the bin floor: truck loading with weights,
// stackability classes, group unloading order and axle-weight limits.
package boxstacks

import (
	"math"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// ItemType describes one demanded box.
type ItemType struct {
	X packing.Length
	Y packing.Length
	Z packing.Length

	Profit packing.Profit
	Copies int

	// Rotations is the allowed-orientation mask: bit 0 keeps the box as
	// given, bit 1 allows the horizontal x/y swap. Zero means bit 0 only.
	Rotations int

	Weight packing.Weight

	// GroupID is the unloading group.
	GroupID int

	// StackabilityID is the equivalence class of footprints allowed to
	// form one vertical stack.
	StackabilityID int

	// NestingHeight is the overlap with the item below in a stack.
	NestingHeight packing.Length

	// MaximumStackability bounds the number of items in a stack
	// containing this type.
	MaximumStackability int

	// MaximumWeightAbove bounds the weight stacked above this type.
	MaximumWeightAbove packing.Weight
}

// Volume returns the box volume.
func (t ItemType) Volume() packing.Volume {
	return packing.Volume(t.X) * packing.Volume(t.Y) * packing.Volume(t.Z)
}

// SemiTrailerTruckData carries the axle geometry of a semi-trailer truck
// bin. Axle weights derive from the load's weight and its weighted x sum.
type SemiTrailerTruckData struct {
	Is bool

	TractorWeight packing.Weight

	FrontAxleMiddleAxleDistance            packing.Length
	FrontAxleTractorGravityCenterDistance  packing.Length
	FrontAxleHarnessDistance               packing.Length
	EmptyTrailerWeight                     packing.Weight
	HarnessRearAxleDistance                packing.Length
	TrailerGravityCenterRearAxleDistance   packing.Length
	TrailerStartHarnessDistance            packing.Length

	RearAxleMaximumWeight   packing.Weight
	MiddleAxleMaximumWeight packing.Weight
}

// ComputeAxleWeights returns the middle and rear axle weights for a load of
// the given weight whose weighted x sum is weightWeightedSum.
func (t SemiTrailerTruckData) ComputeAxleWeights(weightWeightedSum, weight float64) (middle, rear packing.Weight) {
	if !t.Is || weight == 0 {
		return 0, 0
	}
	gravityCenterFromStart := weightWeightedSum / weight
	gravityCenterToRearAxle := float64(t.TrailerStartHarnessDistance) +
		float64(t.HarnessRearAxleDistance) - gravityCenterFromStart
	harnessWeight := (weight*gravityCenterToRearAxle +
		t.EmptyTrailerWeight*float64(t.TrailerGravityCenterRearAxleDistance)) /
		float64(t.HarnessRearAxleDistance)
	rear = weight + t.EmptyTrailerWeight - harnessWeight
	middle = (t.TractorWeight*float64(t.FrontAxleTractorGravityCenterDistance) +
		harnessWeight*float64(t.FrontAxleHarnessDistance)) /
		float64(t.FrontAxleMiddleAxleDistance)
	return middle, rear
}

// BinType describes one available container or truck.
type BinType struct {
	X packing.Length
	Y packing.Length
	Z packing.Length

	Cost      packing.Profit
	Copies    int
	CopiesMin int

	MaximumWeight packing.Weight

	// MaximumStackDensity is the stack weight per footprint area read
	// from the input; 0 means unbounded. It is stored only: neither the
	// branching scheme nor the solution checks it.
	MaximumStackDensity float64

	SemiTrailerTruck SemiTrailerTruckData
}

// Volume returns the bin volume.
func (t BinType) Volume() packing.Volume {
	return packing.Volume(t.X) * packing.Volume(t.Y) * packing.Volume(t.Z)
}

// Area returns the floor area.
func (t BinType) Area() packing.Area { return packing.Area(t.X) * packing.Area(t.Y) }

// Parameters holds the variant parameters.
type Parameters struct {
	// UnloadingConstraint: none, only-x or increasing-x over the groups.
	UnloadingConstraint UnloadingConstraint
}

// UnloadingConstraint restricts how item groups may be ordered along the
// truck for unloading.
type UnloadingConstraint int

const (
	UnloadingNone UnloadingConstraint = iota
	UnloadingOnlyXMovements
	UnloadingIncreasingX
)

// ParseUnloadingConstraint reads an unloading-constraint token.
func ParseUnloadingConstraint(token string) (UnloadingConstraint, bool) {
	switch token {
	case "none":
		return UnloadingNone, true
	case "only-x", "only-x-movements":
		return UnloadingOnlyXMovements, true
	case "increasing-x":
		return UnloadingIncreasingX, true
	}
	return UnloadingNone, false
}

func (u UnloadingConstraint) String() string {
	switch u {
	case UnloadingOnlyXMovements:
		return "only-x"
	case UnloadingIncreasingX:
		return "increasing-x"
	}
	return "none"
}

// Instance is an immutable boxstacks problem.
type Instance struct {
	objective  packing.Objective
	parameters Parameters
	itemTypes  []ItemType
	binTypes   []BinType

	binTypeIDs         []int
	previousBinsVolume []packing.Volume

	binVolume               packing.Volume
	maximumBinCost          packing.Profit
	numberOfItems           int
	numberOfGroups          int
	itemVolume              packing.Volume
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

// ItemVolume returns the total demanded item volume.
func (in *Instance) ItemVolume() packing.Volume { return in.itemVolume }

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

// PreviousBinsVolume returns the total volume of the bins before binPos.
func (in *Instance) PreviousBinsVolume(binPos int) packing.Volume {
	return in.previousBinsVolume[binPos]
}

// BinVolume returns the total packable volume.
func (in *Instance) BinVolume() packing.Volume { return in.binVolume }

// MaximumBinCost returns the largest bin cost.
func (in *Instance) MaximumBinCost() packing.Profit { return in.maximumBinCost }

// MaxEfficiency returns the best profit per volume over the item types.
func (in *Instance) MaxEfficiency() float64 {
	if in.maxEfficiencyItemTypeID < 0 {
		return 0
	}
	t := in.itemTypes[in.maxEfficiencyItemTypeID]
	if t.Volume() == 0 {
		return 0
	}
	return t.Profit / float64(t.Volume())
}

// ItemTypeCopies implements packing.Instance.
func (in *Instance) ItemTypeCopies(itemTypeID int) int { return in.itemTypes[itemTypeID].Copies }

// ItemTypeProfit implements packing.Instance.
func (in *Instance) ItemTypeProfit(itemTypeID int) packing.Profit {
	return in.itemTypes[itemTypeID].Profit
}

// ItemTypeSpace implements packing.Instance.
func (in *Instance) ItemTypeSpace(itemTypeID int) float64 {
	return float64(in.itemTypes[itemTypeID].Volume())
}

// BinTypeCopies implements packing.Instance.
func (in *Instance) BinTypeCopies(binTypeID int) int { return in.binTypes[binTypeID].Copies }

// BinTypeCopiesMin implements packing.Instance.
func (in *Instance) BinTypeCopiesMin(binTypeID int) int { return in.binTypes[binTypeID].CopiesMin }

// BinTypeCost implements packing.Instance.
func (in *Instance) BinTypeCost(binTypeID int) packing.Profit { return in.binTypes[binTypeID].Cost }

// BinTypeSpace implements packing.Instance.
func (in *Instance) BinTypeSpace(binTypeID int) float64 {
	return float64(in.binTypes[binTypeID].Volume())
}

// rotations lists the legal horizontal orientations of an item type.
func (in *Instance) rotations(itemTypeID int) []bool {
	itemType := in.itemTypes[itemTypeID]
	if itemType.Rotations&2 != 0 && itemType.X != itemType.Y {
		return []bool{false, true}
	}
	return []bool{false}
}

// noWeightConstraints reports whether every weight bound is infinite.
func (in *Instance) noWeightConstraints() bool {
	for _, binType := range in.binTypes {
		if !math.IsInf(binType.MaximumWeight, 1) || binType.SemiTrailerTruck.Is {
			return false
		}
	}
	for _, itemType := range in.itemTypes {
		if !math.IsInf(itemType.MaximumWeightAbove, 1) {
			return false
		}
	}
	return true
}
