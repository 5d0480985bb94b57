package rectangleguillotine

import (
	"fmt"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// InstanceBuilder assembles a rectangle-guillotine Instance.
type InstanceBuilder struct {
	objective    packing.Objective
	hasObjective bool
	parameters   Parameters
	itemTypes    []ItemType
	binTypes     []BinType
	err          error
}

// NewInstanceBuilder returns an empty builder.
func NewInstanceBuilder() *InstanceBuilder { return &InstanceBuilder{} }

// SetObjective declares the objective.
func (b *InstanceBuilder) SetObjective(objective packing.Objective) {
	b.objective = objective
	b.hasObjective = true
}

// SetParameters sets the cutting rules.
func (b *InstanceBuilder) SetParameters(parameters Parameters) { b.parameters = parameters }

// AddItemType adds an item type. Profit -1 means "use the area as profit";
// copies -1 means "effectively infinite".
func (b *InstanceBuilder) AddItemType(itemType ItemType) int {
	if itemType.Width <= 0 || itemType.Height <= 0 {
		b.fail(fmt.Errorf("%w: item type %d: dimensions %dx%d must be positive",
			packing.ErrInvalidInput, len(b.itemTypes), itemType.Width, itemType.Height))
	}
	if itemType.Copies <= 0 && itemType.Copies != -1 {
		b.fail(fmt.Errorf("%w: item type %d: copies %d must be positive or -1",
			packing.ErrInvalidInput, len(b.itemTypes), itemType.Copies))
	}
	if itemType.Profit == -1 {
		itemType.Profit = packing.Profit(itemType.Area())
	}
	b.itemTypes = append(b.itemTypes, itemType)
	return len(b.itemTypes) - 1
}

// AddBinType adds a bin type. Copies -1 means "effectively infinite".
func (b *InstanceBuilder) AddBinType(binType BinType) int {
	if binType.Width <= 0 || binType.Height <= 0 {
		b.fail(fmt.Errorf("%w: bin type %d: dimensions %dx%d must be positive",
			packing.ErrInvalidInput, len(b.binTypes), binType.Width, binType.Height))
	}
	if binType.Copies <= 0 && binType.Copies != -1 {
		b.fail(fmt.Errorf("%w: bin type %d: copies %d must be positive or -1",
			packing.ErrInvalidInput, len(b.binTypes), binType.Copies))
	}
	if binType.Copies != -1 && binType.CopiesMin > binType.Copies {
		b.fail(fmt.Errorf("%w: bin type %d: copies_min %d > copies %d",
			packing.ErrInvalidInput, len(b.binTypes), binType.CopiesMin, binType.Copies))
	}
	if binType.Cost == -1 {
		binType.Cost = packing.Profit(binType.Area())
	}
	for _, defect := range binType.Defects {
		if defect.X < 0 || defect.Y < 0 ||
			defect.X+defect.Width > binType.Width ||
			defect.Y+defect.Height > binType.Height {
			b.fail(fmt.Errorf("%w: bin type %d: defect outside the bin",
				packing.ErrInvalidInput, len(b.binTypes)))
		}
	}
	b.binTypes = append(b.binTypes, binType)
	return len(b.binTypes) - 1
}

// AddDefect attaches a defect to an already added bin type.
func (b *InstanceBuilder) AddDefect(binTypeID int, defect Defect) {
	if binTypeID < 0 || binTypeID >= len(b.binTypes) {
		b.fail(fmt.Errorf("%w: defect: unknown bin type %d", packing.ErrInvalidInput, binTypeID))
		return
	}
	binType := &b.binTypes[binTypeID]
	if defect.X < 0 || defect.Y < 0 ||
		defect.X+defect.Width > binType.Width ||
		defect.Y+defect.Height > binType.Height {
		b.fail(fmt.Errorf("%w: defect outside bin type %d", packing.ErrInvalidInput, binTypeID))
		return
	}
	binType.Defects = append(binType.Defects, defect)
}

// CopyParametersFrom implements packing.InstanceBuilder.
func (b *InstanceBuilder) CopyParametersFrom(parent *Instance) {
	b.parameters = parent.Parameters()
}

// AddItemTypeFrom implements packing.InstanceBuilder.
func (b *InstanceBuilder) AddItemTypeFrom(parent *Instance, itemTypeID int, profit packing.Profit, copies int) {
	itemType := parent.ItemType(itemTypeID)
	itemType.Profit = profit
	itemType.Copies = copies
	b.AddItemType(itemType)
}

// AddBinTypeFrom implements packing.InstanceBuilder.
func (b *InstanceBuilder) AddBinTypeFrom(parent *Instance, binTypeID int, copies int) {
	binType := parent.BinType(binTypeID)
	binType.Copies = copies
	binType.CopiesMin = 0
	b.AddBinType(binType)
}

// Build finalises the instance and computes the aggregates.
func (b *InstanceBuilder) Build() (*Instance, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.hasObjective {
		b.objective = packing.ObjectiveDefault
	}
	switch b.objective {
	case packing.ObjectiveDefault, packing.ObjectiveBinPacking,
		packing.ObjectiveBinPackingWithLeftovers, packing.ObjectiveKnapsack,
		packing.ObjectiveVariableSizedBinPacking,
		packing.ObjectiveOpenDimensionX, packing.ObjectiveOpenDimensionY:
	default:
		return nil, fmt.Errorf("%w: rectangleguillotine does not support %s",
			packing.ErrUnsupportedObjective, b.objective)
	}
	if b.parameters.MaximumDistance1Cuts > 0 &&
		b.parameters.MinimumDistance1Cuts > b.parameters.MaximumDistance1Cuts {
		return nil, fmt.Errorf("%w: minimum_distance_1_cuts %d > maximum_distance_1_cuts %d",
			packing.ErrInvalidInput,
			b.parameters.MinimumDistance1Cuts, b.parameters.MaximumDistance1Cuts)
	}

	in := &Instance{
		objective:               b.objective,
		parameters:              b.parameters,
		itemTypes:               append([]ItemType(nil), b.itemTypes...),
		binTypes:                append([]BinType(nil), b.binTypes...),
		maxEfficiencyItemTypeID: -1,
	}

	largestBinArea := packing.Area(0)
	for _, binType := range in.binTypes {
		if binType.Area() > largestBinArea {
			largestBinArea = binType.Area()
		}
	}

	allInfinite := len(in.itemTypes) > 0
	totalDemand := 0
	for i := range in.itemTypes {
		itemType := &in.itemTypes[i]
		if itemType.Copies == -1 {
			copies := int(largestBinArea / itemType.Area())
			if copies < 1 {
				copies = 1
			}
			itemType.Copies = copies
		} else {
			allInfinite = false
		}
		totalDemand += itemType.Copies
	}
	in.allInfiniteCopies = allInfinite

	for i := range in.binTypes {
		binType := &in.binTypes[i]
		if binType.Copies == -1 {
			binType.Copies = totalDemand
			if binType.Copies < 1 {
				binType.Copies = 1
			}
		}
	}

	for binTypeID, binType := range in.binTypes {
		if binType.Cost > in.maximumBinCost {
			in.maximumBinCost = binType.Cost
		}
		for pos := 0; pos < binType.Copies; pos++ {
			in.previousBinsArea = append(in.previousBinsArea, in.binArea)
			in.binTypeIDs = append(in.binTypeIDs, binTypeID)
			in.binArea += binType.Area()
		}
	}
	for itemTypeID, itemType := range in.itemTypes {
		in.numberOfItems += itemType.Copies
		in.itemArea += packing.Area(itemType.Copies) * itemType.Area()
		in.itemProfit += packing.Profit(itemType.Copies) * itemType.Profit
		if itemType.Copies > in.maximumItemCopies {
			in.maximumItemCopies = itemType.Copies
		}
		if in.maxEfficiencyItemTypeID == -1 ||
			in.itemTypes[in.maxEfficiencyItemTypeID].Profit*float64(itemType.Area()) <
				itemType.Profit*float64(in.itemTypes[in.maxEfficiencyItemTypeID].Area()) {
			in.maxEfficiencyItemTypeID = itemTypeID
		}
	}

	return in, nil
}

func (b *InstanceBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
