package onedimensional

import (
	"fmt"
	"math"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// InstanceBuilder assembles an Instance. Only the builder writes; the built
// instance is shared read-only by all workers.
type InstanceBuilder struct {
	objective  packing.Objective
	hasObjective bool
	parameters Parameters
	itemTypes  []ItemType
	binTypes   []BinType
	err        error
}

// NewInstanceBuilder returns an empty builder.
func NewInstanceBuilder() *InstanceBuilder { return &InstanceBuilder{} }

// SetObjective declares the objective.
func (b *InstanceBuilder) SetObjective(objective packing.Objective) {
	b.objective = objective
	b.hasObjective = true
}

// SetParameters sets the variant parameters.
func (b *InstanceBuilder) SetParameters(parameters Parameters) { b.parameters = parameters }

// AddItemType adds an item type. Profit -1 means "use the length as
// profit"; copies -1 means "effectively infinite".
func (b *InstanceBuilder) AddItemType(itemType ItemType) int {
	if itemType.Length <= 0 {
		b.fail(fmt.Errorf("%w: item type %d: length %d must be positive",
			packing.ErrInvalidInput, len(b.itemTypes), itemType.Length))
	}
	if itemType.Copies <= 0 && itemType.Copies != -1 {
		b.fail(fmt.Errorf("%w: item type %d: copies %d must be positive or -1",
			packing.ErrInvalidInput, len(b.itemTypes), itemType.Copies))
	}
	if itemType.Profit == -1 {
		itemType.Profit = packing.Profit(itemType.Length)
	}
	if itemType.MaximumStackability <= 0 {
		itemType.MaximumStackability = math.MaxInt32
	}
	if itemType.MaximumWeightAfter == 0 {
		itemType.MaximumWeightAfter = math.Inf(1)
	}
	b.itemTypes = append(b.itemTypes, itemType)
	return len(b.itemTypes) - 1
}

// AddBinType adds a bin type. Copies -1 means "effectively infinite".
func (b *InstanceBuilder) AddBinType(binType BinType) int {
	if binType.Length <= 0 {
		b.fail(fmt.Errorf("%w: bin type %d: length %d must be positive",
			packing.ErrInvalidInput, len(b.binTypes), binType.Length))
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
		binType.Cost = packing.Profit(binType.Length)
	}
	if binType.MaximumWeight == 0 {
		// The zero value means unconstrained, like an absent CSV column.
		binType.MaximumWeight = math.Inf(1)
	}
	b.binTypes = append(b.binTypes, binType)
	return len(b.binTypes) - 1
}

// CopyParametersFrom implements packing.InstanceBuilder.
func (b *InstanceBuilder) CopyParametersFrom(parent *Instance) {
	b.parameters = parent.Parameters()
}

// AddItemTypeFrom implements packing.InstanceBuilder: it copies a parent
// item type with a new profit and demand.
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

// Build finalises the instance and computes its aggregates.
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
		packing.ObjectiveVariableSizedBinPacking:
	default:
		return nil, fmt.Errorf("%w: onedimensional does not support %s",
			packing.ErrUnsupportedObjective, b.objective)
	}

	in := &Instance{
		objective:               b.objective,
		parameters:              b.parameters,
		itemTypes:               append([]ItemType(nil), b.itemTypes...),
		binTypes:                append([]BinType(nil), b.binTypes...),
		maxEfficiencyItemTypeID: -1,
	}

	// Largest bin length, for the infinite-copies expansion.
	largestBinLength := packing.Length(0)
	for _, binType := range in.binTypes {
		if binType.Length > largestBinLength {
			largestBinLength = binType.Length
		}
	}

	// Expand "effectively infinite" item demands to the number of copies
	// that could ever fit.
	allInfinite := len(in.itemTypes) > 0
	totalDemand := 0
	for i := range in.itemTypes {
		itemType := &in.itemTypes[i]
		if itemType.Copies == -1 {
			copies := int(largestBinLength / itemType.Length)
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

	// Expand infinite bin copies so the flattened bin sequence is finite.
	for i := range in.binTypes {
		binType := &in.binTypes[i]
		if binType.Copies == -1 {
			binType.Copies = totalDemand
			if binType.Copies < 1 {
				binType.Copies = 1
			}
		}
	}

	// Flattened bin sequence and aggregates.
	for binTypeID, binType := range in.binTypes {
		if binType.Cost > in.maximumBinCost {
			in.maximumBinCost = binType.Cost
		}
		for pos := 0; pos < binType.Copies; pos++ {
			in.previousBinsLength = append(in.previousBinsLength, in.binLength)
			in.binTypeIDs = append(in.binTypeIDs, binTypeID)
			in.binLength += binType.Length
		}
	}
	for itemTypeID, itemType := range in.itemTypes {
		in.numberOfItems += itemType.Copies
		in.itemLength += packing.Length(itemType.Copies) * itemType.Length
		in.itemProfit += packing.Profit(itemType.Copies) * itemType.Profit
		if itemType.Copies > in.maximumItemCopies {
			in.maximumItemCopies = itemType.Copies
		}
		if in.maxEfficiencyItemTypeID == -1 ||
			in.itemTypes[in.maxEfficiencyItemTypeID].Profit*float64(itemType.Length) <
				itemType.Profit*float64(in.itemTypes[in.maxEfficiencyItemTypeID].Length) {
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
