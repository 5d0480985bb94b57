package irregular

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// InstanceBuilder assembles an irregular Instance.
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

// SetParameters sets the variant parameters.
func (b *InstanceBuilder) SetParameters(parameters Parameters) { b.parameters = parameters }

// AddItemType adds an item type. Profit -1 means "use the area as profit";
// copies -1 means "effectively infinite".
func (b *InstanceBuilder) AddItemType(itemType ItemType) int {
	if len(itemType.Shapes) == 0 || itemType.Area() <= 0 {
		b.fail(fmt.Errorf("%w: item type %d: degenerate shape",
			packing.ErrInvalidInput, len(b.itemTypes)))
	}
	if itemType.Copies <= 0 && itemType.Copies != -1 {
		b.fail(fmt.Errorf("%w: item type %d: copies %d must be positive or -1",
			packing.ErrInvalidInput, len(b.itemTypes), itemType.Copies))
	}
	if itemType.Profit == -1 {
		itemType.Profit = itemType.Area()
	}
	b.itemTypes = append(b.itemTypes, itemType)
	return len(b.itemTypes) - 1
}

// AddBinType adds a bin type. Copies -1 means "effectively infinite".
func (b *InstanceBuilder) AddBinType(binType BinType) int {
	if binType.Area() <= 0 {
		b.fail(fmt.Errorf("%w: bin type %d: degenerate shape",
			packing.ErrInvalidInput, len(b.binTypes)))
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
		binType.Cost = binType.Area()
	}
	b.binTypes = append(b.binTypes, binType)
	return len(b.binTypes) - 1
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

// instanceJSON is the on-disk instance format. Irregular geometry does not
// fit the tabular CSV schema of the other variants.
type instanceJSON struct {
	Objective  string     `json:"objective"`
	Parameters Parameters `json:"parameters"`
	ItemTypes  []ItemType `json:"item_types"`
	BinTypes   []BinType  `json:"bin_types"`
}

// ReadJSON loads a whole instance from a JSON file.
func (b *InstanceBuilder) ReadJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", packing.ErrInvalidInput, err)
	}
	var parsed instanceJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("%w: %s: %v", packing.ErrInvalidInput, path, err)
	}
	if parsed.Objective != "" {
		objective, err := packing.ParseObjective(parsed.Objective)
		if err != nil {
			return err
		}
		b.SetObjective(objective)
	}
	b.parameters = parsed.Parameters
	for _, itemType := range parsed.ItemTypes {
		b.AddItemType(itemType)
	}
	for _, binType := range parsed.BinTypes {
		b.AddBinType(binType)
	}
	return b.err
}

// WriteJSON writes the instance back to a JSON file.
func (in *Instance) WriteJSON(path string) error {
	data, err := json.MarshalIndent(instanceJSON{
		Objective:  in.objective.String(),
		Parameters: in.parameters,
		ItemTypes:  in.itemTypes,
		BinTypes:   in.binTypes,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
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
		return nil, fmt.Errorf("%w: irregular does not support %s",
			packing.ErrUnsupportedObjective, b.objective)
	}

	in := &Instance{
		objective:               b.objective,
		parameters:              b.parameters,
		itemTypes:               append([]ItemType(nil), b.itemTypes...),
		binTypes:                append([]BinType(nil), b.binTypes...),
		maxEfficiencyItemTypeID: -1,
	}

	largestBinArea := 0.0
	for _, binType := range in.binTypes {
		if binType.Area() > largestBinArea {
			largestBinArea = binType.Area()
		}
	}

	totalDemand := 0
	for i := range in.itemTypes {
		itemType := &in.itemTypes[i]
		if itemType.Copies == -1 {
			copies := int(largestBinArea / itemType.Area())
			if copies < 1 {
				copies = 1
			}
			itemType.Copies = copies
		}
		totalDemand += itemType.Copies
	}

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
		in.itemArea += float64(itemType.Copies) * itemType.Area()
		in.itemProfit += packing.Profit(itemType.Copies) * itemType.Profit
		if itemType.Copies > in.maximumItemCopies {
			in.maximumItemCopies = itemType.Copies
		}
		if in.maxEfficiencyItemTypeID == -1 ||
			in.itemTypes[in.maxEfficiencyItemTypeID].Profit*itemType.Area() <
				itemType.Profit*in.itemTypes[in.maxEfficiencyItemTypeID].Area() {
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
