package boxstacks

import (
	"math"
	"strconv"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// ReadItemTypes loads a `<base>_items.csv` file into the builder.
func (b *InstanceBuilder) ReadItemTypes(path string) error {
	table, err := packing.ReadCSVTable(path)
	if err != nil {
		return err
	}
	if err := table.RequireColumns("X", "Y", "Z"); err != nil {
		return err
	}
	for _, row := range table.Rows {
		x, err := table.GetInt(row, "X", 0)
		if err != nil {
			return err
		}
		y, err := table.GetInt(row, "Y", 0)
		if err != nil {
			return err
		}
		z, err := table.GetInt(row, "Z", 0)
		if err != nil {
			return err
		}
		copies, err := table.GetInt(row, "COPIES", 1)
		if err != nil {
			return err
		}
		profit, err := table.GetFloat(row, "PROFIT", -1)
		if err != nil {
			return err
		}
		groupID, err := table.GetInt(row, "GROUP_ID", 0)
		if err != nil {
			return err
		}
		rotationsValue, err := table.GetInt(row, "ROTATIONS", 0)
		if err != nil {
			return err
		}
		weight, err := table.GetFloat(row, "WEIGHT", 0)
		if err != nil {
			return err
		}
		stackabilityID, err := table.GetInt(row, "STACKABILITY_ID", 0)
		if err != nil {
			return err
		}
		nestingHeight, err := table.GetInt(row, "NESTING_HEIGHT", 0)
		if err != nil {
			return err
		}
		maximumStackability, err := table.GetInt(row, "MAXIMUM_STACKABILITY", -1)
		if err != nil {
			return err
		}
		maximumWeightAbove, err := table.GetFloat(row, "MAXIMUM_WEIGHT_ABOVE", -1)
		if err != nil {
			return err
		}
		itemType := ItemType{
			X:              x,
			Y:              y,
			Z:              z,
			Profit:         profit,
			Copies:         int(copies),
			Rotations:      int(rotationsValue),
			Weight:         weight,
			GroupID:        int(groupID),
			StackabilityID: int(stackabilityID),
			NestingHeight:  nestingHeight,
		}
		if maximumStackability > 0 {
			itemType.MaximumStackability = int(maximumStackability)
		}
		if maximumWeightAbove >= 0 {
			itemType.MaximumWeightAbove = maximumWeightAbove
		} else {
			itemType.MaximumWeightAbove = math.Inf(1)
		}
		b.AddItemType(itemType)
	}
	return b.err
}

// ReadBinTypes loads a `<base>_bins.csv` file, semi-trailer-truck fields
// included.
func (b *InstanceBuilder) ReadBinTypes(path string) error {
	table, err := packing.ReadCSVTable(path)
	if err != nil {
		return err
	}
	if err := table.RequireColumns("X", "Y", "Z"); err != nil {
		return err
	}
	for _, row := range table.Rows {
		x, err := table.GetInt(row, "X", 0)
		if err != nil {
			return err
		}
		y, err := table.GetInt(row, "Y", 0)
		if err != nil {
			return err
		}
		z, err := table.GetInt(row, "Z", 0)
		if err != nil {
			return err
		}
		cost, err := table.GetFloat(row, "COST", -1)
		if err != nil {
			return err
		}
		copies, err := table.GetInt(row, "COPIES", 1)
		if err != nil {
			return err
		}
		copiesMin, err := table.GetInt(row, "COPIES_MIN", 0)
		if err != nil {
			return err
		}
		maximumWeight, err := table.GetFloat(row, "MAXIMUM_WEIGHT", -1)
		if err != nil {
			return err
		}
		binType := BinType{
			X:         x,
			Y:         y,
			Z:         z,
			Cost:      cost,
			Copies:    int(copies),
			CopiesMin: int(copiesMin),
		}
		if maximumWeight >= 0 {
			binType.MaximumWeight = maximumWeight
		} else {
			binType.MaximumWeight = math.Inf(1)
		}

		truck := &binType.SemiTrailerTruck
		if v, ok := table.Get(row, "IS_SEMI_TRAILER_TRUCK"); ok && (v == "1" || v == "true") {
			truck.Is = true
			truck.TractorWeight, err = table.GetFloat(row, "TRACTOR_WEIGHT", 0)
			if err != nil {
				return err
			}
			truck.EmptyTrailerWeight, err = table.GetFloat(row, "EMPTY_TRAILER_WEIGHT", 0)
			if err != nil {
				return err
			}
			truck.FrontAxleMiddleAxleDistance, err = table.GetInt(row, "FRONT_AXLE_MIDDLE_AXLE_DISTANCE", 1)
			if err != nil {
				return err
			}
			truck.FrontAxleTractorGravityCenterDistance, err = table.GetInt(row, "FRONT_AXLE_TRACTOR_GRAVITY_CENTER_DISTANCE", 0)
			if err != nil {
				return err
			}
			truck.FrontAxleHarnessDistance, err = table.GetInt(row, "FRONT_AXLE_HARNESS_DISTANCE", 0)
			if err != nil {
				return err
			}
			truck.HarnessRearAxleDistance, err = table.GetInt(row, "HARNESS_REAR_AXLE_DISTANCE", 1)
			if err != nil {
				return err
			}
			truck.TrailerGravityCenterRearAxleDistance, err = table.GetInt(row, "TRAILER_GRAVITY_CENTER_REAR_AXLE_DISTANCE", 0)
			if err != nil {
				return err
			}
			truck.TrailerStartHarnessDistance, err = table.GetInt(row, "TRAILER_START_HARNESS_DISTANCE", 0)
			if err != nil {
				return err
			}
			truck.MiddleAxleMaximumWeight, err = table.GetFloat(row, "MIDDLE_AXLE_MAXIMUM_WEIGHT", math.Inf(1))
			if err != nil {
				return err
			}
			truck.RearAxleMaximumWeight, err = table.GetFloat(row, "REAR_AXLE_MAXIMUM_WEIGHT", math.Inf(1))
			if err != nil {
				return err
			}
		}
		b.AddBinType(binType)
	}
	return b.err
}

// ReadParameters loads a `<base>_parameters.csv` file of NAME,VALUE pairs.
func (b *InstanceBuilder) ReadParameters(path string) error {
	table, err := packing.ReadCSVTable(path)
	if err != nil {
		return err
	}
	if err := table.RequireColumns("NAME", "VALUE"); err != nil {
		return err
	}
	for _, row := range table.Rows {
		name, _ := table.Get(row, "NAME")
		value, _ := table.Get(row, "VALUE")
		switch name {
		case "objective":
			objective, err := packing.ParseObjective(value)
			if err != nil {
				return err
			}
			b.SetObjective(objective)
		case "unloading_constraint":
			if constraint, ok := ParseUnloadingConstraint(value); ok {
				b.parameters.UnloadingConstraint = constraint
			}
		}
	}
	return nil
}

// WriteItemTypes writes the item types back to CSV.
func (in *Instance) WriteItemTypes(path string) error {
	header := []string{"X", "Y", "Z", "COPIES", "PROFIT", "GROUP_ID", "ROTATIONS",
		"WEIGHT", "STACKABILITY_ID", "NESTING_HEIGHT", "MAXIMUM_STACKABILITY",
		"MAXIMUM_WEIGHT_ABOVE"}
	var rows [][]string
	for _, itemType := range in.itemTypes {
		stackability := "-1"
		if itemType.MaximumStackability != math.MaxInt32 {
			stackability = strconv.Itoa(itemType.MaximumStackability)
		}
		weightAbove := "-1"
		if !math.IsInf(itemType.MaximumWeightAbove, 1) {
			weightAbove = strconv.FormatFloat(itemType.MaximumWeightAbove, 'g', -1, 64)
		}
		rows = append(rows, []string{
			strconv.FormatInt(itemType.X, 10),
			strconv.FormatInt(itemType.Y, 10),
			strconv.FormatInt(itemType.Z, 10),
			strconv.Itoa(itemType.Copies),
			strconv.FormatFloat(itemType.Profit, 'g', -1, 64),
			strconv.Itoa(itemType.GroupID),
			strconv.Itoa(itemType.Rotations),
			strconv.FormatFloat(itemType.Weight, 'g', -1, 64),
			strconv.Itoa(itemType.StackabilityID),
			strconv.FormatInt(itemType.NestingHeight, 10),
			stackability,
			weightAbove,
		})
	}
	return packing.WriteCSVFile(path, header, rows)
}

// WriteBinTypes writes the bin types back to CSV.
func (in *Instance) WriteBinTypes(path string) error {
	header := []string{"X", "Y", "Z", "COST", "COPIES", "COPIES_MIN", "MAXIMUM_WEIGHT"}
	var rows [][]string
	for _, binType := range in.binTypes {
		maximumWeight := "-1"
		if !math.IsInf(binType.MaximumWeight, 1) {
			maximumWeight = strconv.FormatFloat(binType.MaximumWeight, 'g', -1, 64)
		}
		rows = append(rows, []string{
			strconv.FormatInt(binType.X, 10),
			strconv.FormatInt(binType.Y, 10),
			strconv.FormatInt(binType.Z, 10),
			strconv.FormatFloat(binType.Cost, 'g', -1, 64),
			strconv.Itoa(binType.Copies),
			strconv.Itoa(binType.CopiesMin),
			maximumWeight,
		})
	}
	return packing.WriteCSVFile(path, header, rows)
}

// WriteParameters writes the parameter file.
func (in *Instance) WriteParameters(path string) error {
	rows := [][]string{
		{"objective", in.objective.String()},
		{"unloading_constraint", in.parameters.UnloadingConstraint.String()},
	}
	return packing.WriteCSVFile(path, []string{"NAME", "VALUE"}, rows)
}

// WriteCertificate writes the solution in the certificate schema: one BIN
// row, then STACK and ITEM rows per stack.
func (s *Solution) WriteCertificate(path string) error {
	header := []string{"TYPE", "ID", "COPIES", "BIN", "STACK", "X", "Y", "Z", "LX", "LY", "LZ"}
	var rows [][]string
	for binPos, bin := range s.bins {
		binType := s.instance.BinType(bin.BinTypeID)
		rows = append(rows, []string{
			"BIN", strconv.Itoa(bin.BinTypeID), strconv.Itoa(bin.Copies),
			strconv.Itoa(binPos), "", "0", "0", "0",
			strconv.FormatInt(binType.X, 10),
			strconv.FormatInt(binType.Y, 10),
			strconv.FormatInt(binType.Z, 10),
		})
		for stackID, stack := range bin.Stacks {
			rows = append(rows, []string{
				"STACK", strconv.Itoa(stackID), strconv.Itoa(bin.Copies),
				strconv.Itoa(binPos), strconv.Itoa(stackID),
				strconv.FormatInt(stack.XStart, 10),
				strconv.FormatInt(stack.YStart, 10), "0",
				strconv.FormatInt(stack.XEnd-stack.XStart, 10),
				strconv.FormatInt(stack.YEnd-stack.YStart, 10),
				strconv.FormatInt(stack.ZEnd, 10),
			})
			for _, item := range stack.Items {
				itemType := s.instance.ItemType(item.ItemTypeID)
				x, y := itemType.X, itemType.Y
				if item.Rotated {
					x, y = y, x
				}
				rows = append(rows, []string{
					"ITEM", strconv.Itoa(item.ItemTypeID), strconv.Itoa(bin.Copies),
					strconv.Itoa(binPos), strconv.Itoa(stackID),
					strconv.FormatInt(stack.XStart, 10),
					strconv.FormatInt(stack.YStart, 10),
					strconv.FormatInt(item.ZStart, 10),
					strconv.FormatInt(x, 10),
					strconv.FormatInt(y, 10),
					strconv.FormatInt(itemType.Z, 10),
				})
			}
		}
	}
	return packing.WriteCSVFile(path, header, rows)
}

// ReadCertificate reconstructs a solution from a certificate file.
func ReadCertificate(instance *Instance, path string) (*Solution, error) {
	table, err := packing.ReadCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := table.RequireColumns("TYPE", "ID", "COPIES", "BIN", "X", "Y", "LX"); err != nil {
		return nil, err
	}
	solution := NewSolution(instance)
	binPos := -1
	for _, row := range table.Rows {
		kind, _ := table.Get(row, "TYPE")
		id, err := table.GetInt(row, "ID", 0)
		if err != nil {
			return nil, err
		}
		copies, err := table.GetInt(row, "COPIES", 1)
		if err != nil {
			return nil, err
		}
		x, err := table.GetInt(row, "X", 0)
		if err != nil {
			return nil, err
		}
		y, err := table.GetInt(row, "Y", 0)
		if err != nil {
			return nil, err
		}
		lx, err := table.GetInt(row, "LX", 0)
		if err != nil {
			return nil, err
		}
		ly, err := table.GetInt(row, "LY", 0)
		if err != nil {
			return nil, err
		}
		switch kind {
		case "BIN":
			binPos, err = solution.AddBin(int(id), int(copies))
			if err != nil {
				return nil, err
			}
		case "STACK":
			if _, err := solution.AddStack(binPos, x, x+lx, y, y+ly); err != nil {
				return nil, err
			}
		case "ITEM":
			itemType := instance.ItemType(int(id))
			rotated := lx != itemType.X && lx == itemType.Y
			if err := solution.AddItem(binPos, int(id), rotated); err != nil {
				return nil, err
			}
		}
	}
	return solution, nil
}

// FillJSON fills the run summary from the solution aggregates.
func (s *Solution) FillJSON(out *packing.JSONOutput) {
	out.NumberOfItems = s.NumberOfItems()
	out.NumberOfBins = s.NumberOfBins()
	out.ItemProfit = s.Profit()
	out.BinCost = s.Cost()
	out.Waste = s.Waste()
	out.FullWaste = s.FullWaste()
	if s.binVolume > 0 {
		out.WastePercentage = s.Waste() / float64(s.binVolume)
		out.FullWastePercentage = s.FullWaste() / float64(s.binVolume)
		out.VolumeLoad = float64(s.itemVolume) / float64(s.binVolume)
	}
	out.XMax = s.XMax()
	out.YMax = s.YMax()
}
