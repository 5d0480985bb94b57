package rectangle

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
	if err := table.RequireColumns("WIDTH", "HEIGHT"); err != nil {
		return err
	}
	for _, row := range table.Rows {
		width, err := table.GetInt(row, "WIDTH", 0)
		if err != nil {
			return err
		}
		height, err := table.GetInt(row, "HEIGHT", 0)
		if err != nil {
			return err
		}
		profit, err := table.GetFloat(row, "PROFIT", -1)
		if err != nil {
			return err
		}
		copies, err := table.GetInt(row, "COPIES", 1)
		if err != nil {
			return err
		}
		oriented, err := table.GetInt(row, "ORIENTED", 0)
		if err != nil {
			return err
		}
		groupID, err := table.GetInt(row, "GROUP_ID", 0)
		if err != nil {
			return err
		}
		weight, err := table.GetFloat(row, "WEIGHT", 0)
		if err != nil {
			return err
		}
		b.AddItemType(ItemType{
			Width:    width,
			Height:   height,
			Profit:   profit,
			Copies:   int(copies),
			Oriented: oriented != 0,
			GroupID:  int(groupID),
			Weight:   weight,
		})
	}
	return b.err
}

// ReadBinTypes loads a `<base>_bins.csv` file into the builder.
func (b *InstanceBuilder) ReadBinTypes(path string) error {
	table, err := packing.ReadCSVTable(path)
	if err != nil {
		return err
	}
	if err := table.RequireColumns("WIDTH", "HEIGHT"); err != nil {
		return err
	}
	for _, row := range table.Rows {
		width, err := table.GetInt(row, "WIDTH", 0)
		if err != nil {
			return err
		}
		height, err := table.GetInt(row, "HEIGHT", 0)
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
			Width:     width,
			Height:    height,
			Cost:      cost,
			Copies:    int(copies),
			CopiesMin: int(copiesMin),
		}
		if maximumWeight >= 0 {
			binType.MaximumWeight = maximumWeight
		} else {
			binType.MaximumWeight = math.Inf(1)
		}
		b.AddBinType(binType)
	}
	return b.err
}

// ReadDefects loads a `<base>_defects.csv` file into the builder.
func (b *InstanceBuilder) ReadDefects(path string) error {
	table, err := packing.ReadCSVTable(path)
	if err != nil {
		return err
	}
	if err := table.RequireColumns("BIN", "X", "Y", "WIDTH", "HEIGHT"); err != nil {
		return err
	}
	for _, row := range table.Rows {
		binTypeID, err := table.GetInt(row, "BIN", 0)
		if err != nil {
			return err
		}
		x, err := table.GetInt(row, "X", 0)
		if err != nil {
			return err
		}
		y, err := table.GetInt(row, "Y", 0)
		if err != nil {
			return err
		}
		width, err := table.GetInt(row, "WIDTH", 0)
		if err != nil {
			return err
		}
		height, err := table.GetInt(row, "HEIGHT", 0)
		if err != nil {
			return err
		}
		b.AddDefect(int(binTypeID), Defect{X: x, Y: y, Width: width, Height: height})
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
	header := []string{"WIDTH", "HEIGHT", "PROFIT", "COPIES", "ORIENTED", "GROUP_ID", "WEIGHT"}
	var rows [][]string
	for _, itemType := range in.itemTypes {
		oriented := "0"
		if itemType.Oriented {
			oriented = "1"
		}
		rows = append(rows, []string{
			strconv.FormatInt(itemType.Width, 10),
			strconv.FormatInt(itemType.Height, 10),
			strconv.FormatFloat(itemType.Profit, 'g', -1, 64),
			strconv.Itoa(itemType.Copies),
			oriented,
			strconv.Itoa(itemType.GroupID),
			strconv.FormatFloat(itemType.Weight, 'g', -1, 64),
		})
	}
	return packing.WriteCSVFile(path, header, rows)
}

// WriteBinTypes writes the bin types back to CSV.
func (in *Instance) WriteBinTypes(path string) error {
	header := []string{"WIDTH", "HEIGHT", "COST", "COPIES", "COPIES_MIN", "MAXIMUM_WEIGHT"}
	var rows [][]string
	for _, binType := range in.binTypes {
		maximumWeight := "-1"
		if !math.IsInf(binType.MaximumWeight, 1) {
			maximumWeight = strconv.FormatFloat(binType.MaximumWeight, 'g', -1, 64)
		}
		rows = append(rows, []string{
			strconv.FormatInt(binType.Width, 10),
			strconv.FormatInt(binType.Height, 10),
			strconv.FormatFloat(binType.Cost, 'g', -1, 64),
			strconv.Itoa(binType.Copies),
			strconv.Itoa(binType.CopiesMin),
			maximumWeight,
		})
	}
	return packing.WriteCSVFile(path, header, rows)
}

// WriteDefects writes the defects of every bin type.
func (in *Instance) WriteDefects(path string) error {
	header := []string{"BIN", "X", "Y", "WIDTH", "HEIGHT"}
	var rows [][]string
	for binTypeID, binType := range in.binTypes {
		for _, defect := range binType.Defects {
			rows = append(rows, []string{
				strconv.Itoa(binTypeID),
				strconv.FormatInt(defect.X, 10),
				strconv.FormatInt(defect.Y, 10),
				strconv.FormatInt(defect.Width, 10),
				strconv.FormatInt(defect.Height, 10),
			})
		}
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

// WriteCertificate writes the solution in the certificate schema.
func (s *Solution) WriteCertificate(path string) error {
	header := []string{"TYPE", "ID", "COPIES", "BIN", "STACK", "X", "Y", "Z", "LX", "LY", "LZ"}
	var rows [][]string
	for binPos, bin := range s.bins {
		binType := s.instance.BinType(bin.BinTypeID)
		rows = append(rows, []string{
			"BIN", strconv.Itoa(bin.BinTypeID), strconv.Itoa(bin.Copies),
			strconv.Itoa(binPos), "", "0", "0", "",
			strconv.FormatInt(binType.Width, 10),
			strconv.FormatInt(binType.Height, 10), "",
		})
		for _, defect := range binType.Defects {
			rows = append(rows, []string{
				"DEFECT", "", "", strconv.Itoa(binPos), "",
				strconv.FormatInt(defect.X, 10),
				strconv.FormatInt(defect.Y, 10), "",
				strconv.FormatInt(defect.Width, 10),
				strconv.FormatInt(defect.Height, 10), "",
			})
		}
		for _, item := range bin.Items {
			itemType := s.instance.ItemType(item.ItemTypeID)
			width, height := itemType.Width, itemType.Height
			if item.Rotated {
				width, height = height, width
			}
			rows = append(rows, []string{
				"ITEM", strconv.Itoa(item.ItemTypeID), strconv.Itoa(bin.Copies),
				strconv.Itoa(binPos), "",
				strconv.FormatInt(item.X, 10),
				strconv.FormatInt(item.Y, 10), "",
				strconv.FormatInt(width, 10),
				strconv.FormatInt(height, 10), "",
			})
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
		switch kind {
		case "BIN":
			id, err := table.GetInt(row, "ID", 0)
			if err != nil {
				return nil, err
			}
			copies, err := table.GetInt(row, "COPIES", 1)
			if err != nil {
				return nil, err
			}
			binPos, err = solution.AddBin(int(id), int(copies))
			if err != nil {
				return nil, err
			}
		case "ITEM":
			id, err := table.GetInt(row, "ID", 0)
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
			rotated := lx != instance.ItemType(int(id)).Width
			if err := solution.AddItem(binPos, int(id), x, y, rotated); err != nil {
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
	if s.binArea > 0 {
		out.WastePercentage = s.Waste() / float64(s.binArea)
		out.FullWastePercentage = s.FullWaste() / float64(s.binArea)
		out.VolumeLoad = float64(s.itemArea) / float64(s.binArea)
	}
	out.XMax = s.XMax()
	out.YMax = s.YMax()
}
