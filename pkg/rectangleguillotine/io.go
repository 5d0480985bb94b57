package rectangleguillotine

import (
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
		b.AddItemType(ItemType{
			Width:    width,
			Height:   height,
			Profit:   profit,
			Copies:   int(copies),
			Oriented: oriented != 0,
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
		b.AddBinType(BinType{
			Width:     width,
			Height:    height,
			Cost:      cost,
			Copies:    int(copies),
			CopiesMin: int(copiesMin),
		})
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

// ReadParameters loads a `<base>_parameters.csv` file of NAME,VALUE pairs,
// including the guillotine cutting rules.
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
		case "cut_type":
			cutType, err := ParseCutType(value)
			if err != nil {
				return err
			}
			b.parameters.CutType = cutType
		case "first_stage_orientation":
			orientation, err := ParseFirstStageOrientation(value)
			if err != nil {
				return err
			}
			b.parameters.FirstStageOrientation = orientation
		case "minimum_distance_1_cuts":
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			b.parameters.MinimumDistance1Cuts = v
		case "maximum_distance_1_cuts":
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			b.parameters.MaximumDistance1Cuts = v
		case "minimum_distance_2_cuts":
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			b.parameters.MinimumDistance2Cuts = v
		case "minimum_waste_length":
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			b.parameters.MinimumWasteLength = v
		case "maximum_number_2_cuts":
			v, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			b.parameters.MaximumNumber2Cuts = v
		case "cut_through_defects":
			b.parameters.CutThroughDefects = value == "1" || value == "true"
		case "cut_thickness":
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			b.parameters.CutThickness = v
		}
	}
	return nil
}

// WriteItemTypes writes the item types back to CSV.
func (in *Instance) WriteItemTypes(path string) error {
	header := []string{"WIDTH", "HEIGHT", "PROFIT", "COPIES", "ORIENTED"}
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
		})
	}
	return packing.WriteCSVFile(path, header, rows)
}

// WriteBinTypes writes the bin types back to CSV.
func (in *Instance) WriteBinTypes(path string) error {
	header := []string{"WIDTH", "HEIGHT", "COST", "COPIES", "COPIES_MIN"}
	var rows [][]string
	for _, binType := range in.binTypes {
		rows = append(rows, []string{
			strconv.FormatInt(binType.Width, 10),
			strconv.FormatInt(binType.Height, 10),
			strconv.FormatFloat(binType.Cost, 'g', -1, 64),
			strconv.Itoa(binType.Copies),
			strconv.Itoa(binType.CopiesMin),
		})
	}
	return packing.WriteCSVFile(path, header, rows)
}

// WriteParameters writes the parameter file, cutting rules included.
func (in *Instance) WriteParameters(path string) error {
	p := in.parameters
	rows := [][]string{
		{"objective", in.objective.String()},
		{"cut_type", p.CutType.String()},
		{"first_stage_orientation", p.FirstStageOrientation.String()},
		{"minimum_distance_1_cuts", strconv.FormatInt(p.MinimumDistance1Cuts, 10)},
		{"maximum_distance_1_cuts", strconv.FormatInt(p.MaximumDistance1Cuts, 10)},
		{"minimum_distance_2_cuts", strconv.FormatInt(p.MinimumDistance2Cuts, 10)},
		{"minimum_waste_length", strconv.FormatInt(p.MinimumWasteLength, 10)},
		{"maximum_number_2_cuts", strconv.Itoa(p.MaximumNumber2Cuts)},
		{"cut_through_defects", boolToken(p.CutThroughDefects)},
		{"cut_thickness", strconv.FormatInt(p.CutThickness, 10)},
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

func boolToken(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
