package onedimensional

import (
	"fmt"
	"math"
	"strconv"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// ReadItemTypes loads an `<base>_items.csv` file into the builder.
func (b *InstanceBuilder) ReadItemTypes(path string) error {
	table, err := packing.ReadCSVTable(path)
	if err != nil {
		return err
	}
	if err := table.RequireColumns("LENGTH"); err != nil {
		return err
	}
	for _, row := range table.Rows {
		length, err := table.GetInt(row, "LENGTH", 0)
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
		weight, err := table.GetFloat(row, "WEIGHT", 0)
		if err != nil {
			return err
		}
		nesting, err := table.GetInt(row, "NESTING_LENGTH", 0)
		if err != nil {
			return err
		}
		stackability, err := table.GetInt(row, "MAXIMUM_STACKABILITY", -1)
		if err != nil {
			return err
		}
		weightAfter, err := table.GetFloat(row, "MAXIMUM_WEIGHT_AFTER", -1)
		if err != nil {
			return err
		}
		eligibility, err := table.GetInt(row, "ELIGIBILITY_ID", -1)
		if err != nil {
			return err
		}
		itemType := ItemType{
			Length:        length,
			Profit:        profit,
			Copies:        int(copies),
			Weight:        weight,
			NestingLength: nesting,
			EligibilityID: int(eligibility),
		}
		if stackability > 0 {
			itemType.MaximumStackability = int(stackability)
		}
		if weightAfter >= 0 {
			itemType.MaximumWeightAfter = weightAfter
		} else {
			itemType.MaximumWeightAfter = math.Inf(1)
		}
		b.AddItemType(itemType)
	}
	return b.err
}

// ReadBinTypes loads a `<base>_bins.csv` file into the builder.
func (b *InstanceBuilder) ReadBinTypes(path string) error {
	table, err := packing.ReadCSVTable(path)
	if err != nil {
		return err
	}
	if err := table.RequireColumns("LENGTH"); err != nil {
		return err
	}
	for _, row := range table.Rows {
		length, err := table.GetInt(row, "LENGTH", 0)
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
			Length:    length,
			Cost:      cost,
			Copies:    int(copies),
			CopiesMin: int(copiesMin),
		}
		if maximumWeight >= 0 {
			binType.MaximumWeight = maximumWeight
		} else {
			binType.MaximumWeight = math.Inf(1)
		}
		if eligibility, ok := table.Get(row, "ELIGIBILITY_IDS"); ok {
			for _, token := range splitList(eligibility) {
				id, err := strconv.Atoi(token)
				if err != nil {
					return fmt.Errorf("%w: %s: ELIGIBILITY_IDS: %v", packing.ErrInvalidInput, path, err)
				}
				binType.EligibilityIDs = append(binType.EligibilityIDs, id)
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
		}
	}
	return nil
}

// WriteItemTypes writes the instance's item types back to CSV with the same
// schema the reader accepts.
func (in *Instance) WriteItemTypes(path string) error {
	header := []string{"LENGTH", "PROFIT", "COPIES", "WEIGHT", "NESTING_LENGTH",
		"MAXIMUM_STACKABILITY", "MAXIMUM_WEIGHT_AFTER", "ELIGIBILITY_ID"}
	var rows [][]string
	for _, itemType := range in.itemTypes {
		stackability := "-1"
		if itemType.MaximumStackability != math.MaxInt32 {
			stackability = strconv.Itoa(itemType.MaximumStackability)
		}
		weightAfter := "-1"
		if !math.IsInf(itemType.MaximumWeightAfter, 1) {
			weightAfter = formatFloat(itemType.MaximumWeightAfter)
		}
		rows = append(rows, []string{
			strconv.FormatInt(itemType.Length, 10),
			formatFloat(itemType.Profit),
			strconv.Itoa(itemType.Copies),
			formatFloat(itemType.Weight),
			strconv.FormatInt(itemType.NestingLength, 10),
			stackability,
			weightAfter,
			strconv.Itoa(itemType.EligibilityID),
		})
	}
	return packing.WriteCSVFile(path, header, rows)
}

// WriteBinTypes writes the instance's bin types back to CSV.
func (in *Instance) WriteBinTypes(path string) error {
	header := []string{"LENGTH", "COST", "COPIES", "COPIES_MIN", "MAXIMUM_WEIGHT"}
	var rows [][]string
	for _, binType := range in.binTypes {
		maximumWeight := "-1"
		if !math.IsInf(binType.MaximumWeight, 1) {
			maximumWeight = formatFloat(binType.MaximumWeight)
		}
		rows = append(rows, []string{
			strconv.FormatInt(binType.Length, 10),
			formatFloat(binType.Cost),
			strconv.Itoa(binType.Copies),
			strconv.Itoa(binType.CopiesMin),
			maximumWeight,
		})
	}
	return packing.WriteCSVFile(path, header, rows)
}

// WriteParameters writes the parameter file.
func (in *Instance) WriteParameters(path string) error {
	rows := [][]string{{"objective", in.objective.String()}}
	return packing.WriteCSVFile(path, []string{"NAME", "VALUE"}, rows)
}

// WriteCertificate writes the solution in the certificate schema: one BIN
// row per solution bin followed by its ITEM rows.
func (s *Solution) WriteCertificate(path string) error {
	header := []string{"TYPE", "ID", "COPIES", "BIN", "STACK", "X", "Y", "Z", "LX", "LY", "LZ"}
	var rows [][]string
	for binPos, bin := range s.bins {
		binType := s.instance.BinType(bin.BinTypeID)
		rows = append(rows, []string{
			"BIN", strconv.Itoa(bin.BinTypeID), strconv.Itoa(bin.Copies),
			strconv.Itoa(binPos), "", "0", "", "",
			strconv.FormatInt(binType.Length, 10), "", "",
		})
		for _, item := range bin.Items {
			itemType := s.instance.ItemType(item.ItemTypeID)
			rows = append(rows, []string{
				"ITEM", strconv.Itoa(item.ItemTypeID), strconv.Itoa(bin.Copies),
				strconv.Itoa(binPos), "",
				strconv.FormatInt(item.Start, 10), "", "",
				strconv.FormatInt(itemType.Length, 10), "", "",
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
	if err := table.RequireColumns("TYPE", "ID", "COPIES", "BIN"); err != nil {
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
		switch kind {
		case "BIN":
			binPos, err = solution.AddBin(int(id), int(copies))
			if err != nil {
				return nil, err
			}
		case "ITEM":
			if err := solution.AddItem(binPos, int(id)); err != nil {
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
	if s.binLength > 0 {
		out.WastePercentage = s.Waste() / float64(s.binLength)
		out.FullWastePercentage = s.FullWaste() / float64(s.binLength)
		out.VolumeLoad = float64(s.itemLength) / float64(s.binLength)
	}
	if len(s.bins) > 0 {
		out.XMax = s.bins[len(s.bins)-1].End
	}
}

func splitList(value string) []string {
	var tokens []string
	current := ""
	for _, r := range value {
		if r == ';' || r == ' ' {
			if current != "" {
				tokens = append(tokens, current)
				current = ""
			}
			continue
		}
		current += string(r)
	}
	if current != "" {
		tokens = append(tokens, current)
	}
	return tokens
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
