package irregular

import (
	"strconv"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// WriteCertificate writes the solution in the certificate schema. Irregular
// coordinates are continuous; X and Y carry the item shift, LX the rotation
// angle in degrees.
func (s *Solution) WriteCertificate(path string) error {
	header := []string{"TYPE", "ID", "COPIES", "BIN", "STACK", "X", "Y", "Z", "LX", "LY", "LZ"}
	var rows [][]string
	for binPos, bin := range s.bins {
		rows = append(rows, []string{
			"BIN", strconv.Itoa(bin.BinTypeID), strconv.Itoa(bin.Copies),
			strconv.Itoa(binPos), "", "0", "0", "", "", "", "",
		})
		for _, item := range bin.Items {
			rows = append(rows, []string{
				"ITEM", strconv.Itoa(item.ItemTypeID), strconv.Itoa(bin.Copies),
				strconv.Itoa(binPos), "",
				strconv.FormatFloat(item.ShiftX, 'g', -1, 64),
				strconv.FormatFloat(item.ShiftY, 'g', -1, 64), "",
				strconv.FormatFloat(item.Angle, 'g', -1, 64), "", "",
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
	if err := table.RequireColumns("TYPE", "ID", "COPIES", "BIN", "X", "Y"); err != nil {
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
		switch kind {
		case "BIN":
			copies, err := table.GetInt(row, "COPIES", 1)
			if err != nil {
				return nil, err
			}
			binPos, err = solution.AddBin(int(id), int(copies))
			if err != nil {
				return nil, err
			}
		case "ITEM":
			x, err := table.GetFloat(row, "X", 0)
			if err != nil {
				return nil, err
			}
			y, err := table.GetFloat(row, "Y", 0)
			if err != nil {
				return nil, err
			}
			angle, err := table.GetFloat(row, "LX", 0)
			if err != nil {
				return nil, err
			}
			if err := solution.AddItem(binPos, int(id), x, y, angle); err != nil {
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
		out.WastePercentage = s.Waste() / s.binArea
		out.FullWastePercentage = s.FullWaste() / s.binArea
		out.VolumeLoad = s.itemArea / s.binArea
	}
	out.XMax = packing.Length(s.xMax)
	out.YMax = packing.Length(s.yMax)
}
