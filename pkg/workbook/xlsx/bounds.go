package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Range is a rectangular block of cells, 1-based and inclusive.
type Range struct {
	R1 int `json:"r1"`
	C1 int `json:"c1"`
	R2 int `json:"r2"`
	C2 int `json:"c2"`
}

// String formats r in A1 notation, e.g. "A1:D10".
func (r Range) String() string {
	start, _ := excelize.CoordinatesToCellName(r.C1, r.R1)
	end, _ := excelize.CoordinatesToCellName(r.C2, r.R2)
	return fmt.Sprintf("%s:%s", start, end)
}

// Absolute formats r like a defined-name reference on sheet, e.g. 'S'!$A$1:$D$10.
func (r Range) Absolute(sheet string) string {
	start, _ := excelize.CoordinatesToCellName(r.C1, r.R1, true)
	end, _ := excelize.CoordinatesToCellName(r.C2, r.R2, true)
	return fmt.Sprintf("'%s'!%s:%s", strings.ReplaceAll(sheet, "'", "''"), start, end)
}

// ParseRange parses "A1:D10", with or without "$" anchors and an optional
// sheet prefix.
func ParseRange(ref string) (Range, error) {
	if idx := strings.LastIndex(ref, "!"); idx >= 0 {
		ref = ref[idx+1:]
	}
	ref = strings.ReplaceAll(ref, "$", "")

	parts := strings.Split(ref, ":")
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("invalid range %q", ref)
	}

	startCol, startRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return Range{}, err
	}
	endCol, endRow, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return Range{}, err
	}

	return Range{R1: startRow, C1: startCol, R2: endRow, C2: endCol}, nil
}

// SheetInfo summarizes the populated area of one sheet.
type SheetInfo struct {
	Name string `json:"name"`
	// Range is the bounding box of non-empty cells; nil for a blank sheet.
	Range *Range `json:"range,omitempty"`
	// Filled is the number of non-empty cells inside Range.
	Filled int `json:"filled"`
	// Density is Filled divided by the area of Range.
	Density float64 `json:"density"`
}

// Inspect reports the data bounds of every sheet in the file at path.
func Inspect(path string) ([]SheetInfo, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var infos []SheetInfo
	for _, sheetName := range f.GetSheetList() {
		info, err := DataRange(f, sheetName)
		if err != nil {
			return nil, NewSheetError(sheetName, "inspect", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// DataRange finds the bounding box of non-empty cells in a sheet.
func DataRange(f *excelize.File, sheetName string) (SheetInfo, error) {
	info := SheetInfo{Name: sheetName}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return info, err
	}

	minRow, maxRow, minCol, maxCol := findDataBounds(rows)
	if minRow < 0 {
		return info, nil
	}

	totalCells := (maxRow - minRow + 1) * (maxCol - minCol + 1)
	info.Filled = countNonEmptyCells(rows, minRow, maxRow, minCol, maxCol)
	info.Density = float64(info.Filled) / float64(totalCells)
	info.Range = &Range{R1: minRow + 1, C1: minCol + 1, R2: maxRow + 1, C2: maxCol + 1}
	return info, nil
}

// findDataBounds finds the bounding box of non-empty cells.
func findDataBounds(rows [][]string) (minRow, maxRow, minCol, maxCol int) {
	minRow, maxRow = -1, -1
	minCol, maxCol = -1, -1

	for rowIdx, row := range rows {
		for colIdx, cell := range row {
			if cell != "" {
				if minRow < 0 || rowIdx < minRow {
					minRow = rowIdx
				}
				if maxRow < 0 || rowIdx > maxRow {
					maxRow = rowIdx
				}
				if minCol < 0 || colIdx < minCol {
					minCol = colIdx
				}
				if maxCol < 0 || colIdx > maxCol {
					maxCol = colIdx
				}
			}
		}
	}

	return
}

// countNonEmptyCells counts non-empty cells within bounds.
func countNonEmptyCells(rows [][]string, minRow, maxRow, minCol, maxCol int) int {
	count := 0
	for rowIdx := minRow; rowIdx <= maxRow && rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		for colIdx := minCol; colIdx <= maxCol && colIdx < len(row); colIdx++ {
			if row[colIdx] != "" {
				count++
			}
		}
	}
	return count
}
