package xlsx

import (
	"fmt"
	"io"

	"github.com/ukaji3/workbook-go/pkg/workbook/models"
	"github.com/xuri/excelize/v2"
)

// MaxSheetNameLength is the longest sheet name Excel accepts, in characters.
const MaxSheetNameLength = 31

// SheetName truncates name to MaxSheetNameLength characters.
func SheetName(name string) string {
	r := []rune(name)
	if len(r) > MaxSheetNameLength {
		return string(r[:MaxSheetNameLength])
	}
	return name
}

// Write encodes wb as an .xlsx document.
func Write(w io.Writer, wb models.Workbook) error {
	f, err := build(wb)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.Write(w)
}

// WriteFile encodes wb and saves it to path.
func WriteFile(path string, wb models.Workbook) error {
	f, err := build(wb)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.SaveAs(path)
}

func build(wb models.Workbook) (*excelize.File, error) {
	if len(wb.Sheets) == 0 {
		return nil, ErrNoSheets
	}

	f := excelize.NewFile()
	first := f.GetSheetName(0)
	seen := make(map[string]bool, len(wb.Sheets))

	for i := range wb.Sheets {
		sheet := &wb.Sheets[i]
		name := SheetName(sheet.Name)
		if seen[name] {
			f.Close()
			return nil, NewSheetError(sheet.Name, "write", fmt.Errorf("name collides as %q", name))
		}
		seen[name] = true

		var err error
		if i == 0 {
			err = f.SetSheetName(first, name)
		} else {
			_, err = f.NewSheet(name)
		}
		if err == nil {
			err = writeSheet(f, name, sheet)
		}
		if err != nil {
			f.Close()
			return nil, NewSheetError(sheet.Name, "write", err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// writeSheet puts the column names in row 1 and the data below them. The
// written block is recorded as the sheet's print area.
func writeSheet(f *excelize.File, name string, sheet *models.Sheet) error {
	if len(sheet.Columns) == 0 {
		return nil
	}

	header := make([]interface{}, len(sheet.Columns))
	for i, c := range sheet.Columns {
		header[i] = c.Name
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}

	for r := range sheet.Rows {
		values := sheet.Values(r)
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return err
		}
	}

	area := Range{R1: 1, C1: 1, R2: len(sheet.Rows) + 1, C2: len(sheet.Columns)}
	return f.SetDefinedName(&excelize.DefinedName{
		Name:     "_xlnm.Print_Area",
		RefersTo: area.Absolute(name),
		Scope:    name,
	})
}

// PrintAreas returns the print areas defined in f, keyed by sheet name.
func PrintAreas(f *excelize.File) map[string][]Range {
	result := make(map[string][]Range)
	for _, dn := range f.GetDefinedName() {
		if dn.Name != "_xlnm.Print_Area" {
			continue
		}
		sheet := dn.Scope
		if r, err := ParseRange(dn.RefersTo); err == nil {
			result[sheet] = append(result[sheet], r)
		}
	}
	return result
}
