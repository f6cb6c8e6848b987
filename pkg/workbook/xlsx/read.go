// Package xlsx converts between workbooks and Excel files.
//
// Each sheet is laid out with one header row holding the column names,
// followed by one spreadsheet row per workbook row.
package xlsx

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/ukaji3/workbook-go/pkg/workbook/models"
	"github.com/xuri/excelize/v2"
)

// ReadFile reads an Excel file. The workbook is named after the file,
// without directory or extension.
func ReadFile(path string) (models.Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return models.Workbook{}, err
	}
	defer f.Close()

	return readWorkbook(f, bookName(path))
}

// Read reads an Excel document from r and names the workbook name.
func Read(r io.Reader, name string) (models.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return models.Workbook{}, err
	}
	defer f.Close()

	return readWorkbook(f, name)
}

func readWorkbook(f *excelize.File, name string) (models.Workbook, error) {
	wb := models.Workbook{Name: name, Sheets: []models.Sheet{}}
	for _, sheetName := range f.GetSheetList() {
		sheet, err := ReadSheet(f, sheetName)
		if err != nil {
			return models.Workbook{}, NewSheetError(sheetName, "read", err)
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	wb.Normalize(models.DefaultWorkbookName)
	return wb, nil
}

// ReadSheet reads one sheet. The first row supplies column names; a blank
// header cell gets the default name for its position. Every data row gets
// one cell per column, and trailing blank rows are dropped.
func ReadSheet(f *excelize.File, sheetName string) (models.Sheet, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return models.Sheet{}, err
	}

	sheet := models.Sheet{Name: sheetName, Columns: []models.Column{}, Rows: []models.Row{}}
	_, maxRow, _, maxCol := findDataBounds(rows)
	if maxRow < 0 {
		return sheet, nil
	}

	width := maxCol + 1
	header := rows[0]
	for colIdx := 0; colIdx < width; colIdx++ {
		name := ""
		if colIdx < len(header) {
			name = strings.TrimSpace(header[colIdx])
		}
		if name == "" {
			name = models.DefaultColumnName(colIdx)
		}
		sheet.Columns = append(sheet.Columns, models.Column{ID: colIdx, Name: name})
	}

	for rowIdx := 1; rowIdx <= maxRow; rowIdx++ {
		row := models.NewRow(width)
		for colIdx, cellValue := range rows[rowIdx] {
			if colIdx < width {
				row[colIdx] = cellValue
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet, nil
}

func bookName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
