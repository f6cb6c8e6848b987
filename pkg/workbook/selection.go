package workbook

import (
	"fmt"

	"github.com/ukaji3/workbook-go/pkg/workbook/models"
)

// SelectionKind tells which of cell, column, or row is selected.
type SelectionKind int

const (
	SelectNone SelectionKind = iota
	SelectCell
	SelectColumn
	SelectRow
)

// CellRef addresses one cell of the active sheet.
type CellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Selection holds at most one of a cell, a column, or a row. Each setter
// replaces whatever was selected before.
type Selection struct {
	kind SelectionKind
	row  int
	col  int
}

// SelectCell selects the cell at (row, col) and clears column and row selection.
func (s *Selection) SelectCell(row, col int) {
	*s = Selection{kind: SelectCell, row: row, col: col}
}

// SelectColumn selects column col and clears cell and row selection.
func (s *Selection) SelectColumn(col int) {
	*s = Selection{kind: SelectColumn, col: col}
}

// SelectRow selects row and clears cell and column selection.
func (s *Selection) SelectRow(row int) {
	*s = Selection{kind: SelectRow, row: row}
}

// Clear removes any selection.
func (s *Selection) Clear() {
	*s = Selection{}
}

// Kind returns what is currently selected.
func (s Selection) Kind() SelectionKind {
	return s.kind
}

// Cell returns the selected cell, if a cell is selected.
func (s Selection) Cell() (CellRef, bool) {
	if s.kind != SelectCell {
		return CellRef{}, false
	}
	return CellRef{Row: s.row, Col: s.col}, true
}

// Column returns the selected column, if a column is selected.
func (s Selection) Column() (int, bool) {
	if s.kind != SelectColumn {
		return 0, false
	}
	return s.col, true
}

// Row returns the selected row, if a row is selected.
func (s Selection) Row() (int, bool) {
	if s.kind != SelectRow {
		return 0, false
	}
	return s.row, true
}

// Describe renders the selection for a status line against sheet.
func (s Selection) Describe(sheet *models.Sheet) string {
	switch s.kind {
	case SelectCell:
		return fmt.Sprintf("选中单元格: %s%d", columnName(sheet, s.col), s.row+1)
	case SelectColumn:
		return fmt.Sprintf("选中列: %s", columnName(sheet, s.col))
	case SelectRow:
		return fmt.Sprintf("选中行: %d", s.row+1)
	default:
		return "选中单元格: 无"
	}
}

func columnName(sheet *models.Sheet, col int) string {
	if sheet == nil || col < 0 || col >= len(sheet.Columns) {
		return models.DefaultColumnName(col)
	}
	return sheet.Columns[col].Name
}
