package workbook

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ukaji3/workbook-go/pkg/workbook/models"
)

// AddColumn appends a column named after its position and back-fills every
// row with an empty cell.
func (s *Store) AddColumn() (models.Column, error) {
	sheet, err := s.activeSheet("add_column")
	if err != nil {
		return models.Column{}, err
	}

	id := len(sheet.Columns)
	col := models.Column{ID: id, Name: models.DefaultColumnName(id)}
	sheet.Columns = append(sheet.Columns, col)
	for _, row := range sheet.Rows {
		row[id] = ""
	}
	s.log.Debug("column added", slog.String("sheet", sheet.Name), slog.Int("column", id))
	return col, nil
}

// AddRow appends a row with an empty cell for every column.
func (s *Store) AddRow() error {
	sheet, err := s.activeSheet("add_row")
	if err != nil {
		return err
	}

	row := make(models.Row, len(sheet.Columns))
	for _, col := range sheet.Columns {
		row[col.ID] = ""
	}
	sheet.Rows = append(sheet.Rows, row)
	s.log.Debug("row added", slog.String("sheet", sheet.Name), slog.Int("rows", len(sheet.Rows)))
	return nil
}

// DeleteColumn removes column col, which must be the selected column, and
// renumbers everything after it.
func (s *Store) DeleteColumn(col int) error {
	sheet, err := s.activeSheet("delete_column")
	if err != nil {
		return err
	}
	if selected, ok := s.sel.Column(); !ok || selected != col {
		return s.refuse(sheet.Name, "delete_column", ErrNotSelected)
	}
	if len(sheet.Columns) <= 1 {
		return s.refuse(sheet.Name, "delete_column", ErrLastColumn)
	}
	if col < 0 || col >= len(sheet.Columns) {
		return s.refuse(sheet.Name, "delete_column", fmt.Errorf("%w: column %d", ErrOutOfRange, col))
	}

	removeColumn(sheet, col)
	s.sel.Clear()
	s.log.Debug("column deleted", slog.String("sheet", sheet.Name), slog.Int("column", col))
	return nil
}

// DeleteSelectedColumn deletes whichever column is selected.
func (s *Store) DeleteSelectedColumn() error {
	col, ok := s.sel.Column()
	if !ok {
		sheet, err := s.activeSheet("delete_column")
		if err != nil {
			return err
		}
		return s.refuse(sheet.Name, "delete_column", ErrNotSelected)
	}
	return s.DeleteColumn(col)
}

// removeColumn drops column k. Cells are re-keyed first (every key above k
// moves down one, and the key that falls off the end is dropped), then the
// column ids are reassigned to their new positions. Both passes are needed
// to keep row keys and column ids in lockstep.
func removeColumn(sheet *models.Sheet, k int) {
	sheet.Columns = append(sheet.Columns[:k], sheet.Columns[k+1:]...)
	n := len(sheet.Columns)

	for _, row := range sheet.Rows {
		delete(row, k)
		for key := k + 1; key <= n; key++ {
			if v, ok := row[key]; ok {
				row[key-1] = v
			} else {
				delete(row, key-1)
			}
		}
		for key := range row {
			if key >= n {
				delete(row, key)
			}
		}
	}

	for i := range sheet.Columns {
		sheet.Columns[i].ID = i
	}
}

// DeleteRow removes row, which must be the selected row. The last row
// cannot be deleted.
func (s *Store) DeleteRow(row int) error {
	sheet, err := s.activeSheet("delete_row")
	if err != nil {
		return err
	}
	if selected, ok := s.sel.Row(); !ok || selected != row {
		return s.refuse(sheet.Name, "delete_row", ErrNotSelected)
	}
	if len(sheet.Rows) <= 1 {
		return s.refuse(sheet.Name, "delete_row", ErrLastRow)
	}
	if row < 0 || row >= len(sheet.Rows) {
		return s.refuse(sheet.Name, "delete_row", fmt.Errorf("%w: row %d", ErrOutOfRange, row))
	}

	sheet.Rows = append(sheet.Rows[:row], sheet.Rows[row+1:]...)
	s.sel.Clear()
	s.log.Debug("row deleted", slog.String("sheet", sheet.Name), slog.Int("row", row))
	return nil
}

// DeleteSelectedRow deletes whichever row is selected.
func (s *Store) DeleteSelectedRow() error {
	row, ok := s.sel.Row()
	if !ok {
		sheet, err := s.activeSheet("delete_row")
		if err != nil {
			return err
		}
		return s.refuse(sheet.Name, "delete_row", ErrNotSelected)
	}
	return s.DeleteRow(row)
}

// RenameColumn sets the header of column col. Column names need not be unique.
func (s *Store) RenameColumn(col int, name string) error {
	sheet, err := s.activeSheet("rename_column")
	if err != nil {
		return err
	}
	if col < 0 || col >= len(sheet.Columns) {
		return s.refuse(sheet.Name, "rename_column", fmt.Errorf("%w: column %d", ErrOutOfRange, col))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return s.refuse(sheet.Name, "rename_column", ErrEmptyName)
	}

	sheet.Columns[col].Name = name
	return nil
}

// SetCell stores value at (row, col). Values are coerced to strings.
func (s *Store) SetCell(row, col int, value interface{}) error {
	sheet, err := s.activeSheet("set_cell")
	if err != nil {
		return err
	}
	if err := checkCell(sheet, row, col); err != nil {
		return s.refuse(sheet.Name, "set_cell", err)
	}

	sheet.Rows[row][sheet.Columns[col].ID] = models.CellString(value)
	return nil
}

// Cell returns the value at (row, col) of the active sheet.
func (s *Store) Cell(row, col int) (string, error) {
	sheet, err := s.activeSheet("get_cell")
	if err != nil {
		return "", err
	}
	if err := checkCell(sheet, row, col); err != nil {
		return "", NewEditError(sheet.Name, "get_cell", err)
	}
	return sheet.Rows[row][sheet.Columns[col].ID], nil
}
