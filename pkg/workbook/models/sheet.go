package models

import "fmt"

// Column is a positional column header. ID is always the column's index
// in Sheet.Columns and is reassigned on every structural change.
type Column struct {
	// ID is the 0-based position of the column and the key of its cells in each Row.
	ID int `json:"id"`
	// Name is the header text. Names need not be unique.
	Name string `json:"name"`
}

// Sheet represents one table within a workbook.
type Sheet struct {
	// Name is unique within the workbook.
	Name string `json:"name"`
	// Columns is the ordered list of column headers.
	Columns []Column `json:"columns"`
	// Rows holds one cell map per row, keyed by column ID.
	Rows []Row `json:"rows"`
}

// DefaultColumnName returns the generated header for the column at index.
func DefaultColumnName(index int) string {
	return fmt.Sprintf("列%d", index+1)
}

// NewSheet returns a sheet with two default columns and one blank row.
func NewSheet(name string) Sheet {
	return Sheet{
		Name: name,
		Columns: []Column{
			{ID: 0, Name: DefaultColumnName(0)},
			{ID: 1, Name: DefaultColumnName(1)},
		},
		Rows: []Row{{0: "", 1: ""}},
	}
}

// ColumnIndex returns the index of the first column with the given name, or -1.
func (s *Sheet) ColumnIndex(name string) int {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the header names in column order.
func (s *Sheet) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i := range s.Columns {
		names[i] = s.Columns[i].Name
	}
	return names
}

// Values returns the cells of row r in column order.
func (s *Sheet) Values(r int) []string {
	out := make([]string, len(s.Columns))
	row := s.Rows[r]
	for i, col := range s.Columns {
		out[i] = row[col.ID]
	}
	return out
}

// Normalize reassigns column IDs densely and makes every row carry exactly
// one entry per column.
func (s *Sheet) Normalize() {
	if s.Columns == nil {
		s.Columns = []Column{}
	}
	if s.Rows == nil {
		s.Rows = []Row{}
	}
	remap := make(map[int]int, len(s.Columns))
	for i := range s.Columns {
		remap[s.Columns[i].ID] = i
	}
	if len(remap) != len(s.Columns) {
		// Repeated ids cannot tell cells apart; read them by position.
		remap = make(map[int]int, len(s.Columns))
		for i := range s.Columns {
			remap[i] = i
		}
	}
	for i := range s.Columns {
		s.Columns[i].ID = i
	}
	for r, row := range s.Rows {
		fixed := make(Row, len(s.Columns))
		for oldID, newID := range remap {
			fixed[newID] = row[oldID]
		}
		s.Rows[r] = fixed
	}
}
