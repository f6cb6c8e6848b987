package workbook

import (
	"errors"
	"testing"

	"github.com/ukaji3/workbook-go/pkg/workbook/models"
)

func loadSheet(t *testing.T, sheet models.Sheet) *Store {
	t.Helper()
	s := newTestStore(t)
	if err := s.Load(models.Workbook{Name: "wb", Sheets: []models.Sheet{sheet}}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return s
}

func TestDeleteColumnScenario(t *testing.T) {
	s := loadSheet(t, models.Sheet{
		Name:    "A",
		Columns: []models.Column{{ID: 0, Name: "x"}, {ID: 1, Name: "y"}, {ID: 2, Name: "z"}},
		Rows:    []models.Row{{0: "1", 1: "2", 2: "3"}},
	})

	if err := s.SelectColumn(1); err != nil {
		t.Fatalf("SelectColumn failed: %v", err)
	}
	if err := s.DeleteColumn(1); err != nil {
		t.Fatalf("DeleteColumn failed: %v", err)
	}

	sheet, _ := s.ActiveSheet()
	if len(sheet.Columns) != 2 ||
		sheet.Columns[0] != (models.Column{ID: 0, Name: "x"}) ||
		sheet.Columns[1] != (models.Column{ID: 1, Name: "z"}) {
		t.Errorf("Unexpected columns: %+v", sheet.Columns)
	}
	row := sheet.Rows[0]
	if len(row) != 2 || row[0] != "1" || row[1] != "3" {
		t.Errorf("Unexpected row: %v", row)
	}
	if s.Selection().Kind() != SelectNone {
		t.Error("Selection should be cleared after delete")
	}
}

func TestDeleteColumnShiftsValues(t *testing.T) {
	for k := 0; k < 5; k++ {
		s := loadSheet(t, models.Sheet{
			Name: "A",
			Columns: []models.Column{
				{ID: 0, Name: "a"}, {ID: 1, Name: "b"}, {ID: 2, Name: "c"}, {ID: 3, Name: "d"}, {ID: 4, Name: "e"},
			},
			Rows: []models.Row{
				{0: "a0", 1: "b0", 2: "c0", 3: "d0", 4: "e0"},
				{0: "a1", 1: "b1", 2: "c1", 3: "d1", 4: "e1"},
			},
		})
		original, _ := s.ActiveSheet()

		if err := s.SelectColumn(k); err != nil {
			t.Fatalf("SelectColumn failed: %v", err)
		}
		if err := s.DeleteColumn(k); err != nil {
			t.Fatalf("DeleteColumn(%d) failed: %v", k, err)
		}

		sheet, _ := s.ActiveSheet()
		for i, c := range sheet.Columns {
			if c.ID != i {
				t.Errorf("k=%d: column %d has id %d", k, i, c.ID)
			}
		}
		for r := range sheet.Rows {
			if len(sheet.Rows[r]) != 4 {
				t.Errorf("k=%d: row %d has %d keys", k, r, len(sheet.Rows[r]))
			}
			for i := 0; i < k; i++ {
				if sheet.Rows[r][i] != original.Rows[r][i] {
					t.Errorf("k=%d: row %d key %d changed", k, r, i)
				}
			}
			for i := k + 1; i < 5; i++ {
				if sheet.Rows[r][i-1] != original.Rows[r][i] {
					t.Errorf("k=%d: row %d key %d = %q, expected %q", k, r, i-1, sheet.Rows[r][i-1], original.Rows[r][i])
				}
			}
		}
	}
}

func TestDeleteColumnRequiresSelection(t *testing.T) {
	s := newTestStore(t, "A")

	if err := s.DeleteColumn(0); !errors.Is(err, ErrNotSelected) {
		t.Errorf("Expected ErrNotSelected, got %v", err)
	}
	if err := s.SelectColumn(1); err != nil {
		t.Fatalf("SelectColumn failed: %v", err)
	}
	if err := s.DeleteColumn(0); !errors.Is(err, ErrNotSelected) {
		t.Errorf("Deleting an unselected column: expected ErrNotSelected, got %v", err)
	}
	if err := s.DeleteSelectedColumn(); err != nil {
		t.Fatalf("DeleteSelectedColumn failed: %v", err)
	}

	if err := s.SelectColumn(0); err != nil {
		t.Fatalf("SelectColumn failed: %v", err)
	}
	if err := s.DeleteColumn(0); !errors.Is(err, ErrLastColumn) {
		t.Errorf("Expected ErrLastColumn, got %v", err)
	}
}

func TestAddColumnAndDeleteKeepsDenseIDs(t *testing.T) {
	s := newTestStore(t, "A")
	ops := []struct {
		add bool
		col int
	}{
		{true, 0}, {true, 0}, {false, 1}, {true, 0}, {false, 0}, {false, 2}, {true, 0},
	}
	for _, op := range ops {
		if op.add {
			if _, err := s.AddColumn(); err != nil {
				t.Fatalf("AddColumn failed: %v", err)
			}
		} else {
			if err := s.SelectColumn(op.col); err != nil {
				t.Fatalf("SelectColumn failed: %v", err)
			}
			if err := s.DeleteColumn(op.col); err != nil {
				t.Fatalf("DeleteColumn failed: %v", err)
			}
		}

		sheet, _ := s.ActiveSheet()
		for i, c := range sheet.Columns {
			if c.ID != i {
				t.Fatalf("Column %d has id %d after %+v", i, c.ID, op)
			}
		}
		for r, row := range sheet.Rows {
			if len(row) != len(sheet.Columns) {
				t.Fatalf("Row %d has %d keys, expected %d", r, len(row), len(sheet.Columns))
			}
		}
	}
}

func TestAddColumnBackfills(t *testing.T) {
	s := newTestStore(t, "A")
	if err := s.AddRow(); err != nil {
		t.Fatalf("AddRow failed: %v", err)
	}

	col, err := s.AddColumn()
	if err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	if col.ID != 2 || col.Name != "列3" {
		t.Errorf("Unexpected column: %+v", col)
	}

	sheet, _ := s.ActiveSheet()
	for r, row := range sheet.Rows {
		v, ok := row[2]
		if !ok || v != "" {
			t.Errorf("Row %d not back-filled: %v", r, row)
		}
	}
}

func TestAddRowHasOneKeyPerColumn(t *testing.T) {
	s := newTestStore(t, "A")
	if _, err := s.AddColumn(); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	if err := s.AddRow(); err != nil {
		t.Fatalf("AddRow failed: %v", err)
	}

	sheet, _ := s.ActiveSheet()
	row := sheet.Rows[len(sheet.Rows)-1]
	if len(row) != 3 {
		t.Fatalf("Expected 3 keys, got %d", len(row))
	}
	for k, v := range row {
		if v != "" {
			t.Errorf("row[%d] = %q, expected empty", k, v)
		}
	}
}

func TestDeleteRow(t *testing.T) {
	s := newTestStore(t, "A")

	if err := s.SelectRow(0); err != nil {
		t.Fatalf("SelectRow failed: %v", err)
	}
	if err := s.DeleteRow(0); !errors.Is(err, ErrLastRow) {
		t.Errorf("Expected ErrLastRow, got %v", err)
	}

	if err := s.AddRow(); err != nil {
		t.Fatalf("AddRow failed: %v", err)
	}
	if err := s.SetCell(1, 0, "second"); err != nil {
		t.Fatalf("SetCell failed: %v", err)
	}
	s.ClearSelection()
	if err := s.DeleteSelectedRow(); !errors.Is(err, ErrNotSelected) {
		t.Errorf("Expected ErrNotSelected, got %v", err)
	}

	if err := s.SelectRow(0); err != nil {
		t.Fatalf("SelectRow failed: %v", err)
	}
	if err := s.DeleteRow(0); err != nil {
		t.Fatalf("DeleteRow failed: %v", err)
	}
	if v, _ := s.Cell(0, 0); v != "second" {
		t.Errorf("Cell(0,0) = %q, expected 'second'", v)
	}
}

func TestRenameColumnAllowsDuplicates(t *testing.T) {
	s := newTestStore(t, "A")
	if err := s.RenameColumn(0, "same"); err != nil {
		t.Fatalf("RenameColumn failed: %v", err)
	}
	if err := s.RenameColumn(1, "same"); err != nil {
		t.Fatalf("Duplicate column names should be allowed: %v", err)
	}
	if err := s.RenameColumn(0, " "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}
}

func TestSetCellCoercesToString(t *testing.T) {
	s := newTestStore(t, "A")
	tests := []struct {
		value    interface{}
		expected string
	}{
		{"text", "text"},
		{42, "42"},
		{3.5, "3.5"},
		{true, "true"},
		{nil, ""},
	}
	for _, tt := range tests {
		if err := s.SetCell(0, 1, tt.value); err != nil {
			t.Fatalf("SetCell(%v) failed: %v", tt.value, err)
		}
		if v, _ := s.Cell(0, 1); v != tt.expected {
			t.Errorf("SetCell(%v) stored %q, expected %q", tt.value, v, tt.expected)
		}
	}
	if err := s.SetCell(3, 0, "x"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
}

func TestEditorWithoutSheets(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AddColumn(); !errors.Is(err, ErrNoSheets) {
		t.Errorf("AddColumn: expected ErrNoSheets, got %v", err)
	}
	if err := s.AddRow(); !errors.Is(err, ErrNoSheets) {
		t.Errorf("AddRow: expected ErrNoSheets, got %v", err)
	}
	var editErr *EditError
	if err := s.SetCell(0, 0, "x"); !errors.As(err, &editErr) || editErr.Op != "set_cell" {
		t.Errorf("Expected EditError for set_cell, got %v", err)
	}
}
