package workbook

import (
	"testing"

	"github.com/ukaji3/workbook-go/pkg/workbook/models"
)

func TestSelectionMutualExclusion(t *testing.T) {
	var sel Selection

	sel.SelectColumn(4)
	sel.SelectRow(1)
	sel.SelectCell(2, 3)

	if _, ok := sel.Column(); ok {
		t.Error("Column should be unset after SelectCell")
	}
	if _, ok := sel.Row(); ok {
		t.Error("Row should be unset after SelectCell")
	}
	cell, ok := sel.Cell()
	if !ok || cell != (CellRef{Row: 2, Col: 3}) {
		t.Errorf("Cell = %+v, %v", cell, ok)
	}

	sel.SelectRow(5)
	if _, ok := sel.Cell(); ok {
		t.Error("Cell should be unset after SelectRow")
	}
	if r, ok := sel.Row(); !ok || r != 5 {
		t.Errorf("Row = %d, %v", r, ok)
	}

	sel.Clear()
	if sel.Kind() != SelectNone {
		t.Errorf("Kind after Clear = %v", sel.Kind())
	}
}

func TestSelectionDescribe(t *testing.T) {
	sheet := models.NewSheet("A")
	tests := []struct {
		apply    func(*Selection)
		expected string
	}{
		{func(s *Selection) {}, "选中单元格: 无"},
		{func(s *Selection) { s.SelectCell(0, 1) }, "选中单元格: 列21"},
		{func(s *Selection) { s.SelectColumn(0) }, "选中列: 列1"},
		{func(s *Selection) { s.SelectRow(2) }, "选中行: 3"},
	}

	for _, tt := range tests {
		var sel Selection
		tt.apply(&sel)
		if got := sel.Describe(&sheet); got != tt.expected {
			t.Errorf("Describe() = %q, expected %q", got, tt.expected)
		}
	}
}

func TestStoreSelectValidatesRange(t *testing.T) {
	s := newTestStore(t, "A")
	if err := s.SelectCell(9, 0); err == nil {
		t.Error("Expected error for out-of-range row")
	}
	if err := s.SelectColumn(2); err == nil {
		t.Error("Expected error for out-of-range column")
	}
	if s.Selection().Kind() != SelectNone {
		t.Error("Rejected select must not change the selection")
	}
}
