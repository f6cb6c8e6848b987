package workbook

import (
	"errors"
	"fmt"
)

// Validation errors. They are reported before any state changes.
var (
	// ErrNoSheets indicates the workbook has no sheets to operate on.
	ErrNoSheets = errors.New("workbook has no sheets")
	// ErrEmptyName indicates a blank sheet or column name.
	ErrEmptyName = errors.New("name must not be empty")
	// ErrDuplicateSheetName indicates a sheet with the same name already exists.
	ErrDuplicateSheetName = errors.New("sheet name already exists")
	// ErrLastSheet indicates an attempt to delete the only remaining sheet.
	ErrLastSheet = errors.New("workbook must keep at least one sheet")
	// ErrLastColumn indicates an attempt to delete the only remaining column.
	ErrLastColumn = errors.New("sheet must keep at least one column")
	// ErrLastRow indicates an attempt to delete the only remaining row.
	ErrLastRow = errors.New("sheet must keep at least one row")
	// ErrNotSelected indicates a delete was requested for a column or row that is not selected.
	ErrNotSelected = errors.New("target is not selected")
	// ErrOutOfRange indicates a sheet, row, or column index outside the current bounds.
	ErrOutOfRange = errors.New("index out of range")
)

var validationErrors = []error{
	ErrNoSheets, ErrEmptyName, ErrDuplicateSheetName, ErrLastSheet,
	ErrLastColumn, ErrLastRow, ErrNotSelected, ErrOutOfRange,
}

// IsValidation reports whether err is one of the validation errors above.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// EditError represents a refused store or editor operation.
type EditError struct {
	Sheet string
	Op    string // "create_sheet", "delete_column", "set_cell", ...
	Err   error
}

func (e *EditError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s on sheet %q: %v", e.Op, e.Sheet, e.Err)
}

func (e *EditError) Unwrap() error {
	return e.Err
}

// NewEditError creates a new EditError.
func NewEditError(sheet, op string, err error) *EditError {
	return &EditError{
		Sheet: sheet,
		Op:    op,
		Err:   err,
	}
}
