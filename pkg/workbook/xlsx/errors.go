package xlsx

import (
	"errors"
	"fmt"
)

// ErrNoSheets is returned when writing a workbook without sheets.
var ErrNoSheets = errors.New("workbook has no sheets to write")

// SheetError represents a failure converting one sheet.
type SheetError struct {
	SheetName string
	Op        string // "read", "write", "inspect"
	Err       error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("%s sheet %q: %v", e.Op, e.SheetName, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

// NewSheetError creates a new SheetError.
func NewSheetError(sheetName, op string, err error) *SheetError {
	return &SheetError{
		SheetName: sheetName,
		Op:        op,
		Err:       err,
	}
}
