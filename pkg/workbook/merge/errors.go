package merge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTooFewSheets indicates the workbook has fewer than two sheets.
	ErrTooFewSheets = errors.New("at least 2 sheets are required to merge")
	// ErrNoSource indicates no source sheet was chosen.
	ErrNoSource = errors.New("select at least one source sheet")
	// ErrSelfMerge indicates the target sheet is also checked as a source.
	ErrSelfMerge = errors.New("target sheet cannot also be a source sheet")
	// ErrNotInPlan indicates a sheet that is neither the target nor a source.
	ErrNotInPlan = errors.New("sheet is not part of this merge")
	// ErrNoColumnsSelected indicates an add with an empty column selection.
	ErrNoColumnsSelected = errors.New("select at least one column")
	// ErrNoMatchColumns indicates submission without any match column.
	ErrNoMatchColumns = errors.New("configure at least one match column")
	// ErrNoMergeColumns indicates submission without any merge column.
	ErrNoMergeColumns = errors.New("configure at least one merge column")
	// ErrNewTableName indicates createNewTable with a blank name.
	ErrNewTableName = errors.New("new table name must not be empty")
	// ErrOutOfRange indicates a sheet, column, or list index outside its bounds.
	ErrOutOfRange = errors.New("index out of range")
	// ErrSubmitting indicates a submission is already outstanding.
	ErrSubmitting = errors.New("merge submission already in progress")
)

// StateError reports an operation that is not allowed in the current state.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("merge: %s not allowed while %s", e.Op, e.State)
}

// ValidationError aggregates every problem found in a merge request
// against a workbook.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "merge validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
