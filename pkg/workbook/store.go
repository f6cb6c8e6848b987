package workbook

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tiendc/go-deepcopy"
	"github.com/ukaji3/workbook-go/pkg/workbook/models"
)

// Store owns the single active workbook, the active sheet index, and the
// selection. It is not safe for concurrent use; one controller owns it.
type Store struct {
	wb     models.Workbook
	active int
	sel    Selection
	opts   Options
	log    *slog.Logger
}

// Status summarizes the active sheet for a status line.
type Status struct {
	Sheet     string
	Rows      int
	Columns   int
	Selection string
}

// NewStore creates a store holding an empty workbook.
func NewStore(opts Options) *Store {
	return &Store{
		wb:   models.NewWorkbook(),
		opts: opts,
		log:  opts.logger(),
	}
}

// Load replaces the workbook wholesale. The store keeps its own copy, so
// later changes to wb do not affect it. The active sheet resets to 0.
func (s *Store) Load(wb models.Workbook) error {
	var next models.Workbook
	if err := deepcopy.Copy(&next, &wb); err != nil {
		return fmt.Errorf("copy workbook: %w", err)
	}
	next.Normalize(models.DefaultWorkbookName)

	s.wb = next
	s.active = 0
	s.sel.Clear()
	s.log.Debug("workbook loaded", slog.String("workbook", s.wb.Name), slog.Int("sheets", len(s.wb.Sheets)))
	return nil
}

// Reset replaces the workbook with an empty default one.
func (s *Store) Reset() {
	s.wb = models.NewWorkbook()
	s.active = 0
	s.sel.Clear()
}

// Snapshot returns a deep copy of the workbook, suitable for persisting.
func (s *Store) Snapshot() (models.Workbook, error) {
	var out models.Workbook
	if err := deepcopy.Copy(&out, &s.wb); err != nil {
		return models.Workbook{}, fmt.Errorf("copy workbook: %w", err)
	}
	return out, nil
}

// Name returns the workbook name.
func (s *Store) Name() string {
	return s.wb.Name
}

// HasData reports whether the workbook has at least one sheet.
func (s *Store) HasData() bool {
	return len(s.wb.Sheets) > 0
}

// SheetCount returns the number of sheets.
func (s *Store) SheetCount() int {
	return len(s.wb.Sheets)
}

// SheetNames returns the sheet names in order.
func (s *Store) SheetNames() []string {
	return s.wb.SheetNames()
}

// SheetIndex returns the index of the named sheet, or -1.
func (s *Store) SheetIndex(name string) int {
	return s.wb.SheetIndex(name)
}

// Sheet returns a copy of the sheet at index.
func (s *Store) Sheet(index int) (models.Sheet, error) {
	if index < 0 || index >= len(s.wb.Sheets) {
		return models.Sheet{}, NewEditError("", "get_sheet", fmt.Errorf("%w: sheet %d", ErrOutOfRange, index))
	}
	var out models.Sheet
	if err := deepcopy.Copy(&out, &s.wb.Sheets[index]); err != nil {
		return models.Sheet{}, fmt.Errorf("copy sheet: %w", err)
	}
	return out, nil
}

// ActiveIndex returns the index of the active sheet.
func (s *Store) ActiveIndex() int {
	return s.active
}

// ActiveSheet returns a copy of the active sheet. It fails with ErrNoSheets
// when the workbook is empty.
func (s *Store) ActiveSheet() (models.Sheet, error) {
	if !s.HasData() {
		return models.Sheet{}, NewEditError("", "get_active_sheet", ErrNoSheets)
	}
	return s.Sheet(s.active)
}

func (s *Store) activeSheet(op string) (*models.Sheet, error) {
	if !s.HasData() {
		return nil, s.refuse("", op, ErrNoSheets)
	}
	return &s.wb.Sheets[s.active], nil
}

// SwitchSheet makes the sheet at index active and clears the selection.
func (s *Store) SwitchSheet(index int) error {
	if index < 0 || index >= len(s.wb.Sheets) {
		return s.refuse("", "switch_sheet", fmt.Errorf("%w: sheet %d", ErrOutOfRange, index))
	}
	s.active = index
	s.sel.Clear()
	return nil
}

// SuggestSheetName returns the default name offered when creating a sheet.
func (s *Store) SuggestSheetName() string {
	return fmt.Sprintf("%s%d", s.opts.sheetPrefix(), len(s.wb.Sheets)+1)
}

// CreateSheet appends a sheet with two default columns and one blank row
// and makes it active. Names are trimmed and must be unique (exact match).
func (s *Store) CreateSheet(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.refuse(name, "create_sheet", ErrEmptyName)
	}
	if s.wb.SheetIndex(name) >= 0 {
		return s.refuse(name, "create_sheet", ErrDuplicateSheetName)
	}

	s.wb.Sheets = append(s.wb.Sheets, models.NewSheet(name))
	s.active = len(s.wb.Sheets) - 1
	s.sel.Clear()
	s.log.Debug("sheet created", slog.String("sheet", name))
	return nil
}

// RenameSheet renames the sheet at index. The new name must not collide
// with any other sheet.
func (s *Store) RenameSheet(index int, name string) error {
	if index < 0 || index >= len(s.wb.Sheets) {
		return s.refuse("", "rename_sheet", fmt.Errorf("%w: sheet %d", ErrOutOfRange, index))
	}
	old := s.wb.Sheets[index].Name
	name = strings.TrimSpace(name)
	if name == "" {
		return s.refuse(old, "rename_sheet", ErrEmptyName)
	}
	if i := s.wb.SheetIndex(name); i >= 0 && i != index {
		return s.refuse(old, "rename_sheet", ErrDuplicateSheetName)
	}

	s.wb.Sheets[index].Name = name
	s.log.Debug("sheet renamed", slog.String("from", old), slog.String("to", name))
	return nil
}

// DeleteSheet removes the sheet at index. The last remaining sheet cannot
// be deleted. The active index shifts down when a sheet before it is
// removed and is clamped to the new bounds.
func (s *Store) DeleteSheet(index int) error {
	if len(s.wb.Sheets) <= 1 {
		return s.refuse("", "delete_sheet", ErrLastSheet)
	}
	if index < 0 || index >= len(s.wb.Sheets) {
		return s.refuse("", "delete_sheet", fmt.Errorf("%w: sheet %d", ErrOutOfRange, index))
	}

	name := s.wb.Sheets[index].Name
	s.wb.Sheets = append(s.wb.Sheets[:index], s.wb.Sheets[index+1:]...)
	if index < s.active {
		s.active--
	}
	if s.active > len(s.wb.Sheets)-1 {
		s.active = len(s.wb.Sheets) - 1
	}
	s.sel.Clear()
	s.log.Debug("sheet deleted", slog.String("sheet", name), slog.Int("active", s.active))
	return nil
}

// Selection returns the current selection.
func (s *Store) Selection() Selection {
	return s.sel
}

// SelectCell selects a cell of the active sheet.
func (s *Store) SelectCell(row, col int) error {
	sheet, err := s.activeSheet("select_cell")
	if err != nil {
		return err
	}
	if err := checkCell(sheet, row, col); err != nil {
		return s.refuse(sheet.Name, "select_cell", err)
	}
	s.sel.SelectCell(row, col)
	return nil
}

// SelectColumn selects a column of the active sheet.
func (s *Store) SelectColumn(col int) error {
	sheet, err := s.activeSheet("select_column")
	if err != nil {
		return err
	}
	if col < 0 || col >= len(sheet.Columns) {
		return s.refuse(sheet.Name, "select_column", fmt.Errorf("%w: column %d", ErrOutOfRange, col))
	}
	s.sel.SelectColumn(col)
	return nil
}

// SelectRow selects a row of the active sheet.
func (s *Store) SelectRow(row int) error {
	sheet, err := s.activeSheet("select_row")
	if err != nil {
		return err
	}
	if row < 0 || row >= len(sheet.Rows) {
		return s.refuse(sheet.Name, "select_row", fmt.Errorf("%w: row %d", ErrOutOfRange, row))
	}
	s.sel.SelectRow(row)
	return nil
}

// ClearSelection removes any selection.
func (s *Store) ClearSelection() {
	s.sel.Clear()
}

// Status reports the size of the active sheet and the selection.
func (s *Store) Status() Status {
	if !s.HasData() {
		return Status{Selection: s.sel.Describe(nil)}
	}
	sheet := &s.wb.Sheets[s.active]
	return Status{
		Sheet:     sheet.Name,
		Rows:      len(sheet.Rows),
		Columns:   len(sheet.Columns),
		Selection: s.sel.Describe(sheet),
	}
}

func (s *Store) refuse(sheet, op string, err error) error {
	e := NewEditError(sheet, op, err)
	s.log.Warn("edit refused", slog.String("op", op), slog.String("sheet", sheet), slog.Any("err", err))
	return e
}

func checkCell(sheet *models.Sheet, row, col int) error {
	if row < 0 || row >= len(sheet.Rows) {
		return fmt.Errorf("%w: row %d", ErrOutOfRange, row)
	}
	if col < 0 || col >= len(sheet.Columns) {
		return fmt.Errorf("%w: column %d", ErrOutOfRange, col)
	}
	return nil
}
