// Package merge implements the two-step table merge wizard, the request it
// produces, and the left-join that executes such a request on a workbook.
package merge

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ukaji3/workbook-go/pkg/workbook/models"
)

// State is a step of the merge wizard.
type State int

const (
	StateIdle State = iota
	StateSelectingTables
	StateConfiguringColumns
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelectingTables:
		return "selecting_tables"
	case StateConfiguringColumns:
		return "configuring_columns"
	case StateSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SheetSource gives the planner read access to the workbook.
// *workbook.Store satisfies it.
type SheetSource interface {
	SheetCount() int
	Sheet(index int) (models.Sheet, error)
}

// Role is a table's part in the merge.
type Role string

const (
	RoleTarget Role = "target"
	RoleSource Role = "source"
)

// Table is one entry of the step-two table list.
type Table struct {
	Index int
	Name  string
	Role  Role
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock overrides the time source used for default new-table names.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// WithLogger sets the planner's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) { p.log = l }
}

// Planner walks the merge wizard:
//
//	Idle -> SelectingTables -> ConfiguringColumns -> Submitting -> Idle
//	                                   ^                  |
//	                                   +---- (failure) ---+
type Planner struct {
	src   SheetSource
	state State
	data  models.MergeData
	now   func() time.Time
	log   *slog.Logger
}

// NewPlanner creates an idle planner over src.
func NewPlanner(src SheetSource, opts ...Option) *Planner {
	p := &Planner{
		src: src,
		now: time.Now,
		log: slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	p.reset()
	return p
}

func (p *Planner) reset() {
	p.data = models.MergeData{
		SourceTables: []int{},
		TargetTable:  -1,
		MatchColumns: []models.ColumnRef{},
		MergeColumns: []models.ColumnRef{},
	}
}

// State returns the current step.
func (p *Planner) State() State {
	return p.state
}

// Data returns a copy of the working configuration.
func (p *Planner) Data() models.MergeData {
	d := p.data
	d.SourceTables = append([]int(nil), p.data.SourceTables...)
	d.MatchColumns = append([]models.ColumnRef(nil), p.data.MatchColumns...)
	d.MergeColumns = append([]models.ColumnRef(nil), p.data.MergeColumns...)
	return d
}

func (p *Planner) require(op string, states ...State) error {
	for _, s := range states {
		if p.state == s {
			return nil
		}
	}
	return &StateError{Op: op, State: p.state}
}

// Open starts the wizard with a fresh configuration. The workbook must have
// at least two sheets.
func (p *Planner) Open() error {
	if err := p.require("open", StateIdle); err != nil {
		return err
	}
	if p.src.SheetCount() < 2 {
		return ErrTooFewSheets
	}
	p.reset()
	p.state = StateSelectingTables
	return nil
}

// CanConfirm reports whether the step-one confirm action is enabled for
// the given choice: at least one source, a valid target, and no self-merge.
func (p *Planner) CanConfirm(sources []int, target int) bool {
	return p.checkSelection(sources, target) == nil
}

func (p *Planner) checkSelection(sources []int, target int) error {
	if len(sources) == 0 {
		return ErrNoSource
	}
	n := p.src.SheetCount()
	if target < 0 || target >= n {
		return fmt.Errorf("%w: target sheet %d", ErrOutOfRange, target)
	}
	for _, s := range sources {
		if s < 0 || s >= n {
			return fmt.Errorf("%w: source sheet %d", ErrOutOfRange, s)
		}
		if s == target {
			return ErrSelfMerge
		}
	}
	return nil
}

// SelectTables confirms step one and moves to column configuration.
// Match and merge columns start empty and createNewTable is cleared.
func (p *Planner) SelectTables(sources []int, target int) error {
	if err := p.require("select_tables", StateSelectingTables); err != nil {
		return err
	}
	if err := p.checkSelection(sources, target); err != nil {
		p.log.Warn("merge table selection refused", slog.Any("err", err))
		return err
	}

	p.data.SourceTables = uniqueSorted(sources)
	p.data.TargetTable = target
	p.data.MatchColumns = []models.ColumnRef{}
	p.data.MergeColumns = []models.ColumnRef{}
	p.data.CreateNewTable = false
	p.data.NewTableName = ""
	p.state = StateConfiguringColumns
	return nil
}

// Back returns from column configuration to table selection.
func (p *Planner) Back() error {
	if err := p.require("back", StateConfiguringColumns); err != nil {
		return err
	}
	p.state = StateSelectingTables
	return nil
}

// Cancel discards the configuration. A submission in flight cannot be cancelled.
func (p *Planner) Cancel() error {
	if p.state == StateSubmitting {
		return ErrSubmitting
	}
	p.reset()
	p.state = StateIdle
	return nil
}

// Tables lists the target followed by each source.
func (p *Planner) Tables() ([]Table, error) {
	if err := p.require("tables", StateConfiguringColumns); err != nil {
		return nil, err
	}
	out := make([]Table, 0, 1+len(p.data.SourceTables))
	target, err := p.src.Sheet(p.data.TargetTable)
	if err != nil {
		return nil, err
	}
	out = append(out, Table{Index: p.data.TargetTable, Name: target.Name, Role: RoleTarget})
	for _, idx := range p.data.SourceTables {
		sheet, err := p.src.Sheet(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, Table{Index: idx, Name: sheet.Name, Role: RoleSource})
	}
	return out, nil
}

// Columns lists the columns of a table taking part in the merge.
func (p *Planner) Columns(tableIndex int) ([]models.Column, error) {
	sheet, err := p.planSheet("columns", tableIndex)
	if err != nil {
		return nil, err
	}
	return sheet.Columns, nil
}

func (p *Planner) planSheet(op string, tableIndex int) (models.Sheet, error) {
	if err := p.require(op, StateConfiguringColumns); err != nil {
		return models.Sheet{}, err
	}
	if tableIndex != p.data.TargetTable && !contains(p.data.SourceTables, tableIndex) {
		return models.Sheet{}, fmt.Errorf("%w: sheet %d", ErrNotInPlan, tableIndex)
	}
	return p.src.Sheet(tableIndex)
}

// AddMatchColumns appends match columns of one table. Pairs already present
// are skipped silently. It returns how many entries were added.
func (p *Planner) AddMatchColumns(tableIndex int, cols ...int) (int, error) {
	return p.addColumns("add_match_columns", &p.data.MatchColumns, tableIndex, cols)
}

// AddMergeColumns appends merge columns of one table. Pairs already present
// are skipped silently. It returns how many entries were added.
func (p *Planner) AddMergeColumns(tableIndex int, cols ...int) (int, error) {
	return p.addColumns("add_merge_columns", &p.data.MergeColumns, tableIndex, cols)
}

func (p *Planner) addColumns(op string, list *[]models.ColumnRef, tableIndex int, cols []int) (int, error) {
	sheet, err := p.planSheet(op, tableIndex)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, ErrNoColumnsSelected
	}
	for _, c := range cols {
		if c < 0 || c >= len(sheet.Columns) {
			return 0, fmt.Errorf("%w: column %d of %q", ErrOutOfRange, c, sheet.Name)
		}
	}

	added := 0
	for _, c := range cols {
		if hasRef(*list, tableIndex, c) {
			continue
		}
		*list = append(*list, models.ColumnRef{
			TableIndex:  tableIndex,
			TableName:   sheet.Name,
			ColumnIndex: c,
			ColumnName:  sheet.Columns[c].Name,
		})
		added++
	}
	return added, nil
}

// RemoveMatchColumn deletes the i-th match column.
func (p *Planner) RemoveMatchColumn(i int) error {
	return p.removeColumn("remove_match_column", &p.data.MatchColumns, i)
}

// RemoveMergeColumn deletes the i-th merge column.
func (p *Planner) RemoveMergeColumn(i int) error {
	return p.removeColumn("remove_merge_column", &p.data.MergeColumns, i)
}

func (p *Planner) removeColumn(op string, list *[]models.ColumnRef, i int) error {
	if err := p.require(op, StateConfiguringColumns); err != nil {
		return err
	}
	if i < 0 || i >= len(*list) {
		return fmt.Errorf("%w: entry %d", ErrOutOfRange, i)
	}
	*list = append((*list)[:i], (*list)[i+1:]...)
	return nil
}

// SetCreateNewTable toggles writing the result to a new sheet. Enabling it
// suggests "<target>_合并_<unix ms>" as the name and returns it.
func (p *Planner) SetCreateNewTable(enabled bool) (string, error) {
	if err := p.require("set_create_new_table", StateConfiguringColumns); err != nil {
		return "", err
	}
	p.data.CreateNewTable = enabled
	if enabled {
		target, err := p.src.Sheet(p.data.TargetTable)
		if err != nil {
			return "", err
		}
		p.data.NewTableName = fmt.Sprintf("%s_合并_%d", target.Name, p.now().UnixMilli())
	}
	return p.data.NewTableName, nil
}

// SetNewTableName overrides the suggested new-table name.
func (p *Planner) SetNewTableName(name string) error {
	if err := p.require("set_new_table_name", StateConfiguringColumns); err != nil {
		return err
	}
	p.data.NewTableName = name
	return nil
}

// BeginSubmit validates the configuration, builds the request, and moves to
// Submitting. On a validation error the planner stays in ConfiguringColumns.
func (p *Planner) BeginSubmit() (models.MergeRequest, error) {
	if p.state == StateSubmitting {
		return models.MergeRequest{}, ErrSubmitting
	}
	if err := p.require("submit", StateConfiguringColumns); err != nil {
		return models.MergeRequest{}, err
	}
	req, err := BuildRequest(p.data, p.src)
	if err != nil {
		p.log.Warn("merge submission refused", slog.Any("err", err))
		return models.MergeRequest{}, err
	}
	p.state = StateSubmitting
	return req, nil
}

// Finish records the outcome of a submission. Success discards the
// configuration and returns to Idle; failure keeps everything and returns
// to ConfiguringColumns so the user can correct and resubmit.
func (p *Planner) Finish(err error) error {
	if e := p.require("finish", StateSubmitting); e != nil {
		return e
	}
	if err != nil {
		p.state = StateConfiguringColumns
		return nil
	}
	p.reset()
	p.state = StateIdle
	return nil
}

// BuildRequest turns a wizard configuration into the wire request. Match
// columns collapse to their distinct names in first-seen order, dropping
// the table they came from. Merge columns are grouped per table in
// ascending table order.
func BuildRequest(data models.MergeData, src SheetSource) (models.MergeRequest, error) {
	if len(data.MatchColumns) == 0 {
		return models.MergeRequest{}, ErrNoMatchColumns
	}
	if len(data.MergeColumns) == 0 {
		return models.MergeRequest{}, ErrNoMergeColumns
	}
	if data.CreateNewTable && strings.TrimSpace(data.NewTableName) == "" {
		return models.MergeRequest{}, ErrNewTableName
	}

	target, err := src.Sheet(data.TargetTable)
	if err != nil {
		return models.MergeRequest{}, err
	}
	req := models.MergeRequest{
		TargetTableName:  target.Name,
		SourceTableNames: make([]string, 0, len(data.SourceTables)),
		MatchColumns:     []string{},
		MergeColumns:     []models.MergeColumnGroup{},
		CreateNewTable:   data.CreateNewTable,
		NewTableName:     data.NewTableName,
	}
	for _, idx := range data.SourceTables {
		sheet, err := src.Sheet(idx)
		if err != nil {
			return models.MergeRequest{}, err
		}
		req.SourceTableNames = append(req.SourceTableNames, sheet.Name)
	}

	seen := make(map[string]bool)
	for _, ref := range data.MatchColumns {
		if seen[ref.ColumnName] {
			continue
		}
		seen[ref.ColumnName] = true
		req.MatchColumns = append(req.MatchColumns, ref.ColumnName)
	}

	groups := make(map[int]*models.MergeColumnGroup)
	for _, ref := range data.MergeColumns {
		g, ok := groups[ref.TableIndex]
		if !ok {
			g = &models.MergeColumnGroup{TableName: ref.TableName, Columns: []string{}}
			groups[ref.TableIndex] = g
		}
		g.Columns = append(g.Columns, ref.ColumnName)
	}
	order := make([]int, 0, len(groups))
	for idx := range groups {
		order = append(order, idx)
	}
	sort.Ints(order)
	for _, idx := range order {
		req.MergeColumns = append(req.MergeColumns, *groups[idx])
	}

	return req, nil
}

func hasRef(list []models.ColumnRef, table, col int) bool {
	for _, r := range list {
		if r.TableIndex == table && r.ColumnIndex == col {
			return true
		}
	}
	return false
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func uniqueSorted(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	j := 0
	for i, v := range out {
		if i == 0 || v != out[j-1] {
			out[j] = v
			j++
		}
	}
	return out[:j]
}
