package merge

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/workbook-go/pkg/workbook"
	"github.com/ukaji3/workbook-go/pkg/workbook/models"
)

func sheet(name string, cols ...string) models.Sheet {
	s := models.Sheet{Name: name, Rows: []models.Row{}}
	for i, c := range cols {
		s.Columns = append(s.Columns, models.Column{ID: i, Name: c})
	}
	return s
}

func newStore(t *testing.T, sheets ...models.Sheet) *workbook.Store {
	t.Helper()
	s := workbook.NewStore(workbook.Options{Logger: workbook.DiscardLogger()})
	require.NoError(t, s.Load(models.Workbook{Name: "wb", Sheets: sheets}))
	return s
}

func newPlanner(t *testing.T, sheets ...models.Sheet) *Planner {
	t.Helper()
	clock := func() time.Time { return time.UnixMilli(1700000000123) }
	return NewPlanner(newStore(t, sheets...), WithClock(clock), WithLogger(workbook.DiscardLogger()))
}

func configured(t *testing.T) *Planner {
	t.Helper()
	p := newPlanner(t,
		sheet("Sheet1", "id", "value"),
		sheet("Sheet2", "id", "name"),
	)
	require.NoError(t, p.Open())
	require.NoError(t, p.SelectTables([]int{0}, 1))
	return p
}

func TestOpenRequiresTwoSheets(t *testing.T) {
	p := newPlanner(t, sheet("only", "a"))
	assert.ErrorIs(t, p.Open(), ErrTooFewSheets)
	assert.Equal(t, StateIdle, p.State())
}

func TestSelectTablesSelfMergeGuard(t *testing.T) {
	p := newPlanner(t, sheet("A", "x"), sheet("B", "x"), sheet("C", "x"))
	require.NoError(t, p.Open())

	assert.False(t, p.CanConfirm([]int{0, 1}, 1))
	assert.ErrorIs(t, p.SelectTables([]int{0, 1}, 1), ErrSelfMerge)
	assert.Equal(t, StateSelectingTables, p.State())

	assert.False(t, p.CanConfirm(nil, 1))
	assert.ErrorIs(t, p.SelectTables(nil, 1), ErrNoSource)

	assert.True(t, p.CanConfirm([]int{2, 0}, 1))
	require.NoError(t, p.SelectTables([]int{2, 0, 2}, 1))
	assert.Equal(t, StateConfiguringColumns, p.State())
	assert.Equal(t, []int{0, 2}, p.Data().SourceTables)
}

func TestAddColumnsDeduplicates(t *testing.T) {
	p := configured(t)

	n, err := p.AddMatchColumns(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = p.AddMatchColumns(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, p.Data().MatchColumns, 1)

	n, err = p.AddMatchColumns(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "same column index on another table is a different pair")

	ref := p.Data().MatchColumns[0]
	assert.Equal(t, models.ColumnRef{TableIndex: 0, TableName: "Sheet1", ColumnIndex: 0, ColumnName: "id"}, ref)
}

func TestAddColumnsValidation(t *testing.T) {
	p := configured(t)

	_, err := p.AddMergeColumns(0)
	assert.ErrorIs(t, err, ErrNoColumnsSelected)

	_, err = p.AddMergeColumns(0, 9)
	assert.ErrorIs(t, err, ErrOutOfRange)

	p2 := newPlanner(t, sheet("A", "x"), sheet("B", "x"), sheet("C", "x"))
	require.NoError(t, p2.Open())
	require.NoError(t, p2.SelectTables([]int{0}, 1))
	_, err = p2.AddMatchColumns(2, 0)
	assert.ErrorIs(t, err, ErrNotInPlan)
}

func TestRemoveColumns(t *testing.T) {
	p := configured(t)
	_, err := p.AddMergeColumns(0, 0, 1)
	require.NoError(t, err)

	require.NoError(t, p.RemoveMergeColumn(0))
	data := p.Data()
	require.Len(t, data.MergeColumns, 1)
	assert.Equal(t, "value", data.MergeColumns[0].ColumnName)

	assert.ErrorIs(t, p.RemoveMergeColumn(3), ErrOutOfRange)
	assert.ErrorIs(t, p.RemoveMatchColumn(0), ErrOutOfRange)
}

func TestSubmitScenario(t *testing.T) {
	p := configured(t)
	_, err := p.AddMatchColumns(0, 0)
	require.NoError(t, err)
	_, err = p.AddMergeColumns(0, 1)
	require.NoError(t, err)

	req, err := p.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, StateSubmitting, p.State())

	assert.Equal(t, models.MergeRequest{
		TargetTableName:  "Sheet2",
		SourceTableNames: []string{"Sheet1"},
		MatchColumns:     []string{"id"},
		MergeColumns:     []models.MergeColumnGroup{{TableName: "Sheet1", Columns: []string{"value"}}},
		CreateNewTable:   false,
		NewTableName:     "",
	}, req)

	_, err = p.BeginSubmit()
	assert.ErrorIs(t, err, ErrSubmitting)
	assert.ErrorIs(t, p.Cancel(), ErrSubmitting)
}

func TestSubmitValidation(t *testing.T) {
	p := configured(t)

	_, err := p.BeginSubmit()
	assert.ErrorIs(t, err, ErrNoMatchColumns)

	_, err = p.AddMatchColumns(1, 0)
	require.NoError(t, err)
	_, err = p.BeginSubmit()
	assert.ErrorIs(t, err, ErrNoMergeColumns)

	_, err = p.AddMergeColumns(0, 1)
	require.NoError(t, err)
	name, err := p.SetCreateNewTable(true)
	require.NoError(t, err)
	assert.Equal(t, "Sheet2_合并_1700000000123", name)

	require.NoError(t, p.SetNewTableName("  "))
	_, err = p.BeginSubmit()
	assert.ErrorIs(t, err, ErrNewTableName)
	assert.Equal(t, StateConfiguringColumns, p.State())

	require.NoError(t, p.SetNewTableName("merged"))
	req, err := p.BeginSubmit()
	require.NoError(t, err)
	assert.True(t, req.CreateNewTable)
	assert.Equal(t, "merged", req.NewTableName)
}

func TestFinishFailureKeepsConfiguration(t *testing.T) {
	p := configured(t)
	_, err := p.AddMatchColumns(0, 0)
	require.NoError(t, err)
	_, err = p.AddMergeColumns(0, 1)
	require.NoError(t, err)
	_, err = p.BeginSubmit()
	require.NoError(t, err)

	require.NoError(t, p.Finish(errors.New("backend said no")))
	assert.Equal(t, StateConfiguringColumns, p.State())
	data := p.Data()
	assert.Len(t, data.MatchColumns, 1)
	assert.Len(t, data.MergeColumns, 1)
	assert.Equal(t, 1, data.TargetTable)

	_, err = p.BeginSubmit()
	require.NoError(t, err)
	require.NoError(t, p.Finish(nil))
	assert.Equal(t, StateIdle, p.State())
	assert.Empty(t, p.Data().MatchColumns)
}

func TestBackAndCancel(t *testing.T) {
	p := configured(t)
	require.NoError(t, p.Back())
	assert.Equal(t, StateSelectingTables, p.State())

	var stateErr *StateError
	_, err := p.AddMatchColumns(0, 0)
	assert.ErrorAs(t, err, &stateErr)

	require.NoError(t, p.Cancel())
	assert.Equal(t, StateIdle, p.State())
	assert.Equal(t, -1, p.Data().TargetTable)
}

func TestTables(t *testing.T) {
	p := configured(t)
	tables, err := p.Tables()
	require.NoError(t, err)
	assert.Equal(t, []Table{
		{Index: 1, Name: "Sheet2", Role: RoleTarget},
		{Index: 0, Name: "Sheet1", Role: RoleSource},
	}, tables)

	cols, err := p.Columns(0)
	require.NoError(t, err)
	assert.Len(t, cols, 2)
}

func TestBuildRequestCollapsesMatchNames(t *testing.T) {
	data := models.MergeData{
		SourceTables: []int{0, 2},
		TargetTable:  1,
		MatchColumns: []models.ColumnRef{
			{TableIndex: 2, TableName: "C", ColumnIndex: 0, ColumnName: "id"},
			{TableIndex: 0, TableName: "A", ColumnIndex: 0, ColumnName: "id"},
			{TableIndex: 0, TableName: "A", ColumnIndex: 1, ColumnName: "date"},
		},
		MergeColumns: []models.ColumnRef{
			{TableIndex: 2, TableName: "C", ColumnIndex: 1, ColumnName: "c1"},
			{TableIndex: 0, TableName: "A", ColumnIndex: 2, ColumnName: "a2"},
			{TableIndex: 2, TableName: "C", ColumnIndex: 2, ColumnName: "c2"},
		},
	}
	src := newStore(t, sheet("A", "id", "date", "a2"), sheet("B", "id", "date"), sheet("C", "id", "c1", "c2"))

	req, err := BuildRequest(data, src)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "date"}, req.MatchColumns)
	assert.Equal(t, []string{"A", "C"}, req.SourceTableNames)
	assert.Equal(t, []models.MergeColumnGroup{
		{TableName: "A", Columns: []string{"a2"}},
		{TableName: "C", Columns: []string{"c1", "c2"}},
	}, req.MergeColumns)
}
