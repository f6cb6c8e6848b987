package merge

import (
	"fmt"
	"strings"

	"github.com/ukaji3/workbook-go/pkg/workbook/models"
)

// Result describes an executed merge.
type Result struct {
	// Sheet is the sheet that received the merged columns.
	Sheet string `json:"sheet"`
	// Columns lists the names of the columns appended to Sheet.
	Columns []string `json:"columns"`
	// Rows is the row count of Sheet after the merge.
	Rows int `json:"rows"`
	// CreatedNewTable is set when Sheet was appended to the workbook.
	CreatedNewTable bool `json:"created_new_table"`
}

// Validate checks req against wb: the match list and source list are
// non-empty, every named table exists, every match column exists in the
// target and every source, and every merge group names existing columns.
// All problems are reported together in a *ValidationError.
func Validate(wb *models.Workbook, req models.MergeRequest) error {
	verr := &ValidationError{}

	if len(req.MatchColumns) == 0 {
		verr.add("match columns must not be empty")
	}
	if len(req.SourceTableNames) == 0 {
		verr.add("source tables must not be empty")
	}
	if len(req.MergeColumns) == 0 {
		verr.add("merge columns must not be empty")
	}
	if err := verr.orNil(); err != nil {
		return err
	}

	all := append([]string{req.TargetTableName}, req.SourceTableNames...)
	var missingTables []string
	for _, name := range all {
		if wb.SheetIndex(name) < 0 {
			missingTables = append(missingTables, name)
		}
	}
	if len(missingTables) > 0 {
		verr.add("tables not found: %s", strings.Join(missingTables, ", "))
		return verr
	}

	for _, name := range all {
		sheet := &wb.Sheets[wb.SheetIndex(name)]
		if missing := missingColumns(sheet, req.MatchColumns); len(missing) > 0 {
			verr.add("table %q is missing match columns: %s", name, strings.Join(missing, ", "))
		}
	}

	for _, g := range req.MergeColumns {
		if g.TableName == "" {
			verr.add("merge column group has no table name")
			continue
		}
		idx := wb.SheetIndex(g.TableName)
		if idx < 0 {
			verr.add("merge table not found: %s", g.TableName)
			continue
		}
		if missing := missingColumns(&wb.Sheets[idx], g.Columns); len(missing) > 0 {
			verr.add("table %q is missing merge columns: %s", g.TableName, strings.Join(missing, ", "))
		}
	}

	if req.CreateNewTable {
		name := strings.TrimSpace(req.NewTableName)
		if name == "" {
			verr.add("new table name must not be empty")
		} else if wb.SheetIndex(name) >= 0 {
			verr.add("new table %q already exists", name)
		}
	}

	return verr.orNil()
}

// Execute validates req and then left-joins each source into the target.
// For every source (in request order) the first merge group naming it
// supplies the columns; sources without a group are skipped. Keys compare
// as strings. A target row matching several source rows is repeated once
// per match; a row matching none gets empty cells. New columns are named
// "<source>_<column>", with "_<source>" appended on collision.
//
// The result replaces the target sheet, or is appended as a new sheet when
// req.CreateNewTable is set.
func Execute(wb *models.Workbook, req models.MergeRequest) (*Result, error) {
	if err := Validate(wb, req); err != nil {
		return nil, err
	}

	targetIdx := wb.SheetIndex(req.TargetTableName)
	out := cloneSheet(&wb.Sheets[targetIdx])
	var added []string

	for _, srcName := range req.SourceTableNames {
		cols := req.ColumnsFor(srcName)
		if len(cols) == 0 {
			continue
		}
		src := &wb.Sheets[wb.SheetIndex(srcName)]
		var names []string
		out, names = leftJoin(out, src, req.MatchColumns, cols)
		added = append(added, names...)
	}

	res := &Result{Columns: added, Rows: len(out.Rows)}
	if req.CreateNewTable {
		out.Name = strings.TrimSpace(req.NewTableName)
		wb.Sheets = append(wb.Sheets, out)
		res.CreatedNewTable = true
	} else {
		wb.Sheets[targetIdx] = out
	}
	res.Sheet = out.Name
	return res, nil
}

func leftJoin(target models.Sheet, src *models.Sheet, match, merge []string) (models.Sheet, []string) {
	tKeys := columnIDs(&target, match)
	sKeys := columnIDs(src, match)
	sMerge := mergeIDs(src, merge)

	index := make(map[string][]int)
	for r, row := range src.Rows {
		k := joinKey(row, sKeys)
		index[k] = append(index[k], r)
	}

	out := models.Sheet{Name: target.Name}
	out.Columns = append(out.Columns, target.Columns...)
	names := make([]string, 0, len(merge))
	for _, col := range merge {
		name := src.Name + "_" + col
		for out.ColumnIndex(name) >= 0 {
			name += "_" + src.Name
		}
		out.Columns = append(out.Columns, models.Column{ID: len(out.Columns), Name: name})
		names = append(names, name)
	}

	width := len(target.Columns)
	for _, row := range target.Rows {
		matches := index[joinKey(row, tKeys)]
		if len(matches) == 0 {
			joined := copyRow(row, len(out.Columns))
			for i := range merge {
				joined[width+i] = ""
			}
			out.Rows = append(out.Rows, joined)
			continue
		}
		for _, m := range matches {
			joined := copyRow(row, len(out.Columns))
			for i, id := range sMerge {
				joined[width+i] = src.Rows[m][id]
			}
			out.Rows = append(out.Rows, joined)
		}
	}

	return out, names
}

func missingColumns(sheet *models.Sheet, names []string) []string {
	var missing []string
	for _, n := range names {
		if sheet.ColumnIndex(n) < 0 {
			missing = append(missing, n)
		}
	}
	return missing
}

func columnIDs(sheet *models.Sheet, names []string) []int {
	ids := make([]int, len(names))
	for i, n := range names {
		ids[i] = sheet.Columns[sheet.ColumnIndex(n)].ID
	}
	return ids
}

// mergeIDs resolves merge column names like columnIDs, except that a name
// listed again picks the next source column carrying it.
func mergeIDs(sheet *models.Sheet, names []string) []int {
	seen := make(map[string]int, len(names))
	ids := make([]int, len(names))
	for i, n := range names {
		var matches []int
		for _, c := range sheet.Columns {
			if c.Name == n {
				matches = append(matches, c.ID)
			}
		}
		k := seen[n]
		if k >= len(matches) {
			k = len(matches) - 1
		}
		ids[i] = matches[k]
		seen[n]++
	}
	return ids
}

func joinKey(row models.Row, ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = row[id]
	}
	return strings.Join(parts, "\x00")
}

func copyRow(row models.Row, capacity int) models.Row {
	out := make(models.Row, capacity)
	for k, v := range row {
		out[k] = v
	}
	return out
}

func cloneSheet(s *models.Sheet) models.Sheet {
	out := models.Sheet{
		Name:    s.Name,
		Columns: append([]models.Column(nil), s.Columns...),
		Rows:    make([]models.Row, len(s.Rows)),
	}
	for i, row := range s.Rows {
		out.Rows[i] = copyRow(row, len(row))
	}
	return out
}

// String summarizes the result for logs and CLI output.
func (r *Result) String() string {
	return fmt.Sprintf("%s: +%d columns, %d rows", r.Sheet, len(r.Columns), r.Rows)
}
