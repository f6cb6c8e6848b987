package models

// ColumnRef identifies one column of one sheet chosen in the merge wizard.
type ColumnRef struct {
	// TableIndex is the sheet index in the workbook.
	TableIndex int `json:"tableIndex"`
	// TableName is the sheet name at selection time.
	TableName string `json:"tableName"`
	// ColumnIndex is the column position in the sheet.
	ColumnIndex int `json:"columnIndex"`
	// ColumnName is the header text at selection time.
	ColumnName string `json:"columnName"`
}

// MergeData is the working configuration of the merge wizard. It lives only
// while the wizard is open and is never persisted.
type MergeData struct {
	// SourceTables are sheet indices whose columns are carried into the target.
	SourceTables []int `json:"sourceTables"`
	// TargetTable is the sheet index receiving the merged columns.
	TargetTable int `json:"targetTable"`
	// MatchColumns are the join keys.
	MatchColumns []ColumnRef `json:"matchColumns"`
	// MergeColumns are the columns whose values are carried over.
	MergeColumns []ColumnRef `json:"mergeColumns"`
	// CreateNewTable writes the result to a new sheet instead of the target.
	CreateNewTable bool `json:"createNewTable"`
	// NewTableName names the new sheet when CreateNewTable is set.
	NewTableName string `json:"newTableName"`
}

// MergeColumnGroup lists the merge columns contributed by one table.
type MergeColumnGroup struct {
	TableName string   `json:"tableName"`
	Columns   []string `json:"columns"`
}

// MergeRequest is the body of POST /merge-tables.
type MergeRequest struct {
	TargetTableName  string             `json:"targetTableName"`
	SourceTableNames []string           `json:"sourceTableNames"`
	MatchColumns     []string           `json:"matchColumns"`
	MergeColumns     []MergeColumnGroup `json:"mergeColumns"`
	CreateNewTable   bool               `json:"createNewTable"`
	NewTableName     string             `json:"newTableName"`
}

// ColumnsFor returns the merge columns of the first group naming table.
func (r *MergeRequest) ColumnsFor(table string) []string {
	for _, g := range r.MergeColumns {
		if g.TableName == table {
			return g.Columns
		}
	}
	return nil
}
