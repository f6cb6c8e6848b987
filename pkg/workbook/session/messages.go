package session

import (
	"errors"

	"github.com/ukaji3/workbook-go/pkg/workbook"
	"github.com/ukaji3/workbook-go/pkg/workbook/merge"
)

var messages = []struct {
	err error
	msg string
}{
	{ErrBusy, "上一个请求尚未完成，请稍候"},
	{ErrNothingToSave, "当前没有工作簿数据可保存，请先创建表格"},
	{ErrNothingToExport, "当前没有工作簿数据可导出，请先创建表格"},
	{ErrFileType, "请选择.xlsx或.xls格式的Excel文件"},
	{ErrFileTooLarge, "文件大小不能超过10MB"},
	{workbook.ErrNoSheets, "当前没有表格数据，请先创建表格"},
	{workbook.ErrDuplicateSheetName, "表格名称已存在，请使用其他名称"},
	{workbook.ErrEmptyName, "名称不能为空"},
	{workbook.ErrLastSheet, "工作簿至少需要保留一个表格"},
	{workbook.ErrLastColumn, "表格至少需要保留一列，无法删除最后一列"},
	{workbook.ErrLastRow, "表格至少需要保留一行，无法删除最后一行"},
	{workbook.ErrNotSelected, "请先选择要删除的列或行"},
	{merge.ErrTooFewSheets, "至少需要2个表格才能进行数据合并操作"},
	{merge.ErrSelfMerge, "目标表格不能同时作为待合入表格"},
	{merge.ErrNoSource, "请至少选择一个待合入表格"},
	{merge.ErrNoColumnsSelected, "请先选择要添加的列"},
	{merge.ErrNoMatchColumns, "请至少配置一个匹配列"},
	{merge.ErrNoMergeColumns, "请至少配置一个待合并列"},
	{merge.ErrNewTableName, "请输入新表名称"},
}

// Message returns the user-facing text for err.
func Message(err error) string {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return err.Error()
}

// isWarning reports whether err is a refused local action rather than a
// failed request.
func isWarning(err error) bool {
	if workbook.IsValidation(err) {
		return true
	}
	var stateErr *merge.StateError
	if errors.As(err, &stateErr) {
		return true
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return true
		}
	}
	return false
}
