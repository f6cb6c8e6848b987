// Package models defines the data structures shared by the workbook store,
// the merge planner, and the HTTP persistence contract.
package models

// DefaultWorkbookName is used when a workbook is created empty or loaded without a name.
const DefaultWorkbookName = "未命名工作簿"

// MergedWorkbookName is used when a merge response carries a workbook without a name.
const MergedWorkbookName = "合并后的工作簿"

// Workbook is the in-memory collection of sheets being edited.
type Workbook struct {
	// Name is the workbook name (also the exported file name stem).
	Name string `json:"workbook_name"`
	// Sheets is the ordered list of sheets. Sheet names are unique.
	Sheets []Sheet `json:"sheets"`
}

// NewWorkbook returns an empty workbook with the default name.
func NewWorkbook() Workbook {
	return Workbook{Name: DefaultWorkbookName, Sheets: []Sheet{}}
}

// SheetIndex returns the position of the sheet with the given name, or -1.
// Matching is exact and case-sensitive.
func (w *Workbook) SheetIndex(name string) int {
	for i := range w.Sheets {
		if w.Sheets[i].Name == name {
			return i
		}
	}
	return -1
}

// SheetNames returns the sheet names in order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i := range w.Sheets {
		names[i] = w.Sheets[i].Name
	}
	return names
}

// Normalize restores the structural invariants of every sheet and fills
// in the default name. It is applied to workbooks arriving from outside.
func (w *Workbook) Normalize(fallbackName string) {
	if w.Name == "" {
		w.Name = fallbackName
	}
	if w.Sheets == nil {
		w.Sheets = []Sheet{}
	}
	for i := range w.Sheets {
		w.Sheets[i].Normalize()
	}
}
