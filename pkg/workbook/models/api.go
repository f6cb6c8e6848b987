package models

import "time"

// Response is the common envelope returned by the persistence service.
// Older endpoints report text in "msg", newer ones in "message".
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Msg     string `json:"msg,omitempty"`
	// WorkbookData is present on load and, optionally, on merge.
	WorkbookData *Workbook `json:"workbook_data,omitempty"`
	// FilePath is reported by import-excel.
	FilePath string `json:"filepath,omitempty"`
	// SavedAt is reported by save.
	SavedAt string `json:"saved_at,omitempty"`
	// TableCount is reported by save.
	TableCount int `json:"table_count,omitempty"`
}

// Text returns whichever message field the server filled in.
func (r *Response) Text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Msg
}

// Event types published by the persistence service.
const (
	EventWorkbookSaved    = "workbook.saved"
	EventWorkbookImported = "workbook.imported"
	EventWorkbookMerged   = "workbook.merged"
)

// Event reports a change to a project's stored workbook.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	ProjectID int       `json:"project_id"`
	At        time.Time `json:"at"`
	Message   string    `json:"message,omitempty"`
}
