// Package workbook holds the active in-memory workbook and the edit
// operations on it: sheets, columns, rows, cells, and the selection that
// gates deletes.
package workbook

import (
	"io"
	"log/slog"
)

// Options configures a Store.
type Options struct {
	// Logger receives debug records for applied edits and warnings for refused ones.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
	// SheetPrefix is the stem of suggested sheet names ("表格" -> "表格3").
	// If empty, DefaultSheetPrefix is used.
	SheetPrefix string
}

// DefaultSheetPrefix is the stem of suggested sheet names.
const DefaultSheetPrefix = "表格"

// DefaultOptions returns default store options.
func DefaultOptions() Options {
	return Options{
		SheetPrefix: DefaultSheetPrefix,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) sheetPrefix() string {
	if o.SheetPrefix != "" {
		return o.SheetPrefix
	}
	return DefaultSheetPrefix
}

// DiscardLogger returns a logger that drops every record. Useful in tests.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
