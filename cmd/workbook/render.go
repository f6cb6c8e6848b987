package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/ukaji3/workbook-go/pkg/workbook"
	"github.com/ukaji3/workbook-go/pkg/workbook/models"
	"github.com/ukaji3/workbook-go/pkg/workbook/session"
	"github.com/ukaji3/workbook-go/pkg/workbook/xlsx"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	selectedStyle = cellStyle.Reverse(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	levelStyles = map[session.Level]lipgloss.Style{
		session.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		session.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		session.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		session.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

// printer is a session.Notifier that writes styled lines.
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) Notify(level session.Level, message string) {
	tag := levelStyles[level].Render(fmt.Sprintf("[%s]", level))
	fmt.Fprintf(p.w, "%s %s\n", tag, message)
}

// renderSheet draws a sheet as a bordered table. A row number column is
// prepended; the selected cell, row or column is highlighted.
func renderSheet(sheet models.Sheet, sel workbook.Selection) string {
	headers := make([]string, 0, len(sheet.Columns)+1)
	headers = append(headers, "#")
	headers = append(headers, sheet.ColumnNames()...)

	rows := make([][]string, len(sheet.Rows))
	for r := range sheet.Rows {
		rows[r] = append([]string{strconv.Itoa(r + 1)}, sheet.Values(r)...)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return dimStyle.Padding(0, 1)
			}
			if isSelected(sel, row, col-1) {
				return selectedStyle
			}
			return cellStyle
		})

	return titleStyle.Render(sheet.Name) + "\n" + t.String()
}

func isSelected(sel workbook.Selection, row, col int) bool {
	if c, ok := sel.Cell(); ok {
		return c.Row == row && c.Col == col
	}
	if c, ok := sel.Column(); ok {
		return c == col
	}
	if r, ok := sel.Row(); ok {
		return r == row
	}
	return false
}

func renderStatus(st workbook.Status) string {
	return dimStyle.Render(fmt.Sprintf("%s | %d 行 | %d 列 | %s", st.Sheet, st.Rows, st.Columns, st.Selection))
}

// renderInfos summarizes the data ranges of an Excel file before upload.
func renderInfos(infos []xlsx.SheetInfo) string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rng := "-"
		if info.Range != nil {
			rng = info.Range.String()
		}
		rows = append(rows, []string{
			info.Name,
			rng,
			strconv.Itoa(info.Filled),
			strconv.FormatFloat(info.Density, 'f', 2, 64),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("sheet", "range", "filled", "density").
		Rows(rows...).
		String()
}

func renderEvent(ev models.Event) string {
	var b strings.Builder
	b.WriteString(dimStyle.Render(ev.At.Local().Format("15:04:05")))
	b.WriteString(" ")
	b.WriteString(levelStyles[session.LevelInfo].Render(ev.Type))
	if ev.Message != "" {
		b.WriteString(" ")
		b.WriteString(ev.Message)
	}
	return b.String()
}
