// Package report renders waterfall results for terminals and spreadsheets.
package report

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table is a header row plus data rows, rendered as a rounded box grid:
//
//	╭──────┬──────╮
//	│ Tier │ LP   │
//	├──────┼──────┤
//	│ ...  │ ...  │
//	╰──────┴──────╯
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render draws the table with a rule between data rows and a trailing
// newline. Rows shorter than the widest row are padded with empty cells.
// An empty table renders as "".
func (t Table) Render() string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = true
	tw.Style().Format.Header = text.FormatDefault

	if len(t.Headers) > 0 {
		tw.AppendHeader(toRow(t.Headers))
	}
	for _, r := range t.Rows {
		tw.AppendRow(toRow(r))
	}

	out := tw.Render()
	if out == "" {
		return ""
	}
	return out + "\n"
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
