package analyzer

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// newTable returns a borderless table suitable for plain text reports.
func newTable(header ...interface{}) table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false
	tbl.AppendHeader(table.Row(header))
	return tbl
}
