package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTable renders rows in the house style. Columns listed in
// numericColumns (1-based) are right-aligned; everything else, headers
// included, stays left-aligned.
func renderTable(headers table.Row, rows []table.Row, numericColumns ...int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(headers)
	tw.AppendRows(rows)

	configs := make([]table.ColumnConfig, 0, len(numericColumns))
	for _, column := range numericColumns {
		configs = append(configs, table.ColumnConfig{
			Number:      column,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
