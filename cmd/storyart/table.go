package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTable renders a rounded table with left-aligned headers. rightAlign
// lists 1-based column numbers to right-align (counts, durations).
func renderTable(headers []string, rows [][]string, rightAlign ...int) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	rightSet := make(map[int]struct{}, len(rightAlign))
	for _, col := range rightAlign {
		rightSet[col] = struct{}{}
	}
	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := 1; i <= len(headers); i++ {
		align := text.AlignLeft
		if _, ok := rightSet[i]; ok {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
