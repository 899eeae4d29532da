package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. maxWidth wraps longer cells; zero
// leaves the column unbounded.
type column struct {
	title    string
	align    text.Align
	maxWidth int
}

func left(title string) column {
	return column{title: title, align: text.AlignLeft}
}

func right(title string) column {
	return column{title: title, align: text.AlignRight}
}

func wrapped(title string, width int) column {
	return column{title: title, align: text.AlignLeft, maxWidth: width}
}

// Column sets for each table view.
var (
	codecColumns = []column{left("Name"), left("Label"), left("Encoder"), left("Ext"), left("Lossless"), wrapped("Options", 40)}
	runColumns   = []column{right("ID"), left("Started"), left("Codec"), left("Status"), right("Files"), right("Took"), wrapped("Source", 60)}
	jobColumns   = []column{wrapped("File", 60), left("Status"), right("Took")}
)

// renderTable draws rows under cols. Short rows are padded and extra cells
// are dropped.
func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.title
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       c.align,
			AlignHeader: text.AlignLeft,
			WidthMax:    c.maxWidth,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i := range cols {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}
