package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/tabula/table"
)

// GridFormatter renders tables as a bordered text grid
type GridFormatter struct {
	writer io.Writer
}

// NewGridFormatter creates a new grid formatter
func NewGridFormatter(w io.Writer) *GridFormatter {
	return &GridFormatter{writer: w}
}

// SetOutput sets the output writer
func (g *GridFormatter) SetOutput(w io.Writer) {
	g.writer = w
}

// Format renders the table with column headers and row borders
func (g *GridFormatter) Format(t *table.Table) error {
	tw := tablewriter.NewWriter(g.writer)
	tw.SetHeader(t.Columns())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)

	columns := t.Columns()
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		record := make([]string, len(columns))
		for j, col := range columns {
			record[j] = formatValue(row[col])
		}
		tw.Append(record)
	}

	tw.Render()
	return nil
}
