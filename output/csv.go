package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/tabula/table"
)

// DelimitedFormatter outputs tables as delimited text (CSV or TSV)
type DelimitedFormatter struct {
	writer    io.Writer
	delimiter rune
}

// NewDelimitedFormatter creates a formatter for the given field delimiter
func NewDelimitedFormatter(w io.Writer, delimiter rune) *DelimitedFormatter {
	return &DelimitedFormatter{writer: w, delimiter: delimiter}
}

// SetOutput sets the output writer
func (d *DelimitedFormatter) SetOutput(w io.Writer) {
	d.writer = w
}

// Format writes the table as delimited text with a header row. Columns
// keep their table order.
func (d *DelimitedFormatter) Format(t *table.Table) error {
	csvWriter := csv.NewWriter(d.writer)
	csvWriter.Comma = d.delimiter

	columns := t.Columns()
	if err := csvWriter.Write(columns); err != nil {
		return err
	}

	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		record := make([]string, len(columns))
		for j, col := range columns {
			record[j] = formatValue(row[col])
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}

	return nil
}

// formatValue converts a value to string for delimited output
func formatValue(v interface{}) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		// Sanitize against CSV injection by prefixing dangerous characters
		// that could trigger formula execution in spreadsheet applications
		if len(val) > 0 {
			firstChar := val[0]
			if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' || firstChar == '\t' || firstChar == '\r' || firstChar == '\n' || firstChar == '|' {
				return "'" + strings.ReplaceAll(val, "'", "''")
			}
		}
		return val
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
