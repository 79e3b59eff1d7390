// Package output renders tables in the supported output formats.
//
// Currently supported formats:
//   - Grid: human-readable bordered table (the default)
//   - CSV / TSV: delimited values with header row
//   - JSON Lines: one JSON object per line
//
// Example usage:
//
//	formatter := output.NewGridFormatter(os.Stdout)
//	if err := formatter.Format(tbl); err != nil {
//	    log.Fatal(err)
//	}
package output

import (
	"io"

	"github.com/vegasq/tabula/table"
)

// Formatter defines the interface for output formatters.
//
// Implementers must provide Format to render a table in the target
// format and SetOutput to change the output destination.
type Formatter interface {
	// Format writes the table in the formatter's specific format
	Format(t *table.Table) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// New returns the formatter for a format name. Recognized names are
// "table" (alias "grid"), "csv", "tsv", and "jsonl" (alias "json");
// anything else falls back to the bordered table.
func New(format string, w io.Writer) Formatter {
	switch format {
	case "csv":
		return NewDelimitedFormatter(w, ',')
	case "tsv":
		return NewDelimitedFormatter(w, '\t')
	case "jsonl", "json":
		return NewJSONFormatter(w)
	default:
		return NewGridFormatter(w)
	}
}
