package output

import (
	"encoding/json"
	"io"

	"github.com/vegasq/tabula/table"
)

// JSONFormatter outputs tables as JSON Lines format
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes the table as JSON Lines (one JSON object per line)
func (j *JSONFormatter) Format(t *table.Table) error {
	encoder := json.NewEncoder(j.writer)
	for i := 0; i < t.NumRows(); i++ {
		if err := encoder.Encode(t.Row(i)); err != nil {
			return err
		}
	}
	return nil
}
