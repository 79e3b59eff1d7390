// Package reader loads tabular input into tables.
//
// Delimited text (CSV, TSV) is read with per-column type inference, and
// Apache Parquet files are read through the parquet-go library. Every
// entry point returns a *table.Table ready for chain evaluation.
package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/vegasq/tabula/table"
)

// ErrEmptyInput reports input with no rows at all
var ErrEmptyInput = errors.New("empty input")

// Options controls delimited-text parsing
type Options struct {
	// Delimiter separates fields; defaults to ',' when zero
	Delimiter rune

	// NoHeader treats the first record as data and synthesizes column
	// names column_1..column_N
	NoHeader bool
}

// ReadDelimited parses delimited text into a table. The first record is
// the header unless opts.NoHeader is set. Column types are inferred from
// the data: a column where every non-empty cell parses as an integer
// becomes int64, then float64, then bool, otherwise string. Empty cells
// become nil.
func ReadDelimited(r io.Reader, opts Options) (*table.Table, error) {
	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter = ','
	}

	csvReader := csv.NewReader(r)
	csvReader.Comma = delimiter
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	var cols []string
	var data [][]string
	if opts.NoHeader {
		cols = make([]string, len(records[0]))
		for i := range cols {
			cols[i] = fmt.Sprintf("column_%d", i+1)
		}
		data = records
	} else {
		cols = records[0]
		data = records[1:]
	}

	for i, record := range data {
		if len(record) != len(cols) {
			return nil, fmt.Errorf("row %d has %d field(s), expected %d", i+1, len(record), len(cols))
		}
	}

	rows := make([]map[string]interface{}, len(data))
	for i := range rows {
		rows[i] = make(map[string]interface{}, len(cols))
	}
	for c, col := range cols {
		values := inferColumn(data, c)
		for i, v := range values {
			rows[i][col] = v
		}
	}

	t, err := table.New(cols, rows)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// inferColumn converts one column of raw strings to typed values
func inferColumn(data [][]string, col int) []interface{} {
	allInt := true
	allFloat := true
	allBool := true

	for _, record := range data {
		cell := record[col]
		if cell == "" {
			continue
		}
		if allInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			if !isBoolCell(cell) {
				allBool = false
			}
		}
	}

	values := make([]interface{}, len(data))
	for i, record := range data {
		cell := record[col]
		if cell == "" {
			values[i] = nil
			continue
		}
		switch {
		case allInt:
			n, _ := strconv.ParseInt(cell, 10, 64)
			values[i] = n
		case allFloat:
			f, _ := strconv.ParseFloat(cell, 64)
			values[i] = f
		case allBool:
			values[i] = cell == "true" || cell == "True"
		default:
			values[i] = cell
		}
	}
	return values
}

func isBoolCell(cell string) bool {
	switch cell {
	case "true", "True", "false", "False":
		return true
	}
	return false
}
