// Package table provides the in-memory relation threaded through a
// chain of operations.
//
// A Table has named, insertion-ordered columns over rows stored as maps.
// Tables are logically immutable: operations build a new Table rather
// than mutating an existing one, so a partial chain prefix can always be
// inspected in isolation.
package table

import (
	"fmt"
)

// Table is an ordered set of named columns over rows.
type Table struct {
	cols []string
	rows []map[string]interface{}
}

// New creates a table from column names and rows.
//
// Column names must be unique. Rows are stored as given; cells missing
// from a row read back as nil.
func New(cols []string, rows []map[string]interface{}) (*Table, error) {
	seen := make(map[string]bool, len(cols))
	for _, col := range cols {
		if seen[col] {
			return nil, fmt.Errorf("duplicate column name %q", col)
		}
		seen[col] = true
	}
	return &Table{cols: cols, rows: rows}, nil
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// IsEmpty reports whether the table has no rows.
func (t *Table) IsEmpty() bool {
	return len(t.rows) == 0
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.cols {
		if col == name {
			return true
		}
	}
	return false
}

// Row returns the i-th row. Callers must not mutate the returned map.
func (t *Table) Row(i int) map[string]interface{} {
	return t.rows[i]
}

// Rows returns the backing row slice. Callers must not mutate it.
func (t *Table) Rows() []map[string]interface{} {
	return t.rows
}

// Column returns the values of the named column in row order.
// The second return value is false if the column does not exist.
func (t *Table) Column(name string) ([]interface{}, bool) {
	if !t.HasColumn(name) {
		return nil, false
	}
	values := make([]interface{}, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[name]
	}
	return values, true
}

// WithRows returns a new table with the same columns but different rows.
func (t *Table) WithRows(rows []map[string]interface{}) *Table {
	return &Table{cols: t.cols, rows: rows}
}

// MapColumn returns a new table where the named column's value in each
// row is replaced by fn(value). Other columns are carried over unchanged.
func (t *Table) MapColumn(name string, fn func(interface{}) (interface{}, error)) (*Table, error) {
	rows := make([]map[string]interface{}, len(t.rows))
	for i, row := range t.rows {
		mapped, err := fn(row[name])
		if err != nil {
			return nil, err
		}
		newRow := make(map[string]interface{}, len(row))
		for k, v := range row {
			newRow[k] = v
		}
		newRow[name] = mapped
		rows[i] = newRow
	}
	return &Table{cols: t.cols, rows: rows}, nil
}
