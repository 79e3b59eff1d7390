package chain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/vegasq/tabula/table"
)

// defaultHeadRows is the row count for head()/tail() without an argument
const defaultHeadRows = 5

// columnArg extracts a column name from an argument. Both bare
// identifiers and quoted names are accepted.
func columnArg(op string, a Arg) (string, error) {
	switch a.Kind {
	case ArgRaw, ArgString:
		return a.Text, nil
	default:
		return "", fmt.Errorf("%w: %s: expected column name, got %q", ErrType, op, a.Text)
	}
}

// intArg extracts an integer argument
func intArg(op string, a Arg) (int64, error) {
	if a.Kind != ArgInt {
		return 0, fmt.Errorf("%w: %s: expected integer argument, got %q", ErrType, op, a.Text)
	}
	return a.Value.(int64), nil
}

// boolArg extracts a boolean argument
func boolArg(op string, a Arg) (bool, error) {
	if a.Kind != ArgBool {
		return false, fmt.Errorf("%w: %s: expected boolean argument, got %q", ErrType, op, a.Text)
	}
	return a.Value.(bool), nil
}

// requireColumn fails with a classified error when the named column is
// absent from the current table.
func requireColumn(op string, t *table.Table, name string) error {
	if !t.HasColumn(name) {
		return fmt.Errorf("%w: %s: %q", ErrColumnNotFound, op, name)
	}
	return nil
}

// stringColumn returns the column values after verifying every non-nil
// value is a string.
func stringColumn(op string, t *table.Table, name string) ([]interface{}, error) {
	if err := requireColumn(op, t, name); err != nil {
		return nil, err
	}
	values, _ := t.Column(name)
	for _, v := range values {
		if v == nil {
			continue
		}
		if _, ok := v.(string); !ok {
			return nil, fmt.Errorf("%w: %s: column %q is not a string column (found %T)", ErrType, op, name, v)
		}
	}
	return values, nil
}

// numericColumn returns the non-nil column values as floats after
// verifying the column is numeric.
func numericColumn(op string, t *table.Table, name string) ([]float64, error) {
	if err := requireColumn(op, t, name); err != nil {
		return nil, err
	}
	values, _ := t.Column(name)
	floats := make([]float64, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		num, ok := toFloat64(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s: column %q is not numeric (found %T)", ErrType, op, name, v)
		}
		floats = append(floats, num)
	}
	return floats, nil
}

// opSelect projects the table to the named columns, preserving row order
func opSelect(t *table.Table, args []Arg) (*Result, error) {
	cols := make([]string, len(args))
	var missing []string
	for i, a := range args {
		name, err := columnArg("select", a)
		if err != nil {
			return nil, err
		}
		cols[i] = name
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: select: %s", ErrColumnNotFound, strings.Join(missing, ", "))
	}

	rows := make([]map[string]interface{}, t.NumRows())
	for i := range rows {
		row := t.Row(i)
		newRow := make(map[string]interface{}, len(cols))
		for _, col := range cols {
			newRow[col] = row[col]
		}
		rows[i] = newRow
	}

	projected, err := table.New(cols, rows)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return &Result{Table: projected}, nil
}

// opUpper uppercases a string column
func opUpper(t *table.Table, args []Arg) (*Result, error) {
	return mapStringColumn("upper", t, args[0], strings.ToUpper)
}

// opLower lowercases a string column
func opLower(t *table.Table, args []Arg) (*Result, error) {
	return mapStringColumn("lower", t, args[0], strings.ToLower)
}

func mapStringColumn(op string, t *table.Table, a Arg, fn func(string) string) (*Result, error) {
	col, err := columnArg(op, a)
	if err != nil {
		return nil, err
	}
	if _, err := stringColumn(op, t, col); err != nil {
		return nil, err
	}

	mapped, err := t.MapColumn(col, func(v interface{}) (interface{}, error) {
		if v == nil {
			return nil, nil
		}
		return fn(v.(string)), nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Table: mapped}, nil
}

// opLength replaces a string column with per-row character counts
func opLength(t *table.Table, args []Arg) (*Result, error) {
	col, err := columnArg("length", args[0])
	if err != nil {
		return nil, err
	}
	if _, err := stringColumn("length", t, col); err != nil {
		return nil, err
	}

	mapped, err := t.MapColumn(col, func(v interface{}) (interface{}, error) {
		if v == nil {
			return nil, nil
		}
		return int64(utf8.RuneCountInString(v.(string))), nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Table: mapped}, nil
}

// opWhere filters rows by a translated boolean/comparison predicate
func opWhere(t *table.Table, args []Arg) (*Result, error) {
	expr, err := TranslateFilter(args[0].Text)
	if err != nil {
		return nil, err
	}

	filtered := make([]map[string]interface{}, 0)
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		match, err := expr.Evaluate(row)
		if err != nil {
			return nil, fmt.Errorf("where: %w", err)
		}
		if match {
			filtered = append(filtered, row)
		}
	}

	return &Result{Table: t.WithRows(filtered)}, nil
}

// opHead returns the first n rows
func opHead(t *table.Table, args []Arg) (*Result, error) {
	return sliceRows("head", t, args, true)
}

// opTail returns the last n rows
func opTail(t *table.Table, args []Arg) (*Result, error) {
	return sliceRows("tail", t, args, false)
}

func sliceRows(op string, t *table.Table, args []Arg, fromStart bool) (*Result, error) {
	n := int64(defaultHeadRows)
	if len(args) == 1 {
		var err error
		n, err = intArg(op, args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: %s: row count must be non-negative, got %d", ErrType, op, n)
		}
	}

	total := int64(t.NumRows())
	if n > total {
		n = total
	}

	rows := t.Rows()
	if fromStart {
		return &Result{Table: t.WithRows(rows[:n])}, nil
	}
	return &Result{Table: t.WithRows(rows[total-n:])}, nil
}

// opSortBy stably sorts rows by a column, optionally descending
func opSortBy(t *table.Table, args []Arg) (*Result, error) {
	col, err := columnArg("sortby", args[0])
	if err != nil {
		return nil, err
	}
	if err := requireColumn("sortby", t, col); err != nil {
		return nil, err
	}

	descending := false
	if len(args) == 2 {
		descending, err = boolArg("sortby", args[1])
		if err != nil {
			return nil, err
		}
	}

	sorted := make([]map[string]interface{}, t.NumRows())
	copy(sorted, t.Rows())

	sort.SliceStable(sorted, func(i, j int) bool {
		cmp := compareValues(sorted[i][col], sorted[j][col])
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})

	return &Result{Table: t.WithRows(sorted)}, nil
}

// opRound rounds a numeric column to the given number of decimals
func opRound(t *table.Table, args []Arg) (*Result, error) {
	col, err := columnArg("round", args[0])
	if err != nil {
		return nil, err
	}
	if _, err := numericColumn("round", t, col); err != nil {
		return nil, err
	}

	decimals := int64(0)
	if len(args) == 2 {
		decimals, err = intArg("round", args[1])
		if err != nil {
			return nil, err
		}
	}
	factor := math.Pow(10, float64(decimals))

	mapped, err := t.MapColumn(col, func(v interface{}) (interface{}, error) {
		switch val := v.(type) {
		case nil:
			return nil, nil
		case float64:
			return math.Round(val*factor) / factor, nil
		case float32:
			return math.Round(float64(val)*factor) / factor, nil
		default:
			// Integer values are already round
			return v, nil
		}
	})
	if err != nil {
		return nil, err
	}
	return &Result{Table: mapped}, nil
}

// opCount returns the row count, or the non-null count of a column
func opCount(t *table.Table, args []Arg) (*Result, error) {
	if len(args) == 0 {
		return &Result{Terminal: true, Value: int64(t.NumRows())}, nil
	}

	col, err := columnArg("count", args[0])
	if err != nil {
		return nil, err
	}
	if err := requireColumn("count", t, col); err != nil {
		return nil, err
	}

	values, _ := t.Column(col)
	count := int64(0)
	for _, v := range values {
		if v != nil {
			count++
		}
	}
	return &Result{Terminal: true, Value: count}, nil
}

// opMin returns the smallest value of a column
func opMin(t *table.Table, args []Arg) (*Result, error) {
	return extremum("min", t, args[0], -1)
}

// opMax returns the largest value of a column
func opMax(t *table.Table, args []Arg) (*Result, error) {
	return extremum("max", t, args[0], 1)
}

// extremum scans for the best value by ordering direction. Numeric and
// string columns are both ordered; mixed-type columns are rejected.
func extremum(op string, t *table.Table, a Arg, direction int) (*Result, error) {
	col, err := columnArg(op, a)
	if err != nil {
		return nil, err
	}
	if err := requireColumn(op, t, col); err != nil {
		return nil, err
	}

	values, _ := t.Column(col)
	var best interface{}
	for _, v := range values {
		if v == nil {
			continue
		}
		if !isOrderable(v) {
			return nil, fmt.Errorf("%w: %s: column %q has unorderable values (%T)", ErrType, op, col, v)
		}
		if best == nil {
			best = v
			continue
		}
		if !sameFamily(best, v) {
			return nil, fmt.Errorf("%w: %s: column %q mixes %T and %T", ErrType, op, col, best, v)
		}
		if compareValues(v, best) == direction {
			best = v
		}
	}

	return &Result{Terminal: true, Value: best}, nil
}

func isOrderable(v interface{}) bool {
	if _, ok := toFloat64(v); ok {
		return true
	}
	_, ok := toString(v)
	return ok
}

func sameFamily(a, b interface{}) bool {
	_, aNum := toFloat64(a)
	_, bNum := toFloat64(b)
	if aNum || bNum {
		return aNum && bNum
	}
	_, aStr := toString(a)
	_, bStr := toString(b)
	return aStr && bStr
}

// opFirst returns the first row, or the first value of a column
func opFirst(t *table.Table, args []Arg) (*Result, error) {
	return edgeRow("first", t, args, 0)
}

// opLast returns the last row, or the last value of a column
func opLast(t *table.Table, args []Arg) (*Result, error) {
	return edgeRow("last", t, args, -1)
}

func edgeRow(op string, t *table.Table, args []Arg, index int) (*Result, error) {
	if len(args) == 1 {
		col, err := columnArg(op, args[0])
		if err != nil {
			return nil, err
		}
		if err := requireColumn(op, t, col); err != nil {
			return nil, err
		}
		if t.IsEmpty() {
			return &Result{Terminal: true}, nil
		}
		i := index
		if i < 0 {
			i = t.NumRows() - 1
		}
		return &Result{Terminal: true, Value: t.Row(i)[col]}, nil
	}

	if t.IsEmpty() {
		return &Result{Terminal: true}, nil
	}
	i := index
	if i < 0 {
		i = t.NumRows() - 1
	}
	return &Result{Terminal: true, Table: t.WithRows(t.Rows()[i : i+1])}, nil
}

// opUniq returns distinct column values in first-seen order
func opUniq(t *table.Table, args []Arg) (*Result, error) {
	col, err := columnArg("uniq", args[0])
	if err != nil {
		return nil, err
	}
	if err := requireColumn("uniq", t, col); err != nil {
		return nil, err
	}

	values, _ := t.Column(col)
	seen := make(map[string]bool)
	distinct := make([]interface{}, 0)
	for _, v := range values {
		key := fmt.Sprintf("%#v", v)
		if !seen[key] {
			seen[key] = true
			distinct = append(distinct, v)
		}
	}

	return &Result{Terminal: true, Value: distinct}, nil
}

// opUniqc counts occurrences per distinct value, in first-seen order
func opUniqc(t *table.Table, args []Arg) (*Result, error) {
	col, err := columnArg("uniqc", args[0])
	if err != nil {
		return nil, err
	}
	if err := requireColumn("uniqc", t, col); err != nil {
		return nil, err
	}

	values, _ := t.Column(col)
	index := make(map[string]int)
	counts := make([]ValueCount, 0)
	for _, v := range values {
		key := fmt.Sprintf("%#v", v)
		if i, exists := index[key]; exists {
			counts[i].Count++
		} else {
			index[key] = len(counts)
			counts = append(counts, ValueCount{Value: v, Count: 1})
		}
	}

	return &Result{Terminal: true, Value: counts}, nil
}

// opStrJoin concatenates a column's values as strings with a separator
func opStrJoin(t *table.Table, args []Arg) (*Result, error) {
	col, err := columnArg("strjoin", args[0])
	if err != nil {
		return nil, err
	}
	if err := requireColumn("strjoin", t, col); err != nil {
		return nil, err
	}

	separator := ","
	if len(args) == 2 {
		separator = args[1].Text
	}

	values, _ := t.Column(col)
	parts := make([]string, 0, len(values))
	for _, v := range values {
		str, err := valueToString(v)
		if err != nil {
			return nil, fmt.Errorf("strjoin: %w", err)
		}
		parts = append(parts, str)
	}

	return &Result{Terminal: true, Value: strings.Join(parts, separator)}, nil
}

// opMode returns the most frequent value; ties resolve to the value
// encountered first
func opMode(t *table.Table, args []Arg) (*Result, error) {
	col, err := columnArg("mode", args[0])
	if err != nil {
		return nil, err
	}
	if err := requireColumn("mode", t, col); err != nil {
		return nil, err
	}

	values, _ := t.Column(col)
	index := make(map[string]int)
	counts := make([]ValueCount, 0)
	for _, v := range values {
		if v == nil {
			continue
		}
		key := fmt.Sprintf("%#v", v)
		if i, exists := index[key]; exists {
			counts[i].Count++
		} else {
			index[key] = len(counts)
			counts = append(counts, ValueCount{Value: v, Count: 1})
		}
	}

	if len(counts) == 0 {
		return &Result{Terminal: true}, nil
	}

	best := counts[0]
	for _, vc := range counts[1:] {
		if vc.Count > best.Count {
			best = vc
		}
	}
	return &Result{Terminal: true, Value: best.Value}, nil
}

// opColumns returns the current column names
func opColumns(t *table.Table, args []Arg) (*Result, error) {
	cols := t.Columns()
	names := make([]interface{}, len(cols))
	for i, col := range cols {
		names[i] = col
	}
	return &Result{Terminal: true, Value: names}, nil
}
