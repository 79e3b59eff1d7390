package chain

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/vegasq/tabula/table"
)

// opSum returns the sum of a numeric column. The result stays an
// integer when every value in the column is an integer.
func opSum(t *table.Table, args []Arg) (*Result, error) {
	col, err := columnArg("sum", args[0])
	if err != nil {
		return nil, err
	}
	floats, err := numericColumn("sum", t, col)
	if err != nil {
		return nil, err
	}
	if len(floats) == 0 {
		return &Result{Terminal: true}, nil
	}

	if allIntegers(t, col) {
		var total int64
		for _, f := range floats {
			total += int64(f)
		}
		return &Result{Terminal: true, Value: total}, nil
	}

	var total float64
	for _, f := range floats {
		total += f
	}
	return &Result{Terminal: true, Value: total}, nil
}

// opMean returns the arithmetic mean of a numeric column
func opMean(t *table.Table, args []Arg) (*Result, error) {
	col, err := columnArg("mean", args[0])
	if err != nil {
		return nil, err
	}
	floats, err := numericColumn("mean", t, col)
	if err != nil {
		return nil, err
	}
	if len(floats) == 0 {
		return &Result{Terminal: true}, nil
	}
	return &Result{Terminal: true, Value: stat.Mean(floats, nil)}, nil
}

// opMedian returns the median of a numeric column
func opMedian(t *table.Table, args []Arg) (*Result, error) {
	col, err := columnArg("median", args[0])
	if err != nil {
		return nil, err
	}
	floats, err := numericColumn("median", t, col)
	if err != nil {
		return nil, err
	}
	if len(floats) == 0 {
		return &Result{Terminal: true}, nil
	}
	return &Result{Terminal: true, Value: median(floats)}, nil
}

// opStd returns the sample standard deviation of a numeric column.
// Fewer than two values produce no result.
func opStd(t *table.Table, args []Arg) (*Result, error) {
	col, err := columnArg("std", args[0])
	if err != nil {
		return nil, err
	}
	floats, err := numericColumn("std", t, col)
	if err != nil {
		return nil, err
	}
	if len(floats) < 2 {
		return &Result{Terminal: true}, nil
	}
	return &Result{Terminal: true, Value: stat.StdDev(floats, nil)}, nil
}

// opVar returns the sample variance of a numeric column. Fewer than two
// values produce no result.
func opVar(t *table.Table, args []Arg) (*Result, error) {
	col, err := columnArg("var", args[0])
	if err != nil {
		return nil, err
	}
	floats, err := numericColumn("var", t, col)
	if err != nil {
		return nil, err
	}
	if len(floats) < 2 {
		return &Result{Terminal: true}, nil
	}
	return &Result{Terminal: true, Value: stat.Variance(floats, nil)}, nil
}

// median computes the median without mutating the input slice
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// allIntegers reports whether every non-nil value of a column is an
// integer type
func allIntegers(t *table.Table, col string) bool {
	values, _ := t.Column(col)
	for _, v := range values {
		switch v.(type) {
		case nil, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		default:
			return false
		}
	}
	return true
}

// groupAggregators maps the aggregate names accepted by groupby
var groupAggregators = map[string]func(op, col string, g *table.Table) (interface{}, error){
	"count": func(op, col string, g *table.Table) (interface{}, error) {
		values, _ := g.Column(col)
		count := int64(0)
		for _, v := range values {
			if v != nil {
				count++
			}
		}
		return count, nil
	},
	"sum": func(op, col string, g *table.Table) (interface{}, error) {
		res, err := opSum(g, []Arg{{Kind: ArgRaw, Text: col}})
		if err != nil {
			return nil, err
		}
		return res.Value, nil
	},
	"mean": func(op, col string, g *table.Table) (interface{}, error) {
		floats, err := numericColumn(op, g, col)
		if err != nil {
			return nil, err
		}
		if len(floats) == 0 {
			return nil, nil
		}
		return stat.Mean(floats, nil), nil
	},
	"median": func(op, col string, g *table.Table) (interface{}, error) {
		floats, err := numericColumn(op, g, col)
		if err != nil {
			return nil, err
		}
		if len(floats) == 0 {
			return nil, nil
		}
		return median(floats), nil
	},
	"min": func(op, col string, g *table.Table) (interface{}, error) {
		res, err := extremum(op, g, Arg{Kind: ArgRaw, Text: col}, -1)
		if err != nil {
			return nil, err
		}
		return res.Value, nil
	},
	"max": func(op, col string, g *table.Table) (interface{}, error) {
		res, err := extremum(op, g, Arg{Kind: ArgRaw, Text: col}, 1)
		if err != nil {
			return nil, err
		}
		return res.Value, nil
	},
}

// opGroupBy groups rows by a key column. Without a second argument each
// group reduces to its row count. The second argument is either a bare
// aggregate name (count, sum, mean, median, min, max), applied to every
// remaining numeric column, or an agg(column) pair naming one column.
// Groups are emitted in ascending key order.
func opGroupBy(t *table.Table, args []Arg) (*Result, error) {
	keyCol, err := columnArg("groupby", args[0])
	if err != nil {
		return nil, err
	}
	if err := requireColumn("groupby", t, keyCol); err != nil {
		return nil, err
	}

	keys, buckets := bucketRows(t, keyCol)

	if len(args) < 2 {
		return countGroups(t, keyCol, keys, buckets)
	}

	raw := strings.TrimSpace(args[1].Text)
	if strings.ContainsRune(raw, '(') {
		return aggregateOneColumn(t, keyCol, raw, keys, buckets)
	}
	return aggregateNumericColumns(t, keyCol, raw, keys, buckets)
}

// groupKey gives the bucket key for a group value
func groupKey(v interface{}) string {
	return fmt.Sprintf("%#v", v)
}

// bucketRows splits rows by key column value and returns the distinct
// keys in ascending order
func bucketRows(t *table.Table, keyCol string) ([]interface{}, map[string][]map[string]interface{}) {
	buckets := make(map[string][]map[string]interface{})
	keys := make([]interface{}, 0)
	seen := make(map[string]bool)

	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		key := groupKey(row[keyCol])
		if !seen[key] {
			seen[key] = true
			keys = append(keys, row[keyCol])
		}
		buckets[key] = append(buckets[key], row)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return compareValues(keys[i], keys[j]) < 0
	})
	return keys, buckets
}

// countGroups reduces each group to its row count, nil keys included
func countGroups(t *table.Table, keyCol string, keys []interface{}, buckets map[string][]map[string]interface{}) (*Result, error) {
	rows := make([]map[string]interface{}, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, map[string]interface{}{
			keyCol:  key,
			"count": int64(len(buckets[groupKey(key)])),
		})
	}

	grouped, err := table.New([]string{keyCol, "count"}, rows)
	if err != nil {
		return nil, fmt.Errorf("groupby: %w", err)
	}
	return &Result{Table: grouped}, nil
}

// aggregateOneColumn handles the agg(column) form
func aggregateOneColumn(t *table.Table, keyCol, raw string, keys []interface{}, buckets map[string][]map[string]interface{}) (*Result, error) {
	aggName, aggCol, err := parseAggregate(raw)
	if err != nil {
		return nil, err
	}
	if err := requireColumn("groupby", t, aggCol); err != nil {
		return nil, err
	}
	aggregate, known := groupAggregators[aggName]
	if !known {
		return nil, fmt.Errorf("%w: groupby: unknown aggregate %q", ErrSyntax, aggName)
	}

	resultCol := fmt.Sprintf("%s(%s)", aggName, aggCol)
	rows := make([]map[string]interface{}, 0, len(keys))
	for _, key := range keys {
		group := t.WithRows(buckets[groupKey(key)])
		value, err := aggregate("groupby", aggCol, group)
		if err != nil {
			return nil, err
		}
		rows = append(rows, map[string]interface{}{
			keyCol:    key,
			resultCol: value,
		})
	}

	grouped, err := table.New([]string{keyCol, resultCol}, rows)
	if err != nil {
		return nil, fmt.Errorf("groupby: %w", err)
	}
	return &Result{Table: grouped}, nil
}

// aggregateNumericColumns handles the bare aggregate-name form by
// applying the aggregate to every non-key numeric column
func aggregateNumericColumns(t *table.Table, keyCol, raw string, keys []interface{}, buckets map[string][]map[string]interface{}) (*Result, error) {
	aggName := strings.ToLower(raw)
	if aggName == "count" {
		return countGroups(t, keyCol, keys, buckets)
	}

	aggregate, known := groupAggregators[aggName]
	if !known {
		return nil, fmt.Errorf("%w: groupby: unknown aggregate %q", ErrSyntax, raw)
	}

	targets := numericColumnNames(t, keyCol)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: groupby: no numeric columns to aggregate with %q", ErrType, aggName)
	}

	rows := make([]map[string]interface{}, 0, len(keys))
	for _, key := range keys {
		group := t.WithRows(buckets[groupKey(key)])
		row := make(map[string]interface{}, len(targets)+1)
		row[keyCol] = key
		for _, col := range targets {
			value, err := aggregate("groupby", col, group)
			if err != nil {
				return nil, err
			}
			row[col] = value
		}
		rows = append(rows, row)
	}

	grouped, err := table.New(append([]string{keyCol}, targets...), rows)
	if err != nil {
		return nil, fmt.Errorf("groupby: %w", err)
	}
	return &Result{Table: grouped}, nil
}

// numericColumnNames lists the non-key columns whose non-nil values are
// all numeric
func numericColumnNames(t *table.Table, keyCol string) []string {
	var cols []string
	for _, col := range t.Columns() {
		if col == keyCol {
			continue
		}
		values, _ := t.Column(col)
		numeric := true
		for _, v := range values {
			if v == nil {
				continue
			}
			if _, ok := toFloat64(v); !ok {
				numeric = false
				break
			}
		}
		if numeric {
			cols = append(cols, col)
		}
	}
	return cols
}

// parseAggregate splits an agg(column) specification
func parseAggregate(raw string) (name, col string, err error) {
	trimmed := strings.TrimSpace(raw)
	open := strings.IndexByte(trimmed, '(')
	if open <= 0 || !strings.HasSuffix(trimmed, ")") {
		return "", "", fmt.Errorf("%w: groupby: aggregate must be written agg(column), got %q", ErrSyntax, raw)
	}
	name = strings.TrimSpace(trimmed[:open])
	col = strings.TrimSpace(trimmed[open+1 : len(trimmed)-1])
	if name == "" || col == "" {
		return "", "", fmt.Errorf("%w: groupby: aggregate must be written agg(column), got %q", ErrSyntax, raw)
	}
	return name, col, nil
}
