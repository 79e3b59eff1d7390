package chain

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/vegasq/tabula/table"
)

// peopleTable builds the fixture most evaluation tests run against
func peopleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(
		[]string{"name", "age", "city", "income"},
		[]map[string]interface{}{
			{"name": "Alice", "age": int64(34), "city": "Berlin", "income": 52000.0},
			{"name": "Bob", "age": int64(28), "city": "Paris", "income": 41000.5},
			{"name": "Carol", "age": int64(45), "city": "Berlin", "income": 61250.75},
			{"name": "Dave", "age": int64(23), "city": "Madrid", "income": 33800.0},
			{"name": "Erin", "age": int64(39), "city": "Paris", "income": 57400.25},
		},
	)
	if err != nil {
		t.Fatalf("table.New() unexpected error: %v", err)
	}
	return tbl
}

func evaluate(t *testing.T, expr string) *Result {
	t.Helper()
	result, err := Evaluate(expr, peopleTable(t))
	if err != nil {
		t.Fatalf("Evaluate(%q) unexpected error: %v", expr, err)
	}
	return result
}

func columnValues(t *testing.T, tbl *table.Table, name string) []interface{} {
	t.Helper()
	values, ok := tbl.Column(name)
	if !ok {
		t.Fatalf("column %q missing from result", name)
	}
	return values
}

func TestEvaluateSelect(t *testing.T) {
	result := evaluate(t, "select(name, age)")
	if got := result.Table.Columns(); !reflect.DeepEqual(got, []string{"name", "age"}) {
		t.Errorf("columns = %v, expected [name age]", got)
	}
	if result.Table.NumRows() != 5 {
		t.Errorf("rows = %d, expected 5", result.Table.NumRows())
	}
	if _, ok := result.Table.Row(0)["city"]; ok {
		t.Error("dropped column city still present in rows")
	}
}

func TestEvaluateSelectMissingColumns(t *testing.T) {
	_, err := Evaluate("select(name, height, weight)", peopleTable(t))
	if !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("error = %v, expected ErrColumnNotFound", err)
	}
	for _, col := range []string{"height", "weight"} {
		if !strings.Contains(err.Error(), col) {
			t.Errorf("error %q does not name missing column %q", err, col)
		}
	}
}

func TestEvaluateWhereCount(t *testing.T) {
	result := evaluate(t, "where(age>30).count()")
	if !result.Terminal {
		t.Fatal("count() result not marked terminal")
	}
	if result.Value != int64(3) {
		t.Errorf("count = %v, expected 3", result.Value)
	}
}

func TestEvaluateWhereCompound(t *testing.T) {
	result := evaluate(t, "where(city=='Berlin' & age>40).count()")
	if result.Value != int64(1) {
		t.Errorf("count = %v, expected 1", result.Value)
	}
}

func TestEvaluateSortByDescending(t *testing.T) {
	result := evaluate(t, "sortby(age, True).head(1)")
	names := columnValues(t, result.Table, "name")
	if !reflect.DeepEqual(names, []interface{}{"Carol"}) {
		t.Errorf("first row after descending sort = %v, expected [Carol]", names)
	}
}

func TestEvaluateSortByStable(t *testing.T) {
	result := evaluate(t, "sortby(city)")
	names := columnValues(t, result.Table, "name")
	// Berlin keeps Alice before Carol, Paris keeps Bob before Erin
	expected := []interface{}{"Alice", "Carol", "Dave", "Bob", "Erin"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("sorted names = %v, expected %v", names, expected)
	}
}

func TestEvaluateHeadTail(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		expected []interface{}
	}{
		{name: "head explicit", expr: "head(2)", expected: []interface{}{"Alice", "Bob"}},
		{name: "head default five", expr: "head()", expected: []interface{}{"Alice", "Bob", "Carol", "Dave", "Erin"}},
		{name: "head beyond size", expr: "head(100)", expected: []interface{}{"Alice", "Bob", "Carol", "Dave", "Erin"}},
		{name: "head zero", expr: "head(0)", expected: []interface{}{}},
		{name: "tail explicit", expr: "tail(2)", expected: []interface{}{"Dave", "Erin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := evaluate(t, tt.expr)
			names := columnValues(t, result.Table, "name")
			if len(names) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(names, tt.expected) {
				t.Errorf("%s names = %v, expected %v", tt.expr, names, tt.expected)
			}
		})
	}
}

func TestEvaluateStringOps(t *testing.T) {
	result := evaluate(t, "upper(name).head(1)")
	if got := result.Table.Row(0)["name"]; got != "ALICE" {
		t.Errorf("upper(name) = %v, expected ALICE", got)
	}

	result = evaluate(t, "lower(city).head(1)")
	if got := result.Table.Row(0)["city"]; got != "berlin" {
		t.Errorf("lower(city) = %v, expected berlin", got)
	}

	result = evaluate(t, "length(name)")
	lengths := columnValues(t, result.Table, "name")
	expected := []interface{}{int64(5), int64(3), int64(5), int64(4), int64(4)}
	if !reflect.DeepEqual(lengths, expected) {
		t.Errorf("length(name) = %v, expected %v", lengths, expected)
	}
}

func TestEvaluateStringOpTypeError(t *testing.T) {
	_, err := Evaluate("upper(age)", peopleTable(t))
	if !errors.Is(err, ErrType) {
		t.Fatalf("upper(age) error = %v, expected ErrType", err)
	}
}

func TestEvaluateRound(t *testing.T) {
	result := evaluate(t, "round(income)")
	incomes := columnValues(t, result.Table, "income")
	// 41000.5 rounds half away from zero
	expected := []interface{}{52000.0, 41001.0, 61251.0, 33800.0, 57400.0}
	if !reflect.DeepEqual(incomes, expected) {
		t.Errorf("round(income) = %v, expected %v", incomes, expected)
	}

	result = evaluate(t, "round(income, 1)")
	if got := result.Table.Row(2)["income"]; got != 61250.8 {
		t.Errorf("round(income, 1) row 2 = %v, expected 61250.8", got)
	}

	// Integer columns pass through unchanged
	result = evaluate(t, "round(age)")
	ages := columnValues(t, result.Table, "age")
	if ages[0] != int64(34) {
		t.Errorf("round(age) row 0 = %v, expected int64 34", ages[0])
	}
}

func TestEvaluateRoundTypeError(t *testing.T) {
	_, err := Evaluate("round(name)", peopleTable(t))
	if !errors.Is(err, ErrType) {
		t.Fatalf("round(name) error = %v, expected ErrType", err)
	}
}

func TestEvaluateAggregates(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		expected interface{}
	}{
		{name: "count", expr: "count()", expected: int64(5)},
		{name: "count column", expr: "count(age)", expected: int64(5)},
		{name: "sum of ints stays int", expr: "sum(age)", expected: int64(169)},
		{name: "min numeric", expr: "min(age)", expected: int64(23)},
		{name: "max numeric", expr: "max(age)", expected: int64(45)},
		{name: "min string", expr: "min(name)", expected: "Alice"},
		{name: "max string", expr: "max(name)", expected: "Erin"},
		{name: "mean", expr: "mean(age)", expected: 33.8},
		{name: "median odd", expr: "median(age)", expected: 34.0},
		{name: "mode tie keeps first seen", expr: "mode(city)", expected: "Berlin"},
		{name: "first value", expr: "first(name)", expected: "Alice"},
		{name: "last value", expr: "last(name)", expected: "Erin"},
		{name: "strjoin default separator", expr: "strjoin(city)", expected: "Berlin,Paris,Berlin,Madrid,Paris"},
		{name: "strjoin custom separator", expr: "strjoin(name, ', ')", expected: "Alice, Bob, Carol, Dave, Erin"},
		{name: "join alias", expr: "join(name, '-')", expected: "Alice-Bob-Carol-Dave-Erin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := evaluate(t, tt.expr)
			if !result.Terminal {
				t.Fatalf("%s result not marked terminal", tt.expr)
			}
			if result.Value != tt.expected {
				t.Errorf("%s = %v (%T), expected %v (%T)", tt.expr, result.Value, result.Value, tt.expected, tt.expected)
			}
		})
	}
}

func TestEvaluateSampleStatistics(t *testing.T) {
	result := evaluate(t, "var(age)")
	if got := result.Value.(float64); math.Abs(got-75.7) > 1e-9 {
		t.Errorf("var(age) = %v, expected 75.7", got)
	}

	result = evaluate(t, "std(age)")
	if got := result.Value.(float64); math.Abs(got-math.Sqrt(75.7)) > 1e-9 {
		t.Errorf("std(age) = %v, expected sqrt(75.7)", got)
	}
}

func TestEvaluateStatisticsNeedTwoValues(t *testing.T) {
	result := evaluate(t, "head(1).std(age)")
	if result.Value != nil {
		t.Errorf("std over one value = %v, expected nil", result.Value)
	}
}

func TestEvaluateUniq(t *testing.T) {
	result := evaluate(t, "uniq(city)")
	expected := []interface{}{"Berlin", "Paris", "Madrid"}
	if !reflect.DeepEqual(result.Value, expected) {
		t.Errorf("uniq(city) = %v, expected %v", result.Value, expected)
	}
}

func TestEvaluateUniqc(t *testing.T) {
	result := evaluate(t, "uniqc(city)")
	expected := []ValueCount{
		{Value: "Berlin", Count: 2},
		{Value: "Paris", Count: 2},
		{Value: "Madrid", Count: 1},
	}
	if !reflect.DeepEqual(result.Value, expected) {
		t.Errorf("uniqc(city) = %v, expected %v", result.Value, expected)
	}
}

func TestEvaluateColumns(t *testing.T) {
	result := evaluate(t, "columns()")
	expected := []interface{}{"name", "age", "city", "income"}
	if !reflect.DeepEqual(result.Value, expected) {
		t.Errorf("columns() = %v, expected %v", result.Value, expected)
	}
}

func TestEvaluateFirstRow(t *testing.T) {
	result := evaluate(t, "first()")
	if !result.Terminal {
		t.Fatal("first() result not marked terminal")
	}
	if result.Table == nil || result.Table.NumRows() != 1 {
		t.Fatalf("first() returned %+v, expected one-row table", result)
	}
	if got := result.Table.Row(0)["name"]; got != "Alice" {
		t.Errorf("first() row name = %v, expected Alice", got)
	}
}

func TestEvaluateGroupBy(t *testing.T) {
	result := evaluate(t, "groupby(city)")
	if got := result.Table.Columns(); !reflect.DeepEqual(got, []string{"city", "count"}) {
		t.Fatalf("groupby columns = %v, expected [city count]", got)
	}

	cities := columnValues(t, result.Table, "city")
	counts := columnValues(t, result.Table, "count")
	if !reflect.DeepEqual(cities, []interface{}{"Berlin", "Madrid", "Paris"}) {
		t.Errorf("group keys = %v, expected ascending [Berlin Madrid Paris]", cities)
	}
	if !reflect.DeepEqual(counts, []interface{}{int64(2), int64(1), int64(2)}) {
		t.Errorf("group counts = %v, expected [2 1 2]", counts)
	}
}

func TestEvaluateGroupByAggregate(t *testing.T) {
	result := evaluate(t, "groupby(city, mean(age))")
	if got := result.Table.Columns(); !reflect.DeepEqual(got, []string{"city", "mean(age)"}) {
		t.Fatalf("groupby columns = %v, expected [city mean(age)]", got)
	}
	means := columnValues(t, result.Table, "mean(age)")
	expected := []interface{}{39.5, 23.0, 33.5}
	if !reflect.DeepEqual(means, expected) {
		t.Errorf("group means = %v, expected %v", means, expected)
	}
}

func TestEvaluateGroupByBareAggregate(t *testing.T) {
	// A bare aggregate name applies to every remaining numeric column
	result := evaluate(t, "groupby(city, mean)")
	if got := result.Table.Columns(); !reflect.DeepEqual(got, []string{"city", "age", "income"}) {
		t.Fatalf("groupby columns = %v, expected [city age income]", got)
	}

	ages := columnValues(t, result.Table, "age")
	if !reflect.DeepEqual(ages, []interface{}{39.5, 23.0, 33.5}) {
		t.Errorf("age means = %v, expected [39.5 23 33.5]", ages)
	}
	incomes := columnValues(t, result.Table, "income")
	if !reflect.DeepEqual(incomes, []interface{}{56625.375, 33800.0, 49200.375}) {
		t.Errorf("income means = %v, expected [56625.375 33800 49200.375]", incomes)
	}
}

func TestEvaluateGroupByBareCount(t *testing.T) {
	result := evaluate(t, "groupby(city, count)")
	if got := result.Table.Columns(); !reflect.DeepEqual(got, []string{"city", "count"}) {
		t.Fatalf("groupby columns = %v, expected [city count]", got)
	}
	counts := columnValues(t, result.Table, "count")
	if !reflect.DeepEqual(counts, []interface{}{int64(2), int64(1), int64(2)}) {
		t.Errorf("group counts = %v, expected [2 1 2]", counts)
	}
}

func TestEvaluateGroupByUnknownAggregate(t *testing.T) {
	tests := []string{
		"groupby(city, variance)",
		"groupby(city, variance(age))",
	}
	for _, expr := range tests {
		if _, err := Evaluate(expr, peopleTable(t)); !errors.Is(err, ErrSyntax) {
			t.Errorf("Evaluate(%q) error = %v, expected ErrSyntax", expr, err)
		}
	}
}

func TestEvaluateGroupByChains(t *testing.T) {
	result := evaluate(t, "groupby(city).sortby(count, True).head(1)")
	if got := result.Table.Row(0)["count"]; got != int64(2) {
		t.Errorf("largest group count = %v, expected 2", got)
	}
}

func TestEvaluateArityErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{name: "select needs a column", expr: "select()"},
		{name: "upper takes one column", expr: "upper(a, b)"},
		{name: "head takes at most one", expr: "head(1, 2)"},
		{name: "columns takes none", expr: "columns(name)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr, peopleTable(t))
			if !errors.Is(err, ErrArity) {
				t.Errorf("Evaluate(%q) error = %v, expected ErrArity", tt.expr, err)
			}
		})
	}
}

func TestEvaluateEmptyTable(t *testing.T) {
	empty, err := table.New([]string{"a"}, nil)
	if err != nil {
		t.Fatalf("table.New() unexpected error: %v", err)
	}

	result, err := Evaluate("mean(a)", empty)
	if err != nil {
		t.Fatalf("mean over empty table: %v", err)
	}
	if result.Value != nil {
		t.Errorf("mean over empty table = %v, expected nil", result.Value)
	}

	result, err = Evaluate("first()", empty)
	if err != nil {
		t.Fatalf("first over empty table: %v", err)
	}
	if result.Value != nil || result.Table != nil {
		t.Errorf("first over empty table = %+v, expected no value", result)
	}
}

func TestEvaluateUniqIdempotent(t *testing.T) {
	first := evaluate(t, "uniq(city)")
	second := evaluate(t, "uniq(city)")
	if !reflect.DeepEqual(first.Value, second.Value) {
		t.Errorf("uniq not deterministic: %v vs %v", first.Value, second.Value)
	}
}

func TestFormatTerminal(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{name: "nil", value: nil, expected: ""},
		{name: "scalar int", value: int64(42), expected: "42"},
		{name: "scalar float", value: 33.8, expected: "33.8"},
		{name: "list", value: []interface{}{"a", "b"}, expected: "a\nb"},
		{name: "list with missing value", value: []interface{}{"a", nil, "b"}, expected: "a\n\nb"},
		{
			name:     "value counts",
			value:    []ValueCount{{Value: "Berlin", Count: 2}, {Value: "Paris", Count: 1}},
			expected: "Berlin: 2\nParis: 1",
		},
		{
			name:     "value counts with missing value",
			value:    []ValueCount{{Value: nil, Count: 3}},
			expected: ": 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTerminal(tt.value); got != tt.expected {
				t.Errorf("FormatTerminal(%v) = %q, expected %q", tt.value, got, tt.expected)
			}
		})
	}
}
