package chain

import (
	"errors"
	"strings"
	"testing"
)

func TestTranslateFilter(t *testing.T) {
	row := map[string]interface{}{
		"age":    int64(34),
		"score":  88.5,
		"city":   "Berlin",
		"active": true,
		"limit":  int64(40),
	}

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "greater than", input: "age > 30", expected: true},
		{name: "less than", input: "age < 30", expected: false},
		{name: "string equality", input: "city == 'Berlin'", expected: true},
		{name: "string inequality", input: "city != 'Paris'", expected: true},
		{name: "float comparison", input: "score >= 88.5", expected: true},
		{name: "boolean literal", input: "active == true", expected: true},
		{name: "python boolean literal", input: "active == True", expected: true},
		{name: "and both true", input: "age > 30 & city == 'Berlin'", expected: true},
		{name: "and one false", input: "age > 40 & city == 'Berlin'", expected: false},
		{name: "or one true", input: "age > 40 | city == 'Berlin'", expected: true},
		{name: "parens change precedence", input: "(age > 40 | age < 35) & active == true", expected: true},
		{name: "column to column", input: "age < limit", expected: true},
		{name: "int compared to float column", input: "age > 33.9", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := TranslateFilter(tt.input)
			if err != nil {
				t.Fatalf("TranslateFilter(%q) unexpected error: %v", tt.input, err)
			}
			got, err := expr.Evaluate(row)
			if err != nil {
				t.Fatalf("Evaluate(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("Evaluate(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTranslateFilterSyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "single equals", input: "age = 30"},
		{name: "missing operator", input: "age 30"},
		{name: "missing right side", input: "age >"},
		{name: "value on left", input: "30 > age"},
		{name: "unclosed paren", input: "(age > 30"},
		{name: "trailing garbage", input: "age > 30 40"},
		{name: "semicolon rejected", input: "age > 30; drop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TranslateFilter(tt.input)
			if err == nil {
				t.Fatalf("TranslateFilter(%q) expected error", tt.input)
			}
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("TranslateFilter(%q) error = %v, expected ErrSyntax", tt.input, err)
			}
		})
	}
}

func TestFilterMissingColumn(t *testing.T) {
	expr, err := TranslateFilter("height > 170")
	if err != nil {
		t.Fatalf("TranslateFilter() unexpected error: %v", err)
	}

	_, err = expr.Evaluate(map[string]interface{}{"age": int64(34)})
	if !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("Evaluate() error = %v, expected ErrColumnNotFound", err)
	}
	if want := `"height"`; !strings.Contains(err.Error(), want) {
		t.Errorf("Evaluate() error = %v, expected it to name %s", err, want)
	}
}

func TestFilterTypeMismatch(t *testing.T) {
	expr, err := TranslateFilter("city > 30")
	if err != nil {
		t.Fatalf("TranslateFilter() unexpected error: %v", err)
	}

	_, err = expr.Evaluate(map[string]interface{}{"city": "Berlin"})
	if !errors.Is(err, ErrType) {
		t.Fatalf("Evaluate() error = %v, expected ErrType", err)
	}
}
