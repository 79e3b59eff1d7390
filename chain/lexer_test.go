package chain

import (
	"errors"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "simple comparison",
			input: "age > 30",
			expected: []Token{
				{Type: TokenIdent, Value: "age"},
				{Type: TokenGreater, Value: ">"},
				{Type: TokenNumber, Value: "30"},
				{Type: TokenEOF, Value: ""},
			},
		},
		{
			name:  "equality with string",
			input: "city == 'Berlin'",
			expected: []Token{
				{Type: TokenIdent, Value: "city"},
				{Type: TokenEqual, Value: "=="},
				{Type: TokenString, Value: "Berlin"},
				{Type: TokenEOF, Value: ""},
			},
		},
		{
			name:  "boolean operators and parens",
			input: "(a >= 1 & b <= 2) | c != 3",
			expected: []Token{
				{Type: TokenLeftParen, Value: "("},
				{Type: TokenIdent, Value: "a"},
				{Type: TokenGreaterEqual, Value: ">="},
				{Type: TokenNumber, Value: "1"},
				{Type: TokenAnd, Value: "&"},
				{Type: TokenIdent, Value: "b"},
				{Type: TokenLessEqual, Value: "<="},
				{Type: TokenNumber, Value: "2"},
				{Type: TokenRightParen, Value: ")"},
				{Type: TokenOr, Value: "|"},
				{Type: TokenIdent, Value: "c"},
				{Type: TokenNotEqual, Value: "!="},
				{Type: TokenNumber, Value: "3"},
				{Type: TokenEOF, Value: ""},
			},
		},
		{
			name:  "boolean literals",
			input: "active == True",
			expected: []Token{
				{Type: TokenIdent, Value: "active"},
				{Type: TokenEqual, Value: "=="},
				{Type: TokenBool, Value: "True"},
				{Type: TokenEOF, Value: ""},
			},
		},
		{
			name:  "negative float",
			input: "delta > -1.5",
			expected: []Token{
				{Type: TokenIdent, Value: "delta"},
				{Type: TokenGreater, Value: ">"},
				{Type: TokenNumber, Value: "-1.5"},
				{Type: TokenEOF, Value: ""},
			},
		},
		{
			name:  "escaped quote in string",
			input: `name == 'O\'Brien'`,
			expected: []Token{
				{Type: TokenIdent, Value: "name"},
				{Type: TokenEqual, Value: "=="},
				{Type: TokenString, Value: "O'Brien"},
				{Type: TokenEOF, Value: ""},
			},
		},
		{
			name:  "single equals is an error",
			input: "age = 30",
			expected: []Token{
				{Type: TokenIdent, Value: "age"},
				{Type: TokenError, Value: "="},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			if !reflect.DeepEqual(tokens, tt.expected) {
				t.Errorf("Tokenize(%q) = %v, expected %v", tt.input, tokens, tt.expected)
			}
		})
	}
}

func TestSplitChain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
		wantErr  bool
	}{
		{
			name:     "single call",
			input:    "count()",
			expected: []string{"count()"},
		},
		{
			name:     "three calls",
			input:    "select(a,b).where(a>1).head(5)",
			expected: []string{"select(a,b)", "where(a>1)", "head(5)"},
		},
		{
			name:     "dot inside float argument does not split",
			input:    "where(score>4.5).count()",
			expected: []string{"where(score>4.5)", "count()"},
		},
		{
			name:     "dot inside quoted string does not split",
			input:    "strjoin(name, '. ')",
			expected: []string{"strjoin(name, '. ')"},
		},
		{
			name:    "unbalanced close paren",
			input:   "head(5))",
			wantErr: true,
		},
		{
			name:    "unbalanced open paren",
			input:   "head((5)",
			wantErr: true,
		},
		{
			name:    "unterminated quote",
			input:   "where(name=='x).count()",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := SplitChain(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SplitChain(%q) expected error, got %v", tt.input, segments)
				}
				if !errors.Is(err, ErrSyntax) {
					t.Errorf("SplitChain(%q) error = %v, expected ErrSyntax", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitChain(%q) unexpected error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(segments, tt.expected) {
				t.Errorf("SplitChain(%q) = %v, expected %v", tt.input, segments, tt.expected)
			}
		})
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
		wantErr  bool
	}{
		{
			name:     "empty list",
			input:    "  ",
			expected: nil,
		},
		{
			name:     "two columns",
			input:    "name, age",
			expected: []string{"name", "age"},
		},
		{
			name:     "comma inside quotes",
			input:    "name, ', '",
			expected: []string{"name", "', '"},
		},
		{
			name:     "comma inside nested parens",
			input:    "groupkey, sum(total,extra)",
			expected: []string{"groupkey", "sum(total,extra)"},
		},
		{
			name:    "empty argument",
			input:   "a,,b",
			wantErr: true,
		},
		{
			name:    "trailing comma",
			input:   "a,",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := SplitArgs(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SplitArgs(%q) expected error, got %v", tt.input, args)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitArgs(%q) unexpected error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(args, tt.expected) {
				t.Errorf("SplitArgs(%q) = %v, expected %v", tt.input, args, tt.expected)
			}
		})
	}
}
