// Package chain implements the dotted method-call pipeline language used
// to transform tabular data.
//
// An expression like
//
//	select(age,salary).where(age>30).sortby(age).head(5)
//
// is split into ordered calls, validated against the operation registry,
// and evaluated left to right against a table. Terminal operations
// (count, min, uniq, ...) produce a scalar or summary value and are only
// legal as the last call in the chain.
//
// Example usage:
//
//	if err := chain.ValidateChain(expr); err != nil {
//	    log.Fatal(err)
//	}
//	result, err := chain.Evaluate(expr, tbl)
package chain

import "errors"

// Classified error kinds. Every error returned by this package wraps one
// of these sentinels, so callers can branch with errors.Is while still
// getting a single descriptive message.
var (
	// ErrSyntax is returned when an expression fails grammar validation:
	// a malformed call segment, an unknown operation, or a terminal
	// operation placed before the end of the chain.
	ErrSyntax = errors.New("invalid chain expression")

	// ErrColumnNotFound is returned when a referenced column is absent
	// from the table at the point of use.
	ErrColumnNotFound = errors.New("column not found")

	// ErrArity is returned when an operation receives the wrong number
	// of arguments.
	ErrArity = errors.New("wrong number of arguments")

	// ErrType is returned when an operation is applied to a column or
	// argument of an incompatible type.
	ErrType = errors.New("type error")
)

// TokenType represents the type of a filter-expression token
type TokenType int

const (
	// Literals
	TokenIdent TokenType = iota
	TokenNumber
	TokenString
	TokenBool

	// Comparison operators
	TokenEqual        // ==
	TokenNotEqual     // !=
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=

	// Boolean operators
	TokenAnd // &
	TokenOr  // |

	// Delimiters
	TokenLeftParen  // (
	TokenRightParen // )

	// Special
	TokenEOF
	TokenError
)

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
}

// Call is one name(args) segment of a chain expression.
type Call struct {
	Name    string
	RawArgs string
}

// ArgKind classifies a coerced argument.
type ArgKind int

const (
	ArgString ArgKind = iota // quoted string literal
	ArgInt
	ArgFloat
	ArgBool
	ArgRaw // bare identifier or filter sub-expression
)

// Arg is one typed argument to an operation.
//
// Text holds the literal content: the unquoted inner text for ArgString,
// the raw token for everything else. Value holds the typed value for
// literal kinds (string, int64, float64, bool) and is nil for ArgRaw.
type Arg struct {
	Kind  ArgKind
	Text  string
	Value interface{}
}

// Expression represents a boolean expression translated from a where()
// filter argument. Column references resolve lazily against the row the
// expression is applied to.
type Expression interface {
	Evaluate(row map[string]interface{}) (bool, error)
}

// BinaryExpr represents a binary expression (& or |)
type BinaryExpr struct {
	Left     Expression
	Operator TokenType // TokenAnd or TokenOr
	Right    Expression
}

// ComparisonExpr represents a comparison expression (column op literal)
type ComparisonExpr struct {
	Column   string
	Operator TokenType
	Value    interface{}
}

// ColumnComparisonExpr represents a column-to-column comparison (col1 op col2)
type ColumnComparisonExpr struct {
	LeftColumn  string
	Operator    TokenType
	RightColumn string
}

// ValueCount is one entry of a uniqc() result: a distinct value and the
// number of times it occurs, in first-seen order.
type ValueCount struct {
	Value interface{}
	Count int64
}
