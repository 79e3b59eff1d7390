package chain

import (
	"fmt"
	"strconv"
	"strings"
)

// maxFilterDepth bounds expression nesting in where() filters
const maxFilterDepth = 100

// filterParser parses a tokenized filter expression into an Expression
type filterParser struct {
	tokens []Token
	pos    int
	depth  int
}

// TranslateFilter converts a raw where() argument into an executable
// predicate. Bare identifiers become column references resolved when the
// predicate is applied to a row; quoted strings, numeric and boolean
// literals, comparison operators, & , | and parentheses pass through.
// The grammar is closed; nothing in the input is ever executed as code.
func TranslateFilter(raw string) (Expression, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty filter expression", ErrSyntax)
	}

	tokens := Tokenize(raw)
	p := &filterParser{tokens: tokens}

	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if p.current().Type == TokenError {
		return nil, fmt.Errorf("%w: invalid character %q in filter", ErrSyntax, p.current().Value)
	}
	if p.current().Type != TokenEOF {
		return nil, fmt.Errorf("%w: unexpected trailing input %q in filter", ErrSyntax, p.current().Value)
	}

	return expr, nil
}

// current returns the current token
func (p *filterParser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: ""}
	}
	return p.tokens[p.pos]
}

// advance moves to the next token
func (p *filterParser) advance() {
	p.pos++
}

func (p *filterParser) enter() error {
	p.depth++
	if p.depth > maxFilterDepth {
		return fmt.Errorf("%w: filter expression nesting too deep", ErrSyntax)
	}
	return nil
}

func (p *filterParser) exit() {
	p.depth--
}

// parseOr parses | expressions (lowest precedence)
func (p *filterParser) parseOr() (Expression, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.exit()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{
			Left:     left,
			Operator: TokenOr,
			Right:    right,
		}
	}

	return left, nil
}

// parseAnd parses & expressions (higher precedence than |)
func (p *filterParser) parseAnd() (Expression, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.exit()

	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{
			Left:     left,
			Operator: TokenAnd,
			Right:    right,
		}
	}

	return left, nil
}

// parseComparison parses a parenthesized sub-expression or a single
// column-op-value comparison
func (p *filterParser) parseComparison() (Expression, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.exit()

	// Parenthesized sub-expression
	if p.current().Type == TokenLeftParen {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.current().Type != TokenRightParen {
			return nil, fmt.Errorf("%w: expected ')' in filter, got %q", ErrSyntax, p.current().Value)
		}
		p.advance()
		return expr, nil
	}

	// Left side must be a column reference
	if p.current().Type != TokenIdent {
		return nil, fmt.Errorf("%w: expected column name in filter, got %q", ErrSyntax, p.current().Value)
	}
	column := p.current().Value
	p.advance()

	// Comparison operator
	operator := p.current().Type
	switch operator {
	case TokenEqual, TokenNotEqual, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual:
		p.advance()
	default:
		return nil, fmt.Errorf("%w: expected comparison operator after %q, got %q", ErrSyntax, column, p.current().Value)
	}

	// Right side: literal value or another column reference
	switch p.current().Type {
	case TokenString:
		value := p.current().Value
		p.advance()
		return &ComparisonExpr{
			Column:   column,
			Operator: operator,
			Value:    value,
		}, nil
	case TokenNumber:
		numStr := p.current().Value
		// Try to parse as int first, then float
		var value interface{}
		if intVal, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			value = intVal
		} else if floatVal, err := strconv.ParseFloat(numStr, 64); err == nil {
			value = floatVal
		} else {
			return nil, fmt.Errorf("%w: invalid number %q in filter", ErrSyntax, numStr)
		}
		p.advance()
		return &ComparisonExpr{
			Column:   column,
			Operator: operator,
			Value:    value,
		}, nil
	case TokenBool:
		value := strings.EqualFold(p.current().Value, "true")
		p.advance()
		return &ComparisonExpr{
			Column:   column,
			Operator: operator,
			Value:    value,
		}, nil
	case TokenIdent:
		rightColumn := p.current().Value
		p.advance()
		return &ColumnComparisonExpr{
			LeftColumn:  column,
			Operator:    operator,
			RightColumn: rightColumn,
		}, nil
	default:
		return nil, fmt.Errorf("%w: expected value or column name after operator, got %q", ErrSyntax, p.current().Value)
	}
}

// Evaluate evaluates a binary expression
func (b *BinaryExpr) Evaluate(row map[string]interface{}) (bool, error) {
	left, err := b.Left.Evaluate(row)
	if err != nil {
		return false, err
	}

	right, err := b.Right.Evaluate(row)
	if err != nil {
		return false, err
	}

	switch b.Operator {
	case TokenAnd:
		return left && right, nil
	case TokenOr:
		return left || right, nil
	default:
		return false, fmt.Errorf("unsupported binary operator: %v", b.Operator)
	}
}

// Evaluate evaluates a comparison expression
func (c *ComparisonExpr) Evaluate(row map[string]interface{}) (bool, error) {
	value, exists := row[c.Column]
	if !exists {
		return false, fmt.Errorf("%w: %q", ErrColumnNotFound, c.Column)
	}

	return compare(value, c.Operator, c.Value)
}

// Evaluate evaluates a column-to-column comparison expression
func (c *ColumnComparisonExpr) Evaluate(row map[string]interface{}) (bool, error) {
	leftValue, leftExists := row[c.LeftColumn]
	if !leftExists {
		return false, fmt.Errorf("%w: %q", ErrColumnNotFound, c.LeftColumn)
	}
	rightValue, rightExists := row[c.RightColumn]
	if !rightExists {
		return false, fmt.Errorf("%w: %q", ErrColumnNotFound, c.RightColumn)
	}

	return compare(leftValue, c.Operator, rightValue)
}
