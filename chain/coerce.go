package chain

import (
	"strconv"
	"strings"
)

// Coerce converts one raw argument token into a typed Arg.
//
// Rule order: a token fully wrapped in matching quotes becomes a string
// literal with the quotes stripped; otherwise an integer, float, or
// boolean literal parse is attempted; anything else passes through
// unchanged as a raw identifier/expression for the consuming operation.
// Recognition is a closed grammar; no token is ever executed.
func Coerce(token string) Arg {
	if inner, ok := unquote(token); ok {
		return Arg{Kind: ArgString, Text: inner, Value: inner}
	}

	if isNumericToken(token) {
		if n, err := strconv.ParseInt(token, 10, 64); err == nil {
			return Arg{Kind: ArgInt, Text: token, Value: n}
		}
		if f, err := strconv.ParseFloat(token, 64); err == nil {
			return Arg{Kind: ArgFloat, Text: token, Value: f}
		}
	}

	switch token {
	case "true", "True":
		return Arg{Kind: ArgBool, Text: token, Value: true}
	case "false", "False":
		return Arg{Kind: ArgBool, Text: token, Value: false}
	}

	return Arg{Kind: ArgRaw, Text: token}
}

// unquote strips a fully wrapping pair of matching single or double
// quotes and processes backslash escapes. Returns false if the token is
// not a quoted literal.
func unquote(token string) (string, bool) {
	if len(token) < 2 {
		return "", false
	}
	quote := token[0]
	if quote != '\'' && quote != '"' {
		return "", false
	}
	if token[len(token)-1] != quote {
		return "", false
	}

	inner := token[1 : len(token)-1]
	var result strings.Builder
	for i := 0; i < len(inner); i++ {
		ch := inner[i]
		if ch == '\\' && i+1 < len(inner) {
			i++
			switch inner[i] {
			case 'n':
				result.WriteByte('\n')
			case 't':
				result.WriteByte('\t')
			case '\\':
				result.WriteByte('\\')
			case quote:
				result.WriteByte(quote)
			default:
				result.WriteByte(inner[i])
			}
			continue
		}
		// A bare closing quote before the end means the token is not
		// fully wrapped (e.g. 'a'+'b').
		if ch == quote {
			return "", false
		}
		result.WriteByte(ch)
	}
	return result.String(), true
}

// isNumericToken reports whether the token is drawn from the closed
// numeric grammar: optional sign, digits, decimal point, exponent.
// This keeps strconv from accepting forms like hex floats or "Inf".
func isNumericToken(token string) bool {
	if token == "" {
		return false
	}
	hasDigit := false
	for i := 0; i < len(token); i++ {
		switch ch := token[i]; {
		case ch >= '0' && ch <= '9':
			hasDigit = true
		case ch == '+' || ch == '-' || ch == '.' || ch == 'e' || ch == 'E':
		default:
			return false
		}
	}
	return hasDigit
}
