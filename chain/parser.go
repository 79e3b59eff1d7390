package chain

import (
	"fmt"
	"strings"
)

// MaxExpressionLength is the maximum allowed chain expression length
const MaxExpressionLength = 64 * 1024

// Validate reports whether the expression passes grammar validation.
func Validate(expr string) bool {
	return ValidateChain(expr) == nil
}

// ValidateChain statically checks a chain expression: every segment must
// match name(args) with a known operation name, and terminal operations
// may only appear as the final segment. Column names are not resolved
// here; they depend on the table at each pipeline stage and are checked
// during evaluation.
func ValidateChain(expr string) error {
	_, err := ParseChain(expr)
	return err
}

// ParseChain splits a chain expression into its ordered calls,
// validating the call grammar, operation names, and terminal placement.
func ParseChain(expr string) ([]Call, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	if len(expr) > MaxExpressionLength {
		return nil, fmt.Errorf("%w: expression too long (%d bytes, max %d)", ErrSyntax, len(expr), MaxExpressionLength)
	}

	segments, err := SplitChain(expr)
	if err != nil {
		return nil, err
	}

	registry := DefaultRegistry()
	calls := make([]Call, 0, len(segments))

	for i, segment := range segments {
		call, err := parseCall(segment)
		if err != nil {
			return nil, err
		}

		spec, exists := registry.Get(call.Name)
		if !exists {
			return nil, fmt.Errorf("%w: unknown operation %q", ErrSyntax, call.Name)
		}
		if spec.Terminal && i != len(segments)-1 {
			return nil, fmt.Errorf("%w: terminal operation %q must be the last call in the chain", ErrSyntax, call.Name)
		}

		calls = append(calls, call)
	}

	return calls, nil
}

// parseCall matches one segment against the name(args) pattern: an
// identifier, a parenthesized argument list, and nothing trailing.
func parseCall(segment string) (Call, error) {
	trimmed := strings.TrimSpace(segment)
	if trimmed == "" {
		return Call{}, fmt.Errorf("%w: empty call segment", ErrSyntax)
	}

	nameEnd := 0
	for nameEnd < len(trimmed) && isNameChar(trimmed[nameEnd], nameEnd == 0) {
		nameEnd++
	}
	if nameEnd == 0 {
		return Call{}, fmt.Errorf("%w: bad call %q", ErrSyntax, trimmed)
	}
	name := trimmed[:nameEnd]

	if nameEnd >= len(trimmed) || trimmed[nameEnd] != '(' {
		return Call{}, fmt.Errorf("%w: bad call %q (expected %s(...))", ErrSyntax, trimmed, name)
	}

	// The parenthesis opened after the name must close at the very end
	// of the segment; anything after the matching ')' is trailing text.
	close := matchingParen(trimmed, nameEnd)
	if close < 0 {
		return Call{}, fmt.Errorf("%w: bad call %q (unclosed argument list)", ErrSyntax, trimmed)
	}
	if close != len(trimmed)-1 {
		return Call{}, fmt.Errorf("%w: bad call %q (trailing text after argument list)", ErrSyntax, trimmed)
	}

	return Call{Name: name, RawArgs: trimmed[nameEnd+1 : close]}, nil
}

// matchingParen returns the index of the ')' closing the '(' at open,
// skipping quoted spans, or -1 if unclosed.
func matchingParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// isNameChar reports whether ch may appear in an operation name.
// Names match [A-Za-z_]\w*.
func isNameChar(ch byte, first bool) bool {
	if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
		return true
	}
	return !first && ch >= '0' && ch <= '9'
}
