// Package script parses the compact key:value program strings used by
// the statx and plotx commands, e.g.
//
//	test:ols,dependent:y,independent:x+z
//	plot:scatter,x:age,y:income
package script

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProgram reports a malformed program string
var ErrProgram = errors.New("invalid program")

// Program holds the parsed key/value directives in declaration order
type Program struct {
	keys   []string
	values map[string]string
}

// ParseProgram splits a program string on commas into key:value pairs.
// Keys are case-insensitive and must be unique; values keep their case.
func ParseProgram(raw string) (*Program, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty program", ErrProgram)
	}

	p := &Program{values: make(map[string]string)}
	for _, pair := range strings.Split(trimmed, ",") {
		key, value, found := strings.Cut(pair, ":")
		if !found {
			return nil, fmt.Errorf("%w: directive %q is not key:value", ErrProgram, pair)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			return nil, fmt.Errorf("%w: directive %q has an empty key or value", ErrProgram, pair)
		}
		if _, dup := p.values[key]; dup {
			return nil, fmt.Errorf("%w: duplicate directive %q", ErrProgram, key)
		}
		p.keys = append(p.keys, key)
		p.values[key] = value
	}

	return p, nil
}

// Get returns the value for a key and whether it was present
func (p *Program) Get(key string) (string, bool) {
	v, ok := p.values[strings.ToLower(key)]
	return v, ok
}

// Require returns the value for a key or an error naming the missing key
func (p *Program) Require(key string) (string, error) {
	v, ok := p.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: missing required directive %q", ErrProgram, key)
	}
	return v, nil
}

// Keys returns the directive keys in declaration order
func (p *Program) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// ParseColumns splits a +-separated column list, as used by the
// independent: directive
func ParseColumns(raw string) ([]string, error) {
	parts := strings.Split(raw, "+")
	cols := make([]string, 0, len(parts))
	for _, part := range parts {
		col := strings.TrimSpace(part)
		if col == "" {
			return nil, fmt.Errorf("%w: empty column in list %q", ErrProgram, raw)
		}
		cols = append(cols, col)
	}
	return cols, nil
}
