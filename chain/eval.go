package chain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/vegasq/tabula/table"
)

// HandlerFunc executes one operation against the current table with its
// coerced arguments and returns the next working value.
type HandlerFunc func(t *table.Table, args []Arg) (*Result, error)

// OperationSpec describes one recognized operation: its handler, the
// argument count it accepts, and whether it is terminal (produces a
// scalar/summary value and must end the chain).
type OperationSpec struct {
	Name     string
	MinArgs  int
	MaxArgs  int // -1 for unlimited
	Terminal bool
	Handler  HandlerFunc
}

// Result is the outcome of evaluating a chain or one of its calls.
// Non-terminal operations set Table; terminal operations set Terminal
// and either Value (scalar, list, value counts) or Table (summary
// table, e.g. first() without a column).
type Result struct {
	Table    *table.Table
	Value    interface{}
	Terminal bool
}

// Registry manages operation lookup and registration
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*OperationSpec
}

// NewRegistry creates a new operation registry
func NewRegistry() *Registry {
	return &Registry{
		ops: make(map[string]*OperationSpec),
	}
}

// Register registers an operation
func (r *Registry) Register(spec *OperationSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[spec.Name] = spec
}

// Get retrieves an operation by name
func (r *Registry) Get(name string) (*OperationSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, exists := r.ops[name]
	return spec, exists
}

// defaultRegistry holds the process-wide operation vocabulary. It is
// populated once in init and never mutated afterwards, so concurrent
// evaluations may share it freely.
var defaultRegistry *Registry

func init() {
	defaultRegistry = NewRegistry()

	// Column and row transformations
	defaultRegistry.Register(&OperationSpec{Name: "select", MinArgs: 1, MaxArgs: -1, Handler: opSelect})
	defaultRegistry.Register(&OperationSpec{Name: "upper", MinArgs: 1, MaxArgs: 1, Handler: opUpper})
	defaultRegistry.Register(&OperationSpec{Name: "lower", MinArgs: 1, MaxArgs: 1, Handler: opLower})
	defaultRegistry.Register(&OperationSpec{Name: "length", MinArgs: 1, MaxArgs: 1, Handler: opLength})
	defaultRegistry.Register(&OperationSpec{Name: "where", MinArgs: 1, MaxArgs: 1, Handler: opWhere})
	defaultRegistry.Register(&OperationSpec{Name: "head", MinArgs: 0, MaxArgs: 1, Handler: opHead})
	defaultRegistry.Register(&OperationSpec{Name: "tail", MinArgs: 0, MaxArgs: 1, Handler: opTail})
	defaultRegistry.Register(&OperationSpec{Name: "sortby", MinArgs: 1, MaxArgs: 2, Handler: opSortBy})
	defaultRegistry.Register(&OperationSpec{Name: "round", MinArgs: 1, MaxArgs: 2, Handler: opRound})
	defaultRegistry.Register(&OperationSpec{Name: "groupby", MinArgs: 1, MaxArgs: 2, Handler: opGroupBy})

	// Terminal operations
	defaultRegistry.Register(&OperationSpec{Name: "count", MinArgs: 0, MaxArgs: 1, Terminal: true, Handler: opCount})
	defaultRegistry.Register(&OperationSpec{Name: "min", MinArgs: 1, MaxArgs: 1, Terminal: true, Handler: opMin})
	defaultRegistry.Register(&OperationSpec{Name: "max", MinArgs: 1, MaxArgs: 1, Terminal: true, Handler: opMax})
	defaultRegistry.Register(&OperationSpec{Name: "sum", MinArgs: 1, MaxArgs: 1, Terminal: true, Handler: opSum})
	defaultRegistry.Register(&OperationSpec{Name: "mean", MinArgs: 1, MaxArgs: 1, Terminal: true, Handler: opMean})
	defaultRegistry.Register(&OperationSpec{Name: "median", MinArgs: 1, MaxArgs: 1, Terminal: true, Handler: opMedian})
	defaultRegistry.Register(&OperationSpec{Name: "std", MinArgs: 1, MaxArgs: 1, Terminal: true, Handler: opStd})
	defaultRegistry.Register(&OperationSpec{Name: "var", MinArgs: 1, MaxArgs: 1, Terminal: true, Handler: opVar})
	defaultRegistry.Register(&OperationSpec{Name: "mode", MinArgs: 1, MaxArgs: 1, Terminal: true, Handler: opMode})
	defaultRegistry.Register(&OperationSpec{Name: "first", MinArgs: 0, MaxArgs: 1, Terminal: true, Handler: opFirst})
	defaultRegistry.Register(&OperationSpec{Name: "last", MinArgs: 0, MaxArgs: 1, Terminal: true, Handler: opLast})
	defaultRegistry.Register(&OperationSpec{Name: "uniq", MinArgs: 1, MaxArgs: 1, Terminal: true, Handler: opUniq})
	defaultRegistry.Register(&OperationSpec{Name: "uniqc", MinArgs: 1, MaxArgs: 1, Terminal: true, Handler: opUniqc})
	defaultRegistry.Register(&OperationSpec{Name: "strjoin", MinArgs: 1, MaxArgs: 2, Terminal: true, Handler: opStrJoin})
	defaultRegistry.Register(&OperationSpec{Name: "join", MinArgs: 1, MaxArgs: 2, Terminal: true, Handler: opStrJoin})
	defaultRegistry.Register(&OperationSpec{Name: "columns", MinArgs: 0, MaxArgs: 0, Terminal: true, Handler: opColumns})
}

// DefaultRegistry returns the process-wide operation registry
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Evaluate parses, validates, and executes a chain expression against a
// table. It returns either the final table or, when the chain ends in a
// terminal operation, the terminal value.
func Evaluate(expr string, t *table.Table) (*Result, error) {
	calls, err := ParseChain(expr)
	if err != nil {
		return nil, err
	}

	registry := DefaultRegistry()
	working := t

	for i, call := range calls {
		spec, exists := registry.Get(call.Name)
		if !exists {
			return nil, fmt.Errorf("%w: unknown operation %q", ErrSyntax, call.Name)
		}

		// Validation already rejects misplaced terminals; re-check as
		// defense in depth.
		if spec.Terminal && i != len(calls)-1 {
			return nil, fmt.Errorf("%w: terminal operation %q must be the last call in the chain", ErrSyntax, call.Name)
		}

		rawArgs, err := SplitArgs(call.RawArgs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", call.Name, err)
		}

		if len(rawArgs) < spec.MinArgs {
			return nil, fmt.Errorf("%w: %s expects at least %d argument(s), got %d", ErrArity, call.Name, spec.MinArgs, len(rawArgs))
		}
		if spec.MaxArgs >= 0 && len(rawArgs) > spec.MaxArgs {
			return nil, fmt.Errorf("%w: %s expects at most %d argument(s), got %d", ErrArity, call.Name, spec.MaxArgs, len(rawArgs))
		}

		args := make([]Arg, len(rawArgs))
		for j, raw := range rawArgs {
			args[j] = Coerce(raw)
		}

		result, err := spec.Handler(working, args)
		if err != nil {
			return nil, err
		}

		if result.Terminal {
			return result, nil
		}
		working = result.Table
	}

	return &Result{Table: working}, nil
}

// FormatTerminal renders a terminal value as text: scalars directly,
// lists one element per line, value counts as "value: count" lines.
// A "no value" result renders as the empty string.
func FormatTerminal(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = terminalString(item)
		}
		return strings.Join(parts, "\n")
	case []ValueCount:
		parts := make([]string, len(val))
		for i, vc := range val {
			parts[i] = fmt.Sprintf("%s: %d", terminalString(vc.Value), vc.Count)
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// terminalString renders one element of a terminal value, with missing
// values as the empty string rather than "<nil>"
func terminalString(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
