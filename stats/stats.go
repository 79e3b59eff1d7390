// Package stats fits statistical models against tables: ordinary least
// squares, logistic regression, two-sample t-tests, one-way ANOVA, and
// generalized linear models.
package stats

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vegasq/tabula/script"
	"github.com/vegasq/tabula/table"
)

var (
	// ErrInvalidColumn reports a missing or non-numeric model column
	ErrInvalidColumn = errors.New("invalid column")

	// ErrModel reports a model that cannot be fit on the given data
	ErrModel = errors.New("model error")
)

// Run fits the model a program describes and returns its text summary.
// The test: directive selects the model; the remaining directives are
// model-specific.
func Run(p *script.Program, t *table.Table) (string, error) {
	test, err := p.Require("test")
	if err != nil {
		return "", err
	}

	switch strings.ToLower(test) {
	case "ols":
		return runOLS(p, t)
	case "logit":
		return runLogit(p, t)
	case "ttest":
		return runTTest(p, t)
	case "anova":
		return runANOVA(p, t)
	case "glm":
		return runGLM(p, t)
	default:
		return "", fmt.Errorf("%w: unknown test %q", script.ErrProgram, test)
	}
}

// regressionData extracts the dependent vector and the independent
// matrix named by the program, dropping rows where any used value is
// missing.
func regressionData(p *script.Program, t *table.Table) (y []float64, x [][]float64, names []string, err error) {
	dependent, err := p.Require("dependent")
	if err != nil {
		return nil, nil, nil, err
	}
	rawIndependent, err := p.Require("independent")
	if err != nil {
		return nil, nil, nil, err
	}
	names, err = script.ParseColumns(rawIndependent)
	if err != nil {
		return nil, nil, nil, err
	}

	cols := append([]string{dependent}, names...)
	matrix, err := numericColumns(t, cols)
	if err != nil {
		return nil, nil, nil, err
	}

	y = matrix[0]
	x = matrix[1:]
	if len(y) <= len(names)+1 {
		return nil, nil, nil, fmt.Errorf("%w: %d observation(s) cannot support %d coefficient(s)", ErrModel, len(y), len(names)+1)
	}
	return y, x, names, nil
}

// numericColumns extracts several columns as aligned float slices with
// listwise deletion of rows containing a missing value.
func numericColumns(t *table.Table, names []string) ([][]float64, error) {
	for _, name := range names {
		if !t.HasColumn(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidColumn, name)
		}
	}

	out := make([][]float64, len(names))
	for i := range out {
		out[i] = make([]float64, 0, t.NumRows())
	}

	for r := 0; r < t.NumRows(); r++ {
		row := t.Row(r)
		values := make([]float64, len(names))
		complete := true
		for i, name := range names {
			v := row[name]
			if v == nil {
				complete = false
				break
			}
			f, ok := asFloat(v)
			if !ok {
				return nil, fmt.Errorf("%w: %q is not numeric (found %T)", ErrInvalidColumn, name, v)
			}
			values[i] = f
		}
		if !complete {
			continue
		}
		for i := range names {
			out[i] = append(out[i], values[i])
		}
	}

	if len(out[0]) == 0 {
		return nil, fmt.Errorf("%w: no complete observations", ErrModel)
	}
	return out, nil
}

func asFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// coefficientTable renders a fixed-width coefficient summary
func coefficientTable(header string, names []string, coef, se, stat, pvalues []float64, statLabel string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%-16s %12s %12s %10s %10s\n", "", "coef", "std err", statLabel, "P>|"+statLabel+"|")
	for i, name := range names {
		fmt.Fprintf(&b, "%-16s %12.4f %12.4f %10.3f %10.3f\n", name, coef[i], se[i], stat[i], pvalues[i])
	}
	return b.String()
}
