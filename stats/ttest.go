package stats

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vegasq/tabula/script"
	"github.com/vegasq/tabula/table"
)

// TTestResult holds a pooled two-sample t-test
type TTestResult struct {
	GroupNames  [2]string
	GroupSizes  [2]int
	GroupMeans  [2]float64
	TValue      float64
	PValue      float64
	DF          int
	Alternative string
}

// runTTest compares two samples. The samples come either from two value
// columns named by sample1: and sample2:, or from the value: column
// split by the two levels of the group: column. The alternative:
// directive is two-sided (default), larger, or smaller; the one-sided
// alternatives are relative to the first sample.
func runTTest(p *script.Program, t *table.Table) (string, error) {
	alternative := "two-sided"
	if alt, ok := p.Get("alternative"); ok {
		alternative = strings.ToLower(alt)
	}
	switch alternative {
	case "two-sided", "larger", "smaller":
	default:
		return "", fmt.Errorf("%w: unknown alternative %q", script.ErrProgram, alternative)
	}

	_, hasS1 := p.Get("sample1")
	_, hasS2 := p.Get("sample2")
	if hasS1 || hasS2 {
		return runTTestColumns(p, t, alternative)
	}

	valueCol, err := p.Require("value")
	if err != nil {
		return "", err
	}
	groupCol, err := p.Require("group")
	if err != nil {
		return "", err
	}

	if !t.HasColumn(valueCol) {
		return "", fmt.Errorf("%w: %q", ErrInvalidColumn, valueCol)
	}
	if !t.HasColumn(groupCol) {
		return "", fmt.Errorf("%w: %q", ErrInvalidColumn, groupCol)
	}

	samples, order, err := splitGroups(t, valueCol, groupCol)
	if err != nil {
		return "", err
	}
	if len(order) != 2 {
		return "", fmt.Errorf("%w: t-test requires exactly 2 groups, found %d", ErrModel, len(order))
	}

	result, err := PooledTTest(samples[order[0]], samples[order[1]], alternative)
	if err != nil {
		return "", err
	}
	result.GroupNames = [2]string{order[0], order[1]}
	return result.Summary(), nil
}

// runTTestColumns handles the sample1:/sample2: form, where each sample
// is its own value column
func runTTestColumns(p *script.Program, t *table.Table, alternative string) (string, error) {
	s1, err := p.Require("sample1")
	if err != nil {
		return "", err
	}
	s2, err := p.Require("sample2")
	if err != nil {
		return "", err
	}

	a, err := sampleColumn(t, s1)
	if err != nil {
		return "", err
	}
	b, err := sampleColumn(t, s2)
	if err != nil {
		return "", err
	}

	result, err := PooledTTest(a, b, alternative)
	if err != nil {
		return "", err
	}
	result.GroupNames = [2]string{s1, s2}
	return result.Summary(), nil
}

// sampleColumn extracts the non-missing numeric values of one column
func sampleColumn(t *table.Table, name string) ([]float64, error) {
	values, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColumn, name)
	}
	sample := make([]float64, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		f, ok := asFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not numeric (found %T)", ErrInvalidColumn, name, v)
		}
		sample = append(sample, f)
	}
	return sample, nil
}

// PooledTTest runs an equal-variance two-sample t-test of a against b
func PooledTTest(a, b []float64, alternative string) (*TTestResult, error) {
	n1, n2 := len(a), len(b)
	if n1 < 2 || n2 < 2 {
		return nil, fmt.Errorf("%w: each group needs at least 2 observations (got %d and %d)", ErrModel, n1, n2)
	}

	mean1 := stat.Mean(a, nil)
	mean2 := stat.Mean(b, nil)
	var1 := stat.Variance(a, nil)
	var2 := stat.Variance(b, nil)

	df := n1 + n2 - 2
	pooled := (float64(n1-1)*var1 + float64(n2-1)*var2) / float64(df)
	se := math.Sqrt(pooled * (1/float64(n1) + 1/float64(n2)))
	if se == 0 {
		return nil, fmt.Errorf("%w: zero pooled variance", ErrModel)
	}
	tval := (mean1 - mean2) / se

	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	var pval float64
	switch alternative {
	case "larger":
		pval = 1 - tdist.CDF(tval)
	case "smaller":
		pval = tdist.CDF(tval)
	default:
		pval = 2 * (1 - tdist.CDF(math.Abs(tval)))
	}

	return &TTestResult{
		GroupSizes:  [2]int{n1, n2},
		GroupMeans:  [2]float64{mean1, mean2},
		TValue:      tval,
		PValue:      pval,
		DF:          df,
		Alternative: alternative,
	}, nil
}

// Summary renders the test result
func (r *TTestResult) Summary() string {
	var b strings.Builder
	b.WriteString("Two-Sample T-Test (pooled variance)\n")
	fmt.Fprintf(&b, "%-16s n=%-6d mean=%.4f\n", r.GroupNames[0], r.GroupSizes[0], r.GroupMeans[0])
	fmt.Fprintf(&b, "%-16s n=%-6d mean=%.4f\n", r.GroupNames[1], r.GroupSizes[1], r.GroupMeans[1])
	fmt.Fprintf(&b, "t = %.4f   df = %d   p = %.4f (%s)\n", r.TValue, r.DF, r.PValue, r.Alternative)
	return b.String()
}

// splitGroups buckets the numeric value column by the group column,
// skipping rows with a missing value. Group order is first-seen.
func splitGroups(t *table.Table, valueCol, groupCol string) (map[string][]float64, []string, error) {
	samples := make(map[string][]float64)
	order := make([]string, 0)

	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		gv := row[groupCol]
		vv := row[valueCol]
		if gv == nil || vv == nil {
			continue
		}
		f, ok := asFloat(vv)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q is not numeric (found %T)", ErrInvalidColumn, valueCol, vv)
		}
		key := fmt.Sprintf("%v", gv)
		if _, seen := samples[key]; !seen {
			order = append(order, key)
		}
		samples[key] = append(samples[key], f)
	}

	if len(order) == 0 {
		return nil, nil, fmt.Errorf("%w: no complete observations", ErrModel)
	}
	return samples, order, nil
}
