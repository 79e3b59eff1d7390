package stats

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vegasq/tabula/script"
	"github.com/vegasq/tabula/table"
)

// ANOVAResult holds a one-way analysis of variance
type ANOVAResult struct {
	Groups    []string
	SSBetween float64
	SSWithin  float64
	DFBetween int
	DFWithin  int
	FValue    float64
	PValue    float64
}

// runANOVA runs a one-way ANOVA of the value: column across the levels
// of the group: column. A formula: directive of the form
// "value ~ C(group)" names both columns at once.
func runANOVA(p *script.Program, t *table.Table) (string, error) {
	var valueCol, groupCol string
	var err error
	if formula, ok := p.Get("formula"); ok {
		valueCol, groupCol, err = parseANOVAFormula(formula)
	} else {
		valueCol, err = p.Require("value")
		if err == nil {
			groupCol, err = p.Require("group")
		}
	}
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

	groups := make([][]float64, len(order))
	for i, key := range order {
		groups[i] = samples[key]
	}

	result, err := OneWayANOVA(groups)
	if err != nil {
		return "", err
	}
	result.Groups = order
	return result.Summary(), nil
}

// parseANOVAFormula splits "value ~ C(group)" into its column names.
// The C() wrapper marking the categorical term is optional.
func parseANOVAFormula(raw string) (valueCol, groupCol string, err error) {
	left, right, found := strings.Cut(raw, "~")
	if !found {
		return "", "", fmt.Errorf("%w: formula must be written value ~ C(group), got %q", script.ErrProgram, raw)
	}
	valueCol = strings.TrimSpace(left)
	groupCol = strings.TrimSpace(right)
	if strings.HasPrefix(groupCol, "C(") && strings.HasSuffix(groupCol, ")") {
		groupCol = strings.TrimSpace(groupCol[2 : len(groupCol)-1])
	}
	if valueCol == "" || groupCol == "" {
		return "", "", fmt.Errorf("%w: formula must be written value ~ C(group), got %q", script.ErrProgram, raw)
	}
	return valueCol, groupCol, nil
}

// OneWayANOVA tests whether the group means differ
func OneWayANOVA(groups [][]float64) (*ANOVAResult, error) {
	k := len(groups)
	if k < 2 {
		return nil, fmt.Errorf("%w: ANOVA requires at least 2 groups, found %d", ErrModel, k)
	}

	n := 0
	var all []float64
	for _, g := range groups {
		if len(g) < 2 {
			return nil, fmt.Errorf("%w: each group needs at least 2 observations", ErrModel)
		}
		n += len(g)
		all = append(all, g...)
	}
	grandMean := stat.Mean(all, nil)

	ssBetween := 0.0
	ssWithin := 0.0
	for _, g := range groups {
		groupMean := stat.Mean(g, nil)
		diff := groupMean - grandMean
		ssBetween += float64(len(g)) * diff * diff
		for _, v := range g {
			ssWithin += (v - groupMean) * (v - groupMean)
		}
	}

	dfBetween := k - 1
	dfWithin := n - k
	if ssWithin == 0 {
		return nil, fmt.Errorf("%w: zero within-group variance", ErrModel)
	}

	fval := (ssBetween / float64(dfBetween)) / (ssWithin / float64(dfWithin))
	fdist := distuv.F{D1: float64(dfBetween), D2: float64(dfWithin)}
	pval := 1 - fdist.CDF(fval)

	return &ANOVAResult{
		SSBetween: ssBetween,
		SSWithin:  ssWithin,
		DFBetween: dfBetween,
		DFWithin:  dfWithin,
		FValue:    fval,
		PValue:    pval,
	}, nil
}

// Summary renders the ANOVA table
func (r *ANOVAResult) Summary() string {
	var b strings.Builder
	b.WriteString("One-Way ANOVA\n")
	if len(r.Groups) > 0 {
		fmt.Fprintf(&b, "Groups: %s\n", strings.Join(r.Groups, ", "))
	}
	fmt.Fprintf(&b, "%-10s %12s %6s %12s\n", "", "sum sq", "df", "mean sq")
	fmt.Fprintf(&b, "%-10s %12.4f %6d %12.4f\n", "between", r.SSBetween, r.DFBetween, r.SSBetween/float64(r.DFBetween))
	fmt.Fprintf(&b, "%-10s %12.4f %6d %12.4f\n", "within", r.SSWithin, r.DFWithin, r.SSWithin/float64(r.DFWithin))
	fmt.Fprintf(&b, "F = %.4f   p = %.4f\n", r.FValue, r.PValue)
	return b.String()
}
