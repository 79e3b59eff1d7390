package stats

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/vegasq/tabula/script"
	"github.com/vegasq/tabula/table"
)

func floatNear(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func TestFitOLS(t *testing.T) {
	// Analytic solution: intercept 0.9, slope 1.9
	y := []float64{1, 3, 4, 7}
	x := [][]float64{{0, 1, 2, 3}}

	result, err := FitOLS(y, x, []string{"x"})
	if err != nil {
		t.Fatalf("FitOLS() unexpected error: %v", err)
	}

	if !floatNear(result.Coef[0], 0.9, 1e-9) {
		t.Errorf("intercept = %v, expected 0.9", result.Coef[0])
	}
	if !floatNear(result.Coef[1], 1.9, 1e-9) {
		t.Errorf("slope = %v, expected 1.9", result.Coef[1])
	}
	if !floatNear(result.RSquared, 1-0.7/18.75, 1e-9) {
		t.Errorf("R-squared = %v, expected %v", result.RSquared, 1-0.7/18.75)
	}
	if result.N != 4 || result.DF != 2 {
		t.Errorf("N = %d DF = %d, expected 4 and 2", result.N, result.DF)
	}
	for i, p := range result.PValues {
		if p < 0 || p > 1 {
			t.Errorf("p-value %d = %v outside [0,1]", i, p)
		}
	}
}

func TestRunOLSFromProgram(t *testing.T) {
	tbl, err := table.New(
		[]string{"x", "y"},
		[]map[string]interface{}{
			{"x": int64(0), "y": 1.0},
			{"x": int64(1), "y": 3.0},
			{"x": int64(2), "y": 4.0},
			{"x": int64(3), "y": 7.0},
		},
	)
	if err != nil {
		t.Fatalf("table.New() unexpected error: %v", err)
	}

	program, err := script.ParseProgram("test:ols,dependent:y,independent:x")
	if err != nil {
		t.Fatalf("ParseProgram() unexpected error: %v", err)
	}

	summary, err := Run(program, tbl)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	for _, want := range []string{"OLS Regression Results", "intercept", "x", "R-squared"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestPooledTTest(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{3, 4, 5, 6}

	result, err := PooledTTest(a, b, "two-sided")
	if err != nil {
		t.Fatalf("PooledTTest() unexpected error: %v", err)
	}

	if !floatNear(result.TValue, -2.190890, 1e-5) {
		t.Errorf("t = %v, expected -2.19089", result.TValue)
	}
	if result.DF != 6 {
		t.Errorf("df = %d, expected 6", result.DF)
	}
	if !floatNear(result.PValue, 0.0707, 0.003) {
		t.Errorf("p = %v, expected about 0.0707", result.PValue)
	}

	smaller, err := PooledTTest(a, b, "smaller")
	if err != nil {
		t.Fatalf("PooledTTest(smaller) unexpected error: %v", err)
	}
	if !floatNear(smaller.PValue, result.PValue/2, 1e-9) {
		t.Errorf("one-sided p = %v, expected half of two-sided %v", smaller.PValue, result.PValue)
	}
}

func TestOneWayANOVA(t *testing.T) {
	groups := [][]float64{
		{1, 2, 3},
		{2, 3, 4},
		{6, 7, 8},
	}

	result, err := OneWayANOVA(groups)
	if err != nil {
		t.Fatalf("OneWayANOVA() unexpected error: %v", err)
	}

	if !floatNear(result.FValue, 21, 1e-9) {
		t.Errorf("F = %v, expected 21", result.FValue)
	}
	if result.DFBetween != 2 || result.DFWithin != 6 {
		t.Errorf("df = (%d,%d), expected (2,6)", result.DFBetween, result.DFWithin)
	}
	if result.PValue <= 0 || result.PValue >= 0.05 {
		t.Errorf("p = %v, expected significant and positive", result.PValue)
	}
}

func TestOneWayANOVARejectsSingleGroup(t *testing.T) {
	_, err := OneWayANOVA([][]float64{{1, 2, 3}})
	if !errors.Is(err, ErrModel) {
		t.Errorf("error = %v, expected ErrModel", err)
	}
}

func TestFitLogit(t *testing.T) {
	y := []float64{0, 0, 1, 0, 1, 1, 0, 1, 1, 1}
	x := [][]float64{{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}

	result, err := FitLogit(y, x, []string{"dose"})
	if err != nil {
		t.Fatalf("FitLogit() unexpected error: %v", err)
	}

	if result.Coef[1] <= 0 {
		t.Errorf("slope = %v, expected positive for increasing outcome", result.Coef[1])
	}
	for i, p := range result.PValues {
		if p < 0 || p > 1 {
			t.Errorf("p-value %d = %v outside [0,1]", i, p)
		}
	}
	if result.LogLikelihood >= 0 {
		t.Errorf("log-likelihood = %v, expected negative", result.LogLikelihood)
	}
}

func TestFitLogitRejectsNonBinaryViaRun(t *testing.T) {
	tbl, err := table.New(
		[]string{"y", "x"},
		[]map[string]interface{}{
			{"y": int64(0), "x": 1.0},
			{"y": int64(2), "x": 2.0},
			{"y": int64(1), "x": 3.0},
		},
	)
	if err != nil {
		t.Fatalf("table.New() unexpected error: %v", err)
	}
	program, err := script.ParseProgram("test:logit,dependent:y,independent:x")
	if err != nil {
		t.Fatalf("ParseProgram() unexpected error: %v", err)
	}

	if _, err := Run(program, tbl); !errors.Is(err, ErrModel) {
		t.Errorf("Run() error = %v, expected ErrModel", err)
	}
}

func TestFitGLMGaussianMatchesOLS(t *testing.T) {
	y := []float64{1, 3, 4, 7}
	x := [][]float64{{0, 1, 2, 3}}

	result, err := FitGLM(y, x, []string{"x"}, "gaussian")
	if err != nil {
		t.Fatalf("FitGLM() unexpected error: %v", err)
	}
	if !floatNear(result.Coef[0], 0.9, 1e-6) {
		t.Errorf("intercept = %v, expected 0.9", result.Coef[0])
	}
	if !floatNear(result.Coef[1], 1.9, 1e-6) {
		t.Errorf("slope = %v, expected 1.9", result.Coef[1])
	}
}

func TestFitGLMPoissonLogLinear(t *testing.T) {
	// Counts follow y = 2^x exactly, so the log link recovers ln 2
	y := []float64{1, 2, 4, 8}
	x := [][]float64{{0, 1, 2, 3}}

	result, err := FitGLM(y, x, []string{"x"}, "poisson")
	if err != nil {
		t.Fatalf("FitGLM() unexpected error: %v", err)
	}
	if !floatNear(result.Coef[0], 0, 1e-6) {
		t.Errorf("intercept = %v, expected 0", result.Coef[0])
	}
	if !floatNear(result.Coef[1], math.Log(2), 1e-6) {
		t.Errorf("slope = %v, expected ln 2", result.Coef[1])
	}
	if result.Dispersion != 1 {
		t.Errorf("dispersion = %v, expected fixed 1", result.Dispersion)
	}
}

func TestFitGLMUnknownFamily(t *testing.T) {
	_, err := FitGLM([]float64{1, 2}, [][]float64{{1, 2}}, []string{"x"}, "tweedie")
	if !errors.Is(err, ErrModel) {
		t.Errorf("error = %v, expected ErrModel", err)
	}
}

func TestRunTTestFromProgram(t *testing.T) {
	tbl, err := table.New(
		[]string{"score", "cohort"},
		[]map[string]interface{}{
			{"score": 1.0, "cohort": "a"},
			{"score": 2.0, "cohort": "a"},
			{"score": 3.0, "cohort": "a"},
			{"score": 4.0, "cohort": "a"},
			{"score": 3.0, "cohort": "b"},
			{"score": 4.0, "cohort": "b"},
			{"score": 5.0, "cohort": "b"},
			{"score": 6.0, "cohort": "b"},
		},
	)
	if err != nil {
		t.Fatalf("table.New() unexpected error: %v", err)
	}

	program, err := script.ParseProgram("test:ttest,value:score,group:cohort")
	if err != nil {
		t.Fatalf("ParseProgram() unexpected error: %v", err)
	}

	summary, err := Run(program, tbl)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	for _, want := range []string{"T-Test", "a", "b", "df = 6"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestRunTTestSampleColumns(t *testing.T) {
	tbl, err := table.New(
		[]string{"before", "after"},
		[]map[string]interface{}{
			{"before": 1.0, "after": 3.0},
			{"before": 2.0, "after": 4.0},
			{"before": 3.0, "after": 5.0},
			{"before": 4.0, "after": 6.0},
		},
	)
	if err != nil {
		t.Fatalf("table.New() unexpected error: %v", err)
	}

	program, err := script.ParseProgram("test:ttest,sample1:before,sample2:after")
	if err != nil {
		t.Fatalf("ParseProgram() unexpected error: %v", err)
	}

	summary, err := Run(program, tbl)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	for _, want := range []string{"T-Test", "before", "after", "t = -2.1909", "df = 6"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestRunTTestSampleColumnsRequireBoth(t *testing.T) {
	tbl, err := table.New(
		[]string{"before"},
		[]map[string]interface{}{{"before": 1.0}, {"before": 2.0}},
	)
	if err != nil {
		t.Fatalf("table.New() unexpected error: %v", err)
	}
	program, err := script.ParseProgram("test:ttest,sample1:before")
	if err != nil {
		t.Fatalf("ParseProgram() unexpected error: %v", err)
	}

	if _, err := Run(program, tbl); !errors.Is(err, script.ErrProgram) {
		t.Errorf("Run() error = %v, expected ErrProgram", err)
	}
}

func TestRunANOVAFormula(t *testing.T) {
	rows := []map[string]interface{}{}
	for treatment, yields := range map[string][]float64{
		"a": {1, 2, 3},
		"b": {2, 3, 4},
		"c": {6, 7, 8},
	} {
		for _, y := range yields {
			rows = append(rows, map[string]interface{}{"treatment": treatment, "yield": y})
		}
	}
	tbl, err := table.New([]string{"treatment", "yield"}, rows)
	if err != nil {
		t.Fatalf("table.New() unexpected error: %v", err)
	}

	program, err := script.ParseProgram("test:anova,formula:yield ~ C(treatment)")
	if err != nil {
		t.Fatalf("ParseProgram() unexpected error: %v", err)
	}

	summary, err := Run(program, tbl)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	for _, want := range []string{"One-Way ANOVA", "F = 21.0000"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestParseANOVAFormula(t *testing.T) {
	tests := []struct {
		formula string
		value   string
		group   string
		wantErr bool
	}{
		{formula: "yield ~ C(treatment)", value: "yield", group: "treatment"},
		{formula: "yield~treatment", value: "yield", group: "treatment"},
		{formula: "yield treatment", wantErr: true},
		{formula: "~ C(treatment)", wantErr: true},
	}

	for _, tt := range tests {
		value, group, err := parseANOVAFormula(tt.formula)
		if tt.wantErr {
			if !errors.Is(err, script.ErrProgram) {
				t.Errorf("parseANOVAFormula(%q) error = %v, expected ErrProgram", tt.formula, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseANOVAFormula(%q) unexpected error: %v", tt.formula, err)
			continue
		}
		if value != tt.value || group != tt.group {
			t.Errorf("parseANOVAFormula(%q) = (%q, %q), expected (%q, %q)", tt.formula, value, group, tt.value, tt.group)
		}
	}
}

func TestRunUnknownTest(t *testing.T) {
	tbl, err := table.New([]string{"x"}, nil)
	if err != nil {
		t.Fatalf("table.New() unexpected error: %v", err)
	}
	program, err := script.ParseProgram("test:chisq")
	if err != nil {
		t.Fatalf("ParseProgram() unexpected error: %v", err)
	}

	if _, err := Run(program, tbl); !errors.Is(err, script.ErrProgram) {
		t.Errorf("Run() error = %v, expected ErrProgram", err)
	}
}

func TestRunMissingColumn(t *testing.T) {
	tbl, err := table.New(
		[]string{"y"},
		[]map[string]interface{}{{"y": 1.0}, {"y": 2.0}, {"y": 3.0}},
	)
	if err != nil {
		t.Fatalf("table.New() unexpected error: %v", err)
	}
	program, err := script.ParseProgram("test:ols,dependent:y,independent:x")
	if err != nil {
		t.Fatalf("ParseProgram() unexpected error: %v", err)
	}

	if _, err := Run(program, tbl); !errors.Is(err, ErrInvalidColumn) {
		t.Errorf("Run() error = %v, expected ErrInvalidColumn", err)
	}
}
