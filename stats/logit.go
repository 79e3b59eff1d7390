package stats

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vegasq/tabula/script"
	"github.com/vegasq/tabula/table"
)

const (
	logitMaxIterations = 100
	logitTolerance     = 1e-8
)

// LogitResult holds a fitted logistic regression
type LogitResult struct {
	Names         []string
	Coef          []float64
	StdErr        []float64
	ZValues       []float64
	PValues       []float64
	LogLikelihood float64
	N             int
	Iterations    int
}

// runLogit fits a binary logistic regression. The dependent column must
// contain only 0 and 1 values.
func runLogit(p *script.Program, t *table.Table) (string, error) {
	y, x, names, err := regressionData(p, t)
	if err != nil {
		return "", err
	}
	for _, v := range y {
		if v != 0 && v != 1 {
			return "", fmt.Errorf("%w: logit requires a binary 0/1 dependent column, found %v", ErrModel, v)
		}
	}

	result, err := FitLogit(y, x, names)
	if err != nil {
		return "", err
	}
	return result.Summary(), nil
}

// FitLogit fits a logistic regression with an intercept by iteratively
// reweighted least squares.
func FitLogit(y []float64, x [][]float64, names []string) (*LogitResult, error) {
	n := len(y)
	p := len(x) + 1

	design := designMatrix(y, x)
	beta := mat.NewVecDense(p, nil)

	var iterations int
	for iterations = 1; iterations <= logitMaxIterations; iterations++ {
		var eta mat.VecDense
		eta.MulVec(design, beta)

		// Working weights and score from the current fit
		mu := make([]float64, n)
		weights := make([]float64, n)
		score := mat.NewVecDense(p, nil)
		for i := 0; i < n; i++ {
			mu[i] = sigmoid(eta.AtVec(i))
			weights[i] = mu[i] * (1 - mu[i])
			for j := 0; j < p; j++ {
				score.SetVec(j, score.AtVec(j)+design.At(i, j)*(y[i]-mu[i]))
			}
		}

		hessian := weightedGram(design, weights)
		var delta mat.VecDense
		if err := delta.SolveVec(hessian, score); err != nil {
			return nil, fmt.Errorf("%w: information matrix is singular: %v", ErrModel, err)
		}

		beta.AddVec(beta, &delta)
		if mat.Norm(&delta, math.Inf(1)) < logitTolerance {
			break
		}
	}
	if iterations > logitMaxIterations {
		return nil, fmt.Errorf("%w: logit did not converge after %d iterations", ErrModel, logitMaxIterations)
	}

	// Standard errors from the inverse information matrix at the optimum
	var eta mat.VecDense
	eta.MulVec(design, beta)
	weights := make([]float64, n)
	logLik := 0.0
	for i := 0; i < n; i++ {
		mu := sigmoid(eta.AtVec(i))
		weights[i] = mu * (1 - mu)
		if y[i] == 1 {
			logLik += math.Log(mu)
		} else {
			logLik += math.Log(1 - mu)
		}
	}

	var cov mat.Dense
	if err := cov.Inverse(weightedGram(design, weights)); err != nil {
		return nil, fmt.Errorf("%w: information matrix is singular: %v", ErrModel, err)
	}

	normal := distuv.UnitNormal
	coef := make([]float64, p)
	se := make([]float64, p)
	zvals := make([]float64, p)
	pvals := make([]float64, p)
	for i := 0; i < p; i++ {
		coef[i] = beta.AtVec(i)
		se[i] = math.Sqrt(cov.At(i, i))
		zvals[i] = coef[i] / se[i]
		pvals[i] = 2 * (1 - normal.CDF(math.Abs(zvals[i])))
	}

	return &LogitResult{
		Names:         append([]string{"intercept"}, names...),
		Coef:          coef,
		StdErr:        se,
		ZValues:       zvals,
		PValues:       pvals,
		LogLikelihood: logLik,
		N:             n,
		Iterations:    iterations,
	}, nil
}

// Summary renders the fit in a statsmodels-like layout
func (r *LogitResult) Summary() string {
	var b strings.Builder
	b.WriteString("Logit Regression Results\n")
	fmt.Fprintf(&b, "Observations: %d   Log-Likelihood: %.4f   Iterations: %d\n", r.N, r.LogLikelihood, r.Iterations)
	b.WriteString(coefficientTable("", r.Names, r.Coef, r.StdErr, r.ZValues, r.PValues, "z"))
	return b.String()
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// weightedGram computes X' W X for a diagonal weight vector
func weightedGram(design *mat.Dense, weights []float64) *mat.Dense {
	n, p := design.Dims()
	gram := mat.NewDense(p, p, nil)
	for i := 0; i < n; i++ {
		for a := 0; a < p; a++ {
			for b := 0; b < p; b++ {
				gram.Set(a, b, gram.At(a, b)+weights[i]*design.At(i, a)*design.At(i, b))
			}
		}
	}
	return gram
}
