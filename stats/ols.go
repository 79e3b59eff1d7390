package stats

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vegasq/tabula/script"
	"github.com/vegasq/tabula/table"
)

// OLSResult holds a fitted least-squares regression
type OLSResult struct {
	Names       []string
	Coef        []float64
	StdErr      []float64
	TValues     []float64
	PValues     []float64
	RSquared    float64
	AdjRSquared float64
	N           int
	DF          int
}

// runOLS fits dependent ~ intercept + independent columns
func runOLS(p *script.Program, t *table.Table) (string, error) {
	y, x, names, err := regressionData(p, t)
	if err != nil {
		return "", err
	}

	result, err := FitOLS(y, x, names)
	if err != nil {
		return "", err
	}
	return result.Summary(), nil
}

// FitOLS fits an ordinary least-squares regression with an intercept.
// x holds one slice per predictor, each aligned with y.
func FitOLS(y []float64, x [][]float64, names []string) (*OLSResult, error) {
	n := len(y)
	p := len(x) + 1

	design := designMatrix(y, x)
	response := mat.NewVecDense(n, y)

	var qr mat.QR
	qr.Factorize(design)

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, response); err != nil {
		return nil, fmt.Errorf("%w: design matrix is singular: %v", ErrModel, err)
	}

	// Residual variance and coefficient covariance
	var fitted mat.VecDense
	fitted.MulVec(design, &beta)
	rss := 0.0
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		rss += r * r
	}
	df := n - p
	sigma2 := rss / float64(df)

	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("%w: design matrix is singular: %v", ErrModel, err)
	}

	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	coef := make([]float64, p)
	se := make([]float64, p)
	tvals := make([]float64, p)
	pvals := make([]float64, p)
	for i := 0; i < p; i++ {
		coef[i] = beta.AtVec(i)
		se[i] = math.Sqrt(sigma2 * xtxInv.At(i, i))
		tvals[i] = coef[i] / se[i]
		pvals[i] = 2 * (1 - tdist.CDF(math.Abs(tvals[i])))
	}

	meanY := stat.Mean(y, nil)
	tss := 0.0
	for _, v := range y {
		tss += (v - meanY) * (v - meanY)
	}
	r2 := 1 - rss/tss
	adjR2 := 1 - (1-r2)*float64(n-1)/float64(df)

	return &OLSResult{
		Names:       append([]string{"intercept"}, names...),
		Coef:        coef,
		StdErr:      se,
		TValues:     tvals,
		PValues:     pvals,
		RSquared:    r2,
		AdjRSquared: adjR2,
		N:           n,
		DF:          df,
	}, nil
}

// Summary renders the regression in a statsmodels-like layout
func (r *OLSResult) Summary() string {
	var b strings.Builder
	b.WriteString("OLS Regression Results\n")
	fmt.Fprintf(&b, "Observations: %d   Df Residuals: %d\n", r.N, r.DF)
	fmt.Fprintf(&b, "R-squared: %.4f   Adj. R-squared: %.4f\n", r.RSquared, r.AdjRSquared)
	b.WriteString(coefficientTable("", r.Names, r.Coef, r.StdErr, r.TValues, r.PValues, "t"))
	return b.String()
}

// designMatrix builds the n x (p+1) matrix with a leading intercept
// column
func designMatrix(y []float64, x [][]float64) *mat.Dense {
	n := len(y)
	p := len(x) + 1
	design := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1)
		for j, col := range x {
			design.Set(i, j+1, col[i])
		}
	}
	return design
}
