// Package plot renders charts from tables: scatter, line, histogram,
// bar, and box plots, written to an image file.
package plot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/vegasq/tabula/script"
	"github.com/vegasq/tabula/table"
)

// ErrPlot reports a chart that cannot be rendered from the given data
var ErrPlot = errors.New("plot error")

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch

	defaultHistBins = 10
)

// Render draws the chart a program describes and writes it to path. The
// plot: directive selects the kind (scatter, line, hist, bar, box); x:
// and y: name the columns. The output format follows the path extension
// (png, svg, pdf, and the other formats gonum/plot supports).
func Render(p *script.Program, t *table.Table, path string) error {
	kind, err := p.Require("plot")
	if err != nil {
		return err
	}

	chart := plot.New()
	if title, ok := p.Get("title"); ok {
		chart.Title.Text = title
	}

	switch strings.ToLower(kind) {
	case "scatter":
		err = addScatter(chart, p, t)
	case "line":
		err = addLine(chart, p, t)
	case "hist":
		err = addHistogram(chart, p, t)
	case "bar":
		err = addBars(chart, p, t)
	case "box":
		err = addBoxes(chart, p, t)
	default:
		return fmt.Errorf("%w: unknown plot kind %q", script.ErrProgram, kind)
	}
	if err != nil {
		return err
	}

	if err := chart.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("%w: saving %s: %v", ErrPlot, path, err)
	}
	return nil
}

func addScatter(chart *plot.Plot, p *script.Program, t *table.Table) error {
	xs, ys, xCol, yCol, err := xyData(p, t)
	if err != nil {
		return err
	}
	scatter, err := plotter.NewScatter(points(xs, ys))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPlot, err)
	}
	chart.Add(scatter)
	chart.X.Label.Text = xCol
	chart.Y.Label.Text = yCol
	return nil
}

func addLine(chart *plot.Plot, p *script.Program, t *table.Table) error {
	xs, ys, xCol, yCol, err := xyData(p, t)
	if err != nil {
		return err
	}
	line, err := plotter.NewLine(points(xs, ys))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPlot, err)
	}
	chart.Add(line)
	chart.X.Label.Text = xCol
	chart.Y.Label.Text = yCol
	return nil
}

func addHistogram(chart *plot.Plot, p *script.Program, t *table.Table) error {
	xCol, err := p.Require("x")
	if err != nil {
		return err
	}
	values, err := numericValues(t, xCol)
	if err != nil {
		return err
	}

	bins := defaultHistBins
	if raw, ok := p.Get("bins"); ok {
		bins, err = strconv.Atoi(raw)
		if err != nil || bins < 1 {
			return fmt.Errorf("%w: bins must be a positive integer, got %q", script.ErrProgram, raw)
		}
	}

	hist, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPlot, err)
	}
	chart.Add(hist)
	chart.X.Label.Text = xCol
	return nil
}

// addBars draws one bar per row, labeled by the x column
func addBars(chart *plot.Plot, p *script.Program, t *table.Table) error {
	xCol, err := p.Require("x")
	if err != nil {
		return err
	}
	yCol, err := p.Require("y")
	if err != nil {
		return err
	}
	if !t.HasColumn(xCol) {
		return fmt.Errorf("%w: no column %q", ErrPlot, xCol)
	}

	values, err := numericValues(t, yCol)
	if err != nil {
		return err
	}

	labels := make([]string, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		labels = append(labels, fmt.Sprintf("%v", t.Row(i)[xCol]))
	}
	if len(labels) != len(values) {
		return fmt.Errorf("%w: bar chart cannot mix missing x and y values", ErrPlot)
	}

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPlot, err)
	}
	chart.Add(bars)
	chart.NominalX(labels...)
	chart.Y.Label.Text = yCol
	return nil
}

// addBoxes draws one box per level of the x column over the y values
func addBoxes(chart *plot.Plot, p *script.Program, t *table.Table) error {
	xCol, err := p.Require("x")
	if err != nil {
		return err
	}
	yCol, err := p.Require("y")
	if err != nil {
		return err
	}
	if !t.HasColumn(xCol) {
		return fmt.Errorf("%w: no column %q", ErrPlot, xCol)
	}
	if !t.HasColumn(yCol) {
		return fmt.Errorf("%w: no column %q", ErrPlot, yCol)
	}

	groups := make(map[string][]float64)
	order := make([]string, 0)
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		if row[xCol] == nil || row[yCol] == nil {
			continue
		}
		f, ok := asFloat(row[yCol])
		if !ok {
			return fmt.Errorf("%w: column %q is not numeric (found %T)", ErrPlot, yCol, row[yCol])
		}
		key := fmt.Sprintf("%v", row[xCol])
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], f)
	}
	if len(order) == 0 {
		return fmt.Errorf("%w: no complete observations", ErrPlot)
	}

	for i, key := range order {
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), plotter.Values(groups[key]))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPlot, err)
		}
		chart.Add(box)
	}
	chart.NominalX(order...)
	chart.Y.Label.Text = yCol
	return nil
}

// xyData extracts aligned x/y float slices, dropping rows where either
// value is missing
func xyData(p *script.Program, t *table.Table) (xs, ys []float64, xCol, yCol string, err error) {
	xCol, err = p.Require("x")
	if err != nil {
		return nil, nil, "", "", err
	}
	yCol, err = p.Require("y")
	if err != nil {
		return nil, nil, "", "", err
	}
	if !t.HasColumn(xCol) {
		return nil, nil, "", "", fmt.Errorf("%w: no column %q", ErrPlot, xCol)
	}
	if !t.HasColumn(yCol) {
		return nil, nil, "", "", fmt.Errorf("%w: no column %q", ErrPlot, yCol)
	}

	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		if row[xCol] == nil || row[yCol] == nil {
			continue
		}
		x, okX := asFloat(row[xCol])
		y, okY := asFloat(row[yCol])
		if !okX {
			return nil, nil, "", "", fmt.Errorf("%w: column %q is not numeric (found %T)", ErrPlot, xCol, row[xCol])
		}
		if !okY {
			return nil, nil, "", "", fmt.Errorf("%w: column %q is not numeric (found %T)", ErrPlot, yCol, row[yCol])
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if len(xs) == 0 {
		return nil, nil, "", "", fmt.Errorf("%w: no complete observations", ErrPlot)
	}
	return xs, ys, xCol, yCol, nil
}

// numericValues extracts the non-nil values of a numeric column
func numericValues(t *table.Table, name string) ([]float64, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("%w: no column %q", ErrPlot, name)
	}
	values, _ := t.Column(name)
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		f, ok := asFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: column %q is not numeric (found %T)", ErrPlot, name, v)
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no values in column %q", ErrPlot, name)
	}
	return out, nil
}

func points(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
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
	default:
		return 0, false
	}
}
