// Package views recomputes render-ready chart payloads from a dataset
// snapshot. Every method is a pure function of its arguments and the
// snapshot the Engine was built over.
package views

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/zalepa/nycdiscovery/dataset"
)

// Engine derives view payloads from one immutable Store.
type Engine struct {
	store *dataset.Store
}

// New returns an Engine over store.
func New(store *dataset.Store) *Engine {
	return &Engine{store: store}
}

// Store returns the snapshot the engine reads.
func (e *Engine) Store() *dataset.Store { return e.store }

// Trend returns one standardized series per distinct selected column, in
// the order the columns were first selected. An empty selection yields an
// empty view.
func (e *Engine) Trend(columns []string) (TrendView, error) {
	stan := e.store.Standardized()
	view := TrendView{
		Title:   "Yearly Data",
		XTitle:  "year",
		YTitle:  "trend",
		Series:  []Series{},
		Caption: "Figure 1 : Overall trends of multiple data columns throughout time.",
	}
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if seen[col] {
			continue
		}
		seen[col] = true
		if !stan.HasColumn(col) {
			return TrendView{}, &UnknownColumnError{Column: col}
		}
		s := Series{Name: col, Label: e.label(col), Points: make([]Point, stan.Len())}
		for i := 0; i < stan.Len(); i++ {
			s.Points[i] = Point{X: Number(stan.Year(i)), Y: Number(stan.Value(i, col))}
		}
		view.Series = append(view.Series, s)
	}
	return view, nil
}

// frame is the numeric dataset restricted to two columns and a year range.
type frame struct {
	years  []int
	xs, ys []float64
}

// pairFrame keeps numeric rows where both x and y are present and
// from <= year < to. The upper bound is exclusive even though the year
// slider labels it as inclusive; this matches the dashboard's historical
// behaviour and is kept on purpose.
func (e *Engine) pairFrame(x, y string, from, to int) (frame, error) {
	num := e.store.Numeric()
	for _, col := range []string{x, y} {
		if !num.HasColumn(col) {
			return frame{}, &UnknownColumnError{Column: col}
		}
	}
	var f frame
	for i := 0; i < num.Len(); i++ {
		xv, yv := num.Value(i, x), num.Value(i, y)
		if math.IsNaN(xv) || math.IsNaN(yv) {
			continue
		}
		year := num.Year(i)
		if year < from || year >= to {
			continue
		}
		f.years = append(f.years, year)
		f.xs = append(f.xs, xv)
		f.ys = append(f.ys, yv)
	}
	return f, nil
}

// Pairwise compares x and y over [from, to). It returns a
// NoDataInRangeError when no row survives the filters.
func (e *Engine) Pairwise(x, y string, from, to int) (PairwiseView, error) {
	f, err := e.pairFrame(x, y, from, to)
	if err != nil {
		return PairwiseView{}, err
	}
	if len(f.years) == 0 {
		return PairwiseView{}, &NoDataInRangeError{X: x, Y: y, From: from, To: to}
	}

	minYear, maxYear := f.years[0], f.years[0]
	for _, yr := range f.years[1:] {
		minYear = min(minYear, yr)
		maxYear = max(maxYear, yr)
	}

	view := PairwiseView{
		X:       x,
		Y:       y,
		XTitle:  axisTitle(x),
		YTitle:  axisTitle(y),
		From:    from,
		To:      to,
		MinYear: minYear,
		MaxYear: maxYear,
		Rows:    len(f.years),
		Title:   fmt.Sprintf("%s vs %s", x, y),
		Scatter: Series{Name: fmt.Sprintf("%s vs %s", x, y), Label: e.label(x) + " vs " + e.label(y)},
		YearX:   Series{Name: x, Label: e.label(x)},
		YearY:   Series{Name: y, Label: e.label(y)},
	}
	for i, yr := range f.years {
		year := strconv.Itoa(yr)
		view.Scatter.Points = append(view.Scatter.Points, Point{X: Number(f.xs[i]), Y: Number(f.ys[i]), Label: year})
		view.YearX.Points = append(view.YearX.Points, Point{X: Number(yr), Y: Number(f.xs[i])})
		view.YearY.Points = append(view.YearY.Points, Point{X: Number(yr), Y: Number(f.ys[i])})
	}
	view.ScatterCaption = fmt.Sprintf(
		"Figure 2 : Plot of '%s' vs '%s', showing the actual data points as they relate to each other over time from %d to %d.",
		x, y, minYear, maxYear)
	view.SeriesCaption = fmt.Sprintf(
		"Figure 3 (left) : '%s', Figure 4 (Right) : '%s', showing the actual data points over time from %d to %d.",
		x, y, minYear, maxYear)
	return view, nil
}

// Correlation computes the Pearson matrix of x and y over the same frame
// Pairwise uses. A constant column or fewer than two rows leaves the
// affected cells NaN and Defined false; that is not an error.
func (e *Engine) Correlation(x, y string, from, to int) (CorrelationView, error) {
	f, err := e.pairFrame(x, y, from, to)
	if err != nil {
		return CorrelationView{}, err
	}
	view := CorrelationView{
		Title:   "Heatmap Correlation",
		Columns: []string{x, y},
		Labels:  []string{e.label(x), e.label(y)},
		Rows:    len(f.years),
		Caption: fmt.Sprintf("Figure 5 : Heatmap showing Pearson correlation between %s and %s", x, y),
	}
	m := PearsonMatrix([][]float64{f.xs, f.ys})
	view.Matrix = make([][]Number, len(m))
	view.Defined = true
	for i, row := range m {
		view.Matrix[i] = make([]Number, len(row))
		for j, v := range row {
			view.Matrix[i][j] = Number(v)
			if math.IsNaN(v) {
				view.Defined = false
			}
		}
	}
	return view, nil
}

// PearsonMatrix returns the symmetric correlation matrix of the given
// equal-length columns. The diagonal is exactly 1 for a column with
// non-zero variance and NaN otherwise; off-diagonal cells touching such a
// column are NaN.
func PearsonMatrix(cols [][]float64) [][]float64 {
	n := len(cols)
	varies := make([]bool, n)
	for i, c := range cols {
		varies[i] = len(c) >= 2 && stat.Variance(c, nil) > 0
	}
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		if varies[i] {
			m[i][i] = 1
		} else {
			m[i][i] = math.NaN()
		}
		for j := i + 1; j < n; j++ {
			r := math.NaN()
			if varies[i] && varies[j] {
				r = math.Max(-1, math.Min(1, stat.Correlation(cols[i], cols[j], nil)))
			}
			m[i][j], m[j][i] = r, r
		}
	}
	return m
}

func (e *Engine) label(col string) string {
	if l, ok := e.store.LabelFor(col); ok {
		return l
	}
	return dataset.Label(col)
}

// axisTitle keeps the first four underscore-separated words of a column
// name.
func axisTitle(col string) string {
	parts := strings.Split(col, "_")
	if len(parts) > 4 {
		parts = parts[:4]
	}
	return strings.Join(parts, " ")
}
