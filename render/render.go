// Package render draws view payloads as gonum plots. The same plots back
// the PNG chart endpoint and the PDF report.
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/zalepa/nycdiscovery/views"
)

const (
	// Width and Height size a single exported chart.
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
)

var (
	chartBlue = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	nanGrey   = color.Gray{Y: 200}
)

// Trend draws one line per series. Missing values break the line rather
// than being interpolated across.
func Trend(v views.TrendView) (*plot.Plot, error) {
	p := newPlot(v.Title, v.XTitle, v.YTitle)
	p.X.Tick.Marker = yearTicks{}
	for i, s := range v.Series {
		clr := plotutil.Color(i)
		segs := segments(s.Points)
		for j, pts := range segs {
			line, err := plotter.NewLine(pts)
			if err != nil {
				return nil, fmt.Errorf("trend %s: %w", s.Name, err)
			}
			line.Color = clr
			line.Width = vg.Points(1.5)
			p.Add(line)
			if j == 0 {
				p.Legend.Add(s.Label, line)
			}
		}
	}
	p.Legend.Top = true
	return p, nil
}

// Scatter draws the x-vs-y markers of a pairwise view, each tagged with
// its year.
func Scatter(v views.PairwiseView) (*plot.Plot, error) {
	p := newPlot(v.Title, v.XTitle, v.YTitle)
	p.X.Tick.Marker = numTicks{}
	p.Y.Tick.Marker = numTicks{}

	labels := plotter.XYLabels{}
	for _, pt := range v.Scatter.Points {
		labels.XYs = append(labels.XYs, plotter.XY{X: float64(pt.X), Y: float64(pt.Y)})
		labels.Labels = append(labels.Labels, pt.Label)
	}
	if len(labels.XYs) == 0 {
		return p, nil
	}
	sc, err := plotter.NewScatter(labels.XYs)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	sc.Color = chartBlue
	sc.Radius = vg.Points(3)
	sc.Shape = draw.CircleGlyph{}

	tags, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, fmt.Errorf("scatter labels: %w", err)
	}
	for i := range tags.TextStyle {
		tags.TextStyle[i].Font.Size = vg.Points(7)
		tags.TextStyle[i].YAlign = draw.YBottom
	}
	tags.Offset = vg.Point{Y: vg.Points(4)}

	p.Add(sc, tags)
	return p, nil
}

// YearSeries draws one column of a pairwise view against year with lines
// and markers.
func YearSeries(s views.Series, title string) (*plot.Plot, error) {
	p := newPlot(title, "year", s.Name)
	p.X.Tick.Marker = yearTicks{}
	p.Y.Tick.Marker = numTicks{}
	for _, pts := range segments(s.Points) {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.Name, err)
		}
		line.Color = chartBlue
		line.Width = vg.Points(2)

		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.Name, err)
		}
		sc.Color = chartBlue
		sc.Radius = vg.Points(3)
		sc.Shape = draw.CircleGlyph{}
		p.Add(line, sc)
	}
	return p, nil
}

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 of the
// matrix is drawn at the top.
type corrGrid [][]views.Number

func (g corrGrid) Dims() (c, r int)   { return len(g), len(g) }
func (g corrGrid) Z(c, r int) float64 { return float64(g[len(g)-1-r][c]) }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

// Heatmap draws the correlation matrix on a diverging blue-red scale
// fixed to [-1, 1] and centred on 0. Undefined cells are grey.
func Heatmap(v views.CorrelationView) (*plot.Plot, error) {
	p := newPlot(v.Title, "", "")
	n := len(v.Matrix)
	if n == 0 {
		return p, nil
	}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)
	hm := plotter.NewHeatMap(corrGrid(v.Matrix), cm.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = nanGrey
	p.Add(hm)

	cells := plotter.XYLabels{}
	for r, row := range v.Matrix {
		for c, val := range row {
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(c), Y: float64(n - 1 - r)})
			cells.Labels = append(cells.Labels, cellText(val))
		}
	}
	text, err := plotter.NewLabels(cells)
	if err != nil {
		return nil, fmt.Errorf("heatmap labels: %w", err)
	}
	for i := range text.TextStyle {
		text.TextStyle[i].XAlign = draw.XCenter
		text.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(text)

	xt := make([]plot.Tick, n)
	yt := make([]plot.Tick, n)
	for i, l := range v.Labels {
		xt[i] = plot.Tick{Value: float64(i), Label: l}
		yt[n-1-i] = plot.Tick{Value: float64(n - 1 - i), Label: l}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xt)
	p.Y.Tick.Marker = plot.ConstantTicks(yt)
	p.X.Min, p.X.Max = -0.5, float64(n)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(n)-0.5
	return p, nil
}

func cellText(v views.Number) string {
	if !v.Valid() {
		return "n/a"
	}
	return strconv.FormatFloat(float64(v), 'f', 2, 64)
}

// StackedBars draws complaint counts per borough with one stacked segment
// per category, in vocabulary order from the bottom up.
func StackedBars(v views.ComplaintView) (*plot.Plot, error) {
	p := newPlot(v.Title, v.XTitle, v.YTitle)
	width := vg.Points(30)
	var below *plotter.BarChart
	for ci, cat := range v.Categories {
		vals := make(plotter.Values, len(v.Boroughs))
		for bi := range v.Boroughs {
			vals[bi] = float64(v.Counts[ci][bi])
		}
		bars, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return nil, fmt.Errorf("bars %s: %w", cat, err)
		}
		bars.Color = plotutil.Color(ci)
		bars.LineStyle.Width = 0
		if below != nil {
			bars.StackOn(below)
		}
		p.Add(bars)
		p.Legend.Add(cat, bars)
		below = bars
	}
	p.NominalX(v.Boroughs...)
	p.Legend.Top = true
	p.Y.Min = 0
	return p, nil
}

// Placeholder draws an empty chart carrying a notice in place of a view
// that could not be computed.
func Placeholder(notice string) *plot.Plot {
	p := plot.New()
	p.Title.Text = notice
	p.HideAxes()
	p.BackgroundColor = color.White
	return p
}

// WritePNG renders p at the given size to w.
func WritePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

func newPlot(title, xTitle, yTitle string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.X.Label.Text = xTitle
	p.Y.Label.Text = yTitle
	p.BackgroundColor = color.White
	p.Add(plotter.NewGrid())
	return p
}

// segments splits points into runs of finite values.
func segments(points []views.Point) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for _, pt := range points {
		if !pt.X.Valid() || !pt.Y.Valid() {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(pt.X), Y: float64(pt.Y)})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

type yearTicks struct{}

func (yearTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label == "" {
			continue
		}
		if ticks[i].Value != math.Trunc(ticks[i].Value) {
			ticks[i].Label = ""
			continue
		}
		ticks[i].Label = strconv.Itoa(int(ticks[i].Value))
	}
	return ticks
}

type numTicks struct{}

func (numTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = FormatCompact(ticks[i].Value)
		}
	}
	return ticks
}
