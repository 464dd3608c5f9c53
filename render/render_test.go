package render

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot"

	"github.com/zalepa/nycdiscovery/views"
)

func nan() views.Number { return views.Number(math.NaN()) }

func TestSegments(t *testing.T) {
	pts := []views.Point{
		{X: 1990, Y: 1},
		{X: 1991, Y: nan()},
		{X: 1992, Y: 2},
		{X: 1993, Y: 3},
		{X: 1994, Y: nan()},
	}
	segs := segments(pts)
	require.Len(t, segs, 2)
	assert.Len(t, segs[0], 1)
	assert.Len(t, segs[1], 2)
	assert.Equal(t, 1993.0, segs[1][1].X)

	assert.Empty(t, segments([]views.Point{{X: 1, Y: nan()}}))
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want string
	}{
		{"rising", []float64{0, 1, 2, 3, 4, 5, 6, 7}, "▁▂▃▄▅▆▇█"},
		{"gap", []float64{0, math.NaN(), 7}, "▁ █"},
		{"flat", []float64{3, 3}, "▅▅"},
		{"all missing", []float64{math.NaN(), math.NaN()}, "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sparkline(tt.in))
		})
	}
}

func TestFormatNum(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{8175133, "8,175,133"},
		{-1234567, "-1,234,567"},
		{1.25, "1.2"},
		{math.NaN(), "- -"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNum(tt.in), "FormatNum(%v)", tt.in)
	}
}

func TestFormatCompact(t *testing.T) {
	assert.Equal(t, "8.2M", FormatCompact(8175133))
	assert.Equal(t, "12k", FormatCompact(12000))
	assert.Equal(t, "0.25", FormatCompact(0.25))
	assert.Equal(t, "0", FormatCompact(0))
}

func isPNG(t *testing.T, p *plot.Plot) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, p, Width, Height))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), "not a PNG")
}

func TestTrendPlot(t *testing.T) {
	v := views.TrendView{
		Title: "Yearly Data",
		Series: []views.Series{
			{Name: "a", Label: "a", Points: []views.Point{{X: 1990, Y: 0.1}, {X: 1991, Y: nan()}, {X: 1992, Y: 0.3}, {X: 1993, Y: 0.2}}},
			{Name: "b", Label: "b", Points: []views.Point{{X: 1990, Y: 0.5}, {X: 1991, Y: 0.4}}},
		},
	}
	p, err := Trend(v)
	require.NoError(t, err)
	assert.Equal(t, "Yearly Data", p.Title.Text)
	isPNG(t, p)
}

func TestPairwisePlots(t *testing.T) {
	v := views.PairwiseView{
		Title:   "x vs y",
		XTitle:  "x",
		YTitle:  "y",
		Scatter: views.Series{Points: []views.Point{{X: 1, Y: 2, Label: "1990"}, {X: 2, Y: 4, Label: "1991"}}},
		YearX:   views.Series{Name: "x", Points: []views.Point{{X: 1990, Y: 1}, {X: 1991, Y: 2}}},
	}
	sc, err := Scatter(v)
	require.NoError(t, err)
	isPNG(t, sc)

	ys, err := YearSeries(v.YearX, v.YearX.Name)
	require.NoError(t, err)
	isPNG(t, ys)
}

func TestHeatmapWithUndefinedCells(t *testing.T) {
	v := views.CorrelationView{
		Title:  "Heatmap Correlation",
		Labels: []string{"a", "b"},
		Matrix: [][]views.Number{{1, nan()}, {nan(), nan()}},
	}
	p, err := Heatmap(v)
	require.NoError(t, err)
	isPNG(t, p)

	g := corrGrid(v.Matrix)
	c, r := g.Dims()
	assert.Equal(t, 2, c)
	assert.Equal(t, 2, r)
	assert.Equal(t, 1.0, g.Z(0, 1))
	assert.True(t, math.IsNaN(g.Z(1, 0)))
}

func TestStackedBars(t *testing.T) {
	v := views.ComplaintView{
		Title:      "Overall 2015 Complaint Types by Borough",
		Categories: []string{"Mold", "Lead"},
		Boroughs:   []string{"Brooklyn", "Queens"},
		Counts:     [][]int{{3, 0}, {0, 1}},
	}
	p, err := StackedBars(v)
	require.NoError(t, err)
	isPNG(t, p)

	empty := v
	empty.Counts = [][]int{{0, 0}, {0, 0}}
	p, err = StackedBars(empty)
	require.NoError(t, err)
	isPNG(t, p)
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder("No data for this selection.")
	assert.Equal(t, "No data for this selection.", p.Title.Text)
	isPNG(t, p)
}

func TestTextChart(t *testing.T) {
	var buf bytes.Buffer
	TextChart(&buf, []views.Point{{X: 1990, Y: 1}, {X: 1991, Y: 3}, {X: 1992, Y: nan()}})
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "●"))
	assert.Contains(t, out, "1990")

	buf.Reset()
	TextChart(&buf, nil)
	assert.Equal(t, "(no data)\n", buf.String())
}

func TestCountTable(t *testing.T) {
	var buf bytes.Buffer
	CountTable(&buf, views.ComplaintView{
		Categories: []string{"Mold", "Lead"},
		Boroughs:   []string{"Brooklyn", "Queens"},
		Counts:     [][]int{{1200, 0}, {3, 1}},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[2], "1,200")
	assert.Contains(t, lines[5], "1,203")
}

func TestMatrixTable(t *testing.T) {
	var buf bytes.Buffer
	MatrixTable(&buf, views.CorrelationView{
		Labels: []string{"a", "b"},
		Matrix: [][]views.Number{{1, -0.5}, {-0.5, 1}},
	})
	assert.Contains(t, buf.String(), "-0.50")
	assert.Contains(t, buf.String(), "1.00")
}
