// Package report lays a dashboard out as a multi-page PDF and reads the
// result back to check it.
package report

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/zalepa/nycdiscovery/render"
	"github.com/zalepa/nycdiscovery/views"
)

const (
	pageWidth  = 8.5 * vg.Inch
	pageHeight = 11 * vg.Inch
	pdfMargin  = 0.75 * vg.Inch

	captionHeight = 0.9 * vg.Inch
	rowHeight     = 0.30 * vg.Inch
	nameColWidth  = 3.2 * vg.Inch
)

var chartBlue = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// Pages is the number of pages Write emits for any dashboard: a summary
// followed by one page per chart group.
const Pages = 5

// WriteFile writes the report for d to path.
func WriteFile(path, title string, d views.Dashboard) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, title, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write renders d as a PDF. Views that carry a notice get a placeholder
// page so page numbering is stable.
func Write(w io.Writer, title string, d views.Dashboard) error {
	// The bundled font has no em or en dash glyphs.
	title = strings.NewReplacer("—", "-", "–", "-").Replace(title)

	c := vgpdf.New(pageWidth, pageHeight)
	drawSummary(c, title, d)

	pages := []func() ([]*plot.Plot, string, error){
		func() ([]*plot.Plot, string, error) {
			if d.Trend.View == nil {
				return nil, d.Trend.Notice, nil
			}
			p, err := render.Trend(*d.Trend.View)
			return []*plot.Plot{p}, d.Trend.View.Caption, err
		},
		func() ([]*plot.Plot, string, error) {
			if d.Pairwise.View == nil {
				return nil, d.Pairwise.Notice, nil
			}
			p, err := render.Scatter(*d.Pairwise.View)
			return []*plot.Plot{p}, d.Pairwise.View.ScatterCaption, err
		},
		func() ([]*plot.Plot, string, error) {
			if d.Pairwise.View == nil {
				return nil, d.Pairwise.Notice, nil
			}
			v := d.Pairwise.View
			px, err := render.YearSeries(v.YearX, v.X)
			if err != nil {
				return nil, "", err
			}
			py, err := render.YearSeries(v.YearY, v.Y)
			return []*plot.Plot{px, py}, v.SeriesCaption, err
		},
		func() ([]*plot.Plot, string, error) {
			var plots []*plot.Plot
			var captions []string
			if d.Correlation.View != nil {
				p, err := render.Heatmap(*d.Correlation.View)
				if err != nil {
					return nil, "", err
				}
				plots = append(plots, p)
				captions = append(captions, d.Correlation.View.Caption)
			} else {
				plots = append(plots, render.Placeholder(d.Correlation.Notice))
			}
			if d.Complaints.View != nil {
				p, err := render.StackedBars(*d.Complaints.View)
				if err != nil {
					return nil, "", err
				}
				plots = append(plots, p)
				captions = append(captions, d.Complaints.View.Caption)
			}
			return plots, strings.Join(captions, "  "), nil
		},
	}
	for i, page := range pages {
		plots, caption, err := page()
		if err != nil {
			return fmt.Errorf("page %d: %w", i+2, err)
		}
		if len(plots) == 0 {
			plots = []*plot.Plot{render.Placeholder(caption)}
			caption = ""
		}
		c.NextPage()
		drawChartPage(c, plots, caption)
	}

	_, err := c.WriteTo(w)
	return err
}

// drawChartPage stacks plots vertically above a wrapped caption.
func drawChartPage(c *vgpdf.Canvas, plots []*plot.Plot, caption string) {
	dc := draw.New(c)
	area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)

	lines := wrap(caption, 95)
	for i, l := range lines {
		fillText(area, l, vg.Points(9), area.Min.X, area.Min.Y+captionHeight-vg.Length(i+1)*vg.Points(12), color.Gray{Y: 60})
	}
	charts := draw.Crop(area, 0, 0, captionHeight, 0)

	tiles := draw.Tiles{Rows: len(plots), Cols: 1, PadY: vg.Points(18)}
	grid := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		grid[i] = []*plot.Plot{p}
	}
	canvases := plot.Align(grid, tiles, charts)
	for i, p := range plots {
		p.Draw(canvases[i][0])
	}
}

// drawSummary writes the title page: selection, one sparkline row per
// trend series and the complaint totals.
func drawSummary(c *vgpdf.Canvas, title string, d views.Dashboard) {
	dc := draw.New(c)
	area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)
	usableW := area.Max.X - area.Min.X

	y := area.Max.Y - vg.Points(14)
	fillText(area, title, vg.Points(14), area.Min.X, y, color.Black)
	y -= 0.35 * vg.Inch
	sel := d.Selection
	fillText(area, fmt.Sprintf("Comparison: %s vs %s, years %d to %d. Complaints: %d.",
		sel.X, sel.Y, sel.From, sel.To, sel.Year), vg.Points(10), area.Min.X, y, color.Gray{Y: 100})

	y -= 0.45 * vg.Inch
	fillText(area, "Series", vg.Points(10), area.Min.X, y, color.Gray{Y: 80})
	fillText(area, "Trend", vg.Points(10), area.Min.X+nameColWidth, y, color.Gray{Y: 80})
	y -= vg.Points(6)
	strokeHLine(area, area.Min.X, area.Min.X+usableW, y, color.Gray{Y: 180})
	y -= vg.Points(4)

	if d.Trend.View != nil {
		for _, s := range d.Trend.View.Series {
			fillText(area, s.Label, vg.Points(9), area.Min.X, y-rowHeight*0.65, color.Black)
			spark := draw.Canvas{
				Canvas: area.Canvas,
				Rectangle: vg.Rectangle{
					Min: vg.Point{X: area.Min.X + nameColWidth, Y: y - rowHeight + vg.Points(2)},
					Max: vg.Point{X: area.Max.X, Y: y - vg.Points(1)},
				},
			}
			drawSparkline(spark, render.SeriesValues(s))
			y -= rowHeight
		}
	} else {
		fillText(area, d.Trend.Notice, vg.Points(9), area.Min.X, y-rowHeight*0.65, color.Black)
		y -= rowHeight
	}

	if cv := d.Complaints.View; cv != nil {
		y -= 0.4 * vg.Inch
		fillText(area, cv.Title, vg.Points(10), area.Min.X, y, color.Gray{Y: 80})
		y -= vg.Points(6)
		strokeHLine(area, area.Min.X, area.Min.X+usableW, y, color.Gray{Y: 180})
		for bi, b := range cv.Boroughs {
			total := 0
			for ci := range cv.Categories {
				total += cv.Counts[ci][bi]
			}
			y -= rowHeight
			fillText(area, b, vg.Points(9), area.Min.X, y, color.Black)
			fillText(area, render.FormatNum(float64(total)), vg.Points(9), area.Min.X+nameColWidth, y, color.Black)
		}
		if cv.Excluded > 0 {
			y -= rowHeight
			fillText(area, fmt.Sprintf("%d records outside the vocabulary were left out.", cv.Excluded),
				vg.Points(9), area.Min.X, y, color.Gray{Y: 100})
		}
	}
}

func drawSparkline(c draw.Canvas, vals []float64) {
	var pts plotter.XYs
	for i, v := range vals {
		if !math.IsNaN(v) {
			pts = append(pts, plotter.XY{X: float64(i), Y: v})
		}
	}
	if len(pts) < 2 {
		return
	}

	p := plot.New()
	p.HideAxes()
	p.BackgroundColor = color.Transparent
	line, err := plotter.NewLine(pts)
	if err != nil {
		return
	}
	line.Color = chartBlue
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.X.Min = 0
	p.X.Max = float64(len(vals) - 1)
	p.Draw(c)
}

func fillText(c draw.Canvas, txt string, size vg.Length, x, y vg.Length, clr color.Color) {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
	}
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: x, Y: y}, txt)
}

func strokeHLine(c draw.Canvas, x0, x1, y vg.Length, clr color.Color) {
	c.StrokeLine2(draw.LineStyle{
		Color: clr,
		Width: vg.Points(0.5),
	}, x0, y, x1, y)
}

// wrap breaks s into lines of at most width runes on word boundaries.
func wrap(s string, width int) []string {
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(s) {
		if cur.Len() > 0 && cur.Len()+1+len(word) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
