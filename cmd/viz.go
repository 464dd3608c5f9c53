package cmd

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/zalepa/nycdiscovery/render"
	"github.com/zalepa/nycdiscovery/views"
)

var validViews = []string{"trend", "pairwise", "correlation", "complaints"}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1F77B4"))
	captionStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#6A737D"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#B31B1B"))
)

var vizOpts struct {
	view    string
	columns []string
	x, y    string
	from    int
	to      int
	year    int
}

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Render a dashboard view in the terminal",
	Example: `  nycdiscovery viz --view trend --column new_york_city_population
  nycdiscovery viz --view pairwise --x new_york_city_population --y nyc_consumption_million_gallons_per_day --from 1990 --to 2000
  nycdiscovery viz --view complaints --year 2015`,
	Args: cobra.NoArgs,
	RunE: runViz,
}

func init() {
	f := vizCmd.Flags()
	f.StringVar(&vizOpts.view, "view", "trend", "view to display: "+strings.Join(validViews, ", "))
	f.StringSliceVar(&vizOpts.columns, "column", nil, "trend column (repeatable; default from config)")
	f.StringVar(&vizOpts.x, "x", "", "pairwise x column")
	f.StringVar(&vizOpts.y, "y", "", "pairwise y column")
	f.IntVar(&vizOpts.from, "from", 0, "first year of the comparison range")
	f.IntVar(&vizOpts.to, "to", 0, "end of the comparison range (exclusive)")
	f.IntVar(&vizOpts.year, "year", 0, "complaint year")
}

func runViz(cmd *cobra.Command, args []string) error {
	if !contains(validViews, vizOpts.view) {
		return fmt.Errorf("invalid --view %q; valid options: %s", vizOpts.view, strings.Join(validViews, ", "))
	}
	st, _, err := loadDataset(cmd.Context())
	if err != nil {
		return err
	}
	sel := selectionFromFlags(cmd, cfg.Defaults)
	return writeView(cmd.OutOrStdout(), views.New(st), vizOpts.view, sel)
}

// selectionFromFlags overlays the flags the user set onto defaults.
func selectionFromFlags(cmd *cobra.Command, defaults views.Selection) views.Selection {
	sel := defaults
	f := cmd.Flags()
	if f.Changed("column") {
		sel.Columns = vizOpts.columns
	}
	if f.Changed("x") {
		sel.X = vizOpts.x
	}
	if f.Changed("y") {
		sel.Y = vizOpts.y
	}
	if f.Changed("from") {
		sel.From = vizOpts.from
	}
	if f.Changed("to") {
		sel.To = vizOpts.to
	}
	if f.Changed("year") {
		sel.Year = vizOpts.year
	}
	return sel
}

func writeView(w io.Writer, e *views.Engine, view string, sel views.Selection) error {
	switch view {
	case "trend":
		v, err := e.Trend(sel.Columns)
		if err != nil {
			return err
		}
		writeTrend(w, v)
	case "pairwise":
		v, err := e.Pairwise(sel.X, sel.Y, sel.From, sel.To)
		if err != nil {
			return notice(w, err)
		}
		writePairwise(w, v)
	case "correlation":
		v, err := e.Correlation(sel.X, sel.Y, sel.From, sel.To)
		if err != nil {
			return err
		}
		if v.Rows == 0 {
			return notice(w, &views.NoDataInRangeError{X: sel.X, Y: sel.Y, From: sel.From, To: sel.To})
		}
		fmt.Fprintln(w, titleStyle.Render(v.Title))
		fmt.Fprintln(w)
		render.MatrixTable(w, v)
		fmt.Fprintln(w)
		fmt.Fprintln(w, captionStyle.Render(v.Caption))
	case "complaints":
		v := e.Complaints(sel.Year)
		fmt.Fprintln(w, titleStyle.Render(v.Title))
		fmt.Fprintln(w)
		render.CountTable(w, v)
		fmt.Fprintln(w)
		fmt.Fprintln(w, captionStyle.Render(v.Caption))
		if v.Excluded > 0 {
			fmt.Fprintf(w, "%d of %d records fall outside the complaint vocabulary.\n", v.Excluded, v.Total)
		}
	}
	return nil
}

// notice prints the empty-selection message instead of failing; any other
// error is returned.
func notice(w io.Writer, err error) error {
	if !errors.Is(err, views.ErrNoDataInRange) {
		return err
	}
	fmt.Fprintln(w, noticeStyle.Render(views.Notice(err)))
	return nil
}

// writeTrend prints one sparkline row per series, like a summary table.
func writeTrend(w io.Writer, v views.TrendView) {
	fmt.Fprintln(w, titleStyle.Render(v.Title))
	if len(v.Series) == 0 {
		fmt.Fprintln(w, "(no columns selected)")
		return
	}

	maxName := 10
	for _, s := range v.Series {
		maxName = max(maxName, len(s.Label))
	}
	first, last := yearSpan(v.Series[0].Points)
	fmt.Fprintf(w, "Trend: %d to %d (%d years)\n\n", first, last, len(v.Series[0].Points))

	rowFmt := fmt.Sprintf("%%-%ds  %%10s   %%s\n", maxName)
	fmt.Fprintf(w, rowFmt, "Column", "Latest", "Trend")
	fmt.Fprintln(w, strings.Repeat("─", maxName+2+10+3+len(v.Series[0].Points)))
	for _, s := range v.Series {
		vals := render.SeriesValues(s)
		fmt.Fprintf(w, rowFmt, s.Label, render.FormatCompact(lastNonNaN(vals)), render.Sparkline(vals))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, captionStyle.Render(v.Caption))
}

func writePairwise(w io.Writer, v views.PairwiseView) {
	fmt.Fprintln(w, titleStyle.Render(v.YearX.Label))
	fmt.Fprintln(w)
	render.TextChart(w, v.YearX.Points)
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(v.YearY.Label))
	fmt.Fprintln(w)
	render.TextChart(w, v.YearY.Points)
	fmt.Fprintln(w)
	fmt.Fprintln(w, captionStyle.Render(v.SeriesCaption))

	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(v.Title))
	fmt.Fprintf(w, "%6s  %14s  %14s\n", "year", v.XTitle, v.YTitle)
	for _, p := range v.Scatter.Points {
		fmt.Fprintf(w, "%6s  %14s  %14s\n", p.Label, render.FormatNum(float64(p.X)), render.FormatNum(float64(p.Y)))
	}
	fmt.Fprintln(w, captionStyle.Render(v.ScatterCaption))
}

func yearSpan(points []views.Point) (int, int) {
	if len(points) == 0 {
		return 0, 0
	}
	return int(points[0].X), int(points[len(points)-1].X)
}

func lastNonNaN(vals []float64) float64 {
	for i := len(vals) - 1; i >= 0; i-- {
		if !math.IsNaN(vals[i]) {
			return vals[i]
		}
	}
	return math.NaN()
}
