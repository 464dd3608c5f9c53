package render

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/zalepa/nycdiscovery/views"
)

// Sparkline renders values as a row of block characters. NaN renders as a
// blank so gaps stay visible.
func Sparkline(values []float64) string {
	blocks := []rune("▁▂▃▄▅▆▇█")
	n := len(blocks)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return strings.Repeat(" ", len(values))
	}

	spread := hi - lo
	var sb strings.Builder
	for _, v := range values {
		if math.IsNaN(v) {
			sb.WriteRune(' ')
			continue
		}
		idx := n / 2
		if spread > 0 {
			idx = min(int((v-lo)/spread*float64(n-1)), n-1)
		}
		sb.WriteRune(blocks[idx])
	}
	return sb.String()
}

// SeriesValues returns the Y values of s.
func SeriesValues(s views.Series) []float64 {
	vals := make([]float64, len(s.Points))
	for i, p := range s.Points {
		vals[i] = float64(p.Y)
	}
	return vals
}

// TextChart draws points as a dotted line chart on a character grid. X
// values label the horizontal axis as integers.
func TextChart(w io.Writer, points []views.Point) {
	var pts []views.Point
	for _, p := range points {
		if p.X.Valid() && p.Y.Valid() {
			pts = append(pts, p)
		}
	}
	if len(pts) == 0 {
		fmt.Fprintln(w, "(no data)")
		return
	}

	const height = 15
	n := len(pts)
	colWidth := min(max((100-10)/n, 3), 8)

	minVal, maxVal := float64(pts[0].Y), float64(pts[0].Y)
	for _, p := range pts {
		minVal = math.Min(minVal, float64(p.Y))
		maxVal = math.Max(maxVal, float64(p.Y))
	}
	valRange := maxVal - minVal
	if valRange == 0 {
		valRange = 1
		minVal -= 0.5
	}

	rows := make([]int, n)
	for i, p := range pts {
		r := int(math.Round((float64(p.Y) - minVal) / valRange * float64(height-1)))
		rows[i] = min(max(r, 0), height-1)
	}

	totalWidth := n * colWidth
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", totalWidth))
	}
	for i := 0; i < n; i++ {
		col := i*colWidth + colWidth/2
		grid[rows[i]][col] = '●'
		if i == n-1 {
			continue
		}
		end := (i+1)*colWidth + colWidth/2
		for c := col + 1; c < end; c++ {
			t := float64(c-col) / float64(end-col)
			r := int(math.Round(float64(rows[i]) + t*float64(rows[i+1]-rows[i])))
			r = min(max(r, 0), height-1)
			if grid[r][c] == ' ' {
				grid[r][c] = '·'
			}
		}
	}

	yLabels := make(map[int]string)
	for i := 0; i < 5; i++ {
		row := int(math.Round(float64(i) / 4.0 * float64(height-1)))
		yLabels[row] = FormatCompact(minVal + float64(row)/float64(height-1)*valRange)
	}
	for r := height - 1; r >= 0; r-- {
		fmt.Fprintf(w, "%8s │%s\n", yLabels[r], string(grid[r]))
	}
	fmt.Fprintf(w, "%8s └%s\n", "", strings.Repeat("─", totalWidth))

	labelEvery := 1
	if colWidth < 8 {
		labelEvery = (8 + colWidth - 1) / colWidth
	}
	xLine := []byte(strings.Repeat(" ", totalWidth))
	for i := 0; i < n; i += labelEvery {
		label := strconv.Itoa(int(pts[i].X))
		pos := max(i*colWidth+colWidth/2-len(label)/2, 0)
		for j := 0; j < len(label) && pos+j < totalWidth; j++ {
			xLine[pos+j] = label[j]
		}
	}
	fmt.Fprintf(w, "%8s  %s\n", "", string(xLine))
}

// MatrixTable writes a correlation matrix as an aligned text table.
func MatrixTable(w io.Writer, v views.CorrelationView) {
	width := 10
	for _, l := range v.Labels {
		width = max(width, len(l))
	}
	fmt.Fprintf(w, "%-*s", width+2, "")
	for _, l := range v.Labels {
		fmt.Fprintf(w, "%*s", width+2, l)
	}
	fmt.Fprintln(w)
	for i, row := range v.Matrix {
		fmt.Fprintf(w, "%-*s", width+2, v.Labels[i])
		for _, val := range row {
			fmt.Fprintf(w, "%*s", width+2, cellText(val))
		}
		fmt.Fprintln(w)
	}
}

// CountTable writes complaint counts with one row per category and one
// column per borough, plus a total row.
func CountTable(w io.Writer, v views.ComplaintView) {
	nameWidth := 10
	for _, c := range v.Categories {
		nameWidth = max(nameWidth, len(c))
	}
	colWidth := 6
	for _, b := range v.Boroughs {
		colWidth = max(colWidth, len(b))
	}
	rule := strings.Repeat("─", nameWidth+(colWidth+2)*len(v.Boroughs))

	fmt.Fprintf(w, "%-*s", nameWidth, "Type")
	for _, b := range v.Boroughs {
		fmt.Fprintf(w, "  %*s", colWidth, b)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)

	totals := make([]int, len(v.Boroughs))
	for ci, c := range v.Categories {
		fmt.Fprintf(w, "%-*s", nameWidth, c)
		for bi := range v.Boroughs {
			n := v.Counts[ci][bi]
			totals[bi] += n
			fmt.Fprintf(w, "  %*s", colWidth, FormatNum(float64(n)))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-*s", nameWidth, "Total")
	for _, t := range totals {
		fmt.Fprintf(w, "  %*s", colWidth, FormatNum(float64(t)))
	}
	fmt.Fprintln(w)
}

// FormatNum formats v with thousands separators, or "- -" for NaN.
func FormatNum(v float64) string {
	if math.IsNaN(v) {
		return "- -"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		s := strconv.FormatInt(int64(math.Abs(v)), 10)
		if v < 0 {
			return "-" + addCommas(s)
		}
		return addCommas(s)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func addCommas(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var sb strings.Builder
	pre := n % 3
	if pre > 0 {
		sb.WriteString(s[:pre])
		sb.WriteByte(',')
	}
	for i := pre; i < n; i += 3 {
		sb.WriteString(s[i : i+3])
		if i+3 < n {
			sb.WriteByte(',')
		}
	}
	return sb.String()
}

// FormatCompact abbreviates large magnitudes with k and M suffixes and
// keeps two decimals for values below one.
func FormatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 0, 64) + "k"
	case abs < 1 && abs > 0:
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}
