package views

import (
	"math"
	"strconv"
)

// Number is a float64 that encodes NaN and infinities as JSON null, so
// missing cells and undefined correlations reach the client as gaps.
type Number float64

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// Valid reports whether n holds a finite value.
func (n Number) Valid() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Point is one chart coordinate. Label carries hover text, e.g. the year
// of a scatter point.
type Point struct {
	X     Number `json:"x"`
	Y     Number `json:"y"`
	Label string `json:"label,omitempty"`
}

// Series is a named run of points drawn as a line or as markers.
type Series struct {
	Name   string  `json:"name"`
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

// TrendView overlays standardized columns against year.
type TrendView struct {
	Title   string   `json:"title"`
	XTitle  string   `json:"xTitle"`
	YTitle  string   `json:"yTitle"`
	Series  []Series `json:"series"`
	Caption string   `json:"caption"`
}

// PairwiseView compares two numeric columns over a year range.
type PairwiseView struct {
	X       string `json:"x"`
	Y       string `json:"y"`
	XTitle  string `json:"xTitle"`
	YTitle  string `json:"yTitle"`
	From    int    `json:"from"`
	To      int    `json:"to"`
	MinYear int    `json:"minYear"`
	MaxYear int    `json:"maxYear"`
	Rows    int    `json:"rows"`

	Title   string `json:"title"`
	Scatter Series `json:"scatter"`
	YearX   Series `json:"yearX"`
	YearY   Series `json:"yearY"`

	ScatterCaption string `json:"scatterCaption"`
	SeriesCaption  string `json:"seriesCaption"`
}

// CorrelationView is a symmetric Pearson matrix over two columns.
type CorrelationView struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Labels  []string   `json:"labels"`
	Matrix  [][]Number `json:"matrix"`
	Defined bool       `json:"defined"`
	Rows    int        `json:"rows"`
	Caption string     `json:"caption"`
}

// ComplaintView is the dense category × borough count matrix for a year.
type ComplaintView struct {
	Year       int      `json:"year"`
	Title      string   `json:"title"`
	Caption    string   `json:"caption"`
	XTitle     string   `json:"xTitle"`
	YTitle     string   `json:"yTitle"`
	Categories []string `json:"categories"`
	Boroughs   []string `json:"boroughs"`
	// Counts is indexed [category][borough].
	Counts [][]int `json:"counts"`

	// Total counts every record received in Year; Total equals the matrix
	// sum plus Excluded.
	Total            int            `json:"total"`
	Excluded         int            `json:"excluded"`
	ExcludedTypes    map[string]int `json:"excludedTypes,omitempty"`
	ExcludedBoroughs map[string]int `json:"excludedBoroughs,omitempty"`
}

// Count returns the cell for category and borough, 0 for labels outside
// the view.
func (v ComplaintView) Count(category, borough string) int {
	ci, bi := indexOf(v.Categories, category), indexOf(v.Boroughs, borough)
	if ci < 0 || bi < 0 {
		return 0
	}
	return v.Counts[ci][bi]
}

// Sum returns the total over all cells.
func (v ComplaintView) Sum() int {
	n := 0
	for _, row := range v.Counts {
		for _, c := range row {
			n += c
		}
	}
	return n
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
