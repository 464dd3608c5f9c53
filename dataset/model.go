package dataset

import (
	"math"
	"time"
)

// Boroughs lists the five boroughs in the order the complaint view groups
// them.
var Boroughs = []string{"Brooklyn", "Manhattan", "Queens", "Bronx", "Staten Island"}

// ComplaintTypes is the fixed complaint vocabulary. Labels are matched
// case-sensitively against the Complaint_Type_311 column.
var ComplaintTypes = []string{
	"Asbestos",
	"Indoor Air Quality",
	"Mold",
	"Asbestos/Garbage Nuisance",
	"Indoor Sewage",
	"Cooling Tower",
	"Lead",
}

// YearColumn is the required key column of both yearly series.
const YearColumn = "year"

// Complaint columns expected in the complaint records file.
const (
	ColDateReceived = "Date_Received"
	ColBorough      = "Incident_Address_Borough"
	ColComplaint    = "Complaint_Type_311"
)

// Series is a year-keyed table of numeric columns. Missing cells are NaN.
// A Series is never modified after Load returns it.
type Series struct {
	years   []int
	columns []string
	values  map[string][]float64
}

// NewSeries builds a Series from parallel slices. Every column in values
// must have len(years) entries.
func NewSeries(years []int, columns []string, values map[string][]float64) *Series {
	return &Series{years: years, columns: columns, values: values}
}

// Len returns the number of rows.
func (s *Series) Len() int { return len(s.years) }

// Year returns the year of row i.
func (s *Series) Year(i int) int { return s.years[i] }

// Years returns a copy of the year column in file order.
func (s *Series) Years() []int {
	out := make([]int, len(s.years))
	copy(out, s.years)
	return out
}

// Columns returns the non-year column names in file order.
func (s *Series) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// HasColumn reports whether name is a data column.
func (s *Series) HasColumn(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Value returns the cell at row i of column name, NaN when missing or when
// the column does not exist.
func (s *Series) Value(i int, name string) float64 {
	col, ok := s.values[name]
	if !ok {
		return math.NaN()
	}
	return col[i]
}

// Column returns a copy of a column.
func (s *Series) Column(name string) ([]float64, bool) {
	col, ok := s.values[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(col))
	copy(out, col)
	return out, true
}

// YearBounds returns the smallest and largest year in the series.
func (s *Series) YearBounds() (min, max int, ok bool) {
	if len(s.years) == 0 {
		return 0, 0, false
	}
	min, max = s.years[0], s.years[0]
	for _, y := range s.years[1:] {
		if y < min {
			min = y
		}
		if y > max {
			max = y
		}
	}
	return min, max, true
}

// Complaint is one environmental complaint record. Received is the zero
// time when the source row had no date.
type Complaint struct {
	Received time.Time `json:"received"`
	Borough  string    `json:"borough"`
	Type     string    `json:"type"`
}

// HasDate reports whether the record carries a received date.
func (c Complaint) HasDate() bool { return !c.Received.IsZero() }
