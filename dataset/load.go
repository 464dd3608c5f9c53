package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrMissingColumn   = errors.New("required column missing")
	ErrDuplicateYear   = errors.New("duplicate year")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrBadYear         = errors.New("year is not an integer")
	ErrBadDate         = errors.New("unrecognised date")
	ErrColumnMismatch  = errors.New("standardized column absent from numeric series")
)

// Paths names the three input files.
type Paths struct {
	Standardized string
	Numeric      string
	Complaints   string
}

// Load reads all three datasets and validates that every standardized
// column also exists in the numeric series.
func Load(ctx context.Context, p Paths) (*Store, error) {
	var (
		stan, num  *Series
		complaints []Complaint
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stan, err = ReadSeriesFile(p.Standardized)
		return err
	})
	g.Go(func() error {
		var err error
		num, err = ReadSeriesFile(p.Numeric)
		return err
	})
	g.Go(func() error {
		var err error
		complaints, err = ReadComplaintsFile(p.Complaints)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, col := range stan.columns {
		if !num.HasColumn(col) {
			return nil, &DataLoadError{Path: p.Numeric, Column: col, Err: ErrColumnMismatch}
		}
	}
	return NewStore(stan, num, complaints), nil
}

// ReadSeriesFile opens path and parses it with ReadSeries.
func ReadSeriesFile(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	defer f.Close()
	s, err := ReadSeries(f)
	if err != nil {
		var dle *DataLoadError
		if errors.As(err, &dle) {
			dle.Path = path
			return nil, dle
		}
		return nil, &DataLoadError{Path: path, Err: err}
	}
	return s, nil
}

// ReadSeries parses a yearly CSV. A leading pandas index column (empty or
// "Unnamed: 0" header) is dropped. Every other column except "year" is
// parsed as a float; unparseable cells become NaN.
func ReadSeries(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	yearIdx := -1
	var colIdx []int
	var columns []string
	seenCols := make(map[string]bool)
	for i, h := range header {
		switch {
		case h == YearColumn:
			if yearIdx >= 0 {
				return nil, &DataLoadError{Column: h, Err: ErrDuplicateColumn}
			}
			yearIdx = i
		case i == 0 && isIndexHeader(h):
			// pandas index column
		default:
			if seenCols[h] {
				return nil, &DataLoadError{Column: h, Err: ErrDuplicateColumn}
			}
			seenCols[h] = true
			colIdx = append(colIdx, i)
			columns = append(columns, h)
		}
	}
	if yearIdx < 0 {
		return nil, &DataLoadError{Column: YearColumn, Err: ErrMissingColumn}
	}

	values := make(map[string][]float64, len(columns))
	var years []int
	seen := make(map[int]bool)
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataLoadError{Row: row, Err: err}
		}
		year, err := parseYear(field(rec, yearIdx))
		if err != nil {
			return nil, &DataLoadError{Row: row, Column: YearColumn, Err: err}
		}
		if seen[year] {
			return nil, &DataLoadError{Row: row, Column: YearColumn, Err: fmt.Errorf("%w: %d", ErrDuplicateYear, year)}
		}
		seen[year] = true
		years = append(years, year)
		for j, idx := range colIdx {
			values[columns[j]] = append(values[columns[j]], parseNumber(field(rec, idx)))
		}
	}
	for _, c := range columns {
		if values[c] == nil {
			values[c] = []float64{}
		}
	}
	return NewSeries(years, columns, values), nil
}

// ReadComplaintsFile opens path and parses it with ReadComplaints.
func ReadComplaintsFile(path string) ([]Complaint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	defer f.Close()
	c, err := ReadComplaints(f)
	if err != nil {
		var dle *DataLoadError
		if errors.As(err, &dle) {
			dle.Path = path
			return nil, dle
		}
		return nil, &DataLoadError{Path: path, Err: err}
	}
	return c, nil
}

// ReadComplaints parses complaint records. Borough and complaint type are
// kept verbatim (trimmed) so vocabulary matching stays case-sensitive.
func ReadComplaints(r io.Reader) ([]Complaint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range []string{ColDateReceived, ColBorough, ColComplaint} {
		if _, ok := idx[col]; !ok {
			return nil, &DataLoadError{Column: col, Err: ErrMissingColumn}
		}
	}

	var out []Complaint
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataLoadError{Row: row, Err: err}
		}
		received, err := ParseDate(field(rec, idx[ColDateReceived]))
		if err != nil {
			return nil, &DataLoadError{Row: row, Column: ColDateReceived, Err: err}
		}
		out = append(out, Complaint{
			Received: received,
			Borough:  strings.TrimSpace(field(rec, idx[ColBorough])),
			Type:     strings.TrimSpace(field(rec, idx[ColComplaint])),
		})
	}
	return out, nil
}

// dateLayouts are tried in order. Month-first slash dates match the NYC
// Open Data exports; month and day may be unpadded.
var dateLayouts = []string{
	"1/2/2006",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	time.RFC3339,
}

// ParseDate parses a received date. An empty cell yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || isMissing(s) {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}

func parseYear(s string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %q", ErrBadYear, s)
	}
	return int(v), nil
}

// parseNumber returns NaN for missing or unparseable cells.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || isMissing(s) {
		return math.NaN()
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "nan", "na", "n/a", "null", "none", "nat":
		return true
	}
	return false
}

func isIndexHeader(h string) bool {
	return h == "" || strings.HasPrefix(h, "Unnamed:")
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
