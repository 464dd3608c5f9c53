package dataset

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stanCSV = `,year,new_york_city_population,nyc_consumption_million_gallons_per_day
0,1990.0,0.0,1.0
1,1991.0,0.5,0.5
2,1992.0,1.0,
`

const numCSV = `,year,new_york_city_population,nyc_consumption_million_gallons_per_day,REFUSETONSCOLLECTED
0,1990,7322564,1424.0,NaN
1,1991,7350000,1400.5,3000
2,1992,7380000,,3100
`

const complaintsCSV = `Date_Received,Incident_Address_Borough,Complaint_Type_311
01/15/2015,Brooklyn,Mold
2015-03-02,Queens,Lead
,Bronx,Asbestos
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func paths(dir string) Paths {
	return Paths{
		Standardized: filepath.Join(dir, "stan.csv"),
		Numeric:      filepath.Join(dir, "num.csv"),
		Complaints:   filepath.Join(dir, "complaints.csv"),
	}
}

func TestLoad(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"stan.csv":       stanCSV,
		"num.csv":        numCSV,
		"complaints.csv": complaintsCSV,
	})

	st, err := Load(context.Background(), paths(dir))
	require.NoError(t, err)

	stan := st.Standardized()
	assert.Equal(t, 3, stan.Len())
	assert.Equal(t, []int{1990, 1991, 1992}, stan.Years())
	assert.Equal(t, []string{"new_york_city_population", "nyc_consumption_million_gallons_per_day"}, stan.Columns())
	assert.True(t, math.IsNaN(stan.Value(2, "nyc_consumption_million_gallons_per_day")))

	num := st.Numeric()
	assert.True(t, num.HasColumn("REFUSETONSCOLLECTED"))
	assert.True(t, math.IsNaN(num.Value(0, "REFUSETONSCOLLECTED")))
	assert.Equal(t, 1400.5, num.Value(1, "nyc_consumption_million_gallons_per_day"))

	attrs := st.Attributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, Attribute{Name: "new_york_city_population", Label: "new york city population"}, attrs[0])

	cs := st.Complaints()
	require.Len(t, cs, 3)
	assert.Equal(t, time.Date(2015, 1, 15, 0, 0, 0, 0, time.UTC), cs[0].Received)
	assert.False(t, cs[2].HasDate())
	assert.Equal(t, []int{2015}, st.ComplaintYears())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantIs  error
		wantCol string
	}{
		{
			name:   "missing file",
			files:  map[string]string{"stan.csv": stanCSV, "num.csv": numCSV},
			wantIs: fs.ErrNotExist,
		},
		{
			name: "missing year column",
			files: map[string]string{
				"stan.csv":       "a,b\n1,2\n",
				"num.csv":        numCSV,
				"complaints.csv": complaintsCSV,
			},
			wantIs:  ErrMissingColumn,
			wantCol: YearColumn,
		},
		{
			name: "missing complaint column",
			files: map[string]string{
				"stan.csv":       stanCSV,
				"num.csv":        numCSV,
				"complaints.csv": "Date_Received,Incident_Address_Borough\n01/01/2015,Bronx\n",
			},
			wantIs:  ErrMissingColumn,
			wantCol: ColComplaint,
		},
		{
			name: "column absent from numeric",
			files: map[string]string{
				"stan.csv":       "year,only_here\n1990,0.1\n",
				"num.csv":        numCSV,
				"complaints.csv": complaintsCSV,
			},
			wantIs:  ErrColumnMismatch,
			wantCol: "only_here",
		},
		{
			name: "duplicate year",
			files: map[string]string{
				"stan.csv":       "year,a\n1990,1\n1990,2\n",
				"num.csv":        "year,a\n1990,1\n",
				"complaints.csv": complaintsCSV,
			},
			wantIs: ErrDuplicateYear,
		},
		{
			name: "duplicate column",
			files: map[string]string{
				"stan.csv":       stanCSV,
				"num.csv":        "year,a,a\n1990,1,10\n1991,2,20\n",
				"complaints.csv": complaintsCSV,
			},
			wantIs:  ErrDuplicateColumn,
			wantCol: "a",
		},
		{
			name: "bad date",
			files: map[string]string{
				"stan.csv":       stanCSV,
				"num.csv":        numCSV,
				"complaints.csv": "Date_Received,Incident_Address_Borough,Complaint_Type_311\nyesterday,Bronx,Mold\n",
			},
			wantIs:  ErrBadDate,
			wantCol: ColDateReceived,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, tt.files)
			_, err := Load(context.Background(), paths(dir))
			require.Error(t, err)
			var dle *DataLoadError
			require.True(t, errors.As(err, &dle), "want DataLoadError, got %T", err)
			assert.ErrorIs(t, err, tt.wantIs)
			if tt.wantCol != "" {
				assert.Equal(t, tt.wantCol, dle.Column)
			}
			assert.NotEmpty(t, dle.Path)
		})
	}
}

func TestReadSeriesKeepsUnorderedYears(t *testing.T) {
	s, err := ReadSeries(strings.NewReader("year,a\n2001,1\n1999,2\n2000,3\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{2001, 1999, 2000}, s.Years())
	lo, hi, ok := s.YearBounds()
	assert.True(t, ok)
	assert.Equal(t, 1999, lo)
	assert.Equal(t, 2001, hi)
}

func TestLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"new_york_city_population", "new york city population"},
		{"REFUSETONSCOLLECTED", "refusetonscollected"},
		{"nyc_consumption_million_gallons_per_day", "nyc consumption million gallons per day"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := Label(tt.in); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"03/04/2016", time.Date(2016, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"03/04/2016 01:30:00 PM", time.Date(2016, 3, 4, 13, 30, 0, 0, time.UTC)},
		{"3/4/2016", time.Date(2016, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"1/5/2015", time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"12/25/2015 9:05:00 AM", time.Date(2015, 12, 25, 9, 5, 0, 0, time.UTC)},
		{"1/5/2015 18:30", time.Date(2015, 1, 5, 18, 30, 0, 0, time.UTC)},
		{"2016-03-04", time.Date(2016, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"2016-03-04T10:00:00", time.Date(2016, 3, 4, 10, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"NaT", time.Time{}},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHolderSwap(t *testing.T) {
	a := NewStore(NewSeries(nil, nil, nil), NewSeries(nil, nil, nil), nil)
	b := NewStore(NewSeries(nil, nil, nil), NewSeries(nil, nil, nil), nil)
	h := NewHolder(a)
	assert.Same(t, a, h.Current())
	assert.Same(t, a, h.Swap(b))
	assert.Same(t, b, h.Current())
}
