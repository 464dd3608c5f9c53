package views

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/nycdiscovery/dataset"
)

const (
	pop   = "new_york_city_population"
	water = "nyc_consumption_million_gallons_per_day"
	flat  = "flat_column"
)

// testStore covers 1985..2004 with a gap in the water column for 1987.
func testStore(t *testing.T, complaints []dataset.Complaint) *dataset.Store {
	t.Helper()
	var years []int
	num := map[string][]float64{pop: nil, water: nil, flat: nil}
	stan := map[string][]float64{pop: nil, water: nil, flat: nil}
	for y := 1985; y <= 2004; y++ {
		years = append(years, y)
		p := 7000000 + float64(y-1985)*10000
		w := 1500 - float64(y-1985)*12
		if y == 1987 {
			w = math.NaN()
		}
		num[pop] = append(num[pop], p)
		num[water] = append(num[water], w)
		num[flat] = append(num[flat], 42)
		stan[pop] = append(stan[pop], float64(y-1985)/19)
		stan[water] = append(stan[water], 1-float64(y-1985)/19)
		stan[flat] = append(stan[flat], 0)
	}
	cols := []string{pop, water, flat}
	return dataset.NewStore(
		dataset.NewSeries(years, cols, stan),
		dataset.NewSeries(years, cols, num),
		complaints,
	)
}

func TestTrendOneSeriesPerColumn(t *testing.T) {
	e := New(testStore(t, nil))
	tests := [][]string{
		{pop},
		{pop, water},
		{water, pop, flat},
	}
	for _, sel := range tests {
		v, err := e.Trend(sel)
		require.NoError(t, err)
		require.Len(t, v.Series, len(sel))
		for i, s := range v.Series {
			assert.Equal(t, sel[i], s.Name)
			assert.Len(t, s.Points, e.Store().Standardized().Len())
		}
	}
}

func TestTrendEmptyAndDuplicates(t *testing.T) {
	e := New(testStore(t, nil))

	v, err := e.Trend(nil)
	require.NoError(t, err)
	assert.Empty(t, v.Series)

	v, err = e.Trend([]string{water, pop, water})
	require.NoError(t, err)
	require.Len(t, v.Series, 2)
	assert.Equal(t, water, v.Series[0].Name)
	assert.Equal(t, "nyc consumption million gallons per day", v.Series[0].Label)
}

func TestTrendUnknownColumn(t *testing.T) {
	e := New(testStore(t, nil))
	_, err := e.Trend([]string{pop, "nope"})
	var uc *UnknownColumnError
	require.True(t, errors.As(err, &uc))
	assert.Equal(t, "nope", uc.Column)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestPairwiseExcludesUpperBound(t *testing.T) {
	e := New(testStore(t, nil))
	v, err := e.Pairwise(pop, water, 1990, 2000)
	require.NoError(t, err)

	var years []int
	for _, p := range v.YearX.Points {
		years = append(years, int(p.X))
	}
	want := []int{1990, 1991, 1992, 1993, 1994, 1995, 1996, 1997, 1998, 1999}
	if diff := cmp.Diff(want, years); diff != "" {
		t.Errorf("years mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1990, v.MinYear)
	assert.Equal(t, 1999, v.MaxYear)
	assert.Len(t, v.Scatter.Points, 10)
	assert.Len(t, v.YearY.Points, 10)
	assert.Equal(t, "1990", v.Scatter.Points[0].Label)
	assert.Contains(t, v.ScatterCaption, "from 1990 to 1999")
}

func TestPairwiseResolvesBoundsFromData(t *testing.T) {
	e := New(testStore(t, nil))
	tests := []struct {
		name             string
		from, to         int
		wantMin, wantMax int
		wantRows         int
	}{
		{"missing cell skipped at lower edge", 1987, 1990, 1988, 1989, 2},
		{"range wider than data", 1900, 2100, 1985, 2004, 19},
		{"single year", 2004, 2005, 2004, 2004, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := e.Pairwise(pop, water, tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMin, v.MinYear)
			assert.Equal(t, tt.wantMax, v.MaxYear)
			assert.Equal(t, tt.wantRows, v.Rows)
		})
	}
}

func TestPairwiseNoData(t *testing.T) {
	e := New(testStore(t, nil))
	for _, r := range [][2]int{{2000, 2000}, {2010, 2020}, {1987, 1988}, {1999, 1990}} {
		_, err := e.Pairwise(pop, water, r[0], r[1])
		var nd *NoDataInRangeError
		require.True(t, errors.As(err, &nd), "range %v: got %v", r, err)
		assert.Equal(t, r[0], nd.From)
		assert.Equal(t, "No data for this selection.", Notice(err))
	}
}

func TestCorrelationSymmetricUnitDiagonal(t *testing.T) {
	e := New(testStore(t, nil))
	v, err := e.Correlation(pop, water, 1985, 2005)
	require.NoError(t, err)
	require.True(t, v.Defined)
	require.Len(t, v.Matrix, 2)
	assert.Equal(t, Number(1), v.Matrix[0][0])
	assert.Equal(t, Number(1), v.Matrix[1][1])
	assert.Equal(t, v.Matrix[0][1], v.Matrix[1][0])
	// population rises while consumption falls linearly.
	assert.InDelta(t, -1, float64(v.Matrix[0][1]), 1e-9)
}

func TestCorrelationConstantColumn(t *testing.T) {
	e := New(testStore(t, nil))
	v, err := e.Correlation(pop, flat, 1985, 2005)
	require.NoError(t, err)
	assert.False(t, v.Defined)
	assert.Equal(t, Number(1), v.Matrix[0][0])
	assert.True(t, math.IsNaN(float64(v.Matrix[1][1])))
	assert.True(t, math.IsNaN(float64(v.Matrix[0][1])))

	b, err := json.Marshal(v.Matrix)
	require.NoError(t, err)
	assert.Equal(t, `[[1,null],[null,null]]`, string(b))
}

func TestPearsonMatrixTooFewRows(t *testing.T) {
	m := PearsonMatrix([][]float64{{1}, {2}})
	for _, row := range m {
		for _, v := range row {
			assert.True(t, math.IsNaN(v))
		}
	}
}

func complaint(date, borough, typ string) dataset.Complaint {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return dataset.Complaint{Received: t, Borough: borough, Type: typ}
}

func TestComplaintsScenario(t *testing.T) {
	records := []dataset.Complaint{
		complaint("2015-01-03", "Brooklyn", "Mold"),
		complaint("2015-05-03", "Brooklyn", "Mold"),
		complaint("2015-11-30", "Brooklyn", "Mold"),
		complaint("2016-01-01", "Brooklyn", "Lead"),
		complaint("2015-02-02", "Queens", "Indoor Air Quality"),
		complaint("2015-02-02", "Queens", "indoor air quality"),
		complaint("2015-02-02", "Staten Island", "Cooling Tower"),
		complaint("2015-02-02", "Unspecified", "Asbestos"),
		{Borough: "Bronx", Type: "Asbestos"},
	}
	v := New(testStore(t, records)).Complaints(2015)

	assert.Equal(t, 3, v.Count("Mold", "Brooklyn"))
	assert.Equal(t, 0, v.Count("Lead", "Brooklyn"))
	assert.Equal(t, 1, v.Count("Indoor Air Quality", "Queens"))
	assert.Equal(t, 1, v.Count("Cooling Tower", "Staten Island"))

	require.Len(t, v.Counts, len(dataset.ComplaintTypes))
	for _, row := range v.Counts {
		require.Len(t, row, len(dataset.Boroughs))
		for _, c := range row {
			assert.GreaterOrEqual(t, c, 0)
		}
	}

	assert.Equal(t, 7, v.Total)
	assert.Equal(t, 2, v.Excluded)
	assert.Equal(t, v.Total, v.Sum()+v.Excluded)
	assert.Equal(t, map[string]int{"indoor air quality": 1}, v.ExcludedTypes)
	assert.Equal(t, map[string]int{"Unspecified": 1}, v.ExcludedBoroughs)
	assert.Equal(t, "Overall 2015 Complaint Types by Borough", v.Title)
	assert.Equal(t, "Figure 6 : Different types of environmental complaints during 2015.", v.Caption)
}

func TestComplaintsEmptyYearIsDense(t *testing.T) {
	v := New(testStore(t, nil)).Complaints(2019)
	assert.Equal(t, 0, v.Sum())
	require.Len(t, v.Counts, 7)
	for _, row := range v.Counts {
		assert.Equal(t, []int{0, 0, 0, 0, 0}, row)
	}
}

func TestDashboardNotices(t *testing.T) {
	e := New(testStore(t, nil))
	d := e.Dashboard(Selection{
		Columns: []string{pop},
		X:       pop,
		Y:       water,
		From:    2010,
		To:      2018,
		Year:    2019,
	})
	require.NotNil(t, d.Trend.View)
	assert.Nil(t, d.Pairwise.View)
	assert.Equal(t, "No data for this selection.", d.Pairwise.Notice)
	assert.Nil(t, d.Correlation.View)
	assert.NotEmpty(t, d.Correlation.Notice)
	require.NotNil(t, d.Complaints.View)

	d = e.Dashboard(Selection{Columns: []string{"bogus"}, X: pop, Y: water, From: 1985, To: 2005})
	assert.Equal(t, `Column "bogus" is not available.`, d.Trend.Notice)
	require.NotNil(t, d.Pairwise.View)
	require.NotNil(t, d.Correlation.View)
}

func TestNumberJSON(t *testing.T) {
	b, err := json.Marshal([]Number{1.5, Number(math.NaN()), Number(math.Inf(1)), 0})
	require.NoError(t, err)
	assert.Equal(t, `[1.5,null,null,0]`, string(b))
}

func TestAxisTitle(t *testing.T) {
	assert.Equal(t, "nyc consumption million gallons", axisTitle(water))
	assert.Equal(t, "year", axisTitle("year"))
}
