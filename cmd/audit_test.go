package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/nycdiscovery/dataset"
)

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Mold", "MOLD"},
		{"  mold ", "MOLD"},
		{"Indoor  Air   Quality", "INDOOR AIR QUALITY"},
		{"indoor_air_quality", "INDOOR AIR QUALITY"},
		{"Asbestos / Garbage Nuisance", "ASBESTOS/GARBAGE NUISANCE"},
		{"Asbestos & Garbage Nuisance", "ASBESTOS/GARBAGE NUISANCE"},
		{"STATEN ISLAND.", "STATEN ISLAND"},
		// Words are not rewritten.
		{"Staten Is", "STATEN IS"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeLabel(tt.input), "normalizeLabel(%q)", tt.input)
	}
}

func complaint(date, borough, typ string) dataset.Complaint {
	c := dataset.Complaint{Borough: borough, Type: typ}
	if date != "" {
		c.Received, _ = time.Parse("2006-01-02", date)
	}
	return c
}

func TestFindVariants(t *testing.T) {
	records := []dataset.Complaint{
		complaint("2019-01-05", "Brooklyn", "Mold"),
		complaint("2019-02-05", "BROOKLYN", "mold"),
		complaint("2018-03-05", "BROOKLYN", "Lead"),
		complaint("", "Queens", "Noise"),
		complaint("2017-04-05", "Queens", "Indoor air quality"),
	}

	got := findVariants(records)
	want := []labelVariant{
		{field: "type", label: "Indoor air quality", canonical: "Indoor Air Quality", count: 1, years: []int{2017}},
		{field: "type", label: "Noise", canonical: "", count: 1},
		{field: "type", label: "mold", canonical: "Mold", count: 1, years: []int{2019}},
		{field: "borough", label: "BROOKLYN", canonical: "Brooklyn", count: 2, years: []int{2018, 2019}},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(labelVariant{})); diff != "" {
		t.Errorf("findVariants mismatch (-want +got):\n%s", diff)
	}
}

func TestFindVariants_AllCanonical(t *testing.T) {
	var records []dataset.Complaint
	for _, b := range dataset.Boroughs {
		for _, typ := range dataset.ComplaintTypes {
			records = append(records, complaint("2019-06-01", b, typ))
		}
	}
	assert.Empty(t, findVariants(records))
}

func TestFormatYearRange(t *testing.T) {
	tests := []struct {
		years []int
		want  string
	}{
		{nil, "no dated records"},
		{[]int{2019}, "2019 (1 year)"},
		{[]int{2015, 2016, 2019}, "2015 to 2019 (3 years)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatYearRange(tt.years))
	}
}

func TestChooseRenames(t *testing.T) {
	variants := []labelVariant{
		{field: "type", label: "mold", canonical: "Mold", count: 3},
		{field: "type", label: "Noise", count: 1},
		{field: "type", label: "lead", canonical: "Lead", count: 2},
		{field: "borough", label: "QUEENS", canonical: "Queens", count: 1},
	}

	tests := []struct {
		name      string
		input     string
		acceptAll bool
		want      map[renameKey]string
	}{
		{
			name:  "answer each",
			input: "y\nn\ny\n",
			want: map[renameKey]string{
				{"type", "mold"}:      "Mold",
				{"borough", "QUEENS"}: "Queens",
			},
		},
		{
			name:  "all after first",
			input: "n\na\n",
			want: map[renameKey]string{
				{"type", "lead"}:      "Lead",
				{"borough", "QUEENS"}: "Queens",
			},
		},
		{
			name:  "input ends early",
			input: "y\n",
			want:  map[renameKey]string{{"type", "mold"}: "Mold"},
		},
		{
			name:      "accept all flag",
			acceptAll: true,
			want: map[renameKey]string{
				{"type", "mold"}:      "Mold",
				{"type", "lead"}:      "Lead",
				{"borough", "QUEENS"}: "Queens",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var prompt strings.Builder
			got := chooseRenames(strings.NewReader(tt.input), &prompt, variants, tt.acceptAll)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, prompt.String(), "Noise")
		})
	}
}

func TestRewriteComplaintsKeepsOtherColumns(t *testing.T) {
	src := "Unique_Key,Date_Received,Incident_Address_Borough,Complaint_Type_311,Notes\n" +
		"101,1/5/2019,BROOKLYN,mold,\"damp, basement\"\n" +
		"102,,Queens, Lead ,\n" +
		"103,2/7/2019,Bronx,Noise\n"
	renames := map[renameKey]string{
		{"type", "mold"}:        "Mold",
		{"type", "Lead"}:        "Lead",
		{"borough", "BROOKLYN"}: "Brooklyn",
	}

	var out strings.Builder
	n, err := rewriteComplaints(strings.NewReader(src), &out, renames)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want := "Unique_Key,Date_Received,Incident_Address_Borough,Complaint_Type_311,Notes\n" +
		"101,1/5/2019,Brooklyn,Mold,\"damp, basement\"\n" +
		"102,,Queens,Lead,\n" +
		"103,2/7/2019,Bronx,Noise\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("rewritten CSV mismatch (-want +got):\n%s", diff)
	}

	got, err := dataset.ReadComplaints(strings.NewReader(out.String()))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Brooklyn", got[0].Borough)
	assert.Equal(t, "Mold", got[0].Type)
}

func TestRewriteComplaintsMissingColumn(t *testing.T) {
	var out strings.Builder
	_, err := rewriteComplaints(strings.NewReader("Date_Received,Complaint_Type_311\n1/5/2019,Mold\n"), &out, nil)
	assert.ErrorContains(t, err, "borough")
}

func TestWriteFixedComplaints(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "complaints.csv")
	require.NoError(t, os.WriteFile(srcPath, []byte("Date_Received,Incident_Address_Borough,Complaint_Type_311,Extra\n1/5/2019,Queens,mold,x\n"), 0o644))
	dstPath := filepath.Join(dir, "cleaned.csv")

	n, err := writeFixedComplaints(srcPath, dstPath, map[renameKey]string{{"type", "mold"}: "Mold"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	data, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	assert.Equal(t, "Date_Received,Incident_Address_Borough,Complaint_Type_311,Extra\n1/5/2019,Queens,Mold,x\n", string(data))
}
