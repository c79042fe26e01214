package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-dashboard/models"
	"rental-dashboard/storage"
	"rental-dashboard/utils"
)

const listingsCSV = `city,area,animal,furniture,hoa (R$),rent amount (R$),property tax (R$),fire insurance (R$)
São Paulo,70,acept,furnished,2000,3000,200,40
São Paulo,130,not acept,not furnished,1000,5000,400,60
Porto Alegre,80,acept,not furnished,500,2000,100,30
Campinas,50,acept,not furnished,300,1000,50,15
Porto Alegre,60,not acept,furnished,700,2400,60,34
Campinas,,acept,furnished,,1500,70,20
`

func newTestLogger() *utils.Logger {
	return utils.NewLoggerWithOptions(utils.LoggerOptions{Writer: &bytes.Buffer{}})
}

func loadFrame(t *testing.T, csv string) dataframe.DataFrame {
	t.Helper()
	df := storage.ReadFrame(strings.NewReader(csv))
	require.NoError(t, df.Err)
	return df
}

func cityValues(values []models.CityValue) map[string]float64 {
	out := make(map[string]float64, len(values))
	for _, v := range values {
		out[v.City] = v.Value
	}
	return out
}

func TestCitiesInFirstAppearanceOrder(t *testing.T) {
	p := NewPipeline(newTestLogger())

	cities, err := p.Cities(loadFrame(t, listingsCSV))
	require.NoError(t, err)
	assert.Equal(t, []string{"São Paulo", "Porto Alegre", "Campinas"}, cities)
}

func TestCitiesMissingColumn(t *testing.T) {
	p := NewPipeline(newTestLogger())

	_, err := p.Cities(loadFrame(t, "area,animal\n10,acept\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMissingColumn))
	assert.Contains(t, err.Error(), "'city'")
}

func TestFilterKeepsOnlySelectedCities(t *testing.T) {
	p := NewPipeline(newTestLogger())
	df := loadFrame(t, listingsCSV)

	selections := [][]string{
		{"São Paulo"},
		{"Campinas", "Porto Alegre"},
		{"São Paulo", "Porto Alegre", "Campinas"},
		{"Recife"},
		{},
	}
	for _, sel := range selections {
		filtered, err := p.Filter(df, sel)
		require.NoError(t, err)

		allowed := make(map[string]bool)
		for _, c := range sel {
			allowed[c] = true
		}
		for _, city := range filtered.Col(models.ColCity).Records() {
			assert.True(t, allowed[city], "city %q leaked into selection %v", city, sel)
		}
	}
	assert.Equal(t, 6, df.Nrow(), "filter must not mutate the source frame")
}

func TestRunAggregatesAllCities(t *testing.T) {
	p := NewPipeline(newTestLogger())

	r, err := p.Run(loadFrame(t, listingsCSV), []string{"São Paulo", "Porto Alegre", "Campinas"})
	require.NoError(t, err)

	assert.Equal(t, 6, r.TotalRows)
	assert.Equal(t, 6, r.FilteredRows)
	assert.False(t, r.Empty())

	assert.Equal(t, []models.CategoryCount{
		{Value: "acept", Label: "Accepts pets", Count: 4},
		{Value: "not acept", Label: "No pets", Count: 2},
	}, r.PetPolicy.Counts)

	// Campinas has one blank area cell, which is skipped.
	assert.Equal(t, []models.CityValue{
		{City: "Campinas", Value: 50},
		{City: "Porto Alegre", Value: 70},
		{City: "São Paulo", Value: 100},
	}, r.AreaByCity.Values)

	assert.Equal(t, []models.CityValue{
		{City: "São Paulo", Value: 4000},
		{City: "Porto Alegre", Value: 2200},
		{City: "Campinas", Value: 1250},
	}, r.RentByCity.Values)

	assert.Equal(t, []string{"furnished", "not furnished"}, r.Furniture.Statuses)
	require.Len(t, r.Furniture.Rows, 3)
	assert.Equal(t, "Campinas", r.Furniture.Rows[0].City)
	assert.Equal(t, map[string]int{"furnished": 1, "not furnished": 1}, r.Furniture.Rows[0].Counts)

	require.Len(t, r.FeesByCity.Rows, 3)
	campinas := r.FeesByCity.Rows[0]
	assert.Equal(t, "Campinas", campinas.City)
	assert.InDelta(t, 300, campinas.Means[models.ColHOA], 1e-9)
	assert.InDelta(t, 60, campinas.Means[models.ColPropertyTax], 1e-9)
	assert.InDelta(t, 17.5, campinas.Means[models.ColFireInsurance], 1e-9)
	sp := r.FeesByCity.Rows[2]
	assert.InDelta(t, 1500, sp.Means[models.ColHOA], 1e-9)
}

func TestRunSingleCity(t *testing.T) {
	p := NewPipeline(newTestLogger())

	r, err := p.Run(loadFrame(t, listingsCSV), []string{"Porto Alegre"})
	require.NoError(t, err)

	assert.Equal(t, 2, r.FilteredRows)
	assert.Equal(t, map[string]float64{"Porto Alegre": 70}, cityValues(r.AreaByCity.Values))
	assert.Equal(t, map[string]float64{"Porto Alegre": 2200}, cityValues(r.RentByCity.Values))
	// Equal counts fall back to value order.
	require.Len(t, r.PetPolicy.Counts, 2)
	assert.Equal(t, "acept", r.PetPolicy.Counts[0].Value)
	assert.Equal(t, "not acept", r.PetPolicy.Counts[1].Value)
}

func TestRunAllCitiesMatchesFullDataset(t *testing.T) {
	p := NewPipeline(newTestLogger())
	df := loadFrame(t, listingsCSV)
	cities, err := p.Cities(df)
	require.NoError(t, err)

	r, err := p.Run(df, cities)
	require.NoError(t, err)

	// Recompute rent means straight from the unfiltered rows.
	sums := map[string]float64{}
	counts := map[string]float64{}
	rents := df.Col(models.ColRentAmount).Float()
	for i, city := range df.Col(models.ColCity).Records() {
		sums[city] += rents[i]
		counts[city]++
	}
	want := map[string]float64{}
	for city := range sums {
		want[city] = sums[city] / counts[city]
	}
	assert.Equal(t, want, cityValues(r.RentByCity.Values))
	assert.Equal(t, df.Nrow(), r.FilteredRows)
}

func TestRunEmptySelection(t *testing.T) {
	p := NewPipeline(newTestLogger())

	for _, sel := range [][]string{nil, {}, {"Recife"}} {
		r, err := p.Run(loadFrame(t, listingsCSV), sel)
		require.NoError(t, err)

		assert.True(t, r.Empty())
		assert.Empty(t, r.PetPolicy.Counts)
		assert.Empty(t, r.AreaByCity.Values)
		assert.Empty(t, r.Furniture.Rows)
		assert.Empty(t, r.RentByCity.Values)
		assert.Empty(t, r.FeesByCity.Rows)
		assert.Empty(t, r.PetPolicy.Notice)
		assert.NotNil(t, r.AreaByCity.Values, "empty results encode as [] not null")
	}
}

func TestRunMissingColumnsDegradeToNotices(t *testing.T) {
	p := NewPipeline(newTestLogger())
	csv := `city,area,furniture,rent amount (R$),property tax (R$)
Campinas,50,furnished,1000,50
Recife,70,not furnished,1800,90
`
	r, err := p.Run(loadFrame(t, csv), []string{"Campinas", "Recife"})
	require.NoError(t, err)

	assert.Contains(t, r.PetPolicy.Notice, "'animal'")
	assert.Empty(t, r.PetPolicy.Counts)

	assert.Contains(t, r.FeesByCity.Notice, "'hoa (R$)'")
	assert.Contains(t, r.FeesByCity.Notice, "'fire insurance (R$)'")
	assert.NotContains(t, r.FeesByCity.Notice, "property tax")

	assert.Empty(t, r.AreaByCity.Notice)
	assert.Len(t, r.AreaByCity.Values, 2)
	assert.Empty(t, r.RentByCity.Notice)
	assert.Len(t, r.Furniture.Rows, 2)
}

func TestRunMissingCityColumn(t *testing.T) {
	p := NewPipeline(newTestLogger())

	r, err := p.Run(loadFrame(t, "area,animal\n10,acept\n"), []string{"Campinas"})
	require.NoError(t, err)

	for _, notice := range []string{
		r.PetPolicy.Notice, r.AreaByCity.Notice, r.Furniture.Notice,
		r.RentByCity.Notice, r.FeesByCity.Notice,
	} {
		assert.Equal(t, "Column 'city' is not present in the dataset.", notice)
	}
}

func TestRunMissingFurnitureFillsZeroCells(t *testing.T) {
	p := NewPipeline(newTestLogger())
	csv := `city,furniture
Campinas,furnished
Campinas,furnished
Recife,not furnished
`
	r, err := p.Run(loadFrame(t, csv), []string{"Campinas", "Recife"})
	require.NoError(t, err)

	require.Len(t, r.Furniture.Rows, 2)
	assert.Equal(t, map[string]int{"furnished": 2, "not furnished": 0}, r.Furniture.Rows[0].Counts)
	assert.Equal(t, map[string]int{"furnished": 0, "not furnished": 1}, r.Furniture.Rows[1].Counts)
}

func TestImportedListingsAggregateLikeTheCSV(t *testing.T) {
	p := NewPipeline(newTestLogger())

	raw := storage.ReadRawFrame(strings.NewReader(listingsCSV))
	require.NoError(t, raw.Err)
	listings, err := NewCleaner(newTestLogger()).Clean(raw)
	require.NoError(t, err)
	imported := storage.ListingsToFrame(listings)
	require.NoError(t, imported.Err)

	for _, sel := range [][]string{{"Campinas"}, {"São Paulo", "Porto Alegre", "Campinas"}} {
		want, err := p.Run(loadFrame(t, listingsCSV), sel)
		require.NoError(t, err)
		got, err := p.Run(imported, sel)
		require.NoError(t, err)

		assert.Equal(t, want.FilteredRows, got.FilteredRows, "%v", sel)
		assert.Equal(t, want.PetPolicy.Counts, got.PetPolicy.Counts, "%v", sel)
		assert.Equal(t, want.AreaByCity.Values, got.AreaByCity.Values, "%v", sel)
		assert.Equal(t, want.Furniture.Rows, got.Furniture.Rows, "%v", sel)
		assert.Equal(t, want.RentByCity.Values, got.RentByCity.Values, "%v", sel)
		assert.Equal(t, want.FeesByCity.Rows, got.FeesByCity.Rows, "%v", sel)
	}

	r, err := p.Run(imported, []string{"Campinas"})
	require.NoError(t, err)
	assert.Equal(t, []models.CityValue{{City: "Campinas", Value: 50}}, r.AreaByCity.Values,
		"a blank area is skipped, not averaged in as zero")
	assert.Equal(t, 300.0, r.FeesByCity.Rows[0].Means[models.ColHOA])
}

func TestRunWithRowsReturnsTheFilteredFrame(t *testing.T) {
	p := NewPipeline(newTestLogger())

	r, rows, err := p.RunWithRows(loadFrame(t, listingsCSV), []string{"Porto Alegre"})
	require.NoError(t, err)
	assert.Equal(t, r.FilteredRows, rows.Nrow())
	assert.Equal(t, []string{"Porto Alegre", "Porto Alegre"}, rows.Col(models.ColCity).Records())

	r, rows, err = p.RunWithRows(loadFrame(t, "area\n10\n"), []string{"Campinas"})
	require.NoError(t, err)
	assert.NotEmpty(t, r.AreaByCity.Notice)
	assert.Zero(t, rows.Ncol())
}

func TestCitiesNamedLikeMissingValues(t *testing.T) {
	p := NewPipeline(newTestLogger())
	df := loadFrame(t, "city,animal\nNA,acept\nCampinas,acept\nNA,not acept\nNaN,acept\n")

	cities, err := p.Cities(df)
	require.NoError(t, err)
	assert.Equal(t, []string{"NA", "Campinas"}, cities)

	r, err := p.Run(df, cities)
	require.NoError(t, err)
	assert.Equal(t, 3, r.FilteredRows, "every selectable row is kept when all cities are selected")

	total := 0
	for _, c := range r.PetPolicy.Counts {
		total += c.Count
	}
	assert.Equal(t, 3, total)
}

func TestRunFurnitureSkipsCitiesWithoutValues(t *testing.T) {
	p := NewPipeline(newTestLogger())
	csv := `city,furniture
Campinas,furnished
Recife,
Recife,
`
	r, err := p.Run(loadFrame(t, csv), []string{"Campinas", "Recife"})
	require.NoError(t, err)

	require.Len(t, r.Furniture.Rows, 1)
	assert.Equal(t, "Campinas", r.Furniture.Rows[0].City)
	assert.Equal(t, []string{"furnished"}, r.Furniture.Statuses)
}

func TestRunOverHeaderOnlyDataset(t *testing.T) {
	p := NewPipeline(newTestLogger())
	df := loadFrame(t, "city,area,animal,furniture,hoa (R$),rent amount (R$),property tax (R$),fire insurance (R$)\n")

	cities, err := p.Cities(df)
	require.NoError(t, err)
	assert.Empty(t, cities)

	r, err := p.Run(df, cities)
	require.NoError(t, err)
	assert.True(t, r.Empty())
	assert.Empty(t, r.AreaByCity.Notice, "columns are present, there is just no data")
}
