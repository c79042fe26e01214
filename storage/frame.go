package storage

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"rental-dashboard/models"
)

// columnType is the series type a dataset column loads as: floats for the
// numeric columns, strings for everything else.
func columnType(name string) series.Type {
	for _, col := range models.NumericColumns {
		if col == name {
			return series.Float
		}
	}
	return series.String
}

func stringType(string) series.Type { return series.String }

// loadOptions types the known numeric columns as floats so unparsable cells
// become NaN instead of turning the whole column into strings. Only cells
// that fail to parse as numbers are NaN: a city literally named "NA" stays a
// city.
func loadOptions() []dataframe.LoadOption {
	types := make(map[string]series.Type, len(models.NumericColumns)+4)
	for _, col := range models.NumericColumns {
		types[col] = series.Float
	}
	types[models.ColCity] = series.String
	types[models.ColAnimal] = series.String
	types[models.ColFurniture] = series.String
	types[models.ColFloor] = series.String

	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.WithTypes(types),
		dataframe.NaNValues([]string{}),
	}
}

func rawLoadOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
	}
}

// ReadFrame parses CSV data into a dataframe using the dataset's column types.
func ReadFrame(r io.Reader) dataframe.DataFrame {
	return readCSV(r, columnType, loadOptions()...)
}

// ReadRawFrame parses CSV data keeping every cell as a string, for cleaning
// before import.
func ReadRawFrame(r io.Reader) dataframe.DataFrame {
	return readCSV(r, stringType, rawLoadOptions()...)
}

func readCSV(r io.Reader, typeOf func(string) series.Type, opts ...dataframe.LoadOption) dataframe.DataFrame {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return dataframe.DataFrame{Err: fmt.Errorf("read csv: %w", err)}
	}
	return loadRecords(records, typeOf, opts...)
}

// loadRecords is dataframe.LoadRecords, except that a header with no rows
// loads as an empty frame with typed columns instead of an error.
func loadRecords(records [][]string, typeOf func(string) series.Type, opts ...dataframe.LoadOption) dataframe.DataFrame {
	if len(records) != 1 {
		return dataframe.LoadRecords(records, opts...)
	}

	header := records[0]
	cols := make([]series.Series, len(header))
	for i, name := range header {
		cols[i] = series.New([]string{}, typeOf(name), name)
	}
	return dataframe.New(cols...)
}

// listingHeader is the column order used when listings are turned back into a frame.
var listingHeader = []string{
	models.ColCity, models.ColArea, models.ColRooms, models.ColBathroom,
	models.ColParkingSpaces, models.ColFloor, models.ColAnimal, models.ColFurniture,
	models.ColHOA, models.ColRentAmount, models.ColPropertyTax, models.ColFireInsurance,
	models.ColTotal,
}

// ListingsToFrame builds a dataframe with the dataset's CSV columns from typed listings.
func ListingsToFrame(listings []*models.Listing) dataframe.DataFrame {
	records := make([][]string, 0, len(listings)+1)
	records = append(records, listingHeader)
	for _, l := range listings {
		records = append(records, []string{
			l.City,
			formatNumber(l.Area),
			formatNumber(l.Rooms),
			formatNumber(l.Bathrooms),
			formatNumber(l.ParkingSpaces),
			l.Floor,
			string(l.Animal),
			string(l.Furniture),
			formatNumber(l.HOA),
			formatNumber(l.RentAmount),
			formatNumber(l.PropertyTax),
			formatNumber(l.FireInsurance),
			formatNumber(l.Total),
		})
	}
	return loadRecords(records, columnType, loadOptions()...)
}

// MissingColumns returns the subset of cols that the frame does not have.
func MissingColumns(df dataframe.DataFrame, cols ...string) []string {
	present := make(map[string]struct{}, df.Ncol())
	for _, name := range df.Names() {
		present[name] = struct{}{}
	}

	var missing []string
	for _, c := range cols {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// Table renders df as a header plus string rows, printing floats in their
// shortest form and NaN cells as empty strings.
func Table(df dataframe.DataFrame) ([]string, [][]string) {
	header := df.Names()
	rows := make([][]string, df.Nrow())
	for i := range rows {
		rows[i] = make([]string, len(header))
	}

	for j, name := range header {
		col := df.Col(name)
		if col.Type() == series.Float {
			for i, v := range col.Float() {
				if math.IsNaN(v) {
					continue
				}
				rows[i][j] = formatFloat(v)
			}
			continue
		}
		for i, v := range col.Records() {
			rows[i][j] = v
		}
	}
	return header, rows
}

// formatNumber writes NULL as an empty cell, which loads back as NaN.
func formatNumber(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Float64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
