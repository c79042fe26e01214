package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumn is returned when the dataset lacks a column an operation needs.
var ErrMissingColumn = errors.New("missing column")

// MissingColumnError wraps ErrMissingColumn with the column names that were absent.
func MissingColumnError(cols ...string) error {
	return fmt.Errorf("%w: %s", ErrMissingColumn, quoteJoin(cols))
}

// MissingColumnNotice is the text shown in place of a chart whose columns are absent.
func MissingColumnNotice(cols ...string) string {
	if len(cols) == 1 {
		return fmt.Sprintf("Column %s is not present in the dataset.", quoteJoin(cols))
	}
	return fmt.Sprintf("Columns %s are not present in the dataset.", quoteJoin(cols))
}

func quoteJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = "'" + c + "'"
	}
	return strings.Join(quoted, ", ")
}

// CategoryCount is the number of listings carrying one categorical value.
type CategoryCount struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CityValue is a per-city aggregate.
type CityValue struct {
	City  string  `json:"city"`
	Value float64 `json:"value"`
}

// FurnitureRow holds the furniture cross-tab counts of one city.
type FurnitureRow struct {
	City   string         `json:"city"`
	Counts map[string]int `json:"counts"`
}

// FeeRow holds the mean fees of one city. A NaN-free mean is always present
// for every fee column the row reports.
type FeeRow struct {
	City  string             `json:"city"`
	Means map[string]float64 `json:"means"`
}

// PetPolicyChart is the pie chart of listings by animal policy.
type PetPolicyChart struct {
	Counts []CategoryCount `json:"counts"`
	Notice string          `json:"notice,omitempty"`
}

// CityMeansChart is a bar chart of one mean per city.
type CityMeansChart struct {
	Column string      `json:"column"`
	Values []CityValue `json:"values"`
	Notice string      `json:"notice,omitempty"`
}

// FurnitureChart is the grouped bar chart of furniture status by city.
type FurnitureChart struct {
	Statuses []string       `json:"statuses"`
	Rows     []FurnitureRow `json:"rows"`
	Notice   string         `json:"notice,omitempty"`
}

// FeesChart is the grouped bar chart of mean fees by city.
type FeesChart struct {
	Columns []string `json:"columns"`
	Rows    []FeeRow `json:"rows"`
	Notice  string   `json:"notice,omitempty"`
}

// Report is everything the dashboard shows for one city selection.
type Report struct {
	Selected     []string       `json:"selected"`
	TotalRows    int            `json:"totalRows"`
	FilteredRows int            `json:"filteredRows"`
	PetPolicy    PetPolicyChart `json:"petPolicy"`
	AreaByCity   CityMeansChart `json:"areaByCity"`
	Furniture    FurnitureChart `json:"furnitureByCity"`
	RentByCity   CityMeansChart `json:"rentByCity"`
	FeesByCity   FeesChart      `json:"feesByCity"`
}

// Empty reports whether the selection matched no listings.
func (r *Report) Empty() bool {
	return r.FilteredRows == 0
}
