package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"rental-dashboard/models"
	"rental-dashboard/storage"
	"rental-dashboard/utils"
)

// Pipeline filters the listings dataset by city and computes the dashboard aggregations.
// It holds no state between runs; every call works on the frame it is given.
type Pipeline struct {
	logger *utils.Logger
}

// NewPipeline creates a Pipeline with the given logger.
func NewPipeline(logger *utils.Logger) *Pipeline {
	return &Pipeline{logger: logger}
}

// Cities returns the distinct non-empty city values in order of first appearance.
func (p *Pipeline) Cities(df dataframe.DataFrame) ([]string, error) {
	if missing := storage.MissingColumns(df, models.ColCity); len(missing) > 0 {
		return nil, models.MissingColumnError(missing...)
	}

	seen := make(map[string]struct{})
	cities := make([]string, 0)
	for _, c := range present(df.Col(models.ColCity)) {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		cities = append(cities, c)
	}
	return cities, nil
}

// Filter returns the rows whose city is one of cities. An empty selection
// yields an empty frame.
func (p *Pipeline) Filter(df dataframe.DataFrame, cities []string) (dataframe.DataFrame, error) {
	if missing := storage.MissingColumns(df, models.ColCity); len(missing) > 0 {
		return dataframe.DataFrame{}, models.MissingColumnError(missing...)
	}

	filtered := df.Filter(dataframe.F{
		Colname:    models.ColCity,
		Comparator: series.In,
		Comparando: append([]string{}, cities...),
	})
	if filtered.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("pipeline: filter by city: %w", filtered.Err)
	}
	return filtered, nil
}

// Run filters df by cities and computes every aggregation over the subset.
// Absent columns never fail the run: the affected aggregation carries a notice instead.
func (p *Pipeline) Run(df dataframe.DataFrame, cities []string) (*models.Report, error) {
	report, _, err := p.RunWithRows(df, cities)
	return report, err
}

// RunWithRows is Run that also hands back the filtered rows the report was
// computed from. Without a city column there is nothing to filter on and the
// returned frame has no columns.
func (p *Pipeline) RunWithRows(df dataframe.DataFrame, cities []string) (*models.Report, dataframe.DataFrame, error) {
	if df.Err != nil {
		return nil, dataframe.DataFrame{}, fmt.Errorf("pipeline: dataset: %w", df.Err)
	}

	report := &models.Report{
		Selected:   append([]string{}, cities...),
		TotalRows:  df.Nrow(),
		PetPolicy:  models.PetPolicyChart{Counts: []models.CategoryCount{}},
		AreaByCity: models.CityMeansChart{Column: models.ColArea, Values: []models.CityValue{}},
		Furniture:  models.FurnitureChart{Statuses: []string{}, Rows: []models.FurnitureRow{}},
		RentByCity: models.CityMeansChart{Column: models.ColRentAmount, Values: []models.CityValue{}},
		FeesByCity: models.FeesChart{Columns: append([]string{}, models.FeeColumns...), Rows: []models.FeeRow{}},
	}

	if missing := storage.MissingColumns(df, models.ColCity); len(missing) > 0 {
		notice := models.MissingColumnNotice(missing...)
		report.PetPolicy.Notice = notice
		report.AreaByCity.Notice = notice
		report.Furniture.Notice = notice
		report.RentByCity.Notice = notice
		report.FeesByCity.Notice = notice
		p.logger.Warn("[pipeline] Dataset has no %q column, every chart degraded to a notice", models.ColCity)
		return report, dataframe.DataFrame{}, nil
	}

	filtered, err := p.Filter(df, cities)
	if err != nil {
		return nil, dataframe.DataFrame{}, err
	}
	report.FilteredRows = filtered.Nrow()

	var groups map[string]dataframe.DataFrame
	if filtered.Nrow() > 0 {
		groups, err = groupByCity(filtered)
		if err != nil {
			return nil, dataframe.DataFrame{}, err
		}
	}

	report.PetPolicy = petPolicy(filtered)
	report.AreaByCity = cityMeans(filtered, groups, models.ColArea)
	report.Furniture = furnitureByCity(filtered, groups)
	report.RentByCity = cityMeans(filtered, groups, models.ColRentAmount)
	sortByValueDesc(report.RentByCity.Values)
	report.FeesByCity = feesByCity(filtered, groups)

	p.logger.Debug("[pipeline] %d of %d listings selected across %d cities",
		report.FilteredRows, report.TotalRows, len(groups))
	return report, filtered, nil
}

// groupByCity splits df into one frame per city value.
func groupByCity(df dataframe.DataFrame) (map[string]dataframe.DataFrame, error) {
	grouped := df.GroupBy(models.ColCity)
	if grouped.Err != nil {
		return nil, fmt.Errorf("pipeline: group by city: %w", grouped.Err)
	}

	byCity := make(map[string]dataframe.DataFrame)
	for _, sub := range grouped.GetGroups() {
		if sub.Nrow() == 0 {
			continue
		}
		city := sub.Col(models.ColCity).Elem(0).String()
		byCity[city] = sub
	}
	return byCity, nil
}

// present returns the non-empty values of a categorical column, skipping NaN
// cells a filter could never select.
func present(col series.Series) []string {
	values := make([]string, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		e := col.Elem(i)
		if e.IsNA() || e.String() == "" {
			continue
		}
		values = append(values, e.String())
	}
	return values
}

func sortedKeys(groups map[string]dataframe.DataFrame) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mean is the arithmetic mean of the column, skipping NaN cells.
// ok is false when the column holds no numeric value at all.
func mean(df dataframe.DataFrame, col string) (value float64, ok bool) {
	var sum float64
	var n int
	for _, v := range df.Col(col).Float() {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func petPolicy(df dataframe.DataFrame) models.PetPolicyChart {
	chart := models.PetPolicyChart{Counts: []models.CategoryCount{}}
	if missing := storage.MissingColumns(df, models.ColAnimal); len(missing) > 0 {
		chart.Notice = models.MissingColumnNotice(missing...)
		return chart
	}

	counts := make(map[string]int)
	for _, v := range present(df.Col(models.ColAnimal)) {
		counts[v]++
	}
	for v, n := range counts {
		chart.Counts = append(chart.Counts, models.CategoryCount{
			Value: v,
			Label: models.AnimalPolicy(v).Label(),
			Count: n,
		})
	}
	sort.Slice(chart.Counts, func(i, j int) bool {
		if chart.Counts[i].Count != chart.Counts[j].Count {
			return chart.Counts[i].Count > chart.Counts[j].Count
		}
		return chart.Counts[i].Value < chart.Counts[j].Value
	})
	return chart
}

func cityMeans(df dataframe.DataFrame, groups map[string]dataframe.DataFrame, col string) models.CityMeansChart {
	chart := models.CityMeansChart{Column: col, Values: []models.CityValue{}}
	if missing := storage.MissingColumns(df, col); len(missing) > 0 {
		chart.Notice = models.MissingColumnNotice(missing...)
		return chart
	}

	for _, city := range sortedKeys(groups) {
		if v, ok := mean(groups[city], col); ok {
			chart.Values = append(chart.Values, models.CityValue{City: city, Value: v})
		}
	}
	return chart
}

func sortByValueDesc(values []models.CityValue) {
	sort.SliceStable(values, func(i, j int) bool {
		if values[i].Value != values[j].Value {
			return values[i].Value > values[j].Value
		}
		return values[i].City < values[j].City
	})
}

func furnitureByCity(df dataframe.DataFrame, groups map[string]dataframe.DataFrame) models.FurnitureChart {
	chart := models.FurnitureChart{Statuses: []string{}, Rows: []models.FurnitureRow{}}
	if missing := storage.MissingColumns(df, models.ColFurniture); len(missing) > 0 {
		chart.Notice = models.MissingColumnNotice(missing...)
		return chart
	}

	statusSet := make(map[string]struct{})
	for _, city := range sortedKeys(groups) {
		row := models.FurnitureRow{City: city, Counts: make(map[string]int)}
		for _, v := range present(groups[city].Col(models.ColFurniture)) {
			row.Counts[v]++
			statusSet[v] = struct{}{}
		}
		// A city with no furniture value at all has no place in the cross-tab.
		if len(row.Counts) == 0 {
			continue
		}
		chart.Rows = append(chart.Rows, row)
	}

	for s := range statusSet {
		chart.Statuses = append(chart.Statuses, s)
	}
	sort.Strings(chart.Statuses)

	// Cross-tab cells with no listings are reported as zero.
	for _, row := range chart.Rows {
		for _, s := range chart.Statuses {
			if _, ok := row.Counts[s]; !ok {
				row.Counts[s] = 0
			}
		}
	}
	return chart
}

func feesByCity(df dataframe.DataFrame, groups map[string]dataframe.DataFrame) models.FeesChart {
	chart := models.FeesChart{Columns: append([]string{}, models.FeeColumns...), Rows: []models.FeeRow{}}
	if missing := storage.MissingColumns(df, models.FeeColumns...); len(missing) > 0 {
		chart.Notice = models.MissingColumnNotice(missing...)
		return chart
	}

	for _, city := range sortedKeys(groups) {
		row := models.FeeRow{City: city, Means: make(map[string]float64)}
		for _, col := range models.FeeColumns {
			if v, ok := mean(groups[city], col); ok {
				row.Means[col] = v
			}
		}
		if len(row.Means) > 0 {
			chart.Rows = append(chart.Rows, row)
		}
	}
	return chart
}
