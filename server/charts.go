package server

import (
	"errors"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"rental-dashboard/models"
)

// Chart names accepted by /charts/{chart}, in dashboard order.
const (
	ChartPets      = "pets"
	ChartArea      = "area"
	ChartFurniture = "furniture"
	ChartRent      = "rent"
	ChartFees      = "fees"
)

// ChartNames lists every panel of the dashboard.
var ChartNames = []string{ChartPets, ChartArea, ChartFurniture, ChartRent, ChartFees}

// ErrUnknownChart is returned for a chart name outside ChartNames.
var ErrUnknownChart = errors.New("unknown chart")

var chartTitles = map[string]string{
	ChartPets:      "Properties that Accept Pets",
	ChartArea:      "Average Area by City",
	ChartFurniture: "Furnished Houses by City",
	ChartRent:      "Average Rent by City",
	ChartFees:      "Average Fees by City",
}

var feeLabels = map[string]string{
	models.ColHOA:           "HOA",
	models.ColPropertyTax:   "Property Tax",
	models.ColFireInsurance: "Fire Insurance",
}

var feeColors = map[string]string{
	models.ColHOA:           "steelblue",
	models.ColPropertyTax:   "darkorange",
	models.ColFireInsurance: "red",
}

// ChartTitle returns the panel heading of a chart.
func ChartTitle(name string) string {
	return chartTitles[name]
}

// ChartNotice returns the text shown instead of a chart: the missing column
// notice, or a no-data message when the selection matched nothing.
// An empty string means the chart can be drawn.
func ChartNotice(name string, r *models.Report) string {
	var notice string
	var empty bool
	switch name {
	case ChartPets:
		notice, empty = r.PetPolicy.Notice, len(r.PetPolicy.Counts) == 0
	case ChartArea:
		notice, empty = r.AreaByCity.Notice, len(r.AreaByCity.Values) == 0
	case ChartFurniture:
		notice, empty = r.Furniture.Notice, len(r.Furniture.Rows) == 0
	case ChartRent:
		notice, empty = r.RentByCity.Notice, len(r.RentByCity.Values) == 0
	case ChartFees:
		notice, empty = r.FeesByCity.Notice, len(r.FeesByCity.Rows) == 0
	}
	if notice != "" {
		return notice
	}
	if empty {
		return "No data for the current selection."
	}
	return ""
}

// ChartRenderer draws the dashboard panels as standalone ECharts pages.
type ChartRenderer struct {
	width  string
	height string
}

// NewChartRenderer creates a ChartRenderer with the canvas size used inside
// the dashboard iframes.
func NewChartRenderer() *ChartRenderer {
	return &ChartRenderer{width: "100%", height: "420px"}
}

// Render writes the named chart for the report to w.
func (c *ChartRenderer) Render(w io.Writer, name string, r *models.Report) error {
	switch name {
	case ChartPets:
		return c.pets(r.PetPolicy).Render(w)
	case ChartArea:
		return c.area(r.AreaByCity).Render(w)
	case ChartFurniture:
		return c.furniture(r.Furniture).Render(w)
	case ChartRent:
		return c.rent(r.RentByCity).Render(w)
	case ChartFees:
		return c.fees(r.FeesByCity).Render(w)
	default:
		return ErrUnknownChart
	}
}

func (c *ChartRenderer) globals(name string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: ChartTitle(name),
			Width:     c.width,
			Height:    c.height,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
	}
}

func (c *ChartRenderer) pets(chart models.PetPolicyChart) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(c.globals(ChartPets)...)
	pie.SetGlobalOptions(charts.WithColorsOpts(opts.Colors{"steelblue", "lightgray"}))

	data := make([]opts.PieData, 0, len(chart.Counts))
	for _, cc := range chart.Counts {
		data = append(data, opts.PieData{Name: cc.Label, Value: cc.Count})
	}
	pie.AddSeries("Listings", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
	)
	return pie
}

// cityBar is a vertical bar chart of one value per city.
func (c *ChartRenderer) cityBar(name, series, color string, values []models.CityValue) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(c.globals(name)...)
	bar.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 45, Interval: "0"}}),
		charts.WithGridOpts(opts.Grid{ContainLabel: opts.Bool(true)}),
	)

	cities := make([]string, 0, len(values))
	data := make([]opts.BarData, 0, len(values))
	for _, v := range values {
		cities = append(cities, v.City)
		data = append(data, opts.BarData{Value: round2(v.Value)})
	}
	bar.SetXAxis(cities).AddSeries(series, data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
	)
	return bar
}

func (c *ChartRenderer) area(chart models.CityMeansChart) *charts.Bar {
	bar := c.cityBar(ChartArea, "Average area (m²)", "navy", chart.Values)
	bar.SetGlobalOptions(charts.WithYAxisOpts(opts.YAxis{Name: "m²"}))
	return bar
}

// rent is drawn horizontally so the most expensive city sits on top.
func (c *ChartRenderer) rent(chart models.CityMeansChart) *charts.Bar {
	reversed := make([]models.CityValue, len(chart.Values))
	for i, v := range chart.Values {
		reversed[len(chart.Values)-1-i] = v
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(c.globals(ChartRent)...)
	bar.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Name: "R$"}),
		charts.WithGridOpts(opts.Grid{ContainLabel: opts.Bool(true)}),
	)

	cities := make([]string, 0, len(reversed))
	data := make([]opts.BarData, 0, len(reversed))
	for _, v := range reversed {
		cities = append(cities, v.City)
		data = append(data, opts.BarData{Value: round2(v.Value)})
	}
	bar.SetXAxis(cities).AddSeries("Average rent (R$)", data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "steelblue"}),
	)
	bar.XYReversal()
	return bar
}

func (c *ChartRenderer) furniture(chart models.FurnitureChart) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(c.globals(ChartFurniture)...)
	bar.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 45, Interval: "0"}}),
		charts.WithGridOpts(opts.Grid{ContainLabel: opts.Bool(true)}),
		charts.WithColorsOpts(opts.Colors{"mediumslateblue", "silver"}),
	)

	cities := make([]string, 0, len(chart.Rows))
	for _, row := range chart.Rows {
		cities = append(cities, row.City)
	}
	bar.SetXAxis(cities)

	for _, status := range chart.Statuses {
		data := make([]opts.BarData, 0, len(chart.Rows))
		for _, row := range chart.Rows {
			data = append(data, opts.BarData{Value: row.Counts[status]})
		}
		bar.AddSeries(models.FurnitureStatus(status).Label(), data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	}
	return bar
}

func (c *ChartRenderer) fees(chart models.FeesChart) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(c.globals(ChartFees)...)
	bar.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 45, Interval: "0"}}),
		charts.WithGridOpts(opts.Grid{ContainLabel: opts.Bool(true)}),
	)

	cities := make([]string, 0, len(chart.Rows))
	for _, row := range chart.Rows {
		cities = append(cities, row.City)
	}
	bar.SetXAxis(cities)

	for _, col := range chart.Columns {
		data := make([]opts.BarData, 0, len(chart.Rows))
		for _, row := range chart.Rows {
			v, ok := row.Means[col]
			if !ok {
				data = append(data, opts.BarData{Value: "-"})
				continue
			}
			data = append(data, opts.BarData{Value: round2(v)})
		}
		bar.AddSeries(feeLabels[col], data,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: feeColors[col]}),
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	}
	return bar
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
