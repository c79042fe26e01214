package services

import (
	"fmt"
	"io"
	"math"
	"strings"

	"rental-dashboard/models"
)

// ReportPrinter renders a Report as a colored terminal summary.
type ReportPrinter struct {
	out io.Writer
}

// NewReportPrinter creates a ReportPrinter writing to out.
func NewReportPrinter(out io.Writer) *ReportPrinter {
	return &ReportPrinter{out: out}
}

func (p *ReportPrinter) Print(r *models.Report) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)
	w := p.out

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🏠 RENTAL LISTINGS DASHBOARD\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Selection\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Cities   : %s\n", strings.Join(r.Selected, ", "))
	fmt.Fprintf(w, "  Listings : \033[1m%d\033[0m of %d\n", r.FilteredRows, r.TotalRows)
	fmt.Fprintln(w)

	if r.Empty() && r.PetPolicy.Notice == "" {
		fmt.Fprintf(w, "  No listings match the current selection\n")
		fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
		return
	}

	p.section("Pet Policy", thin)
	if r.PetPolicy.Notice != "" {
		fmt.Fprintf(w, "  %s\n", r.PetPolicy.Notice)
	} else {
		total := 0
		for _, c := range r.PetPolicy.Counts {
			total += c.Count
		}
		for _, c := range r.PetPolicy.Counts {
			share := 100 * float64(c.Count) / float64(total)
			fmt.Fprintf(w, "  %-20s %6d  \033[1;32m%5.1f%%\033[0m\n", c.Label, c.Count, share)
		}
	}
	fmt.Fprintln(w)

	p.section("Average Area by City (m²)", thin)
	p.cityBars(r.AreaByCity)

	p.section("Furnished Listings by City", thin)
	if r.Furniture.Notice != "" {
		fmt.Fprintf(w, "  %s\n", r.Furniture.Notice)
	} else {
		fmt.Fprintf(w, "  %-22s", "")
		for _, s := range r.Furniture.Statuses {
			fmt.Fprintf(w, " %14s", models.FurnitureStatus(s).Label())
		}
		fmt.Fprintln(w)
		for _, row := range r.Furniture.Rows {
			fmt.Fprintf(w, "  %-22s", truncate(row.City, 22))
			for _, s := range r.Furniture.Statuses {
				fmt.Fprintf(w, " %14d", row.Counts[s])
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)

	p.section("Average Rent by City (R$)", thin)
	p.cityBars(r.RentByCity)

	p.section("Average Fees by City (R$)", thin)
	if r.FeesByCity.Notice != "" {
		fmt.Fprintf(w, "  %s\n", r.FeesByCity.Notice)
	} else {
		fmt.Fprintf(w, "  %-22s %12s %12s %12s\n", "", "HOA", "Property Tax", "Fire Ins.")
		for _, row := range r.FeesByCity.Rows {
			fmt.Fprintf(w, "  %-22s", truncate(row.City, 22))
			for _, col := range r.FeesByCity.Columns {
				if v, ok := row.Means[col]; ok {
					fmt.Fprintf(w, " %12.2f", v)
				} else {
					fmt.Fprintf(w, " %12s", "-")
				}
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func (p *ReportPrinter) section(title, thin string) {
	fmt.Fprintf(p.out, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(p.out, "  %s\n", thin)
}

// cityBars prints one bar per city scaled to the largest value.
func (p *ReportPrinter) cityBars(chart models.CityMeansChart) {
	if chart.Notice != "" {
		fmt.Fprintf(p.out, "  %s\n\n", chart.Notice)
		return
	}

	var max float64
	for _, v := range chart.Values {
		max = math.Max(max, v.Value)
	}
	for _, v := range chart.Values {
		width := 0
		if max > 0 {
			width = int(math.Round(30 * v.Value / max))
		}
		fmt.Fprintf(p.out, "  %-22s %s %.2f\n", truncate(v.City, 22), strings.Repeat("█", width), v.Value)
	}
	fmt.Fprintln(p.out)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
