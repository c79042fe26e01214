package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-gota/gota/dataframe"

	"rental-dashboard/models"
	"rental-dashboard/storage"
)

// rawRowLimit caps the filtered table rendered in the page; the CSV export
// always carries every row.
const rawRowLimit = 500

type cityOption struct {
	Name     string
	Selected bool
}

type panelView struct {
	Name   string
	Title  string
	Notice string
	Src    template.URL
	Wide   bool
}

type rawView struct {
	Header []string
	Rows   [][]string
	Shown  int
	Total  int
}

type dashboardView struct {
	Error    string
	Cities   []cityOption
	Selected []string
	Total    int
	Filtered int
	Query    template.URL
	Panels   []panelView
	Raw      *rawView
}

// selectionRun is the outcome of one request's pass through the pipeline.
type selectionRun struct {
	hasCity  bool
	cities   []string
	sel      Selection
	report   *models.Report
	filtered dataframe.DataFrame
}

// run loads the dataset, resolves the selection and computes the report.
// A dataset without a city column still yields a report full of notices.
func (s *Server) run(ctx context.Context, r *http.Request) (*selectionRun, error) {
	df, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	cities, cityErr := s.pipeline.Cities(df)
	if cityErr != nil && !errors.Is(cityErr, models.ErrMissingColumn) {
		return nil, cityErr
	}

	sel := ParseSelection(r, cities)
	report, filtered, err := s.pipeline.RunWithRows(df, sel.Cities)
	if err != nil {
		s.metrics.ObservePipeline(0, err)
		return nil, err
	}
	s.metrics.ObservePipeline(report.FilteredRows, nil)

	return &selectionRun{
		hasCity:  cityErr == nil,
		cities:   cities,
		sel:      sel,
		report:   report,
		filtered: filtered,
	}, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	res, err := s.run(r.Context(), r)
	if err != nil {
		s.logger.Error("[server] Dashboard failed (trace %s): %v", TraceIDFromContext(r.Context()), err)
		s.renderPage(w, http.StatusInternalServerError, dashboardView{Error: err.Error()})
		return
	}

	view := dashboardView{
		Selected: res.sel.Cities,
		Total:    res.report.TotalRows,
		Filtered: res.report.FilteredRows,
		Query:    template.URL(res.sel.Query().Encode()),
	}
	for _, c := range res.cities {
		view.Cities = append(view.Cities, cityOption{Name: c, Selected: res.sel.Has(c)})
	}
	for _, name := range ChartNames {
		view.Panels = append(view.Panels, panelView{
			Name:   name,
			Title:  ChartTitle(name),
			Notice: ChartNotice(name, res.report),
			Src:    template.URL("/charts/" + name + "?") + view.Query,
			Wide:   name == ChartFees,
		})
	}

	if res.sel.ShowRaw && res.hasCity {
		header, rows := storage.Table(res.filtered)
		raw := &rawView{Header: header, Rows: rows, Shown: len(rows), Total: len(rows)}
		if len(rows) > rawRowLimit {
			raw.Rows = rows[:rawRowLimit]
			raw.Shown = rawRowLimit
		}
		view.Raw = raw
	}

	s.renderPage(w, http.StatusOK, view)
}

func (s *Server) renderPage(w http.ResponseWriter, status int, view dashboardView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.ExecuteTemplate(w, "dashboard.html", view); err != nil {
		s.logger.Error("[server] Render dashboard: %v", err)
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "chart")
	if ChartTitle(name) == "" {
		http.Error(w, fmt.Sprintf("%v: %q", ErrUnknownChart, name), http.StatusNotFound)
		return
	}

	res, err := s.run(r.Context(), r)
	if err != nil {
		s.logger.Error("[server] Chart %s failed: %v", name, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if notice := ChartNotice(name, res.report); notice != "" {
		if err := s.page.ExecuteTemplate(w, "notice", notice); err != nil {
			s.logger.Error("[server] Render notice: %v", err)
		}
		return
	}
	if err := s.charts.Render(w, name, res.report); err != nil {
		s.logger.Error("[server] Render chart %s: %v", name, err)
	}
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	df, err := s.source.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	cities, err := s.pipeline.Cities(df)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrMissingColumn) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cities": cities})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	res, err := s.run(r.Context(), r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res.report)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	res, err := s.run(r.Context(), r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !res.hasCity {
		http.Error(w, models.MissingColumnNotice(models.ColCity), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="listings.csv"`)
	if err := storage.WriteCSV(w, res.filtered); err != nil {
		s.logger.Error("[server] Export failed: %v", err)
	}
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
