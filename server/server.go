package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"rental-dashboard/services"
	"rental-dashboard/storage"
	"rental-dashboard/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server serves the dashboard page, the chart pages and the JSON API.
type Server struct {
	source   storage.ListingSource
	pipeline *services.Pipeline
	charts   *ChartRenderer
	metrics  *Metrics
	logger   *utils.Logger
	page     *template.Template

	httpServer *http.Server
}

// NewServer wires a Server around a dataset source. Nothing is loaded until
// the first request.
func NewServer(addr string, source storage.ListingSource, logger *utils.Logger) *Server {
	s := &Server{
		source:   source,
		pipeline: services.NewPipeline(logger),
		charts:   NewChartRenderer(),
		metrics:  NewMetrics(),
		logger:   logger.With("component", "server"),
		page:     template.Must(template.ParseFS(templateFS, "templates/dashboard.html")),
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Slog().Handler(), slog.LevelError),
	}
	return s
}

// Router builds the chi routing tree with the middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger.Slog()))
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", TraceHeader},
		ExposedHeaders: []string{TraceHeader},
		MaxAge:         300,
	}))

	r.Get("/", s.handleDashboard)
	r.Get("/charts/{chart}", s.handleChart)
	r.Get("/export.csv", s.handleExport)
	r.Get("/ping", s.handlePing)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))
		r.Get("/cities", s.handleCities)
		r.Get("/summary", s.handleSummary)
	})
	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[server] Listening on %s (dataset: %s)", s.httpServer.Addr, s.source.Name())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: listen: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("[server] Shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.logger.Info("[server] Stopped")
	return nil
}
