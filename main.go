package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rental-dashboard/config"
	"rental-dashboard/server"
	"rental-dashboard/services"
	"rental-dashboard/snapshot"
	"rental-dashboard/storage"
	"rental-dashboard/utils"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:           "rental-dashboard",
		Short:         "Houses-to-rent dashboard: filter listings by city and chart the aggregates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.cfg = config.Load()
			a.logger = utils.NewLoggerForEnv(a.cfg.AppEnv, a.cfg.LogLevel)
		},
	}

	root.AddCommand(
		a.serveCmd(),
		a.reportCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.snapshotCmd(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		if a.logger != nil {
			a.logger.Error("%v", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		cancel()
		os.Exit(1)
	}
}

// openSource builds the configured dataset backend, wrapped in the cache.
// The returned close function releases the backend.
func (a *app) openSource(ctx context.Context) (storage.ListingSource, func(), error) {
	switch a.cfg.DataSource {
	case config.SourceCSV:
		src := storage.NewCSVSource(a.cfg.CSVPath)
		return storage.NewCachedSource(src, a.cfg.DatasetCacheTTL), func() {}, nil

	case config.SourcePostgres:
		store, err := storage.NewPostgresStore(ctx, a.cfg.DatabaseURL(), a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to PostgreSQL (is Docker running? docker compose up -d): %w", err)
		}
		closeFn := func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("Closing PostgreSQL: %v", err)
			}
		}
		return storage.NewCachedSource(store, a.cfg.DatasetCacheTTL), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown DATA_SOURCE %q (want %q or %q)",
			a.cfg.DataSource, config.SourceCSV, config.SourcePostgres)
	}
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, closeSrc, err := a.openSource(ctx)
			if err != nil {
				return err
			}
			defer closeSrc()

			a.logger.Info("=== Rental dashboard starting ===")
			a.logger.Info("Config | env: %s | source: %s | cache ttl: %v",
				a.cfg.AppEnv, src.Name(), a.cfg.DatasetCacheTTL)

			return server.NewServer(a.cfg.Addr(), src, a.logger).Run(ctx)
		},
	}
}

// selectedCities resolves the --city flag: unset means every city.
func selectedCities(cmd *cobra.Command, cities, all []string) []string {
	if cmd.Flags().Changed("city") {
		return cities
	}
	return all
}

func (a *app) reportCmd() *cobra.Command {
	var cities []string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard aggregates to the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, closeSrc, err := a.openSource(ctx)
			if err != nil {
				return err
			}
			defer closeSrc()

			df, err := src.Load(ctx)
			if err != nil {
				return err
			}

			pipeline := services.NewPipeline(a.logger)
			all, err := pipeline.Cities(df)
			if err != nil {
				a.logger.Warn("%v", err)
			}

			report, err := pipeline.Run(df, selectedCities(cmd, cities, all))
			if err != nil {
				return err
			}
			services.NewReportPrinter(cmd.OutOrStdout()).Print(report)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&cities, "city", nil, "cities to include (repeatable; default all)")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var (
		cities []string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered listings to a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, closeSrc, err := a.openSource(ctx)
			if err != nil {
				return err
			}
			defer closeSrc()

			df, err := src.Load(ctx)
			if err != nil {
				return err
			}

			pipeline := services.NewPipeline(a.logger)
			all, err := pipeline.Cities(df)
			if err != nil {
				return err
			}
			filtered, err := pipeline.Filter(df, selectedCities(cmd, cities, all))
			if err != nil {
				return err
			}

			writer, err := storage.NewCSVWriter(out)
			if err != nil {
				return err
			}
			defer writer.Close()

			if err := writer.WriteFrame(filtered); err != nil {
				return err
			}
			a.logger.Info("Exported %d listings to %s", filtered.Nrow(), out)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&cities, "city", nil, "cities to include (repeatable; default all)")
	cmd.Flags().StringVarP(&out, "out", "o", "./output/listings.csv", "destination CSV file")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Clean the CSV dataset and store it in PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			raw, err := storage.NewCSVSource(a.cfg.CSVPath).LoadRaw(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("Read %d raw rows from %s", raw.Nrow(), a.cfg.CSVPath)

			listings, err := services.NewCleaner(a.logger).Clean(raw)
			if err != nil {
				return err
			}
			if len(listings) == 0 {
				return fmt.Errorf("all rows were dropped during cleaning")
			}

			store, err := storage.NewPostgresStore(ctx, a.cfg.DatabaseURL(), a.logger)
			if err != nil {
				return fmt.Errorf("connect to PostgreSQL (is Docker running? docker compose up -d): %w", err)
			}
			defer store.Close()

			var writer storage.ListingWriter = store
			if err := writer.Write(ctx, listings); err != nil {
				return err
			}
			a.logger.Info("Stored %d listings in PostgreSQL (table: listings)", len(listings))
			return nil
		},
	}
}

func (a *app) snapshotCmd() *cobra.Command {
	var perCity bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture PNG screenshots of a running dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var cities []string
			if perCity {
				src, closeSrc, err := a.openSource(ctx)
				if err != nil {
					return err
				}
				defer closeSrc()

				df, err := src.Load(ctx)
				if err != nil {
					return err
				}
				if cities, err = services.NewPipeline(a.logger).Cities(df); err != nil {
					return err
				}
			}

			targets, err := snapshot.Targets(a.cfg.DashboardURL, cities, perCity)
			if err != nil {
				return err
			}
			a.logger.Info("Capturing %d dashboard views from %s", len(targets), a.cfg.DashboardURL)

			files, err := snapshot.New(a.cfg, a.logger).Capture(ctx, targets)
			a.logger.Info("Wrote %d snapshots to %s", len(files), a.cfg.SnapshotDir)
			return err
		},
	}
	cmd.Flags().BoolVar(&perCity, "per-city", false, "also capture one view per city")
	return cmd
}
