package config

import (
	"errors"
	"log"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Data sources the dashboard can read listings from.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	AppEnv   string
	LogLevel string
	HTTPPort string

	DataSource      string
	CSVPath         string
	DatasetCacheTTL time.Duration

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int

	SnapshotDir  string
	DashboardURL string
	ChromeBin    string
}

// Load reads the .env file, an optional dashboard.yml, and environment
// variables, in increasing order of precedence.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("dashboard")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Printf("[config] Ignoring unreadable dashboard.yml: %v", err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		AppEnv:   v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),
		HTTPPort: v.GetString("HTTP_PORT"),

		DataSource:      strings.ToLower(v.GetString("DATA_SOURCE")),
		CSVPath:         v.GetString("CSV_PATH"),
		DatasetCacheTTL: v.GetDuration("DATASET_CACHE_TTL"),

		PostgresHost:     v.GetString("POSTGRES_HOST"),
		PostgresPort:     v.GetString("POSTGRES_PORT"),
		PostgresUser:     v.GetString("POSTGRES_USER"),
		PostgresPassword: v.GetString("POSTGRES_PASSWORD"),
		PostgresDB:       v.GetString("POSTGRES_DB"),
		PostgresSSLMode:  v.GetString("POSTGRES_SSLMODE"),

		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),
		RateLimitMs:    v.GetInt("RATE_LIMIT_MS"),
		MaxRetries:     v.GetInt("MAX_RETRIES"),

		SnapshotDir:  v.GetString("SNAPSHOT_DIR"),
		DashboardURL: v.GetString("DASHBOARD_URL"),
		ChromeBin:    v.GetString("CHROME_BIN"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_PORT", "8080")

	v.SetDefault("DATA_SOURCE", SourceCSV)
	v.SetDefault("CSV_PATH", "./data/houses_to_rent_v2.csv")
	v.SetDefault("DATASET_CACHE_TTL", "30s")

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "dashboard")
	v.SetDefault("POSTGRES_PASSWORD", "dashboard123")
	v.SetDefault("POSTGRES_DB", "rental_db")
	v.SetDefault("POSTGRES_SSLMODE", "disable")

	v.SetDefault("MAX_CONCURRENCY", 3)
	v.SetDefault("RATE_LIMIT_MS", 500)
	v.SetDefault("MAX_RETRIES", 3)

	v.SetDefault("SNAPSHOT_DIR", "./output/snapshots")
	v.SetDefault("DASHBOARD_URL", "http://localhost:8080/")
	v.SetDefault("CHROME_BIN", "")
}

// DatabaseURL returns the PostgreSQL connection URL, usable by both lib/pq
// and the migration runner.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     net.JoinHostPort(c.PostgresHost, c.PostgresPort),
		Path:     "/" + c.PostgresDB,
		RawQuery: url.Values{"sslmode": []string{c.PostgresSSLMode}}.Encode(),
	}
	return u.String()
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.HTTPPort
}
