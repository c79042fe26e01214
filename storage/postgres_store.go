package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	_ "github.com/lib/pq"

	"rental-dashboard/models"
	"rental-dashboard/utils"
)

const listingColumns = 13

// PostgresStore persists validated listings to PostgreSQL and serves them
// back to the dashboard as a dataset.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, applies the schema
// migrations, and returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, databaseURL string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		logger.Debug("[postgres] Waiting for database (attempt %d/10): %v", i+1, err)
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	if err := RunMigrations(databaseURL, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wraps an already-open database handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Name identifies the source in logs.
func (ps *PostgresStore) Name() string {
	return "postgres:listings"
}

// Write replaces the stored dataset with listings inside one transaction.
func (ps *PostgresStore) Write(ctx context.Context, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM listings"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := insertBatch(ctx, tx, listings[i:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func insertBatch(ctx context.Context, tx *sql.Tx, batch []*models.Listing) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*listingColumns)

	for idx, l := range batch {
		base := idx * listingColumns
		placeholders := make([]string, listingColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			l.City, l.Area, l.Rooms, l.Bathrooms, l.ParkingSpaces, l.Floor,
			string(l.Animal), string(l.Furniture),
			l.HOA, l.RentAmount, l.PropertyTax, l.FireInsurance, l.Total)
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (city, area, rooms, bathroom, parking_spaces, floor, animal, furniture,
			hoa, rent_amount, property_tax, fire_insurance, total)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert batch: %w", err)
	}
	return nil
}

// FetchAll retrieves all stored listings in insertion order.
func (ps *PostgresStore) FetchAll(ctx context.Context) ([]*models.Listing, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, city, area, rooms, bathroom, parking_spaces, floor, animal, furniture,
			hoa, rent_amount, property_tax, fire_insurance, total, created_at
		FROM listings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		var animal, furniture string
		if err := rows.Scan(
			&l.ID, &l.City, &l.Area, &l.Rooms, &l.Bathrooms, &l.ParkingSpaces, &l.Floor,
			&animal, &furniture,
			&l.HOA, &l.RentAmount, &l.PropertyTax, &l.FireInsurance, &l.Total, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		l.Animal = models.AnimalPolicy(animal)
		l.Furniture = models.FurnitureStatus(furniture)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// Load returns the stored listings as a dataset. An empty table yields a
// frame with the dataset's columns and no rows.
func (ps *PostgresStore) Load(ctx context.Context) (dataframe.DataFrame, error) {
	listings, err := ps.FetchAll(ctx)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	df := ListingsToFrame(listings)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("postgres: build frame: %w", df.Err)
	}
	return df, nil
}

// Close closes the database handle.
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
