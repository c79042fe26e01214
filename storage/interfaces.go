package storage

import (
	"context"

	"github.com/go-gota/gota/dataframe"

	"rental-dashboard/models"
)

// ListingSource is the interface any dataset backend must satisfy.
type ListingSource interface {
	Load(ctx context.Context) (dataframe.DataFrame, error)
	Name() string
}

// ListingWriter is the interface for persisting validated listings.
type ListingWriter interface {
	Write(ctx context.Context, listings []*models.Listing) error
	Close() error
}

// FrameWriter is the interface for exporting a (filtered) dataset.
type FrameWriter interface {
	WriteFrame(df dataframe.DataFrame) error
	Close() error
}

var (
	_ ListingSource = (*CSVSource)(nil)
	_ ListingSource = (*CachedSource)(nil)
	_ ListingSource = (*PostgresStore)(nil)
	_ ListingWriter = (*PostgresStore)(nil)
	_ FrameWriter   = (*CSVWriter)(nil)
)
