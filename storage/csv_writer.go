package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-gota/gota/dataframe"
)

// CSVWriter exports a dataset to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	return &CSVWriter{path: path, file: f}, nil
}

// WriteFrame writes the header and every row of df, replacing previous content.
func (c *CSVWriter) WriteFrame(df dataframe.DataFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if df.Err != nil {
		return fmt.Errorf("csv: write %q: %w", c.path, df.Err)
	}
	if err := c.file.Truncate(0); err != nil {
		return fmt.Errorf("csv: truncate %q: %w", c.path, err)
	}
	if _, err := c.file.Seek(0, 0); err != nil {
		return fmt.Errorf("csv: seek %q: %w", c.path, err)
	}
	return WriteCSV(c.file, df)
}

// WriteCSV streams df to w as CSV using the compact Table formatting.
func WriteCSV(w io.Writer, df dataframe.DataFrame) error {
	header, rows := Table(df)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("csv: write rows: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (c *CSVWriter) Close() error {
	return c.file.Close()
}
