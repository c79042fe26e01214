package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
)

// CSVSource loads the listings dataset from a CSV file on every Load.
type CSVSource struct {
	path string
}

// NewCSVSource creates a CSVSource for the file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Name identifies the source in logs.
func (s *CSVSource) Name() string {
	return "csv:" + s.path
}

// Load parses the whole file into a dataframe with typed numeric columns.
func (s *CSVSource) Load(ctx context.Context) (dataframe.DataFrame, error) {
	return s.read(ctx, ReadFrame)
}

// LoadRaw parses the whole file keeping every cell as a string.
func (s *CSVSource) LoadRaw(ctx context.Context) (dataframe.DataFrame, error) {
	return s.read(ctx, ReadRawFrame)
}

func (s *CSVSource) read(ctx context.Context, parse func(io.Reader) dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := ctx.Err(); err != nil {
		return dataframe.DataFrame{}, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("csv: open %q: %w", s.path, err)
	}
	defer f.Close()

	df := parse(f)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("csv: parse %q: %w", s.path, df.Err)
	}
	return df, nil
}
