package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	loads int
	err   error
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Load(ctx context.Context) (dataframe.DataFrame, error) {
	s.loads++
	if s.err != nil {
		return dataframe.DataFrame{}, s.err
	}
	return ReadFrame(strings.NewReader(sampleCSV)), nil
}

func TestCachedSourceReusesFrame(t *testing.T) {
	inner := &countingSource{}
	src := NewCachedSource(inner, time.Minute)

	for i := 0; i < 3; i++ {
		df, err := src.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, df.Nrow())
	}
	assert.Equal(t, 1, inner.loads)

	src.Invalidate()
	_, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, inner.loads)
}

func TestCachedSourceZeroTTLPassesThrough(t *testing.T) {
	inner := &countingSource{}
	src := NewCachedSource(inner, 0)

	_, _ = src.Load(context.Background())
	_, _ = src.Load(context.Background())
	assert.Equal(t, 2, inner.loads)
	assert.Equal(t, "counting", src.Name())
}

func TestCachedSourceDoesNotCacheErrors(t *testing.T) {
	inner := &countingSource{err: errors.New("disk on fire")}
	src := NewCachedSource(inner, time.Minute)

	_, err := src.Load(context.Background())
	require.Error(t, err)

	inner.err = nil
	df, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, df.Nrow())
	assert.Equal(t, 2, inner.loads)
}
