package storage

import (
	"context"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/patrickmn/go-cache"
)

const datasetKey = "dataset"

// CachedSource keeps the most recently loaded dataset in memory for a TTL.
// A zero TTL passes every Load straight through.
type CachedSource struct {
	source ListingSource
	ttl    time.Duration
	cache  *cache.Cache
}

// NewCachedSource wraps source with an in-memory cache.
func NewCachedSource(source ListingSource, ttl time.Duration) *CachedSource {
	cleanup := 2 * ttl
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &CachedSource{
		source: source,
		ttl:    ttl,
		cache:  cache.New(ttl, cleanup),
	}
}

// Name identifies the wrapped source in logs.
func (s *CachedSource) Name() string {
	return s.source.Name()
}

// Load returns the cached frame when fresh, otherwise reloads it.
func (s *CachedSource) Load(ctx context.Context) (dataframe.DataFrame, error) {
	if s.ttl <= 0 {
		return s.source.Load(ctx)
	}

	if cached, ok := s.cache.Get(datasetKey); ok {
		return cached.(dataframe.DataFrame), nil
	}

	df, err := s.source.Load(ctx)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	s.cache.Set(datasetKey, df, s.ttl)
	return df, nil
}

// Invalidate drops the cached dataset so the next Load hits the source.
func (s *CachedSource) Invalidate() {
	s.cache.Delete(datasetKey)
}
