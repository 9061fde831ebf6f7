package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gutensearch/gutensearch/pkg/config"
	"github.com/gutensearch/gutensearch/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore fakes the cache's Redis store. missNext forces the next Get
// calls to report a miss even when the key is present, to exercise the
// re-check inside the flight group.
type memoryStore struct {
	mu       sync.Mutex
	data     map[string]string
	missNext int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missNext > 0 {
		s.missNext--
		return "", redis.Nil
	}
	value, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value.([]byte))
	return nil
}

func TestCacheCountsHitsAndMisses(t *testing.T) {
	m := metrics.New()
	store := newMemoryStore()
	cache := NewCache(store, config.RedisConfig{CacheTTL: config.Duration(time.Minute)}, m)

	calls := 0
	compute := func() (*Response, error) {
		calls++
		return &Response{Query: "whale", Filters: map[string]string{}, Results: []BookResult{}}, nil
	}

	// First call computes, counts one miss, and stores the response.
	resp, hit, err := cache.GetOrCompute(context.Background(), "whale", Filters{}, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "whale", resp.Query)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))

	// Second call is served from the store and counts one hit.
	_, hit, err = cache.GetOrCompute(context.Background(), "whale", Filters{}, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))

	// When the first lookup misses but the re-check inside the flight group
	// finds the entry, that is a hit, not a miss, and compute never runs.
	store.missNext = 1
	_, _, err = cache.GetOrCompute(context.Background(), "whale", Filters{}, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestCacheKeyNormalization(t *testing.T) {
	cache := NewCache(newMemoryStore(), config.RedisConfig{}, nil)

	// Term order is irrelevant.
	assert.Equal(t,
		cache.buildKey("white whale", Filters{}),
		cache.buildKey("whale white", Filters{}),
	)

	// A supplied-but-empty filter is a different query than no filter at
	// all: the echoed filters map differs between the two.
	empty := ""
	assert.NotEqual(t,
		cache.buildKey("whale", Filters{}),
		cache.buildKey("whale", Filters{Author: &empty}),
	)
}
