package search

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/gutensearch/gutensearch/internal/tokenizer"
	"github.com/gutensearch/gutensearch/pkg/config"
	"github.com/gutensearch/gutensearch/pkg/metrics"
	pkgredis "github.com/gutensearch/gutensearch/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "search:"

// Store is the subset of the Redis client the cache depends on.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Cache is a Redis-backed result cache for search responses. Concurrent
// identical queries collapse into one backend execution via singleflight.
// Entries expire by TTL; the index has no deletion path, so stale entries
// only ever under-report very recent writes.
type Cache struct {
	client  Store
	cfg     config.RedisConfig
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCache creates a Cache. m may be nil to skip metric updates.
func NewCache(client Store, cfg config.RedisConfig, m *metrics.Metrics) *Cache {
	return &Cache{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "search-cache"),
	}
}

// GetOrCompute returns the cached response for (query, filters) or runs
// computeFn, caching its result. The second return reports a cache hit.
func (c *Cache) GetOrCompute(
	ctx context.Context,
	query string,
	filters Filters,
	computeFn func() (*Response, error),
) (*Response, bool, error) {
	key := c.buildKey(query, filters)
	if resp, ok := c.get(ctx, key); ok {
		c.countHit()
		return resp, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight lock: another process may have cached
		// the response since the first lookup. Only an actual compute
		// counts as a miss; flight followers piggyback on the leader's
		// count.
		if resp, ok := c.get(ctx, key); ok {
			c.countHit()
			return resp, nil
		}
		resp, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.countMiss()
		c.set(ctx, key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Response), false, nil
}

func (c *Cache) get(ctx context.Context, key string) (*Response, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &resp, true
}

func (c *Cache) set(ctx context.Context, key string, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, time.Duration(c.cfg.CacheTTL)); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *Cache) countHit() {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *Cache) countMiss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// buildKey hashes the normalized query terms and filters so semantically
// identical queries share one entry regardless of term order. A supplied
// filter contributes its segment even when empty, because the echoed filters
// map differs between absent and empty.
func (c *Cache) buildKey(query string, filters Filters) string {
	terms := tokenizer.TokenizeQuery(query)
	sort.Strings(terms)

	var sb strings.Builder
	sb.WriteString(strings.Join(terms, ","))
	if filters.Author != nil {
		sb.WriteString("|author=")
		sb.WriteString(strings.ToLower(*filters.Author))
	}
	if filters.Language != nil {
		sb.WriteString("|language=")
		sb.WriteString(*filters.Language)
	}
	if filters.Year != nil {
		fmt.Fprintf(&sb, "|year=%d", *filters.Year)
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}
