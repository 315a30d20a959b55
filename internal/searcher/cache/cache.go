// Package cache stores search results in Redis keyed by the normalized
// request. Concurrent misses for the same key share one computation, and a
// failing Redis is bypassed by a circuit breaker instead of failing searches.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/searcher/executor"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/resilience"
)

const keyPrefix = "search:"

// Store is the key-value backend. *redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.Breaker
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, ttl time.Duration) *QueryCache {
	return &QueryCache{
		store: store,
		ttl:   ttl,
		breaker: resilience.NewBreaker("redis-cache", resilience.BreakerConfig{
			Threshold: 5,
			Cooldown:  30 * time.Second,
			Ignore:    pkgredis.IsNilError,
		}),
		logger: slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached result for req. Any failure counts as a miss.
func (c *QueryCache) Get(ctx context.Context, req executor.Request) (*executor.SearchResult, bool) {
	key := Key(req)
	var data string
	err := c.breaker.Do(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		return err
	})
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", req.Query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, req executor.Request, result *executor.SearchResult) {
	key := Key(req)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs computeFn once per key
// among concurrent callers and caches its result. The boolean reports a
// cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	req executor.Request,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, req); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(Key(req), func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, req, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached search result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// CircuitState reports whether the cache is currently bypassed.
func (c *QueryCache) CircuitState() resilience.State {
	return c.breaker.State()
}

// Key derives the cache key of req. Queries differing only in case or
// whitespace share a key; term order is kept since phrase matching and
// bigram construction depend on it.
func Key(req executor.Request) string {
	raw := fmt.Sprintf("%s|type=%s|ranking=%s|structure=%s|limit=%d",
		strings.Join(strings.Fields(strings.ToLower(req.Query)), " "),
		req.Type, req.Ranking, req.Structure, req.Limit,
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
