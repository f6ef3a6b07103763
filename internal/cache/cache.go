package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"subfetch/internal/config"
	"subfetch/internal/logging"
	"subfetch/internal/textutil"
)

// DefaultTTL is the lifetime of an entry when the caller passes none.
const DefaultTTL = 30 * 24 * time.Hour

// Cache memoizes computed values in a Store. A nil *Cache computes every time.
type Cache struct {
	store   Store
	backend string
	group   singleflight.Group
	logger  *slog.Logger
}

// New wraps store.
func New(store Store, backend string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		store:   store,
		backend: backend,
		logger:  logging.NewComponentLogger(logger, "cache"),
	}
}

// Open builds the cache configured in cfg. A backend that cannot be opened is
// logged and replaced by an in-memory store, so the run continues cold.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	var (
		store Store
		err   error
	)
	backend := cfg.Cache.Backend
	switch backend {
	case config.CacheBackendMemory:
		store = NewMemoryStore()
	case config.CacheBackendRedis:
		store, err = OpenRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
	default:
		backend = config.CacheBackendSQLite
		if err = cfg.EnsureDirectories(); err == nil {
			store, err = OpenSQLite(ctx, filepath.Join(cfg.Paths.CacheDir, "cache.db"), logger)
		}
	}
	if err != nil {
		logging.WarnEvent(logger, "cache backend unavailable, using memory", "cache_fallback",
			logging.String("backend", backend),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check cache settings in the config file"),
			logging.String(logging.FieldImpact, "provider responses are not reused across runs"),
		)
		store = NewMemoryStore()
		backend = config.CacheBackendMemory
	}
	return New(store, backend, logger)
}

// Backend names the store in use.
func (c *Cache) Backend() string {
	if c == nil {
		return ""
	}
	return c.backend
}

// Key builds a cache key from a provider name and query parameters. Text
// parts are folded so equivalent spellings share an entry.
func Key(provider string, parts ...string) string {
	folded := make([]string, 0, len(parts)+1)
	folded = append(folded, strings.ToLower(strings.TrimSpace(provider)))
	for _, part := range parts {
		folded = append(folded, textutil.Sanitize(part))
	}
	return strings.Join(folded, "|")
}

// GetOrCompute returns the unexpired value for key, or runs compute, stores
// its result for ttl, and returns it. Concurrent callers for the same key
// share one compute call. Compute errors are returned and never cached.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	if c == nil || c.store == nil {
		return compute(ctx)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if value, ok := c.lookup(ctx, key); ok {
		return value, nil
	}
	result, err, _ := c.group.Do(key, func() (any, error) {
		if value, ok := c.lookup(ctx, key); ok {
			return value, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if setErr := c.store.Set(ctx, key, value, ttl); setErr != nil {
			c.logger.Warn("cache write failed",
				logging.String(logging.FieldEventType, "cache_write_failed"),
				logging.String("key", key),
				logging.Error(setErr),
			)
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Cache) lookup(ctx context.Context, key string) ([]byte, bool) {
	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss",
			logging.String(logging.FieldEventType, "cache_read_failed"),
			logging.String("key", key),
			logging.Error(err),
		)
		return nil, false
	}
	return value, ok
}

// Invalidate removes key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Delete(ctx, key)
}

// Purge removes every entry.
func (c *Cache) Purge(ctx context.Context) error {
	if c == nil || c.store == nil {
		return nil
	}
	if err := c.store.Purge(ctx); err != nil {
		return fmt.Errorf("purge %s cache: %w", c.backend, err)
	}
	return nil
}

// Prune removes expired entries from stores that keep them until read, and
// reports how many went. Stores that expire entries themselves report zero.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	if c == nil || c.store == nil {
		return 0, nil
	}
	pruner, ok := c.store.(interface {
		PurgeExpired(context.Context) (int64, error)
	})
	if !ok {
		return 0, nil
	}
	removed, err := pruner.PurgeExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune %s cache: %w", c.backend, err)
	}
	return removed, nil
}

// Close releases the store.
func (c *Cache) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}

// Fetch is GetOrCompute for JSON-encodable values. An entry that no longer
// decodes into T is dropped and recomputed.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var computed bool
	encode := func(ctx context.Context) ([]byte, error) {
		computed = true
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	}
	var zero T
	data, err := c.GetOrCompute(ctx, key, ttl, encode)
	if err != nil {
		return zero, err
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		if computed {
			return zero, fmt.Errorf("decode cached value: %w", err)
		}
		c.logger.Warn("corrupt cache entry, recomputing",
			logging.String(logging.FieldEventType, "cache_entry_corrupt"),
			logging.String("key", key),
			logging.Error(err),
		)
		_ = c.Invalidate(ctx, key)
		data, err = c.GetOrCompute(ctx, key, ttl, encode)
		if err != nil {
			return zero, err
		}
		if err := json.Unmarshal(data, &value); err != nil {
			return zero, fmt.Errorf("decode cached value: %w", err)
		}
	}
	return value, nil
}
