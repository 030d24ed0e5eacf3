// Package cache keeps the last successfully fetched record list per resource for a
// bounded time.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/freelance-advisor/internal/logger"
	"github.com/spigell/freelance-advisor/internal/metrics"
	"github.com/spigell/freelance-advisor/internal/record"
)

const DefaultTTL = 60 * time.Second

// Fetcher loads a resource from the source of truth.
type Fetcher interface {
	Fetch(ctx context.Context, resource string) ([]record.Record, error)
}

type Config struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0"`
	// ServeStaleOnError returns an expired entry when a refresh fails instead of
	// the fetch error.
	ServeStaleOnError bool `mapstructure:"serve-stale-on-error"`
}

// Cache is shared by every request of the process. Two concurrent refreshes of
// the same resource may both reach the fetcher; the last one to finish wins.
type Cache struct {
	fetcher Fetcher
	store   Store
	ttl     time.Duration
	stale   bool

	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New builds a cache over fetcher. A nil store keeps entries in process memory.
func New(cfg Config, fetcher Fetcher, store Store, log *zap.Logger, m *metrics.Collector) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{
		fetcher: fetcher,
		store:   store,
		ttl:     ttl,
		stale:   cfg.ServeStaleOnError,
		now:     time.Now,
		logger:  logger.WithFields(log, zap.String("component", "cache")),
		metrics: m,
	}
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// GetOrFetch returns the cached records of resource while they are younger than
// the TTL and refreshes them otherwise.
func (c *Cache) GetOrFetch(ctx context.Context, resource string) ([]record.Record, error) {
	entry := c.load(ctx, resource)
	if entry != nil && c.fresh(entry) {
		c.metrics.CacheLookup(resource, "hit")
		return entry.Data, nil
	}
	c.metrics.CacheLookup(resource, "miss")

	data, err := c.Refresh(ctx, resource)
	if err == nil {
		return data, nil
	}

	if entry != nil && c.stale {
		c.metrics.CacheLookup(resource, "stale")
		c.logger.Warn("serving stale records after failed refresh",
			zap.String("resource", resource),
			zap.Duration("age", c.now().Sub(entry.FetchedAt)),
			zap.Error(err),
		)
		return entry.Data, nil
	}

	return nil, err
}

// Refresh fetches resource unconditionally and stores the result on success.
func (c *Cache) Refresh(ctx context.Context, resource string) ([]record.Record, error) {
	data, err := c.fetcher.Fetch(ctx, resource)
	if err != nil {
		return nil, err
	}

	entry := Entry{Data: data, FetchedAt: c.now()}
	if err := c.store.Save(ctx, resource, entry); err != nil {
		// the caller still gets fresh data, only sharing with other replicas suffers
		c.logger.Warn("failed to save cache entry", zap.String("resource", resource), zap.Error(err))
	}
	c.logger.Debug("cache refreshed", zap.String("resource", resource), zap.Int("records", len(data)))

	return data, nil
}

func (c *Cache) load(ctx context.Context, resource string) *Entry {
	entry, err := c.store.Load(ctx, resource)
	if err != nil {
		c.logger.Warn("failed to load cache entry", zap.String("resource", resource), zap.Error(err))
		return nil
	}
	return entry
}

func (c *Cache) fresh(e *Entry) bool {
	return c.now().Sub(e.FetchedAt) < c.ttl
}

// Entry is one cached resource snapshot.
type Entry struct {
	Data      []record.Record `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Store persists entries. Load returns nil without error when nothing is stored.
type Store interface {
	Load(ctx context.Context, resource string) (*Entry, error)
	Save(ctx context.Context, resource string, entry Entry) error
}
