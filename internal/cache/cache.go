package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/TruWeaveTrader/statarb/internal/store"
	gocache "github.com/patrickmn/go-cache"
)

// PriceCache is a read-through cache in front of a price store
type PriceCache struct {
	next   store.PriceSeriesStore
	ranges *gocache.Cache
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewPriceCache wraps a price store with range caching
func NewPriceCache(next store.PriceSeriesStore, ttl time.Duration) *PriceCache {
	// Use go-cache with default expiration and cleanup interval
	return &PriceCache{
		next:   next,
		ranges: gocache.New(ttl, ttl*2),
		ttl:    ttl,
	}
}

func rangeKey(instrument, start, end string) string {
	return instrument + "|" + start + "|" + end
}

// GetRange serves a cached range or loads it from the store
func (c *PriceCache) GetRange(ctx context.Context, instrument, start, end string) ([]models.PricePoint, error) {
	key := rangeKey(instrument, start, end)
	if val, found := c.ranges.Get(key); found {
		if points, ok := val.([]models.PricePoint); ok {
			c.hits.Add(1)
			return clonePoints(points), nil
		}
	}

	c.misses.Add(1)
	points, err := c.next.GetRange(ctx, instrument, start, end)
	if err != nil {
		return nil, err
	}
	c.ranges.Set(key, clonePoints(points), c.ttl)
	return points, nil
}

// UpsertPrices writes through and drops every cached range
func (c *PriceCache) UpsertPrices(ctx context.Context, points ...models.PricePoint) error {
	if err := c.next.UpsertPrices(ctx, points...); err != nil {
		return err
	}
	c.Clear()
	return nil
}

// Clear removes all cached data
func (c *PriceCache) Clear() {
	c.ranges.Flush()
}

func clonePoints(points []models.PricePoint) []models.PricePoint {
	out := make([]models.PricePoint, len(points))
	copy(out, points)
	return out
}

// Stats returns cache statistics
type Stats struct {
	RangeCount int
	Hits       int64
	Misses     int64
}

// GetStats returns current cache statistics
func (c *PriceCache) GetStats() Stats {
	return Stats{
		RangeCount: c.ranges.ItemCount(),
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
	}
}
