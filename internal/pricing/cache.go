package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultTTL bounds how long a cached price may be served.
const DefaultTTL = 5 * time.Minute

type cacheEntry struct {
	price     float64
	fetchedAt time.Time
}

// CachedSource wraps a Source with a per-mint TTL cache. The cache is owned
// by whoever constructs it, never held as package state, so tests can inject
// a fixed source and a fixed clock.
type CachedSource struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	hits   prometheus.Counter
	misses prometheus.Counter

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCachedSource creates a CachedSource with the given TTL. Non-positive
// TTL falls back to DefaultTTL.
func NewCachedSource(source Source, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedSource{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// WithClock overrides the time source. Test hook.
func (c *CachedSource) WithClock(now func() time.Time) *CachedSource {
	c.now = now
	return c
}

// WithMetrics attaches hit and miss counters. Nil counters are ignored.
func (c *CachedSource) WithMetrics(hits, misses prometheus.Counter) *CachedSource {
	c.hits = hits
	c.misses = misses
	return c
}

// Prices serves fresh entries from the cache and batches all remaining mints
// into a single upstream call. An upstream failure leaves cached entries
// usable and the rest unknown; the error is returned so callers can count it.
func (c *CachedSource) Prices(ctx context.Context, mints []string) (map[string]float64, error) {
	out := make(map[string]float64)
	var missing []string

	c.mu.Lock()
	cutoff := c.now().Add(-c.ttl)
	for _, mint := range mints {
		if e, ok := c.entries[mint]; ok && e.fetchedAt.After(cutoff) {
			out[mint] = e.price
			if c.hits != nil {
				c.hits.Inc()
			}
			continue
		}
		if c.misses != nil {
			c.misses.Inc()
		}
		missing = append(missing, mint)
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.source.Prices(ctx, missing)
	if err != nil {
		return out, err
	}

	c.mu.Lock()
	now := c.now()
	for mint, price := range fetched {
		c.entries[mint] = cacheEntry{price: price, fetchedAt: now}
		out[mint] = price
	}
	c.mu.Unlock()

	return out, nil
}

var _ Source = (*CachedSource)(nil)
