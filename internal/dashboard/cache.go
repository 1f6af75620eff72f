package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "dashboard:summary"

// Cache keeps the KPI summary in Redis for a short TTL so the front desk
// refreshing the dashboard does not hammer the aggregate queries. A nil
// *Cache disables caching.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a dashboard cache. Returns nil when client is nil so the
// handler degrades to uncached reads.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached summary, or false on a miss or any Redis error
func (c *Cache) Get(ctx context.Context) (*Summary, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var s Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return &s, true
}

// Set stores the summary; errors are deliberately dropped since the cache
// is best effort
func (c *Cache) Set(ctx context.Context, s *Summary) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKey, raw, c.ttl)
}

// Invalidate drops the cached summary
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	c.client.Del(ctx, cacheKey)
}
