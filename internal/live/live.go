package live

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter caches per-session attendee counts in Redis so the polling live
// view does not hit Postgres on every refresh. Entries expire; a cache miss
// just means the caller falls back to the store.
type Counter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCounter creates a counter cache with the given entry TTL.
func NewCounter(client *redis.Client, ttl time.Duration) *Counter {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Counter{client: client, ttl: ttl}
}

func (c *Counter) key(sessionID string) string {
	return "geoattend:live:" + sessionID
}

// Set stores the current attendee count for a session.
func (c *Counter) Set(ctx context.Context, sessionID string, count int64) error {
	return c.client.Set(ctx, c.key(sessionID), count, c.ttl).Err()
}

// Get returns the cached count and whether it was present.
func (c *Counter) Get(ctx context.Context, sessionID string) (int64, bool) {
	val, err := c.client.Get(ctx, c.key(sessionID)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
