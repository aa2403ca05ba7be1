package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AvailabilityCache keeps rendered availability responses in redis for
// a short TTL. Each staff-day carries a version counter; invalidation
// bumps the counter so stale entries simply stop being addressed and
// expire on their own.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl, logger: logger}
}

func (c *AvailabilityCache) versionKey(staffID, date string) string {
	return fmt.Sprintf("avail:ver:%s:%s", staffID, date)
}

func (c *AvailabilityCache) entryKey(ctx context.Context, staffID, date string, duration int) (string, error) {
	ver, err := c.client.Get(ctx, c.versionKey(staffID, date)).Result()
	if err == redis.Nil {
		ver = "0"
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("avail:%s:%s:%s:%d", ver, staffID, date, duration), nil
}

// Get returns the cached response body, if any. Cache failures are
// logged and treated as misses; availability must keep working when
// redis is down.
func (c *AvailabilityCache) Get(ctx context.Context, staffID, date string, duration int) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	key, err := c.entryKey(ctx, staffID, date, duration)
	if err != nil {
		c.logger.Warn().Err(err).Msg("availability cache read failed")
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("availability cache read failed")
		return nil, false
	}
	return data, true
}

// Set stores a rendered response under the staff-day's current version.
func (c *AvailabilityCache) Set(ctx context.Context, staffID, date string, duration int, body []byte) {
	if c == nil {
		return
	}
	key, err := c.entryKey(ctx, staffID, date, duration)
	if err != nil {
		c.logger.Warn().Err(err).Msg("availability cache write failed")
		return
	}
	if err := c.client.Set(ctx, key, body, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("availability cache write failed")
	}
}

// Invalidate bumps the staff-day version after any reservation change.
func (c *AvailabilityCache) Invalidate(ctx context.Context, staffID, date string) {
	if c == nil {
		return
	}
	key := c.versionKey(staffID, date)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("availability cache invalidation failed")
	}
}
