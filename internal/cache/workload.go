// Package cache provides the Redis-backed reviewer workload cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openjournal/editorial-service/internal/config"
	"github.com/openjournal/editorial-service/internal/workflow"
)

var _ workflow.LoadCache = (*WorkloadCache)(nil)

const keyPrefix = "editorial:workload:"

// NewRedisClient creates a redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// WorkloadCache stores per-reviewer load counts under a short TTL. It is an
// optimization over the assignment count query, never a source of truth.
type WorkloadCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWorkloadCache creates a WorkloadCache over the given client.
func NewWorkloadCache(client *redis.Client, ttl time.Duration) *WorkloadCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &WorkloadCache{client: client, ttl: ttl}
}

// GetLoad returns the cached load and whether the key was present.
func (c *WorkloadCache) GetLoad(ctx context.Context, reviewerID string) (int, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+reviewerID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading cached load: %w", err)
	}
	load, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("parsing cached load %q: %w", val, err)
	}
	return load, true, nil
}

// SetLoad stores the load under the configured TTL.
func (c *WorkloadCache) SetLoad(ctx context.Context, reviewerID string, load int) error {
	if err := c.client.Set(ctx, keyPrefix+reviewerID, load, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching load: %w", err)
	}
	return nil
}

// Invalidate drops the cached load.
func (c *WorkloadCache) Invalidate(ctx context.Context, reviewerID string) error {
	if err := c.client.Del(ctx, keyPrefix+reviewerID).Err(); err != nil {
		return fmt.Errorf("invalidating cached load: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (c *WorkloadCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
