package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-registration/internal/models"
)

// StatsKey is the Redis key holding the cached ledger totals
const StatsKey = "registration_stats"

// StatsCache keeps the last computed Stats in Redis for a short TTL.
// Admission never reads it.
type StatsCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewStatsCache creates a new Redis stats cache
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{Client: client, TTL: ttl}
}

// Get returns the cached stats, or nil on a miss
func (c *StatsCache) Get(ctx context.Context) (*models.RegistrationStats, error) {
	raw, err := c.Client.Get(ctx, StatsKey).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get stats from Redis: %w", err)
	}

	var stats models.RegistrationStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil, fmt.Errorf("failed to decode cached stats: %w", err)
	}
	return &stats, nil
}

// Set stores stats until the TTL runs out
func (c *StatsCache) Set(ctx context.Context, stats *models.RegistrationStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	if err := c.Client.Set(ctx, StatsKey, raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store stats in Redis: %w", err)
	}
	return nil
}

// Invalidate drops the cached stats
func (c *StatsCache) Invalidate(ctx context.Context) error {
	return c.Client.Del(ctx, StatsKey).Err()
}
