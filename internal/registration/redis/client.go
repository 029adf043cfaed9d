package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-registration/internal/logger"
)

// NewClient connects to Redis and checks the connection with a ping and a
// short-lived test write.
func NewClient(ctx context.Context, addr string, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       0,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	if err := client.Set(ctx, "event_lock:healthcheck", "ok", 5*time.Second).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to write test value to Redis: %w", err)
	}

	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", addr, client.Options().DB))
	return client, nil
}
