package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-registration/internal/config"
	"ms-registration/internal/logger"
)

// releaseScript deletes the key only while it still holds the caller's token,
// so a lock that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// EventLock is a per-event mutex shared by every replica of the service.
type EventLock struct {
	Client *redis.Client
	Logger *logger.Logger

	ttl  time.Duration
	wait time.Duration
	poll time.Duration
}

func NewEventLock(client *redis.Client, cfg config.RedisConfig, log *logger.Logger) *EventLock {
	return &EventLock{
		Client: client,
		Logger: log,
		ttl:    cfg.LockTTL,
		wait:   cfg.LockWait,
		poll:   10 * time.Millisecond,
	}
}

func lockKey(eventID int64) string {
	return fmt.Sprintf("event_lock:%d", eventID)
}

// TryAcquire takes the lock once without waiting.
func (l *EventLock) TryAcquire(ctx context.Context, eventID int64, owner string) (bool, error) {
	return l.Client.SetNX(ctx, lockKey(eventID), owner, l.ttl).Result()
}

// Acquire polls for the lock until it is free, the wait budget is spent or
// ctx ends. It reports false, not an error, when the budget runs out.
func (l *EventLock) Acquire(ctx context.Context, eventID int64, owner string) (bool, error) {
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.TryAcquire(ctx, eventID, owner)
		if err != nil || ok {
			return ok, err
		}
		if !time.Now().Before(deadline) {
			l.Logger.Debug("REDIS", fmt.Sprintf("Lock for event %d still held after %s", eventID, l.wait))
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

// Release frees the lock if owner still holds it.
func (l *EventLock) Release(ctx context.Context, eventID int64, owner string) error {
	return releaseScript.Run(ctx, l.Client, []string{lockKey(eventID)}, owner).Err()
}

// Holder returns the current owner token, or "" when the event is unlocked.
func (l *EventLock) Holder(ctx context.Context, eventID int64) (string, error) {
	val, err := l.Client.Get(ctx, lockKey(eventID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}
