package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "herd:quota:"

// reserveScript increments the counter only when the reservation fits.
// Returns the new total, or -1 when the reservation was refused.
var reserveScript = redis.NewScript(`
	local used = tonumber(redis.call("GET", KEYS[1]) or "0")
	local n = tonumber(ARGV[1])
	local limit = tonumber(ARGV[2])
	if used + n > limit then
		return -1
	end
	local total = redis.call("INCRBY", KEYS[1], n)
	if total == n then
		redis.call("EXPIRE", KEYS[1], ARGV[3])
	end
	return total
`)

// RedisTracker shares the daily counters across processes.
type RedisTracker struct {
	client redis.UniversalClient
	limit  int
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisTracker creates a tracker on an existing client.
func NewRedisTracker(client redis.UniversalClient, limit int) *RedisTracker {
	return &RedisTracker{client: client, limit: limit, ttl: 48 * time.Hour, now: time.Now}
}

// Reserve implements Tracker.
func (t *RedisTracker) Reserve(ctx context.Context, ownerID string, n int) error {
	if n <= 0 {
		return nil
	}
	key := keyPrefix + dayKey(ownerID, t.now())
	total, err := reserveScript.Run(ctx, t.client, []string{key}, n, t.limit, int(t.ttl.Seconds())).Int()
	if err != nil {
		return fmt.Errorf("reserve quota: %w", err)
	}
	if total < 0 {
		return fmt.Errorf("%w: %d writes requested", ErrQuotaExceeded, n)
	}
	return nil
}

// Remaining implements Tracker.
func (t *RedisTracker) Remaining(ctx context.Context, ownerID string) (int, error) {
	key := keyPrefix + dayKey(ownerID, t.now())
	used, err := t.client.Get(ctx, key).Int()
	if err == redis.Nil {
		return t.limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota: %w", err)
	}
	return t.limit - used, nil
}
