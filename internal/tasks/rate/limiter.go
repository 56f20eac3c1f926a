package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

type RateLimit struct {
	Window   time.Duration // e.g., 1 minute, 1 hour
	Attempts int           // max attempts per window
}

// SlidingWindowLimiter counts attempts per identifier in a Redis sorted set, so
// every instance shares the same budget.
type SlidingWindowLimiter struct {
	redis *redis.Client
	name  string
	limit RateLimit
	now   func() time.Time
}

func NewSlidingWindowLimiter(redis *redis.Client, name string, limit RateLimit) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		redis: redis,
		name:  name,
		limit: limit,
		now:   time.Now,
	}
}

// Allow records one attempt for identifier and reports whether it is within
// the window's budget. Refused attempts still count.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	if l.limit.Attempts <= 0 {
		return true, nil
	}
	key := fmt.Sprintf("rate_limit:%s:%s", l.name, identifier)

	now := l.now()
	windowStart := now.Add(-l.limit.Window).UnixMilli()

	pipe := l.redis.TxPipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))

	// Add new entry. Members must be unique or attempts in the same
	// millisecond collapse into one.
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: ulid.Make().String()})

	// Count current window
	card := pipe.ZCard(ctx, key)

	// Set expiration
	pipe.Expire(ctx, key, l.limit.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis pipeline error: %w", err)
	}

	return card.Val() <= int64(l.limit.Attempts), nil
}
