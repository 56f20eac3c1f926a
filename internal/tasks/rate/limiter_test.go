package rate

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestUnlimitedSkipsRedis(t *testing.T) {
	// No client: an unlimited budget must not touch Redis.
	l := NewSlidingWindowLimiter(nil, "sign-in", RateLimit{Window: time.Minute})
	ok, err := l.Allow(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisFailureIsReported(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	l := NewSlidingWindowLimiter(client, "sign-in", RateLimit{Window: time.Minute, Attempts: 3})
	ok, err := l.Allow(context.Background(), "a@example.com")
	require.Error(t, err)
	require.False(t, ok)
}
