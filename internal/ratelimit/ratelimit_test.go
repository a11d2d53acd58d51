package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time         { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryLimiter_BurstThenRefill(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(3, time.Minute)
	l.now = c.now
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "keys have separate buckets")

	c.advance(20 * time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "one token refills every 20s")
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	c := &clock{t: time.Now()}
	l := NewMemoryLimiter(5, time.Minute)
	l.now = c.now

	_, _ = l.Allow(context.Background(), "a")
	c.advance(30 * time.Second)
	_, _ = l.Allow(context.Background(), "b")
	c.advance(45 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "b")
}

func TestRedisLimiter_WindowKey(t *testing.T) {
	l := NewRedisLimiter(nil, "rl:pass", 10, time.Minute)
	l.now = func() time.Time { return time.Unix(120, 0) }

	assert.Equal(t, "rl:pass:10.0.0.1:2", l.windowKey("10.0.0.1"))
}

type stubLimiter struct {
	ok  bool
	err error
	n   int
}

func (s *stubLimiter) Allow(context.Context, string) (bool, error) {
	s.n++
	return s.ok, s.err
}

func TestFallback(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	primary := &stubLimiter{ok: false}
	secondary := &stubLimiter{ok: true}
	f := NewFallback(primary, secondary, logger)

	ok, err := f.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, secondary.n)

	primary.err = errors.New("connection refused")
	ok, err = f.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, secondary.n)
	assert.Equal(t, "Rate limit store unavailable, using local limiter", hook.LastEntry().Message)
}

func TestRedisLimiter_UnreachableFallsBack(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	logger, _ := logtest.NewNullLogger()
	f := NewFallback(NewRedisLimiter(client, "rl", 1, time.Minute), NewMemoryLimiter(1, time.Minute), logger)

	ok, err := f.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.False(t, ok)
}
