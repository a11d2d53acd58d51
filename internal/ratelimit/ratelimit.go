package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Limiter decides whether another request for key fits the budget
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter shared by every replica
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter allows limit requests per key in each window
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) windowKey(key string) string {
	slot := l.now().UnixNano() / int64(l.window)
	return l.prefix + ":" + key + ":" + strconv.FormatInt(slot, 10)
}

// Allow increments the key's counter for the current window
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.windowKey(key)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to count request in redis: %w", err)
	}
	return incr.Val() <= l.limit, nil
}

// tokenBucket refills continuously at rate tokens per second up to capacity
type tokenBucket struct {
	rate       float64
	capacity   float64
	tokens     float64
	lastRefill time.Time
}

func (b *tokenBucket) allow(now time.Time) bool {
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// MemoryLimiter keeps one token bucket per key in process memory
type MemoryLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*tokenBucket
	rate     float64
	capacity float64
	idle     time.Duration
	now      func() time.Time
}

// NewMemoryLimiter allows bursts of limit requests, refilled over window
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets:  make(map[string]*tokenBucket),
		rate:     float64(limit) / window.Seconds(),
		capacity: float64(limit),
		idle:     window,
		now:      time.Now,
	}
}

// Allow takes a token from the key's bucket
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{rate: l.rate, capacity: l.capacity, tokens: l.capacity, lastRefill: now}
		l.buckets[key] = b
	}
	return b.allow(now), nil
}

// Sweep drops buckets that have been full for longer than a window
func (l *MemoryLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	dropped := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) > l.idle {
			delete(l.buckets, key)
			dropped++
		}
	}
	return dropped
}

// Run sweeps idle buckets every interval until ctx is done
func (l *MemoryLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Fallback consults primary and switches to secondary when primary errors
type Fallback struct {
	primary   Limiter
	secondary Limiter
	logger    *logrus.Logger
}

// NewFallback wraps a shared limiter with a local one
func NewFallback(primary, secondary Limiter, logger *logrus.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Allow never returns an error unless both limiters fail
func (f *Fallback) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := f.primary.Allow(ctx, key)
	if err == nil {
		return ok, nil
	}
	f.logger.WithError(err).WithField("key", key).Warn("Rate limit store unavailable, using local limiter")
	return f.secondary.Allow(ctx, key)
}
