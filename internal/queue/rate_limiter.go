package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadforge/leadforge/internal/data"
)

// RateLimiter throttles job dispatch. Allow reports whether one more dispatch
// fits in the current window and records it only when it does. A denied call
// leaves no trace, so a worker polling faster than the budget cannot push the
// window forward and starve itself.
type RateLimiter interface {
	Allow(ctx context.Context) (bool, error)
}

// SlidingWindowLimiter is an in-process sliding-window rate limiter. Suitable
// when a single process owns the dispatch budget.
type SlidingWindowLimiter struct {
	mu           sync.Mutex
	limit        int
	window       time.Duration
	timeProvider data.TimeProvider
	stamps       []time.Time
}

// NewSlidingWindowLimiter returns a limiter allowing limit dispatches per window.
func NewSlidingWindowLimiter(limit int, window time.Duration, tp data.TimeProvider) *SlidingWindowLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	return &SlidingWindowLimiter{limit: limit, window: window, timeProvider: tp}
}

// Allow grants a dispatch when the window has room, stamping it. Denied calls
// are not stamped. A non-positive limit disables throttling.
func (l *SlidingWindowLimiter) Allow(_ context.Context) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	now := l.timeProvider.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.stamps[:0]
	for _, st := range l.stamps {
		if st.After(cutoff) {
			kept = append(kept, st)
		}
	}
	l.stamps = kept

	if len(l.stamps) >= l.limit {
		return false, nil
	}
	l.stamps = append(l.stamps, now)
	return true, nil
}

// RedisRateLimiter is a sliding-window limiter shared across worker processes
// through a Redis sorted set keyed by dispatch timestamp.
type RedisRateLimiter struct {
	client redis.UniversalClient
	key    string
	limit  int
	window time.Duration
	seq    int64
	mu     sync.Mutex
}

// allowScript prunes expired stamps, then adds one only if the window still
// has room. Running as a script keeps check-then-add atomic across workers.
var allowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '0', ARGV[1])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// NewRedisRateLimiter returns a limiter allowing limit dispatches per window
// across every process sharing the same key.
func NewRedisRateLimiter(client redis.UniversalClient, key string, limit int, window time.Duration) *RedisRateLimiter {
	if key == "" {
		key = "leadforge:queue:dispatch"
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisRateLimiter{client: client, key: key, limit: limit, window: window}
}

// Allow grants a dispatch when the shared window has room, stamping it.
// Denied calls are not stamped.
func (r *RedisRateLimiter) Allow(ctx context.Context) (bool, error) {
	if r.limit <= 0 {
		return true, nil
	}

	now := time.Now()
	r.mu.Lock()
	r.seq++
	member := fmt.Sprintf("%d-%d", now.UnixNano(), r.seq)
	r.mu.Unlock()

	granted, err := allowScript.Run(ctx, r.client, []string{r.key},
		now.Add(-r.window).UnixMilli(),
		r.limit,
		now.UnixMilli(),
		member,
		(r.window + time.Second).Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limiter script: %w", err)
	}
	return granted == 1, nil
}
