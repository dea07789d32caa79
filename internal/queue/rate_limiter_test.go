package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/leadforge/internal/data"
)

func TestSlidingWindowLimiterDisabled(t *testing.T) {
	l := NewSlidingWindowLimiter(0, time.Minute, nil)
	for range 5 {
		ok, err := l.Allow(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestSlidingWindowLimiterBurst(t *testing.T) {
	tp := data.NewFixedTimeProvider(time.Now().UTC())
	l := NewSlidingWindowLimiter(3, time.Minute, tp)
	ctx := context.Background()

	for range 3 {
		ok, err := l.Allow(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

// Denied calls leave no trace: a caller polling twice a minute against a
// one-per-minute budget still lands one grant every minute instead of
// pushing the window forward forever.
func TestSlidingWindowLimiterDeniedCallsLeaveNoTrace(t *testing.T) {
	tp := data.NewFixedTimeProvider(time.Now().UTC())
	l := NewSlidingWindowLimiter(1, time.Minute, tp)
	ctx := context.Background()

	grants := 0
	for range 20 {
		ok, err := l.Allow(ctx)
		require.NoError(t, err)
		if ok {
			grants++
		}
		tp.AddTime(30 * time.Second)
	}
	assert.Equal(t, 10, grants)
}
