package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/lifeline-calendar/internal/logger"
	"github.com/hray3182/lifeline-calendar/internal/reminder"
)

type countingTicker struct {
	ticks atomic.Int32
}

func (c *countingTicker) Tick(ctx context.Context) (reminder.TickStats, bool) {
	c.ticks.Add(1)
	return reminder.TickStats{}, true
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisTickLock(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)

	a := NewRedisTickLock(client, "", time.Minute)
	b := NewRedisTickLock(client, "", time.Minute)

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A non-holder cannot release someone else's lock.
	require.NoError(t, b.Unlock(ctx))
	assert.True(t, mr.Exists(DefaultLockKey))

	require.NoError(t, a.Unlock(ctx))
	assert.False(t, mr.Exists(DefaultLockKey))

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisTickLock_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)

	a := NewRedisTickLock(client, "dispatch", 30*time.Second)
	b := NewRedisTickLock(client, "dispatch", 30*time.Second)

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(31 * time.Second)

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunOnce_RespectsLock(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)

	holder := NewRedisTickLock(client, "", time.Minute)
	ok, err := holder.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ticker := &countingTicker{}
	s := New(ticker, NewRedisTickLock(client, "", time.Minute), logger.Discard(), time.Minute)

	_, ran := s.RunOnce(ctx)
	assert.False(t, ran)
	assert.Equal(t, int32(0), ticker.ticks.Load())

	require.NoError(t, holder.Unlock(ctx))
	_, ran = s.RunOnce(ctx)
	assert.True(t, ran)
	assert.Equal(t, int32(1), ticker.ticks.Load())

	// The lock is released after the tick.
	_, ran = s.RunOnce(ctx)
	assert.True(t, ran)
}

func TestStart_TicksImmediatelyAndOnNotify(t *testing.T) {
	ticker := &countingTicker{}
	s := New(ticker, nil, logger.Discard(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return ticker.ticks.Load() >= 1 }, time.Second, 5*time.Millisecond)
	s.Notify()
	require.Eventually(t, func() bool { return ticker.ticks.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestNotify_DoesNotBlock(t *testing.T) {
	s := New(&countingTicker{}, nil, logger.Discard(), time.Minute)
	s.Notify()
	s.Notify()
	assert.Len(t, s.notifyCh, 1)
}
