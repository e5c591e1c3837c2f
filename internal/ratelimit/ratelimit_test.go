package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/credit-gate/internal/lib/sl"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type backend struct {
	name    string
	limiter Limiter
	clock   *clock
}

func backends(t *testing.T) []backend {
	t.Helper()

	memClock := &clock{now: base}
	mem := newMemoryLimiter(0, memClock.Now)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	redisClock := &clock{now: base}
	rl := NewRedisLimiter(client)
	rl.now = redisClock.Now

	return []backend{
		{name: "memory", limiter: mem, clock: memClock},
		{name: "redis", limiter: rl, clock: redisClock},
	}
}

func TestLimiter_PermitsExactlyLimit(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			for i := 1; i <= 5; i++ {
				info, err := b.limiter.Allow(ctx, "auth:10.0.0.1", 5, time.Minute)
				require.NoError(t, err)
				assert.True(t, info.Allowed, "call %d", i)
				assert.Equal(t, 5-i, info.Remaining)
				assert.Equal(t, 5, info.Limit)
			}

			info, err := b.limiter.Allow(ctx, "auth:10.0.0.1", 5, time.Minute)
			require.NoError(t, err)
			assert.False(t, info.Allowed)
			assert.Equal(t, 0, info.Remaining)
			assert.Equal(t, time.Minute, info.RetryAfter)
			assert.True(t, info.ResetAt.Equal(base.Add(time.Minute)))
		})
	}
}

func TestLimiter_NewWindowResetsCount(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			b.clock.Add(30 * time.Second)
			for range 3 {
				_, err := b.limiter.Allow(ctx, "k", 3, time.Minute)
				require.NoError(t, err)
			}
			info, err := b.limiter.Allow(ctx, "k", 3, time.Minute)
			require.NoError(t, err)
			assert.False(t, info.Allowed)
			assert.Equal(t, 30*time.Second, info.RetryAfter)

			// граница окна выровнена по минуте, а не по первому запросу
			b.clock.Add(30 * time.Second)
			info, err = b.limiter.Allow(ctx, "k", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, info.Allowed)
			assert.Equal(t, 2, info.Remaining)
		})
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			info, err := b.limiter.Allow(ctx, "auth:a", 1, time.Minute)
			require.NoError(t, err)
			assert.True(t, info.Allowed)

			info, err = b.limiter.Allow(ctx, "auth:b", 1, time.Minute)
			require.NoError(t, err)
			assert.True(t, info.Allowed)

			info, err = b.limiter.Allow(ctx, "auth:a", 1, time.Minute)
			require.NoError(t, err)
			assert.False(t, info.Allowed)
		})
	}
}

func TestRedisLimiter_ArmsExpiryOnFirstIncrement(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLimiter(client)
	l.now = func() time.Time { return base }

	_, err = l.Allow(context.Background(), "credits:u1", 10, 2*time.Minute)
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, 2*time.Minute, mr.TTL(keys[0]))

	mr.FastForward(time.Minute)
	_, err = l.Allow(context.Background(), "credits:u1", 10, 2*time.Minute)
	require.NoError(t, err)
	// второй инкремент не продлевает окно
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))
}

func TestMemoryLimiter_EvictsExpiredWindows(t *testing.T) {
	c := &clock{now: base}
	l := newMemoryLimiter(0, c.Now)

	_, err := l.Allow(context.Background(), "k", 1, time.Minute)
	require.NoError(t, err)
	c.Add(2 * time.Minute)
	l.evictExpired()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.windows)
}

func TestMemoryLimiter_CloseIsIdempotent(t *testing.T) {
	l := NewMemoryLimiter(time.Minute)
	l.Close()
	assert.NotPanics(t, l.Close)
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	l := newMemoryLimiter(0, func() time.Time { return base })
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, _ := l.Allow(context.Background(), "k", 10, time.Minute)
			if info.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (Info, error) {
	return Info{}, errors.New("connection refused")
}

func TestFallbackLimiter(t *testing.T) {
	t.Run("uses fallback on primary error", func(t *testing.T) {
		fallbacks := 0
		mem := newMemoryLimiter(0, func() time.Time { return base })
		f := NewFallbackLimiter(failingLimiter{}, mem, sl.Discard(), func() { fallbacks++ })

		info, err := f.Allow(context.Background(), "k", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, info.Allowed)

		info, err = f.Allow(context.Background(), "k", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, info.Allowed)
		assert.Equal(t, 2, fallbacks)
	})

	t.Run("redis down", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		defer client.Close()
		mr.Close()

		mem := newMemoryLimiter(0, func() time.Time { return base })
		f := NewFallbackLimiter(NewRedisLimiter(client), mem, sl.Discard(), nil)

		info, err := f.Allow(context.Background(), "k", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, info.Allowed)
		assert.Equal(t, 4, info.Remaining)
	})

	t.Run("primary healthy", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		fallbacks := 0
		f := NewFallbackLimiter(NewRedisLimiter(client), failingLimiter{}, sl.Discard(), func() { fallbacks++ })
		info, err := f.Allow(context.Background(), "k", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, info.Allowed)
		assert.Zero(t, fallbacks)
	})
}
