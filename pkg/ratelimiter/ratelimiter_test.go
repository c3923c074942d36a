package ratelimiter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ency/pkg/ratelimiter"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newBucket(t *testing.T, cfg ratelimiter.Config) (*ratelimiter.Bucket, *ratelimiter.MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Now()}
	store := ratelimiter.NewMemoryStore(ratelimiter.WithClock(clock.Now), ratelimiter.WithSweepInterval(0))
	t.Cleanup(store.Close)
	b, err := ratelimiter.NewBucket(store, cfg)
	require.NoError(t, err)
	return b, store, clock
}

func TestNewBucket_InvalidConfig(t *testing.T) {
	t.Parallel()

	for _, cfg := range []ratelimiter.Config{
		{Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 0, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 1},
	} {
		_, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(ratelimiter.WithSweepInterval(0)), cfg)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig, "%+v", cfg)
	}
}

func TestBucket_Allow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("burst then deny", func(t *testing.T) {
		t.Parallel()
		b, _, _ := newBucket(t, ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Minute})

		for i := 2; i >= 0; i-- {
			res, err := b.Allow(ctx, "ip")
			require.NoError(t, err)
			assert.True(t, res.Allowed())
			assert.Equal(t, i, res.Remaining)
		}

		res, err := b.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.False(t, res.Allowed())
		assert.Equal(t, 3, res.Limit)
	})

	t.Run("denied requests do not accumulate debt", func(t *testing.T) {
		t.Parallel()
		b, _, clock := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Minute})

		_, _ = b.Allow(ctx, "ip")
		for range 5 {
			res, _ := b.Allow(ctx, "ip")
			assert.False(t, res.Allowed())
		}

		clock.Advance(time.Minute)
		res, err := b.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	})

	t.Run("refill is capped at capacity", func(t *testing.T) {
		t.Parallel()
		b, _, clock := newBucket(t, ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Second})

		_, _ = b.AllowN(ctx, "ip", 2)
		clock.Advance(time.Hour)

		res, err := b.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.Equal(t, 1, res.Remaining)
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()
		b, store, _ := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Minute})

		_, _ = b.Allow(ctx, "a")
		res, err := b.Allow(ctx, "b")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, 2, store.Len())

		require.NoError(t, b.Reset(ctx, "a"))
		assert.Equal(t, 1, store.Len())
	})

	t.Run("invalid token count", func(t *testing.T) {
		t.Parallel()
		b, _, _ := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Minute})

		_, err := b.AllowN(ctx, "ip", 0)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
	})
}

func TestResult_RetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Now()
	assert.Zero(t, ratelimiter.Result{Remaining: 0, ResetAt: now.Add(time.Minute)}.RetryAfter(now))
	assert.Equal(t, time.Minute, ratelimiter.Result{Remaining: -1, ResetAt: now.Add(time.Minute)}.RetryAfter(now))
	assert.Zero(t, ratelimiter.Result{Remaining: -1, ResetAt: now.Add(-time.Minute)}.RetryAfter(now))
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	b, _, _ := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Minute})
	key := func(r *http.Request) string { return r.Header.Get("X-Client") }
	onLimit := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}
	h := ratelimiter.Middleware(b, key, onLimit)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(client string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if client != "" {
			req.Header.Set("X-Client", client)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := call("c1")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	denied := call("c1")
	assert.Equal(t, http.StatusTeapot, denied.Code)
	assert.NotEmpty(t, denied.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, call("c2").Code)
	assert.Equal(t, http.StatusNoContent, call("").Code, "requests without a key are not limited")
	assert.Equal(t, http.StatusNoContent, call("").Code)
}
