package ratelimiter_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hilthontt/cipherroom/internal/infrastructure/ratelimiter"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("burst is spent then refused", func(t *testing.T) {
		req := require.New(t)

		limiter, err := ratelimiter.New(ratelimiter.Options{MaxRatePerSecond: 1, MaxBurst: 3})
		req.NoError(err)

		for i := 0; i < 3; i++ {
			req.True(limiter.Allow("10.0.0.1"))
		}
		req.False(limiter.Allow("10.0.0.1"))
		req.Zero(limiter.Remaining("10.0.0.1"))

		// Sources do not share buckets
		req.True(limiter.Allow("10.0.0.2"))
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		req := require.New(t)

		limiter, err := ratelimiter.New(ratelimiter.Options{MaxRatePerSecond: 100, MaxBurst: 1})
		req.NoError(err)

		req.True(limiter.Allow("src"))
		req.False(limiter.Allow("src"))

		req.Eventually(func() bool {
			return limiter.Allow("src")
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("requires a rate", func(t *testing.T) {
		_, err := ratelimiter.New(ratelimiter.Options{})
		require.Error(t, err)
	})
}

func TestRateLimiter_GetSourceKey(t *testing.T) {
	req := require.New(t)

	limiter, err := ratelimiter.New(ratelimiter.Options{MaxRatePerSecond: 1, SourceHeaderKey: "X-Forwarded-For"})
	req.NoError(err)

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	req.Equal("192.0.2.1", limiter.GetSourceKey(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Equal("203.0.113.7", limiter.GetSourceKey(r))
}

func TestFixedWindow(t *testing.T) {
	req := require.New(t)

	fw := ratelimiter.NewFixedWindow(2, time.Minute)
	defer fw.Close()

	ok, _ := fw.Allow("a")
	req.True(ok)
	ok, _ = fw.Allow("a")
	req.True(ok)

	ok, retryAfter := fw.Allow("a")
	req.False(ok)
	req.Positive(retryAfter)

	ok, _ = fw.Allow("b")
	req.True(ok)
}
