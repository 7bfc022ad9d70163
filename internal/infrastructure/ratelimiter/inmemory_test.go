package ratelimiter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
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

func TestInMemory(t *testing.T) {
	t.Run("missing keys are misses", func(t *testing.T) {
		req := require.New(t)
		im := newInMemory(time.Now, time.Hour)
		defer im.Close()

		_, err := im.Get("nope")
		req.ErrorIs(err, ErrCacheMiss)
	})

	t.Run("entries expire", func(t *testing.T) {
		req := require.New(t)
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		im := newInMemory(clock.Now, time.Hour)
		defer im.Close()

		req.NoError(im.SetWithExpiration("a", 7, time.Second))
		req.NoError(im.Set("b", 3))

		v, err := im.Get("a")
		req.NoError(err)
		req.EqualValues(7, v)

		clock.Advance(time.Second)
		_, err = im.Get("a")
		req.ErrorIs(err, ErrCacheMiss)

		v, err = im.Get("b")
		req.NoError(err)
		req.EqualValues(3, v)
	})

	t.Run("sweep drops expired keys", func(t *testing.T) {
		req := require.New(t)
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		im := newInMemory(clock.Now, time.Hour)
		defer im.Close()

		req.NoError(im.SetWithExpiration("a", 1, time.Second))
		req.NoError(im.Set("b", 1))
		req.Equal(2, im.Len())

		clock.Advance(2 * time.Second)
		im.sweep()
		req.Equal(1, im.Len())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		im := newInMemory(time.Now, time.Millisecond)
		require.NoError(t, im.Close())
		require.NoError(t, im.Close())
	})
}
