package ratelimiter

import (
	"sync"
	"sync/atomic"
	"time"
)

// FixedWindow caps how many times a key may act per window. It throttles
// websocket handshakes per remote address.
type FixedWindow struct {
	counts      sync.Map // string -> *windowCounter
	limit       int64
	window      time.Duration
	cleanupTick *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

type windowCounter struct {
	count   atomic.Int64
	resetAt atomic.Int64 // Unix nanoseconds
	mu      sync.Mutex   // only for reset
}

func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	fw := &FixedWindow{
		limit:       int64(limit),
		window:      window,
		cleanupTick: time.NewTicker(window),
		done:        make(chan struct{}),
	}
	go fw.startCleanup()
	return fw
}

// Allow reports whether key may proceed and, when it may not, how long until its
// window resets.
func (fw *FixedWindow) Allow(key string) (bool, time.Duration) {
	if fw.limit <= 0 {
		return true, 0
	}

	now := time.Now()
	val, _ := fw.counts.LoadOrStore(key, &windowCounter{})
	c := val.(*windowCounter)

	if resetAt := c.resetAt.Load(); resetAt != 0 && now.UnixNano() < resetAt {
		return fw.increment(c, resetAt)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have opened the new window while we waited
	if resetAt := c.resetAt.Load(); resetAt != 0 && now.UnixNano() < resetAt {
		return fw.increment(c, resetAt)
	}

	c.count.Store(1)
	c.resetAt.Store(now.Add(fw.window).UnixNano())
	return true, 0
}

func (fw *FixedWindow) increment(c *windowCounter, resetAt int64) (bool, time.Duration) {
	if c.count.Add(1) > fw.limit {
		c.count.Add(-1)
		return false, time.Until(time.Unix(0, resetAt))
	}
	return true, 0
}

func (fw *FixedWindow) startCleanup() {
	for {
		select {
		case <-fw.cleanupTick.C:
			fw.cleanup()
		case <-fw.done:
			return
		}
	}
}

func (fw *FixedWindow) cleanup() {
	now := time.Now().UnixNano()
	fw.counts.Range(func(key, value any) bool {
		if c := value.(*windowCounter); c.resetAt.Load() < now {
			fw.counts.Delete(key)
		}
		return true
	})
}

func (fw *FixedWindow) Close() {
	fw.closeOnce.Do(func() {
		close(fw.done)
		fw.cleanupTick.Stop()
	})
}
