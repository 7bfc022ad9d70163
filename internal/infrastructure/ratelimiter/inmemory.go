package ratelimiter

import (
	"sync"
	"time"
)

const sweepInterval = time.Minute

type bucketEntry struct {
	value    int64
	deadline time.Time // zero means no expiry
}

func (e bucketEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && !now.Before(e.deadline)
}

// InMemory is the process-local bucket store used when no redis address is
// configured. Expired keys read as misses and are swept once a minute.
type InMemory struct {
	mu      sync.Mutex
	entries map[string]bucketEntry
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

func NewInMemory() GetterSetter {
	return newInMemory(time.Now, sweepInterval)
}

func newInMemory(now func() time.Time, sweep time.Duration) *InMemory {
	im := &InMemory{
		entries: make(map[string]bucketEntry),
		now:     now,
		done:    make(chan struct{}),
	}
	go im.sweepLoop(sweep)

	return im
}

func (i *InMemory) Get(key string) (int64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, ok := i.entries[key]
	if !ok || entry.expired(i.now()) {
		return 0, ErrCacheMiss
	}
	return entry.value, nil
}

func (i *InMemory) Set(key string, value int64) error {
	return i.SetWithExpiration(key, value, 0)
}

func (i *InMemory) SetWithExpiration(key string, value int64, expiration time.Duration) error {
	entry := bucketEntry{value: value}
	if expiration > 0 {
		entry.deadline = i.now().Add(expiration)
	}

	i.mu.Lock()
	i.entries[key] = entry
	i.mu.Unlock()

	return nil
}

// Len reports the number of stored keys, expired ones included until the next
// sweep.
func (i *InMemory) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return len(i.entries)
}

func (i *InMemory) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			i.sweep()
		case <-i.done:
			return
		}
	}
}

func (i *InMemory) sweep() {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	for key, entry := range i.entries {
		if entry.expired(now) {
			delete(i.entries, key)
		}
	}
}

func (i *InMemory) Close() error {
	i.once.Do(func() { close(i.done) })
	return nil
}
