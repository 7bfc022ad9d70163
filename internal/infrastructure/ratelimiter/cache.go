package ratelimiter

import (
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// GetterSetter stores the token bucket state of every source.
type GetterSetter interface {
	Get(key string) (int64, error)
	Set(key string, value int64) error
	SetWithExpiration(key string, value int64, expiration time.Duration) error
	Close() error
}
