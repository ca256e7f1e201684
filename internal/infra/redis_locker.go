package infra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisLocker is the multi-instance Locker, backed by bsm/redislock.
// The TTL bounds how long a crashed holder can keep an identity locked.
type RedisLocker struct {
	client  *redislock.Client
	ttl     time.Duration
	timeout time.Duration
	prefix  string
}

func NewRedisLocker(rdb *redis.Client, ttl, timeout time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RedisLocker{
		client:  redislock.New(rdb),
		ttl:     ttl,
		timeout: timeout,
		prefix:  "goldledger:lock:",
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	opts := &redislock.Options{RetryStrategy: redislock.LinearBackoff(25 * time.Millisecond)}
	held := make([]*redislock.Lock, 0, len(keys))
	for _, key := range keys {
		lock, err := l.client.Obtain(ctx, l.prefix+key, l.ttl, opts)
		if err != nil {
			l.releaseAll(held)
			if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		held = append(held, lock)
	}

	var once sync.Once
	return func() { once.Do(func() { l.releaseAll(held) }) }, nil
}

func (l *RedisLocker) releaseAll(locks []*redislock.Lock) {
	for i := len(locks) - 1; i >= 0; i-- {
		if err := locks[i].Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Warn().Err(err).Str("key", locks[i].Key()).Msg("redis lock: release failed")
		}
	}
}
