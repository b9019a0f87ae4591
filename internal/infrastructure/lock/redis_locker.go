// Package lock serializes receipts for one order across processes.
// The database row lock stays the source of truth; these leases only keep
// competing submissions from queuing on it.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/stockroom/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RedisLocker implements shared.Locker with bsm/redislock
type RedisLocker struct {
	client *redislock.Client
	prefix string
	retry  redislock.RetryStrategy
	logger *zap.Logger
}

// Option configures a RedisLocker
type Option func(*RedisLocker)

// WithRetry retries a busy key every interval, at most attempts times
func WithRetry(interval time.Duration, attempts int) Option {
	return func(l *RedisLocker) {
		l.retry = redislock.LimitRetry(redislock.LinearBackoff(interval), attempts)
	}
}

// WithPrefix sets the key namespace
func WithPrefix(prefix string) Option {
	return func(l *RedisLocker) {
		l.prefix = prefix
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(l *RedisLocker) {
		l.logger = logger
	}
}

// NewRedisLocker creates a locker on any go-redis client
func NewRedisLocker(client redislock.RedisClient, opts ...Option) *RedisLocker {
	l := &RedisLocker{
		client: redislock.New(client),
		prefix: "stockroom:lock:",
		retry:  redislock.NoRetry(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire obtains the lease or reports the key as busy
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (shared.Lease, error) {
	lk, err := l.client.Obtain(ctx, l.prefix+key, ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, shared.NewConcurrencyError("order lock", key, err)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return &redisLease{lock: lk, key: key, logger: l.logger}, nil
}

type redisLease struct {
	lock   *redislock.Lock
	key    string
	logger *zap.Logger
}

// Release gives the key back. A lease that already expired is not an error.
func (r *redisLease) Release(ctx context.Context) error {
	err := r.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		r.logger.Warn("order lock expired before release", zap.String("key", r.key))
		return nil
	}
	if err != nil {
		return fmt.Errorf("release lock %s: %w", r.key, err)
	}
	return nil
}

var _ shared.Locker = (*RedisLocker)(nil)
