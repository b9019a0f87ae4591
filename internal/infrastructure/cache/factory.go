package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewRedisClient connects to the configured Redis and pings it
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// IdempotencyStoreFactory creates idempotency stores based on configuration
type IdempotencyStoreFactory struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
	sweepInterval         time.Duration
}

// IdempotencyStoreFactoryOption is a functional option for configuring the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unavailable Redis degrades to the in-memory store.
// Default is true.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		sweepInterval:         5 * time.Minute,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the Redis store when a client is given, else the in-memory one.
// A nil client with fallback disabled is an error.
func (f *IdempotencyStoreFactory) CreateStore(client redis.UniversalClient) (shared.IdempotencyStore, error) {
	if client != nil {
		f.logger.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(client, DefaultKeyPrefix), nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis is required for delivery idempotency")
	}
	f.logger.Warn("Redis unavailable, using in-memory idempotency store; duplicate submissions are only detected per process")
	return NewInMemoryIdempotencyStore(f.sweepInterval), nil
}
