package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StoreFactory picks a Store implementation from what is available
type StoreFactory struct {
	client                redis.UniversalClient
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether a missing Redis client yields an
// in-memory store (true, the default) or a NopStore
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a factory. client may be nil when Redis is disabled.
func NewStoreFactory(client redis.UniversalClient, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		client:                client,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when a client is configured and reachable
func (f *StoreFactory) CreateStore(ctx context.Context, keyPrefix string) Store {
	if f.client != nil {
		err := f.client.Ping(ctx).Err()
		if err == nil {
			f.logger.Info("using Redis cache store", zap.String("prefix", keyPrefix))
			return NewRedisStoreWithClient(f.client, keyPrefix)
		}
		f.logger.Warn("Redis cache unavailable", zap.Error(err))
	}

	if !f.allowInMemoryFallback {
		f.logger.Info("caching disabled", zap.String("prefix", keyPrefix))
		return NopStore{}
	}

	f.logger.Info("using in-memory cache store", zap.String("prefix", keyPrefix))
	return NewInMemoryStore()
}
