package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/personportal/internal/infrastructure/config"
)

// FlashStoreFactory creates flash stores based on configuration
type FlashStoreFactory struct {
	flashConfig           config.FlashConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FlashStoreFactoryOption is a functional option for configuring the factory
type FlashStoreFactoryOption func(*FlashStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FlashStoreFactoryOption {
	return func(f *FlashStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// the in-memory store. Default is false outside development.
func WithInMemoryFallback(allow bool) FlashStoreFactoryOption {
	return func(f *FlashStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFlashStoreFactory creates a new factory
func NewFlashStoreFactory(flashCfg config.FlashConfig, redisCfg config.RedisConfig, opts ...FlashStoreFactoryOption) *FlashStoreFactory {
	f := &FlashStoreFactory{
		flashConfig: flashCfg,
		redisConfig: redisCfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the store selected by flash.backend.
func (f *FlashStoreFactory) CreateStore(ctx context.Context) (FlashStore, error) {
	switch f.flashConfig.Backend {
	case "", "memory":
		f.logger.Info("Using in-memory flash store", zap.Duration("ttl", f.flashConfig.TTL))
		return NewInMemoryFlashStore(f.flashConfig.TTL), nil
	case "redis":
		store, err := NewRedisFlashStore(ctx, f.redisConfig, f.flashConfig.TTL)
		if err == nil {
			f.logger.Info("Using Redis flash store", zap.String("addr", f.redisConfig.Addr()))
			return store, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("failed to create Redis flash store: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory flash store", zap.Error(err))
		return NewInMemoryFlashStore(f.flashConfig.TTL), nil
	default:
		return nil, fmt.Errorf("unknown flash backend %q", f.flashConfig.Backend)
	}
}
