package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/communal/backend/internal/infrastructure/config"
)

// ErrRedisNotConfigured is returned by CreateRedis when no host is set
var ErrRedisNotConfigured = errors.New("cache: redis host is not configured")

// Backend bundles the job result store and the advisory locker
type Backend struct {
	Results JobResultStore
	Locker  Locker
	// Distributed is true when both are backed by Redis
	Distributed bool
	client      *redis.Client
}

// Close releases the store and the Redis connection
func (b *Backend) Close() error {
	var errs []error
	if b.Results != nil {
		errs = append(errs, b.Results.Close())
	}
	if b.client != nil {
		errs = append(errs, b.client.Close())
	}
	return errors.Join(errs...)
}

// Ping checks the Redis connection; in-memory backends are always healthy
func (b *Backend) Ping(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	return b.client.Ping(ctx).Err()
}

// Factory creates the cache backend based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory backend when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedis connects to Redis and builds a distributed backend
func (f *Factory) CreateRedis() (*Backend, error) {
	if !f.redisConfig.Enabled() {
		return nil, ErrRedisNotConfigured
	}
	client, err := NewRedisClient(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis cache backend: %w", err)
	}
	return &Backend{
		Results:     NewRedisJobResultStore(client, DefaultJobKeyPrefix),
		Locker:      NewRedisLocker(client, DefaultLockKeyPrefix),
		Distributed: true,
		client:      client,
	}, nil
}

// CreateInMemory builds a process-local backend
// WARNING: job results and locks are not shared across instances
func (f *Factory) CreateInMemory() *Backend {
	return &Backend{
		Results: NewInMemoryJobResultStore(),
		Locker:  NewInMemoryLocker(),
	}
}

// Create tries Redis first and falls back to memory when allowed
func (f *Factory) Create() (*Backend, error) {
	if !f.redisConfig.Enabled() {
		f.logger.Info("Redis not configured, using in-memory job store and lock")
		return f.CreateInMemory(), nil
	}

	backend, err := f.CreateRedis()
	if err == nil {
		f.logger.Info("using Redis job store and lock", zap.String("addr", f.redisConfig.Addr()))
		return backend, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for job results but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory job store and lock. "+
		"Concurrent recomputation is only prevented within this process.",
		zap.Error(err),
	)
	return f.CreateInMemory(), nil
}
