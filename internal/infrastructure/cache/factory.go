package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/infrastructure/config"
)

// Manager provides access to all cache-related services over one connection
type Manager struct {
	Cache         Cache
	RateLimiter   RateLimiter
	Verifications *VerificationCache
	client        *redis.Client
	logger        *zap.Logger
}

// NewManager connects to Redis and builds the cache services
func NewManager(cfg *config.RedisConfig, logger *zap.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	c := &redisCache{client: client, logger: logger}

	logger.Info("cache manager initialized",
		zap.String("addr", cfg.URL),
		zap.Int("db", cfg.DB),
		zap.Int("pool_size", cfg.PoolSize))

	return &Manager{
		Cache:         c,
		RateLimiter:   NewRedisRateLimiter(client, logger),
		Verifications: NewVerificationCache(c, cfg.ResultTTL, logger),
		client:        client,
		logger:        logger,
	}, nil
}

// Health checks the Redis connection
func (m *Manager) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return m.client.Ping(ctx).Err()
}

// Close releases the connection
func (m *Manager) Close() error {
	return m.Cache.Close()
}
