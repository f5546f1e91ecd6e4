package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-desk/internal/config"
)

const (
	redisConnectAttempts = 3
	redisRetryDelay      = 500 * time.Millisecond
)

// Redis wraps the go-redis client backing the realtime channel.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds a client and probes it a few times. An unreachable server
// is logged, not fatal: go-redis reconnects on its own once it comes up.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	r := &Redis{Client: client}

	var err error
	for attempt := 1; attempt <= redisConnectAttempts; attempt++ {
		if err = r.Ping(ctx); err == nil {
			logger.Info("connected to redis", zap.String("addr", cfg.Addr))
			return r
		}
		select {
		case <-ctx.Done():
			return r
		case <-time.After(redisRetryDelay * time.Duration(attempt)):
		}
	}
	logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	return r
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
