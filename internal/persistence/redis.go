package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ops-portal/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
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

// AcquireLock takes a named lock for ttl. Returns false when another holder
// has it. When Redis is unreachable the lock is granted so the caller keeps
// working; the guarded operations are idempotent at the store level anyway.
func (r *Redis) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if r == nil || r.Client == nil {
		return true, nil
	}
	ok, err := r.Client.SetNX(ctx, "lock:"+name, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}

// ReleaseLock drops a named lock.
func (r *Redis) ReleaseLock(ctx context.Context, name string) {
	if r == nil || r.Client == nil {
		return
	}
	_ = r.Client.Del(ctx, "lock:"+name).Err()
}
