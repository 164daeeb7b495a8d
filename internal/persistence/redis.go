package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-assignment/internal/config"
)

// Redis wraps the go-redis client and namespaces keys per application.
type Redis struct {
	Client    redis.UniversalClient
	namespace string
}

// NewRedis connects to Redis using the provided configuration. An unreachable
// server is logged, not fatal: callers treat cache misses as the normal path.
func NewRedis(cfg config.RedisConfig, namespace string, logger *zap.Logger) *Redis {
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

	return &Redis{Client: client, namespace: namespace}
}

// Key joins parts under the application namespace, e.g. "staff-assignment:roster:THERAPIST".
func (r *Redis) Key(parts ...string) string {
	if r == nil || r.namespace == "" {
		return strings.Join(parts, ":")
	}
	return r.namespace + ":" + strings.Join(parts, ":")
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
