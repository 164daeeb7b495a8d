package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.Equal(t, "migrations", cfg.Postgres.MigrationsDir)
	assert.Equal(t, "notification_queue", cfg.RabbitMQ.Queue)
	assert.Equal(t, "least_assigned,id", cfg.Assignment.Ranking)
	assert.Equal(t, time.Minute, cfg.Assignment.RosterCacheTTL())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("POSTGRES_MAX_CONNS", "25")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ASSIGNMENT_RANKING", "preferred_first,least_assigned")
	t.Setenv("ASSIGNMENT_ROSTER_CACHE_SECONDS", "0")
	t.Setenv("APP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, int32(25), cfg.Postgres.MaxConns)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "preferred_first,least_assigned", cfg.Assignment.Ranking)
	assert.Zero(t, cfg.Assignment.RosterCacheTTL())
	assert.Zero(t, cfg.App.RequestTimeout())
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()

	assert.Error(t, err)
}

func TestRabbitMQ_PublishTimeoutFallback(t *testing.T) {
	assert.Equal(t, 10*time.Second, RabbitMQConfig{}.PublishTimeout())
	assert.Equal(t, 3*time.Second, RabbitMQConfig{PublishTimeoutSeconds: 3}.PublishTimeout())
}
