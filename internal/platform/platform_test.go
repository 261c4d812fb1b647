package platform

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoutigo/smc-kpi/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger_Level(t *testing.T) {
	log, err := InitLogger(config.LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNewCaches(t *testing.T) {
	cfg := config.KPIConfig{CacheTTL: time.Minute, CacheBackend: config.CacheBackendMemory, CachePrefix: "kpi:"}

	caches, err := NewCaches(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, time.Minute, caches.Global.TTL())

	cfg.CacheBackend = config.CacheBackendRedis
	_, err = NewCaches(cfg, nil, zap.NewNop())
	assert.Error(t, err, "redis backend needs a client")

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()
	caches, err = NewCaches(cfg, rdb, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, caches.Category)

	cfg.CacheBackend = "memcached"
	_, err = NewCaches(cfg, nil, zap.NewNop())
	assert.Error(t, err)
}
