package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig は環境変数とデフォルト値からの設定読み込みを検証します。
func TestLoadConfig(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("CACHE_TTL", "90s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6380", cfg.Addr())
	assert.Equal(t, 90*time.Second, cfg.TTL)
	assert.Equal(t, "candles", cfg.Namespace)
	assert.Equal(t, 0, cfg.DB)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	t.Parallel()

	// port 1 is reserved and refuses connections
	rdb, err := NewRedisClient(context.Background(), Config{Host: "127.0.0.1", Port: "1"})
	assert.Error(t, err)
	assert.Nil(t, rdb)
}
