package redis

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
)

// Config はRedis接続とキャッシュの設定です。
type Config struct {
	Host      string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port      string        `env:"REDIS_PORT" envDefault:"6379"`
	Password  string        `env:"REDIS_PASSWORD"`
	DB        int           `env:"REDIS_DB" envDefault:"0"`
	Namespace string        `env:"CACHE_NAMESPACE" envDefault:"candles"`
	TTL       time.Duration `env:"CACHE_TTL" envDefault:"0s"` // 0 は期限なし
}

// LoadConfig は環境変数からRedis設定を読み込みます。
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewRedisClient はRedisクライアントを生成し、疎通確認を行います。
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	addr := cfg.Addr()
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 接続確認
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("Redis connection failed", "address", addr, "error", err)
		_ = rdb.Close()
		return nil, err
	}

	slog.Info("Redis connection successful", "address", addr)
	return rdb, nil
}
