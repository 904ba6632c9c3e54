// Package db はPostgreSQLへのgorm接続を提供します。
package db

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// retryInterval は接続リトライの間隔です。
const retryInterval = 3 * time.Second

// Config はデータベース接続設定です。
type Config struct {
	User           string        `env:"DB_USER"`
	Password       string        `env:"DB_PASSWORD"`
	Name           string        `env:"DB_NAME"`
	Host           string        `env:"DB_HOST" envDefault:"localhost"`
	Port           string        `env:"DB_PORT" envDefault:"5432"`
	SSLMode        string        `env:"DB_SSLMODE" envDefault:"disable"`
	InstanceName   string        `env:"INSTANCE_CONNECTION_NAME"` // Cloud SQL instance (project:region:instance)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"60s"`
	RunMigrations  bool          `env:"RUN_MIGRATIONS" envDefault:"false"`
}

// LoadConfigFromEnv は環境変数からデータベース設定を読み込みます。
func LoadConfigFromEnv() (Config, error) {
	return env.ParseAs[Config]()
}

// BuildDSN はpgx用のkey=value形式のDSNを生成します。
// InstanceName が設定されている場合はCloud SQLのUnixソケットを優先します。
func BuildDSN(cfg Config) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	if cfg.InstanceName != "" {
		return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.InstanceName, cfg.User, cfg.Password, cfg.Name)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslmode)
}

// ConnectWithRetry は opener が成功するか timeout を過ぎるまで接続を試行します。
func ConnectWithRetry(dsn string, timeout time.Duration, opener func(string) (*gorm.DB, error)) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for attempt := 1; ; attempt++ {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("db connect failed after %d attempts: %w", attempt, err)
		}
		slog.Warn("DB connect failed, retrying", "attempt", attempt, "error", err)
		time.Sleep(min(retryInterval, remaining))
	}
}

// Open はPostgreSQLに接続し、必要であればマイグレーションを実行します。
func Open(cfg Config, models ...any) (*gorm.DB, error) {
	db, err := ConnectWithRetry(BuildDSN(cfg), cfg.ConnectTimeout, func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	})
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations && len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		slog.Info("database migrated", "models", len(models))
	}
	return db, nil
}

// Describe はPostgreSQLのエラーであればSQLSTATEを付加して返します。
func Describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("sqlstate %s (%s): %w", pgErr.Code, pgErr.Message, err)
	}
	return err
}
