package di

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	candlesadapters "market_data/internal/feature/candles/adapters"
	instrumentsentity "market_data/internal/feature/instruments/domain/entity"
	"market_data/internal/platform/http/handler"
)

// Models returns every gorm model migrated when RUN_MIGRATIONS is set.
func Models() []any {
	return []any{
		&candlesadapters.CandleModel{},
		&instrumentsentity.Instrument{},
	}
}

// ReadinessChecks は /readyz 用の疎通確認を返します。rdb が nil の場合 redis は無効として報告されます。
func ReadinessChecks(db *gorm.DB, rdb *redis.Client) map[string]handler.Check {
	checks := map[string]handler.Check{
		"db": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": nil,
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return checks
}
