package scheduler

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"market_data/internal/feature/candles/domain/entity"
)

// Config は取り込みスケジューラの設定です。
type Config struct {
	Intervals  string        `env:"INGEST_INTERVALS" envDefault:"1m,30m,1d"`
	Timezone   string        `env:"INGEST_TIMEZONE" envDefault:"Asia/Kolkata"` // 日足・週足の境界とcron式の基準
	BatchSize  int           `env:"INGEST_BATCH_SIZE" envDefault:"500"`
	RunTimeout time.Duration `env:"INGEST_RUN_TIMEOUT" envDefault:"0s"` // 0 は無制限
	Once       string        `env:"INGEST_ONCE"`                        // 指定時はその時間足を1回だけ実行して終了

	// Crons は INGEST_CRON_<CODE>（例: INGEST_CRON_1M）による時間足ごとのcron式の上書きです。
	Crons map[entity.Interval]string
}

// LoadConfig は環境変数から設定を読み込みます。
// INGEST_INTERVALS に未対応の時間足が含まれる場合はエラーになります。
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	ivs, err := cfg.ParsedIntervals()
	if err != nil {
		return Config{}, err
	}
	cfg.Crons = make(map[entity.Interval]string, len(ivs))
	for _, iv := range ivs {
		if spec, ok := os.LookupEnv("INGEST_CRON_" + strings.ToUpper(iv.String())); ok && strings.TrimSpace(spec) != "" {
			cfg.Crons[iv] = strings.TrimSpace(spec)
		}
	}
	return cfg, nil
}

// ParsedIntervals returns the configured intervals, rejecting unmapped codes.
func (c Config) ParsedIntervals() ([]entity.Interval, error) {
	ivs, err := entity.ParseIntervals(c.Intervals)
	if err != nil {
		return nil, fmt.Errorf("INGEST_INTERVALS: %w", err)
	}
	if len(ivs) == 0 {
		return nil, fmt.Errorf("INGEST_INTERVALS: no interval configured")
	}
	return ivs, nil
}

// Location loads Timezone; empty means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("INGEST_TIMEZONE: %w", err)
	}
	return loc, nil
}

// CronFor returns the override for iv or its default cadence.
func (c Config) CronFor(iv entity.Interval) string {
	if spec, ok := c.Crons[iv]; ok {
		return spec
	}
	return iv.Cadence()
}
