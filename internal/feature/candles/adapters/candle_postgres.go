// Package adapters はcandlesフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"market_data/internal/feature/candles/domain/entity"
	"market_data/internal/feature/candles/usecase"
	"market_data/internal/platform/db"
)

type candlePostgres struct {
	db *gorm.DB
}

var _ usecase.CandleRepository = (*candlePostgres)(nil)

// NewCandleRepository は指定されたDB接続でローソク足リポジトリを生成します。
func NewCandleRepository(db *gorm.DB) *candlePostgres {
	return &candlePostgres{db: db}
}

// CandleModel is the persisted candle row. Timestamps are stored as ms epoch
// and (symbol, time_interval, timestamp) is unique.
type CandleModel struct {
	ID           uint   `gorm:"primaryKey"`
	Symbol       string `gorm:"size:64;not null;uniqueIndex:candle_sym_int_ts,priority:1"`
	TimeInterval string `gorm:"column:time_interval;size:8;not null;uniqueIndex:candle_sym_int_ts,priority:2"`
	Timestamp    int64  `gorm:"column:timestamp;not null;uniqueIndex:candle_sym_int_ts,priority:3"`

	InstrumentToken string              `gorm:"size:64"`
	LastPrice       decimal.Decimal     `gorm:"type:numeric(20,6);not null"`
	Open            decimal.NullDecimal `gorm:"type:numeric(20,6)"`
	High            decimal.NullDecimal `gorm:"type:numeric(20,6)"`
	Low             decimal.NullDecimal `gorm:"type:numeric(20,6)"`
	Close           decimal.NullDecimal `gorm:"type:numeric(20,6)"`
	Volume          *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CandleModel) TableName() string {
	return "candles"
}

// upsertColumns are overwritten on conflict (last write wins).
var upsertColumns = []string{
	"instrument_token", "last_price", "open", "high", "low", "close", "volume", "created_at", "updated_at",
}

func toModel(e entity.Candle) CandleModel {
	return CandleModel{
		Symbol:          e.Symbol,
		TimeInterval:    e.Interval.String(),
		Timestamp:       e.Time.UnixMilli(),
		InstrumentToken: e.InstrumentToken,
		LastPrice:       e.LastPrice,
		Open:            e.Open,
		High:            e.High,
		Low:             e.Low,
		Close:           e.Close,
		Volume:          e.Volume,
		CreatedAt:       e.CreatedAt,
	}
}

func toEntity(m CandleModel) entity.Candle {
	return entity.Candle{
		Symbol:          m.Symbol,
		InstrumentToken: m.InstrumentToken,
		Interval:        entity.Interval(m.TimeInterval),
		Time:            time.UnixMilli(m.Timestamp).UTC(),
		Open:            m.Open,
		High:            m.High,
		Low:             m.Low,
		Close:           m.Close,
		Volume:          m.Volume,
		LastPrice:       m.LastPrice,
		CreatedAt:       m.CreatedAt.UTC(),
	}
}

// Upsert は1件のローソク足を冪等に書き込みます。
func (r *candlePostgres) Upsert(ctx context.Context, c entity.Candle) error {
	return r.UpsertBatch(ctx, []entity.Candle{c})
}

// UpsertBatch は (symbol, time_interval, timestamp) をキーに一括で挿入または更新します。
// 同一バッチ内で同じキーが複数ある場合は後ろのものを採用します。
func (r *candlePostgres) UpsertBatch(ctx context.Context, candles []entity.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	// ON CONFLICT cannot touch the same row twice in one statement.
	idx := make(map[entity.CandleKey]int, len(candles))
	ms := make([]CandleModel, 0, len(candles))
	now := time.Now().UTC()
	for _, e := range candles {
		m := toModel(e)
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.UpdatedAt = now
		k := entity.CandleKey{Symbol: e.Symbol, Interval: e.Interval, Time: time.UnixMilli(m.Timestamp)}
		if i, ok := idx[k]; ok {
			ms[i] = m
			continue
		}
		idx[k] = len(ms)
		ms = append(ms, m)
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "time_interval"}, {Name: "timestamp"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(&ms).Error
	if err != nil {
		return fmt.Errorf("upsert %d candles: %w", len(ms), db.Describe(err))
	}
	return nil
}

// FindLatest は at が非ゼロならその時刻のローソク足を、ゼロなら最新のローソク足を返します。
func (r *candlePostgres) FindLatest(ctx context.Context, symbol string, interval entity.Interval, at time.Time) (entity.Candle, error) {
	cond := map[string]any{"symbol": symbol, "time_interval": interval.String()}
	if !at.IsZero() {
		cond["timestamp"] = at.UnixMilli()
	}

	var m CandleModel
	err := r.db.WithContext(ctx).
		Where(cond).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Candle{}, entity.ErrCandleNotFound
	}
	if err != nil {
		return entity.Candle{}, fmt.Errorf("find latest candle: %w", db.Describe(err))
	}
	return toEntity(m), nil
}

// FindHistorical は銘柄のローソク足を時刻昇順で返します。interval が空なら全時間足が対象です。
func (r *candlePostgres) FindHistorical(ctx context.Context, symbol string, interval entity.Interval) ([]entity.Candle, error) {
	cond := map[string]any{"symbol": symbol}
	if interval != "" {
		cond["time_interval"] = interval.String()
	}

	var rows []CandleModel
	if err := r.db.WithContext(ctx).
		Where(cond).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "time_interval"}}).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find candle history: %w", db.Describe(err))
	}

	out := make([]entity.Candle, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}
