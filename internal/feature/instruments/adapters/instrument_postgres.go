// Package adapters はinstrumentsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"market_data/internal/feature/instruments/domain/entity"
	"market_data/internal/feature/instruments/usecase"
	"market_data/internal/platform/db"
)

// instrumentPostgres はInstrumentRepositoryインターフェースのPostgreSQL実装です。
type instrumentPostgres struct {
	db *gorm.DB
}

var _ usecase.InstrumentRepository = (*instrumentPostgres)(nil)

// NewInstrumentRepository は指定されたDB接続でinstrumentPostgresリポジトリの新しいインスタンスを生成します。
func NewInstrumentRepository(db *gorm.DB) *instrumentPostgres {
	return &instrumentPostgres{db: db}
}

// ListActive はsort_key順にすべてのアクティブな銘柄を返します。
func (r *instrumentPostgres) ListActive(ctx context.Context) ([]entity.Instrument, error) {
	var instruments []entity.Instrument
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_key ASC").
		Order("id ASC").
		Find(&instruments).Error; err != nil {
		return nil, db.Describe(err)
	}
	return instruments, nil
}

// ListActiveKeys はsort_key順にアクティブな銘柄のinstrument keyのみを返します。
func (r *instrumentPostgres) ListActiveKeys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := r.db.WithContext(ctx).
		Model(&entity.Instrument{}).
		Where("is_active = ?", true).
		Order("sort_key ASC").
		Order("id ASC").
		Pluck("instrument_key", &keys).Error; err != nil {
		return nil, db.Describe(err)
	}
	return keys, nil
}

// UpsertSnapshots はsymbolをキーに最新価格を書き込みます。
// 既存行の is_active と sort_key は変更しません。
func (r *instrumentPostgres) UpsertSnapshots(ctx context.Context, instruments []entity.Instrument) error {
	rows := dedupBySymbol(instruments)
	if len(rows) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{"instrument_key", "last_price", "updated_at"}),
		}).
		Create(&rows).Error
	return db.Describe(err)
}

// dedupBySymbol keeps the last row per symbol; ON CONFLICT cannot touch the same row twice.
func dedupBySymbol(in []entity.Instrument) []entity.Instrument {
	idx := make(map[string]int, len(in))
	out := make([]entity.Instrument, 0, len(in))
	for _, it := range in {
		if it.Symbol == "" {
			continue
		}
		if i, ok := idx[it.Symbol]; ok {
			out[i] = it
			continue
		}
		idx[it.Symbol] = len(out)
		out = append(out, it)
	}
	return out
}
