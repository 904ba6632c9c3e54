package di

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"gorm.io/gorm"

	candlesentity "market_data/internal/feature/candles/domain/entity"
	candlesusecase "market_data/internal/feature/candles/usecase"
	instrumentsadapters "market_data/internal/feature/instruments/adapters"
	instrumentsentity "market_data/internal/feature/instruments/domain/entity"
	instrumentsusecase "market_data/internal/feature/instruments/usecase"
)

// NewUniverseSource は UNIVERSE_SOURCE に応じた銘柄キーの読み込み元を返します。
func NewUniverseSource(cfg AppConfig, fs afero.Fs, db *gorm.DB) (instrumentsusecase.KeySource, error) {
	switch cfg.UniverseSource {
	case UniverseSourceFile, "":
		return instrumentsadapters.NewFileSource(fs, cfg.UniverseFile), nil
	case UniverseSourceDB:
		repo := instrumentsadapters.NewInstrumentRepository(db)
		return instrumentsusecase.KeySourceFunc(repo.ListActiveKeys), nil
	default:
		return nil, fmt.Errorf("UNIVERSE_SOURCE: unknown source %q", cfg.UniverseSource)
	}
}

// snapshotRecorder is the subset of CatalogUsecase used by quoteRecorder.
type snapshotRecorder interface {
	RecordSnapshots(ctx context.Context, instruments []instrumentsentity.Instrument) error
}

// quoteRecorder は取り込んだクォートを銘柄マスタのスナップショットに変換して記録します。
type quoteRecorder struct {
	catalog snapshotRecorder
}

var _ candlesusecase.InstrumentRecorder = quoteRecorder{}

// NewQuoteRecorder bridges candle ingestion to the instrument catalogue.
func NewQuoteRecorder(catalog snapshotRecorder) candlesusecase.InstrumentRecorder {
	return quoteRecorder{catalog: catalog}
}

func (r quoteRecorder) RecordQuotes(ctx context.Context, quotes []candlesentity.Quote) error {
	rows := make([]instrumentsentity.Instrument, 0, len(quotes))
	for _, q := range quotes {
		key := q.InstrumentToken
		if key == "" {
			key = q.Symbol
		}
		rows = append(rows, instrumentsentity.Instrument{
			Symbol:        q.Symbol,
			InstrumentKey: key,
			LastPrice:     q.LastPrice,
			IsActive:      true,
		})
	}
	return r.catalog.RecordSnapshots(ctx, rows)
}

