package usecase

import (
	"context"

	"market_data/internal/feature/instruments/domain/entity"
)

// InstrumentRepository abstracts the persistence layer for the instrument catalogue.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type InstrumentRepository interface {
	ListActive(ctx context.Context) ([]entity.Instrument, error)
	UpsertSnapshots(ctx context.Context, instruments []entity.Instrument) error
}

// CatalogUsecase provides business logic for the instrument catalogue.
type CatalogUsecase struct {
	repo InstrumentRepository
}

// NewCatalogUsecase creates a new CatalogUsecase with the given repository.
func NewCatalogUsecase(r InstrumentRepository) *CatalogUsecase {
	return &CatalogUsecase{repo: r}
}

// ListActiveInstruments returns active catalogue rows ordered by sort key.
func (u *CatalogUsecase) ListActiveInstruments(ctx context.Context) ([]entity.Instrument, error) {
	return u.repo.ListActive(ctx)
}

// RecordSnapshots は取得した最新価格で銘柄マスタを更新します。
// 空のスライスは何もしません。
func (u *CatalogUsecase) RecordSnapshots(ctx context.Context, instruments []entity.Instrument) error {
	if len(instruments) == 0 {
		return nil
	}
	return u.repo.UpsertSnapshots(ctx, instruments)
}
