// Package usecase はローソク足データの取り込みと参照のビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"market_data/internal/feature/candles/domain/entity"
)

// CandleRepository はローソク足データの永続化レイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type CandleRepository interface {
	// UpsertBatch は (symbol, interval, time) をキーに冪等に書き込みます。競合時は後勝ちです。
	UpsertBatch(ctx context.Context, candles []entity.Candle) error
	// FindLatest は at が非ゼロならその時刻のローソク足を、ゼロなら最新のものを返します。
	// 見つからない場合は entity.ErrCandleNotFound を返します。
	FindLatest(ctx context.Context, symbol string, interval entity.Interval, at time.Time) (entity.Candle, error)
	// FindHistorical は銘柄のローソク足を時刻昇順で返します。interval が空なら全時間足を対象にします。
	FindHistorical(ctx context.Context, symbol string, interval entity.Interval) ([]entity.Candle, error)
}

// CandleCache はローソク足のキャッシュを抽象化します。
type CandleCache interface {
	// Get は at がゼロなら最新エントリ、非ゼロなら時刻指定エントリを返します。
	Get(ctx context.Context, symbol string, interval entity.Interval, at time.Time) (entity.Candle, bool, error)
	// Set は時刻指定エントリと最新エントリの両方を書き込みます。
	Set(ctx context.Context, c entity.Candle) error
	// SetPoint は時刻指定エントリのみを書き込みます。
	SetPoint(ctx context.Context, c entity.Candle) error
	Invalidate(ctx context.Context, symbol string, interval entity.Interval) error
	InvalidateAll(ctx context.Context) error
}

// candlesUsecase はローソク足の参照（cache-aside）を提供します。
// 参照系はエラーを空の結果に変換し、常に応答可能であることを優先します。
type candlesUsecase struct {
	candle CandleRepository
	cache  CandleCache
	loc    *time.Location // 日足・週足の境界の基準
}

// CandlesOption は candlesUsecase の任意設定です。
type CandlesOption func(*candlesUsecase)

// WithLocation は時刻指定の参照で日足・週足の境界を計算するタイムゾーンを設定します。
// 取り込み側の assembler と同じものを指定します。既定はUTCです。
func WithLocation(loc *time.Location) CandlesOption {
	return func(cu *candlesUsecase) {
		if loc != nil {
			cu.loc = loc
		}
	}
}

// NewCandlesUsecase はcandlesUsecaseの新しいインスタンスを生成します。
func NewCandlesUsecase(candle CandleRepository, cache CandleCache, opts ...CandlesOption) *candlesUsecase {
	cu := &candlesUsecase{candle: candle, cache: cache, loc: time.UTC}
	for _, o := range opts {
		o(cu)
	}
	return cu
}

// GetLatest は指定された銘柄・時間足・時刻のローソク足を返します。
// at がゼロの場合は最新のローソク足を対象にします。非ゼロの場合は
// at を含む期間の開始時刻に揃えてから参照します。
//
// 銘柄が空、または時間足が不正な場合はバックエンドを呼ばずに空を返します。
// キャッシュヒット時はストアを参照しません。ミス時はストアを参照し、
// ヒットすればキャッシュへ書き戻します。
func (cu *candlesUsecase) GetLatest(ctx context.Context, symbol string, interval entity.Interval, at time.Time) (entity.Candle, bool) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" || !interval.Valid() {
		return entity.Candle{}, false
	}
	if !at.IsZero() {
		at = interval.Align(at, cu.loc)
	}

	c, ok, err := cu.cache.Get(ctx, symbol, interval, at)
	if err != nil {
		slog.Warn("candle cache read failed", "symbol", symbol, "interval", interval, "error", err)
	}
	if ok {
		return c, true
	}

	c, err = cu.candle.FindLatest(ctx, symbol, interval, at)
	if err != nil {
		if !errors.Is(err, entity.ErrCandleNotFound) {
			slog.Error("candle store read failed", "symbol", symbol, "interval", interval, "error", err)
		}
		return entity.Candle{}, false
	}

	// 書き戻し（ベストエフォート）
	write := cu.cache.Set
	if !at.IsZero() {
		write = cu.cache.SetPoint
	}
	if err := write(ctx, c); err != nil {
		slog.Warn("candle cache write failed", "symbol", symbol, "interval", interval, "error", err)
	}
	return c, true
}

// GetHistorical は銘柄のローソク足一覧をストアから直接返します（キャッシュは使用しません）。
// interval が空の場合は全時間足を返します。該当なしは空スライスです。
func (cu *candlesUsecase) GetHistorical(ctx context.Context, symbol string, interval entity.Interval) []entity.Candle {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" || (interval != "" && !interval.Valid()) {
		return []entity.Candle{}
	}

	cs, err := cu.candle.FindHistorical(ctx, symbol, interval)
	if err != nil {
		slog.Error("candle history read failed", "symbol", symbol, "interval", interval, "error", err)
		return []entity.Candle{}
	}
	if cs == nil {
		return []entity.Candle{}
	}
	return cs
}

// InvalidateCache は銘柄・時間足のキャッシュを削除します。interval が空なら銘柄の全時間足が対象です。
func (cu *candlesUsecase) InvalidateCache(ctx context.Context, symbol string, interval entity.Interval) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return entity.ErrInvalidSymbol
	}
	if interval != "" && !interval.Valid() {
		return entity.ErrInvalidInterval
	}
	return cu.cache.Invalidate(ctx, symbol, interval)
}

// InvalidateAllCache はローソク足キャッシュを全て削除します。
func (cu *candlesUsecase) InvalidateAllCache(ctx context.Context) error {
	return cu.cache.InvalidateAll(ctx)
}
