package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"market_data/internal/feature/candles/domain/entity"
	"market_data/internal/shared/ratelimiter"
)

// DefaultBatchSize は1回の上流リクエストに含める銘柄数の上限です。
const DefaultBatchSize = 500

var (
	// ErrEmptyUniverse は取り込み対象の銘柄が0件の場合に返されます。
	ErrEmptyUniverse = errors.New("instrument universe is empty")
	// ErrUpstream は上流APIの失敗（通信エラー、空・不正なレスポンス）を表します。
	ErrUpstream = errors.New("upstream error")
	// ErrPersistence はストアへの書き込み失敗を表します。
	ErrPersistence = errors.New("persistence error")
)

// MarketRepository は上流の相場APIからクォートを取得するインターフェイスです。
// 外部 API の実装を抽象化します。呼び出し側がチャンク分割を行います。
type MarketRepository interface {
	FetchQuotes(ctx context.Context, symbols []string, upstreamInterval string) ([]entity.Quote, error)
}

// UniverseProvider は取り込み対象の銘柄一覧を提供します。
type UniverseProvider interface {
	Symbols(ctx context.Context) ([]string, error)
}

// CandleAssembler はクォートをローソク足に変換します。
type CandleAssembler interface {
	BuildAll(quotes []entity.Quote, interval entity.Interval) []entity.Candle
}

// CandleCacheWriter は取り込み時のキャッシュ書き込み先です。
type CandleCacheWriter interface {
	Set(ctx context.Context, c entity.Candle) error
}

// EventPublisher は価格更新イベントを非同期に公開します。失敗は実装側で記録し、呼び出し元へは返しません。
type EventPublisher interface {
	Publish(ctx context.Context, event entity.PriceUpdateEvent)
}

// InstrumentRecorder は取得したクォートで銘柄マスタのスナップショットを更新します。
type InstrumentRecorder interface {
	RecordQuotes(ctx context.Context, quotes []entity.Quote) error
}

// IngestMetrics は取り込み実行の計測値を受け取ります。
type IngestMetrics interface {
	ObserveRun(interval string, state string, d time.Duration)
	AddCandles(interval string, n int)
}

// RunState は取り込み実行の状態です。
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunAborted   RunState = "aborted"
)

// RunReport は1回の取り込み実行の結果です。
type RunReport struct {
	Interval        entity.Interval `json:"interval"`
	State           RunState        `json:"state"`
	Symbols         int             `json:"symbols"`
	Batches         int             `json:"batches"`
	BatchesDone     int             `json:"batches_done"`
	CandlesStored   int             `json:"candles_stored"`
	EventsPublished int             `json:"events_published"`
	StartedAt       time.Time       `json:"started_at"`
	Duration        time.Duration   `json:"duration"`
}

// IngestUsecase は1つの時間足について、銘柄一覧をチャンクに分け
// 取得 → 変換 → 保存 → キャッシュ → 公開 を順番に実行します。
type IngestUsecase struct {
	universe    UniverseProvider
	market      MarketRepository
	assembler   CandleAssembler
	candle      CandleRepository
	cache       CandleCacheWriter
	publisher   EventPublisher
	rateLimiter ratelimiter.RateLimiterInterface
	instruments InstrumentRecorder
	metrics     IngestMetrics
	batchSize   int
	runTimeout  time.Duration
}

// IngestOption は IngestUsecase の任意設定です。
type IngestOption func(*IngestUsecase)

// WithBatchSize はチャンクサイズを設定します。0以下は DefaultBatchSize になります。
func WithBatchSize(n int) IngestOption {
	return func(iu *IngestUsecase) { iu.batchSize = n }
}

// WithRunTimeout は1回の実行全体のタイムアウトを設定します。0は無制限です。
func WithRunTimeout(d time.Duration) IngestOption {
	return func(iu *IngestUsecase) { iu.runTimeout = d }
}

// WithInstrumentRecorder は銘柄スナップショットの更新先を設定します。
func WithInstrumentRecorder(r InstrumentRecorder) IngestOption {
	return func(iu *IngestUsecase) { iu.instruments = r }
}

// WithMetrics は計測先を設定します。
func WithMetrics(m IngestMetrics) IngestOption {
	return func(iu *IngestUsecase) { iu.metrics = m }
}

// NewIngestUsecase は新しい IngestUsecase を作成します。
func NewIngestUsecase(
	universe UniverseProvider,
	market MarketRepository,
	assembler CandleAssembler,
	candle CandleRepository,
	cache CandleCacheWriter,
	publisher EventPublisher,
	rateLimiter ratelimiter.RateLimiterInterface,
	opts ...IngestOption,
) *IngestUsecase {
	iu := &IngestUsecase{
		universe:    universe,
		market:      market,
		assembler:   assembler,
		candle:      candle,
		cache:       cache,
		publisher:   publisher,
		rateLimiter: rateLimiter,
	}
	for _, o := range opts {
		o(iu)
	}
	if iu.batchSize <= 0 {
		iu.batchSize = DefaultBatchSize
	}
	return iu
}

// Run は指定された時間足の取り込みを1回実行します。
//
// 時間足が不正な場合は副作用なしで entity.ErrInvalidInterval を返します。
// 銘柄一覧が空なら ErrEmptyUniverse で中断します。いずれかのチャンクで
// 取得または保存に失敗した場合は直ちに中断しますが、それまでに完了した
// チャンクの結果はロールバックしません。
func (iu *IngestUsecase) Run(ctx context.Context, interval entity.Interval) (RunReport, error) {
	report := RunReport{Interval: interval, State: RunIdle}
	if !interval.Valid() {
		return report, fmt.Errorf("%w: %q", entity.ErrInvalidInterval, interval)
	}

	report.State = RunRunning
	report.StartedAt = time.Now()
	if iu.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, iu.runTimeout)
		defer cancel()
	}

	symbols, err := iu.universe.Symbols(ctx)
	if err != nil {
		return iu.finish(report, fmt.Errorf("load universe: %w", err))
	}
	if len(symbols) == 0 {
		return iu.finish(report, ErrEmptyUniverse)
	}
	report.Symbols = len(symbols)

	batches := chunk(symbols, iu.batchSize)
	report.Batches = len(batches)
	slog.Info("ingest run started", "interval", interval, "symbols", len(symbols), "batches", len(batches))

	for i, batch := range batches {
		stored, published, err := iu.ingestBatch(ctx, interval, batch)
		report.CandlesStored += stored
		report.EventsPublished += published
		if err != nil {
			return iu.finish(report, fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err))
		}
		report.BatchesDone++
		slog.Debug("ingest batch done", "interval", interval, "batch", i+1, "candles", stored)
	}

	return iu.finish(report, nil)
}

// ingestBatch は1チャンク分の 取得 → 変換 → 保存 → キャッシュ → 公開 を行い、
// 保存件数と公開件数を返します。
func (iu *IngestUsecase) ingestBatch(ctx context.Context, interval entity.Interval, symbols []string) (int, int, error) {
	if err := iu.rateLimiter.WaitIfNeeded(ctx); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	quotes, err := iu.market.FetchQuotes(ctx, symbols, interval.UpstreamCode())
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if len(quotes) == 0 {
		return 0, 0, fmt.Errorf("%w: empty response for %d symbols", ErrUpstream, len(symbols))
	}

	candles := iu.assembler.BuildAll(quotes, interval)
	if err := iu.candle.UpsertBatch(ctx, candles); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if iu.metrics != nil {
		iu.metrics.AddCandles(interval.String(), len(candles))
	}

	if iu.instruments != nil {
		if err := iu.instruments.RecordQuotes(ctx, quotes); err != nil {
			slog.Warn("failed to record instrument snapshots", "interval", interval, "error", err)
		}
	}

	published := 0
	for _, c := range candles {
		if err := iu.cache.Set(ctx, c); err != nil {
			slog.Warn("failed to cache candle", "symbol", c.Symbol, "interval", interval, "error", err)
		}
		iu.publisher.Publish(ctx, entity.NewPriceUpdateEvent(c))
		published++
	}
	return len(candles), published, nil
}

func (iu *IngestUsecase) finish(report RunReport, err error) (RunReport, error) {
	report.Duration = time.Since(report.StartedAt)
	report.State = RunCompleted
	if err != nil {
		report.State = RunAborted
		slog.Error("ingest run aborted", "interval", report.Interval,
			"batches_done", report.BatchesDone, "batches", report.Batches, "error", err)
	} else {
		slog.Info("ingest run completed", "interval", report.Interval,
			"candles", report.CandlesStored, "duration", report.Duration)
	}
	if iu.metrics != nil {
		iu.metrics.ObserveRun(report.Interval.String(), string(report.State), report.Duration)
	}
	return report, err
}

// chunk は s を最大 size 件ずつに分割します。最後のチャンクは size 未満になり得ます。
func chunk(s []string, size int) [][]string {
	out := make([][]string, 0, (len(s)+size-1)/size)
	for start := 0; start < len(s); start += size {
		end := min(start+size, len(s))
		out = append(out, s[start:end])
	}
	return out
}
