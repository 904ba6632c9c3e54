package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"market_data/internal/feature/candles/domain/entity"
)

// ErrDB はモックと期待値の間で共有されるセンチネルエラーです。
var ErrDB = errors.New("database error")

// ErrMarketAPI は上流APIの失敗を表すテスト用エラーです。
var ErrMarketAPI = errors.New("market API error")

// mockCandleRepository はCandleRepositoryインターフェースのモック実装です。
type mockCandleRepository struct {
	UpsertBatchFunc    func(ctx context.Context, candles []entity.Candle) error
	FindLatestFunc     func(ctx context.Context, symbol string, interval entity.Interval, at time.Time) (entity.Candle, error)
	FindHistoricalFunc func(ctx context.Context, symbol string, interval entity.Interval) ([]entity.Candle, error)

	UpsertBatchCalls    int
	FindLatestCalls     int
	FindHistoricalCalls int
}

func (m *mockCandleRepository) UpsertBatch(ctx context.Context, candles []entity.Candle) error {
	m.UpsertBatchCalls++
	if m.UpsertBatchFunc != nil {
		return m.UpsertBatchFunc(ctx, candles)
	}
	return errors.New("UpsertBatchFunc is not implemented")
}

func (m *mockCandleRepository) FindLatest(ctx context.Context, symbol string, interval entity.Interval, at time.Time) (entity.Candle, error) {
	m.FindLatestCalls++
	if m.FindLatestFunc != nil {
		return m.FindLatestFunc(ctx, symbol, interval, at)
	}
	return entity.Candle{}, errors.New("FindLatestFunc is not implemented")
}

func (m *mockCandleRepository) FindHistorical(ctx context.Context, symbol string, interval entity.Interval) ([]entity.Candle, error) {
	m.FindHistoricalCalls++
	if m.FindHistoricalFunc != nil {
		return m.FindHistoricalFunc(ctx, symbol, interval)
	}
	return nil, errors.New("FindHistoricalFunc is not implemented")
}

// mockCandleCache はCandleCacheインターフェースのモック実装です。
type mockCandleCache struct {
	GetFunc           func(ctx context.Context, symbol string, interval entity.Interval, at time.Time) (entity.Candle, bool, error)
	SetFunc           func(ctx context.Context, c entity.Candle) error
	SetPointFunc      func(ctx context.Context, c entity.Candle) error
	InvalidateFunc    func(ctx context.Context, symbol string, interval entity.Interval) error
	InvalidateAllFunc func(ctx context.Context) error

	GetCalls      int
	SetCalls      int
	SetPointCalls int
	SetKeys       []string
}

func (m *mockCandleCache) Get(ctx context.Context, symbol string, interval entity.Interval, at time.Time) (entity.Candle, bool, error) {
	m.GetCalls++
	if m.GetFunc != nil {
		return m.GetFunc(ctx, symbol, interval, at)
	}
	return entity.Candle{}, false, nil
}

func (m *mockCandleCache) Set(ctx context.Context, c entity.Candle) error {
	m.SetCalls++
	m.SetKeys = append(m.SetKeys, c.Symbol+":"+c.Interval.String())
	if m.SetFunc != nil {
		return m.SetFunc(ctx, c)
	}
	return nil
}

func (m *mockCandleCache) SetPoint(ctx context.Context, c entity.Candle) error {
	m.SetPointCalls++
	if m.SetPointFunc != nil {
		return m.SetPointFunc(ctx, c)
	}
	return nil
}

func (m *mockCandleCache) Invalidate(ctx context.Context, symbol string, interval entity.Interval) error {
	if m.InvalidateFunc != nil {
		return m.InvalidateFunc(ctx, symbol, interval)
	}
	return nil
}

func (m *mockCandleCache) InvalidateAll(ctx context.Context) error {
	if m.InvalidateAllFunc != nil {
		return m.InvalidateAllFunc(ctx)
	}
	return nil
}

// mockMarketRepository はMarketRepositoryインターフェースのモック実装です。
type mockMarketRepository struct {
	FetchQuotesFunc  func(ctx context.Context, symbols []string, upstreamInterval string) ([]entity.Quote, error)
	FetchQuotesCalls int
	BatchSizes       []int
}

func (m *mockMarketRepository) FetchQuotes(ctx context.Context, symbols []string, upstreamInterval string) ([]entity.Quote, error) {
	m.FetchQuotesCalls++
	m.BatchSizes = append(m.BatchSizes, len(symbols))
	if m.FetchQuotesFunc != nil {
		return m.FetchQuotesFunc(ctx, symbols, upstreamInterval)
	}
	return nil, errors.New("FetchQuotesFunc is not implemented")
}

// mockUniverse はUniverseProviderインターフェースのモック実装です。
type mockUniverse struct {
	symbols []string
	err     error
	calls   int
}

func (m *mockUniverse) Symbols(ctx context.Context) ([]string, error) {
	m.calls++
	return m.symbols, m.err
}

// mockPublisher は公開されたイベントを記録します。
type mockPublisher struct {
	mu     sync.Mutex
	events []entity.PriceUpdateEvent
}

func (m *mockPublisher) Publish(ctx context.Context, event entity.PriceUpdateEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockPublisher) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Symbol)
	}
	return out
}

// mockRateLimiter is a mock implementation of the RateLimiterInterface.
type mockRateLimiter struct {
	WaitIfNeededCalls int
	err               error
}

func (m *mockRateLimiter) WaitIfNeeded(ctx context.Context) error {
	m.WaitIfNeededCalls++
	// For testing purposes, return immediately without waiting
	return m.err
}

// mockInstrumentRecorder はInstrumentRecorderインターフェースのモック実装です。
type mockInstrumentRecorder struct {
	err    error
	quotes int
}

func (m *mockInstrumentRecorder) RecordQuotes(ctx context.Context, quotes []entity.Quote) error {
	m.quotes += len(quotes)
	return m.err
}

// mockMetrics は記録された実行状態を保持します。
type mockMetrics struct {
	states  []string
	candles int
}

func (m *mockMetrics) ObserveRun(interval string, state string, d time.Duration) {
	m.states = append(m.states, state)
}

func (m *mockMetrics) AddCandles(interval string, n int) {
	m.candles += n
}
