package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"market_data/internal/feature/candles/assembler"
	"market_data/internal/feature/candles/domain/entity"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	// :memory: は接続ごとに別DBになるため1接続に固定
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&CandleModel{})
	require.NoError(t, err, "failed to migrate table")

	return db
}

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func vol(v int64) *int64 { return &v }

// newCandle builds a fully populated candle for tests.
func newCandle(symbol string, interval entity.Interval, at time.Time, px string) entity.Candle {
	return entity.Candle{
		Symbol:          symbol,
		InstrumentToken: "TOKEN|" + symbol,
		Interval:        interval,
		Time:            at,
		Open:            dec(px),
		High:            dec(px),
		Low:             dec(px),
		Close:           dec(px),
		Volume:          vol(1000),
		LastPrice:       decimal.RequireFromString(px),
	}
}

// seedCandle creates a test candle in the database for testing.
func seedCandle(t *testing.T, db *gorm.DB, symbol string, interval entity.Interval, at time.Time) *CandleModel {
	t.Helper()

	m := toModel(newCandle(symbol, interval, at, "100"))
	err := db.Create(&m).Error
	require.NoError(t, err, "failed to seed candle")

	return &m
}

func TestNewCandleRepository(t *testing.T) {
	db := setupTestDB(t)

	repo := NewCandleRepository(db)

	assert.NotNil(t, repo, "repository is nil")
	assert.NotNil(t, repo.db, "database connection is nil")
}

func TestCandlePostgres_UpsertBatch(t *testing.T) {
	t.Parallel()

	baseTime := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)

	tests := []struct {
		name         string
		candles      []entity.Candle
		wantErr      bool
		setupFunc    func(t *testing.T, db *gorm.DB)
		validateFunc func(t *testing.T, db *gorm.DB)
	}{
		{
			name:    "success: insert single candle",
			candles: []entity.Candle{newCandle("RELIANCE", entity.Interval1Minute, baseTime, "2500.5")},
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var count int64
				db.Model(&CandleModel{}).Count(&count)
				assert.Equal(t, int64(1), count, "candle count does not match")

				var m CandleModel
				require.NoError(t, db.First(&m).Error)
				assert.Equal(t, "1m", m.TimeInterval)
				assert.Equal(t, baseTime.UnixMilli(), m.Timestamp)
				assert.False(t, m.CreatedAt.IsZero(), "created_at should be set")
			},
		},
		{
			name: "success: insert multiple candles",
			candles: []entity.Candle{
				newCandle("RELIANCE", entity.Interval1Minute, baseTime, "2500"),
				newCandle("RELIANCE", entity.Interval1Minute, baseTime.Add(time.Minute), "2501"),
				newCandle("RELIANCE", entity.Interval30Minute, baseTime, "2500"),
			},
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var count int64
				db.Model(&CandleModel{}).Count(&count)
				assert.Equal(t, int64(3), count, "candle count does not match")
			},
		},
		{
			name:    "success: empty slice",
			candles: []entity.Candle{},
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var count int64
				db.Model(&CandleModel{}).Count(&count)
				assert.Equal(t, int64(0), count, "candle count should be 0")
			},
		},
		{
			name:    "success: upsert updates existing candle",
			candles: []entity.Candle{newCandle("RELIANCE", entity.Interval1Minute, baseTime, "2600.25")},
			setupFunc: func(t *testing.T, db *gorm.DB) {
				seedCandle(t, db, "RELIANCE", entity.Interval1Minute, baseTime)
			},
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var count int64
				db.Model(&CandleModel{}).Count(&count)
				assert.Equal(t, int64(1), count, "candle count should remain 1 after upsert")

				var m CandleModel
				require.NoError(t, db.First(&m).Error)
				assert.True(t, m.Open.Decimal.Equal(decimal.RequireFromString("2600.25")), "Open should be updated")
				assert.True(t, m.LastPrice.Equal(decimal.RequireFromString("2600.25")), "LastPrice should be updated")
			},
		},
		{
			name: "success: duplicate keys in one batch keep the last",
			candles: []entity.Candle{
				newCandle("TCS", entity.Interval1Day, baseTime, "3900"),
				newCandle("TCS", entity.Interval1Day, baseTime, "3950"),
			},
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var rows []CandleModel
				require.NoError(t, db.Find(&rows).Error)
				require.Len(t, rows, 1)
				assert.True(t, rows[0].Close.Decimal.Equal(decimal.NewFromInt(3950)))
			},
		},
		{
			name: "success: candle without ohlcv stores nulls",
			candles: []entity.Candle{{
				Symbol:    "INFY",
				Interval:  entity.Interval1Minute,
				Time:      baseTime,
				LastPrice: decimal.NewFromInt(1500),
			}},
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var m CandleModel
				require.NoError(t, db.First(&m).Error)
				assert.False(t, m.Open.Valid)
				assert.False(t, m.Close.Valid)
				assert.Nil(t, m.Volume)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db := setupTestDB(t)
			repo := NewCandleRepository(db)

			if tt.setupFunc != nil {
				tt.setupFunc(t, db)
			}

			err := repo.UpsertBatch(context.Background(), tt.candles)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				if tt.validateFunc != nil {
					tt.validateFunc(t, db)
				}
			}
		})
	}
}

// TestCandlePostgres_Upsert_Idempotent は同じローソク足を2回書き込んでも1行で最新値になることを検証します。
func TestCandlePostgres_Upsert_Idempotent(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewCandleRepository(db)
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, newCandle("A", entity.Interval1Minute, at, "10")))
	require.NoError(t, repo.Upsert(ctx, newCandle("A", entity.Interval1Minute, at, "11")))

	var count int64
	db.Model(&CandleModel{}).Count(&count)
	assert.Equal(t, int64(1), count)

	got, err := repo.FindLatest(ctx, "A", entity.Interval1Minute, at)
	require.NoError(t, err)
	assert.True(t, got.Close.Decimal.Equal(decimal.NewFromInt(11)))
}

func TestCandlePostgres_FindLatest(t *testing.T) {
	t.Parallel()

	baseTime := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)

	tests := []struct {
		name      string
		symbol    string
		interval  entity.Interval
		at        time.Time
		setupFunc func(t *testing.T, db *gorm.DB)
		wantErr   error
		wantTime  time.Time
	}{
		{
			name:     "zero time returns newest",
			symbol:   "A",
			interval: entity.Interval1Minute,
			setupFunc: func(t *testing.T, db *gorm.DB) {
				seedCandle(t, db, "A", entity.Interval1Minute, baseTime)
				seedCandle(t, db, "A", entity.Interval1Minute, baseTime.Add(2*time.Minute))
				seedCandle(t, db, "A", entity.Interval1Minute, baseTime.Add(time.Minute))
				seedCandle(t, db, "A", entity.Interval30Minute, baseTime.Add(time.Hour))
			},
			wantTime: baseTime.Add(2 * time.Minute),
		},
		{
			name:     "exact point lookup",
			symbol:   "A",
			interval: entity.Interval1Minute,
			at:       baseTime.Add(time.Minute),
			setupFunc: func(t *testing.T, db *gorm.DB) {
				seedCandle(t, db, "A", entity.Interval1Minute, baseTime)
				seedCandle(t, db, "A", entity.Interval1Minute, baseTime.Add(time.Minute))
			},
			wantTime: baseTime.Add(time.Minute),
		},
		{
			name:     "point miss",
			symbol:   "A",
			interval: entity.Interval1Minute,
			at:       baseTime.Add(5 * time.Minute),
			setupFunc: func(t *testing.T, db *gorm.DB) {
				seedCandle(t, db, "A", entity.Interval1Minute, baseTime)
			},
			wantErr: entity.ErrCandleNotFound,
		},
		{
			name:     "unknown symbol",
			symbol:   "NOTFOUND",
			interval: entity.Interval1Minute,
			wantErr:  entity.ErrCandleNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db := setupTestDB(t)
			repo := NewCandleRepository(db)
			if tt.setupFunc != nil {
				tt.setupFunc(t, db)
			}

			got, err := repo.FindLatest(context.Background(), tt.symbol, tt.interval, tt.at)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantTime.Equal(got.Time), "want %s, got %s", tt.wantTime, got.Time)
			assert.Equal(t, tt.symbol, got.Symbol)
			assert.Equal(t, tt.interval, got.Interval)
		})
	}
}

func TestCandlePostgres_FindHistorical(t *testing.T) {
	t.Parallel()

	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db := setupTestDB(t)
	repo := NewCandleRepository(db)
	ctx := context.Background()

	seedCandle(t, db, "A", entity.Interval1Day, baseTime.AddDate(0, 0, 2))
	seedCandle(t, db, "A", entity.Interval1Day, baseTime)
	seedCandle(t, db, "A", entity.Interval1Minute, baseTime.AddDate(0, 0, 1))
	seedCandle(t, db, "B", entity.Interval1Day, baseTime)

	daily, err := repo.FindHistorical(ctx, "A", entity.Interval1Day)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.True(t, daily[0].Time.Before(daily[1].Time), "results ordered by time ascending")

	all, err := repo.FindHistorical(ctx, "A", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := repo.FindHistorical(ctx, "NOTFOUND", entity.Interval1Day)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// TestCandlePostgres_RoundTrip はクォートの変換→保存→取得でOHLCVが一致することを検証します。
func TestCandlePostgres_RoundTrip(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewCandleRepository(db)
	ctx := context.Background()

	ts := time.Date(2024, 6, 15, 9, 16, 42, 0, time.UTC)
	q := entity.Quote{
		Symbol:          "NSE_EQ:RELIANCE",
		InstrumentToken: "NSE_EQ|INE002A01018",
		LastPrice:       decimal.RequireFromString("2931.4"),
		Prev: &entity.OHLC{
			Open:      decimal.RequireFromString("2925.5"),
			High:      decimal.RequireFromString("2933.75"),
			Low:       decimal.RequireFromString("2921.25"),
			Close:     decimal.RequireFromString("2930"),
			Volume:    5000000,
			Timestamp: ts,
		},
	}
	built := assembler.New(time.UTC).Build(q, entity.Interval1Minute)

	require.NoError(t, repo.Upsert(ctx, built))
	got, err := repo.FindLatest(ctx, built.Symbol, built.Interval, built.Time)
	require.NoError(t, err)

	assert.Equal(t, built.Symbol, got.Symbol)
	assert.Equal(t, built.InstrumentToken, got.InstrumentToken)
	assert.True(t, built.Time.Equal(got.Time))
	assert.True(t, built.Open.Decimal.Equal(got.Open.Decimal), "Open does not match")
	assert.True(t, built.High.Decimal.Equal(got.High.Decimal), "High does not match")
	assert.True(t, built.Low.Decimal.Equal(got.Low.Decimal), "Low does not match")
	assert.True(t, built.Close.Decimal.Equal(got.Close.Decimal), "Close does not match")
	require.NotNil(t, got.Volume)
	assert.Equal(t, *built.Volume, *got.Volume, "Volume does not match")
	assert.True(t, built.LastPrice.Equal(got.LastPrice), "LastPrice does not match")
}
