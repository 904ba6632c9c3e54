// Package entity defines the domain models for the candles feature.
package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents an OHLCV (Open, High, Low, Close, Volume) candle for one
// instrument at one interval-aligned instant.
//
// A candle is identified by (Symbol, Interval, Time). OHLCV fields are unset
// (Valid == false / nil) when the upstream quote carried no prior-period data;
// callers must read that as "no data yet", never as zero.
type Candle struct {
	Symbol          string              `json:"symbol"`           // Instrument identifier (e.g., "NSE_EQ:RELIANCE")
	InstrumentToken string              `json:"instrument_token"` // Opaque upstream instrument id
	Interval        Interval            `json:"interval"`         // Candle granularity
	Time            time.Time           `json:"time"`             // Interval-aligned start of the candle period
	Open            decimal.NullDecimal `json:"open"`             // Opening price
	High            decimal.NullDecimal `json:"high"`             // Highest price during the period
	Low             decimal.NullDecimal `json:"low"`              // Lowest price during the period
	Close           decimal.NullDecimal `json:"close"`            // Closing price
	Volume          *int64              `json:"volume"`           // Traded volume
	LastPrice       decimal.Decimal     `json:"last_price"`       // Last traded price at fetch time
	CreatedAt       time.Time           `json:"created_at"`       // Ingestion instant
}

// HasOHLCV reports whether the candle carries prior-period price data.
func (c Candle) HasOHLCV() bool {
	return c.Open.Valid && c.High.Valid && c.Low.Valid && c.Close.Valid
}

// Key returns the composite identity of the candle.
func (c Candle) Key() CandleKey {
	return CandleKey{Symbol: c.Symbol, Interval: c.Interval, Time: c.Time}
}

// CandleKey is the (symbol, interval, timestamp) identity under which at most
// one candle is stored.
type CandleKey struct {
	Symbol   string
	Interval Interval
	Time     time.Time
}
