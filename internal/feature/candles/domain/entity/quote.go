package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one instrument's raw snapshot as returned by the quote provider,
// before it is canonicalized into a Candle.
type Quote struct {
	Symbol          string
	InstrumentToken string
	LastPrice       decimal.Decimal
	Prev            *OHLC // previous completed period, nil when the provider sent none
	Live            *OHLC // in-progress period, informational only
}

// OHLC is a provider-side period summary.
type OHLC struct {
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
	Timestamp time.Time // zero when the provider omitted ts
}
