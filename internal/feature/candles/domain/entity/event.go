package entity

import "github.com/shopspring/decimal"

// PriceUpdateEvent is the flattened projection of a Candle published to the
// price-update stream. Events are keyed by Symbol.
type PriceUpdateEvent struct {
	Symbol       string              `json:"symbol"`
	LastPrice    decimal.Decimal     `json:"last_price"`
	Open         decimal.NullDecimal `json:"open"`
	High         decimal.NullDecimal `json:"high"`
	Low          decimal.NullDecimal `json:"low"`
	Close        decimal.NullDecimal `json:"close"`
	Volume       *int64              `json:"volume"`
	Timestamp    int64               `json:"timestamp"` // ms since epoch
	TimeInterval Interval            `json:"time_interval"`
}

// NewPriceUpdateEvent projects c into its published form.
func NewPriceUpdateEvent(c Candle) PriceUpdateEvent {
	return PriceUpdateEvent{
		Symbol:       c.Symbol,
		LastPrice:    c.LastPrice,
		Open:         c.Open,
		High:         c.High,
		Low:          c.Low,
		Close:        c.Close,
		Volume:       c.Volume,
		Timestamp:    c.Time.UnixMilli(),
		TimeInterval: c.Interval,
	}
}
